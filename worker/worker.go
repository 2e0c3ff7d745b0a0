package worker

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/jsonx"
	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
)

const (
	ProfileUpdatesTopic = "profile_updates"
	BankSyncTopic       = "bank_sync"

	partitionBuffer = 100
)

// Job is one event to process. Jobs with the same Key run in order on the
// same worker.
type Job struct {
	Topic string
	Key   string
	Value []byte
}

type HandlerFunc func(ctx context.Context, value []byte) error

type WorkerPool struct {
	workers    int
	partitions []chan Job
	handlers   map[string]HandlerFunc
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc

	// Metrics
	mu                 sync.RWMutex
	stopped            bool
	messagesProcessed  uint64
	messagesFailed     uint64
	processingDuration uint64
	bufferFillLevels   []uint64
	messagesDropped    uint64
}

func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	partitions := make([]chan Job, workers)
	for i := range partitions {
		partitions[i] = make(chan Job, partitionBuffer)
	}
	return &WorkerPool{
		workers:          workers,
		partitions:       partitions,
		handlers:         map[string]HandlerFunc{},
		ctx:              ctx,
		cancelFunc:       cancel,
		bufferFillLevels: make([]uint64, workers),
	}
}

// Handle registers the handler for a topic. Call before Start.
func (wp *WorkerPool) Handle(topic string, h HandlerFunc) {
	wp.handlers[topic] = h
}

func (wp *WorkerPool) Start() {
	logger.Get().Info("Starting worker pool", zap.Int("workers", wp.workers))
	for i := range wp.partitions {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) Stop() {
	logger.Get().Info("Stopping worker pool")
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	wp.cancelFunc()
	for _, ch := range wp.partitions {
		close(ch)
	}
	wp.mu.Unlock()
	wp.wg.Wait()
}

// Partition maps a key to a worker.
func (wp *WorkerPool) Partition(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(wp.workers))
}

// Submit queues a job on its key's partition. It returns false when the
// pool is stopped or the partition is full.
func (wp *WorkerPool) Submit(job Job) bool {
	partition := wp.Partition(job.Key)

	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.stopped {
		wp.messagesDropped++
		logger.Get().Warn("Worker pool is stopped, job not submitted", zap.String("topic", job.Topic))
		return false
	}

	select {
	case wp.partitions[partition] <- job:
		wp.bufferFillLevels[partition]++
		logger.Get().Debug("Job submitted to worker pool",
			zap.String("topic", job.Topic),
			zap.Int("partition", partition))
		return true
	default:
		wp.messagesDropped++
		logger.Get().Error("partition full, job dropped",
			zap.String("topic", job.Topic),
			zap.Int("partition", partition))
		return false
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	logger.Get().Info("Worker started", zap.Int("worker_id", id))

	for job := range wp.partitions[id] {
		wp.mu.Lock()
		wp.bufferFillLevels[id]--
		wp.mu.Unlock()

		startTime := time.Now()
		err := wp.process(job)

		wp.mu.Lock()
		if err != nil {
			wp.messagesFailed++
		} else {
			wp.messagesProcessed++
		}
		wp.processingDuration += uint64(time.Since(startTime).Milliseconds())
		wp.mu.Unlock()

		if err != nil {
			logger.Get().Error("Failed to process job",
				zap.Int("worker_id", id),
				zap.String("topic", job.Topic),
				zap.String("key", job.Key),
				zap.Error(err))
		}
	}
	logger.Get().Info("Worker stopping", zap.Int("worker_id", id))
}

func (wp *WorkerPool) process(job Job) (err error) {
	h, ok := wp.handlers[job.Topic]
	if !ok {
		logger.Get().Warn("no handler for topic", zap.String("topic", job.Topic))
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Get().Error("job handler panicked", zap.String("topic", job.Topic), zap.Any("panic", r))
			err = nil
		}
	}()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(wp.ctx), time.Minute)
	defer cancel()
	return h(ctx, job.Value)
}

// PublishProfileUpdate queues the event locally. It stands in for the Kafka
// publisher when no broker is configured.
func (wp *WorkerPool) PublishProfileUpdate(_ context.Context, ev models.ProfileUpdateEvent) error {
	value, err := jsonx.Marshal(ev)
	if err != nil {
		return err
	}
	wp.Submit(Job{Topic: ProfileUpdatesTopic, Key: ev.UserID, Value: value})
	return nil
}

// PublishBankSync queues a bank import locally.
func (wp *WorkerPool) PublishBankSync(_ context.Context, job models.BankSyncJob) error {
	value, err := jsonx.Marshal(job)
	if err != nil {
		return err
	}
	wp.Submit(Job{Topic: BankSyncTopic, Key: job.UserID, Value: value})
	return nil
}

type Metrics struct {
	MessagesProcessed uint64   `json:"messages_processed"`
	MessagesFailed    uint64   `json:"messages_failed"`
	MessagesDropped   uint64   `json:"messages_dropped"`
	AvgProcessingMs   float64  `json:"avg_processing_ms"`
	BufferLevels      []uint64 `json:"buffer_levels"`
	ActiveWorkers     int      `json:"active_workers"`
}

func (wp *WorkerPool) Metrics() Metrics {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	var avgProcessingTime float64
	if n := wp.messagesProcessed + wp.messagesFailed; n > 0 {
		avgProcessingTime = float64(wp.processingDuration) / float64(n)
	}
	return Metrics{
		MessagesProcessed: wp.messagesProcessed,
		MessagesFailed:    wp.messagesFailed,
		MessagesDropped:   wp.messagesDropped,
		AvgProcessingMs:   avgProcessingTime,
		BufferLevels:      append([]uint64(nil), wp.bufferFillLevels...),
		ActiveWorkers:     wp.workers,
	}
}

// MetricsHandler returns the current metrics as JSON
func (wp *WorkerPool) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(wp.Metrics())
}
