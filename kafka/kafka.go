package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/jsonx"
	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/worker"
)

var GroupID string = "rt1m-events"

// Config is the Confluent Cloud connection. APIKey empty means a plaintext
// local broker.
type Config struct {
	BootstrapServers string
	APIKey           string
	APISecret        string
}

func (c Config) configMap() *kafka.ConfigMap {
	m := &kafka.ConfigMap{"bootstrap.servers": c.BootstrapServers}
	if c.APIKey != "" {
		m.SetKey("security.protocol", "SASL_SSL")
		m.SetKey("sasl.mechanisms", "PLAIN")
		m.SetKey("sasl.username", c.APIKey)
		m.SetKey("sasl.password", c.APISecret)
	}
	return m
}

type Producer struct {
	p *kafka.Producer
}

func NewProducer(cfg Config) (*Producer, error) {
	p, err := kafka.NewProducer(cfg.configMap())
	if err != nil {
		logger.Get().Error("failed to initialize Kafka producer",
			zap.String("bootstrap_servers", cfg.BootstrapServers),
			zap.Error(err))
		return nil, err
	}
	go func() {
		for e := range p.Events() {
			if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				logger.Get().Error("delivery failed",
					zap.Stringp("topic", m.TopicPartition.Topic),
					zap.Error(m.TopicPartition.Error))
			}
		}
	}()

	logger.Get().Info("Kafka producer initialized successfully",
		zap.String("bootstrap_servers", cfg.BootstrapServers))
	return &Producer{p: p}, nil
}

// ProduceMessage queues value on topic. Messages with the same key land on
// the same partition.
func (pr *Producer) ProduceMessage(topic, key string, value []byte) error {
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
	}
	if err := pr.p.Produce(msg, nil); err != nil {
		logger.Get().Error("failed to produce message",
			zap.String("topic", topic),
			zap.Error(err))
		return err
	}
	logger.Get().Debug("message produced successfully", zap.String("topic", topic))
	return nil
}

func (pr *Producer) PublishProfileUpdate(_ context.Context, ev models.ProfileUpdateEvent) error {
	value, err := jsonx.Marshal(ev)
	if err != nil {
		return err
	}
	return pr.ProduceMessage(worker.ProfileUpdatesTopic, ev.UserID, value)
}

func (pr *Producer) PublishBankSync(_ context.Context, job models.BankSyncJob) error {
	value, err := jsonx.Marshal(job)
	if err != nil {
		return err
	}
	return pr.ProduceMessage(worker.BankSyncTopic, job.UserID, value)
}

// Close flushes pending deliveries for up to five seconds.
func (pr *Producer) Close() {
	if left := pr.p.Flush(5000); left > 0 {
		logger.Get().Warn("Kafka producer closed with undelivered messages", zap.Int("pending", left))
	}
	pr.p.Close()
}

// StartConsumer reads the topics and hands every message to the pool until
// ctx is cancelled.
func StartConsumer(ctx context.Context, cfg Config, topics []string, pool *worker.WorkerPool) error {
	m := cfg.configMap()
	m.SetKey("session.timeout.ms", "45000")
	m.SetKey("client.id", "rt1m-api")
	m.SetKey("group.id", GroupID)
	m.SetKey("auto.offset.reset", "latest")

	consumer, err := kafka.NewConsumer(m)
	if err != nil {
		logger.Get().Error("failed to create consumer",
			zap.String("bootstrap_servers", cfg.BootstrapServers),
			zap.Error(err))
		return err
	}
	if err := consumer.SubscribeTopics(topics, nil); err != nil {
		logger.Get().Error("failed to subscribe to topics",
			zap.Strings("topics", topics),
			zap.Error(err))
		consumer.Close()
		return err
	}

	logger.Get().Info("Kafka consumer started successfully",
		zap.Strings("topics", topics),
		zap.String("group_id", GroupID))

	go func() {
		defer consumer.Close()
		for ctx.Err() == nil {
			msg, err := consumer.ReadMessage(500 * time.Millisecond)
			if err != nil {
				var kerr kafka.Error
				if errors.As(err, &kerr) && kerr.IsTimeout() {
					continue
				}
				logger.Get().Error("consumer error", zap.Error(err))
				continue
			}
			pool.Submit(worker.Job{
				Topic: *msg.TopicPartition.Topic,
				Key:   string(msg.Key),
				Value: msg.Value,
			})
		}
		logger.Get().Info("Kafka consumer stopped")
	}()
	return nil
}
