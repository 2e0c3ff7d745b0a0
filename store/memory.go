package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/qiuethan/RT1M-sub001/models"
)

// Memory is an in-process Gateway. Documents are kept bson-encoded so reads
// decode exactly as they would from MongoDB, including nil versus empty slices.
type Memory struct {
	mu   sync.RWMutex
	docs map[Ref][]byte
	now  func() time.Time

	// BeforeCommit, when set, runs after a batch has been staged and before it
	// becomes visible. A non-nil error aborts the batch.
	BeforeCommit func(ops []Operation) error
}

func NewMemory() *Memory {
	return &Memory{docs: map[Ref][]byte{}, now: time.Now}
}

func (m *Memory) Get(ctx context.Context, ref Ref, out any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.docs[ref]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return true, PersistenceError("get "+ref.String(), err)
	}
	return true, nil
}

func (m *Memory) Save(ctx context.Context, ref Ref, data any, merge bool) error {
	kind := OpSet
	if merge {
		kind = OpUpdate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commit([]Operation{{Kind: kind, Ref: ref, Data: data}}, true)
}

func (m *Memory) UpdateSection(ctx context.Context, ref Ref, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commit([]Operation{{Kind: OpUpdate, Ref: ref, Data: bson.M{key: value}}}, true)
}

func (m *Memory) Batch(ctx context.Context, ops []Operation) error {
	if err := ctx.Err(); err != nil {
		return PersistenceError("batch", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commit(ops, false)
}

// DeleteWhere removes every document in collection whose field equals value.
func (m *Memory) DeleteWhere(ctx context.Context, collection, field string, value any) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for ref, raw := range m.docs {
		if ref.Collection != collection {
			continue
		}
		var doc bson.M
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return n, err
		}
		if doc[field] == value {
			delete(m.docs, ref)
			n++
		}
	}
	return n, nil
}

// Find decodes every document in collection whose field equals value into
// a fresh T.
func Find[T any](m *Memory, collection, field string, value any) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []T
	for ref, raw := range m.docs {
		if ref.Collection != collection {
			continue
		}
		var doc bson.M
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		if doc[field] != value {
			continue
		}
		var v T
		if err := bson.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// commit stages every operation against a private view and swaps the view in
// only when all of them succeed. upsert lets Update create missing documents.
func (m *Memory) commit(ops []Operation, upsert bool) error {
	staged := map[Ref][]byte{}
	deleted := map[Ref]bool{}
	current := func(ref Ref) (bson.M, error) {
		if deleted[ref] {
			return nil, nil
		}
		raw, ok := staged[ref]
		if !ok {
			raw, ok = m.docs[ref]
		}
		if !ok {
			return nil, nil
		}
		var doc bson.M
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		return doc, nil
	}

	now := m.now()
	for i, op := range ops {
		existing, err := current(op.Ref)
		if err != nil {
			return PersistenceError("batch", fmt.Errorf("operation %d: %w", i, err))
		}
		if err := CheckRevision(op, existing); err != nil {
			return PersistenceError("batch", fmt.Errorf("operation %d: %w", i, err))
		}

		switch op.Kind {
		case OpDelete:
			delete(staged, op.Ref)
			deleted[op.Ref] = true
			continue
		case OpSet:
		case OpUpdate:
			if existing == nil && !upsert {
				return PersistenceError("batch", fmt.Errorf("operation %d: update %s: %w", i, op.Ref, models.ErrNotFound))
			}
		default:
			return PersistenceError("batch", fmt.Errorf("operation %d: unknown kind %q", i, op.Kind))
		}

		doc, err := ToDocument(op.Data)
		if err != nil {
			return PersistenceError("batch", fmt.Errorf("operation %d: %w", i, err))
		}
		if op.Kind == OpUpdate && existing != nil {
			merged := bson.M{}
			for k, v := range existing {
				merged[k] = v
			}
			for k, v := range doc {
				merged[k] = v
			}
			doc = merged
		}
		raw, err := bson.Marshal(Stamp(op.Ref, doc, existing, now))
		if err != nil {
			return PersistenceError("batch", fmt.Errorf("operation %d: %w", i, err))
		}
		delete(deleted, op.Ref)
		staged[op.Ref] = raw
	}

	if m.BeforeCommit != nil {
		if err := m.BeforeCommit(ops); err != nil {
			return PersistenceError("batch", err)
		}
	}
	for ref := range deleted {
		delete(m.docs, ref)
	}
	for ref, raw := range staged {
		m.docs[ref] = raw
	}
	return nil
}
