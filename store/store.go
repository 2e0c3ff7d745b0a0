// Package store defines the persistence gateway the pipeline writes through.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/qiuethan/RT1M-sub001/models"
)

const (
	ProfileCollection       = "profile"
	FinancialsCollection    = "financials"
	GoalsCollection         = "goals"
	SkillsCollection        = "skills"
	ConversationsCollection = "ai_conversations"
	PlansCollection         = "plans"
)

// UserCollections are the four per-user documents, keyed by uid.
var UserCollections = []string{ProfileCollection, FinancialsCollection, GoalsCollection, SkillsCollection}

// Ref addresses one document.
type Ref struct {
	Collection string
	ID         string
}

func (r Ref) String() string { return r.Collection + "/" + r.ID }

func UserRef(collection, uid string) Ref { return Ref{Collection: collection, ID: uid} }

type OpKind string

const (
	OpSet    OpKind = "set"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Operation is one write in a batch. Set replaces (or creates) the document,
// Update merges top-level fields into an existing document, Delete removes it.
// When ExpectedRevision is set the write only applies if the stored revision
// matches; 0 means the document must not exist yet.
type Operation struct {
	Kind             OpKind
	Ref              Ref
	Data             any
	ExpectedRevision *int64
}

// Gateway is the read/merge/write primitive. Batch is all-or-nothing.
type Gateway interface {
	Get(ctx context.Context, ref Ref, out any) (bool, error)
	Save(ctx context.Context, ref Ref, data any, merge bool) error
	UpdateSection(ctx context.Context, ref Ref, key string, value any) error
	Batch(ctx context.Context, ops []Operation) error
}

func Set(ref Ref, data any, expected *int64) Operation {
	return Operation{Kind: OpSet, Ref: ref, Data: data, ExpectedRevision: expected}
}

func Update(ref Ref, fields bson.M, expected *int64) Operation {
	return Operation{Kind: OpUpdate, Ref: ref, Data: fields, ExpectedRevision: expected}
}

func Delete(ref Ref) Operation {
	return Operation{Kind: OpDelete, Ref: ref}
}

func Revision(r int64) *int64 { return &r }

// ToDocument converts a struct or map into a bson.M via a bson round trip.
func ToDocument(data any) (bson.M, error) {
	switch d := data.(type) {
	case nil:
		return bson.M{}, nil
	case bson.M:
		return copyDoc(d), nil
	case map[string]any:
		return copyDoc(d), nil
	}
	raw, err := bson.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

func copyDoc(m map[string]any) bson.M {
	out := make(bson.M, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Stamp applies base metadata to a document about to be written over
// existing (nil when absent).
func Stamp(ref Ref, doc, existing bson.M, now time.Time) bson.M {
	doc["_id"] = ref.ID
	if existing != nil {
		if v, ok := existing["createdAt"]; ok {
			doc["createdAt"] = v
		}
		if v, ok := existing["userId"]; ok && isBlank(doc["userId"]) {
			doc["userId"] = v
		}
	}
	if isBlank(doc["createdAt"]) || isZeroTime(doc["createdAt"]) {
		doc["createdAt"] = now
	}
	if isBlank(doc["userId"]) && isUserCollection(ref.Collection) {
		doc["userId"] = ref.ID
	}
	doc["updatedAt"] = now
	doc["revision"] = RevisionOf(existing) + 1
	return doc
}

// RevisionOf reads the revision of a stored document; 0 when absent.
func RevisionOf(doc bson.M) int64 {
	if doc == nil {
		return 0
	}
	switch v := doc["revision"].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// CheckRevision enforces an operation's expected revision against the stored document.
func CheckRevision(op Operation, existing bson.M) error {
	if op.ExpectedRevision == nil {
		return nil
	}
	if got := RevisionOf(existing); got != *op.ExpectedRevision {
		return fmt.Errorf("%s at revision %d, expected %d: %w", op.Ref, got, *op.ExpectedRevision, models.ErrConflict)
	}
	return nil
}

// PersistenceError wraps a gateway failure into the taxonomy.
func PersistenceError(op string, err error) error {
	return models.NewError(models.KindPersistence, op, err)
}

func isUserCollection(c string) bool {
	for _, u := range UserCollections {
		if u == c {
			return true
		}
	}
	return false
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func isZeroTime(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return t.IsZero()
	case bson.DateTime:
		return t.Time().IsZero()
	}
	return false
}
