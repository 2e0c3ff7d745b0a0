package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const AnswersCollection = "faq_answers"

// AnswerIndex stores generic question/answer pairs by question embedding.
// Points carry no user identifiers.
type AnswerIndex struct {
	client     *qdrant.Client
	collection string
}

func NewAnswerIndex(client *qdrant.Client) *AnswerIndex {
	return &AnswerIndex{client: client, collection: AnswersCollection}
}

// EnsureCollection creates the cosine collection for dim-sized vectors if missing.
func (a *AnswerIndex) EnsureCollection(ctx context.Context, dim uint64) error {
	exists, err := a.client.CollectionExists(ctx, a.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", a.collection, err)
	}
	if exists {
		return nil
	}
	err = a.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: a.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", a.collection, err)
	}
	return nil
}

// Nearest returns the closest stored answer scoring at least threshold.
func (a *AnswerIndex) Nearest(ctx context.Context, vector []float32, threshold float32) (string, float32, bool, error) {
	points, err := a.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: a.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(1)),
		ScoreThreshold: qdrant.PtrOf(threshold),
		WithPayload:    qdrant.NewWithPayloadInclude("answer"),
	})
	if err != nil {
		return "", 0, false, fmt.Errorf("query %s: %w", a.collection, err)
	}
	if len(points) == 0 {
		return "", 0, false, nil
	}
	answer := points[0].GetPayload()["answer"].GetStringValue()
	if answer == "" {
		return "", 0, false, nil
	}
	return answer, points[0].GetScore(), true, nil
}

func (a *AnswerIndex) Put(ctx context.Context, question, answer string, vector []float32) error {
	wait := false
	_, err := a.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: a.collection,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(question)).String()),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"question": question,
				"answer":   answer,
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", a.collection, err)
	}
	return nil
}
