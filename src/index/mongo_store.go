package index

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps the index in a MongoDB collection. Similarity is a
// brute-force cosine scan in the client; fine for the small corpora
// this assistant indexes.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type mongoDocument struct {
	ID        string            `bson:"_id"`
	Content   string            `bson:"content"`
	Metadata  map[string]string `bson:"metadata"`
	Embedding []float64         `bson:"embedding"`
	StoredAt  time.Time         `bson:"stored_at"`
}

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func float64Embedding(vec []float32) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

func float32Embedding(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}

func (ms *MongoStore) Store(ctx context.Context, docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("got %d documents but %d vectors", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	models := make([]mongo.WriteModel, len(docs))
	for i, doc := range docs {
		record := mongoDocument{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			Embedding: float64Embedding(vectors[i]),
			StoredAt:  now,
		}
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetReplacement(record).
			SetUpsert(true)
	}
	if _, err := ms.collection.BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("store documents: %w", err)
	}
	return nil
}

func (ms *MongoStore) Search(ctx context.Context, vector []float32, k int) ([]ScoredDocument, error) {
	cursor, err := ms.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("search mongo: %w", err)
	}
	defer cursor.Close(ctx)

	var scored []ScoredDocument
	for cursor.Next(ctx) {
		var record mongoDocument
		if err := cursor.Decode(&record); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		scored = append(scored, ScoredDocument{
			Document: Document{ID: record.ID, Content: record.Content, Metadata: record.Metadata},
			Score:    cosineSimilarity(vector, float32Embedding(record.Embedding)),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (ms *MongoStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := ms.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

func (ms *MongoStore) Count(ctx context.Context) (int, error) {
	n, err := ms.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return int(n), nil
}

func (ms *MongoStore) Close(ctx context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ms.client.Disconnect(dctx)
}

var _ VectorStore = (*MongoStore)(nil)
