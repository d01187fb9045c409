package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/capturelabs/capture-engine/internal/config"
	"github.com/capturelabs/capture-engine/internal/domain/docModel"
	"github.com/capturelabs/capture-engine/internal/rag/vectorDB"
	"github.com/capturelabs/capture-engine/pkg/logger_i"
)

var logger *logger_i.Logger
var qdrantInstance *qdrant.Client
var once sync.Once
var dimension = uint64(config.EmbeddingDimensionality)

// pointNamespace makes point ids a pure function of (doc_id, ordinal), which
// is what turns upsert into an idempotent overwrite on re-ingestion.
var pointNamespace = uuid.MustParse("8e7c27d0-6c2f-47b4-9c1e-52f0a3a4d001")

type ClientHolder struct {
	QObj *qdrant.Client
}

// GetQdrantClient builds the singleton client and ensures the collection
// exists. Returns nil when qdrant is unreachable.
func GetQdrantClient(ctx context.Context, cfg config.Config) *ClientHolder {
	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res := newClient(ctx, cfg)
		if res != nil {
			qdrantInstance = res
			go closeQdrant(ctx, qdrantInstance)
		}
	})

	if qdrantInstance == nil {
		return nil
	}
	return &ClientHolder{QObj: qdrantInstance}
}

func newClient(ctx context.Context, cfg config.Config) *qdrant.Client {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.QdrantHost,
		Port:     cfg.QdrantPort,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate: ", "error:", err)
		return nil
	}

	if err := createCollection(ctx, client, config.VectorCollectionName); err != nil {
		logger.Error("could not create collection: ", "collectionName", config.VectorCollectionName, "error:", err)
		return nil
	}
	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	if err := qi.Close(); err != nil {
		logger.Error("could not close Qdrant: ", "error:", err)
	}
}

func (db *ClientHolder) CreateCollection(ctx context.Context, collectionName string) error {
	return createCollection(ctx, db.QObj, collectionName)
}

func (db *ClientHolder) Ping(ctx context.Context) error {
	_, err := db.QObj.HealthCheck(ctx)
	return err
}

// UpsertDocument replaces the chunk set for docId. Existing points are
// filter-deleted first so a shorter re-ingestion leaves no stale ordinals
// behind, then the new set is written under deterministic ids.
func (db *ClientHolder) UpsertDocument(ctx context.Context, collectionName string, docId string, chunks []docModel.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}

	callCtx, cancel := context.WithTimeout(ctx, config.VectorCallTimeout)
	defer cancel()

	_, err := db.QObj.Delete(callCtx, &qdrant.DeletePoints{
		CollectionName: collectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("doc_id", docId)},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant stale delete failed: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointId(docId, chunk.Ordinal)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"doc_id":    chunk.DocId,
				"doc_type":  chunk.DocType,
				"doc_title": chunk.DocTitle,
				"ordinal":   chunk.Ordinal,
				"content":   chunk.Content,
			}),
		}
	}

	_, err = db.QObj.Upsert(callCtx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (db *ClientHolder) Search(ctx context.Context, collectionName string, queryVector []float32, topK int, filter *vectorDB.SearchFilter) ([]vectorDB.Match, error) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	callCtx, cancel := context.WithTimeout(ctx, config.VectorCallTimeout)
	defer cancel()

	query := &qdrant.QueryPoints{
		CollectionName: collectionName,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if filter != nil && filter.DocType != "" {
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("doc_type", filter.DocType)},
		}
	}

	result, err := db.QObj.Query(callCtx, query)
	if err != nil {
		loggr.Error("Error querying Qdrant: ", "error:", err)
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	matches := make([]vectorDB.Match, 0, len(result))
	for _, hit := range result {
		matches = append(matches, vectorDB.Match{
			Score:    hit.Score,
			Content:  hit.Payload["content"].GetStringValue(),
			DocId:    hit.Payload["doc_id"].GetStringValue(),
			DocType:  hit.Payload["doc_type"].GetStringValue(),
			DocTitle: hit.Payload["doc_title"].GetStringValue(),
			Ordinal:  int(hit.Payload["ordinal"].GetIntegerValue()),
		})
	}

	loggr.Debug("vector search done", "hits", len(matches))
	return matches, nil
}

func pointId(docId string, ordinal int) string {
	return uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("%s:%d", docId, ordinal))).String()
}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}
