// Package index provides the Qdrant-backed implementation of the
// search.Index contract. Articles are stored as points whose payload keeps
// the title, link, and summary; the link is the logical identity and is
// returned as the match ID. Vectors are compared with cosine similarity.
package index

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/davrd/semsearch/internal/search"
)

// Config holds connection parameters for a Qdrant instance.
type Config struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the stored embeddings.
	// Must match the embedder's output dimension (default: 768).
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// Qdrant implements search.Index backed by a Qdrant instance.
type Qdrant struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this index.
	cfg *Config
}

// New creates a Qdrant index client, ensuring the target collection exists
// (creating it with cosine distance if necessary). An unreachable Qdrant is
// a startup failure — the process has nothing to search without its index.
func New(ctx context.Context, cfg *Config) (*Qdrant, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.VectorSize == 0 {
		cfg.VectorSize = 768
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("index: failed to create qdrant client: %w", err)
	}

	q := &Qdrant{client: client, cfg: cfg}
	if err := q.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return q, nil
}

// ensureCollection creates the collection if it does not already exist.
func (q *Qdrant) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.cfg.Collection)
	if err != nil {
		return fmt.Errorf("index: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("index: failed to create collection %q: %w", q.cfg.Collection, err)
	}

	return nil
}

// Upsert stores or updates a batch of articles with their embeddings.
// Point IDs are derived deterministically from the article link, so
// re-scraping a page overwrites its previous vector.
func (q *Qdrant) Upsert(ctx context.Context, articles []search.Article, embeddings [][]float32) error {
	if len(articles) != len(embeddings) {
		return fmt.Errorf("index: %d articles but %d embeddings", len(articles), len(embeddings))
	}

	points := make([]*qdrant.PointStruct, 0, len(articles))
	for i, a := range articles {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(a.Link)),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"title":   a.Title,
				"link":    a.Link,
				"summary": a.Summary,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("index: upsert failed: %w", err)
	}

	return nil
}

// Query performs a cosine similarity search and returns the top-k matches,
// ordered by descending score as Qdrant returns them.
func (q *Qdrant) Query(ctx context.Context, vector []float32, topK int) ([]search.Match, error) {
	limit := uint64(topK)
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("index: query failed: %w", err)
	}

	matches := make([]search.Match, 0, len(results))
	for _, r := range results {
		m := search.Match{Score: r.Score}
		// The link payload is the logical ID. Fall back to the point UUID for
		// points written by older versions without a link payload.
		if p := r.Payload; p != nil {
			if v, ok := p["link"]; ok {
				m.ID = v.GetStringValue()
			}
		}
		if m.ID == "" {
			m.ID = r.Id.GetUuid()
		}
		matches = append(matches, m)
	}

	return matches, nil
}

// Ping calls the Qdrant HealthCheck RPC so the index can serve as a
// readiness probe. Returns nil if Qdrant is reachable.
func (q *Qdrant) Ping(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Name returns the dependency label used in readiness responses.
func (q *Qdrant) Name() string { return "qdrant" }

// Close closes the underlying Qdrant gRPC connection.
func (q *Qdrant) Close() error {
	return q.client.Close()
}

// pointID derives a stable UUIDv5 from the article link. Qdrant point IDs
// must be UUIDs or integers; hashing the link keeps the upsert idempotent
// while the raw link stays in the payload as the logical identity.
func pointID(link string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(link)).String()
}
