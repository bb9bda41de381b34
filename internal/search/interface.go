// Package search defines the contracts between the request path, the
// background scraper, and their external collaborators: the embedding model
// and the vector index. Concrete implementations (Ollama/OpenAI embedders,
// the Qdrant index) satisfy these interfaces so the server and the scrape
// supervisor never depend on a specific backend.
package search

import (
	"context"
)

// Match is a single search result returned by the vector index: the logical
// identifier of the stored article and its cosine similarity to the query.
// Matches are passed through to the API response unchanged.
type Match struct {
	// ID is the logical identifier of the indexed article (its link).
	ID string `json:"id"`

	// Score is the cosine similarity assigned by the index (higher is closer).
	Score float32 `json:"score"`
}

// Article is one scraped record: the unit of content stored in the index.
// The link doubles as the article's identity — re-scraping the same page
// overwrites the previous vector instead of accumulating duplicates.
type Article struct {
	// Title is the article headline.
	Title string

	// Link is the article URL and the logical index identity.
	Link string

	// Summary is the short teaser text under the headline.
	Summary string
}

// Text returns the string that is embedded for this article.
func (a Article) Text() string {
	return a.Title + " " + a.Summary
}

// Embedder converts text into dense vector embeddings of a fixed dimension.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is the vector index contract: upserts from the scrape supervisor and
// nearest-neighbour queries from the orchestrator, possibly concurrent.
// Implementations must be safe to call from multiple goroutines.
type Index interface {
	// Upsert stores or updates articles with their pre-computed embeddings.
	// embeddings[i] is the vector for articles[i].
	Upsert(ctx context.Context, articles []Article, embeddings [][]float32) error

	// Query returns the topK nearest matches for the given vector, ordered
	// by descending similarity.
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)

	// Close releases any resources held by the index client.
	Close() error
}
