package search

import (
	"context"
	"fmt"
)

// Orchestrator executes the expensive half of an admitted search request:
// embed the query text, then ask the index for the nearest neighbours.
// Results come back in the index's similarity order — no re-ranking.
type Orchestrator struct {
	// embedder converts the query text to a dense vector.
	embedder Embedder

	// index performs the vector similarity search.
	index Index

	// defaultTopK is the result count used when the caller passes 0.
	defaultTopK int
}

// NewOrchestrator constructs an Orchestrator from the given Embedder and Index.
// defaultTopK sets the fallback result count when Search is called with topK=0.
func NewOrchestrator(embedder Embedder, index Index, defaultTopK int) (*Orchestrator, error) {
	if embedder == nil {
		return nil, fmt.Errorf("search: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("search: index must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	return &Orchestrator{
		embedder:    embedder,
		index:       index,
		defaultTopK: defaultTopK,
	}, nil
}

// Search embeds the query and returns the top-k matches from the index.
// If topK is 0 the defaultTopK configured at construction time is used.
// Errors wrap ErrEmbedding or ErrIndex depending on which collaborator failed.
func (o *Orchestrator) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = o.defaultTopK
	}

	embeddings, err := o.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w: %v", ErrEmbedding, err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("search: embed query: %w: empty result", ErrEmbedding)
	}

	matches, err := o.index.Query(ctx, embeddings[0], topK)
	if err != nil {
		return nil, fmt.Errorf("search: index query: %w: %v", ErrIndex, err)
	}

	return matches, nil
}
