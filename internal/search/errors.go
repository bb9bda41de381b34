package search

import "errors"

// Collaborator failure kinds. The orchestrator wraps every error it returns
// with one of these sentinels so the HTTP layer can tell an embedding-backend
// failure from an index failure without string matching.
var (
	// ErrEmbedding marks a failure of the embedding model backend.
	ErrEmbedding = errors.New("embedding backend failure")

	// ErrIndex marks a failure of the vector index service.
	ErrIndex = errors.New("vector index failure")
)
