package index

import (
	"testing"
)

func TestPointID_Deterministic(t *testing.T) {
	t.Parallel()

	a := pointID("https://example.com/articles/1")
	b := pointID("https://example.com/articles/1")
	if a != b {
		t.Errorf("same link must yield the same point ID: %q vs %q", a, b)
	}
}

func TestPointID_DistinctLinks(t *testing.T) {
	t.Parallel()

	a := pointID("https://example.com/articles/1")
	b := pointID("https://example.com/articles/2")
	if a == b {
		t.Errorf("distinct links must yield distinct point IDs: both %q", a)
	}
}

func TestPointID_IsUUID(t *testing.T) {
	t.Parallel()

	id := pointID("https://example.com/a")
	// 8-4-4-4-12 hex layout.
	if len(id) != 36 || id[8] != '-' || id[13] != '-' || id[18] != '-' || id[23] != '-' {
		t.Errorf("point ID is not UUID-shaped: %q", id)
	}
}
