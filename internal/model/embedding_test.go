package model

import "testing"

func TestEmbeddingMatrixRowOfMatchesIndexOrder(t *testing.T) {
	m := EmbeddingMatrix{
		Index: EmbeddingIndex{ModelID: "feature-hash-384", IDs: []string{"m1", "m2", "m3"}},
		Rows: []Vector{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		},
	}

	for i, id := range m.Index.IDs {
		row, ok := m.RowOf(id)
		if !ok {
			t.Fatalf("expected row for %s", id)
		}
		if row[0] != m.Rows[i][0] || row[1] != m.Rows[i][1] || row[2] != m.Rows[i][2] {
			t.Fatalf("row for %s did not correspond to index position %d", id, i)
		}
	}

	if _, ok := m.RowOf("missing"); ok {
		t.Fatalf("expected RowOf to report false for an unknown ID")
	}
}
