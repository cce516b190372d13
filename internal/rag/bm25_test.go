package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bm25Payload(tenantID, docID uint, idx int, text string) ChunkPayload {
	return ChunkPayload{
		TenantID:   tenantID,
		DocumentID: docID,
		ChunkIndex: idx,
		Text:       text,
	}
}

func TestBM25SearchRanksMatchingChunks(t *testing.T) {
	idx := NewBM25Index(0, 0)
	idx.Add([]ChunkPayload{
		bm25Payload(1, 10, 0, "vacation policy grants thirty days of vacation per year"),
		bm25Payload(1, 10, 1, "sick leave requires a medical note"),
		bm25Payload(1, 11, 0, "the office kitchen is cleaned on fridays"),
	})

	hits := idx.Search(1, "vacation days", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, uint(10), hits[0].Payload.DocumentID)
	assert.Equal(t, 0, hits[0].Payload.ChunkIndex)
	assert.Equal(t, "lexical", hits[0].Source)
	for _, h := range hits {
		assert.Positive(t, h.Score)
	}
}

func TestBM25OmitsNonMatching(t *testing.T) {
	idx := NewBM25Index(0, 0)
	idx.Add([]ChunkPayload{
		bm25Payload(1, 10, 0, "expense reports are due monthly"),
		bm25Payload(1, 10, 1, "completely unrelated content"),
	})

	hits := idx.Search(1, "expense report", 10)
	require.Len(t, hits, 1)
	assert.Equal(t, 0, hits[0].Payload.ChunkIndex)
}

func TestBM25TenantIsolation(t *testing.T) {
	idx := NewBM25Index(0, 0)
	idx.Add([]ChunkPayload{
		bm25Payload(1, 10, 0, "tenant one secret handbook"),
		bm25Payload(2, 20, 0, "tenant two secret handbook"),
	})

	hits := idx.Search(1, "secret handbook", 10)
	require.Len(t, hits, 1)
	assert.Equal(t, uint(1), hits[0].Payload.TenantID)

	assert.Empty(t, idx.Search(3, "secret handbook", 10))
}

func TestBM25LimitTruncates(t *testing.T) {
	idx := NewBM25Index(0, 0)
	for i := 0; i < 8; i++ {
		idx.Add([]ChunkPayload{bm25Payload(1, 10, i, "shared keyword appears here")})
	}

	assert.Len(t, idx.Search(1, "keyword", 3), 3)
	assert.Nil(t, idx.Search(1, "keyword", 0))
}

func TestBM25EmptyQueryAndCorpus(t *testing.T) {
	idx := NewBM25Index(0, 0)
	assert.Nil(t, idx.Search(1, "anything", 5))

	idx.Add([]ChunkPayload{bm25Payload(1, 10, 0, "some text")})
	assert.Nil(t, idx.Search(1, "   !!! ", 5))
}

func TestBM25RemoveDocument(t *testing.T) {
	idx := NewBM25Index(0, 0)
	idx.Add([]ChunkPayload{
		bm25Payload(1, 10, 0, "travel policy for flights"),
		bm25Payload(1, 11, 0, "travel policy for trains"),
	})

	idx.RemoveDocument(1, 10)

	hits := idx.Search(1, "travel policy", 10)
	require.Len(t, hits, 1)
	assert.Equal(t, uint(11), hits[0].Payload.DocumentID)

	idx.RemoveDocument(1, 11)
	assert.Empty(t, idx.Search(1, "travel policy", 10))
}

func TestTokenizeLowercasesAndSplits(t *testing.T) {
	assert.Equal(t, []string{"hello", "world", "42"}, tokenize("Hello, WORLD! 42"))
	assert.Empty(t, tokenize("  ... "))
}
