package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

type fakeVectorIndex struct {
	hits       []ScoredChunk
	err        error
	lastTenant uint
	lastLimit  int
}

func (f *fakeVectorIndex) Search(_ context.Context, tenantID uint, _ []float32, limit int) ([]ScoredChunk, error) {
	f.lastTenant = tenantID
	f.lastLimit = limit
	return f.hits, f.err
}

type fakeLexicalIndex struct {
	hits       []ScoredChunk
	lastTenant uint
}

func (f *fakeLexicalIndex) Search(tenantID uint, _ string, _ int) []ScoredChunk {
	f.lastTenant = tenantID
	return f.hits
}

func vectorHit(docID uint, idx int, score float64) ScoredChunk {
	return ScoredChunk{
		Payload: ChunkPayload{TenantID: 1, DocumentID: docID, ChunkIndex: idx, Text: "text"},
		Score:   score,
	}
}

func TestRetrieverRequiresCollaborators(t *testing.T) {
	_, err := NewRetriever(nil, &fakeVectorIndex{}, nil, RetrieverConfig{})
	assert.Error(t, err)

	_, err = NewRetriever(&fakeEmbedder{}, nil, nil, RetrieverConfig{})
	assert.Error(t, err)
}

func TestRetrieverVectorOnly(t *testing.T) {
	index := &fakeVectorIndex{hits: []ScoredChunk{vectorHit(1, 0, 0.9), vectorHit(1, 1, 0.5)}}
	r, err := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, index, nil, RetrieverConfig{})
	require.NoError(t, err)

	hits, err := r.Retrieve(context.Background(), 7, "question", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, uint(7), index.lastTenant)
	assert.Equal(t, 5, index.lastLimit)
}

func TestRetrieverEmbeddingFailure(t *testing.T) {
	r, err := NewRetriever(&fakeEmbedder{err: errors.New("provider down")}, &fakeVectorIndex{}, nil, RetrieverConfig{})
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), 1, "question", 5)
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestRetrieverIndexFailure(t *testing.T) {
	index := &fakeVectorIndex{err: errors.New("index down")}
	r, err := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, index, nil, RetrieverConfig{})
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), 1, "question", 5)
	assert.ErrorIs(t, err, ErrIndexQuery)
}

func TestRetrieverIndexFailureHybrid(t *testing.T) {
	index := &fakeVectorIndex{err: errors.New("index down")}
	lexical := &fakeLexicalIndex{hits: []ScoredChunk{vectorHit(1, 0, 2.0)}}
	r, err := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, index, lexical, RetrieverConfig{Hybrid: true})
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), 1, "question", 5)
	assert.ErrorIs(t, err, ErrIndexQuery)
}

func TestRetrieverEmptyResultIsNotAnError(t *testing.T) {
	r, err := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, &fakeVectorIndex{}, nil, RetrieverConfig{})
	require.NoError(t, err)

	hits, err := r.Retrieve(context.Background(), 1, "question", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRetrieverHybridBothListsBoosted(t *testing.T) {
	// Chunk 2:0 appears in both lists; with equal weights it must outrank
	// chunks that appear in only one.
	index := &fakeVectorIndex{hits: []ScoredChunk{vectorHit(1, 0, 0.9), vectorHit(2, 0, 0.8)}}
	lexical := &fakeLexicalIndex{hits: []ScoredChunk{vectorHit(2, 0, 5.0), vectorHit(3, 0, 4.0)}}
	r, err := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, index, lexical, RetrieverConfig{Hybrid: true})
	require.NoError(t, err)

	hits, err := r.Retrieve(context.Background(), 1, "question", 5)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, uint(2), hits[0].Payload.DocumentID)
	assert.Equal(t, "hybrid", hits[0].Source)
	assert.Equal(t, uint(1), hits[1].Payload.DocumentID)
	assert.Equal(t, "vector", hits[1].Source)
	assert.Equal(t, "lexical", hits[2].Source)
	assert.Equal(t, uint(1), lexical.lastTenant)
}

func TestRetrieverHybridDeterministic(t *testing.T) {
	index := &fakeVectorIndex{hits: []ScoredChunk{vectorHit(1, 0, 0.9), vectorHit(1, 1, 0.8), vectorHit(1, 2, 0.7)}}
	lexical := &fakeLexicalIndex{hits: []ScoredChunk{vectorHit(1, 2, 3.0), vectorHit(1, 3, 2.0)}}
	r, err := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, index, lexical, RetrieverConfig{Hybrid: true})
	require.NoError(t, err)

	first, err := r.Retrieve(context.Background(), 1, "question", 10)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.Retrieve(context.Background(), 1, "question", 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRetrieverHybridTieBreakKeepsVectorOrder(t *testing.T) {
	// Two vector-only hits at the same rank weight cannot exist, but a
	// vector-only hit at rank 0 and a lexical-only hit at rank 0 tie exactly
	// with equal weights. The vector hit must come first.
	index := &fakeVectorIndex{hits: []ScoredChunk{vectorHit(1, 0, 0.9)}}
	lexical := &fakeLexicalIndex{hits: []ScoredChunk{vectorHit(2, 0, 5.0)}}
	r, err := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, index, lexical, RetrieverConfig{Hybrid: true})
	require.NoError(t, err)

	hits, err := r.Retrieve(context.Background(), 1, "question", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, uint(1), hits[0].Payload.DocumentID)
	assert.Equal(t, uint(2), hits[1].Payload.DocumentID)
}

func TestRetrieverHybridLimitTruncates(t *testing.T) {
	index := &fakeVectorIndex{hits: []ScoredChunk{vectorHit(1, 0, 0.9), vectorHit(1, 1, 0.8)}}
	lexical := &fakeLexicalIndex{hits: []ScoredChunk{vectorHit(2, 0, 3.0), vectorHit(2, 1, 2.0)}}
	r, err := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, index, lexical, RetrieverConfig{Hybrid: true})
	require.NoError(t, err)

	hits, err := r.Retrieve(context.Background(), 1, "question", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestRetrieverNilLexicalDisablesHybrid(t *testing.T) {
	index := &fakeVectorIndex{hits: []ScoredChunk{vectorHit(1, 0, 0.9)}}
	r, err := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, index, nil, RetrieverConfig{Hybrid: true})
	require.NoError(t, err)

	hits, err := r.Retrieve(context.Background(), 1, "question", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0.9, hits[0].Score)
}

func TestReciprocalRankFusionScores(t *testing.T) {
	cfg := RetrieverConfig{VectorWeight: 1.0, LexicalWeight: 1.0, RRFK: 60}
	vector := []ScoredChunk{vectorHit(1, 0, 0.9)}
	lexical := []ScoredChunk{vectorHit(1, 0, 5.0)}

	fused := reciprocalRankFusion(vector, lexical, cfg)
	require.Len(t, fused, 1)
	assert.InDelta(t, 2.0/61.0, fused[0].Score, 1e-12)
}
