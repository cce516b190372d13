package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScorer struct {
	scores []float64
	err    error
	calls  int
}

func (f *fakeScorer) Scores(_ context.Context, _ string, texts []string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.scores != nil {
		return f.scores, nil
	}
	return make([]float64, len(texts)), nil
}

func candidateSet(n int) []ScoredChunk {
	out := make([]ScoredChunk, n)
	for i := range out {
		out[i] = ScoredChunk{
			Payload: ChunkPayload{TenantID: 1, DocumentID: 1, ChunkIndex: i, Text: "chunk"},
			Score:   float64(n - i),
		}
	}
	return out
}

func TestRerankerEmptyCandidatesSkipsScorer(t *testing.T) {
	scorer := &fakeScorer{}
	r, err := NewReranker(scorer)
	require.NoError(t, err)

	out, err := r.Rerank(context.Background(), "q", nil, 5, 0)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Zero(t, scorer.calls)
}

func TestRerankerReorders(t *testing.T) {
	r, err := NewReranker(&fakeScorer{scores: []float64{0.1, 0.9, 0.5}})
	require.NoError(t, err)

	out, err := r.Rerank(context.Background(), "q", candidateSet(3), 3, 0)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 1, out[0].Payload.ChunkIndex)
	assert.Equal(t, 2, out[1].Payload.ChunkIndex)
	assert.Equal(t, 0, out[2].Payload.ChunkIndex)
}

func TestRerankerPreservesRetrievalScore(t *testing.T) {
	r, err := NewReranker(&fakeScorer{scores: []float64{0.8}})
	require.NoError(t, err)

	out, err := r.Rerank(context.Background(), "q", candidateSet(1), 1, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1.0, out[0].Score)
	assert.Equal(t, 0.8, out[0].RerankScore)
}

func TestRerankerTopKTruncates(t *testing.T) {
	r, err := NewReranker(&fakeScorer{scores: []float64{0.4, 0.9, 0.7, 0.2}})
	require.NoError(t, err)

	out, err := r.Rerank(context.Background(), "q", candidateSet(4), 2, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Payload.ChunkIndex)
	assert.Equal(t, 2, out[1].Payload.ChunkIndex)
}

func TestRerankerMinScoreFilters(t *testing.T) {
	r, err := NewReranker(&fakeScorer{scores: []float64{0.1, 0.9, 0.3}})
	require.NoError(t, err)

	out, err := r.Rerank(context.Background(), "q", candidateSet(3), 10, 0.25)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 0.9, out[0].RerankScore)
	assert.Equal(t, 0.3, out[1].RerankScore)
}

func TestRerankerScorerFailure(t *testing.T) {
	r, err := NewReranker(&fakeScorer{err: errors.New("model down")})
	require.NoError(t, err)

	_, err = r.Rerank(context.Background(), "q", candidateSet(2), 2, 0)
	assert.ErrorIs(t, err, ErrRerank)
}

func TestRerankerScoreCountMismatch(t *testing.T) {
	r, err := NewReranker(&fakeScorer{scores: []float64{0.5}})
	require.NoError(t, err)

	_, err = r.Rerank(context.Background(), "q", candidateSet(3), 3, 0)
	assert.ErrorIs(t, err, ErrRerank)
}
