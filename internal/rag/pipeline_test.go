package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// End-to-end over the retrieval pipeline with fakes: a vacation-policy corpus,
// a question about intern vacation days, and a model that cites its context.

func policyChunks() []ScoredChunk {
	texts := []string{
		"Regular employees receive 30 vacation days per year.",
		"Interns receive 15 vacation days per year, accrued monthly.",
		"Vacation requests must be filed two weeks in advance.",
	}
	chunks := make([]ScoredChunk, len(texts))
	for i, text := range texts {
		chunks[i] = ScoredChunk{
			Payload: ChunkPayload{
				TenantID:     1,
				DocumentID:   1,
				DocumentName: "vacation-policy.pdf",
				ChunkIndex:   i,
				Text:         text,
			},
			Score: 0.9 - float64(i)*0.1,
		}
	}
	return chunks
}

func TestPipelineAnswersFromRetrievedContext(t *testing.T) {
	index := &fakeVectorIndex{hits: policyChunks()}
	lexical := &fakeLexicalIndex{hits: policyChunks()[1:2]}
	retriever, err := NewRetriever(&fakeEmbedder{vector: []float32{0.1, 0.2}}, index, lexical, RetrieverConfig{Hybrid: true})
	require.NoError(t, err)

	// Scores align with the fused order, intern chunk first.
	reranker, err := NewReranker(&fakeScorer{scores: []float64{0.95, 0.4, 0.2}})
	require.NoError(t, err)

	llm := &fakeGenerator{reply: "Interns get 15 vacation days per year [1]."}
	answers, err := NewAnswerGenerator(llm, AnswerOptions{})
	require.NoError(t, err)

	ctx := context.Background()
	question := "How many vacation days do interns get?"

	candidates, err := retriever.Retrieve(ctx, 1, question, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	// The intern chunk appears in both lists, so fusion puts it first.
	assert.Equal(t, 1, candidates[0].Payload.ChunkIndex)

	top, err := reranker.Rerank(ctx, question, candidates, 2, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, 1, top[0].Payload.ChunkIndex)

	answer, err := answers.Answer(ctx, question, top)
	require.NoError(t, err)
	assert.False(t, answer.Refused)
	assert.Equal(t, []int{1}, answer.Citations)
	assert.Contains(t, llm.lastPrompt, "Interns receive 15 vacation days")
}

func TestPipelineRefusesWhenNothingRetrieved(t *testing.T) {
	retriever, err := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, &fakeVectorIndex{}, nil, RetrieverConfig{})
	require.NoError(t, err)

	llm := &fakeGenerator{}
	answers, err := NewAnswerGenerator(llm, AnswerOptions{})
	require.NoError(t, err)

	ctx := context.Background()
	candidates, err := retriever.Retrieve(ctx, 2, "What is the dress code on Mars?", 5)
	require.NoError(t, err)
	require.Empty(t, candidates)

	answer, err := answers.Answer(ctx, "What is the dress code on Mars?", candidates)
	require.NoError(t, err)
	assert.True(t, answer.Refused)
	assert.Equal(t, DefaultRefusalSentence, answer.Text)
	assert.Zero(t, llm.calls)
}

func TestPipelineRerankFailureFallsBackToFusedOrder(t *testing.T) {
	index := &fakeVectorIndex{hits: policyChunks()}
	retriever, err := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, index, nil, RetrieverConfig{})
	require.NoError(t, err)

	reranker, err := NewReranker(&fakeScorer{err: errors.New("model down")})
	require.NoError(t, err)

	ctx := context.Background()
	candidates, err := retriever.Retrieve(ctx, 1, "vacation", 10)
	require.NoError(t, err)

	_, err = reranker.Rerank(ctx, "vacation", candidates, 2, 0)
	require.ErrorIs(t, err, ErrRerank)

	// Callers degrade to the unreranked order on ErrRerank.
	fallback := candidates
	if len(fallback) > 2 {
		fallback = fallback[:2]
	}
	require.Len(t, fallback, 2)
	assert.Equal(t, 0, fallback[0].Payload.ChunkIndex)
}
