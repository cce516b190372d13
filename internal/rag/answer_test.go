package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	reply      string
	err        error
	calls      int
	lastSystem string
	lastPrompt string
}

func (f *fakeGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	f.calls++
	f.lastSystem = system
	f.lastPrompt = prompt
	return f.reply, f.err
}

func contextChunks(texts ...string) []ScoredChunk {
	out := make([]ScoredChunk, len(texts))
	for i, text := range texts {
		out[i] = ScoredChunk{Payload: ChunkPayload{
			TenantID:     1,
			DocumentID:   uint(i + 1),
			DocumentName: "handbook.pdf",
			ChunkIndex:   0,
			Text:         text,
		}}
	}
	return out
}

func TestAnswerEmptyContextRefusesWithoutModelCall(t *testing.T) {
	llm := &fakeGenerator{}
	g, err := NewAnswerGenerator(llm, AnswerOptions{})
	require.NoError(t, err)

	ans, err := g.Answer(context.Background(), "what is the vacation policy?", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultRefusalSentence, ans.Text)
	assert.True(t, ans.Refused)
	assert.Empty(t, ans.Citations)
	assert.Zero(t, llm.calls)
}

func TestAnswerExtractsCitations(t *testing.T) {
	llm := &fakeGenerator{reply: "Interns get 15 days [1] and must file requests early [3]."}
	g, err := NewAnswerGenerator(llm, AnswerOptions{})
	require.NoError(t, err)

	ans, err := g.Answer(context.Background(), "how many vacation days do interns get?",
		contextChunks("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, ans.Citations)
	assert.False(t, ans.Refused)
}

func TestAnswerDiscardsOutOfRangeCitations(t *testing.T) {
	llm := &fakeGenerator{reply: "Something [5] confidently wrong."}
	g, err := NewAnswerGenerator(llm, AnswerOptions{})
	require.NoError(t, err)

	ans, err := g.Answer(context.Background(), "q", contextChunks("a", "b", "c"))
	require.NoError(t, err)
	assert.Empty(t, ans.Citations)
}

func TestAnswerDetectsRefusal(t *testing.T) {
	llm := &fakeGenerator{reply: "I could not find this information in the provided documents."}
	g, err := NewAnswerGenerator(llm, AnswerOptions{})
	require.NoError(t, err)

	ans, err := g.Answer(context.Background(), "q", contextChunks("a"))
	require.NoError(t, err)
	assert.True(t, ans.Refused)
}

func TestAnswerCustomRefusalPhrases(t *testing.T) {
	llm := &fakeGenerator{reply: "Sorry, that is outside my knowledge base."}
	g, err := NewAnswerGenerator(llm, AnswerOptions{RefusalPhrases: []string{"outside my knowledge"}})
	require.NoError(t, err)

	ans, err := g.Answer(context.Background(), "q", contextChunks("a"))
	require.NoError(t, err)
	assert.True(t, ans.Refused)
}

func TestAnswerGenerationFailure(t *testing.T) {
	llm := &fakeGenerator{err: errors.New("model down")}
	g, err := NewAnswerGenerator(llm, AnswerOptions{})
	require.NoError(t, err)

	_, err = g.Answer(context.Background(), "q", contextChunks("a"))
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestAnswerPromptEnumeratesContext(t *testing.T) {
	llm := &fakeGenerator{reply: "fine [1]"}
	g, err := NewAnswerGenerator(llm, AnswerOptions{SystemPrompt: "custom system"})
	require.NoError(t, err)

	_, err = g.Answer(context.Background(), "how long is parental leave?",
		contextChunks("first chunk text", "second chunk text"))
	require.NoError(t, err)

	assert.Equal(t, "custom system", llm.lastSystem)
	assert.Contains(t, llm.lastPrompt, "[1] (handbook.pdf)")
	assert.Contains(t, llm.lastPrompt, "[2] (handbook.pdf)")
	assert.Contains(t, llm.lastPrompt, "first chunk text")
	assert.Contains(t, llm.lastPrompt, "how long is parental leave?")
	assert.Contains(t, llm.lastPrompt, DefaultRefusalSentence)
	assert.True(t, strings.HasSuffix(llm.lastPrompt, "ANSWER:"))
}

func TestExtractCitationsDedupesAndSorts(t *testing.T) {
	assert.Equal(t, []int{1, 2, 4}, ExtractCitations("[4] then [1], [2] and [1] again", 5))
	assert.Nil(t, ExtractCitations("no markers here", 5))
	assert.Nil(t, ExtractCitations("[0] and [6]", 5))
}
