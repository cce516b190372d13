package rag

import (
	"context"
	"errors"
	"fmt"
)

// Stage-tagged pipeline errors. Embedding, index and generation failures are
// fatal to a question; rerank failures degrade to the unreranked order.
var (
	ErrEmbedding  = errors.New("embedding provider failed")
	ErrIndexQuery = errors.New("vector index query failed")
	ErrRerank     = errors.New("rerank failed")
	ErrGeneration = errors.New("generation failed")
)

// ChunkPayload is the typed payload stored alongside each vector point.
// Named fields instead of a metadata map keep the vector-index boundary
// honest about what a chunk carries.
type ChunkPayload struct {
	TenantID     uint   `json:"tenant_id"`
	DocumentID   uint   `json:"document_id"`
	DocumentName string `json:"document_name"`
	ChunkIndex   int    `json:"chunk_index"`
	Text         string `json:"text"`
	SectionTitle string `json:"section_title,omitempty"`
	Category     string `json:"category,omitempty"`
	Language     string `json:"language,omitempty"`
	ContentHash  string `json:"content_hash"`
}

// Key identifies a chunk across ranked lists during fusion.
func (p ChunkPayload) Key() string {
	if p.DocumentID != 0 {
		return chunkKey(p.DocumentID, p.ChunkIndex)
	}
	return p.ContentHash
}

func chunkKey(documentID uint, chunkIndex int) string {
	return fmt.Sprintf("%d:%d", documentID, chunkIndex)
}

// ScoredChunk pairs a chunk payload with its retrieval score. RerankScore is
// populated only after the rerank stage; the retrieval score is never
// overwritten.
type ScoredChunk struct {
	Payload     ChunkPayload `json:"payload"`
	Score       float64      `json:"score"`
	RerankScore float64      `json:"rerank_score,omitempty"`
	Source      string       `json:"source,omitempty"` // "vector", "lexical" or "hybrid"
}

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex answers tenant-scoped nearest-neighbour queries.
type VectorIndex interface {
	Search(ctx context.Context, tenantID uint, vector []float32, limit int) ([]ScoredChunk, error)
}

// LexicalIndex answers tenant-scoped keyword queries. In-process, so it
// cannot fail; an empty result is always valid.
type LexicalIndex interface {
	Search(tenantID uint, query string, limit int) []ScoredChunk
}

// RerankScorer scores each document text against the query with a
// finer-grained relevance model. Returns one score per input text, in order.
type RerankScorer interface {
	Scores(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Generator produces text from a prompt. No structured-output guarantee:
// citation and refusal extraction happen on this side.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}
