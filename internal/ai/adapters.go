package ai

import (
	"context"
)

// The adapters below bind the shared HTTP client to one model configuration
// each, giving the retrieval pipeline narrow collaborators instead of the
// whole client surface.

// TextEmbedder implements rag.Embedder.
type TextEmbedder struct {
	client *OpenAICompatibleClient
	cfg    EmbeddingConfig
}

func NewTextEmbedder(client *OpenAICompatibleClient, cfg EmbeddingConfig) *TextEmbedder {
	return &TextEmbedder{client: client, cfg: cfg}
}

func (e *TextEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, e.cfg, text)
}

func (e *TextEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.client.EmbedBatch(ctx, e.cfg, texts)
}

// ChatGenerator implements rag.Generator.
type ChatGenerator struct {
	client *OpenAICompatibleClient
	cfg    ChatConfig
}

func NewChatGenerator(client *OpenAICompatibleClient, cfg ChatConfig) *ChatGenerator {
	return &ChatGenerator{client: client, cfg: cfg}
}

func (g *ChatGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := []ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: prompt},
	}
	return g.client.Complete(ctx, g.cfg, messages)
}

// RelevanceScorer implements rag.RerankScorer.
type RelevanceScorer struct {
	client *OpenAICompatibleClient
	cfg    RerankConfig
}

func NewRelevanceScorer(client *OpenAICompatibleClient, cfg RerankConfig) *RelevanceScorer {
	return &RelevanceScorer{client: client, cfg: cfg}
}

func (s *RelevanceScorer) Scores(ctx context.Context, query string, texts []string) ([]float64, error) {
	return s.client.Rerank(ctx, s.cfg, query, texts)
}
