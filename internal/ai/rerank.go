package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RerankConfig holds API settings for a Cohere-style /rerank endpoint.
type RerankConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Rerank scores each document against the query and returns one relevance
// score per document, aligned with the input order.
func (c *OpenAICompatibleClient) Rerank(ctx context.Context, cfg RerankConfig, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	reqBody := map[string]interface{}{
		"model":     cfg.Model,
		"query":     query,
		"documents": documents,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request failed: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/rerank"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build rerank request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rerank response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rerank response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse rerank json failed: %w", err)
	}

	scores := make([]float64, len(documents))
	seen := 0
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("rerank result index %d out of range", r.Index)
		}
		scores[r.Index] = r.RelevanceScore
		seen++
	}
	if seen != len(documents) {
		return nil, fmt.Errorf("got %d rerank results for %d documents", seen, len(documents))
	}
	return scores, nil
}
