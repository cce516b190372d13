package rag

import (
	"context"
	"fmt"
	"sort"
)

// Reranker reorders a candidate set by a finer-grained relevance model,
// drops candidates below a minimum score and truncates to topK. It only adds
// RerankScore; the retrieval score each candidate arrived with is preserved.
type Reranker struct {
	scorer RerankScorer
}

func NewReranker(scorer RerankScorer) (*Reranker, error) {
	if scorer == nil {
		return nil, fmt.Errorf("reranker: scorer must not be nil")
	}
	return &Reranker{scorer: scorer}, nil
}

// Rerank returns at most topK candidates ordered by descending rerank score,
// none below minScore. An empty candidate set returns immediately without
// invoking the scoring model. On scorer failure the caller is expected to
// fall back to the unreranked order.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []ScoredChunk, topK int, minScore float64) ([]ScoredChunk, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = len(candidates)
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Payload.Text
	}

	scores, err := r.scorer.Scores(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRerank, err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("%w: got %d scores for %d candidates", ErrRerank, len(scores), len(candidates))
	}

	reranked := make([]ScoredChunk, 0, len(candidates))
	for i, c := range candidates {
		c.RerankScore = scores[i]
		if c.RerankScore < minScore {
			continue
		}
		reranked = append(reranked, c)
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].RerankScore > reranked[j].RerankScore
	})
	if len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked, nil
}
