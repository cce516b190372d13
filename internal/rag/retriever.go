package rag

import (
	"context"
	"fmt"
	"sort"
)

// RetrieverConfig carries the fusion tuning values by name.
type RetrieverConfig struct {
	Hybrid        bool
	VectorWeight  float64
	LexicalWeight float64
	RRFK          int
}

// Retriever embeds the query and runs a tenant-filtered similarity search,
// optionally fused with a lexical search by reciprocal-rank fusion. The
// tenant filter is mandatory on every search; it is the only isolation
// mechanism between tenants.
type Retriever struct {
	embedder Embedder
	index    VectorIndex
	lexical  LexicalIndex
	cfg      RetrieverConfig
}

// NewRetriever wires a Retriever from its collaborators. lexical may be nil,
// which disables hybrid mode regardless of configuration.
func NewRetriever(embedder Embedder, index VectorIndex, lexical LexicalIndex, cfg RetrieverConfig) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("retriever: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("retriever: vector index must not be nil")
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = 60
	}
	if cfg.VectorWeight <= 0 {
		cfg.VectorWeight = 1.0
	}
	if cfg.LexicalWeight <= 0 {
		cfg.LexicalWeight = 1.0
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		lexical:  lexical,
		cfg:      cfg,
	}, nil
}

// Retrieve returns up to limit chunks for the tenant ordered by descending
// score. Backend failures surface as ErrEmbedding / ErrIndexQuery; an empty
// result set is a valid non-error outcome.
func (r *Retriever) Retrieve(ctx context.Context, tenantID uint, query string, limit int) ([]ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	if !r.cfg.Hybrid || r.lexical == nil {
		hits, err := r.index.Search(ctx, tenantID, vector, limit)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIndexQuery, err)
		}
		return hits, nil
	}

	// The vector and lexical prefetches have no data dependency, so they run
	// concurrently.
	type vectorResult struct {
		hits []ScoredChunk
		err  error
	}
	vectorCh := make(chan vectorResult, 1)
	go func() {
		hits, err := r.index.Search(ctx, tenantID, vector, limit)
		vectorCh <- vectorResult{hits: hits, err: err}
	}()

	lexicalHits := r.lexical.Search(tenantID, query, limit)

	vr := <-vectorCh
	if vr.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexQuery, vr.err)
	}

	fused := reciprocalRankFusion(vr.hits, lexicalHits, r.cfg)
	if len(fused) > limit {
		fused = fused[:limit]
	}
	return fused, nil
}

// reciprocalRankFusion merges the two ranked lists: each item's fused score is
// the sum of weight/(rrfK + rank + 1) over the lists it appears in. Output is
// sorted by fused score descending; exact ties keep vector-search order first,
// lexical-only items after, each in original order. Deterministic for
// identical inputs.
func reciprocalRankFusion(vectorHits, lexicalHits []ScoredChunk, cfg RetrieverConfig) []ScoredChunk {
	type fusedEntry struct {
		chunk ScoredChunk
		score float64
		order int
	}
	merged := make(map[string]*fusedEntry, len(vectorHits)+len(lexicalHits))
	var keys []string

	for rank, hit := range vectorHits {
		key := hit.Payload.Key()
		entry, ok := merged[key]
		if !ok {
			hit.Source = "vector"
			entry = &fusedEntry{chunk: hit, order: rank}
			merged[key] = entry
			keys = append(keys, key)
		}
		entry.score += cfg.VectorWeight / float64(cfg.RRFK+rank+1)
	}

	for rank, hit := range lexicalHits {
		key := hit.Payload.Key()
		entry, ok := merged[key]
		if !ok {
			hit.Source = "lexical"
			entry = &fusedEntry{chunk: hit, order: len(vectorHits) + rank}
			merged[key] = entry
			keys = append(keys, key)
		} else {
			entry.chunk.Source = "hybrid"
		}
		entry.score += cfg.LexicalWeight / float64(cfg.RRFK+rank+1)
	}

	entries := make([]*fusedEntry, 0, len(keys))
	for _, key := range keys {
		merged[key].chunk.Score = merged[key].score
		entries = append(entries, merged[key])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].order < entries[j].order
	})

	out := make([]ScoredChunk, len(entries))
	for i, e := range entries {
		out[i] = e.chunk
	}
	return out
}
