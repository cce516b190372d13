package rag

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Okapi BM25 defaults.
const (
	DefaultBM25K1 = 1.5
	DefaultBM25B  = 0.75
)

// BM25Index is an in-memory, tenant-partitioned lexical index. It is rebuilt
// from the vector store at startup and appended to at ingest time; reads far
// outnumber writes, hence the RWMutex. Implements LexicalIndex.
type BM25Index struct {
	k1 float64
	b  float64

	mu      sync.RWMutex
	tenants map[uint]*bm25Corpus
}

type bm25Corpus struct {
	docs     []bm25Doc
	df       map[string]int
	totalLen int
}

type bm25Doc struct {
	payload ChunkPayload
	terms   map[string]int
	length  int
}

func NewBM25Index(k1, b float64) *BM25Index {
	if k1 <= 0 {
		k1 = DefaultBM25K1
	}
	if b <= 0 || b > 1 {
		b = DefaultBM25B
	}
	return &BM25Index{
		k1:      k1,
		b:       b,
		tenants: make(map[uint]*bm25Corpus),
	}
}

// Add indexes the given chunk payloads under their tenants.
func (idx *BM25Index) Add(payloads []ChunkPayload) {
	if len(payloads) == 0 {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, p := range payloads {
		corpus := idx.tenants[p.TenantID]
		if corpus == nil {
			corpus = &bm25Corpus{df: make(map[string]int)}
			idx.tenants[p.TenantID] = corpus
		}
		tokens := tokenize(p.Text)
		terms := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			terms[tok]++
		}
		for term := range terms {
			corpus.df[term]++
		}
		corpus.docs = append(corpus.docs, bm25Doc{
			payload: p,
			terms:   terms,
			length:  len(tokens),
		})
		corpus.totalLen += len(tokens)
	}
}

// RemoveDocument drops every chunk of the document from the tenant's corpus.
func (idx *BM25Index) RemoveDocument(tenantID, documentID uint) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	corpus := idx.tenants[tenantID]
	if corpus == nil {
		return
	}
	kept := corpus.docs[:0]
	for _, doc := range corpus.docs {
		if doc.payload.DocumentID == documentID {
			for term := range doc.terms {
				if corpus.df[term] <= 1 {
					delete(corpus.df, term)
				} else {
					corpus.df[term]--
				}
			}
			corpus.totalLen -= doc.length
			continue
		}
		kept = append(kept, doc)
	}
	corpus.docs = kept
}

// Search scores the tenant's chunks against the query and returns up to limit
// results ordered by descending BM25 score. Chunks matching no query term are
// omitted. Never an error: an empty corpus is an empty result.
func (idx *BM25Index) Search(tenantID uint, query string, limit int) []ScoredChunk {
	if limit <= 0 {
		return nil
	}
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	corpus := idx.tenants[tenantID]
	if corpus == nil || len(corpus.docs) == 0 {
		return nil
	}

	n := float64(len(corpus.docs))
	avgLen := float64(corpus.totalLen) / n

	var results []ScoredChunk
	for _, doc := range corpus.docs {
		score := 0.0
		for _, term := range queryTerms {
			tf := float64(doc.terms[term])
			if tf == 0 {
				continue
			}
			df := float64(corpus.df[term])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := 1 - idx.b + idx.b*float64(doc.length)/avgLen
			score += idf * tf * (idx.k1 + 1) / (tf + idx.k1*norm)
		}
		if score > 0 {
			results = append(results, ScoredChunk{
				Payload: doc.payload,
				Score:   score,
				Source:  "lexical",
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
