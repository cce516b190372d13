package rag

import (
	"regexp"
	"strings"
)

// Query type labels produced by the analyzer.
const (
	QueryTypeSimple     = "simple"
	QueryTypeComplex    = "complex"
	QueryTypeProcedural = "procedural"
	QueryTypeGeneral    = "general"
)

// AnalyzerOptions holds the classification patterns and the per-type k table.
// The substring patterns are a tuning heuristic, deliberately configuration
// rather than code.
type AnalyzerOptions struct {
	SimplePatterns     []string
	ComplexPatterns    []string
	ProceduralPatterns []string
	KSimple            int
	KComplex           int
	KProcedural        int
	KGeneral           int
	KMax               int
	LongQueryWords     int
}

// Analysis is the retrieval guidance derived from a question.
type Analysis struct {
	QueryType    string
	RecommendedK int
	Complexity   float64
}

// QueryAnalyzer classifies questions to pick an adaptive top-k: simple
// lookups need fewer chunks, comparisons and enumerations need more.
type QueryAnalyzer struct {
	simple     []*regexp.Regexp
	complexQ   []*regexp.Regexp
	procedural []*regexp.Regexp
	opts       AnalyzerOptions
}

func NewQueryAnalyzer(opts AnalyzerOptions) (*QueryAnalyzer, error) {
	if opts.KSimple <= 0 {
		opts.KSimple = 3
	}
	if opts.KComplex <= 0 {
		opts.KComplex = 10
	}
	if opts.KProcedural <= 0 {
		opts.KProcedural = 7
	}
	if opts.KGeneral <= 0 {
		opts.KGeneral = 5
	}
	if opts.KMax <= 0 {
		opts.KMax = 15
	}
	if opts.LongQueryWords <= 0 {
		opts.LongQueryWords = 15
	}

	a := &QueryAnalyzer{opts: opts}
	var err error
	if a.simple, err = compilePatterns(opts.SimplePatterns); err != nil {
		return nil, err
	}
	if a.complexQ, err = compilePatterns(opts.ComplexPatterns); err != nil {
		return nil, err
	}
	if a.procedural, err = compilePatterns(opts.ProceduralPatterns); err != nil {
		return nil, err
	}
	return a, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Analyze classifies the query and recommends a top-k, capped at KMax.
func (a *QueryAnalyzer) Analyze(query string) Analysis {
	q := strings.ToLower(strings.TrimSpace(query))

	queryType := a.classify(q)
	k := a.opts.KGeneral
	switch queryType {
	case QueryTypeSimple:
		k = a.opts.KSimple
	case QueryTypeComplex:
		k = a.opts.KComplex
	case QueryTypeProcedural:
		k = a.opts.KProcedural
	}

	// Long questions tend to need more context.
	if len(strings.Fields(q)) > a.opts.LongQueryWords {
		k += 2
	}
	if k > a.opts.KMax {
		k = a.opts.KMax
	}

	return Analysis{
		QueryType:    queryType,
		RecommendedK: k,
		Complexity:   a.complexity(q),
	}
}

func (a *QueryAnalyzer) classify(q string) string {
	for _, re := range a.simple {
		if re.MatchString(q) {
			return QueryTypeSimple
		}
	}
	for _, re := range a.complexQ {
		if re.MatchString(q) {
			return QueryTypeComplex
		}
	}
	for _, re := range a.procedural {
		if re.MatchString(q) {
			return QueryTypeProcedural
		}
	}
	return QueryTypeGeneral
}

func (a *QueryAnalyzer) complexity(q string) float64 {
	score := 0.0
	words := len(strings.Fields(q))
	if words > 10 {
		score += 0.2
	}
	if words > 20 {
		score += 0.2
	}
	if strings.Count(q, "?") > 1 {
		score += 0.2
	}
	for _, re := range a.complexQ {
		if re.MatchString(q) {
			score += 0.2
			break
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
