package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAnalyzer(t *testing.T) *QueryAnalyzer {
	t.Helper()
	a, err := NewQueryAnalyzer(AnalyzerOptions{
		SimplePatterns:     []string{`^(what|when|where|who) is\b`, `^how (much|many)\b`},
		ComplexPatterns:    []string{`\b(compare|difference|versus|vs\.?)\b`, `\b(all|every|list)\b.*\b(policies|rules|steps)\b`},
		ProceduralPatterns: []string{`^how (do|can|should) i\b`, `\bstep[- ]by[- ]step\b`},
		KSimple:            3,
		KComplex:           10,
		KProcedural:        7,
		KGeneral:           5,
		KMax:               15,
		LongQueryWords:     15,
	})
	require.NoError(t, err)
	return a
}

func TestAnalyzerClassification(t *testing.T) {
	a := testAnalyzer(t)

	cases := []struct {
		query     string
		queryType string
		k         int
	}{
		{"What is the vacation policy?", QueryTypeSimple, 3},
		{"How many sick days do I get?", QueryTypeSimple, 3},
		{"Compare the travel policy with the remote work policy", QueryTypeComplex, 10},
		{"List all policies about expenses", QueryTypeComplex, 10},
		{"How do I submit an expense report?", QueryTypeProcedural, 7},
		{"Vacation carryover rules", QueryTypeGeneral, 5},
	}
	for _, tc := range cases {
		got := a.Analyze(tc.query)
		assert.Equal(t, tc.queryType, got.QueryType, tc.query)
		assert.Equal(t, tc.k, got.RecommendedK, tc.query)
	}
}

func TestAnalyzerLongQueryBonus(t *testing.T) {
	a := testAnalyzer(t)
	long := "Vacation " + strings.Repeat("really ", 16) + "unclear question"

	got := a.Analyze(long)
	assert.Equal(t, QueryTypeGeneral, got.QueryType)
	assert.Equal(t, 7, got.RecommendedK)
}

func TestAnalyzerKMaxCaps(t *testing.T) {
	a, err := NewQueryAnalyzer(AnalyzerOptions{
		ComplexPatterns: []string{`compare`},
		KComplex:        14,
		KMax:            15,
	})
	require.NoError(t, err)

	long := "compare " + strings.Repeat("word ", 20)
	assert.Equal(t, 15, a.Analyze(long).RecommendedK)
}

func TestAnalyzerComplexityBounded(t *testing.T) {
	a := testAnalyzer(t)
	long := "compare everything? and also? " + strings.Repeat("more words here ", 10)

	got := a.Analyze(long)
	assert.GreaterOrEqual(t, got.Complexity, 0.0)
	assert.LessOrEqual(t, got.Complexity, 1.0)
	assert.Greater(t, got.Complexity, a.Analyze("what is x").Complexity)
}

func TestAnalyzerInvalidPattern(t *testing.T) {
	_, err := NewQueryAnalyzer(AnalyzerOptions{SimplePatterns: []string{`(`}})
	assert.Error(t, err)
}
