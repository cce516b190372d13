package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reconstruct(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		runes := []rune(seg.Text)
		b.WriteString(string(runes[seg.OverlapLen:]))
	}
	return b.String()
}

func TestChunkerEmptyText(t *testing.T) {
	c := NewChunker(100, 20)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\t  "))
}

func TestChunkerShortTextSingleSegment(t *testing.T) {
	c := NewChunker(100, 20)
	segments := c.Split("short text")

	require.Len(t, segments, 1)
	assert.Equal(t, "short text", segments[0].Text)
	assert.Equal(t, 0, segments[0].OverlapLen)
	assert.Equal(t, HashText("short text"), segments[0].Hash)
}

func TestChunkerReconstructsSource(t *testing.T) {
	texts := []string{
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40),
		strings.Repeat("word ", 500),
		strings.Repeat("x", 950), // no boundary before the ceiling
		"First paragraph.\n\nSecond paragraph with more words in it.\n\nThird.",
	}
	for _, text := range texts {
		c := NewChunker(200, 40)
		segments := c.Split(text)
		assert.Equal(t, text, reconstruct(segments))
	}
}

func TestChunkerRespectsBudget(t *testing.T) {
	c := NewChunker(200, 40)
	text := strings.Repeat("Sentences of some moderate length keep coming. ", 60)

	segments := c.Split(text)
	require.Greater(t, len(segments), 1)
	for _, seg := range segments {
		assert.LessOrEqual(t, len([]rune(seg.Text)), 200)
	}
}

func TestChunkerOverlapCarriesContext(t *testing.T) {
	c := NewChunker(100, 30)
	text := strings.Repeat("alpha beta gamma delta epsilon. ", 20)

	segments := c.Split(text)
	require.Greater(t, len(segments), 1)
	for i := 1; i < len(segments); i++ {
		seg := segments[i]
		require.Positive(t, seg.OverlapLen)
		prev := []rune(segments[i-1].Text)
		prefix := []rune(seg.Text)[:seg.OverlapLen]
		assert.Equal(t, string(prev[len(prev)-len(prefix):]), string(prefix))
	}
}

func TestChunkerPrefersSentenceBoundary(t *testing.T) {
	c := NewChunker(100, 0)
	text := "This opening sentence runs long enough to approach the limit set here. More text follows afterwards in a second sentence."

	segments := c.Split(text)
	require.Greater(t, len(segments), 1)
	assert.True(t, strings.HasSuffix(segments[0].Text, "."), "segment %q should end at a sentence", segments[0].Text)
}

func TestChunkerHardCutWithoutBoundary(t *testing.T) {
	c := NewChunker(50, 0)
	text := strings.Repeat("z", 120)

	segments := c.Split(text)
	require.Len(t, segments, 3)
	assert.Equal(t, text, reconstruct(segments))
	for _, seg := range segments {
		assert.LessOrEqual(t, len(seg.Text), 50)
	}
}

func TestChunkerOverlapClampedToBudget(t *testing.T) {
	c := NewChunker(100, 150)
	assert.Equal(t, 25, c.overlap)
}

func TestSplitDocumentSectionTitles(t *testing.T) {
	c := NewChunker(1000, 100)
	text := "VACATION POLICY\nEmployees receive 30 days per year.\n\nSICK LEAVE\nSick leave requires a medical note."

	segments := c.SplitDocument(text)
	require.Len(t, segments, 2)
	assert.Equal(t, "VACATION POLICY", segments[0].SectionTitle)
	assert.Equal(t, "SICK LEAVE", segments[1].SectionTitle)
	assert.Equal(t, 0, segments[0].Index)
	assert.Equal(t, 1, segments[1].Index)
}

func TestSplitDocumentNoSections(t *testing.T) {
	c := NewChunker(1000, 100)
	segments := c.SplitDocument("plain text without any structure at all")

	require.Len(t, segments, 1)
	assert.Empty(t, segments[0].SectionTitle)
}

func TestDedupeDropsSeenHashes(t *testing.T) {
	c := NewChunker(1000, 0)
	segments := c.Split("some unique content")
	require.Len(t, segments, 1)

	seen := map[string]struct{}{segments[0].Hash: {}}
	assert.Empty(t, Dedupe(segments, seen))
}

func TestDedupeKeepsNewAndExtendsSeen(t *testing.T) {
	segments := []Segment{
		{Index: 0, Text: "a", Hash: HashText("a")},
		{Index: 1, Text: "b", Hash: HashText("b")},
		{Index: 2, Text: "a", Hash: HashText("a")}, // duplicate within the batch
	}
	seen := make(map[string]struct{})

	kept := Dedupe(segments, seen)
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].Text)
	assert.Equal(t, "b", kept[1].Text)
	assert.Len(t, seen, 2)
}

func TestDedupeSecondIngestionYieldsNothing(t *testing.T) {
	c := NewChunker(120, 30)
	text := strings.Repeat("Company policy paragraph with details. ", 30)
	seen := make(map[string]struct{})

	first := Dedupe(c.Split(text), seen)
	require.NotEmpty(t, first)

	second := Dedupe(c.Split(text), seen)
	assert.Empty(t, second)
}
