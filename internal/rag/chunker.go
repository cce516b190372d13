package rag

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Default chunking budget in characters.
const (
	DefaultMaxChars = 1000
	DefaultOverlap  = 200
)

// Chunker splits text into budgeted segments with a configurable overlap
// carried over from the previous segment so context survives a boundary.
// Splits prefer sentence ends, then whitespace, then a hard cut at the
// ceiling.
type Chunker struct {
	maxChars int
	overlap  int
}

// Segment is one produced chunk. Text includes the overlap prefix;
// OverlapLen is its length in runes, so stripping Text[:OverlapLen] from every
// segment and concatenating reconstructs the source exactly.
type Segment struct {
	Index        int
	Text         string
	OverlapLen   int
	SectionTitle string
	Hash         string
}

func NewChunker(maxChars, overlap int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChars {
		overlap = maxChars / 4
	}
	return &Chunker{maxChars: maxChars, overlap: overlap}
}

// Split produces the ordered segment sequence for text. Empty or whitespace
// only text yields nil; text within the budget yields a single segment.
func (c *Chunker) Split(text string) []Segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var segments []Segment
	pos := 0
	for pos < len(runes) {
		prefixStart := pos - c.overlap
		if prefixStart < 0 {
			prefixStart = 0
		}
		prefixLen := pos - prefixStart
		budget := c.maxChars - prefixLen

		end := pos + budget
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = pos + splitPoint(runes[pos:end])
		}

		segText := string(runes[prefixStart:end])
		segments = append(segments, Segment{
			Index:      len(segments),
			Text:       segText,
			OverlapLen: prefixLen,
			Hash:       HashText(segText),
		})
		pos = end
	}
	return segments
}

// splitPoint returns the cut position within window, preferring the last
// sentence end, then the last whitespace, as long as the boundary keeps at
// least half the window. Falls back to the hard ceiling.
func splitPoint(window []rune) int {
	minCut := len(window) / 2

	for i := len(window) - 1; i > minCut; i-- {
		switch window[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	for i := len(window) - 1; i > minCut; i-- {
		if unicode.IsSpace(window[i]) {
			return i + 1
		}
	}
	return len(window)
}

// SplitDocument detects section titles (short ALL-CAPS lines) and chunks each
// section separately, labelling its segments with the title. Documents with no
// detectable structure behave exactly like Split. Segment indices are
// renumbered across the whole document.
func (c *Chunker) SplitDocument(text string) []Segment {
	sections := detectSections(text)
	var all []Segment
	for _, sec := range sections {
		for _, seg := range c.Split(sec.body) {
			seg.Index = len(all)
			seg.SectionTitle = sec.title
			all = append(all, seg)
		}
	}
	return all
}

type section struct {
	title string
	body  string
}

func detectSections(text string) []section {
	lines := strings.Split(text, "\n")
	var sections []section
	current := section{}
	flush := func() {
		if strings.TrimSpace(current.body) != "" {
			sections = append(sections, current)
		}
	}
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if isSectionTitle(stripped) {
			flush()
			current = section{title: stripped}
			continue
		}
		current.body += line + "\n"
	}
	flush()
	if len(sections) == 0 {
		return []section{{body: text}}
	}
	return sections
}

func isSectionTitle(line string) bool {
	if len(line) <= 3 || len(line) >= 100 {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// HashText returns the hex SHA-256 of text, the chunk deduplication key.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Dedupe drops segments whose hash is already in seen and returns the
// survivors with their original ordering and indices intact. seen is extended
// with the kept hashes so one pass also dedupes within the batch.
func Dedupe(segments []Segment, seen map[string]struct{}) []Segment {
	if len(segments) == 0 {
		return nil
	}
	if seen == nil {
		seen = make(map[string]struct{})
	}
	kept := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if _, ok := seen[seg.Hash]; ok {
			continue
		}
		seen[seg.Hash] = struct{}{}
		kept = append(kept, seg)
	}
	return kept
}
