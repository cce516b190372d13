package rag

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultRefusalSentence is the exact sentence the model is instructed to
// emit when the context cannot answer the question.
const DefaultRefusalSentence = "I could not find this information in the provided documents."

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// AnswerOptions configures prompt wording and refusal detection.
type AnswerOptions struct {
	RefusalSentence string
	RefusalPhrases  []string
	SystemPrompt    string
}

// Answer is the structured result of a generation: the text, the 1-based
// indices of the context chunks the model cited, and whether it refused.
type Answer struct {
	Text      string `json:"text"`
	Citations []int  `json:"citations"`
	Refused   bool   `json:"refused"`
}

// AnswerGenerator builds a grounded prompt from retrieved chunks, calls the
// language model and extracts citations and the refusal flag from the raw
// output. Pure apart from the model call.
type AnswerGenerator struct {
	llm  Generator
	opts AnswerOptions
}

func NewAnswerGenerator(llm Generator, opts AnswerOptions) (*AnswerGenerator, error) {
	if llm == nil {
		return nil, fmt.Errorf("answer generator: llm must not be nil")
	}
	if opts.RefusalSentence == "" {
		opts.RefusalSentence = DefaultRefusalSentence
	}
	if len(opts.RefusalPhrases) == 0 {
		opts.RefusalPhrases = []string{strings.ToLower(strings.TrimSuffix(opts.RefusalSentence, "."))}
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = "You are the company's internal knowledge assistant. Answer clearly and concisely using only the supplied context."
	}
	return &AnswerGenerator{llm: llm, opts: opts}, nil
}

// Answer generates a grounded answer for the question. With zero context
// chunks it returns the refusal result directly, without calling the model.
func (g *AnswerGenerator) Answer(ctx context.Context, question string, chunks []ScoredChunk) (*Answer, error) {
	return g.AnswerWithSystem(ctx, "", question, chunks)
}

// AnswerWithSystem is Answer with a per-call system prompt, used for
// tenant-specific assistant instructions. Empty system falls back to the
// configured prompt.
func (g *AnswerGenerator) AnswerWithSystem(ctx context.Context, system, question string, chunks []ScoredChunk) (*Answer, error) {
	if len(chunks) == 0 {
		return &Answer{Text: g.opts.RefusalSentence, Refused: true}, nil
	}
	if system == "" {
		system = g.opts.SystemPrompt
	}

	prompt := g.buildPrompt(question, chunks)
	raw, err := g.llm.Generate(ctx, system, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	text := strings.TrimSpace(raw)

	return &Answer{
		Text:      text,
		Citations: ExtractCitations(text, len(chunks)),
		Refused:   g.detectRefusal(text),
	}, nil
}

func (g *AnswerGenerator) buildPrompt(question string, chunks []ScoredChunk) string {
	var b strings.Builder
	b.WriteString("CONTEXT:\n")
	for i, c := range chunks {
		label := c.Payload.DocumentName
		if label == "" {
			label = fmt.Sprintf("document %d", c.Payload.DocumentID)
		}
		if c.Payload.SectionTitle != "" {
			label += " / " + c.Payload.SectionTitle
		}
		fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", i+1, label, c.Payload.Text)
	}
	b.WriteString("QUESTION:\n")
	b.WriteString(question)
	b.WriteString("\n\nRULES:\n")
	b.WriteString("- Answer using ONLY the numbered context above. Do not invent information.\n")
	b.WriteString("- Mark every context entry you use with its bracketed number, e.g. [2].\n")
	fmt.Fprintf(&b, "- If the context does not contain the answer, reply exactly: %s\n", g.opts.RefusalSentence)
	b.WriteString("\nANSWER:")
	return b.String()
}

func (g *AnswerGenerator) detectRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range g.opts.RefusalPhrases {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// ExtractCitations collects the bracketed integers in text that fall within
// 1..chunkCount, deduplicated and ascending. Out-of-range numbers are noise,
// not an error.
func ExtractCitations(text string, chunkCount int) []int {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(matches))
	var citations []int
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > chunkCount {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		citations = append(citations, n)
	}
	sort.Ints(citations)
	return citations
}
