package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"companybuddy/internal/model"
	"companybuddy/internal/rag"
	"companybuddy/internal/repository"
)

var (
	ErrQuestionEmpty        = errors.New("question is empty")
	ErrConversationNotFound = errors.New("conversation not found")
)

// HistoryCache is the read-through cache for conversation history.
type HistoryCache interface {
	GetHistory(ctx context.Context, conversationID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, conversationID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, conversationID uint) error
	MarkDirty(ctx context.Context, conversationID uint) error
	IsDirty(ctx context.Context, conversationID uint) (bool, error)
}

// AskConfig carries the pipeline tuning values by name.
type AskConfig struct {
	DefaultTopK        int
	FanOutMultiplier   int
	RerankMinScore     float64
	MaxHistoryMessages int
	MaxTopK            int
}

// AskService runs the full question pipeline: conversation bookkeeping,
// follow-up rewriting, adaptive retrieval, optional rerank, grounded
// generation and query logging.
type AskService struct {
	tenantRepo   *repository.TenantRepository
	convRepo     *repository.ConversationRepository
	msgRepo      *repository.MessageRepository
	historyCache HistoryCache
	retriever    *rag.Retriever
	reranker     *rag.Reranker
	analyzer     *rag.QueryAnalyzer
	answers      *rag.AnswerGenerator
	rewriter     rag.Generator
	recorder     JobPublisher
	cfg          AskConfig
}

type AskInput struct {
	TenantID       uint
	UserID         uint
	ConversationID uint
	Question       string
	TopK           int
}

// Source describes one context chunk shown to the model, for attribution in
// the response.
type Source struct {
	DocumentID   uint    `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	SectionTitle string  `json:"section_title,omitempty"`
	Score        float64 `json:"score"`
	RerankScore  float64 `json:"rerank_score,omitempty"`
	Snippet      string  `json:"snippet"`
}

type AskResult struct {
	Answer         string   `json:"answer"`
	Refused        bool     `json:"refused"`
	Citations      []int    `json:"citations"`
	Sources        []Source `json:"sources"`
	ConversationID uint     `json:"conversation_id"`
	QueryType      string   `json:"query_type"`
	ResponseTimeMs int64    `json:"response_time_ms"`
}

// NewAskService wires the pipeline. reranker may be nil to disable the rerank
// stage; recorder may be nil to disable query logging.
func NewAskService(
	tenantRepo *repository.TenantRepository,
	convRepo *repository.ConversationRepository,
	msgRepo *repository.MessageRepository,
	historyCache HistoryCache,
	retriever *rag.Retriever,
	reranker *rag.Reranker,
	analyzer *rag.QueryAnalyzer,
	answers *rag.AnswerGenerator,
	rewriter rag.Generator,
	recorder JobPublisher,
	cfg AskConfig,
) *AskService {
	if cfg.FanOutMultiplier <= 1 {
		cfg.FanOutMultiplier = 2
	}
	if cfg.MaxHistoryMessages <= 0 {
		cfg.MaxHistoryMessages = 10
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = 50
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 5
	}
	return &AskService{
		tenantRepo:   tenantRepo,
		convRepo:     convRepo,
		msgRepo:      msgRepo,
		historyCache: historyCache,
		retriever:    retriever,
		reranker:     reranker,
		analyzer:     analyzer,
		answers:      answers,
		rewriter:     rewriter,
		recorder:     recorder,
		cfg:          cfg,
	}
}

func (s *AskService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrQuestionEmpty
	}
	if input.TenantID == 0 || input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	start := time.Now()

	conversation, err := s.resolveConversation(input, question)
	if err != nil {
		return nil, err
	}

	history, err := s.loadHistory(ctx, conversation.ID)
	if err != nil {
		log.Printf("load history for conversation %d failed: %v", conversation.ID, err)
		history = nil
	}

	// Follow-ups lean on pronouns and ellipsis; rewrite them into standalone
	// questions before retrieval. A rewrite failure is never fatal.
	effective := question
	if len(history) > 0 && s.rewriter != nil {
		if rewritten, err := s.rewriteQuestion(ctx, history, question); err != nil {
			log.Printf("query rewrite failed, using original: %v", err)
		} else if rewritten != "" {
			effective = rewritten
		}
	}

	// An explicit top_k from the caller bypasses the adaptive heuristic.
	queryType := rag.QueryTypeGeneral
	k := input.TopK
	switch {
	case k > 0:
		if k > s.cfg.MaxTopK {
			k = s.cfg.MaxTopK
		}
	case s.analyzer != nil:
		analysis := s.analyzer.Analyze(effective)
		k = analysis.RecommendedK
		queryType = analysis.QueryType
	default:
		k = s.cfg.DefaultTopK
	}

	fetchLimit := k
	if s.reranker != nil {
		fetchLimit = k * s.cfg.FanOutMultiplier
	}

	chunks, err := s.retriever.Retrieve(ctx, input.TenantID, effective, fetchLimit)
	if err != nil {
		return nil, err
	}

	if s.reranker != nil && len(chunks) > 0 {
		reranked, err := s.reranker.Rerank(ctx, effective, chunks, k, s.cfg.RerankMinScore)
		if err != nil {
			log.Printf("rerank failed, keeping retrieval order: %v", err)
			if len(chunks) > k {
				chunks = chunks[:k]
			}
		} else {
			chunks = reranked
		}
	}

	system := ""
	if tenant, err := s.tenantRepo.GetByID(input.TenantID); err != nil {
		log.Printf("load tenant %d failed: %v", input.TenantID, err)
	} else if tenant != nil {
		system = tenant.CustomPrompt
	}

	answer, err := s.answers.AnswerWithSystem(ctx, system, effective, chunks)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start).Milliseconds()

	s.persistExchange(ctx, conversation, history, question, effective, answer.Text)
	s.recordQuery(input, conversation.ID, question, chunks, answer, elapsed)

	return &AskResult{
		Answer:         answer.Text,
		Refused:        answer.Refused,
		Citations:      answer.Citations,
		Sources:        buildSources(chunks),
		ConversationID: conversation.ID,
		QueryType:      queryType,
		ResponseTimeMs: elapsed,
	}, nil
}

func (s *AskService) resolveConversation(input AskInput, question string) (*model.Conversation, error) {
	if input.ConversationID != 0 {
		conversation, err := s.convRepo.GetByIDAndUserID(input.ConversationID, input.UserID)
		if err != nil {
			return nil, err
		}
		if conversation == nil {
			return nil, ErrConversationNotFound
		}
		return conversation, nil
	}

	conversation := &model.Conversation{
		TenantID: input.TenantID,
		UserID:   input.UserID,
		Title:    truncateTitle(question),
	}
	if err := s.convRepo.Create(conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

func (s *AskService) loadHistory(ctx context.Context, conversationID uint) ([]model.Message, error) {
	if s.historyCache != nil {
		cached, hit, err := s.historyCache.GetHistory(ctx, conversationID)
		if err == nil && hit {
			return cached, nil
		}
		if err != nil {
			log.Printf("history cache read failed: %v", err)
		}
	}

	messages, err := s.msgRepo.ListByConversationID(conversationID, s.cfg.MaxHistoryMessages)
	if err != nil {
		return nil, err
	}

	if s.historyCache != nil && len(messages) > 0 {
		dirty, err := s.historyCache.IsDirty(ctx, conversationID)
		if err == nil && !dirty {
			if err := s.historyCache.SetHistory(ctx, conversationID, messages); err != nil {
				log.Printf("history cache write failed: %v", err)
			}
		}
	}
	return messages, nil
}

func (s *AskService) rewriteQuestion(ctx context.Context, history []model.Message, question string) (string, error) {
	var b strings.Builder
	b.WriteString("CONVERSATION:\n")
	for _, msg := range tailMessages(history, s.cfg.MaxHistoryMessages) {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	b.WriteString("\nFOLLOW-UP QUESTION:\n")
	b.WriteString(question)
	b.WriteString("\n\nRewrite the follow-up as a single standalone question that needs no conversation context. Reply with the question only.")

	rewritten, err := s.rewriter.Generate(ctx,
		"You rewrite follow-up questions into standalone questions. Output only the rewritten question.",
		b.String())
	if err != nil {
		return "", err
	}
	rewritten = strings.TrimSpace(strings.Trim(strings.TrimSpace(rewritten), `"`))
	if rewritten == "" || len(rewritten) > 4*len(question)+200 {
		return "", nil
	}
	return rewritten, nil
}

func (s *AskService) persistExchange(ctx context.Context, conversation *model.Conversation, history []model.Message, question, effective, answerText string) {
	userMsg := model.Message{
		ConversationID: conversation.ID,
		Role:           "user",
		Content:        question,
	}
	if effective != question {
		userMsg.RewrittenQuery = effective
	}
	assistantMsg := model.Message{
		ConversationID: conversation.ID,
		Role:           "assistant",
		Content:        answerText,
	}

	if err := s.msgRepo.Create(&userMsg); err != nil {
		log.Printf("persist user message failed: %v", err)
		return
	}
	if err := s.msgRepo.Create(&assistantMsg); err != nil {
		log.Printf("persist assistant message failed: %v", err)
		return
	}
	if err := s.convRepo.Touch(conversation.ID); err != nil {
		log.Printf("touch conversation %d failed: %v", conversation.ID, err)
	}

	if s.historyCache != nil {
		updated := append(append([]model.Message{}, history...), userMsg, assistantMsg)
		updated = tailMessages(updated, s.cfg.MaxHistoryMessages)
		if err := s.historyCache.SetHistory(ctx, conversation.ID, updated); err != nil {
			log.Printf("history cache refresh failed: %v", err)
		}
	}
}

// recordQuery publishes the query log entry fire-and-forget: an unavailable
// log queue must never fail an answered question.
func (s *AskService) recordQuery(input AskInput, conversationID uint, question string, chunks []rag.ScoredChunk, answer *rag.Answer, elapsedMs int64) {
	if s.recorder == nil {
		return
	}

	record := model.QueryRecord{
		TenantID:        input.TenantID,
		UserID:          input.UserID,
		ConversationID:  conversationID,
		Question:        question,
		ChunksRetrieved: len(chunks),
		ResponseTimeMs:  elapsedMs,
		Refused:         answer.Refused,
	}
	if len(chunks) > 0 {
		min, max, sum := chunks[0].Score, chunks[0].Score, 0.0
		for _, c := range chunks {
			if c.Score < min {
				min = c.Score
			}
			if c.Score > max {
				max = c.Score
			}
			sum += c.Score
		}
		record.MinScore = min
		record.MaxScore = max
		record.AvgScore = sum / float64(len(chunks))
	}
	if len(answer.Citations) > 0 {
		cited := make([]string, 0, len(answer.Citations))
		for _, n := range answer.Citations {
			p := chunks[n-1].Payload
			cited = append(cited, p.Key())
		}
		if encoded, err := json.Marshal(cited); err == nil {
			record.CitedChunkIDs = string(encoded)
		}
	}

	if err := s.recorder.Publish(context.Background(), record); err != nil {
		log.Printf("publish query record failed: %v", err)
	}
}

func buildSources(chunks []rag.ScoredChunk) []Source {
	sources := make([]Source, len(chunks))
	for i, c := range chunks {
		sources[i] = Source{
			DocumentID:   c.Payload.DocumentID,
			DocumentName: c.Payload.DocumentName,
			ChunkIndex:   c.Payload.ChunkIndex,
			SectionTitle: c.Payload.SectionTitle,
			Score:        c.Score,
			RerankScore:  c.RerankScore,
			Snippet:      snippet(c.Payload.Text, 200),
		}
	}
	return sources
}

func snippet(text string, max int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "…"
}

func truncateTitle(question string) string {
	runes := []rune(question)
	if len(runes) > 64 {
		return string(runes[:64])
	}
	return question
}

func tailMessages(messages []model.Message, max int) []model.Message {
	if max > 0 && len(messages) > max {
		return messages[len(messages)-max:]
	}
	return messages
}
