package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"companybuddy/internal/model"
	"companybuddy/internal/pkg/docxextract"
	"companybuddy/internal/pkg/pdfextract"
	"companybuddy/internal/platform/qdrant"
	"companybuddy/internal/rag"
	"companybuddy/internal/repository"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrUnsupportedFile  = errors.New("unsupported file type")
	ErrEmptyDocument    = errors.New("document has no extractable text")
)

// JobPublisher enqueues a message for asynchronous handling.
type JobPublisher interface {
	Publish(ctx context.Context, msg any) error
}

// BatchEmbedder turns texts into vectors, one per input.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorWriter is the write/maintenance side of the vector index.
type VectorWriter interface {
	Upsert(ctx context.Context, points []qdrant.Point) error
	DeleteByDocument(ctx context.Context, tenantID, documentID uint) error
	Scroll(ctx context.Context, offset string, limit int) ([]rag.ChunkPayload, string, error)
}

// IngestJob is the queue message that triggers document processing.
type IngestJob struct {
	DocumentID uint `json:"document_id"`
}

type IngestService struct {
	docRepo   *repository.DocumentRepository
	hashRepo  *repository.ChunkHashRepository
	publisher JobPublisher
	embedder  BatchEmbedder
	vectors   VectorWriter
	lexical   *rag.BM25Index
	chunker   *rag.Chunker
	batchSize int
}

type UploadInput struct {
	TenantID    uint
	OwnerID     uint
	Name        string
	ContentType string
	Category    string
	Language    string
	Data        []byte
}

func NewIngestService(
	docRepo *repository.DocumentRepository,
	hashRepo *repository.ChunkHashRepository,
	publisher JobPublisher,
	embedder BatchEmbedder,
	vectors VectorWriter,
	lexical *rag.BM25Index,
	chunker *rag.Chunker,
	batchSize int,
) *IngestService {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &IngestService{
		docRepo:   docRepo,
		hashRepo:  hashRepo,
		publisher: publisher,
		embedder:  embedder,
		vectors:   vectors,
		lexical:   lexical,
		chunker:   chunker,
		batchSize: batchSize,
	}
}

// Upload extracts text, stores the document row and enqueues processing.
// When the queue is unavailable the document is processed inline so an upload
// never silently stalls in "uploaded".
func (s *IngestService) Upload(ctx context.Context, input UploadInput) (*model.Document, error) {
	name := strings.TrimSpace(input.Name)
	if input.TenantID == 0 || input.OwnerID == 0 || name == "" || len(input.Data) == 0 {
		return nil, ErrInvalidInput
	}

	text, err := extractText(name, input.ContentType, input.Data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	version := 1
	previous, err := s.docRepo.GetLatestByNameAndTenantID(name, input.TenantID)
	if err != nil {
		return nil, err
	}
	if previous != nil {
		version = previous.Version + 1
	}

	doc := &model.Document{
		TenantID:    input.TenantID,
		OwnerID:     input.OwnerID,
		Name:        name,
		ContentType: input.ContentType,
		Category:    strings.TrimSpace(input.Category),
		Language:    strings.TrimSpace(input.Language),
		ContentHash: rag.HashText(text),
		Version:     version,
		Status:      model.DocumentStatusUploaded,
		Text:        text,
	}
	if err := s.docRepo.Create(doc); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, IngestJob{DocumentID: doc.ID}); err != nil {
		log.Printf("enqueue ingest job for document %d failed, processing inline: %v", doc.ID, err)
		if err := s.Process(ctx, doc.ID); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Process runs the chunk/dedupe/embed/index pipeline for one document and
// moves its status to processed or failed.
func (s *IngestService) Process(ctx context.Context, documentID uint) error {
	doc, err := s.docRepo.GetByID(documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	if err := s.docRepo.UpdateStatus(doc.ID, model.DocumentStatusProcessing); err != nil {
		return err
	}

	if err := s.process(ctx, doc); err != nil {
		if statusErr := s.docRepo.UpdateStatus(doc.ID, model.DocumentStatusFailed); statusErr != nil {
			log.Printf("mark document %d failed: %v", doc.ID, statusErr)
		}
		return err
	}
	return nil
}

func (s *IngestService) process(ctx context.Context, doc *model.Document) error {
	segments := s.chunker.SplitDocument(doc.Text)

	seen, err := s.hashRepo.HashSetByTenantID(doc.TenantID)
	if err != nil {
		return err
	}
	kept := rag.Dedupe(segments, seen)
	if len(kept) == 0 {
		// Everything already indexed, typically a re-upload of identical content.
		return s.docRepo.MarkProcessed(doc.ID, 0)
	}

	payloads := make([]rag.ChunkPayload, len(kept))
	for i, seg := range kept {
		payloads[i] = rag.ChunkPayload{
			TenantID:     doc.TenantID,
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			ChunkIndex:   seg.Index,
			Text:         seg.Text,
			SectionTitle: seg.SectionTitle,
			Category:     doc.Category,
			Language:     doc.Language,
			ContentHash:  seg.Hash,
		}
	}

	for start := 0; start < len(kept); start += s.batchSize {
		end := start + s.batchSize
		if end > len(kept) {
			end = len(kept)
		}
		batch := kept[start:end]

		texts := make([]string, len(batch))
		for i, seg := range batch {
			texts[i] = seg.Text
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: %v", rag.ErrEmbedding, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("%w: got %d vectors for %d chunks", rag.ErrEmbedding, len(vectors), len(batch))
		}

		points := make([]qdrant.Point, len(batch))
		for i, seg := range batch {
			points[i] = qdrant.Point{
				ID:      qdrant.PointID(doc.ID, seg.Index),
				Vector:  vectors[i],
				Payload: payloads[start+i],
			}
		}
		if err := s.vectors.Upsert(ctx, points); err != nil {
			return err
		}
	}

	hashes := make([]model.ChunkHash, len(kept))
	for i, seg := range kept {
		hashes[i] = model.ChunkHash{
			TenantID:    doc.TenantID,
			DocumentID:  doc.ID,
			ContentHash: seg.Hash,
			ChunkIndex:  seg.Index,
			CharCount:   len([]rune(seg.Text)),
		}
	}
	if err := s.hashRepo.CreateBatch(hashes); err != nil {
		return err
	}

	s.lexical.Add(payloads)

	return s.docRepo.MarkProcessed(doc.ID, len(kept))
}

func (s *IngestService) Get(tenantID, id uint) (*model.Document, error) {
	if tenantID == 0 || id == 0 {
		return nil, ErrInvalidInput
	}
	return s.docRepo.GetByIDAndTenantID(id, tenantID)
}

func (s *IngestService) List(tenantID uint) ([]model.Document, error) {
	if tenantID == 0 {
		return nil, ErrInvalidInput
	}
	return s.docRepo.ListByTenantID(tenantID)
}

// Delete removes the document and cascades through every index that knows it.
func (s *IngestService) Delete(ctx context.Context, tenantID, id uint) error {
	doc, err := s.docRepo.GetByIDAndTenantID(id, tenantID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	if err := s.vectors.DeleteByDocument(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.hashRepo.DeleteByDocumentID(id); err != nil {
		return err
	}
	s.lexical.RemoveDocument(tenantID, id)

	return s.docRepo.DeleteByIDAndTenantID(id, tenantID)
}

// RebuildLexicalIndex repopulates the in-memory BM25 index from the vector
// store. Called once at startup; chunk text lives only in Qdrant payloads.
func (s *IngestService) RebuildLexicalIndex(ctx context.Context) error {
	offset := ""
	total := 0
	for {
		payloads, next, err := s.vectors.Scroll(ctx, offset, 256)
		if err != nil {
			return fmt.Errorf("rebuild lexical index failed: %w", err)
		}
		s.lexical.Add(payloads)
		total += len(payloads)
		if next == "" {
			break
		}
		offset = next
	}
	log.Printf("lexical index rebuilt with %d chunks", total)
	return nil
}

func extractText(name, contentType string, data []byte) (string, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".pdf") || contentType == "application/pdf":
		return pdfextract.ExtractText(bytes.NewReader(data))
	case strings.HasSuffix(lower, ".docx") ||
		contentType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return docxextract.ExtractText(bytes.NewReader(data))
	case strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".md") ||
		strings.HasPrefix(contentType, "text/"):
		return string(data), nil
	default:
		return "", ErrUnsupportedFile
	}
}
