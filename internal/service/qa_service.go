package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfqa/internal/ai"
	"github.com/xxxsen/pdfqa/internal/chunker"
	"github.com/xxxsen/pdfqa/internal/extract"
	"github.com/xxxsen/pdfqa/internal/filestore"
	"github.com/xxxsen/pdfqa/internal/model"
	appErr "github.com/xxxsen/pdfqa/internal/pkg/errors"
)

// Answerer is the generation side of ai.Manager.
type Answerer interface {
	Answer(ctx context.Context, prompt string) (string, error)
	MaxInputChars() int
}

type QAService struct {
	store     IndexStore
	files     filestore.Store
	chunker   *chunker.Chunker
	embedder  Embedder
	answerer  Answerer
	retriever *Retriever
}

func NewQAService(store IndexStore, files filestore.Store, ch *chunker.Chunker, embedder Embedder, answerer Answerer, topK int) *QAService {
	return &QAService{
		store:     store,
		files:     files,
		chunker:   ch,
		embedder:  embedder,
		answerer:  answerer,
		retriever: NewRetriever(store, embedder, topK),
	}
}

// Upload stores the raw file under a fresh document id, then extracts,
// chunks and ingests it.
func (s *QAService) Upload(ctx context.Context, filename string, data []byte) (*model.UploadResult, error) {
	ex, err := extract.ForFile(filename)
	if err != nil {
		return nil, err
	}
	docID := uuid.NewString()
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", docID), zap.String("filename", filename))
	fileKey := docID + strings.ToLower(filepath.Ext(filename))
	if s.files != nil {
		if err := s.files.Save(ctx, fileKey, bytes.NewReader(data), int64(len(data))); err != nil {
			return nil, fmt.Errorf("%w: save upload: %v", appErr.ErrStorage, err)
		}
	}
	res, err := s.indexFile(ctx, ex, docID, data)
	if err != nil {
		if s.files != nil {
			if derr := s.files.Delete(context.WithoutCancel(ctx), fileKey); derr != nil {
				logger.Warn("remove raw upload failed", zap.Error(derr))
			}
		}
		return nil, err
	}
	logger.Info("document uploaded", zap.Int("chunks", res.NumChunks))
	return res, nil
}

func (s *QAService) indexFile(ctx context.Context, ex extract.Extractor, docID string, data []byte) (*model.UploadResult, error) {
	pages, err := ex.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	if !extract.HasText(pages) {
		return nil, fmt.Errorf("%w: no text extracted", appErr.ErrInvalid)
	}
	chunks := s.chunker.Chunk(ctx, docID, pages)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no text extracted", appErr.ErrInvalid)
	}
	ing, err := s.Ingest(ctx, docID, chunks)
	if err != nil {
		return nil, err
	}
	return &model.UploadResult{DocID: docID, NumChunks: ing.AcceptedCount}, nil
}

// Ingest embeds the chunk texts and appends them to the document index. No
// state is committed if embedding fails.
func (s *QAService) Ingest(ctx context.Context, docID string, chunks []model.Chunk) (*model.IngestResult, error) {
	if _, err := uuid.Parse(docID); err != nil {
		return nil, fmt.Errorf("%w: doc_id must be a uuid", appErr.ErrInvalid)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks", appErr.ErrInvalid)
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		if c.DocID != docID {
			return nil, fmt.Errorf("%w: chunk %d belongs to document %q", appErr.ErrInvalid, i, c.DocID)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", appErr.ErrInvalid, i, err)
		}
		texts[i] = c.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts, ai.TaskRetrievalDocument)
	if err != nil {
		return nil, upstream("embed chunks", err)
	}
	if err := ai.CheckVectors(vectors, len(texts)); err != nil {
		return nil, upstream("embed chunks", err)
	}
	doc, err := s.store.Append(ctx, docID, vectors, chunks)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("chunks ingested",
		zap.String("doc_id", docID), zap.Int("chunks", len(chunks)), zap.Int("total", doc.Len()))
	return &model.IngestResult{DocID: docID, AcceptedCount: len(chunks)}, nil
}

// Ask answers question from the best matching chunks of docID and returns the
// chunks used as citations, in ranking order.
func (s *QAService) Ask(ctx context.Context, docID, question string) (*model.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", appErr.ErrInvalid)
	}
	if limit := s.answerer.MaxInputChars(); limit > 0 && utf8.RuneCountInString(question) > limit {
		return nil, fmt.Errorf("%w: question longer than %d characters", appErr.ErrInvalid, limit)
	}
	hits, err := s.retriever.Retrieve(ctx, docID, question)
	if err != nil {
		return nil, err
	}
	answer, err := s.answerer.Answer(ctx, BuildPrompt(question, hits))
	if err != nil {
		return nil, upstream("generate answer", err)
	}
	logutil.GetLogger(ctx).Info("question answered", zap.String("doc_id", docID), zap.Int("hits", len(hits)))
	return &model.Answer{Answer: answer, Sources: BuildSources(hits)}, nil
}

func (s *QAService) Stat(ctx context.Context, docID string) (*model.DocumentStat, error) {
	doc, err := loadDocument(ctx, s.store, docID)
	if err != nil {
		return nil, err
	}
	return &model.DocumentStat{DocID: docID, Dim: doc.Dim(), Vectors: doc.Len()}, nil
}
