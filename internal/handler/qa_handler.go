package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/pdfqa/internal/extract"
	"github.com/xxxsen/pdfqa/internal/model"
	"github.com/xxxsen/pdfqa/internal/pkg/errcode"
	"github.com/xxxsen/pdfqa/internal/pkg/response"
)

type QAService interface {
	Upload(ctx context.Context, filename string, data []byte) (*model.UploadResult, error)
	Ingest(ctx context.Context, docID string, chunks []model.Chunk) (*model.IngestResult, error)
	Ask(ctx context.Context, docID, question string) (*model.Answer, error)
	Stat(ctx context.Context, docID string) (*model.DocumentStat, error)
}

type QAHandler struct {
	qa             QAService
	maxUploadBytes int64
}

func NewQAHandler(qa QAService, maxUploadBytes int64) *QAHandler {
	return &QAHandler{qa: qa, maxUploadBytes: maxUploadBytes}
}

type ingestRequest struct {
	DocID  string        `json:"doc_id"`
	Chunks []model.Chunk `json:"chunks"`
}

type askRequest struct {
	DocID    string `json:"doc_id"`
	Question string `json:"question"`
}

func (h *QAHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, errcode.ErrFileTooLarge, fileTooLargeMessage(h.maxUploadBytes))
			return
		}
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		response.Error(c, errcode.ErrFileTooLarge, fileTooLargeMessage(h.maxUploadBytes))
		return
	}
	if !extract.Supported(file.Filename) {
		response.Error(c, errcode.ErrInvalidFile, "only pdf, md and txt files are supported")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	data, err := io.ReadAll(opened)
	if err != nil {
		response.Error(c, errcode.ErrUploadFailed, "failed to read file")
		return
	}
	res, err := h.qa.Upload(c.Request.Context(), file.Filename, data)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *QAHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	res, err := h.qa.Ingest(c.Request.Context(), strings.TrimSpace(req.DocID), req.Chunks)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *QAHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	docID := strings.TrimSpace(req.DocID)
	if docID == "" || strings.TrimSpace(req.Question) == "" {
		response.Error(c, errcode.ErrInvalid, "doc_id and question required")
		return
	}
	res, err := h.qa.Ask(c.Request.Context(), docID, req.Question)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *QAHandler) Stat(c *gin.Context) {
	res, err := h.qa.Stat(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}
