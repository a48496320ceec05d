package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfqa/internal/ai"
	"github.com/xxxsen/pdfqa/internal/pkg/errcode"
	appErr "github.com/xxxsen/pdfqa/internal/pkg/errors"
	"github.com/xxxsen/pdfqa/internal/pkg/response"
)

// errorCode maps the error taxonomy onto api codes and client messages.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, appErr.ErrInvalid):
		return errcode.ErrInvalid, err.Error()
	case errors.Is(err, appErr.ErrNotFound):
		return errcode.ErrNotFound, "document not found"
	case errors.Is(err, appErr.ErrEmptyIndex):
		return errcode.ErrEmptyIndex, "no vectors in index for this document"
	case errors.Is(err, appErr.ErrConflict):
		return errcode.ErrConflict, "conflict"
	case errors.Is(err, appErr.ErrTooMany):
		return errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests)
	case errors.Is(err, ai.ErrUnavailable):
		return errcode.ErrAIUnavailable, "ai provider unavailable"
	case errors.Is(err, appErr.ErrUpstream):
		return errcode.ErrUpstream, "upstream model call failed"
	default:
		return errcode.ErrInternal, "internal error"
	}
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	code, msg := errorCode(err)
	response.Error(c, code, msg)
}
