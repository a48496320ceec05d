package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/pdfqa/internal/pkg/errcode"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestErrorEnvelope(t *testing.T) {
	c, rec := newContext()
	Error(c, errcode.ErrNotFound, "document not found")

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, c.IsAborted())
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, errcode.ErrNotFound, body.Code)
	require.Equal(t, "document not found", body.Message)

	code, ok := FailedCode(c)
	require.True(t, ok)
	require.Equal(t, errcode.ErrNotFound, code)
}

func TestSuccessEnvelope(t *testing.T) {
	c, rec := newContext()
	Success(c, map[string]int{"vectors": 3})

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Zero(t, body.Code)
	require.JSONEq(t, `{"vectors":3}`, string(body.Data))

	_, ok := FailedCode(c)
	require.False(t, ok)
}
