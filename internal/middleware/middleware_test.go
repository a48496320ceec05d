package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/pdfqa/internal/pkg/errcode"
	"github.com/xxxsen/pdfqa/internal/pkg/response"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		id, _ := c.Get(ContextRequestIDKey)
		s, _ := id.(string)
		c.String(http.StatusOK, s)
	})
	return r
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	r := newEngine(RequestID())

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NotEmpty(t, resp.Header().Get("X-Request-Id"))
	require.Equal(t, resp.Header().Get("X-Request-Id"), resp.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "abc")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, "abc", resp.Body.String())
}

func TestRequestIDOnRejectedRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/gone", func(c *gin.Context) {
		response.Error(c, errcode.ErrNotFound, "document not found")
	})

	req := httptest.NewRequest(http.MethodGet, "/gone", nil)
	req.Header.Set("X-Request-Id", "rej-1")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "rej-1", resp.Header().Get("X-Request-Id"))
	require.Contains(t, resp.Body.String(), `"message":"document not found"`)
}

func TestCORSAllowlist(t *testing.T) {
	r := newEngine(CORS([]string{"https://ok.example"}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://ok.example")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, "https://ok.example", resp.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSOpenAndPreflight(t *testing.T) {
	r := newEngine(CORS(nil))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodOptions, "/ping", nil))
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}
