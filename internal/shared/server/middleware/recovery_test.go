package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zapcore"

	"onboarding-backend/internal/shared/telemetry"
)

func TestRecoveryReturnsStandardError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	telemetry.SetOutput(zapcore.AddSync(&buf))
	defer telemetry.SetOutput(nil)

	router := gin.New()
	router.Use(RequestID(), Recovery())
	router.GET("/boom", func(c *gin.Context) {
		c.Set(FormKeyKey, "w4Form")
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-Id", "req-42")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"code":"internal_error"`) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Fatalf("expected panic log with request id, got %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"form_key":"w4Form"`) {
		t.Fatalf("expected panic log with form key, got %s", buf.String())
	}
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFromContext(c)) })

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/x", nil))

	id := resp.Header().Get("X-Request-Id")
	if len(id) != 36 || resp.Body.String() != id {
		t.Fatalf("expected generated uuid, header=%q body=%q", id, resp.Body.String())
	}
}
