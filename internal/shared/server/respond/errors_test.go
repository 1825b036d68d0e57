package respond

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zapcore"

	"onboarding-backend/internal/shared/telemetry"
)

func TestStatusFor(t *testing.T) {
	cases := map[string]int{
		CodeValidation:        http.StatusBadRequest,
		CodeUnauthorized:      http.StatusUnauthorized,
		CodeNotFound:          http.StatusNotFound,
		CodeInvalidTransition: http.StatusConflict,
		CodeRateLimited:       http.StatusTooManyRequests,
		CodePayloadTooLarge:   http.StatusRequestEntityTooLarge,
		CodeInternal:          http.StatusInternalServerError,
		"something_else":      http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := StatusFor(code); got != want {
			t.Fatalf("StatusFor(%q): expected %d, got %d", code, want, got)
		}
	}
}

func TestCodeWritesBodyAndLogsContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	telemetry.SetOutput(zapcore.AddSync(&buf))
	defer telemetry.SetOutput(nil)

	r := gin.New()
	r.PUT("/forms/:formKey", func(c *gin.Context) {
		c.Set("formKey", "i9Form")
		c.Set("applicationId", "app-1")
		Code(c, CodeInvalidTransition, "cannot move", gin.H{"from": "approved"})
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPut, "/forms/i9Form", nil))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != CodeInvalidTransition || body.Error.Message != "cannot move" {
		t.Fatalf("unexpected body: %+v", body)
	}

	line := buf.String()
	if !strings.Contains(line, `"level":"info"`) {
		t.Fatalf("expected client error at info level, got %s", line)
	}
	if !strings.Contains(line, `"form_key":"i9Form"`) || !strings.Contains(line, `"application_id":"app-1"`) {
		t.Fatalf("expected form context in log, got %s", line)
	}
}
