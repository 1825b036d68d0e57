package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"onboarding-backend/internal/shared/auth"
)

func newAuthRouter(t *testing.T, opts AuthOptions) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(opts))
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": UserIDFromContext(c), "email": UserEmailFromContext(c)})
	}
	router.GET("/api/v1/applications/current", handler)
	router.GET("/api/v1/health", handler)
	router.OPTIONS("/api/v1/applications/current", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestPreflightSkipsAuthBehindCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS([]string{"http://localhost:5173"}), Auth(AuthOptions{}))
	router.GET("/api/v1/applications/current", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.OPTIONS("/api/v1/applications/current", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/applications/current", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthRejectsOptionsWithoutIdentity(t *testing.T) {
	router := newAuthRouter(t, AuthOptions{})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/applications/current", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthAcceptsValidBearer(t *testing.T) {
	verifier, err := auth.NewVerifier("test-secret", true)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	token, err := verifier.Sign(auth.Claims{Email: "a@example.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "applicant-7"}})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	router := newAuthRouter(t, AuthOptions{Verifier: verifier})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/applications/current", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if body := resp.Body.String(); body != `{"email":"a@example.com","userId":"applicant-7"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestAuthRejectsBadBearer(t *testing.T) {
	verifier, _ := auth.NewVerifier("test-secret", true)
	router := newAuthRouter(t, AuthOptions{Verifier: verifier, AllowHeaderIdentity: true})

	for _, header := range []string{"Bearer nope", "Basic abc", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/applications/current", nil)
		req.Header.Set("Authorization", header)
		req.Header.Set("X-User-Id", "someone")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, resp.Code)
		}
	}
}

func TestAuthHeaderIdentityOnlyWhenAllowed(t *testing.T) {
	allowed := newAuthRouter(t, AuthOptions{AllowHeaderIdentity: true})
	denied := newAuthRouter(t, AuthOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/applications/current", nil)
	req.Header.Set("X-User-Id", "applicant-1")
	resp := httptest.NewRecorder()
	allowed.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with header identity, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/applications/current", nil)
	req.Header.Set("X-User-Id", "applicant-1")
	resp = httptest.NewRecorder()
	denied.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header identity, got %d", resp.Code)
	}
}

func TestAuthSkipsPublicPaths(t *testing.T) {
	router := newAuthRouter(t, AuthOptions{PublicPaths: []string{"/api/v1/health"}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}
