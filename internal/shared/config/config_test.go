package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("CORS_ALLOW_ORIGINS", "")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("RATE_LIMIT_BURST", "")
	t.Chdir(t.TempDir())

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if len(cfg.CORSAllowOrigin) != 1 || cfg.CORSAllowOrigin[0] != "http://localhost:5173" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSAllowOrigin)
	}
	if cfg.RateLimitRPS != 5 || cfg.RateLimitBurst != 20 {
		t.Fatalf("unexpected rate limit defaults: %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if !cfg.IsDevLike() {
		t.Fatalf("expected dev-like config")
	}
}

func TestLoadReadsDotenvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9999\nONB_SQS_QUEUE_URL=https://sqs.local/q\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)
	t.Setenv("PORT", "7000")
	t.Setenv("ONB_SQS_QUEUE_URL", "")
	os.Unsetenv("ONB_SQS_QUEUE_URL")

	cfg := Load()
	if cfg.Port != "7000" {
		t.Fatalf("expected env PORT to win, got %q", cfg.Port)
	}
	if cfg.ReviewQueueURL != "https://sqs.local/q" {
		t.Fatalf("expected queue url from .env, got %q", cfg.ReviewQueueURL)
	}
}

func TestNormalizeEnv(t *testing.T) {
	cases := map[string]string{
		"prod":       "production",
		"PRODUCTION": "production",
		"staging":    "staging",
		"local":      "local",
		"whatever":   "dev",
	}
	for in, want := range cases {
		if got := normalizeEnv(in); got != want {
			t.Fatalf("normalizeEnv(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" a , ,b,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected split: %v", got)
	}
}
