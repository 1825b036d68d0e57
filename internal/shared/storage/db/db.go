package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"onboarding-backend/internal/shared/telemetry"
)

// Profile names the kind of process that owns a pool.
type Profile string

const (
	ProfileServer  Profile = "server"
	ProfileLambda  Profile = "lambda"
	ProfileMigrate Profile = "migrate"
)

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var profileDefaults = map[Profile]Options{
	// every warm Lambda holds its own pool
	ProfileLambda: {
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: 15 * time.Minute,
		ConnMaxIdleTime: 30 * time.Second,
		PingTimeout:     3 * time.Second,
	},
	ProfileServer: {
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 2 * time.Minute,
		PingTimeout:     5 * time.Second,
	},
	ProfileMigrate: {
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 2 * time.Minute,
		PingTimeout:     5 * time.Second,
	},
}

var openDB = sql.Open

// DetectProfile picks ProfileLambda inside AWS Lambda and ProfileServer elsewhere.
func DetectProfile() Profile {
	if strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != "" {
		return ProfileLambda
	}
	return ProfileServer
}

// DefaultOptions returns the pool defaults for p. Unknown profiles get the
// server defaults.
func DefaultOptions(p Profile) Options {
	if opts, ok := profileDefaults[p]; ok {
		return opts
	}
	return profileDefaults[ProfileServer]
}

// WithEnv overrides o with DB_* env vars where they are set and valid.
func (o Options) WithEnv() Options {
	if v, ok := envInt("DB_MAX_OPEN_CONNS"); ok {
		o.MaxOpenConns = v
	}
	if v, ok := envInt("DB_MAX_IDLE_CONNS"); ok {
		o.MaxIdleConns = v
	}
	if v, ok := envDuration("DB_CONN_MAX_LIFETIME"); ok {
		o.ConnMaxLifetime = v
	}
	if v, ok := envDuration("DB_CONN_MAX_IDLE_TIME"); ok {
		o.ConnMaxIdleTime = v
	}
	if v, ok := envDuration("DB_PING_TIMEOUT"); ok {
		o.PingTimeout = v
	}
	return o
}

// Open returns the pool for the given profile with env overrides applied.
// Lambda processes share one pool across invocations.
func Open(ctx context.Context, databaseURL string, p Profile) (*sql.DB, error) {
	opts := DefaultOptions(p).WithEnv()
	if p == ProfileLambda {
		return shared.get(ctx, databaseURL, opts)
	}
	return Connect(ctx, databaseURL, opts)
}

// Connect opens a pool for databaseURL and verifies connectivity.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	pool, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	configurePool(pool, opts)

	if err := Ping(ctx, pool, opts.PingTimeout); err != nil {
		_ = pool.Close()
		return nil, err
	}

	stats := pool.Stats()
	telemetry.Info("db.connected", map[string]any{
		"max_open": stats.MaxOpenConnections,
		"open":     stats.OpenConnections,
		"idle":     stats.Idle,
	})
	return pool, nil
}

// Ping checks connectivity with a bounded timeout. Used at startup and by
// the health endpoint.
func Ping(ctx context.Context, pool *sql.DB, timeout time.Duration) error {
	if pool == nil {
		return fmt.Errorf("database not configured")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// sharedPool hands out one *sql.DB per process. Concurrent callers wait for
// an in-flight open; a failed open is retried by the next caller.
type sharedPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	db      *sql.DB
	opening bool
}

var shared = newSharedPool()

func newSharedPool() *sharedPool {
	p := &sharedPool{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *sharedPool) get(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	p.mu.Lock()
	for p.opening && p.db == nil {
		p.cond.Wait()
	}
	if p.db != nil {
		defer p.mu.Unlock()
		return p.db, nil
	}
	p.opening = true
	p.mu.Unlock()

	pool, err := Connect(ctx, databaseURL, opts)

	p.mu.Lock()
	if err == nil {
		p.db = pool
	}
	p.opening = false
	p.cond.Broadcast()
	p.mu.Unlock()
	return pool, err
}

func (p *sharedPool) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.db = nil
	p.opening = false
}

func configurePool(pool *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	pool.SetMaxOpenConns(opts.MaxOpenConns)
	pool.SetMaxIdleConns(opts.MaxIdleConns)
	pool.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func envInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Error("db.env_invalid", map[string]any{"key": key, "error": err.Error()})
		return 0, false
	}
	return val, true
}

func envDuration(key string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		telemetry.Error("db.env_invalid", map[string]any{"key": key, "error": err.Error()})
		return 0, false
	}
	return val, true
}
