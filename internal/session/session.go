// Package session provides scoped reader and writer database sessions.
package session

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/stac-catalog/internal/config"
	"github.com/sells-group/stac-catalog/internal/db"
	"github.com/sells-group/stac-catalog/internal/resilience"
)

// Scope hands out transactions on a single pool.
type Scope struct {
	pool db.Pool
}

// NewScope creates a Scope over pool.
func NewScope(pool db.Pool) *Scope {
	return &Scope{pool: pool}
}

// Pool returns the underlying pool for statements that run outside a
// transaction, such as bulk inserts that commit per statement.
func (s *Scope) Pool() db.Pool {
	return s.pool
}

// ContextSession runs fn in a transaction. It commits when fn returns nil;
// on every other exit path, including a panic in fn, the transaction is
// rolled back. Errors returned by fn are passed through unwrapped.
func (s *Scope) ContextSession(ctx context.Context, fn func(q db.Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "session: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "session: commit tx")
}

// Session pairs a reader scope with a writer scope. The reader may point
// at a replica; every mutation goes through the writer.
type Session struct {
	Reader *Scope
	Writer *Scope

	closeFns []func()
}

// New creates a Session from existing pools. Pass the same pool twice when
// there is no dedicated reader.
func New(reader, writer db.Pool) *Session {
	return &Session{Reader: NewScope(reader), Writer: NewScope(writer)}
}

// Connect opens the writer pool, and a reader pool when a distinct reader
// URL is configured.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*Session, error) {
	if cfg.WriterURL == "" {
		return nil, eris.New("session: database.writer_url is required")
	}

	writer, err := openPool(ctx, cfg.WriterURL, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "session: open writer")
	}

	readerURL := cfg.ReaderOrWriterURL()
	if readerURL == cfg.WriterURL {
		s := New(writer, writer)
		s.closeFns = []func(){writer.Close}
		return s, nil
	}

	reader, err := openPool(ctx, readerURL, cfg)
	if err != nil {
		writer.Close()
		return nil, eris.Wrap(err, "session: open reader")
	}

	zap.L().Info("session: using dedicated reader pool")
	s := New(reader, writer)
	s.closeFns = []func(){reader.Close, writer.Close}
	return s, nil
}

// Close releases the pools opened by Connect.
func (s *Session) Close() {
	for _, fn := range s.closeFns {
		fn()
	}
	s.closeFns = nil
}

func openPool(ctx context.Context, connString string, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if cfg.MaxConns > 0 {
		maxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		minConns = cfg.MinConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	retry := resilience.DefaultRetryConfig()
	if cfg.ConnectAttempts > 0 {
		retry.MaxAttempts = cfg.ConnectAttempts
	}
	retry.OnRetry = resilience.LogRetry("session.connect")

	return resilience.Do(ctx, retry, func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
		if err != nil {
			return nil, eris.Wrap(err, "create pool")
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, eris.Wrap(err, "ping")
		}
		return pool, nil
	})
}
