package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/openlex/lexcrawl/internal/crawl"
)

// uniqueViolation is the Postgres error code raised when an insert hits
// the natural-key unique index.
const uniqueViolation = "23505"

// pgxPool is the subset of pgxpool.Pool the store uses. Tests satisfy it
// with pgxmock.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Postgres persists crawl records in two tables: law_entries holds the
// record body keyed by natural_key, and law_sections holds the ordered
// heading chain of each entry. The unique index on natural_key is the
// authoritative dedup; Exists is only a cheap pre-check.
type Postgres struct {
	pool   pgxPool
	logger *zap.Logger
}

// NewPostgres connects a pgx pool and pings it to verify the connection.
func NewPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	return &Postgres{pool: pool, logger: logger}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool pgxPool, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{pool: pool, logger: logger}
}

// Exists reports whether a record with the given natural key is stored.
func (p *Postgres) Exists(ctx context.Context, key string) (bool, error) {
	var found bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM law_entries WHERE natural_key = $1)`, key,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("store: exists check: %w", err)
	}
	return found, nil
}

// Insert writes the record and its heading chain in one transaction.
// A natural-key collision returns crawl.ErrDuplicate.
func (p *Postgres) Insert(ctx context.Context, rec crawl.Record) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin insert: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			p.logger.Warn("insert rollback failed", zap.Error(rbErr))
		}
	}()

	entryID := uuid.New()
	_, err = tx.Exec(ctx,
		`INSERT INTO law_entries (id, natural_key, url, jurisdiction, section, law_text, collected_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entryID, rec.Key, rec.URL, rec.Jurisdiction, rec.Section, rec.Text, rec.CollectedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return crawl.ErrDuplicate
		}
		return fmt.Errorf("store: insert entry: %w", err)
	}

	for i, h := range rec.Headings {
		_, err = tx.Exec(ctx,
			`INSERT INTO law_sections (entry_id, position, level, heading, note)
			 VALUES ($1, $2, $3, $4, $5)`,
			entryID, i, h.Level, h.Text, h.Note,
		)
		if err != nil {
			return fmt.Errorf("store: insert heading %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit insert: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
