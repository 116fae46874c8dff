package revocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS trustcore_revocations (
	serial     TEXT PRIMARY KEY,
	reason     SMALLINT NOT NULL,
	revoked_at TIMESTAMPTZ NOT NULL
)`

// PostgresList stores entries in the trustcore_revocations table.
type PostgresList struct {
	pool *pgxpool.Pool
}

// NewPostgresList wraps an existing pool.
func NewPostgresList(pool *pgxpool.Pool) *PostgresList {
	return &PostgresList{pool: pool}
}

// OpenPostgresList connects to dsn and ensures the schema exists.
func OpenPostgresList(ctx context.Context, dsn string) (*PostgresList, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	l := NewPostgresList(pool)
	if err := l.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

// EnsureSchema creates the revocation table if it is missing.
func (p *PostgresList) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create revocation table: %w", err)
	}
	return nil
}

// Pool exposes the underlying pool.
func (p *PostgresList) Pool() *pgxpool.Pool {
	return p.pool
}

// Close releases the pool.
func (p *PostgresList) Close() {
	p.pool.Close()
}

func (p *PostgresList) Add(ctx context.Context, e Entry) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO trustcore_revocations (serial, reason, revoked_at)
		 VALUES ($1, $2, $3) ON CONFLICT (serial) DO NOTHING`,
		NormalizeSerial(e.Serial), int16(e.Reason), e.RevokedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("insert revocation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresList) Lookup(ctx context.Context, serial string) (*Entry, bool, error) {
	var (
		e      Entry
		reason int16
	)
	err := p.pool.QueryRow(ctx,
		`SELECT serial, reason, revoked_at FROM trustcore_revocations WHERE serial = $1`,
		NormalizeSerial(serial)).Scan(&e.Serial, &reason, &e.RevokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select revocation: %w", err)
	}
	e.Reason = Reason(reason)
	return &e, true, nil
}

func (p *PostgresList) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT serial, reason, revoked_at FROM trustcore_revocations ORDER BY revoked_at, serial`)
	if err != nil {
		return nil, fmt.Errorf("list revocations: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			reason int16
		)
		if err := rows.Scan(&e.Serial, &reason, &e.RevokedAt); err != nil {
			return nil, fmt.Errorf("scan revocation: %w", err)
		}
		e.Reason = Reason(reason)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list revocations: %w", err)
	}
	return out, nil
}
