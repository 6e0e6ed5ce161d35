package patterns

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists patterns to a shared table so multiple parser
// instances learn from each other. Semantics match FileStore, including
// the once-per-day success throttle, which here is enforced in SQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func NewPostgresStore(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*PostgresStore, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{
		pool:   pool,
		logger: logger.With("component", "pattern_store"),
	}

	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

func (ps *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := ps.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS selector_patterns (
			domain        TEXT PRIMARY KEY,
			fields        JSONB NOT NULL DEFAULT '{}',
			last_success  TIMESTAMPTZ NOT NULL DEFAULT now(),
			success_count INT NOT NULL DEFAULT 1
		)`)
	if err != nil {
		return fmt.Errorf("failed to create selector_patterns table: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Get(domain string) (*Entry, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	entry := &Entry{Domain: domain}
	var fieldsJSON []byte

	err := ps.pool.QueryRow(ctx,
		`SELECT fields, last_success, success_count FROM selector_patterns WHERE domain = $1`,
		domain,
	).Scan(&fieldsJSON, &entry.LastSuccess, &entry.SuccessCount)
	if err != nil {
		return nil, false
	}

	if err := json.Unmarshal(fieldsJSON, &entry.Fields); err != nil {
		ps.logger.Error("corrupt pattern entry", "domain", domain, "error", err)
		return nil, false
	}

	return entry, true
}

// RecordSuccess upserts the selector map. The JSONB merge keeps fields
// from earlier successes; the CASE expressions advance the counter and
// timestamp at most once per calendar day.
func (ps *PostgresStore) RecordSuccess(domain string, fields map[string]string) {
	if domain == "" || len(fields) == 0 {
		return
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		ps.logger.Error("failed to marshal pattern fields", "domain", domain, "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := ps.pool.Exec(ctx, `
			INSERT INTO selector_patterns (domain, fields, last_success, success_count)
			VALUES ($1, $2, now(), 1)
			ON CONFLICT (domain) DO UPDATE SET
				fields = selector_patterns.fields || EXCLUDED.fields,
				last_success = CASE
					WHEN date(selector_patterns.last_success AT TIME ZONE 'UTC') = date(now() AT TIME ZONE 'UTC')
					THEN selector_patterns.last_success ELSE now() END,
				success_count = CASE
					WHEN date(selector_patterns.last_success AT TIME ZONE 'UTC') = date(now() AT TIME ZONE 'UTC')
					THEN selector_patterns.success_count ELSE selector_patterns.success_count + 1 END`,
			domain, fieldsJSON)
		if err != nil {
			ps.logger.Error("failed to persist patterns", "error", err, "domain", domain)
		}
	}()
}

func (ps *PostgresStore) Close() error {
	ps.pool.Close()
	return nil
}
