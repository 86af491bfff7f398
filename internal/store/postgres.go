package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Praneeth-A/onebox/internal/config"
	"github.com/Praneeth-A/onebox/internal/models"
)

const emailsSchema = `
CREATE TABLE IF NOT EXISTS emails (
    id            TEXT PRIMARY KEY,
    message_id    TEXT        NOT NULL,
    subject       TEXT        NOT NULL DEFAULT '',
    from_address  TEXT        NOT NULL DEFAULT '',
    to_addresses  TEXT[]      NOT NULL DEFAULT '{}',
    sent_at       TIMESTAMPTZ,
    account       TEXT        NOT NULL,
    folder        TEXT        NOT NULL,
    folder_type   TEXT        NOT NULL,
    raw_content   TEXT        NOT NULL DEFAULT '',
    ai_category   TEXT        NOT NULL DEFAULT '',
    ai_confidence REAL        NOT NULL DEFAULT 0,
    indexed_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS emails_account_folder_idx ON emails (account, folder);
CREATE INDEX IF NOT EXISTS emails_ai_category_idx ON emails (ai_category);
`

// NewConnection creates a new PostgreSQL connection pool with the given configuration.
func NewConnection(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	dbURL := cfg.GetDatabaseURL()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// PostgresStore implements EmailStore on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates an EmailStore backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the emails table and its indexes if absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, emailsSchema); err != nil {
		return fmt.Errorf("failed to ensure emails schema: %w", err)
	}
	return nil
}

// Exists reports whether a document with the given id is already indexed.
func (s *PostgresStore) Exists(ctx context.Context, id string) (bool, error) {
	var found bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM emails WHERE id = $1)`, id).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return found, nil
}

// GetByID returns the document with the given id, or ErrNotFound.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*models.EmailDocument, error) {
	doc := &models.EmailDocument{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, message_id, subject, from_address, to_addresses, sent_at,
		       account, folder, folder_type, raw_content, ai_category, ai_confidence
		FROM emails
		WHERE id = $1
	`, id).Scan(
		&doc.ID,
		&doc.MessageID,
		&doc.Subject,
		&doc.FromAddress,
		&doc.ToAddresses,
		&doc.SentAt,
		&doc.Account,
		&doc.Folder,
		&doc.FolderType,
		&doc.RawContent,
		&doc.AICategory,
		&doc.AIConfidence,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get email by id: %w", err)
	}
	return doc, nil
}

// Save indexes the document under doc.ID. Concurrent saves of the same id from
// different accounts converge to the first inserted row.
func (s *PostgresStore) Save(ctx context.Context, doc *models.EmailDocument) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO emails (id, message_id, subject, from_address, to_addresses, sent_at,
		                    account, folder, folder_type, raw_content, ai_category, ai_confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`,
		doc.ID,
		doc.MessageID,
		doc.Subject,
		doc.FromAddress,
		doc.ToAddresses,
		doc.SentAt,
		doc.Account,
		doc.Folder,
		doc.FolderType,
		doc.RawContent,
		doc.AICategory,
		doc.AIConfidence,
	)
	if err != nil {
		return fmt.Errorf("failed to save email document: %w", err)
	}
	return nil
}

// CountByAccountFolder returns indexed message counts grouped by account,
// folder and folder type.
func (s *PostgresStore) CountByAccountFolder(ctx context.Context) ([]models.FolderCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT account, folder, folder_type, count(*)
		FROM emails
		GROUP BY account, folder, folder_type
		ORDER BY account, folder
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate email counts: %w", err)
	}
	defer rows.Close()

	var buckets []models.FolderCount
	for rows.Next() {
		var bucket models.FolderCount
		if err := rows.Scan(&bucket.Account, &bucket.Folder, &bucket.FolderType, &bucket.Count); err != nil {
			return nil, fmt.Errorf("failed to scan count bucket: %w", err)
		}
		buckets = append(buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read count buckets: %w", err)
	}

	return buckets, nil
}

// Ensure PostgresStore implements EmailStore.
var _ EmailStore = (*PostgresStore)(nil)
