// Package repository persists query audit records. SQLite keeps the
// deployment self-contained; loss of audit data is acceptable, so every
// write is best-effort.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/kuberag/kuberag-agent/internal/models"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS query_audit (
	id TEXT PRIMARY KEY,
	prompt TEXT NOT NULL,
	cluster_relevant INTEGER NOT NULL DEFAULT 0,
	metrics_omitted INTEGER NOT NULL DEFAULT 0,
	matches INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_audit_created_at ON query_audit(created_at);
`

// AuditRepository stores one row per /query request.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository opens (or creates) the SQLite database at dbPath and
// ensures the schema exists.
func NewAuditRepository(dbPath string) (*AuditRepository, error) {
	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}
	// Single writer; WAL keeps readers unblocked during inserts.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(auditSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &AuditRepository{db: db}, nil
}

func (r *AuditRepository) Close() error {
	return r.db.Close()
}

// Record inserts one audit row. ID and CreatedAt are filled when empty.
func (r *AuditRepository) Record(ctx context.Context, audit *models.QueryAudit) error {
	if audit.ID == "" {
		audit.ID = uuid.New().String()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO query_audit (id, prompt, cluster_relevant, metrics_omitted, matches, duration_ms, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		audit.ID, audit.Prompt, audit.ClusterRelevant, audit.MetricsOmitted,
		audit.Matches, audit.DurationMs, audit.Status, audit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit: %w", err)
	}
	return nil
}

// Recent returns the newest limit audit rows, most recent first.
func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]models.QueryAudit, error) {
	if limit <= 0 {
		limit = 20
	}
	audits := []models.QueryAudit{}
	err := r.db.SelectContext(ctx, &audits, `
		SELECT id, prompt, cluster_relevant, metrics_omitted, matches, duration_ms, status, created_at
		FROM query_audit
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}
	return audits, nil
}
