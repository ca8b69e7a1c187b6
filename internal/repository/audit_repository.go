// Package repository stores audit events in MySQL.  The table is
// write-only from the service's point of view: nothing in the request path
// reads it back.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/elder-health-text/internal/queue"
)

const auditSchema = `CREATE TABLE IF NOT EXISTS text_audit (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	event_id CHAR(36) NOT NULL,
	request_id VARCHAR(64) NOT NULL DEFAULT '',
	operation VARCHAR(16) NOT NULL,
	input_chars INT UNSIGNED NOT NULL,
	terms_replaced INT UNSIGNED NOT NULL DEFAULT 0,
	dosage_explained TINYINT(1) NOT NULL DEFAULT 0,
	label VARCHAR(16) NOT NULL DEFAULT '',
	matched_keywords VARCHAR(255) NOT NULL DEFAULT '',
	processed_at DATETIME(3) NOT NULL,
	UNIQUE KEY uq_text_audit_event (event_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// AuditRepo writes TextProcessedEvent rows.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo panics on a nil db.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	if db == nil {
		panic("nil db passed to NewAuditRepo")
	}
	return &AuditRepo{db: db}
}

// EnsureSchema creates the text_audit table when missing.
func (r *AuditRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("create text_audit: %w", err)
	}
	return nil
}

// Record inserts ev.  Redelivered events are ignored through the unique
// event_id key, which makes the consumer safe to retry.
func (r *AuditRepo) Record(ctx context.Context, ev queue.TextProcessedEvent) error {
	at, err := time.Parse(time.RFC3339Nano, ev.ProcessedAt)
	if err != nil {
		at = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT IGNORE INTO text_audit
			(event_id, request_id, operation, input_chars, terms_replaced, dosage_explained, label, matched_keywords, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.EventID, ev.RequestID, ev.Operation, ev.InputChars, ev.TermsReplaced,
		ev.DosageExplained, ev.Label, strings.Join(ev.MatchedKeywords, ","), at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert text_audit %s: %w", ev.EventID, err)
	}
	return nil
}
