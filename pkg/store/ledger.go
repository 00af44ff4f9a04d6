package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Ledger records one row per imported source resource. It is audit-only:
// skip-vs-redownload decisions are made from filesystem presence, never from
// here.
type Ledger struct {
	db *bun.DB
}

func NewLedger(db *bun.DB) *Ledger {
	return &Ledger{db: db}
}

// MarkPending upserts a pending row for the resource before its parse pass
// starts. Any record of a previous attempt is replaced.
func (l *Ledger) MarkPending(ctx context.Context, rec *ImportRecord) error {
	rec.Status = StatusPending
	rec.RecordCount = 0
	rec.Error = ""
	rec.DownloadedAt = time.Now().UTC()
	return l.upsert(ctx, rec)
}

// Complete transitions the resource's row to completed with the number of
// records imported.
func (l *Ledger) Complete(ctx context.Context, resourceID string, recordCount int) error {
	res, err := l.db.NewUpdate().
		Model((*ImportRecord)(nil)).
		Set("status = ?", StatusCompleted).
		Set("record_count = ?", recordCount).
		Set("error_msg = ''").
		Where("resource_id = ?", resourceID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("complete ledger %s: %w", resourceID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("complete ledger %s: no pending row", resourceID)
	}
	return nil
}

// Fail transitions the resource's row to failed with the error message.
func (l *Ledger) Fail(ctx context.Context, resourceID, msg string) error {
	_, err := l.db.NewUpdate().
		Model((*ImportRecord)(nil)).
		Set("status = ?", StatusFailed).
		Set("error_msg = ?", msg).
		Where("resource_id = ?", resourceID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("fail ledger %s: %w", resourceID, err)
	}
	return nil
}

// Get returns the ledger row for a resource, or nil when none exists.
func (l *Ledger) Get(ctx context.Context, resourceID string) (*ImportRecord, error) {
	rec := new(ImportRecord)
	err := l.db.NewSelect().Model(rec).Where("resource_id = ?", resourceID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger %s: %w", resourceID, err)
	}
	return rec, nil
}

// List returns all ledger rows, newest download first.
func (l *Ledger) List(ctx context.Context) ([]*ImportRecord, error) {
	var recs []*ImportRecord
	err := l.db.NewSelect().Model(&recs).OrderExpr("downloaded_at DESC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	if recs == nil {
		recs = []*ImportRecord{}
	}
	return recs, nil
}

func (l *Ledger) upsert(ctx context.Context, rec *ImportRecord) error {
	_, err := l.db.NewInsert().
		Model(rec).
		On("CONFLICT (resource_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("url = EXCLUDED.url").
		Set("format = EXCLUDED.format").
		Set("year = EXCLUDED.year").
		Set("last_modified = EXCLUDED.last_modified").
		Set("downloaded_at = EXCLUDED.downloaded_at").
		Set("record_count = EXCLUDED.record_count").
		Set("status = EXCLUDED.status").
		Set("error_msg = EXCLUDED.error_msg").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert ledger %s: %w", rec.ResourceID, err)
	}
	return nil
}
