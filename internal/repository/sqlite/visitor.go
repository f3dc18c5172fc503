package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/faculty-review/internal/repository"
)

var _ repository.VisitorRepository = (*DB)(nil)

func (db *DB) UpsertVisitor(ctx context.Context, visitorID string, at time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO visitors (visitor_id, last_visit) VALUES (?, ?)
		 ON CONFLICT(visitor_id) DO UPDATE SET last_visit = excluded.last_visit`,
		visitorID, at.UTC())
	if err != nil {
		return fmt.Errorf("sqlite: upserting visitor %s: %w", visitorID, err)
	}
	return nil
}

func (db *DB) CountVisitors(ctx context.Context) (int64, error) {
	return db.count(ctx, "visitors")
}
