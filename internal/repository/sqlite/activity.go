package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

var _ repository.ActivityRepository = (*DB)(nil)

func (db *DB) CreateActivity(ctx context.Context, a *model.Activity) error {
	a.ID = xid.New().String()
	a.CreatedAt = db.now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO activities (id, type, user_id, description, related_entity, entity_model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Type), a.UserID, a.Description, a.RelatedEntity, string(a.EntityModel), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting %s activity: %w", a.Type, err)
	}
	return nil
}

func (db *DB) ListRecentActivities(ctx context.Context, limit int) ([]model.Activity, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, type, user_id, description, related_entity, entity_model, created_at
		 FROM activities ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing activities: %w", err)
	}
	defer rows.Close()

	out := []model.Activity{}
	for rows.Next() {
		var (
			a           model.Activity
			typ, entity string
		)
		if err := rows.Scan(&a.ID, &typ, &a.UserID, &a.Description, &a.RelatedEntity, &entity, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning activity row: %w", err)
		}
		a.Type = model.ActivityType(typ)
		a.EntityModel = model.EntityModel(entity)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating activities: %w", err)
	}
	return out, nil
}
