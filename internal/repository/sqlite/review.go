package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

var _ repository.ReviewRepository = (*DB)(nil)

const reviewColumns = `id, user_id, faculty_id, rating, text, is_admin, created_at`

func (db *DB) CreateReview(ctx context.Context, r *model.Review) error {
	r.ID = xid.New().String()
	r.CreatedAt = db.now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning review insert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reviews (`+reviewColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, nullString(r.UserID), r.FacultyID, r.Rating, r.Text, r.IsAdmin, r.CreatedAt,
	); err != nil {
		return fmt.Errorf("sqlite: inserting review for faculty %s: %w", r.FacultyID, err)
	}
	if err := insertReactions(ctx, tx, r.ID, r.Likes, r.Dislikes); err != nil {
		return err
	}
	for _, f := range r.Flags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO review_flags (review_id, user_id, created_at) VALUES (?, ?, ?)`,
			r.ID, f.UserID, f.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("sqlite: inserting flag for review %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing review %s: %w", r.ID, err)
	}
	return nil
}

func (db *DB) GetReviewByID(ctx context.Context, id string) (*model.Review, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id)
	r, err := scanReview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("review", id)
		}
		return nil, fmt.Errorf("sqlite: getting review %s: %w", id, err)
	}

	reviews := []model.Review{*r}
	if err := db.loadReviewChildren(ctx, reviews); err != nil {
		return nil, err
	}
	return &reviews[0], nil
}

func (db *DB) ListReviews(ctx context.Context, filter repository.ReviewFilter) ([]model.Review, error) {
	where, args, empty := reviewWhere(filter)
	if empty {
		return []model.Review{}, nil
	}

	query := `SELECT ` + reviewColumns + ` FROM reviews`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reviews: %w", err)
	}

	reviews := []model.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning review row: %w", err)
		}
		reviews = append(reviews, *r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating reviews: %w", err)
	}
	rows.Close()

	if err := db.loadReviewChildren(ctx, reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (db *DB) UpdateReviewContent(ctx context.Context, id string, rating int, text string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE reviews SET rating = ?, text = ? WHERE id = ?`, rating, text, id)
	if err != nil {
		return fmt.Errorf("sqlite: updating review %s: %w", id, err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("review", id)
	}
	return nil
}

// SetReactions replaces both reaction sets in one transaction. The
// (review_id, user_id) primary key makes it impossible to store a user in
// both sets.
func (db *DB) SetReactions(ctx context.Context, id string, likes, dislikes []string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning reaction update: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("sqlite: checking review %s: %w", id, err)
	}
	if exists == 0 {
		return apperror.NotFound("review", id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM review_reactions WHERE review_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: clearing reactions of review %s: %w", id, err)
	}
	if err := insertReactions(ctx, tx, id, likes, dislikes); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing reactions of review %s: %w", id, err)
	}
	return nil
}

func (db *DB) AddFlag(ctx context.Context, id string, flag model.Flag) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO review_flags (review_id, user_id, created_at) VALUES (?, ?, ?)`,
		id, flag.UserID, flag.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("you have already flagged this review")
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return apperror.NotFound("review", id)
		}
		return fmt.Errorf("sqlite: flagging review %s: %w", id, err)
	}
	return nil
}

func (db *DB) DeleteReview(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting review %s: %w", id, err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("review", id)
	}
	return nil
}

func (db *DB) DeleteReviews(ctx context.Context, filter repository.ReviewFilter) (int64, error) {
	where, args, empty := reviewWhere(filter)
	if empty {
		return 0, nil
	}
	if where == "" {
		return 0, errors.New("sqlite: refusing to delete reviews with an empty filter")
	}

	result, err := db.conn.ExecContext(ctx, `DELETE FROM reviews WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting reviews: %w", err)
	}
	return rowsAffected(result)
}

func (db *DB) SummarizeRatings(ctx context.Context, facultyID string) (model.RatingSummary, error) {
	var s model.RatingSummary
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(rating), 0) FROM reviews WHERE faculty_id = ?`,
		facultyID,
	).Scan(&s.Count, &s.Sum)
	if err != nil {
		return model.RatingSummary{}, fmt.Errorf("sqlite: summarizing ratings of faculty %s: %w", facultyID, err)
	}
	return s, nil
}

func (db *DB) CountReviewsByUser(ctx context.Context) (map[string]int64, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, COUNT(*) FROM reviews
		 WHERE user_id IS NOT NULL AND user_id != ''
		 GROUP BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting reviews by user: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			userID string
			n      int64
		)
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scanning review count: %w", err)
		}
		counts[userID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating review counts: %w", err)
	}
	return counts, nil
}

func (db *DB) CountReviews(ctx context.Context) (int64, error) {
	return db.count(ctx, "reviews")
}

// reviewWhere builds the WHERE clause for a filter. empty is true when the
// filter can match nothing (an explicit, empty IDs list).
func reviewWhere(filter repository.ReviewFilter) (where string, args []any, empty bool) {
	var clauses []string
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return "", nil, true
		}
		clauses = append(clauses, `id IN (`+placeholders(len(filter.IDs))+`)`)
		args = append(args, stringArgs(filter.IDs)...)
	}
	if filter.FacultyID != "" {
		clauses = append(clauses, `faculty_id = ?`)
		args = append(args, filter.FacultyID)
	}
	if filter.UserID != "" {
		clauses = append(clauses, `user_id = ?`)
		args = append(args, filter.UserID)
	}
	if filter.AdminOnly {
		clauses = append(clauses, `is_admin = 1`)
	}
	if filter.FlaggedOnly {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM review_flags f WHERE f.review_id = reviews.id)`)
	}
	return strings.Join(clauses, " AND "), args, false
}

// loadReviewChildren fills Likes, Dislikes and Flags for reviews in place.
func (db *DB) loadReviewChildren(ctx context.Context, reviews []model.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	index := make(map[string]int, len(reviews))
	ids := make([]string, len(reviews))
	for i := range reviews {
		index[reviews[i].ID] = i
		ids[i] = reviews[i].ID
		reviews[i].Likes = []string{}
		reviews[i].Dislikes = []string{}
		reviews[i].Flags = []model.Flag{}
	}
	in := placeholders(len(ids))

	rows, err := db.conn.QueryContext(ctx,
		`SELECT review_id, user_id, kind FROM review_reactions
		 WHERE review_id IN (`+in+`) ORDER BY rowid`, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("sqlite: loading reactions: %w", err)
	}
	for rows.Next() {
		var reviewID, userID, kind string
		if err := rows.Scan(&reviewID, &userID, &kind); err != nil {
			rows.Close()
			return fmt.Errorf("sqlite: scanning reaction row: %w", err)
		}
		r := &reviews[index[reviewID]]
		if kind == "like" {
			r.Likes = append(r.Likes, userID)
		} else {
			r.Dislikes = append(r.Dislikes, userID)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("sqlite: iterating reactions: %w", err)
	}
	rows.Close()

	rows, err = db.conn.QueryContext(ctx,
		`SELECT review_id, user_id, created_at FROM review_flags
		 WHERE review_id IN (`+in+`) ORDER BY created_at, rowid`, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("sqlite: loading flags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			reviewID string
			f        model.Flag
		)
		if err := rows.Scan(&reviewID, &f.UserID, &f.CreatedAt); err != nil {
			return fmt.Errorf("sqlite: scanning flag row: %w", err)
		}
		r := &reviews[index[reviewID]]
		r.Flags = append(r.Flags, f)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating flags: %w", err)
	}
	return nil
}

func insertReactions(ctx context.Context, tx *sql.Tx, reviewID string, likes, dislikes []string) error {
	for kind, ids := range map[string][]string{"like": likes, "dislike": dislikes} {
		for _, userID := range ids {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO review_reactions (review_id, user_id, kind) VALUES (?, ?, ?)`,
				reviewID, userID, kind); err != nil {
				if isUniqueViolation(err) {
					return apperror.ValidationFailed("likes", "a user cannot both like and dislike a review")
				}
				return fmt.Errorf("sqlite: inserting %s on review %s: %w", kind, reviewID, err)
			}
		}
	}
	return nil
}

func scanReview(s scanner) (*model.Review, error) {
	var (
		r      model.Review
		userID sql.NullString
	)
	if err := s.Scan(&r.ID, &userID, &r.FacultyID, &r.Rating, &r.Text, &r.IsAdmin, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.UserID = userID.String
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
