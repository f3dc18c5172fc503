package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/faculty-review/internal/apperror"
	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

var _ repository.FacultyRepository = (*DB)(nil)

const facultyColumns = `id, initial, department, courses, average_rating, total_reviews`

func (db *DB) CreateFaculty(ctx context.Context, f *model.Faculty) error {
	f.ID = xid.New().String()
	courses, err := encodeCourses(f.Courses)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO faculties (`+facultyColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.Initial, f.Department, courses, f.AverageRating, f.TotalReviews,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("faculty with initial %s already exists", f.Initial))
		}
		return fmt.Errorf("sqlite: inserting faculty %s: %w", f.Initial, err)
	}
	return nil
}

func (db *DB) GetFacultyByID(ctx context.Context, id string) (*model.Faculty, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+facultyColumns+` FROM faculties WHERE id = ?`, id)
	f, err := scanFaculty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("faculty", id)
		}
		return nil, fmt.Errorf("sqlite: getting faculty %s: %w", id, err)
	}
	return f, nil
}

func (db *DB) ListFaculties(ctx context.Context, ids []string) ([]model.Faculty, error) {
	query := `SELECT ` + facultyColumns + ` FROM faculties`
	var args []any
	if ids != nil {
		if len(ids) == 0 {
			return []model.Faculty{}, nil
		}
		query += ` WHERE id IN (` + placeholders(len(ids)) + `)`
		args = stringArgs(ids)
	}
	query += ` ORDER BY initial`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing faculties: %w", err)
	}
	defer rows.Close()

	faculties := []model.Faculty{}
	for rows.Next() {
		f, err := scanFaculty(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning faculty row: %w", err)
		}
		faculties = append(faculties, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating faculties: %w", err)
	}
	return faculties, nil
}

func (db *DB) UpdateFaculty(ctx context.Context, f *model.Faculty) error {
	courses, err := encodeCourses(f.Courses)
	if err != nil {
		return err
	}
	result, err := db.conn.ExecContext(ctx,
		`UPDATE faculties SET initial = ?, department = ?, courses = ? WHERE id = ?`,
		f.Initial, f.Department, courses, f.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("faculty with initial %s already exists", f.Initial))
		}
		return fmt.Errorf("sqlite: updating faculty %s: %w", f.ID, err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("faculty", f.ID)
	}
	return nil
}

func (db *DB) SetAggregate(ctx context.Context, id string, averageRating float64, totalReviews int) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE faculties SET average_rating = ?, total_reviews = ? WHERE id = ?`,
		averageRating, totalReviews, id)
	if err != nil {
		return fmt.Errorf("sqlite: setting aggregate for faculty %s: %w", id, err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("faculty", id)
	}
	return nil
}

func (db *DB) DeleteFaculty(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM faculties WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting faculty %s: %w", id, err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("faculty", id)
	}
	return nil
}

func (db *DB) CountFaculties(ctx context.Context) (int64, error) {
	return db.count(ctx, "faculties")
}

func scanFaculty(s scanner) (*model.Faculty, error) {
	var (
		f       model.Faculty
		courses string
	)
	if err := s.Scan(&f.ID, &f.Initial, &f.Department, &courses,
		&f.AverageRating, &f.TotalReviews); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(courses), &f.Courses); err != nil {
		return nil, fmt.Errorf("decoding courses of faculty %s: %w", f.ID, err)
	}
	if f.Courses == nil {
		f.Courses = []string{}
	}
	return &f, nil
}

func encodeCourses(courses []string) (string, error) {
	if courses == nil {
		courses = []string{}
	}
	b, err := json.Marshal(courses)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding courses: %w", err)
	}
	return string(b), nil
}
