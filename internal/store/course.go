package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coursehub/apiserver/types"
)

const courseColumns = `c.id, c.title, c.description, c.instructor, c.price_cents, c.created_at, c.updated_at`

// CourseRepository handles persistence for courses.
type CourseRepository struct {
	db *sql.DB
}

func NewCourseRepository(db *sql.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) List(ctx context.Context) ([]types.Course, error) {
	const query = `
		SELECT ` + courseColumns + `
		FROM courses c
		ORDER BY c.id`
	return r.query(ctx, query)
}

func (r *CourseRepository) Get(ctx context.Context, id int) (types.Course, error) {
	const query = `
		SELECT ` + courseColumns + `
		FROM courses c
		WHERE c.id = $1`
	var course types.Course
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&course.Instructor,
		&course.PriceCents,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Course{}, ErrNotFound
		}
		return types.Course{}, fmt.Errorf("select course: %w", err)
	}
	return course, nil
}

// ListByUser returns the courses the user holds a payment for, oldest purchase first.
func (r *CourseRepository) ListByUser(ctx context.Context, userID int) ([]types.Course, error) {
	const query = `
		SELECT ` + courseColumns + `
		FROM courses c
		JOIN payments p ON p.course_id = c.id
		WHERE p.user_id = $1
		ORDER BY p.created_at, p.id`
	return r.query(ctx, query, userID)
}

func (r *CourseRepository) Create(ctx context.Context, course types.Course) (types.Course, error) {
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	const query = `
		INSERT INTO courses (title, description, instructor, price_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		course.Title,
		course.Description,
		course.Instructor,
		course.PriceCents,
		course.CreatedAt,
		course.UpdatedAt,
	).Scan(&course.ID); err != nil {
		return types.Course{}, fmt.Errorf("insert course: %w", err)
	}
	return course, nil
}

func (r *CourseRepository) query(ctx context.Context, query string, args ...any) ([]types.Course, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select courses: %w", err)
	}
	defer rows.Close()

	courses := make([]types.Course, 0)
	for rows.Next() {
		var course types.Course
		if err := rows.Scan(
			&course.ID,
			&course.Title,
			&course.Description,
			&course.Instructor,
			&course.PriceCents,
			&course.CreatedAt,
			&course.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, course)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select courses: %w", err)
	}
	return courses, nil
}
