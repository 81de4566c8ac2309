package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coursehub/apiserver/types"
)

// VideoRepository handles persistence for course videos.
type VideoRepository struct {
	db *sql.DB
}

func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) ListByCourse(ctx context.Context, courseID int) ([]types.Video, error) {
	const query = `
		SELECT id, course_id, title, description, duration_seconds, position, object_key, url, created_at
		FROM videos
		WHERE course_id = $1
		ORDER BY position, id`
	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("select videos: %w", err)
	}
	defer rows.Close()

	videos := make([]types.Video, 0)
	for rows.Next() {
		var video types.Video
		if err := rows.Scan(
			&video.ID,
			&video.CourseID,
			&video.Title,
			&video.Description,
			&video.DurationSeconds,
			&video.Position,
			&video.ObjectKey,
			&video.URL,
			&video.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select videos: %w", err)
	}
	return videos, nil
}

// Create inserts a video. It returns ErrNotFound when the course does not exist.
func (r *VideoRepository) Create(ctx context.Context, video types.Video) (types.Video, error) {
	video.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO videos (course_id, title, description, duration_seconds, position, object_key, url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		video.CourseID,
		video.Title,
		video.Description,
		video.DurationSeconds,
		video.Position,
		video.ObjectKey,
		video.URL,
		video.CreatedAt,
	).Scan(&video.ID); err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return types.Video{}, ErrNotFound
		}
		return types.Video{}, fmt.Errorf("insert video: %w", err)
	}
	return video, nil
}
