package types

import "time"

// Course is a purchasable unit of content.
type Course struct {
	// ID is the unique identifier of the course.
	ID int `json:"id" db:"id"`

	// Title is the course headline shown in listings.
	Title string `json:"title" db:"title"`

	// Description is free-form text describing the course.
	Description string `json:"description" db:"description"`

	// Instructor is the display name of the course author.
	Instructor string `json:"instructor" db:"instructor"`

	// PriceCents is the list price in the smallest currency unit.
	// It is informational only; payments do not carry an amount.
	PriceCents int64 `json:"price_cents" db:"price_cents"`

	// CreatedAt is the timestamp when the course was added to the catalog.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent catalog change.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Video is a single lesson belonging to a course. Access is gated by
// an entitlement to the owning course.
type Video struct {
	// ID is the unique identifier of the video.
	ID int `json:"id" db:"id"`

	// CourseID identifies the course this video belongs to.
	CourseID int `json:"course_id" db:"course_id"`

	// Title is the lesson title.
	Title string `json:"title" db:"title"`

	// Description is free-form text describing the lesson.
	Description string `json:"description" db:"description"`

	// DurationSeconds is the playback length of the video.
	DurationSeconds int `json:"duration_seconds" db:"duration_seconds"`

	// Position orders videos within a course, ascending.
	Position int `json:"position" db:"position"`

	// ObjectKey is the object storage key of the video file, if it is
	// hosted in the configured bucket. Empty for externally hosted videos.
	ObjectKey string `json:"-" db:"object_key"`

	// URL is the playback location. For stored objects it is a short-lived
	// presigned URL filled in per request.
	URL string `json:"url" db:"url"`

	// CreatedAt is the timestamp when the video was added.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
