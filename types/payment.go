package types

import "time"

// Payment records that a user purchased a course. It is the sole source
// of truth for course entitlement and exists at most once per
// (UserID, CourseID) pair.
type Payment struct {
	ID            int       `json:"id" db:"id"`
	UserID        int       `json:"user_id" db:"user_id"`
	CourseID      int       `json:"course_id" db:"course_id"`
	PaymentMethod string    `json:"payment_method" db:"payment_method"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// PaymentRecorded is the event published after a payment is stored.
type PaymentRecorded struct {
	PaymentID     int       `json:"payment_id"`
	UserID        int       `json:"user_id"`
	CourseID      int       `json:"course_id"`
	PaymentMethod string    `json:"payment_method"`
	RecordedAt    time.Time `json:"recorded_at"`
}
