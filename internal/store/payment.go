package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coursehub/apiserver/types"
)

// PaymentRepository handles persistence for payments, which double as
// course entitlements.
type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create records a payment in a single statement. A second payment for the
// same (user, course) pair returns ErrConflict and leaves the first intact.
// An unknown user returns ErrUserNotFound, an unknown course ErrNotFound.
func (r *PaymentRepository) Create(ctx context.Context, payment types.Payment) (types.Payment, error) {
	payment.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO payments (user_id, course_id, payment_method, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, course_id) DO NOTHING
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		payment.UserID,
		payment.CourseID,
		payment.PaymentMethod,
		payment.CreatedAt,
	).Scan(&payment.ID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows), pqCode(err) == pqUniqueViolation:
			return types.Payment{}, ErrConflict
		case pqCode(err) == pqForeignKeyViolation && pqConstraint(err) == paymentsUserFKey:
			return types.Payment{}, ErrUserNotFound
		case pqCode(err) == pqForeignKeyViolation:
			return types.Payment{}, ErrNotFound
		}
		return types.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	return payment, nil
}

func (r *PaymentRepository) Exists(ctx context.Context, userID, courseID int) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM payments WHERE user_id = $1 AND course_id = $2
		)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, courseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("select payment: %w", err)
	}
	return exists, nil
}
