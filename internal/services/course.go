package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coursehub/apiserver/internal/mq"
	"github.com/coursehub/apiserver/internal/store"
	"github.com/coursehub/apiserver/types"
	"github.com/rs/zerolog"
)

// CourseRepository defines read operations for courses.
type CourseRepository interface {
	List(ctx context.Context) ([]types.Course, error)
	Get(ctx context.Context, id int) (types.Course, error)
	ListByUser(ctx context.Context, userID int) ([]types.Course, error)
}

// VideoRepository defines read operations for videos.
type VideoRepository interface {
	ListByCourse(ctx context.Context, courseID int) ([]types.Video, error)
}

// PaymentRepository defines persistence operations for entitlements.
type PaymentRepository interface {
	Create(ctx context.Context, payment types.Payment) (types.Payment, error)
	Exists(ctx context.Context, userID, courseID int) (bool, error)
}

// EventPublisher sends a message to a named channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// URLSigner issues time-limited download URLs for stored objects.
type URLSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

const (
	maxPaymentMethodLen = 64

	// DefaultPaymentMethod is recorded when the client names no method.
	DefaultPaymentMethod = "unspecified"
)

// CourseService encapsulates the catalog, purchase and gated video use-cases.
type CourseService struct {
	courses  CourseRepository
	videos   VideoRepository
	payments PaymentRepository

	events        EventPublisher
	eventsChannel string

	signer     URLSigner
	presignTTL time.Duration
}

func NewCourseService(courses CourseRepository, videos VideoRepository, payments PaymentRepository) *CourseService {
	return &CourseService{
		courses:  courses,
		videos:   videos,
		payments: payments,
	}
}

// WithEvents publishes a PaymentRecorded event to channel after every
// successful payment.
func (s *CourseService) WithEvents(publisher EventPublisher, channel string) *CourseService {
	s.events = publisher
	s.eventsChannel = channel
	return s
}

// WithURLSigner presigns the object key of each listed video.
func (s *CourseService) WithURLSigner(signer URLSigner, ttl time.Duration) *CourseService {
	s.signer = signer
	s.presignTTL = ttl
	return s
}

func (s *CourseService) ListCourses(ctx context.Context) ([]types.Course, error) {
	return s.courses.List(ctx)
}

func (s *CourseService) GetCourse(ctx context.Context, id int) (types.Course, error) {
	course, err := s.courses.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Course{}, ErrCourseNotFound
		}
		return types.Course{}, err
	}
	return course, nil
}

// RecordPayment grants identity access to the course. A course can be
// purchased once per user; there is no way to revoke the entitlement.
func (s *CourseService) RecordPayment(ctx context.Context, identity types.Identity, courseID int, paymentMethod string) (types.Payment, error) {
	if identity.ID < 1 {
		return types.Payment{}, ErrUnauthorized
	}
	if courseID < 1 {
		return types.Payment{}, fmt.Errorf("%w: courseId is required", ErrValidation)
	}
	paymentMethod = strings.TrimSpace(paymentMethod)
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}
	if len(paymentMethod) > maxPaymentMethodLen {
		return types.Payment{}, fmt.Errorf("%w: paymentMethod is too long", ErrValidation)
	}

	payment, err := s.payments.Create(ctx, types.Payment{
		UserID:        identity.ID,
		CourseID:      courseID,
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return types.Payment{}, ErrAlreadyPurchased
		case errors.Is(err, store.ErrUserNotFound):
			return types.Payment{}, ErrUnauthorized
		case errors.Is(err, store.ErrNotFound):
			return types.Payment{}, ErrCourseNotFound
		}
		return types.Payment{}, err
	}

	s.publishPayment(ctx, payment)
	return payment, nil
}

// publishPayment is best effort: the entitlement is already committed.
func (s *CourseService) publishPayment(ctx context.Context, payment types.Payment) {
	if s.events == nil {
		return
	}
	logger := zerolog.Ctx(ctx)

	data, err := json.Marshal(types.PaymentRecorded{
		PaymentID:     payment.ID,
		UserID:        payment.UserID,
		CourseID:      payment.CourseID,
		PaymentMethod: payment.PaymentMethod,
		RecordedAt:    payment.CreatedAt,
	})
	if err != nil {
		logger.Error().Err(err).Int("payment_id", payment.ID).Msg("encode payment event")
		return
	}

	attrs := map[string]string{
		"type":             "payment.recorded",
		"course_id":        strconv.Itoa(payment.CourseID),
		"user_id":          strconv.Itoa(payment.UserID),
		mq.AttrContentType: "application/json",
		mq.AttrOrderingKey: "user-" + strconv.Itoa(payment.UserID),
	}
	id, err := s.events.Publish(ctx, s.eventsChannel, data, attrs)
	if err != nil {
		logger.Warn().Err(err).Int("payment_id", payment.ID).Str("channel", s.eventsChannel).Msg("publish payment event")
		return
	}
	logger.Debug().Str("message_id", id).Int("payment_id", payment.ID).Msg("payment event published")
}

func (s *CourseService) ListMyCourses(ctx context.Context, identity types.Identity) ([]types.Course, error) {
	if identity.ID < 1 {
		return nil, ErrUnauthorized
	}
	return s.courses.ListByUser(ctx, identity.ID)
}

// ListCourseVideos returns the videos of a course the caller has purchased.
func (s *CourseService) ListCourseVideos(ctx context.Context, identity types.Identity, courseID int) ([]types.Video, error) {
	if identity.ID < 1 {
		return nil, ErrUnauthorized
	}
	if courseID < 1 {
		return nil, fmt.Errorf("%w: invalid course id", ErrValidation)
	}

	entitled, err := s.payments.Exists(ctx, identity.ID, courseID)
	if err != nil {
		return nil, err
	}
	if !entitled {
		return nil, ErrForbidden
	}

	videos, err := s.videos.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for i := range videos {
		if videos[i].ObjectKey == "" {
			continue
		}
		if s.signer == nil {
			zerolog.Ctx(ctx).Warn().
				Int("course_id", courseID).
				Int("video_id", videos[i].ID).
				Msg("stored video served without url: object storage is not configured")
			continue
		}
		signed, err := s.signer.PresignGet(ctx, videos[i].ObjectKey, s.presignTTL)
		if err != nil {
			return nil, fmt.Errorf("presign video %d: %w", videos[i].ID, err)
		}
		videos[i].URL = signed
	}
	return videos, nil
}
