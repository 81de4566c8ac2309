package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coursehub/apiserver/internal/mq"
	"github.com/coursehub/apiserver/internal/store/storefake"
	"github.com/coursehub/apiserver/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedMessage struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.messages = append(p.messages, publishedMessage{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}

type fakeSigner struct{}

func (fakeSigner) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + key + "?ttl=" + ttl.String(), nil
}

type courseFixture struct {
	db     *storefake.Store
	svc    *CourseService
	user   types.User
	course types.Course
	videos []types.Video
	ctx    context.Context
	caller types.Identity
}

func newCourseFixture(t *testing.T) *courseFixture {
	t.Helper()
	ctx := context.Background()
	db := storefake.New()

	user, err := db.Users().Create(ctx, types.User{Name: "Ann", Email: "ann@x.com", PasswordHash: "x"})
	require.NoError(t, err)
	course, err := db.Courses().Create(ctx, types.Course{Title: "Go"})
	require.NoError(t, err)
	_, err = db.Courses().Create(ctx, types.Course{Title: "SQL"})
	require.NoError(t, err)

	var videos []types.Video
	for i, v := range []types.Video{
		{CourseID: course.ID, Title: "Setup", Position: 1, URL: "https://cdn.example/setup.mp4"},
		{CourseID: course.ID, Title: "Intro", Position: 0, ObjectKey: "courses/1/intro.mp4"},
	} {
		created, err := db.Videos().Create(ctx, v)
		require.NoError(t, err, "video %d", i)
		videos = append(videos, created)
	}

	return &courseFixture{
		db:     db,
		svc:    NewCourseService(db.Courses(), db.Videos(), db.Payments()),
		user:   user,
		course: course,
		videos: videos,
		ctx:    ctx,
		caller: types.Identity{ID: user.ID, Email: user.Email},
	}
}

func TestListCourses(t *testing.T) {
	f := newCourseFixture(t)

	courses, err := f.svc.ListCourses(f.ctx)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "Go", courses[0].Title)
}

func TestGetCourse(t *testing.T) {
	f := newCourseFixture(t)

	course, err := f.svc.GetCourse(f.ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go", course.Title)

	_, err = f.svc.GetCourse(f.ctx, 999)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestRecordPayment_OncePerCourse(t *testing.T) {
	f := newCourseFixture(t)

	payment, err := f.svc.RecordPayment(f.ctx, f.caller, f.course.ID, "card")
	require.NoError(t, err)
	assert.Equal(t, f.course.ID, payment.CourseID)

	_, err = f.svc.RecordPayment(f.ctx, f.caller, f.course.ID, "paypal")
	assert.ErrorIs(t, err, ErrAlreadyPurchased)
	assert.Equal(t, 1, f.db.PaymentCount(f.user.ID, f.course.ID))
}

func TestRecordPayment_Errors(t *testing.T) {
	f := newCourseFixture(t)

	_, err := f.svc.RecordPayment(f.ctx, types.Identity{}, f.course.ID, "card")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.RecordPayment(f.ctx, f.caller, 0, "card")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.RecordPayment(f.ctx, f.caller, f.course.ID, strings.Repeat("x", 65))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.RecordPayment(f.ctx, f.caller, 999, "card")
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestRecordPayment_DeletedUser(t *testing.T) {
	f := newCourseFixture(t)
	gone := types.Identity{ID: 999, Email: "gone@x.com"}

	_, err := f.svc.RecordPayment(f.ctx, gone, f.course.ID, "card")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrCourseNotFound)
}

func TestRecordPayment_DefaultMethod(t *testing.T) {
	f := newCourseFixture(t)

	payment, err := f.svc.RecordPayment(f.ctx, f.caller, f.course.ID, "  ")
	require.NoError(t, err)
	assert.Equal(t, DefaultPaymentMethod, payment.PaymentMethod)
}

func TestRecordPayment_PublishesEvent(t *testing.T) {
	f := newCourseFixture(t)
	publisher := &fakePublisher{}
	f.svc.WithEvents(publisher, "payments.recorded")

	payment, err := f.svc.RecordPayment(f.ctx, f.caller, f.course.ID, "card")
	require.NoError(t, err)

	require.Len(t, publisher.messages, 1)
	msg := publisher.messages[0]
	assert.Equal(t, "payments.recorded", msg.channel)
	assert.Equal(t, "payment.recorded", msg.attrs["type"])
	assert.Equal(t, "application/json", msg.attrs[mq.AttrContentType])
	assert.Equal(t, "user-"+strconv.Itoa(f.user.ID), msg.attrs[mq.AttrOrderingKey])

	var event types.PaymentRecorded
	require.NoError(t, json.Unmarshal(msg.data, &event))
	assert.Equal(t, payment.ID, event.PaymentID)
	assert.Equal(t, f.user.ID, event.UserID)
	assert.Equal(t, "card", event.PaymentMethod)
}

func TestRecordPayment_PublishFailureKeepsEntitlement(t *testing.T) {
	f := newCourseFixture(t)
	f.svc.WithEvents(&fakePublisher{err: errors.New("broker down")}, "payments.recorded")

	_, err := f.svc.RecordPayment(f.ctx, f.caller, f.course.ID, "card")
	require.NoError(t, err)
	assert.Equal(t, 1, f.db.PaymentCount(f.user.ID, f.course.ID))
}

func TestListMyCourses(t *testing.T) {
	f := newCourseFixture(t)

	mine, err := f.svc.ListMyCourses(f.ctx, f.caller)
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = f.svc.RecordPayment(f.ctx, f.caller, f.course.ID, "card")
	require.NoError(t, err)

	mine, err = f.svc.ListMyCourses(f.ctx, f.caller)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.course.ID, mine[0].ID)

	_, err = f.svc.ListMyCourses(f.ctx, types.Identity{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestListCourseVideos_Gating(t *testing.T) {
	f := newCourseFixture(t)

	_, err := f.svc.ListCourseVideos(f.ctx, f.caller, f.course.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.RecordPayment(f.ctx, f.caller, f.course.ID, "card")
	require.NoError(t, err)

	videos, err := f.svc.ListCourseVideos(f.ctx, f.caller, f.course.ID)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "Intro", videos[0].Title)
	assert.Equal(t, "Setup", videos[1].Title)
	assert.Empty(t, videos[0].URL)

	_, err = f.svc.ListCourseVideos(f.ctx, types.Identity{}, f.course.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestListCourseVideos_Presigns(t *testing.T) {
	f := newCourseFixture(t)
	f.svc.WithURLSigner(fakeSigner{}, 5*time.Minute)

	_, err := f.svc.RecordPayment(f.ctx, f.caller, f.course.ID, "card")
	require.NoError(t, err)

	videos, err := f.svc.ListCourseVideos(f.ctx, f.caller, f.course.ID)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "https://signed.example/courses/1/intro.mp4?ttl=5m0s", videos[0].URL)
	assert.Equal(t, "https://cdn.example/setup.mp4", videos[1].URL)
}

func TestListCourseVideos_WarnsWithoutSigner(t *testing.T) {
	f := newCourseFixture(t)
	var logs bytes.Buffer
	ctx := zerolog.New(&logs).WithContext(f.ctx)

	_, err := f.svc.RecordPayment(ctx, f.caller, f.course.ID, "card")
	require.NoError(t, err)

	videos, err := f.svc.ListCourseVideos(ctx, f.caller, f.course.ID)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Empty(t, videos[0].URL)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(logs.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Contains(t, entry["message"], "object storage is not configured")
	assert.EqualValues(t, videos[0].ID, entry["video_id"])
}
