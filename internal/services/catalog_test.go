package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/coursehub/apiserver/internal/store/storefake"
	"github.com/coursehub/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryObjects struct {
	objects map[string]string
	putErr  error
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: make(map[string]string)}
}

func (m *memoryObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = string(data)
	return nil
}

func (m *memoryObjects) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func TestCatalog_AddCourseAndVideo(t *testing.T) {
	ctx := context.Background()
	db := storefake.New()
	objects := newMemoryObjects()
	svc := NewCatalogService(db.Courses(), db.Videos(), objects)

	_, err := svc.AddCourse(ctx, types.Course{Title: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	course, err := svc.AddCourse(ctx, types.Course{Title: "Go", PriceCents: 1999})
	require.NoError(t, err)

	video, err := svc.AddVideo(ctx, types.Video{CourseID: course.ID, Title: "Intro"}, &VideoUpload{
		Filename:    "Intro.MP4",
		ContentType: "video/mp4",
		Size:        4,
		Body:        strings.NewReader("data"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(video.ObjectKey, "courses/1/"), video.ObjectKey)
	assert.True(t, strings.HasSuffix(video.ObjectKey, ".mp4"), video.ObjectKey)
	assert.Equal(t, "data", objects.objects[video.ObjectKey])

	linked, err := svc.AddVideo(ctx, types.Video{CourseID: course.ID, Title: "Extra", URL: "https://cdn.example/x.mp4"}, nil)
	require.NoError(t, err)
	assert.Empty(t, linked.ObjectKey)

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Videos, 2)
}

func TestCatalog_AddVideoRollsBackUpload(t *testing.T) {
	ctx := context.Background()
	db := storefake.New()
	objects := newMemoryObjects()
	svc := NewCatalogService(db.Courses(), db.Videos(), objects)

	_, err := svc.AddVideo(ctx, types.Video{CourseID: 42, Title: "Orphan"}, &VideoUpload{
		Filename: "a.mp4",
		Body:     strings.NewReader("data"),
	})
	assert.ErrorIs(t, err, ErrCourseNotFound)
	assert.Empty(t, objects.objects)
}

func TestCatalog_AddVideoErrors(t *testing.T) {
	ctx := context.Background()
	db := storefake.New()
	course, err := db.Courses().Create(ctx, types.Course{Title: "Go"})
	require.NoError(t, err)

	noStorage := NewCatalogService(db.Courses(), db.Videos(), nil)
	_, err = noStorage.AddVideo(ctx, types.Video{CourseID: course.ID, Title: "Intro"}, &VideoUpload{Filename: "a.mp4", Body: strings.NewReader("")})
	assert.ErrorIs(t, err, ErrMisconfigured)

	_, err = noStorage.AddVideo(ctx, types.Video{CourseID: course.ID, Title: "Intro"}, nil)
	assert.ErrorIs(t, err, ErrValidation)

	objects := newMemoryObjects()
	objects.putErr = errors.New("bucket gone")
	svc := NewCatalogService(db.Courses(), db.Videos(), objects)
	_, err = svc.AddVideo(ctx, types.Video{CourseID: course.ID, Title: "Intro"}, &VideoUpload{Filename: "a.mp4", Body: strings.NewReader("")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
}
