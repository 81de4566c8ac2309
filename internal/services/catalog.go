package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/coursehub/apiserver/internal/store"
	"github.com/coursehub/apiserver/types"
	"github.com/google/uuid"
)

// CatalogCourseRepository defines the course operations used by catalog administration.
type CatalogCourseRepository interface {
	List(ctx context.Context) ([]types.Course, error)
	Create(ctx context.Context, course types.Course) (types.Course, error)
}

// CatalogVideoRepository defines the video operations used by catalog administration.
type CatalogVideoRepository interface {
	ListByCourse(ctx context.Context, courseID int) ([]types.Video, error)
	Create(ctx context.Context, video types.Video) (types.Video, error)
}

// ObjectStore stores video files.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// VideoUpload is a video file to store alongside a new video record.
type VideoUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CatalogEntry is a course with its videos.
type CatalogEntry struct {
	Course types.Course
	Videos []types.Video
}

// CatalogService manages courses and videos outside the public API.
type CatalogService struct {
	courses CatalogCourseRepository
	videos  CatalogVideoRepository
	objects ObjectStore
}

// NewCatalogService constructs the service. objects may be nil, in which
// case only externally hosted videos can be added.
func NewCatalogService(courses CatalogCourseRepository, videos CatalogVideoRepository, objects ObjectStore) *CatalogService {
	return &CatalogService{courses: courses, videos: videos, objects: objects}
}

func (s *CatalogService) AddCourse(ctx context.Context, course types.Course) (types.Course, error) {
	course.Title = strings.TrimSpace(course.Title)
	if course.Title == "" {
		return types.Course{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if course.PriceCents < 0 {
		return types.Course{}, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	return s.courses.Create(ctx, course)
}

// AddVideo records a video. When upload is set the file is stored first and
// removed again if the record cannot be created.
func (s *CatalogService) AddVideo(ctx context.Context, video types.Video, upload *VideoUpload) (types.Video, error) {
	video.Title = strings.TrimSpace(video.Title)
	if video.CourseID < 1 || video.Title == "" {
		return types.Video{}, fmt.Errorf("%w: course id and title are required", ErrValidation)
	}
	if upload == nil && strings.TrimSpace(video.URL) == "" {
		return types.Video{}, fmt.Errorf("%w: a file or url is required", ErrValidation)
	}

	if upload != nil {
		if s.objects == nil {
			return types.Video{}, fmt.Errorf("%w: object storage is not configured", ErrMisconfigured)
		}
		key := videoObjectKey(video.CourseID, upload.Filename)
		if err := s.objects.Put(ctx, key, upload.Body, upload.Size, upload.ContentType); err != nil {
			return types.Video{}, fmt.Errorf("upload video: %w", err)
		}
		video.ObjectKey = key
		video.URL = ""
	}

	created, err := s.videos.Create(ctx, video)
	if err != nil {
		if video.ObjectKey != "" {
			if delErr := s.objects.Delete(ctx, video.ObjectKey); delErr != nil {
				err = errors.Join(err, fmt.Errorf("remove uploaded object: %w", delErr))
			}
		}
		if errors.Is(err, store.ErrNotFound) {
			return types.Video{}, errors.Join(ErrCourseNotFound, err)
		}
		return types.Video{}, err
	}
	return created, nil
}

// List returns every course with its videos.
func (s *CatalogService) List(ctx context.Context) ([]CatalogEntry, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]CatalogEntry, 0, len(courses))
	for _, course := range courses {
		videos, err := s.videos.ListByCourse(ctx, course.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, CatalogEntry{Course: course, Videos: videos})
	}
	return entries, nil
}

func videoObjectKey(courseID int, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, `\`, "/"))))
	return fmt.Sprintf("courses/%d/%s%s", courseID, uuid.NewString(), ext)
}
