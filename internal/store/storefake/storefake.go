// Package storefake provides in-memory implementations of the store
// repositories for tests. All repositories created from one Store share
// the same tables, so payments join against courses the same way the
// Postgres schema does.
package storefake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coursehub/apiserver/internal/store"
	"github.com/coursehub/apiserver/types"
)

type paymentKey struct {
	userID   int
	courseID int
}

// Store is a shared in-memory database.
type Store struct {
	lock sync.RWMutex

	users    map[int]types.User
	emails   map[string]int
	courses  map[int]types.Course
	videos   map[int]types.Video
	payments map[paymentKey]types.Payment

	nextID int

	// Err, when set, is returned by every repository call.
	Err error
}

func New() *Store {
	return &Store{
		users:    make(map[int]types.User),
		emails:   make(map[string]int),
		courses:  make(map[int]types.Course),
		videos:   make(map[int]types.Video),
		payments: make(map[paymentKey]types.Payment),
	}
}

func (s *Store) id() int {
	s.nextID++
	return s.nextID
}

// Users returns the credential repository.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Courses returns the course repository.
func (s *Store) Courses() *CourseRepo { return &CourseRepo{s: s} }

// Videos returns the video repository.
func (s *Store) Videos() *VideoRepo { return &VideoRepo{s: s} }

// Payments returns the entitlement repository.
func (s *Store) Payments() *PaymentRepo { return &PaymentRepo{s: s} }

// PaymentCount returns the number of stored payments for the pair.
func (s *Store) PaymentCount(userID, courseID int) int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if _, ok := s.payments[paymentKey{userID, courseID}]; ok {
		return 1
	}
	return 0
}

// UserCount returns the number of stored users.
func (s *Store) UserCount() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.users)
}

type UserRepo struct{ s *Store }

func (r *UserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()
	if r.s.Err != nil {
		return types.User{}, r.s.Err
	}
	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()
	if r.s.Err != nil {
		return types.User{}, r.s.Err
	}
	id, ok := r.s.emails[email]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return r.s.users[id], nil
}

func (r *UserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.lock.Lock()
	defer r.s.lock.Unlock()
	if r.s.Err != nil {
		return types.User{}, r.s.Err
	}
	if _, ok := r.s.emails[user.Email]; ok {
		return types.User{}, store.ErrConflict
	}
	user.ID = r.s.id()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = user
	r.s.emails[user.Email] = user.ID
	return user, nil
}

type CourseRepo struct{ s *Store }

func (r *CourseRepo) List(_ context.Context) ([]types.Course, error) {
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	courses := make([]types.Course, 0, len(r.s.courses))
	for _, course := range r.s.courses {
		courses = append(courses, course)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (r *CourseRepo) Get(_ context.Context, id int) (types.Course, error) {
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()
	if r.s.Err != nil {
		return types.Course{}, r.s.Err
	}
	course, ok := r.s.courses[id]
	if !ok {
		return types.Course{}, store.ErrNotFound
	}
	return course, nil
}

func (r *CourseRepo) ListByUser(_ context.Context, userID int) ([]types.Course, error) {
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	owned := make([]types.Payment, 0)
	for key, payment := range r.s.payments {
		if key.userID == userID {
			owned = append(owned, payment)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })

	courses := make([]types.Course, 0, len(owned))
	for _, payment := range owned {
		courses = append(courses, r.s.courses[payment.CourseID])
	}
	return courses, nil
}

func (r *CourseRepo) Create(_ context.Context, course types.Course) (types.Course, error) {
	r.s.lock.Lock()
	defer r.s.lock.Unlock()
	if r.s.Err != nil {
		return types.Course{}, r.s.Err
	}
	course.ID = r.s.id()
	course.CreatedAt = time.Now().UTC()
	course.UpdatedAt = course.CreatedAt
	r.s.courses[course.ID] = course
	return course, nil
}

type VideoRepo struct{ s *Store }

func (r *VideoRepo) ListByCourse(_ context.Context, courseID int) ([]types.Video, error) {
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	videos := make([]types.Video, 0)
	for _, video := range r.s.videos {
		if video.CourseID == courseID {
			videos = append(videos, video)
		}
	}
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].Position != videos[j].Position {
			return videos[i].Position < videos[j].Position
		}
		return videos[i].ID < videos[j].ID
	})
	return videos, nil
}

func (r *VideoRepo) Create(_ context.Context, video types.Video) (types.Video, error) {
	r.s.lock.Lock()
	defer r.s.lock.Unlock()
	if r.s.Err != nil {
		return types.Video{}, r.s.Err
	}
	if _, ok := r.s.courses[video.CourseID]; !ok {
		return types.Video{}, store.ErrNotFound
	}
	video.ID = r.s.id()
	video.CreatedAt = time.Now().UTC()
	r.s.videos[video.ID] = video
	return video, nil
}

type PaymentRepo struct{ s *Store }

func (r *PaymentRepo) Create(_ context.Context, payment types.Payment) (types.Payment, error) {
	r.s.lock.Lock()
	defer r.s.lock.Unlock()
	if r.s.Err != nil {
		return types.Payment{}, r.s.Err
	}
	if _, ok := r.s.users[payment.UserID]; !ok {
		return types.Payment{}, store.ErrUserNotFound
	}
	if _, ok := r.s.courses[payment.CourseID]; !ok {
		return types.Payment{}, store.ErrNotFound
	}
	key := paymentKey{payment.UserID, payment.CourseID}
	if _, ok := r.s.payments[key]; ok {
		return types.Payment{}, store.ErrConflict
	}
	payment.ID = r.s.id()
	payment.CreatedAt = time.Now().UTC()
	r.s.payments[key] = payment
	return payment, nil
}

func (r *PaymentRepo) Exists(_ context.Context, userID, courseID int) (bool, error) {
	r.s.lock.RLock()
	defer r.s.lock.RUnlock()
	if r.s.Err != nil {
		return false, r.s.Err
	}
	_, ok := r.s.payments[paymentKey{userID, courseID}]
	return ok, nil
}
