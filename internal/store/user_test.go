package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/coursehub/apiserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "name", "email", "password_hash", "created_at", "updated_at"}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, name, email, password_hash, created_at, updated_at\s+FROM users\s+WHERE email = \$1`).
		WithArgs("ann@x.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(7, "Ann", "ann@x.com", "hash", now, now))

	user, err := repo.GetByEmail(context.Background(), "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, 7, user.ID)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, "hash", user.PasswordHash)
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM users\s+WHERE id = \$1`).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_Create(t *testing.T) {
	t.Run("inserted", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(`INSERT INTO users .* ON CONFLICT \(email\) DO NOTHING\s+RETURNING id`).
			WithArgs("Ann", "ann@x.com", "hash", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		user, err := repo.Create(context.Background(), types.User{Name: "Ann", Email: "ann@x.com", PasswordHash: "hash"})
		require.NoError(t, err)
		assert.Equal(t, 1, user.ID)
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("email taken", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.Create(context.Background(), types.User{Name: "Ann", Email: "ann@x.com", PasswordHash: "hash"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unique violation", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505"})

		_, err := repo.Create(context.Background(), types.User{Name: "Ann", Email: "ann@x.com", PasswordHash: "hash"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("db error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(errors.New("db down"))

		_, err := repo.Create(context.Background(), types.User{Name: "Ann", Email: "ann@x.com", PasswordHash: "hash"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "db down")
	})
}
