package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/coursehub/apiserver/internal/store/storefake"
	"github.com/coursehub/apiserver/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newAuthService(t *testing.T, db *storefake.Store, clock *testClock) *AuthService {
	t.Helper()
	cfg := AuthConfig{Secret: []byte(testSecret), TokenTTL: time.Hour}
	if clock != nil {
		cfg.Clock = clock.Now
	}
	svc, err := NewAuthService(db.Users(), cfg)
	require.NoError(t, err)
	return svc
}

func TestNewAuthService_RequiresSecret(t *testing.T) {
	_, err := NewAuthService(storefake.New().Users(), AuthConfig{TokenTTL: time.Hour})
	assert.ErrorIs(t, err, ErrMisconfigured)

	_, err = NewAuthService(storefake.New().Users(), AuthConfig{Secret: []byte("x")})
	assert.ErrorIs(t, err, ErrMisconfigured)
}

func TestRegisterThenLogin(t *testing.T) {
	db := storefake.New()
	svc := newAuthService(t, db, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ann", " Ann@X.com ", "pw123")
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", user.Email)
	assert.NotEqual(t, "pw123", user.PasswordHash)

	result, err := svc.Login(ctx, "ann@x.com", "pw123")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, user.ID, result.User.ID)

	identity, err := svc.VerifyToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, types.Identity{ID: user.ID, Email: "ann@x.com"}, identity)
}

func TestRegister_Validation(t *testing.T) {
	svc := newAuthService(t, storefake.New(), nil)

	cases := map[string][3]string{
		"missing name":      {"", "a@x.com", "pw"},
		"missing email":     {"Ann", "  ", "pw"},
		"missing password":  {"Ann", "a@x.com", ""},
		"password too long": {"Ann", "a@x.com", strings.Repeat("p", 73)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc[0], tc[1], tc[2])
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db := storefake.New()
	svc := newAuthService(t, db, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ann", "ann@x.com", "pw123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Ann Again", "ANN@x.com", "other")
	assert.ErrorIs(t, err, ErrDuplicateUser)
	assert.Equal(t, 1, db.UserCount())
}

func TestLogin_InvalidCredentialsAreIndistinguishable(t *testing.T) {
	svc := newAuthService(t, storefake.New(), nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ann", "ann@x.com", "pw123")
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "ann@x.com", "nope")
	_, unknownEmail := svc.Login(ctx, "bob@x.com", "pw123")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLogin_MissingFields(t *testing.T) {
	svc := newAuthService(t, storefake.New(), nil)

	_, err := svc.Login(context.Background(), "", "pw")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Login(context.Background(), "a@x.com", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLogin_StoreFailure(t *testing.T) {
	db := storefake.New()
	svc := newAuthService(t, db, nil)
	db.Err = errors.New("db down")

	_, err := svc.Login(context.Background(), "a@x.com", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyToken_Expiry(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newAuthService(t, storefake.New(), clock)

	token, expiresAt, err := svc.IssueToken(types.User{ID: 4, Email: "ann@x.com"})
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(time.Hour), expiresAt)

	clock.now = clock.now.Add(59 * time.Minute)
	_, err = svc.VerifyToken(token)
	require.NoError(t, err)

	clock.now = clock.now.Add(2 * time.Minute)
	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyToken_Rejects(t *testing.T) {
	svc := newAuthService(t, storefake.New(), nil)

	other, err := NewAuthService(storefake.New().Users(), AuthConfig{Secret: []byte("other"), TokenTTL: time.Hour})
	require.NoError(t, err)
	foreign, _, err := other.IssueToken(types.User{ID: 1, Email: "a@x.com"})
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: 1,
		Email:  "a@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.VerifyToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	for name, token := range map[string]string{
		"wrong secret": foreign,
		"alg none":     unsigned,
		"no subject":   noSubject,
		"malformed":    "not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifyToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestMe(t *testing.T) {
	db := storefake.New()
	svc := newAuthService(t, db, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ann", "ann@x.com", "pw123")
	require.NoError(t, err)

	got, err := svc.Me(ctx, types.Identity{ID: user.ID, Email: user.Email})
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)

	_, err = svc.Me(ctx, types.Identity{ID: 999})
	assert.ErrorIs(t, err, ErrUnauthorized)
}
