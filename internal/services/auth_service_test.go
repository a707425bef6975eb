package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/axellelanca/shortener/internal/auth"
	apperrors "github.com/axellelanca/shortener/internal/errors"
	"github.com/axellelanca/shortener/internal/models"
	"github.com/axellelanca/shortener/internal/repository"
)

type authServiceFixture struct {
	users *mockUserRepository
	links *mockLinkRepository
	svc   *AuthService
}

func newAuthServiceFixture(t *testing.T) *authServiceFixture {
	t.Helper()
	f := &authServiceFixture{
		users: new(mockUserRepository),
		links: new(mockLinkRepository),
	}
	f.svc = NewAuthService(f.users, f.links, auth.NewSigner("test-secret"), auth.NewSessionRegistry(time.Minute),
		time.Hour, bcrypt.MinCost, newTestLogger())
	t.Cleanup(func() {
		f.users.AssertExpectations(t)
		f.links.AssertExpectations(t)
	})
	return f
}

func hashedUser(t *testing.T, id uint, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: id, Username: username, PasswordHash: string(hash)}
}

func TestRegister(t *testing.T) {
	f := newAuthServiceFixture(t)
	username := gofakeit.Username()
	f.users.On("GetUserByUsername", mock.Anything, username).Return(nil, repository.ErrNotFound).Once()
	f.users.On("CreateUser", mock.Anything, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) { args.Get(1).(*models.User).ID = 1 }).
		Return(nil).Once()

	user, err := f.svc.Register(context.Background(), username, "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, uint(1), user.ID)
	assert.NotEqual(t, "s3cret!", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret!")))
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "ab", "s3cret!")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = f.svc.Register(ctx, "alice", "short")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRegister_UsernameTaken(t *testing.T) {
	f := newAuthServiceFixture(t)
	f.users.On("GetUserByUsername", mock.Anything, "alice").Return(&models.User{ID: 1, Username: "alice"}, nil).Once()
	f.users.On("GetUserByUsername", mock.Anything, "bob").Return(nil, repository.ErrNotFound).Once()
	f.users.On("CreateUser", mock.Anything, mock.Anything).Return(repository.ErrDuplicateKey).Once()

	_, err := f.svc.Register(context.Background(), "alice", "s3cret!")
	assert.ErrorIs(t, err, apperrors.ErrUsernameTaken)

	// Lost the race against a concurrent registration.
	_, err = f.svc.Register(context.Background(), "bob", "s3cret!")
	assert.ErrorIs(t, err, apperrors.ErrUsernameTaken)
}

func TestAuthenticate(t *testing.T) {
	f := newAuthServiceFixture(t)
	alice := hashedUser(t, 1, "alice", "s3cret!")
	f.users.On("GetUserByUsername", mock.Anything, "alice").Return(alice, nil)
	f.users.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, repository.ErrNotFound).Once()
	f.users.On("GetUserByUsername", mock.Anything, "broken").Return(nil, errors.New("db down")).Once()

	user, err := f.svc.Authenticate(context.Background(), "alice", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, uint(1), user.ID)

	_, err = f.svc.Authenticate(context.Background(), "alice", "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = f.svc.Authenticate(context.Background(), "ghost", "s3cret!")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = f.svc.Authenticate(context.Background(), "broken", "s3cret!")
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}

func TestAuthenticate_TrimsUsernameLikeRegister(t *testing.T) {
	f := newAuthServiceFixture(t)
	ctx := context.Background()
	f.users.On("GetUserByUsername", mock.Anything, "bob").Return(nil, repository.ErrNotFound).Once()
	var stored *models.User
	f.users.On("CreateUser", mock.Anything, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*models.User)
			stored.ID = 7
		}).Return(nil).Once()

	_, err := f.svc.Register(ctx, " bob ", "s3cret!")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "bob", stored.Username)

	f.users.On("GetUserByUsername", mock.Anything, "bob").Return(stored, nil).Once()
	user, err := f.svc.Authenticate(ctx, " bob ", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, uint(7), user.ID)
}

func TestAuthenticate_UnknownUserStillRunsBcrypt(t *testing.T) {
	f := newAuthServiceFixture(t)
	f.users.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, repository.ErrNotFound).Once()

	var compared [][]byte
	f.svc.compare = func(hash, password []byte) error {
		compared = append(compared, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	_, err := f.svc.Authenticate(context.Background(), "ghost", "s3cret!")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	require.Len(t, compared, 1)
	cost, err := bcrypt.Cost(compared[0])
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestSessions(t *testing.T) {
	f := newAuthServiceFixture(t)
	alice := &models.User{ID: 1, Username: "alice"}

	token, err := f.svc.IssueSession(alice)
	require.NoError(t, err)

	identity := f.svc.CurrentUser(token)
	require.NotNil(t, identity)
	assert.Equal(t, models.Identity{UserID: 1, Username: "alice"}, *identity)

	assert.Nil(t, f.svc.CurrentUser(""))
	assert.Nil(t, f.svc.CurrentUser("garbage"))

	require.NoError(t, f.svc.Revoke(token))
	assert.Nil(t, f.svc.CurrentUser(token))
	assert.ErrorIs(t, f.svc.Revoke(token), apperrors.ErrUnauthorized)
	assert.ErrorIs(t, f.svc.Revoke("garbage"), apperrors.ErrUnauthorized)
}

func TestSessions_ForeignSignatureIsAnonymous(t *testing.T) {
	f := newAuthServiceFixture(t)
	token, _, err := auth.NewSigner("another-secret").GenerateSessionJWT(1, "alice", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, f.svc.CurrentUser(token))
}

func TestClaimOrphanLinks(t *testing.T) {
	f := newAuthServiceFixture(t)
	alice := &models.User{ID: 1, Username: "alice"}
	f.links.On("ClaimAnonymousLinks", mock.Anything, "visitor-1", uint(1)).Return(int64(2), nil).Once()

	n, err := f.svc.ClaimOrphanLinks(context.Background(), alice, "")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.svc.ClaimOrphanLinks(context.Background(), alice, "visitor-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestLogin(t *testing.T) {
	f := newAuthServiceFixture(t)
	alice := hashedUser(t, 1, "alice", "s3cret!")
	f.users.On("GetUserByUsername", mock.Anything, "alice").Return(alice, nil)
	f.links.On("ClaimAnonymousLinks", mock.Anything, "visitor-1", uint(1)).Return(int64(0), errors.New("locked")).Once()

	token, err := f.svc.Login(context.Background(), "alice", "s3cret!", "visitor-1")
	require.NoError(t, err, "a failed claim must not fail the login")
	assert.NotNil(t, f.svc.CurrentUser(token))

	_, err = f.svc.Login(context.Background(), "alice", "nope-nope", "visitor-1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
