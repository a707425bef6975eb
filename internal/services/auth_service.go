package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/axellelanca/shortener/internal/auth"
	apperrors "github.com/axellelanca/shortener/internal/errors"
	"github.com/axellelanca/shortener/internal/models"
	"github.com/axellelanca/shortener/internal/repository"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 6
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
)

// AuthService handles accounts, sessions and the claiming of anonymous links.
type AuthService struct {
	users      repository.UserRepository
	links      repository.LinkRepository
	signer     *auth.Signer
	sessions   *auth.SessionRegistry
	tokenTTL   time.Duration
	bcryptCost int

	// dummyHash is checked for unknown usernames so they cost a bcrypt
	// round like a wrong password does.
	dummyHash []byte
	compare   func(hashedPassword, password []byte) error

	log *logrus.Entry
}

// NewAuthService creates an AuthService. A zero tokenTTL means 24 hours and
// a zero bcryptCost means bcrypt.DefaultCost.
func NewAuthService(users repository.UserRepository, links repository.LinkRepository, signer *auth.Signer, sessions *auth.SessionRegistry, tokenTTL time.Duration, bcryptCost int, logger *logrus.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	log := logger.WithField("module", "services/auth")

	dummyHash, err := bcrypt.GenerateFromPassword([]byte("unknown-user-placeholder"), bcryptCost)
	if err != nil {
		log.WithError(err).Warn("failed to prepare placeholder password hash")
	}
	return &AuthService{
		users:      users,
		links:      links,
		signer:     signer,
		sessions:   sessions,
		tokenTTL:   tokenTTL,
		bcryptCost: bcryptCost,
		dummyHash:  dummyHash,
		compare:    bcrypt.CompareHashAndPassword,
		log:        log,
	}
}

// Register creates an account with a bcrypt hash of password.
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return nil, fmt.Errorf("%w: username must be %d to %d characters", apperrors.ErrValidation, minUsernameLength, maxUsernameLength)
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return nil, fmt.Errorf("%w: password must be %d to %d characters", apperrors.ErrValidation, minPasswordLength, maxPasswordLength)
	}

	logCtx := s.log.WithField("username", username)

	_, err := s.users.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUsernameTaken, username)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, storageError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to generate hash from password: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: string(hash)}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrUsernameTaken, username)
		}
		return nil, storageError(err)
	}

	logCtx.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// Authenticate checks a username and password. Unknown users and wrong
// passwords give the same ErrInvalidCredentials. The username is trimmed
// the same way Register stores it.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	logCtx := s.log.WithField("username", username)

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = s.compare(s.dummyHash, []byte(password))
			logCtx.Warn("login attempt failed: user not found")
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, storageError(err)
	}

	if err := s.compare([]byte(user.PasswordHash), []byte(password)); err != nil {
		logCtx.Warn("login attempt failed: invalid password")
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

// IssueSession signs an access token for user and registers its session.
func (s *AuthService) IssueSession(user *models.User) (string, error) {
	token, claims, err := s.signer.GenerateSessionJWT(user.ID, user.Username, s.tokenTTL)
	if err != nil {
		return "", err
	}
	s.sessions.Add(claims.ID, models.Identity{UserID: user.ID, Username: user.Username}, claims.ExpiresAt.Time)
	return token, nil
}

// CurrentUser returns the identity behind token, or nil when the token is
// missing, invalid, expired or revoked.
func (s *AuthService) CurrentUser(token string) *models.Identity {
	if token == "" {
		return nil
	}
	claims, err := s.signer.ValidateSessionJWT(token)
	if err != nil {
		s.log.WithError(err).Debug("rejected access token")
		return nil
	}
	identity, ok := s.sessions.Get(claims.ID)
	if !ok {
		return nil
	}
	return identity
}

// Revoke ends the session of token.
func (s *AuthService) Revoke(token string) error {
	claims, err := s.signer.ValidateSessionJWT(token)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}
	if _, ok := s.sessions.Get(claims.ID); !ok {
		return fmt.Errorf("%w: session already ended", apperrors.ErrUnauthorized)
	}
	s.sessions.Remove(claims.ID)
	s.log.WithField("user_id", claims.UserID).Info("session revoked")
	return nil
}

// ClaimOrphanLinks gives user the unowned links created by visitorID.
func (s *AuthService) ClaimOrphanLinks(ctx context.Context, user *models.User, visitorID string) (int64, error) {
	if visitorID == "" {
		return 0, nil
	}
	n, err := s.links.ClaimAnonymousLinks(ctx, visitorID, user.ID)
	if err != nil {
		return 0, storageError(err)
	}
	return n, nil
}

// Login authenticates, issues a token and claims the visitor's anonymous
// links. A failed claim does not fail the login.
func (s *AuthService) Login(ctx context.Context, username, password, visitorID string) (string, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}

	token, err := s.IssueSession(user)
	if err != nil {
		return "", err
	}

	logCtx := s.log.WithField("user_id", user.ID)
	claimed, err := s.ClaimOrphanLinks(ctx, user, visitorID)
	if err != nil {
		logCtx.WithError(err).Error("failed to claim anonymous links")
	} else if claimed > 0 {
		logCtx.WithField("claimed", claimed).Info("anonymous links claimed")
	}

	logCtx.Info("user logged in")
	return token, nil
}
