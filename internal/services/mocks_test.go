package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/axellelanca/shortener/internal/models"
)

type mockLinkRepository struct {
	mock.Mock
}

func (m *mockLinkRepository) CreateLink(ctx context.Context, link *models.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *mockLinkRepository) GetLinkByShortCode(ctx context.Context, shortCode string) (*models.Link, error) {
	args := m.Called(ctx, shortCode)
	link, _ := args.Get(0).(*models.Link)
	return link, args.Error(1)
}

func (m *mockLinkRepository) GetLinkByOriginalURL(ctx context.Context, originalURL string) (*models.Link, error) {
	args := m.Called(ctx, originalURL)
	link, _ := args.Get(0).(*models.Link)
	return link, args.Error(1)
}

func (m *mockLinkRepository) UpdateOriginalURL(ctx context.Context, shortCode string, ownerID uint, originalURL string) (*models.Link, error) {
	args := m.Called(ctx, shortCode, ownerID, originalURL)
	link, _ := args.Get(0).(*models.Link)
	return link, args.Error(1)
}

func (m *mockLinkRepository) DeleteLink(ctx context.Context, shortCode string, ownerID uint) error {
	args := m.Called(ctx, shortCode, ownerID)
	return args.Error(0)
}

func (m *mockLinkRepository) DeleteExpiredBefore(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	codes, _ := args.Get(0).([]string)
	return codes, args.Error(1)
}

func (m *mockLinkRepository) ClaimAnonymousLinks(ctx context.Context, visitorID string, userID uint) (int64, error) {
	args := m.Called(ctx, visitorID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLinkRepository) CountLinks(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockClickRepository struct {
	mock.Mock
}

func (m *mockClickRepository) IncrementClickCount(ctx context.Context, shortCode string, at time.Time) error {
	args := m.Called(ctx, shortCode, at)
	return args.Error(0)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

// mockCache fails or answers exactly as told.
type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetURL(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

func (m *mockCache) AddURL(ctx context.Context, code, url string, ttl time.Duration) error {
	return m.Called(ctx, code, url, ttl).Error(0)
}

func (m *mockCache) InvalidateURL(ctx context.Context, code string, hold time.Duration) error {
	return m.Called(ctx, code, hold).Error(0)
}

func (m *mockCache) GetStats(ctx context.Context, code string) (*models.LinkStats, error) {
	args := m.Called(ctx, code)
	stats, _ := args.Get(0).(*models.LinkStats)
	return stats, args.Error(1)
}

func (m *mockCache) AddStats(ctx context.Context, code string, stats *models.LinkStats, ttl time.Duration) error {
	return m.Called(ctx, code, stats, ttl).Error(0)
}

func (m *mockCache) InvalidateStats(ctx context.Context, code string, hold time.Duration) error {
	return m.Called(ctx, code, hold).Error(0)
}

func (m *mockCache) Close() error {
	return m.Called().Error(0)
}

// queueFunc adapts a function to ClickQueue.
type queueFunc func(models.ClickEvent) bool

func (f queueFunc) Enqueue(event models.ClickEvent) bool { return f(event) }
