// Package services contains the business logic layer for the URL shortener application
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/axellelanca/shortener/internal/cache"
	apperrors "github.com/axellelanca/shortener/internal/errors"
	"github.com/axellelanca/shortener/internal/models"
	"github.com/axellelanca/shortener/internal/repository"
)

// aliasPattern restricts custom aliases to URL-safe characters.
var aliasPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{4,20}$`)

// ClickQueue hands click events to the background workers. Enqueue reports
// false when the event was not accepted (buffer full or queue stopped).
type ClickQueue interface {
	Enqueue(event models.ClickEvent) bool
}

// ShortenInput carries the parameters of a shorten request.
type ShortenInput struct {
	OriginalURL string
	CustomAlias string
	ExpiresAt   *time.Time
	UserID      *uint  // nil for anonymous requests
	VisitorID   string // anonymous client id, kept on unowned links
}

// LinkServiceOptions tunes code generation, expiry and caching.
type LinkServiceOptions struct {
	CodeLength  int
	MaxAttempts int
	DefaultTTL  time.Duration
	CacheTTL    time.Duration

	// InvalidationHold is how long a mutated entry refuses repopulation.
	// It must exceed the slowest store read of a resolve or stats call.
	InvalidationHold time.Duration

	Generate CodeGenerator    // defaults to GenerateShortCode
	Now      func() time.Time // defaults to time.Now in UTC
}

// LinkService provides business logic methods for managing shortened links.
// It sits between the HTTP handlers and the link store, with the cache in front of the store.
type LinkService struct {
	links  repository.LinkRepository
	clicks repository.ClickRepository
	cache  cache.Cache
	queue  ClickQueue

	generate    CodeGenerator
	now         func() time.Time
	codeLength  int
	maxAttempts int
	defaultTTL  time.Duration
	cacheTTL    time.Duration
	hold        time.Duration

	log *logrus.Entry
}

// NewLinkService creates and returns a new instance of LinkService.
func NewLinkService(links repository.LinkRepository, clicks repository.ClickRepository, c cache.Cache, opts LinkServiceOptions, logger *logrus.Logger) *LinkService {
	if opts.Generate == nil {
		opts.Generate = GenerateShortCode
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.CodeLength <= 0 {
		opts.CodeLength = models.ShortCodeLength
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 20
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 30 * 24 * time.Hour
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.InvalidationHold <= 0 {
		opts.InvalidationHold = 30 * time.Second
	}
	if c == nil {
		c = cache.Noop{}
	}
	return &LinkService{
		links:       links,
		clicks:      clicks,
		cache:       c,
		generate:    opts.Generate,
		now:         opts.Now,
		codeLength:  opts.CodeLength,
		maxAttempts: opts.MaxAttempts,
		defaultTTL:  opts.DefaultTTL,
		cacheTTL:    opts.CacheTTL,
		hold:        opts.InvalidationHold,
		log:         logger.WithField("module", "services/link"),
	}
}

// UseClickQueue routes click events through q instead of recording them inline.
func (s *LinkService) UseClickQueue(q ClickQueue) {
	s.queue = q
}

// Shorten stores a new link for in.OriginalURL, under in.CustomAlias when set
// or under a freshly generated code otherwise.
func (s *LinkService) Shorten(ctx context.Context, in ShortenInput) (*models.Link, error) {
	if strings.TrimSpace(in.OriginalURL) == "" {
		return nil, fmt.Errorf("%w: original url is required", apperrors.ErrValidation)
	}

	now := s.now()
	expiresAt := now.Add(s.defaultTTL)
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(now) {
			return nil, fmt.Errorf("%w: expiry must be in the future", apperrors.ErrValidation)
		}
		expiresAt = in.ExpiresAt.UTC()
	}

	link := &models.Link{
		OriginalURL: NormalizeURL(in.OriginalURL),
		ExpiresAt:   expiresAt,
		UserID:      in.UserID,
		LastUsedAt:  now,
	}
	if in.UserID == nil && in.VisitorID != "" {
		visitorID := in.VisitorID
		link.VisitorID = &visitorID
	}

	if in.CustomAlias != "" {
		return s.createWithAlias(ctx, link, in.CustomAlias)
	}
	return s.createWithGeneratedCode(ctx, link)
}

func (s *LinkService) createWithAlias(ctx context.Context, link *models.Link, alias string) (*models.Link, error) {
	if !aliasPattern.MatchString(alias) {
		return nil, fmt.Errorf("%w: alias must be 4 to 20 characters among letters, digits, '_' and '-'", apperrors.ErrValidation)
	}

	// The unique index is the real guard; the lookup only gives a clean error early.
	_, err := s.links.GetLinkByShortCode(ctx, alias)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrAliasTaken, alias)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, storageError(err)
	}

	link.ShortCode = alias
	if err := s.links.CreateLink(ctx, link); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrAliasTaken, alias)
		}
		return nil, storageError(err)
	}

	s.log.WithField("short_code", link.ShortCode).Info("link created with custom alias")
	return link, nil
}

// createWithGeneratedCode retries on collisions until a code is accepted by the store.
func (s *LinkService) createWithGeneratedCode(ctx context.Context, link *models.Link) (*models.Link, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.generate(s.codeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}

		link.ShortCode = code
		err = s.links.CreateLink(ctx, link)
		if err == nil {
			s.log.WithField("short_code", code).Info("link created")
			return link, nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, storageError(err)
		}

		s.log.WithFields(logrus.Fields{
			"short_code": code,
			"attempt":    attempt,
		}).Debug("short code already exists, retrying generation")
	}

	s.log.WithField("attempts", s.maxAttempts).Error("no free short code found")
	return nil, fmt.Errorf("%w after %d attempts", apperrors.ErrCodeSpaceExhausted, s.maxAttempts)
}

// Resolve returns the original URL behind code and records a click.
// Expired links not yet reclaimed resolve as not found.
func (s *LinkService) Resolve(ctx context.Context, code string) (string, error) {
	now := s.now()

	target, err := s.cache.GetURL(ctx, code)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.cacheFailure(err, "get url", code)
		}

		link, err := s.activeLink(ctx, code, now)
		if err != nil {
			return "", err
		}
		target = link.OriginalURL

		if err := s.cache.AddURL(ctx, code, target, s.entryTTL(link, now)); err != nil {
			s.cacheFailure(err, "add url", code)
		}
	}

	s.trackClick(ctx, code, now)
	return target, nil
}

// FindByOriginalURL returns the oldest live link pointing at rawURL.
func (s *LinkService) FindByOriginalURL(ctx context.Context, rawURL string) (*models.Link, error) {
	link, err := s.links.GetLinkByOriginalURL(ctx, NormalizeURL(rawURL))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: no link for %s", apperrors.ErrNotFound, rawURL)
		}
		return nil, storageError(err)
	}
	if link.IsExpired(s.now()) {
		return nil, fmt.Errorf("%w: no link for %s", apperrors.ErrNotFound, rawURL)
	}
	return link, nil
}

// UpdateURL points code at newURL. Only the owner of the link may do it.
func (s *LinkService) UpdateURL(ctx context.Context, code, newURL string, requester *uint) (*models.Link, error) {
	if err := s.checkOwnership(ctx, code, requester); err != nil {
		return nil, err
	}
	if strings.TrimSpace(newURL) == "" {
		return nil, fmt.Errorf("%w: new url is required", apperrors.ErrValidation)
	}

	link, err := s.links.UpdateOriginalURL(ctx, code, *requester, NormalizeURL(newURL))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrNotFound, code)
		}
		return nil, storageError(err)
	}

	s.invalidate(ctx, code)
	s.log.WithField("short_code", code).Info("link updated")
	return link, nil
}

// Delete removes code. Only the owner of the link may do it.
func (s *LinkService) Delete(ctx context.Context, code string, requester *uint) error {
	if err := s.checkOwnership(ctx, code, requester); err != nil {
		return err
	}

	if err := s.links.DeleteLink(ctx, code, *requester); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", apperrors.ErrNotFound, code)
		}
		return storageError(err)
	}

	s.invalidate(ctx, code)
	s.log.WithField("short_code", code).Info("link deleted")
	return nil
}

// Stats returns the usage of code, from the cache when possible.
func (s *LinkService) Stats(ctx context.Context, code string) (*models.LinkStats, error) {
	stats, err := s.cache.GetStats(ctx, code)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.cacheFailure(err, "get stats", code)
	}

	now := s.now()
	link, err := s.activeLink(ctx, code, now)
	if err != nil {
		return nil, err
	}

	stats = link.Stats()
	if err := s.cache.AddStats(ctx, code, stats, s.entryTTL(link, now)); err != nil {
		s.cacheFailure(err, "add stats", code)
	}
	return stats, nil
}

// RecordClick adds one click to code. The cached stats are invalidated so the
// next read sees the new count.
func (s *LinkService) RecordClick(ctx context.Context, code string, at time.Time) error {
	if err := s.clicks.IncrementClickCount(ctx, code, at); err != nil {
		return apperrors.ErrClickRecordingFailed{ShortCode: code, Reason: err.Error()}
	}
	if err := s.cache.InvalidateStats(ctx, code, s.hold); err != nil {
		s.cacheFailure(err, "invalidate stats", code)
	}
	return nil
}

// ReclaimExpired deletes every expired link and evicts them from the cache.
func (s *LinkService) ReclaimExpired(ctx context.Context) (int64, error) {
	codes, err := s.links.DeleteExpiredBefore(ctx, s.now())
	if err != nil {
		return 0, storageError(err)
	}
	for _, code := range codes {
		s.invalidate(ctx, code)
	}
	return int64(len(codes)), nil
}

// CountLinks returns the number of stored links, expired ones included.
func (s *LinkService) CountLinks(ctx context.Context) (int64, error) {
	n, err := s.links.CountLinks(ctx)
	if err != nil {
		return 0, storageError(err)
	}
	return n, nil
}

// activeLink loads code from the store, hiding expired links.
func (s *LinkService) activeLink(ctx context.Context, code string, now time.Time) (*models.Link, error) {
	link, err := s.links.GetLinkByShortCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrNotFound, code)
		}
		return nil, storageError(err)
	}
	if link.IsExpired(now) {
		return nil, fmt.Errorf("%w: %s has expired", apperrors.ErrNotFound, code)
	}
	return link, nil
}

// checkOwnership runs the authorization chain shared by update and delete:
// anonymous, then unknown code, then wrong owner.
func (s *LinkService) checkOwnership(ctx context.Context, code string, requester *uint) error {
	if requester == nil {
		return fmt.Errorf("%w: login required to modify %s", apperrors.ErrUnauthorized, code)
	}
	link, err := s.links.GetLinkByShortCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", apperrors.ErrNotFound, code)
		}
		return storageError(err)
	}
	if !link.OwnedBy(*requester) {
		return fmt.Errorf("%w: %s", apperrors.ErrForbidden, code)
	}
	return nil
}

// trackClick queues the click, or records it inline when the queue refuses it.
// A failure is logged and never reaches the caller.
func (s *LinkService) trackClick(ctx context.Context, code string, at time.Time) {
	event := models.ClickEvent{ShortCode: code, Timestamp: at}
	if s.queue != nil && s.queue.Enqueue(event) {
		return
	}
	if err := s.RecordClick(ctx, code, at); err != nil {
		s.log.WithError(err).WithField("short_code", code).Warn("click not recorded")
	}
}

func (s *LinkService) invalidate(ctx context.Context, code string) {
	if err := s.cache.InvalidateURL(ctx, code, s.hold); err != nil {
		s.cacheFailure(err, "invalidate url", code)
	}
	if err := s.cache.InvalidateStats(ctx, code, s.hold); err != nil {
		s.cacheFailure(err, "invalidate stats", code)
	}
}

// entryTTL keeps a cache entry from outliving its link.
func (s *LinkService) entryTTL(link *models.Link, now time.Time) time.Duration {
	ttl := s.cacheTTL
	if remaining := link.ExpiresAt.Sub(now); remaining < ttl {
		ttl = remaining
	}
	return ttl
}

func (s *LinkService) cacheFailure(err error, op, code string) {
	s.log.WithError(fmt.Errorf("%w: %v", apperrors.ErrCacheUnavailable, err)).
		WithFields(logrus.Fields{"op": op, "short_code": code}).
		Warn("cache unavailable, falling back to store")
}

func storageError(err error) error {
	return fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
}
