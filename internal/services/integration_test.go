package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axellelanca/shortener/internal/cache"
	apperrors "github.com/axellelanca/shortener/internal/errors"
	"github.com/axellelanca/shortener/internal/models"
	"github.com/axellelanca/shortener/internal/repository"
)

// newStoreBackedService wires a LinkService on a SQLite file and an in-memory cache.
func newStoreBackedService(t *testing.T) *LinkService {
	svc, _ := newGatedStoreBackedService(t)
	return svc
}

// newGatedStoreBackedService is newStoreBackedService with link reads going
// through a gate that can hold one read after the row was loaded.
func newGatedStoreBackedService(t *testing.T) (*LinkService, *gatedLinkRepository) {
	t.Helper()
	db, err := repository.Open(repository.Options{
		Driver: repository.DriverSQLite,
		Name:   filepath.Join(t.TempDir(), "links.db"),
	}, newTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close(db) })

	links := &gatedLinkRepository{LinkRepository: repository.NewLinkRepository(db)}
	svc := NewLinkService(links, repository.NewClickRepository(db),
		cache.NewMemory(time.Minute), LinkServiceOptions{}, newTestLogger())
	return svc, links
}

type gatedLinkRepository struct {
	repository.LinkRepository

	armed   atomic.Bool
	held    chan struct{}
	release chan struct{}
}

// holdNextRead makes the next GetLinkByShortCode block once it has its row.
// held is closed when that happens; closing release lets it return.
func (r *gatedLinkRepository) holdNextRead() {
	r.held = make(chan struct{})
	r.release = make(chan struct{})
	r.armed.Store(true)
}

func (r *gatedLinkRepository) GetLinkByShortCode(ctx context.Context, code string) (*models.Link, error) {
	link, err := r.LinkRepository.GetLinkByShortCode(ctx, code)
	if r.armed.CompareAndSwap(true, false) {
		close(r.held)
		<-r.release
	}
	return link, err
}

func TestLinkService_ConcurrentResolvesCountEveryClick(t *testing.T) {
	ctx := context.Background()
	svc := newStoreBackedService(t)

	link, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "https://example.com/landing"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			target, err := svc.Resolve(ctx, link.ShortCode)
			assert.NoError(t, err)
			assert.Equal(t, "https://example.com/landing", target)
		}()
	}
	wg.Wait()

	stats, err := svc.Stats(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.ClickCount)
	assert.False(t, stats.LastUsedAt.Before(link.CreatedAt))
}

func TestLinkService_SearchMatchesNormalizedForms(t *testing.T) {
	ctx := context.Background()
	svc := newStoreBackedService(t)

	first, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "https://Example.com/Docs%20Page"})
	require.NoError(t, err)
	_, err = svc.Shorten(ctx, ShortenInput{OriginalURL: "https://example.com/docs page"})
	require.NoError(t, err)

	found, err := svc.FindByOriginalURL(ctx, "HTTPS://EXAMPLE.COM/DOCS%20PAGE")
	require.NoError(t, err)
	assert.Equal(t, first.ShortCode, found.ShortCode)
}

func TestLinkService_ReclaimRemovesOnlyExpired(t *testing.T) {
	ctx := context.Background()
	svc := newStoreBackedService(t)

	soon := time.Now().UTC().Add(50 * time.Millisecond)
	expiring, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "https://example.com/short-lived", ExpiresAt: &soon})
	require.NoError(t, err)
	kept, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "https://example.com/kept"})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, expiring.ShortCode)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	// Expired but not yet swept: already gone for readers.
	_, err = svc.Resolve(ctx, expiring.ShortCode)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	n, err := svc.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = svc.Stats(ctx, expiring.ShortCode)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.Resolve(ctx, kept.ShortCode)
	assert.NoError(t, err)
}

func TestLinkService_ConcurrentSameAliasHasOneWinner(t *testing.T) {
	ctx := context.Background()
	svc := newStoreBackedService(t)

	const attempts = 20
	var created, taken, other atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "https://example.com/race", CustomAlias: "same_alias"})
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, apperrors.ErrAliasTaken):
				taken.Add(1)
			default:
				other.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(attempts-1), taken.Load())
	assert.Zero(t, other.Load())
}

func TestLinkService_UpdateDuringResolveIsNotOverwrittenInCache(t *testing.T) {
	ctx := context.Background()
	svc, links := newGatedStoreBackedService(t)
	owner := uintPtr(1)

	link, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "https://old.example", UserID: owner})
	require.NoError(t, err)

	links.holdNextRead()
	resolved := make(chan string, 1)
	go func() {
		target, err := svc.Resolve(ctx, link.ShortCode)
		assert.NoError(t, err)
		resolved <- target
	}()
	<-links.held

	_, err = svc.UpdateURL(ctx, link.ShortCode, "https://new.example", owner)
	require.NoError(t, err)
	close(links.release)

	// That resolve read the row before the update.
	assert.Equal(t, "https://old.example", <-resolved)

	target, err := svc.Resolve(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://new.example", target)
}

func TestLinkService_DeleteDuringResolveIsNotOverwrittenInCache(t *testing.T) {
	ctx := context.Background()
	svc, links := newGatedStoreBackedService(t)
	owner := uintPtr(1)

	link, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "https://example.com/doomed", UserID: owner})
	require.NoError(t, err)

	links.holdNextRead()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.Resolve(ctx, link.ShortCode)
		assert.NoError(t, err)
	}()
	<-links.held

	require.NoError(t, svc.Delete(ctx, link.ShortCode, owner))
	close(links.release)
	<-done

	_, err = svc.Resolve(ctx, link.ShortCode)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLinkService_ClickDuringStatsIsNotOverwrittenInCache(t *testing.T) {
	ctx := context.Background()
	svc, links := newGatedStoreBackedService(t)

	link, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "https://example.com/counted"})
	require.NoError(t, err)

	links.holdNextRead()
	read := make(chan int64, 1)
	go func() {
		stats, err := svc.Stats(ctx, link.ShortCode)
		if !assert.NoError(t, err) {
			read <- -1
			return
		}
		read <- stats.ClickCount
	}()
	<-links.held

	require.NoError(t, svc.RecordClick(ctx, link.ShortCode, time.Now().UTC()))
	close(links.release)
	assert.Equal(t, int64(0), <-read)

	stats, err := svc.Stats(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ClickCount)
}
