package auth

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/axellelanca/shortener/internal/models"
)

// SessionRegistry remembers the live access tokens by jti. A token whose jti
// is absent (expired or revoked) no longer authenticates.
type SessionRegistry struct {
	sessions *gocache.Cache
}

// NewSessionRegistry creates an empty registry purging expired sessions every cleanupInterval.
func NewSessionRegistry(cleanupInterval time.Duration) *SessionRegistry {
	return &SessionRegistry{sessions: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Add records a session until expiresAt. Sessions already expired are ignored.
func (r *SessionRegistry) Add(jti string, identity models.Identity, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	r.sessions.Set(jti, identity, ttl)
}

func (r *SessionRegistry) Get(jti string) (*models.Identity, bool) {
	v, ok := r.sessions.Get(jti)
	if !ok {
		return nil, false
	}
	identity := v.(models.Identity)
	return &identity, true
}

func (r *SessionRegistry) Remove(jti string) {
	r.sessions.Delete(jti)
}

// Count returns the number of sessions, expired ones not yet purged included.
func (r *SessionRegistry) Count() int {
	return r.sessions.ItemCount()
}
