package memory

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"shop-assistant-be/pkg/store"
)

const (
	sessionTTL = 30 * time.Minute
	purgeEvery = 5 * time.Minute
)

// SessionRepository keeps refinement contexts in memory with TTL
// eviction. An abandoned exchange simply ages out; the next message on
// that session starts from Idle.
type SessionRepository struct {
	cache *cache.Cache
	locks sync.Map // session id -> *sync.Mutex
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		cache: cache.New(sessionTTL, purgeEvery),
	}
}

// Lock serializes turns on one session. The returned func releases it.
// Mutexes are never removed from the map; sessions are bounded by TTL
// eviction and the ids are reused across a conversation.
func (r *SessionRepository) Lock(sessionID string) func() {
	mu, _ := r.locks.LoadOrStore(sessionID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (r *SessionRepository) Save(rc *store.RefinementContext) {
	r.cache.Set(rc.SessionID, rc, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*store.RefinementContext, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.RefinementContext), true
	}
	return nil, false
}

func (r *SessionRepository) Evict(sessionID string) {
	r.cache.Delete(sessionID)
}
