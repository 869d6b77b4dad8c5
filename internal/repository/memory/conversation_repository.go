package memory

import (
	"context"
	"sync"
	"time"

	"pdf-qa-be/internal/entity"
	"pdf-qa-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// ConversationRepository keeps conversations in process memory. Entries expire after
// ttl without activity; beyond maxEntries the entry closest to expiry is evicted.
type ConversationRepository struct {
	cache      *cache.Cache
	maxEntries int
	mu         sync.Mutex
}

var _ contract.ConversationRepository = (*ConversationRepository)(nil)

func NewConversationRepository(ttl time.Duration, maxEntries int) *ConversationRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ConversationRepository{
		cache:      cache.New(ttl, 10*time.Minute),
		maxEntries: maxEntries,
	}
}

func (r *ConversationRepository) History(_ context.Context, conversationId string) ([]entity.ConversationTurn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if x, found := r.cache.Get(conversationId); found {
		turns := x.([]entity.ConversationTurn)
		out := make([]entity.ConversationTurn, len(turns))
		copy(out, turns)
		return out, nil
	}
	return nil, nil
}

func (r *ConversationRepository) Append(_ context.Context, conversationId string, turn entity.ConversationTurn, maxTurns int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var turns []entity.ConversationTurn
	if x, found := r.cache.Get(conversationId); found {
		turns = x.([]entity.ConversationTurn)
	} else if r.maxEntries > 0 {
		// ItemCount includes expired items the janitor has not purged yet.
		r.cache.DeleteExpired()
		if r.cache.ItemCount() >= r.maxEntries {
			r.evictOldest()
		}
	}

	next := make([]entity.ConversationTurn, 0, len(turns)+1)
	next = append(next, turns...)
	next = append(next, turn)
	if maxTurns > 0 && len(next) > maxTurns {
		next = next[len(next)-maxTurns:]
	}

	r.cache.Set(conversationId, next, cache.DefaultExpiration)
	return nil
}

func (r *ConversationRepository) Delete(_ context.Context, conversationId string) error {
	r.cache.Delete(conversationId)
	return nil
}

func (r *ConversationRepository) evictOldest() {
	var oldestKey string
	var oldest int64
	for k, item := range r.cache.Items() {
		if oldestKey == "" || item.Expiration < oldest {
			oldestKey = k
			oldest = item.Expiration
		}
	}
	if oldestKey != "" {
		r.cache.Delete(oldestKey)
	}
}
