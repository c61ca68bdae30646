// Package history keeps the bounded per-account conversation history.
//
// Each account has its own ordered sequence of turns, trimmed to the most
// recent MaxTurns entries. The in-memory map is authoritative for a running
// instance; an optional Redis write-through lets a restarted instance warm
// an account's history instead of starting cold.
package history

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"oracle/internal/pkg/cache"
)

// DefaultMaxTurns bounds a conversation when no limit is configured.
const DefaultMaxTurns = 10

// Turn is one user-query/reply pair. Immutable once created; insertion
// order is replayed verbatim into future prompts.
type Turn struct {
	UserText  string `json:"user_text"`
	ReplyText string `json:"reply_text"`
}

// Cache is the slice of the Redis wrapper the store uses for warm
// snapshots. *cache.RedisCache satisfies it.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Store holds per-account bounded conversation histories.
type Store struct {
	mu    sync.Mutex
	turns map[string][]Turn

	maxTurns int
	cache    Cache // nil disables the warm cache
	cacheTTL time.Duration
}

// NewStore creates a history store. cache may be nil.
func NewStore(maxTurns int, c Cache, cacheTTL time.Duration) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Store{
		turns:    make(map[string][]Turn),
		maxTurns: maxTurns,
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

// Turns returns a copy of the account's history in chronological order.
func (s *Store) Turns(ctx context.Context, accountID string) []Turn {
	s.mu.Lock()
	turns, ok := s.turns[accountID]
	s.mu.Unlock()

	if !ok && s.cache != nil {
		turns = s.warm(ctx, accountID)
	}

	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Append adds one completed turn and trims the history to the most recent
// maxTurns entries.
func (s *Store) Append(ctx context.Context, accountID string, turn Turn) {
	s.mu.Lock()
	turns := append(s.turns[accountID], turn)
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.turns[accountID] = turns
	snapshot := make([]Turn, len(turns))
	copy(snapshot, turns)
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.HistoryCacheKey(accountID), snapshot, s.cacheTTL); err != nil {
			log.Warn().Err(err).Str("account_id", accountID).Msg("failed to cache conversation history")
		}
	}
}

// warm loads an account's history from Redis after a restart. The loaded
// turns are kept only if the account still has no in-memory history.
func (s *Store) warm(ctx context.Context, accountID string) []Turn {
	var cached []Turn
	if err := s.cache.Get(ctx, cache.HistoryCacheKey(accountID), &cached); err != nil {
		return nil
	}
	if len(cached) > s.maxTurns {
		cached = cached[len(cached)-s.maxTurns:]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.turns[accountID]; ok {
		return existing
	}
	s.turns[accountID] = cached
	return cached
}

// Render serializes turns for prompt interpolation. An empty history
// renders as the empty string with no leading label; otherwise each turn
// becomes a User/God line pair in chronological order, with a blank line
// separating the block from whatever follows it in the prompt.
func Render(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("PREVIOUS CONVERSATION:\n")
	for _, t := range turns {
		b.WriteString("User: ")
		b.WriteString(t.UserText)
		b.WriteString("\n")
		b.WriteString("God: ")
		b.WriteString(t.ReplyText)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}
