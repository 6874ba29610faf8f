// internal/session/memory.go
//
// In-memory store for concealed-answer game sessions. When answer
// concealment is enabled, /api/init_game hands the client only a game ID
// and the answer lives here until the game finishes or expires.
//
// Characteristics:
//   - Sessions keyed by random ID in a map, guarded by an RWMutex.
//   - Entries expire after a fixed TTL; expired entries are dropped lazily.
//   - State is lost on restart, which matches a single-round session's
//     lifetime.

package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned for unknown or expired game IDs.
var ErrNotFound = errors.New("game session not found")

// Game holds the concealed answer between init and finish.
type Game struct {
	ID       string
	Username string
	Word     string
	Clue     string
	Created  time.Time
}

// Store defines the persistence interface for game sessions.
// Implementations may be backed by memory (this package), Redis, SQL, etc.
type Store interface {
	Save(ctx context.Context, g *Game) error
	Get(ctx context.Context, id string) (*Game, error)
	Delete(ctx context.Context, id string) error
}

// memory is a map-based Store with TTL eviction.
type memory struct {
	mu    sync.RWMutex
	games map[string]*Game
	ttl   time.Duration
}

// NewMemoryStore constructs an in-memory Store. A non-positive ttl
// selects one hour.
func NewMemoryStore(ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &memory{games: make(map[string]*Game), ttl: ttl}
}

// NewID creates a compact 16-hex-char session identifier.
func NewID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func (m *memory) Save(ctx context.Context, g *Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.Created.IsZero() {
		g.Created = time.Now()
	}
	m.games[g.ID] = g
	m.sweepLocked()
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*Game, error) {
	m.mu.RLock()
	g, ok := m.games[id]
	m.mu.RUnlock()
	if !ok || time.Since(g.Created) > m.ttl {
		return nil, ErrNotFound
	}
	return g, nil
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	return nil
}

// sweepLocked drops expired sessions. Caller holds the write lock.
func (m *memory) sweepLocked() {
	cutoff := time.Now().Add(-m.ttl)
	for id, g := range m.games {
		if g.Created.Before(cutoff) {
			delete(m.games, id)
		}
	}
}
