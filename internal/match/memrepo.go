package match

import (
	"context"
	"sort"
	"sync"
)

// memrepo is an in-memory Repository used when no database is configured,
// and by tests.
type memrepo struct {
	mu sync.RWMutex

	matches map[string]*Match   // matchID -> match
	byUser  map[string][]*Match // userID -> matches, append order
	stats   map[string]*UserStats
}

func NewMemoryRepository() Repository {
	return &memrepo{
		matches: make(map[string]*Match),
		byUser:  make(map[string][]*Match),
		stats:   make(map[string]*UserStats),
	}
}

func (m *memrepo) InsertMatch(ctx context.Context, mt *Match) error {
	if mt == nil {
		return ErrDuplicateMatch
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.matches[mt.MatchID]; exists {
		return ErrDuplicateMatch
	}
	cp := *mt
	m.matches[mt.MatchID] = &cp
	for _, p := range mt.Players {
		m.byUser[p.UserID] = append(m.byUser[p.UserID], &cp)
	}
	return nil
}

func (m *memrepo) ApplyStatDelta(ctx context.Context, userID, displayName string, d StatDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats[userID]
	if s == nil {
		s = &UserStats{UserID: userID}
		m.stats[userID] = s
	}
	s.DisplayName = displayName
	s.Wins += d.Wins
	s.Losses += d.Losses
	s.Draws += d.Draws
	s.TotalGames = s.Wins + s.Losses + s.Draws
	if s.TotalGames > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TotalGames)
	} else {
		s.WinRate = 0
	}
	return nil
}

func (m *memrepo) GetStats(ctx context.Context, userID string) (*UserStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.stats[userID]
	if s == nil {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memrepo) Leaderboard(ctx context.Context, minGames, limit int) ([]*UserStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*UserStats, 0, len(m.stats))
	for _, s := range m.stats {
		if s.TotalGames >= minGames {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WinRate > out[j].WinRate })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memrepo) RecentMatches(ctx context.Context, userID string, limit int) ([]*Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.byUser[userID]
	items := append([]*Match(nil), list...)
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]*Match, 0, len(items))
	for _, it := range items {
		cp := *it
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memrepo) Close() error { return nil }
