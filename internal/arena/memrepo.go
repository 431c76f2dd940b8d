package arena

import (
	"context"
	"sync"
)

// memrepo is an in-memory Repository used when no database is configured
// and throughout the test suite.
type memrepo struct {
	mu      sync.RWMutex
	games   map[string]*GameSession
	players map[string]*PlayerRecord
}

func NewMemoryRepository() Repository {
	return &memrepo{
		games:   make(map[string]*GameSession),
		players: make(map[string]*PlayerRecord),
	}
}

func (m *memrepo) InsertGame(ctx context.Context, g *GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.games[g.ID] = &cp
	return nil
}

func (m *memrepo) UpdateGame(ctx context.Context, g *GameSession) error {
	return m.InsertGame(ctx, g)
}

func (m *memrepo) GetGame(ctx context.Context, id string) (*GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (m *memrepo) PlayerRecord(ctx context.Context, playerID string) (*PlayerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[playerID]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Formats = make(map[string]*RatingRecord, len(p.Formats))
	for f, rec := range p.Formats {
		rc := *rec
		rc.History = append([]RatingDay(nil), rec.History...)
		cp.Formats[f] = &rc
	}
	return &cp, nil
}

func (m *memrepo) FinalizeGame(ctx context.Context, g *GameSession, white, black *PlayerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	gcp := *g
	m.games[g.ID] = &gcp
	wcp := *white
	bcp := *black
	m.players[white.ID] = &wcp
	m.players[black.ID] = &bcp
	return nil
}
