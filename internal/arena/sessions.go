package arena

import "sync"

type liveSession struct {
	game    *GameSession
	ready   map[string]struct{}
	started bool
}

// SessionRegistry is the authoritative in-memory table of active games:
// room membership, readiness gating and status transitions. Sessions for
// different game ids are independent; there is no cross-game locking
// beyond the short-held registry mutex.
type SessionRegistry struct {
	mu    sync.Mutex
	live  map[string]*liveSession
	rooms map[string]string // channel id -> game id
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		live:  make(map[string]*liveSession),
		rooms: make(map[string]string),
	}
}

// Add registers a freshly persisted ongoing session.
func (r *SessionRegistry) Add(g *GameSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[g.ID] = &liveSession{game: g, ready: make(map[string]struct{})}
}

// Get returns a copy of the live session. Absent means retired or never
// created; callers treat that as "already finalized", not an error.
func (r *SessionRegistry) Get(gameID string) (GameSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.live[gameID]
	if !ok {
		return GameSession{}, false
	}
	return *ls.game, true
}

// JoinRoom adds a channel to the game's readiness set. The returned
// started flag is true exactly once, when the second occupant arrives;
// rejoining an already started room is a no-op that does not re-emit.
func (r *SessionRegistry) JoinRoom(gameID, channelID string) (started bool, occupants []string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.live[gameID]
	if !ok || ls.game.Status != StatusOngoing {
		return false, nil, ErrGameNotFound
	}
	ls.ready[channelID] = struct{}{}
	r.rooms[channelID] = gameID
	if len(ls.ready) >= 2 && !ls.started {
		ls.started = true
		started = true
	}
	for ch := range ls.ready {
		occupants = append(occupants, ch)
	}
	return started, occupants, nil
}

// RoomOf returns the game a channel has joined.
func (r *SessionRegistry) RoomOf(channelID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.rooms[channelID]
	return id, ok
}

// Occupants lists the channel ids that joined a game's room.
func (r *SessionRegistry) Occupants(gameID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.live[gameID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(ls.ready))
	for ch := range ls.ready {
		out = append(out, ch)
	}
	return out
}

// AppendMove records an advisory move and position snapshot. Dropped
// silently once the game is no longer ongoing.
func (r *SessionRegistry) AppendMove(gameID, move, fen string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.live[gameID]
	if !ok || ls.game.Status != StatusOngoing {
		return false
	}
	ls.game.Moves = append(ls.game.Moves, move)
	if fen != "" {
		ls.game.FEN = fen
	}
	return true
}

// Claim performs the ongoing→terminal compare-and-swap that guards
// finalization: the first caller wins and receives a sealed copy, any
// later caller gets false. Release reverts the swap when persistence
// fails so a retry stays safe.
func (r *SessionRegistry) Claim(gameID string, to Status) (GameSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.live[gameID]
	if !ok || ls.game.Status != StatusOngoing {
		return GameSession{}, false
	}
	ls.game.Status = to
	return *ls.game, true
}

// Release undoes a Claim after a failed persist, restoring ongoing.
func (r *SessionRegistry) Release(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ls, ok := r.live[gameID]; ok && ls.game.Status != StatusOngoing {
		ls.game.Status = StatusOngoing
	}
}

// Retire removes a terminal session from the live table together with
// its room mappings. The persisted record remains.
func (r *SessionRegistry) Retire(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.live[gameID]
	if !ok {
		return
	}
	for ch := range ls.ready {
		if r.rooms[ch] == gameID {
			delete(r.rooms, ch)
		}
	}
	delete(r.live, gameID)
}

// Count reports the number of live sessions.
func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}
