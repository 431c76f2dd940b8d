package arena

import "sync"

// ConnRegistry maps live channel ids to authenticated player ids for the
// connection's lifetime. It is the only component that touches channel
// identity directly; everything else looks players up by id.
type ConnRegistry struct {
	mu        sync.RWMutex
	byChannel map[string]string
	byPlayer  map[string]string
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{
		byChannel: make(map[string]string),
		byPlayer:  make(map[string]string),
	}
}

// Bind establishes identity for a channel. Rebinding the same channel to
// a new player replaces the old binding.
func (r *ConnRegistry) Bind(channelID, playerID string) {
	if channelID == "" || playerID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byChannel[channelID]; ok && prev != playerID {
		delete(r.byPlayer, prev)
	}
	r.byChannel[channelID] = playerID
	r.byPlayer[playerID] = channelID
}

// IdentityOf returns the player bound to a channel.
func (r *ConnRegistry) IdentityOf(channelID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byChannel[channelID]
	return p, ok
}

// ChannelOf returns the channel a player is currently connected on.
func (r *ConnRegistry) ChannelOf(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byPlayer[playerID]
	return c, ok
}

// Unbind removes a channel's binding and returns the player that was
// bound. Unknown channels are a no-op so disconnects can fire twice.
func (r *ConnRegistry) Unbind(channelID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byChannel[channelID]
	if !ok {
		return "", false
	}
	delete(r.byChannel, channelID)
	if r.byPlayer[p] == channelID {
		delete(r.byPlayer, p)
	}
	return p, true
}

// Count reports the number of bound channels.
func (r *ConnRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byChannel)
}
