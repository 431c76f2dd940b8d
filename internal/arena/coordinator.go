package arena

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/playsquare/arena-server/internal/obslog"
)

// SnapshotCache mirrors live sessions into a fast external store so a
// restarted process can be inspected. Advisory: the in-memory registry
// stays authoritative, failures are logged and swallowed.
type SnapshotCache interface {
	Save(ctx context.Context, g *GameSession) error
	Delete(ctx context.Context, g *GameSession) error
}

// Archiver keeps a queryable archive of finished games.
type Archiver interface {
	SaveResult(ctx context.Context, g *GameSession) error
}

// Coordinator owns the matchmaking queue, the connection and session
// registries, and runs pairing, relay and finalization. One instance per
// process; all state is reachable through it so the core is testable in
// isolation.
type Coordinator struct {
	conns    *ConnRegistry
	queue    *Queue
	sessions *SessionRegistry
	repo     Repository
	send     Sender

	snap    SnapshotCache
	archive Archiver

	maxGames int
	now      func() time.Time
}

func NewCoordinator(repo Repository, send Sender, src rand.Source, maxGames int) *Coordinator {
	return &Coordinator{
		conns:    NewConnRegistry(),
		queue:    NewQueue(src),
		sessions: NewSessionRegistry(),
		repo:     repo,
		send:     send,
		maxGames: maxGames,
		now:      time.Now,
	}
}

// AttachSnapshots wires the optional live snapshot cache.
func (c *Coordinator) AttachSnapshots(s SnapshotCache) { c.snap = s }

// AttachArchive wires the optional finished-game archive.
func (c *Coordinator) AttachArchive(a Archiver) { c.archive = a }

// HandleFindMatch binds the channel identity, enqueues the player and,
// when pairing succeeds, creates and persists the session before either
// side is notified.
func (c *Coordinator) HandleFindMatch(ctx context.Context, channelID string, req FindMatchRequest) {
	if req.PlayerID == "" {
		c.send.Send(channelID, EvtMatchmakingError, ErrorEvent{Reason: ErrInvalidRequest.Error()})
		return
	}
	c.conns.Bind(channelID, req.PlayerID)

	entry := &WaitingEntry{
		ChannelID:   channelID,
		PlayerID:    req.PlayerID,
		DisplayName: req.DisplayName,
		AvatarRef:   req.AvatarRef,
		Rating:      req.Rating,
		TimeControl: req.TimeControl,
		QueuedAt:    c.now(),
	}
	pairing, ok := c.queue.Enqueue(entry)
	if !ok {
		obslog.L().Debug("mm_queued",
			zap.String("player_id", req.PlayerID),
			zap.String("time_control", req.TimeControl.String()),
			zap.Int("rating", req.Rating),
		)
		return
	}
	c.startGame(ctx, pairing)
}

// HandleCancelMatchmaking removes the caller's waiting entry if any.
func (c *Coordinator) HandleCancelMatchmaking(channelID string) {
	playerID, ok := c.conns.IdentityOf(channelID)
	if !ok {
		return
	}
	if c.queue.Cancel(playerID) {
		obslog.L().Debug("mm_cancel", zap.String("player_id", playerID))
	}
}

func (c *Coordinator) startGame(ctx context.Context, p Pairing) {
	if c.maxGames > 0 && c.sessions.Count() >= c.maxGames {
		c.notifyMatchFailure(p, ErrServerFull)
		return
	}

	now := c.now()
	g := &GameSession{
		ID:          uuid.NewString(),
		WhiteID:     p.White.PlayerID,
		WhiteName:   p.White.DisplayName,
		WhiteRating: p.White.Rating,
		BlackID:     p.Black.PlayerID,
		BlackName:   p.Black.DisplayName,
		BlackRating: p.Black.Rating,
		TimeControl: p.White.TimeControl,
		Format:      p.White.TimeControl.Format(),
		Status:      StatusOngoing,
		Moves:       []string{},
		CreatedAt:   now,
	}

	if err := c.repo.InsertGame(ctx, g); err != nil {
		obslog.L().Error("game_create_persist_error", zap.String("game_id", g.ID), zap.Error(err))
		// Both sides get a recoverable failure signal. They are NOT
		// re-enqueued: the client decides whether to retry.
		c.notifyMatchFailure(p, ErrPersistFailed)
		return
	}
	c.sessions.Add(g)
	c.saveSnapshot(ctx, g)

	obslog.L().Info("match_found",
		zap.String("game_id", g.ID),
		zap.String("white_id", g.WhiteID),
		zap.String("black_id", g.BlackID),
		zap.String("format", g.Format),
		zap.String("time_control", g.TimeControl.String()),
	)

	c.send.Send(p.White.ChannelID, EvtMatchFound, MatchFound{
		GameID:        g.ID,
		Opponent:      summary(p.Black),
		AssignedColor: White,
		TimeControl:   g.TimeControl,
	})
	c.send.Send(p.Black.ChannelID, EvtMatchFound, MatchFound{
		GameID:        g.ID,
		Opponent:      summary(p.White),
		AssignedColor: Black,
		TimeControl:   g.TimeControl,
	})
}

func (c *Coordinator) notifyMatchFailure(p Pairing, reason error) {
	ev := ErrorEvent{Reason: reason.Error()}
	c.send.Send(p.White.ChannelID, EvtMatchmakingError, ev)
	c.send.Send(p.Black.ChannelID, EvtMatchmakingError, ev)
}

func summary(e *WaitingEntry) OpponentSummary {
	return OpponentSummary{
		PlayerID:    e.PlayerID,
		DisplayName: e.DisplayName,
		AvatarRef:   e.AvatarRef,
		Rating:      e.Rating,
	}
}

// HandleJoinGame adds the channel to the game room. The start signal is
// emitted exactly once, when the second occupant arrives.
func (c *Coordinator) HandleJoinGame(ctx context.Context, channelID string, req JoinGameRequest) {
	if req.PlayerID != "" {
		c.conns.Bind(channelID, req.PlayerID)
	}
	started, occupants, err := c.sessions.JoinRoom(req.GameID, channelID)
	if err != nil {
		c.send.Send(channelID, EvtGameError, ErrorEvent{Reason: ErrGameNotFound.Error()})
		return
	}
	if !started {
		return
	}
	obslog.L().Info("game_start", zap.String("game_id", req.GameID))
	for _, ch := range occupants {
		c.send.Send(ch, EvtGameStart, GameStart{GameID: req.GameID})
	}
}

// HandleDisconnect is the lifecycle supervisor's entry point: evict any
// waiting entry, surface the disconnect to the opponent, and abandon the
// game only when nobody is left in the room. It never finalizes by
// itself; terminal events still flow through Finalize.
func (c *Coordinator) HandleDisconnect(ctx context.Context, channelID string) {
	playerID, had := c.conns.Unbind(channelID)
	if had {
		c.queue.Cancel(playerID)
	}

	gameID, ok := c.sessions.RoomOf(channelID)
	if !ok {
		return
	}
	g, ok := c.sessions.Get(gameID)
	if !ok || g.Status != StatusOngoing {
		return
	}

	obslog.L().Info("player_disconnected",
		zap.String("game_id", gameID),
		zap.String("player_id", playerID),
	)

	remaining := 0
	for _, ch := range c.sessions.Occupants(gameID) {
		if ch == channelID {
			continue
		}
		if _, alive := c.conns.IdentityOf(ch); alive {
			remaining++
			c.send.Send(ch, EvtOpponentDisconnected, struct{}{})
		}
	}
	if remaining == 0 {
		c.abandon(ctx, gameID)
	}
}

// Stats are the gauges exposed by the status endpoint.
type Stats struct {
	Connections int `json:"connections"`
	QueueDepth  int `json:"queueDepth"`
	ActiveGames int `json:"activeGames"`
}

func (c *Coordinator) Stats() Stats {
	return Stats{
		Connections: c.conns.Count(),
		QueueDepth:  c.queue.Len(),
		ActiveGames: c.sessions.Count(),
	}
}

func (c *Coordinator) saveSnapshot(ctx context.Context, g *GameSession) {
	if c.snap == nil {
		return
	}
	if err := c.snap.Save(ctx, g); err != nil {
		obslog.L().Warn("snapshot_save_error", zap.String("game_id", g.ID), zap.Error(err))
	}
}

func (c *Coordinator) dropSnapshot(ctx context.Context, g *GameSession) {
	if c.snap == nil {
		return
	}
	if err := c.snap.Delete(ctx, g); err != nil {
		obslog.L().Warn("snapshot_delete_error", zap.String("game_id", g.ID), zap.Error(err))
	}
}
