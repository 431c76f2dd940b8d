package arena

import (
	"context"

	"go.uber.org/zap"

	"github.com/playsquare/arena-server/internal/obslog"
)

// HandleMove forwards a move to the other room occupant unmodified and
// appends it to the advisory log. No legality checking happens here:
// the engine trusts client-reported moves and positions. A sender with
// no room (stale message after game end) is dropped silently.
func (c *Coordinator) HandleMove(ctx context.Context, channelID string, p MovePayload) {
	gameID, ok := c.sessions.RoomOf(channelID)
	if !ok {
		return
	}
	if !c.sessions.AppendMove(gameID, p.Move, p.Position) {
		return
	}
	c.forward(channelID, gameID, EvtOpponentMove, MovePayload{
		GameID:   gameID,
		Move:     p.Move,
		Position: p.Position,
	})
	if g, ok := c.sessions.Get(gameID); ok {
		c.saveSnapshot(ctx, &g)
	}
}

// HandleChat relays chat text to the other occupant. Never persisted.
func (c *Coordinator) HandleChat(channelID string, p ChatPayload) {
	gameID, ok := c.sessions.RoomOf(channelID)
	if !ok {
		return
	}
	c.forward(channelID, gameID, EvtOpponentChat, ChatPayload{GameID: gameID, Text: p.Text})
}

func (c *Coordinator) forward(from, gameID, event string, data any) {
	for _, ch := range c.sessions.Occupants(gameID) {
		if ch == from {
			continue
		}
		c.send.Send(ch, event, data)
	}
	obslog.L().Debug("relay", zap.String("game_id", gameID), zap.String("event", event))
}
