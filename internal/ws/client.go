package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playsquare/arena-server/internal/arena"
	"github.com/playsquare/arena-server/internal/obslog"
)

const writeTimeout = 5 * time.Second

// Inbound frame types understood by the dispatcher.
const (
	msgFindMatch         = "find_match"
	msgCancelMatchmaking = "cancel_matchmaking"
	msgJoinGame          = "join_game"
	msgMove              = "move"
	msgChat              = "chat"
	msgResign            = "resign"
	msgGameOver          = "game_over"
)

// Client is one live channel: a websocket connection plus its transient
// channel id.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub

	writeMu sync.Mutex
}

func newClient(id string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{id: id, conn: conn, hub: hub}
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		var env Envelope
		if err := wsjson.Read(ctx, c.conn, &env); err != nil {
			return
		}
		c.dispatch(ctx, env)
	}
}

func (c *Client) dispatch(ctx context.Context, env Envelope) {
	coord := c.hub.coord
	if coord == nil {
		return
	}
	switch env.Type {
	case msgFindMatch:
		var req arena.FindMatchRequest
		if !c.decode(env, &req) {
			return
		}
		coord.HandleFindMatch(ctx, c.id, req)
	case msgCancelMatchmaking:
		coord.HandleCancelMatchmaking(c.id)
	case msgJoinGame:
		var req arena.JoinGameRequest
		if !c.decode(env, &req) {
			return
		}
		coord.HandleJoinGame(ctx, c.id, req)
	case msgMove:
		var p arena.MovePayload
		if !c.decode(env, &p) {
			return
		}
		coord.HandleMove(ctx, c.id, p)
	case msgChat:
		var p arena.ChatPayload
		if !c.decode(env, &p) {
			return
		}
		coord.HandleChat(c.id, p)
	case msgResign:
		coord.HandleResign(ctx, c.id)
	case msgGameOver:
		var rep arena.GameOverReport
		if !c.decode(env, &rep) {
			return
		}
		coord.HandleGameOver(ctx, c.id, rep)
	default:
		obslog.L().Warn("ws_unknown_type",
			zap.String("channel_id", c.id),
			zap.String("type", env.Type),
		)
	}
}

func (c *Client) decode(env Envelope, dst any) bool {
	if err := json.Unmarshal(env.Data, dst); err != nil {
		obslog.L().Warn("ws_bad_payload",
			zap.String("channel_id", c.id),
			zap.String("type", env.Type),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (c *Client) write(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsjson.Write(ctx, c.conn, Envelope{Type: event, Data: raw})
}

func (c *Client) close(code websocket.StatusCode, reason string) {
	_ = c.conn.Close(code, reason)
}
