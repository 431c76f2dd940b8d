package livesnap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playsquare/arena-server/internal/arena"
)

const snapshotTTL = 24 * time.Hour

// Cache keeps an advisory JSON copy of each ongoing session in redis,
// plus a per-player index of active game ids. The in-memory session
// registry stays authoritative; the cache exists so operators can
// inspect live games and recover context after a restart.
type Cache struct {
	rdb *redis.Client
}

func New(redisURL string) (*Cache, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for snapshot cache")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Cache{rdb: rdb}, nil
}

// NewWithClient wires an existing client, used by tests.
func NewWithClient(rdb *redis.Client) *Cache { return &Cache{rdb: rdb} }

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Save writes the session snapshot and refreshes both players' indexes.
func (c *Cache) Save(ctx context.Context, g *arena.GameSession) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, gameKey(g.ID), raw, snapshotTTL)
	for _, pid := range []string{g.WhiteID, g.BlackID} {
		if pid == "" {
			continue
		}
		pipe.SAdd(ctx, idxUserKey(pid), g.ID)
		pipe.Expire(ctx, idxUserKey(pid), snapshotTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Load returns nil, nil when no snapshot exists.
func (c *Cache) Load(ctx context.Context, gameID string) (*arena.GameSession, error) {
	raw, err := c.rdb.Get(ctx, gameKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var g arena.GameSession
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// ActiveIDs lists the snapshot game ids indexed for a player.
func (c *Cache) ActiveIDs(ctx context.Context, playerID string) ([]string, error) {
	return c.rdb.SMembers(ctx, idxUserKey(playerID)).Result()
}

// Delete drops the snapshot and de-indexes both players.
func (c *Cache) Delete(ctx context.Context, g *arena.GameSession) error {
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, gameKey(g.ID))
	for _, pid := range []string{g.WhiteID, g.BlackID} {
		if pid == "" {
			continue
		}
		pipe.SRem(ctx, idxUserKey(pid), g.ID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func gameKey(id string) string { return "arena:game:" + strings.TrimSpace(id) }

func idxUserKey(playerID string) string { return "arena:index:user:" + strings.TrimSpace(playerID) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
