package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/playsquare/arena-server/internal/arena"
)

// Mongo implements arena.Repository on the platform document store.
// Games live in the "games" collection keyed by game id, players in
// "players" keyed by player id.
type Mongo struct {
	client  *mongo.Client
	games   *mongo.Collection
	players *mongo.Collection
}

func NewMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("MONGO_URL is required")
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, err
	}
	db := client.Database(dbName)
	return &Mongo{
		client:  client,
		games:   db.Collection("games"),
		players: db.Collection("players"),
	}, nil
}

func (s *Mongo) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Mongo) InsertGame(ctx context.Context, g *arena.GameSession) error {
	return s.replaceGame(ctx, g)
}

func (s *Mongo) UpdateGame(ctx context.Context, g *arena.GameSession) error {
	return s.replaceGame(ctx, g)
}

func (s *Mongo) GetGame(ctx context.Context, id string) (*arena.GameSession, error) {
	var g arena.GameSession
	err := s.games.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Mongo) PlayerRecord(ctx context.Context, playerID string) (*arena.PlayerRecord, error) {
	var p arena.PlayerRecord
	err := s.players.FindOne(ctx, bson.M{"_id": playerID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FinalizeGame writes the terminal game and both player records inside
// one transaction so a partial failure cannot leave asymmetric ratings.
func (s *Mongo) FinalizeGame(ctx context.Context, g *arena.GameSession, white, black *arena.PlayerRecord) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		if err := s.replaceGame(sc, g); err != nil {
			return nil, err
		}
		if err := s.replacePlayer(sc, white); err != nil {
			return nil, err
		}
		if err := s.replacePlayer(sc, black); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (s *Mongo) replaceGame(ctx context.Context, g *arena.GameSession) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.games.ReplaceOne(ctx, bson.M{"_id": g.ID}, g, opts)
	return err
}

func (s *Mongo) replacePlayer(ctx context.Context, p *arena.PlayerRecord) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.players.ReplaceOne(ctx, bson.M{"_id": p.ID}, p, opts)
	return err
}
