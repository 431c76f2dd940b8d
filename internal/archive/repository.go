package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/playsquare/arena-server/internal/arena"
)

// Repository keeps a queryable SQL archive of finished games, including
// a rendered PGN. Writes are best-effort from the caller's perspective:
// the document store already holds the authoritative record.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a terminal game into the archive.
func (r *Repository) SaveResult(ctx context.Context, g *arena.GameSession) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}

	pgnResult := mapResultToPGN(g.Winner)
	pgn := buildPGN(g, pgnResult)
	movesRaw, _ := json.Marshal(g.Moves)

	duration := g.EndedAt.Sub(g.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO arena_games (
        game_id, white_id, white_name, black_id, black_name,
        format, time_control, status, winner, result_reason,
        moves, final_fen, pgn, started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
      ) ON CONFLICT (game_id) DO UPDATE SET
        status=EXCLUDED.status,
        winner=EXCLUDED.winner,
        result_reason=EXCLUDED.result_reason,
        moves=EXCLUDED.moves,
        final_fen=EXCLUDED.final_fen,
        pgn=EXCLUDED.pgn,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		g.ID,
		g.WhiteID, g.WhiteName,
		g.BlackID, g.BlackName,
		g.Format, g.TimeControl.String(), string(g.Status), string(g.Winner), g.ResultReason,
		string(movesRaw), g.FEN, pgn,
		g.CreatedAt, g.EndedAt, duration,
	)
	return err
}

func mapResultToPGN(w arena.Winner) string {
	switch w {
	case arena.WinnerWhite:
		return "1-0"
	case arena.WinnerBlack:
		return "0-1"
	case arena.WinnerDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

func buildPGN(g *arena.GameSession, pgnResult string) string {
	var b strings.Builder
	date := g.EndedAt
	if date.IsZero() {
		date = g.CreatedAt
	}
	b.WriteString("[Event \"PlaySquare Arena\"]\n")
	b.WriteString("[Site \"playsquare\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(g.WhiteName)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(g.BlackName)))
	b.WriteString(fmt.Sprintf("[TimeControl \"%s\"]\n", g.TimeControl.String()))
	if strings.TrimSpace(g.ResultReason) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(g.ResultReason))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(g.Moves); i += 2 {
		turn := (i / 2) + 1
		b.WriteString(fmt.Sprintf("%d. %s", turn, strings.TrimSpace(g.Moves[i])))
		if i+1 < len(g.Moves) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(g.Moves[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
