package arena

import (
	"fmt"
	"time"
)

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Status represents a game lifecycle state.
type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusFinished  Status = "finished"
	StatusAbandoned Status = "abandoned"
)

// Winner is the reported outcome of a game: a color or "draw".
type Winner string

const (
	WinnerWhite Winner = "white"
	WinnerBlack Winner = "black"
	WinnerDraw  Winner = "draw"
)

// TimeControl is an (initial, increment) pair in seconds identifying a
// game speed class.
type TimeControl struct {
	InitialSeconds   int `json:"initialSeconds" bson:"initial_seconds"`
	IncrementSeconds int `json:"incrementSeconds" bson:"increment_seconds"`
}

// Format buckets a time control into bullet/blitz/rapid. Ratings, stats
// and history are tracked independently per format.
func (tc TimeControl) Format() string {
	estimate := tc.InitialSeconds + 40*tc.IncrementSeconds
	switch {
	case estimate < 180:
		return "bullet"
	case estimate < 600:
		return "blitz"
	default:
		return "rapid"
	}
}

func (tc TimeControl) String() string {
	return fmt.Sprintf("%d+%d", tc.InitialSeconds, tc.IncrementSeconds)
}

// WaitingEntry is a queued matchmaking request. At most one entry per
// player id exists at any time.
type WaitingEntry struct {
	ChannelID   string
	PlayerID    string
	DisplayName string
	AvatarRef   string
	Rating      int
	TimeControl TimeControl
	QueuedAt    time.Time
}

// GameSession is the authoritative record of a game. Status, Winner and
// ResultReason are written only by finalization, exactly once.
type GameSession struct {
	ID          string      `json:"id" bson:"_id"`
	WhiteID     string      `json:"whiteId" bson:"white_id"`
	WhiteName   string      `json:"whiteName" bson:"white_name"`
	WhiteRating int         `json:"whiteRating" bson:"white_rating"`
	BlackID     string      `json:"blackId" bson:"black_id"`
	BlackName   string      `json:"blackName" bson:"black_name"`
	BlackRating int         `json:"blackRating" bson:"black_rating"`
	TimeControl TimeControl `json:"timeControl" bson:"time_control"`
	Format      string      `json:"format" bson:"format"`
	Status      Status      `json:"status" bson:"status"`

	// Moves and FEN are advisory: clients remain the source of truth for
	// legality, the relay only keeps a best-effort log for reconstruction.
	Moves []string `json:"moves" bson:"moves"`
	FEN   string   `json:"fen" bson:"fen"`

	Winner       Winner    `json:"winner,omitempty" bson:"winner,omitempty"`
	ResultReason string    `json:"resultReason,omitempty" bson:"result_reason,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	EndedAt      time.Time `json:"endedAt,omitempty" bson:"ended_at,omitempty"`
}

// OpponentOf returns the other participant's player id, or "" when the
// given id is not part of the game.
func (g *GameSession) OpponentOf(playerID string) string {
	if g.WhiteID == playerID {
		return g.BlackID
	}
	if g.BlackID == playerID {
		return g.WhiteID
	}
	return ""
}

// RatingDay is one (calendar day, rating) pair of a player's history.
// Day uses the "2006-01-02" layout in host-local time.
type RatingDay struct {
	Day    string `json:"day" bson:"day"`
	Rating int    `json:"rating" bson:"rating"`
}

// RatingRecord tracks one player's rating and statistics for one format.
// Invariant: History holds at most one entry per calendar day, and a
// same-day update only ever raises the recorded rating.
type RatingRecord struct {
	Rating      int         `json:"rating" bson:"rating"`
	Highest     int         `json:"highest" bson:"highest"`
	Lowest      int         `json:"lowest" bson:"lowest"`
	GamesPlayed int         `json:"gamesPlayed" bson:"games_played"`
	Wins        int         `json:"wins" bson:"wins"`
	Losses      int         `json:"losses" bson:"losses"`
	Draws       int         `json:"draws" bson:"draws"`
	History     []RatingDay `json:"history" bson:"history"`
}

// PlayerRecord is the persisted player document, one RatingRecord per
// format the player has completed a game in.
type PlayerRecord struct {
	ID          string                   `json:"id" bson:"_id"`
	DisplayName string                   `json:"displayName" bson:"display_name"`
	AvatarRef   string                   `json:"avatarRef" bson:"avatar_ref"`
	Formats     map[string]*RatingRecord `json:"formats" bson:"formats"`
}

// FormatRecord returns the player's record for the format, seeding a new
// one from baseline when the player has never played it.
func (p *PlayerRecord) FormatRecord(format string, baseline int) *RatingRecord {
	if p.Formats == nil {
		p.Formats = make(map[string]*RatingRecord)
	}
	rec, ok := p.Formats[format]
	if !ok {
		rec = &RatingRecord{Rating: baseline, Highest: baseline, Lowest: baseline}
		p.Formats[format] = rec
	}
	return rec
}

// Soft failures surfaced to players as error events.
var (
	ErrGameNotFound   = errf("game not found")
	ErrNotOngoing     = errf("game is not ongoing")
	ErrServerFull     = errf("server at capacity")
	ErrPersistFailed  = errf("could not persist game")
	ErrInvalidRequest = errf("invalid request")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
