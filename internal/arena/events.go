package arena

// Outbound event types pushed to player channels.
const (
	EvtMatchFound           = "match_found"
	EvtGameStart            = "game_start"
	EvtOpponentMove         = "opponent_move"
	EvtOpponentChat         = "opponent_chat"
	EvtOpponentDisconnected = "opponent_disconnected"
	EvtGameEnded            = "game_ended"
	EvtMatchmakingError     = "matchmaking_error"
	EvtGameError            = "game_error"
)

// Sender pushes an event to a single channel. The websocket hub
// implements it; tests substitute a capturing fake.
type Sender interface {
	Send(channelID, event string, data any)
}

// FindMatchRequest is the inbound find_match payload. The channel layer
// has already authenticated PlayerID.
type FindMatchRequest struct {
	PlayerID    string      `json:"playerId"`
	DisplayName string      `json:"displayName"`
	AvatarRef   string      `json:"avatarRef"`
	Rating      int         `json:"rating"`
	TimeControl TimeControl `json:"timeControl"`
}

// JoinGameRequest is the inbound join_game payload.
type JoinGameRequest struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

// MovePayload is relayed verbatim; Move is never validated here.
type MovePayload struct {
	GameID   string `json:"gameId"`
	Move     string `json:"move"`
	Position string `json:"positionSnapshot"`
}

// ChatPayload is relayed to the other room occupant, unpersisted.
type ChatPayload struct {
	GameID string `json:"gameId"`
	Text   string `json:"text"`
}

// GameOverReport is the inbound terminal event. Timeouts are reported by
// clients; the server only records the reason.
type GameOverReport struct {
	GameID        string   `json:"gameId"`
	Winner        Winner   `json:"winner"`
	Reason        string   `json:"reason"`
	FinalMoves    []string `json:"finalMoves"`
	FinalPosition string   `json:"finalPosition"`
}

// OpponentSummary describes the matched opponent inside match_found.
type OpponentSummary struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef"`
	Rating      int    `json:"rating"`
}

// MatchFound is sent to each matched player.
type MatchFound struct {
	GameID        string          `json:"gameId"`
	Opponent      OpponentSummary `json:"opponent"`
	AssignedColor Color           `json:"assignedColor"`
	TimeControl   TimeControl     `json:"timeControl"`
}

// GameStart signals that both occupants have joined the room.
type GameStart struct {
	GameID string `json:"gameId"`
}

// GameEnded carries the authoritative result and both rating deltas.
type GameEnded struct {
	GameID           string `json:"gameId"`
	Winner           Winner `json:"winner"`
	Reason           string `json:"reason"`
	WhiteRatingDelta int    `json:"whiteRatingDelta"`
	BlackRatingDelta int    `json:"blackRatingDelta"`
}

// ErrorEvent is the payload of matchmaking_error and game_error.
type ErrorEvent struct {
	Reason string `json:"reason"`
}
