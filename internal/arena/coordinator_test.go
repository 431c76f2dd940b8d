package arena

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"
)

type sentEvent struct {
	channel string
	event   string
	data    any
}

type captureSender struct {
	mu     sync.Mutex
	events []sentEvent
}

func (s *captureSender) Send(channelID, event string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sentEvent{channel: channelID, event: event, data: data})
}

func (s *captureSender) byType(event string) []sentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentEvent
	for _, e := range s.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func newTestCoordinator(t *testing.T) (*Coordinator, *captureSender) {
	t.Helper()
	send := &captureSender{}
	c := NewCoordinator(NewMemoryRepository(), send, rand.NewSource(7), 0)
	c.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local) }
	return c, send
}

func findRequest(player string, rating int) FindMatchRequest {
	return FindMatchRequest{
		PlayerID:    player,
		DisplayName: "name-" + player,
		Rating:      rating,
		TimeControl: blitzTC,
	}
}

// pairAndJoin runs two players through find_match and join_game and
// returns the created game id.
func pairAndJoin(t *testing.T, c *Coordinator, send *captureSender) string {
	t.Helper()
	ctx := context.Background()
	c.HandleFindMatch(ctx, "chA", findRequest("alice", 1400))
	c.HandleFindMatch(ctx, "chB", findRequest("bob", 1400))

	found := send.byType(EvtMatchFound)
	if len(found) != 2 {
		t.Fatalf("expected 2 match_found, got %d", len(found))
	}
	gameID := found[0].data.(MatchFound).GameID
	c.HandleJoinGame(ctx, "chA", JoinGameRequest{GameID: gameID, PlayerID: "alice"})
	c.HandleJoinGame(ctx, "chB", JoinGameRequest{GameID: gameID, PlayerID: "bob"})
	return gameID
}

func TestFindMatchCreatesOngoingGame(t *testing.T) {
	c, send := newTestCoordinator(t)
	ctx := context.Background()

	c.HandleFindMatch(ctx, "chA", findRequest("alice", 1400))
	if got := send.byType(EvtMatchFound); len(got) != 0 {
		t.Fatalf("single player must wait, got %d match_found", len(got))
	}
	c.HandleFindMatch(ctx, "chB", findRequest("bob", 1450))

	found := send.byType(EvtMatchFound)
	if len(found) != 2 {
		t.Fatalf("expected both players notified, got %d", len(found))
	}
	mf := found[0].data.(MatchFound)
	g, err := c.repo.GetGame(ctx, mf.GameID)
	if err != nil || g == nil {
		t.Fatalf("game not persisted: %v %v", g, err)
	}
	if g.Status != StatusOngoing {
		t.Fatalf("expected ongoing, got %s", g.Status)
	}
	if c.queue.Len() != 0 {
		t.Fatalf("queue must be drained after match")
	}
	// colors are complementary
	a := found[0].data.(MatchFound).AssignedColor
	b := found[1].data.(MatchFound).AssignedColor
	if a == b {
		t.Fatalf("both players got color %s", a)
	}
}

func TestFindMatchRespectsThreshold(t *testing.T) {
	c, send := newTestCoordinator(t)
	ctx := context.Background()
	tc := TimeControl{InitialSeconds: 180, IncrementSeconds: 0}

	reqA := findRequest("alice", 1200)
	reqA.TimeControl = tc
	reqB := findRequest("bob", 1450)
	reqB.TimeControl = tc

	c.HandleFindMatch(ctx, "chA", reqA)
	c.HandleFindMatch(ctx, "chB", reqB)

	if got := send.byType(EvtMatchFound); len(got) != 0 {
		t.Fatalf("diff 250 must not match, got %d events", len(got))
	}
	if c.queue.Len() != 2 {
		t.Fatalf("both must remain queued, got %d", c.queue.Len())
	}
}

func TestJoinGameEmitsStartOnce(t *testing.T) {
	c, send := newTestCoordinator(t)
	gameID := pairAndJoin(t, c, send)

	if got := send.byType(EvtGameStart); len(got) != 2 {
		t.Fatalf("expected game_start to both occupants, got %d", len(got))
	}
	// double join must not re-emit
	c.HandleJoinGame(context.Background(), "chB", JoinGameRequest{GameID: gameID, PlayerID: "bob"})
	if got := send.byType(EvtGameStart); len(got) != 2 {
		t.Fatalf("rejoin re-emitted start: %d", len(got))
	}
}

func TestJoinUnknownGameSendsError(t *testing.T) {
	c, send := newTestCoordinator(t)
	c.HandleJoinGame(context.Background(), "chX", JoinGameRequest{GameID: "nope", PlayerID: "zoe"})
	got := send.byType(EvtGameError)
	if len(got) != 1 || got[0].channel != "chX" {
		t.Fatalf("expected game_error to joiner, got %+v", got)
	}
}

func TestMoveRelayedToOpponentOnly(t *testing.T) {
	c, send := newTestCoordinator(t)
	gameID := pairAndJoin(t, c, send)
	ctx := context.Background()

	c.HandleMove(ctx, "chA", MovePayload{Move: "e2e4", Position: "fen-after-e4"})

	got := send.byType(EvtOpponentMove)
	if len(got) != 1 || got[0].channel != "chB" {
		t.Fatalf("expected relay to chB only, got %+v", got)
	}
	mp := got[0].data.(MovePayload)
	if mp.Move != "e2e4" || mp.Position != "fen-after-e4" {
		t.Fatalf("payload must be forwarded unmodified: %+v", mp)
	}
	g, _ := c.sessions.Get(gameID)
	if len(g.Moves) != 1 || g.FEN != "fen-after-e4" {
		t.Fatalf("advisory log not updated: %+v", g)
	}
}

func TestMoveFromUnboundChannelDroppedSilently(t *testing.T) {
	c, send := newTestCoordinator(t)
	c.HandleMove(context.Background(), "stranger", MovePayload{Move: "e2e4"})
	if len(send.events) != 0 {
		t.Fatalf("stale move must be dropped, got %+v", send.events)
	}
}

func TestChatRelayed(t *testing.T) {
	c, send := newTestCoordinator(t)
	pairAndJoin(t, c, send)

	c.HandleChat("chB", ChatPayload{Text: "gg"})
	got := send.byType(EvtOpponentChat)
	if len(got) != 1 || got[0].channel != "chA" {
		t.Fatalf("expected chat to chA, got %+v", got)
	}
}

func TestGameOverFinalizesExactlyOnce(t *testing.T) {
	c, send := newTestCoordinator(t)
	gameID := pairAndJoin(t, c, send)
	ctx := context.Background()

	rep := GameOverReport{GameID: gameID, Winner: WinnerWhite, Reason: "checkmate"}
	c.HandleGameOver(ctx, "chA", rep)

	// the first match_found goes to the white player's channel
	whiteID, blackID := "alice", "bob"
	if send.byType(EvtMatchFound)[0].channel == "chB" {
		whiteID, blackID = "bob", "alice"
	}

	white, _ := c.repo.PlayerRecord(ctx, whiteID)
	black, _ := c.repo.PlayerRecord(ctx, blackID)
	wrec := white.Formats["blitz"]
	brec := black.Formats["blitz"]
	if wrec.Rating != 1416 || brec.Rating != 1384 {
		t.Fatalf("ratings: white=%d black=%d", wrec.Rating, brec.Rating)
	}
	if wrec.Wins != 1 || brec.Losses != 1 {
		t.Fatalf("counters: %+v %+v", wrec, brec)
	}

	ended := send.byType(EvtGameEnded)
	if len(ended) != 2 {
		t.Fatalf("expected game_ended to both, got %d", len(ended))
	}
	ge := ended[0].data.(GameEnded)
	if ge.WhiteRatingDelta != 16 || ge.BlackRatingDelta != -16 {
		t.Fatalf("deltas: %+v", ge)
	}

	// duplicate report is a no-op
	c.HandleGameOver(ctx, "chB", rep)
	white2, _ := c.repo.PlayerRecord(ctx, whiteID)
	if white2.Formats["blitz"].Rating != 1416 {
		t.Fatalf("second finalize changed ratings: %d", white2.Formats["blitz"].Rating)
	}
	if got := send.byType(EvtGameEnded); len(got) != 2 {
		t.Fatalf("second finalize re-broadcast: %d", len(got))
	}
	if _, ok := c.sessions.Get(gameID); ok {
		t.Fatalf("session must be retired after finalize")
	}
}

func TestGameOverDrawKeepsRatings(t *testing.T) {
	c, send := newTestCoordinator(t)
	gameID := pairAndJoin(t, c, send)
	ctx := context.Background()

	c.HandleGameOver(ctx, "chA", GameOverReport{GameID: gameID, Winner: WinnerDraw, Reason: "stalemate"})

	alice, _ := c.repo.PlayerRecord(ctx, "alice")
	rec := alice.Formats["blitz"]
	if rec.Rating != 1400 || rec.Draws != 1 {
		t.Fatalf("draw record: %+v", rec)
	}
}

type failingRepo struct {
	Repository
	failInsert   bool
	failFinalize bool
}

func (f *failingRepo) InsertGame(ctx context.Context, g *GameSession) error {
	if f.failInsert {
		return ErrPersistFailed
	}
	return f.Repository.InsertGame(ctx, g)
}

func (f *failingRepo) FinalizeGame(ctx context.Context, g *GameSession, w, b *PlayerRecord) error {
	if f.failFinalize {
		return ErrPersistFailed
	}
	return f.Repository.FinalizeGame(ctx, g, w, b)
}

func TestPairingPersistFailureNotifiesBothWithoutRequeue(t *testing.T) {
	send := &captureSender{}
	repo := &failingRepo{Repository: NewMemoryRepository(), failInsert: true}
	c := NewCoordinator(repo, send, rand.NewSource(7), 0)
	ctx := context.Background()

	c.HandleFindMatch(ctx, "chA", findRequest("alice", 1400))
	c.HandleFindMatch(ctx, "chB", findRequest("bob", 1400))

	got := send.byType(EvtMatchmakingError)
	if len(got) != 2 {
		t.Fatalf("expected matchmaking_error to both, got %d", len(got))
	}
	if c.queue.Len() != 0 {
		t.Fatalf("players must not be silently re-enqueued, len=%d", c.queue.Len())
	}
}

func TestFinalizePersistFailureIsRetryable(t *testing.T) {
	send := &captureSender{}
	repo := &failingRepo{Repository: NewMemoryRepository()}
	c := NewCoordinator(repo, send, rand.NewSource(7), 0)
	ctx := context.Background()

	c.HandleFindMatch(ctx, "chA", findRequest("alice", 1400))
	c.HandleFindMatch(ctx, "chB", findRequest("bob", 1400))
	gameID := send.byType(EvtMatchFound)[0].data.(MatchFound).GameID
	c.HandleJoinGame(ctx, "chA", JoinGameRequest{GameID: gameID, PlayerID: "alice"})
	c.HandleJoinGame(ctx, "chB", JoinGameRequest{GameID: gameID, PlayerID: "bob"})

	repo.failFinalize = true
	if err := c.Finalize(ctx, gameID, WinnerWhite, "timeout", nil, ""); err == nil {
		t.Fatalf("expected retryable error")
	}
	g, ok := c.sessions.Get(gameID)
	if !ok || g.Status != StatusOngoing {
		t.Fatalf("session must revert to ongoing, got %v %v", g.Status, ok)
	}
	if alice, _ := c.repo.PlayerRecord(ctx, "alice"); alice != nil {
		t.Fatalf("no rating may be applied on failed persist")
	}

	repo.failFinalize = false
	if err := c.Finalize(ctx, gameID, WinnerWhite, "timeout", nil, ""); err != nil {
		t.Fatalf("retry must succeed: %v", err)
	}
	if got := send.byType(EvtGameEnded); len(got) != 2 {
		t.Fatalf("expected game_ended after retry, got %d", len(got))
	}
}

func TestDisconnectNotifiesOpponentWithoutFinalizing(t *testing.T) {
	c, send := newTestCoordinator(t)
	gameID := pairAndJoin(t, c, send)
	ctx := context.Background()

	c.HandleDisconnect(ctx, "chA")

	got := send.byType(EvtOpponentDisconnected)
	if len(got) != 1 || got[0].channel != "chB" {
		t.Fatalf("expected opponent_disconnected to chB, got %+v", got)
	}
	g, ok := c.sessions.Get(gameID)
	if !ok || g.Status != StatusOngoing {
		t.Fatalf("disconnect alone must not finalize: %v %v", g.Status, ok)
	}
	if alice, _ := c.repo.PlayerRecord(ctx, "alice"); alice != nil {
		t.Fatalf("disconnect must not touch ratings")
	}
}

func TestDisconnectCancelsWaitingEntry(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	c.HandleFindMatch(ctx, "chA", findRequest("alice", 1400))
	if c.queue.Len() != 1 {
		t.Fatalf("expected waiting entry")
	}
	c.HandleDisconnect(ctx, "chA")
	if c.queue.Len() != 0 {
		t.Fatalf("disconnect must evict the waiting entry")
	}
}

func TestBothGoneAbandonsGame(t *testing.T) {
	c, send := newTestCoordinator(t)
	gameID := pairAndJoin(t, c, send)
	ctx := context.Background()

	c.HandleDisconnect(ctx, "chA")
	c.HandleDisconnect(ctx, "chB")

	if _, ok := c.sessions.Get(gameID); ok {
		t.Fatalf("abandoned game must be retired")
	}
	g, err := c.repo.GetGame(ctx, gameID)
	if err != nil || g == nil {
		t.Fatalf("record must survive: %v %v", g, err)
	}
	if g.Status != StatusAbandoned {
		t.Fatalf("expected abandoned, got %s", g.Status)
	}
	if alice, _ := c.repo.PlayerRecord(ctx, "alice"); alice != nil {
		t.Fatalf("abandonment must not touch ratings")
	}
}

func TestResignFinalizesForOpponent(t *testing.T) {
	c, send := newTestCoordinator(t)
	gameID := pairAndJoin(t, c, send)
	ctx := context.Background()

	// chA resigns; the winner is whatever color bob holds
	winner := WinnerBlack
	for _, e := range send.byType(EvtMatchFound) {
		if e.channel == "chA" && e.data.(MatchFound).AssignedColor == Black {
			winner = WinnerWhite
		}
	}

	c.HandleResign(ctx, "chA")

	ended := send.byType(EvtGameEnded)
	if len(ended) != 2 {
		t.Fatalf("expected game_ended, got %d", len(ended))
	}
	ge := ended[0].data.(GameEnded)
	if ge.Winner != winner || ge.Reason != "resignation" {
		t.Fatalf("wrong result: %+v (want winner %s)", ge, winner)
	}
	if _, ok := c.sessions.Get(gameID); ok {
		t.Fatalf("session must retire after resignation")
	}
}
