package arena

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/playsquare/arena-server/internal/obslog"
)

// HandleGameOver applies a client-reported terminal event. Duplicate
// reports (both a timeout detector and a resignation racing) resolve to
// "first call wins"; the reporter gets a game_error only when the
// finalize itself fails in a retryable way.
func (c *Coordinator) HandleGameOver(ctx context.Context, channelID string, rep GameOverReport) {
	if err := c.Finalize(ctx, rep.GameID, rep.Winner, rep.Reason, rep.FinalMoves, rep.FinalPosition); err != nil {
		c.send.Send(channelID, EvtGameError, ErrorEvent{Reason: err.Error()})
	}
}

// HandleResign converts a resignation into a game_over with the opponent
// as winner. Resignation is the only cancellation of an active game.
func (c *Coordinator) HandleResign(ctx context.Context, channelID string) {
	playerID, ok := c.conns.IdentityOf(channelID)
	if !ok {
		return
	}
	gameID, ok := c.sessions.RoomOf(channelID)
	if !ok {
		return
	}
	g, ok := c.sessions.Get(gameID)
	if !ok {
		return
	}
	opponent := g.OpponentOf(playerID)
	if opponent == "" {
		return
	}
	winner := WinnerBlack
	if opponent == g.WhiteID {
		winner = WinnerWhite
	}
	if err := c.Finalize(ctx, gameID, winner, "resignation", nil, ""); err != nil {
		c.send.Send(channelID, EvtGameError, ErrorEvent{Reason: err.Error()})
	}
}

// Finalize is the single authoritative ongoing→finished transition. It
// is idempotent: an unknown or already-terminal game id is a no-op. On a
// persistence failure the session reverts to ongoing and the error is
// returned as retryable; ratings are never half-applied.
func (c *Coordinator) Finalize(ctx context.Context, gameID string, winner Winner, reason string, finalMoves []string, finalPosition string) error {
	g, claimed := c.sessions.Claim(gameID, StatusFinished)
	if !claimed {
		return nil
	}

	now := c.now()
	g.Winner = winner
	g.ResultReason = reason
	g.EndedAt = now
	if len(finalMoves) > 0 {
		g.Moves = finalMoves
	}
	if finalPosition != "" {
		g.FEN = finalPosition
	}

	// Both records are loaded before either is written so neither delta
	// uses a half-updated rating as its opponent baseline.
	white, err := c.loadPlayer(ctx, g.WhiteID, g.WhiteName, "")
	if err != nil {
		c.sessions.Release(gameID)
		return fmt.Errorf("load white record: %w", err)
	}
	black, err := c.loadPlayer(ctx, g.BlackID, g.BlackName, "")
	if err != nil {
		c.sessions.Release(gameID)
		return fmt.Errorf("load black record: %w", err)
	}

	wrec := white.FormatRecord(g.Format, g.WhiteRating)
	brec := black.FormatRecord(g.Format, g.BlackRating)
	dw, db := ratingDeltas(wrec.Rating, brec.Rating, winner)
	applyResult(wrec, dw, winner, White, now)
	applyResult(brec, db, winner, Black, now)

	if err := c.repo.FinalizeGame(ctx, &g, white, black); err != nil {
		c.sessions.Release(gameID)
		obslog.L().Error("finalize_persist_error", zap.String("game_id", gameID), zap.Error(err))
		return fmt.Errorf("finalize %s: %w", gameID, err)
	}

	obslog.L().Info("game_finalized",
		zap.String("game_id", gameID),
		zap.String("winner", string(winner)),
		zap.String("reason", reason),
		zap.Int("white_delta", dw),
		zap.Int("black_delta", db),
	)

	ended := GameEnded{
		GameID:           gameID,
		Winner:           winner,
		Reason:           reason,
		WhiteRatingDelta: dw,
		BlackRatingDelta: db,
	}
	for _, ch := range c.sessions.Occupants(gameID) {
		c.send.Send(ch, EvtGameEnded, ended)
	}

	c.sessions.Retire(gameID)
	c.dropSnapshot(ctx, &g)
	if c.archive != nil {
		if err := c.archive.SaveResult(ctx, &g); err != nil {
			obslog.L().Warn("archive_save_error", zap.String("game_id", gameID), zap.Error(err))
		}
	}
	return nil
}

// abandon retires a game nobody is connected to. Ratings stay untouched;
// the record survives with status=abandoned.
func (c *Coordinator) abandon(ctx context.Context, gameID string) {
	g, claimed := c.sessions.Claim(gameID, StatusAbandoned)
	if !claimed {
		return
	}
	g.EndedAt = c.now()
	if err := c.repo.UpdateGame(ctx, &g); err != nil {
		obslog.L().Error("abandon_persist_error", zap.String("game_id", gameID), zap.Error(err))
		// Still retire: with both players gone there is nothing to retry
		// against, and the ongoing document can be swept later.
	}
	obslog.L().Info("game_abandoned", zap.String("game_id", gameID))
	c.sessions.Retire(gameID)
	c.dropSnapshot(ctx, &g)
}

func (c *Coordinator) loadPlayer(ctx context.Context, playerID, displayName, avatarRef string) (*PlayerRecord, error) {
	p, err := c.repo.PlayerRecord(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &PlayerRecord{ID: playerID, DisplayName: displayName, AvatarRef: avatarRef}
	}
	return p, nil
}
