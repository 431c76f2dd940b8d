package arena

import (
	"math"
	"time"
)

// kFactor is the fixed Elo K. Like the pairing threshold it is a
// deliberate constant, not configuration.
const kFactor = 32

// expectedScore is the logistic expectation for a player rated `rating`
// against `opponent`.
func expectedScore(rating, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-rating)/400))
}

// ratingDeltas computes both sides' deltas for a result. Each side is
// rounded independently; the deltas are not required to be exact
// negatives of each other and that asymmetry is kept.
func ratingDeltas(whiteRating, blackRating int, winner Winner) (dw, db int) {
	if winner == WinnerDraw {
		return 0, 0
	}
	ew := expectedScore(whiteRating, blackRating)
	eb := 1 - ew
	var aw, ab float64
	if winner == WinnerWhite {
		aw = 1
	} else {
		ab = 1
	}
	dw = int(math.Round(kFactor * (aw - ew)))
	db = int(math.Round(kFactor * (ab - eb)))
	return dw, db
}

// dayKey truncates a time to its calendar day. A single truncation rule
// keeps the daily-history invariant consistent across midnight.
func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// applyResult mutates a rating record for one finished game: delta,
// counters, watermarks, and the daily high-water-mark history entry.
func applyResult(rec *RatingRecord, delta int, winner Winner, side Color, now time.Time) {
	rec.Rating += delta
	rec.GamesPlayed++
	switch {
	case winner == WinnerDraw:
		rec.Draws++
	case (winner == WinnerWhite) == (side == White):
		rec.Wins++
	default:
		rec.Losses++
	}
	if rec.Rating > rec.Highest {
		rec.Highest = rec.Rating
	}
	if rec.Rating < rec.Lowest {
		rec.Lowest = rec.Rating
	}
	recordDaily(rec, now)
}

// recordDaily upserts today's history entry. A same-day update only ever
// raises the recorded rating, never lowers it.
func recordDaily(rec *RatingRecord, now time.Time) {
	day := dayKey(now)
	for i := range rec.History {
		if rec.History[i].Day == day {
			if rec.Rating > rec.History[i].Rating {
				rec.History[i].Rating = rec.Rating
			}
			return
		}
	}
	rec.History = append(rec.History, RatingDay{Day: day, Rating: rec.Rating})
}
