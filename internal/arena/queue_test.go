package arena

import (
	"math/rand"
	"testing"
	"time"
)

func entry(player string, rating int, tc TimeControl) *WaitingEntry {
	return &WaitingEntry{
		ChannelID:   "ch-" + player,
		PlayerID:    player,
		DisplayName: player,
		Rating:      rating,
		TimeControl: tc,
		QueuedAt:    time.Now(),
	}
}

var blitzTC = TimeControl{InitialSeconds: 300, IncrementSeconds: 0}

func TestEnqueuePairsCompatible(t *testing.T) {
	q := NewQueue(rand.NewSource(1))
	if _, ok := q.Enqueue(entry("a", 1400, blitzTC)); ok {
		t.Fatalf("unexpected match with empty queue")
	}
	p, ok := q.Enqueue(entry("b", 1450, blitzTC))
	if !ok {
		t.Fatalf("expected match for compatible entries")
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue after match, got %d", q.Len())
	}
	got := map[string]bool{p.White.PlayerID: true, p.Black.PlayerID: true}
	if !got["a"] || !got["b"] {
		t.Fatalf("wrong participants: %v vs %v", p.White.PlayerID, p.Black.PlayerID)
	}
}

func TestEnqueueRejectsWideRatingGap(t *testing.T) {
	q := NewQueue(rand.NewSource(1))
	tc := TimeControl{InitialSeconds: 180, IncrementSeconds: 0}
	q.Enqueue(entry("a", 1200, tc))
	if _, ok := q.Enqueue(entry("b", 1450, tc)); ok {
		t.Fatalf("diff 250 must not match")
	}
	if q.Len() != 2 {
		t.Fatalf("expected both players waiting, got %d", q.Len())
	}
}

func TestEnqueueRejectsDifferentTimeControl(t *testing.T) {
	q := NewQueue(rand.NewSource(1))
	q.Enqueue(entry("a", 1400, TimeControl{InitialSeconds: 180, IncrementSeconds: 0}))
	if _, ok := q.Enqueue(entry("b", 1400, TimeControl{InitialSeconds: 180, IncrementSeconds: 2})); ok {
		t.Fatalf("different increments must not match")
	}
}

func TestEnqueueFirstFitOverInsertionOrder(t *testing.T) {
	q := NewQueue(rand.NewSource(1))
	q.Enqueue(entry("old", 1000, blitzTC))
	q.Enqueue(entry("newer", 1400, blitzTC)) // too far from "old"
	p, ok := q.Enqueue(entry("c", 1200, blitzTC))
	if !ok {
		t.Fatalf("expected match")
	}
	matched := p.White.PlayerID + p.Black.PlayerID
	if matched != "oldc" && matched != "cold" {
		t.Fatalf("first-fit must pick the oldest compatible entry, got %v/%v", p.White.PlayerID, p.Black.PlayerID)
	}
	if q.Len() != 1 {
		t.Fatalf("expected one remaining entry, got %d", q.Len())
	}
}

func TestEnqueueEvictsStaleEntrySamePlayer(t *testing.T) {
	q := NewQueue(rand.NewSource(1))
	q.Enqueue(entry("a", 1400, blitzTC))
	if _, ok := q.Enqueue(entry("a", 1405, blitzTC)); ok {
		t.Fatalf("player must never match against themself")
	}
	if q.Len() != 1 {
		t.Fatalf("re-enqueue must evict the stale entry, got len %d", q.Len())
	}
}

func TestCancelIdempotent(t *testing.T) {
	q := NewQueue(rand.NewSource(1))
	if q.Cancel("ghost") {
		t.Fatalf("cancel of unknown player must be a no-op")
	}
	q.Enqueue(entry("a", 1400, blitzTC))
	if !q.Cancel("a") {
		t.Fatalf("expected cancel to remove entry")
	}
	if q.Cancel("a") {
		t.Fatalf("second cancel must be a no-op")
	}
}

func TestColorFlipReproducible(t *testing.T) {
	assign := func(seed int64) (string, string) {
		q := NewQueue(rand.NewSource(seed))
		q.Enqueue(entry("a", 1400, blitzTC))
		p, ok := q.Enqueue(entry("b", 1400, blitzTC))
		if !ok {
			t.Fatalf("expected match")
		}
		return p.White.PlayerID, p.Black.PlayerID
	}
	w1, b1 := assign(42)
	w2, b2 := assign(42)
	if w1 != w2 || b1 != b2 {
		t.Fatalf("same seed must give same colors: %s/%s vs %s/%s", w1, b1, w2, b2)
	}
}
