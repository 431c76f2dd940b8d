package arena

import (
	"math/rand"
	"sync"
)

// pairingThreshold is the maximum rating gap between matched players.
// Fixed on purpose: changing it alters matchmaking behavior, not
// implementation detail.
const pairingThreshold = 200

// Pairing is the outcome of a successful match: colors are already
// assigned by the queue's coin flip.
type Pairing struct {
	White *WaitingEntry
	Black *WaitingEntry
}

// Queue holds waiting players and pairs them on arrival. Selection is
// first-fit over insertion order: the oldest compatible entry wins.
type Queue struct {
	mu      sync.Mutex
	waiting []*WaitingEntry
	rnd     *rand.Rand
}

// NewQueue builds a queue with an injectable random source so the color
// flip is reproducible in tests.
func NewQueue(src rand.Source) *Queue {
	return &Queue{rnd: rand.New(src)}
}

// Enqueue inserts an entry, first evicting any stale entry for the same
// player, and attempts pairing. On a match both entries are removed
// before the pairing is returned, so no concurrent enqueue can claim
// either player.
func (q *Queue) Enqueue(e *WaitingEntry) (Pairing, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.removeLocked(e.PlayerID)

	for i, w := range q.waiting {
		if w.PlayerID == e.PlayerID {
			continue
		}
		if w.TimeControl != e.TimeControl {
			continue
		}
		if diff := w.Rating - e.Rating; diff > pairingThreshold || diff < -pairingThreshold {
			continue
		}
		q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
		if q.rnd.Intn(2) == 0 {
			return Pairing{White: w, Black: e}, true
		}
		return Pairing{White: e, Black: w}, true
	}

	q.waiting = append(q.waiting, e)
	return Pairing{}, false
}

// Cancel removes the waiting entry for a player. It is a no-op when the
// player already matched or never queued.
func (q *Queue) Cancel(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(playerID)
}

func (q *Queue) removeLocked(playerID string) bool {
	for i, w := range q.waiting {
		if w.PlayerID == playerID {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the number of waiting entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}
