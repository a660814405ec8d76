// Package memory provides an in-memory conversation log with per-turn
// expiry.
package memory

import (
	"sync"
	"time"

	"docchat/internal/domain"
)

// Log is an in-memory implementation of domain.Log. Appends are
// serialized so sequence numbers stay unique and strictly increasing.
type Log struct {
	mu        sync.Mutex
	retention time.Duration
	next      uint64
	turns     []domain.Turn
	now       func() time.Time
}

// NewLog creates an empty log. A non-positive retention falls back to
// domain.DefaultRetention.
func NewLog(retention time.Duration) *Log {
	if retention <= 0 {
		retention = domain.DefaultRetention
	}
	return &Log{retention: retention, now: time.Now}
}

// Append stores a turn with the next sequence number and the current
// timestamp. Turns already expired are purged opportunistically.
func (l *Log) Append(message string, role domain.Role) (domain.Turn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.purge(now)
	turn := domain.Turn{
		Sequence:  l.next,
		Role:      role,
		Message:   message,
		CreatedAt: now,
	}
	l.next++
	l.turns = append(l.turns, turn)
	return turn, nil
}

// History returns all non-expired turns in sequence order.
func (l *Log) History() ([]domain.Turn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	out := make([]domain.Turn, 0, len(l.turns))
	for _, t := range l.turns {
		if l.expired(t, now) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Reset discards all turns and restarts sequence numbering at zero.
func (l *Log) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
	l.next = 0
	return nil
}

func (l *Log) expired(t domain.Turn, now time.Time) bool {
	return !now.Before(t.CreatedAt.Add(l.retention))
}

// purge drops the expired prefix. Timestamps are monotonic within the
// slice, so expired turns are always at the front.
func (l *Log) purge(now time.Time) {
	i := 0
	for i < len(l.turns) && l.expired(l.turns[i], now) {
		i++
	}
	if i > 0 {
		l.turns = append([]domain.Turn(nil), l.turns[i:]...)
	}
}
