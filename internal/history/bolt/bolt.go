// Package bolt provides a conversation log persisted in a bbolt database.
// Turns are stored as JSON values under big-endian sequence keys so a
// forward cursor walk yields creation order.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"docchat/internal/domain"
)

var bucketTurns = []byte("turns")

type storedTurn struct {
	Sequence  uint64    `json:"sequence"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Log is a bbolt-backed implementation of domain.Log. bbolt allows a
// single write transaction at a time, which keeps sequence numbers
// unique under concurrent appends.
type Log struct {
	db        *bbolt.DB
	retention time.Duration
	now       func() time.Time
}

// Open opens (creating if needed) the log database at path. A
// non-positive retention falls back to domain.DefaultRetention.
func Open(path string, retention time.Duration) (*Log, error) {
	if retention <= 0 {
		retention = domain.DefaultRetention
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %q: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTurns)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Log{db: db, retention: retention, now: time.Now}, nil
}

// Close releases the database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

// Append stores a turn under the next sequence number and purges turns
// that have already expired.
func (l *Log) Append(message string, role domain.Role) (domain.Turn, error) {
	var turn domain.Turn
	now := l.now()
	err := l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTurns)
		if err := l.purge(b, now); err != nil {
			return err
		}
		n, err := b.NextSequence()
		if err != nil {
			return err
		}
		turn = domain.Turn{
			Sequence:  n - 1, // NextSequence is 1-based
			Role:      role,
			Message:   message,
			CreatedAt: now,
		}
		data, err := json.Marshal(storedTurn{
			Sequence:  turn.Sequence,
			Role:      string(turn.Role),
			Message:   turn.Message,
			CreatedAt: turn.CreatedAt,
		})
		if err != nil {
			return err
		}
		return b.Put(key(turn.Sequence), data)
	})
	if err != nil {
		return domain.Turn{}, fmt.Errorf("append turn: %w", err)
	}
	return turn, nil
}

// History returns all non-expired turns in sequence order.
func (l *Log) History() ([]domain.Turn, error) {
	now := l.now()
	var out []domain.Turn
	err := l.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketTurns).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var st storedTurn
			if err := json.Unmarshal(v, &st); err != nil {
				return fmt.Errorf("decode turn %x: %w", k, err)
			}
			if !now.Before(st.CreatedAt.Add(l.retention)) {
				continue
			}
			out = append(out, domain.Turn{
				Sequence:  st.Sequence,
				Role:      domain.Role(st.Role),
				Message:   st.Message,
				CreatedAt: st.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return out, nil
}

// Reset drops all turns and restarts sequence numbering at zero.
func (l *Log) Reset() error {
	err := l.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketTurns); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketTurns)
		return err
	})
	if err != nil {
		return fmt.Errorf("reset log: %w", err)
	}
	return nil
}

// purge deletes the expired key prefix. Timestamps are monotonic in key
// order, so the walk stops at the first live turn.
func (l *Log) purge(b *bbolt.Bucket, now time.Time) error {
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var st storedTurn
		if err := json.Unmarshal(v, &st); err != nil {
			return fmt.Errorf("decode turn %x: %w", k, err)
		}
		if now.Before(st.CreatedAt.Add(l.retention)) {
			return nil
		}
		if err := c.Delete(); err != nil {
			return err
		}
	}
	return nil
}

func key(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
