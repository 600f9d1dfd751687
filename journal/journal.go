package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"vester/core/events"
)

var (
	bucketEvents = []byte("events")

	// ErrClosed is returned when appending to a closed journal.
	ErrClosed = errors.New("journal: closed")
)

// Record is one journal entry: an engine event plus its assigned sequence
// number and the wall-clock time it was recorded. The sequence is strictly
// increasing, giving downstream indexers append-only log semantics.
type Record struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	RecordedAt time.Time         `json:"recordedAt"`
}

// Journal persists every engine event to a BoltDB file so an external
// indexer can replay full ledger history without re-querying the engine.
// It satisfies events.Emitter and is typically fanned in through
// events.MultiEmitter alongside metrics.
type Journal struct {
	db     *bolt.DB
	nowFn  func() time.Time
	closed bool
}

// Open initialises (and migrates) the journal at the given path.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEvents)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db, nowFn: time.Now}, nil
}

// SetNowFunc overrides the timestamp source, for deterministic tests.
func (j *Journal) SetNowFunc(now func() time.Time) {
	if now == nil {
		j.nowFn = time.Now
		return
	}
	j.nowFn = now
}

// Append writes one event to the log and returns its sequence number.
func (j *Journal) Append(evt events.Event) (uint64, error) {
	if j == nil || j.db == nil || j.closed {
		return 0, ErrClosed
	}
	payload, ok := evt.(events.Payload)
	if !ok {
		return 0, fmt.Errorf("journal: event %q carries no payload", evt.EventType())
	}
	canonical := payload.Event()
	if canonical == nil {
		return 0, fmt.Errorf("journal: event %q carries no payload", evt.EventType())
	}
	var seq uint64
	err := j.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketEvents)
		next, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		record := Record{
			Sequence:   next,
			Type:       canonical.Type,
			Attributes: canonical.Attributes,
			RecordedAt: j.nowFn().UTC(),
		}
		encoded, err := json.Marshal(record)
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], next)
		if err := bucket.Put(key[:], encoded); err != nil {
			return err
		}
		seq = next
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// Emit implements events.Emitter. Journal write failures must not abort the
// originating state transition, so they are swallowed here; callers that
// need the error use Append directly.
func (j *Journal) Emit(evt events.Event) {
	_, _ = j.Append(evt)
}

// Replay walks every record in sequence order. Returning an error from the
// callback stops the walk.
func (j *Journal) Replay(fn func(Record) error) error {
	if j == nil || j.db == nil {
		return ErrClosed
	}
	return j.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(bucketEvents).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("journal: corrupt record %x: %w", k, err)
			}
			if err := fn(record); err != nil {
				return err
			}
		}
		return nil
	})
}

// Len returns the number of records in the journal.
func (j *Journal) Len() (uint64, error) {
	if j == nil || j.db == nil {
		return 0, ErrClosed
	}
	var n uint64
	err := j.db.View(func(tx *bolt.Tx) error {
		n = j.sequence(tx)
		return nil
	})
	return n, err
}

func (j *Journal) sequence(tx *bolt.Tx) uint64 {
	return tx.Bucket(bucketEvents).Sequence()
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil || j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

var _ events.Emitter = (*Journal)(nil)
