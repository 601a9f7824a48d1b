// Package journal persists parsed fills in a pebble store with
// delivery states, giving the broadcaster an at-least-once outbox.
package journal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

// State is the delivery state of one journaled fill.
type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	default:
		return "UNKNOWN"
	}
}

// Record is one journal entry: delivery bookkeeping plus the fill
// payload as handed in by the service layer.
type Record struct {
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// binary encoding: [state:1][retries:4][lastAttempt:8][payload...]
func encodeRecord(r Record) []byte {
	buf := make([]byte, 13+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[13:], r.Payload)
	return buf
}

func decodeRecord(b []byte) (Record, error) {
	if len(b) < 13 {
		return Record{}, errors.Errorf("journal: record too short: %d bytes", len(b))
	}
	return Record{
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     append([]byte(nil), b[13:]...),
	}, nil
}

// FillJournal is the pebble-backed fill outbox.
type FillJournal struct {
	db *pebble.DB
}

func Open(dir string) (*FillJournal, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}
	return &FillJournal{db: db}, nil
}

func (j *FillJournal) Close() error {
	return j.db.Close()
}

// Put inserts a fill under its event sequence number. Fills reappear
// every time the event queue is re-decoded, so an existing entry is
// left untouched.
func (j *FillJournal) Put(seq uint32, payload []byte) error {
	key := keyFor(seq)
	if _, closer, err := j.db.Get(key); err == nil {
		return closer.Close()
	} else if err != pebble.ErrNotFound {
		return errors.Wrapf(err, "journal: lookup fill %d", seq)
	}
	rec := Record{State: StateNew, Payload: payload}
	return j.db.Set(key, encodeRecord(rec), pebble.Sync)
}

// Get returns the current record for a fill.
func (j *FillJournal) Get(seq uint32) (Record, error) {
	val, closer, err := j.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()
	return decodeRecord(val)
}

// MarkSent flags a fill as handed to the producer and bumps its retry
// counter.
func (j *FillJournal) MarkSent(seq uint32) error {
	return j.transition(seq, StateSent, true)
}

// MarkAcked flags a fill as acknowledged by the broker.
func (j *FillJournal) MarkAcked(seq uint32) error {
	return j.transition(seq, StateAcked, false)
}

func (j *FillJournal) transition(seq uint32, state State, bumpRetries bool) error {
	rec, err := j.Get(seq)
	if err != nil {
		return errors.Wrapf(err, "journal: transition fill %d", seq)
	}
	rec.State = state
	rec.LastAttempt = time.Now().UnixNano()
	if bumpRetries {
		rec.Retries++
	}
	return j.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// Delete removes an acked fill (cleanup).
func (j *FillJournal) Delete(seq uint32) error {
	return j.db.Delete(keyFor(seq), pebble.Sync)
}

// ScanByState iterates all fills in the given state in sequence
// order. The broadcaster drives its replay loop off this.
func (j *FillJournal) ScanByState(state State, fn func(seq uint32, rec Record) error) error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("fill/"),
		UpperBound: []byte("fill/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return err
		}
		if rec.State != state {
			continue
		}
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		if err := fn(seq, rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

func keyFor(seq uint32) []byte {
	return []byte(fmt.Sprintf("fill/%010d", seq))
}

func parseKey(b []byte) (uint32, error) {
	var seq uint32
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte("fill/"))), "%d", &seq)
	return seq, err
}
