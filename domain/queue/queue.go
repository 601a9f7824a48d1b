// Package queue decodes the circular event-queue account and extracts
// trade fills from it.
package queue

import (
	"encoding/binary"
	"fmt"

	"bookmirror/domain/market"
)

const (
	// HeaderLen is the fixed byte length of the queue header: 5
	// bytes of account padding, a u64 flag word, then head, count
	// and seqNum as u32 each followed by 4 pad bytes.
	HeaderLen = 37
	// EventLen is the fixed stride of one event record.
	EventLen = 88
)

// EventFlags is the 1-byte flag set on every event.
type EventFlags uint8

const (
	EventFlagFill  EventFlags = 0x1
	EventFlagOut   EventFlags = 0x2
	EventFlagBid   EventFlags = 0x4
	EventFlagMaker EventFlags = 0x8
)

func (f EventFlags) IsFill() bool  { return f&EventFlagFill != 0 }
func (f EventFlags) IsOut() bool   { return f&EventFlagOut != 0 }
func (f EventFlags) IsBid() bool   { return f&EventFlagBid != 0 }
func (f EventFlags) IsMaker() bool { return f&EventFlagMaker != 0 }

// Header mirrors the event-queue account header. Head is the ring
// index of the oldest unconsumed event, Count the number of events in
// the ring, SeqNum the sequence number of the newest event written.
type Header struct {
	AccountFlags uint64
	Head         uint32
	Count        uint32
	SeqNum       uint32
}

// Event is one decoded event record. Read-only, like everything else
// produced from account snapshots.
type Event struct {
	Flags                  EventFlags
	OwnerSlot              uint8
	FeeTier                uint8
	NativeQuantityReleased uint64
	NativeQuantityPaid     uint64
	NativeFeeOrRebate      uint64
	OrderID                market.Key
	Owner                  [32]byte
	ClientOrderID          uint64
	SeqNum                 uint32
}

// EventQueue is a decoded snapshot of the ring: Events holds the
// in-queue events oldest first.
type EventQueue struct {
	Header Header
	Events []Event
}

// FormatError reports a queue buffer inconsistent with its header.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "queue: bad format: " + e.Reason
}

func formatErrorf(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// Decode parses a raw event-queue account buffer. The ring capacity
// is whatever whole event records fit after the header; Count events
// are read starting at Head, wrapping around the ring. Per-event
// sequence numbers are derived from the header counter, which tracks
// the newest event.
func Decode(buf []byte) (*EventQueue, error) {
	if len(buf) < HeaderLen {
		return nil, formatErrorf("buffer is %d bytes, header needs %d", len(buf), HeaderLen)
	}
	h := Header{
		AccountFlags: binary.LittleEndian.Uint64(buf[5:13]),
		Head:         binary.LittleEndian.Uint32(buf[13:17]),
		Count:        binary.LittleEndian.Uint32(buf[21:25]),
		SeqNum:       binary.LittleEndian.Uint32(buf[29:33]),
	}
	rest := len(buf) - HeaderLen
	if rest%EventLen != 0 {
		return nil, formatErrorf("%d bytes after header is not a multiple of the %d-byte event stride", rest, EventLen)
	}
	ring := rest / EventLen
	if int(h.Count) > ring {
		return nil, formatErrorf("count %d exceeds ring capacity %d", h.Count, ring)
	}
	if ring == 0 {
		if h.Head != 0 {
			return nil, formatErrorf("head %d with empty ring", h.Head)
		}
		return &EventQueue{Header: h}, nil
	}
	if int(h.Head) >= ring {
		return nil, formatErrorf("head %d outside ring capacity %d", h.Head, ring)
	}

	events := make([]Event, h.Count)
	for i := range events {
		idx := (int(h.Head) + i) % ring
		events[i] = decodeEvent(buf[HeaderLen+idx*EventLen:][:EventLen])
		events[i].SeqNum = h.SeqNum - h.Count + 1 + uint32(i)
	}
	return &EventQueue{Header: h, Events: events}, nil
}

func decodeEvent(rec []byte) Event {
	ev := Event{
		Flags:                  EventFlags(rec[0]),
		OwnerSlot:              rec[1],
		FeeTier:                rec[2],
		NativeQuantityReleased: binary.LittleEndian.Uint64(rec[8:16]),
		NativeQuantityPaid:     binary.LittleEndian.Uint64(rec[16:24]),
		NativeFeeOrRebate:      binary.LittleEndian.Uint64(rec[24:32]),
		OrderID: market.Key{
			Lo: binary.LittleEndian.Uint64(rec[32:40]),
			Hi: binary.LittleEndian.Uint64(rec[40:48]),
		},
		ClientOrderID: binary.LittleEndian.Uint64(rec[80:88]),
	}
	copy(ev.Owner[:], rec[48:80])
	return ev
}
