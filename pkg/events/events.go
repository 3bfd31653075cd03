// Package events implements a bounded, many-producer single-consumer
// channel carrying progress and completion notices from discovery,
// verification, and quarantine to an observer such as a TUI.
//
// The bus is purely observational: the synchronous return values of
// Find, Verify, and Quarantine are always the source of truth; a nil
// *Bus is valid everywhere one is accepted and simply disables event
// delivery.
package events

import (
	"sync"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/conflict"
)

// DefaultCapacity is the default channel buffer size.
const DefaultCapacity = 256

// Event is the sealed set of notifications the bus carries.
type Event interface{ eventMarker() }

type ScanStarted struct{ Roots []string }
type CandidateFound struct {
	Path    string
	Pattern conflict.Pattern
}
type VerifyProgress struct {
	Done    int
	Total   int
	Current string
}
type VerifyOutcome struct{ Outcome any }
type ScanComplete struct{ Report any }
type ScanCancelled struct{}
type QuarantineProgress struct {
	Done    int
	Total   int
	Current string
}
type QuarantineComplete struct {
	Manifest any
	Failed   any
}
type Error struct {
	Where  string
	Reason string
}

func (ScanStarted) eventMarker()         {}
func (CandidateFound) eventMarker()      {}
func (VerifyProgress) eventMarker()      {}
func (VerifyOutcome) eventMarker()       {}
func (ScanComplete) eventMarker()        {}
func (ScanCancelled) eventMarker()       {}
func (QuarantineProgress) eventMarker()  {}
func (QuarantineComplete) eventMarker()  {}
func (Error) eventMarker()               {}

// Bus delivers events to a single consumer over a bounded channel.
//
// Progress events (VerifyProgress, QuarantineProgress) never block a
// producer: when the buffer is saturated the incoming progress event is
// dropped. Events already queued are not replaced or coalesced, so under
// overflow the consumer sees the older progress snapshots, not the most
// recent one. VerifyOutcome and the terminal
// events (ScanStarted/ScanComplete/ScanCancelled/QuarantineComplete/
// Error) are delivered with a blocking send and are never dropped.
type Bus struct {
	ch     chan Event
	done   chan struct{}
	once   sync.Once
}

// NewBus creates a Bus with the given buffer capacity.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		ch:   make(chan Event, capacity),
		done: make(chan struct{}),
	}
}

// Events returns the channel observers should range over.
func (b *Bus) Events() <-chan Event {
	return b.ch
}

// Publish delivers e to the bus. Publish on a nil *Bus is a safe no-op,
// so producers never need a nil check of their own.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	switch e.(type) {
	case VerifyProgress, QuarantineProgress:
		select {
		case b.ch <- e:
		case <-b.done:
		default:
			// Buffer saturated: drop this progress snapshot rather than
			// block the producer or evict an already-queued one.
		}
	default:
		select {
		case b.ch <- e:
		case <-b.done:
		}
	}
}

// Close signals cancellation to producers and stops accepting new
// events. Safe to call more than once and from any goroutine.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.once.Do(func() {
		close(b.done)
		close(b.ch)
	})
}

// Done returns a channel that is closed once Close has been called,
// letting producers notice cancellation at their next checkpoint.
func (b *Bus) Done() <-chan struct{} {
	if b == nil {
		return closedChan
	}
	return b.done
}

var closedChan = func() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()
