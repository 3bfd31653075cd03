package events_test

import (
	"testing"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndReceive(t *testing.T) {
	bus := events.NewBus(4)
	bus.Publish(events.ScanStarted{Roots: []string{"/tmp"}})
	bus.Publish(events.ScanComplete{})
	bus.Close()

	var got []events.Event
	for e := range bus.Events() {
		got = append(got, e)
	}
	require.Len(t, got, 2)
	_, ok := got[0].(events.ScanStarted)
	assert.True(t, ok)
}

func TestProgressEventsDropUnderSaturationWithoutBlocking(t *testing.T) {
	bus := events.NewBus(1)
	// Fill the buffer with a terminal event that will never be drained.
	bus.Publish(events.ScanStarted{})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(events.VerifyProgress{Done: i, Total: 1000})
		}
		close(done)
	}()

	select {
	case <-done:
	default:
	}
	<-done // Publish must never block on a saturated progress event.
	bus.Close()
}

func TestPublishOnNilBusIsNoop(t *testing.T) {
	var bus *events.Bus
	assert.NotPanics(t, func() {
		bus.Publish(events.ScanStarted{})
		bus.Close()
	})
}

func TestCloseIsIdempotent(t *testing.T) {
	bus := events.NewBus(2)
	bus.Close()
	assert.NotPanics(t, bus.Close)
}
