package fanout

import (
	"testing"
	"time"

	execpkg "github.com/ethpandaops/xcli/pkg/exec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	b := New(8)

	_, ch := b.Subscribe()

	b.Publish(execpkg.StdoutEvent("hello"))

	select {
	case ev := <-ch:
		assert.Equal(t, execpkg.EventStdout, ev.Kind)
		assert.Equal(t, "hello", ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}
}

// TestBackpressureDropsOldestAndMarks covers spec §8 scenario E6: a slow
// subscriber must receive at least one DroppedEvents marker and must not
// block a fast subscriber receiving everything.
func TestBackpressureDropsOldestAndMarks(t *testing.T) {
	b := New(4)

	_, slow := b.Subscribe()
	_, fast := b.Subscribe()

	done := make(chan struct{})

	go func() {
		defer close(done)

		received := 0
		for received < 200 {
			<-fast
			received++
		}
	}()

	for i := 0; i < 200; i++ {
		b.Publish(execpkg.StdoutEvent("x"))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fast subscriber must receive everything without blocking")
	}

	sawDrop := false

	drain := true
	for drain {
		select {
		case ev := <-slow:
			if ev.Kind == execpkg.EventDropped {
				sawDrop = true
			}
		default:
			drain = false
		}
	}

	require.True(t, sawDrop, "slow subscriber must see a DroppedEvents marker")
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New(4)

	id, ch := b.Subscribe()
	b.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok)
}
