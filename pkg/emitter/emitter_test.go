package emitter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_EmitOrder(t *testing.T) {
	bus := New()

	var got []string
	bus.On("data", func(args ...any) { got = append(got, "first") })
	bus.On("data", func(args ...any) { got = append(got, "second") })
	bus.PrependOn("data", func(args ...any) { got = append(got, "front") })

	handled := bus.Emit("data", 42)

	assert.True(t, handled)
	assert.Equal(t, []string{"front", "first", "second"}, got)
}

func TestBus_EmitNoListeners(t *testing.T) {
	bus := New()

	assert.False(t, bus.Emit("data"))
	assert.Empty(t, bus.EventNames())
}

func TestBus_EmitArgs(t *testing.T) {
	bus := New()

	var got []any
	bus.On("message", func(args ...any) { got = args })
	bus.Emit("message", "hello", 7)

	require.Len(t, got, 2)
	assert.Equal(t, "hello", got[0])
	assert.Equal(t, 7, got[1])
}

func TestBus_OnceFiresExactlyOnce(t *testing.T) {
	bus := New()

	count := 0
	bus.Once("connect", func(args ...any) { count++ })

	bus.Emit("connect")
	bus.Emit("connect")

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, bus.ListenerCount("connect"))
}

func TestBus_OnceRemovedBeforeInvocation(t *testing.T) {
	bus := New()

	// A fire-once listener that emits its own event must not recurse.
	count := 0
	bus.Once("tick", func(args ...any) {
		count++
		bus.Emit("tick")
	})

	bus.Emit("tick")
	assert.Equal(t, 1, count)
}

func TestBus_OffRemovesByIdentity(t *testing.T) {
	bus := New()

	var aCount, bCount int
	a := func(args ...any) { aCount++ }
	b := func(args ...any) { bCount++ }

	bus.On("data", a)
	bus.On("data", b)
	bus.Off("data", a)

	bus.Emit("data")
	assert.Equal(t, 0, aCount)
	assert.Equal(t, 1, bCount)
}

func TestBus_OffRemovesMostRecent(t *testing.T) {
	bus := New()

	count := 0
	fn := func(args ...any) { count++ }

	bus.On("data", fn)
	bus.On("data", fn)
	bus.Off("data", fn)

	assert.Equal(t, 1, bus.ListenerCount("data"))
	bus.Emit("data")
	assert.Equal(t, 1, count)
}

func TestBus_OffUnknownListener(t *testing.T) {
	bus := New()

	var onN, otherN int
	bus.On("data", func(args ...any) { onN++ })

	// Removing a never-registered function is a no-op.
	bus.Off("data", func(args ...any) { otherN++ })
	assert.Equal(t, 1, bus.ListenerCount("data"))
}

func TestBus_RemoveAllListeners(t *testing.T) {
	bus := New()
	bus.On("a", func(args ...any) {})
	bus.On("b", func(args ...any) {})
	bus.On("c", func(args ...any) {})

	bus.RemoveAllListeners("b")
	assert.Equal(t, []string{"a", "c"}, bus.EventNames())

	bus.RemoveAllListeners()
	assert.Empty(t, bus.EventNames())
}

func TestBus_EventNamesInsertionOrder(t *testing.T) {
	bus := New()
	bus.On("z", func(args ...any) {})
	bus.On("a", func(args ...any) {})
	bus.On("m", func(args ...any) {})
	bus.On("a", func(args ...any) {})

	assert.Equal(t, []string{"z", "a", "m"}, bus.EventNames())
}

func TestBus_ListenersSnapshot(t *testing.T) {
	bus := New()
	bus.On("data", func(args ...any) {})
	bus.Once("data", func(args ...any) {})

	assert.Len(t, bus.Listeners("data"), 2)
	assert.Len(t, bus.RawListeners("data"), 2)
	assert.Equal(t, 2, bus.ListenerCount("data"))

	regs := bus.Registrations("data")
	require.Len(t, regs, 2)
	assert.False(t, regs[0].Once)
	assert.True(t, regs[1].Once)
}

func TestBus_MaxListeners(t *testing.T) {
	bus := New()
	assert.Equal(t, DefaultMaxListeners, bus.MaxListeners())

	bus.SetMaxListeners(3)
	assert.Equal(t, 3, bus.MaxListeners())

	bus.SetMaxListeners(-1)
	assert.Equal(t, 0, bus.MaxListeners())
}

func TestBus_Chaining(t *testing.T) {
	bus := New()

	count := 0
	fn := func(args ...any) { count++ }

	bus.On("a", fn).Once("b", fn).SetMaxListeners(20)

	bus.Emit("a")
	bus.Emit("b")
	assert.Equal(t, 2, count)
}

func TestBus_ListenerReentrancy(t *testing.T) {
	bus := New()

	var late bool
	bus.On("setup", func(args ...any) {
		bus.On("ready", func(args ...any) { late = true })
	})

	bus.Emit("setup")
	bus.Emit("ready")
	assert.True(t, late)
}

func TestBus_Stream(t *testing.T) {
	bus := New()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := bus.Stream(ctx, "block")
	require.NoError(t, err)

	bus.Emit("block", map[string]any{"number": 1})

	select {
	case msg := <-msgs:
		assert.JSONEq(t, `[{"number":1}]`, string(msg.Payload))
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for mirrored emission")
	}
}

func TestBus_CloseDropsListeners(t *testing.T) {
	bus := New()

	count := 0
	bus.On("data", func(args ...any) { count++ })

	require.NoError(t, bus.Close())
	assert.False(t, bus.Emit("data"))
	assert.Equal(t, 0, count)
	require.NoError(t, bus.Close())
}
