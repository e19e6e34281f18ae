package runtime

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_One_Entry_Per_Address(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	first := make(Sink, 1)
	second := make(Sink, 1)

	// Re-inserting the same remote address replaces, never duplicates.
	registry.Insert("127.0.0.1:5001", first)
	registry.Insert("127.0.0.1:5001", second)
	req.Equal(1, registry.Size())

	registry.BroadcastExcept("", []byte("ping"))
	req.Empty(first)
	req.Len(second, 1)
}

func TestRegistry_Remove_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	registry.Insert("127.0.0.1:5001", make(Sink, 1))
	req.Equal(1, registry.Size())

	registry.Remove("127.0.0.1:5001")
	registry.Remove("127.0.0.1:5001")
	req.Equal(0, registry.Size())

	// Removing a key that never existed is fine too.
	registry.Remove("127.0.0.1:9999")
	req.Equal(0, registry.Size())
}

func TestRegistry_Broadcast_Skips_Sender(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	sender := make(Sink, 4)
	other1 := make(Sink, 4)
	other2 := make(Sink, 4)
	registry.Insert("sender", sender)
	registry.Insert("other1", other1)
	registry.Insert("other2", other2)

	registry.BroadcastExcept("sender", []byte("hello"))

	req.Empty(sender)
	req.Equal([]byte("hello"), <-other1)
	req.Equal([]byte("hello"), <-other2)
}

func TestRegistry_Broadcast_To_Nobody_Succeeds(t *testing.T) {
	registry := NewRegistry(slog.Default())
	// No peers at all: a no-op, not a failure.
	registry.BroadcastExcept("ghost", []byte("into the void"))

	// One peer which is the sender itself: still a no-op.
	registry.Insert("ghost", make(Sink, 1))
	registry.BroadcastExcept("ghost", []byte("still nothing"))
}

func TestRegistry_Slow_Peer_Never_Blocks_Others(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	stuck := make(Sink) // unbuffered and never drained
	healthy := make(Sink, 4)
	registry.Insert("stuck", stuck)
	registry.Insert("healthy", healthy)

	// Must return immediately, dropping the line for the stuck peer.
	registry.BroadcastExcept("", []byte("one"))
	registry.BroadcastExcept("", []byte("two"))

	req.Len(healthy, 2)
	req.Empty(stuck)
}

func TestRegistry_Preserves_Sender_Order(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	receiver := make(Sink, 8)
	registry.Insert("receiver", receiver)

	for _, line := range []string{"first", "second", "third"} {
		registry.BroadcastExcept("sender", []byte(line))
	}

	req.Equal("first", string(<-receiver))
	req.Equal("second", string(<-receiver))
	req.Equal("third", string(<-receiver))
}
