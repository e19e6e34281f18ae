package runtime

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Sink is the outbound queue of one peer: already-encoded wire lines,
// drained exclusively by the owning peer session.
type Sink chan []byte

// Registry is the shared peer map of one channel, keyed by remote
// address. It rides on sync.Map so inserts, removals, and broadcast
// iteration contend per key; no peer blocks the others behind a global
// exclusive lock.
type Registry struct {
	peers sync.Map
	size  atomic.Int64
	log   *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{log: log}
}

// Insert registers a peer's sink under its remote address. There is at
// most one live entry per address; a leftover entry under the same key
// is overwritten, never duplicated.
func (r *Registry) Insert(key string, sink Sink) {
	if _, loaded := r.peers.Swap(key, sink); !loaded {
		r.size.Add(1)
	}
}

// Remove drops a peer's entry. Safe to call more than once; cleanup
// paths and external shutdown may race on it.
func (r *Registry) Remove(key string) {
	if _, loaded := r.peers.LoadAndDelete(key); loaded {
		r.size.Add(-1)
	}
}

// BroadcastExcept delivers one line to every registered peer except the
// excluded key. A full sink means a slow or dead peer: the line is
// dropped for that peer only and the fan-out carries on. Sends happen
// inline in the caller's goroutine, so each sender's lines land in every
// sink in the order they were sent.
func (r *Registry) BroadcastExcept(excludedKey string, line []byte) {
	r.peers.Range(func(key, value any) bool {
		if key.(string) == excludedKey {
			return true
		}
		select {
		case value.(Sink) <- line:
		default:
			r.log.Debug("Dropping line for slow peer", "peer", key)
		}
		return true
	})
}

// Size reports the current number of registered peers.
func (r *Registry) Size() int {
	return int(r.size.Load())
}
