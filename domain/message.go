// Package domain contains core concepts of the chat system.
// Messages are immutable once stored and ordered per channel
// by their monotonic ID.
package domain

// StoredMessage is one persisted chat line. IDs are assigned by the
// message repository and strictly increase within a channel.
type StoredMessage struct {
	Channel string
	Author  string
	Content string
	ID      int64
}

// NoCursor is the read cursor of a user who has never left a channel:
// every stored message is unseen.
const NoCursor int64 = -1
