package repositories

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"chat-relay/domain"
)

type ICursorRepository interface {
	Get(user, channel string) (int64, error)
	Set(user, channel string, lastSeenID int64) error
}

// CursorRepository tracks, per (user, channel), the highest message ID
// the user has already seen. Keys are "cursor:{user}:{channel}" with a
// fixed-width big-endian value.
type CursorRepository struct {
	db *badger.DB
}

func NewCursorRepository(db *badger.DB) *CursorRepository {
	return &CursorRepository{db: db}
}

func cursorKey(user, channel string) []byte {
	return []byte(fmt.Sprintf("cursor:%s:%s", user, channel))
}

// Get returns the stored cursor, or domain.NoCursor for a user who has
// never finished a session in this channel.
func (c *CursorRepository) Get(user, channel string) (int64, error) {
	cursor := domain.NoCursor
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cursorKey(user, channel))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt cursor value of %d bytes", len(val))
			}
			cursor = int64(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	if err != nil {
		return domain.NoCursor, err
	}
	return cursor, nil
}

// Set upserts the cursor for a (user, channel) pair.
func (c *CursorRepository) Set(user, channel string, lastSeenID int64) error {
	var value [8]byte
	binary.BigEndian.PutUint64(value[:], uint64(lastSeenID))
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cursorKey(user, channel), value[:])
	})
}
