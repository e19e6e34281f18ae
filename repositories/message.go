package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"chat-relay/domain"
)

// sequenceBandwidth is how many IDs a badger.Sequence leases at a time.
// A restart may skip leased-but-unused IDs; ordering is what matters,
// not density.
const sequenceBandwidth = 64

type IMessageRepository interface {
	Append(channel, author, content string) (int64, error)
	After(channel string, sinceID int64) ([]domain.StoredMessage, error)
	MaxID(channel string) (int64, error)
}

// MessageRepository persists messages in BadgerDB.
// The key is formatted as "msg:{channel}:{id_padded}" so that a prefix
// scan yields messages in ascending ID order (20-digit zero padding
// keeps lexicographic and numeric order aligned). IDs come from a
// per-channel badger.Sequence and strictly increase.
type MessageRepository struct {
	db   *badger.DB
	log  *slog.Logger
	mu   sync.Mutex
	seqs map[string]*badger.Sequence
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log, seqs: make(map[string]*badger.Sequence)}
}

type diskMessage struct {
	Author  string `json:"author"`
	Content string `json:"content"`
	ID      int64  `json:"id"`
}

func messageKey(channel string, id int64) []byte {
	return []byte(fmt.Sprintf("msg:%s:%020d", channel, id))
}

func messagePrefix(channel string) []byte {
	return []byte(fmt.Sprintf("msg:%s:", channel))
}

// Append stores one message and returns its assigned ID.
func (m *MessageRepository) Append(channel, author, content string) (int64, error) {
	id, err := m.nextID(channel)
	if err != nil {
		return 0, fmt.Errorf("assigning message id: %w", err)
	}
	value, err := json.Marshal(diskMessage{Author: author, Content: content, ID: id})
	if err != nil {
		return 0, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(channel, id), value)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// After returns every message of a channel with ID > sinceID, ascending.
func (m *MessageRepository) After(channel string, sinceID int64) ([]domain.StoredMessage, error) {
	var messages []domain.StoredMessage
	prefix := messagePrefix(channel)
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(messageKey(channel, sinceID+1)); it.ValidForPrefix(prefix); it.Next() {
			var dm diskMessage
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &dm)
			})
			if err != nil {
				return err
			}
			messages = append(messages, domain.StoredMessage{
				Channel: channel,
				Author:  dm.Author,
				Content: dm.Content,
				ID:      dm.ID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MaxID returns the highest stored ID for a channel, or domain.NoCursor
// when the channel has no messages yet.
func (m *MessageRepository) MaxID(channel string) (int64, error) {
	maxID := domain.NoCursor
	prefix := messagePrefix(channel)
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek just past the largest possible key for this prefix,
		// then the first valid entry is the newest message.
		it.Seek(messageKey(channel, int64(^uint64(0)>>1)))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		raw := it.Item().Key()[len(prefix):]
		id, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return err
		}
		maxID = id
		return nil
	})
	if err != nil {
		return domain.NoCursor, err
	}
	return maxID, nil
}

// Close releases the ID sequences so unused leases return to the store.
func (m *MessageRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, seq := range m.seqs {
		if err := seq.Release(); err != nil {
			m.log.Warn("Releasing message sequence failed", "error", err)
		}
	}
	m.seqs = make(map[string]*badger.Sequence)
	return nil
}

func (m *MessageRepository) nextID(channel string) (int64, error) {
	m.mu.Lock()
	seq, ok := m.seqs[channel]
	if !ok {
		var err error
		seq, err = m.db.GetSequence([]byte("seq:msg:"+channel), sequenceBandwidth)
		if err != nil {
			m.mu.Unlock()
			return 0, err
		}
		m.seqs[channel] = seq
	}
	m.mu.Unlock()

	next, err := seq.Next()
	if err != nil {
		return 0, err
	}
	return int64(next), nil
}
