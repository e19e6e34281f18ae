package repositories

import (
	"github.com/dgraph-io/badger/v4"
)

type IChannelRepository interface {
	Put(name string) error
	Names() ([]string, error)
}

// ChannelRepository persists channel names under "channel:{name}" keys
// so rooms survive a restart. Listening addresses are not stored; every
// start binds fresh ephemeral ports.
type ChannelRepository struct {
	db *badger.DB
}

func NewChannelRepository(db *badger.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

var channelPrefix = []byte("channel:")

// Put records a channel name. Re-recording an existing name is a no-op.
func (c *ChannelRepository) Put(name string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(append(channelPrefix, name...), nil)
	})
}

// Names lists every recorded channel in key order.
func (c *ChannelRepository) Names() ([]string, error) {
	var names []string
	err := c.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(channelPrefix); it.ValidForPrefix(channelPrefix); it.Next() {
			names = append(names, string(it.Item().Key()[len(channelPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
