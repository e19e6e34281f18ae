package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func Test_Cursor_Defaults_To_NoCursor(t *testing.T) {
	req := require.New(t)
	repository := NewCursorRepository(openTestDB(t))

	cursor, err := repository.Get("alice", "RED")
	req.NoError(err)
	req.Equal(domain.NoCursor, cursor)
}

func Test_Cursor_Upsert(t *testing.T) {
	req := require.New(t)
	repository := NewCursorRepository(openTestDB(t))

	req.NoError(repository.Set("alice", "RED", 3))
	cursor, err := repository.Get("alice", "RED")
	req.NoError(err)
	req.Equal(int64(3), cursor)

	// A later session moves it forward in place.
	req.NoError(repository.Set("alice", "RED", 7))
	cursor, err = repository.Get("alice", "RED")
	req.NoError(err)
	req.Equal(int64(7), cursor)

	// Other pairs are untouched.
	cursor, err = repository.Get("alice", "BLUE")
	req.NoError(err)
	req.Equal(domain.NoCursor, cursor)
	cursor, err = repository.Get("bob", "RED")
	req.NoError(err)
	req.Equal(domain.NoCursor, cursor)
}
