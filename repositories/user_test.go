package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/errors"
)

func Test_Create_And_Get_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	req.NoError(repository.Create("alice", "$argon2id$fake"))

	user, err := repository.Get("alice")
	req.NoError(err)
	req.Equal("alice", user.Name)
	req.Equal("$argon2id$fake", user.PasswordHash)
	req.False(user.CreatedAt.IsZero())
}

func Test_Create_Refuses_Taken_Name(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	req.NoError(repository.Create("alice", "hash-one"))
	err := repository.Create("alice", "hash-two")
	req.ErrorIs(err, errors.ErrNameTaken)
}

func Test_Get_Unknown_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.Get("nobody")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func Test_Channel_Names_Persist(t *testing.T) {
	req := require.New(t)
	repository := NewChannelRepository(openTestDB(t))

	names, err := repository.Names()
	req.NoError(err)
	req.Empty(names)

	req.NoError(repository.Put("RED"))
	req.NoError(repository.Put("BLUE"))
	req.NoError(repository.Put("RED")) // idempotent

	names, err = repository.Names()
	req.NoError(err)
	req.ElementsMatch([]string{"RED", "BLUE"}, names)
}
