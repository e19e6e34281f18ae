package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"chat-relay/errors"
)

type IUserRepository interface {
	Create(name, passwordHash string) error
	Get(name string) (User, error)
}

// User is the repository-level account record. The hash is the encoded
// argon2id string produced by the auth package.
type User struct {
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserRepository persists accounts under "user:{name}" keys.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userKey(name string) []byte { return []byte("user:" + name) }

// Create stores a new account, refusing names already on record.
func (u *UserRepository) Create(name, passwordHash string) error {
	value, err := json.Marshal(User{
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(name)); err == nil {
			return errors.ErrNameTaken
		}
		return txn.Set(userKey(name), value)
	})
}

// Get fetches an account by name. An unknown name surfaces as
// ErrInvalidCredentials so callers never learn which half was wrong.
func (u *UserRepository) Get(name string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(name))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrInvalidCredentials
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}
