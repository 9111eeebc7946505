//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"fmt"
	"time"

	"parley/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(username, passwordHash string) (string, error)
	GetByUsername(username string) (User, error)
	GetByID(id string) (User, error)
	GetByIDs(ids []string) ([]User, error)
	ExistsByUsername(username string) (bool, error)
}

// User is the repository-level representation of an account. The password
// hash never leaves this layer except for credential verification.
type User struct {
	ID           string    `cbor:"id"`
	Username     string    `cbor:"username"`
	PasswordHash string    `cbor:"password_hash"`
	CreatedAt    time.Time `cbor:"created_at"`
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userKey(id string) []byte       { return []byte("user:" + id) }
func usernameKey(name string) []byte { return []byte("username:" + name) }

// CreateUser persists a new account under two keys: the primary record
// ("user:{id}") and a username uniqueness index ("username:{name}" -> id).
// Both writes happen in the same transaction so a concurrent registration
// with the same username cannot slip through.
func (u *UserRepository) CreateUser(username, passwordHash string) (string, error) {
	newID := uuid.NewString()
	user := User{
		ID:           newID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := cbor.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(usernameKey(username)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(usernameKey(username), []byte(newID)); err != nil {
			return err
		}
		return txn.Set(userKey(newID), data)
	})
	if err != nil {
		return "", err
	}
	return newID, nil
}

func (u *UserRepository) GetByUsername(username string) (User, error) {
	var id string
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return User{}, errors.ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return u.GetByID(id)
}

func (u *UserRepository) GetByID(id string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		return getUser(txn, id, &user)
	})
	if err == badger.ErrKeyNotFound {
		return User{}, errors.ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return user, nil
}

// GetByIDs resolves several user records in a single read transaction.
// Unknown IDs are skipped rather than failing the whole lookup, so a
// dangling reference in a conversation doc does not break its detail view.
func (u *UserRepository) GetByIDs(ids []string) ([]User, error) {
	users := make([]User, 0, len(ids))
	err := u.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			var user User
			err := getUser(txn, id, &user)
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return users, nil
}

func (u *UserRepository) ExistsByUsername(username string) (bool, error) {
	err := u.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(usernameKey(username))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return true, nil
}

func getUser(txn *badger.Txn, id string, out *User) error {
	item, err := txn.Get(userKey(id))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, out)
	})
}
