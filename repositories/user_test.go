package repositories

import (
	"testing"

	"parley/errors"

	"github.com/stretchr/testify/require"
)

func Test_CreateUser_And_Lookup(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	id, err := repository.CreateUser("alice", "$argon2id$fake")
	req.NoError(err)
	req.NotEmpty(id)

	byID, err := repository.GetByID(id)
	req.NoError(err)
	req.Equal("alice", byID.Username)
	req.Equal("$argon2id$fake", byID.PasswordHash)

	byName, err := repository.GetByUsername("alice")
	req.NoError(err)
	req.Equal(id, byName.ID)

	exists, err := repository.ExistsByUsername("alice")
	req.NoError(err)
	req.True(exists)
}

func Test_CreateUser_Rejects_Duplicate_Username(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	_, err := repository.CreateUser("alice", "hash1")
	req.NoError(err)

	_, err = repository.CreateUser("alice", "hash2")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_GetByIDs_Skips_Unknown_References(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	aliceID, err := repository.CreateUser("alice", "hash")
	req.NoError(err)
	bobID, err := repository.CreateUser("bob", "hash")
	req.NoError(err)

	users, err := repository.GetByIDs([]string{aliceID, "dangling", bobID})
	req.NoError(err)
	req.Len(users, 2)
	req.Equal("alice", users[0].Username)
	req.Equal("bob", users[1].Username)
}

func Test_Unknown_User_Lookups(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	_, err := repository.GetByID("ghost")
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = repository.GetByUsername("ghost")
	req.ErrorIs(err, errors.ErrNotFound)

	exists, err := repository.ExistsByUsername("ghost")
	req.NoError(err)
	req.False(exists)
}
