package repositories

import (
	"testing"
	"time"

	"parley/domain"
	"parley/errors"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func Test_Create_And_Fetch_Conversation(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewConversationRepository(db)

	conv := domain.NewConversation("c1", "team-chat", "daily chatter", "alice", time.Now().UTC())
	req.NoError(repository.Create(conv))

	byID, err := repository.GetByID("c1")
	req.NoError(err)
	req.Equal("team-chat", byID.Name)
	req.Equal("alice", byID.Admin)
	req.Equal([]string{"alice"}, byID.Members)

	byName, err := repository.GetByName("team-chat")
	req.NoError(err)
	req.Equal("c1", byName.ID)
}

func Test_Create_Rejects_Duplicate_Name(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewConversationRepository(db)

	now := time.Now().UTC()
	req.NoError(repository.Create(domain.NewConversation("c1", "team-chat", "", "alice", now)))

	err := repository.Create(domain.NewConversation("c2", "team-chat", "", "bob", now))
	req.ErrorIs(err, errors.ErrNameTaken)

	// Names are case sensitive: a different casing is a different name
	req.NoError(repository.Create(domain.NewConversation("c3", "Team-Chat", "", "bob", now)))
}

func Test_Save_Persists_Membership_Changes(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewConversationRepository(db)

	now := time.Now().UTC()
	conv := domain.NewConversation("c1", "team-chat", "", "alice", now)
	req.NoError(repository.Create(conv))

	conv.RequestJoin("bob", now)
	req.NoError(repository.Save(conv))

	stored, err := repository.GetByID("c1")
	req.NoError(err)
	req.Equal([]string{"bob"}, stored.MemberCandidates)
	req.Equal(domain.MembershipCandidate, stored.MembershipOf("bob"))
}

func Test_Get_Unknown_Conversation(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewConversationRepository(db)

	_, err := repository.GetByID("ghost")
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = repository.GetByName("ghost")
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_ListAll_Returns_Every_Conversation(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewConversationRepository(db)

	now := time.Now().UTC()
	req.NoError(repository.Create(domain.NewConversation("c1", "alpha", "", "alice", now)))
	req.NoError(repository.Create(domain.NewConversation("c2", "beta", "", "bob", now)))

	all, err := repository.ListAll()
	req.NoError(err)
	req.Len(all, 2)
	names := lo.Map(all, func(c domain.Conversation, _ int) string { return c.Name })
	req.ElementsMatch([]string{"alpha", "beta"}, names)
}
