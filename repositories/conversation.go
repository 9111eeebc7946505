//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"fmt"
	"time"

	"parley/domain"
	"parley/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/samber/lo"
)

type IConversationRepository interface {
	Create(conv domain.Conversation) error
	Save(conv domain.Conversation) error
	GetByID(id string) (domain.Conversation, error)
	GetByName(name string) (domain.Conversation, error)
	ListAll() ([]domain.Conversation, error)
}

// diskConversation mirrors domain.Conversation for storage. Message order
// lives in the message keys, not here.
type diskConversation struct {
	ID               string    `cbor:"id"`
	Name             string    `cbor:"name"`
	Description      string    `cbor:"description"`
	Admin            string    `cbor:"admin"`
	Members          []string  `cbor:"members"`
	MemberCandidates []string  `cbor:"member_candidates"`
	NotPermitted     []string  `cbor:"not_permitted"`
	CreatedAt        time.Time `cbor:"created_at"`
	UpdatedAt        time.Time `cbor:"updated_at"`
}

type ConversationRepository struct {
	db *badger.DB
}

func NewConversationRepository(db *badger.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func convKey(id string) []byte       { return []byte("conv:" + id) }
func convNameKey(name string) []byte { return []byte("convname:" + name) }

// Create persists a new conversation and its name uniqueness index
// ("convname:{name}" -> id) in one transaction. Name matching is exact and
// case sensitive.
func (c *ConversationRepository) Create(conv domain.Conversation) error {
	data, err := cbor.Marshal(fromConversation(conv))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(convNameKey(conv.Name)); err == nil {
			return errors.ErrNameTaken
		}
		if err := txn.Set(convNameKey(conv.Name), []byte(conv.ID)); err != nil {
			return err
		}
		return txn.Set(convKey(conv.ID), data)
	})
}

// Save overwrites the conversation document. The name is immutable after
// creation so the index entry never moves.
func (c *ConversationRepository) Save(conv domain.Conversation) error {
	data, err := cbor.Marshal(fromConversation(conv))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(convKey(conv.ID), data)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return nil
}

func (c *ConversationRepository) GetByID(id string) (domain.Conversation, error) {
	var disk diskConversation
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(convKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &disk)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Conversation{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return toConversation(disk), nil
}

func (c *ConversationRepository) GetByName(name string) (domain.Conversation, error) {
	var id string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(convNameKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Conversation{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return c.GetByID(id)
}

// ListAll scans the "conv:" prefix. Listings are small enough that member
// filtering happens in the service, matching the lookup-then-filter shape
// of the rest of the storage layer.
func (c *ConversationRepository) ListAll() ([]domain.Conversation, error) {
	var disks []diskConversation
	err := c.db.View(func(txn *badger.Txn) error {
		prefix := []byte("conv:")
		options := badger.DefaultIteratorOptions
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var disk diskConversation
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &disk)
			})
			if err != nil {
				return err
			}
			disks = append(disks, disk)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return lo.Map(disks, func(d diskConversation, _ int) domain.Conversation {
		return toConversation(d)
	}), nil
}

func fromConversation(conv domain.Conversation) diskConversation {
	return diskConversation{
		ID:               conv.ID,
		Name:             conv.Name,
		Description:      conv.Description,
		Admin:            conv.Admin,
		Members:          conv.Members,
		MemberCandidates: conv.MemberCandidates,
		NotPermitted:     conv.NotPermitted,
		CreatedAt:        conv.CreatedAt,
		UpdatedAt:        conv.UpdatedAt,
	}
}

func toConversation(disk diskConversation) domain.Conversation {
	return domain.Conversation{
		ID:               disk.ID,
		Name:             disk.Name,
		Description:      disk.Description,
		Admin:            disk.Admin,
		Members:          disk.Members,
		MemberCandidates: disk.MemberCandidates,
		NotPermitted:     disk.NotPermitted,
		CreatedAt:        disk.CreatedAt,
		UpdatedAt:        disk.UpdatedAt,
	}
}
