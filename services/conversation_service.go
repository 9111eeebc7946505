package services

import (
	"fmt"
	"log/slog"
	"time"

	"parley/domain"
	"parley/errors"
	"parley/observability"
	"parley/repositories"
	"parley/runtime"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var validate = validator.New()

type CreateConversationRequest struct {
	Name        string `validate:"required,min=3,max=20"`
	Description string `validate:"max=20"`
}

// ResolvedMessage is a message with its sender resolved to a full user.
type ResolvedMessage struct {
	Message domain.Message
	Sender  domain.User
}

// ConversationDetail is the member-only full view: every user reference
// resolved, every message in chronological order.
type ConversationDetail struct {
	Conversation     domain.Conversation
	Admin            domain.User
	Members          []domain.User
	MemberCandidates []domain.User
	NotPermitted     []domain.User
	Messages         []ResolvedMessage
}

type IConversationService interface {
	Create(name, description, creatorID string) (domain.Conversation, error)
	List(requesterID string) ([]domain.Header, error)
	Detail(conversationID, requesterID string) (ConversationDetail, error)
	RequestJoin(name, requesterID string) (domain.JoinStatus, error)
	Decide(conversationID, deciderID, targetID string, approve bool) (domain.Conversation, error)
	Leave(conversationID, requesterID string) (bool, error)
}

// ConversationService owns every membership mutation. Each mutation takes
// the conversation's keyed lock around its read-modify-persist sequence,
// so concurrent calls on the same conversation cannot clobber each other
// while different conversations proceed in parallel.
type ConversationService struct {
	conversations repositories.IConversationRepository
	users         repositories.IUserRepository
	messages      repositories.IMessageRepository
	locks         *runtime.KeyedMutex
	monitor       *observability.Monitor
	log           *slog.Logger
}

func NewConversationService(
	conversations repositories.IConversationRepository,
	users repositories.IUserRepository,
	messages repositories.IMessageRepository,
	locks *runtime.KeyedMutex,
	monitor *observability.Monitor,
	log *slog.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		users:         users,
		messages:      messages,
		locks:         locks,
		monitor:       monitor,
		log:           log,
	}
}

// Create registers a new conversation whose creator becomes sole member
// and admin. Name collisions (exact, case sensitive) fail with
// ErrNameTaken.
func (s *ConversationService) Create(name, description, creatorID string) (domain.Conversation, error) {
	req := CreateConversationRequest{Name: name, Description: description}
	if err := validate.Struct(req); err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	conv := domain.NewConversation(uuid.NewString(), name, description, creatorID, time.Now().UTC())
	if err := s.conversations.Create(conv); err != nil {
		return domain.Conversation{}, err
	}

	s.monitor.IncrConversations()
	s.log.Info("Conversation created", "name", name, "admin", creatorID)
	return conv, nil
}

// List returns {id, name} projections of the conversations the requester
// belongs to. Nothing about other conversations leaks.
func (s *ConversationService) List(requesterID string) ([]domain.Header, error) {
	all, err := s.conversations.ListAll()
	if err != nil {
		return nil, err
	}
	memberOf := lo.Filter(all, func(c domain.Conversation, _ int) bool {
		return c.IsMember(requesterID)
	})
	return lo.Map(memberOf, func(c domain.Conversation, _ int) domain.Header {
		return c.Header()
	}), nil
}

// Detail returns the fully resolved conversation. Members only.
func (s *ConversationService) Detail(conversationID, requesterID string) (ConversationDetail, error) {
	conv, err := s.conversations.GetByID(conversationID)
	if err != nil {
		return ConversationDetail{}, err
	}
	if !conv.IsMember(requesterID) {
		return ConversationDetail{}, errors.ErrForbidden
	}

	members, err := s.resolveUsers(conv.Members)
	if err != nil {
		return ConversationDetail{}, err
	}
	candidates, err := s.resolveUsers(conv.MemberCandidates)
	if err != nil {
		return ConversationDetail{}, err
	}
	rejected, err := s.resolveUsers(conv.NotPermitted)
	if err != nil {
		return ConversationDetail{}, err
	}

	admin, err := s.users.GetByID(conv.Admin)
	if err != nil {
		return ConversationDetail{}, err
	}

	messages, err := s.resolveMessages(conv.ID)
	if err != nil {
		return ConversationDetail{}, err
	}

	return ConversationDetail{
		Conversation:     conv,
		Admin:            toDomainUser(admin),
		Members:          members,
		MemberCandidates: candidates,
		NotPermitted:     rejected,
		Messages:         messages,
	}, nil
}

// RequestJoin evaluates the requester's membership state for the named
// conversation and persists the None -> Candidate transition. All other
// states report their status without mutation, so retries are idempotent.
func (s *ConversationService) RequestJoin(name, requesterID string) (domain.JoinStatus, error) {
	found, err := s.conversations.GetByName(name)
	if err != nil {
		return 0, err
	}

	s.locks.Lock(found.ID)
	defer s.locks.Unlock(found.ID)

	// Re-read under the lock: the snapshot from the name lookup may be
	// stale by the time the lock is acquired.
	conv, err := s.conversations.GetByID(found.ID)
	if err != nil {
		return 0, err
	}

	status := conv.RequestJoin(requesterID, time.Now().UTC())
	if status == domain.JoinRequestSubmitted {
		if err := s.conversations.Save(conv); err != nil {
			return 0, err
		}
	}

	s.monitor.IncrJoinRequests()
	s.log.Info("Join request evaluated",
		"conversation", conv.Name,
		"user", requesterID,
		"status", status.String())
	return status, nil
}

// Decide lets the admin move a candidate to members (approve) or to the
// permanently rejected set. Deciding on a user who is not currently a
// candidate is a silent no-op; the returned snapshot is unchanged.
func (s *ConversationService) Decide(conversationID, deciderID, targetID string, approve bool) (domain.Conversation, error) {
	s.locks.Lock(conversationID)
	defer s.locks.Unlock(conversationID)

	conv, err := s.conversations.GetByID(conversationID)
	if err != nil {
		return domain.Conversation{}, err
	}

	changed, err := conv.Decide(deciderID, targetID, approve, time.Now().UTC())
	if err != nil {
		return domain.Conversation{}, err
	}
	if changed {
		if err := s.conversations.Save(conv); err != nil {
			return domain.Conversation{}, err
		}
		s.log.Info("Candidate decided",
			"conversation", conv.Name,
			"target", targetID,
			"approved", approve)
	}
	return conv, nil
}

// Leave removes the requester from the member set. Leaving a conversation
// one does not belong to reports false without error. The conversation
// survives even when its last member leaves.
func (s *ConversationService) Leave(conversationID, requesterID string) (bool, error) {
	s.locks.Lock(conversationID)
	defer s.locks.Unlock(conversationID)

	conv, err := s.conversations.GetByID(conversationID)
	if err != nil {
		return false, err
	}

	left := conv.Leave(requesterID, time.Now().UTC())
	if left {
		if err := s.conversations.Save(conv); err != nil {
			return false, err
		}
		s.log.Info("Member left", "conversation", conv.Name, "user", requesterID)
	}
	return left, nil
}

func (s *ConversationService) resolveUsers(ids []string) ([]domain.User, error) {
	users, err := s.users.GetByIDs(ids)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u repositories.User, _ int) domain.User {
		return toDomainUser(u)
	}), nil
}

func (s *ConversationService) resolveMessages(conversationID string) ([]ResolvedMessage, error) {
	disk, err := s.messages.ListByConversation(conversationID)
	if err != nil {
		return nil, err
	}

	senderIDs := lo.Uniq(lo.Map(disk, func(m repositories.DiskMessage, _ int) string {
		return m.Author
	}))
	senders, err := s.users.GetByIDs(senderIDs)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(senders, func(u repositories.User) string { return u.ID })

	return lo.Map(disk, func(m repositories.DiskMessage, _ int) ResolvedMessage {
		return ResolvedMessage{
			Message: toDomainMessage(m),
			Sender:  toDomainUser(byID[m.Author]),
		}
	}), nil
}

func toDomainUser(u repositories.User) domain.User {
	return domain.User{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}

func toDomainMessage(m repositories.DiskMessage) domain.Message {
	return domain.Message{
		ID:             m.ID,
		ConversationID: m.Conversation,
		SentBy:         m.Author,
		Content:        m.Content,
		CreatedAt:      m.At,
	}
}
