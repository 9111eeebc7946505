package services

import (
	"context"
	"log/slog"
	"time"

	"parley/contract"
	"parley/domain"
	"parley/domain/event"
	"parley/errors"
	"parley/observability"
	"parley/projection"
	"parley/repositories"
	"parley/runtime"
	"parley/search"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IChatService interface {
	SendMessage(ctx context.Context, conversationID, senderID, content string) (ResolvedMessage, error)
	Messages(conversationID, requesterID string, cursor *string) ([]domain.Message, *string, error)
	Search(ctx context.Context, conversationID, requesterID, terms string, limit int) ([]search.Entry, error)
	Recent(conversationID, requesterID string) ([]event.SanitizedMessage, error)
	Connect(sessionID, userID string, sink contract.EventSink)
	Disconnect(sessionID string)
}

// ChatService appends messages to the durable log and hands the resulting
// event to the dispatcher for broadcast. The append itself is synchronous:
// when SendMessage returns, the message is persisted; only delivery to
// live sessions is best-effort.
type ChatService struct {
	conversations repositories.IConversationRepository
	users         repositories.IUserRepository
	messages      repositories.IMessageRepository
	locks         *runtime.KeyedMutex
	dispatcher    *runtime.Dispatcher
	registry      contract.IRegistry
	index         *search.Index
	timeline      *projection.Timeline
	monitor       *observability.Monitor
	log           *slog.Logger
}

func NewChatService(
	conversations repositories.IConversationRepository,
	users repositories.IUserRepository,
	messages repositories.IMessageRepository,
	locks *runtime.KeyedMutex,
	dispatcher *runtime.Dispatcher,
	registry contract.IRegistry,
	index *search.Index,
	timeline *projection.Timeline,
	monitor *observability.Monitor,
	log *slog.Logger,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		users:         users,
		messages:      messages,
		locks:         locks,
		dispatcher:    dispatcher,
		registry:      registry,
		index:         index,
		timeline:      timeline,
		monitor:       monitor,
		log:           log,
	}
}

// SendMessage validates, persists and broadcasts one message. Fails with
// ErrForbidden when the sender is not a member and ErrValidation when the
// content is empty or too long. The emitted event carries the membership
// snapshot so the fanout can filter delivery per member.
func (s *ChatService) SendMessage(_ context.Context, conversationID, senderID, content string) (ResolvedMessage, error) {
	if err := domain.ValidateContent(content); err != nil {
		return ResolvedMessage{}, err
	}

	s.locks.Lock(conversationID)
	conv, err := s.conversations.GetByID(conversationID)
	if err != nil {
		s.locks.Unlock(conversationID)
		return ResolvedMessage{}, err
	}
	if !conv.IsMember(senderID) {
		s.locks.Unlock(conversationID)
		return ResolvedMessage{}, errors.ErrForbidden
	}

	sender, err := s.users.GetByID(senderID)
	if err != nil {
		s.locks.Unlock(conversationID)
		return ResolvedMessage{}, err
	}

	message := repositories.DiskMessage{
		ID:           uuid.New(),
		Conversation: conversationID,
		Author:       senderID,
		Content:      content,
		At:           time.Now().UTC(),
	}
	if err := s.messages.StoreMessage(message); err != nil {
		s.locks.Unlock(conversationID)
		return ResolvedMessage{}, err
	}
	members := append([]string(nil), conv.Members...)
	s.locks.Unlock(conversationID)

	s.monitor.IncrMessagesPosted()
	s.dispatcher.Publish(event.MessagePosted{
		ID:           message.ID,
		Conversation: conversationID,
		Author:       senderID,
		AuthorName:   sender.Username,
		Content:      content,
		At:           message.At,
		Members:      members,
	})

	return ResolvedMessage{
		Message: toDomainMessage(message),
		Sender:  toDomainUser(sender),
	}, nil
}

// Messages returns a newest-first page of the conversation log. Members
// only, like the detail view.
func (s *ChatService) Messages(conversationID, requesterID string, cursor *string) ([]domain.Message, *string, error) {
	conv, err := s.conversations.GetByID(conversationID)
	if err != nil {
		return nil, nil, err
	}
	if !conv.IsMember(requesterID) {
		return nil, nil, errors.ErrForbidden
	}

	disk, next, err := s.messages.GetMessages(conversationID, cursor)
	if err != nil {
		return nil, nil, err
	}
	messages := lo.Map(disk, func(m repositories.DiskMessage, _ int) domain.Message {
		return toDomainMessage(m)
	})
	return messages, next, nil
}

// Search runs a member-only full-text query over the conversation's
// sanitized message content.
func (s *ChatService) Search(ctx context.Context, conversationID, requesterID, terms string, limit int) ([]search.Entry, error) {
	conv, err := s.conversations.GetByID(conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsMember(requesterID) {
		return nil, errors.ErrForbidden
	}
	return s.index.Search(ctx, conversationID, terms, limit)
}

// Recent returns the in-memory timeline of a conversation: the last few
// sanitized broadcasts, chronological. Members only.
func (s *ChatService) Recent(conversationID, requesterID string) ([]event.SanitizedMessage, error) {
	conv, err := s.conversations.GetByID(conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsMember(requesterID) {
		return nil, errors.ErrForbidden
	}
	return s.timeline.Recent(conversationID), nil
}

// Connect registers a live session for a resolved identity.
func (s *ChatService) Connect(sessionID, userID string, sink contract.EventSink) {
	s.registry.Register(sessionID, userID, sink)
}

// Disconnect drops a live session.
func (s *ChatService) Disconnect(sessionID string) {
	s.registry.Unregister(sessionID)
}
