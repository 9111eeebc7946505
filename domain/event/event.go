// Package event defines the domain events flowing through the broadcast
// pipeline, from message append to live-session delivery.
package event

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is anything the fanout can deliver. Events carry the
// membership snapshot taken at emission time so delivery can be filtered
// per member without consulting shared state.
type DomainEvent interface {
	ConversationID() string
	Recipients() []string
}

// MessagePosted is the raw event emitted right after a message has been
// appended and persisted. It feeds the moderation stage, not the sessions.
type MessagePosted struct {
	ID           uuid.UUID
	Conversation string
	Author       string
	AuthorName   string
	Content      string
	At           time.Time
	Members      []string
}

func (m MessagePosted) ConversationID() string { return m.Conversation }
func (m MessagePosted) Recipients() []string   { return m.Members }

// SanitizedMessage is the broadcastable form of MessagePosted: content has
// passed the censor and the detected language is attached. This is what
// live sessions and permanent sinks consume.
type SanitizedMessage struct {
	ID           uuid.UUID
	Conversation string
	Author       string
	AuthorName   string
	Content      string
	Lang         string
	At           time.Time
	Members      []string
}

func (m SanitizedMessage) ConversationID() string { return m.Conversation }
func (m SanitizedMessage) Recipients() []string   { return m.Members }
