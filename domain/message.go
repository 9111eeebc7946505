// Messages are immutable and validated by the domain.
package domain

import (
	"unicode/utf8"

	"parley/errors"

	"github.com/google/uuid"
	"time"
)

const MaxContentLen = 200

// Message represents an immutable chat event. There is no edit or delete
// path once it has been appended to a conversation.
type Message struct {
	ID             uuid.UUID
	ConversationID string
	SentBy         string
	Content        string
	CreatedAt      time.Time
}

// ValidateContent enforces the message content constraints: required, at
// most MaxContentLen characters. The limit counts runes, not bytes.
func ValidateContent(content string) error {
	if content == "" {
		return errors.ErrValidation
	}
	if utf8.RuneCountInString(content) > MaxContentLen {
		return errors.ErrValidation
	}
	return nil
}
