package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"parley/domain/event"
	"parley/moderation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestModerationWorker_SanitizesAndForwards(t *testing.T) {
	req := require.New(t)
	log := slog.Default()

	moderator, err := moderation.NewModerator([]string{"badger"}, '*')
	req.NoError(err)

	rawEvents := make(chan event.DomainEvent, 1)
	events := make(chan event.DomainEvent, 1)
	worker := NewModerationWorker(moderator, rawEvents, events, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	posted := event.MessagePosted{
		ID:           uuid.New(),
		Conversation: "c1",
		Author:       "alice",
		AuthorName:   "alice",
		Content:      "this little badger does not belong in a friendly conversation about the weather",
		At:           time.Now().UTC(),
		Members:      []string{"alice", "bob"},
	}
	rawEvents <- posted

	select {
	case out := <-events:
		sanitized, ok := out.(event.SanitizedMessage)
		req.True(ok)
		req.Equal("this little ****** does not belong in a friendly conversation about the weather", sanitized.Content)
		req.Equal(posted.ID, sanitized.ID)
		req.Equal("en", sanitized.Lang)
		// The membership snapshot travels with the event untouched
		req.Equal(posted.Members, sanitized.Members)
	case <-time.After(time.Second):
		req.Fail("No sanitized event received")
	}
}

func TestModerationWorker_IgnoresForeignEvents(t *testing.T) {
	req := require.New(t)
	log := slog.Default()

	moderator, err := moderation.NewModerator([]string{"badger"}, '*')
	req.NoError(err)

	rawEvents := make(chan event.DomainEvent, 2)
	events := make(chan event.DomainEvent, 2)
	worker := NewModerationWorker(moderator, rawEvents, events, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	// Already sanitized events must not loop through moderation again
	rawEvents <- event.SanitizedMessage{Conversation: "c1"}
	rawEvents <- event.MessagePosted{Conversation: "c2", Content: "clean"}

	select {
	case out := <-events:
		sanitized, ok := out.(event.SanitizedMessage)
		req.True(ok)
		req.Equal("c2", sanitized.Conversation)
	case <-time.After(time.Second):
		req.Fail("No sanitized event received")
	}
}
