package workers

import (
	"context"
	"log/slog"

	"parley/domain/event"
	"parley/moderation"

	"github.com/abadojack/whatlanggo"
)

// ModerationWorker sits between the raw message events and the
// broadcastable ones: it detects the content language and censors
// blacklisted words before anything reaches a live session or a sink.
type ModerationWorker struct {
	moderator moderation.Moderator
	rawEvents chan event.DomainEvent
	events    chan event.DomainEvent
	log       *slog.Logger
}

func NewModerationWorker(moderator moderation.Moderator,
	rawEvents, events chan event.DomainEvent, log *slog.Logger) *ModerationWorker {
	return &ModerationWorker{
		moderator: moderator,
		rawEvents: rawEvents,
		events:    events,
		log:       log,
	}
}

func (w ModerationWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case e, ok := <-w.rawEvents:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			if posted, ok := e.(event.MessagePosted); ok {
				select {
				case <-ctx.Done():
					w.log.Debug("Stopping worker")
					return ctx.Err()
				case w.events <- w.toSanitizedEvent(posted):
				}
			}
		}
	}
}

func (w ModerationWorker) toSanitizedEvent(evt event.MessagePosted) event.SanitizedMessage {
	info := whatlanggo.Detect(evt.Content)
	langCode := info.Lang.Iso6391()

	sanitized, foundWords := w.moderator.Censor(evt.Content)
	if len(foundWords) > 0 {
		w.log.Warn("Censored words in message",
			"conversation", evt.Conversation,
			"author", evt.Author,
			"count", len(foundWords),
			"lang", langCode)
	}

	return event.SanitizedMessage{
		ID:           evt.ID,
		Conversation: evt.Conversation,
		Author:       evt.Author,
		AuthorName:   evt.AuthorName,
		Content:      sanitized,
		Lang:         langCode,
		At:           evt.At,
		Members:      evt.Members,
	}
}
