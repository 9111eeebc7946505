package sink

import (
	"context"
	"log/slog"

	"parley/domain/event"
	"parley/search"
)

// SearchSink feeds the full-text index from the broadcast pipeline. Only
// sanitized content is indexed, so search results never resurface censored
// words.
type SearchSink struct {
	index *search.Index
	log   *slog.Logger
}

func NewSearchSink(index *search.Index, log *slog.Logger) SearchSink {
	return SearchSink{index: index, log: log}
}

func (s SearchSink) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.SanitizedMessage)
	if !ok {
		return nil
	}
	return s.index.Add(search.Entry{
		MessageID:    evt.ID.String(),
		Conversation: evt.Conversation,
		Author:       evt.Author,
		Content:      evt.Content,
		At:           evt.At,
	})
}
