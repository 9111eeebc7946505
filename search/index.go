// Package search maintains a full-text index over sanitized message
// content. The index is fed asynchronously by the broadcast pipeline and
// queried by the member-only search endpoint.
package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"
)

// Entry is a message as indexed: sanitized content plus enough metadata to
// display a search hit without a second lookup.
type Entry struct {
	MessageID    string
	Conversation string
	Author       string
	Content      string
	At           time.Time
}

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(writer *bluge.Writer, log *slog.Logger) *Index {
	return &Index{writer: writer, log: log}
}

// Add indexes one message. Update is idempotent on the message ID, so
// replaying an event cannot duplicate a hit.
func (i *Index) Add(entry Entry) error {
	doc := bluge.NewDocument(entry.MessageID).
		AddField(bluge.NewTextField("content", entry.Content).StoreValue()).
		AddField(bluge.NewKeywordField("conversation", entry.Conversation).StoreValue()).
		AddField(bluge.NewKeywordField("author", entry.Author).StoreValue()).
		AddField(bluge.NewKeywordField("at", entry.At.UTC().Format(time.RFC3339Nano)).StoreValue()).
		AddField(bluge.NewDateTimeField("sort_at", entry.At.UTC()).Sortable())
	return i.writer.Update(doc.ID(), doc)
}

// Search runs a match query over message content restricted to one
// conversation, newest first.
func (i *Index) Search(ctx context.Context, conversationID, terms string, limit int) ([]Entry, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("content")).
		AddMust(bluge.NewTermQuery(conversationID).SetField("conversation"))

	request := bluge.NewTopNSearch(limit, query).SortBy([]string{"-sort_at"})
	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		var entry Entry
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				entry.MessageID = string(value)
			case "conversation":
				entry.Conversation = string(value)
			case "author":
				entry.Author = string(value)
			case "content":
				entry.Content = string(value)
			case "at":
				if at, err := time.Parse(time.RFC3339Nano, string(value)); err == nil {
					entry.At = at
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
