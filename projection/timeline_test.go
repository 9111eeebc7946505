package projection

import (
	"context"
	"testing"
	"time"

	"parley/domain/event"

	"github.com/stretchr/testify/require"
)

func TestTimeline_Consume_SanitizedMessage(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(10)
	ctx := context.Background()

	evt1 := event.SanitizedMessage{
		Conversation: "c1",
		Author:       "Alice",
		Content:      "Hello Bob",
		At:           time.Now(),
	}
	evt2 := event.SanitizedMessage{
		Conversation: "c1",
		Author:       "Clara",
		Content:      "Hi Bob",
		At:           time.Now().Add(time.Second),
	}

	req.NoError(timeline.Consume(ctx, evt1))
	req.NoError(timeline.Consume(ctx, evt2))

	recent := timeline.Recent("c1")
	req.Len(recent, 2)
	req.Equal("Alice", recent[0].Author)
	req.Equal("Clara", recent[1].Author)

	// Other conversations are untouched
	req.Empty(timeline.Recent("c2"))
}

func TestTimeline_CapacityKeepsNewestEntries(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(2)
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		req.NoError(timeline.Consume(ctx, event.SanitizedMessage{
			Conversation: "c1",
			Content:      content,
		}))
	}

	recent := timeline.Recent("c1")
	req.Len(recent, 2)
	req.Equal("second", recent[0].Content)
	req.Equal("third", recent[1].Content)
}

func TestTimeline_IgnoresRawEvents(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(10)

	// Only sanitized events are retained: raw ones never reach clients
	req.NoError(timeline.Consume(context.Background(), event.MessagePosted{Conversation: "c1"}))
	req.Empty(timeline.Recent("c1"))
}
