package runtime

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"parley/contract"
	"parley/domain/event"
	"parley/moderation"
	"parley/runtime/workers"
)

//go:embed censored/*
var censoredFolder embed.FS

// Dispatcher owns the broadcast pipeline: raw message events go through
// moderation, then the fanout delivers the sanitized result to permanent
// sinks and live sessions. Workers run under the supervisor.
type Dispatcher struct {
	mu              sync.Mutex
	log             *slog.Logger
	supervisor      contract.ISupervisor
	registry        contract.IRegistry
	permanentSinks  []contract.EventSink
	rawEvents       chan event.DomainEvent
	domainEvents    chan event.DomainEvent
	sinkTimeout     time.Duration
	charReplacement rune
}

func NewDispatcher(log *slog.Logger, supervisor *workers.Supervisor,
	registry *Registry, bufferSize int, sinkTimeout time.Duration,
	charReplacement rune) *Dispatcher {
	return &Dispatcher{
		log:             log,
		supervisor:      supervisor,
		registry:        registry,
		rawEvents:       make(chan event.DomainEvent, bufferSize),
		domainEvents:    make(chan event.DomainEvent, bufferSize),
		sinkTimeout:     sinkTimeout,
		charReplacement: charReplacement,
	}
}

// Add registers permanent sinks receiving every broadcast event.
func (d *Dispatcher) Add(sinks ...contract.EventSink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.permanentSinks = append(d.permanentSinks, sinks...)
}

// Publish submits a raw event to the pipeline. Delivery is best-effort:
// when the channel is full the event is dropped and a reconnecting client
// catches up through the conversation detail endpoint.
func (d *Dispatcher) Publish(evt event.DomainEvent) {
	select {
	case d.rawEvents <- evt:
	default:
		d.log.Warn(fmt.Sprintf("Raw event channel full for conversation %s, dropping event", evt.ConversationID()))
	}
}

// Start prepares all pipeline components and then runs the supervisor.
// Preparation (loading wordlists, building the Aho-Corasick automaton)
// happens outside the lock; only the supervisor registration is guarded.
// Blocks until the context is canceled.
func (d *Dispatcher) Start(ctx context.Context) error {
	moderationWorker, err := d.prepareModeration("censored", d.charReplacement)
	if err != nil {
		return err
	}

	d.mu.Lock()
	fanoutWorker := workers.NewEventFanout(
		d.log,
		d.permanentSinks,
		d.registry,
		d.domainEvents,
		d.sinkTimeout,
	)
	d.supervisor.Add(moderationWorker)
	d.supervisor.Add(fanoutWorker)
	d.mu.Unlock()

	d.log.Info("Starting dispatcher and all supervised workers")
	d.supervisor.Run(ctx)
	return nil
}

// prepareModeration loads censored words and builds the Aho-Corasick
// automaton.
func (d *Dispatcher) prepareModeration(path string, charReplacement rune) (contract.Worker, error) {
	loader := NewCensoredLoader(censoredFolder)
	data, err := loader.LoadAll(path)
	if err != nil {
		return nil, err
	}

	d.log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	d.log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	moderator, err := moderation.NewModerator(data.Words, charReplacement)
	if err != nil {
		return nil, err
	}

	return workers.NewModerationWorker(moderator, d.rawEvents, d.domainEvents, d.log), nil
}

// Stop initiates a graceful shutdown by canceling the supervision context.
func (d *Dispatcher) Stop() {
	d.log.Info("Requesting dispatcher shutdown")
	d.supervisor.Stop()
}
