package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event types emitted by the engine
const (
	EventSessionStarted   = "session_started"
	EventAnswerSubmitted  = "answer_submitted"
	EventSessionCompleted = "session_completed"
	EventInsightGenerated = "insight_generated"
)

// Event is one analytics record. Fields carries event-specific details such as
// the step index or progress percentage.
type Event struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id"`
	UserID    string            `json:"user_id,omitempty"`
	AdvisorID string            `json:"advisor_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	At        time.Time         `json:"at"`
}

// Sink receives drained events.
type Sink interface {
	Write(ctx context.Context, e Event) error
	Close() error
}

// Dispatcher is the fire-and-forget event pipeline: Emit never blocks and
// never fails the caller. A background worker drains the buffer into the sink
// and fans events out to per-session subscribers (the websocket watch
// endpoint). Sink failures are logged and dropped; a full buffer drops the
// event with a warning.
type Dispatcher struct {
	sink   Sink
	events chan Event

	mu      sync.RWMutex
	subs    map[string]map[int]chan Event
	nextSub int
}

// NewDispatcher creates a dispatcher with the given buffer size
func NewDispatcher(sink Sink, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		sink:   sink,
		events: make(chan Event, buffer),
		subs:   make(map[string]map[int]chan Event),
	}
}

// Start begins the drain worker in a goroutine
func (d *Dispatcher) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Dispatcher) run(ctx context.Context) {
	slog.Info("analytics dispatcher started", "buffer", cap(d.events))

	for {
		select {
		case <-ctx.Done():
			slog.Info("analytics dispatcher stopped")
			return
		case e := <-d.events:
			d.deliver(e)
		}
	}
}

// Emit enqueues an event without blocking. Analytics must never fail the
// engine's primary operation.
func (d *Dispatcher) Emit(e Event) {
	select {
	case d.events <- e:
	default:
		slog.Warn("analytics buffer full, dropping event",
			"type", e.Type,
			"session_id", e.SessionID,
		)
	}
}

// Subscribe registers a listener for a session's events. The returned cancel
// function must be called to release the subscription.
func (d *Dispatcher) Subscribe(sessionID string) (<-chan Event, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextSub
	d.nextSub++

	ch := make(chan Event, 16)
	if d.subs[sessionID] == nil {
		d.subs[sessionID] = make(map[int]chan Event)
	}
	d.subs[sessionID][id] = ch

	cancel := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if listeners, ok := d.subs[sessionID]; ok {
			delete(listeners, id)
			if len(listeners) == 0 {
				delete(d.subs, sessionID)
			}
		}
	}
	return ch, cancel
}

func (d *Dispatcher) deliver(e Event) {
	if d.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.sink.Write(ctx, e); err != nil {
			slog.Warn("analytics sink write failed",
				"type", e.Type,
				"session_id", e.SessionID,
				"error", err,
			)
		}
		cancel()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, ch := range d.subs[e.SessionID] {
		select {
		case ch <- e:
		default:
			// Slow subscriber; skip rather than stall delivery.
		}
	}
}
