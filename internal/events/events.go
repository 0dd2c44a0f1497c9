// Package events announces subscription outcomes to other systems. The gate
// emits an event when a visitor is verified against a provider and when a
// visitor subscribes through the gate. Delivery is best effort: a failed
// publish is logged and never reaches the visitor.
package events

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"newsletter-gate/internal/common/logging"
)

const (
	// TypeVerified is emitted when the provider confirms a subscription
	TypeVerified = "subscriber.verified"
	// TypeSubscribed is emitted after a visitor subscribes through the gate
	TypeSubscribed = "subscriber.subscribed"
)

// Event is the JSON document published for each outcome
type Event struct {
	Type       string    `json:"type"`
	Provider   string    `json:"provider"`
	ListID     string    `json:"list_id"`
	Email      string    `json:"email"`
	RefID      string    `json:"ref_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events to one destination
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop discards events. It is used when no destination is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Multi fans an event out to every publisher and joins their errors
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Async hands events to a background worker so the request path never waits
// on a broker. When the buffer is full the event is dropped and logged.
type Async struct {
	next    Publisher
	queue   chan Event
	timeout time.Duration
	logger  logging.Logger

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewAsync starts the worker. Close drains the buffer, then closes next.
func NewAsync(next Publisher, buffer int, timeout time.Duration) *Async {
	if buffer < 1 {
		buffer = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	a := &Async{
		next:    next,
		queue:   make(chan Event, buffer),
		timeout: timeout,
		logger:  logging.GetGlobalLogger().WithFields(logging.String("component", "events")),
	}

	a.wg.Add(1)
	go a.run()
	return a
}

// Publish enqueues the event. It only fails after Close.
func (a *Async) Publish(_ context.Context, event Event) (err error) {
	defer func() {
		if recover() != nil {
			err = stderrors.New("event publisher is closed")
		}
	}()

	select {
	case a.queue <- event:
	default:
		a.logger.Warn("Event buffer full, dropping event",
			logging.String("type", event.Type),
			logging.String("provider", event.Provider),
		)
	}
	return nil
}

func (a *Async) run() {
	defer a.wg.Done()
	for event := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Publish(ctx, event); err != nil {
			a.logger.Error("Failed to publish event", err,
				logging.String("type", event.Type),
				logging.String("provider", event.Provider),
			)
		}
		cancel()
	}
}

func (a *Async) Close() error {
	a.closeOnce.Do(func() {
		close(a.queue)
	})
	a.wg.Wait()
	return a.next.Close()
}
