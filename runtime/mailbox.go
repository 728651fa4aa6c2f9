package runtime

import (
	"context"
	"sync"
	"time"

	"vrc-uploader/domain/event"
	apperrors "vrc-uploader/errors"
)

// Mailbox is the ordered worker-to-presentation channel. It never blocks the
// producer: events accumulate until the presentation side drains them on its
// poll tick. Single producer (the worker), single consumer (the sink).
type Mailbox struct {
	mu     sync.Mutex
	events []event.UIEvent
}

func NewMailbox() *Mailbox {
	return &Mailbox{}
}

func (m *Mailbox) Publish(e event.UIEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Drain returns every pending event in publish order and empties the mailbox.
func (m *Mailbox) Drain() []event.UIEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.events
	m.events = nil
	return out
}

// ResponseSlot is the single-slot rendezvous the presentation layer uses to
// answer a duplicate-confirmation request. The worker blocks on Await with a
// timeout; cancellation and timeout both unblock it deterministically.
type ResponseSlot struct {
	ch chan bool
}

func NewResponseSlot() *ResponseSlot {
	return &ResponseSlot{ch: make(chan bool, 1)}
}

// Respond delivers the user's answer. A second answer to the same question
// is dropped rather than queued for the next one.
func (s *ResponseSlot) Respond(answer bool) {
	select {
	case s.ch <- answer:
	default:
	}
}

// Await blocks until an answer arrives, the timeout expires, or ctx is done.
func (s *ResponseSlot) Await(ctx context.Context, timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case answer := <-s.ch:
		return answer, nil
	case <-timer.C:
		return false, apperrors.ErrConfirmTimeout
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
