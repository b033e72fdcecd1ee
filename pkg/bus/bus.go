package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ameling/kinship/pkg/relationship"
)

// NotificationBus carries engine state-change notifications to whatever
// delivery collaborator is attached (push, email, log drain). Publishing
// never blocks the event-application path for more than publishTimeout;
// overflow is dropped and counted rather than stalling the engine.
type NotificationBus struct {
	notifications chan relationship.Notification
	closed        bool
	dropped       atomic.Uint64
	mu            sync.RWMutex
}

const publishTimeout = 100 * time.Millisecond

func NewNotificationBus() *NotificationBus {
	return &NotificationBus{
		notifications: make(chan relationship.Notification, 100),
	}
}

// Publish enqueues a notification, dropping it if the buffer stays full past
// the publish timeout.
func (nb *NotificationBus) Publish(n relationship.Notification) {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	if nb.closed {
		return
	}

	select {
	case nb.notifications <- n:
	default:
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case nb.notifications <- n:
		case <-timer.C:
			nb.dropped.Add(1)
		}
	}
}

// PublishAll enqueues a batch in order.
func (nb *NotificationBus) PublishAll(ns []relationship.Notification) {
	for _, n := range ns {
		nb.Publish(n)
	}
}

// Consume blocks for the next notification until the bus closes or the
// context is done.
func (nb *NotificationBus) Consume(ctx context.Context) (relationship.Notification, bool) {
	select {
	case n, ok := <-nb.notifications:
		if !ok {
			return relationship.Notification{}, false
		}
		return n, true
	case <-ctx.Done():
		return relationship.Notification{}, false
	}
}

func (nb *NotificationBus) Close() {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	if nb.closed {
		return
	}
	nb.closed = true
	close(nb.notifications)
}

// Dropped reports how many notifications overflowed the buffer.
func (nb *NotificationBus) Dropped() uint64 {
	return nb.dropped.Load()
}
