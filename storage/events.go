package storage

import (
	"context"
	"encoding/json"
	"errors"

	"taskflow-api/domain"
)

// ErrNoEventQueue is returned when publishing without a configured queue.
var ErrNoEventQueue = errors.New("event queue not configured")

// PublishEvent sends one advisory event to the event queue. Callers run this
// off the mutation path; a failure here never fails the mutation itself.
func (s *Store) PublishEvent(ctx context.Context, ev domain.Event) error {
	if s.events == nil {
		return ErrNoEventQueue
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := s.events.EnqueueMessage(ctx, string(data), nil); err != nil {
		return wrapErr("enqueue event", err)
	}
	return nil
}
