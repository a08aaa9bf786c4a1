package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskflow-api/domain"
)

// EventQueue is the durable sink the publisher drains into.
type EventQueue interface {
	PublishEvent(ctx context.Context, ev domain.Event) error
}

// Publisher fans mutation events out to the event queue on background
// workers so the mutation path never waits on queue latency. The feed is
// advisory: when the buffer is full or the queue errors, the event is
// dropped and logged, never surfaced to the caller.
type Publisher struct {
	queue   EventQueue
	log     *log.Logger
	timeout time.Duration

	events chan domain.Event
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPublisher starts workers goroutines draining a buffered event channel.
func NewPublisher(queue EventQueue, logger *log.Logger, workers, buffer int, timeout time.Duration) *Publisher {
	if workers <= 0 {
		workers = 4
	}
	if buffer <= 0 {
		buffer = 1024
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.New()
	}
	p := &Publisher{
		queue:   queue,
		log:     logger,
		timeout: timeout,
		events:  make(chan domain.Event, buffer),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Publish hands the event to a worker without blocking. Events get an id and
// a strictly increasing timestamp here so consumers can order them even when
// two mutations land in the same nanosecond.
func (p *Publisher) Publish(ev domain.Event) {
	ev.ID = uuid.NewString()
	ev.Time = nextTimestamp()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	select {
	case p.events <- ev:
		p.mu.Unlock()
		return
	default:
	}
	p.mu.Unlock()
	p.log.WithField("type", ev.Type).Warn("event buffer saturated, dropping event")
}

// Close stops accepting events and waits for the workers to drain the
// buffer.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Publisher) worker() {
	defer p.wg.Done()
	for ev := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.queue.PublishEvent(ctx, ev)
		cancel()
		if err != nil {
			p.log.WithFields(log.Fields{
				"type":  ev.Type,
				"error": err,
			}).Error("event publish failed")
		}
	}
}
