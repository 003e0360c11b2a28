package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-gateway/internal/device"
)

// defaultQueueSize bounds the number of events waiting to be published.
const defaultQueueSize = 256

// Publisher is the subset of Client used by EventPublisher.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// EventPublisher mirrors registry events onto the broker.
//
// Item changes are published retained on Topics.ItemState with the JSON
// value as payload. Lifecycle events go to Topics.Event, not retained.
//
// HandleEvent never blocks: when the queue is full the event is dropped
// and counted.
type EventPublisher struct {
	pub     Publisher
	qos     byte
	queue   chan device.Event
	dropped atomic.Uint64
	logger  Logger
}

// NewEventPublisher creates a publisher with a queue of queueSize events.
// A non-positive size selects the default.
func NewEventPublisher(pub Publisher, qos byte, queueSize int) *EventPublisher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &EventPublisher{
		pub:   pub,
		qos:   qos,
		queue: make(chan device.Event, queueSize),
	}
}

// SetLogger sets the logger used for publish failures.
func (p *EventPublisher) SetLogger(logger Logger) {
	p.logger = logger
}

// HandleEvent queues e for publishing.
func (p *EventPublisher) HandleEvent(e device.Event) {
	select {
	case p.queue <- e:
	default:
		p.dropped.Add(1)
	}
}

// Dropped returns the number of events discarded because the queue was full.
func (p *EventPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Run publishes queued events until ctx is cancelled.
func (p *EventPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-p.queue:
			if err := p.publish(e); err != nil && p.logger != nil {
				p.logger.Warn("publishing event failed",
					"resource", e.Resource, "id", e.ID, "what", e.What, "error", err)
			}
		}
	}
}

func (p *EventPublisher) publish(e device.Event) error {
	res := strings.TrimPrefix(e.Resource, "/")

	if e.IsLifecycle() {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return p.pub.Publish(Topics{}.Event(res, e.ID), payload, p.qos, false)
	}

	payload, err := json.Marshal(e.Value)
	if err != nil {
		return err
	}
	return p.pub.Publish(Topics{}.ItemState(res, e.ID, e.What), payload, p.qos, true)
}

var _ device.EventSink = (*EventPublisher)(nil)
