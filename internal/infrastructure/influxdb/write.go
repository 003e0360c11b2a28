package influxdb

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-gateway/internal/device"
)

// measurementItems holds one point per numeric item change.
const measurementItems = "item_values"

// WritePoint writes a point with the given timestamp. The write is
// non-blocking; points are batched and sent asynchronously.
//
// Example:
//
//	client.WritePoint("item_values",
//	    map[string]string{"resource": "sensors", "id": "4", "item": "state/temperature"},
//	    map[string]any{"value": 2150.0},
//	    time.Now())
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}

// PointWriter is the subset of Client used by Recorder.
type PointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time)
}

// Recorder stores the history of numeric and boolean items.
//
// It receives registry events and turns every item change with a numeric
// value into a point of the item_values measurement, tagged by resource,
// node id and item suffix. Booleans are written as 0 or 1. Lifecycle
// events and text values are skipped.
//
// HandleEvent never blocks; events are dropped when the queue is full.
type Recorder struct {
	w       PointWriter
	queue   chan device.Event
	dropped atomic.Uint64
}

const defaultRecorderQueue = 512

// NewRecorder creates a recorder writing through w.
func NewRecorder(w PointWriter) *Recorder {
	return &Recorder{w: w, queue: make(chan device.Event, defaultRecorderQueue)}
}

// HandleEvent queues e.
func (r *Recorder) HandleEvent(e device.Event) {
	if e.IsLifecycle() {
		return
	}
	select {
	case r.queue <- e:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of events discarded because the queue was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Run writes queued events until ctx is cancelled.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-r.queue:
			r.record(e)
		}
	}
}

func (r *Recorder) record(e device.Event) {
	value, ok := e.Value.Real()
	if !ok {
		return
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	r.w.WritePoint(measurementItems,
		map[string]string{
			"resource": strings.TrimPrefix(e.Resource, "/"),
			"id":       e.ID,
			"item":     e.What,
		},
		map[string]any{"value": value},
		ts,
	)
}

var _ device.EventSink = (*Recorder)(nil)
