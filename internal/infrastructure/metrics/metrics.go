package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-gateway/internal/device"
)

const namespace = "graylogic_gw"

// Event label values for item changes; lifecycle events use their own name.
const eventChanged = "changed"

// Collector owns a private Prometheus registry with the gateway series.
type Collector struct {
	reg        *prometheus.Registry
	itemWrites *prometheus.CounterVec
	events     *prometheus.CounterVec
	nodes      *prometheus.GaugeVec
}

// New creates a collector with the gateway, Go runtime and process metrics
// registered.
func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		itemWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_writes_total",
			Help:      "Item writes by resource and result (accepted or rejected).",
		}, []string{"resource", "result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Registry events by resource and kind.",
		}, []string{"resource", "event"}),
		nodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes",
			Help:      "Number of nodes per resource.",
		}, []string{"resource"}),
	}

	c.reg.MustRegister(
		c.itemWrites,
		c.events,
		c.nodes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ItemWrite counts a write attempt.
func (c *Collector) ItemWrite(prefix string, accepted bool) {
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	c.itemWrites.WithLabelValues(label(prefix), result).Inc()
}

// NodeCount sets the node gauge of prefix.
func (c *Collector) NodeCount(prefix string, n int) {
	c.nodes.WithLabelValues(label(prefix)).Set(float64(n))
}

// HandleEvent counts a registry event.
func (c *Collector) HandleEvent(e device.Event) {
	kind := eventChanged
	if e.IsLifecycle() {
		kind = e.What
	}
	c.events.WithLabelValues(label(e.Resource), kind).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, e.g. to add collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.reg
}

// label strips the leading slash of a resource prefix.
func label(prefix string) string {
	return strings.TrimPrefix(prefix, "/")
}

var (
	_ device.Metrics   = (*Collector)(nil)
	_ device.EventSink = (*Collector)(nil)
)
