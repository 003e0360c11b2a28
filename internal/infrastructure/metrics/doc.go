// Package metrics exposes gateway counters to Prometheus.
//
// Collector implements device.Metrics and device.EventSink, so a single
// value is handed to the registry twice:
//
//	m := metrics.New()
//	registry.SetMetrics(m)
//	registry.Subscribe(m)
//	router.Handle(cfg.Metrics.Path, m.Handler())
//
// Exported series:
//   - graylogic_gw_item_writes_total{resource,result}
//   - graylogic_gw_events_total{resource,event}
//   - graylogic_gw_nodes{resource}
//
// plus the Go runtime and process collectors.
package metrics
