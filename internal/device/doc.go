// Package device provides the node registry of the gateway.
//
// A node is a light, sensor, group or the gateway config object. Each node
// owns a resource.Resource whose items are created from a template for the
// node type (for example "Extended color light" or "ZHATemperature").
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                          Node Registry                          │
//	│                                                                 │
//	│  ┌──────────────────┐   ┌──────────────────┐   ┌─────────────┐  │
//	│  │     Registry     │   │    Repository    │   │  Templates  │  │
//	│  │  (registry.go)   │──▶│ (repository.go)  │   │(templates.go│  │
//	│  │                  │   │                  │   │             │  │
//	│  │ • node lifecycle │   │ • SQLite upserts │   │ • item sets │  │
//	│  │ • item writes    │   │ • item snapshots │   │   per type  │  │
//	│  │ • group any_on   │   │ • install codes  │   │             │  │
//	│  └──────────────────┘   └──────────────────┘   └─────────────┘  │
//	│           │                                                     │
//	└───────────│─────────────────────────────────────────────────────┘
//	            ▼
//	   EventSinks: WebSocket hub, MQTT publisher, InfluxDB writer, metrics
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//	registry.Subscribe(hub)
//
//	if err := registry.LoadAll(ctx); err != nil {
//	    return err
//	}
//
//	light, err := registry.Add(ctx, device.NodeSpec{
//	    Prefix:   resource.PrefixLights,
//	    Type:     "Dimmable light",
//	    Name:     "Hall",
//	    UniqueID: "00:21:2e:ff:ff:00:aa:01-01",
//	})
//
//	_, err = registry.SetItem(ctx, resource.PrefixLights, light.ID,
//	    "/lights/1/state/bri", resource.IntValue(120))
//
// # Thread Safety
//
// The Registry is safe for concurrent use. Resources are only mutated while
// the registry lock is held; callers receive deep copies. Event sinks are
// invoked after the lock is released.
package device
