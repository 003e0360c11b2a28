// Package mqtt connects the gateway to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect after the first connect
//   - Retained online/offline status with a Last Will
//   - Mirroring registry events onto item and event topics
//   - Applying item writes received on set topics
//
// # Topics
//
//	graylogic/gw/status                          retained status
//	graylogic/gw/{resource}/{id}/{suffix}        retained item value (JSON)
//	graylogic/gw/{resource}/{id}/set/{suffix}    inbound write
//	graylogic/gw/event/{resource}/{id}           lifecycle events
//
// Read-only items (unique id, reachable, lastupdated and similar) cannot be
// written over MQTT.
//
// # Security Considerations
//
//   - Use TLS (cfg.Broker.TLS=true) outside a trusted LAN
//   - Anyone allowed to publish on the set topics can switch devices;
//     restrict them with broker ACLs
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	events := mqtt.NewEventPublisher(client, client.QoS(), 0)
//	registry.Subscribe(events)
//	go events.Run(ctx)
//
//	err = mqtt.SubscribeCommands(client, client.QoS(), mqtt.NewCommandHandler(registry))
package mqtt
