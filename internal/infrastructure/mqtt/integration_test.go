//go:build integration

package mqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-gateway/internal/device"
	"github.com/nerrad567/gray-logic-gateway/internal/resource"
)

// Integration tests against a live broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -count=1 -v ./internal/infrastructure/mqtt/...

func connectTest(t *testing.T, clientID string) *Client {
	t.Helper()
	cfg := testConfig()
	cfg.Broker.ClientID = clientID

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIntegration_Connect(t *testing.T) {
	client := connectTest(t, "graylogic-gw-int-connect")

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999

	if _, err := Connect(cfg); err == nil {
		t.Fatal("Connect() expected error for unreachable broker")
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	client := connectTest(t, "graylogic-gw-int-subs")
	noop := func(string, []byte) error { return nil }

	topics := []string{"graylogic/gw/int/a", "graylogic/gw/int/b"}
	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, noop); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}
	if client.SubscriptionCount() != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", client.SubscriptionCount(), len(topics))
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topics[0]) || !client.HasSubscription(topics[1]) {
		t.Error("subscription tracking out of sync after Unsubscribe")
	}
}

func TestIntegration_EventPublisherRoundtrip(t *testing.T) {
	pubClient := connectTest(t, "graylogic-gw-int-events-pub")
	subClient := connectTest(t, "graylogic-gw-int-events-sub")

	received := make(chan string, 1)
	topic := Topics{}.ItemState("lights", "91", resource.StateBri)
	if err := subClient.Subscribe(topic, 1, func(_ string, payload []byte) error {
		received <- string(payload)
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := NewEventPublisher(pubClient, 1, 0)
	go events.Run(ctx)

	events.HandleEvent(device.Event{Resource: resource.PrefixLights, ID: "91", What: resource.StateBri, Value: resource.IntValue(42)})

	select {
	case payload := <-received:
		if payload != "42" {
			t.Errorf("payload = %q, want 42", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for item state")
	}
}

func TestIntegration_CommandRoundtrip(t *testing.T) {
	gw := connectTest(t, "graylogic-gw-int-cmd-gw")
	remote := connectTest(t, "graylogic-gw-int-cmd-remote")

	reg := device.NewRegistry(nil)
	if _, err := reg.Add(context.Background(), device.NodeSpec{Prefix: resource.PrefixLights, Type: "On/Off light"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	var mu sync.Mutex
	changed := make(chan struct{}, 1)
	reg.Subscribe(device.EventSinkFunc(func(e device.Event) {
		mu.Lock()
		defer mu.Unlock()
		if e.What == resource.StateOn {
			changed <- struct{}{}
		}
	}))

	if err := SubscribeCommands(gw, 1, NewCommandHandler(reg)); err != nil {
		t.Fatalf("SubscribeCommands() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := remote.Publish(Topics{}.ItemSet("lights", "1", resource.StateOn), []byte("true"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("command did not reach the registry")
	}
}
