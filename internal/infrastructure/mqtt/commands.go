package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-gateway/internal/device"
	"github.com/nerrad567/gray-logic-gateway/internal/resource"
)

// defaultCommandTimeout bounds a single inbound write.
const defaultCommandTimeout = 5 * time.Second

// ItemSetter reads nodes and writes item values. device.Registry
// implements it.
type ItemSetter interface {
	Get(prefix, id string) (*device.Node, error)
	SetItem(ctx context.Context, prefix, id, path string, v resource.Value) (resource.Value, error)
}

// Subscriber is the subset of Client used to register the command handler.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
}

// CommandHandler applies writes received on Topics.ItemSet topics.
//
// The payload is a JSON scalar. Anything that is not valid JSON is taken
// as a raw string, so "Kitchen" and Kitchen both set a name. A JSON null
// is rejected; it would clear the item. Items hidden from the REST API
// are not writable here either.
type CommandHandler struct {
	setter  ItemSetter
	timeout time.Duration
}

// NewCommandHandler creates a handler writing through setter.
func NewCommandHandler(setter ItemSetter) *CommandHandler {
	return &CommandHandler{setter: setter, timeout: defaultCommandTimeout}
}

// HandleMessage implements MessageHandler.
func (h *CommandHandler) HandleMessage(topic string, payload []byte) error {
	res, id, suffix, ok := Topics{}.ParseItemSet(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	if device.IsReadOnly(suffix) {
		return fmt.Errorf("%w: %s", ErrReadOnlyItem, suffix)
	}

	if device.IsHidden(suffix) {
		return fmt.Errorf("%w: %s", ErrHiddenItem, suffix)
	}

	var v resource.Value
	if err := json.Unmarshal(payload, &v); err != nil {
		v = resource.StringValue(string(payload))
	}
	if v.IsNull() {
		return fmt.Errorf("%w: null for %s", ErrInvalidPayload, suffix)
	}

	node, err := h.setter.Get("/"+res, id)
	if err != nil {
		return fmt.Errorf("setting %s/%s %s: %w", res, id, suffix, err)
	}
	if d, ok := resource.LookupDescriptor(suffix); ok {
		if it := node.Resource.Item(d.Suffix); it != nil && !it.IsPublic() {
			return fmt.Errorf("%w: %s", ErrHiddenItem, d.Suffix)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if _, err := h.setter.SetItem(ctx, "/"+res, id, suffix, v); err != nil {
		return fmt.Errorf("setting %s/%s %s: %w", res, id, suffix, err)
	}
	return nil
}

// SubscribeCommands registers h for every inbound write topic.
func SubscribeCommands(sub Subscriber, qos byte, h *CommandHandler) error {
	return sub.Subscribe(Topics{}.AllItemSets(), qos, h.HandleMessage)
}
