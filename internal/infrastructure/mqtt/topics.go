package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic the gateway publishes or consumes.
//
// Layout:
//
//	graylogic/gw/status                          retained online/offline
//	graylogic/gw/{resource}/{id}/{suffix}        retained item value
//	graylogic/gw/{resource}/{id}/set/{suffix}    inbound item write
//	graylogic/gw/event/{resource}/{id}           node lifecycle events
const TopicPrefix = "graylogic/gw"

// setSegment separates node and suffix in inbound write topics.
const setSegment = "set"

// Topics provides builders for gateway MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.ItemState("lights", "1", "state/on")
//	// Returns: "graylogic/gw/lights/1/state/on"
type Topics struct{}

// Status returns the gateway status topic.
//
// Example: graylogic/gw/status
func (Topics) Status() string {
	return TopicPrefix + "/status"
}

// ItemState returns the retained value topic of an item.
//
// Example: graylogic/gw/sensors/4/state/temperature
func (Topics) ItemState(resource, id, suffix string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefix, resource, id, suffix)
}

// ItemSet returns the topic clients publish to in order to write an item.
//
// Example: graylogic/gw/lights/1/set/state/on
func (Topics) ItemSet(resource, id, suffix string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", TopicPrefix, resource, id, setSegment, suffix)
}

// Event returns the lifecycle event topic of a node.
//
// Example: graylogic/gw/event/groups/2
func (Topics) Event(resource, id string) string {
	return fmt.Sprintf("%s/event/%s/%s", TopicPrefix, resource, id)
}

// AllItemSets returns a pattern matching every inbound write.
//
// Pattern: graylogic/gw/+/+/set/#
func (Topics) AllItemSets() string {
	return fmt.Sprintf("%s/+/+/%s/#", TopicPrefix, setSegment)
}

// AllTopics returns a pattern matching all gateway topics.
//
// Pattern: graylogic/gw/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// ParseItemSet splits an inbound write topic into resource, id and suffix.
func (Topics) ParseItemSet(topic string) (resource, id, suffix string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefix+"/")
	if !found {
		return "", "", "", false
	}
	parts := strings.SplitN(rest, "/", 4)
	if len(parts) != 4 || parts[2] != setSegment {
		return "", "", "", false
	}
	if parts[0] == "" || parts[1] == "" || parts[3] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[3], true
}
