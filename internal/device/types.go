package device

import (
	"slices"
	"time"

	"github.com/nerrad567/gray-logic-gateway/internal/resource"
)

// Node is a light, sensor, group or the config object.
type Node struct {
	// ID is the numeric identifier within the prefix, e.g. "3" in /lights/3.
	ID string `json:"id"`

	// Type names the template the node was built from.
	Type string `json:"type"`

	// Resource holds the node's attributes.
	Resource *resource.Resource `json:"-"`

	// Members lists the light ids of a group. Empty for other nodes.
	Members []string `json:"members,omitempty"`
}

// Prefix returns the resource category of the node.
func (n *Node) Prefix() string { return n.Resource.Prefix() }

// Name returns attr/name.
func (n *Node) Name() string { return n.Resource.ToString(resource.AttrName) }

// UniqueID returns attr/uniqueid.
func (n *Node) UniqueID() string { return n.Resource.ToString(resource.AttrUniqueID) }

// Manufacturer returns attr/manufacturername.
func (n *Node) Manufacturer() string { return n.Resource.ToString(resource.AttrManufacturerName) }

// ModelID returns attr/modelid.
func (n *Node) ModelID() string { return n.Resource.ToString(resource.AttrModelID) }

// SwVersion returns attr/swversion.
func (n *Node) SwVersion() string { return n.Resource.ToString(resource.AttrSwVersion) }

// DeepCopy returns an independent copy of the node and its resource.
func (n *Node) DeepCopy() *Node {
	if n == nil {
		return nil
	}
	cpy := *n
	cpy.Resource = n.Resource.Copy()
	cpy.Members = slices.Clone(n.Members)
	return &cpy
}

// NodeSpec describes a node to add to the registry.
type NodeSpec struct {
	Prefix string
	Type   string

	// ID is optional; the registry assigns the next free number when empty.
	ID string

	Name         string
	UniqueID     string
	Manufacturer string
	ModelID      string
	SwVersion    string

	// Members applies to groups only.
	Members []string
}

// DeviceView merges every light and sensor that shares a device unique id.
type DeviceView struct {
	UniqueID     string
	Sub          []*Node
	Manufacturer string
	ModelID      string
	SwVersion    string
}

// Event reports a node lifecycle change or an item value change.
//
// What holds either a lifecycle event (resource.EventAdded,
// resource.EventDeleted, resource.EventValidGroup,
// resource.EventCheckGroupAnyOn) or the suffix of the changed item.
type Event struct {
	Resource  string         `json:"r"`
	ID        string         `json:"id"`
	What      string         `json:"what"`
	Value     resource.Value `json:"value"`
	Timestamp time.Time      `json:"ts"`
}

// IsLifecycle reports whether the event is not an item change.
func (e Event) IsLifecycle() bool {
	switch e.What {
	case resource.EventAdded, resource.EventDeleted,
		resource.EventValidGroup, resource.EventCheckGroupAnyOn:
		return true
	}
	return false
}

// EventSink receives registry events. Implementations must not block for
// long and must not call back into the registry while handling an event.
type EventSink interface {
	HandleEvent(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// HandleEvent calls f(e).
func (f EventSinkFunc) HandleEvent(e Event) { f(e) }

// Metrics receives registry counters. The metrics package implements it.
type Metrics interface {
	ItemWrite(prefix string, accepted bool)
	NodeCount(prefix string, n int)
}

type noopMetrics struct{}

func (noopMetrics) ItemWrite(string, bool) {}
func (noopMetrics) NodeCount(string, int)  {}

// Stats returns registry statistics for monitoring.
type Stats struct {
	TotalNodes int
	ByPrefix   map[string]int
	ByType     map[string]int
}
