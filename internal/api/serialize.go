package api

import (
	"strings"

	"github.com/nerrad567/gray-logic-gateway/internal/device"
	"github.com/nerrad567/gray-logic-gateway/internal/resource"
)

// Item categories rendered as nested objects. attr/* items are rendered at
// the top level.
const (
	categoryAttr   = "attr"
	categoryState  = "state"
	categoryConfig = "config"
	categoryAction = "action"
)

// nodeObject renders a node as a JSON object. Hidden items and items that
// were never set are left out.
//
//	{"name":"Desk","type":"Dimmable light","state":{"on":true,"bri":128}}
func nodeObject(n *device.Node) map[string]any {
	obj := make(map[string]any)
	nested := make(map[string]map[string]any)

	for _, it := range n.Resource.Items() {
		if !it.IsPublic() {
			continue
		}
		v := it.ToValue()
		if v.IsNull() {
			continue
		}
		category, key, ok := strings.Cut(it.Suffix(), "/")
		if !ok {
			continue
		}
		switch category {
		case categoryAttr:
			obj[key] = v
		case categoryState, categoryConfig, categoryAction:
			m := nested[category]
			if m == nil {
				m = make(map[string]any)
				nested[category] = m
			}
			m[key] = v
		}
	}
	for category, m := range nested {
		obj[category] = m
	}

	if n.Prefix() == resource.PrefixGroups {
		obj["id"] = n.ID
		members := n.Members
		if members == nil {
			members = []string{}
		}
		obj["lights"] = members
	}
	return obj
}

// nodeMap renders nodes keyed by id.
func nodeMap(nodes []*device.Node) map[string]any {
	out := make(map[string]any, len(nodes))
	for _, n := range nodes {
		out[n.ID] = nodeObject(n)
	}
	return out
}

// deviceObject renders the merged view of a physical device.
func deviceObject(v *device.DeviceView) map[string]any {
	sub := make([]any, 0, len(v.Sub))
	for _, n := range v.Sub {
		sub = append(sub, nodeObject(n))
	}
	obj := map[string]any{
		"uniqueid": v.UniqueID,
		"sub":      sub,
	}
	if v.Manufacturer != "" {
		obj["manufacturername"] = v.Manufacturer
	}
	if v.ModelID != "" {
		obj["modelid"] = v.ModelID
	}
	if v.SwVersion != "" {
		obj["swversion"] = v.SwVersion
	}
	return obj
}
