// Package resource provides the typed attribute registry and in-memory object
// model shared by the gateway's REST layer, rule engine and persistence.
//
// It consists of four parts:
//
//   - DataType: the closed catalogue of semantic attribute types.
//   - Descriptor table: the process-wide schema mapping every attribute
//     suffix (for example "state/bri") to its type and optional valid range.
//   - Item: one live attribute value with its previous value, last-set and
//     last-changed timestamps, public flag and the rules that reference it.
//   - Resource: a light, sensor, group or config object owning an ordered set
//     of items, addressed by suffix.
//
// # Usage
//
//	light := resource.New(resource.PrefixLights)
//	on, err := light.AddItem(resource.DataTypeBool, resource.StateOn)
//	if err != nil {
//	    return err
//	}
//	on.SetValue(resource.BoolValue(true))
//	fmt.Println(light.ToBool(resource.StateOn)) // true
//
// Resolving a REST path to its attribute:
//
//	d, ok := resource.LookupDescriptor("/lights/3/state/bri")
//	// d.Suffix == "state/bri", d.Type == DataTypeUInt8
//
// # lastSet vs lastChanged
//
// Every accepted write advances LastSet. LastChanged only advances when the
// stored value actually differs from the previous one. Downstream consumers
// rely on the distinction: rules trigger on change, the REST layer reports
// "lastupdated" from the set time.
//
// # Thread Safety
//
// Resources and items are not synchronised. They are owned by a single
// goroutine (the device registry serialises access with its own lock). The
// descriptor table is read-only after package initialisation.
package resource
