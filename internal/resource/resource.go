package resource

import (
	"fmt"
	"time"
)

// Resource is a light, sensor, group or config object: a prefix plus an
// ordered set of items addressed by suffix.
type Resource struct {
	prefix string
	items  []*Item

	clock Clock
	loc   *time.Location
}

// New creates an empty resource with the given prefix, e.g. PrefixLights.
func New(prefix string, opts ...Option) *Resource {
	r := &Resource{
		prefix: prefix,
		clock:  SystemClock,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prefix returns the category of the resource.
func (r *Resource) Prefix() string { return r.prefix }

// AddItem returns the item for suffix, creating it from the descriptor table
// when absent. An existing item is returned unchanged whatever t is.
func (r *Resource) AddItem(t DataType, suffix string) (*Item, error) {
	if it := r.Item(suffix); it != nil {
		return it, nil
	}

	d, ok := DescriptorFor(suffix, t)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownDescriptor, t, suffix)
	}

	it := newItem(d, r.clock, r.loc)
	r.items = append(r.items, it)
	return it, nil
}

// MustAddItem is like AddItem but panics on an unknown descriptor. It is
// intended for static templates.
func (r *Resource) MustAddItem(t DataType, suffix string) *Item {
	it, err := r.AddItem(t, suffix)
	if err != nil {
		panic(err)
	}
	return it
}

// RemoveItem deletes the item for suffix by moving the last item into its
// slot. Item order is not preserved. It reports whether an item was removed.
func (r *Resource) RemoveItem(suffix string) bool {
	for i, it := range r.items {
		if it.desc.Suffix != suffix {
			continue
		}
		last := len(r.items) - 1
		r.items[i] = r.items[last]
		r.items[last] = nil
		r.items = r.items[:last]
		return true
	}
	return false
}

// Item returns the item for suffix or nil.
func (r *Resource) Item(suffix string) *Item {
	for _, it := range r.items {
		if it.desc.Suffix == suffix {
			return it
		}
	}
	return nil
}

// ItemAt returns the i-th item or nil when i is out of range.
func (r *Resource) ItemAt(i int) *Item {
	if i < 0 || i >= len(r.items) {
		return nil
	}
	return r.items[i]
}

// ItemCount returns the number of items.
func (r *Resource) ItemCount() int { return len(r.items) }

// Items returns the items in order. The slice is a copy; the items are not.
func (r *Resource) Items() []*Item {
	out := make([]*Item, len(r.items))
	copy(out, r.items)
	return out
}

// ToBool returns the boolean value of suffix, or false when absent.
func (r *Resource) ToBool(suffix string) bool {
	if it := r.Item(suffix); it != nil {
		return it.ToBool()
	}
	return false
}

// ToNumber returns the integer value of suffix, or 0 when absent.
func (r *Resource) ToNumber(suffix string) int64 {
	if it := r.Item(suffix); it != nil {
		return it.ToNumber()
	}
	return 0
}

// ToString returns the string value of suffix, or InvalidString when absent.
func (r *Resource) ToString(suffix string) string {
	if it := r.Item(suffix); it != nil {
		return it.ToString()
	}
	return InvalidString
}

// Copy returns an independent deep copy of r.
func (r *Resource) Copy() *Resource {
	c := &Resource{
		prefix: r.prefix,
		items:  make([]*Item, len(r.items)),
		clock:  r.clock,
		loc:    r.loc,
	}
	for i, it := range r.items {
		c.items[i] = it.clone()
	}
	return c
}
