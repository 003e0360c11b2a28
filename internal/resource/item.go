package resource

import (
	"slices"
	"time"
)

// Item is one live attribute of a resource.
//
// Numeric, Bool and Time items keep their value in a 64-bit integer (Time as
// milliseconds since the Unix epoch). String and TimePattern items keep text.
// A zero LastSet means the item has never been set or was cleared.
type Item struct {
	desc        Descriptor
	num         int64
	numPrev     int64
	str         string
	lastSet     time.Time
	lastChanged time.Time
	isPublic    bool
	rules       []int

	clock Clock
	loc   *time.Location
}

func newItem(d Descriptor, clock Clock, loc *time.Location) *Item {
	return &Item{
		desc:     d,
		isPublic: true,
		clock:    clock,
		loc:      loc,
	}
}

// Descriptor returns the schema entry the item was created from.
func (it *Item) Descriptor() Descriptor { return it.desc }

// Suffix is shorthand for Descriptor().Suffix.
func (it *Item) Suffix() string { return it.desc.Suffix }

// SetNumber writes an integer value.
//
// It returns false without touching the item when the descriptor carries a
// range that excludes v, or when the item holds text.
func (it *Item) SetNumber(v int64) bool {
	if it.desc.Type.IsTextual() {
		return false
	}
	if !it.desc.InRange(v) {
		return false
	}
	it.storeNumber(v, it.clock.Now())
	return true
}

// SetString writes a text value. Only String and TimePattern items accept it.
func (it *Item) SetString(s string) bool {
	if !it.desc.Type.IsTextual() {
		return false
	}
	it.storeString(s, it.clock.Now())
	return true
}

// SetValue writes a value of any kind, coercing it to the item's type.
//
// A null value clears both timestamps and always succeeds. Text items take
// the value's text form; Bool items its truth value; Time items accept a
// time or a string in TimeLayout; every other type takes the value as an
// integer subject to the descriptor range.
func (it *Item) SetValue(v Value) bool {
	if v.IsNull() {
		it.lastSet = time.Time{}
		it.lastChanged = time.Time{}
		return true
	}

	now := it.clock.Now()

	switch it.desc.Type {
	case DataTypeString, DataTypeTimePattern:
		// TimePattern is stored as opaque text; no syntax check yet.
		it.storeString(v.Text(), now)
		return true

	case DataTypeBool:
		var n int64
		if v.Bool() {
			n = 1
		}
		it.storeNumber(n, now)
		return true

	case DataTypeTime:
		switch v.Kind() {
		case KindString:
			t, err := time.ParseInLocation(TimeLayout, v.s, it.zone())
			if err != nil {
				return false
			}
			it.storeNumber(t.UnixMilli(), now)
			return true
		case KindTime:
			it.storeNumber(v.t.UnixMilli(), now)
			return true
		}
		return false
	}

	n, ok := v.Int()
	if !ok || !it.desc.InRange(n) {
		return false
	}
	it.storeNumber(n, now)
	return true
}

func (it *Item) storeNumber(v int64, now time.Time) {
	it.lastSet = now
	it.numPrev = it.num
	if it.num != v {
		it.num = v
		it.lastChanged = now
	}
}

func (it *Item) storeString(s string, now time.Time) {
	it.lastSet = now
	if it.str != s {
		it.str = s
		it.lastChanged = now
	}
}

// zone is the location Time values are rendered and parsed in.
func (it *Item) zone() *time.Location {
	if it.desc.Suffix == StateLastUpdated {
		return time.UTC
	}
	if it.loc == nil {
		return time.Local
	}
	return it.loc
}

// ToNumber returns the stored integer.
func (it *Item) ToNumber() int64 { return it.num }

// ToNumberPrevious returns the integer held before the last numeric write.
func (it *Item) ToNumberPrevious() int64 { return it.numPrev }

// ToBool reports whether the stored integer is non-zero.
func (it *Item) ToBool() bool { return it.num != 0 }

// ToTime returns the stored value of a Time item.
func (it *Item) ToTime() time.Time {
	return time.UnixMilli(it.num).In(it.zone())
}

// ToString returns the text of String and TimePattern items and the rendered
// time of Time items. Other items yield InvalidString.
func (it *Item) ToString() string {
	switch it.desc.Type {
	case DataTypeString, DataTypeTimePattern:
		return it.str
	case DataTypeTime:
		return it.ToTime().Format(TimeLayout)
	}
	return InvalidString
}

// ToValue returns the item as a Value: null when never set, a string for
// text and Time items, a bool for Bool items and a real for everything else.
func (it *Item) ToValue() Value {
	if it.lastSet.IsZero() {
		return Null()
	}
	switch it.desc.Type {
	case DataTypeString, DataTypeTimePattern:
		return StringValue(it.str)
	case DataTypeTime:
		return StringValue(it.ToString())
	case DataTypeBool:
		return BoolValue(it.num != 0)
	}
	return RealValue(float64(it.num))
}

// LastSet is the time of the last accepted write.
func (it *Item) LastSet() time.Time { return it.lastSet }

// LastChanged is the time of the last write that altered the value.
func (it *Item) LastChanged() time.Time { return it.lastChanged }

// SetTimeStamps overwrites both timestamps. Used when restoring state.
func (it *Item) SetTimeStamps(t time.Time) {
	it.lastSet = t
	it.lastChanged = t
}

// InRule records that a rule references this item. Duplicates are ignored.
func (it *Item) InRule(handle int) {
	if slices.Contains(it.rules, handle) {
		return
	}
	it.rules = append(it.rules, handle)
}

// RulesInvolved returns a copy of the referencing rule handles.
func (it *Item) RulesInvolved() []int {
	return slices.Clone(it.rules)
}

// IsPublic reports whether the item is exposed through the public API.
func (it *Item) IsPublic() bool { return it.isPublic }

// SetIsPublic controls exposure through the public API.
func (it *Item) SetIsPublic(public bool) { it.isPublic = public }

// Restore loads persisted raw state, bypassing range checks and change
// detection. The previous number is set equal to the current one.
func (it *Item) Restore(num int64, str string, lastSet, lastChanged time.Time) {
	it.num = num
	it.numPrev = num
	it.str = str
	it.lastSet = lastSet
	it.lastChanged = lastChanged
}

func (it *Item) clone() *Item {
	c := *it
	c.rules = slices.Clone(it.rules)
	return &c
}
