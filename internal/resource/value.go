package resource

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindReal
	KindString
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is a tagged union used to write and read items without knowing their
// type in advance. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	r    float64
	s    string
	t    time.Time
}

// Null returns the null value. Writing it to an item clears its timestamps.
func Null() Value { return Value{} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// IntValue wraps an integer.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// RealValue wraps a floating point number.
func RealValue(r float64) Value { return Value{kind: KindReal, r: r} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// TimeValue wraps a point in time.
func TimeValue(t time.Time) Value { return Value{kind: KindTime, t: t} }

// ValueOf converts a Go value, typically produced by encoding/json, to a Value.
// Unsupported types yield null and false.
func ValueOf(v any) (Value, bool) {
	switch x := v.(type) {
	case nil:
		return Null(), true
	case Value:
		return x, true
	case bool:
		return BoolValue(x), true
	case int:
		return IntValue(int64(x)), true
	case int8:
		return IntValue(int64(x)), true
	case int16:
		return IntValue(int64(x)), true
	case int32:
		return IntValue(int64(x)), true
	case int64:
		return IntValue(x), true
	case uint8:
		return IntValue(int64(x)), true
	case uint16:
		return IntValue(int64(x)), true
	case uint32:
		return IntValue(int64(x)), true
	case uint64:
		if x > math.MaxInt64 {
			return Null(), false
		}
		return IntValue(int64(x)), true
	case float32:
		return RealValue(float64(x)), true
	case float64:
		return RealValue(x), true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return IntValue(i), true
		}
		if f, err := x.Float64(); err == nil {
			return RealValue(f), true
		}
		return StringValue(x.String()), true
	case string:
		return StringValue(x), true
	case time.Time:
		return TimeValue(x), true
	}
	return Null(), false
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool coerces v to a boolean.
//
// Numbers are true when non-zero. Strings are false when empty, "0" or
// "false" (case-insensitive) and true otherwise.
func (v Value) Bool() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindReal:
		return v.r != 0
	case KindString:
		s := strings.TrimSpace(v.s)
		return s != "" && s != "0" && !strings.EqualFold(s, "false")
	case KindTime:
		return !v.t.IsZero()
	}
	return false
}

// Int coerces v to an integer. Reals are rounded to the nearest integer,
// strings must hold a decimal integer. The second result is false when no
// conversion exists.
func (v Value) Int() (int64, bool) {
	switch v.kind {
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindInt:
		return v.i, true
	case KindReal:
		if math.IsNaN(v.r) || math.IsInf(v.r, 0) ||
			v.r > math.MaxInt64 || v.r < math.MinInt64 {
			return 0, false
		}
		return int64(math.Round(v.r)), true
	case KindString:
		i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

// Real returns v as a float64 when it is numeric.
func (v Value) Real() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindReal:
		return v.r, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Text renders v as a string. Null renders as InvalidString.
func (v Value) Text() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.r, 'g', -1, 64)
	case KindString:
		return v.s
	case KindTime:
		return v.t.Format(TimeLayout)
	}
	return InvalidString
}

// Time returns the wrapped time for KindTime values.
func (v Value) Time() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return v.t, true
}

// Interface returns v as a plain Go value (nil, bool, int64, float64, string
// or time.Time).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindReal:
		return v.r
	case KindString:
		return v.s
	case KindTime:
		return v.t
	}
	return nil
}

// Equal reports whether two values hold the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindReal:
		return v.r == o.r
	case KindString:
		return v.s == o.s
	case KindTime:
		return v.t.Equal(o.t)
	}
	return true
}

func (v Value) String() string {
	if v.kind == KindNull {
		return "null"
	}
	return v.Text()
}

// MarshalJSON encodes v as a JSON null, boolean, number or string.
// Times use TimeLayout.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindReal:
		return json.Marshal(v.r)
	case KindString:
		return json.Marshal(v.s)
	case KindTime:
		return json.Marshal(v.t.Format(TimeLayout))
	}
	return []byte("null"), nil
}

// UnmarshalJSON decodes any JSON scalar into v. Integral numbers become
// KindInt, other numbers KindReal.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out, ok := ValueOf(raw)
	if !ok {
		return fmt.Errorf("resource: cannot decode %s into a value", string(data))
	}
	*v = out
	return nil
}
