package resource

import (
	"fmt"
	"strings"
)

// DataType is the semantic type of an attribute.
type DataType uint8

// Data type constants. The zero value is not a valid type.
const (
	DataTypeUnknown DataType = iota
	DataTypeBool
	DataTypeUInt8
	DataTypeUInt16
	DataTypeUInt32
	DataTypeUInt64
	DataTypeInt8
	DataTypeInt16
	DataTypeInt32
	DataTypeInt64
	DataTypeReal
	DataTypeString
	DataTypeTime
	DataTypeTimePattern
)

var dataTypeNames = map[DataType]string{
	DataTypeBool:        "Bool",
	DataTypeUInt8:       "UInt8",
	DataTypeUInt16:      "UInt16",
	DataTypeUInt32:      "UInt32",
	DataTypeUInt64:      "UInt64",
	DataTypeInt8:        "Int8",
	DataTypeInt16:       "Int16",
	DataTypeInt32:       "Int32",
	DataTypeInt64:       "Int64",
	DataTypeReal:        "Real",
	DataTypeString:      "String",
	DataTypeTime:        "Time",
	DataTypeTimePattern: "TimePattern",
}

// AllDataTypes returns every valid data type in declaration order.
func AllDataTypes() []DataType {
	return []DataType{
		DataTypeBool,
		DataTypeUInt8, DataTypeUInt16, DataTypeUInt32, DataTypeUInt64,
		DataTypeInt8, DataTypeInt16, DataTypeInt32, DataTypeInt64,
		DataTypeReal, DataTypeString, DataTypeTime, DataTypeTimePattern,
	}
}

// String returns the type name, e.g. "UInt16".
func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", uint8(t))
}

// ParseDataType converts a type name back to a DataType (case-insensitive).
func ParseDataType(s string) (DataType, error) {
	for t, name := range dataTypeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return DataTypeUnknown, fmt.Errorf("%w: %q", ErrUnknownDataType, s)
}

// IsValid reports whether t is one of the catalogue types.
func (t DataType) IsValid() bool {
	_, ok := dataTypeNames[t]
	return ok
}

// IsTextual reports whether values of this type are stored as text.
// Time is stored numerically and rendered as text on demand.
func (t DataType) IsTextual() bool {
	return t == DataTypeString || t == DataTypeTimePattern
}

// IsNumeric reports whether the type is an integer or real type.
func (t DataType) IsNumeric() bool {
	switch t {
	case DataTypeUInt8, DataTypeUInt16, DataTypeUInt32, DataTypeUInt64,
		DataTypeInt8, DataTypeInt16, DataTypeInt32, DataTypeInt64,
		DataTypeReal:
		return true
	}
	return false
}
