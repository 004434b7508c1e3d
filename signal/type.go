package signal

import (
	"fmt"
	"strconv"
)

// Type is the binary record type tag of a signal.
type Type int

const (
	TypeValue Type = iota
	TypeDateVal
	TypeTimeVal
	TypeDateRangeVal
	TypeTimeStamp
	TypeTimeRangeVal
	TypeDateVal2
	TypeTimeLongVal
	TypeDateShort2
	TypeValShort2
	TypeValShort4
	TypeCompactDateVal

	numTypes
)

var typeNames = [numTypes]string{
	"T_Value",
	"T_DateVal",
	"T_TimeVal",
	"T_DateRangeVal",
	"T_TimeStamp",
	"T_TimeRangeVal",
	"T_DateVal2",
	"T_TimeLongVal",
	"T_DateShort2",
	"T_ValShort2",
	"T_ValShort4",
	"T_CompactDateVal",
}

// Valid reports whether t is one of the known type tags.
func (t Type) Valid() bool {
	return t >= 0 && t < numTypes
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// Size returns the encoded byte length of one record of type t, or 0 for an
// unknown tag.
func (t Type) Size() int {
	if !t.Valid() {
		return 0
	}
	return layouts[t].size
}

// Fields returns the text columns (after pid and signal code) a raw data line
// of type t carries, in order.
func (t Type) Fields() []FieldKind {
	if !t.Valid() {
		return nil
	}
	return layouts[t].fields
}

// ValueField returns the index within Fields of the primary value column, or
// -1 when the type has none. Registry records store their code in this column.
func (t Type) ValueField() int {
	for i, k := range t.Fields() {
		switch k {
		case FieldVal, FieldLongVal, FieldShort1, FieldCompactVal:
			return i
		}
	}
	return -1
}

// ParseType accepts either a numeric tag or a type name such as "T_DateVal".
func ParseType(s string) (Type, error) {
	if n, err := strconv.Atoi(s); err == nil {
		t := Type(n)
		if !t.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidType, n)
		}
		return t, nil
	}
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidType, s)
}
