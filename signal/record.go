package signal

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
)

var (
	// ErrInvalidType is returned for a type tag outside the known range.
	ErrInvalidType = errors.New("invalid signal type")

	// ErrDuplicateSignal is returned when a name or sid is registered twice.
	ErrDuplicateSignal = errors.New("duplicate signal")

	// ErrOutOfRange is returned when a field value does not fit its binary slot.
	ErrOutOfRange = errors.New("value out of range")
)

// Record is the in-memory form of one signal record. It is wide enough to hold
// any of the twelve types; fields a type does not use stay zero.
//
// For T_DateVal2 the secondary unsigned short lives in Shorts[0] (see Val2).
// For T_CompactDateVal Date holds the full YYYYMMDD date and Val the short value.
type Record struct {
	Date    int32
	Date2   int32
	Time    int64
	Time2   int64
	Val     float32
	LongVal int64
	Shorts  [4]int16
}

// Val2 returns the secondary value of a T_DateVal2 record.
func (r Record) Val2() uint16 { return uint16(r.Shorts[0]) }

// Compare orders records by (date, date2, time, time2, val, longVal, shorts).
// Two records compare equal only when every field is identical.
func Compare(a, b Record) int {
	if c := cmp.Compare(a.Date, b.Date); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Date2, b.Date2); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Time, b.Time); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Time2, b.Time2); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Val, b.Val); c != 0 {
		return c
	}
	if c := cmp.Compare(a.LongVal, b.LongVal); c != 0 {
		return c
	}
	for i := range a.Shorts {
		if c := cmp.Compare(a.Shorts[i], b.Shorts[i]); c != 0 {
			return c
		}
	}
	return 0
}

// SortDedup sorts recs in place by Compare and drops exact duplicates. The
// returned slice shares recs' backing array.
func SortDedup(recs []Record) []Record {
	slices.SortStableFunc(recs, Compare)
	return slices.CompactFunc(recs, func(a, b Record) bool { return Compare(a, b) == 0 })
}

// Compact dates pack (year-1900, month, day) into 7+4+5 bits.
const (
	compactMinYear = 1900
	compactMaxYear = 1900 + 127
)

// ToCompactDate packs a YYYYMMDD date into 16 bits. ok is false for dates
// outside 1900-01-01..2027-12-31 or with an invalid month/day.
func ToCompactDate(date int32) (uint16, bool) {
	y, m, d := date/10000, (date/100)%100, date%100
	if y < compactMinYear || y > compactMaxYear || m < 1 || m > 12 || d < 1 || d > 31 {
		return 0, false
	}
	return uint16((y-compactMinYear)<<9 | m<<5 | d), true
}

// FromCompactDate expands a packed date back to YYYYMMDD.
func FromCompactDate(c uint16) int32 {
	y := int32(c>>9) + compactMinYear
	m := int32(c>>5) & 0xF
	d := int32(c) & 0x1F
	return y*10000 + m*100 + d
}

// FieldKind names the Record slot a text column is decoded into.
type FieldKind uint8

const (
	FieldDate FieldKind = iota
	FieldDate2
	FieldTime
	FieldTime2
	FieldVal
	FieldLongVal
	FieldVal2
	FieldShort1
	FieldShort2
	FieldShort3
	FieldShort4
	FieldCompactDate
	FieldCompactVal
)

var fieldNames = [...]string{
	"date", "date2", "time", "time2", "val", "long_val", "val2",
	"short1", "short2", "short3", "short4", "compact_date", "compact_val",
}

func (k FieldKind) String() string {
	if int(k) < len(fieldNames) {
		return fieldNames[k]
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// Set parses s and stores it into the slot k of r.
func (k FieldKind) Set(r *Record, s string) error {
	switch k {
	case FieldDate, FieldDate2, FieldCompactDate:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return err
		}
		return k.setInt(r, v)
	case FieldTime, FieldTime2, FieldLongVal:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		return k.setInt(r, v)
	case FieldVal2, FieldShort1, FieldShort2, FieldShort3, FieldShort4, FieldCompactVal:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		return k.SetNumber(r, v)
	case FieldVal:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return err
		}
		return k.SetNumber(r, v)
	default:
		return fmt.Errorf("unknown field kind %d", k)
	}
}

// SetNumber stores an already numeric value (for example a dictionary id) into
// the slot k of r, checking that it fits the binary width.
func (k FieldKind) SetNumber(r *Record, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrOutOfRange, v)
	}
	switch k {
	case FieldVal:
		if math.Abs(v) > math.MaxFloat32 {
			return fmt.Errorf("%w: %v", ErrOutOfRange, v)
		}
		r.Val = float32(v)
		return nil
	case FieldVal2, FieldCompactVal:
		if v != math.Trunc(v) || v < 0 || v > math.MaxUint16 {
			return fmt.Errorf("%w: %s %v", ErrOutOfRange, k, v)
		}
		if k == FieldVal2 {
			r.Shorts[0] = int16(uint16(v))
		} else {
			r.Val = float32(v)
		}
		return nil
	case FieldShort1, FieldShort2, FieldShort3, FieldShort4:
		if v != math.Trunc(v) || v < math.MinInt16 || v > math.MaxInt16 {
			return fmt.Errorf("%w: %s %v", ErrOutOfRange, k, v)
		}
		r.Shorts[k-FieldShort1] = int16(v)
		return nil
	default:
		if v != math.Trunc(v) || v < math.MinInt64 || v > math.MaxInt64 {
			return fmt.Errorf("%w: %s %v", ErrOutOfRange, k, v)
		}
		return k.setInt(r, int64(v))
	}
}

func (k FieldKind) setInt(r *Record, v int64) error {
	switch k {
	case FieldDate, FieldDate2:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return fmt.Errorf("%w: %s %d", ErrOutOfRange, k, v)
		}
		if k == FieldDate {
			r.Date = int32(v)
		} else {
			r.Date2 = int32(v)
		}
	case FieldCompactDate:
		if _, ok := ToCompactDate(int32(v)); !ok || v < 0 || v > math.MaxInt32 {
			return fmt.Errorf("%w: compact date %d", ErrOutOfRange, v)
		}
		r.Date = int32(v)
	case FieldTime:
		r.Time = v
	case FieldTime2:
		r.Time2 = v
	case FieldLongVal:
		r.LongVal = v
	default:
		return k.SetNumber(r, float64(v))
	}
	return nil
}

// Format renders the slot k of r the way Set parses it.
func (k FieldKind) Format(r Record) string {
	switch k {
	case FieldDate, FieldCompactDate:
		return strconv.FormatInt(int64(r.Date), 10)
	case FieldDate2:
		return strconv.FormatInt(int64(r.Date2), 10)
	case FieldTime:
		return strconv.FormatInt(r.Time, 10)
	case FieldTime2:
		return strconv.FormatInt(r.Time2, 10)
	case FieldLongVal:
		return strconv.FormatInt(r.LongVal, 10)
	case FieldVal, FieldCompactVal:
		return strconv.FormatFloat(float64(r.Val), 'g', -1, 32)
	case FieldVal2:
		return strconv.FormatUint(uint64(r.Val2()), 10)
	case FieldShort1, FieldShort2, FieldShort3, FieldShort4:
		return strconv.FormatInt(int64(r.Shorts[k-FieldShort1]), 10)
	default:
		return ""
	}
}
