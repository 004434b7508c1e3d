package signal

import (
	"encoding/binary"
	"fmt"
	"math"
)

// layout binds a type tag to its text columns and binary encoding.
type layout struct {
	size   int
	fields []FieldKind
	encode func(b []byte, r *Record)
	decode func(b []byte) Record
}

var le = binary.LittleEndian

func putF32(b []byte, v float32) { le.PutUint32(b, math.Float32bits(v)) }
func getF32(b []byte) float32    { return math.Float32frombits(le.Uint32(b)) }

var layouts = [numTypes]layout{
	TypeValue: {
		size:   4,
		fields: []FieldKind{FieldVal},
		encode: func(b []byte, r *Record) { putF32(b, r.Val) },
		decode: func(b []byte) Record { return Record{Val: getF32(b)} },
	},
	TypeDateVal: {
		size:   8,
		fields: []FieldKind{FieldDate, FieldVal},
		encode: func(b []byte, r *Record) {
			le.PutUint32(b, uint32(r.Date))
			putF32(b[4:], r.Val)
		},
		decode: func(b []byte) Record {
			return Record{Date: int32(le.Uint32(b)), Val: getF32(b[4:])}
		},
	},
	TypeTimeVal: {
		size:   16,
		fields: []FieldKind{FieldTime, FieldVal},
		encode: func(b []byte, r *Record) {
			le.PutUint64(b, uint64(r.Time))
			putF32(b[8:], r.Val)
		},
		decode: func(b []byte) Record {
			return Record{Time: int64(le.Uint64(b)), Val: getF32(b[8:])}
		},
	},
	TypeDateRangeVal: {
		size:   12,
		fields: []FieldKind{FieldDate, FieldDate2, FieldVal},
		encode: func(b []byte, r *Record) {
			le.PutUint32(b, uint32(r.Date))
			le.PutUint32(b[4:], uint32(r.Date2))
			putF32(b[8:], r.Val)
		},
		decode: func(b []byte) Record {
			return Record{Date: int32(le.Uint32(b)), Date2: int32(le.Uint32(b[4:])), Val: getF32(b[8:])}
		},
	},
	TypeTimeStamp: {
		size:   8,
		fields: []FieldKind{FieldTime},
		encode: func(b []byte, r *Record) { le.PutUint64(b, uint64(r.Time)) },
		decode: func(b []byte) Record { return Record{Time: int64(le.Uint64(b))} },
	},
	TypeTimeRangeVal: {
		size:   24,
		fields: []FieldKind{FieldTime, FieldTime2, FieldVal},
		encode: func(b []byte, r *Record) {
			le.PutUint64(b, uint64(r.Time))
			le.PutUint64(b[8:], uint64(r.Time2))
			putF32(b[16:], r.Val)
		},
		decode: func(b []byte) Record {
			return Record{Time: int64(le.Uint64(b)), Time2: int64(le.Uint64(b[8:])), Val: getF32(b[16:])}
		},
	},
	TypeDateVal2: {
		size:   12,
		fields: []FieldKind{FieldDate, FieldVal, FieldVal2},
		encode: func(b []byte, r *Record) {
			le.PutUint32(b, uint32(r.Date))
			putF32(b[4:], r.Val)
			le.PutUint16(b[8:], r.Val2())
		},
		decode: func(b []byte) Record {
			r := Record{Date: int32(le.Uint32(b)), Val: getF32(b[4:])}
			r.Shorts[0] = int16(le.Uint16(b[8:]))
			return r
		},
	},
	TypeTimeLongVal: {
		size:   16,
		fields: []FieldKind{FieldTime, FieldLongVal},
		encode: func(b []byte, r *Record) {
			le.PutUint64(b, uint64(r.Time))
			le.PutUint64(b[8:], uint64(r.LongVal))
		},
		decode: func(b []byte) Record {
			return Record{Time: int64(le.Uint64(b)), LongVal: int64(le.Uint64(b[8:]))}
		},
	},
	TypeDateShort2: {
		size:   8,
		fields: []FieldKind{FieldDate, FieldShort1, FieldShort2},
		encode: func(b []byte, r *Record) {
			le.PutUint32(b, uint32(r.Date))
			le.PutUint16(b[4:], uint16(r.Shorts[0]))
			le.PutUint16(b[6:], uint16(r.Shorts[1]))
		},
		decode: func(b []byte) Record {
			r := Record{Date: int32(le.Uint32(b))}
			r.Shorts[0] = int16(le.Uint16(b[4:]))
			r.Shorts[1] = int16(le.Uint16(b[6:]))
			return r
		},
	},
	TypeValShort2: {
		size:   4,
		fields: []FieldKind{FieldShort1, FieldShort2},
		encode: func(b []byte, r *Record) {
			le.PutUint16(b, uint16(r.Shorts[0]))
			le.PutUint16(b[2:], uint16(r.Shorts[1]))
		},
		decode: func(b []byte) Record {
			var r Record
			r.Shorts[0] = int16(le.Uint16(b))
			r.Shorts[1] = int16(le.Uint16(b[2:]))
			return r
		},
	},
	TypeValShort4: {
		size:   8,
		fields: []FieldKind{FieldShort1, FieldShort2, FieldShort3, FieldShort4},
		encode: func(b []byte, r *Record) {
			for i, s := range r.Shorts {
				le.PutUint16(b[2*i:], uint16(s))
			}
		},
		decode: func(b []byte) Record {
			var r Record
			for i := range r.Shorts {
				r.Shorts[i] = int16(le.Uint16(b[2*i:]))
			}
			return r
		},
	},
	TypeCompactDateVal: {
		size:   4,
		fields: []FieldKind{FieldCompactDate, FieldCompactVal},
		encode: func(b []byte, r *Record) {
			c, _ := ToCompactDate(r.Date)
			le.PutUint16(b, c)
			le.PutUint16(b[2:], uint16(r.Val))
		},
		decode: func(b []byte) Record {
			return Record{Date: FromCompactDate(le.Uint16(b)), Val: float32(le.Uint16(b[2:]))}
		},
	},
}

// Encode appends the binary encoding of recs as type t to dst. Padding bytes
// are zero.
func Encode(t Type, dst []byte, recs []Record) []byte {
	if !t.Valid() || len(recs) == 0 {
		return dst
	}
	l := &layouts[t]
	start := len(dst)
	dst = append(dst, make([]byte, l.size*len(recs))...)
	for i := range recs {
		l.encode(dst[start+i*l.size:], &recs[i])
	}
	return dst
}

// Decode decodes data, a concatenation of records of type t.
func Decode(t Type, data []byte) ([]Record, error) {
	v, err := NewValues(t, data)
	if err != nil {
		return nil, err
	}
	return v.Records(), nil
}

// Values is a read-only view over the packed records of one signal.
type Values struct {
	Type Type
	Data []byte
}

// NewValues validates that data holds a whole number of records of type t.
func NewValues(t Type, data []byte) (Values, error) {
	if !t.Valid() {
		return Values{}, fmt.Errorf("%w: %d", ErrInvalidType, int(t))
	}
	if len(data)%t.Size() != 0 {
		return Values{}, fmt.Errorf("signal: %d bytes is not a multiple of %s size %d", len(data), t, t.Size())
	}
	return Values{Type: t, Data: data}, nil
}

// Len returns the number of records.
func (v Values) Len() int {
	if !v.Type.Valid() {
		return 0
	}
	return len(v.Data) / v.Type.Size()
}

// At decodes record i.
func (v Values) At(i int) Record {
	size := v.Type.Size()
	return layouts[v.Type].decode(v.Data[i*size : (i+1)*size])
}

// Records decodes every record.
func (v Values) Records() []Record {
	n := v.Len()
	out := make([]Record, n)
	for i := range out {
		out[i] = v.At(i)
	}
	return out
}
