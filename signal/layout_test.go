package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() map[Type]Record {
	return map[Type]Record{
		TypeValue:          {Val: 3.25},
		TypeDateVal:        {Date: 20200101, Val: 95},
		TypeTimeVal:        {Time: 202001011230, Val: -1.5},
		TypeDateRangeVal:   {Date: 20190101, Date2: 20191231, Val: 7},
		TypeTimeStamp:      {Time: 1577836800123},
		TypeTimeRangeVal:   {Time: 100, Time2: 1 << 40, Val: 0.125},
		TypeDateVal2:       {Date: 20210315, Val: 42.5, Shorts: [4]int16{-536}}, // val2 65000
		TypeTimeLongVal:    {Time: 5, LongVal: -1 << 50},
		TypeDateShort2:     {Date: 19991231, Shorts: [4]int16{-3, 32767}},
		TypeValShort2:      {Shorts: [4]int16{1, -32768}},
		TypeValShort4:      {Shorts: [4]int16{1, 2, 3, 4}},
		TypeCompactDateVal: {Date: 20270704, Val: 65535},
	}
}

func TestLayout_RoundTrip(t *testing.T) {
	for typ, rec := range sampleRecords() {
		t.Run(typ.String(), func(t *testing.T) {
			buf := Encode(typ, nil, []Record{rec, rec})
			require.Len(t, buf, 2*typ.Size())

			got, err := Decode(typ, buf)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, rec, got[0])
			assert.Equal(t, rec, got[1])
		})
	}
}

func TestLayout_Sizes(t *testing.T) {
	want := []int{4, 8, 16, 12, 8, 24, 12, 16, 8, 4, 8, 4}
	for i, size := range want {
		assert.Equal(t, size, Type(i).Size(), Type(i).String())
	}
	assert.Equal(t, 0, Type(12).Size())
	assert.Equal(t, 0, Type(-1).Size())
}

func TestLayout_PaddingIsZero(t *testing.T) {
	buf := Encode(TypeTimeVal, nil, []Record{{Time: -1, Val: -1}})
	assert.Equal(t, []byte{0, 0, 0, 0}, buf[12:16])

	buf = Encode(TypeDateVal2, nil, []Record{{Date: -1, Val: -1, Shorts: [4]int16{-1}}})
	assert.Equal(t, []byte{0, 0}, buf[10:12])
}

func TestValues(t *testing.T) {
	data := Encode(TypeDateVal, nil, []Record{{Date: 1, Val: 1}, {Date: 2, Val: 2}, {Date: 3, Val: 3}})

	v, err := NewValues(TypeDateVal, data)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, Record{Date: 2, Val: 2}, v.At(1))

	_, err = NewValues(TypeDateVal, data[:5])
	assert.Error(t, err)

	_, err = NewValues(Type(99), data)
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestCompactDate(t *testing.T) {
	for _, d := range []int32{19000101, 20200229, 20271231} {
		c, ok := ToCompactDate(d)
		require.True(t, ok)
		assert.Equal(t, d, FromCompactDate(c))
	}
	for _, d := range []int32{18991231, 20280101, 20201301, 20200100} {
		_, ok := ToCompactDate(d)
		assert.False(t, ok, d)
	}
}

func TestType_ValueField(t *testing.T) {
	assert.Equal(t, 1, TypeDateVal.ValueField())
	assert.Equal(t, 2, TypeDateRangeVal.ValueField())
	assert.Equal(t, 1, TypeTimeLongVal.ValueField())
	assert.Equal(t, 0, TypeValShort2.ValueField())
	assert.Equal(t, 1, TypeCompactDateVal.ValueField())
	assert.Equal(t, -1, TypeTimeStamp.ValueField())
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("1")
	require.NoError(t, err)
	assert.Equal(t, TypeDateVal, typ)

	typ, err = ParseType("T_ValShort4")
	require.NoError(t, err)
	assert.Equal(t, TypeValShort4, typ)

	_, err = ParseType("12")
	assert.ErrorIs(t, err, ErrInvalidType)
	_, err = ParseType("T_Nope")
	assert.ErrorIs(t, err, ErrInvalidType)
}
