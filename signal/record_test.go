package signal

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortDedup(t *testing.T) {
	recs := []Record{
		{Date: 20200102, Val: 1},
		{Date: 20200101, Val: 5},
		{Date: 20200101, Val: 2},
		{Date: 20200102, Val: 1},
		{Date: 20200101, Date2: 20200103, Val: 0},
		{Date: 20200101, Val: 2},
	}

	once := SortDedup(slices.Clone(recs))
	require.Equal(t, []Record{
		{Date: 20200101, Val: 2},
		{Date: 20200101, Val: 5},
		{Date: 20200101, Date2: 20200103, Val: 0},
		{Date: 20200102, Val: 1},
	}, once)

	twice := SortDedup(slices.Clone(once))
	assert.Equal(t, once, twice)

	for i := 1; i < len(once); i++ {
		assert.Negative(t, Compare(once[i-1], once[i]))
	}
}

func TestCompare_TieBreaks(t *testing.T) {
	assert.Negative(t, Compare(Record{Time: 1}, Record{Time: 2}))
	assert.Negative(t, Compare(Record{Time: 1, Time2: 1}, Record{Time: 1, Time2: 2}))
	assert.Negative(t, Compare(Record{Time: 1, LongVal: 1}, Record{Time: 1, LongVal: 2}))
	assert.Negative(t, Compare(Record{Shorts: [4]int16{0, 0, 0, 1}}, Record{Shorts: [4]int16{0, 0, 0, 2}}))
	assert.Zero(t, Compare(Record{Date: 3, Val: 1.5}, Record{Date: 3, Val: 1.5}))
}

func TestFieldKind_Set(t *testing.T) {
	var r Record
	require.NoError(t, FieldDate.Set(&r, "20200101"))
	require.NoError(t, FieldVal.Set(&r, "13.2"))
	require.NoError(t, FieldVal2.Set(&r, "65535"))
	require.NoError(t, FieldTime.Set(&r, "9007199254740993"))
	assert.Equal(t, int32(20200101), r.Date)
	assert.Equal(t, float32(13.2), r.Val)
	assert.Equal(t, uint16(65535), r.Val2())
	assert.Equal(t, int64(9007199254740993), r.Time)

	assert.Error(t, FieldDate.Set(&r, "2020-01-01"))
	assert.Error(t, FieldVal.Set(&r, "abc"))
	assert.ErrorIs(t, FieldVal.Set(&r, "NaN"), ErrOutOfRange)
	assert.ErrorIs(t, FieldShort1.Set(&r, "40000"), ErrOutOfRange)
	assert.ErrorIs(t, FieldShort2.Set(&r, "1.5"), ErrOutOfRange)
	assert.ErrorIs(t, FieldCompactDate.Set(&r, "20300101"), ErrOutOfRange)
	assert.ErrorIs(t, FieldCompactVal.Set(&r, "-1"), ErrOutOfRange)
}

func TestFieldKind_SetNumber(t *testing.T) {
	var r Record
	require.NoError(t, FieldShort1.SetNumber(&r, 17))
	require.NoError(t, FieldLongVal.SetNumber(&r, 1234))
	require.NoError(t, FieldVal.SetNumber(&r, 7))
	assert.Equal(t, int16(17), r.Shorts[0])
	assert.Equal(t, int64(1234), r.LongVal)
	assert.Equal(t, float32(7), r.Val)
}

func TestFieldKind_Format(t *testing.T) {
	for _, typ := range []Type{TypeDateVal, TypeDateVal2, TypeDateRangeVal, TypeTimeLongVal, TypeDateShort2} {
		want := map[FieldKind]string{
			FieldDate: "20200101", FieldDate2: "20200301", FieldTime: "123456789012",
			FieldVal: "13.5", FieldVal2: "65535", FieldLongVal: "-42",
			FieldShort1: "-7", FieldShort2: "300",
		}
		var r Record
		for _, k := range typ.Fields() {
			s, ok := want[k]
			require.True(t, ok, "%s %s", typ, k)
			require.NoError(t, k.Set(&r, s))
		}
		for _, k := range typ.Fields() {
			assert.Equal(t, want[k], k.Format(r), "%s %s", typ, k)
		}
	}
}
