package dict

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDict = `# drugs
DEF	100	ATC_A10
DEF	100	Metformin
DEF	200	Diabetes_Drugs
DEF	300	Chronic_Drugs
DEF	400	ATC_C09
SET	ATC_A10	Diabetes_Drugs
SET	Diabetes_Drugs	Chronic_Drugs
SET	ATC_C09	Chronic_Drugs
SIGNAL	DRUG	30	3
500 Insulin
`

func loadTestDict(t *testing.T) *Dictionary {
	t.Helper()
	d := New(DefaultSection)
	require.NoError(t, d.Read(strings.NewReader(testDict), "drugs.dict"))
	return d
}

func TestDictionary_Lookup(t *testing.T) {
	d := loadTestDict(t)

	id, ok := d.ID("Metformin")
	require.True(t, ok)
	assert.Equal(t, int32(100), id)

	name, ok := d.Name(100)
	require.True(t, ok)
	assert.Equal(t, "ATC_A10", name)
	assert.Equal(t, []string{"ATC_A10", "Metformin"}, d.Names(100))

	id, ok = d.ID("Insulin")
	require.True(t, ok)
	assert.Equal(t, int32(500), id)

	_, ok = d.ID("DRUG")
	assert.False(t, ok)
	_, ok = d.Name(999)
	assert.False(t, ok)

	assert.Equal(t, int32(500), d.MaxID())
	assert.Equal(t, 6, d.Len())
}

func TestDictionary_Sets(t *testing.T) {
	d := loadTestDict(t)

	assert.True(t, d.IsInSet(100, 200))
	assert.False(t, d.IsInSet(100, 300), "membership is direct only")
	assert.True(t, InSet(d, "Metformin", "Diabetes_Drugs"))
	assert.True(t, InSet(d, int32(100), "Diabetes_Drugs"))
	assert.True(t, InSet(d, "ATC_C09", int32(300)))
	assert.False(t, InSet(d, "Nope", "Chronic_Drugs"))
	assert.ElementsMatch(t, []int32{200}, d.Sets(100))
}

func TestDictionary_SetsLookupTable(t *testing.T) {
	d := loadTestDict(t)

	lut, err := d.SetsLookupTable("Chronic_Drugs")
	require.NoError(t, err)
	require.Len(t, lut, 501)
	assert.True(t, lut[100], "nested member")
	assert.True(t, lut[200])
	assert.True(t, lut[400])
	assert.False(t, lut[300], "the set itself is not marked")
	assert.False(t, lut[500])

	_, err = d.SetsLookupTable("Missing")
	assert.ErrorIs(t, err, ErrUnknownSet)
}

func TestDictionary_FormatErrors(t *testing.T) {
	var fe *FormatError

	err := New("x").Read(strings.NewReader("DEF\tabc\tX\n"), "bad.dict")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "bad.dict", fe.Path)
	assert.Equal(t, 1, fe.Line)

	err = New("x").Read(strings.NewReader("DEF\t1\tA\nDEF\t2\tA\n"), "conflict.dict")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 2, fe.Line)

	err = New("x").Read(strings.NewReader("DEF\t1\tA\nSET\tA\tB\n"), "set.dict")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 2, fe.Line)
}

func TestDictionary_LoadResolvesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.dict")
	p2 := filepath.Join(dir, "b.dict")
	require.NoError(t, os.WriteFile(p1, []byte("DEF\t1\tA\nSET\tA\tB\n"), 0o644))
	require.NoError(t, os.WriteFile(p2, []byte("DEF\t2\tB\n"), 0o644))

	d := New(DefaultSection)
	require.NoError(t, d.Load(p1, p2))
	assert.True(t, d.IsInSet(1, 2))
}
