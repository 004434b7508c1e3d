package signal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSignals = `# signals
SIGNAL	GENDER	1	0	patient gender
SIGNAL	BYEAR	2	0
SIGNAL	GLU	10	1	glucose	mg/dL
SIGNAL	HGB	11	T_DateVal
DEF	10	GLU
SIGNAL	DRUG	30	3
`

func TestCatalog_Read(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Read(strings.NewReader(testSignals), "test.signals"))

	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []int{1, 2, 10, 11, 30}, c.SIDs())

	sid, ok := c.SID("GLU")
	require.True(t, ok)
	assert.Equal(t, 10, sid)

	typ, ok := c.Type(11)
	require.True(t, ok)
	assert.Equal(t, TypeDateVal, typ)

	desc, ok := c.Description(10)
	require.True(t, ok)
	assert.Equal(t, "glucose\tmg/dL", desc)

	name, ok := c.Name(30)
	require.True(t, ok)
	assert.Equal(t, "DRUG", name)

	_, ok = c.SID("NOPE")
	assert.False(t, ok)
	_, ok = c.Type(99)
	assert.False(t, ok)
	_, ok = c.FileNumber(10)
	assert.False(t, ok)

	require.NoError(t, c.SetFileNumber(10, 3))
	fno, ok := c.FileNumber(10)
	require.True(t, ok)
	assert.Equal(t, 3, fno)
}

func TestCatalog_Duplicates(t *testing.T) {
	c := NewCatalog()
	err := c.Read(strings.NewReader("SIGNAL\tA\t1\t0\nSIGNAL\tA\t2\t0\n"), "dup")
	assert.ErrorIs(t, err, ErrDuplicateSignal)

	c = NewCatalog()
	err = c.Read(strings.NewReader("SIGNAL\tA\t1\t0\nSIGNAL\tB\t1\t0\n"), "dup")
	assert.ErrorIs(t, err, ErrDuplicateSignal)

	c = NewCatalog()
	err = c.Read(strings.NewReader("SIGNAL\tA\t1\t12\n"), "badtype")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestCatalog_Load(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.signals")
	p2 := filepath.Join(dir, "b.signals")
	require.NoError(t, os.WriteFile(p1, []byte("SIGNAL\tA\t1\t0\n"), 0o644))
	require.NoError(t, os.WriteFile(p2, []byte("SIGNAL\tB\t5\t1\n"), 0o644))

	c := NewCatalog()
	require.NoError(t, c.Load(p1, p2))
	assert.Equal(t, 2, c.Serials().Len())

	assert.Error(t, NewCatalog().Load(filepath.Join(dir, "missing")))
}

func TestSerialMap_Bijection(t *testing.T) {
	m := NewSerialMap([]int{11, 3, 40})
	assert.Equal(t, 3, m.Len())
	for _, sid := range []int{11, 3, 40} {
		serial, ok := m.Serial(sid)
		require.True(t, ok)
		assert.Equal(t, sid, m.SID(serial))
	}
	for _, sid := range []int{-1, 0, 4, 39, 41, 1000} {
		_, ok := m.Serial(sid)
		assert.False(t, ok, sid)
	}
	assert.Equal(t, []int{11, 3, 40}, m.SIDs())
}
