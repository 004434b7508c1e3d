package repository

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inframed/inframed/internal/format"
)

func TestReadConfig(t *testing.T) {
	text := "# written by medconvert\n" +
		"DESCRIPTION\tLab extract\n" +
		"DIR\t/data/rep\n" +
		"DICTIONARY\tdict.labs\n" +
		"SIGNAL\tsignals.txt\n" +
		"MODE\t1\n" +
		"DATA\t0\tlabs.data\n" +
		"DATA 1 demo.data\n" +
		"INDEX\tlabs.idx\n" +
		"INDEX\tdemo.idx\n" +
		"UNKNOWN\tignored\n"
	c, err := ReadConfig(strings.NewReader(text))
	require.NoError(t, err)

	assert.Equal(t, "Lab extract", c.Description)
	assert.Equal(t, "/data/rep", c.Dir)
	assert.Equal(t, []string{"dict.labs"}, c.Dictionaries)
	assert.Equal(t, []string{"signals.txt"}, c.Signals)
	assert.Equal(t, 1, c.Mode)
	assert.Equal(t, format.ModeLegacy, c.ModeKind())
	assert.Equal(t, []DataFile{{0, "labs.data"}, {1, "demo.data"}}, c.Data)
	assert.Equal(t, []string{"labs.idx", "demo.idx"}, c.Indexes)
	assert.Equal(t, []string{"dict.labs", "signals.txt", "labs.data", "demo.data", "labs.idx", "demo.idx"}, c.Files())
}

func TestConfig_WriteToRoundTrip(t *testing.T) {
	for name, c := range map[string]*Config{
		"legacy": {
			Dir:          "/data/rep",
			Dictionaries: []string{"dict.labs"},
			Signals:      []string{"signals.txt"},
			Mode:         0,
			Data:         []DataFile{{0, "labs.data"}},
			Indexes:      []string{"labs.idx"},
		},
		"index table": {
			Description: "thin",
			Dir:         ".",
			Signals:     []string{"signals.txt"},
			Mode:        3,
			Prefix:      "thin",
		},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := ReadConfig(bytes.NewReader(c.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, c, got)
		})
	}
}

func TestConfig_WriteToIndexTableDefaultsPrefix(t *testing.T) {
	c := &Config{Dir: ".", Mode: 4}
	assert.Contains(t, string(c.Bytes()), "PREFIX\trep\n")
	assert.NotContains(t, string(c.Bytes()), "DATA")
}

func TestReadConfig_Errors(t *testing.T) {
	for name, text := range map[string]string{
		"mode":          "MODE x\n",
		"negative mode": "MODE -2\n",
		"data":          "DATA labs.data\n",
		"data fno":      "DATA -1 labs.data\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadConfig(strings.NewReader(text))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfig_ResolvesDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rep.repository")
	require.NoError(t, os.WriteFile(path, []byte("DIR\t.\nMODE\t2\n"), 0o644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, dir, c.Dir)

	_, err = LoadConfig(filepath.Join(dir, "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
