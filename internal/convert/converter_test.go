package convert

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inframed/inframed/internal/compress"
	"github.com/inframed/inframed/internal/format"
	"github.com/inframed/inframed/internal/fs"
	"github.com/inframed/inframed/repository"
	"github.com/inframed/inframed/signal"
)

const labSignals = "SIGNAL\tGLU\t10\t1\tGlucose\nSIGNAL\tHGB\t11\t1\nSIGNAL\tGENDER\t1\t0\n"

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func convertDir(t *testing.T, dir string, opts ...Option) (*Report, error) {
	t.Helper()
	return ConvertFile(context.Background(), filepath.Join(dir, "convert.cfg"), opts...)
}

// outputs lists the files left in dir, ignoring the lock file.
func outputs(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.Name() != LockFile {
			names = append(names, e.Name())
		}
	}
	return names
}

func allPids(t *testing.T, path string) []uint32 {
	t.Helper()
	bm, err := format.ParseAllPids(readFile(t, path))
	require.NoError(t, err)
	return bm.ToArray()
}

func TestConvert_MergesSignalsAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"codes.txt":   "GLU\tGLU\nHGB\tHGB\n",
		"a.txt":       "1001\tGLU\t20200101\t95\n",
		"b.txt":       "1001\tHGB\t20200101\t13.2\n",
		"convert.cfg": "DIR .\nOUTDIR out\nSIGNAL signals.txt\nCODES codes.txt\nDATA a.txt\nDATA b.txt\nMODE 2\n",
	})

	rep, err := convertDir(t, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Patients)
	assert.Equal(t, 1, rep.Written)
	assert.Equal(t, 0, rep.Rejected)
	assert.NotEmpty(t, rep.RunID)

	out := filepath.Join(dir, "out")
	assert.Equal(t, []byte{1, 0, 0, 0, 0xE9, 0x03, 0, 0}, readFile(t, filepath.Join(out, "rep_all_pids.list")))

	catalogSerial := map[string]uint16{"GENDER": 0, "GLU": 1, "HGB": 2}
	for name, want := range map[string]signal.Record{
		"GLU": {Date: 20200101, Val: 95},
		"HGB": {Date: 20200101, Val: 13.2},
	} {
		mode, packets, err := format.ParseIndex(readFile(t, filepath.Join(out, "rep_"+name+".idx")))
		require.NoError(t, err)
		assert.Equal(t, int32(2), mode)
		require.Len(t, packets, 1)
		assert.Equal(t, int32(1001), packets[0].Pid)
		require.Len(t, packets[0].Entries, 1)
		e := packets[0].Entries[0]
		assert.Equal(t, catalogSerial[name], e.FileNo)
		assert.Equal(t, uint64(format.DataHeaderSize), e.Pos)
		assert.Equal(t, int32(8), e.Len)

		data := readFile(t, filepath.Join(out, "rep_"+name+".data"))
		require.NoError(t, format.CheckDataHeader(data))
		recs, err := signal.Decode(signal.TypeDateVal, data[e.Pos:e.Pos+uint64(e.Len)])
		require.NoError(t, err)
		assert.Equal(t, []signal.Record{want}, recs)
	}

	rc, err := repository.LoadConfig(filepath.Join(out, DefaultConfigName))
	require.NoError(t, err)
	assert.Equal(t, 2, rc.Mode)
	assert.Equal(t, []string{"signals.txt"}, rc.Signals)
	assert.Equal(t, []string{"rep_GENDER.idx", "rep_GLU.idx", "rep_HGB.idx"}, rc.Indexes)
	assert.FileExists(t, filepath.Join(out, "signals.txt"))
	assert.Equal(t, out, rc.Dir)
}

func TestConvert_UnmappedCodeSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"a.txt":       "1001\tXYZ\t20200101\t5\n1001\tGLU\t20200101\t95\n",
		"convert.cfg": "DIR .\nSIGNAL signals.txt\nDATA a.txt\nMODE 2\nSAFE_MODE 0\n",
	})

	rep, err := convertDir(t, dir)
	require.NoError(t, err)
	require.Len(t, rep.Files, 1)
	assert.Equal(t, int64(2), rep.Files[0].Lines)
	assert.Equal(t, int64(1), rep.Files[0].Relevant)
	assert.Equal(t, int64(1), rep.Files[0].Parsed)
	assert.Equal(t, []uint32{1001}, allPids(t, filepath.Join(dir, "rep_all_pids.list")))
}

func TestConvert_UnmappedCodeFailsInSafeMode(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"in/signals.txt": labSignals,
		"in/a.txt":       "1001\tXYZ\t20200101\t5\n",
		"in/convert.cfg": "DIR .\nOUTDIR ../out\nSIGNAL signals.txt\nDATA a.txt\nMODE 2\nSAFE_MODE 1\n",
	})

	_, err := ConvertFile(context.Background(), filepath.Join(dir, "in", "convert.cfg"))
	require.ErrorIs(t, err, ErrUnrecognizedSignal)
	assert.Empty(t, outputs(t, filepath.Join(dir, "out")))
}

func TestConvert_ForcedSignalGating(t *testing.T) {
	files := map[string]string{
		"signals.txt": labSignals,
		"a.txt": "2001\tGENDER\t1\n2001\tGLU\t20200101\t95\n" +
			"2002\tGLU\t20200101\t90\n" +
			"2003\tGENDER\t2\n2003\tGENDER\t1\n",
	}

	t.Run("rejects patient", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, files)
		writeFiles(t, dir, map[string]string{
			"convert.cfg": "SIGNAL signals.txt\nDATA a.txt\nMODE 3\nFORCE_SIGNAL GENDER\n",
		})
		rep, err := convertDir(t, dir)
		require.NoError(t, err)
		assert.Equal(t, []uint32{2001}, allPids(t, filepath.Join(dir, "rep_all_pids.list")))
		assert.Equal(t, map[string]int{"GENDER": 2}, rep.MissingForced)
		assert.Equal(t, 2, rep.Rejected)
		assert.Equal(t, 1, rep.Written)
	})

	t.Run("fails in safe mode", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, files)
		writeFiles(t, dir, map[string]string{
			"convert.cfg": "SIGNAL signals.txt\nDATA a.txt\nMODE 3\nFORCE_SIGNAL GENDER\nSAFE_MODE 1\n",
		})
		_, err := convertDir(t, dir)
		require.ErrorIs(t, err, ErrForcedSignal)
		assert.NoFileExists(t, filepath.Join(dir, DefaultConfigName))
		assert.NoFileExists(t, filepath.Join(dir, "rep_all_pids.list"))
	})
}

func TestConvert_MergeOrder(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"a.txt":       "1\tGLU\t20200101\t1\n4\tGLU\t20200101\t4\n9\tGLU\t20200101\t9\n",
		"b.txt":       "2\tGLU\t20200102\t2\n4\tGLU\t20200102\t4\n4\tGLU\t20200101\t4\n",
		"c.txt":       "3 HGB 20200101 3\n9 HGB 20200101 9\n12 HGB 20200101 12\n",
		"convert.cfg": "SIGNAL signals.txt\nDATA a.txt\nDATA b.txt\nDATA c.txt\nMODE 2\n",
	})

	rep, err := convertDir(t, dir)
	require.NoError(t, err)
	assert.Equal(t, 6, rep.Written)
	assert.Equal(t, []uint32{1, 2, 3, 4, 9, 12}, allPids(t, filepath.Join(dir, "rep_all_pids.list")))

	_, packets, err := format.ParseIndex(readFile(t, filepath.Join(dir, "rep_GLU.idx")))
	require.NoError(t, err)
	var pids []int32
	for _, p := range packets {
		pids = append(pids, p.Pid)
	}
	assert.Equal(t, []int32{1, 2, 4, 9}, pids)

	// pid 4 carries a duplicate record that is written once, after sorting.
	e := packets[2].Entries[0]
	data := readFile(t, filepath.Join(dir, "rep_GLU.data"))
	recs, err := signal.Decode(signal.TypeDateVal, data[e.Pos:e.Pos+uint64(e.Len)])
	require.NoError(t, err)
	assert.Equal(t, []signal.Record{{Date: 20200101, Val: 4}, {Date: 20200102, Val: 4}}, recs)
}

func TestConvert_OutOfOrder(t *testing.T) {
	files := map[string]string{
		"signals.txt": labSignals,
		"a.txt":       "5\tGLU\t20200101\t1\n3\tGLU\t20200101\t1\n7\tGLU\t20200101\t1\n",
	}

	t.Run("dropped", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, files)
		writeFiles(t, dir, map[string]string{"convert.cfg": "SIGNAL signals.txt\nDATA a.txt\nMODE 2\n"})
		rep, err := convertDir(t, dir)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rep.Files[0].OutOfOrder)
		assert.Equal(t, []uint32{5, 7}, allPids(t, filepath.Join(dir, "rep_all_pids.list")))
	})

	t.Run("fatal in safe mode", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, files)
		writeFiles(t, dir, map[string]string{"convert.cfg": "SIGNAL signals.txt\nDATA a.txt\nMODE 2\nSAFE_MODE 1\n"})
		_, err := convertDir(t, dir)
		require.ErrorIs(t, err, ErrOutOfOrder)
		assert.Equal(t, []string{"a.txt", "convert.cfg", "signals.txt"}, outputs(t, dir))
	})
}

func TestConvert_BadFormatLinesCounted(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"a.txt":       "1\tGLU\t20200101\t1\nx\tGLU\t20200101\t1\n2\tGLU\tnotadate\t1\n3\tGLU\t20200101\n4\tGLU\t20200101\t4\n",
		"convert.cfg": "SIGNAL signals.txt\nDATA a.txt\nMODE 2\n",
	})

	rep, err := convertDir(t, dir)
	require.NoError(t, err)
	st := rep.Files[0]
	assert.Equal(t, int64(5), st.Lines)
	assert.Equal(t, int64(4), st.Relevant)
	assert.Equal(t, int64(2), st.Parsed)
	assert.Equal(t, int64(3), st.BadFormat)
	// Patients 2 and 3 have no records left.
	assert.Equal(t, []uint32{1, 4}, allPids(t, filepath.Join(dir, "rep_all_pids.list")))
}

func TestConvert_Thresholds(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	for pid := 1; pid <= 20; pid++ {
		if pid%2 == 0 {
			b.WriteString(strconv.Itoa(pid) + "\tGLU\tbad\t1\n")
		} else {
			b.WriteString(strconv.Itoa(pid) + "\tGLU\t20200101\t1\n")
		}
	}
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"a.txt":       b.String(),
		"convert.cfg": "SIGNAL signals.txt\nDATA a.txt\nMODE 2\n",
	})

	th := DefaultThresholds()
	th.MinRelevantLines = 10
	_, err := convertDir(t, dir, WithThresholds(th))
	require.ErrorIs(t, err, ErrThreshold)
	assert.NoFileExists(t, filepath.Join(dir, "rep_GLU.idx"))

	// Below the size limit the same ratio is tolerated.
	_, err = convertDir(t, dir)
	require.NoError(t, err)
}

func TestConvert_BadFormatRatioIgnoresUnloadedLines(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	for pid := 1; pid <= 120; pid++ {
		switch {
		case pid <= 2:
			b.WriteString(strconv.Itoa(pid) + "\tGLU\tbad\t1\n")
		case pid <= 20:
			b.WriteString(strconv.Itoa(pid) + "\tGLU\t20200101\t1\n")
		default:
			b.WriteString(strconv.Itoa(pid) + "\tXYZ\t20200101\t1\n")
		}
	}
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"a.txt":       b.String(),
		"convert.cfg": "SIGNAL signals.txt\nDATA a.txt\nMODE 2\n",
	})

	// 2 of 20 relevant lines are bad; over all 120 lines it would pass.
	th := DefaultThresholds()
	th.MinRelevantLines = 10
	rep, err := convertDir(t, dir, WithThresholds(th))
	require.ErrorIs(t, err, ErrThreshold)
	require.NotNil(t, rep)
	require.Len(t, rep.Files, 1)
	assert.Equal(t, int64(120), rep.Files[0].Lines)
	assert.Equal(t, int64(20), rep.Files[0].Relevant)
	assert.InDelta(t, 0.1, rep.Files[0].BadFormatRatio(), 1e-9)
}

func TestConvert_StringDataAndRegistry(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": "SIGNAL\tDRUG\t20\t1\nSIGNAL\tCancer_Location\t30\t1\nSIGNAL\tCancer_Stage\t31\t1\n",
		"drugs.dict":  "SECTION\tDRUG\nDEF\t100\tASPIRIN\nDEF\t101\tIBUPROFEN\n",
		"loc.dict":    "SECTION\tCancer_Location\n7\tBreast\n",
		"registry.txt": "1\t20190505\tBreast\t2\n" +
			"2\t20190606\tLiver\t1\n",
		"drugs.txt": "1\tDRUG\t20200101\tASPIRIN\n" +
			"2\tDRUG\t20200101\tPARACETAMOL\n" +
			"2\tDRUG\t20200102\tIBUPROFEN\n",
		"convert.cfg": "DICTIONARY drugs.dict\nDICTIONARY loc.dict\nSIGNAL signals.txt\nREGISTRY registry.txt\nDATA_S drugs.txt\nMODE 2\n",
	})

	rep, err := convertDir(t, dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]int{
		"DRUG":            {"PARACETAMOL": 1},
		"Cancer_Location": {"Liver": 1},
	}, rep.MissingDictionary)
	assert.Equal(t, []uint32{1, 2}, allPids(t, filepath.Join(dir, "rep_all_pids.list")))

	decodeAll := func(name string) map[int32][]signal.Record {
		_, packets, err := format.ParseIndex(readFile(t, filepath.Join(dir, "rep_"+name+".idx")))
		require.NoError(t, err)
		data := readFile(t, filepath.Join(dir, "rep_"+name+".data"))
		out := make(map[int32][]signal.Record)
		for _, p := range packets {
			e := p.Entries[0]
			recs, err := signal.Decode(signal.TypeDateVal, data[e.Pos:e.Pos+uint64(e.Len)])
			require.NoError(t, err)
			out[p.Pid] = recs
		}
		return out
	}
	assert.Equal(t, map[int32][]signal.Record{
		1: {{Date: 20200101, Val: 100}},
		2: {{Date: 20200102, Val: 101}},
	}, decodeAll("DRUG"))
	assert.Equal(t, map[int32][]signal.Record{1: {{Date: 20190505, Val: 7}}}, decodeAll("Cancer_Location"))
	assert.Equal(t, map[int32][]signal.Record{
		1: {{Date: 20190505, Val: 2}},
		2: {{Date: 20190606, Val: 1}},
	}, decodeAll("Cancer_Stage"))
}

func TestConvert_StringValueStaysInSection(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": "SIGNAL\tDRUG\t20\t1\nSIGNAL\tDIAG\t21\t1\n",
		"default.dict": "DEF\t9\tUnknown\n",
		"drugs.dict":   "SECTION\tDRUG\nDEF\t100\tAspirin\n",
		"strings.txt": "1001\tDIAG\t20200101\tUnknown\n" +
			"1001\tDRUG\t20200101\tAspirin\n" +
			"1001\tDRUG\t20200102\tUnknown\n",
		"convert.cfg": "DICTIONARY default.dict\nDICTIONARY drugs.dict\nSIGNAL signals.txt\nDATA_S strings.txt\nMODE 2\n",
	})

	rep, err := convertDir(t, dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]int{"DRUG": {"Unknown": 1}}, rep.MissingDictionary)

	decode := func(name string) []signal.Record {
		_, packets, err := format.ParseIndex(readFile(t, filepath.Join(dir, "rep_"+name+".idx")))
		require.NoError(t, err)
		require.Len(t, packets, 1)
		e := packets[0].Entries[0]
		data := readFile(t, filepath.Join(dir, "rep_"+name+".data"))
		recs, err := signal.Decode(signal.TypeDateVal, data[e.Pos:e.Pos+uint64(e.Len)])
		require.NoError(t, err)
		return recs
	}
	// DIAG has no section of its own and resolves in DEFAULT.
	assert.Equal(t, []signal.Record{{Date: 20200101, Val: 9}}, decode("DIAG"))
	assert.Equal(t, []signal.Record{{Date: 20200101, Val: 100}}, decode("DRUG"))
}

func TestConvert_MissingDictionaryValueFailsInSafeMode(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	for pid := 10; pid < 70; pid++ {
		b.WriteString(strconv.Itoa(pid) + "\tDRUG\t20200101\tUNKNOWN\n")
	}
	writeFiles(t, dir, map[string]string{
		"signals.txt": "SIGNAL\tDRUG\t20\t1\n",
		"drugs.dict":  "SECTION\tDRUG\nDEF\t100\tASPIRIN\n",
		"drugs.txt":   b.String(),
		"convert.cfg": "DICTIONARY drugs.dict\nSIGNAL signals.txt\nDATA_S drugs.txt\nMODE 2\nSAFE_MODE 1\n",
	})

	rep, err := convertDir(t, dir)
	require.ErrorIs(t, err, ErrMissingDictionaryValue)
	assert.Equal(t, 60, rep.MissingDictionary["DRUG"]["UNKNOWN"])
}

func TestConvert_CompressedInput(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"convert.cfg": "SIGNAL signals.txt\nDATA a.txt.zst\nDATA b.txt.gz\nMODE 2\n",
	})
	for name, content := range map[string]string{
		"a.txt.zst": "1\tGLU\t20200101\t1\n3\tGLU\t20200101\t3\n",
		"b.txt.gz":  "2\tHGB\t20200101\t2\n",
	} {
		var buf bytes.Buffer
		w, err := compress.NewWriter(&buf, compress.Detect(name))
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
	}

	rep, err := convertDir(t, dir)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Written)
	assert.Equal(t, []uint32{1, 2, 3}, allPids(t, filepath.Join(dir, "rep_all_pids.list")))
}

func TestConvert_WriteFailureRemovesOutputs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"a.txt":       strings.Repeat("1\tGLU\t20200101\t1\n", 1),
		"convert.cfg": "SIGNAL signals.txt\nDATA a.txt\nOUTDIR out\nMODE 2\n",
	})

	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule("rep_GLU.data", fs.Fault{FailOnSync: true})
	_, err := convertDir(t, dir, WithFileSystem(faulty))
	require.Error(t, err)
	require.ErrorIs(t, err, fs.ErrInjected)
	var ioe *IOError
	require.ErrorAs(t, err, &ioe)
	assert.Empty(t, outputs(t, filepath.Join(dir, "out")))
	assert.NotEmpty(t, faulty.Removed())
}

func TestConvert_OpenFailure(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"convert.cfg": "SIGNAL signals.txt\nDATA missing.txt\nMODE 2\n",
	})
	_, err := convertDir(t, dir)
	var ioe *IOError
	require.ErrorAs(t, err, &ioe)
	assert.Equal(t, "open", ioe.Op)
}

func TestConvert_IndexTableMode(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"a.txt":       "1\tGLU\t20200101\t1\n1\tGLU\t20200102\t2\n5\tGLU\t20200101\t5\n",
		"convert.cfg": "SIGNAL signals.txt\nDATA a.txt\nMODE 3\nPREFIX lab\nRELATIVE\n",
	})

	_, err := convertDir(t, dir)
	require.NoError(t, err)
	table, err := format.ParseIndexTable(readFile(t, filepath.Join(dir, "lab_GLU.idx")), signal.TypeDateVal.Size())
	require.NoError(t, err)
	assert.Equal(t, int32(10), table.SID)
	assert.Equal(t, []int32{1, 5}, table.Pids())

	pos, n, ok := table.Lookup(5)
	require.True(t, ok)
	data := readFile(t, filepath.Join(dir, "lab_GLU.data"))
	assert.Equal(t, table.DataSize(), uint64(len(data)))
	recs, err := signal.Decode(signal.TypeDateVal, data[pos:pos+uint64(n)])
	require.NoError(t, err)
	assert.Equal(t, []signal.Record{{Date: 20200101, Val: 5}}, recs)

	rc, err := repository.ReadConfig(bytes.NewReader(readFile(t, filepath.Join(dir, DefaultConfigName))))
	require.NoError(t, err)
	assert.Equal(t, ".", rc.Dir)
	assert.Equal(t, "lab", rc.Prefix)
	assert.Empty(t, rc.Indexes)
	assert.Equal(t, []uint32{1, 5}, allPids(t, filepath.Join(dir, "lab_all_pids.list")))
}

func TestConvert_LegacyMode(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"sfiles.txt":  "0\tGLU\n0\tHGB\n1\tGENDER\n",
		"fnames.txt":  "0\tlabs\n1\tdemo\n",
		"a.txt":       "7\tGENDER\t1\n7\tGLU\t20200101\t95\n7\tHGB\t20200101\t13\n8\tHGB\t20200101\t12\n",
		"convert.cfg": "SIGNAL signals.txt\nSFILES sfiles.txt\nFNAMES fnames.txt\nDATA a.txt\nMODE 1\n",
	})

	_, err := convertDir(t, dir)
	require.NoError(t, err)

	mode, packets, err := format.ParseIndex(readFile(t, filepath.Join(dir, "labs.idx")))
	require.NoError(t, err)
	assert.Equal(t, int32(1), mode)
	require.Len(t, packets, 2)
	assert.Equal(t, []format.Entry{
		{SID: 10, FileNo: 0, Pos: 4, Len: 8},
		{SID: 11, FileNo: 0, Pos: 12, Len: 8},
	}, packets[0].Entries)
	assert.Equal(t, []format.Entry{{SID: 11, FileNo: 0, Pos: 20, Len: 8}}, packets[1].Entries)

	_, demo, err := format.ParseIndex(readFile(t, filepath.Join(dir, "demo.idx")))
	require.NoError(t, err)
	require.Len(t, demo, 1)
	assert.Equal(t, int32(7), demo[0].Pid)

	rc, err := repository.ReadConfig(bytes.NewReader(readFile(t, filepath.Join(dir, DefaultConfigName))))
	require.NoError(t, err)
	assert.Equal(t, []repository.DataFile{{FileNo: 0, Path: "labs.data"}, {FileNo: 1, Path: "demo.data"}}, rc.Data)
	assert.Equal(t, []string{"labs.idx", "demo.idx"}, rc.Indexes)
}

func TestConvert_LegacyModeNeedsFileNumbers(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"sfiles.txt":  "0\tGLU\n",
		"fnames.txt":  "0\tlabs\n",
		"a.txt":       "7\tGLU\t20200101\t95\n",
		"convert.cfg": "SIGNAL signals.txt\nSFILES sfiles.txt\nFNAMES fnames.txt\nDATA a.txt\nMODE 0\n",
	})
	_, err := convertDir(t, dir)
	require.ErrorIs(t, err, ErrConfig)
}

func TestConvert_PartialLoadKeepsEarlierSignals(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"a.txt":       "1\tGLU\t20200101\t1\n2\tHGB\t20200101\t2\n",
		"full.cfg":    "SIGNAL signals.txt\nDATA a.txt\nMODE 2\nCONFIG rep.repository\n",
		"convert.cfg": "SIGNAL signals.txt\nDATA a.txt\nMODE 2\nLOAD_ONLY HGB\n",
	})
	_, err := ConvertFile(context.Background(), filepath.Join(dir, "full.cfg"))
	require.NoError(t, err)
	before := readFile(t, filepath.Join(dir, "rep_all_pids.list"))

	rep, err := convertDir(t, dir)
	require.NoError(t, err)
	assert.True(t, rep.Partial)
	assert.Equal(t, before, readFile(t, filepath.Join(dir, "rep_all_pids.list")))

	rc, err := repository.LoadConfig(filepath.Join(dir, DefaultConfigName))
	require.NoError(t, err)
	// GENDER and GLU come from the full run.
	assert.Equal(t, []string{"rep_GENDER.idx", "rep_GLU.idx", "rep_HGB.idx"}, rc.Indexes)
}

func TestConvert_UnknownLoadOnlySignal(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"a.txt":       "1\tGLU\t20200101\t1\n",
		"convert.cfg": "SIGNAL signals.txt\nDATA a.txt\nMODE 2\nLOAD_ONLY NOPE\n",
	})
	_, err := convertDir(t, dir)
	require.ErrorIs(t, err, ErrConfig)
}

func TestConvert_MaxPID(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"a.txt":       "1\tGLU\t20200101\t1\n5\tGLU\t20200101\t1\n9\tGLU\t20200101\t1\n",
		"convert.cfg": "SIGNAL signals.txt\nDATA a.txt\nMODE 2\nMAX_PID_TO_TAKE 5\n",
	})

	_, err := convertDir(t, dir)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 5}, allPids(t, filepath.Join(dir, "rep_all_pids.list")))

	_, err = convertDir(t, dir, WithMaxPID(1))
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, allPids(t, filepath.Join(dir, "rep_all_pids.list")))
}

func TestConvert_Canceled(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"a.txt":       "1\tGLU\t20200101\t1\n",
		"convert.cfg": "SIGNAL signals.txt\nDATA a.txt\nMODE 2\n",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ConvertFile(ctx, filepath.Join(dir, "convert.cfg"))
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dir, "rep_GLU.idx"))
}

type countingObserver struct {
	NoopMetricsObserver
	patients, rejected, files int
}

func (c *countingObserver) OnPatient(int32, int)     { c.patients++ }
func (c *countingObserver) OnRejected(int32, string) { c.rejected++ }
func (c *countingObserver) OnFile(FileStats)         { c.files++ }

func TestConvert_MetricsAndReport(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"signals.txt": labSignals,
		"a.txt":       "1\tGENDER\t1\n2\tGLU\t20200101\t1\n",
		"convert.cfg": "SIGNAL signals.txt\nDATA a.txt\nMODE 2\nFORCE_SIGNAL GENDER\n",
	})
	obs := &countingObserver{}
	rep, err := convertDir(t, dir, WithMetricsObserver(obs), WithRunID("run-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, obs.patients)
	assert.Equal(t, 1, obs.rejected)
	assert.Equal(t, 1, obs.files)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteYAML(&buf))
	assert.Contains(t, buf.String(), "run_id: run-1")
	assert.Contains(t, buf.String(), "GENDER: 1")
	assert.Contains(t, rep.Outputs, DefaultConfigName)
}
