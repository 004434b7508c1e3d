package convert

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/inframed/inframed/dict"
	"github.com/inframed/inframed/internal/compress"
	"github.com/inframed/inframed/internal/format"
	"github.com/inframed/inframed/internal/fs"
	"github.com/inframed/inframed/repository"
	"github.com/inframed/inframed/signal"
)

// LockFile is held in the output directory for the duration of a run.
const LockFile = ".inframed.lock"

// Convert runs one conversion described by cfg. The report is returned even
// when the run fails. On failure nothing the run created is left behind and
// no repository_config exists.
func Convert(ctx context.Context, cfg *Config, optFns ...Option) (*Report, error) {
	o := options{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		fs:         fs.Default,
		metrics:    NoopMetricsObserver{},
		thresholds: DefaultThresholds(),
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}

	r := &run{
		cfg:     cfg,
		opts:    o,
		log:     o.logger.With("run_id", o.runID),
		fsys:    o.fs,
		th:      o.thresholds,
		maxPID:  cfg.MaxPID,
		missing: make(map[string]map[string]int),
		report: &Report{
			RunID:   o.runID,
			Mode:    cfg.Mode,
			Config:  cfg.Path,
			Partial: cfg.Partial(),
		},
	}
	if o.maxPID > 0 {
		r.maxPID = o.maxPID
	}

	start := time.Now()
	r.log.Info("conversion started", "config", cfg.Path, "mode", cfg.ModeKind().String(), "out_dir", cfg.OutDir)
	err := r.execute(ctx)
	r.fillReport(err == nil)
	r.report.Duration = time.Since(start)
	if err != nil {
		r.report.Error = err.Error()
		r.log.Error("conversion failed", "error", err)
	} else {
		r.log.Info("conversion finished",
			"patients", r.report.Patients,
			"written", r.report.Written,
			"rejected", r.report.Rejected,
			"duration", r.report.Duration)
	}
	o.metrics.OnRun(r.report.Duration, r.report.Written, err)
	return r.report, err
}

// ConvertFile loads the directive file at path and converts it.
func ConvertFile(ctx context.Context, path string, optFns ...Option) (*Report, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return Convert(ctx, cfg, optFns...)
}

// run holds the state of one conversion.
type run struct {
	cfg    *Config
	opts   options
	log    *slog.Logger
	fsys   fs.FileSystem
	th     Thresholds
	maxPID int32

	dicts *dict.Sections
	cat   *signal.Catalog
	codes map[string]string

	loaded *signal.SerialMap
	names  []string
	types  []signal.Type
	fnos   []int
	// prefixes maps a file number to its output prefix.
	prefixes map[int]string
	forced   []int

	locSerial, stageSerial int

	sources []*source
	w       *writer
	copied  []string

	missing map[string]map[string]int
	report  *Report
}

func (r *run) execute(ctx context.Context) (err error) {
	cfg := r.cfg
	if err := r.fsys.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return ioErr("mkdir", cfg.OutDir, err)
	}
	lock := flock.New(filepath.Join(cfg.OutDir, LockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return ioErr("lock", lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, cfg.OutDir)
	}
	defer lock.Unlock()

	cfgPath := cfg.RepositoryConfigPath()
	if err := r.fsys.Remove(cfgPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return ioErr("remove", cfgPath, err)
	}

	if err := r.load(); err != nil {
		return err
	}
	if err := r.plan(); err != nil {
		return err
	}

	defer r.closeSources()
	if err := r.openSources(); err != nil {
		return err
	}

	r.w = newWriter(outputPlan{
		mode:     cfg.ModeKind(),
		rawMode:  int32(cfg.Mode),
		outDir:   cfg.OutDir,
		prefix:   cfg.Prefix,
		sids:     r.loaded.SIDs(),
		names:    r.names,
		types:    r.types,
		fnos:     r.fnos,
		prefixes: r.prefixes,
		forced:   r.forced,
	}, r.fsys, r.log, r.th.LogLimit, r.opts.metrics)

	defer func() {
		if err != nil {
			r.abort()
		}
	}()

	if err := r.w.open(); err != nil {
		return err
	}
	if err := r.merge(ctx); err != nil {
		return err
	}
	if err := r.check(); err != nil {
		return err
	}
	if err := r.w.finish(!cfg.Partial()); err != nil {
		return err
	}
	return r.writeRepositoryConfig()
}

// open opens an input file through the run's file system, decompressing by
// extension.
func (r *run) open(name string) (io.ReadCloser, error) {
	f, err := fs.Open(r.fsys, name)
	if err != nil {
		return nil, ioErr("open", name, err)
	}
	rc, err := compress.Open(f, name)
	if err != nil {
		return nil, ioErr("open", name, err)
	}
	return rc, nil
}

func configErr(err error) error {
	var ioe *IOError
	if errors.As(err, &ioe) || errors.Is(err, ErrConfig) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrConfig, err)
}

// load reads the dictionaries, the signal catalog and the code mapping.
func (r *run) load() error {
	cfg := r.cfg
	if len(cfg.Signals) == 0 {
		return fmt.Errorf("%w: no SIGNAL file", ErrConfig)
	}

	r.dicts = dict.NewSections()
	if err := r.dicts.LoadWith(r.open, cfg.DictionaryFiles()...); err != nil {
		return configErr(err)
	}
	r.cat = signal.NewCatalog()
	if err := r.cat.LoadWith(r.open, cfg.Signals...); err != nil {
		return configErr(err)
	}
	if r.cat.Len() == 0 {
		return fmt.Errorf("%w: catalog has no signals", ErrConfig)
	}

	r.codes = make(map[string]string, r.cat.Len())
	for _, sid := range r.cat.SIDs() {
		name, _ := r.cat.Name(sid)
		r.codes[name] = name
	}
	if cfg.Codes != "" {
		err := r.readPairs(cfg.Codes, func(code, name string, _ int) error {
			r.codes[code] = name
			return nil
		})
		if err != nil {
			return err
		}
	}
	r.log.Debug("catalog loaded", "signals", r.cat.Len(), "sections", r.dicts.Len(), "codes", len(r.codes))
	return nil
}

// readPairs reads a two column tab separated file.
func (r *run) readPairs(path string, fn func(key, val string, line int) error) error {
	f, err := r.open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" || text[0] == '#' {
			continue
		}
		fields := splitPair(text)
		if len(fields) < 2 {
			return fmt.Errorf("%w: %s:%d: expected two columns", ErrConfig, path, line)
		}
		if err := fn(fields[0], fields[1], line); err != nil {
			return fmt.Errorf("%w: %s:%d: %v", ErrConfig, path, line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return ioErr("read", path, err)
	}
	return nil
}

func splitPair(text string) []string {
	if strings.Contains(text, "\t") {
		fields := strings.Split(text, "\t")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		return fields
	}
	return strings.Fields(text)
}

// plan selects the signals to load and assigns their output files.
func (r *run) plan() error {
	cfg := r.cfg
	sidOf := func(name string) (int, error) {
		sid, ok := r.cat.SID(name)
		if !ok {
			return 0, fmt.Errorf("%w: unknown signal %q", ErrConfig, name)
		}
		return sid, nil
	}

	var sids []int
	if cfg.Partial() {
		for _, name := range slices.Concat(cfg.LoadOnly, cfg.ForceSignals) {
			sid, err := sidOf(name)
			if err != nil {
				return err
			}
			sids = append(sids, sid)
		}
		slices.Sort(sids)
		sids = slices.Compact(sids)
	} else {
		sids = r.cat.SIDs()
	}
	r.loaded = signal.NewSerialMap(sids)

	n := r.loaded.Len()
	r.names = make([]string, n)
	r.types = make([]signal.Type, n)
	for serial, sid := range sids {
		r.names[serial], _ = r.cat.Name(sid)
		r.types[serial], _ = r.cat.Type(sid)
	}

	for _, name := range cfg.ForceSignals {
		sid, err := sidOf(name)
		if err != nil {
			return err
		}
		serial, _ := r.loaded.Serial(sid)
		if !slices.Contains(r.forced, serial) {
			r.forced = append(r.forced, serial)
		}
	}

	r.locSerial, r.stageSerial = r.loadedSerial(registryLocationSignal), r.loadedSerial(registryStageSignal)
	if cfg.Registry != "" && r.locSerial < 0 && r.stageSerial < 0 {
		r.log.Warn("registry given but neither registry signal is loaded", "registry", cfg.Registry)
	}

	var err error
	if cfg.ModeKind() == format.ModeLegacy {
		err = r.planLegacy()
	} else {
		r.planPerSignal()
	}
	if err != nil {
		return err
	}
	r.log.Info("load plan", "signals", n, "forced", len(r.forced), "partial", cfg.Partial())
	return nil
}

func (r *run) loadedSerial(name string) int {
	sid, ok := r.cat.SID(name)
	if !ok {
		return -1
	}
	serial, ok := r.loaded.Serial(sid)
	if !ok {
		return -1
	}
	return serial
}

// planLegacy reads the signal -> file number and file number -> prefix maps.
func (r *run) planLegacy() error {
	cfg := r.cfg
	if cfg.SFiles == "" || cfg.FNames == "" {
		return fmt.Errorf("%w: MODE %d needs SFILES and FNAMES", ErrConfig, cfg.Mode)
	}
	parseFno := func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > 0xFFFF {
			return 0, fmt.Errorf("bad file number %q", s)
		}
		return n, nil
	}

	r.prefixes = make(map[int]string)
	err := r.readPairs(cfg.FNames, func(fno, prefix string, _ int) error {
		n, err := parseFno(fno)
		if err != nil {
			return err
		}
		r.prefixes[n] = prefix
		return nil
	})
	if err != nil {
		return err
	}
	err = r.readPairs(cfg.SFiles, func(fno, name string, _ int) error {
		n, err := parseFno(fno)
		if err != nil {
			return err
		}
		sid, ok := r.cat.SID(name)
		if !ok {
			return fmt.Errorf("unknown signal %q", name)
		}
		return r.cat.SetFileNumber(sid, n)
	})
	if err != nil {
		return err
	}

	r.fnos = make([]int, len(r.names))
	for serial := range r.names {
		fno, ok := r.cat.FileNumber(r.loaded.SID(serial))
		if !ok || fno < 0 {
			return fmt.Errorf("%w: signal %q has no file number", ErrConfig, r.names[serial])
		}
		if _, ok := r.prefixes[fno]; !ok {
			return fmt.Errorf("%w: file number %d of %q has no prefix", ErrConfig, fno, r.names[serial])
		}
		r.fnos[serial] = fno
	}
	return nil
}

// planPerSignal gives every loaded signal its own output pair, numbered by
// its position in the whole catalog so numbers stay stable across partial
// runs.
func (r *run) planPerSignal() {
	all := r.cat.Serials()
	r.fnos = make([]int, len(r.names))
	r.prefixes = make(map[int]string, len(r.names))
	for serial, name := range r.names {
		fno, _ := all.Serial(r.loaded.SID(serial))
		r.fnos[serial] = fno
		r.prefixes[fno] = format.SignalPrefix(r.cfg.Prefix, name)
		r.cat.SetFileNumber(r.loaded.SID(serial), fno)
	}
}

// openSources opens the registry, then numeric data, then string data.
func (r *run) openSources() error {
	add := func(path string, kind fileKind) error {
		rc, err := r.open(path)
		if err != nil {
			return err
		}
		r.sources = append(r.sources, newSource(path, kind, rc))
		return nil
	}
	if r.cfg.Registry != "" {
		if err := add(r.cfg.Registry, kindRegistry); err != nil {
			return err
		}
	}
	for _, p := range r.cfg.Data {
		if err := add(p, kindNumeric); err != nil {
			return err
		}
	}
	for _, p := range r.cfg.DataS {
		if err := add(p, kindString); err != nil {
			return err
		}
	}
	r.log.Debug("inputs opened", "files", len(r.sources))
	return nil
}

func (r *run) closeSources() {
	for _, s := range r.sources {
		s.close()
	}
}

// abort removes everything the run created.
func (r *run) abort() {
	if r.w != nil {
		r.w.abort()
	}
	for _, p := range r.copied {
		if err := r.fsys.Remove(p); err != nil {
			r.log.Debug("remove copy", "path", p, "error", err)
		}
	}
	r.copied = nil
}

// merge drives the k-way merge: every step assembles the smallest pending
// pid from all inputs and hands it to the writer.
func (r *run) merge(ctx context.Context) error {
	for _, s := range r.sources {
		if err := r.consume(s, -1, nil); err != nil {
			return err
		}
	}

	p := newPatient(r.loaded.Len())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fpid, ok := r.frontier()
		if !ok {
			return nil
		}
		p.reset(fpid)
		for _, s := range r.sources {
			if s.done || s.pid != fpid {
				continue
			}
			if err := r.consume(s, fpid, p); err != nil {
				return err
			}
		}
		r.report.Patients++
		written, err := r.w.write(p)
		if err != nil {
			return err
		}
		if written {
			r.report.Written++
		}
	}
}

// frontier returns the smallest pending pid over open inputs.
func (r *run) frontier() (int32, bool) {
	var fpid int32
	found := false
	for _, s := range r.sources {
		if s.done {
			continue
		}
		if !found || s.pid < fpid {
			fpid, found = s.pid, true
		}
	}
	return fpid, found
}

// consume reads the lines of s belonging to fpid into p and stops at the
// first line of a later pid, which is pushed back. With fpid -1 it only
// positions s on its first pid.
func (r *run) consume(s *source, fpid int32, p *patient) error {
	for {
		line, ok := s.lines.next()
		if !ok {
			if err := s.lines.err(); err != nil {
				return ioErr("read", s.name, err)
			}
			r.log.Debug("input exhausted", "file", s.name, "lines", s.stats.Lines)
			return ioErr("close", s.name, s.close())
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := s.kind.split(line)
		pid, err := parsePid(fields)
		if err != nil {
			s.stats.Lines++
			r.badLine(s, &DecodeError{Line: s.lines.lineNo, Field: "pid", Err: err})
			continue
		}

		switch {
		case pid > fpid:
			s.lines.unread(line)
			s.pid = pid
			if r.maxPID > 0 && pid > r.maxPID {
				r.log.Debug("input past max pid", "file", s.name, "pid", pid, "max_pid", r.maxPID)
				return ioErr("close", s.name, s.close())
			}
			return nil
		case pid < fpid:
			s.stats.Lines++
			s.stats.OutOfOrder++
			if r.cfg.SafeMode {
				return fmt.Errorf("%w: %s line %d: pid %d after %d", ErrOutOfOrder, s.name, s.lines.lineNo, pid, fpid)
			}
			if s.orderLogged < r.th.LogLimit {
				s.orderLogged++
				r.log.Warn("out of order line dropped", "file", s.name, "line", s.lines.lineNo, "pid", pid, "current", fpid)
			}
		default:
			s.stats.Lines++
			if err := r.decode(s, fields, p); err != nil {
				return err
			}
		}
	}
}

// decode adds the records of one line to p. It only returns fatal errors;
// bad lines are counted.
func (r *run) decode(s *source, fields []string, p *patient) error {
	if s.kind == kindRegistry {
		r.decodeRegistry(s, fields, p)
		return nil
	}

	lineNo := s.lines.lineNo
	if len(fields) < 2 {
		s.stats.Relevant++
		r.badLine(s, &DecodeError{Line: lineNo, Field: "signal", Err: fmt.Errorf("%w: missing column", ErrFormat)})
		return nil
	}
	code := strings.TrimSpace(fields[1])
	name, ok := r.codes[code]
	var sid int
	if ok {
		sid, ok = r.cat.SID(name)
	}
	if !ok {
		if r.cfg.SafeMode {
			return fmt.Errorf("%w: %q in %s line %d", ErrUnrecognizedSignal, code, s.name, lineNo)
		}
		return nil
	}
	serial, ok := r.loaded.Serial(sid)
	if !ok {
		return nil
	}
	s.stats.Relevant++

	var rec signal.Record
	var err error
	if s.kind == kindString {
		rec, err = decodeStringFields(r.types[serial], name, fields[2:], lineNo, func(v string) (int32, bool) {
			return r.dicts.Resolve(name, v)
		})
	} else {
		rec, err = decodeFields(r.types[serial], fields[2:], lineNo)
	}
	if err != nil {
		r.recordError(s, err)
		return nil
	}
	s.stats.Parsed++
	p.data[serial] = append(p.data[serial], rec)
	return nil
}

// decodeRegistry emits the location and stage records of a registry line:
// pid, date, location name, stage.
func (r *run) decodeRegistry(s *source, fields []string, p *patient) {
	lineNo := s.lines.lineNo
	s.stats.Relevant++
	if len(fields) < 4 {
		r.badLine(s, &DecodeError{Line: lineNo, Field: "stage", Err: fmt.Errorf("%w: missing column", ErrFormat)})
		return
	}
	date := strings.TrimSpace(fields[1])

	var recs [2]signal.Record
	var serials [2]int
	n := 0
	if r.locSerial >= 0 {
		loc := strings.TrimSpace(fields[2])
		if id, ok := r.dicts.Resolve(registryLocationSignal, loc); ok {
			rec, err := datedRecord(r.types[r.locSerial], date, float64(id), lineNo)
			if err != nil {
				r.badLine(s, err)
				return
			}
			recs[n], serials[n] = rec, r.locSerial
			n++
		} else {
			// The stage is still recorded.
			r.missingValue(registryLocationSignal, loc)
		}
	}
	if r.stageSerial >= 0 {
		stage, err := parseStage(fields[3], lineNo)
		if err == nil {
			recs[n], err = datedRecord(r.types[r.stageSerial], date, stage, lineNo)
		}
		if err != nil {
			r.badLine(s, err)
			return
		}
		serials[n] = r.stageSerial
		n++
	}
	if n == 0 {
		return
	}
	for i := range n {
		p.data[serials[i]] = append(p.data[serials[i]], recs[i])
	}
	s.stats.Parsed++
}

func (r *run) recordError(s *source, err error) {
	var mv *missingValueError
	if errors.As(err, &mv) {
		r.missingValue(mv.signal, mv.value)
		return
	}
	r.badLine(s, err)
}

func (r *run) badLine(s *source, err error) {
	s.stats.BadFormat++
	if s.badLogged < r.th.LogLimit {
		s.badLogged++
		r.log.Warn("bad format line", "file", s.name, "error", err)
	}
}

func (r *run) missingValue(sig, value string) {
	m := r.missing[sig]
	if m == nil {
		m = make(map[string]int)
		r.missing[sig] = m
	}
	m[value]++
	if m[value] == 1 {
		r.log.Warn("value not in dictionary", "signal", sig, "value", value)
	}
}

// check judges the run against the thresholds once every input is read.
func (r *run) check() error {
	var errs []error
	for _, s := range r.sources {
		st := s.stats
		r.opts.metrics.OnFile(st)
		r.log.Info("file statistics",
			"file", st.Name,
			"lines", st.Lines,
			"relevant", st.Relevant,
			"parsed", st.Parsed,
			"bad_format", st.BadFormat,
			"out_of_order", st.OutOfOrder)
		if st.Relevant <= r.th.MinRelevantLines {
			continue
		}
		if st.ParsedRatio() < r.th.MinParsedRatio {
			errs = append(errs, fmt.Errorf("%w: %s parsed %d of %d relevant lines", ErrThreshold, st.Name, st.Parsed, st.Relevant))
		}
		if st.BadFormatRatio() > r.th.MaxBadFormatRatio {
			errs = append(errs, fmt.Errorf("%w: %s has %d bad lines of %d relevant", ErrThreshold, st.Name, st.BadFormat, st.Relevant))
		}
	}

	if r.cfg.SafeMode {
		for _, sig := range sortedKeys(r.missing) {
			for _, val := range sortedKeys(r.missing[sig]) {
				if n := r.missing[sig][val]; n > r.th.MaxMissingDictCount {
					errs = append(errs, fmt.Errorf("%w: %q of %s missing %d times", ErrMissingDictionaryValue, val, sig, n))
				}
			}
		}
		if r.w.considered > 0 {
			for _, name := range sortedKeys(r.w.missingForced) {
				n := r.w.missingForced[name]
				if ratio := float64(n) / float64(r.w.considered); ratio > r.th.MaxForcedMissingRatio {
					errs = append(errs, fmt.Errorf("%w: %s missing for %d of %d patients", ErrForcedSignal, name, n, r.w.considered))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// copyReferenced copies files into the output directory when they live
// elsewhere and returns the names the repository_config refers to them by.
func (r *run) copyReferenced(paths []string, seen map[string]string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		base := filepath.Base(p)
		if prev, ok := seen[base]; ok {
			if prev != p {
				return nil, fmt.Errorf("%w: %s and %s share a file name", ErrConfig, prev, p)
			}
			out = append(out, base)
			continue
		}
		seen[base] = p
		out = append(out, base)
		if filepath.Clean(filepath.Dir(p)) == filepath.Clean(r.cfg.OutDir) {
			continue
		}
		dst := filepath.Join(r.cfg.OutDir, base)
		if err := fs.CopyFile(r.fsys, dst, p); err != nil {
			return nil, ioErr("copy", p, err)
		}
		r.copied = append(r.copied, dst)
	}
	return out, nil
}

// writeRepositoryConfig makes the repository self contained and writes its
// repository_config, the last file of a successful run.
func (r *run) writeRepositoryConfig() error {
	cfg := r.cfg
	seen := make(map[string]string)
	dicts, err := r.copyReferenced(cfg.Dictionaries, seen)
	if err != nil {
		return err
	}
	sigs, err := r.copyReferenced(cfg.Signals, seen)
	if err != nil {
		return err
	}

	rc := &repository.Config{
		Description:  cfg.Description,
		Dir:          cfg.OutDir,
		Dictionaries: dicts,
		Signals:      sigs,
		Mode:         cfg.Mode,
		Prefix:       cfg.Prefix,
	}
	if cfg.Relative {
		rc.Dir = "."
	}

	switch cfg.ModeKind() {
	case format.ModeIndexTable:
	case format.ModePerSignal:
		// Every cataloged signal with outputs on disk, so a partial run keeps
		// the signals of earlier runs.
		all := r.cat.Serials()
		for _, sid := range r.cat.SIDs() {
			fno, _ := all.Serial(sid)
			name, _ := r.cat.Name(sid)
			prefix := format.SignalPrefix(cfg.Prefix, name)
			if _, ours := r.prefixes[fno]; !ours && !r.exists(format.IndexFile(prefix)) {
				continue
			}
			rc.Data = append(rc.Data, repository.DataFile{FileNo: fno, Path: format.DataFile(prefix)})
			rc.Indexes = append(rc.Indexes, format.IndexFile(prefix))
		}
	default:
		for _, fno := range sortedFnos(r.prefixes, r.fnos) {
			prefix := r.prefixes[fno]
			rc.Data = append(rc.Data, repository.DataFile{FileNo: fno, Path: format.DataFile(prefix)})
			rc.Indexes = append(rc.Indexes, format.IndexFile(prefix))
		}
	}

	var b bytes.Buffer
	if _, err := rc.WriteTo(&b); err != nil {
		return err
	}
	path := cfg.RepositoryConfigPath()
	if err := fs.WriteFileAtomic(r.fsys, path, b.Bytes()); err != nil {
		return ioErr("write", path, err)
	}
	r.log.Info("repository config written", "path", path)
	return nil
}

func (r *run) exists(name string) bool {
	_, err := r.fsys.Stat(filepath.Join(r.cfg.OutDir, name))
	return err == nil
}

// sortedFnos returns the file numbers in use, ascending.
func sortedFnos(prefixes map[int]string, used []int) []int {
	out := slices.Clone(used)
	slices.Sort(out)
	out = slices.Compact(out)
	return slices.DeleteFunc(out, func(fno int) bool {
		_, ok := prefixes[fno]
		return !ok
	})
}

// fillReport copies the run's counters into the report.
func (r *run) fillReport(ok bool) {
	rep := r.report
	rep.Files = rep.Files[:0]
	for _, s := range r.sources {
		rep.Files = append(rep.Files, s.stats)
	}
	if len(r.missing) > 0 {
		rep.MissingDictionary = r.missing
	}
	if r.w == nil {
		return
	}
	rep.Rejected = r.w.considered - rep.Written
	if len(r.w.missingForced) > 0 {
		rep.MissingForced = r.w.missingForced
	}
	rep.Outputs = rep.Outputs[:0]
	for _, p := range r.w.created {
		rep.Outputs = append(rep.Outputs, filepath.Base(p))
	}
	for _, p := range r.copied {
		rep.Outputs = append(rep.Outputs, filepath.Base(p))
	}
	if ok {
		rep.Outputs = append(rep.Outputs, r.cfg.ConfigName)
	}
}
