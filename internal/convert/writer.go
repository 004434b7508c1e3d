package convert

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/inframed/inframed/internal/format"
	"github.com/inframed/inframed/internal/fs"
	"github.com/inframed/inframed/signal"
)

const outputBufferSize = 1 << 20

// patient is the record being assembled by one merge step. data is indexed
// by loaded serial.
type patient struct {
	pid  int32
	data [][]signal.Record
}

func newPatient(n int) *patient {
	return &patient{data: make([][]signal.Record, n)}
}

func (p *patient) reset(pid int32) {
	p.pid = pid
	for i := range p.data {
		p.data[i] = p.data[i][:0]
	}
}

// output is one open, buffered output file.
type output struct {
	path string
	f    fs.File
	w    *bufio.Writer
}

func (o *output) write(b []byte) error {
	if _, err := o.w.Write(b); err != nil {
		return ioErr("write", o.path, err)
	}
	return nil
}

func (o *output) close() error {
	if o.f == nil {
		return nil
	}
	f := o.f
	o.f = nil
	if err := o.w.Flush(); err != nil {
		f.Close()
		return ioErr("write", o.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return ioErr("sync", o.path, err)
	}
	return ioErr("close", o.path, f.Close())
}

// group is the output pair of one file number. In index-table mode every
// loaded signal has its own group and idx stays nil until the end.
type group struct {
	fno    int
	prefix string
	idx    *output
	data   *output
	pos    uint64
	// serials lists the loaded serials written to this group, ascending.
	serials []int
	table   *format.IndexTable
}

// outputPlan describes the outputs of a run.
type outputPlan struct {
	mode    format.Mode
	rawMode int32
	outDir  string
	prefix  string

	// Indexed by loaded serial.
	sids  []int
	names []string
	types []signal.Type
	fnos  []int

	// prefixes maps a file number to its output file prefix.
	prefixes map[int]string
	// forced lists the loaded serials every patient must carry exactly once.
	forced []int
}

// writer serializes patients into index and data files.
type writer struct {
	plan    outputPlan
	fsys    fs.FileSystem
	log     *slog.Logger
	limit   int
	metrics MetricsObserver

	groups  []*group // ascending fno
	created []string
	written *roaring.Bitmap

	considered    int
	missingForced map[string]int
	forcedLogged  map[string]int

	buf     []byte
	entries []format.Entry
}

func newWriter(plan outputPlan, fsys fs.FileSystem, log *slog.Logger, limit int, metrics MetricsObserver) *writer {
	return &writer{
		plan:          plan,
		fsys:          fsys,
		log:           log,
		limit:         limit,
		metrics:       metrics,
		written:       roaring.New(),
		missingForced: make(map[string]int),
		forcedLogged:  make(map[string]int),
	}
}

func (w *writer) create(name string) (*output, error) {
	path := filepath.Join(w.plan.outDir, name)
	if err := w.fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, ioErr("mkdir", filepath.Dir(path), err)
	}
	f, err := fs.Create(w.fsys, path)
	if err != nil {
		return nil, ioErr("create", path, err)
	}
	w.created = append(w.created, path)
	return &output{path: path, f: f, w: bufio.NewWriterSize(f, outputBufferSize)}, nil
}

// open creates every output file and writes the headers.
func (w *writer) open() error {
	byFno := make(map[int]*group)
	for serial, fno := range w.plan.fnos {
		g, ok := byFno[fno]
		if !ok {
			if fno < 0 || fno > math.MaxUint16 {
				return fmt.Errorf("%w: file number %d of %s out of range", ErrConfig, fno, w.plan.names[serial])
			}
			prefix, ok := w.plan.prefixes[fno]
			if !ok {
				return fmt.Errorf("%w: no output prefix for file number %d", ErrConfig, fno)
			}
			g = &group{fno: fno, prefix: prefix, pos: format.DataHeaderSize}
			byFno[fno] = g
			w.groups = append(w.groups, g)
		}
		g.serials = append(g.serials, serial)
	}
	slices.SortFunc(w.groups, func(a, b *group) int { return cmp.Compare(a.fno, b.fno) })

	for _, g := range w.groups {
		var err error
		if g.data, err = w.create(format.DataFile(g.prefix)); err != nil {
			return err
		}
		if err := g.data.write(format.AppendDataHeader(nil)); err != nil {
			return err
		}
		if w.plan.mode.UsesIndexTable() {
			serial := g.serials[0]
			g.table = format.NewIndexTable(int32(w.plan.sids[serial]), w.plan.rawMode, w.plan.types[serial].Size())
			continue
		}
		if g.idx, err = w.create(format.IndexFile(g.prefix)); err != nil {
			return err
		}
		if err := g.idx.write(format.AppendIndexHeader(nil, w.plan.rawMode)); err != nil {
			return err
		}
	}
	return nil
}

// write emits one patient. It reports whether the patient was written.
func (w *writer) write(p *patient) (bool, error) {
	n := 0
	for i := range p.data {
		if len(p.data[i]) > 0 {
			p.data[i] = signal.SortDedup(p.data[i])
			n++
		}
	}
	if n == 0 {
		return false, nil
	}
	w.considered++

	rejected := false
	for _, serial := range w.plan.forced {
		if len(p.data[serial]) == 1 {
			continue
		}
		name := w.plan.names[serial]
		w.missingForced[name]++
		if w.forcedLogged[name] < w.limit {
			w.forcedLogged[name]++
			w.log.Warn("patient rejected: forced signal count is not 1",
				"pid", p.pid, "signal", name, "count", len(p.data[serial]))
		}
		w.metrics.OnRejected(p.pid, name)
		rejected = true
	}
	if rejected {
		return false, nil
	}

	for _, g := range w.groups {
		if err := w.writeGroup(g, p); err != nil {
			return false, err
		}
	}
	w.written.Add(uint32(p.pid))
	w.metrics.OnPatient(p.pid, n)
	return true, nil
}

func (w *writer) writeGroup(g *group, p *patient) error {
	w.entries = w.entries[:0]
	for _, serial := range g.serials {
		recs := p.data[serial]
		if len(recs) == 0 {
			continue
		}
		typ := w.plan.types[serial]
		w.buf = signal.Encode(typ, w.buf[:0], recs)
		if err := g.data.write(w.buf); err != nil {
			return err
		}
		if g.table != nil {
			if err := g.table.Add(p.pid, len(recs)); err != nil {
				return err
			}
		} else {
			w.entries = append(w.entries, format.Entry{
				SID:    int32(w.plan.sids[serial]),
				FileNo: uint16(g.fno),
				Pos:    g.pos,
				Len:    int32(len(w.buf)),
			})
		}
		g.pos += uint64(len(w.buf))
	}
	if g.table != nil || len(w.entries) == 0 {
		return nil
	}
	w.buf = format.AppendPacket(w.buf[:0], format.Packet{Pid: p.pid, Entries: w.entries})
	return g.idx.write(w.buf)
}

// finish flushes index tables, closes every file and writes the all-pids
// list when allPids is set.
func (w *writer) finish(allPids bool) error {
	for _, g := range w.groups {
		if g.table == nil {
			continue
		}
		idx, err := w.create(format.IndexFile(g.prefix))
		if err != nil {
			return err
		}
		g.idx = idx
		if _, err := g.table.WriteTo(idx.w); err != nil {
			return ioErr("write", idx.path, err)
		}
	}
	if err := w.closeAll(); err != nil {
		return err
	}
	if !allPids {
		return nil
	}

	out, err := w.createAt(format.AllPidsFile(w.plan.outDir, w.plan.prefix))
	if err != nil {
		return err
	}
	if err := format.WriteAllPids(out.w, w.written); err != nil {
		out.close()
		return ioErr("write", out.path, err)
	}
	return out.close()
}

func (w *writer) createAt(path string) (*output, error) {
	rel, err := filepath.Rel(w.plan.outDir, path)
	if err != nil {
		return nil, ioErr("create", path, err)
	}
	return w.create(rel)
}

func (w *writer) closeAll() error {
	var errs []error
	for _, g := range w.groups {
		if g.idx != nil {
			errs = append(errs, g.idx.close())
		}
		if g.data != nil {
			errs = append(errs, g.data.close())
		}
	}
	return errors.Join(errs...)
}

// abort closes every file and removes everything the writer created.
func (w *writer) abort() {
	w.closeAll()
	for _, p := range w.created {
		if err := w.fsys.Remove(p); err != nil {
			w.log.Debug("remove output", "path", p, "error", err)
		}
	}
	w.created = nil
}
