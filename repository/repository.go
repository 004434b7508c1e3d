package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/inframed/inframed/blobstore"
	"github.com/inframed/inframed/dict"
	"github.com/inframed/inframed/internal/cache"
	"github.com/inframed/inframed/internal/format"
	"github.com/inframed/inframed/signal"
)

// Repository reads a converted repository. It is safe for concurrent use;
// Close must not race with reads.
//
// Values returned by Get alias the underlying files when the store maps
// them into memory and are valid until Close.
type Repository struct {
	cfg   *Config
	name  string
	store blobstore.BlobStore
	log   *slog.Logger
	mode  format.Mode

	dicts   *dict.Sections
	catalog *signal.Catalog
	serials *signal.SerialMap

	// Legacy and per-signal layouts: data blobs by file number and every
	// patient's index entries, loaded at open.
	blobs   map[int]blobstore.Blob
	entries map[int32][]format.Entry

	// Index-table layout: one lazily loaded table per catalog serial.
	tables []tableSlot

	pidsOnce sync.Once
	pids     *roaring.Bitmap
	pidsErr  error

	cache  *cache.ShardedLRU[*PidRec]
	closed atomic.Bool
}

type tableSlot struct {
	ready atomic.Bool
	mu    sync.Mutex
	table *format.IndexTable
	data  blobstore.Blob
	err   error
}

// OpenFile opens the repository described by the repository_config at path
// from the local file system.
func OpenFile(ctx context.Context, path string, optFns ...Option) (*Repository, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	opts := append([]Option{WithConfigName(filepath.Base(path))}, optFns...)
	return Open(ctx, blobstore.NewLocalStore(cfg.Dir), cfg, opts...)
}

// Open opens the repository described by cfg. Every path in cfg is resolved
// against store.
func Open(ctx context.Context, store blobstore.BlobStore, cfg *Config, optFns ...Option) (*Repository, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	mode, err := format.ModeOf(cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	r := &Repository{
		cfg:     cfg,
		name:    opts.configName,
		store:   store,
		log:     opts.logger.With("repository", opts.configName),
		mode:    mode,
		dicts:   dict.NewSections(),
		catalog: signal.NewCatalog(),
	}
	if opts.cacheBytes > 0 {
		r.cache = cache.NewShardedLRU(opts.cacheBytes, (*PidRec).size)
	}

	open := func(name string) (io.ReadCloser, error) {
		data, err := blobstore.ReadAll(ctx, store, r.rel(name))
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	if err := r.dicts.LoadWith(open, cfg.Dictionaries...); err != nil {
		return nil, fmt.Errorf("load dictionaries: %w", err)
	}
	if err := r.catalog.LoadWith(open, cfg.Signals...); err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}
	r.serials = r.catalog.Serials()

	if mode.UsesIndexTable() {
		r.tables = make([]tableSlot, r.serials.Len())
	} else if err := r.loadIndexes(ctx); err != nil {
		r.Close()
		return nil, err
	}

	r.log.Debug("repository opened", "mode", mode, "signals", r.serials.Len())
	return r, nil
}

// rel maps a config path to a store name. Absolute paths inside the
// repository directory become relative.
func (r *Repository) rel(name string) string {
	if filepath.IsAbs(name) && r.cfg.Dir != "" {
		if rel, err := filepath.Rel(r.cfg.Dir, name); err == nil && !strings.HasPrefix(rel, "..") {
			name = rel
		}
	}
	return filepath.ToSlash(name)
}

func (r *Repository) loadIndexes(ctx context.Context) error {
	r.blobs = make(map[int]blobstore.Blob, len(r.cfg.Data))
	r.entries = make(map[int32][]format.Entry)

	for _, d := range r.cfg.Data {
		b, err := r.store.Open(ctx, r.rel(d.Path))
		if err != nil {
			return fmt.Errorf("open data file %s: %w", d.Path, err)
		}
		r.blobs[d.FileNo] = b
		if err := checkDataHeader(ctx, b); err != nil {
			return fmt.Errorf("%s: %w", d.Path, err)
		}
		if err := blobstore.Advise(b, blobstore.AccessRandom); err != nil {
			r.log.Debug("access hint failed", "file", d.Path, "error", err)
		}
	}

	for _, name := range r.cfg.Indexes {
		data, err := blobstore.ReadAll(ctx, r.store, r.rel(name))
		if err != nil {
			return fmt.Errorf("read index %s: %w", name, err)
		}
		tag, packets, err := format.ParseIndex(data)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
		}
		if int(tag) != r.cfg.Mode {
			r.log.Warn("index mode differs from config", "index", name, "tag", tag, "mode", r.cfg.Mode)
		}
		for _, p := range packets {
			for _, e := range p.Entries {
				b, ok := r.blobs[int(e.FileNo)]
				if !ok {
					return fmt.Errorf("%w: %s: pid %d refers to file number %d", ErrCorrupt, name, p.Pid, e.FileNo)
				}
				if e.Len < 0 || e.Pos < format.DataHeaderSize || e.Pos+uint64(e.Len) > uint64(b.Size()) {
					return fmt.Errorf("%w: %s: pid %d entry [%d,+%d) outside data file", ErrCorrupt, name, p.Pid, e.Pos, e.Len)
				}
			}
			r.entries[p.Pid] = append(r.entries[p.Pid], p.Entries...)
		}
	}
	return nil
}

func checkDataHeader(ctx context.Context, b blobstore.Blob) error {
	hdr := make([]byte, format.DataHeaderSize)
	if _, err := b.ReadAt(ctx, hdr, 0); err != nil {
		return fmt.Errorf("%w: data header: %v", ErrCorrupt, err)
	}
	if err := format.CheckDataHeader(hdr); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}

// Config returns the repository_config the repository was opened with.
func (r *Repository) Config() *Config { return r.cfg }

// Mode returns the index layout.
func (r *Repository) Mode() format.Mode { return r.mode }

// Catalog returns the signal catalog.
func (r *Repository) Catalog() *signal.Catalog { return r.catalog }

// Dictionaries returns the loaded dictionary sections.
func (r *Repository) Dictionaries() *dict.Sections { return r.dicts }

// SID resolves a signal name.
func (r *Repository) SID(name string) (int, error) {
	sid, ok := r.catalog.SID(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSignal, name)
	}
	return sid, nil
}

func (r *Repository) signal(sid int) (int, signal.Type, error) {
	serial, ok := r.serials.Serial(sid)
	if !ok {
		return 0, 0, fmt.Errorf("%w: sid %d", ErrUnknownSignal, sid)
	}
	t, _ := r.catalog.Type(sid)
	return serial, t, nil
}

// Get returns pid's records of signal sid. A patient without records of the
// signal yields empty Values and no error.
func (r *Repository) Get(ctx context.Context, pid int32, sid int) (signal.Values, error) {
	if r.closed.Load() {
		return signal.Values{}, ErrClosed
	}
	serial, typ, err := r.signal(sid)
	if err != nil {
		return signal.Values{}, err
	}
	if r.cache != nil {
		if rec, ok := r.cache.Get(pid); ok {
			v, _ := rec.Get(sid)
			return v, nil
		}
	}
	data, err := r.read(ctx, pid, serial, sid)
	if err != nil {
		return signal.Values{}, err
	}
	return signal.NewValues(typ, data)
}

// GetByName is Get with a signal name.
func (r *Repository) GetByName(ctx context.Context, pid int32, name string) (signal.Values, error) {
	sid, err := r.SID(name)
	if err != nil {
		return signal.Values{}, err
	}
	return r.Get(ctx, pid, sid)
}

// read returns the packed records of one signal of one patient, or nil.
func (r *Repository) read(ctx context.Context, pid int32, serial, sid int) ([]byte, error) {
	if r.mode.UsesIndexTable() {
		slot, err := r.table(ctx, serial)
		if err != nil || slot.table == nil {
			return nil, err
		}
		pos, n, ok := slot.table.Lookup(pid)
		if !ok {
			return nil, nil
		}
		return readSpan(ctx, slot.data, int64(pos), n)
	}

	var out []byte
	for _, e := range r.entries[pid] {
		if int(e.SID) != sid {
			continue
		}
		b, err := readSpan(ctx, r.blobs[int(e.FileNo)], int64(e.Pos), int(e.Len))
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = b
		} else {
			out = append(bytes.Clone(out), b...)
		}
	}
	return out, nil
}

// readSpan returns n bytes at off, without copying when the blob is mapped.
func readSpan(ctx context.Context, b blobstore.Blob, off int64, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if off < 0 || off+int64(n) > b.Size() {
		return nil, fmt.Errorf("%w: span [%d,+%d) beyond %d bytes", ErrCorrupt, off, n, b.Size())
	}
	if m, ok := b.(blobstore.Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		if data != nil {
			return data[off : off+int64(n) : off+int64(n)], nil
		}
	}
	buf := make([]byte, n)
	if _, err := b.ReadAt(ctx, buf, off); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

// table loads the index table of the signal at serial on first use. Only
// callers racing on the first load of the same signal wait for each other.
func (r *Repository) table(ctx context.Context, serial int) (*tableSlot, error) {
	s := &r.tables[serial]
	if s.ready.Load() {
		return s, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready.Load() {
		return s, s.err
	}

	err := r.loadTable(ctx, serial, s)
	if err != nil && ctx.Err() != nil {
		// Retry on the next call.
		return s, err
	}
	s.err = err
	s.ready.Store(true)
	return s, err
}

func (r *Repository) loadTable(ctx context.Context, serial int, s *tableSlot) error {
	sid := r.serials.SID(serial)
	name, _ := r.catalog.Name(sid)
	typ, _ := r.catalog.Type(sid)
	prefix := format.SignalPrefix(r.cfg.prefix(), name)

	raw, err := blobstore.ReadAll(ctx, r.store, format.IndexFile(prefix))
	if err != nil {
		if blobstore.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("read index table %s: %w", name, err)
	}
	t, err := format.ParseIndexTable(raw, typ.Size())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, format.IndexFile(prefix), err)
	}
	if int(t.SID) != sid {
		return fmt.Errorf("%w: %s holds sid %d, catalog says %d", ErrCorrupt, format.IndexFile(prefix), t.SID, sid)
	}

	b, err := r.store.Open(ctx, format.DataFile(prefix))
	if err != nil {
		return fmt.Errorf("open data file %s: %w", format.DataFile(prefix), err)
	}
	if uint64(b.Size()) != t.DataSize() {
		b.Close()
		return fmt.Errorf("%w: %s is %d bytes, index expects %d", ErrCorrupt, format.DataFile(prefix), b.Size(), t.DataSize())
	}
	if err := checkDataHeader(ctx, b); err != nil {
		b.Close()
		return err
	}
	if err := blobstore.Advise(b, blobstore.AccessRandom); err != nil {
		r.log.Debug("access hint failed", "file", format.DataFile(prefix), "error", err)
	}
	s.table, s.data = t, b
	r.log.Debug("index table loaded", "signal", name, "patients", t.Len())
	return nil
}

// Pids returns every patient in the repository. It reads the all-pids list
// when the conversion wrote one and otherwise unions the indexes.
func (r *Repository) Pids(ctx context.Context) (*roaring.Bitmap, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	r.pidsOnce.Do(func() { r.pids, r.pidsErr = r.loadPids(ctx) })
	if r.pidsErr != nil {
		return nil, r.pidsErr
	}
	return r.pids.Clone(), nil
}

func (r *Repository) loadPids(ctx context.Context) (*roaring.Bitmap, error) {
	name := format.AllPidsFile("", r.cfg.prefix())
	raw, err := blobstore.ReadAll(ctx, r.store, name)
	switch {
	case err == nil:
		bm, err := format.ParseAllPids(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
		}
		return bm, nil
	case !blobstore.IsNotFound(err):
		return nil, err
	}

	bm := roaring.New()
	if !r.mode.UsesIndexTable() {
		for pid := range r.entries {
			bm.Add(uint32(pid))
		}
		return bm, nil
	}
	for serial := range r.tables {
		s, err := r.table(ctx, serial)
		if err != nil {
			return nil, err
		}
		if s.table == nil {
			continue
		}
		for _, pid := range s.table.Pids() {
			bm.Add(uint32(pid))
		}
	}
	return bm, nil
}

// Files lists the names of every file that makes up the repository,
// relative to its directory, excluding the repository_config itself.
func (r *Repository) Files(ctx context.Context) ([]string, error) {
	var out []string
	add := func(name string) error {
		ok, err := blobstore.Exists(ctx, r.store, name)
		if ok {
			out = append(out, name)
		}
		return err
	}
	for _, name := range r.cfg.Files() {
		out = append(out, r.rel(name))
	}
	if r.mode.UsesIndexTable() {
		for _, sid := range r.serials.SIDs() {
			name, _ := r.catalog.Name(sid)
			prefix := format.SignalPrefix(r.cfg.prefix(), name)
			if err := add(format.IndexFile(prefix)); err != nil {
				return nil, err
			}
			if err := add(format.DataFile(prefix)); err != nil {
				return nil, err
			}
		}
	}
	if err := add(format.AllPidsFile("", r.cfg.prefix())); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases every open file.
func (r *Repository) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	for _, b := range r.blobs {
		keep(b.Close())
	}
	for i := range r.tables {
		s := &r.tables[i]
		s.mu.Lock()
		if s.data != nil {
			keep(s.data.Close())
			s.data = nil
		}
		s.mu.Unlock()
	}
	if r.cache != nil {
		hits, misses := r.cache.Stats()
		r.log.Debug("repository closed", "cache_hits", hits, "cache_misses", misses, "cache_bytes", r.cache.Size())
	}
	return first
}
