package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/inframed/inframed/blobstore"
	"github.com/inframed/inframed/internal/hash"
	"github.com/inframed/inframed/internal/resource"
)

// ManifestSuffix is appended to the config name to name the manifest.
const ManifestSuffix = ".manifest"

// Manifest lists the files of a published repository.
type Manifest struct {
	Config    string         `yaml:"config"`
	Published time.Time      `yaml:"published"`
	Files     []ManifestFile `yaml:"files"`
}

// ManifestFile is one published file.
type ManifestFile struct {
	Name   string `yaml:"name"`
	Size   int64  `yaml:"size"`
	CRC32C uint32 `yaml:"crc32c"`
}

// ReadManifest decodes a manifest.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Publish copies the repository whose repository_config is at cfgPath to
// dst. Files are uploaded in parallel within the configured limits; the
// manifest follows them and the repository_config, rewritten with a
// relative DIR, is written last so a reader never sees a partial
// repository.
func Publish(ctx context.Context, cfgPath string, dst blobstore.BlobStore, optFns ...Option) (*Manifest, error) {
	repo, err := OpenFile(ctx, cfgPath, optFns...)
	if err != nil {
		return nil, err
	}
	defer repo.Close()
	return repo.Publish(ctx, dst, optFns...)
}

// Publish copies the repository to dst. See the package level Publish.
func (r *Repository) Publish(ctx context.Context, dst blobstore.BlobStore, optFns ...Option) (*Manifest, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	files, err := r.Files(ctx)
	if err != nil {
		return nil, err
	}
	rc := resource.NewController(opts.limits)
	log := r.log.With("op", "publish")
	start := time.Now()
	log.Debug("publishing", "files", len(files), "concurrency", rc.MaxConcurrentUploads())

	var (
		mu       sync.Mutex
		manifest = &Manifest{Config: r.name, Published: start.UTC()}
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range files {
		g.Go(func() error {
			if err := rc.AcquireUpload(gctx); err != nil {
				return err
			}
			defer rc.ReleaseUpload()

			f, err := r.copyTo(gctx, dst, name, rc)
			if err != nil {
				return fmt.Errorf("publish %s: %w", name, err)
			}
			log.Debug("file published", "name", name, "size", f.Size)
			mu.Lock()
			manifest.Files = append(manifest.Files, f)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.SortFunc(manifest.Files, func(a, b ManifestFile) int {
		return strings.Compare(a.Name, b.Name)
	})

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(manifest); err != nil {
		return nil, err
	}
	enc.Close()
	if err := dst.Put(ctx, r.name+ManifestSuffix, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("publish manifest: %w", err)
	}

	cfg := *r.cfg
	cfg.Dir = "."
	cfg.Dictionaries = r.relAll(cfg.Dictionaries)
	cfg.Signals = r.relAll(cfg.Signals)
	cfg.Indexes = r.relAll(cfg.Indexes)
	cfg.Data = slices.Clone(cfg.Data)
	for i := range cfg.Data {
		cfg.Data[i].Path = r.rel(cfg.Data[i].Path)
	}
	if err := dst.Put(ctx, r.name, cfg.Bytes()); err != nil {
		return nil, fmt.Errorf("publish config: %w", err)
	}

	log.Info("repository published", "files", len(manifest.Files), "duration", time.Since(start))
	return manifest, nil
}

func (r *Repository) relAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = r.rel(n)
	}
	return out
}

func (r *Repository) copyTo(ctx context.Context, dst blobstore.BlobStore, name string, rc *resource.Controller) (ManifestFile, error) {
	src, err := r.store.Open(ctx, name)
	if err != nil {
		return ManifestFile{}, err
	}
	defer src.Close()
	_ = blobstore.Advise(src, blobstore.AccessSequential)

	body, err := src.ReadRange(ctx, 0, src.Size())
	if err != nil {
		if err != io.EOF {
			return ManifestFile{}, err
		}
		body = io.NopCloser(bytes.NewReader(nil))
	}
	defer body.Close()

	w, err := dst.Create(ctx, name)
	if err != nil {
		return ManifestFile{}, err
	}
	h := hash.NewReader(resource.NewRateLimitedReader(ctx, body, rc))
	if _, err := io.Copy(w, h); err != nil {
		blobstore.Abort(w)
		return ManifestFile{}, err
	}
	if err := w.Close(); err != nil {
		return ManifestFile{}, err
	}
	if h.N() != src.Size() {
		return ManifestFile{}, fmt.Errorf("copied %d of %d bytes", h.N(), src.Size())
	}
	return ManifestFile{Name: name, Size: h.N(), CRC32C: h.Sum32()}, nil
}

// Verify checks every file listed in m against store.
func Verify(ctx context.Context, store blobstore.BlobStore, m *Manifest) error {
	for _, f := range m.Files {
		data, err := blobstore.ReadAll(ctx, store, f.Name)
		if err != nil {
			return fmt.Errorf("verify %s: %w", f.Name, err)
		}
		if int64(len(data)) != f.Size || hash.CRC32C(data) != f.CRC32C {
			return fmt.Errorf("%w: %s does not match its manifest entry", ErrCorrupt, f.Name)
		}
	}
	return nil
}
