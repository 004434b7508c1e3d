package convert

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/inframed/inframed/internal/format"
)

// DefaultConfigName is the repository_config file name used when the
// directive file sets no CONFIG.
const DefaultConfigName = "rep.repository"

// Config is a parsed conversion directive file. Paths are resolved: input
// files against Dir, and Dir and OutDir against the directive file's
// directory.
type Config struct {
	// Path is the directive file itself.
	Path string

	Dir          string
	OutDir       string
	ConfigName   string
	Description  string
	Dictionaries []string
	Signals      []string
	Codes        string
	FNames       string
	SFiles       string
	Registry     string
	Data         []string
	DataS        []string
	Mode         int
	SafeMode     bool
	Prefix       string
	Relative     bool
	ForceSignals []string
	LoadOnly     []string
	MaxPID       int32

	// Ignored lists directives that were not understood.
	Ignored []string
}

// LoadConfig reads and resolves the directive file at path.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErr("open", path, err)
	}
	defer f.Close()
	return ParseConfig(f, path)
}

// ParseConfig parses a directive file read from r. path locates the file
// for relative path resolution.
func ParseConfig(r io.Reader, path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ioErr("resolve", path, err)
	}
	cfg := &Config{Path: abs}

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(strings.TrimSpace(text), "#") {
			continue
		}
		fields := strings.Fields(text)
		key := strings.ToUpper(fields[0])
		if key == "RELATIVE" {
			cfg.Relative = len(fields) < 2 || fields[1] != "0"
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: %s:%d: %s has no value", ErrConfig, path, line, fields[0])
		}
		val := fields[1]
		if err := cfg.set(key, val, text); err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %v", ErrConfig, path, line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, ioErr("read", path, err)
	}
	cfg.resolve()
	return cfg, nil
}

func (c *Config) set(key, val, text string) error {
	switch key {
	case "DIR":
		c.Dir = val
	case "OUTDIR":
		c.OutDir = val
	case "CONFIG":
		c.ConfigName = val
	case "DESCRIPTION":
		// The description is the remainder of the line.
		c.Description = strings.TrimSpace(strings.TrimSpace(text)[len("DESCRIPTION"):])
	case "DICTIONARY":
		c.Dictionaries = append(c.Dictionaries, val)
	case "SIGNAL":
		c.Signals = append(c.Signals, val)
	case "CODES":
		c.Codes = val
	case "FNAMES":
		c.FNames = val
	case "SFILES":
		c.SFiles = val
	case "REGISTRY":
		c.Registry = val
	case "DATA":
		c.Data = append(c.Data, val)
	case "DATA_S":
		c.DataS = append(c.DataS, val)
	case "MODE":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("MODE %q: %w", val, err)
		}
		if _, err := format.ModeOf(n); err != nil {
			return err
		}
		c.Mode = n
	case "SAFE_MODE":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("SAFE_MODE %q: %w", val, err)
		}
		c.SafeMode = n != 0
	case "PREFIX":
		c.Prefix = val
	case "FORCE_SIGNAL":
		c.ForceSignals = append(c.ForceSignals, splitList(val)...)
	case "LOAD_ONLY":
		c.LoadOnly = append(c.LoadOnly, splitList(val)...)
	case "MAX_PID_TO_TAKE":
		n, err := strconv.ParseInt(val, 10, 32)
		if err != nil || n < 0 {
			return fmt.Errorf("MAX_PID_TO_TAKE %q: not a pid", val)
		}
		c.MaxPID = int32(n)
	default:
		c.Ignored = append(c.Ignored, key)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) resolve() {
	base := filepath.Dir(c.Path)
	switch {
	case c.Dir == "" || c.Dir == ".":
		c.Dir = base
	case !filepath.IsAbs(c.Dir):
		c.Dir = filepath.Join(base, c.Dir)
	}
	switch {
	case c.OutDir == "":
		c.OutDir = c.Dir
	case !filepath.IsAbs(c.OutDir):
		c.OutDir = filepath.Join(base, c.OutDir)
	}
	if c.ConfigName == "" {
		c.ConfigName = DefaultConfigName
	}
	if c.Prefix == "" {
		c.Prefix = format.DefaultPrefix
	}

	in := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(c.Dir, p)
	}
	all := func(ps []string) {
		for i := range ps {
			ps[i] = in(ps[i])
		}
	}
	all(c.Dictionaries)
	all(c.Signals)
	all(c.Data)
	all(c.DataS)
	c.Codes = in(c.Codes)
	c.FNames = in(c.FNames)
	c.SFiles = in(c.SFiles)
	c.Registry = in(c.Registry)
}

// ModeKind returns the index layout selected by Mode.
func (c *Config) ModeKind() format.Mode {
	m, _ := format.ModeOf(c.Mode)
	return m
}

// Partial reports whether the run loads only a subset of the catalog.
func (c *Config) Partial() bool {
	return c.ModeKind() != format.ModeLegacy && len(c.LoadOnly) > 0
}

// DictionaryFiles returns the files read into the dictionary: DICTIONARY
// entries followed by SIGNAL entries.
func (c *Config) DictionaryFiles() []string {
	out := make([]string, 0, len(c.Dictionaries)+len(c.Signals))
	out = append(out, c.Dictionaries...)
	return append(out, c.Signals...)
}

// RepositoryConfigPath returns where the repository_config is written.
func (c *Config) RepositoryConfigPath() string {
	return filepath.Join(c.OutDir, c.ConfigName)
}
