package repository

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/inframed/inframed/internal/format"
)

// DataFile is one DATA line of a repository_config.
type DataFile struct {
	FileNo int
	Path   string
}

// Config is a repository_config: the description of a converted repository
// that a reader opens. Paths are relative to Dir unless absolute.
type Config struct {
	Description  string
	Dir          string
	Dictionaries []string
	Signals      []string
	Mode         int
	Data         []DataFile
	Indexes      []string
	Prefix       string
}

// ReadConfig parses a repository_config.
func ReadConfig(r io.Reader) (*Config, error) {
	c := &Config{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		key, rest, _ := strings.Cut(strings.ReplaceAll(text, "\t", " "), " ")
		rest = strings.TrimSpace(rest)
		switch key {
		case "DESCRIPTION":
			c.Description = rest
		case "DIR":
			c.Dir = rest
		case "DICTIONARY":
			c.Dictionaries = append(c.Dictionaries, rest)
		case "SIGNAL":
			c.Signals = append(c.Signals, rest)
		case "MODE":
			n, err := strconv.Atoi(rest)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: MODE %q", ErrInvalidConfig, line, rest)
			}
			if _, err := format.ModeOf(n); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidConfig, line, err)
			}
			c.Mode = n
		case "DATA":
			fno, path, ok := strings.Cut(rest, " ")
			n, err := strconv.Atoi(fno)
			if !ok || err != nil || n < 0 {
				return nil, fmt.Errorf("%w: line %d: DATA needs a file number and a path", ErrInvalidConfig, line)
			}
			c.Data = append(c.Data, DataFile{FileNo: n, Path: strings.TrimSpace(path)})
		case "INDEX":
			c.Indexes = append(c.Indexes, rest)
		case "PREFIX":
			c.Prefix = rest
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadConfig reads the repository_config at path. A DIR of "." (or none) is
// resolved to the directory holding the file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := ReadConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if c.Dir == "" || c.Dir == "." {
		abs, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			return nil, err
		}
		c.Dir = abs
	}
	return c, nil
}

func (c *Config) prefix() string {
	if c.Prefix == "" {
		return format.DefaultPrefix
	}
	return c.Prefix
}

// ModeKind returns the index layout of the repository.
func (c *Config) ModeKind() format.Mode {
	m, _ := format.ModeOf(c.Mode)
	return m
}

// WriteTo writes c in repository_config form.
func (c *Config) WriteTo(w io.Writer) (int64, error) {
	var b bytes.Buffer
	if c.Description != "" {
		fmt.Fprintf(&b, "DESCRIPTION\t%s\n", c.Description)
	}
	fmt.Fprintf(&b, "DIR\t%s\n", c.Dir)
	for _, d := range c.Dictionaries {
		fmt.Fprintf(&b, "DICTIONARY\t%s\n", d)
	}
	for _, s := range c.Signals {
		fmt.Fprintf(&b, "SIGNAL\t%s\n", s)
	}
	fmt.Fprintf(&b, "MODE\t%d\n", c.Mode)
	if c.Prefix != "" || c.ModeKind().UsesIndexTable() {
		fmt.Fprintf(&b, "PREFIX\t%s\n", c.prefix())
	}
	if !c.ModeKind().UsesIndexTable() {
		for _, d := range c.Data {
			fmt.Fprintf(&b, "DATA\t%d\t%s\n", d.FileNo, d.Path)
		}
		for _, idx := range c.Indexes {
			fmt.Fprintf(&b, "INDEX\t%s\n", idx)
		}
	}
	return b.WriteTo(w)
}

// Bytes returns the encoded config.
func (c *Config) Bytes() []byte {
	var b bytes.Buffer
	c.WriteTo(&b)
	return b.Bytes()
}

// Files returns every file the config references, relative to Dir: the
// dictionary and signal files, then data and index files. Mode-3 per-signal
// files are not listed; see Repository.Files.
func (c *Config) Files() []string {
	out := make([]string, 0, len(c.Dictionaries)+len(c.Signals)+len(c.Data)+len(c.Indexes))
	out = append(out, c.Dictionaries...)
	out = append(out, c.Signals...)
	for _, d := range c.Data {
		out = append(out, d.Path)
	}
	return append(out, c.Indexes...)
}
