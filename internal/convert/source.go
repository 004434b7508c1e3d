package convert

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// fileKind is the record format of a raw input file.
type fileKind uint8

const (
	kindRegistry fileKind = iota
	kindNumeric
	kindString
)

func (k fileKind) String() string {
	switch k {
	case kindRegistry:
		return "registry"
	case kindNumeric:
		return "numeric"
	default:
		return "string"
	}
}

// split breaks a line into fields. Registry and string files are tab
// separated; numeric files accept tabs or spaces.
func (k fileKind) split(line string) []string {
	if k == kindNumeric {
		return strings.FieldsFunc(line, func(r rune) bool { return r == '\t' || r == ' ' })
	}
	return strings.Split(line, "\t")
}

// lineReader yields lines and can push back one line, which stands in for
// seeking back to the start of a line that belongs to a later patient.
type lineReader struct {
	sc      *bufio.Scanner
	pending string
	has     bool
	lineNo  int64
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 256*1024), 64*1024*1024)
	return &lineReader{sc: sc}
}

func (lr *lineReader) next() (string, bool) {
	if lr.has {
		lr.has = false
		return lr.pending, true
	}
	if !lr.sc.Scan() {
		return "", false
	}
	lr.lineNo++
	return strings.TrimRight(lr.sc.Text(), "\r"), true
}

func (lr *lineReader) unread(line string) {
	lr.pending, lr.has = line, true
}

func (lr *lineReader) err() error { return lr.sc.Err() }

// FileStats are the per-file counters of a run.
type FileStats struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	Lines      int64  `yaml:"lines"`
	Relevant   int64  `yaml:"relevant"`
	Parsed     int64  `yaml:"parsed"`
	BadFormat  int64  `yaml:"bad_format"`
	OutOfOrder int64  `yaml:"out_of_order"`
}

// ParsedRatio returns parsed/relevant, or 1 when nothing was relevant.
func (s FileStats) ParsedRatio() float64 {
	if s.Relevant == 0 {
		return 1
	}
	return float64(s.Parsed) / float64(s.Relevant)
}

// BadFormatRatio returns bad-format/relevant, or 0 when nothing was relevant.
func (s FileStats) BadFormatRatio() float64 {
	if s.Relevant == 0 {
		return 0
	}
	return float64(s.BadFormat) / float64(s.Relevant)
}

// source is one open input file in the merge.
type source struct {
	name   string
	kind   fileKind
	lines  *lineReader
	closer io.Closer
	// pid is the frontier: the pid of the next unconsumed line.
	pid  int32
	done bool

	stats       FileStats
	badLogged   int
	orderLogged int
}

func newSource(name string, kind fileKind, r io.ReadCloser) *source {
	return &source{
		name:   name,
		kind:   kind,
		lines:  newLineReader(r),
		closer: r,
		pid:    -1,
		stats:  FileStats{Name: name, Kind: kind.String()},
	}
}

// close releases the file. It is idempotent.
func (s *source) close() error {
	s.done = true
	if s.closer == nil {
		return nil
	}
	c := s.closer
	s.closer = nil
	return c.Close()
}

// parsePid splits off the leading pid of a line. Pids are non-negative.
func parsePid(fields []string) (int32, error) {
	if len(fields) == 0 {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 32)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, strconv.ErrRange
	}
	return int32(v), nil
}
