package dict

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrUnknownSet is returned when a lookup table is requested for a set name
// that is not defined.
var ErrUnknownSet = errors.New("unknown set")

// FormatError reports a malformed dictionary line.
type FormatError struct {
	Path string
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// Key is either a code or a name.
type Key interface {
	int32 | string
}

type setDecl struct {
	member, set string
	path        string
	line        int
}

// Dictionary is a single namespace of codes.
type Dictionary struct {
	name       string
	nameToID   map[string]int32
	idToNames  map[int32][]string
	setMembers map[int32]map[int32]struct{}
	memberSets map[int32]map[int32]struct{}
	maxID      int32
	pending    []setDecl
}

// New returns an empty dictionary called name.
func New(name string) *Dictionary {
	return &Dictionary{
		name:       name,
		nameToID:   make(map[string]int32),
		idToNames:  make(map[int32][]string),
		setMembers: make(map[int32]map[int32]struct{}),
		memberSets: make(map[int32]map[int32]struct{}),
		maxID:      -1,
	}
}

// SectionName returns the name the dictionary was created with.
func (d *Dictionary) SectionName() string { return d.name }

// Opener opens a named file for reading.
type Opener func(name string) (io.ReadCloser, error)

func osOpen(name string) (io.ReadCloser, error) { return os.Open(name) }

// Load reads every file and resolves SET declarations once all are read.
func (d *Dictionary) Load(paths ...string) error {
	return d.LoadWith(osOpen, paths...)
}

// LoadWith is Load with a custom opener.
func (d *Dictionary) LoadWith(open Opener, paths ...string) error {
	for _, p := range paths {
		f, err := open(p)
		if err != nil {
			return err
		}
		err = d.readLines(f, p)
		f.Close()
		if err != nil {
			return err
		}
	}
	return d.resolveSets()
}

// Read parses one dictionary stream. name is used in error messages.
func (d *Dictionary) Read(r io.Reader, name string) error {
	if err := d.readLines(r, name); err != nil {
		return err
	}
	return d.resolveSets()
}

func (d *Dictionary) readLines(r io.Reader, name string) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if err := d.parseLine(sc.Text(), name, line); err != nil {
			return err
		}
	}
	return sc.Err()
}

func splitLine(text string) []string {
	text = strings.TrimRight(text, "\r")
	if strings.Contains(text, "\t") {
		fields := strings.Split(text, "\t")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		return fields
	}
	return strings.Fields(text)
}

func (d *Dictionary) parseLine(text, path string, line int) error {
	if text == "" || text[0] == '#' {
		return nil
	}
	fields := splitLine(text)
	if len(fields) < 2 {
		return nil
	}
	switch fields[0] {
	case "DEF":
		if len(fields) < 3 {
			return &FormatError{Path: path, Line: line, Msg: "DEF needs an id and a name"}
		}
		return d.def(fields[1], fields[2], path, line)
	case "SET":
		if len(fields) < 3 {
			return &FormatError{Path: path, Line: line, Msg: "SET needs a member and a set"}
		}
		d.pending = append(d.pending, setDecl{member: fields[1], set: fields[2], path: path, line: line})
		return nil
	case "SECTION":
		return nil
	}
	if c := fields[0][0]; c == '-' || (c >= '0' && c <= '9') {
		return d.def(fields[0], fields[1], path, line)
	}
	// SIGNAL and other directives belong to other readers.
	return nil
}

func (d *Dictionary) def(idText, name, path string, line int) error {
	id, err := strconv.ParseInt(idText, 10, 32)
	if err != nil {
		return &FormatError{Path: path, Line: line, Msg: fmt.Sprintf("bad code %q", idText)}
	}
	if err := d.Define(int32(id), name); err != nil {
		return &FormatError{Path: path, Line: line, Msg: err.Error()}
	}
	return nil
}

// Define binds name to id. Binding an already known name to a different id
// is an error; re-binding it to the same id is a no-op.
func (d *Dictionary) Define(id int32, name string) error {
	if prev, ok := d.nameToID[name]; ok {
		if prev != id {
			return fmt.Errorf("name %q already bound to %d, not %d", name, prev, id)
		}
		return nil
	}
	d.nameToID[name] = id
	d.idToNames[id] = append(d.idToNames[id], name)
	d.maxID = max(d.maxID, id)
	return nil
}

// AddToSet records that member belongs to set. Both names must be defined.
func (d *Dictionary) AddToSet(member, set string) error {
	mid, ok := d.nameToID[member]
	if !ok {
		return fmt.Errorf("unknown set member %q", member)
	}
	sid, ok := d.nameToID[set]
	if !ok {
		return fmt.Errorf("unknown set %q", set)
	}
	if d.setMembers[sid] == nil {
		d.setMembers[sid] = make(map[int32]struct{})
	}
	d.setMembers[sid][mid] = struct{}{}
	if d.memberSets[mid] == nil {
		d.memberSets[mid] = make(map[int32]struct{})
	}
	d.memberSets[mid][sid] = struct{}{}
	return nil
}

func (d *Dictionary) resolveSets() error {
	pending := d.pending
	d.pending = nil
	for _, s := range pending {
		if err := d.AddToSet(s.member, s.set); err != nil {
			return &FormatError{Path: s.path, Line: s.line, Msg: err.Error()}
		}
	}
	return nil
}

// ID returns the code bound to name.
func (d *Dictionary) ID(name string) (int32, bool) {
	id, ok := d.nameToID[name]
	return id, ok
}

// Name returns the official (first read) name of id.
func (d *Dictionary) Name(id int32) (string, bool) {
	names := d.idToNames[id]
	if len(names) == 0 {
		return "", false
	}
	return names[0], true
}

// Names returns every name of id, official name first.
func (d *Dictionary) Names(id int32) []string {
	return append([]string(nil), d.idToNames[id]...)
}

// MaxID returns the largest defined code, or -1 when empty.
func (d *Dictionary) MaxID() int32 { return d.maxID }

// Len returns the number of defined names.
func (d *Dictionary) Len() int { return len(d.nameToID) }

// IsInSet reports whether member is directly declared a member of set.
func (d *Dictionary) IsInSet(member, set int32) bool {
	_, ok := d.setMembers[set][member]
	return ok
}

// Sets returns the codes of the sets member directly belongs to.
func (d *Dictionary) Sets(member int32) []int32 {
	out := make([]int32, 0, len(d.memberSets[member]))
	for s := range d.memberSets[member] {
		out = append(out, s)
	}
	return out
}

// InSet is IsInSet for any mix of codes and names. Unknown names are never
// members.
func InSet[M, S Key](d *Dictionary, member M, set S) bool {
	mid, ok := resolve(d, member)
	if !ok {
		return false
	}
	sid, ok := resolve(d, set)
	if !ok {
		return false
	}
	return d.IsInSet(mid, sid)
}

func resolve[K Key](d *Dictionary, k K) (int32, bool) {
	switch v := any(k).(type) {
	case int32:
		return v, true
	case string:
		return d.ID(v)
	}
	return 0, false
}

// SetsLookupTable returns a table over codes 0..MaxID where lut[id] is true
// when id belongs, directly or through nested sets, to any of the named sets.
func (d *Dictionary) SetsLookupTable(setNames ...string) ([]bool, error) {
	lut := make([]bool, max(d.maxID+1, 0))
	seen := make(map[int32]bool)
	var queue []int32
	for _, name := range setNames {
		sid, ok := d.nameToID[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q in section %s", ErrUnknownSet, name, d.name)
		}
		queue = append(queue, sid)
	}
	for len(queue) > 0 {
		set := queue[0]
		queue = queue[1:]
		if seen[set] {
			continue
		}
		seen[set] = true
		for m := range d.setMembers[set] {
			if m >= 0 && int(m) < len(lut) {
				lut[m] = true
			}
			if len(d.setMembers[m]) > 0 {
				queue = append(queue, m)
			}
		}
	}
	return lut, nil
}
