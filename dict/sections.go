package dict

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// DefaultSection is the name of section 0.
const DefaultSection = "DEFAULT"

// sectionScanLines bounds how far into a file a SECTION directive is honored.
const sectionScanLines = 100

// Sections is a set of dictionaries addressed by section number or name.
// Section 0 always exists. Methods without an explicit section act on the
// current section, which starts at 0.
type Sections struct {
	mu      sync.RWMutex
	dicts   []*Dictionary
	byName  map[string]int
	current int
}

// NewSections returns Sections holding only the empty default section.
func NewSections() *Sections {
	s := &Sections{byName: make(map[string]int)}
	s.addSection(DefaultSection)
	return s
}

func (s *Sections) addSection(name string) int {
	idx := len(s.dicts)
	s.dicts = append(s.dicts, New(name))
	s.byName[name] = idx
	return idx
}

// Load reads dictionary files in order. SET declarations are resolved after
// every file has been read, so a set may be defined in a later file.
func (s *Sections) Load(paths ...string) error {
	return s.LoadWith(osOpen, paths...)
}

// LoadWith is Load with a custom opener.
func (s *Sections) LoadWith(open Opener, paths ...string) error {
	touched := make(map[int]struct{})
	for _, p := range paths {
		f, err := open(p)
		if err != nil {
			return err
		}
		idx, err := s.read(f, p)
		f.Close()
		if err != nil {
			return err
		}
		touched[idx] = struct{}{}
	}
	return s.resolve(touched)
}

// Read parses one dictionary stream into the section it declares.
func (s *Sections) Read(r io.Reader, name string) error {
	idx, err := s.read(r, name)
	if err != nil {
		return err
	}
	return s.resolve(map[int]struct{}{idx: {}})
}

func (s *Sections) resolve(touched map[int]struct{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for idx := range touched {
		if err := s.dicts[idx].resolveSets(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sections) read(r io.Reader, name string) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var head []string
	for len(head) < sectionScanLines && sc.Scan() {
		head = append(head, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := 0
	for _, text := range head {
		fields := splitLine(text)
		if len(fields) >= 2 && fields[0] == "SECTION" {
			idx = s.declare(fields[1])
			break
		}
	}

	d := s.dicts[idx]
	line := 0
	for _, text := range head {
		line++
		if err := d.parseLine(text, name, line); err != nil {
			return idx, err
		}
	}
	for sc.Scan() {
		line++
		if err := d.parseLine(sc.Text(), name, line); err != nil {
			return idx, err
		}
	}
	return idx, sc.Err()
}

// declare returns the section for a comma separated list of names, creating
// it when none of the names is known and registering the rest as aliases.
func (s *Sections) declare(list string) int {
	names := strings.Split(list, ",")
	idx := -1
	for _, n := range names {
		if i, ok := s.byName[strings.TrimSpace(n)]; ok {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = s.addSection(strings.TrimSpace(names[0]))
	}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			if _, ok := s.byName[n]; !ok {
				s.byName[n] = idx
			}
		}
	}
	return idx
}

// Len returns the number of sections.
func (s *Sections) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dicts)
}

// Section returns the number of the section called name or one of its aliases.
func (s *Sections) Section(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byName[name]
	return idx, ok
}

// SectionOrDefault is Section falling back to 0.
func (s *Sections) SectionOrDefault(name string) int {
	if idx, ok := s.Section(name); ok {
		return idx
	}
	return 0
}

// Dict returns the dictionary of section idx, or nil when out of range.
func (s *Sections) Dict(idx int) *Dictionary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx < 0 || idx >= len(s.dicts) {
		return nil
	}
	return s.dicts[idx]
}

// SetCurrent selects the section used by the unqualified lookups.
func (s *Sections) SetCurrent(idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.dicts) {
		return fmt.Errorf("dict: no section %d", idx)
	}
	s.current = idx
	return nil
}

// SetCurrentByName selects the section called name.
func (s *Sections) SetCurrentByName(name string) error {
	idx, ok := s.Section(name)
	if !ok {
		return fmt.Errorf("dict: no section %q", name)
	}
	return s.SetCurrent(idx)
}

// Current returns the selected section number.
func (s *Sections) Current() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Sections) currentDict() *Dictionary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dicts[s.current]
}

// ID looks name up in the current section.
func (s *Sections) ID(name string) (int32, bool) { return s.currentDict().ID(name) }

// Name looks id up in the current section.
func (s *Sections) Name(id int32) (string, bool) { return s.currentDict().Name(id) }

// IsInSet checks membership in the current section.
func (s *Sections) IsInSet(member, set int32) bool { return s.currentDict().IsInSet(member, set) }

// SetsLookupTable builds a lookup table in the current section.
func (s *Sections) SetsLookupTable(setNames ...string) ([]bool, error) {
	return s.currentDict().SetsLookupTable(setNames...)
}

// IDIn looks name up in section idx.
func (s *Sections) IDIn(idx int, name string) (int32, bool) {
	d := s.Dict(idx)
	if d == nil {
		return 0, false
	}
	return d.ID(name)
}

// NameIn looks id up in section idx.
func (s *Sections) NameIn(idx int, id int32) (string, bool) {
	d := s.Dict(idx)
	if d == nil {
		return "", false
	}
	return d.Name(id)
}

// IsInSetIn checks membership in section idx.
func (s *Sections) IsInSetIn(idx int, member, set int32) bool {
	d := s.Dict(idx)
	return d != nil && d.IsInSet(member, set)
}

// SetsLookupTableIn builds a lookup table in section idx.
func (s *Sections) SetsLookupTableIn(idx int, setNames ...string) ([]bool, error) {
	d := s.Dict(idx)
	if d == nil {
		return nil, fmt.Errorf("dict: no section %d", idx)
	}
	return d.SetsLookupTable(setNames...)
}

// Resolve returns the code of name in the named section. Signals without a
// section of their own use the default section; a section that exists but
// lacks the name does not fall back.
func (s *Sections) Resolve(section, name string) (int32, bool) {
	idx, ok := s.Section(section)
	if !ok {
		idx = 0
	}
	return s.IDIn(idx, name)
}
