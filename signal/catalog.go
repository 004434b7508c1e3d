package signal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Signal describes one cataloged signal.
type Signal struct {
	SID         int
	Name        string
	Type        Type
	Description string
	// FileNumber is the output file group; -1 until assigned.
	FileNumber int
}

// Catalog is the registry of signals: name <-> sid <-> type <-> file number.
type Catalog struct {
	byName  map[string]*Signal
	bySID   map[int]*Signal
	serials *SerialMap
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byName:  make(map[string]*Signal),
		bySID:   make(map[int]*Signal),
		serials: NewSerialMap(nil),
	}
}

// Opener opens a named file for reading.
type Opener func(name string) (io.ReadCloser, error)

func osOpen(name string) (io.ReadCloser, error) { return os.Open(name) }

// Load reads every signal file in order.
func (c *Catalog) Load(paths ...string) error {
	return c.LoadWith(osOpen, paths...)
}

// LoadWith is Load with a custom opener.
func (c *Catalog) LoadWith(open Opener, paths ...string) error {
	for _, p := range paths {
		f, err := open(p)
		if err != nil {
			return err
		}
		err = c.Read(f, p)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// Read parses SIGNAL lines from r. name is used in error messages.
func (c *Catalog) Read(r io.Reader, name string) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" || text[0] == '#' {
			continue
		}
		fields := strings.Split(text, "\t")
		if fields[0] != "SIGNAL" {
			continue
		}
		if len(fields) < 4 {
			return fmt.Errorf("%s:%d: SIGNAL line needs name, sid and type", name, line)
		}
		sid, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil || sid < 0 {
			return fmt.Errorf("%s:%d: bad sid %q", name, line, fields[2])
		}
		t, err := ParseType(strings.TrimSpace(fields[3]))
		if err != nil {
			return fmt.Errorf("%s:%d: %w", name, line, err)
		}
		s := Signal{SID: sid, Name: strings.TrimSpace(fields[1]), Type: t, FileNumber: -1}
		if len(fields) > 4 {
			s.Description = strings.Join(fields[4:], "\t")
		}
		if err := c.add(s); err != nil {
			return fmt.Errorf("%s:%d: %w", name, line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	c.rebuild()
	return nil
}

// Add registers a single signal.
func (c *Catalog) Add(s Signal) error {
	if !s.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidType, int(s.Type))
	}
	if err := c.add(s); err != nil {
		return err
	}
	c.rebuild()
	return nil
}

func (c *Catalog) add(s Signal) error {
	if _, ok := c.byName[s.Name]; ok {
		return fmt.Errorf("%w: name %q", ErrDuplicateSignal, s.Name)
	}
	if _, ok := c.bySID[s.SID]; ok {
		return fmt.Errorf("%w: sid %d", ErrDuplicateSignal, s.SID)
	}
	sig := s
	c.byName[s.Name] = &sig
	c.bySID[s.SID] = &sig
	return nil
}

func (c *Catalog) rebuild() {
	c.serials = NewSerialMap(c.SIDs())
}

// Len returns the number of cataloged signals.
func (c *Catalog) Len() int { return len(c.bySID) }

// SIDs returns all cataloged sids in ascending order.
func (c *Catalog) SIDs() []int {
	sids := make([]int, 0, len(c.bySID))
	for sid := range c.bySID {
		sids = append(sids, sid)
	}
	slices.Sort(sids)
	return sids
}

// Lookup returns the signal registered under name.
func (c *Catalog) Lookup(name string) (Signal, bool) {
	s, ok := c.byName[name]
	if !ok {
		return Signal{}, false
	}
	return *s, true
}

// BySID returns the signal registered under sid.
func (c *Catalog) BySID(sid int) (Signal, bool) {
	s, ok := c.bySID[sid]
	if !ok {
		return Signal{}, false
	}
	return *s, true
}

// SID returns the sid of name.
func (c *Catalog) SID(name string) (int, bool) {
	s, ok := c.byName[name]
	if !ok {
		return 0, false
	}
	return s.SID, true
}

// Name returns the name of sid.
func (c *Catalog) Name(sid int) (string, bool) {
	s, ok := c.bySID[sid]
	if !ok {
		return "", false
	}
	return s.Name, true
}

// Type returns the type tag of sid.
func (c *Catalog) Type(sid int) (Type, bool) {
	s, ok := c.bySID[sid]
	if !ok {
		return 0, false
	}
	return s.Type, true
}

// TypeOf returns the type tag of the signal called name.
func (c *Catalog) TypeOf(name string) (Type, bool) {
	s, ok := c.byName[name]
	if !ok {
		return 0, false
	}
	return s.Type, true
}

// Description returns the free-text description of sid.
func (c *Catalog) Description(sid int) (string, bool) {
	s, ok := c.bySID[sid]
	if !ok {
		return "", false
	}
	return s.Description, true
}

// FileNumber returns the output file number assigned to sid. ok is false for
// unknown or unassigned signals.
func (c *Catalog) FileNumber(sid int) (int, bool) {
	s, ok := c.bySID[sid]
	if !ok || s.FileNumber < 0 {
		return 0, false
	}
	return s.FileNumber, true
}

// SetFileNumber assigns the output file number of sid.
func (c *Catalog) SetFileNumber(sid, fno int) error {
	s, ok := c.bySID[sid]
	if !ok {
		return fmt.Errorf("signal: unknown sid %d", sid)
	}
	s.FileNumber = fno
	return nil
}

// Serials returns the dense serial mapping over every cataloged signal.
func (c *Catalog) Serials() *SerialMap { return c.serials }

// SerialMap is a dense zero-based re-index over a subset of sids.
type SerialMap struct {
	sidToSerial []int32
	serialToSID []int
}

// NewSerialMap builds the mapping; serials follow the order of sids.
func NewSerialMap(sids []int) *SerialMap {
	maxSID := -1
	for _, sid := range sids {
		maxSID = max(maxSID, sid)
	}
	m := &SerialMap{
		sidToSerial: make([]int32, maxSID+1),
		serialToSID: make([]int, 0, len(sids)),
	}
	for i := range m.sidToSerial {
		m.sidToSerial[i] = -1
	}
	for _, sid := range sids {
		if sid < 0 || m.sidToSerial[sid] >= 0 {
			continue
		}
		m.sidToSerial[sid] = int32(len(m.serialToSID))
		m.serialToSID = append(m.serialToSID, sid)
	}
	return m
}

// Serial returns the serial of sid, or false when sid is not in the subset.
func (m *SerialMap) Serial(sid int) (int, bool) {
	if sid < 0 || sid >= len(m.sidToSerial) || m.sidToSerial[sid] < 0 {
		return 0, false
	}
	return int(m.sidToSerial[sid]), true
}

// SID returns the sid at serial.
func (m *SerialMap) SID(serial int) int { return m.serialToSID[serial] }

// Len returns the number of signals in the subset.
func (m *SerialMap) Len() int { return len(m.serialToSID) }

// SIDs returns the subset's sids in serial order.
func (m *SerialMap) SIDs() []int { return slices.Clone(m.serialToSID) }
