package format

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// IndexTableHeaderSize is the size of an index table file header.
const IndexTableHeaderSize = 8 + 4 + 4 + 4

// IndexTable is the pid-keyed index of one signal's data file. Records of
// consecutive patients are contiguous, so a patient's byte range follows from
// the prefix sum of the preceding counts.
type IndexTable struct {
	SID      int32
	Mode     int32
	RecSize  int
	pids     []int32
	counts   []int32
	offsets  []uint64
	dataSize uint64
}

// NewIndexTable returns an empty table for records of recSize bytes.
func NewIndexTable(sid, mode int32, recSize int) *IndexTable {
	return &IndexTable{SID: sid, Mode: mode, RecSize: recSize, dataSize: DataHeaderSize}
}

// Add appends a patient holding count records. Pids must be strictly
// ascending.
func (t *IndexTable) Add(pid int32, count int) error {
	if n := len(t.pids); n > 0 && pid <= t.pids[n-1] {
		return fmt.Errorf("index table %d: pid %d after %d", t.SID, pid, t.pids[n-1])
	}
	if count <= 0 {
		return fmt.Errorf("index table %d: pid %d with %d records", t.SID, pid, count)
	}
	t.pids = append(t.pids, pid)
	t.counts = append(t.counts, int32(count))
	t.offsets = append(t.offsets, t.dataSize)
	t.dataSize += uint64(count) * uint64(t.RecSize)
	return nil
}

// Len returns the number of patients.
func (t *IndexTable) Len() int { return len(t.pids) }

// Pids returns the patient ids in ascending order.
func (t *IndexTable) Pids() []int32 { return t.pids }

// DataSize returns the expected size of the matching data file.
func (t *IndexTable) DataSize() uint64 { return t.dataSize }

// Lookup returns the byte range of pid's records in the data file.
func (t *IndexTable) Lookup(pid int32) (pos uint64, length int, ok bool) {
	i := sort.Search(len(t.pids), func(i int) bool { return t.pids[i] >= pid })
	if i == len(t.pids) || t.pids[i] != pid {
		return 0, 0, false
	}
	return t.offsets[i], int(t.counts[i]) * t.RecSize, true
}

// WriteTo writes the table file.
func (t *IndexTable) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, 0, IndexTableHeaderSize+8*len(t.pids))
	buf = binary.LittleEndian.AppendUint64(buf, IndexMagic)
	buf = appendInt32(buf, t.Mode)
	buf = appendInt32(buf, t.SID)
	buf = appendInt32(buf, int32(len(t.pids)))
	for i, pid := range t.pids {
		buf = appendInt32(buf, pid)
		buf = appendInt32(buf, t.counts[i])
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ParseIndexTable decodes a table file. recSize is the record size of the
// signal's type, which the file does not carry.
func ParseIndexTable(data []byte, recSize int) (*IndexTable, error) {
	c := newCursor(data)
	if magic := c.uint64(); c.err == nil && magic != IndexMagic {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidMagic, magic)
	}
	mode := c.int32()
	sid := c.int32()
	n := c.int32()
	if c.err != nil {
		return nil, fmt.Errorf("index table header: %w", c.err)
	}
	if n < 0 || int(n)*8 > c.remaining() {
		return nil, fmt.Errorf("index table %d: bad patient count %d", sid, n)
	}
	t := NewIndexTable(sid, mode, recSize)
	t.pids = make([]int32, 0, n)
	t.counts = make([]int32, 0, n)
	t.offsets = make([]uint64, 0, n)
	for range n {
		pid := c.int32()
		count := c.int32()
		if err := t.Add(pid, int(count)); err != nil {
			return nil, err
		}
	}
	return t, nil
}
