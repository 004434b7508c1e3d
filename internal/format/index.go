package format

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// IndexMagic opens every index file and every index packet.
	IndexMagic uint64 = 0x0123456789ABCDEF
	// DataFormat is the tag written at the start of every data file.
	DataFormat int32 = 1

	IndexHeaderSize  = 8 + 4
	PacketHeaderSize = 8 + 4 + 4
	EntrySize        = 4 + 2 + 8 + 4
	DataHeaderSize   = 4
)

var (
	ErrInvalidMagic  = errors.New("invalid magic number")
	ErrInvalidFormat = errors.New("unsupported data format")
)

// Entry locates one signal's records of one patient inside a data file.
type Entry struct {
	SID    int32
	FileNo uint16
	Pos    uint64
	Len    int32
}

// Packet is one patient's block in an index file.
type Packet struct {
	Pid     int32
	Entries []Entry
}

// AppendIndexHeader appends the index file header.
func AppendIndexHeader(b []byte, mode int32) []byte {
	b = binary.LittleEndian.AppendUint64(b, IndexMagic)
	return appendInt32(b, mode)
}

// AppendDataHeader appends the data file header.
func AppendDataHeader(b []byte) []byte {
	return appendInt32(b, DataFormat)
}

// AppendPacketHeader appends a packet header announcing n entries.
func AppendPacketHeader(b []byte, pid int32, n int) []byte {
	b = binary.LittleEndian.AppendUint64(b, IndexMagic)
	b = appendInt32(b, pid)
	return appendInt32(b, int32(n))
}

// AppendEntry appends one index entry.
func AppendEntry(b []byte, e Entry) []byte {
	b = appendInt32(b, e.SID)
	b = binary.LittleEndian.AppendUint16(b, e.FileNo)
	b = binary.LittleEndian.AppendUint64(b, e.Pos)
	return appendInt32(b, e.Len)
}

// AppendPacket appends a packet header followed by its entries.
func AppendPacket(b []byte, p Packet) []byte {
	b = AppendPacketHeader(b, p.Pid, len(p.Entries))
	for _, e := range p.Entries {
		b = AppendEntry(b, e)
	}
	return b
}

// ParseIndex decodes a complete index file and returns its mode tag and
// packets in file order.
func ParseIndex(data []byte) (int32, []Packet, error) {
	c := newCursor(data)
	if magic := c.uint64(); c.err == nil && magic != IndexMagic {
		return 0, nil, fmt.Errorf("%w: %#x", ErrInvalidMagic, magic)
	}
	mode := c.int32()
	if c.err != nil {
		return 0, nil, fmt.Errorf("index header: %w", c.err)
	}

	var packets []Packet
	for c.remaining() > 0 {
		off := c.pos
		if magic := c.uint64(); c.err == nil && magic != IndexMagic {
			return 0, nil, fmt.Errorf("%w: packet at offset %d", ErrInvalidMagic, off)
		}
		pid := c.int32()
		n := c.int32()
		if c.err != nil {
			return 0, nil, fmt.Errorf("packet at offset %d: %w", off, c.err)
		}
		if n < 0 || int(n)*EntrySize > c.remaining() {
			return 0, nil, fmt.Errorf("packet at offset %d: bad entry count %d", off, n)
		}
		p := Packet{Pid: pid, Entries: make([]Entry, n)}
		for i := range p.Entries {
			p.Entries[i] = Entry{
				SID:    c.int32(),
				FileNo: c.uint16(),
				Pos:    c.uint64(),
				Len:    c.int32(),
			}
		}
		packets = append(packets, p)
	}
	return mode, packets, nil
}

// CheckDataHeader validates the header of a data file.
func CheckDataHeader(data []byte) error {
	c := newCursor(data)
	tag := c.int32()
	if c.err != nil {
		return fmt.Errorf("data header: %w", c.err)
	}
	if tag != DataFormat {
		return fmt.Errorf("%w: %d", ErrInvalidFormat, tag)
	}
	return nil
}
