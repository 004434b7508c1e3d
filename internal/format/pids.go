package format

import (
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring/v2"
)

// WriteAllPids writes the all-pids list of a repository in ascending order.
func WriteAllPids(w io.Writer, pids *roaring.Bitmap) error {
	n := pids.GetCardinality()
	if n > 1<<31-1 {
		return fmt.Errorf("all pids: %d patients do not fit the list header", n)
	}
	buf := make([]byte, 0, 4+4*n)
	buf = appendInt32(buf, int32(n))
	it := pids.Iterator()
	for it.HasNext() {
		buf = appendInt32(buf, int32(it.Next()))
	}
	_, err := w.Write(buf)
	return err
}

// ParseAllPids decodes an all-pids list.
func ParseAllPids(data []byte) (*roaring.Bitmap, error) {
	c := newCursor(data)
	n := c.int32()
	if c.err != nil {
		return nil, fmt.Errorf("all pids header: %w", c.err)
	}
	if n < 0 || int(n)*4 != c.remaining() {
		return nil, fmt.Errorf("all pids: count %d does not match %d payload bytes", n, c.remaining())
	}
	bm := roaring.New()
	for range n {
		pid := c.int32()
		if pid < 0 {
			return nil, fmt.Errorf("all pids: negative pid %d", pid)
		}
		bm.Add(uint32(pid))
	}
	return bm, nil
}
