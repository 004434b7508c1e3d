// Package mmap maps repository files read-only into memory.
//
// Index and data files are written once by the converter and then only read,
// so the reader maps them whole and slices patient records straight out of
// the mapping:
//
//	m, err := mmap.Open("rep_GLU.data")
//	if err != nil { ... }
//	defer m.Close()
//
//	rec, err := m.Slice(pos, n)
//
// Unix uses mmap(2) with madvise(2) hints; Windows uses MapViewOfFile and
// treats hints as no-ops.
//
// A Mapping is safe for concurrent reads. Close is idempotent, but slices
// obtained from Bytes or Slice must not be used after it returns.
package mmap
