// Package format defines the on-disk binary layouts of a repository.
//
// All integers are little-endian.
//
// Index file (legacy and per-signal modes):
//
//	header  [magic u64][mode i32]
//	packet  [magic u64][pid i32][n i32] then n entries
//	entry   [sid i32][fno u16][pos u64][len i32]
//
// Index table file (index-table mode), one per signal:
//
//	[magic u64][mode i32][sid i32][n i32] then n x [pid i32][count i32]
//
// Data file:
//
//	[format i32] then fixed-size records
//
// All-pids list:
//
//	[count i32] then count x [pid i32]
package format
