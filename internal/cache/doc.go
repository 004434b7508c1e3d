// Package cache provides byte-bounded LRU caches for decoded patient records.
//
// LRU is a single mutex-guarded list. ShardedLRU spreads patient ids over
// independent LRUs so concurrent readers of different patients rarely share
// a lock. Both count the size of an entry with a caller-supplied function and
// never store an entry larger than their capacity.
package cache
