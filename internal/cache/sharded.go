package cache

const numShards = 16

// ShardedLRU is an LRU keyed by patient id and split into shards.
type ShardedLRU[V any] struct {
	shards [numShards]*LRU[int32, V]
}

// NewShardedLRU divides capacity evenly across the shards.
func NewShardedLRU[V any](capacity int64, sizeOf func(V) int64) *ShardedLRU[V] {
	per := max(capacity/numShards, 1)
	s := &ShardedLRU[V]{}
	for i := range numShards {
		s.shards[i] = NewLRU[int32](per, sizeOf)
	}
	return s
}

// splitmix64 finalizer; consecutive pids land on different shards.
func mix(pid int32) uint64 {
	z := uint64(uint32(pid)) + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (s *ShardedLRU[V]) shard(pid int32) *LRU[int32, V] {
	return s.shards[mix(pid)%numShards]
}

// Get returns the cached value for pid.
func (s *ShardedLRU[V]) Get(pid int32) (V, bool) { return s.shard(pid).Get(pid) }

// Set caches value for pid.
func (s *ShardedLRU[V]) Set(pid int32, value V) { s.shard(pid).Set(pid, value) }

// Size returns the total cached bytes.
func (s *ShardedLRU[V]) Size() int64 {
	var n int64
	for _, sh := range s.shards {
		n += sh.Size()
	}
	return n
}

// Stats returns hit and miss counts summed over shards.
func (s *ShardedLRU[V]) Stats() (hits, misses int64) {
	for _, sh := range s.shards {
		h, m := sh.Stats()
		hits += h
		misses += m
	}
	return hits, misses
}
