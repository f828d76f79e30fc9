// Package cache provides the generic caches used by the conversion core.
//
// # Cache[K, V]
//
// A mutex-guarded LRU with a soft limit. When the limit is exceeded the
// least recently used quarter of the entries is dropped in one pass.
// The material manager uses it for hot-path identifier lookups.
//
//	c := cache.New[string, uint32](1024)
//	c.Set("steel", 17)
//	id, ok := c.Get("steel")
//
// # ShardedCache[K, V]
//
// A 16-shard LRU with a hard per-shard capacity and atomic hit, miss and
// eviction counters. The CSG operation facade keys it by operand
// fingerprints.
//
//	c := cache.NewSharded[uint64, *Result](64, cache.Uint64Hasher)
//
// # Expiring[K, V]
//
// Entries live for a fixed TTL from insertion. Over the size limit the
// oldest-inserted entries go first, whatever their hit counts. The scene
// pipeline caches converted subtrees in it.
//
//	c := cache.NewExpiring[uint64, *Result](100, 5*time.Minute, nil)
//
// No cache may be copied after creation.
package cache
