package cache

import (
	"strconv"
	"sync"
	"testing"
)

func TestCacheGetSet(t *testing.T) {
	c := New[string, uint32](10)
	c.Set("steel", 42)

	if v, ok := c.Get("steel"); !ok || v != 42 {
		t.Errorf("Get(steel) = %d, %v; want 42, true", v, ok)
	}
	if _, ok := c.Get("wood"); ok {
		t.Error("Get(wood) found a missing key")
	}
	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.HitRate != 0.5 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss", s)
	}
}

func TestCacheGetOrCreate(t *testing.T) {
	c := New[string, int](10)
	calls := 0
	create := func() int { calls++; return calls * 100 }

	if v := c.GetOrCreate("a", create); v != 100 {
		t.Errorf("GetOrCreate(a) = %d, want 100", v)
	}
	if v := c.GetOrCreate("a", create); v != 100 {
		t.Errorf("GetOrCreate(a) cached = %d, want 100", v)
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
}

func TestCacheSoftLimitEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int, int](8)
	var evicted []int
	c.OnEvict(func(k, _ int) { evicted = append(evicted, k) })

	for i := range 8 {
		c.Set(i, i)
	}
	// Touch 0 so it survives the eviction pass.
	c.Get(0)
	c.Set(8, 8)

	if got := c.Len(); got != 6 {
		t.Errorf("Len() = %d, want 6 after evicting to 3/4", got)
	}
	if _, ok := c.Get(0); !ok {
		t.Error("recently used key 0 was evicted")
	}
	want := []int{1, 2, 3}
	if len(evicted) != len(want) {
		t.Fatalf("evicted = %v, want %v", evicted, want)
	}
	for i := range want {
		if evicted[i] != want[i] {
			t.Errorf("evicted = %v, want %v", evicted, want)
			break
		}
	}
	if got := c.Stats().Evictions; got != 3 {
		t.Errorf("Evictions = %d, want 3", got)
	}
}

func TestCacheUnlimited(t *testing.T) {
	c := New[int, int](0)
	for i := range 1000 {
		c.Set(i, i)
	}
	if c.Len() != 1000 {
		t.Errorf("Len() = %d, want 1000", c.Len())
	}
}

func TestCacheDeleteClear(t *testing.T) {
	c := New[string, int](10)
	c.Set("a", 1)
	c.Set("b", 2)
	if !c.Delete("a") {
		t.Error("Delete(a) = false")
	}
	if c.Delete("a") {
		t.Error("second Delete(a) = true")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
	c.Set("c", 3)
	if v, _ := c.Get("c"); v != 3 {
		t.Errorf("Get(c) after Clear = %d", v)
	}
}

func TestLRUList(t *testing.T) {
	l := newLRUList[string]()
	a := l.PushFront("a")
	l.PushFront("b")
	c := l.PushFront("c")

	if k, _ := l.Oldest(); k != "a" {
		t.Errorf("Oldest() = %q, want a", k)
	}
	l.MoveToFront(a)
	if k, _ := l.Oldest(); k != "b" {
		t.Errorf("Oldest() after MoveToFront(a) = %q, want b", k)
	}
	l.Remove(c)
	l.Remove(c)
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}
	for _, want := range []string{"b", "a"} {
		k, ok := l.RemoveOldest()
		if !ok || k != want {
			t.Errorf("RemoveOldest() = %q, %v; want %q", k, ok, want)
		}
	}
	if _, ok := l.RemoveOldest(); ok {
		t.Error("RemoveOldest() on empty list = true")
	}
}

func TestShardedCapacityPerShard(t *testing.T) {
	// All keys land in shard 0 with a constant hasher.
	c := NewSharded[int, int](4, func(int) uint64 { return 0 })
	for i := range 6 {
		c.Set(i, i)
	}
	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}
	if _, ok := c.Get(0); ok {
		t.Error("oldest key 0 survived eviction")
	}
	if _, ok := c.Get(5); !ok {
		t.Error("newest key 5 missing")
	}
	if got := c.Stats().Evictions; got != 2 {
		t.Errorf("Evictions = %d, want 2", got)
	}
}

func TestShardedStats(t *testing.T) {
	c := NewSharded[uint64, string](0, Uint64Hasher)
	c.Set(1, "one")
	c.Get(1)
	c.Get(1)
	c.Get(2)

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Stats() hits/misses = %d/%d, want 2/1", s.Hits, s.Misses)
	}
	if s.TotalCapacity != DefaultCapacity*DefaultShardCount {
		t.Errorf("TotalCapacity = %d", s.TotalCapacity)
	}
	c.ResetStats()
	if s := c.Stats(); s.Hits != 0 || s.Misses != 0 {
		t.Errorf("Stats() after ResetStats = %+v", s)
	}
}

func TestShardedGetOrCreateConcurrent(t *testing.T) {
	c := NewSharded[string, int](16, StringHasher)
	var mu sync.Mutex
	created := map[string]int{}
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 32 {
				key := strconv.Itoa(i)
				c.GetOrCreate(key, func() int {
					mu.Lock()
					created[key]++
					mu.Unlock()
					return g
				})
			}
		}()
	}
	wg.Wait()
	for k, n := range created {
		if n != 1 {
			t.Errorf("key %s created %d times", k, n)
		}
	}
}

func TestCapacityFor(t *testing.T) {
	tests := []struct{ total, want int }{
		{0, 1},
		{1, 1},
		{16, 1},
		{17, 2},
		{100, 7},
	}
	for _, tt := range tests {
		if got := CapacityFor(tt.total); got != tt.want {
			t.Errorf("CapacityFor(%d) = %d, want %d", tt.total, got, tt.want)
		}
	}
}
