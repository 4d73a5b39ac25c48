package geo

import (
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// fakeReader answers from a fixed table and counts lookups.
type fakeReader struct {
	mu    sync.Mutex
	calls int
	table map[string]cityRecord
}

func (f *fakeReader) Lookup(ip net.IP, result any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	rec, ok := f.table[ip.String()]
	if !ok {
		return nil
	}
	*(result.(*cityRecord)) = rec
	return nil
}

func (f *fakeReader) Close() error { return nil }

func seoulRecord() cityRecord {
	var rec cityRecord
	rec.Country.ISO = "KR"
	rec.City.Names = map[string]string{"en": "Seoul"}
	rec.Subdivisions = []struct {
		Names map[string]string `maxminddb:"names"`
	}{{Names: map[string]string{"en": "Seoul"}}}
	return rec
}

func TestLookup_Resolve(t *testing.T) {
	fr := &fakeReader{table: map[string]cityRecord{"211.234.10.20": seoulRecord()}}
	g := &Lookup{db: fr, cache: NewCache(DefaultCacheConfig())}

	country, region, city, ok := g.Resolve("211.234.10.20")
	if !ok {
		t.Fatal("Resolve() ok = false, want true")
	}
	if country != "KR" || region != "Seoul" || city != "Seoul" {
		t.Errorf("Resolve() = %s/%s/%s, want KR/Seoul/Seoul", country, region, city)
	}

	// Second lookup is served from the cache.
	g.Resolve("211.234.10.20")
	if fr.calls != 1 {
		t.Errorf("database lookups = %d, want 1", fr.calls)
	}
}

func TestLookup_MissIsCached(t *testing.T) {
	fr := &fakeReader{table: map[string]cityRecord{}}
	g := &Lookup{db: fr, cache: NewCache(DefaultCacheConfig())}

	for i := 0; i < 3; i++ {
		if _, _, _, ok := g.Resolve("10.0.0.1"); ok {
			t.Fatal("Resolve() ok = true for unmapped address")
		}
	}
	if fr.calls != 1 {
		t.Errorf("database lookups = %d, want 1", fr.calls)
	}
}

func TestLookup_InvalidIP(t *testing.T) {
	fr := &fakeReader{}
	g := &Lookup{db: fr, cache: NewCache(DefaultCacheConfig())}
	if _, _, _, ok := g.Resolve("unknown"); ok {
		t.Error("Resolve(unknown) ok = true, want false")
	}
	if fr.calls != 0 {
		t.Errorf("database lookups = %d, want 0 for unparseable IP", fr.calls)
	}
}

func TestLookup_NilSafe(t *testing.T) {
	var g *Lookup
	if _, _, _, ok := g.Resolve("1.2.3.4"); ok {
		t.Error("nil Lookup should resolve nothing")
	}
	if err := g.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
	if s := g.CacheStats(); s.Size != 0 {
		t.Errorf("nil CacheStats() = %+v", s)
	}
}

func TestOpen(t *testing.T) {
	g, err := Open("", DefaultCacheConfig())
	if err != nil || g != nil {
		t.Errorf("Open(\"\") = %v, %v; want nil, nil", g, err)
	}

	_, err = Open(filepath.Join(t.TempDir(), "missing.mmdb"), DefaultCacheConfig())
	if err == nil {
		t.Error("Open() on missing file should fail")
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	c := NewCache(CacheConfig{Capacity: 10, TTL: time.Minute})
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("1.1.1.1", Location{Country: "AU"}, true)
	if loc, found, cached := c.Get("1.1.1.1"); !cached || !found || loc.Country != "AU" {
		t.Fatalf("Get() = %+v/%v/%v, want AU hit", loc, found, cached)
	}

	now = now.Add(2 * time.Minute)
	if _, _, cached := c.Get("1.1.1.1"); cached {
		t.Error("expired entry should miss")
	}
	if s := c.Stats(); s.Size != 0 {
		t.Errorf("Size after expiry = %d, want 0", s.Size)
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := NewCache(CacheConfig{Capacity: 2, TTL: time.Hour})

	c.Set("a", Location{Country: "A"}, true)
	c.Set("b", Location{Country: "B"}, true)
	c.Get("a") // a becomes most recent
	c.Set("c", Location{Country: "C"}, true)

	if _, _, cached := c.Get("b"); cached {
		t.Error("b should have been evicted")
	}
	for _, ip := range []string{"a", "c"} {
		if _, _, cached := c.Get(ip); !cached {
			t.Errorf("%s should still be cached", ip)
		}
	}
	if s := c.Stats(); s.Evicts != 1 || s.Size != 2 {
		t.Errorf("Stats() = %+v, want 1 eviction and size 2", s)
	}
}

func TestCache_UpdateExisting(t *testing.T) {
	c := NewCache(DefaultCacheConfig())
	c.Set("10.0.0.1", Location{Country: "DE"}, true)
	c.Set("10.0.0.1", Location{Country: "FR"}, true)

	loc, _, _ := c.Get("10.0.0.1")
	if loc.Country != "FR" {
		t.Errorf("Country = %q, want FR", loc.Country)
	}
	if s := c.Stats(); s.Size != 1 {
		t.Errorf("Size = %d, want 1", s.Size)
	}
}

func TestCache_EmptyIPIgnored(t *testing.T) {
	c := NewCache(DefaultCacheConfig())
	c.Set("", Location{Country: "US"}, true)
	if _, _, cached := c.Get(""); cached {
		t.Error("empty IP should never hit")
	}
	if s := c.Stats(); s.Size != 0 || s.Misses != 0 {
		t.Errorf("Stats() = %+v, want untouched cache", s)
	}
}

func TestCache_InvalidConfigUsesDefaults(t *testing.T) {
	c := NewCache(CacheConfig{Capacity: -1, TTL: 0})
	s := c.Stats()
	if s.Capacity != 10000 {
		t.Errorf("Capacity = %d, want 10000", s.Capacity)
	}
	if c.ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h", c.ttl)
	}
}

func TestCache_HitRate(t *testing.T) {
	c := NewCache(DefaultCacheConfig())
	c.Set("x", Location{}, false)
	c.Get("x")
	c.Get("x")
	c.Get("x")
	c.Get("y")

	s := c.Stats()
	if s.Hits != 3 || s.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 3/1", s.Hits, s.Misses)
	}
	if s.HitRate != 0.75 {
		t.Errorf("HitRate = %v, want 0.75", s.HitRate)
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache(CacheConfig{Capacity: 50, TTL: time.Hour})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ip := net.IPv4(10, 0, byte(n), byte(j)).String()
				c.Set(ip, Location{Country: "KR"}, true)
				c.Get(ip)
			}
		}(i)
	}
	wg.Wait()
	if s := c.Stats(); s.Size > 50 {
		t.Errorf("Size = %d, exceeds capacity 50", s.Size)
	}
}
