// Package geo resolves visitor IPs to a country, region and city from a
// MaxMind database when the edge did not supply location headers.
package geo

import (
	"fmt"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

type Location struct {
	Country string
	Region  string
	City    string
}

// reader is the subset of *maxminddb.Reader used here.
type reader interface {
	Lookup(ip net.IP, result any) error
	Close() error
}

type Lookup struct {
	db    reader
	cache *Cache
}

// Open loads the database at path. An empty path yields a nil *Lookup, which
// resolves nothing.
func Open(path string, cfg CacheConfig) (*Lookup, error) {
	if path == "" {
		return nil, nil
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geo database %s: %w", path, err)
	}
	return &Lookup{db: db, cache: NewCache(cfg)}, nil
}

type cityRecord struct {
	Country struct {
		ISO string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	Subdivisions []struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"subdivisions"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
}

// Resolve returns the location of ip. ok is false when the database has no
// country for the address.
func (g *Lookup) Resolve(ip string) (country, region, city string, ok bool) {
	if g == nil || g.db == nil {
		return "", "", "", false
	}
	if loc, found, cached := g.cache.Get(ip); cached {
		return loc.Country, loc.Region, loc.City, found
	}

	loc, found := g.lookup(ip)
	g.cache.Set(ip, loc, found)
	return loc.Country, loc.Region, loc.City, found
}

func (g *Lookup) lookup(ip string) (Location, bool) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Location{}, false
	}
	var rec cityRecord
	if err := g.db.Lookup(parsed, &rec); err != nil || rec.Country.ISO == "" {
		return Location{}, false
	}
	loc := Location{Country: rec.Country.ISO, City: rec.City.Names["en"]}
	if len(rec.Subdivisions) > 0 {
		loc.Region = rec.Subdivisions[0].Names["en"]
	}
	return loc, true
}

// CacheStats reports the lookup cache counters.
func (g *Lookup) CacheStats() CacheStats {
	if g == nil {
		return CacheStats{}
	}
	return g.cache.Stats()
}

func (g *Lookup) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	return g.db.Close()
}
