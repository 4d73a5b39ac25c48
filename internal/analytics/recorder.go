package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/luckypick/internal/useragent"
)

const (
	unknown = "unknown"
	direct  = "direct"
)

// GeoResolver fills in location fields when the edge supplied none.
type GeoResolver interface {
	Resolve(ip string) (country, region, city string, ok bool)
}

// RecorderOptions tunes what the Recorder writes beyond the core counters.
type RecorderOptions struct {
	// LegacyMonthlyCounter keeps writing visitors:month:<YYYY-MM>. Queries never
	// read it; monthly totals are summed from daily counters.
	LegacyMonthlyCounter bool
	// AnonymizeIP zeroes the last octet of the stored IP after geo resolution.
	AnonymizeIP bool
	Geo         GeoResolver
	Now         func() time.Time
}

// Recorder writes one visit into every counter, set and list it affects.
type Recorder struct {
	store Store
	opts  RecorderOptions
}

func NewRecorder(store Store, opts RecorderOptions) *Recorder {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Recorder{store: store, opts: opts}
}

// Record stores raw and returns the normalized visit. Every write is attempted
// even if an earlier one fails; the joined failures are wrapped in
// ErrStoreUnavailable. Counters and lists are not transactional with each other.
func (r *Recorder) Record(ctx context.Context, raw RawVisit) (Visit, error) {
	v := r.normalize(raw)
	refHost := ReferrerHost(raw.Referrer)

	buf, err := json.Marshal(v)
	if err != nil {
		return v, fmt.Errorf("encode visit: %w", err)
	}
	record := string(buf)

	var errs []error
	incr := func(key string) {
		if _, err := r.store.Incr(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	sadd := func(key, member string) {
		if err := r.store.SAdd(ctx, key, member); err != nil {
			errs = append(errs, err)
		}
	}

	incr(dailyKey(v.Date))
	if r.opts.LegacyMonthlyCounter {
		incr(monthlyKey(v.Date[:len(MonthLayout)]))
	}
	incr(countryKey(v.Date, v.Country))
	sadd(countriesSetKey(v.Date), v.Country)
	incr(referrerKey(v.Date, refHost))
	sadd(referrersSetKey(v.Date), refHost)

	if err := r.store.LPush(ctx, recentKey(), record, RecentCap); err != nil {
		errs = append(errs, err)
	}
	if err := r.store.LPush(ctx, detailKey(v.Date), record, 0); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return v, fmt.Errorf("%w: %w", ErrStoreUnavailable, errors.Join(errs...))
	}
	return v, nil
}

func (r *Recorder) normalize(raw RawVisit) Visit {
	ts := raw.Time
	if ts.IsZero() {
		ts = r.opts.Now()
	}
	ts = ts.UTC()

	ip := orDefault(raw.IP, unknown)
	country, region, city := raw.Country, raw.Region, raw.City
	if r.opts.Geo != nil && orDefault(country, unknown) == unknown && ip != unknown {
		if c, rg, ct, ok := r.opts.Geo.Resolve(ip); ok {
			country, region, city = c, rg, ct
		}
	}
	if r.opts.AnonymizeIP {
		if anon := anonymizeIP(ip); anon != "" {
			ip = anon
		}
	}

	v := Visit{
		Timestamp: ts.UnixMilli(),
		Date:      FormatDate(ts),
		IP:        ip,
		Country:   orDefault(country, unknown),
		City:      orDefault(city, unknown),
		Region:    orDefault(region, unknown),
		Referrer:  orDefault(raw.Referrer, direct),
		UserAgent: orDefault(raw.UserAgent, unknown),
		Path:      orDefault(raw.Path, "/"),
	}
	if raw.UserAgent != "" {
		ua := useragent.Parse(raw.UserAgent)
		v.Browser, v.OS, v.Device, v.Bot = ua.Browser, ua.OS, ua.Device, ua.Bot
	}
	return v
}

// ReferrerHost reduces a referrer URL to its hostname. Absent or unparseable
// referrers, and URLs without a host, count as "direct".
func ReferrerHost(referrer string) string {
	if referrer == "" || referrer == direct {
		return direct
	}
	u, err := url.Parse(referrer)
	if err != nil || u.Hostname() == "" {
		return direct
	}
	return strings.ToLower(u.Hostname())
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func anonymizeIP(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	if v4 := parsed.To4(); v4 != nil {
		v4[3] = 0
		return v4.String()
	}
	parts := strings.Split(ip, ":")
	parts[len(parts)-1] = "0"
	return strings.Join(parts, ":")
}
