package analytics

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStoreUnavailable wraps any failure reading or writing the backing store.
	ErrStoreUnavailable = errors.New("analytics store unavailable")
	// ErrInvalidPeriod is returned for a period other than day or month.
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrInvalidDate is returned for a malformed date or month.
	ErrInvalidDate = errors.New("invalid date")
)

// Store is the counter, list and set primitive set the recorder and
// aggregator need. Increment and push-with-trim must be atomic per key.
type Store interface {
	Incr(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	MGet(ctx context.Context, keys []string) ([]int64, error)
	LPush(ctx context.Context, key, value string, maxLen int) error
	LRange(ctx context.Context, key string, start, stop int) ([]string, error)
	SAdd(ctx context.Context, key, member string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// RawVisit is a visit as observed at the edge, before normalization.
type RawVisit struct {
	Time      time.Time `json:"-"`
	IP        string    `json:"ip"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
	Region    string    `json:"region"`
	UserAgent string    `json:"userAgent"`
	Referrer  string    `json:"referrer,omitempty"`
	Path      string    `json:"path,omitempty"`
}

// Visit is the immutable record stored in the recent ring and detail log.
type Visit struct {
	Timestamp int64  `json:"timestamp"`
	Date      string `json:"date"`
	IP        string `json:"ip"`
	Country   string `json:"country"`
	City      string `json:"city"`
	Region    string `json:"region"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"userAgent"`
	Path      string `json:"path"`

	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
	Device  string `json:"device,omitempty"`
	Bot     bool   `json:"bot,omitempty"`
}

type DailyStat struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type CountryStat struct {
	Country string `json:"country"`
	Count   int64  `json:"count"`
}

type ReferrerStat struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
}

// StatsSnapshot is the result of a day or month query. RecentVisitors holds
// decoded Visit values, or the stored string when an entry cannot be decoded.
type StatsSnapshot struct {
	TotalVisitors  int64          `json:"totalVisitors"`
	DailyStats     []DailyStat    `json:"dailyStats"`
	CountryStats   []CountryStat  `json:"countryStats"`
	ReferrerStats  []ReferrerStat `json:"referrerStats"`
	RecentVisitors []any          `json:"recentVisitors"`
}
