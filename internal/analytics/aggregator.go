package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Aggregator answers day and month queries from the recorder's counters.
// It only reads.
type Aggregator struct {
	store Store
	now   func() time.Time
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// Query resolves period and ref into a snapshot. An empty ref means today
// (UTC); month queries accept YYYY-MM or any date inside the month.
func (a *Aggregator) Query(ctx context.Context, period Period, ref string) (StatsSnapshot, error) {
	if ref == "" {
		ref = FormatDate(a.now())
	}
	switch period {
	case PeriodDay, "":
		day, err := ParseDay(ref)
		if err != nil {
			return StatsSnapshot{}, err
		}
		return a.Day(ctx, day)
	case PeriodMonth:
		month, err := ParseMonth(ref)
		if err != nil {
			return StatsSnapshot{}, err
		}
		return a.Month(ctx, month.Year(), month.Month())
	default:
		return StatsSnapshot{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
}

// Day returns stats for a single calendar day.
func (a *Aggregator) Day(ctx context.Context, day time.Time) (StatsSnapshot, error) {
	date := day.Format(DateLayout)

	total, err := a.store.Get(ctx, dailyKey(date))
	if err != nil {
		return StatsSnapshot{}, storeErr(err)
	}

	countries := newTally()
	if err := a.collect(ctx, countries, countriesSetKey(date), func(c string) string { return countryKey(date, c) }); err != nil {
		return StatsSnapshot{}, err
	}
	referrers := newTally()
	if err := a.collect(ctx, referrers, referrersSetKey(date), func(r string) string { return referrerKey(date, r) }); err != nil {
		return StatsSnapshot{}, err
	}

	recent, err := a.Recent(ctx, RecentQueryLimit)
	if err != nil {
		return StatsSnapshot{}, err
	}

	return StatsSnapshot{
		TotalVisitors:  total,
		DailyStats:     []DailyStat{{Date: date, Count: total}},
		CountryStats:   countries.countryStats(),
		ReferrerStats:  referrers.referrerStats(),
		RecentVisitors: recent,
	}, nil
}

// Month rolls every day of the month up into one snapshot. The total is the
// sum of the daily counters. Any read failure fails the whole query.
func (a *Aggregator) Month(ctx context.Context, year int, month time.Month) (StatsSnapshot, error) {
	n := DaysInMonth(year, month)
	dates := make([]string, n)
	keys := make([]string, n)
	for d := 1; d <= n; d++ {
		dates[d-1] = time.Date(year, month, d, 0, 0, 0, 0, time.UTC).Format(DateLayout)
		keys[d-1] = dailyKey(dates[d-1])
	}

	counts, err := a.store.MGet(ctx, keys)
	if err != nil {
		return StatsSnapshot{}, storeErr(err)
	}

	snap := StatsSnapshot{DailyStats: make([]DailyStat, n)}
	for i, date := range dates {
		snap.DailyStats[i] = DailyStat{Date: date, Count: counts[i]}
		snap.TotalVisitors += counts[i]
	}

	countries, referrers := newTally(), newTally()
	for _, date := range dates {
		if err := a.collect(ctx, countries, countriesSetKey(date), func(c string) string { return countryKey(date, c) }); err != nil {
			return StatsSnapshot{}, err
		}
		if err := a.collect(ctx, referrers, referrersSetKey(date), func(r string) string { return referrerKey(date, r) }); err != nil {
			return StatsSnapshot{}, err
		}
	}
	snap.CountryStats = countries.countryStats()
	snap.ReferrerStats = referrers.referrerStats()

	snap.RecentVisitors, err = a.Recent(ctx, RecentQueryLimit)
	if err != nil {
		return StatsSnapshot{}, err
	}
	return snap, nil
}

// Recent returns up to limit entries of the global recent ring, newest first.
// It is not scoped to any period.
func (a *Aggregator) Recent(ctx context.Context, limit int) ([]any, error) {
	raw, err := a.store.LRange(ctx, recentKey(), 0, limit-1)
	if err != nil {
		return nil, storeErr(err)
	}
	return decodeVisits(raw), nil
}

// DayVisits returns up to limit entries of the day's detail log, newest first.
func (a *Aggregator) DayVisits(ctx context.Context, day time.Time, limit int) ([]any, error) {
	raw, err := a.store.LRange(ctx, detailKey(day.Format(DateLayout)), 0, limit-1)
	if err != nil {
		return nil, storeErr(err)
	}
	return decodeVisits(raw), nil
}

// collect adds the counter of every member of the dimension set into t.
func (a *Aggregator) collect(ctx context.Context, t *tally, setKey string, counterKey func(string) string) error {
	members, err := a.store.SMembers(ctx, setKey)
	if err != nil {
		return storeErr(err)
	}
	if len(members) == 0 {
		return nil
	}
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = counterKey(m)
	}
	counts, err := a.store.MGet(ctx, keys)
	if err != nil {
		return storeErr(err)
	}
	for i, m := range members {
		t.add(m, counts[i])
	}
	return nil
}

// decodeVisits keeps undecodable entries as their stored string so the
// result never silently shrinks.
func decodeVisits(raw []string) []any {
	out := make([]any, 0, len(raw))
	for _, s := range raw {
		var v Visit
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			out = append(out, s)
			continue
		}
		out = append(out, v)
	}
	return out
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// tally accumulates counts per dimension value, remembering first-seen order
// so equal counts keep a stable order after sorting.
type tally struct {
	order  []string
	counts map[string]int64
}

func newTally() *tally {
	return &tally{counts: make(map[string]int64)}
}

func (t *tally) add(value string, n int64) {
	if _, ok := t.counts[value]; !ok {
		t.order = append(t.order, value)
	}
	t.counts[value] += n
}

func (t *tally) sorted() []string {
	out := append([]string(nil), t.order...)
	sort.SliceStable(out, func(i, j int) bool {
		return t.counts[out[i]] > t.counts[out[j]]
	})
	return out
}

func (t *tally) countryStats() []CountryStat {
	out := make([]CountryStat, 0, len(t.order))
	for _, v := range t.sorted() {
		out = append(out, CountryStat{Country: v, Count: t.counts[v]})
	}
	return out
}

func (t *tally) referrerStats() []ReferrerStat {
	out := make([]ReferrerStat, 0, len(t.order))
	for _, v := range t.sorted() {
		out = append(out, ReferrerStat{Referrer: v, Count: t.counts[v]})
	}
	return out
}
