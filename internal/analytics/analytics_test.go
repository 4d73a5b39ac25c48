package analytics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dustin/luckypick/internal/storage"
)

// setupTestStore creates a temporary SQLite-backed store for testing
func setupTestStore(t *testing.T) (*storage.Storage, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "luckypick-analytics-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	s, err := storage.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to create storage: %v", err)
	}
	return s, func() {
		s.Close()
		os.RemoveAll(tmpDir)
	}
}

func at(date string, hour int) time.Time {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour) * time.Hour)
}

// failingStore fails every operation.
type failingStore struct{ err error }

func (f failingStore) Incr(context.Context, string) (int64, error)    { return 0, f.err }
func (f failingStore) Get(context.Context, string) (int64, error)     { return 0, f.err }
func (f failingStore) MGet(context.Context, []string) ([]int64, error) { return nil, f.err }
func (f failingStore) LPush(context.Context, string, string, int) error {
	return f.err
}
func (f failingStore) LRange(context.Context, string, int, int) ([]string, error) {
	return nil, f.err
}
func (f failingStore) SAdd(context.Context, string, string) error          { return f.err }
func (f failingStore) SMembers(context.Context, string) ([]string, error) { return nil, f.err }

type fakeGeo struct{ calls int }

func (g *fakeGeo) Resolve(ip string) (string, string, string, bool) {
	g.calls++
	if ip == "81.2.69.142" {
		return "GB", "England", "London", true
	}
	return "", "", "", false
}

func TestRecordAndQueryDay(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	rec := NewRecorder(s, RecorderOptions{})
	visits := []RawVisit{
		{Time: at("2026-01-10", 9), IP: "1.1.1.1", Country: "KR"},
		{Time: at("2026-01-10", 10), IP: "1.1.1.2", Country: "KR", Referrer: "not a url"},
		{Time: at("2026-01-10", 11), IP: "1.1.1.3", Country: "US", Referrer: "https://google.com/search?q=fortune"},
	}
	for _, v := range visits {
		if _, err := rec.Record(ctx, v); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	agg := NewAggregator(s)
	snap, err := agg.Query(ctx, PeriodDay, "2026-01-10")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if snap.TotalVisitors != 3 {
		t.Errorf("TotalVisitors = %d, want 3", snap.TotalVisitors)
	}
	if len(snap.DailyStats) != 1 || snap.DailyStats[0] != (DailyStat{Date: "2026-01-10", Count: 3}) {
		t.Errorf("DailyStats = %+v, want single 2026-01-10/3", snap.DailyStats)
	}

	wantCountries := []CountryStat{{"KR", 2}, {"US", 1}}
	if len(snap.CountryStats) != len(wantCountries) {
		t.Fatalf("CountryStats = %+v, want %+v", snap.CountryStats, wantCountries)
	}
	for i, want := range wantCountries {
		if snap.CountryStats[i] != want {
			t.Errorf("CountryStats[%d] = %+v, want %+v", i, snap.CountryStats[i], want)
		}
	}

	wantReferrers := []ReferrerStat{{"direct", 2}, {"google.com", 1}}
	if len(snap.ReferrerStats) != len(wantReferrers) {
		t.Fatalf("ReferrerStats = %+v, want %+v", snap.ReferrerStats, wantReferrers)
	}
	for i, want := range wantReferrers {
		if snap.ReferrerStats[i] != want {
			t.Errorf("ReferrerStats[%d] = %+v, want %+v", i, snap.ReferrerStats[i], want)
		}
	}

	if len(snap.RecentVisitors) != 3 {
		t.Fatalf("RecentVisitors len = %d, want 3", len(snap.RecentVisitors))
	}
	newest, ok := snap.RecentVisitors[0].(Visit)
	if !ok {
		t.Fatalf("RecentVisitors[0] type = %T, want Visit", snap.RecentVisitors[0])
	}
	if newest.Country != "US" {
		t.Errorf("newest visit country = %q, want US", newest.Country)
	}
	// The visit keeps the raw referrer; only the counter uses the host.
	if newest.Referrer != "https://google.com/search?q=fortune" {
		t.Errorf("stored referrer = %q, want raw URL", newest.Referrer)
	}
}

func TestRecord_Defaults(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	now := at("2026-03-05", 23)
	rec := NewRecorder(s, RecorderOptions{Now: func() time.Time { return now }})
	v, err := rec.Record(ctx, RawVisit{})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if v.Date != "2026-03-05" {
		t.Errorf("Date = %q, want 2026-03-05", v.Date)
	}
	if v.Timestamp != now.UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", v.Timestamp, now.UnixMilli())
	}
	for name, got := range map[string]string{
		"IP": v.IP, "Country": v.Country, "City": v.City, "Region": v.Region, "UserAgent": v.UserAgent,
	} {
		if got != "unknown" {
			t.Errorf("%s = %q, want unknown", name, got)
		}
	}
	if v.Referrer != "direct" {
		t.Errorf("Referrer = %q, want direct", v.Referrer)
	}
	if v.Path != "/" {
		t.Errorf("Path = %q, want /", v.Path)
	}

	n, _ := s.Get(ctx, "visitors:country:2026-03-05:unknown")
	if n != 1 {
		t.Errorf("unknown country counter = %d, want 1", n)
	}
}

func TestRecord_UsesUTCDate(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	seoul := time.FixedZone("KST", 9*60*60)
	rec := NewRecorder(s, RecorderOptions{})
	v, err := rec.Record(context.Background(), RawVisit{Time: time.Date(2026, 1, 11, 8, 0, 0, 0, seoul)})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if v.Date != "2026-01-10" {
		t.Errorf("Date = %q, want UTC date 2026-01-10", v.Date)
	}
}

func TestRecord_DailyCounterEqualsVisits(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	rec := NewRecorder(s, RecorderOptions{})
	for i := 0; i < 37; i++ {
		country := []string{"KR", "US", "JP"}[i%3]
		if _, err := rec.Record(ctx, RawVisit{Time: at("2026-04-01", i%24), Country: country}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	snap, err := NewAggregator(s).Query(ctx, PeriodDay, "2026-04-01")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if snap.TotalVisitors != 37 {
		t.Errorf("TotalVisitors = %d, want 37", snap.TotalVisitors)
	}

	var sum int64
	for i, c := range snap.CountryStats {
		sum += c.Count
		if i > 0 && snap.CountryStats[i-1].Count < c.Count {
			t.Errorf("CountryStats not sorted descending: %+v", snap.CountryStats)
		}
	}
	if sum != snap.TotalVisitors {
		t.Errorf("sum of country counts = %d, want %d", sum, snap.TotalVisitors)
	}

	detail, err := s.LRange(ctx, "visitors:detail:2026-04-01", 0, -1)
	if err != nil {
		t.Fatalf("LRange() error = %v", err)
	}
	if len(detail) != 37 {
		t.Errorf("detail log len = %d, want 37", len(detail))
	}
}

func TestRecord_RecentRingCapped(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	rec := NewRecorder(s, RecorderOptions{})
	base := at("2026-05-01", 0)
	for i := 0; i < 120; i++ {
		raw := RawVisit{Time: base.Add(time.Duration(i) * time.Minute), Path: fmt.Sprintf("/p/%d", i)}
		if _, err := rec.Record(ctx, raw); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if i == 49 {
			ring, _ := s.LRange(ctx, "visitors:recent", 0, -1)
			if len(ring) != 50 {
				t.Errorf("ring len after 50 visits = %d, want 50", len(ring))
			}
		}
	}

	agg := NewAggregator(s)
	all, err := agg.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(all) != RecentCap {
		t.Fatalf("ring len = %d, want %d", len(all), RecentCap)
	}
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1].(Visit), all[i].(Visit)
		if cur.Timestamp >= prev.Timestamp {
			t.Fatalf("ring not newest first at %d: %d then %d", i, prev.Timestamp, cur.Timestamp)
		}
	}
	if first := all[0].(Visit); first.Path != "/p/119" {
		t.Errorf("newest path = %q, want /p/119", first.Path)
	}

	snap, err := agg.Query(ctx, PeriodDay, "2026-05-01")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(snap.RecentVisitors) != RecentQueryLimit {
		t.Errorf("RecentVisitors len = %d, want %d", len(snap.RecentVisitors), RecentQueryLimit)
	}
}

func TestQueryMonth_NonLeapFebruary(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	rec := NewRecorder(s, RecorderOptions{})
	for _, raw := range []RawVisit{
		{Time: at("2026-01-31", 12), Country: "KR"},
		{Time: at("2026-02-01", 12), Country: "KR", Referrer: "https://www.instagram.com/p/x"},
		{Time: at("2026-02-14", 12), Country: "JP"},
		{Time: at("2026-02-14", 13), Country: "KR"},
		{Time: at("2026-02-28", 12), Country: "JP"},
		{Time: at("2026-02-28", 13), Country: "JP", Referrer: "https://www.instagram.com/"},
		{Time: at("2026-03-01", 0), Country: "US"},
	} {
		if _, err := rec.Record(ctx, raw); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	snap, err := NewAggregator(s).Query(ctx, PeriodMonth, "2026-02")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(snap.DailyStats) != 28 {
		t.Fatalf("DailyStats len = %d, want 28", len(snap.DailyStats))
	}
	if snap.DailyStats[0].Date != "2026-02-01" || snap.DailyStats[27].Date != "2026-02-28" {
		t.Errorf("DailyStats range = %s..%s", snap.DailyStats[0].Date, snap.DailyStats[27].Date)
	}
	if snap.TotalVisitors != 5 {
		t.Errorf("TotalVisitors = %d, want 5", snap.TotalVisitors)
	}
	if snap.DailyStats[27].Count != 2 {
		t.Errorf("2026-02-28 count = %d, want 2", snap.DailyStats[27].Count)
	}

	if len(snap.CountryStats) != 2 || snap.CountryStats[0] != (CountryStat{"JP", 3}) || snap.CountryStats[1] != (CountryStat{"KR", 2}) {
		t.Errorf("CountryStats = %+v, want [JP 3, KR 2]", snap.CountryStats)
	}
	if len(snap.ReferrerStats) != 2 || snap.ReferrerStats[0] != (ReferrerStat{"direct", 3}) || snap.ReferrerStats[1] != (ReferrerStat{"www.instagram.com", 2}) {
		t.Errorf("ReferrerStats = %+v, want [direct 3, www.instagram.com 2]", snap.ReferrerStats)
	}

	// Recent visitors are global, not scoped to the month.
	if len(snap.RecentVisitors) != 7 {
		t.Errorf("RecentVisitors len = %d, want 7", len(snap.RecentVisitors))
	}
}

func TestQueryMonth_LeapFebruary(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	rec := NewRecorder(s, RecorderOptions{})
	if _, err := rec.Record(ctx, RawVisit{Time: at("2028-02-29", 8)}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	// A full date inside the month selects that month.
	snap, err := NewAggregator(s).Query(ctx, PeriodMonth, "2028-02-10")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(snap.DailyStats) != 29 {
		t.Errorf("DailyStats len = %d, want 29", len(snap.DailyStats))
	}
	if snap.TotalVisitors != 1 {
		t.Errorf("TotalVisitors = %d, want 1", snap.TotalVisitors)
	}
}

func TestQueryMonth_IgnoresLegacyCounter(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	rec := NewRecorder(s, RecorderOptions{LegacyMonthlyCounter: true})
	for i := 0; i < 2; i++ {
		if _, err := rec.Record(ctx, RawVisit{Time: at("2026-06-15", i)}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	// Drift the legacy counter away from the daily sum.
	for i := 0; i < 5; i++ {
		s.Incr(ctx, "visitors:month:2026-06")
	}

	legacy, _ := s.Get(ctx, "visitors:month:2026-06")
	if legacy != 7 {
		t.Fatalf("legacy counter = %d, want 7", legacy)
	}

	snap, err := NewAggregator(s).Query(ctx, PeriodMonth, "2026-06")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if snap.TotalVisitors != 2 {
		t.Errorf("TotalVisitors = %d, want summed daily value 2", snap.TotalVisitors)
	}
}

func TestRecord_NoLegacyCounterByDefault(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := NewRecorder(s, RecorderOptions{}).Record(ctx, RawVisit{Time: at("2026-06-15", 1)}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if n, _ := s.Get(ctx, "visitors:month:2026-06"); n != 0 {
		t.Errorf("monthly counter = %d, want 0 when legacy counter is off", n)
	}
}

func TestQuery_EmptyPeriods(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	agg := NewAggregator(s)

	for _, tc := range []struct {
		period Period
		ref    string
		days   int
	}{
		{PeriodDay, "1999-12-31", 1},
		{PeriodMonth, "1999-11", 30},
	} {
		snap, err := agg.Query(ctx, tc.period, tc.ref)
		if err != nil {
			t.Fatalf("Query(%s, %s) error = %v", tc.period, tc.ref, err)
		}
		if snap.TotalVisitors != 0 {
			t.Errorf("TotalVisitors = %d, want 0", snap.TotalVisitors)
		}
		if len(snap.DailyStats) != tc.days {
			t.Errorf("DailyStats len = %d, want %d", len(snap.DailyStats), tc.days)
		}
		if snap.CountryStats == nil || len(snap.CountryStats) != 0 {
			t.Errorf("CountryStats = %v, want empty slice", snap.CountryStats)
		}
		if snap.ReferrerStats == nil || len(snap.ReferrerStats) != 0 {
			t.Errorf("ReferrerStats = %v, want empty slice", snap.ReferrerStats)
		}
		if snap.RecentVisitors == nil {
			t.Error("RecentVisitors should be an empty slice, not nil")
		}
	}
}

func TestQuery_DefaultsToToday(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	now := at("2026-07-04", 15)
	rec := NewRecorder(s, RecorderOptions{Now: func() time.Time { return now }})
	rec.Record(ctx, RawVisit{})

	agg := NewAggregator(s)
	agg.now = func() time.Time { return now }
	snap, err := agg.Query(ctx, PeriodDay, "")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if snap.DailyStats[0].Date != "2026-07-04" || snap.TotalVisitors != 1 {
		t.Errorf("Query(today) = %+v, want 2026-07-04 with 1 visit", snap.DailyStats)
	}
}

func TestQuery_InvalidInput(t *testing.T) {
	agg := NewAggregator(failingStore{err: errors.New("unused")})
	tests := []struct {
		period Period
		ref    string
		want   error
	}{
		{PeriodDay, "2026-13-01", ErrInvalidDate},
		{PeriodDay, "yesterday", ErrInvalidDate},
		{PeriodMonth, "2026", ErrInvalidDate},
		{PeriodMonth, "2026-02-31", ErrInvalidDate},
		{Period("week"), "2026-01-01", ErrInvalidPeriod},
	}
	for _, tt := range tests {
		_, err := agg.Query(context.Background(), tt.period, tt.ref)
		if !errors.Is(err, tt.want) {
			t.Errorf("Query(%q, %q) error = %v, want %v", tt.period, tt.ref, err, tt.want)
		}
	}
}

func TestStoreFailures(t *testing.T) {
	cause := errors.New("connection refused")
	store := failingStore{err: cause}
	ctx := context.Background()

	v, err := NewRecorder(store, RecorderOptions{}).Record(ctx, RawVisit{Time: at("2026-01-10", 1), Country: "KR"})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Record() error = %v, want ErrStoreUnavailable", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Record() error = %v, want underlying cause", err)
	}
	if v.Country != "KR" {
		t.Errorf("Record() visit = %+v, want normalized visit even on failure", v)
	}

	agg := NewAggregator(store)
	for _, p := range []Period{PeriodDay, PeriodMonth} {
		_, err := agg.Query(ctx, p, "2026-01-10")
		if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, cause) {
			t.Errorf("Query(%s) error = %v, want ErrStoreUnavailable wrapping cause", p, err)
		}
	}
}

func TestRecent_PassesThroughUndecodable(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	rec := NewRecorder(s, RecorderOptions{})
	rec.Record(ctx, RawVisit{Time: at("2026-01-10", 1)})
	if err := s.LPush(ctx, "visitors:recent", "{broken", RecentCap); err != nil {
		t.Fatalf("LPush() error = %v", err)
	}

	got, err := NewAggregator(s).Recent(ctx, RecentQueryLimit)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent() len = %d, want 2", len(got))
	}
	if s, ok := got[0].(string); !ok || s != "{broken" {
		t.Errorf("Recent()[0] = %#v, want raw string", got[0])
	}
	if _, ok := got[1].(Visit); !ok {
		t.Errorf("Recent()[1] type = %T, want Visit", got[1])
	}
}

func TestDayVisits(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	rec := NewRecorder(s, RecorderOptions{})
	for i := 0; i < 5; i++ {
		rec.Record(ctx, RawVisit{Time: at("2026-08-08", i), Path: fmt.Sprintf("/%d", i)})
	}
	rec.Record(ctx, RawVisit{Time: at("2026-08-09", 0)})

	day, _ := ParseDay("2026-08-08")
	got, err := NewAggregator(s).DayVisits(ctx, day, 3)
	if err != nil {
		t.Fatalf("DayVisits() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("DayVisits() len = %d, want 3", len(got))
	}
	if v := got[0].(Visit); v.Path != "/4" {
		t.Errorf("DayVisits()[0].Path = %q, want /4", v.Path)
	}
}

func TestRecord_GeoFallbackAndAnonymize(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	geo := &fakeGeo{}
	rec := NewRecorder(s, RecorderOptions{Geo: geo, AnonymizeIP: true})

	v, err := rec.Record(ctx, RawVisit{Time: at("2026-01-10", 1), IP: "81.2.69.142", Country: "unknown"})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if v.Country != "GB" || v.Region != "England" || v.City != "London" {
		t.Errorf("geo fields = %s/%s/%s, want GB/England/London", v.Country, v.Region, v.City)
	}
	if v.IP != "81.2.69.0" {
		t.Errorf("IP = %q, want anonymized 81.2.69.0", v.IP)
	}

	// Edge-supplied geo wins over the database.
	v, _ = rec.Record(ctx, RawVisit{Time: at("2026-01-10", 2), IP: "81.2.69.142", Country: "KR", City: "Seoul"})
	if v.Country != "KR" || v.City != "Seoul" {
		t.Errorf("geo fields = %s/%s, want edge values KR/Seoul", v.Country, v.City)
	}
	if geo.calls != 1 {
		t.Errorf("geo calls = %d, want 1", geo.calls)
	}
}

func TestRecord_UserAgentEnrichment(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	rec := NewRecorder(s, RecorderOptions{})
	v, err := rec.Record(context.Background(), RawVisit{
		Time:      at("2026-01-10", 1),
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if v.Device != "mobile" {
		t.Errorf("Device = %q, want mobile", v.Device)
	}
	if v.Browser != "Safari" {
		t.Errorf("Browser = %q, want Safari", v.Browser)
	}
	if v.Bot {
		t.Error("Bot should be false for a phone browser")
	}
}

func TestReferrerHost(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "direct"},
		{"direct", "direct"},
		{"https://google.com/search?q=x", "google.com"},
		{"https://WWW.Naver.com/", "www.naver.com"},
		{"http://[2001:db8::1]:8080/x", "2001:db8::1"},
		{"google.com", "direct"},
		{"://bad", "direct"},
	}
	for _, tt := range tests {
		if got := ReferrerHost(tt.in); got != tt.want {
			t.Errorf("ReferrerHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2026, time.January, 31},
		{2026, time.February, 28},
		{2028, time.February, 29},
		{2000, time.February, 29},
		{2100, time.February, 28},
		{2026, time.April, 30},
		{2026, time.December, 31},
	}
	for _, tt := range tests {
		if got := DaysInMonth(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysInMonth(%d, %s) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"", PeriodDay, false},
		{"day", PeriodDay, false},
		{"MONTH", PeriodMonth, false},
		{"year", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePeriod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePeriod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePeriod(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"203.0.113.77", "203.0.113.0"},
		{"2001:db8::1234", "2001:db8::0"},
		{"unknown", ""},
	}
	for _, tt := range tests {
		if got := anonymizeIP(tt.in); got != tt.want {
			t.Errorf("anonymizeIP(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
