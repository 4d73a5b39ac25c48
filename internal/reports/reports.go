// Package reports renders stats snapshots for download and for the terminal.
package reports

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dustin/luckypick/internal/analytics"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// ParseFormat accepts json, csv or text. Empty means json.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// Report is a snapshot with the query that produced it.
type Report struct {
	Period      analytics.Period        `json:"period"`
	Ref         string                  `json:"ref"`
	GeneratedAt time.Time               `json:"generatedAt"`
	Snapshot    analytics.StatsSnapshot `json:"data"`
}

// ContentType is the MIME type served for f.
func ContentType(f Format) string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Filename suggests a download name, e.g. luckypick-month-2026-02.csv.
func Filename(r Report, f Format) string {
	ext := string(f)
	if f == FormatText {
		ext = "txt"
	}
	return fmt.Sprintf("luckypick-%s-%s.%s", r.Period, r.Ref, ext)
}

// Render writes r to w in format f.
func Render(w io.Writer, f Format, r Report) error {
	switch f {
	case FormatCSV:
		return renderCSV(w, r)
	case FormatText:
		return renderText(w, r)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
}

// renderCSV writes one row per figure. Recent visitors are not included.
func renderCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"section", "key", "count"},
		{"total", string(r.Period) + ":" + r.Ref, strconv.FormatInt(r.Snapshot.TotalVisitors, 10)},
	}
	for _, d := range r.Snapshot.DailyStats {
		rows = append(rows, []string{"daily", d.Date, strconv.FormatInt(d.Count, 10)})
	}
	for _, c := range r.Snapshot.CountryStats {
		rows = append(rows, []string{"country", c.Country, strconv.FormatInt(c.Count, 10)})
	}
	for _, ref := range r.Snapshot.ReferrerStats {
		rows = append(rows, []string{"referrer", ref.Referrer, strconv.FormatInt(ref.Count, 10)})
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func renderText(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Visitors (%s %s):\t%s\n", r.Period, r.Ref, humanize.Comma(r.Snapshot.TotalVisitors))
	if r.Period == analytics.PeriodMonth {
		fmt.Fprintln(tw, "\nDaily")
		for _, d := range r.Snapshot.DailyStats {
			fmt.Fprintf(tw, "  %s\t%s\n", d.Date, humanize.Comma(d.Count))
		}
	}
	fmt.Fprintln(tw, "\nCountries")
	for _, c := range r.Snapshot.CountryStats {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Country, humanize.Comma(c.Count))
	}
	fmt.Fprintln(tw, "\nReferrers")
	for _, ref := range r.Snapshot.ReferrerStats {
		fmt.Fprintf(tw, "  %s\t%s\n", ref.Referrer, humanize.Comma(ref.Count))
	}
	fmt.Fprintf(tw, "\nRecent visitors:\t%d\n", len(r.Snapshot.RecentVisitors))
	return tw.Flush()
}
