// Package ingest tails a JSON-lines visit log and feeds each line to the
// visit tracker, so visits recorded by another process (an edge function, a
// reverse proxy hook) land in the same counters as tracked page views.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hpcloud/tail"

	"github.com/dustin/luckypick/internal/analytics"
)

// Line outcomes reported to the LineObserver.
const (
	OutcomeAccepted = "accepted"
	OutcomeInvalid  = "invalid"
	OutcomeDropped  = "dropped"
)

// Sink accepts visits for asynchronous recording. analytics.Tracker
// implements it.
type Sink interface {
	Track(raw analytics.RawVisit) bool
}

type LineObserver interface {
	RecordImportLine(outcome string)
}

type Options struct {
	// FromStart reads the file from the beginning instead of only new lines.
	FromStart bool
	// Poll watches the file by polling rather than inotify.
	Poll     bool
	Observer LineObserver
}

type Importer struct {
	path string
	sink Sink
	opts Options
}

func New(path string, sink Sink, opts Options) *Importer {
	return &Importer{path: path, sink: sink, opts: opts}
}

// Start tails the file on a background goroutine until ctx is done.
func (i *Importer) Start(ctx context.Context) {
	go func() {
		if err := i.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("visit log importer stopped", "path", i.path, "error", err)
		}
	}()
}

// Run tails the file until ctx is done. A missing file is waited for.
func (i *Importer) Run(ctx context.Context) error {
	whence := 2
	if i.opts.FromStart {
		whence = 0
	}
	t, err := tail.TailFile(i.path, tail.Config{
		ReOpen:    true,
		Follow:    true,
		Poll:      i.opts.Poll,
		Logger:    tail.DiscardingLogger,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: 0, Whence: whence},
	})
	if err != nil {
		return fmt.Errorf("tail %s: %w", i.path, err)
	}
	defer t.Cleanup()

	slog.Info("tailing visit log", "path", i.path, "from_start", i.opts.FromStart)
	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return ctx.Err()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line == nil {
				continue
			}
			if line.Err != nil {
				slog.Warn("visit log read error", "path", i.path, "error", line.Err)
				continue
			}
			i.handleLine(line.Text)
		}
	}
}

func (i *Importer) handleLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	raw, err := parseLine(line)
	outcome := OutcomeAccepted
	switch {
	case err != nil:
		slog.Debug("skipping malformed visit log line", "path", i.path, "error", err)
		outcome = OutcomeInvalid
	case !i.sink.Track(raw):
		outcome = OutcomeDropped
	}
	if i.opts.Observer != nil {
		i.opts.Observer.RecordImportLine(outcome)
	}
	return outcome
}

type logEntry struct {
	TS         timestamp `json:"ts"`
	IP         string    `json:"ip"`
	RemoteAddr string    `json:"remote_addr"`
	Country    string    `json:"country"`
	City       string    `json:"city"`
	Region     string    `json:"region"`
	UserAgent  string    `json:"userAgent"`
	Referrer   string    `json:"referrer"`
	Path       string    `json:"path"`
}

// timestamp accepts unix seconds (fractional allowed) or an RFC 3339 string.
type timestamp struct{ time.Time }

func (ts *timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parse ts %q: %w", s, err)
		}
		ts.Time = t.UTC()
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("parse ts %s: %w", b, err)
	}
	sec := int64(f)
	ts.Time = time.Unix(sec, int64((f-float64(sec))*1e9)).UTC()
	return nil
}

func parseLine(line string) (analytics.RawVisit, error) {
	var e logEntry
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		return analytics.RawVisit{}, err
	}
	ip := e.IP
	if ip == "" {
		ip = normalizeIP(e.RemoteAddr)
	}
	return analytics.RawVisit{
		Time:      e.TS.Time,
		IP:        ip,
		Country:   e.Country,
		City:      e.City,
		Region:    e.Region,
		UserAgent: e.UserAgent,
		Referrer:  e.Referrer,
		Path:      e.Path,
	}, nil
}

func normalizeIP(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	if strings.Contains(remoteAddr, ":") {
		host, _, err := net.SplitHostPort(remoteAddr)
		if err == nil {
			return host
		}
	}
	return remoteAddr
}
