package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dustin/luckypick/internal/analytics"
	"github.com/dustin/luckypick/internal/auth"
	"github.com/dustin/luckypick/internal/fortune"
	"github.com/dustin/luckypick/internal/mail"
	"github.com/dustin/luckypick/internal/payment"
	"github.com/dustin/luckypick/internal/reports"
	"github.com/dustin/luckypick/internal/version"
)

const (
	defaultVisitsLimit = 50
	maxVisitsLimit     = 500
)

// Geo headers set by the edge in front of the service.
const (
	headerCountry = "X-Vercel-IP-Country"
	headerCity    = "X-Vercel-IP-City"
	headerRegion  = "X-Vercel-IP-Country-Region"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "ok"
	dbStatus := "connected"
	httpStatus := http.StatusOK

	if err := s.deps.Store.Ping(ctx); err != nil {
		status = "error"
		dbStatus = "disconnected"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSONStatus(w, httpStatus, map[string]any{
		"status":  status,
		"db":      dbStatus,
		"version": version.Version,
	})
}

func (s *Server) handleRobotsTxt(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
}

// handleTrack hands the visit to the tracker and answers without waiting for
// the store. A malformed body still counts the visit.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Referrer string `json:"referrer"`
		Path     string `json:"path"`
	}
	if err := decodeJSON(r, &req); err != nil {
		slog.Debug("track body ignored", "error", err)
	}

	raw := analytics.RawVisit{
		IP:        forwardedIP(r),
		Country:   r.Header.Get(headerCountry),
		City:      unescapeHeader(r.Header.Get(headerCity)),
		Region:    r.Header.Get(headerRegion),
		UserAgent: r.UserAgent(),
		Referrer:  req.Referrer,
		Path:      req.Path,
	}
	accepted := s.deps.Tracker.Track(raw)
	writeJSON(w, map[string]any{"success": accepted})
}

func unescapeHeader(v string) string {
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := analytics.ParsePeriod(q.Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period")
		return
	}

	start := time.Now()
	snap, err := s.deps.Aggregator.Query(r.Context(), period, q.Get("date"))
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordStatsQuery(string(period), err == nil, time.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidDate) {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		slog.Error("stats query failed", "period", period, "date", q.Get("date"), "error", err)
		writeJSONStatus(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "query failed",
			"details": err.Error(),
		})
		return
	}
	writeJSON(w, map[string]any{"success": true, "data": snap})
}

// handleExport serves the same snapshot as handleStats as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := analytics.ParsePeriod(q.Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period")
		return
	}
	format, err := reports.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid format")
		return
	}
	ref := q.Get("date")
	if ref == "" {
		ref = analytics.FormatDate(time.Now())
	}

	snap, err := s.deps.Aggregator.Query(r.Context(), period, ref)
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidDate) {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		slog.Error("export query failed", "period", period, "date", ref, "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	rep := reports.Report{Period: period, Ref: ref, GeneratedAt: time.Now().UTC(), Snapshot: snap}
	w.Header().Set("Content-Type", reports.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reports.Filename(rep, format)))
	if err := reports.Render(w, format, rep); err != nil {
		slog.Warn("export write failed", "error", err)
	}
}

func (s *Server) handleVisits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := q.Get("date")
	if date == "" {
		date = analytics.FormatDate(time.Now())
	}
	day, err := analytics.ParseDay(date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	limit := defaultVisitsLimit
	if l := q.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = min(v, maxVisitsLimit)
		}
	}

	visits, err := s.deps.Aggregator.DayVisits(r.Context(), day, limit)
	if err != nil {
		slog.Error("visit log query failed", "date", date, "error", err)
		writeJSONStatus(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "query failed",
			"details": err.Error(),
		})
		return
	}
	writeJSON(w, map[string]any{
		"success": true,
		"data":    map[string]any{"date": date, "visits": visits},
	})
}

// handleStream sends the recent ring once, then every recorded visit as it
// happens.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.deps.Hub.Subscribe()
	defer cancel()

	if recent, err := s.deps.Aggregator.Recent(r.Context(), analytics.RecentQueryLimit); err == nil {
		if buf, err := json.Marshal(recent); err == nil {
			writeSSE(w, "recent", buf)
		}
	} else {
		slog.Warn("stream snapshot failed", "error", err)
	}
	flusher.Flush()

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		case evt, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, evt.Type, evt.Payload)
			flusher.Flush()
		}
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.recordLogin("malformed")
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	token, err := s.deps.Auth.Login(req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		s.recordLogin("malformed")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.recordLogin("invalid")
		slog.Info("admin login rejected", "ip", extractIP(r))
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		slog.Error("admin login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	s.recordLogin("success")
	s.deps.Auth.SetCookie(w, token)
	writeJSON(w, map[string]any{"success": true, "message": "logged in"})
}

func (s *Server) recordLogin(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordLogin(outcome)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Auth.ClearCookie(w)
	writeJSON(w, map[string]any{"success": true, "message": "logged out"})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	id, err := s.deps.Auth.VerifyRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	noStore(w)
	writeJSON(w, map[string]any{"success": true, "user": id})
}

func (s *Server) handleFortune(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"success": true, "fortune": fortune.Draw()})
}

// handlePaymentConfig tells the checkout widget what to charge.
func (s *Server) handlePaymentConfig(w http.ResponseWriter, r *http.Request) {
	checkout, err := s.deps.Payments.Prepare(payment.PrepareRequest{Amount: s.deps.Payments.Price()})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "payment unavailable")
		return
	}
	writeJSON(w, map[string]any{
		"success":   true,
		"clientKey": checkout.ClientKey,
		"amount":    s.deps.Payments.Price(),
	})
}

func (s *Server) handlePaymentPrepare(w http.ResponseWriter, r *http.Request) {
	var req payment.PrepareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	checkout, err := s.deps.Payments.Prepare(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]any{
		"success":     true,
		"clientKey":   checkout.ClientKey,
		"paymentData": checkout.PaymentData,
	})
}

func (s *Server) handlePaymentConfirm(w http.ResponseWriter, r *http.Request) {
	var req payment.ConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	c := s.deps.Payments.Confirm(req)
	writeJSON(w, map[string]any{
		"success": true,
		"message": c.Message,
		"orderId": c.OrderID,
		"amount":  c.Amount,
	})
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email   string           `json:"email"`
		Fortune *fortune.Fortune `json:"fortune"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	msg, err := mail.Compose(req.Email, req.Fortune)
	if err != nil {
		if errors.Is(err, mail.ErrMissingFields) {
			writeError(w, http.StatusBadRequest, "Email and fortune are required")
			return
		}
		slog.Error("compose email failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	res, err := s.deps.Mailer.Send(ctx, msg)
	if err != nil {
		slog.Error("send email failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to send email")
		return
	}
	body := map[string]any{"success": true, "message": "이메일이 발송되었습니다"}
	if res.TestMode {
		body["message"] = "이메일이 발송되었습니다 (테스트 모드)"
		body["testMode"] = true
	}
	if res.ID != "" {
		body["emailId"] = res.ID
	}
	writeJSON(w, body)
}
