package server

import "net/http"

// The service answers JSON and SSE only; pages are served elsewhere.
const contentSecurityPolicy = "default-src 'none'; " +
	"frame-ancestors 'none'; " +
	"form-action 'none'; " +
	"base-uri 'none'"

// setSecurityHeaders adds security-related headers to the response.
func setSecurityHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Security-Policy", contentSecurityPolicy)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	// Prevent search engine indexing
	h.Set("X-Robots-Tag", "noindex, nofollow")
}

// noStore marks authenticated responses as uncacheable.
func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}
