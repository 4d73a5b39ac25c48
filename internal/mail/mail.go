// Package mail renders the fortune email and hands it to a Mailer. The only
// Mailer shipped logs the message instead of delivering it.
package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/dustin/luckypick/internal/fortune"
)

// ErrMissingFields is returned when the recipient or the fortune is absent.
var ErrMissingFields = errors.New("email and fortune are required")

//go:embed templates/fortune.html
var templateFS embed.FS

var fortuneTmpl = template.Must(template.New("fortune.html").Funcs(template.FuncMap{
	"gradient": func(c fortune.Category) template.CSS { return template.CSS(fortune.Gradient(string(c))) },
}).ParseFS(templateFS, "templates/fortune.html"))

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Result describes what a Mailer did with a message.
type Result struct {
	ID       string
	TestMode bool
}

type Mailer interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// Compose validates the request and renders the message for f.
func Compose(to string, f *fortune.Fortune) (Message, error) {
	to = strings.TrimSpace(to)
	if to == "" || f == nil {
		return Message{}, ErrMissingFields
	}
	var buf bytes.Buffer
	if err := fortuneTmpl.Execute(&buf, f); err != nil {
		return Message{}, fmt.Errorf("render fortune email: %w", err)
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("🐴 %s - 당신의 2026년 덕담", f.Title),
		HTML:    buf.String(),
	}, nil
}

// LogMailer logs messages instead of sending them.
type LogMailer struct {
	// ProviderConfigured records whether a delivery API key was supplied. It is
	// logged only; delivery stays simulated either way.
	ProviderConfigured bool
}

func (m LogMailer) Send(_ context.Context, msg Message) (Result, error) {
	slog.Info("email simulated",
		"to", msg.To,
		"subject", msg.Subject,
		"bytes", len(msg.HTML),
		"provider_configured", m.ProviderConfigured,
	)
	return Result{TestMode: true}, nil
}
