package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
)

// EmailMessage is a rendered notification email.
type EmailMessage struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// EmailSender is one delivery strategy. The dispatcher tries senders in
// order with independent timeouts; the first success wins.
type EmailSender interface {
	Name() string
	Send(ctx context.Context, m EmailMessage) error
}

// APISender delivers through a transactional email HTTP API.
type APISender struct {
	URL    string
	APIKey string
	From   string
	Client *http.Client
}

func (s *APISender) Name() string { return "email-api" }

func (s *APISender) Send(ctx context.Context, m EmailMessage) error {
	body, err := json.Marshal(map[string]string{
		"from":    s.From,
		"to":      m.To,
		"subject": m.Subject,
		"text":    m.Text,
		"html":    m.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("email api request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("email api returned %s", resp.Status)
	}
	return nil
}

// SMTPSender delivers through direct SMTP, the fallback path when the HTTP
// API is down or unconfigured.
type SMTPSender struct {
	Host string
	Port int
	User string
	Pass string
}

func (s *SMTPSender) Name() string { return "smtp" }

func (s *SMTPSender) Send(ctx context.Context, m EmailMessage) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	auth := smtp.PlainAuth("", s.User, s.Pass, s.Host)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.User)
	fmt.Fprintf(&msg, "To: %s\r\n", m.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", m.Subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(m.Text)

	// net/smtp has no context support; run the send in a goroutine and
	// abandon it if the deadline passes first.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, s.User, []string{m.To}, []byte(msg.String()))
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
