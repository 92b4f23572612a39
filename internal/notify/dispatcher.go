// Package notify fans out visitor messages to email and WhatsApp. Dispatch
// runs off the message-handling critical path: failures are logged, never
// retried, and never surfaced to a connection.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
)

// Defaults is the global fallback recipient set, used when a conversation
// has no pinned agent or the agent has no settings row.
type Defaults struct {
	NotificationEmail string
	WhatsAppNumber    string
}

// Dispatcher resolves the notification policy for a conversation and pushes
// the message through each enabled channel.
type Dispatcher struct {
	settings domain.SettingsRepository
	defaults Defaults
	email    []EmailSender
	timeout  time.Duration
	log      *zap.Logger
}

func NewDispatcher(settings domain.SettingsRepository, defaults Defaults, email []EmailSender, timeout time.Duration, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		settings: settings,
		defaults: defaults,
		email:    email,
		timeout:  timeout,
		log:      log,
	}
}

// Dispatch notifies the assigned agent (or the global default recipient) of
// a visitor message. Muted conversations never dispatch, regardless of
// per-agent settings. Callers run this in its own goroutine.
func (d *Dispatcher) Dispatch(conv *domain.Conversation, text string) {
	if conv.IsMuted {
		return
	}

	emailOn, emailTo, waOn, waNumber := d.resolvePolicy(conv)

	if emailOn && emailTo != "" {
		d.sendEmail(conv, emailTo, text)
	}
	if waOn && waNumber != "" {
		link := WhatsAppLink(waNumber, fmt.Sprintf("Nouveau message asad.to de %s: %s", conv.VisitorID, text))
		d.log.Info("whatsapp alert",
			zap.String("visitor_id", conv.VisitorID),
			zap.String("number", waNumber),
			zap.String("link", link))
	}
}

// resolvePolicy loads the pinned agent's settings at dispatch time, falling
// back to the global defaults. Policy is never cached across dispatches.
func (d *Dispatcher) resolvePolicy(conv *domain.Conversation) (emailOn bool, emailTo string, waOn bool, waNumber string) {
	emailTo = d.defaults.NotificationEmail
	waNumber = d.defaults.WhatsAppNumber
	emailOn = emailTo != ""
	waOn = waNumber != ""

	if conv.AssignedAgentID == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	s, err := d.settings.GetByAgent(ctx, *conv.AssignedAgentID)
	if err != nil {
		d.log.Warn("load agent settings failed, using defaults",
			zap.Int64("agent_id", *conv.AssignedAgentID), zap.Error(err))
		return
	}
	if s == nil {
		return
	}
	emailOn = s.EmailEnabled
	waOn = s.WhatsAppEnabled
	if s.NotificationEmail != "" {
		emailTo = s.NotificationEmail
	}
	if s.WhatsAppNumber != "" {
		waNumber = s.WhatsAppNumber
	}
	return
}

// sendEmail walks the ordered strategy list. Each attempt gets its own
// timeout; the first success stops the walk and every failure is logged.
func (d *Dispatcher) sendEmail(conv *domain.Conversation, to, text string) {
	shortID := conv.VisitorID
	if len(shortID) > 5 {
		shortID = shortID[:5]
	}
	msg := EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("Nouveau message de Visitor %s", shortID),
		Text:    fmt.Sprintf("Vous avez reçu un nouveau message sur asad.to :\n\n%q\n\nRépondez sur votre dashboard.", text),
		HTML: fmt.Sprintf(`<div style="font-family: Arial, sans-serif; padding: 20px;">
			<h2 style="color: #00b06b;">Nouveau message asad.to</h2>
			<p><strong>Visiteur:</strong> %s</p>
			<p><strong>Message:</strong> %q</p>
		</div>`, conv.VisitorID, text),
	}

	for _, sender := range d.email {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := sender.Send(ctx, msg)
		cancel()
		if err == nil {
			d.log.Info("notification email sent",
				zap.String("channel", sender.Name()),
				zap.String("visitor_id", conv.VisitorID))
			return
		}
		d.log.Warn("notification email failed",
			zap.String("channel", sender.Name()),
			zap.String("visitor_id", conv.VisitorID),
			zap.Error(err))
	}
}
