// Package bot implements the keyword auto-responder. It watches visitor text
// for known keywords and, after a short artificial delay, persists and
// publishes a canned reply the same way an agent reply flows.
package bot

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
	"github.com/nabilsaied15/asad-chat-bot/internal/registry"
)

// Reply pairs a lowercase substring keyword with its canned response.
type Reply struct {
	Keyword string
	Text    string
}

// DefaultReplies is the production keyword table. Order matters: the first
// matching entry wins and iteration stops.
var DefaultReplies = []Reply{
	{"prix", "Le service de base asad.to est 100% gratuit à vie ! Nous proposons des options premium pour la personnalisation avancée."},
	{"contact", "Vous pouvez nous contacter à support@asad.to ou appeler notre bureau à Bourg-la-Reine."},
	{"aide", "Je peux vous aider à configurer votre widget, gérer vos agents ou personnaliser vos réponses automatiques."},
	{"bonjour", "Bonjour ! Je suis l'assistant asad.to (Bourg-la-Reine). Comment puis-je vous aider ?"},
	{"hello", "Hi! I am the asad.to assistant. How can I help you today?"},
}

// Publisher delivers a persisted bot reply to the visitor's connections and
// the agent room.
type Publisher interface {
	PublishBotReply(visitorID string, msg *domain.Message)
}

// Responder schedules delayed canned replies.
type Responder struct {
	replies       []Reply
	delay         time.Duration
	messages      domain.MessageRepository
	conversations domain.ConversationRepository
	reg           *registry.Registry
	pub           Publisher
	log           *zap.Logger
}

func NewResponder(
	replies []Reply,
	delay time.Duration,
	messages domain.MessageRepository,
	conversations domain.ConversationRepository,
	reg *registry.Registry,
	pub Publisher,
	log *zap.Logger,
) *Responder {
	if replies == nil {
		replies = DefaultReplies
	}
	return &Responder{
		replies:       replies,
		delay:         delay,
		messages:      messages,
		conversations: conversations,
		reg:           reg,
		pub:           pub,
		log:           log,
	}
}

// Match returns the canned reply for the first keyword contained in text,
// or "" when nothing matches.
func (r *Responder) Match(text string) string {
	lower := strings.ToLower(text)
	for _, reply := range r.replies {
		if strings.Contains(lower, reply.Keyword) {
			return reply.Text
		}
	}
	return ""
}

// Trigger inspects a visitor message and, on a keyword match, schedules the
// reply after the configured delay. It never blocks or delays the normal
// visitor-to-agent broadcast. Returns whether a reply was scheduled.
func (r *Responder) Trigger(conversationID int64, visitorID, text string) bool {
	response := r.Match(text)
	if response == "" {
		return false
	}
	time.AfterFunc(r.delay, func() {
		r.fire(conversationID, visitorID, response)
	})
	return true
}

// fire runs once the delay elapses. The conversation may have been deleted
// in the meantime, so existence is re-checked before the append.
func (r *Responder) fire(conversationID int64, visitorID, response string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conv, err := r.conversations.GetByID(ctx, conversationID)
	if err != nil {
		r.log.Error("bot: conversation lookup failed", zap.Int64("conversation_id", conversationID), zap.Error(err))
		return
	}
	if conv == nil || conv.Status == domain.StatusDeleted {
		r.log.Debug("bot: conversation gone, reply dropped", zap.Int64("conversation_id", conversationID))
		return
	}

	msg := &domain.Message{
		ConversationID: conversationID,
		Sender:         domain.SenderBot,
		Content:        response,
	}
	if err := r.messages.Append(ctx, msg); err != nil {
		r.log.Error("bot: persist reply failed", zap.Int64("conversation_id", conversationID), zap.Error(err))
		return
	}

	r.reg.SetBotActive(visitorID, true)
	r.reg.SetLastMessageByVisitor(visitorID, domain.SenderBot, response, msg.CreatedAt)
	r.pub.PublishBotReply(visitorID, msg)
}
