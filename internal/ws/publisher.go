package ws

import (
	"github.com/nabilsaied15/asad-chat-bot/internal/bot"
	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
	"github.com/nabilsaied15/asad-chat-bot/internal/registry"
)

// BotPublisher delivers a persisted bot reply through the hub exactly like
// an agent reply: to the visitor room and to the agent dashboard.
type BotPublisher struct {
	hub *Hub
	reg *registry.Registry
}

func NewBotPublisher(hub *Hub, reg *registry.Registry) *BotPublisher {
	return &BotPublisher{hub: hub, reg: reg}
}

var _ bot.Publisher = (*BotPublisher)(nil)

func (p *BotPublisher) PublishBotReply(visitorID string, msg *domain.Message) {
	p.hub.SendToVisitor(visitorID, map[string]any{
		"type":      "agent_message",
		"text":      msg.Content,
		"fromBot":   true,
		"timestamp": msg.CreatedAt,
	})
	p.hub.BroadcastToAgents(map[string]any{
		"type":      "visitor_message",
		"visitorId": visitorID,
		"text":      msg.Content,
		"fromBot":   true,
		"timestamp": msg.CreatedAt,
	})
	p.hub.BroadcastToAgents(map[string]any{
		"type":     "visitor_list",
		"visitors": p.reg.SnapshotVisitors(),
	})
}
