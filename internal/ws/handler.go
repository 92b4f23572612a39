package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nabilsaied15/asad-chat-bot/internal/bot"
	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
	"github.com/nabilsaied15/asad-chat-bot/internal/notify"
	"github.com/nabilsaied15/asad-chat-bot/internal/registry"
	"github.com/nabilsaied15/asad-chat-bot/internal/service"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	return func(r *http.Request) bool {
		// The widget is embedded on arbitrary customer sites; a wildcard
		// entry opens the relay the way the original did.
		if _, ok := allowed["*"]; ok {
			return true
		}
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// session is the per-connection state of the conversation router. Events on
// one connection are processed strictly in order: the read loop handles each
// inbound event to completion, persistence included, before reading the next.
type session struct {
	connID         string
	role           string // "", "visitor", or "agent"
	visitorID      string
	conversationID int64
}

// MakeHandler returns the /ws endpoint: the conversation router. It
// dispatches inbound session events:
//   - register_visitor -> resolve/create conversation, send chat_history
//   - register_agent   -> join agent room, send visitor_list
//   - visitor_message  -> persist, broadcast, notify, maybe bot-reply
//   - agent_message    -> persist, forward to visitor, clear bot flag
//   - typing           -> forward indicator
func MakeHandler(
	hub *Hub,
	reg *registry.Registry,
	directory *service.Directory,
	messages domain.MessageRepository,
	responder *bot.Responder,
	dispatcher *notify.Dispatcher,
	log *zap.Logger,
	allowedOrigins []string,
) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: makeCheckOrigin(allowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := &client{conn: conn}
		defer conn.Close()

		s := &session{connID: uuid.NewString()}
		ctx := context.Background()

		defer func() {
			reg.Unregister(s.connID)
			switch s.role {
			case "visitor":
				hub.leaveVisitor(s.visitorID, c)
			case "agent":
				hub.leaveAgents(c)
			}
			broadcastPresence(hub, reg)
		}()

		for {
			var payload map[string]any
			if err := conn.ReadJSON(&payload); err != nil {
				break
			}
			event, _ := payload["type"].(string)
			switch event {

			case "register_visitor":
				visitorID, _ := payload["visitorId"].(string)
				if visitorID == "" {
					sendError(c, "register_visitor requires visitorId")
					continue
				}
				siteKey, _ := payload["siteKey"].(string)
				profile := profileFromPayload(payload)

				conv, err := directory.ResolveOrCreateOpen(ctx, visitorID, profile, siteKey)
				if err != nil {
					log.Error("ws: resolve conversation", zap.String("visitor_id", visitorID), zap.Error(err))
					sendError(c, "failed to open conversation")
					continue
				}
				// Re-registering under a new identity must leave the old
				// room, or the connection keeps receiving its traffic.
				if s.role == "visitor" && s.visitorID != "" && s.visitorID != visitorID {
					hub.leaveVisitor(s.visitorID, c)
				}
				s.role = "visitor"
				s.visitorID = visitorID
				s.conversationID = conv.ID

				reg.RegisterVisitor(s.connID, registry.VisitorPresence{
					VisitorID:      visitorID,
					ConversationID: conv.ID,
					FirstName:      conv.FirstName,
					LastName:       conv.LastName,
				})
				hub.joinVisitor(visitorID, c)

				history, err := messages.ListByConversation(ctx, conv.ID)
				if err != nil {
					log.Error("ws: load history", zap.Int64("conversation_id", conv.ID), zap.Error(err))
				} else {
					_ = c.send(map[string]any{"type": "chat_history", "messages": history})
				}
				hub.BroadcastToAgents(map[string]any{"type": "visitor_list", "visitors": reg.SnapshotVisitors()})

			case "register_agent":
				agentIDf, _ := payload["agentId"].(float64)
				name, _ := payload["name"].(string)
				s.role = "agent"
				reg.RegisterAgent(s.connID, int64(agentIDf), name)
				hub.joinAgents(c)
				_ = c.send(map[string]any{"type": "visitor_list", "visitors": reg.SnapshotVisitors()})
				hub.BroadcastToAgents(map[string]any{"type": "agent_list", "agents": reg.SnapshotAgents()})

			case "visitor_message":
				if s.role != "visitor" {
					sendError(c, "not registered as a visitor")
					continue
				}
				text, _ := payload["text"].(string)
				if text == "" {
					continue
				}

				conv, err := directory.Get(ctx, s.conversationID)
				if err != nil {
					if errors.Is(err, domain.ErrConversationNotFound) {
						sendError(c, "conversation no longer exists")
						continue
					}
					log.Error("ws: load conversation", zap.Int64("conversation_id", s.conversationID), zap.Error(err))
					sendError(c, "message not sent")
					continue
				}

				msg := &domain.Message{
					ConversationID: conv.ID,
					Sender:         domain.SenderVisitor,
					Content:        text,
				}
				if err := messages.Append(ctx, msg); err != nil {
					// Persistence failure is fatal to this message only; the
					// sender must see it, the process must not.
					log.Error("ws: persist visitor message", zap.Int64("conversation_id", conv.ID), zap.Error(err))
					sendError(c, "message not sent")
					continue
				}

				reg.UpdateLastMessage(s.connID, domain.SenderVisitor, text, msg.CreatedAt)
				hub.BroadcastToAgents(map[string]any{"type": "visitor_list", "visitors": reg.SnapshotVisitors()})
				hub.BroadcastToAgents(map[string]any{
					"type":      "visitor_message",
					"visitorId": s.visitorID,
					"text":      text,
					"timestamp": msg.CreatedAt,
					"isMuted":   conv.IsMuted,
				})

				if !conv.IsMuted {
					go dispatcher.Dispatch(conv, text)
				}
				responder.Trigger(conv.ID, s.visitorID, text)

			case "agent_message":
				if s.role != "agent" {
					sendError(c, "not registered as an agent")
					continue
				}
				visitorID, _ := payload["visitorId"].(string)
				text, _ := payload["text"].(string)
				if visitorID == "" || text == "" {
					sendError(c, "agent_message requires visitorId and text")
					continue
				}

				conv, err := directory.FindOpenByVisitor(ctx, visitorID)
				if err != nil {
					log.Error("ws: find open conversation", zap.String("visitor_id", visitorID), zap.Error(err))
					sendError(c, "message not sent")
					continue
				}
				if conv == nil {
					sendError(c, "no open conversation for this visitor")
					continue
				}
				msg := &domain.Message{
					ConversationID: conv.ID,
					Sender:         domain.SenderAgent,
					Content:        text,
				}
				if err := messages.Append(ctx, msg); err != nil {
					log.Error("ws: persist agent message", zap.Int64("conversation_id", conv.ID), zap.Error(err))
					sendError(c, "message not sent")
					continue
				}
				// A human reply always clears the bot-active flag.
				reg.SetBotActive(visitorID, false)
				reg.SetLastMessageByVisitor(visitorID, domain.SenderAgent, text, msg.CreatedAt)
				hub.BroadcastToAgents(map[string]any{"type": "visitor_list", "visitors": reg.SnapshotVisitors()})
				hub.SendToVisitor(visitorID, map[string]any{
					"type":      "agent_message",
					"text":      text,
					"timestamp": msg.CreatedAt,
				})

			case "typing":
				isAgent, _ := payload["isAgent"].(bool)
				if isAgent {
					visitorID, _ := payload["visitorId"].(string)
					if visitorID != "" {
						hub.SendToVisitor(visitorID, map[string]any{"type": "typing", "isAgent": true})
					}
				} else if s.role == "visitor" {
					hub.BroadcastToAgents(map[string]any{"type": "typing", "visitorId": s.visitorID})
				}

			default:
				log.Debug("ws: unknown event", zap.String("event", event), zap.String("conn_id", s.connID))
			}
		}
	}
}

func broadcastPresence(hub *Hub, reg *registry.Registry) {
	hub.BroadcastToAgents(map[string]any{"type": "visitor_list", "visitors": reg.SnapshotVisitors()})
	hub.BroadcastToAgents(map[string]any{"type": "agent_list", "agents": reg.SnapshotAgents()})
}

func profileFromPayload(payload map[string]any) domain.VisitorProfile {
	return domain.VisitorProfile{
		FirstName:     optString(payload, "firstName"),
		LastName:      optString(payload, "lastName"),
		ContactNumber: optString(payload, "contactNumber"),
		Problem:       optString(payload, "problem"),
	}
}

func optString(payload map[string]any, key string) *string {
	if v, ok := payload[key].(string); ok && v != "" {
		return &v
	}
	return nil
}

func sendError(c *client, msg string) {
	_ = c.send(map[string]any{
		"type":    "error",
		"message": msg,
	})
}
