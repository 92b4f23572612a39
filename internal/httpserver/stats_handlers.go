package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
	"github.com/nabilsaied15/asad-chat-bot/internal/registry"
)

type insertStatRequest struct {
	EventType string `json:"event_type"`
	VisitorID string `json:"visitor_id"`
}

func handleInsertStat(stats domain.StatsRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req insertStatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if req.EventType == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "event_type is required"})
			return
		}
		if err := stats.Insert(r.Context(), req.EventType, req.VisitorID); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record event"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"message": "recorded"})
	}
}

func handleStatsSummary(stats domain.StatsRepository, messages domain.MessageRepository, reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clicks, err := stats.CountByEvent(r.Context(), "site_click")
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load stats"})
			return
		}
		agentMessages, err := messages.CountBySender(r.Context(), domain.SenderAgent)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load stats"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"totalClicks":        clicks,
			"onlineVisitors":     reg.VisitorCount(),
			"totalAgentMessages": agentMessages,
		})
	}
}

func handleMessagesByDay(messages domain.MessageRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := messages.MessagesByDay(r.Context(), 7)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load stats"})
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}
