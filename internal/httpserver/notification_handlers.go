package httpserver

import (
	"net/http"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
)

const unreadNotificationLimit = 10

func handleUnreadNotifications(messages domain.MessageRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latest, total, err := messages.CountUnreadGlobal(r.Context(), unreadNotificationLimit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load notifications"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"latest": latest,
			"total":  total,
		})
	}
}
