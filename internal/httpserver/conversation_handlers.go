package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
	"github.com/nabilsaied15/asad-chat-bot/internal/service"
)

func conversationIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
}

func handleListConversations(conversations domain.ConversationRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := conversations.ListWithSummaries(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list conversations"})
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleListMessages(messages domain.MessageRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := conversationIDParam(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		list, err := messages.ListByConversation(r.Context(), id)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load messages"})
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleSetStatus(directory *service.Directory) http.HandlerFunc {
	type request struct {
		Status string `json:"status"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := conversationIDParam(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := directory.SetStatus(r.Context(), id, domain.ConversationStatus(req.Status)); err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidStatus):
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
			case errors.Is(err, domain.ErrConversationNotFound):
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
			default:
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update status"})
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
	}
}

func handleToggleMute(directory *service.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := conversationIDParam(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		muted, err := directory.ToggleMute(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrConversationNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to toggle mute"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_muted": muted})
	}
}

func handleMarkRead(messages domain.MessageRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := conversationIDParam(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		if err := messages.MarkVisitorMessagesRead(r.Context(), id); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to mark messages read"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "messages marked as read"})
	}
}

func handlePurge(directory *service.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := conversationIDParam(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		if err := directory.PurgeDeleted(r.Context(), id); err != nil {
			switch {
			case errors.Is(err, domain.ErrConversationNotFound):
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
			case errors.Is(err, domain.ErrConversationNotDeleted):
				writeJSON(w, http.StatusConflict, map[string]string{"error": "conversation must be marked deleted first"})
			default:
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete conversation"})
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "conversation deleted"})
	}
}
