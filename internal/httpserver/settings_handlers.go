package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
)

func agentIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "agentID"), 10, 64)
}

func handleGetSettings(settings domain.SettingsRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := agentIDParam(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid agent id"})
			return
		}
		s, err := settings.GetByAgent(r.Context(), agentID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load settings"})
			return
		}
		if s == nil {
			// No saved policy yet: surface the schema defaults so the
			// dashboard form has something to edit. Email is on by default,
			// WhatsApp stays off until a number is configured.
			s = &domain.AgentSettings{
				AgentID:      agentID,
				EmailEnabled: true,
			}
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func handlePutSettings(settings domain.SettingsRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := agentIDParam(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid agent id"})
			return
		}
		var s domain.AgentSettings
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		s.AgentID = agentID
		if err := settings.Upsert(r.Context(), &s); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save settings"})
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}
