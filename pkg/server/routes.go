package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ameling/kinship/pkg/logger"
	"github.com/ameling/kinship/pkg/relationship"
)

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	pair := relationship.PairID{
		UserID:      chi.URLParam(r, "userID"),
		CompanionID: chi.URLParam(r, "companionID"),
	}
	if pair.UserID == "" || pair.CompanionID == "" {
		writeError(w, http.StatusBadRequest, "user and companion ids required")
		return
	}

	var ev relationship.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	st, notifs, err := s.engine.ApplyInteraction(r.Context(), pair, ev)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if s.bus != nil && len(notifs) > 0 {
		s.bus.PublishAll(notifs)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"state":         st,
		"notifications": notifs,
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	pair := relationship.PairID{
		UserID:      chi.URLParam(r, "userID"),
		CompanionID: chi.URLParam(r, "companionID"),
	}

	st, err := s.engine.GetState(r.Context(), pair)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}

func (s *Server) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	type achievementView struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	defs := s.engine.ListAchievementDefinitions()
	out := make([]achievementView, len(defs))
	for i, def := range defs {
		out[i] = achievementView{ID: def.ID, Name: def.Name, Description: def.Description}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"achievements": out})
}

// writeEngineError maps engine sentinels onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, relationship.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, relationship.ErrPairNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, relationship.ErrVersionConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.ErrorCF("server", "request failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
