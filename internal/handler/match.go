package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/quarterchat/match-server-go/internal/errors"
	"github.com/quarterchat/match-server-go/internal/httputil"
	"github.com/quarterchat/match-server-go/internal/service"
)

type MatchHandler struct {
	matches *service.MatchService
}

func NewMatchHandler(matches *service.MatchService) *MatchHandler {
	return &MatchHandler{matches: matches}
}

// POST /api/match
// Creates a match and returns both join links. This is the only response
// that ever carries both keys.
func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	result, err := h.matches.CreateMatch(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("match creation failed")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"match_id":   result.MatchID,
		"a_join_key": result.AJoinKey,
		"b_join_key": result.BJoinKey,
		"a_link":     result.ALink,
		"b_link":     result.BLink,
	})
}

// GET /api/match/{matchID}/state
// Poller endpoint. Unknown matches answer 200 with a null body so a
// poller racing match creation keeps polling; purged matches answer 410.
func (h *MatchHandler) GetState(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	h.getState(w, r, matchID)
}

// GET /api/state?match_id=
// Legacy query form of GetState.
func (h *MatchHandler) GetStateLegacy(w http.ResponseWriter, r *http.Request) {
	h.getState(w, r, r.URL.Query().Get("match_id"))
}

func (h *MatchHandler) getState(w http.ResponseWriter, r *http.Request, matchID string) {
	snap, err := h.matches.GetState(r.Context(), matchID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusOK, map[string]any{"data": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": snap})
}

// POST /api/match/{matchID}/state
// Records that a participant sent their first message.
func (h *MatchHandler) RecordSend(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.MissingRequired("user_id"))
		return
	}

	h.recordSend(w, r, matchID, req.UserID)
}

// POST /api/state
// Legacy body form of RecordSend.
func (h *MatchHandler) RecordSendLegacy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MatchID string `json:"match_id"`
		UserID  string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.MissingRequired("match_id"))
		return
	}

	h.recordSend(w, r, req.MatchID, req.UserID)
}

func (h *MatchHandler) recordSend(w http.ResponseWriter, r *http.Request, matchID, userID string) {
	snap, err := h.matches.RecordSend(r.Context(), matchID, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": snap})
}
