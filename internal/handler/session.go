package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/quarterchat/match-server-go/internal/service"
)

type SessionHandler struct {
	matches *service.MatchService
	stream  *service.StreamService
}

func NewSessionHandler(matches *service.MatchService, stream *service.StreamService) *SessionHandler {
	return &SessionHandler{matches: matches, stream: stream}
}

// GET /api/session/{matchID}/{key}
// Re-validates the join key and mints the chat session bundle for exactly
// the participant the key resolves to. Failures use the same tagged shape
// as the join endpoints.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	key := chi.URLParam(r, "key")

	entry, err := h.matches.ResolveEntry(r.Context(), matchID, key)
	if err != nil {
		writeEntryError(w, err)
		return
	}

	session, err := h.stream.MintSession(r.Context(), entry)
	if err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("session mint failed")
		writeEntryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"match_id":     session.MatchID,
		"channel_type": session.ChannelType,
		"channel_id":   session.ChannelID,
		"user_id":      session.UserID,
		"token":        session.Token,
	})
}
