package handler

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/quarterchat/match-server-go/internal/errors"
	"github.com/quarterchat/match-server-go/internal/service"
)

type JoinHandler struct {
	matches *service.MatchService
}

func NewJoinHandler(matches *service.MatchService) *JoinHandler {
	return &JoinHandler{matches: matches}
}

func chatPath(matchID, key string) string {
	return fmt.Sprintf("/chat/%s/%s", url.PathEscape(matchID), url.PathEscape(key))
}

// GET /join/{matchID}/{key}
// Canonical link target. Valid keys bounce straight into the chat page;
// failures answer the tagged JSON shape so the landing page can explain.
func (h *JoinHandler) Join(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	key := chi.URLParam(r, "key")

	_, err := h.matches.ResolveEntry(r.Context(), matchID, key)
	if err != nil {
		log.Debug().Err(err).Str("matchId", matchID).Msg("join rejected")
		writeEntryError(w, err)
		return
	}

	http.Redirect(w, r, chatPath(matchID, key), http.StatusFound)
}

// GET /join?match_id=&k=
// Legacy query form. Redirects permanently to the canonical path so old
// links keep working and crawlers learn the new shape.
func (h *JoinHandler) JoinLegacy(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("match_id")
	key := r.URL.Query().Get("k")
	if matchID == "" || key == "" {
		writeEntryError(w, apperrors.InvalidKey("match_id and k are required"))
		return
	}

	target := fmt.Sprintf("/join/%s/%s", url.PathEscape(matchID), url.PathEscape(key))
	http.Redirect(w, r, target, http.StatusMovedPermanently)
}

// GET /chat?match_id=&k=
// Legacy chat page address, same permanent redirect treatment.
func (h *JoinHandler) ChatLegacy(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("match_id")
	key := r.URL.Query().Get("k")
	if matchID == "" || key == "" {
		writeEntryError(w, apperrors.InvalidKey("match_id and k are required"))
		return
	}

	http.Redirect(w, r, chatPath(matchID, key), http.StatusMovedPermanently)
}

// GET /api/join/{matchID}/{key}
// Script-friendly variant of Join: same validation, but the redirect
// target is returned in the body instead of a Location header.
func (h *JoinHandler) JoinAPI(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	key := chi.URLParam(r, "key")

	_, err := h.matches.ResolveEntry(r.Context(), matchID, key)
	if err != nil {
		writeEntryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"redirect_to": chatPath(matchID, key),
	})
}
