package handler

import (
	"net/http"

	apperrors "github.com/quarterchat/match-server-go/internal/errors"
	"github.com/quarterchat/match-server-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// entryTag collapses the error taxonomy into the four-way branching
// contract join clients switch on. Anything the client cannot act on
// (upstream trouble, misconfiguration) reads as not_found; the HTTP
// status still carries the precise class.
func entryTag(code apperrors.ErrorCode) string {
	switch code {
	case apperrors.ErrCodeExpired:
		return "expired"
	case apperrors.ErrCodeDisabled:
		return "disabled"
	case apperrors.ErrCodeInvalidKey, apperrors.ErrCodeMissingRequired:
		return "invalid_key"
	default:
		return "not_found"
	}
}

// writeEntryError writes the tagged failure shape shared by the join and
// session endpoints.
func writeEntryError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal("An unexpected error occurred")
	}
	writeJSON(w, httputil.StatusFromCode(appErr.Code), map[string]any{
		"ok":      false,
		"code":    entryTag(appErr.Code),
		"message": appErr.Message,
	})
}
