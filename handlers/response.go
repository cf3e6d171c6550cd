package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"lodyland/internal/game"
	"lodyland/internal/gameplay"
	"lodyland/pkg/logger"
)

// statusForReason maps a rejection reason to an HTTP status
func statusForReason(reason string) int {
	switch reason {
	case game.ReasonPlayerNotFound, game.ReasonTileNotFound, game.ReasonCardUnknown,
		game.ReasonLandUnknown, game.ReasonResourceUnknown:
		return http.StatusNotFound
	case game.ReasonOnCooldown, game.ReasonAlreadyClaimed, game.ReasonNameTaken, game.ReasonSoldOut:
		return http.StatusConflict
	case game.ReasonLocked, game.ReasonLandLocked, game.ReasonLevelTooLow, game.ReasonUnlockConditions,
		game.ReasonNotForSale, game.ReasonPurchaseExpired, game.ReasonMaxOwned, "no_variant_matches":
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.ServerLogger.Error("Failed to encode JSON response: %v", err)
	}
}

func writeOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "data": data})
}

// writeFailure writes {"ok": false, "error": reason, ...details}
func writeFailure(w http.ResponseWriter, status int, reason string, details map[string]interface{}) {
	body := make(map[string]interface{}, len(details)+2)
	for k, v := range details {
		body[k] = v
	}
	body["ok"] = false
	body["error"] = reason
	writeJSON(w, status, body)
}

// writeError turns a service error into a response. Rejections keep their
// reason and details; anything else is logged and hidden behind internal_error.
func writeError(w http.ResponseWriter, log *logger.ColoredLogger, err error) {
	if rej, ok := game.AsRejection(err); ok {
		writeFailure(w, statusForReason(rej.Reason), rej.Reason, rej.Details)
		return
	}
	if errors.Is(err, gameplay.ErrUnauthenticated) {
		writeFailure(w, http.StatusUnauthorized, "not_authenticated", nil)
		return
	}
	log.Error("Request failed: %v", err)
	writeFailure(w, http.StatusInternalServerError, "internal_error", nil)
}

// decodeBody reads a JSON request body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
