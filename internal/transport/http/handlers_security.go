package httptransport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	dErrors "careshield/pkg/domain-errors"
	"careshield/pkg/httputil"
)

// handleListIncidents returns recent incidents, newest first.
func (h *Handler) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"incidents": h.engine.Recent(limit),
	})
}

func (h *Handler) handleResolveIncident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.Resolve(r.Context(), id); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "incident not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleRiskScores(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"scores":  h.scorer.Snapshot(),
	})
}

func (h *Handler) handleRiskScore(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"userId":  userID,
		"score":   h.scorer.Score(userID),
	})
}

func (h *Handler) handleBlockedIPs(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"blocked":   h.blocklist.Blocked(),
		"watchlist": h.blocklist.Watched(),
	})
}

func (h *Handler) handleClearBlockedIPs(w http.ResponseWriter, _ *http.Request) {
	cleared := h.blocklist.ClearBlocked()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"cleared": cleared,
	})
}

func (h *Handler) handleUnblockIP(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	h.blocklist.Unblock(ip)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleFlaggedUsers(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"flagged": h.responder.FlaggedUsers(),
	})
}
