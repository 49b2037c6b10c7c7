package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/services"
)

// HistoryHandler serves paginated room history.
type HistoryHandler struct {
	history *services.HistoryService
	log     zerolog.Logger
}

// NewHistoryHandler creates a new HistoryHandler instance.
func NewHistoryHandler(history *services.HistoryService, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, log: logger}
}

// GetHistory handles GET /history
// Query params:
//   - roomId: required
//   - cursor: nextCursor from a previous page; absent or malformed starts from the newest message
//   - limit: page size, default 20, clamped to the configured maximum
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID := q.Get("roomId")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "roomId is required")
		return
	}

	// Unparseable limits fall back to the default page size
	limit, _ := strconv.Atoi(q.Get("limit"))

	page, err := h.history.FetchPage(r.Context(), roomID, q.Get("cursor"), limit)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomID).Msg("history read failed")
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "history temporarily unavailable")
		return
	}

	writeJSON(w, http.StatusOK, page)
}
