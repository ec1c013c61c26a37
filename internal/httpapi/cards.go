package httpapi

import (
	"net/http"
)

// handleCards handles GET /cards[?status=SAVED|APPLIED|HIDDEN].
func (h *Handler) handleCards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	marks, err := h.deps.Cards.ListMarks(r.Context(), uid, r.URL.Query().Get("status"))
	if err != nil {
		h.writeError(w, "listMarks", err)
		return
	}
	jsonOK(w, marks)
}

// handleMarkCard handles POST /cards/mark.
func (h *Handler) handleMarkCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var body struct {
		ApplyURL string `json:"applyUrl"`
		Title    string `json:"title"`
		Status   string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil || body.Status == "" {
		jsonError(w, "body must contain applyUrl and status", http.StatusBadRequest)
		return
	}

	m, err := h.deps.Cards.MarkCard(r.Context(), uid, body.ApplyURL, body.Title, body.Status)
	if err != nil {
		h.writeError(w, "markCard", err)
		return
	}
	jsonOK(w, m)
}
