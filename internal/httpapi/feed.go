package httpapi

import (
	"net/http"
	"strings"

	"github.com/robfig/cron/v3"

	"jobmate/feed-service/internal/model"
)

// ─── Feed ─────────────────────────────────────────────────────────────────────

// handleSearch handles POST /search. The body holds optional overrides;
// an empty body searches with the profile defaults.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var params model.SearchParams
	if err := decodeBody(r, &params); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(params); err != nil {
		h.writeError(w, "search", err)
		return
	}

	out, err := h.deps.Feeds.Search(r.Context(), uid, params)
	if err != nil {
		h.writeError(w, "search", err)
		return
	}
	jsonOK(w, out)
}

// handleDigest handles POST /digest.
func (h *Handler) handleDigest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	cards, err := h.deps.Feeds.Digest(r.Context(), uid)
	if err != nil {
		h.writeError(w, "digest", err)
		return
	}
	jsonOK(w, map[string]any{"cards": cards, "shown": len(cards)})
}

// ─── Profile ──────────────────────────────────────────────────────────────────

// handleProfile handles GET and PUT /profile.
func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := h.deps.Store.Profile(r.Context(), uid)
		if err != nil {
			h.writeError(w, "getProfile", err)
			return
		}
		jsonOK(w, p)

	case http.MethodPut:
		var p model.Profile
		if err := decodeBody(r, &p); err != nil {
			jsonError(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		p.UserID = uid
		p.Role = strings.TrimSpace(p.Role)
		if p.Role == "" {
			jsonError(w, "role is required", http.StatusBadRequest)
			return
		}
		if err := h.validate.Struct(p); err != nil {
			h.writeError(w, "putProfile", err)
			return
		}
		if p.SalaryMax != nil && *p.SalaryMax > 0 && *p.SalaryMax < p.SalaryMin {
			jsonError(w, "salaryMax must not be below salaryMin", http.StatusBadRequest)
			return
		}
		if err := h.deps.Store.UpsertProfile(r.Context(), p); err != nil {
			h.writeError(w, "putProfile", err)
			return
		}
		jsonOK(w, p)

	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ─── Blacklist ────────────────────────────────────────────────────────────────

// handleBlacklist handles GET, POST and DELETE /blacklist.
func (h *Handler) handleBlacklist(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		companies, err := h.deps.Store.BlacklistedCompanies(r.Context(), uid)
		if err != nil {
			h.writeError(w, "listBlacklist", err)
			return
		}
		if companies == nil {
			companies = []string{}
		}
		jsonOK(w, map[string]any{"companies": companies})

	case http.MethodPost:
		var body struct {
			Company string `json:"company"`
		}
		if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Company) == "" {
			jsonError(w, "body must contain company", http.StatusBadRequest)
			return
		}
		if err := h.deps.Store.AddBlacklisted(r.Context(), uid, body.Company); err != nil {
			h.writeError(w, "addBlacklist", err)
			return
		}
		jsonWrite(w, http.StatusCreated, map[string]string{"company": strings.TrimSpace(body.Company)})

	case http.MethodDelete:
		company := strings.TrimSpace(r.URL.Query().Get("company"))
		if company == "" {
			jsonError(w, "company query parameter is required", http.StatusBadRequest)
			return
		}
		if err := h.deps.Store.RemoveBlacklisted(r.Context(), uid, company); err != nil {
			h.writeError(w, "removeBlacklist", err)
			return
		}
		jsonOK(w, map[string]string{"removed": company})

	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ─── Subscription ─────────────────────────────────────────────────────────────

// handleSubscription handles PUT /subscription. The kind defaults to the
// digest; scheduleCron, when set, must be a standard 5-field expression.
func (h *Handler) handleSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var sub model.Subscription
	if err := decodeBody(r, &sub); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	sub.UserID = uid
	if sub.Kind == "" {
		sub.Kind = model.SubscriptionDigest
	}
	if err := h.validate.Struct(sub); err != nil {
		h.writeError(w, "putSubscription", err)
		return
	}
	if sub.ScheduleCron != "" {
		if _, err := cron.ParseStandard(sub.ScheduleCron); err != nil {
			jsonError(w, "invalid scheduleCron: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if err := h.deps.Store.UpsertSubscription(r.Context(), sub); err != nil {
		h.writeError(w, "putSubscription", err)
		return
	}
	jsonOK(w, sub)
}
