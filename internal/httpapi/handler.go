// Package httpapi implements the HTTP handlers for the feed service.
//
// All user routes expect an x-user-id header forwarded by the Gateway.
//
// Routes:
//
//	GET    /health              → dependency check
//	POST   /search              → ranked feed for the user's profile
//	POST   /digest              → next batch of unseen cards
//	GET    /profile             → stored profile
//	PUT    /profile             → create or replace profile
//	GET    /blacklist           → blacklisted companies
//	POST   /blacklist           → add a company
//	DELETE /blacklist?company=  → remove a company
//	PUT    /subscription        → enable/disable the digest
//	GET    /cards?status=       → marked cards
//	POST   /cards/mark          → save, apply to or hide a card
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"jobmate/feed-service/internal/feed"
	"jobmate/feed-service/internal/model"
	"jobmate/feed-service/internal/pipeline"
	"jobmate/feed-service/internal/store"
	"jobmate/feed-service/internal/tracker"
)

// ─── Dependencies ─────────────────────────────────────────────────────────────

// Feeds builds searches and digests.
type Feeds interface {
	Search(ctx context.Context, userID int64, params model.SearchParams) (*feed.Outcome, error)
	Digest(ctx context.Context, userID int64) ([]pipeline.Card, error)
}

// Store persists per-user settings.
type Store interface {
	Profile(ctx context.Context, userID int64) (model.Profile, error)
	UpsertProfile(ctx context.Context, p model.Profile) error
	BlacklistedCompanies(ctx context.Context, userID int64) ([]string, error)
	AddBlacklisted(ctx context.Context, userID int64, company string) error
	RemoveBlacklisted(ctx context.Context, userID int64, company string) error
	UpsertSubscription(ctx context.Context, sub model.Subscription) error
}

// Cards records card marks.
type Cards interface {
	ListMarks(ctx context.Context, userID int64, statusFilter string) ([]tracker.Mark, error)
	MarkCard(ctx context.Context, userID int64, applyURL, title, status string) (*tracker.Mark, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Feeds   Feeds
	Store   Store
	Cards   Cards
	Health  Pinger
	Version string
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	deps     Deps
	validate *validator.Validate
	log      *slog.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      slog.Default().With("component", "http"),
	}
}

// Routes returns the service's HTTP handler with request logging applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h.withRequestID(mux)
}

// RegisterRoutes mounts all feed-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/search", h.handleSearch)
	mux.HandleFunc("/digest", h.handleDigest)
	mux.HandleFunc("/profile", h.handleProfile)
	mux.HandleFunc("/blacklist", h.handleBlacklist)
	mux.HandleFunc("/subscription", h.handleSubscription)
	mux.HandleFunc("/cards", h.handleCards)
	mux.HandleFunc("/cards/mark", h.handleMarkCard)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	status, code := "ok", http.StatusOK
	if h.deps.Health != nil {
		if err := h.deps.Health.Ping(r.Context()); err != nil {
			h.log.Warn("health check failed", "err", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	jsonWrite(w, code, map[string]string{
		"status":  status,
		"service": "feed-service",
		"version": h.deps.Version,
	})
}

// ─── Middleware ───────────────────────────────────────────────────────────────

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withRequestID tags every request with an x-request-id (reusing the
// Gateway's when present) and logs its outcome.
func (h *Handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("x-request-id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("x-request-id", reqID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		h.log.Info("request",
			"requestId", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"durationMs", time.Since(start).Milliseconds(),
		)
	})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// userID reads the x-user-id header, writing a 401 when it is missing or
// not a positive integer.
func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.Header.Get("x-user-id"))
	if raw == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, "invalid x-user-id header", http.StatusUnauthorized)
		return 0, false
	}
	return id, true
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// writeError maps service errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var verr *tracker.ValidationError
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.Is(err, feed.ErrNoProfile):
		jsonError(w, "profile not found, create one first", http.StatusNotFound)
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	case errors.Is(err, tracker.ErrConflict):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.As(err, &verr):
		jsonError(w, verr.Msg, http.StatusBadRequest)
	case errors.As(err, &fieldErrs):
		jsonError(w, validationMessage(fieldErrs), http.StatusBadRequest)
	case errors.Is(err, context.Canceled):
		jsonError(w, "request cancelled", http.StatusRequestTimeout)
	default:
		h.log.Error(op+" failed", "err", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func validationMessage(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, fe.Field()+" failed "+fe.Tag())
	}
	return strings.Join(msgs, "; ")
}

func jsonOK(w http.ResponseWriter, v any) {
	jsonWrite(w, http.StatusOK, v)
}

func jsonWrite(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	jsonWrite(w, code, map[string]string{"error": msg})
}
