package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// EventCardMarked is the Redis channel notified after every mark.
const EventCardMarked = "EVENT_CARD_MARKED"

// Mark is the JSON shape of a marked card.
type Mark struct {
	ApplyURL   string          `json:"applyUrl"`
	Title      string          `json:"title"`
	Status     string          `json:"status"`
	HistoryLog json.RawMessage `json:"historyLog"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// DB is the subset of pgxpool.Pool the service needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Publisher is satisfied by *redis.Client.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// ─── Service ─────────────────────────────────────────────────────────────────

// Service encapsulates card-mark business logic.
// It has no dependency on net/http and can be used by any transport layer.
type Service struct {
	db  DB
	pub Publisher
	now func() time.Time
}

// NewService returns a configured Service.
func NewService(db DB, pub Publisher) *Service {
	return &Service{db: db, pub: pub, now: time.Now}
}

// ─── Business logic ───────────────────────────────────────────────────────────

const markColumns = `apply_url, title, status, history_log, created_at, updated_at`

func scanMark(row pgx.Row) (Mark, error) {
	var m Mark
	err := row.Scan(&m.ApplyURL, &m.Title, &m.Status, &m.HistoryLog, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// ListMarks returns the user's marked cards, most recently changed first.
// If statusFilter is non-empty, only cards with that status are returned.
func (s *Service) ListMarks(ctx context.Context, userID int64, statusFilter string) ([]Mark, error) {
	const base = `SELECT ` + markColumns + ` FROM card_marks WHERE user_id = $1`

	var (
		rows pgx.Rows
		err  error
	)
	if statusFilter != "" {
		status, perr := ParseStatus(statusFilter)
		if perr != nil {
			return nil, &ValidationError{Msg: perr.Error()}
		}
		rows, err = s.db.Query(ctx, base+` AND status = $2 ORDER BY updated_at DESC`, userID, string(status))
	} else {
		rows, err = s.db.Query(ctx, base+` ORDER BY updated_at DESC`, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("listMarks query: %w", err)
	}

	marks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Mark, error) {
		return scanMark(row)
	})
	if err != nil {
		return nil, fmt.Errorf("listMarks scan: %w", err)
	}
	return marks, nil
}

// MarkCard sets the status of the card identified by applyURL.
// Returns a ValidationError for unknown statuses and forbidden transitions,
// and ErrConflict if the card changed between read and write.
func (s *Service) MarkCard(ctx context.Context, userID int64, applyURL, title, newStatusStr string) (*Mark, error) {
	applyURL = strings.TrimSpace(applyURL)
	if applyURL == "" {
		return nil, &ValidationError{Msg: "applyUrl is required"}
	}
	newStatus, err := ParseStatus(newStatusStr)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	// An unmarked card may take any status.
	var currentStatus Status
	var currentStr string
	err = s.db.QueryRow(ctx,
		`SELECT status FROM card_marks WHERE user_id = $1 AND apply_url = $2`,
		userID, applyURL,
	).Scan(&currentStr)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("markCard lookup: %w", err)
	default:
		currentStatus, _ = ParseStatus(currentStr)
		if !IsTransitionAllowed(currentStatus, newStatus) {
			return nil, &ValidationError{
				Msg: fmt.Sprintf("transition %s → %s is not allowed", currentStr, newStatus),
			}
		}
	}

	historyEntry, _ := json.Marshal(map[string]string{
		"from": string(currentStatus),
		"to":   string(newStatus),
		"at":   s.now().UTC().Format(time.RFC3339),
	})

	// The WHERE clause makes the update a compare-and-swap on the status read
	// above; a concurrent change yields no row.
	m, err := scanMark(s.db.QueryRow(ctx,
		`INSERT INTO card_marks (user_id, apply_url, title, status, history_log)
		 VALUES ($1, $2, $3, $4, $5::jsonb)
		 ON CONFLICT (user_id, apply_url) DO UPDATE
		 SET status      = EXCLUDED.status,
		     title       = COALESCE(NULLIF(EXCLUDED.title, ''), card_marks.title),
		     history_log = card_marks.history_log || EXCLUDED.history_log,
		     updated_at  = NOW()
		 WHERE card_marks.status = $6
		 RETURNING `+markColumns,
		userID, applyURL, strings.TrimSpace(title), string(newStatus),
		fmt.Sprintf("[%s]", historyEntry), string(currentStatus),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("markCard upsert: %w", err)
	}

	// Publish event (non-fatal)
	event, _ := json.Marshal(map[string]any{
		"type":     EventCardMarked,
		"userId":   userID,
		"applyUrl": applyURL,
		"from":     string(currentStatus),
		"to":       string(newStatus),
	})
	if err := s.pub.Publish(ctx, EventCardMarked, event).Err(); err != nil {
		slog.Warn("publish "+EventCardMarked+" failed", "component", "tracker", "err", err)
	}

	return &m, nil
}

// ExcludedURLs returns the apply URLs of every APPLIED or HIDDEN card of
// the user.
func (s *Service) ExcludedURLs(ctx context.Context, userID int64) (map[string]bool, error) {
	rows, err := s.db.Query(ctx,
		`SELECT apply_url FROM card_marks WHERE user_id = $1 AND status IN ($2, $3)`,
		userID, string(StatusApplied), string(StatusHidden),
	)
	if err != nil {
		return nil, fmt.Errorf("excludedURLs query: %w", err)
	}
	urls, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("excludedURLs scan: %w", err)
	}
	out := make(map[string]bool, len(urls))
	for _, u := range urls {
		out[u] = true
	}
	return out, nil
}

// ─── Sentinel errors ─────────────────────────────────────────────────────────

// ErrConflict is returned when a card's status changed under a MarkCard call.
var ErrConflict = errors.New("card was modified concurrently")

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
