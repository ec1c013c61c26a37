// Package feed assembles personalised job feeds: it loads the user's
// profile, fetches listings, drops blacklisted and already handled ones,
// and runs the ranking pipeline over the rest.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"jobmate/feed-service/internal/model"
	"jobmate/feed-service/internal/pipeline"
	"jobmate/feed-service/internal/store"
)

// Redis channels notified after a feed is built.
const (
	EventSearchCompleted = "EVENT_SEARCH_COMPLETED"
	EventDigestReady     = "EVENT_DIGEST_READY"
)

// ErrNoProfile is returned when the user has not created a profile yet.
var ErrNoProfile = errors.New("profile not found")

// ListingSource fetches raw listings for a search.
type ListingSource interface {
	Fetch(ctx context.Context, params model.SearchParams) ([]model.RawListing, error)
}

// ProfileStore loads profiles; a missing one is store.ErrNotFound.
type ProfileStore interface {
	Profile(ctx context.Context, userID int64) (model.Profile, error)
}

// BlacklistStore lists a user's blacklisted companies.
type BlacklistStore interface {
	BlacklistedCompanies(ctx context.Context, userID int64) ([]string, error)
}

// MarkStore reports the apply URLs a user applied to or hid.
type MarkStore interface {
	ExcludedURLs(ctx context.Context, userID int64) (map[string]bool, error)
}

// ShownStore remembers which cards were already sent in a digest.
type ShownStore interface {
	Seen(ctx context.Context, userID int64, urls []string) (map[string]bool, error)
	MarkShown(ctx context.Context, userID int64, urls []string) error
}

// Publisher is satisfied by *redis.Client.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Deps are the collaborators of a Service.
type Deps struct {
	Source    ListingSource
	Profiles  ProfileStore
	Blacklist BlacklistStore
	Marks     MarkStore
	Shown     ShownStore
	Publisher Publisher
}

// Options tune feed assembly.
type Options struct {
	// DefaultMaxDaysOld applies when a search sets no recency limit.
	DefaultMaxDaysOld int
	// DigestSize caps the cards sent per digest.
	DigestSize int
}

// Outcome is a pipeline result plus what was dropped before the pipeline.
type Outcome struct {
	pipeline.Result
	Fetched     int `json:"fetched"`
	Blacklisted int `json:"blacklisted"`
	Excluded    int `json:"excluded"`
	Malformed   int `json:"malformed"`
}

// Service builds feeds. It is safe for concurrent use.
type Service struct {
	pipeline *pipeline.Pipeline
	deps     Deps
	opts     Options
	log      *slog.Logger
}

// NewService returns a configured Service.
func NewService(p *pipeline.Pipeline, deps Deps, opts Options) *Service {
	if opts.DigestSize <= 0 {
		opts.DigestSize = 7
	}
	return &Service{
		pipeline: p,
		deps:     deps,
		opts:     opts,
		log:      slog.Default().With("component", "feed"),
	}
}

// Search builds a ranked feed for userID. Unset params fall back to the
// profile and service defaults.
func (s *Service) Search(ctx context.Context, userID int64, params model.SearchParams) (*Outcome, error) {
	profile, err := s.deps.Profiles.Profile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoProfile
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	params = s.withDefaults(params, profile)

	raws, err := s.deps.Source.Fetch(ctx, params)
	if err != nil {
		if len(raws) == 0 {
			return nil, fmt.Errorf("fetch listings: %w", err)
		}
		s.log.Warn("partial fetch, continuing", "userId", userID, "fetched", len(raws), "err", err)
	}

	blacklist, err := s.deps.Blacklist.BlacklistedCompanies(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load blacklist: %w", err)
	}
	excluded, err := s.deps.Marks.ExcludedURLs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load marks: %w", err)
	}

	out := &Outcome{Fetched: len(raws)}
	jobs := make([]pipeline.Job, 0, len(raws))
	for i, raw := range raws {
		if IsBlacklisted(raw.Company.DisplayName, blacklist) {
			out.Blacklisted++
			continue
		}
		if url := strings.TrimSpace(raw.RedirectURL); url != "" && excluded[url] {
			out.Excluded++
			continue
		}
		job, err := s.pipeline.Normalize(raw)
		if err != nil {
			out.Malformed++
			s.log.Warn("skipping malformed listing", "userId", userID, "index", i, "id", raw.ID, "err", err)
			continue
		}
		jobs = append(jobs, job)
	}

	out.Result = s.pipeline.Run(jobs, profile, params)

	s.log.Info("search done", "userId", userID,
		"fetched", out.Fetched, "blacklisted", out.Blacklisted, "excluded", out.Excluded,
		"malformed", out.Malformed, "filtered", out.FilteredOut,
		"duplicates", out.DuplicatesRemoved, "shown", out.Shown)

	s.publish(ctx, EventSearchCompleted, map[string]any{
		"type":              EventSearchCompleted,
		"userId":            userID,
		"shown":             out.Shown,
		"filteredOut":       out.FilteredOut,
		"duplicatesRemoved": out.DuplicatesRemoved,
	})
	return out, nil
}

// Digest runs a default search and returns up to DigestSize cards the user
// has not been sent before, recording them as shown.
func (s *Service) Digest(ctx context.Context, userID int64) ([]pipeline.Card, error) {
	res, err := s.Search(ctx, userID, model.SearchParams{})
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(res.Cards))
	for _, c := range res.Cards {
		if c.ApplyURL != "" {
			urls = append(urls, c.ApplyURL)
		}
	}
	seen, err := s.deps.Shown.Seen(ctx, userID, urls)
	if err != nil {
		return nil, fmt.Errorf("load shown cache: %w", err)
	}

	digest := make([]pipeline.Card, 0, s.opts.DigestSize)
	sent := make([]string, 0, s.opts.DigestSize)
	for _, c := range res.Cards {
		if len(digest) == s.opts.DigestSize {
			break
		}
		if c.ApplyURL == "" || seen[c.ApplyURL] {
			continue
		}
		digest = append(digest, c)
		sent = append(sent, c.ApplyURL)
	}

	if err := s.deps.Shown.MarkShown(ctx, userID, sent); err != nil {
		s.log.Warn("mark shown failed", "userId", userID, "err", err)
	}

	if len(digest) > 0 {
		s.publish(ctx, EventDigestReady, map[string]any{
			"type":   EventDigestReady,
			"userId": userID,
			"cards":  digest,
		})
	}
	return digest, nil
}

func (s *Service) withDefaults(p model.SearchParams, profile model.Profile) model.SearchParams {
	if strings.TrimSpace(p.What) == "" {
		p.What = profile.Role
	}
	if strings.TrimSpace(p.Where) == "" && len(profile.Locations) > 0 {
		p.Where = profile.Locations[0]
	}
	if p.MaxDaysOld == nil {
		days := s.opts.DefaultMaxDaysOld
		p.MaxDaysOld = &days
	}
	if p.Sort == "" {
		p.Sort = "relevance"
	}
	return p
}

// publish is best effort: subscribers missing an event never fails a feed.
func (s *Service) publish(ctx context.Context, channel string, payload map[string]any) {
	if s.deps.Publisher == nil {
		return
	}
	event, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("encode event failed", "channel", channel, "err", err)
		return
	}
	if err := s.deps.Publisher.Publish(ctx, channel, event).Err(); err != nil {
		s.log.Warn("publish "+channel+" failed", "err", err)
	}
}
