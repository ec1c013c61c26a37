// Package pipeline turns raw job listings into ranked, deduplicated cards.
//
// Stages run in a fixed order, each consuming the previous stage's output:
//
//	Normalize ─► Passes ─► Dedup ─► Score ─► Compose
//
// Every stage is a pure function of its inputs and the Pipeline's
// read-only configuration, so one Pipeline may serve concurrent callers.
package pipeline

import (
	"fmt"
	"time"

	"jobmate/feed-service/internal/model"
)

// Result is the sole output contract of a pipeline run.
type Result struct {
	Cards             []Card `json:"cards"`
	Shown             int    `json:"shown"`
	FilteredOut       int    `json:"filteredOutByRules"`
	DuplicatesRemoved int    `json:"duplicatesRemoved"`
}

// Pipeline holds a validated configuration and its compiled rules.
type Pipeline struct {
	cfg   Config
	rules *rules
	now   func() time.Time
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source used for freshness and recency.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New validates cfg and compiles its marker and pattern lists. A bad
// configuration fails here, once, rather than on every search.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r, err := compile(cfg)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{cfg: cfg, rules: r, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Config returns a copy of the configuration the pipeline was built with.
func (p *Pipeline) Config() Config { return p.cfg }

// Process normalizes every raw listing and runs the remaining stages.
// The first malformed listing aborts the run; callers that prefer to skip
// bad records should call Normalize themselves and then Run.
func (p *Pipeline) Process(raws []model.RawListing, profile model.Profile, params model.SearchParams) (Result, error) {
	jobs := make([]Job, 0, len(raws))
	for i, raw := range raws {
		j, err := p.Normalize(raw)
		if err != nil {
			return Result{}, fmt.Errorf("listing %d: %w", i, err)
		}
		jobs = append(jobs, j)
	}
	return p.Run(jobs, profile, params), nil
}

// Run filters, deduplicates, scores and composes already-normalized jobs.
func (p *Pipeline) Run(jobs []Job, profile model.Profile, params model.SearchParams) Result {
	now := p.now().UTC()
	m := p.newMatcher(profile.Skills)

	filtered := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if p.passes(j, m, profile, params, now) {
			filtered = append(filtered, j)
		}
	}
	deduped := Dedup(filtered)

	scored := make([]Scored, 0, len(deduped))
	for _, j := range deduped {
		scored = append(scored, Scored{Job: j, Score: p.score(j, m, profile, params.Category, now)})
	}
	cards := p.Compose(scored)

	return Result{
		Cards:             cards,
		Shown:             len(cards),
		FilteredOut:       len(jobs) - len(filtered),
		DuplicatesRemoved: len(filtered) - len(deduped),
	}
}
