package pipeline

import (
	"fmt"
	"maps"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Weights are the per-component scoring weights. They must sum to 100 so
// the weighted sum reads directly as a 0–100 score.
type Weights struct {
	TitleDesc float64 `yaml:"title_desc" validate:"gte=0"`
	Location  float64 `yaml:"location" validate:"gte=0"`
	Salary    float64 `yaml:"salary" validate:"gte=0"`
	Freshness float64 `yaml:"freshness" validate:"gte=0"`
	Category  float64 `yaml:"category" validate:"gte=0"`
}

func (w Weights) sum() float64 {
	return w.TitleDesc + w.Location + w.Salary + w.Freshness + w.Category
}

// Labels are the only locale-bearing strings the pipeline emits.
// SalaryFrom, SalaryUpTo and DaysAgo are fmt templates taking one argument.
type Labels struct {
	Currency       string `yaml:"currency"`
	SalaryUnknown  string `yaml:"salary_unknown" validate:"required"`
	SalaryFrom     string `yaml:"salary_from" validate:"required"`
	SalaryUpTo     string `yaml:"salary_up_to" validate:"required"`
	Today          string `yaml:"today" validate:"required"`
	Yesterday      string `yaml:"yesterday" validate:"required"`
	DaysAgo        string `yaml:"days_ago" validate:"required"`
	CompanyUnknown string `yaml:"company_unknown" validate:"required"`
}

// Config holds every tunable of the pipeline.
type Config struct {
	Weights             Weights `yaml:"weights"`
	ClickbaitMultiplier float64 `yaml:"clickbait_multiplier" validate:"gt=0,lte=1"`
	WeakMatchThreshold  float64 `yaml:"weak_match_threshold" validate:"gte=0,lte=1"`
	WeakMatchMultiplier float64 `yaml:"weak_match_multiplier" validate:"gt=0,lte=1"`

	MinSkillMatches   int `yaml:"min_skill_matches" validate:"gte=0"`
	SummaryLength     int `yaml:"summary_length" validate:"gt=0"`
	MaxCards          int `yaml:"max_cards" validate:"gt=0"`
	MaxNoSalaryStreak int `yaml:"max_no_salary_streak" validate:"gte=0"`

	// SkillSynonyms maps a lowercase term to its canonical form, applied
	// to both job text and profile skills before matching.
	SkillSynonyms     map[string]string `yaml:"skill_synonyms" validate:"dive,keys,required,endkeys,required"`
	RemoteMarkers     []string          `yaml:"remote_markers" validate:"dive,required"`
	NegotiableMarkers []string          `yaml:"negotiable_markers" validate:"dive,required"`
	ClickbaitPatterns []string          `yaml:"clickbait_patterns" validate:"dive,required"`

	Labels Labels `yaml:"labels"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			TitleDesc: 45,
			Location:  20,
			Salary:    15,
			Freshness: 10,
			Category:  10,
		},
		ClickbaitMultiplier: 0.85,
		WeakMatchThreshold:  0.4,
		WeakMatchMultiplier: 0.7,
		MinSkillMatches:     2,
		SummaryLength:       300,
		MaxCards:            50,
		MaxNoSalaryStreak:   2,
		SkillSynonyms: map[string]string{
			"javascript": "js",
			"typescript": "ts",
		},
		RemoteMarkers:     []string{"remote", "remotely", "удаленно", "home office"},
		NegotiableMarkers: []string{"competitive", "negotiable", "market rate", "по договоренности"},
		ClickbaitPatterns: []string{`urgent|immediate start|limited time|superstar|rockstar|ninja`},
		Labels: Labels{
			Currency:       "€",
			SalaryUnknown:  "salary not specified",
			SalaryFrom:     "from %s",
			SalaryUpTo:     "up to %s",
			Today:          "today",
			Yesterday:      "yesterday",
			DaysAgo:        "%d days ago",
			CompanyUnknown: "company not specified",
		},
	}
}

// Validate checks field ranges, cross-field constraints and patterns.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}
	if s := c.Weights.sum(); math.Abs(s-100) > 1e-6 {
		return fmt.Errorf("pipeline config: weights must sum to 100, got %g", s)
	}
	_, err := compile(c)
	return err
}

// rules is the compiled, read-only form of Config shared by all stages.
type rules struct {
	synonyms   []synonym
	remote     []string
	negotiable []string
	clickbait  []*regexp.Regexp
}

type synonym struct {
	from, to string
}

func compile(c Config) (*rules, error) {
	r := &rules{}
	// Sorted so chained synonyms resolve the same way on every run.
	for _, from := range slices.Sorted(maps.Keys(c.SkillSynonyms)) {
		r.synonyms = append(r.synonyms, synonym{
			from: foldText(strings.TrimSpace(from)),
			to:   foldText(strings.TrimSpace(c.SkillSynonyms[from])),
		})
	}
	for _, m := range c.RemoteMarkers {
		r.remote = append(r.remote, foldText(m))
	}
	for _, m := range c.NegotiableMarkers {
		r.negotiable = append(r.negotiable, foldText(m))
	}
	for _, p := range c.ClickbaitPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("pipeline config: clickbait pattern %q: %w", p, err)
		}
		r.clickbait = append(r.clickbait, re)
	}
	return r, nil
}
