// Package model defines shared data structures for the feed service.
package model

// RawListing mirrors a single Adzuna job listing as returned by the search
// endpoint. It is the untrusted input contract of the processing pipeline.
type RawListing struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Company     Company  `json:"company"`
	Location    Location `json:"location"`
	Created     string   `json:"created"`
	RedirectURL string   `json:"redirect_url"`
	SalaryMin   *float64 `json:"salary_min,omitempty"`
	SalaryMax   *float64 `json:"salary_max,omitempty"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
}

type Company struct {
	DisplayName string `json:"display_name"`
}

type Location struct {
	DisplayName string `json:"display_name"`
}

type Category struct {
	Label string `json:"label"`
	Tag   string `json:"tag"`
}

// Profile is the user's job-search profile. Skills are kept as entered;
// case and synonym normalization happens at match time.
type Profile struct {
	UserID        int64    `json:"userId,omitempty" yaml:"user_id"`
	Role          string   `json:"role" yaml:"role"`
	Skills        []string `json:"skills" yaml:"skills" validate:"dive,required"`
	Locations     []string `json:"locations" yaml:"locations"`
	SalaryMin     int      `json:"salaryMin" yaml:"salary_min" validate:"gte=0"`
	SalaryMax     *int     `json:"salaryMax,omitempty" yaml:"salary_max" validate:"omitempty,gte=0"`
	Formats       []string `json:"formats" yaml:"formats" validate:"dive,oneof=remote hybrid onsite"`
	ExperienceYrs int      `json:"experienceYrs" yaml:"experience_yrs" validate:"gte=0"`
}

// SearchParams holds optional per-search overrides. Nil/empty means unset.
type SearchParams struct {
	What           string `json:"what,omitempty"`
	Where          string `json:"where,omitempty"`
	DistanceKm     *int   `json:"distanceKm,omitempty" validate:"omitempty,gt=0"`
	MaxDaysOld     *int   `json:"maxDaysOld,omitempty" validate:"omitempty,gte=0"`
	SalaryMin      *int   `json:"salaryMin,omitempty" validate:"omitempty,gte=0"`
	SalaryMax      *int   `json:"salaryMax,omitempty" validate:"omitempty,gte=0"`
	ContractType   string `json:"contractType,omitempty" validate:"omitempty,oneof=permanent contract"`
	EmploymentType string `json:"employmentType,omitempty" validate:"omitempty,oneof=full_time part_time"`
	Category       string `json:"category,omitempty"`
	Sort           string `json:"sort,omitempty" validate:"omitempty,oneof=relevance date"`
}

// Subscription mirrors the subscriptions table row used by the digest job.
type Subscription struct {
	UserID       int64  `json:"userId"`
	Kind         string `json:"kind" validate:"required,oneof=digest"`
	ScheduleCron string `json:"scheduleCron,omitempty"`
	Enabled      bool   `json:"enabled"`
}

// SubscriptionDigest is the only subscription kind: a periodic batch of
// unseen cards.
const SubscriptionDigest = "digest"
