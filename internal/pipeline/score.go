package pipeline

import (
	"math"
	"strings"
	"time"

	"jobmate/feed-service/internal/model"
)

// Breakdown holds the five normalized sub-scores behind a score.
type Breakdown struct {
	Skill     float64 `json:"skill"`
	Location  float64 `json:"location"`
	Salary    float64 `json:"salary"`
	Freshness float64 `json:"freshness"`
	Category  float64 `json:"category"`
}

// Score returns the job's relevance on a 0–100 scale, rounded to 2 decimals.
func (p *Pipeline) Score(job Job, profile model.Profile, preferredCategory string) float64 {
	return p.score(job, p.newMatcher(profile.Skills), profile, preferredCategory, p.now().UTC())
}

// Explain returns the sub-scores Score combines.
func (p *Pipeline) Explain(job Job, profile model.Profile, preferredCategory string) Breakdown {
	return p.breakdown(job, p.newMatcher(profile.Skills), profile, preferredCategory, p.now().UTC())
}

func (p *Pipeline) breakdown(job Job, m *matcher, profile model.Profile, preferredCategory string, now time.Time) Breakdown {
	return Breakdown{
		Skill:     skillScore(job, m),
		Location:  p.locationScore(job, profile),
		Salary:    p.salaryScore(job, profile),
		Freshness: freshnessScore(job, now),
		Category:  categoryScore(job, preferredCategory),
	}
}

func (p *Pipeline) score(job Job, m *matcher, profile model.Profile, preferredCategory string, now time.Time) float64 {
	b := p.breakdown(job, m, profile, preferredCategory, now)
	w := p.cfg.Weights
	s := w.TitleDesc*b.Skill +
		w.Location*b.Location +
		w.Salary*b.Salary +
		w.Freshness*b.Freshness +
		w.Category*b.Category

	if b.Skill < p.cfg.WeakMatchThreshold {
		s *= p.cfg.WeakMatchMultiplier
	}
	if p.IsClickbait(job.Title) {
		s *= p.cfg.ClickbaitMultiplier
	}
	return math.Round(s*100) / 100
}

// skillScore weighs title hits twice as much as description hits.
func skillScore(job Job, m *matcher) float64 {
	if len(m.terms) == 0 {
		return 0
	}
	title := m.normalize(job.Title)
	desc := m.normalize(job.Description)
	hits := 0
	for _, t := range m.terms {
		if containsWord(title, t) {
			hits += 2
		}
		if containsWord(desc, t) {
			hits++
		}
	}
	return math.Min(1, float64(hits)/float64(3*len(m.terms)))
}

func (p *Pipeline) locationScore(job Job, profile model.Profile) float64 {
	city := strings.ToLower(job.CityRegion)
	for _, loc := range profile.Locations {
		if strings.ToLower(strings.TrimSpace(loc)) == city && city != "" {
			return 1
		}
	}
	if p.hasRemoteMarker(job.Description) {
		return 1
	}
	for _, loc := range profile.Locations {
		if l := strings.ToLower(strings.TrimSpace(loc)); l != "" && strings.Contains(city, l) {
			return 0.7
		}
	}
	return 0
}

func (p *Pipeline) salaryScore(job Job, profile model.Profile) float64 {
	if !job.SalaryDisclosed {
		if p.hasNegotiableMarker(job.Description) {
			return 0.5
		}
		return 0.2
	}
	req := profile.SalaryMin
	lo, hi := 0, 0
	if job.SalaryMin != nil {
		lo = *job.SalaryMin
	}
	if job.SalaryMax != nil {
		hi = *job.SalaryMax
	}
	if hi > 0 && hi < req {
		return 0
	}
	top := hi
	if top == 0 {
		top = lo
	}
	if lo > 0 && lo <= req && req <= top {
		return 1
	}
	if lo >= req {
		return 1
	}
	return 0.5
}

func freshnessScore(job Job, now time.Time) float64 {
	switch d := daysSince(job.Created, now, false); {
	case d <= 0:
		return 1
	case d == 1:
		return 0.8
	case d <= 7:
		return 0.6
	case d <= 14:
		return 0.3
	default:
		return 0.1
	}
}

// categoryScore is neutral when the user expressed no preference.
func categoryScore(job Job, preferred string) float64 {
	preferred = strings.TrimSpace(preferred)
	if preferred == "" {
		return 0.6
	}
	if strings.Contains(categoryText(job), strings.ToLower(preferred)) {
		return 1
	}
	return 0
}

// IsClickbait reports whether title matches any clickbait pattern.
func (p *Pipeline) IsClickbait(title string) bool {
	for _, re := range p.rules.clickbait {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}
