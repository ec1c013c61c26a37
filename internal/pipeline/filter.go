package pipeline

import (
	"strings"
	"time"

	"jobmate/feed-service/internal/model"
)

// matcher holds a profile's skills in match form: folded, synonym-collapsed
// and deduplicated, preserving first-seen order.
type matcher struct {
	rules *rules
	terms []string
}

func (p *Pipeline) newMatcher(skills []string) *matcher {
	m := &matcher{rules: p.rules}
	seen := make(map[string]bool, len(skills))
	for _, s := range skills {
		t := m.normalize(strings.TrimSpace(s))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		m.terms = append(m.terms, t)
	}
	return m
}

func (m *matcher) normalize(text string) string {
	t := foldText(text)
	for _, syn := range m.rules.synonyms {
		t = replaceWord(t, syn.from, syn.to)
	}
	return t
}

// count returns how many distinct skill terms occur as whole words in text.
func (m *matcher) count(text string) int {
	t := m.normalize(text)
	n := 0
	for _, term := range m.terms {
		if containsWord(t, term) {
			n++
		}
	}
	return n
}

// SkillMatches returns the number of distinct profile skills found as whole
// words in text.
func (p *Pipeline) SkillMatches(text string, skills []string) int {
	return p.newMatcher(skills).count(text)
}

// Passes reports whether job satisfies every filter rule for the given
// profile and search parameters.
func (p *Pipeline) Passes(job Job, profile model.Profile, params model.SearchParams) bool {
	return p.passes(job, p.newMatcher(profile.Skills), profile, params, p.now().UTC())
}

// passes checks skills first since it rejects the most listings.
func (p *Pipeline) passes(job Job, m *matcher, profile model.Profile, params model.SearchParams, now time.Time) bool {
	if m.count(job.Title+" "+job.Description) < p.cfg.MinSkillMatches {
		return false
	}
	if !p.locationOK(job, profile, params) {
		return false
	}
	if !p.salaryOK(job, profile, params) {
		return false
	}
	if !categoryOK(job, params) {
		return false
	}
	return ageOK(job, params, now)
}

func (p *Pipeline) hasRemoteMarker(text string) bool {
	return containsAny(foldText(text), p.rules.remote)
}

func (p *Pipeline) hasNegotiableMarker(text string) bool {
	return containsAny(foldText(text), p.rules.negotiable)
}

func (p *Pipeline) locationOK(job Job, profile model.Profile, params model.SearchParams) bool {
	city := strings.ToLower(job.CityRegion)
	for _, loc := range profile.Locations {
		if loc != "" && strings.ToLower(strings.TrimSpace(loc)) == city {
			return true
		}
	}
	if w := strings.TrimSpace(params.Where); w != "" && strings.ToLower(w) == city {
		return true
	}
	return p.hasRemoteMarker(job.Description)
}

// requiredSalary is the search override when set, else the profile floor.
func requiredSalary(profile model.Profile, params model.SearchParams) int {
	if params.SalaryMin != nil && *params.SalaryMin > 0 {
		return *params.SalaryMin
	}
	return profile.SalaryMin
}

// salaryOK lets undisclosed salaries through; scoring penalizes them.
func (p *Pipeline) salaryOK(job Job, profile model.Profile, params model.SearchParams) bool {
	req := requiredSalary(profile, params)
	if req <= 0 || !job.SalaryDisclosed {
		return true
	}
	if job.SalaryMax != nil && *job.SalaryMax < req {
		return p.hasNegotiableMarker(job.Description)
	}
	if job.SalaryMin != nil && *job.SalaryMin < req && (job.SalaryMax == nil || *job.SalaryMax < req) {
		return false
	}
	return true
}

func categoryText(job Job) string {
	return strings.ToLower(job.CategoryLabel + " " + job.CategoryTag)
}

// categoryOK is necessarily weak: the source carries no employment type.
func categoryOK(job Job, params model.SearchParams) bool {
	c := strings.TrimSpace(params.Category)
	if c == "" {
		return true
	}
	return strings.Contains(categoryText(job), strings.ToLower(c))
}

// ageOK treats a nil limit as unset; zero keeps only today's listings.
func ageOK(job Job, params model.SearchParams, now time.Time) bool {
	if params.MaxDaysOld == nil {
		return true
	}
	return daysSince(job.Created, now, false) <= *params.MaxDaysOld
}
