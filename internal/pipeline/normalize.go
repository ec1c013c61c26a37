package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"jobmate/feed-service/internal/model"
)

// Job is a listing after text cleanup and field derivation.
type Job struct {
	Title           string    `json:"title"`
	Company         string    `json:"company"`
	CityRegion      string    `json:"cityRegion"`
	Created         time.Time `json:"created"`
	PostedHuman     string    `json:"postedHuman"`
	ApplyURL        string    `json:"applyUrl"`
	SalaryMin       *int      `json:"salaryMin,omitempty"`
	SalaryMax       *int      `json:"salaryMax,omitempty"`
	SalaryText      string    `json:"salaryText"`
	SalaryDisclosed bool      `json:"salaryDisclosed"`
	CategoryLabel   string    `json:"categoryLabel,omitempty"`
	CategoryTag     string    `json:"categoryTag,omitempty"`
	Description     string    `json:"description"`
}

// createdLayouts are tried in order. Zone-less timestamps are read as UTC.
var createdLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

var errMissing = errors.New("missing")

func parseCreated(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &InputError{Field: "created", Err: errMissing}
	}
	var lastErr error
	for _, layout := range createdLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, &InputError{Field: "created", Value: s, Err: lastErr}
}

// Normalize converts a raw listing into a Job. It fails only on a missing
// title or a missing/unparseable creation timestamp.
func (p *Pipeline) Normalize(raw model.RawListing) (Job, error) {
	created, err := parseCreated(raw.Created)
	if err != nil {
		return Job{}, err
	}
	title := cleanText(raw.Title)
	if title == "" {
		return Job{}, &InputError{Field: "title", Value: raw.Title, Err: errMissing}
	}
	company := cleanText(raw.Company.DisplayName)
	if company == "" {
		company = p.cfg.Labels.CompanyUnknown
	}

	lo, hi := salaryBound(raw.SalaryMin), salaryBound(raw.SalaryMax)
	return Job{
		Title:           title,
		Company:         company,
		CityRegion:      firstCityRegion(cleanText(raw.Location.DisplayName)),
		Created:         created,
		PostedHuman:     p.postedHuman(created),
		ApplyURL:        strings.TrimSpace(raw.RedirectURL),
		SalaryMin:       lo,
		SalaryMax:       hi,
		SalaryText:      p.salaryText(lo, hi),
		SalaryDisclosed: lo != nil || hi != nil,
		CategoryLabel:   strings.TrimSpace(raw.Category.Label),
		CategoryTag:     strings.TrimSpace(raw.Category.Tag),
		Description:     cleanText(raw.Description),
	}, nil
}

// maxSalary bounds amounts the source may plausibly report; anything above
// is treated as undisclosed.
const maxSalary = math.MaxInt32

// salaryBound drops absent, non-positive and out-of-range amounts.
func salaryBound(v *float64) *int {
	if v == nil || !(*v >= 1 && *v <= maxSalary) {
		return nil
	}
	n := int(*v)
	return &n
}

func (p *Pipeline) salaryText(lo, hi *int) string {
	l := p.cfg.Labels
	switch {
	case lo != nil && hi != nil:
		return l.money(*lo) + "–" + l.money(*hi)
	case lo != nil:
		return fmt.Sprintf(l.SalaryFrom, l.money(*lo))
	case hi != nil:
		return fmt.Sprintf(l.SalaryUpTo, l.money(*hi))
	}
	return l.SalaryUnknown
}

// money renders n with the currency prefix and space-grouped thousands.
func (l Labels) money(n int) string {
	digits := strconv.Itoa(n)
	var b strings.Builder
	b.WriteString(l.Currency)
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(d)
	}
	return b.String()
}

func (p *Pipeline) postedHuman(created time.Time) string {
	switch d := daysSince(created, p.now().UTC(), true); d {
	case 0:
		return p.cfg.Labels.Today
	case 1:
		return p.cfg.Labels.Yesterday
	default:
		return fmt.Sprintf(p.cfg.Labels.DaysAgo, d)
	}
}

// daysSince returns whole days elapsed between created and now. With
// clamp, future timestamps count as now; without it they go negative.
func daysSince(created, now time.Time, clamp bool) int {
	if clamp && created.After(now) {
		created = now
	}
	d := now.Sub(created)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}

// Summarize returns the description cut to the configured length.
func (p *Pipeline) Summarize(description string) string {
	return truncateAtWord(description, p.cfg.SummaryLength)
}
