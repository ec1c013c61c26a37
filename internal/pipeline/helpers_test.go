package pipeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jobmate/feed-service/internal/model"
	"jobmate/feed-service/internal/pipeline"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newPipeline(t *testing.T, mutate ...func(*pipeline.Config)) *pipeline.Pipeline {
	t.Helper()
	cfg := pipeline.DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	p, err := pipeline.New(cfg, pipeline.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return p
}

func ptr[T any](v T) *T { return &v }

func ago(d time.Duration) string {
	return testNow.Add(-d).Format(time.RFC3339)
}

func daysAgo(n int) string {
	return ago(time.Duration(n) * 24 * time.Hour)
}

type listing struct {
	title, company, city, desc, url string
	days                            int
	min, max                        *float64
}

func (l listing) raw() model.RawListing {
	company := l.company
	if company == "" {
		company = "Acme"
	}
	return model.RawListing{
		ID:          l.url,
		Title:       l.title,
		Company:     model.Company{DisplayName: company},
		Location:    model.Location{DisplayName: l.city},
		Created:     daysAgo(l.days),
		RedirectURL: l.url,
		SalaryMin:   l.min,
		SalaryMax:   l.max,
		Description: l.desc,
	}
}

func normalize(t *testing.T, p *pipeline.Pipeline, l listing) pipeline.Job {
	t.Helper()
	j, err := p.Normalize(l.raw())
	require.NoError(t, err)
	return j
}

func frontendProfile() model.Profile {
	return model.Profile{
		UserID:    42,
		Role:      "Frontend developer",
		Skills:    []string{"React", "TypeScript", "Next.js", "Node.js"},
		Locations: []string{"Berlin", "EU"},
		SalaryMin: 2500,
	}
}
