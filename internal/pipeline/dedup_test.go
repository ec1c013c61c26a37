package pipeline_test

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/feed-service/internal/pipeline"
)

func TestDedup_SameURLKeepsWiderSalary(t *testing.T) {
	p := newPipeline(t)
	a := normalize(t, p, listing{title: "React Dev", url: "u1", min: ptr(3000.0), max: ptr(4000.0)})
	b := normalize(t, p, listing{title: "React Developer", url: "u1", days: 1})

	assert.Equal(t, []pipeline.Job{a}, pipeline.Dedup([]pipeline.Job{a, b}))
	assert.Equal(t, []pipeline.Job{a}, pipeline.Dedup([]pipeline.Job{b, a}))
}

func TestDedup_RepostsUnderNewURLs(t *testing.T) {
	p := newPipeline(t)
	older := normalize(t, p, listing{title: "React Dev", city: "Berlin", url: "u1", days: 3})
	newer := normalize(t, p, listing{title: "react dev", city: "berlin", url: "u2", days: 1})

	got := pipeline.Dedup([]pipeline.Job{older, newer})
	require.Len(t, got, 1)
	assert.Equal(t, "u2", got[0].ApplyURL)
}

func TestDedup_BridgedGroupsMerge(t *testing.T) {
	p := newPipeline(t)
	j1 := normalize(t, p, listing{title: "Frontend", url: "u1", days: 2})
	j2 := normalize(t, p, listing{title: "Backend", url: "u2", days: 1})
	j3 := normalize(t, p, listing{title: "Frontend", url: "u2", days: 5})

	got := pipeline.Dedup([]pipeline.Job{j1, j2, j3})
	require.Len(t, got, 1)
	assert.Equal(t, j2, got[0])
}

func TestDedup_URLlessJobsComeLast(t *testing.T) {
	p := newPipeline(t)
	noURL := normalize(t, p, listing{title: "Mobile Dev"})
	withURL := normalize(t, p, listing{title: "Web Dev", url: "u1"})
	other := normalize(t, p, listing{title: "Data Dev", url: "u2"})

	got := pipeline.Dedup([]pipeline.Job{noURL, withURL, other})
	assert.Equal(t, []pipeline.Job{withURL, other, noURL}, got)
}

func TestDedup_OrdersByFirstURLSeen(t *testing.T) {
	p := newPipeline(t)
	repost := normalize(t, p, listing{title: "React Dev", city: "Berlin", days: 2})
	first := normalize(t, p, listing{title: "Vue Dev", city: "Berlin", url: "u1"})
	wider := normalize(t, p, listing{title: "React Dev", city: "Berlin", url: "u2", min: ptr(3000.0), max: ptr(5000.0)})

	got := pipeline.Dedup([]pipeline.Job{repost, first, wider})
	assert.Equal(t, []pipeline.Job{first, wider}, got)
	assert.Equal(t, got, pipeline.Dedup(got))
}

func TestDedup_EmptyInput(t *testing.T) {
	assert.Empty(t, pipeline.Dedup(nil))
}

func TestChooseBetter(t *testing.T) {
	p := newPipeline(t)
	wide := normalize(t, p, listing{title: "A", min: ptr(2000.0), max: ptr(5000.0), days: 9})
	narrow := normalize(t, p, listing{title: "B", min: ptr(3000.0), max: ptr(3500.0)})
	minOnly := normalize(t, p, listing{title: "C", min: ptr(9000.0), days: 3})
	fresh := normalize(t, p, listing{title: "D"})
	stale := normalize(t, p, listing{title: "E", days: 4})

	assert.Equal(t, wide, pipeline.ChooseBetter(narrow, wide))
	assert.Equal(t, wide, pipeline.ChooseBetter(wide, narrow))
	assert.Equal(t, narrow, pipeline.ChooseBetter(minOnly, narrow))
	assert.Equal(t, fresh, pipeline.ChooseBetter(stale, fresh))
	assert.Equal(t, fresh, pipeline.ChooseBetter(minOnly, fresh), "min-only span counts as zero")
	assert.Equal(t, stale, pipeline.ChooseBetter(stale, stale))
}

func randomJobs(t *testing.T, p *pipeline.Pipeline, r *rand.Rand, n int) []pipeline.Job {
	t.Helper()
	titles := []string{"React Dev", "Go Engineer", "Data Analyst", "QA"}
	companies := []string{"Acme", "Globex", "Initech"}
	cities := []string{"Berlin", "Munich", ""}
	jobs := make([]pipeline.Job, 0, n)
	for i := 0; i < n; i++ {
		l := listing{
			title:   titles[r.IntN(len(titles))],
			company: companies[r.IntN(len(companies))],
			city:    cities[r.IntN(len(cities))],
			days:    r.IntN(20),
		}
		if k := r.IntN(12); k > 0 {
			l.url = fmt.Sprintf("https://jobs.example/%d", k)
		}
		if r.IntN(2) == 0 {
			lo := float64(1000 + 500*r.IntN(6))
			l.min = ptr(lo)
			l.max = ptr(lo + float64(500*r.IntN(5)))
		}
		jobs = append(jobs, normalize(t, p, l))
	}
	return jobs
}

func TestDedup_Properties(t *testing.T) {
	p := newPipeline(t)
	r := rand.New(rand.NewPCG(7, 11))

	for round := 0; round < 50; round++ {
		jobs := randomJobs(t, p, r, 1+r.IntN(40))
		once := pipeline.Dedup(jobs)

		assert.Equal(t, once, pipeline.Dedup(once), "round %d: not idempotent", round)
		assert.LessOrEqual(t, len(once), len(jobs))

		urls := map[string]bool{}
		triples := map[string]bool{}
		seenURLless := false
		for _, j := range once {
			if j.ApplyURL == "" {
				seenURLless = true
			} else {
				assert.False(t, seenURLless, "round %d: URL job after URL-less job", round)
				assert.False(t, urls[j.ApplyURL], "round %d: duplicate url %s", round, j.ApplyURL)
				urls[j.ApplyURL] = true
			}
			key := strings.ToLower(j.Title + "|" + j.Company + "|" + j.CityRegion)
			assert.False(t, triples[key], "round %d: duplicate triple %s", round, key)
			triples[key] = true
		}
	}
}
