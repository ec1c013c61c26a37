package pipeline_test

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/feed-service/internal/model"
	"jobmate/feed-service/internal/pipeline"
)

func TestNormalize_CleansMarkup(t *testing.T) {
	p := newPipeline(t)
	raw := listing{
		title: "<b>Senior&nbsp;Go</b>   Developer",
		desc:  "<p>We use **Go** and <i>gRPC</i></p><p>Apply   now</p><script>track()</script>",
		city:  "Berlin, Germany",
		url:   "https://jobs.example/1",
	}.raw()

	j, err := p.Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "Senior Go Developer", j.Title)
	assert.Equal(t, "We use Go and gRPC Apply now", j.Description)
	assert.Equal(t, "Berlin", j.CityRegion)
	assert.Equal(t, "https://jobs.example/1", j.ApplyURL)
}

func TestNormalize_CityRegion(t *testing.T) {
	p := newPipeline(t)
	cases := map[string]string{
		"Berlin, Germany":    "Berlin",
		" , Munich, Bavaria": "Munich",
		"Remote":             "Remote",
		"":                   "",
		"Hamburg":            "Hamburg",
	}
	for in, want := range cases {
		j := normalize(t, p, listing{title: "Dev", city: in})
		assert.Equal(t, want, j.CityRegion, "location %q", in)
	}
}

func TestNormalize_SalaryText(t *testing.T) {
	p := newPipeline(t)
	cases := []struct {
		name      string
		min, max  *float64
		want      string
		disclosed bool
	}{
		{"range", ptr(3000.0), ptr(4000.0), "€3 000–€4 000", true},
		{"min only", ptr(50000.7), nil, "from €50 000", true},
		{"max only", nil, ptr(4000.0), "up to €4 000", true},
		{"none", nil, nil, "salary not specified", false},
		{"zero is undisclosed", ptr(0.0), ptr(0.0), "salary not specified", false},
		{"small", ptr(900.0), nil, "from €900", true},
		{"millions", nil, ptr(1250000.0), "up to €1 250 000", true},
		{"absurd amount is undisclosed", ptr(1e30), nil, "salary not specified", false},
		{"absurd max keeps min", ptr(3000.0), ptr(1e30), "from €3 000", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			j := normalize(t, p, listing{title: "Dev", min: tc.min, max: tc.max})
			assert.Equal(t, tc.want, j.SalaryText)
			assert.Equal(t, tc.disclosed, j.SalaryDisclosed)
			if !tc.disclosed {
				assert.Nil(t, j.SalaryMin)
				assert.Nil(t, j.SalaryMax)
			}
		})
	}
}

func TestNormalize_PostedHuman(t *testing.T) {
	p := newPipeline(t)
	cases := []struct {
		created string
		want    string
	}{
		{ago(2 * time.Hour), "today"},
		{ago(30 * time.Hour), "yesterday"},
		{daysAgo(5), "5 days ago"},
		{testNow.Add(72 * time.Hour).Format(time.RFC3339), "today"},
	}
	for _, tc := range cases {
		raw := listing{title: "Dev"}.raw()
		raw.Created = tc.created
		j, err := p.Normalize(raw)
		require.NoError(t, err)
		assert.Equal(t, tc.want, j.PostedHuman, "created %s", tc.created)
	}
}

func TestNormalize_ZonelessTimestampIsUTC(t *testing.T) {
	p := newPipeline(t)
	raw := listing{title: "Dev"}.raw()
	raw.Created = "2024-05-09T10:00:00"

	j, err := p.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC), j.Created)
	assert.Equal(t, "yesterday", j.PostedHuman)
}

func TestNormalize_CompanyDefault(t *testing.T) {
	p := newPipeline(t)
	raw := listing{title: "Dev"}.raw()
	raw.Company = model.Company{}

	j, err := p.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "company not specified", j.Company)
}

func TestNormalize_Rejects(t *testing.T) {
	p := newPipeline(t)
	cases := []struct {
		name    string
		title   string
		created string
		field   string
	}{
		{"missing created", "Dev", "", "created"},
		{"garbage created", "Dev", "last tuesday", "created"},
		{"markup-only title", "<br/>", daysAgo(1), "title"},
		{"blank title", "   ", daysAgo(1), "title"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := listing{title: tc.title}.raw()
			raw.Created = tc.created

			_, err := p.Normalize(raw)
			require.Error(t, err)
			var ie *pipeline.InputError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tc.field, ie.Field)
		})
	}
}

func TestNormalize_IsDeterministic(t *testing.T) {
	p := newPipeline(t)
	raw := listing{
		title: "Frontend &amp; <em>React</em> dev",
		desc:  "__Remote__ friendly",
		city:  "Berlin, DE",
		min:   ptr(3000.0),
		url:   "https://jobs.example/2",
	}.raw()

	a, err := p.Normalize(raw)
	require.NoError(t, err)
	b, err := p.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "Frontend & React dev", a.Title)
	assert.Equal(t, "Remote friendly", a.Description)
}

func TestSummarize(t *testing.T) {
	p := newPipeline(t)

	assert.Equal(t, "short text", p.Summarize("short text"))

	long := strings.Repeat("lorem ipsum ", 50)
	s := p.Summarize(long)
	assert.LessOrEqual(t, utf8.RuneCountInString(s), 300)
	assert.True(t, strings.HasPrefix(long, s))
	assert.False(t, strings.HasSuffix(s, " "))
	assert.True(t, strings.HasSuffix(s, "lorem") || strings.HasSuffix(s, "ipsum"))

	word := strings.Repeat("ж", 400)
	assert.Equal(t, 300, utf8.RuneCountInString(p.Summarize(word)))
}
