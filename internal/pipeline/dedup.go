package pipeline

import (
	"sort"
	"strings"
)

// tripleKey catches reposts of one listing under different URLs.
func tripleKey(j Job) string {
	return "t:" + strings.ToLower(j.Title) + "|" + strings.ToLower(j.Company) + "|" + strings.ToLower(j.CityRegion)
}

func urlKey(j Job) string {
	if j.ApplyURL == "" {
		return ""
	}
	return "u:" + j.ApplyURL
}

// salarySpan is max−min when both bounds are disclosed, else zero.
func salarySpan(j Job) int {
	if j.SalaryMin == nil || j.SalaryMax == nil {
		return 0
	}
	return *j.SalaryMax - *j.SalaryMin
}

// ChooseBetter picks the wider disclosed salary span, then the more recent
// listing. Exact ties keep a.
func ChooseBetter(a, b Job) Job {
	if sa, sb := salarySpan(a), salarySpan(b); sa != sb {
		if sa > sb {
			return a
		}
		return b
	}
	if b.Created.After(a.Created) {
		return b
	}
	return a
}

type dedupGroup struct {
	seq    int
	urlSeq int // order in which the group's first URL was seen; -1 if none
	best   Job
	keys   []string
	merged bool
}

// Dedup collapses jobs sharing an apply URL or a (title, company, city)
// triple into their best representative. Representatives with an apply URL
// come first, ordered by when their group first saw a URL, followed by
// URL-less ones in first-seen order. No two results share either key, so
// Dedup(Dedup(x)) equals Dedup(x).
func Dedup(jobs []Job) []Job {
	groups := make([]*dedupGroup, 0, len(jobs))
	owner := make(map[string]*dedupGroup, 2*len(jobs))
	urls := 0

	for _, j := range jobs {
		keys := []string{tripleKey(j)}
		if k := urlKey(j); k != "" {
			keys = append(keys, k)
		}

		var g *dedupGroup
		for _, k := range keys {
			other, ok := owner[k]
			if !ok || other == g {
				continue
			}
			if g == nil {
				g = other
				continue
			}
			// j bridges two groups: fold the later one into the earlier.
			first, second := g, other
			if second.seq < first.seq {
				first, second = second, first
			}
			first.best = ChooseBetter(first.best, second.best)
			if second.urlSeq >= 0 && (first.urlSeq < 0 || second.urlSeq < first.urlSeq) {
				first.urlSeq = second.urlSeq
			}
			for _, sk := range second.keys {
				owner[sk] = first
			}
			first.keys = append(first.keys, second.keys...)
			second.merged = true
			g = first
		}

		if g == nil {
			g = &dedupGroup{seq: len(groups), urlSeq: -1, best: j}
			groups = append(groups, g)
		} else {
			g.best = ChooseBetter(g.best, j)
		}
		for _, k := range keys {
			if owner[k] != g {
				if _, seen := owner[k]; !seen && strings.HasPrefix(k, "u:") && g.urlSeq < 0 {
					g.urlSeq = urls
					urls++
				}
				owner[k] = g
				g.keys = append(g.keys, k)
			}
		}
	}

	var withURL []*dedupGroup
	for _, g := range groups {
		if !g.merged && g.best.ApplyURL != "" {
			withURL = append(withURL, g)
		}
	}
	sort.SliceStable(withURL, func(i, j int) bool { return withURL[i].urlSeq < withURL[j].urlSeq })

	out := make([]Job, 0, len(groups))
	for _, g := range withURL {
		out = append(out, g.best)
	}
	for _, g := range groups {
		if !g.merged && g.best.ApplyURL == "" {
			out = append(out, g.best)
		}
	}
	return out
}
