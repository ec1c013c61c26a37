package pipeline

import (
	"sort"
	"strconv"
)

// Scored pairs a job with its relevance score.
type Scored struct {
	Job   Job
	Score float64
}

// Card is the rendered, display-ready summary of a job.
type Card struct {
	Title           string  `json:"title"`
	Subtitle        string  `json:"subtitle"`
	Summary         string  `json:"summary"`
	ApplyURL        string  `json:"applyUrl"`
	ShortReason     string  `json:"shortReason"`
	Score           float64 `json:"score"`
	SalaryDisclosed bool    `json:"salaryDisclosed"`
}

// Compose ranks scored jobs, caps them, renders cards and spreads out runs
// of salary-less cards.
func (p *Pipeline) Compose(scored []Scored) []Card {
	ranked := make([]Scored, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Job.SalaryDisclosed != b.Job.SalaryDisclosed {
			return a.Job.SalaryDisclosed
		}
		return a.Job.Created.After(b.Job.Created)
	})
	if len(ranked) > p.cfg.MaxCards {
		ranked = ranked[:p.cfg.MaxCards]
	}

	cards := make([]Card, 0, len(ranked))
	for _, s := range ranked {
		cards = append(cards, p.render(s))
	}
	return SpreadNoSalary(cards, p.cfg.MaxNoSalaryStreak)
}

func (p *Pipeline) render(s Scored) Card {
	j := s.Job
	return Card{
		Title:           j.Title + " — " + j.Company,
		Subtitle:        j.CityRegion + " • " + j.SalaryText + " • " + j.PostedHuman,
		Summary:         p.Summarize(j.Description),
		ApplyURL:        j.ApplyURL,
		ShortReason:     "score=" + strconv.FormatFloat(s.Score, 'f', -1, 64),
		Score:           s.Score,
		SalaryDisclosed: j.SalaryDisclosed,
	}
}

// SpreadNoSalary defers every card that would extend a run of salary-less
// cards beyond maxStreak to a tail appended after the main stream. The
// streak resets only on a salaried card of the main stream.
func SpreadNoSalary(cards []Card, maxStreak int) []Card {
	out := make([]Card, 0, len(cards))
	var tail []Card
	streak := 0
	for _, c := range cards {
		if c.SalaryDisclosed {
			streak = 0
		} else {
			streak++
		}
		if streak > maxStreak {
			tail = append(tail, c)
			continue
		}
		out = append(out, c)
	}
	return append(out, tail...)
}
