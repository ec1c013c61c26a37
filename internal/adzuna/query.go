package adzuna

import (
	"net/url"
	"strconv"

	"jobmate/feed-service/internal/model"
)

// Query is one search request. Zero values are omitted from the URL.
type Query struct {
	Page           int
	What           string
	Where          string
	DistanceKm     *int
	MaxDaysOld     *int
	SalaryMin      *int
	SalaryMax      *int
	ContractType   string // permanent | contract
	EmploymentType string // full_time | part_time
	Category       string // Adzuna category tag
	Sort           string // relevance | date
}

// QueryFromParams maps search parameters onto an Adzuna query for page 1.
func QueryFromParams(p model.SearchParams) Query {
	return Query{
		Page:           1,
		What:           p.What,
		Where:          p.Where,
		DistanceKm:     p.DistanceKm,
		MaxDaysOld:     p.MaxDaysOld,
		SalaryMin:      p.SalaryMin,
		SalaryMax:      p.SalaryMax,
		ContractType:   p.ContractType,
		EmploymentType: p.EmploymentType,
		Category:       p.Category,
		Sort:           p.Sort,
	}
}

func (q Query) values() url.Values {
	v := url.Values{}
	setStr := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	setInt := func(k string, n *int) {
		if n != nil {
			v.Set(k, strconv.Itoa(*n))
		}
	}

	setStr("what", q.What)
	setStr("where", q.Where)
	setInt("distance", q.DistanceKm)
	setInt("max_days_old", q.MaxDaysOld)
	setInt("salary_min", q.SalaryMin)
	setInt("salary_max", q.SalaryMax)
	setStr("category", q.Category)
	setStr("sort_by", q.Sort)

	// Adzuna takes these as boolean flags named after the value.
	switch q.ContractType {
	case "permanent", "contract":
		v.Set(q.ContractType, "1")
	}
	switch q.EmploymentType {
	case "full_time", "part_time":
		v.Set(q.EmploymentType, "1")
	}
	return v
}
