package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobmate/feed-service/internal/model"
)

// Profile returns the stored profile for userID, or ErrNotFound.
func (s *Store) Profile(ctx context.Context, userID int64) (model.Profile, error) {
	p := model.Profile{UserID: userID}
	err := s.db.QueryRow(ctx,
		`SELECT role, skills, locations, salary_min, salary_max, formats, experience_yrs
		 FROM profiles
		 WHERE user_id = $1`,
		userID,
	).Scan(&p.Role, &p.Skills, &p.Locations, &p.SalaryMin, &p.SalaryMax, &p.Formats, &p.ExperienceYrs)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("profile query: %w", err)
	}
	return p, nil
}

// UpsertProfile creates or replaces the profile of p.UserID.
func (s *Store) UpsertProfile(ctx context.Context, p model.Profile) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO profiles (user_id, role, skills, locations, salary_min, salary_max, formats, experience_yrs)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id) DO UPDATE
		 SET role           = EXCLUDED.role,
		     skills         = EXCLUDED.skills,
		     locations      = EXCLUDED.locations,
		     salary_min     = EXCLUDED.salary_min,
		     salary_max     = EXCLUDED.salary_max,
		     formats        = EXCLUDED.formats,
		     experience_yrs = EXCLUDED.experience_yrs,
		     updated_at     = NOW()`,
		p.UserID, p.Role, nonNil(p.Skills), nonNil(p.Locations), p.SalaryMin, p.SalaryMax,
		nonNil(p.Formats), p.ExperienceYrs,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// nonNil keeps NOT NULL array columns from receiving a SQL NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
