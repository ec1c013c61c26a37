package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// BlacklistedCompanies lists the companies userID never wants to see.
func (s *Store) BlacklistedCompanies(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT company FROM blacklist_companies WHERE user_id = $1 ORDER BY added_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("blacklist query: %w", err)
	}
	companies, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("blacklist scan: %w", err)
	}
	return companies, nil
}

// AddBlacklisted records company for userID. Adding twice is a no-op.
func (s *Store) AddBlacklisted(ctx context.Context, userID int64, company string) error {
	company = strings.TrimSpace(company)
	if company == "" {
		return fmt.Errorf("add blacklisted: empty company")
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO blacklist_companies (user_id, company) VALUES ($1, $2)
		 ON CONFLICT (user_id, company) DO NOTHING`,
		userID, company,
	)
	if err != nil {
		return fmt.Errorf("add blacklisted: %w", err)
	}
	return nil
}

// RemoveBlacklisted deletes company from userID's blacklist, or returns
// ErrNotFound if it was not there.
func (s *Store) RemoveBlacklisted(ctx context.Context, userID int64, company string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM blacklist_companies WHERE user_id = $1 AND company = $2`,
		userID, strings.TrimSpace(company),
	)
	if err != nil {
		return fmt.Errorf("remove blacklisted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
