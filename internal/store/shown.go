package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jackc/pgx/v5"
)

// URLHash is the shown-cache key for an apply URL.
func URLHash(url string) int64 {
	return int64(xxhash.Sum64String(url))
}

// Seen reports which of urls were already shown to userID.
func (s *Store) Seen(ctx context.Context, userID int64, urls []string) (map[string]bool, error) {
	seen := make(map[string]bool)
	if len(urls) == 0 {
		return seen, nil
	}
	byHash := make(map[int64]string, len(urls))
	hashes := make([]int64, 0, len(urls))
	for _, u := range urls {
		h := URLHash(u)
		byHash[h] = u
		hashes = append(hashes, h)
	}

	rows, err := s.db.Query(ctx,
		`SELECT vacancy_hash FROM shown_cache WHERE user_id = $1 AND vacancy_hash = ANY($2)`,
		userID, hashes,
	)
	if err != nil {
		return nil, fmt.Errorf("shown query: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("shown scan: %w", err)
	}
	for _, h := range found {
		seen[byHash[h]] = true
	}
	return seen, nil
}

// MarkShown records urls as shown to userID now.
func (s *Store) MarkShown(ctx context.Context, userID int64, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	hashes := make([]int64, 0, len(urls))
	for _, u := range urls {
		hashes = append(hashes, URLHash(u))
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO shown_cache (user_id, vacancy_hash)
		 SELECT $1, h FROM unnest($2::bigint[]) AS h
		 ON CONFLICT (user_id, vacancy_hash) DO UPDATE SET shown_at = NOW()`,
		userID, hashes,
	)
	if err != nil {
		return fmt.Errorf("mark shown: %w", err)
	}
	return nil
}

// PruneShown forgets cards shown before the cutoff, so they may reappear.
func (s *Store) PruneShown(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM shown_cache WHERE shown_at < NOW() - make_interval(secs => $1)`,
		olderThan.Seconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("prune shown: %w", err)
	}
	return tag.RowsAffected(), nil
}
