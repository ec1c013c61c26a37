package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobmate/feed-service/internal/model"
)

// EnabledSubscriptions returns every enabled subscription of the given kind.
func (s *Store) EnabledSubscriptions(ctx context.Context, kind string) ([]model.Subscription, error) {
	rows, err := s.db.Query(ctx,
		`SELECT user_id, kind, schedule_cron, enabled
		 FROM subscriptions
		 WHERE enabled = true AND kind = $1
		 ORDER BY user_id`,
		kind,
	)
	if err != nil {
		return nil, fmt.Errorf("subscriptions query: %w", err)
	}
	subs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Subscription, error) {
		var sub model.Subscription
		err := row.Scan(&sub.UserID, &sub.Kind, &sub.ScheduleCron, &sub.Enabled)
		return sub, err
	})
	if err != nil {
		return nil, fmt.Errorf("subscriptions scan: %w", err)
	}
	return subs, nil
}

// UpsertSubscription creates or updates a subscription.
func (s *Store) UpsertSubscription(ctx context.Context, sub model.Subscription) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO subscriptions (user_id, kind, schedule_cron, enabled)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, kind) DO UPDATE
		 SET schedule_cron = EXCLUDED.schedule_cron,
		     enabled       = EXCLUDED.enabled`,
		sub.UserID, sub.Kind, sub.ScheduleCron, sub.Enabled,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}
