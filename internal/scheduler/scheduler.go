// Package scheduler wires up the cron job that periodically sends digests to
// every user with an enabled digest subscription.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"jobmate/feed-service/internal/cache"
	"jobmate/feed-service/internal/feed"
	"jobmate/feed-service/internal/model"
	"jobmate/feed-service/internal/pipeline"
)

// lockKey guards a digest cycle across replicas.
const lockKey = "feed:digest:lock"

// Subscriptions lists the users due for a digest.
type Subscriptions interface {
	EnabledSubscriptions(ctx context.Context, kind string) ([]model.Subscription, error)
}

// ShownPruner forgets old shown-cache entries.
type ShownPruner interface {
	PruneShown(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Digester builds one user's digest.
type Digester interface {
	Digest(ctx context.Context, userID int64) ([]pipeline.Card, error)
}

// Options tune the digest loop.
type Options struct {
	IntervalHours int
	Concurrency   int
	// ShownRetention is how long a sent card stays suppressed.
	ShownRetention time.Duration
}

// Stats summarise one digest cycle.
type Stats struct {
	Users  int
	Sent   int
	Failed int
	Pruned int64
}

// Scheduler wraps robfig/cron and manages the digest loop.
type Scheduler struct {
	cron   *cron.Cron
	subs   Subscriptions
	shown  ShownPruner
	digest Digester
	locker cache.Locker
	opts   Options
	spec   string // cron spec, e.g. "@every 24h"
	log    *slog.Logger
}

// New creates a Scheduler that fires every opts.IntervalHours hours.
func New(subs Subscriptions, shown ShownPruner, digest Digester, locker cache.Locker, opts Options) *Scheduler {
	if opts.IntervalHours <= 0 {
		opts.IntervalHours = 24
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.ShownRetention <= 0 {
		opts.ShownRetention = 30 * 24 * time.Hour
	}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		subs:   subs,
		shown:  shown,
		digest: digest,
		locker: locker,
		opts:   opts,
		spec:   fmt.Sprintf("@every %dh", opts.IntervalHours),
		log:    slog.Default().With("component", "scheduler"),
	}
}

// Start registers the job and starts the scheduler. Also runs one cycle
// immediately so subscribers do not wait a full interval after a deploy.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info("cron started", "spec", s.spec)

	go s.run(ctx)

	return nil
}

// Stop halts the scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	stats, err := s.RunOnce(ctx)
	if err != nil {
		s.log.Error("digest cycle failed", "err", err)
		return
	}
	s.log.Info("digest cycle complete",
		"users", stats.Users, "sent", stats.Sent, "failed", stats.Failed, "pruned", stats.Pruned)
}

// ErrLocked is returned by RunOnce when another replica holds the cycle lock.
var ErrLocked = errors.New("digest cycle already running")

// RunOnce prunes the shown cache and sends a digest to every subscriber.
// One user's failure never stops the others.
func (s *Scheduler) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats

	lock := cache.NewLock(s.locker, lockKey, time.Duration(s.opts.IntervalHours)*time.Hour)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return stats, err
	}
	if !ok {
		return stats, ErrLocked
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("release lock failed", "err", err)
		}
	}()

	if n, err := s.shown.PruneShown(ctx, s.opts.ShownRetention); err != nil {
		s.log.Warn("prune shown cache failed", "err", err)
	} else {
		stats.Pruned = n
	}

	subs, err := s.subs.EnabledSubscriptions(ctx, model.SubscriptionDigest)
	if err != nil {
		return stats, fmt.Errorf("load subscriptions: %w", err)
	}
	stats.Users = len(subs)
	if len(subs) == 0 {
		s.log.Info("no digest subscriptions, nothing to send")
		return stats, nil
	}

	var sent, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, sub := range subs {
		g.Go(func() error {
			cards, err := s.digest.Digest(gctx, sub.UserID)
			switch {
			case errors.Is(err, feed.ErrNoProfile):
				s.log.Info("subscriber has no profile, skipping", "userId", sub.UserID)
			case err != nil:
				failed.Add(1)
				s.log.Warn("digest failed", "userId", sub.UserID, "err", err)
			case len(cards) > 0:
				sent.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Sent = int(sent.Load())
	stats.Failed = int(failed.Load())
	return stats, nil
}
