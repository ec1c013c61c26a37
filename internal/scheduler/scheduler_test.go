package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/feed-service/internal/feed"
	"jobmate/feed-service/internal/model"
	"jobmate/feed-service/internal/pipeline"
	"jobmate/feed-service/internal/scheduler"
)

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func (f *fakeLocker) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.held[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.held[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeLocker) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[keys[0]] == args[0].(string) {
		delete(f.held, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

type fakeSubs struct {
	subs []model.Subscription
	err  error
	kind string
}

func (f *fakeSubs) EnabledSubscriptions(_ context.Context, kind string) ([]model.Subscription, error) {
	f.kind = kind
	return f.subs, f.err
}

type fakePruner struct {
	n      int64
	err    error
	called time.Duration
}

func (f *fakePruner) PruneShown(_ context.Context, olderThan time.Duration) (int64, error) {
	f.called = olderThan
	return f.n, f.err
}

type fakeDigester struct {
	mu     sync.Mutex
	calls  []int64
	result map[int64][]pipeline.Card
	errs   map[int64]error
}

func (f *fakeDigester) Digest(_ context.Context, userID int64) ([]pipeline.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID)
	return f.result[userID], f.errs[userID]
}

func subs(ids ...int64) []model.Subscription {
	out := make([]model.Subscription, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Subscription{UserID: id, Kind: model.SubscriptionDigest, Enabled: true})
	}
	return out
}

func TestRunOnce_SendsDigestsAndCountsOutcomes(t *testing.T) {
	card := []pipeline.Card{{Title: "Go dev — Acme", ApplyURL: "https://x/1"}}
	digester := &fakeDigester{
		result: map[int64][]pipeline.Card{1: card, 3: card},
		errs:   map[int64]error{2: errors.New("adzuna down"), 4: feed.ErrNoProfile},
	}
	source := &fakeSubs{subs: subs(1, 2, 3, 4, 5)}
	pruner := &fakePruner{n: 9}
	locker := &fakeLocker{held: map[string]string{}}

	s := scheduler.New(source, pruner, digester, locker, scheduler.Options{
		IntervalHours: 24, Concurrency: 2, ShownRetention: 48 * time.Hour,
	})
	stats, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.SubscriptionDigest, source.kind)
	assert.Equal(t, 48*time.Hour, pruner.called)
	assert.Equal(t, scheduler.Stats{Users: 5, Sent: 2, Failed: 1, Pruned: 9}, stats)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5}, digester.calls)
	assert.Empty(t, locker.held, "lock released after the cycle")
}

func TestRunOnce_SkipsWhenLocked(t *testing.T) {
	digester := &fakeDigester{}
	locker := &fakeLocker{held: map[string]string{"feed:digest:lock": "other-replica"}}

	s := scheduler.New(&fakeSubs{subs: subs(1)}, &fakePruner{}, digester, locker, scheduler.Options{})
	_, err := s.RunOnce(context.Background())

	assert.ErrorIs(t, err, scheduler.ErrLocked)
	assert.Empty(t, digester.calls)
	assert.Equal(t, "other-replica", locker.held["feed:digest:lock"])
}

func TestRunOnce_PruneFailureIsNotFatal(t *testing.T) {
	digester := &fakeDigester{}
	s := scheduler.New(&fakeSubs{subs: subs(1)}, &fakePruner{err: errors.New("timeout")}, digester,
		&fakeLocker{held: map[string]string{}}, scheduler.Options{})

	stats, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Pruned)
	assert.Equal(t, []int64{1}, digester.calls)
}

func TestRunOnce_SubscriptionError(t *testing.T) {
	locker := &fakeLocker{held: map[string]string{}}
	s := scheduler.New(&fakeSubs{err: errors.New("db down")}, &fakePruner{}, &fakeDigester{}, locker, scheduler.Options{})

	_, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Empty(t, locker.held)
}
