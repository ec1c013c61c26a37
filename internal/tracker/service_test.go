package tracker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/feed-service/internal/tracker"
)

func TestMarkCard_FirstMarkAnyStatus(t *testing.T) {
	for _, status := range []string{"SAVED", "APPLIED", "HIDDEN"} {
		t.Run(status, func(t *testing.T) {
			db := &scriptedDB{rows: []pgx.Row{
				valueRow{err: pgx.ErrNoRows},
				markRow("https://a.example/1", "Go Dev", status),
			}}
			pub := &fakePublisher{}
			svc := tracker.NewService(db, pub)

			m, err := svc.MarkCard(context.Background(), 7, "https://a.example/1", "Go Dev", status)
			require.NoError(t, err)
			assert.Equal(t, status, m.Status)

			upsert := db.calls[1]
			assert.Equal(t, "", upsert.args[5], "first mark compares against no prior status")

			require.Len(t, pub.events, 1)
			assert.Equal(t, tracker.EventCardMarked, pub.events[0].channel)
			var ev map[string]any
			require.NoError(t, json.Unmarshal(pub.events[0].message, &ev))
			assert.Equal(t, status, ev["to"])
			assert.Equal(t, "", ev["from"])
		})
	}
}

func TestMarkCard_AllowedTransition(t *testing.T) {
	db := &scriptedDB{rows: []pgx.Row{
		valueRow{vals: []any{"SAVED"}},
		markRow("u1", "", "APPLIED"),
	}}
	svc := tracker.NewService(db, &fakePublisher{})

	m, err := svc.MarkCard(context.Background(), 7, "u1", "", "APPLIED")
	require.NoError(t, err)
	assert.Equal(t, "APPLIED", m.Status)
	assert.Equal(t, "SAVED", db.calls[1].args[5])
}

func TestMarkCard_ForbiddenTransition(t *testing.T) {
	db := &scriptedDB{rows: []pgx.Row{valueRow{vals: []any{"APPLIED"}}}}
	pub := &fakePublisher{}
	svc := tracker.NewService(db, pub)

	_, err := svc.MarkCard(context.Background(), 7, "u1", "", "HIDDEN")
	var ve *tracker.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Msg, "APPLIED → HIDDEN")
	assert.Len(t, db.calls, 1)
	assert.Empty(t, pub.events)
}

func TestMarkCard_InvalidInput(t *testing.T) {
	svc := tracker.NewService(&scriptedDB{}, &fakePublisher{})
	var ve *tracker.ValidationError

	_, err := svc.MarkCard(context.Background(), 7, "  ", "", "SAVED")
	assert.ErrorAs(t, err, &ve)

	_, err = svc.MarkCard(context.Background(), 7, "u1", "", "FAVOURITE")
	assert.ErrorAs(t, err, &ve)
}

func TestMarkCard_ConcurrentChange(t *testing.T) {
	db := &scriptedDB{rows: []pgx.Row{
		valueRow{vals: []any{"SAVED"}},
		valueRow{err: pgx.ErrNoRows},
	}}
	_, err := tracker.NewService(db, &fakePublisher{}).MarkCard(context.Background(), 7, "u1", "", "HIDDEN")
	assert.ErrorIs(t, err, tracker.ErrConflict)
}

func TestMarkCard_PublishFailureIsNotFatal(t *testing.T) {
	db := &scriptedDB{rows: []pgx.Row{
		valueRow{err: pgx.ErrNoRows},
		markRow("u1", "", "SAVED"),
	}}
	pub := &fakePublisher{err: errors.New("redis down")}

	m, err := tracker.NewService(db, pub).MarkCard(context.Background(), 7, "u1", "", "SAVED")
	require.NoError(t, err)
	assert.Equal(t, "SAVED", m.Status)
}

func TestMarkCard_LookupError(t *testing.T) {
	db := &scriptedDB{rows: []pgx.Row{valueRow{err: errors.New("conn reset")}}}
	_, err := tracker.NewService(db, &fakePublisher{}).MarkCard(context.Background(), 7, "u1", "", "SAVED")
	require.Error(t, err)
	var ve *tracker.ValidationError
	assert.False(t, errors.As(err, &ve))
}

func TestExcludedURLs(t *testing.T) {
	db := &scriptedDB{results: []*sliceRows{{rows: []valueRow{
		{vals: []any{"u1"}},
		{vals: []any{"u2"}},
	}}}}

	got, err := tracker.NewService(db, &fakePublisher{}).ExcludedURLs(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"u1": true, "u2": true}, got)
	assert.Equal(t, []any{int64(7), "APPLIED", "HIDDEN"}, db.calls[0].args)
}

func TestListMarks(t *testing.T) {
	db := &scriptedDB{results: []*sliceRows{{rows: []valueRow{
		markRow("u1", "Go Dev", "SAVED"),
	}}}}
	svc := tracker.NewService(db, &fakePublisher{})

	marks, err := svc.ListMarks(context.Background(), 7, "SAVED")
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, "Go Dev", marks[0].Title)
	assert.Equal(t, "SAVED", db.calls[0].args[1])

	_, err = svc.ListMarks(context.Background(), 7, "saved")
	var ve *tracker.ValidationError
	assert.ErrorAs(t, err, &ve)
}
