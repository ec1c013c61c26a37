package tracker_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// valueRow scans fixed values into the destinations, in order.
type valueRow struct {
	vals []any
	err  error
}

func (r valueRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.vals))
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.vals[i]))
	}
	return nil
}

// sliceRows is a minimal pgx.Rows over in-memory rows.
type sliceRows struct {
	rows []valueRow
	i    int
}

func (r *sliceRows) Close()                                       {}
func (r *sliceRows) Err() error                                   { return nil }
func (r *sliceRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *sliceRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *sliceRows) Values() ([]any, error)                       { return r.rows[r.i-1].vals, nil }
func (r *sliceRows) RawValues() [][]byte                          { return nil }
func (r *sliceRows) Conn() *pgx.Conn                              { return nil }

func (r *sliceRows) Next() bool {
	if r.i >= len(r.rows) {
		return false
	}
	r.i++
	return true
}

func (r *sliceRows) Scan(dest ...any) error { return r.rows[r.i-1].Scan(dest...) }

type call struct {
	sql  string
	args []any
}

// scriptedDB answers QueryRow and Query calls from queues, in order.
type scriptedDB struct {
	rows    []pgx.Row
	results []*sliceRows
	calls   []call
}

func (d *scriptedDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.calls = append(d.calls, call{sql, args})
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (d *scriptedDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	d.calls = append(d.calls, call{sql, args})
	if len(d.results) == 0 {
		return nil, errors.New("unexpected query")
	}
	r := d.results[0]
	d.results = d.results[1:]
	return r, nil
}

func (d *scriptedDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	d.calls = append(d.calls, call{sql, args})
	if len(d.rows) == 0 {
		return valueRow{err: errors.New("unexpected query row")}
	}
	r := d.rows[0]
	d.rows = d.rows[1:]
	return r
}

type published struct {
	channel string
	message []byte
}

type fakePublisher struct {
	events []published
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.events = append(p.events, published{channel, message.([]byte)})
	cmd := redis.NewIntCmd(ctx)
	if p.err != nil {
		cmd.SetErr(p.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func markRow(url, title, status string) valueRow {
	ts := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	return valueRow{vals: []any{url, title, status, []byte(`[]`), ts, ts}}
}
