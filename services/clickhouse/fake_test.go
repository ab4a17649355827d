package clickhouse

import (
	"context"
	"fmt"
	"strings"
)

type fakeRows struct {
	data [][]any
	i    int
	err  error
}

func (r *fakeRows) Next() bool {
	r.i++
	return r.i <= len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.i-1]
	if len(row) != len(dest) {
		return fmt.Errorf("scan: %d columns into %d targets", len(row), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *uint64:
			*p = row[i].(uint64)
		case *float64:
			*p = row[i].(float64)
		default:
			return fmt.Errorf("scan: unsupported %T", d)
		}
	}
	return nil
}

func (r *fakeRows) Err() error   { return r.err }
func (r *fakeRows) Close() error { return nil }

type fakeBatch struct {
	query   string
	rows    [][]any
	sent    bool
	aborted bool
}

func (b *fakeBatch) Append(v ...any) error { b.rows = append(b.rows, v); return nil }
func (b *fakeBatch) Send() error           { b.sent = true; return nil }
func (b *fakeBatch) Abort() error          { b.aborted = true; return nil }

type fakeConn struct {
	execs   []string
	queries []string
	args    [][]any
	rows    *fakeRows
	batches []*fakeBatch
}

func (c *fakeConn) Query(_ context.Context, q string, args ...any) (Rows, error) {
	c.queries = append(c.queries, q)
	c.args = append(c.args, args)
	if c.rows == nil {
		return &fakeRows{}, nil
	}
	return c.rows, nil
}

func (c *fakeConn) Exec(_ context.Context, q string, _ ...any) error {
	c.execs = append(c.execs, strings.TrimSpace(q))
	return nil
}

func (c *fakeConn) PrepareBatch(_ context.Context, q string) (Batch, error) {
	b := &fakeBatch{query: q}
	c.batches = append(c.batches, b)
	return b, nil
}

func (c *fakeConn) Ping(context.Context) error { return nil }
func (c *fakeConn) Close() error               { return nil }
