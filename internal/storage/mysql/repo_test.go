package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync/atomic"
	"testing"

	"hotel_search/internal/domain"
)

// txDriver is a database/sql driver whose commits always fail.
type txDriver struct{ stats *txStats }

type txStats struct {
	commits, rollbacks atomic.Int32
	readOnly           atomic.Bool
	isolation          atomic.Int32
}

func (d txDriver) Open(string) (driver.Conn, error) { return txConn(d), nil }

type txConn struct{ stats *txStats }

func (txConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("no statements") }
func (txConn) Close() error                        { return nil }
func (c txConn) Begin() (driver.Tx, error)         { return txFake(c), nil }

func (c txConn) BeginTx(_ context.Context, o driver.TxOptions) (driver.Tx, error) {
	c.stats.readOnly.Store(o.ReadOnly)
	c.stats.isolation.Store(int32(o.Isolation))
	return txFake(c), nil
}

type txFake struct{ stats *txStats }

func (t txFake) Commit() error {
	t.stats.commits.Add(1)
	return errors.New("commit: connection lost")
}

func (t txFake) Rollback() error {
	t.stats.rollbacks.Add(1)
	return nil
}

var snapshotStats = &txStats{}

func init() { sql.Register("snapshot-tx", txDriver{stats: snapshotStats}) }

func TestReadSnapshot_EndsWithRollback(t *testing.T) {
	db, err := sql.Open("snapshot-tx", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	repo := New(db)

	called := false
	err = repo.ReadSnapshot(context.Background(), func(ctx context.Context, v domain.InventoryView) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("a built resolution must not fail on snapshot close: %v", err)
	}
	if !called {
		t.Fatalf("fn not called")
	}
	if c, r := snapshotStats.commits.Load(), snapshotStats.rollbacks.Load(); c != 0 || r != 1 {
		t.Fatalf("commits=%d rollbacks=%d", c, r)
	}
	if !snapshotStats.readOnly.Load() || sql.IsolationLevel(snapshotStats.isolation.Load()) != sql.LevelRepeatableRead {
		t.Fatalf("snapshot must be read-only REPEATABLE READ")
	}

	boom := errors.New("boom")
	err = repo.ReadSnapshot(context.Background(), func(ctx context.Context, v domain.InventoryView) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
