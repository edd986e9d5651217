package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"sync"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/rescue/core/model"
)

// Dialect captures the SQL differences between supported drivers.
type Dialect struct {
	Driver string
	// Numbered reports whether placeholders are $1..$n instead of ?.
	Numbered bool
	// LockRow is appended to the SELECT run inside Update.
	LockRow string
}

var (
	SQLite   = Dialect{Driver: "sqlite"}
	Postgres = Dialect{Driver: "postgres", Numbered: true, LockRow: " FOR UPDATE"}
)

var placeholder = regexp.MustCompile(`\?`)

func (d Dialect) rebind(q string) string {
	if !d.Numbered {
		return q
	}
	n := 0
	return placeholder.ReplaceAllStringFunc(q, func(string) string {
		n++
		return "$" + strconv.Itoa(n)
	})
}

var tableName = regexp.MustCompile(`^[a-z_]+$`)

// SQL is a Collection persisting JSON-encoded records in a two-column table.
type SQL[T any] struct {
	db      *sql.DB
	dialect Dialect
	table   string
	// writes serializes Update inside this process; the row lock covers
	// other processes on drivers that support it.
	writes sync.Mutex
}

// OpenDB opens a connection pool for the dialect. SQLite is limited to one
// connection so in-memory databases stay consistent.
func OpenDB(d Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, err
	}
	if d.Driver == SQLite.Driver {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Driver, err)
	}
	return db, nil
}

// NewSQL ensures the table exists and returns the collection.
func NewSQL[T any](db *sql.DB, d Dialect, table string) (*SQL[T], error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	schema := `CREATE TABLE IF NOT EXISTS ` + table + ` (
        id TEXT PRIMARY KEY,
        record TEXT NOT NULL
    )`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create %s: %w", table, err)
	}
	return &SQL[T]{db: db, dialect: d, table: table}, nil
}

func (s *SQL[T]) Insert(ctx context.Context, id string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO `+s.table+` (id, record) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`), id, string(b))
	if err != nil {
		return fmt.Errorf("insert %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("insert %s: %w", id, ErrExists)
	}
	return nil
}

func (s *SQL[T]) Put(ctx context.Context, id string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO `+s.table+` (id, record) VALUES (?, ?)
        ON CONFLICT (id) DO UPDATE SET record = excluded.record`), id, string(b))
	if err != nil {
		return fmt.Errorf("put %s: %w", id, err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQL[T]) load(ctx context.Context, q queryer, id, suffix string) (T, error) {
	var (
		v    T
		data string
	)
	err := q.QueryRowContext(ctx, s.dialect.rebind(`SELECT record FROM `+s.table+` WHERE id = ?`+suffix), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return v, fmt.Errorf("get %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return v, fmt.Errorf("get %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return v, fmt.Errorf("unmarshal %s: %w", id, err)
	}
	return v, nil
}

func (s *SQL[T]) Get(ctx context.Context, id string) (T, error) {
	return s.load(ctx, s.db, id, "")
}

func (s *SQL[T]) Update(ctx context.Context, id string, fn func(*T) error) (T, error) {
	s.writes.Lock()
	defer s.writes.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	cur, err := s.load(ctx, tx, id, s.dialect.LockRow)
	if err != nil {
		return cur, err
	}
	next := cur
	if err := fn(&next); err != nil {
		return cur, err
	}
	b, err := json.Marshal(next)
	if err != nil {
		return cur, err
	}
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`UPDATE `+s.table+` SET record = ? WHERE id = ?`), string(b), id); err != nil {
		return cur, fmt.Errorf("update %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return cur, fmt.Errorf("commit %s: %w", id, err)
	}
	return next, nil
}

func (s *SQL[T]) List(ctx context.Context, keep func(T) bool) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, record FROM `+s.table)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	type row struct {
		id string
		v  T
	}
	var list []row
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", id, err)
		}
		if keep == nil || keep(v) {
			list = append(list, row{id: id, v: v})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
	res := make([]T, len(list))
	for i, r := range list {
		res[i] = r.v
	}
	return res, nil
}

// Close is a no-op; the pool belongs to whoever opened it.
func (s *SQL[T]) Close() error { return nil }

// sharedDB closes the pool once every collection using it is closed.
type sharedDB struct {
	db   *sql.DB
	mu   sync.Mutex
	refs int
}

func (s *sharedDB) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		return s.db.Close()
	}
	return nil
}

type closerFunc func() error

// sqlCollection wraps an SQL collection so closing decrements the shared pool.
type sqlCollection[T any] struct {
	*SQL[T]
	release closerFunc
}

func (c sqlCollection[T]) Close() error { return c.release() }

// NewSQLStores opens dsn and creates the alerts, vehicles and signals tables.
func NewSQLStores(d Dialect, dsn string) (Stores, error) {
	db, err := OpenDB(d, dsn)
	if err != nil {
		return Stores{}, err
	}
	shared := &sharedDB{db: db, refs: 3}
	alerts, err := NewSQL[model.EmergencyAlert](db, d, "alerts")
	if err != nil {
		_ = db.Close()
		return Stores{}, err
	}
	vehicles, err := NewSQL[model.Vehicle](db, d, "vehicles")
	if err != nil {
		_ = db.Close()
		return Stores{}, err
	}
	signals, err := NewSQL[model.TrafficSignal](db, d, "signals")
	if err != nil {
		_ = db.Close()
		return Stores{}, err
	}
	return Stores{
		Alerts:   sqlCollection[model.EmergencyAlert]{alerts, shared.Close},
		Vehicles: sqlCollection[model.Vehicle]{vehicles, shared.Close},
		Signals:  sqlCollection[model.TrafficSignal]{signals, shared.Close},
	}, nil
}
