// Package sqlstore holds the queries shared by the SQLite and PostgreSQL
// stores. Queries are written with '?' placeholders and rebound per dialect.
package sqlstore

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// Rebind rewrites '?' placeholders into the dialect's bind style.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Queries implements the data half of storage.Provider on top of a
// database/sql handle. Stores embed it and call Attach once connected.
type Queries struct {
	db      *sql.DB
	dialect Dialect
}

func (q *Queries) Attach(db *sql.DB, d Dialect) {
	q.db = db
	q.dialect = d
}

// DB returns the underlying database connection, or nil before Attach.
func (q *Queries) DB() *sql.DB {
	return q.db
}

func (q *Queries) Dialect() Dialect {
	return q.dialect
}

func (q *Queries) exec(query string, args ...any) (sql.Result, error) {
	return q.db.Exec(q.dialect.Rebind(query), args...)
}

func (q *Queries) query(query string, args ...any) (*sql.Rows, error) {
	return q.db.Query(q.dialect.Rebind(query), args...)
}

func (q *Queries) queryRow(query string, args ...any) *sql.Row {
	return q.db.QueryRow(q.dialect.Rebind(query), args...)
}

// execAffecting runs a state-changing update and reports notFound when no
// row matched.
func (q *Queries) execAffecting(notFound error, query string, args ...any) error {
	result, err := q.exec(query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// timestampFormat is fixed-width so stored timestamps sort as text.
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return t, nil
}

func parseNullTime(field string, value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(field, value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
