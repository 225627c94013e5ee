// Package sqlstore implements the persistence ports on database/sql for the
// MySQL and SQLite drivers.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/prasad758/timesheet-version-sub000/internal/migrate"
	"github.com/prasad758/timesheet-version-sub000/internal/week"
)

// Driver names accepted by Open.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// dialect holds the statements whose syntax differs between drivers.
type dialect struct {
	name            string
	ensureTimesheet string
	addClockHours   string
	isUnique        func(error) bool
	timeArg         func(time.Time) any
}

var hourColumns = func() []string {
	cols := make([]string, len(week.Days))
	for i, d := range week.Days {
		cols[i] = d.Column()
	}
	return cols
}()

const insertClockEntry = `
INSERT INTO timesheet_entries
  (id, timesheet_id, project, task, source, mon_hours, tue_hours, wed_hours, thu_hours, fri_hours, sat_hours, sun_hours)
VALUES
  (?, ?, ?, ?, 'time_clock', ?, ?, ?, ?, ?, ?, ?)
`

func accumulate(format string) string {
	parts := make([]string, len(hourColumns))
	for i, c := range hourColumns {
		parts[i] = fmt.Sprintf(format, c, c, c)
	}
	return strings.Join(parts, ",\n  ")
}

var mysqlDialect = dialect{
	name: DriverMySQL,
	ensureTimesheet: `
INSERT INTO timesheets (id, user_id, week_start, week_end, status, created_at)
VALUES (?, ?, ?, ?, 'draft', ?)
ON DUPLICATE KEY UPDATE id = id;
`,
	addClockHours: insertClockEntry + "ON DUPLICATE KEY UPDATE\n  " + accumulate("%s = %s + VALUES(%s)") + ";",
	isUnique: func(err error) bool {
		var me *mysql.MySQLError
		return errors.As(err, &me) && me.Number == 1062
	},
	timeArg: func(t time.Time) any { return t.UTC() },
}

var sqliteDialect = dialect{
	name: DriverSQLite,
	ensureTimesheet: `
INSERT INTO timesheets (id, user_id, week_start, week_end, status, created_at)
VALUES (?, ?, ?, ?, 'draft', ?)
ON CONFLICT(user_id, week_start) DO NOTHING;
`,
	addClockHours: insertClockEntry +
		"ON CONFLICT(timesheet_id, project, task) WHERE source = 'time_clock' DO UPDATE SET\n  " +
		accumulate("%s = %s + excluded.%s") + ";",
	isUnique: func(err error) bool {
		var se *sqlite.Error
		if !errors.As(err, &se) {
			return false
		}
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// Extended codes disabled.
			return strings.Contains(se.Error(), "UNIQUE constraint failed")
		}
		return false
	},
	timeArg: func(t time.Time) any { return t.UTC().Format(storedTimeLayout) },
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverMySQL:
		return mysqlDialect, nil
	case DriverSQLite:
		return sqliteDialect, nil
	}
	return dialect{}, fmt.Errorf("sqlstore: unsupported driver %q", driver)
}

// Store implements ports.Store.
type Store struct {
	db  *sql.DB
	d   dialect
	log *slog.Logger
	now func() time.Time
}

// Open connects to the database. Schema migrations are applied separately
// with migrate.Run.
// Example MySQL DSN: user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
func Open(ctx context.Context, driver, dsn string, log *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: %s DSN is required", driver)
	}
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverMySQL:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	case DriverSQLite:
		// One writer keeps SQLite from returning SQLITE_BUSY under load.
		db.SetMaxOpenConns(1)
		if err := sqlitePragmas(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, d: d, log: log, now: time.Now}, nil
}

// NewMemory opens a migrated in-memory SQLite store.
func NewMemory(ctx context.Context, log *slog.Logger) (*Store, error) {
	s, err := Open(ctx, DriverSQLite, ":memory:", log)
	if err != nil {
		return nil, err
	}
	if err := migrate.Apply(ctx, s.db, DriverSQLite, log); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func sqlitePragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the underlying DB.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ts(t time.Time) any { return s.d.timeArg(t) }

func (s *Store) nullTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return s.d.timeArg(*t)
}

// expectRow turns a zero-row UPDATE into notFound.
func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
