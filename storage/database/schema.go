package database

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// tables are created in order; $SERIAL and $TIMESTAMP are replaced per engine.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id $SERIAL,
		name TEXT,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('admin', 'instructor', 'student'))
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id $SERIAL,
		subject TEXT NOT NULL,
		number TEXT NOT NULL,
		title TEXT NOT NULL,
		term TEXT NOT NULL,
		instructor_id INTEGER NOT NULL REFERENCES users (id)
	)`,
	`CREATE TABLE IF NOT EXISTS course_students (
		id $SERIAL,
		course_id INTEGER NOT NULL REFERENCES courses (id) ON DELETE CASCADE,
		student_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		UNIQUE (course_id, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS assignments (
		id $SERIAL,
		course_id INTEGER NOT NULL REFERENCES courses (id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		points INTEGER NOT NULL,
		due $TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS assignment_submissions (
		id $SERIAL,
		assignment_id INTEGER NOT NULL REFERENCES assignments (id) ON DELETE CASCADE,
		student_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		enrollment_id INTEGER NOT NULL REFERENCES course_students (id) ON DELETE CASCADE,
		submitted_at $TIMESTAMP NOT NULL,
		original_filename TEXT NOT NULL,
		storage_filename TEXT NOT NULL UNIQUE
	)`,
}

var engineTypes = map[string]*strings.Replacer{
	Postgres: strings.NewReplacer("$SERIAL", "SERIAL PRIMARY KEY", "$TIMESTAMP", "TIMESTAMPTZ"),
	SQLite:   strings.NewReplacer("$SERIAL", "INTEGER PRIMARY KEY AUTOINCREMENT", "$TIMESTAMP", "TIMESTAMP"),
}

// EnsureSchema creates the missing tables. It never alters existing ones.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	r, ok := engineTypes[db.DriverName()]
	if !ok {
		return errors.Errorf("unsupported database engine %q", db.DriverName())
	}
	for _, ddl := range tables {
		if _, err := db.ExecContext(ctx, r.Replace(ddl)); err != nil {
			return errors.Wrap(err, "creating tables")
		}
	}
	return nil
}
