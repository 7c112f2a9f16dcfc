package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"

	// Registers the SQLite migration executor with grove.
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"
)

// Migrations is the grove migration group for the gradebook store (SQLite).
var Migrations = migrate.NewGroup("gradebook")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_student",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS student (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    first_name     TEXT NOT NULL,
    last_name      TEXT NOT NULL,
    email_address  TEXT NOT NULL UNIQUE
);`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS student`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_grade_tables",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS math_grade (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    student_id  INTEGER NOT NULL,
    grade       REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_math_grade_student ON math_grade (student_id);

CREATE TABLE IF NOT EXISTS science_grade (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    student_id  INTEGER NOT NULL,
    grade       REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_science_grade_student ON science_grade (student_id);

CREATE TABLE IF NOT EXISTS history_grade (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    student_id  INTEGER NOT NULL,
    grade       REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_grade_student ON history_grade (student_id);`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS history_grade;
DROP TABLE IF EXISTS science_grade;
DROP TABLE IF EXISTS math_grade;`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_audit",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gradebook_audit (
    id          TEXT PRIMARY KEY,
    app_id      TEXT NOT NULL DEFAULT '',
    tenant_id   TEXT NOT NULL DEFAULT '',
    actor       TEXT NOT NULL DEFAULT '',
    operation   TEXT NOT NULL,
    outcome     TEXT NOT NULL,
    reason      TEXT NOT NULL DEFAULT '',
    student_id  INTEGER NOT NULL DEFAULT 0,
    grade_id    INTEGER NOT NULL DEFAULT 0,
    subject     TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gradebook_audit_created ON gradebook_audit (created_at, id);
CREATE INDEX IF NOT EXISTS idx_gradebook_audit_student ON gradebook_audit (student_id);`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gradebook_audit`)
				return err
			},
		},
	)
}
