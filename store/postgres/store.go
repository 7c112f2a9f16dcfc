// Package postgres implements the gradebook composite store on PostgreSQL
// using grove ORM with Go-based migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/gradebook/audit"
	"github.com/xraph/gradebook/grade"
	"github.com/xraph/gradebook/id"
	"github.com/xraph/gradebook/store"
	"github.com/xraph/gradebook/student"
)

// Compile-time interface checks.
var (
	_ store.Store   = (*Store)(nil)
	_ student.Store = (*Store)(nil)
	_ audit.Store   = (*Store)(nil)
	_ grade.Store   = (*gradeStore)(nil)

	_ querier = (*pgdriver.PgDB)(nil)
	_ querier = (*pgdriver.PgTx)(nil)
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// querier is satisfied by both the pool and a transaction.
type querier interface {
	NewSelect(model ...any) *pgdriver.SelectQuery
	NewInsert(model any) *pgdriver.InsertQuery
	NewUpdate(model any) *pgdriver.UpdateQuery
	NewDelete(model any) *pgdriver.DeleteQuery
}

// Store is a PostgreSQL implementation of the composite gradebook store.
type Store struct {
	db     *grove.DB
	pgdb   *pgdriver.PgDB
	grades map[grade.Subject]*gradeStore
}

// Open connects a pool to connString, a URL or keyword/value DSN, and wraps
// it in a grove.DB.
func Open(ctx context.Context, connString string, opts ...driver.Option) (*Store, error) {
	drv := pgdriver.New()
	if err := drv.Open(ctx, connString, opts...); err != nil {
		return nil, fmt.Errorf("gradebook/postgres: connect: %w", err)
	}
	db, err := grove.Open(drv)
	if err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("gradebook/postgres: connect: %w", err)
	}
	return New(db), nil
}

// New creates a store on a grove.DB opened with the pg driver.
func New(db *grove.DB) *Store {
	s := &Store{
		db:     db,
		pgdb:   pgdriver.Unwrap(db),
		grades: make(map[grade.Subject]*gradeStore, len(grade.Subjects)),
	}
	for _, subj := range grade.Subjects {
		s.grades[subj] = &gradeStore{s: s, subject: subj, table: subj.Table()}
	}
	return s
}

// DB returns the underlying grove database.
func (s *Store) DB() *grove.DB { return s.db }

// Students returns s.
func (s *Store) Students() student.Store { return s }

// Grades returns the grade store of subject.
func (s *Store) Grades(subject grade.Subject) grade.Store {
	if gs, ok := s.grades[subject]; ok {
		return gs
	}
	return nil
}

// Audit returns s.
func (s *Store) Audit() audit.Store { return s }

// Migrate runs programmatic migrations via the grove orchestrator. The
// executor's lock table serializes concurrent callers.
func (s *Store) Migrate(ctx context.Context) error {
	orch, err := s.orchestrator()
	if err != nil {
		return err
	}
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("gradebook/postgres: migration failed: %w", err)
	}
	return nil
}

// MigrationStatus reports applied and pending migrations of the gradebook group.
func (s *Store) MigrationStatus(ctx context.Context) ([]*migrate.GroupStatus, error) {
	orch, err := s.orchestrator()
	if err != nil {
		return nil, err
	}
	status, err := orch.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("gradebook/postgres: migration status: %w", err)
	}
	return status, nil
}

func (s *Store) orchestrator() (*migrate.Orchestrator, error) {
	executor, err := migrate.NewExecutorFor(s.pgdb)
	if err != nil {
		return nil, fmt.Errorf("gradebook/postgres: create migration executor: %w", err)
	}
	return migrate.NewOrchestrator(executor, Migrations), nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

type txKey struct{}

type txScope struct {
	owner *Store
	tx    *pgdriver.PgTx
}

// InTx runs fn in a transaction carried on the context.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}

	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("gradebook/postgres: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("gradebook/postgres: commit tx: %w", cerr)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, &txScope{owner: s, tx: tx}))
}

func (s *Store) txFrom(ctx context.Context) *pgdriver.PgTx {
	scope, ok := ctx.Value(txKey{}).(*txScope)
	if !ok || scope.owner != s {
		return nil
	}
	return scope.tx
}

// conn returns the transaction on ctx, or the pool.
func (s *Store) conn(ctx context.Context) querier {
	if tx := s.txFrom(ctx); tx != nil {
		return tx
	}
	return s.pgdb
}

// isNoRows matches pgx's sentinel as well as the database/sql one.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// requireAffected turns an UPDATE that matched nothing into notFound.
func requireAffected(res driver.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("gradebook/postgres: rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// ──────────────────────────────────────────────────
// Student operations
// ──────────────────────────────────────────────────

func (s *Store) SaveStudent(ctx context.Context, st *student.Student) error {
	q := s.conn(ctx)
	m := studentToModel(st)

	if st.ID == 0 {
		if err := q.NewInsert(m).Returning("id").Scan(ctx, &st.ID); err != nil {
			return studentWriteError(err)
		}
		return nil
	}

	res, err := q.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return studentWriteError(err)
	}
	return requireAffected(res, student.ErrNotFound)
}

func studentWriteError(err error) error {
	if isUniqueViolation(err) {
		return student.ErrDuplicateEmail
	}
	return fmt.Errorf("gradebook/postgres: save student: %w", err)
}

func (s *Store) GetStudent(ctx context.Context, studentID int64) (*student.Student, error) {
	return s.findStudent(ctx, "id = ?", studentID)
}

func (s *Store) GetStudentByEmail(ctx context.Context, emailAddress string) (*student.Student, error) {
	return s.findStudent(ctx, "email_address = ?", emailAddress)
}

func (s *Store) findStudent(ctx context.Context, where string, arg any) (*student.Student, error) {
	m := new(studentModel)
	if err := s.conn(ctx).NewSelect(m).Where(where, arg).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, student.ErrNotFound
		}
		return nil, fmt.Errorf("gradebook/postgres: get student: %w", err)
	}
	return studentFromModel(m), nil
}

func (s *Store) DeleteStudent(ctx context.Context, studentID int64) error {
	_, err := s.conn(ctx).NewDelete((*studentModel)(nil)).Where("id = ?", studentID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("gradebook/postgres: delete student: %w", err)
	}
	return nil
}

func (s *Store) ListStudents(ctx context.Context) ([]*student.Student, error) {
	var models []studentModel
	if err := s.conn(ctx).NewSelect(&models).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("gradebook/postgres: list students: %w", err)
	}
	result := make([]*student.Student, len(models))
	for i := range models {
		result[i] = studentFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Grade operations
// ──────────────────────────────────────────────────

// gradeStore serves one subject table.
type gradeStore struct {
	s       *Store
	subject grade.Subject
	table   string
}

func (g *gradeStore) Subject() grade.Subject { return g.subject }

func (g *gradeStore) SaveGrade(ctx context.Context, gr *grade.Grade) error {
	q := g.s.conn(ctx)
	gr.Subject = g.subject
	m := gradeToModel(gr)

	if gr.ID == 0 {
		if err := q.NewInsert(m).Returning("id").Scan(ctx, &gr.ID); err != nil {
			return fmt.Errorf("gradebook/postgres: save %s: %w", g.table, err)
		}
		return nil
	}

	res, err := q.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("gradebook/postgres: save %s: %w", g.table, err)
	}
	return requireAffected(res, grade.ErrNotFound)
}

func (g *gradeStore) GetGrade(ctx context.Context, gradeID int64) (*grade.Grade, error) {
	m := newGradeModel(g.subject)
	if err := g.s.conn(ctx).NewSelect(m).Where("id = ?", gradeID).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, grade.ErrNotFound
		}
		return nil, fmt.Errorf("gradebook/postgres: get %s: %w", g.table, err)
	}
	return gradeFromRow(m.row(), g.subject), nil
}

func (g *gradeStore) ListGradesByStudent(ctx context.Context, studentID int64) ([]*grade.Grade, error) {
	// GradeRow carries no table, so the subject table is named explicitly.
	var rows []GradeRow
	err := g.s.conn(ctx).NewSelect(&rows).
		TableExpr(`"`+g.table+`"`).
		Where("student_id = ?", studentID).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("gradebook/postgres: list %s: %w", g.table, err)
	}
	result := make([]*grade.Grade, len(rows))
	for i := range rows {
		result[i] = gradeFromRow(&rows[i], g.subject)
	}
	return result, nil
}

func (g *gradeStore) DeleteGrade(ctx context.Context, gradeID int64) error {
	_, err := g.s.conn(ctx).NewDelete(newGradeModel(g.subject)).Where("id = ?", gradeID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("gradebook/postgres: delete %s: %w", g.table, err)
	}
	return nil
}

func (g *gradeStore) DeleteGradesByStudent(ctx context.Context, studentID int64) error {
	_, err := g.s.conn(ctx).NewDelete(newGradeModel(g.subject)).Where("student_id = ?", studentID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("gradebook/postgres: delete %s by student: %w", g.table, err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Audit operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(ctx context.Context, e *audit.Entry) error {
	if _, err := s.conn(ctx).NewInsert(auditToModel(e)).Exec(ctx); err != nil {
		return fmt.Errorf("gradebook/postgres: create audit entry: %w", err)
	}
	return nil
}

func (s *Store) GetAuditEntry(ctx context.Context, entryID id.AuditID) (*audit.Entry, error) {
	m := new(auditModel)
	if err := s.conn(ctx).NewSelect(m).Where("id = ?", entryID.String()).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, audit.ErrNotFound
		}
		return nil, fmt.Errorf("gradebook/postgres: get audit entry: %w", err)
	}
	return auditFromModel(m)
}

func (s *Store) ListAuditEntries(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	var models []auditModel
	q := applyAuditFilter(s.conn(ctx).NewSelect(&models), filter)
	if err := q.OrderExpr("created_at ASC, id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("gradebook/postgres: list audit entries: %w", err)
	}
	result := make([]*audit.Entry, 0, len(models))
	for i := range models {
		e, err := auditFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("gradebook/postgres: list audit entries: %w", err)
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *Store) CountAuditEntries(ctx context.Context, filter *audit.QueryFilter) (int64, error) {
	q := applyAuditFilter(s.conn(ctx).NewSelect((*auditModel)(nil)), filter)
	n, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gradebook/postgres: count audit entries: %w", err)
	}
	return n, nil
}

func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.conn(ctx).NewDelete((*auditModel)(nil)).Where("created_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("gradebook/postgres: purge audit entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("gradebook/postgres: purge audit entries: %w", err)
	}
	return n, nil
}

// applyAuditFilter narrows q to the entries matching filter. Time bounds
// are exclusive.
func applyAuditFilter(q *pgdriver.SelectQuery, filter *audit.QueryFilter) *pgdriver.SelectQuery {
	if filter == nil {
		return q
	}
	if filter.TenantID != "" {
		q = q.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Operation != "" {
		q = q.Where("operation = ?", string(filter.Operation))
	}
	if filter.Outcome != "" {
		q = q.Where("outcome = ?", string(filter.Outcome))
	}
	if filter.StudentID != 0 {
		q = q.Where("student_id = ?", filter.StudentID)
	}
	if filter.After != nil {
		q = q.Where("created_at > ?", *filter.After)
	}
	if filter.Before != nil {
		q = q.Where("created_at < ?", *filter.Before)
	}
	return q
}
