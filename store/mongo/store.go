// Package mongo implements the gradebook composite store on MongoDB using
// grove ORM with the mongodriver.
//
// Integer ids come from a counters collection. Transactions use a session
// and therefore need a replica set or sharded cluster.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"
	"github.com/xraph/grove/migrate"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/gradebook/audit"
	"github.com/xraph/gradebook/grade"
	"github.com/xraph/gradebook/id"
	"github.com/xraph/gradebook/store"
	"github.com/xraph/gradebook/student"
)

// Collection name constants.
const (
	colStudents = "student"
	colAudit    = "gradebook_audit"
	colCounters = "gradebook_counters"
)

// Compile-time interface checks.
var (
	_ store.Store   = (*Store)(nil)
	_ student.Store = (*Store)(nil)
	_ audit.Store   = (*Store)(nil)
	_ grade.Store   = (*gradeStore)(nil)

	_ querier = (*mongodriver.MongoDB)(nil)
	_ querier = (*mongodriver.MongoTx)(nil)
)

// querier is satisfied by both the database and a transaction.
type querier interface {
	NewFind(model ...any) *mongodriver.FindQuery
	NewInsert(model any) *mongodriver.InsertQuery
	NewUpdate(model any) *mongodriver.UpdateQuery
	NewDelete(model any) *mongodriver.DeleteQuery
}

// Store is a MongoDB implementation of the composite gradebook store.
type Store struct {
	db     *grove.DB
	mdb    *mongodriver.MongoDB
	grades map[grade.Subject]*gradeStore
}

// Open connects to uri and uses the named database, or the one in the URI
// path when database is empty.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	drv := mongodriver.New()
	var opts []mongodriver.MongoOption
	if database != "" {
		opts = append(opts, mongodriver.WithDatabase(database))
	}
	if err := drv.Open(ctx, uri, opts...); err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("gradebook/mongo: connect: %w", err)
	}
	db, err := grove.Open(drv)
	if err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("gradebook/mongo: connect: %w", err)
	}
	return New(db), nil
}

// New creates a store on a grove.DB opened with the mongo driver.
func New(db *grove.DB) *Store {
	s := &Store{
		db:     db,
		mdb:    mongodriver.Unwrap(db),
		grades: make(map[grade.Subject]*gradeStore, len(grade.Subjects)),
	}
	for _, subj := range grade.Subjects {
		s.grades[subj] = &gradeStore{s: s, subject: subj, name: subj.Table()}
	}
	return s
}

// DB returns the underlying grove database.
func (s *Store) DB() *grove.DB { return s.db }

// Database returns the underlying mongo database handle.
func (s *Store) Database() *mongod.Database { return s.mdb.Database() }

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

// Migrate runs the gradebook migration group, which creates the indexes.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.mdb)
	if err != nil {
		return fmt.Errorf("gradebook/mongo: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("gradebook/mongo: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

type txKey struct{}

type txScope struct {
	owner *Store
	tx    *mongodriver.MongoTx
}

// InTx runs fn inside a session transaction. The transaction is committed
// once; the driver's retrying WithTransaction helper is not used because fn
// may have side effects outside the database.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}

	gtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("gradebook/mongo: begin tx: %w", err)
	}
	tx, ok := gtx.Raw().(*mongodriver.MongoTx)
	if !ok {
		_ = gtx.Rollback()
		return fmt.Errorf("gradebook/mongo: begin tx: unexpected transaction type %T", gtx.Raw())
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
			err = fmt.Errorf("gradebook/mongo: commit transaction: %w", cerr)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, &txScope{owner: s, tx: tx}))
}

func (s *Store) txFrom(ctx context.Context) *mongodriver.MongoTx {
	scope, ok := ctx.Value(txKey{}).(*txScope)
	if !ok || scope.owner != s {
		return nil
	}
	return scope.tx
}

// conn returns the transaction on ctx, or the database.
func (s *Store) conn(ctx context.Context) querier {
	if tx := s.txFrom(ctx); tx != nil {
		return tx
	}
	return s.mdb
}

type counterModel struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// nextID increments and returns the named counter, inside the transaction
// on ctx when there is one.
func (s *Store) nextID(ctx context.Context, name string) (int64, error) {
	if tx := s.txFrom(ctx); tx != nil {
		ctx = tx.SessionContext(ctx)
	}
	var c counterModel
	err := s.mdb.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("gradebook/mongo: next %s id: %w", name, err)
	}
	return c.Seq, nil
}

// ──────────────────────────────────────────────────
// Student operations
// ──────────────────────────────────────────────────

func (s *Store) SaveStudent(ctx context.Context, st *student.Student) error {
	q := s.conn(ctx)

	if st.ID == 0 {
		newID, err := s.nextID(ctx, colStudents)
		if err != nil {
			return err
		}
		m := studentToModel(st)
		m.ID = newID
		if _, err := q.NewInsert(m).Exec(ctx); err != nil {
			return studentWriteError(err)
		}
		st.ID = newID
		return nil
	}

	m := studentToModel(st)
	res, err := q.NewUpdate(m).Filter(bson.M{"_id": m.ID}).Exec(ctx)
	if err != nil {
		return studentWriteError(err)
	}
	if res.MatchedCount() == 0 {
		return student.ErrNotFound
	}
	return nil
}

func studentWriteError(err error) error {
	if mongod.IsDuplicateKeyError(err) {
		return student.ErrDuplicateEmail
	}
	return fmt.Errorf("gradebook/mongo: save student: %w", err)
}

func (s *Store) GetStudent(ctx context.Context, studentID int64) (*student.Student, error) {
	return s.findStudent(ctx, bson.M{"_id": studentID})
}

func (s *Store) GetStudentByEmail(ctx context.Context, emailAddress string) (*student.Student, error) {
	return s.findStudent(ctx, bson.M{"email_address": emailAddress})
}

func (s *Store) findStudent(ctx context.Context, filter bson.M) (*student.Student, error) {
	var m studentModel
	if err := s.conn(ctx).NewFind(&m).Filter(filter).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, student.ErrNotFound
		}
		return nil, fmt.Errorf("gradebook/mongo: get student: %w", err)
	}
	return studentFromModel(&m), nil
}

func (s *Store) DeleteStudent(ctx context.Context, studentID int64) error {
	_, err := s.conn(ctx).NewDelete((*studentModel)(nil)).Filter(bson.M{"_id": studentID}).Exec(ctx)
	if err != nil {
		return fmt.Errorf("gradebook/mongo: delete student: %w", err)
	}
	return nil
}

func (s *Store) ListStudents(ctx context.Context) ([]*student.Student, error) {
	var models []studentModel
	err := s.conn(ctx).NewFind(&models).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("gradebook/mongo: list students: %w", err)
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

// gradeStore serves one subject collection.
type gradeStore struct {
	s       *Store
	subject grade.Subject
	name    string
}

func (g *gradeStore) Subject() grade.Subject { return g.subject }

func (g *gradeStore) SaveGrade(ctx context.Context, gr *grade.Grade) error {
	q := g.s.conn(ctx)
	gr.Subject = g.subject

	if gr.ID == 0 {
		newID, err := g.s.nextID(ctx, g.name)
		if err != nil {
			return err
		}
		m := gradeToModel(gr)
		m.ID = newID
		if _, err := q.NewInsert(m).Collection(g.name).Exec(ctx); err != nil {
			return fmt.Errorf("gradebook/mongo: save %s: %w", g.name, err)
		}
		gr.ID = newID
		return nil
	}

	m := gradeToModel(gr)
	res, err := q.NewUpdate(m).Collection(g.name).Filter(bson.M{"_id": m.ID}).Exec(ctx)
	if err != nil {
		return fmt.Errorf("gradebook/mongo: save %s: %w", g.name, err)
	}
	if res.MatchedCount() == 0 {
		return grade.ErrNotFound
	}
	return nil
}

func (g *gradeStore) GetGrade(ctx context.Context, gradeID int64) (*grade.Grade, error) {
	var m gradeModel
	err := g.s.conn(ctx).NewFind(&m).Collection(g.name).Filter(bson.M{"_id": gradeID}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, grade.ErrNotFound
		}
		return nil, fmt.Errorf("gradebook/mongo: get %s: %w", g.name, err)
	}
	return gradeFromModel(&m, g.subject), nil
}

func (g *gradeStore) ListGradesByStudent(ctx context.Context, studentID int64) ([]*grade.Grade, error) {
	var models []gradeModel
	err := g.s.conn(ctx).NewFind(&models).
		Collection(g.name).
		Filter(bson.M{"student_id": studentID}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("gradebook/mongo: list %s: %w", g.name, err)
	}
	result := make([]*grade.Grade, len(models))
	for i := range models {
		result[i] = gradeFromModel(&models[i], g.subject)
	}
	return result, nil
}

func (g *gradeStore) DeleteGrade(ctx context.Context, gradeID int64) error {
	_, err := g.s.conn(ctx).NewDelete((*gradeModel)(nil)).
		Collection(g.name).
		Filter(bson.M{"_id": gradeID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gradebook/mongo: delete %s: %w", g.name, err)
	}
	return nil
}

func (g *gradeStore) DeleteGradesByStudent(ctx context.Context, studentID int64) error {
	_, err := g.s.conn(ctx).NewDelete((*gradeModel)(nil)).
		Collection(g.name).
		Filter(bson.M{"student_id": studentID}).
		Many().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gradebook/mongo: delete %s by student: %w", g.name, err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Audit operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(ctx context.Context, e *audit.Entry) error {
	if _, err := s.conn(ctx).NewInsert(auditToModel(e)).Exec(ctx); err != nil {
		return fmt.Errorf("gradebook/mongo: create audit entry: %w", err)
	}
	return nil
}

func (s *Store) GetAuditEntry(ctx context.Context, entryID id.AuditID) (*audit.Entry, error) {
	var m auditModel
	if err := s.conn(ctx).NewFind(&m).Filter(bson.M{"_id": entryID.String()}).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, audit.ErrNotFound
		}
		return nil, fmt.Errorf("gradebook/mongo: get audit entry: %w", err)
	}
	return auditFromModel(&m)
}

func (s *Store) ListAuditEntries(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	var models []auditModel
	err := s.conn(ctx).NewFind(&models).
		Filter(auditFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("gradebook/mongo: list audit entries: %w", err)
	}
	result := make([]*audit.Entry, 0, len(models))
	for i := range models {
		e, err := auditFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("gradebook/mongo: list audit entries: %w", err)
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *Store) CountAuditEntries(ctx context.Context, filter *audit.QueryFilter) (int64, error) {
	n, err := s.conn(ctx).NewFind((*auditModel)(nil)).Filter(auditFilter(filter)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gradebook/mongo: count audit entries: %w", err)
	}
	return n, nil
}

func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.conn(ctx).NewDelete((*auditModel)(nil)).
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Many().
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("gradebook/mongo: purge audit entries: %w", err)
	}
	return res.DeletedCount(), nil
}

func auditFilter(filter *audit.QueryFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.TenantID != "" {
		f["tenant_id"] = filter.TenantID
	}
	if filter.Operation != "" {
		f["operation"] = string(filter.Operation)
	}
	if filter.Outcome != "" {
		f["outcome"] = string(filter.Outcome)
	}
	if filter.StudentID != 0 {
		f["student_id"] = filter.StudentID
	}
	window := bson.M{}
	if filter.After != nil {
		window["$gt"] = *filter.After
	}
	if filter.Before != nil {
		window["$lt"] = *filter.Before
	}
	if len(window) > 0 {
		f["created_at"] = window
	}
	return f
}
