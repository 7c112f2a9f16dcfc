// Package memory provides an in-memory implementation of the gradebook
// composite store. It is intended for testing and development.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

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
)

// Store is a thread-safe in-memory store for all gradebook records.
//
// InTx holds the write lock for the whole transaction, so transactions are
// serialized. A failed transaction restores students and grades from a
// snapshot taken at its first write and undoes its own audit changes.
type Store struct {
	mu   sync.RWMutex
	data *dataset
	tx   *txState

	math, science, history *gradeStore
}

// txState is the undo record of the running transaction.
type txState struct {
	snapshot    *dataset
	auditAdded  []string
	auditPurged []*audit.Entry
}

// dataset is everything a transaction can roll back.
type dataset struct {
	students   map[int64]*student.Student
	emails     map[string]int64
	studentSeq int64
	grades     map[grade.Subject]map[int64]*grade.Grade
	gradeSeq   map[grade.Subject]int64
	audit      map[string]*audit.Entry
}

func newDataset() *dataset {
	d := &dataset{
		students: make(map[int64]*student.Student),
		emails:   make(map[string]int64),
		grades:   make(map[grade.Subject]map[int64]*grade.Grade, len(grade.Subjects)),
		gradeSeq: make(map[grade.Subject]int64, len(grade.Subjects)),
		audit:    make(map[string]*audit.Entry),
	}
	for _, subj := range grade.Subjects {
		d.grades[subj] = make(map[int64]*grade.Grade)
	}
	return d
}

// clone deep-copies students and grades. The audit log is shared with the
// copy; transactions undo audit changes through txState.
func (d *dataset) clone() *dataset {
	c := &dataset{
		students:   make(map[int64]*student.Student, len(d.students)),
		emails:     make(map[string]int64, len(d.emails)),
		studentSeq: d.studentSeq,
		grades:     make(map[grade.Subject]map[int64]*grade.Grade, len(d.grades)),
		gradeSeq:   make(map[grade.Subject]int64, len(d.gradeSeq)),
		audit:      d.audit,
	}
	for k, v := range d.students {
		c.students[k] = copyStudent(v)
	}
	for k, v := range d.emails {
		c.emails[k] = v
	}
	for subj, m := range d.grades {
		cm := make(map[int64]*grade.Grade, len(m))
		for k, v := range m {
			cm[k] = copyGrade(v)
		}
		c.grades[subj] = cm
	}
	for k, v := range d.gradeSeq {
		c.gradeSeq[k] = v
	}
	return c
}

// New creates a new in-memory store.
func New() *Store {
	s := &Store{data: newDataset()}
	s.math = &gradeStore{s: s, subject: grade.Math}
	s.science = &gradeStore{s: s, subject: grade.Science}
	s.history = &gradeStore{s: s, subject: grade.History}
	return s
}

// Students returns s.
func (s *Store) Students() student.Store { return s }

// Grades returns the grade store of subject.
func (s *Store) Grades(subject grade.Subject) grade.Store {
	switch subject {
	case grade.Math:
		return s.math
	case grade.Science:
		return s.science
	case grade.History:
		return s.history
	}
	return nil
}

// Audit returns s.
func (s *Store) Audit() audit.Store { return s }

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

type txKey struct{}

// InTx runs fn with the store locked. Any error or panic from fn restores
// the data to what it was when the transaction began.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tx = &txState{}
	defer func() {
		tx := s.tx
		s.tx = nil
		if p := recover(); p != nil {
			s.rollback(tx)
			panic(p)
		}
		if err != nil {
			s.rollback(tx)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s))
}

// rollback must be called with the write lock held.
func (s *Store) rollback(tx *txState) {
	if tx.snapshot != nil {
		s.data = tx.snapshot
	}
	for _, e := range tx.auditPurged {
		s.data.audit[e.ID.String()] = e
	}
	for _, k := range tx.auditAdded {
		delete(s.data.audit, k)
	}
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// read runs fn under the read lock unless ctx already holds the
// transaction lock.
func (s *Store) read(ctx context.Context, fn func(d *dataset) error) error {
	if s.inTx(ctx) {
		return fn(s.data)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

// write runs fn under the write lock unless ctx already holds it. Inside a
// transaction the first write snapshots students and grades.
func (s *Store) write(ctx context.Context, fn func(d *dataset) error) error {
	if s.inTx(ctx) {
		if s.tx.snapshot == nil {
			s.tx.snapshot = s.data.clone()
		}
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// writeAudit is write for the audit log. tx is nil outside a transaction.
func (s *Store) writeAudit(ctx context.Context, fn func(d *dataset, tx *txState) error) error {
	if s.inTx(ctx) {
		return fn(s.data, s.tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data, nil)
}

// ──────────────────────────────────────────────────
// Student Store
// ──────────────────────────────────────────────────

func (s *Store) SaveStudent(ctx context.Context, st *student.Student) error {
	return s.write(ctx, func(d *dataset) error {
		if owner, ok := d.emails[st.EmailAddress]; ok && owner != st.ID {
			return student.ErrDuplicateEmail
		}
		if st.ID == 0 {
			d.studentSeq++
			st.ID = d.studentSeq
		} else {
			prev, ok := d.students[st.ID]
			if !ok {
				return student.ErrNotFound
			}
			delete(d.emails, prev.EmailAddress)
		}
		d.students[st.ID] = copyStudent(st)
		d.emails[st.EmailAddress] = st.ID
		return nil
	})
}

func (s *Store) GetStudent(ctx context.Context, studentID int64) (*student.Student, error) {
	var out *student.Student
	err := s.read(ctx, func(d *dataset) error {
		st, ok := d.students[studentID]
		if !ok {
			return student.ErrNotFound
		}
		out = copyStudent(st)
		return nil
	})
	return out, err
}

func (s *Store) GetStudentByEmail(ctx context.Context, emailAddress string) (*student.Student, error) {
	var out *student.Student
	err := s.read(ctx, func(d *dataset) error {
		studentID, ok := d.emails[emailAddress]
		if !ok {
			return student.ErrNotFound
		}
		out = copyStudent(d.students[studentID])
		return nil
	})
	return out, err
}

func (s *Store) DeleteStudent(ctx context.Context, studentID int64) error {
	return s.write(ctx, func(d *dataset) error {
		st, ok := d.students[studentID]
		if !ok {
			return nil
		}
		delete(d.emails, st.EmailAddress)
		delete(d.students, studentID)
		return nil
	})
}

func (s *Store) ListStudents(ctx context.Context) ([]*student.Student, error) {
	var out []*student.Student
	err := s.read(ctx, func(d *dataset) error {
		out = make([]*student.Student, 0, len(d.students))
		for _, st := range d.students {
			out = append(out, copyStudent(st))
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *student.Student) int { return cmp.Compare(a.ID, b.ID) })
	return out, err
}

// ──────────────────────────────────────────────────
// Grade Store
// ──────────────────────────────────────────────────

// gradeStore is the view of one subject's grades.
type gradeStore struct {
	s       *Store
	subject grade.Subject
}

func (g *gradeStore) Subject() grade.Subject { return g.subject }

func (g *gradeStore) SaveGrade(ctx context.Context, gr *grade.Grade) error {
	return g.s.write(ctx, func(d *dataset) error {
		grades := d.grades[g.subject]
		if gr.ID == 0 {
			d.gradeSeq[g.subject]++
			gr.ID = d.gradeSeq[g.subject]
		} else if _, ok := grades[gr.ID]; !ok {
			return grade.ErrNotFound
		}
		gr.Subject = g.subject
		grades[gr.ID] = copyGrade(gr)
		return nil
	})
}

func (g *gradeStore) GetGrade(ctx context.Context, gradeID int64) (*grade.Grade, error) {
	var out *grade.Grade
	err := g.s.read(ctx, func(d *dataset) error {
		gr, ok := d.grades[g.subject][gradeID]
		if !ok {
			return grade.ErrNotFound
		}
		out = copyGrade(gr)
		return nil
	})
	return out, err
}

func (g *gradeStore) ListGradesByStudent(ctx context.Context, studentID int64) ([]*grade.Grade, error) {
	var out []*grade.Grade
	err := g.s.read(ctx, func(d *dataset) error {
		out = make([]*grade.Grade, 0)
		for _, gr := range d.grades[g.subject] {
			if gr.StudentID == studentID {
				out = append(out, copyGrade(gr))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *grade.Grade) int { return cmp.Compare(a.ID, b.ID) })
	return out, err
}

func (g *gradeStore) DeleteGrade(ctx context.Context, gradeID int64) error {
	return g.s.write(ctx, func(d *dataset) error {
		delete(d.grades[g.subject], gradeID)
		return nil
	})
}

func (g *gradeStore) DeleteGradesByStudent(ctx context.Context, studentID int64) error {
	return g.s.write(ctx, func(d *dataset) error {
		grades := d.grades[g.subject]
		for k, gr := range grades {
			if gr.StudentID == studentID {
				delete(grades, k)
			}
		}
		return nil
	})
}

// ──────────────────────────────────────────────────
// Audit Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(ctx context.Context, e *audit.Entry) error {
	return s.writeAudit(ctx, func(d *dataset, tx *txState) error {
		k := e.ID.String()
		d.audit[k] = copyEntry(e)
		if tx != nil {
			tx.auditAdded = append(tx.auditAdded, k)
		}
		return nil
	})
}

func (s *Store) GetAuditEntry(ctx context.Context, entryID id.AuditID) (*audit.Entry, error) {
	var out *audit.Entry
	err := s.read(ctx, func(d *dataset) error {
		e, ok := d.audit[entryID.String()]
		if !ok {
			return audit.ErrNotFound
		}
		out = copyEntry(e)
		return nil
	})
	return out, err
}

func (s *Store) ListAuditEntries(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	var out []*audit.Entry
	err := s.read(ctx, func(d *dataset) error {
		out = make([]*audit.Entry, 0, len(d.audit))
		for _, e := range d.audit {
			if filter.Match(e) {
				out = append(out, copyEntry(e))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *audit.Entry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, err
}

func (s *Store) CountAuditEntries(ctx context.Context, filter *audit.QueryFilter) (int64, error) {
	var n int64
	err := s.read(ctx, func(d *dataset) error {
		for _, e := range d.audit {
			if filter.Match(e) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := s.writeAudit(ctx, func(d *dataset, tx *txState) error {
		for k, e := range d.audit {
			if e.CreatedAt.Before(before) {
				delete(d.audit, k)
				if tx != nil {
					tx.auditPurged = append(tx.auditPurged, e)
				}
				n++
			}
		}
		return nil
	})
	return n, err
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func copyStudent(st *student.Student) *student.Student {
	c := *st
	return &c
}

func copyGrade(g *grade.Grade) *grade.Grade {
	c := *g
	return &c
}

func copyEntry(e *audit.Entry) *audit.Entry {
	c := *e
	return &c
}
