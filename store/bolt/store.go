// Package bolt implements the gradebook composite store on a single bbolt
// file. Records are JSON encoded; students and grades are keyed by their
// big-endian sequence number so cursor order is id order.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.etcd.io/bbolt"

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

var (
	bucketStudents = []byte("student")
	bucketEmails   = []byte("student_email")
	bucketAudit    = []byte("gradebook_audit")
)

// errNotOpen is returned for a missing bucket, which means Migrate never ran.
var errNotOpen = errors.New("gradebook/bolt: bucket missing, run Migrate")

// Store is a bbolt implementation of the composite gradebook store.
type Store struct {
	db     *bbolt.DB
	grades map[grade.Subject]*gradeStore
}

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("gradebook/bolt: open %s: %w", path, err)
	}
	return New(db), nil
}

// New wraps an open bbolt database.
func New(db *bbolt.DB) *Store {
	s := &Store{db: db, grades: make(map[grade.Subject]*gradeStore, len(grade.Subjects))}
	for _, subj := range grade.Subjects {
		s.grades[subj] = &gradeStore{s: s, subject: subj, bucket: []byte(subj.Table())}
	}
	return s
}

// DB returns the underlying bbolt database.
func (s *Store) DB() *bbolt.DB { return s.db }

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

// Migrate creates every bucket.
func (s *Store) Migrate(ctx context.Context) error {
	return s.update(ctx, func(tx *bbolt.Tx) error {
		names := [][]byte{bucketStudents, bucketEmails, bucketAudit}
		for _, gs := range s.grades {
			names = append(names, gs.bucket)
		}
		for _, name := range names {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("gradebook/bolt: create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// Ping verifies the database is open.
func (s *Store) Ping(ctx context.Context) error {
	return s.view(ctx, func(*bbolt.Tx) error { return nil })
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

type txKey struct{}

type txScope struct {
	owner *Store
	tx    *bbolt.Tx
}

// InTx runs fn in one read-write bbolt transaction carried on the context.
// bbolt allows a single writer, so transactions are serialized.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, &txScope{owner: s, tx: tx}))
	})
}

func (s *Store) txFrom(ctx context.Context) *bbolt.Tx {
	scope, ok := ctx.Value(txKey{}).(*txScope)
	if !ok || scope.owner != s {
		return nil
	}
	return scope.tx
}

func (s *Store) view(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if tx := s.txFrom(ctx); tx != nil {
		return fn(tx)
	}
	return s.db.View(fn)
}

func (s *Store) update(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if tx := s.txFrom(ctx); tx != nil {
		return fn(tx)
	}
	return s.db.Update(fn)
}

func bucket(tx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("%w: %s", errNotOpen, name)
	}
	return b, nil
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

// ──────────────────────────────────────────────────
// Student operations
// ──────────────────────────────────────────────────

func (s *Store) SaveStudent(ctx context.Context, st *student.Student) error {
	return s.update(ctx, func(tx *bbolt.Tx) error {
		students, err := bucket(tx, bucketStudents)
		if err != nil {
			return err
		}
		emails, err := bucket(tx, bucketEmails)
		if err != nil {
			return err
		}

		if owner := emails.Get([]byte(st.EmailAddress)); owner != nil && btoi(owner) != st.ID {
			return student.ErrDuplicateEmail
		}

		if st.ID == 0 {
			seq, err := students.NextSequence()
			if err != nil {
				return fmt.Errorf("gradebook/bolt: next student id: %w", err)
			}
			st.ID = int64(seq)
		} else {
			raw := students.Get(itob(st.ID))
			if raw == nil {
				return student.ErrNotFound
			}
			var prev student.Student
			if err := json.Unmarshal(raw, &prev); err != nil {
				return fmt.Errorf("gradebook/bolt: decode student: %w", err)
			}
			if prev.EmailAddress != st.EmailAddress {
				if err := emails.Delete([]byte(prev.EmailAddress)); err != nil {
					return fmt.Errorf("gradebook/bolt: save student: %w", err)
				}
			}
		}

		data, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("gradebook/bolt: encode student: %w", err)
		}
		if err := students.Put(itob(st.ID), data); err != nil {
			return fmt.Errorf("gradebook/bolt: save student: %w", err)
		}
		if err := emails.Put([]byte(st.EmailAddress), itob(st.ID)); err != nil {
			return fmt.Errorf("gradebook/bolt: save student: %w", err)
		}
		return nil
	})
}

func (s *Store) GetStudent(ctx context.Context, studentID int64) (*student.Student, error) {
	var out *student.Student
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		students, err := bucket(tx, bucketStudents)
		if err != nil {
			return err
		}
		out, err = decodeStudent(students.Get(itob(studentID)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetStudentByEmail(ctx context.Context, emailAddress string) (*student.Student, error) {
	var out *student.Student
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		emails, err := bucket(tx, bucketEmails)
		if err != nil {
			return err
		}
		key := emails.Get([]byte(emailAddress))
		if key == nil {
			return student.ErrNotFound
		}
		students, err := bucket(tx, bucketStudents)
		if err != nil {
			return err
		}
		out, err = decodeStudent(students.Get(key))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DeleteStudent(ctx context.Context, studentID int64) error {
	return s.update(ctx, func(tx *bbolt.Tx) error {
		students, err := bucket(tx, bucketStudents)
		if err != nil {
			return err
		}
		st, err := decodeStudent(students.Get(itob(studentID)))
		if errors.Is(err, student.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		emails, err := bucket(tx, bucketEmails)
		if err != nil {
			return err
		}
		if err := emails.Delete([]byte(st.EmailAddress)); err != nil {
			return fmt.Errorf("gradebook/bolt: delete student: %w", err)
		}
		if err := students.Delete(itob(studentID)); err != nil {
			return fmt.Errorf("gradebook/bolt: delete student: %w", err)
		}
		return nil
	})
}

func (s *Store) ListStudents(ctx context.Context) ([]*student.Student, error) {
	var out []*student.Student
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		students, err := bucket(tx, bucketStudents)
		if err != nil {
			return err
		}
		return students.ForEach(func(_, v []byte) error {
			st, err := decodeStudent(v)
			if err != nil {
				return err
			}
			out = append(out, st)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeStudent(raw []byte) (*student.Student, error) {
	if raw == nil {
		return nil, student.ErrNotFound
	}
	st := new(student.Student)
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("gradebook/bolt: decode student: %w", err)
	}
	return st, nil
}

// ──────────────────────────────────────────────────
// Grade operations
// ──────────────────────────────────────────────────

// gradeStore serves one subject bucket.
type gradeStore struct {
	s       *Store
	subject grade.Subject
	bucket  []byte
}

func (g *gradeStore) Subject() grade.Subject { return g.subject }

func (g *gradeStore) SaveGrade(ctx context.Context, gr *grade.Grade) error {
	gr.Subject = g.subject
	return g.s.update(ctx, func(tx *bbolt.Tx) error {
		b, err := bucket(tx, g.bucket)
		if err != nil {
			return err
		}
		if gr.ID == 0 {
			seq, err := b.NextSequence()
			if err != nil {
				return fmt.Errorf("gradebook/bolt: next %s id: %w", g.bucket, err)
			}
			gr.ID = int64(seq)
		} else if b.Get(itob(gr.ID)) == nil {
			return grade.ErrNotFound
		}

		data, err := json.Marshal(gr)
		if err != nil {
			return fmt.Errorf("gradebook/bolt: encode grade: %w", err)
		}
		if err := b.Put(itob(gr.ID), data); err != nil {
			return fmt.Errorf("gradebook/bolt: save %s: %w", g.bucket, err)
		}
		return nil
	})
}

func (g *gradeStore) GetGrade(ctx context.Context, gradeID int64) (*grade.Grade, error) {
	var out *grade.Grade
	err := g.s.view(ctx, func(tx *bbolt.Tx) error {
		b, err := bucket(tx, g.bucket)
		if err != nil {
			return err
		}
		out, err = g.decode(b.Get(itob(gradeID)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *gradeStore) ListGradesByStudent(ctx context.Context, studentID int64) ([]*grade.Grade, error) {
	var out []*grade.Grade
	err := g.s.view(ctx, func(tx *bbolt.Tx) error {
		b, err := bucket(tx, g.bucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(_, v []byte) error {
			gr, err := g.decode(v)
			if err != nil {
				return err
			}
			if gr.StudentID == studentID {
				out = append(out, gr)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *gradeStore) DeleteGrade(ctx context.Context, gradeID int64) error {
	return g.s.update(ctx, func(tx *bbolt.Tx) error {
		b, err := bucket(tx, g.bucket)
		if err != nil {
			return err
		}
		if err := b.Delete(itob(gradeID)); err != nil {
			return fmt.Errorf("gradebook/bolt: delete %s: %w", g.bucket, err)
		}
		return nil
	})
}

func (g *gradeStore) DeleteGradesByStudent(ctx context.Context, studentID int64) error {
	return g.s.update(ctx, func(tx *bbolt.Tx) error {
		b, err := bucket(tx, g.bucket)
		if err != nil {
			return err
		}
		var keys [][]byte
		err = b.ForEach(func(k, v []byte) error {
			gr, err := g.decode(v)
			if err != nil {
				return err
			}
			if gr.StudentID == studentID {
				keys = append(keys, slices.Clone(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("gradebook/bolt: delete %s by student: %w", g.bucket, err)
			}
		}
		return nil
	})
}

func (g *gradeStore) decode(raw []byte) (*grade.Grade, error) {
	if raw == nil {
		return nil, grade.ErrNotFound
	}
	gr := new(grade.Grade)
	if err := json.Unmarshal(raw, gr); err != nil {
		return nil, fmt.Errorf("gradebook/bolt: decode %s: %w", g.bucket, err)
	}
	gr.Subject = g.subject
	return gr, nil
}

// ──────────────────────────────────────────────────
// Audit operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(ctx context.Context, e *audit.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("gradebook/bolt: encode audit entry: %w", err)
	}
	return s.update(ctx, func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketAudit)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(e.ID.String()), data); err != nil {
			return fmt.Errorf("gradebook/bolt: create audit entry: %w", err)
		}
		return nil
	})
}

func (s *Store) GetAuditEntry(ctx context.Context, entryID id.AuditID) (*audit.Entry, error) {
	var out *audit.Entry
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketAudit)
		if err != nil {
			return err
		}
		raw := b.Get([]byte(entryID.String()))
		if raw == nil {
			return audit.ErrNotFound
		}
		out, err = decodeAuditEntry(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListAuditEntries(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	out, err := s.scanAudit(ctx, filter)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b *audit.Entry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (s *Store) CountAuditEntries(ctx context.Context, filter *audit.QueryFilter) (int64, error) {
	out, err := s.scanAudit(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(out)), nil
}

func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketAudit)
		if err != nil {
			return err
		}
		var keys [][]byte
		err = b.ForEach(func(k, v []byte) error {
			e, err := decodeAuditEntry(v)
			if err != nil {
				return err
			}
			if e.CreatedAt.Before(before) {
				keys = append(keys, slices.Clone(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("gradebook/bolt: purge audit entries: %w", err)
			}
		}
		n = int64(len(keys))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) scanAudit(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	var out []*audit.Entry
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketAudit)
		if err != nil {
			return err
		}
		return b.ForEach(func(_, v []byte) error {
			e, err := decodeAuditEntry(v)
			if err != nil {
				return err
			}
			if filter.Match(e) {
				out = append(out, e)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeAuditEntry(raw []byte) (*audit.Entry, error) {
	e := new(audit.Entry)
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, fmt.Errorf("gradebook/bolt: decode audit entry: %w", err)
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}
