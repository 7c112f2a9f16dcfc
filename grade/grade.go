// Package grade defines the Grade entity, the closed Subject enumeration and
// the per-subject store interface.
package grade

import "errors"

// ErrNotFound is returned by a Store when no grade has the requested id.
var ErrNotFound = errors.New("gradebook: grade not found")

// Accepted grade range, inclusive on both ends.
const (
	MinValue = 0.0
	MaxValue = 100.0
)

// Grade is a single score recorded for a student in one subject.
//
// Grades of different subjects live in separate stores and have
// independent id spaces. StudentID is not enforced by the store.
type Grade struct {
	ID        int64   `json:"id" db:"id" bson:"_id"`
	StudentID int64   `json:"student_id" db:"student_id" bson:"student_id"`
	Value     float64 `json:"grade" db:"grade" bson:"grade"`
	Subject   Subject `json:"subject" db:"-" bson:"-"`
}

// New returns an unsaved grade.
func New(subject Subject, studentID int64, value float64) *Grade {
	return &Grade{Subject: subject, StudentID: studentID, Value: value}
}

// InRange reports whether v lies in [MinValue, MaxValue]. NaN is out of
// range.
func InRange(v float64) bool { return v >= MinValue && v <= MaxValue }

// Average returns the arithmetic mean of the grade values, or 0 for none.
func Average(grades []*Grade) float64 {
	if len(grades) == 0 {
		return 0
	}
	var sum float64
	for _, g := range grades {
		sum += g.Value
	}
	return sum / float64(len(grades))
}
