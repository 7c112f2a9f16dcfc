package grade

import "context"

// Store defines persistence operations for the grades of one subject.
type Store interface {
	// Subject reports which subject this store holds.
	Subject() Subject

	// SaveGrade inserts g when g.ID is zero, assigning the new id in place,
	// and updates the existing record otherwise. Updating an id that does
	// not exist returns ErrNotFound. g.Subject is set to Subject().
	SaveGrade(ctx context.Context, g *Grade) error

	// GetGrade retrieves a grade by id.
	GetGrade(ctx context.Context, gradeID int64) (*Grade, error)

	// ListGradesByStudent returns the student's grades ordered by id.
	ListGradesByStudent(ctx context.Context, studentID int64) ([]*Grade, error)

	// DeleteGrade removes a grade. Deleting a missing id is a no-op.
	DeleteGrade(ctx context.Context, gradeID int64) error

	// DeleteGradesByStudent removes every grade of a student.
	DeleteGradesByStudent(ctx context.Context, studentID int64) error
}
