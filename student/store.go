package student

import "context"

// Store defines persistence operations for students.
type Store interface {
	// SaveStudent inserts s when s.ID is zero, assigning the new id in place,
	// and updates the existing record otherwise. Updating an id that does not
	// exist returns ErrNotFound.
	SaveStudent(ctx context.Context, s *Student) error

	// GetStudent retrieves a student by id.
	GetStudent(ctx context.Context, studentID int64) (*Student, error)

	// GetStudentByEmail retrieves a student by email address.
	GetStudentByEmail(ctx context.Context, emailAddress string) (*Student, error)

	// DeleteStudent removes a student. Deleting a missing id is a no-op.
	DeleteStudent(ctx context.Context, studentID int64) error

	// ListStudents returns every student ordered by id.
	ListStudents(ctx context.Context) ([]*Student, error)
}
