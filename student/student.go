// Package student defines the Student entity and its store interface.
package student

import "errors"

var (
	// ErrNotFound is returned by a Store when no student has the requested
	// id or email address.
	ErrNotFound = errors.New("gradebook: student not found")

	// ErrDuplicateEmail is returned by a Store when saving a student whose
	// email address already belongs to another student.
	ErrDuplicateEmail = errors.New("gradebook: student email address already in use")
)

// Student is a person enrolled in the gradebook.
//
// ID is assigned by the store on first save. A zero ID marks a student
// that has not been persisted yet.
type Student struct {
	ID           int64  `json:"id" db:"id" bson:"_id"`
	FirstName    string `json:"first_name" db:"first_name" bson:"first_name"`
	LastName     string `json:"last_name" db:"last_name" bson:"last_name"`
	EmailAddress string `json:"email_address" db:"email_address" bson:"email_address"`
}

// New returns an unsaved student.
func New(firstName, lastName, emailAddress string) *Student {
	return &Student{
		FirstName:    firstName,
		LastName:     lastName,
		EmailAddress: emailAddress,
	}
}

// FullName returns "First Last".
func (s *Student) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// IsNew reports whether s has not been assigned an id yet.
func (s *Student) IsNew() bool { return s.ID == 0 }
