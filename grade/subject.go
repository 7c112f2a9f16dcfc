package grade

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownSubject is returned when a subject name is not one of the
// gradebook's subjects.
var ErrUnknownSubject = errors.New("gradebook: unknown subject")

// Subject is the closed set of subjects a grade can belong to. The zero
// value is SubjectUnknown and is never stored.
type Subject uint8

// Subjects.
const (
	SubjectUnknown Subject = iota
	Math
	Science
	History
)

// Subjects lists every storable subject in cascade order.
var Subjects = [...]Subject{Math, Science, History}

var subjectNames = [...]string{
	SubjectUnknown: "unknown",
	Math:           "math",
	Science:        "science",
	History:        "history",
}

// ParseSubject maps a boundary name ("math", "science", "history") to a
// Subject. Matching is exact; anything else yields SubjectUnknown and
// ErrUnknownSubject.
func ParseSubject(name string) (Subject, error) {
	for _, s := range Subjects {
		if subjectNames[s] == name {
			return s, nil
		}
	}
	return SubjectUnknown, fmt.Errorf("%w: %q", ErrUnknownSubject, name)
}

// Valid reports whether s is one of Math, Science or History.
func (s Subject) Valid() bool { return s >= Math && s <= History }

// String returns the boundary name of s.
func (s Subject) String() string {
	if int(s) < len(subjectNames) {
		return subjectNames[s]
	}
	return "subject(" + strconv.Itoa(int(s)) + ")"
}

// Table returns the table or collection name that holds grades of s.
func (s Subject) Table() string {
	if !s.Valid() {
		return ""
	}
	return subjectNames[s] + "_grade"
}

// MarshalText implements encoding.TextMarshaler.
func (s Subject) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode
// to SubjectUnknown without error so that callers can reject them with a
// plain false.
func (s *Subject) UnmarshalText(data []byte) error {
	parsed, err := ParseSubject(string(data))
	if err != nil {
		*s = SubjectUnknown
		return nil
	}
	*s = parsed
	return nil
}
