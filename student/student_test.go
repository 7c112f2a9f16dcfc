package student_test

import (
	"testing"

	"github.com/xraph/gradebook/student"
)

func TestNew(t *testing.T) {
	s := student.New("Chad", "Darby", "chad.darby@luv2code_school.com")
	if !s.IsNew() {
		t.Fatal("expected unsaved student")
	}
	if s.EmailAddress != "chad.darby@luv2code_school.com" {
		t.Errorf("unexpected email %q", s.EmailAddress)
	}
}

func TestFullName(t *testing.T) {
	tests := []struct {
		first, last, want string
	}{
		{"Chad", "Darby", "Chad Darby"},
		{"Chad", "", "Chad"},
		{"", "Darby", "Darby"},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			s := &student.Student{FirstName: tt.first, LastName: tt.last}
			if got := s.FullName(); got != tt.want {
				t.Errorf("FullName() = %q, want %q", got, tt.want)
			}
		})
	}
}
