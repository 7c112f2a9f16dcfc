package api

import (
	"testing"

	"github.com/xraph/gradebook/grade"
)

func TestSubjectParam(t *testing.T) {
	tests := []struct {
		in   string
		want grade.Subject
	}{
		{"math", grade.Math},
		{"science", grade.Science},
		{"history", grade.History},
		{"literature", grade.SubjectUnknown},
		{"Math", grade.SubjectUnknown},
		{"", grade.SubjectUnknown},
	}
	for _, tt := range tests {
		if got := subjectParam(tt.in); got != tt.want {
			t.Errorf("subjectParam(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
