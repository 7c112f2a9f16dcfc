package grade_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/xraph/gradebook/grade"
)

func TestParseSubject(t *testing.T) {
	tests := []struct {
		in      string
		want    grade.Subject
		wantErr bool
	}{
		{"math", grade.Math, false},
		{"science", grade.Science, false},
		{"history", grade.History, false},
		{"literature", grade.SubjectUnknown, true},
		{"Math", grade.SubjectUnknown, true},
		{"", grade.SubjectUnknown, true},
		{"unknown", grade.SubjectUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := grade.ParseSubject(tt.in)
			if got != tt.want {
				t.Errorf("ParseSubject(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if tt.wantErr && !errors.Is(err, grade.ErrUnknownSubject) {
				t.Errorf("expected ErrUnknownSubject, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSubject_StringRoundTrip(t *testing.T) {
	for _, s := range grade.Subjects {
		parsed, err := grade.ParseSubject(s.String())
		if err != nil {
			t.Fatal(err)
		}
		if parsed != s {
			t.Errorf("round trip %v -> %v", s, parsed)
		}
	}
}

func TestSubject_Valid(t *testing.T) {
	if grade.SubjectUnknown.Valid() {
		t.Error("SubjectUnknown must not be valid")
	}
	if grade.Subject(42).Valid() {
		t.Error("out-of-range subject must not be valid")
	}
	for _, s := range grade.Subjects {
		if !s.Valid() {
			t.Errorf("%v should be valid", s)
		}
	}
}

func TestSubject_Table(t *testing.T) {
	want := map[grade.Subject]string{
		grade.Math:           "math_grade",
		grade.Science:        "science_grade",
		grade.History:        "history_grade",
		grade.SubjectUnknown: "",
	}
	for s, table := range want {
		if got := s.Table(); got != table {
			t.Errorf("%v.Table() = %q, want %q", s, got, table)
		}
	}
}

func TestSubject_JSON(t *testing.T) {
	var body struct {
		Subject grade.Subject `json:"subject"`
	}
	if err := json.Unmarshal([]byte(`{"subject":"science"}`), &body); err != nil {
		t.Fatal(err)
	}
	if body.Subject != grade.Science {
		t.Errorf("got %v, want science", body.Subject)
	}

	if err := json.Unmarshal([]byte(`{"subject":"literature"}`), &body); err != nil {
		t.Fatal(err)
	}
	if body.Subject != grade.SubjectUnknown {
		t.Errorf("got %v, want unknown", body.Subject)
	}

	out, err := json.Marshal(grade.New(grade.History, 1, 80))
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["subject"] != "history" {
		t.Errorf("subject encoded as %v", decoded["subject"])
	}
}

func TestInRange(t *testing.T) {
	tests := []struct {
		v    float64
		want bool
	}{
		{0, true},
		{100, true},
		{85.5, true},
		{-5, false},
		{-0.0001, false},
		{100.0001, false},
		{180.5, false},
		{math.NaN(), false},
		{math.Inf(1), false},
	}
	for _, tt := range tests {
		if got := grade.InRange(tt.v); got != tt.want {
			t.Errorf("InRange(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestAverage(t *testing.T) {
	if got := grade.Average(nil); got != 0 {
		t.Errorf("Average(nil) = %v", got)
	}
	grades := []*grade.Grade{
		grade.New(grade.Math, 1, 80),
		grade.New(grade.Math, 1, 90),
		grade.New(grade.Math, 1, 100),
	}
	if got := grade.Average(grades); got != 90 {
		t.Errorf("Average = %v, want 90", got)
	}
}
