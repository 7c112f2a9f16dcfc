// Package gradebook keeps students and their math, science and history
// grades, and enforces the rules that tie them together: a grade can only
// be recorded for a student that exists, with a value in [0, 100], and
// deleting a student deletes all of its grades.
//
// Every operation runs in one transaction of the configured backend
// (see the store package and its memory, sqlite, postgres, bolt and mongo
// implementations).
//
//	svc, err := gradebook.NewFromStore(memory.New())
//	err = svc.CreateStudent(ctx, "Chad", "Darby", "chad.darby@luv2code_school.com")
//	ok, err := svc.CreateGrade(ctx, 85.5, 1, grade.Math)
//	studentID, err := svc.DeleteGrade(ctx, 1, grade.Math)
package gradebook

import (
	"github.com/xraph/gradebook/grade"
	"github.com/xraph/gradebook/student"
)

// StudentGrades is a student together with its grades in every subject.
type StudentGrades struct {
	Student *student.Student `json:"student"`
	Math    []*grade.Grade   `json:"math_grades"`
	Science []*grade.Grade   `json:"science_grades"`
	History []*grade.Grade   `json:"history_grades"`
}

// Grades returns the grades of one subject.
func (sg *StudentGrades) Grades(subject grade.Subject) []*grade.Grade {
	switch subject {
	case grade.Math:
		return sg.Math
	case grade.Science:
		return sg.Science
	case grade.History:
		return sg.History
	}
	return nil
}

// Average returns the mean grade in subject, or 0 when there are none.
func (sg *StudentGrades) Average(subject grade.Subject) float64 {
	return grade.Average(sg.Grades(subject))
}

func (sg *StudentGrades) set(subject grade.Subject, grades []*grade.Grade) {
	if grades == nil {
		grades = []*grade.Grade{}
	}
	switch subject {
	case grade.Math:
		sg.Math = grades
	case grade.Science:
		sg.Science = grades
	case grade.History:
		sg.History = grades
	}
}

// Clone returns a deep copy of sg.
func (sg *StudentGrades) Clone() *StudentGrades {
	if sg == nil {
		return nil
	}
	out := &StudentGrades{}
	if sg.Student != nil {
		st := *sg.Student
		out.Student = &st
	}
	for _, subj := range grade.Subjects {
		src := sg.Grades(subj)
		if src == nil {
			continue
		}
		dst := make([]*grade.Grade, len(src))
		for i, g := range src {
			cp := *g
			dst[i] = &cp
		}
		out.set(subj, dst)
	}
	return out
}
