package api

import "github.com/xraph/gradebook/grade"

// StudentResponse is a student with its grades and averages.
type StudentResponse struct {
	ID             int64          `json:"id" description:"Student ID"`
	FirstName      string         `json:"first_name" description:"First name"`
	LastName       string         `json:"last_name" description:"Last name"`
	EmailAddress   string         `json:"email_address" description:"Email address"`
	MathGrades     []*grade.Grade `json:"math_grades" description:"Math grades"`
	ScienceGrades  []*grade.Grade `json:"science_grades" description:"Science grades"`
	HistoryGrades  []*grade.Grade `json:"history_grades" description:"History grades"`
	MathAverage    float64        `json:"math_average" description:"Mean math grade"`
	ScienceAverage float64        `json:"science_average" description:"Mean science grade"`
	HistoryAverage float64        `json:"history_average" description:"Mean history grade"`
}

// CreateGradeResponse reports whether a grade was recorded.
type CreateGradeResponse struct {
	Created bool `json:"created" description:"Whether the grade was recorded"`
}

// DeleteGradeResponse names the student the deleted grade belonged to.
type DeleteGradeResponse struct {
	StudentID int64 `json:"student_id" description:"Owning student ID"`
}
