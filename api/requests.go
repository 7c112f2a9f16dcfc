package api

// ──────────────────────────────────────────────────
// Student requests
// ──────────────────────────────────────────────────

// CreateStudentRequest is the body for creating a student.
type CreateStudentRequest struct {
	FirstName    string `json:"first_name" description:"First name"`
	LastName     string `json:"last_name" description:"Last name"`
	EmailAddress string `json:"email_address" description:"Unique email address"`
}

// GetStudentRequest is the path parameter for addressing a student.
type GetStudentRequest struct {
	StudentID string `path:"studentId" description:"Student ID"`
}

// ──────────────────────────────────────────────────
// Grade requests
// ──────────────────────────────────────────────────

// CreateGradeRequest is the body for recording a grade.
type CreateGradeRequest struct {
	StudentID int64   `json:"student_id" description:"Student ID"`
	Grade     float64 `json:"grade" description:"Grade value between 0 and 100"`
	GradeType string  `json:"grade_type" description:"Subject (math, science, history)"`
}

// DeleteGradeRequest holds the path parameters for deleting a grade.
type DeleteGradeRequest struct {
	GradeType string `path:"gradeType" description:"Subject (math, science, history)"`
	GradeID   string `path:"gradeId" description:"Grade ID"`
}

// ──────────────────────────────────────────────────
// Audit requests
// ──────────────────────────────────────────────────

// ListAuditRequest holds query parameters for querying the audit log.
type ListAuditRequest struct {
	Operation string `query:"operation" description:"Filter by operation"`
	Outcome   string `query:"outcome" description:"Filter by outcome (applied, rejected, noop)"`
	StudentID int64  `query:"student_id" description:"Filter by student ID"`
	After     string `query:"after" description:"After timestamp (RFC3339)"`
	Before    string `query:"before" description:"Before timestamp (RFC3339)"`
}
