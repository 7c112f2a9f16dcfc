package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/gradebook/grade"
	"github.com/xraph/gradebook/student"
)

func (a *API) registerStudentRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("students"))

	if err := g.GET("/gradebook", a.getGradeBook,
		forge.WithSummary("Get gradebook"),
		forge.WithDescription("Lists every student ordered by ID."),
		forge.WithOperationID("getGradeBook"),
		forge.WithResponseSchema(http.StatusOK, "Student list", []*student.Student{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/students", a.createStudent,
		forge.WithSummary("Create student"),
		forge.WithDescription("Creates a new student. The email address must be unused."),
		forge.WithOperationID("createStudent"),
		forge.WithRequestSchema(CreateStudentRequest{}),
		forge.WithCreatedResponse(&student.Student{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/students/:studentId", a.getStudent,
		forge.WithSummary("Get student"),
		forge.WithDescription("Returns a student with its grades in every subject."),
		forge.WithOperationID("getStudent"),
		forge.WithResponseSchema(http.StatusOK, "Student with grades", &StudentResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/students/:studentId", a.deleteStudent,
		forge.WithSummary("Delete student"),
		forge.WithDescription("Deletes a student and all of its grades."),
		forge.WithOperationID("deleteStudent"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) getGradeBook(ctx forge.Context, _ *struct{}) ([]*student.Student, error) {
	students, err := a.svc.GetGradeBook(ctx.Context())
	if err != nil {
		return nil, mapError(err)
	}
	if students == nil {
		students = []*student.Student{}
	}

	return students, ctx.JSON(http.StatusOK, students)
}

func (a *API) createStudent(ctx forge.Context, req *CreateStudentRequest) (*student.Student, error) {
	if req.FirstName == "" {
		return nil, forge.BadRequest("first_name is required")
	}
	if req.LastName == "" {
		return nil, forge.BadRequest("last_name is required")
	}
	if req.EmailAddress == "" {
		return nil, forge.BadRequest("email_address is required")
	}

	if err := a.svc.CreateStudent(ctx.Context(), req.FirstName, req.LastName, req.EmailAddress); err != nil {
		return nil, mapError(err)
	}

	st, err := a.svc.FindStudentByEmail(ctx.Context(), req.EmailAddress)
	if err != nil {
		return nil, mapError(err)
	}

	return st, ctx.JSON(http.StatusCreated, st)
}

func (a *API) getStudent(ctx forge.Context, _ *GetStudentRequest) (*StudentResponse, error) {
	studentID, err := parseID(ctx, "studentId")
	if err != nil {
		return nil, err
	}

	sg, err := a.svc.StudentGrades(ctx.Context(), studentID)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &StudentResponse{
		ID:             sg.Student.ID,
		FirstName:      sg.Student.FirstName,
		LastName:       sg.Student.LastName,
		EmailAddress:   sg.Student.EmailAddress,
		MathGrades:     sg.Math,
		ScienceGrades:  sg.Science,
		HistoryGrades:  sg.History,
		MathAverage:    sg.Average(grade.Math),
		ScienceAverage: sg.Average(grade.Science),
		HistoryAverage: sg.Average(grade.History),
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) deleteStudent(ctx forge.Context, _ *GetStudentRequest) (*struct{}, error) {
	studentID, err := parseID(ctx, "studentId")
	if err != nil {
		return nil, err
	}

	exists, err := a.svc.CheckIfStudentIsNull(ctx.Context(), studentID)
	if err != nil {
		return nil, mapError(err)
	}
	if !exists {
		return nil, forge.NotFound("student not found")
	}

	if err := a.svc.DeleteStudent(ctx.Context(), studentID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}
