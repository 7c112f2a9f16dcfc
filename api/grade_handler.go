package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"
)

func (a *API) registerGradeRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("grades"))

	if err := g.POST("/grades", a.createGrade,
		forge.WithSummary("Create grade"),
		forge.WithDescription("Records a grade for an existing student. Rejected grades answer 400 with created=false."),
		forge.WithOperationID("createGrade"),
		forge.WithRequestSchema(CreateGradeRequest{}),
		forge.WithCreatedResponse(&CreateGradeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/grades/:gradeType/:gradeId", a.deleteGrade,
		forge.WithSummary("Delete grade"),
		forge.WithDescription("Deletes a grade and returns the ID of the student it belonged to."),
		forge.WithOperationID("deleteGrade"),
		forge.WithResponseSchema(http.StatusOK, "Owning student", &DeleteGradeResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createGrade(ctx forge.Context, req *CreateGradeRequest) (*CreateGradeResponse, error) {
	created, err := a.svc.CreateGrade(ctx.Context(), req.Grade, req.StudentID, subjectParam(req.GradeType))
	if err != nil {
		return nil, mapError(err)
	}

	resp := &CreateGradeResponse{Created: created}
	status := http.StatusCreated
	if !created {
		status = http.StatusBadRequest
	}
	return resp, ctx.JSON(status, resp)
}

func (a *API) deleteGrade(ctx forge.Context, _ *DeleteGradeRequest) (*DeleteGradeResponse, error) {
	gradeID, err := parseID(ctx, "gradeId")
	if err != nil {
		return nil, err
	}

	studentID, err := a.svc.DeleteGrade(ctx.Context(), gradeID, subjectParam(ctx.Param("gradeType")))
	if err != nil {
		return nil, mapError(err)
	}
	if studentID == 0 {
		return nil, forge.NotFound(fmt.Sprintf("%s grade %d not found", ctx.Param("gradeType"), gradeID))
	}

	resp := &DeleteGradeResponse{StudentID: studentID}
	return resp, ctx.JSON(http.StatusOK, resp)
}
