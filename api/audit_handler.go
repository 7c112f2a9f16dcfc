package api

import (
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/gradebook/audit"
)

func (a *API) registerAuditRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("audit"))

	return g.GET("/audit", a.listAudit,
		forge.WithSummary("Query audit log"),
		forge.WithDescription("Returns gradebook audit entries, oldest first, with optional filters."),
		forge.WithOperationID("listAudit"),
		forge.WithRequestSchema(ListAuditRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Audit entry list", []*audit.Entry{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listAudit(ctx forge.Context, req *ListAuditRequest) ([]*audit.Entry, error) {
	filter := &audit.QueryFilter{
		Operation: audit.Operation(req.Operation),
		Outcome:   audit.Outcome(req.Outcome),
		StudentID: req.StudentID,
	}

	if req.After != "" {
		t, err := time.Parse(time.RFC3339, req.After)
		if err != nil {
			return nil, forge.BadRequest("invalid after timestamp")
		}
		filter.After = &t
	}
	if req.Before != "" {
		t, err := time.Parse(time.RFC3339, req.Before)
		if err != nil {
			return nil, forge.BadRequest("invalid before timestamp")
		}
		filter.Before = &t
	}

	entries, err := a.svc.AuditEntries(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}

	return entries, ctx.JSON(http.StatusOK, entries)
}
