// Package api provides HTTP handlers for the gradebook service.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/gradebook"
)

// API wires all gradebook HTTP handlers together.
type API struct {
	svc    *gradebook.Service
	router forge.Router
}

// New creates an API from a Service and a Forge router.
func New(svc *gradebook.Service, router forge.Router) *API {
	return &API{svc: svc, router: router}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	if err := a.RegisterRoutes(a.router); err != nil {
		panic("gradebook: register routes: " + err.Error())
	}
	return a.router.Handler()
}

// RegisterRoutes registers all API routes into the given Forge router.
func (a *API) RegisterRoutes(router forge.Router) error {
	registerers := []func(forge.Router) error{
		a.registerStudentRoutes,
		a.registerGradeRoutes,
		a.registerAuditRoutes,
	}
	for _, fn := range registerers {
		if err := fn(router); err != nil {
			return err
		}
	}
	return nil
}
