package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/gradebook/grade"
	"github.com/xraph/gradebook/student"
)

// entry pairs a hook with the plugin name for logging.
type entry[H any] struct {
	name string
	hook H
}

// Registry holds registered plugins and dispatches lifecycle events to
// them. Hook implementations are discovered once, at registration.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	studentCreated []entry[StudentCreated]
	studentDeleted []entry[StudentDeleted]
	gradeCreated   []entry[GradeCreated]
	gradeDeleted   []entry[GradeDeleted]
	shutdown       []entry[Shutdown]
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a plugin. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(StudentCreated); ok {
		r.studentCreated = append(r.studentCreated, entry[StudentCreated]{name, h})
	}
	if h, ok := p.(StudentDeleted); ok {
		r.studentDeleted = append(r.studentDeleted, entry[StudentDeleted]{name, h})
	}
	if h, ok := p.(GradeCreated); ok {
		r.gradeCreated = append(r.gradeCreated, entry[GradeCreated]{name, h})
	}
	if h, ok := p.(GradeDeleted); ok {
		r.gradeDeleted = append(r.gradeDeleted, entry[GradeDeleted]{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, entry[Shutdown]{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// EmitStudentCreated notifies all plugins that implement StudentCreated.
func (r *Registry) EmitStudentCreated(ctx context.Context, s *student.Student) {
	for _, e := range r.studentCreated {
		if err := e.hook.OnStudentCreated(ctx, s); err != nil {
			r.logHookError("OnStudentCreated", e.name, err)
		}
	}
}

// EmitStudentDeleted notifies all plugins that implement StudentDeleted.
func (r *Registry) EmitStudentDeleted(ctx context.Context, studentID int64) {
	for _, e := range r.studentDeleted {
		if err := e.hook.OnStudentDeleted(ctx, studentID); err != nil {
			r.logHookError("OnStudentDeleted", e.name, err)
		}
	}
}

// EmitGradeCreated notifies all plugins that implement GradeCreated.
func (r *Registry) EmitGradeCreated(ctx context.Context, g *grade.Grade) {
	for _, e := range r.gradeCreated {
		if err := e.hook.OnGradeCreated(ctx, g); err != nil {
			r.logHookError("OnGradeCreated", e.name, err)
		}
	}
}

// EmitGradeDeleted notifies all plugins that implement GradeDeleted.
func (r *Registry) EmitGradeDeleted(ctx context.Context, g *grade.Grade) {
	for _, e := range r.gradeDeleted {
		if err := e.hook.OnGradeDeleted(ctx, g); err != nil {
			r.logHookError("OnGradeDeleted", e.name, err)
		}
	}
}

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a hook failure. Hook errors never reach the caller of
// the gradebook operation, which has already committed.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
