// Package plugin defines the gradebook plugin system.
//
// Plugins are notified after a gradebook change has been committed and can
// react to it, for example by sending notifications or exporting metrics.
// Each lifecycle hook is a separate interface so plugins opt in only to the
// events they care about.
package plugin

import (
	"context"

	"github.com/xraph/gradebook/grade"
	"github.com/xraph/gradebook/student"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// StudentCreated is called after a student is created.
type StudentCreated interface {
	OnStudentCreated(ctx context.Context, s *student.Student) error
}

// StudentDeleted is called after a student and all of its grades are
// deleted.
type StudentDeleted interface {
	OnStudentDeleted(ctx context.Context, studentID int64) error
}

// GradeCreated is called after a grade is recorded.
type GradeCreated interface {
	OnGradeCreated(ctx context.Context, g *grade.Grade) error
}

// GradeDeleted is called after a grade is deleted. g is the grade as it was
// before deletion.
type GradeDeleted interface {
	OnGradeDeleted(ctx context.Context, g *grade.Grade) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
