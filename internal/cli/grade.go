package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xraph/gradebook"
	"github.com/xraph/gradebook/grade"
)

// NewGradeCommand creates the grade command group.
func NewGradeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Record and delete grades",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <subject> <student-id> <value>",
		Short: "Record a grade",
		Long: `Record a grade between 0 and 100 for an existing student.

The subject is math, science or history. A rejected grade exits with
status 1.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGradeAdd(rootOpts, cmd, args[0], args[1], args[2])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <subject> <grade-id>",
		Short: "Delete a grade and print the owning student id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGradeDelete(rootOpts, cmd, args[0], args[1])
		},
	})

	return cmd
}

func runGradeAdd(opts *RootOptions, cmd *cobra.Command, rawSubject, rawStudent, rawValue string) error {
	f := opts.formatter(cmd)
	studentID, err := parseStudentID(rawStudent)
	if err != nil {
		return f.Fail(err)
	}
	value, err := strconv.ParseFloat(rawValue, 64)
	if err != nil {
		return f.Fail(fmt.Errorf("invalid grade %q", rawValue))
	}
	subject := lenientSubject(rawSubject)

	return opts.withSession(cmd, func(ctx context.Context, s *session) error {
		created, err := s.svc.CreateGrade(ctx, value, studentID, subject)
		if err != nil {
			return f.Fail(err)
		}
		if !created {
			return f.Fail(NewExitError(ExitFailure,
				fmt.Sprintf("grade %.2f for student %d in %s rejected", value, studentID, rawSubject)))
		}
		return f.Success(map[string]bool{"created": true}, func(w io.Writer) {
			fmt.Fprintf(w, "✓ Recorded %s grade %.2f for student %d\n", subject, value, studentID)
		})
	})
}

func runGradeDelete(opts *RootOptions, cmd *cobra.Command, rawSubject, rawGrade string) error {
	f := opts.formatter(cmd)
	gradeID, err := strconv.ParseInt(rawGrade, 10, 64)
	if err != nil || gradeID <= 0 {
		return f.Fail(fmt.Errorf("invalid grade id %q", rawGrade))
	}
	subject := lenientSubject(rawSubject)

	return opts.withSession(cmd, func(ctx context.Context, s *session) error {
		studentID, err := s.svc.DeleteGrade(ctx, gradeID, subject)
		if err != nil {
			return f.Fail(err)
		}
		if studentID == 0 {
			return f.Fail(NewExitError(ExitFailure, fmt.Sprintf("%s grade %d not found", rawSubject, gradeID)))
		}
		return f.Success(map[string]int64{"student_id": studentID}, func(w io.Writer) {
			fmt.Fprintf(w, "✓ Deleted %s grade %d of student %d\n", subject, gradeID, studentID)
		})
	})
}

// lenientSubject maps unknown names to SubjectUnknown so the service
// applies its own rejection rules.
func lenientSubject(name string) grade.Subject {
	var subject grade.Subject
	_ = subject.UnmarshalText([]byte(name))
	return subject
}

// wrapNotFound turns a missing student into an ExitFailure.
func wrapNotFound(err error) error {
	if errors.Is(err, gradebook.ErrStudentNotFound) {
		return &ExitError{Code: ExitFailure, Message: "not found", Err: err}
	}
	return err
}
