package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xraph/gradebook"
	"github.com/xraph/gradebook/grade"
	"github.com/xraph/gradebook/student"
)

// NewStudentCommand creates the student command group.
func NewStudentCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "student",
		Short: "Create, inspect and delete students",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <first-name> <last-name> <email>",
		Short: "Create a student",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStudentAdd(rootOpts, cmd, args[0], args[1], args[2])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <student-id>",
		Short: "Delete a student and all of its grades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStudentDelete(rootOpts, cmd, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "exists <student-id>",
		Short: "Report whether a student exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStudentExists(rootOpts, cmd, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStudentList(rootOpts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <student-id>",
		Short: "Show a student with its grades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStudentShow(rootOpts, cmd, args[0])
		},
	})

	return cmd
}

func runStudentAdd(opts *RootOptions, cmd *cobra.Command, first, last, email string) error {
	f := opts.formatter(cmd)
	return opts.withSession(cmd, func(ctx context.Context, s *session) error {
		if err := s.svc.CreateStudent(ctx, first, last, email); err != nil {
			return f.Fail(err)
		}
		st, err := s.svc.FindStudentByEmail(ctx, email)
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(st, func(w io.Writer) {
			fmt.Fprintf(w, "✓ Created student %d: %s <%s>\n", st.ID, st.FullName(), st.EmailAddress)
		})
	})
}

func runStudentDelete(opts *RootOptions, cmd *cobra.Command, rawID string) error {
	f := opts.formatter(cmd)
	studentID, err := parseStudentID(rawID)
	if err != nil {
		return f.Fail(err)
	}
	return opts.withSession(cmd, func(ctx context.Context, s *session) error {
		exists, err := s.svc.CheckIfStudentIsNull(ctx, studentID)
		if err != nil {
			return f.Fail(err)
		}
		if !exists {
			return f.Fail(NewExitError(ExitFailure, fmt.Sprintf("student %d not found", studentID)))
		}
		if err := s.svc.DeleteStudent(ctx, studentID); err != nil {
			return f.Fail(err)
		}
		return f.Success(map[string]int64{"student_id": studentID}, func(w io.Writer) {
			fmt.Fprintf(w, "✓ Deleted student %d\n", studentID)
		})
	})
}

func runStudentExists(opts *RootOptions, cmd *cobra.Command, rawID string) error {
	f := opts.formatter(cmd)
	studentID, err := parseStudentID(rawID)
	if err != nil {
		return f.Fail(err)
	}
	return opts.withSession(cmd, func(ctx context.Context, s *session) error {
		exists, err := s.svc.CheckIfStudentIsNull(ctx, studentID)
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(map[string]bool{"exists": exists}, func(w io.Writer) {
			fmt.Fprintln(w, exists)
		})
	})
}

func runStudentList(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	return opts.withSession(cmd, func(ctx context.Context, s *session) error {
		students, err := s.svc.GetGradeBook(ctx)
		if err != nil {
			return f.Fail(err)
		}
		if students == nil {
			students = []*student.Student{}
		}
		return f.Success(students, func(w io.Writer) {
			if len(students) == 0 {
				fmt.Fprintln(w, "No students")
				return
			}
			for _, st := range students {
				fmt.Fprintf(w, "%d\t%s\t%s\n", st.ID, st.FullName(), st.EmailAddress)
			}
		})
	})
}

func runStudentShow(opts *RootOptions, cmd *cobra.Command, rawID string) error {
	f := opts.formatter(cmd)
	studentID, err := parseStudentID(rawID)
	if err != nil {
		return f.Fail(err)
	}
	return opts.withSession(cmd, func(ctx context.Context, s *session) error {
		sg, err := s.svc.StudentGrades(ctx, studentID)
		if err != nil {
			return f.Fail(wrapNotFound(err))
		}
		return f.Success(sg, func(w io.Writer) { writeStudentGrades(w, sg) })
	})
}

func writeStudentGrades(w io.Writer, sg *gradebook.StudentGrades) {
	fmt.Fprintf(w, "%d\t%s\t%s\n", sg.Student.ID, sg.Student.FullName(), sg.Student.EmailAddress)
	for _, subj := range grade.Subjects {
		grades := sg.Grades(subj)
		fmt.Fprintf(w, "  %-8s avg %6.2f ", subj, sg.Average(subj))
		for _, g := range grades {
			fmt.Fprintf(w, " #%d=%.2f", g.ID, g.Value)
		}
		fmt.Fprintln(w)
	}
}

func parseStudentID(raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid student id %q", raw)
	}
	return v, nil
}
