package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/gradebook/audit"
)

// auditListOptions holds the filters of "audit list".
type auditListOptions struct {
	Operation string
	Outcome   string
	StudentID int64
	After     string
	Before    string
}

// NewAuditCommand creates the audit command group.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and purge the audit log",
	}

	listOpts := &auditListOptions{}
	list := &cobra.Command{
		Use:   "list",
		Short: "List audit entries, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditList(rootOpts, listOpts, cmd)
		},
	}
	list.Flags().StringVar(&listOpts.Operation, "operation", "", "filter by operation (create_student, delete_student, create_grade, delete_grade)")
	list.Flags().StringVar(&listOpts.Outcome, "outcome", "", "filter by outcome (applied, rejected, noop)")
	list.Flags().Int64Var(&listOpts.StudentID, "student", 0, "filter by student id")
	list.Flags().StringVar(&listOpts.After, "after", "", "only entries after this RFC3339 time")
	list.Flags().StringVar(&listOpts.Before, "before", "", "only entries before this RFC3339 time")
	cmd.AddCommand(list)

	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete audit entries older than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditPurge(rootOpts, olderThan, cmd)
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "age of the oldest entry to keep")
	cmd.AddCommand(purge)

	return cmd
}

func (o *auditListOptions) filter() (*audit.QueryFilter, error) {
	f := &audit.QueryFilter{
		Operation: audit.Operation(o.Operation),
		Outcome:   audit.Outcome(o.Outcome),
		StudentID: o.StudentID,
	}
	if o.After != "" {
		t, err := time.Parse(time.RFC3339, o.After)
		if err != nil {
			return nil, fmt.Errorf("invalid --after: %w", err)
		}
		f.After = &t
	}
	if o.Before != "" {
		t, err := time.Parse(time.RFC3339, o.Before)
		if err != nil {
			return nil, fmt.Errorf("invalid --before: %w", err)
		}
		f.Before = &t
	}
	return f, nil
}

func runAuditList(opts *RootOptions, listOpts *auditListOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	filter, err := listOpts.filter()
	if err != nil {
		return f.Fail(err)
	}
	return opts.withSession(cmd, func(ctx context.Context, s *session) error {
		entries, err := s.svc.AuditEntries(ctx, filter)
		if err != nil {
			return f.Fail(err)
		}
		if entries == nil {
			entries = []*audit.Entry{}
		}
		return f.Success(entries, func(w io.Writer) {
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\tstudent=%d grade=%d subject=%s reason=%s\n",
					e.CreatedAt.Format(time.RFC3339), e.Actor, e.Operation, e.Outcome,
					e.StudentID, e.GradeID, e.Subject, e.Reason)
			}
		})
	})
}

func runAuditPurge(opts *RootOptions, olderThan time.Duration, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if olderThan <= 0 {
		return f.Fail(fmt.Errorf("--older-than must be positive, got %s", olderThan))
	}
	return opts.withSession(cmd, func(ctx context.Context, s *session) error {
		n, err := s.svc.PurgeAuditEntries(ctx, time.Now().Add(-olderThan))
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(map[string]int64{"purged": n}, func(w io.Writer) {
			fmt.Fprintf(w, "✓ Purged %d audit entries\n", n)
		})
	})
}
