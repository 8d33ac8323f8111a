package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/scheduling"
)

// AuditReport is the JSON output of the audit command.
type AuditReport struct {
	Audit   *models.ConflictAuditReport `json:"audit"`
	Actions []models.ResolutionAction   `json:"planned_actions,omitempty"`
}

type auditOptions struct {
	ceiling     int
	gapWarning  int
	gapCritical int
	window      int
	plan        bool
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &auditOptions{}
	cmd := &cobra.Command{
		Use:   "audit <fixture.yaml>",
		Short: "Detect overloads, gaps and duplicates in fixture sessions",
		Long: `Audit the sessions of a fixture the same way the API audits a persisted calendar.

With --plan the resolution actions are computed and printed without being applied.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, flags, args[0], cmd)
		},
	}
	cmd.Flags().IntVar(&flags.ceiling, "ceiling", 0, "daily minute ceiling (0 derives it from the plan hours)")
	cmd.Flags().IntVar(&flags.gapWarning, "gap-warning", scheduling.DefaultGapWarningDays, "gap in days reported as WARNING")
	cmd.Flags().IntVar(&flags.gapCritical, "gap-critical", scheduling.DefaultGapCriticalDays, "gap in days reported as CRITICAL")
	cmd.Flags().IntVar(&flags.window, "window", scheduling.DefaultRelocationWindowDays, "relocation search window in days")
	cmd.Flags().BoolVar(&flags.plan, "plan", false, "also print the resolution actions")
	return cmd
}

func runAudit(opts *RootOptions, flags *auditOptions, path string, cmd *cobra.Command) error {
	fx, err := LoadFixture(path)
	if err != nil {
		return err
	}
	cfg, err := fx.PlanConfig()
	if err != nil {
		return err
	}
	sessions, err := fx.PlanSessions()
	if err != nil {
		return err
	}
	calc, err := fx.Calculator()
	if err != nil {
		return err
	}

	auditor := scheduling.NewAuditor(calc)
	auditOpts := scheduling.AuditOptionsFor(cfg, flags.ceiling, flags.gapWarning, flags.gapCritical)
	report := &models.ConflictAuditReport{
		PlanID:       fx.PlanID,
		GeneratedAt:  time.Now().UTC(),
		SessionsSeen: len(sessions),
		Conflicts:    auditor.Detect(sessions, auditOpts),
	}
	scheduling.Summarize(report)

	out := AuditReport{Audit: report}
	if flags.plan {
		out.Actions = auditor.PlanResolutions(sessions, scheduling.ResolutionOptions{
			AuditOptions: auditOpts,
			WindowDays:   flags.window,
			Today:        calc.Today(),
			ExamDate:     cfg.ExamDate,
		})
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	return printAuditText(cmd.OutOrStdout(), out)
}

func printAuditText(w io.Writer, out AuditReport) error {
	report := out.Audit
	fmt.Fprintf(w, "%d sessions, %d conflicts (%d critical)\n", report.SessionsSeen, len(report.Conflicts), report.CriticalCount)
	tw := newTable(w)
	if len(report.Conflicts) > 0 {
		fmt.Fprintln(tw, "TYPE\tSEVERITY\tMESSAGE")
		for _, c := range report.Conflicts {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Type, c.Severity, c.Message)
		}
	}
	if len(out.Actions) > 0 {
		fmt.Fprintln(tw, "\nACTION\tSESSION\tFROM\tTO\tSTATUS")
		for _, a := range out.Actions {
			to := "-"
			if a.To != nil {
				to = a.To.String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Type, a.SessionID, a.From, to, a.Status)
		}
	}
	return tw.Flush()
}
