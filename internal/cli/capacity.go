package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/studyplan-api/internal/scheduling"
)

// CapacityReport is the JSON output of the capacity command.
type CapacityReport struct {
	Days  []scheduling.CapacityDay `json:"days"`
	Total int                      `json:"total"`
}

// NewCapacityCommand creates the capacity command.
func NewCapacityCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "capacity <fixture.yaml>",
		Short:         "Print study days and session slots until the exam",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapacity(rootOpts, args[0], cmd)
		},
	}
}

func runCapacity(opts *RootOptions, path string, cmd *cobra.Command) error {
	fx, err := LoadFixture(path)
	if err != nil {
		return err
	}
	cfg, err := fx.PlanConfig()
	if err != nil {
		return err
	}
	calc, err := fx.Calculator()
	if err != nil {
		return err
	}
	today := calc.Today()
	if err := scheduling.ValidateConfig(cfg, today); err != nil {
		return err
	}

	days, err := scheduling.NewCapacityPlanner(calc).Plan(scheduling.CapacityRequest{
		Start:           today,
		End:             cfg.ExamDate,
		HoursPerWeekday: cfg.StudyHoursPerWeekday,
		SessionMinutes:  cfg.SessionDurationMinutes,
		WeekdaysOnly:    cfg.WeekdaysOnly,
	})
	if err != nil {
		return err
	}
	report := CapacityReport{Days: days, Total: scheduling.TotalCapacity(days)}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "DATE\tWEEKDAY\tSLOTS")
	for _, d := range report.Days {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", d.Date, d.Weekday, d.MaxSessions)
	}
	fmt.Fprintf(tw, "total\t\t%d\n", report.Total)
	return tw.Flush()
}
