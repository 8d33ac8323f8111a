package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/studyplan-api/internal/scheduling"
)

// GenerateReport is the JSON output of the generate command.
type GenerateReport struct {
	Result   *scheduling.Result   `json:"result"`
	Sessions []scheduling.Session `json:"sessions"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "generate <fixture.yaml>",
		Short:         "Generate a study calendar from a fixture",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(rootOpts, args[0], cmd)
		},
	}
}

func runGenerate(opts *RootOptions, path string, cmd *cobra.Command) error {
	fx, err := LoadFixture(path)
	if err != nil {
		return err
	}
	input, err := engineInput(fx)
	if err != nil {
		return err
	}
	calc, err := fx.Calculator()
	if err != nil {
		return err
	}

	engine := scheduling.NewEngine(calc, commandLogger(opts, cmd))
	result, err := engine.Generate(input)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), GenerateReport{Result: result, Sessions: result.Agenda.Sessions()})
	}
	return printGenerateText(cmd.OutOrStdout(), result)
}

func engineInput(fx *Fixture) (scheduling.Input, error) {
	cfg, err := fx.PlanConfig()
	if err != nil {
		return scheduling.Input{}, err
	}
	topics, err := fx.PlanTopics()
	if err != nil {
		return scheduling.Input{}, err
	}
	history, err := fx.CompletedHistory()
	if err != nil {
		return scheduling.Input{}, err
	}
	return scheduling.Input{PlanID: fx.PlanID, Config: cfg, Topics: topics, History: history}, nil
}

func printGenerateText(w io.Writer, result *scheduling.Result) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tTYPE\tSUBJECT\tTOPIC")
	for _, s := range result.Agenda.Sessions() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Date, s.Type, s.SubjectName, s.TopicDescription)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d sessions between %s and %s (capacity %d, pending %d)\n",
		result.Agenda.Len(), result.Today, result.ExamDate, result.NewTopicCapacity, result.PendingCount)
	if result.Overflow.Applied {
		fmt.Fprintf(w, "reta final: kept %v, excluded %d\n", result.Overflow.KeptSubjects, len(result.Overflow.Excluded))
		for _, ex := range result.Overflow.Excluded {
			fmt.Fprintf(w, "  - %s (%s) priority %d\n", ex.Topic.ID, ex.Topic.SubjectName, ex.CombinedPriority)
		}
	}
	for _, r := range result.Reviews {
		if r.Skipped {
			fmt.Fprintf(w, "review %s for %s skipped: %s\n", r.Type, r.TopicID, r.Reason)
		}
	}
	if result.RoundRobinBound {
		fmt.Fprintln(w, "warning: round-robin bound reached, leftover topics appended")
	}
	return nil
}
