package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/planner"
	"github.com/Tiliavir/timeplan/internal/timecalc"
)

var planHours float64

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate a schedule for today's open tasks",
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().Float64Var(&planHours, "hours", planner.DefaultHours, "Working hours available today (1-24)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := planner.ValidateHours(planHours); err != nil {
		return err
	}

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	if b.generator == nil {
		return usageErrorf("plan generation is not configured: set planner.apiKey or OPENAI_API_KEY")
	}

	list, err := b.repo.ListTasks(ctx)
	if err != nil {
		return storageErr(err)
	}
	session := planner.NewSession(b.generator)
	if !session.CanGenerate(len(list)) {
		return planner.ErrNoTasks
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Planning %s of work...\n", timecalc.FormatHours(planHours))
	schedule, err := session.Generate(ctx, planHours)
	if err != nil {
		return storageErr(err)
	}
	printSchedule(cmd.OutOrStdout(), schedule)
	return nil
}

func priorityColor(p model.Priority) *color.Color {
	switch p {
	case model.PriorityHigh:
		return color.New(color.FgRed, color.Bold)
	case model.PriorityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func printSchedule(w io.Writer, s model.Schedule) {
	if len(s.Tasks) == 0 {
		fmt.Fprintln(w, "The planner returned an empty schedule.")
		return
	}
	bold := color.New(color.Bold)
	for i, t := range s.Tasks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%d. %s %s\n", i+1, bold.Sprint(t.Name), priorityColor(t.Priority).Sprintf("(%s)", t.Priority))

		tbl := uitable.New()
		tbl.MaxColWidth = 60
		for _, st := range t.Subtasks {
			tbl.AddRow("   -", st.Description, timecalc.FormatHours(st.Time))
		}
		for _, br := range t.Breaks {
			tbl.AddRow("   ~", color.CyanString(br.Description), timecalc.FormatHours(br.Time))
		}
		if len(t.Subtasks)+len(t.Breaks) > 0 {
			fmt.Fprintln(w, tbl)
		}
	}
}
