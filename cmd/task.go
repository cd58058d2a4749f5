package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/store"
	"github.com/Tiliavir/timeplan/internal/tasks"
	"github.com/Tiliavir/timeplan/internal/timecalc"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage the to-do list",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <description...>",
	Short: "Add a task with a one hour estimate",
	Args:  cobra.MinimumNArgs(1),
	RunE: withTasks(func(ctx context.Context, w io.Writer, repo store.TaskRepository, args []string) error {
		form := tasks.NewForm(repo)
		form.SetInput(strings.Join(args, " "))
		t, err := form.Submit(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Added %s %q (%s)\n", shortID(t.ID), t.Description, timecalc.FormatHours(t.Time))
		return nil
	}),
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Args:    cobra.NoArgs,
	RunE: withTasks(func(ctx context.Context, w io.Writer, repo store.TaskRepository, _ []string) error {
		list, err := repo.ListTasks(ctx)
		if err != nil {
			return err
		}
		printTasks(w, list)
		return nil
	}),
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task as done",
	Args:  cobra.ExactArgs(1),
	RunE:  withTasks(setDone(true)),
}

var taskUndoCmd = &cobra.Command{
	Use:   "undo <id>",
	Short: "Mark a task as open again",
	Args:  cobra.ExactArgs(1),
	RunE:  withTasks(setDone(false)),
}

var taskTimeCmd = &cobra.Command{
	Use:   "time <id> <hours>",
	Short: "Set a task's estimate in hours (0.5 steps)",
	Args:  cobra.ExactArgs(2),
	RunE: withTasks(func(ctx context.Context, w io.Writer, repo store.TaskRepository, args []string) error {
		hours, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", model.ErrInvalidHours, args[1])
		}
		t, err := resolveTask(ctx, repo, args[0])
		if err != nil {
			return err
		}
		t, err = tasks.SetTime(ctx, repo, t.ID, hours)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %q is estimated at %s\n", shortID(t.ID), t.Description, timecalc.FormatHours(t.Time))
		return nil
	}),
}

var taskRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE: withTasks(func(ctx context.Context, w io.Writer, repo store.TaskRepository, args []string) error {
		t, err := resolveTask(ctx, repo, args[0])
		if err != nil {
			return err
		}
		if err := tasks.Delete(ctx, repo, t.ID); err != nil {
			return err
		}
		fmt.Fprintf(w, "Deleted %q\n", t.Description)
		return nil
	}),
}

func init() {
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskDoneCmd, taskUndoCmd, taskTimeCmd, taskRmCmd)
}

type taskFunc func(ctx context.Context, w io.Writer, repo store.TaskRepository, args []string) error

// withTasks opens the backend around fn.
func withTasks(fn taskFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()
		return storageErr(fn(ctx, cmd.OutOrStdout(), b.repo, args))
	}
}

func setDone(done bool) taskFunc {
	return func(ctx context.Context, w io.Writer, repo store.TaskRepository, args []string) error {
		t, err := resolveTask(ctx, repo, args[0])
		if err != nil {
			return err
		}
		t, err = tasks.SetDone(ctx, repo, t.ID, done)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s\n", checkbox(t.IsDone), t.Description)
		return nil
	}
}

func resolveTask(ctx context.Context, repo store.TaskRepository, ref string) (model.Task, error) {
	list, err := repo.ListTasks(ctx)
	if err != nil {
		return model.Task{}, err
	}
	return tasks.Resolve(list, ref)
}

func checkbox(done bool) string {
	if done {
		return color.GreenString("[x]")
	}
	return "[ ]"
}

func printTasks(w io.Writer, list []model.Task) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No tasks yet. Add one with tp task add <description>.")
		return
	}
	tbl := uitable.New()
	tbl.MaxColWidth = 60
	tbl.AddRow("", "ID", "ESTIMATE", "TASK")
	for _, t := range list {
		tbl.AddRow(checkbox(t.IsDone), shortID(t.ID), timecalc.FormatHours(t.Time), t.Description)
	}
	fmt.Fprintln(w, tbl)

	open := tasks.Open(list)
	fmt.Fprintf(w, "\n%d open, %s estimated\n", len(open), timecalc.FormatHours(tasks.TotalHours(open)))
}
