package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeplan/internal/apiclient"
	"github.com/Tiliavir/timeplan/internal/apperr"
	"github.com/Tiliavir/timeplan/internal/config"
	"github.com/Tiliavir/timeplan/internal/edit"
	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/planner"
	"github.com/Tiliavir/timeplan/internal/stopwatch"
	"github.com/Tiliavir/timeplan/internal/store"
	"github.com/Tiliavir/timeplan/internal/tasks"
)

var (
	cfgPath string
	verbose bool
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tp",
	Short: "timeplan – track your time and plan your day",
	Long: `tp is a stopwatch-style time tracker with a grouped daily history,
a to-do list with hour estimates and generated day schedules.
Data lives in ~/.timeplan/ or on a tp serve instance.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		_, _ = color.New(color.FgRed).Fprintln(os.Stderr, apperr.Message(err))
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default ~/.timeplan/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(signupCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	c, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	cfg = c
	slog.Debug("config loaded", "data_dir", cfg.DataDir, "driver", cfg.Store.Driver, "remote", cfg.Remote())
	return nil
}

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// userErrors are caused by input or state the user can fix; they exit 1.
var userErrors = []error{
	stopwatch.ErrAlreadyRunning,
	stopwatch.ErrNotRunning,
	stopwatch.ErrBusy,
	edit.ErrEntryRunning,
	tasks.ErrEmptyDescription,
	planner.ErrNoTasks,
	planner.ErrInvalidHours,
	model.ErrInvalidHours,
	store.ErrNotFound,
	store.ErrAmbiguous,
	store.ErrAlreadyRunning,
	store.ErrInvalidRange,
	store.ErrEmailTaken,
	store.ErrUnauthorized,
	apiclient.ErrRejected,
}

func isUserError(err error) bool {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// storageErr marks a failed storage or remote call (exit 2) unless the
// failure is one the user caused.
func storageErr(err error) error {
	var ee *exitError
	if err == nil || isUserError(err) || errors.Is(err, stopwatch.ErrMultipleRunning) || errors.As(err, &ee) {
		return err
	}
	return &exitError{code: 2, err: err}
}

// exitCode maps err to the process exit status: 3 for corrupted data (more
// than one running entry), 2 for storage and remote failures, 1 otherwise.
func exitCode(err error) int {
	var ee *exitError
	switch {
	case errors.Is(err, stopwatch.ErrMultipleRunning):
		return 3
	case errors.As(err, &ee):
		return ee.code
	default:
		return 1
	}
}

// usageErrorf is a user error without a sentinel.
func usageErrorf(format string, args ...any) error {
	return &exitError{code: 1, err: fmt.Errorf(format, args...)}
}
