package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ts-platform/portal/internal/cli/commands"
	"github.com/ts-platform/portal/internal/cli/config"
	"github.com/ts-platform/portal/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the tsp command tree. opts are passed to every subcommand.
func NewRootCmd(opts ...commands.Option) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "tsp",
		Short: "TS Platform - school portal from the command line",
		Long: `TS Platform CLI - work with the school portal from your terminal.

Teachers manage subjects, groups, lessons, attendance, assignments and grades.
Students see their assignments, submit answers and follow their grades.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnv()

			level := "warn"
			if verbose {
				level = "debug"
			}
			logger.InitWithWriter(os.Stderr, level, "console")
		},
	}

	rootCmd.PersistentFlags().String("server", "", "Server name from the config file (defaults to the selected server)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and token refreshes to stderr")

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tsp version %s\n", version)
		},
	})

	// Add all subcommands
	rootCmd.AddCommand(commands.NewLoginCmd(opts...))
	rootCmd.AddCommand(commands.NewLogoutCmd(opts...))
	rootCmd.AddCommand(commands.NewWhoamiCmd(opts...))
	rootCmd.AddCommand(commands.NewPasswordCmd(opts...))
	rootCmd.AddCommand(commands.NewServerCmd(opts...))
	rootCmd.AddCommand(commands.NewOpenCmd(opts...))
	rootCmd.AddCommand(commands.NewSubjectsCmd(opts...))
	rootCmd.AddCommand(commands.NewGroupsCmd(opts...))
	rootCmd.AddCommand(commands.NewLessonsCmd(opts...))
	rootCmd.AddCommand(commands.NewAttendanceCmd(opts...))
	rootCmd.AddCommand(commands.NewAssignmentsCmd(opts...))
	rootCmd.AddCommand(commands.NewStudentsCmd(opts...))
	rootCmd.AddCommand(commands.NewMeCmd(opts...))
	rootCmd.AddCommand(commands.NewDashboardCmd(opts...))
	rootCmd.AddCommand(commands.NewUploadCmd(opts...))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
