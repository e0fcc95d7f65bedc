package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ts-platform/portal/internal/validation"
)

// NewPasswordCmd creates the password command
func NewPasswordCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, opts...)
			if err != nil {
				return err
			}
			return runPassword(cmd.Context(), env)
		},
	}
}

func runPassword(ctx context.Context, env *Env) error {
	if _, err := env.requireSession(); err != nil {
		return err
	}

	current, err := env.ReadSecret("Current password: ")
	if err != nil {
		return err
	}
	next, err := env.ReadSecret("New password: ")
	if err != nil {
		return err
	}
	if err := validation.CheckPassword(next); err != nil {
		return err
	}
	confirm, err := env.ReadSecret("Repeat new password: ")
	if err != nil {
		return err
	}
	if confirm != next {
		return fmt.Errorf("passwords do not match")
	}
	if next == current {
		return fmt.Errorf("new password must differ from the current one")
	}

	if err := env.Client.ChangePassword(ctx, current, next); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	fmt.Fprintln(env.Out, "✓ Password changed")
	return nil
}
