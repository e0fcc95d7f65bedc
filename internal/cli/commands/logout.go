package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and remove stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, opts...)
			if err != nil {
				return err
			}
			return runLogout(cmd.Context(), env)
		},
	}
}

func runLogout(ctx context.Context, env *Env) error {
	tokens, ok := env.Store.Tokens()
	if ok {
		// The server may already consider the token invalid; local state is cleared regardless
		if err := env.Client.Logout(ctx, tokens.RefreshToken); err != nil {
			env.Logger.Debug().Err(err).Msg("Server-side logout failed")
		}
	}

	if err := env.Store.Clear(); err != nil {
		return fmt.Errorf("failed to remove stored credentials: %w", err)
	}

	if !ok {
		fmt.Fprintln(env.Out, "Not logged in.")
		return nil
	}
	fmt.Fprintf(env.Out, "✓ Logged out of %s\n", env.Settings.ServerName)
	return nil
}
