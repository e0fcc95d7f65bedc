package commands

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ts-platform/portal/internal/cli/auth"
	"github.com/ts-platform/portal/internal/cli/config"
	"github.com/ts-platform/portal/internal/cli/progress"
)

// NewLoginCmd creates the login command
func NewLoginCmd(opts ...Option) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the portal",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, opts...)
			if err != nil {
				return err
			}
			return runLogin(cmd.Context(), env, username, password)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (or set TSP_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set TSP_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, env *Env, username, password string) error {
	// Check for environment variables (useful for CI/CD)
	envUser, envPassword := config.Credentials()
	if username == "" {
		username = envUser
	}
	if password == "" {
		password = envPassword
	}

	if username == "" {
		prompted, err := promptUsername()
		if err != nil {
			return fmt.Errorf("username is required (use --username flag or TSP_USERNAME env var)")
		}
		username = prompted
	}
	if password == "" {
		prompted, err := env.ReadSecret("Password: ")
		if err != nil {
			return fmt.Errorf("password is required (use --password flag or TSP_PASSWORD env var): %w", err)
		}
		password = prompted
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	fmt.Fprintf(env.Out, "Logging in to %s (%s)...\n", env.Settings.ServerName, env.Settings.APIURL)

	resp, err := env.Client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := env.Store.SetTokens(auth.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}); err != nil {
		return fmt.Errorf("failed to save authentication tokens: %w", err)
	}
	session := auth.Session{UserID: resp.User.ID, Role: resp.User.Role, Username: resp.User.Username}
	if err := env.Store.SetSession(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Fprintln(env.Out, "✓ Login successful!")
	fmt.Fprintf(env.Out, "  User: %s (%s)\n", resp.User.FullName(), resp.User.Username)
	fmt.Fprintf(env.Out, "  Role: %s\n", resp.User.Role)
	if resp.MustChangePassword {
		fmt.Fprintln(env.Out, "\nYour password must be changed before continuing. Run: tsp password")
	}
	return nil
}

func promptUsername() (string, error) {
	if !progress.IsTerminalStdin() {
		return "", fmt.Errorf("not a terminal")
	}
	prompt := promptui.Prompt{
		Label: "Username",
		Validate: func(input string) error {
			if input == "" {
				return fmt.Errorf("username is required")
			}
			return nil
		},
	}
	return prompt.Run()
}
