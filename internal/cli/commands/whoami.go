package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/ts-platform/portal/internal/models"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(opts ...Option) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, opts...)
			if err != nil {
				return err
			}
			return runWhoami(cmd.Context(), env, offline)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Only show the stored session, without contacting the server")

	return cmd
}

func runWhoami(ctx context.Context, env *Env, offline bool) error {
	session, err := env.requireSession()
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "Server:   %s (%s)\n", env.Settings.ServerName, env.Settings.APIURL)
	fmt.Fprintf(env.Out, "Username: %s\n", session.Username)
	fmt.Fprintf(env.Out, "Role:     %s\n", session.Role)

	if tokens, ok := env.Store.Tokens(); ok {
		if expiry, ok := tokenExpiry(tokens.AccessToken); ok {
			state := "valid until"
			if time.Now().After(expiry) {
				state = "expired at"
			}
			fmt.Fprintf(env.Out, "Access:   %s %s\n", state, formatTime(expiry))
		}
	}

	if offline {
		return nil
	}

	profile, err := env.Client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Name:     %s\n", profile.FullName())
	if profile.MustChangePassword {
		fmt.Fprintln(env.Out, "Password: must be changed (run: tsp password)")
	}
	if profile.Role == models.RoleStudent && len(profile.Groups) > 0 {
		names := make([]string, len(profile.Groups))
		for i, g := range profile.Groups {
			names[i] = g.Name
		}
		fmt.Fprintf(env.Out, "Groups:   %s\n", strings.Join(names, ", "))
	}
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the server is the authority
func tokenExpiry(accessToken string) (time.Time, bool) {
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
