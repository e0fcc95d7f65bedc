package commands

import (
	"fmt"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ts-platform/portal/internal/cli/config"
	"github.com/ts-platform/portal/internal/cli/serverselect"
)

// NewServerCmd creates the server command group
func NewServerCmd(opts ...Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage portal servers",
	}

	cmd.AddCommand(newServerAddCmd(opts...))
	cmd.AddCommand(newServerSelectCmd(nil, opts...))
	cmd.AddCommand(newServerListCmd(opts...))

	return cmd
}

func newServerAddCmd(opts ...Option) *cobra.Command {
	var webURL string
	var selectIt bool

	cmd := &cobra.Command{
		Use:   "add <name> <api-url>",
		Short: "Add or update a server",
		Example: `  $ tsp server add campus https://portal.example.edu/api --web-url https://portal.example.edu
  $ tsp server add local http://localhost:4000/api --select`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, opts...)
			if err != nil {
				return err
			}

			apiURL := args[1]
			if err := checkURL(apiURL); err != nil {
				return err
			}
			if webURL != "" {
				if err := checkURL(webURL); err != nil {
					return err
				}
			}

			server := config.Server{Name: args[0], URL: apiURL, WebURL: webURL}
			if err := env.Config.AddServer(server); err != nil {
				return err
			}
			if selectIt || len(env.Config.Servers) == 1 {
				env.Config.Selected = server.Name
			}
			if err := config.Save(env.ConfigPath, env.Config); err != nil {
				return err
			}

			fmt.Fprintf(env.Out, "✓ Server '%s' saved (%s)\n", server.Name, server.URL)
			if env.Config.Selected == server.Name {
				fmt.Fprintf(env.Out, "Selected server: %s\n", server.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&webURL, "web-url", "", "URL of the web portal, used by 'tsp open'")
	cmd.Flags().BoolVar(&selectIt, "select", false, "Select the server after adding it")

	return cmd
}

func newServerSelectCmd(prompt serverselect.Prompter, opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "select [name]",
		Short: "Select the server to use for commands",
		Long: `Select the server to use for commands.

If no name is provided, an interactive prompt will be shown.

Examples:
  $ tsp server select            # Interactive selection
  $ tsp server select campus     # Select by name`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, opts...)
			if err != nil {
				return err
			}

			var name string
			if len(args) > 0 {
				name = args[0]
			}
			server, err := serverselect.ResolveServer(env.Config, name, prompt)
			if err != nil {
				return err
			}

			env.Config.Selected = server.Name
			if err := config.Save(env.ConfigPath, env.Config); err != nil {
				return fmt.Errorf("failed to save selected server: %w", err)
			}

			fmt.Fprintf(env.Out, "Selected server: %s (%s)\n", server.Name, server.URL)
			return nil
		},
	}
}

func newServerListCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List configured servers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, opts...)
			if err != nil {
				return err
			}

			if len(env.Config.Servers) == 0 {
				fmt.Fprintln(env.Out, "No servers configured.")
				fmt.Fprintln(env.Out, "\nAdd one with: tsp server add <name> <api-url>")
				return nil
			}

			w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\tNAME\tAPI URL\tWEB URL")
			fmt.Fprintln(w, "\t────\t───────\t───────")
			for _, server := range env.Config.Servers {
				marker := ""
				if server.Name == env.Config.Selected {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, server.Name, server.URL, server.WebURL)
			}
			return w.Flush()
		},
	}
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url '%s', expected http(s)://host/...", raw)
	}
	return nil
}
