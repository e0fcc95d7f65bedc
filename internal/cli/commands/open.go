package commands

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

// NewOpenCmd creates the open command
func NewOpenCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "open [page]",
		Short: "Open the web portal in browser",
		Example: `  $ tsp open
  $ tsp open teacher/groups`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, opts...)
			if err != nil {
				return err
			}

			base := env.Settings.WebURL
			if base == "" {
				return fmt.Errorf("server '%s' has no web url. Set one with: tsp server add %s %s --web-url <url>",
					env.Settings.ServerName, env.Settings.ServerName, env.Settings.APIURL)
			}

			target := strings.TrimRight(base, "/")
			if len(args) > 0 {
				target += "/" + strings.TrimLeft(args[0], "/")
			}

			fmt.Fprintf(env.Out, "Opening %s...\n", target)
			if err := env.OpenURL(target); err != nil {
				return fmt.Errorf("failed to open browser: %w\nPlease visit: %s", err, target)
			}
			return nil
		},
	}
}

// openBrowser opens the URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
