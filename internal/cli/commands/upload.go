package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewUploadCmd creates the upload command
func NewUploadCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload files and print their attachment IDs",
		Args:  cobra.MinimumNArgs(1),
		RunE: withEnv(opts, func(ctx context.Context, env *Env, args []string) error {
			if _, err := env.requireSession(); err != nil {
				return err
			}

			attachments, err := uploadFiles(ctx, env, args)
			if err != nil {
				return err
			}

			rows := make([][]string, len(attachments))
			for i, a := range attachments {
				rows[i] = []string{a.ID, a.Name, string(a.Kind), fmt.Sprintf("%d KB", a.SizeKB), a.URL}
			}
			return printTable(env.Out, []string{"ID", "NAME", "KIND", "SIZE", "URL"}, rows)
		}),
	}
}
