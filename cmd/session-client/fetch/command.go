package fetch

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/openkcm/session-client/internal/business"
	"github.com/openkcm/session-client/internal/cmdutils"
	"github.com/openkcm/session-client/internal/config"
)

func Cmd(buildInfo string) *cobra.Command {
	var path string

	cmd := cmdutils.CobraCommand(
		"fetch <path>",
		"GET a path with the session credential",
		"Sends an authenticated GET to the credential service, renewing the access token once if it was rejected, and prints the JSON response.",
		buildInfo,
		cmdutils.RunTraced,
		func(ctx context.Context, cfg *config.Config) error {
			return business.FetchMain(os.Stdout, path)(ctx, cfg)
		},
	)

	cmd.Args = cobra.ExactArgs(1)
	cmd.PreRun = func(_ *cobra.Command, args []string) {
		path = args[0]
	}

	return cmd
}
