package status

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/openkcm/session-client/internal/business"
	"github.com/openkcm/session-client/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"status",
		"Show the current session",
		"Restores the stored session, verifying it with the server when a profile endpoint is configured, and prints it as JSON.",
		buildInfo,
		cmdutils.RunAsJob,
		business.StatusMain(os.Stdout),
	)
}
