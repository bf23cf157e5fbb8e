package token

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/openkcm/session-client/internal/business"
	"github.com/openkcm/session-client/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"token",
		"Print the access token",
		"Restores the stored session and prints its access token, for use in scripts.",
		buildInfo,
		cmdutils.RunAsJob,
		business.TokenMain(os.Stdout),
	)
}
