package forgot

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/openkcm/session-client/internal/business"
	"github.com/openkcm/session-client/internal/cmdutils"
	"github.com/openkcm/session-client/internal/config"
)

func Cmd(buildInfo string) *cobra.Command {
	var email string

	cmd := cmdutils.CobraCommand(
		"forgot",
		"Request a password reset",
		"Asks the credential service to send a password reset link.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			return business.ForgotMain(os.Stdout, email)(ctx, cfg)
		},
	)

	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
