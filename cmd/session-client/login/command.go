package login

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/openkcm/session-client/internal/business"
	"github.com/openkcm/session-client/internal/cmdutils"
	"github.com/openkcm/session-client/internal/config"
)

func Cmd(buildInfo string) *cobra.Command {
	var email, password string
	var cmd *cobra.Command

	cmd = cmdutils.CobraCommand(
		"login",
		"Sign in with email and password",
		"Signs in and stores the credential for later commands. Without --password the password is read from stdin.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			if password == "" {
				p, err := cmdutils.ReadSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return err
				}
				password = p
			}

			return business.LoginMain(os.Stdout, email, password)(ctx, cfg)
		},
	)

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
