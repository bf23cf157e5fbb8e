package signup

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/openkcm/session-client/internal/business"
	"github.com/openkcm/session-client/internal/cmdutils"
	"github.com/openkcm/session-client/internal/config"
	"github.com/openkcm/session-client/pkg/session"
)

func Cmd(buildInfo string) *cobra.Command {
	var s session.Signup
	var cmd *cobra.Command

	cmd = cmdutils.CobraCommand(
		"signup",
		"Create an account and sign in",
		"Registers a new account with the credential service and signs in with it.",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			if s.Password == "" {
				p, err := cmdutils.ReadSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return err
				}
				s.Password = p
			}

			return business.SignupMain(os.Stdout, s)(ctx, cfg)
		},
	)

	cmd.Flags().StringVar(&s.Name, "name", "", "display name")
	cmd.Flags().StringVar(&s.Email, "email", "", "account email")
	cmd.Flags().StringVar(&s.Password, "password", "", "account password, at least 8 characters")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
