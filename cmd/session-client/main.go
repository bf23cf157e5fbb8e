package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/openkcm/common-sdk/pkg/utils"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-client/cmd/session-client/fetch"
	"github.com/openkcm/session-client/cmd/session-client/forgot"
	"github.com/openkcm/session-client/cmd/session-client/login"
	"github.com/openkcm/session-client/cmd/session-client/logout"
	"github.com/openkcm/session-client/cmd/session-client/migrate"
	"github.com/openkcm/session-client/cmd/session-client/signup"
	"github.com/openkcm/session-client/cmd/session-client/status"
	"github.com/openkcm/session-client/cmd/session-client/token"
)

// BuildInfo will be set by the build system
var BuildInfo = "{}"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Session Client Version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		value, err := utils.ExtractFromComplexValue(BuildInfo)
		if err != nil {
			return err
		}

		slog.InfoContext(cmd.Context(), value)

		return nil
	},
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "session-client",
		Short:         "Session Client",
		Long:          "Signs in to a credential service and keeps the session between invocations.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		versionCmd,
		login.Cmd(BuildInfo),
		signup.Cmd(BuildInfo),
		logout.Cmd(BuildInfo),
		status.Cmd(BuildInfo),
		token.Cmd(BuildInfo),
		forgot.Cmd(BuildInfo),
		fetch.Cmd(BuildInfo),
		migrate.Cmd(BuildInfo),
	)

	return cmd
}

func execute() error {
	ctx, cancelOnSignal := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancelOnSignal()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		slogctx.Debug(ctx, "Command failed", "error", err)
		_, _ = fmt.Fprintln(os.Stderr, err)

		return err
	}

	return nil
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
