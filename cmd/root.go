// Package cmd holds the immisense command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	configx "github.com/immisense/advisor/pkg/config"
	logx "github.com/immisense/advisor/pkg/logger"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFile string
	verbose bool
}

// NewRootCommand builds the command tree. Subcommands load their own
// configuration so that `visas` works without any credentials.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "immisense",
		Short:         "Multi-agent U.S. visa eligibility advisor",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configx.SetEnvFile(opts.envFile)

			conf, err := configx.New[logx.Config]("LOG")
			if err != nil {
				return err
			}
			if opts.verbose {
				conf.Debug = true
			}
			logx.Init(*conf)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env", "", "path to a .env file (default ./.env)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newAssessCommand(),
		newAnalyzeCommand(),
		newVisasCommand(),
		newServeCommand(),
	)
	return root
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}
