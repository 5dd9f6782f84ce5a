package cmd

import (
	"github.com/immisense/advisor/agent/httpapi"
	configx "github.com/immisense/advisor/pkg/config"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var verifyModels bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assessment and ShalayeAI HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			conf, err := configx.New[httpapi.Config]("HTTP")
			if err != nil {
				return err
			}

			svc, err := buildServices(ctx, buildOptions{verifyModels: verifyModels, withAnalyzer: true})
			if err != nil {
				return err
			}
			defer svc.Close()

			server, err := httpapi.New(*conf, svc.assessment, svc.analyzer)
			if err != nil {
				return err
			}
			return server.ListenAndServe(ctx)
		},
	}
	cmd.Flags().BoolVar(&verifyModels, "verify-models", false, "check configured models against OpenRouter at startup")
	return cmd
}
