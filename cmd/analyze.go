package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/immisense/advisor/agent/agents/shalaye"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	query    string
	followUp bool
	asJSON   bool
	render   bool
}

func newAnalyzeCommand() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "ShalayeAI: break down a product label photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			analyzer, err := buildAnalyzer(cmd.Context())
			if err != nil {
				return err
			}

			analysis, err := analyzer.Analyze(cmd.Context(), shalaye.AnalyzeRequest{
				Query:    opts.query,
				Image:    shalaye.Image{MIMEType: http.DetectContentType(raw), Data: raw},
				FollowUp: opts.followUp,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case opts.asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(analysis)
			case opts.render:
				return renderMarkdown(out, analysis.Markdown)
			default:
				_, err = fmt.Fprintln(out, analysis.Markdown)
				return err
			}
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.query, "query", "q", "", "question about the product (defaults to a full breakdown)")
	f.BoolVar(&opts.followUp, "follow-up", false, "answer the query directly instead of producing the full breakdown")
	f.BoolVar(&opts.asJSON, "json", false, "print the analysis with extracted scores and risks as JSON")
	f.BoolVar(&opts.render, "render", false, "render Markdown for the terminal")
	cmd.MarkFlagsMutuallyExclusive("json", "render")

	return cmd
}
