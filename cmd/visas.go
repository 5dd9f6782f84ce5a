package cmd

import (
	"fmt"

	"github.com/immisense/advisor/agent/visa"
	"github.com/spf13/cobra"
)

func newVisasCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "visas [category]",
		Short: "List visa categories, or show one category's questions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				for _, goal := range visa.Goals() {
					fmt.Fprintln(out, goal)
					for _, code := range visa.CategoriesFor(goal) {
						fmt.Fprintf(out, "  %s\n", code)
					}
				}
				return nil
			}

			c, ok := visa.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown visa category %q", args[0])
			}
			fmt.Fprintf(out, "%s (%s)\n\n%s\n\n", c.Code, c.Goal, visa.Describe(c.Code))
			for i, q := range visa.QuestionsFor(c.Code) {
				fmt.Fprintf(out, "%d. %s\n", i+1, q)
			}
			return nil
		},
	}
}
