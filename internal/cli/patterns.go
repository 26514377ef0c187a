package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewPatternsCmd creates the "patterns" command group.
func NewPatternsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect ingredient-line patterns",
	}

	cmd.AddCommand(newPatternsTopCmd(clientFn, outputFn))

	return cmd
}

func newPatternsTopCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "List patterns ordered by occurrence count, most frequent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			patterns, err := client.TopPatterns(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch patterns: %w", err)
			}

			if limit > 0 && limit < len(patterns) {
				patterns = patterns[:limit]
			}

			headers := []string{"CODE", "OCCURRENCES", "RULES", "EXAMPLE"}
			rows := make([][]string, len(patterns))
			for i, p := range patterns {
				rows[i] = []string{p.Code, strconv.Itoa(p.OccurrenceCount), strconv.Itoa(len(p.RuleIDs)), p.ExampleLine}
			}

			out.Print(headers, rows, patterns)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "limit the number of rows shown (0 = all)")
	return cmd
}
