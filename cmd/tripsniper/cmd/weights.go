package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wonny/tripsniper/internal/service/scoring"
)

// weightsCmd 가중치 확인
var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Show the resolved steal score weights",
	Long: `Print the weights the scoring engine would use, resolved from
STEAL_SCORE_WEIGHTS, STEAL_SCORE_WEIGHTS_FILE or the defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := scoring.LoadWeights(cfg.Scoring.WeightsJSON, cfg.Scoring.WeightsFile)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "source: %s\n\n", w.Source())

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FEATURE\tWEIGHT")
		for _, name := range w.Names() {
			fmt.Fprintf(tw, "%s\t%.4f\n", name, w.Get(name))
		}
		fmt.Fprintf(tw, "\t\nsum\t%.4f\n", w.Sum())
		return tw.Flush()
	},
}
