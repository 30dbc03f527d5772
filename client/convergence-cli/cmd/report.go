package cmd

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	reportHours  int
	reportSince  string
	reportOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch a convergence report (summary, or an xlsx workbook with --out)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		if reportSince != "" {
			q.Set("since", reportSince)
		} else {
			q.Set("hours", strconv.Itoa(reportHours))
		}

		if reportOutput != "" {
			q.Set("format", "xlsx")
			raw, err := callRaw(cmd.Context(), "GET", "/api/v1/convergence/report", q, nil)
			if err != nil {
				return err
			}
			if err := os.WriteFile(reportOutput, raw, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", reportOutput, err)
			}
			fmt.Printf("Report written to %s (%d bytes)\n", reportOutput, len(raw))
			return nil
		}

		var rep reportView
		if err := call(cmd.Context(), "GET", "/api/v1/convergence/report", q, nil, &rep); err != nil {
			return err
		}
		if outputJSON {
			return printJSON(rep)
		}
		state := "diverging"
		if rep.Converged {
			state = "converged"
		}
		fmt.Printf("Convergence since %s: %s (avg divergence %s, threshold %s)\n",
			rep.Since.Format(time.RFC3339), state, formatFloat(rep.AvgDivergence), formatFloat(rep.Threshold))
		fmt.Printf("Assessments: %d, open interventions: %d\n", len(rep.Assessments), len(rep.OpenInterventions))
		for _, iv := range rep.OpenInterventions {
			fmt.Printf("  %s %s %s divergence=%s\n", iv.ID, iv.AgentID, iv.Severity, formatFloat(iv.Divergence))
		}
		return nil
	},
}

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Run one convergence cycle now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var res cycleView
		if err := call(cmd.Context(), "POST", "/api/v1/convergence/assess", nil, nil, &res); err != nil {
			return err
		}
		if outputJSON {
			return printJSON(res)
		}
		fmt.Printf("Assessed %d active agents: avg divergence %s, converged=%t\n",
			res.ActiveAgents, formatFloat(res.AvgDivergence), res.Converged)
		fmt.Printf("Opened %d interventions, %d open in total\n", len(res.Opened), res.OpenInterventions)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(assessCmd)

	reportCmd.Flags().IntVar(&reportHours, "hours", 24, "report window in hours")
	reportCmd.Flags().StringVar(&reportSince, "since", "", "report start time in RFC3339 (overrides --hours)")
	reportCmd.Flags().StringVarP(&reportOutput, "out", "o", "", "write the xlsx workbook to this file")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
