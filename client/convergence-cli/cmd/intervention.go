package cmd

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
)

var (
	ivAll           bool
	ivAgent         string
	ivEffectiveness float64
	ivNote          string
)

var interventionCmd = &cobra.Command{
	Use:     "intervention",
	Aliases: []string{"iv"},
	Short:   "Inspect and answer convergence interventions",
}

var interventionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List interventions (open ones unless --all)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		if !ivAll {
			q.Set("open", "true")
		}
		if ivAgent != "" {
			q.Set("agent_id", ivAgent)
		}
		var resp struct {
			Interventions []interventionView `json:"interventions"`
		}
		if err := call(cmd.Context(), "GET", "/api/v1/interventions", q, nil, &resp); err != nil {
			return err
		}
		if outputJSON {
			return printJSON(resp)
		}
		if len(resp.Interventions) == 0 {
			fmt.Println("No interventions.")
			return nil
		}
		for _, iv := range resp.Interventions {
			fmt.Printf("%-40s %-16s %-6s %-12s divergence=%s %s %s\n",
				iv.ID, iv.AgentID, iv.Severity, iv.Status, formatFloat(iv.Divergence),
				iv.CreatedAt.Format(time.RFC3339), iv.ProtocolRef)
		}
		return nil
	},
}

var interventionAckCmd = &cobra.Command{
	Use:   "ack [intervention-id]",
	Short: "Acknowledge an intervention",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(cmd, args[0], "acknowledge")
	},
}

var interventionResolveCmd = &cobra.Command{
	Use:   "resolve [intervention-id]",
	Short: "Resolve an intervention and rate how effective it was (0-10)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(cmd, args[0], "resolve")
	},
}

func decide(cmd *cobra.Command, id, action string) error {
	body := map[string]interface{}{}
	if cmd.Flags().Changed("effectiveness") {
		body["effectiveness"] = ivEffectiveness
	}
	if ivNote != "" {
		body["note"] = ivNote
	}
	var iv interventionView
	err := call(cmd.Context(), "POST", "/api/v1/interventions/"+url.PathEscape(id)+"/"+action, nil, body, &iv)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(iv)
	}
	fmt.Printf("Intervention %s for %s is now %s (effectiveness %s)\n",
		iv.ID, iv.AgentID, iv.Status, score(iv.Effectiveness))
	return nil
}

func init() {
	rootCmd.AddCommand(interventionCmd)
	interventionCmd.AddCommand(interventionListCmd)
	interventionCmd.AddCommand(interventionAckCmd)
	interventionCmd.AddCommand(interventionResolveCmd)

	interventionListCmd.Flags().BoolVar(&ivAll, "all", false, "include acknowledged and resolved interventions")
	interventionListCmd.Flags().StringVar(&ivAgent, "agent", "", "only interventions for this agent")
	for _, c := range []*cobra.Command{interventionAckCmd, interventionResolveCmd} {
		c.Flags().Float64Var(&ivEffectiveness, "effectiveness", 0, "effectiveness score from 0 to 10")
		c.Flags().StringVar(&ivNote, "note", "", "free-form note")
	}
}
