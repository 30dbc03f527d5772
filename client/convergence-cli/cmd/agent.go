package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/agentclient"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

var (
	agentRooms     []string
	agentHeartbeat time.Duration
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run agents and inspect the agent registry",
}

var agentRunCmd = &cobra.Command{
	Use:   "run [kind]",
	Short: "Connect an agent (CURSOR, ARA, or any other kind) and keep it online",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAgent(cmd.Context(), args[0])
	},
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Agents []agentView `json:"agents"`
		}
		if err := call(cmd.Context(), "GET", "/api/v1/agents", nil, nil, &resp); err != nil {
			return err
		}
		if outputJSON {
			return printJSON(resp)
		}
		for _, a := range resp.Agents {
			fmt.Printf("%-16s %-8s understanding=%s alignment=%s last_seen=%s %s\n",
				a.ID, a.Status, score(a.Understanding), score(a.Alignment),
				a.LastSeen.Format(time.RFC3339), a.CurrentTask)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)
	agentCmd.AddCommand(agentRunCmd)
	agentCmd.AddCommand(agentListCmd)

	agentRunCmd.Flags().StringSliceVar(&agentRooms, "room", nil, "rooms to join after registering")
	agentRunCmd.Flags().DurationVar(&agentHeartbeat, "heartbeat", agentclient.DefaultHeartbeatInterval, "heartbeat interval")
}

func runAgent(parent context.Context, kind string) error {
	preset, err := agentclient.LookupPreset(kind)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	base, err := baseURL(ctx)
	if err != nil {
		return err
	}
	cfg := preset.Config(agentclient.WebSocketURL(base))
	cfg.HeartbeatInterval = agentHeartbeat
	cfg.Logger = logger.New("convergence-cli", "", preset.AgentID)

	client, err := agentclient.New(cfg, agentclient.Handlers{agentclient.LogHandler{}, preset.Handler()})
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	for _, room := range agentRooms {
		if err := client.JoinRoom(strings.TrimSpace(room)); err != nil {
			return err
		}
	}
	fmt.Printf("Agent %s is online at %s. Press Ctrl+C to stop.\n", preset.AgentID, cfg.URL)
	return client.Run(ctx)
}
