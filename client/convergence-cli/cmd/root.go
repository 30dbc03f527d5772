package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/agentclient"
)

var (
	serverURL     string
	etcdEndpoints []string
	serviceName   string
	token         string
	outputJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "convergence-cli",
	Short: "A CLI client for the agent coordinator",
	Long: `A command-line interface for running agents against the coordinator,
managing tasks and interventions, and pulling convergence reports.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "coordinator base URL")
	rootCmd.PersistentFlags().StringSliceVar(&etcdEndpoints, "etcd", nil, "etcd endpoints used to discover the coordinator (overrides --server)")
	rootCmd.PersistentFlags().StringVar(&serviceName, "service", "coordinator", "service name the coordinator registers in etcd")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("COORDINATOR_TOKEN"), "bearer token for operator endpoints")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print raw JSON responses")
}

// baseURL resolves the coordinator address, through etcd when endpoints are given.
func baseURL(ctx context.Context) (string, error) {
	if len(etcdEndpoints) == 0 {
		return strings.TrimRight(serverURL, "/"), nil
	}
	addr, err := agentclient.DiscoverCoordinator(ctx, etcdEndpoints, serviceName)
	if err != nil {
		return "", err
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/"), nil
}
