package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/contestgen/internal/cli"
	"github.com/cloo-solutions/contestgen/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "contestgen",
		Short: "Contestgen CLI - trigger and inspect contest generation runs",
		Long: `Contestgen CLI talks to a running contest generator service.

Environment variables:
  CONTESTGEN_API_URL        Service base URL (default: http://localhost:8000)
  CONTESTGEN_TRIGGER_TOKEN  Bearer token when the service sets TRIGGER_TOKEN`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("token", "", "Trigger token (overrides env)")
	rootCmd.PersistentFlags().String("api-url", "", "Service base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.TriggerCmd())
	rootCmd.AddCommand(client.StatusCmd())
	rootCmd.AddCommand(client.JobsCmd())

	if handled, err := cli.HandleHelpJSON(rootCmd, os.Args[1:], os.Stdout); handled {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
