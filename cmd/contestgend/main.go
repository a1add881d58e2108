package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/contestgen/internal/cli"
	"github.com/cloo-solutions/contestgen/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "contestgend",
		Short:        "Contest generator daemon and maintenance commands",
		Long:         "Contest generator daemon for serving the trigger API, running the weekly schedule and maintaining the vector store",
		SilenceUsage: true,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.GenerateCmd())
	rootCmd.AddCommand(admin.UploadCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.CheckProviderCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if handled, err := cli.HandleHelpJSON(rootCmd, os.Args[1:], os.Stdout); handled {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
