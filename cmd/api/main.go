package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/planweave/core/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "planweave",
		Short: "PlanWeave API Server",
		Long:  `PlanWeave is a personal schedule manager with recurring series, external calendar merging and a daily plan view.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
