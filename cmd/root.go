package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the pillminder application
var rootCmd = &cobra.Command{
	Use:   "pillminder",
	Short: "Turns medication prescriptions into calendar reminders",
	Long: `pillminder expands recurring medication prescriptions into one reminder per
dose and schedules them in Google Calendar and Google Tasks.

It can run as:
  - An HTTP API and MCP (Model Context Protocol) server (serve)
  - A local tool that prints the dose schedule of a prescription file (expand)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "pillminder version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExpandCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
