// Package main provides the entry point for the testfang CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/testfang/cmd/testfang/commands"
	"github.com/Sumatoshi-tech/testfang/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "testfang",
		Short: "Testfang - xUnit report ingestion and test measures",
		Long: `Testfang reads xUnit/JUnit XML test reports, optionally converts them with XSLT,
and computes test measures for the whole project or per test source file.

Commands:
  run       Process the reports found under a project directory`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	commands.RegisterGlobalFlags(rootCmd)

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "testfang %s\n", version.String())
		},
	}
}
