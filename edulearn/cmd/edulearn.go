// Command-line interface entrypoint for the EduLearn tutor chat
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// set by -ldflags at build time
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "edulearn",
		Short:         "EduLearn tutor chat",
		Long:          "edulearn keeps your tutoring chat sessions and lets you continue them from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "edulearn version %s (commit: %s)\n", version, commit)
		},
	}
}
