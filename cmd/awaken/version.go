package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/awaken"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of awaken",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "awaken version %s\n", strings.TrimSpace(awaken.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
