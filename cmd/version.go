package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the build version, overridden at link time.
var Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the stagebox version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stagebox v%s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
