package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "stagebox",
	Short: "Upload, browse, and preview static frontend builds",
	Long: `Stagebox hosts zipped static/SPA frontend projects. Upload a build,
browse its file tree, inspect sources, and preview the running app in a
sandboxed viewer served straight from the extracted archive.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".stagebox.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
