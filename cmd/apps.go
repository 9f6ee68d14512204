package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List uploaded apps",
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := apiClient()
		if err != nil {
			return err
		}

		apps, err := cl.ListApps(cmd.Context())
		if err != nil {
			return err
		}
		if len(apps) == 0 {
			fmt.Println("No apps uploaded yet. Try: stagebox upload <project.zip>")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tFRAMEWORK\tFILES\tSIZE\tCREATED")
		for _, a := range apps {
			fw := a.Framework
			if fw == "" {
				fw = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				shortID(a.ID), a.Name, fw, a.FileCount, formatSize(a.SizeBytes), a.CreatedAt)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(appsCmd)
}
