package cmd

import (
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/stagebox/stagebox/internal/client"
)

var uploadName string

var uploadCmd = &cobra.Command{
	Use:   "upload <project.zip>",
	Short: "Upload a zipped frontend project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := apiClient()
		if err != nil {
			return err
		}

		bar := progressbar.NewOptions(100,
			progressbar.OptionSetDescription("Uploading"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionClearOnFinish(),
		)

		app, err := cl.Upload(cmd.Context(), args[0], uploadName, func(frac float64) {
			_ = bar.Set(int(frac * 100))
		})
		if err != nil {
			_ = bar.Clear()
			if errors.Is(err, client.ErrNotZip) {
				return fmt.Errorf("%s is not a .zip archive", args[0])
			}
			return err
		}
		_ = bar.Finish()

		fw := app.Framework
		if fw == "" {
			fw = "unknown"
		}
		fmt.Printf("Uploaded %q (%s)\n", app.Name, shortID(app.ID))
		fmt.Printf("  Framework: %s\n", fw)
		fmt.Printf("  Entry:     %s\n", app.EntryFile)
		fmt.Printf("  Files:     %d (%s)\n", app.FileCount, formatSize(app.SizeBytes))
		fmt.Printf("  Viewer:    %s\n", cl.ViewerURL(app.ID))
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadName, "name", "", "display name (defaults to the zip filename)")
	rootCmd.AddCommand(uploadCmd)
}
