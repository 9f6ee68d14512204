package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagebox/stagebox/internal/explorer"
)

var openViewer bool

var openCmd = &cobra.Command{
	Use:   "open <app-id>",
	Short: "Open an app's preview in the system browser",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := apiClient()
		if err != nil {
			return err
		}

		app, err := cl.GetApp(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		url := cl.ServeURL(app.ID, app.EntryFile)
		if openViewer {
			url = cl.ViewerURL(app.ID)
		}

		surface := explorer.NewSurface(url, nil)
		if err := surface.OpenExternal(); err != nil {
			return fmt.Errorf("opening browser: %w", err)
		}
		fmt.Printf("Opened %s\n", url)
		return nil
	},
}

func init() {
	openCmd.Flags().BoolVar(&openViewer, "viewer", false, "open the viewer page instead of the raw app")
	rootCmd.AddCommand(openCmd)
}
