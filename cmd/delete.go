package cmd

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <app-id>",
	Short: "Delete an uploaded app and its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := apiClient()
		if err != nil {
			return err
		}

		id := args[0]
		if !deleteYes {
			prompt := promptui.Prompt{
				Label:     fmt.Sprintf("Delete app %s", shortID(id)),
				IsConfirm: true,
			}
			if _, err := prompt.Run(); err != nil {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := cl.DeleteApp(cmd.Context(), id); err != nil {
			// Deleting an already-gone app is a normal failure, surfaced
			// generically; the list stays consistent either way.
			return fmt.Errorf("could not delete app: %w", err)
		}
		fmt.Printf("Deleted %s\n", shortID(id))
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip confirmation")
	rootCmd.AddCommand(deleteCmd)
}
