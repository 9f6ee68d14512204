package cmd

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/stagebox/stagebox/internal/explorer"
	"github.com/stagebox/stagebox/internal/tree"
)

var exploreCmd = &cobra.Command{
	Use:   "explore <app-id>",
	Short: "Interactively browse an app's file tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := apiClient()
		if err != nil {
			return err
		}

		sess, err := explorer.NewSession(cmd.Context(), cl, args[0])
		if err != nil {
			return fmt.Errorf("starting session: %w", err)
		}

		loaded := make(chan struct{}, 1)
		sess.OnChange = func() {
			select {
			case loaded <- struct{}{}:
			default:
			}
		}

		app := sess.App()
		fmt.Printf("%s — %d files, entry %s\n", app.Name, app.FileCount, app.EntryFile)

		for {
			labels, nodes := visibleRows(sess)
			items := append([]string{"[open preview]", "[reload preview]", "[quit]"}, labels...)

			prompt := promptui.Select{
				Label: "Explore",
				Items: items,
				Size:  20,
			}
			idx, _, err := prompt.Run()
			if err != nil {
				return nil // interrupted
			}

			switch idx {
			case 0:
				if err := sess.Surface().OpenExternal(); err != nil {
					fmt.Printf("Could not open browser: %v\n", err)
				}
			case 1:
				gen := sess.Surface().Refresh()
				fmt.Printf("Preview remounted (instance %d)\n", gen)
			case 2:
				return nil
			default:
				node := nodes[idx-3]
				if node.IsDir() {
					sess.Toggle(node.Path)
					continue
				}
				if err := sess.Select(cmd.Context(), node); err != nil {
					continue
				}
				<-loaded
				showContent(sess, node.Path)
			}
		}
	},
}

// visibleRows flattens the tree in depth-first order, honoring the
// session's expansion overlay. The root itself is not a row.
func visibleRows(sess *explorer.Session) ([]string, []*tree.FileNode) {
	var labels []string
	var nodes []*tree.FileNode

	var emit func(n *tree.FileNode, depth int)
	emit = func(n *tree.FileNode, depth int) {
		for _, c := range n.Children {
			marker := "  "
			if c.IsDir() {
				marker = "+ "
				if sess.IsExpanded(c.Path) {
					marker = "- "
				}
			}
			labels = append(labels, strings.Repeat("  ", depth)+marker+c.Name)
			nodes = append(nodes, c)
			if c.IsDir() && sess.IsExpanded(c.Path) {
				emit(c, depth+1)
			}
		}
	}
	emit(sess.Tree(), 0)
	return labels, nodes
}

func showContent(sess *explorer.Session, path string) {
	content, loading := sess.Content()
	if loading || content == nil {
		return
	}
	fmt.Printf("\n── %s ──\n", path)
	switch content.Kind {
	case explorer.ContentText:
		if err := highlight(path, content.Payload); err != nil {
			fmt.Print(content.Payload)
		}
	default:
		fmt.Println(content.Message)
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(exploreCmd)
}
