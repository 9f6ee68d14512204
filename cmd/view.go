package cmd

import (
	"fmt"
	"os"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/spf13/cobra"
)

var viewPlain bool

var viewCmd = &cobra.Command{
	Use:   "view <app-id> <path>",
	Short: "Print a file from an uploaded app",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := apiClient()
		if err != nil {
			return err
		}

		fc, err := cl.Content(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if fc.Type != "text" || fc.Content == nil {
			msg := fc.Message
			if msg == "" {
				msg = "Binary file - cannot display"
			}
			fmt.Fprintln(os.Stderr, msg)
			return nil
		}

		if viewPlain {
			fmt.Print(*fc.Content)
			return nil
		}
		return highlight(args[1], *fc.Content)
	},
}

// highlight writes syntax-colored source to stdout, falling back to the
// plaintext lexer for unknown extensions.
func highlight(filename, content string) error {
	lexer := lexers.Match(filename)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return err
	}
	style := styles.Get("monokai")
	formatter := formatters.Get("terminal256")
	return formatter.Format(os.Stdout, style, iterator)
}

func init() {
	viewCmd.Flags().BoolVar(&viewPlain, "plain", false, "disable syntax highlighting")
	rootCmd.AddCommand(viewCmd)
}
