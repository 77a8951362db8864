package comment

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/numtide/rabbit/editor"
	"github.com/spf13/cobra"
)

const DefaultPrefix = "// "

// NewCommand creates the comment command, which prefixes a range of lines in a document.
func NewCommand() *cobra.Command {
	var (
		start, end int
		prefix     string
		useNvim    bool
		nvimAddr   string
		verbose    int
	)

	cmd := &cobra.Command{
		Use:   "comment <path>",
		Short: "Comment out a range of lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			log.SetOutput(os.Stderr)
			log.SetReportTimestamp(false)

			if verbose > 0 {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.WarnLevel)
			}

			var doc editor.Document = editor.NewFile(args[0])

			if useNvim {
				client, err := editor.DialNvim(nvimAddr)
				if err != nil {
					return err //nolint:wrapcheck
				}

				defer client.Close()

				if doc, err = editor.NewNvim(client, args[0]); err != nil {
					return err //nolint:wrapcheck
				}
			}

			log.Debugf("commenting lines %d-%d of %s", start, end, doc.Path())

			if err := editor.Comment(cmd.Context(), doc, start, end, prefix); err != nil {
				return fmt.Errorf("failed to comment %s: %w", args[0], err)
			}

			return nil
		},
	}

	fs := cmd.Flags()
	fs.IntVarP(&start, "start", "s", 1, "First line to comment, counting from 1.")
	fs.IntVarP(&end, "end", "e", 1, "Last line to comment, inclusive.")
	fs.StringVarP(&prefix, "prefix", "p", DefaultPrefix, "Text inserted at the start of each line.")
	fs.BoolVar(&useNvim, "nvim", false, "Edit the buffer for path in a running Neovim instance instead of the file.")
	fs.StringVar(
		&nvimAddr, "nvim-addr", "",
		"Address of the Neovim instance, defaults to $NVIM_LISTEN_ADDRESS or $NVIM.",
	)
	fs.CountVarP(&verbose, "verbose", "v", "Log the lines being commented.")

	return cmd
}
