package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"wortschatz/internal/content"
)

// NewLevelsCommand creates the levels command.
func NewLevelsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "levels",
		Short:        "List levels and whether they have content",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := content.NewResolver(rootOpts.store(), rootOpts.cfg.DefaultLevel)
			levels := resolver.AvailableLevels()

			return rootOpts.output(cmd.OutOrStdout()).result(levels, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "LEVEL\tNAME\tCONTENT\t")
				for _, l := range levels {
					mark := ""
					if l.IsCurrent {
						mark = " *"
					}
					fmt.Fprintf(tw, "%s%s\t%s\t%t\t\n", l.Key, mark, l.DisplayName, l.HasContent)
				}
				tw.Flush()
			})
		},
	}
}
