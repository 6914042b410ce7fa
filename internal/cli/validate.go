package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"wortschatz/internal/content"
	"wortschatz/internal/models"
)

// LevelReport is the validation result of one level.
type LevelReport struct {
	Level    string            `json:"level"`
	Problems []content.Problem `json:"problems"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var levelKey string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check content documents without starting the bot",
		Long: `Load every content document of every level (or of --level) and report
the documents that would be skipped: malformed files, entries missing a term
or translation, questions with an out-of-range answer, and duplicate ids.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			levels := models.AllLevels()
			if levelKey != "" {
				lvl, err := models.ParseLevel(levelKey)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --level", err)
				}
				levels = []models.Level{lvl}
			}
			return runValidate(rootOpts, cmd, levels)
		},
	}

	cmd.Flags().StringVarP(&levelKey, "level", "l", "", "validate a single level, e.g. B1.2")
	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command, levels []models.Level) error {
	store := opts.store()
	out := opts.output(cmd.OutOrStdout())

	var reports []LevelReport
	total := 0
	for _, lvl := range levels {
		problems, err := store.Validate(cmd.Context(), lvl)
		if err != nil {
			return WrapExitError(ExitCommandError, "read content of "+lvl.Key(), err)
		}
		if len(problems) == 0 {
			continue
		}
		reports = append(reports, LevelReport{Level: lvl.Key(), Problems: problems})
		total += len(problems)
	}

	text := func(w io.Writer) {
		for _, r := range reports {
			fmt.Fprintf(w, "%s:\n", r.Level)
			for _, p := range r.Problems {
				fmt.Fprintf(w, "  %s\n", p)
			}
		}
		if total == 0 {
			fmt.Fprintf(w, "content OK (%d levels checked)\n", len(levels))
		}
	}

	if total > 0 {
		return out.failure(reports, NewExitError(ExitFailure, fmt.Sprintf("%d content problems found", total)), text)
	}
	return out.result(reports, text)
}
