package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"wortschatz/internal/content"
	"wortschatz/internal/models"
	"wortschatz/internal/repository"
	"wortschatz/internal/service"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var userID int64
	var levelKey string

	cmd := &cobra.Command{
		Use:          "stats",
		Short:        "Show the progress of a user",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == 0 {
				return NewExitError(ExitCommandError, "--user is required")
			}
			ctx := cmd.Context()
			if levelKey != "" {
				lvl, err := models.ParseLevel(levelKey)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --level", err)
				}
				ctx = content.WithLevel(ctx, lvl)
			}

			db, err := rootOpts.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			resolver := content.NewResolver(rootOpts.store(), rootOpts.currentLevel(ctx, db))
			progress := service.NewProgressService(repository.NewProgressRepository(db), repository.NewUserRepository(db), resolver)

			overview, err := progress.Overview(ctx, userID)
			if err != nil {
				return fmt.Errorf("load progress: %w", err)
			}
			days, err := progress.RecentDays(ctx, userID, 7)
			if err != nil {
				return fmt.Errorf("load daily stats: %w", err)
			}

			data := map[string]any{"overview": overview, "days": days}
			return rootOpts.output(cmd.OutOrStdout()).result(data, func(w io.Writer) {
				fmt.Fprintf(w, "user %d, level %s\n", userID, overview.Level)
				fmt.Fprintf(w, "  words practised: %d of %d (%.1f%%), mastered %d\n",
					overview.TotalWords, overview.LevelWords, overview.WordsPercentage, overview.MasteredWords)
				fmt.Fprintf(w, "  answers: %d correct, %d wrong (accuracy %.1f%%)\n",
					overview.TotalCorrect, overview.TotalWrong, overview.Accuracy)
				fmt.Fprintf(w, "  grammar tests: %d, score %d/%d\n",
					overview.TestsCompleted, overview.GrammarScore, overview.GrammarTotal)
				for _, d := range days {
					fmt.Fprintf(w, "  %s  words %d  tests %d  %d/%d correct\n",
						d.Date, d.WordsLearned, d.TestsCompleted, d.CorrectAnswers, d.TotalAnswers)
				}
			})
		},
	}

	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "Telegram user id")
	cmd.Flags().StringVarP(&levelKey, "level", "l", "", "level the percentages refer to (default the saved or $DEFAULT_LEVEL)")
	return cmd
}
