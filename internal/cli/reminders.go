package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"wortschatz/internal/repository"
	"wortschatz/internal/service"
)

// NewRemindersCommand creates the reminders command.
func NewRemindersCommand(rootOpts *RootOptions) *cobra.Command {
	var hour, minute int

	cmd := &cobra.Command{
		Use:          "reminders",
		Short:        "List users whose daily reminder is due",
		Long:         "List the users whose reminder fires at --hour:--minute, by default the current time.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if !cmd.Flags().Changed("hour") {
				hour = now.Hour()
			}
			if !cmd.Flags().Changed("minute") {
				minute = now.Minute()
			}
			if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid time %02d:%02d", hour, minute))
			}

			db, err := rootOpts.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			progress := service.NewProgressService(repository.NewProgressRepository(db), repository.NewUserRepository(db), nil)
			users, err := progress.DueReminders(cmd.Context(), hour, minute)
			if err != nil {
				return fmt.Errorf("load reminders: %w", err)
			}

			data := map[string]any{"time": fmt.Sprintf("%02d:%02d", hour, minute), "users": users}
			return rootOpts.output(cmd.OutOrStdout()).result(data, func(w io.Writer) {
				for _, id := range users {
					fmt.Fprintln(w, id)
				}
			})
		},
	}

	cmd.Flags().IntVar(&hour, "hour", 0, "hour (0-23)")
	cmd.Flags().IntVar(&minute, "minute", 0, "minute (0-59)")
	return cmd
}
