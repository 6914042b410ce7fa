package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wortschatz/internal/service"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:          "export",
		Short:        "Export the progress ledger to a JSON file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Generate default filename if not provided
			if outputPath == "" {
				outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return WrapExitError(ExitCommandError, "create output directory", err)
				}
			}

			db, err := rootOpts.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := service.NewBackupService(db).Export(cmd.Context(), outputPath); err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			info, err := os.Stat(outputPath)
			if err != nil {
				return err
			}
			data := map[string]any{"file": outputPath, "bytes": info.Size()}
			return rootOpts.output(cmd.OutOrStdout()).result(data, func(w io.Writer) {
				fmt.Fprintf(w, "exported to %s (%.2f KB)\n", outputPath, float64(info.Size())/1024)
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var inputPath string
	var clearData, yes bool

	cmd := &cobra.Command{
		Use:          "import",
		Short:        "Import a ledger backup",
		Long:         "Import a backup written by export. Rows are merged into the ledger unless --clear is given.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return NewExitError(ExitCommandError, "--input is required")
			}
			if _, err := os.Stat(inputPath); err != nil {
				return WrapExitError(ExitCommandError, "input file", err)
			}

			if clearData && !yes {
				fmt.Fprint(cmd.ErrOrStderr(), "WARNING: This will delete all existing progress. Type 'yes' to confirm: ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.TrimSpace(answer) != "yes" {
					return NewExitError(ExitFailure, "import cancelled")
				}
			}

			db, err := rootOpts.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := service.NewBackupService(db).Import(cmd.Context(), inputPath, clearData); err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			data := map[string]any{"file": inputPath, "cleared": clearData}
			return rootOpts.output(cmd.OutOrStdout()).result(data, func(w io.Writer) {
				fmt.Fprintf(w, "imported %s\n", inputPath)
			})
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "backup file to import (required)")
	cmd.Flags().BoolVar(&clearData, "clear", false, "delete existing progress before import (destructive)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
