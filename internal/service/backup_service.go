package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"wortschatz/internal/database"
	"wortschatz/internal/repository"
)

// BackupVersion is written into every export.
const BackupVersion = "1.0"

// BackupData is the file format of a ledger backup
type BackupData struct {
	Version      string    `json:"version"`
	ExportedAt   time.Time `json:"exported_at"`
	DatabaseType string    `json:"database_type"`
	repository.LedgerDump
}

// BackupService handles ledger backup and restore operations
type BackupService struct {
	repo *repository.BackupRepository
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{repo: repository.NewBackupRepository(db)}
}

// Export writes a complete backup of the ledger to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	slog.Info("starting ledger export", "path", outputPath)

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	backup, err := s.ExportToWriter(ctx, file)
	if err != nil {
		return err
	}

	slog.Info("ledger exported",
		"path", outputPath,
		"users", len(backup.Users),
		"progress", len(backup.Progress),
		"grammar_results", len(backup.GrammarResults),
		"question_attempts", len(backup.QuestionAttempts),
		"daily_stats", len(backup.DailyStats))
	return file.Close()
}

// ExportToWriter encodes a backup to w (useful for HTTP responses)
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) (*BackupData, error) {
	dump, err := s.repo.Dump(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export ledger: %w", err)
	}
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: "universal",
		LedgerDump:   *dump,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return backup, nil
}

// Import restores the ledger from a backup file. With clear set the existing
// rows are replaced; otherwise the backup is merged into them.
func (s *BackupService) Import(ctx context.Context, inputPath string, clear bool) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file, clear)
}

// ImportFromReader restores the ledger from a backup reader
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader, clear bool) error {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	slog.Info("starting ledger import",
		"version", backup.Version,
		"exported_at", backup.ExportedAt,
		"clear", clear,
		"users", len(backup.Users),
		"progress", len(backup.Progress))

	if err := s.repo.Restore(ctx, &backup.LedgerDump, clear); err != nil {
		return fmt.Errorf("failed to import ledger: %w", err)
	}

	slog.Info("ledger import completed")
	return nil
}
