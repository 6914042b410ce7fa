package service

import (
	"context"
	"fmt"

	"wortschatz/internal/models"
)

// Ledger is the write side of progress persistence used by quiz sessions.
// repository.ProgressRepository implements it.
type Ledger interface {
	RecordWordResult(ctx context.Context, userID int64, wordID string, correct bool) error
	RecordQuestionResult(ctx context.Context, userID int64, testID, questionID string, correct bool) error
	RecordTestResult(ctx context.Context, userID int64, testID string, score, total int) error
	RecordDailyAggregate(ctx context.Context, userID int64, delta models.DailyDelta) error
}

// PersistenceError reports a ledger write that failed. The session it belongs
// to has advanced regardless.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
