package models

import "time"

// User is a learner known to the ledger, keyed by Telegram user id.
type User struct {
	ID              int64     `json:"user_id"`
	Username        string    `json:"username"`
	FirstName       string    `json:"first_name"`
	CreatedAt       time.Time `json:"created_at"`
	ReminderEnabled bool      `json:"reminder_enabled"`
	ReminderHour    int       `json:"reminder_hour"`
	ReminderMinute  int       `json:"reminder_minute"`
}

// WordProgress holds the per-user counters of one word.
type WordProgress struct {
	UserID       int64      `json:"user_id"`
	WordID       string     `json:"word_id"`
	CorrectCount int        `json:"correct_count"`
	WrongCount   int        `json:"wrong_count"`
	LastReviewed *time.Time `json:"last_reviewed,omitempty"`
}

// Mastered reports whether the word counts as mastered.
func (p WordProgress) Mastered() bool {
	return p.CorrectCount >= 3 && p.WrongCount == 0
}

// WordStatus joins a word with the user's counters for it.
type WordStatus struct {
	Word     Word         `json:"word"`
	Progress WordProgress `json:"progress"`
	Mastered bool         `json:"mastered"`
}

// GrammarResult is a completed grammar test.
type GrammarResult struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	TestID      string    `json:"test_id"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	CompletedAt time.Time `json:"completed_at"`
}

// QuestionAttempt is a single answered grammar question.
type QuestionAttempt struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	TestID     string    `json:"test_id"`
	QuestionID string    `json:"question_id"`
	IsCorrect  bool      `json:"is_correct"`
	AnsweredAt time.Time `json:"answered_at"`
}

// DailyDelta is added to a user's aggregate row for one calendar day.
type DailyDelta struct {
	Words   int
	Tests   int
	Correct int
	Total   int
}

// DailyStats is one row of per-day aggregates.
type DailyStats struct {
	UserID         int64  `json:"user_id"`
	Date           string `json:"date"`
	WordsLearned   int    `json:"words_learned"`
	TestsCompleted int    `json:"tests_completed"`
	CorrectAnswers int    `json:"correct_answers"`
	TotalAnswers   int    `json:"total_answers"`
}

// UserStats is the summary returned by the ledger.
type UserStats struct {
	TotalWords     int `json:"total_words"`
	TotalCorrect   int `json:"total_correct"`
	TotalWrong     int `json:"total_wrong"`
	TestsCompleted int `json:"tests_completed"`
	GrammarScore   int `json:"grammar_score"`
	GrammarTotal   int `json:"grammar_total"`
	MasteredWords  int `json:"mastered_words"`
}

// ProgressOverview adds level-relative percentages to UserStats.
type ProgressOverview struct {
	UserStats
	Level           string  `json:"level"`
	LevelWords      int     `json:"level_words"`
	WordsPercentage float64 `json:"words_percentage"`
	Accuracy        float64 `json:"accuracy"`
}
