// Package quiz implements the per-user quiz state machine shared by
// vocabulary flashcards and grammar tests. It performs no I/O; callers
// persist the outcomes it reports.
package quiz

import (
	"time"

	"wortschatz/internal/models"
)

// Kind is the type of quiz a session plays.
type Kind string

const (
	KindVocabulary Kind = "vocabulary"
	KindGrammar    Kind = "grammar"
)

// Valid reports whether k is a known quiz kind.
func (k Kind) Valid() bool {
	return k == KindVocabulary || k == KindGrammar
}

// Phase is a session state.
type Phase int

const (
	PhaseSelectingScope Phase = iota
	PhaseActive
	PhaseDone
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseSelectingScope:
		return "selecting_scope"
	case PhaseActive:
		return "active"
	case PhaseDone:
		return "done"
	case PhaseCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseCancelled
}

// MarshalText renders the phase by name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Score is the running tally of a session.
type Score struct {
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
	Total   int `json:"total"`
}

// Answered returns the number of answers given so far.
func (s Score) Answered() int { return s.Correct + s.Wrong }

// Percentage is correct over answered, times 100; zero before any answer.
func (s Score) Percentage() float64 {
	if s.Answered() == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Answered()) * 100
}

// AnswerOutcome describes a graded answer.
type AnswerOutcome struct {
	ItemID        string `json:"item_id"`
	Correct       bool   `json:"correct"`
	Chosen        int    `json:"chosen"`
	CorrectOption int    `json:"correct_option"`
	CorrectText   string `json:"correct_text"`
	Explanation   string `json:"explanation,omitempty"`
	Score         Score  `json:"score"`
	// Done is set when this answer completed the sequence.
	Done bool `json:"done"`
}

// Mistake is a wrong answer kept for review.
type Mistake struct {
	Position      int    `json:"position"`
	ItemID        string `json:"item_id"`
	Prompt        string `json:"prompt"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

// Summary is the result of a finished session.
type Summary struct {
	Kind       Kind    `json:"kind"`
	Title      string  `json:"title"`
	Level      string  `json:"level"`
	Correct    int     `json:"correct"`
	Wrong      int     `json:"wrong"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Grade      Grade   `json:"grade,omitempty"`
	// Completed is false when the session was finished early.
	Completed bool `json:"completed"`
}

// Session is one learner's run through a sequence of items. It is not safe
// for concurrent use.
type Session struct {
	UserID  int64
	Kind    Kind
	Level   models.Level
	Scope   string
	Title   string
	Started time.Time

	phase    Phase
	source   Source
	index    int
	current  Item
	answered bool
	score    Score
	early    bool
	mistakes []Mistake
}

// New returns a session in PhaseSelectingScope. The level is fixed for the
// lifetime of the session.
func New(userID int64, kind Kind, level models.Level) *Session {
	return &Session{UserID: userID, Kind: kind, Level: level, Started: time.Now()}
}

// Begin sets the resolved item sequence. An empty sequence ends the session
// immediately with a zero-item summary.
func (s *Session) Begin(scope, title string, src Source) error {
	if s.phase != PhaseSelectingScope {
		return ErrAlreadyStarted
	}
	s.Scope, s.Title, s.source = scope, title, src
	s.score.Total = src.Len()

	if src.Len() == 0 {
		s.phase = PhaseDone
		return nil
	}
	s.phase = PhaseActive
	s.current = src.Item(0)
	return nil
}

// Phase returns the current state.
func (s *Session) Phase() Phase { return s.phase }

// Index is the position of the current item; it equals Len once every item
// has been answered.
func (s *Session) Index() int { return s.index }

// Len is the length of the item sequence.
func (s *Session) Len() int { return s.score.Total }

// Score returns the running tally.
func (s *Session) Score() Score { return s.score }

// Current returns the displayed item while the session is active.
func (s *Session) Current() (Item, bool) {
	if s.phase != PhaseActive {
		return Item{}, false
	}
	return s.current, true
}

// AwaitingAdvance reports whether the current item was answered and the
// next one has not been requested yet.
func (s *Session) AwaitingAdvance() bool {
	return s.phase == PhaseActive && s.answered
}

// Answer grades option against the current item. An out of range option is
// rejected without touching the session.
func (s *Session) Answer(option int) (AnswerOutcome, error) {
	if s.phase != PhaseActive {
		return AnswerOutcome{}, ErrSessionNotActive
	}
	if s.answered {
		return AnswerOutcome{}, ErrAlreadyAnswered
	}
	if option < 0 || option >= len(s.current.Options) {
		return AnswerOutcome{}, &InvalidOptionError{Option: option, Options: len(s.current.Options)}
	}

	it := s.current
	correctIdx := it.CorrectIndex()
	correct := it.Options[option].Correct

	if correct {
		s.score.Correct++
	} else {
		s.score.Wrong++
		m := Mistake{
			Position:    s.index,
			ItemID:      it.ID,
			Prompt:      it.Prompt,
			UserAnswer:  it.Options[option].Text,
			Explanation: it.Explanation,
		}
		if correctIdx >= 0 {
			m.CorrectAnswer = it.Options[correctIdx].Text
		}
		s.mistakes = append(s.mistakes, m)
	}
	s.answered = true
	s.index++

	out := AnswerOutcome{
		ItemID:        it.ID,
		Correct:       correct,
		Chosen:        option,
		CorrectOption: correctIdx,
		Explanation:   it.Explanation,
		Score:         s.score,
	}
	if correctIdx >= 0 {
		out.CorrectText = it.Options[correctIdx].Text
	}
	if s.index == s.score.Total {
		s.phase = PhaseDone
		out.Done = true
	}
	return out, nil
}

// Advance moves past an answered item. It returns the next item while items
// remain, and ok=false once the session is done.
func (s *Session) Advance() (next Item, ok bool, err error) {
	switch s.phase {
	case PhaseDone:
		return Item{}, false, nil
	case PhaseActive:
	default:
		return Item{}, false, ErrSessionNotActive
	}
	if !s.answered {
		return Item{}, false, ErrAwaitingAnswer
	}
	s.current = s.source.Item(s.index)
	s.answered = false
	return s.current, true, nil
}

// Finish ends an active session before the last item. Finishing a done
// session is a no-op.
func (s *Session) Finish() error {
	switch s.phase {
	case PhaseDone:
		return nil
	case PhaseActive:
		s.phase = PhaseDone
		s.early = s.index < s.score.Total
		return nil
	}
	return ErrSessionNotActive
}

// Cancel abandons the session. It reports whether the session was live.
func (s *Session) Cancel() bool {
	if s.phase.Terminal() {
		return false
	}
	s.phase = PhaseCancelled
	return true
}

// Mistakes lists the wrong answers given so far in answer order.
func (s *Session) Mistakes() []Mistake {
	out := make([]Mistake, len(s.mistakes))
	copy(out, s.mistakes)
	return out
}

// Summary describes the session's result. It is meaningful once the session
// is done but may be called at any time.
func (s *Session) Summary() Summary {
	sum := Summary{
		Kind:       s.Kind,
		Title:      s.Title,
		Level:      s.Level.Key(),
		Correct:    s.score.Correct,
		Wrong:      s.score.Wrong,
		Total:      s.score.Total,
		Percentage: s.score.Percentage(),
		Completed:  s.phase == PhaseDone && !s.early,
	}
	if s.Kind == KindGrammar {
		sum.Grade = GradeFor(sum.Percentage)
	}
	return sum
}

// Grade is the verbal rating of a grammar result.
type Grade string

const (
	GradeExcellent    Grade = "excellent"
	GradeGood         Grade = "good"
	GradeSatisfactory Grade = "satisfactory"
	GradeNeedsReview  Grade = "needs_review"
)

// GradeFor rates a percentage.
func GradeFor(percentage float64) Grade {
	switch {
	case percentage >= 90:
		return GradeExcellent
	case percentage >= 70:
		return GradeGood
	case percentage >= 50:
		return GradeSatisfactory
	}
	return GradeNeedsReview
}
