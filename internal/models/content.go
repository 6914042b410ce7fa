package models

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ContentKind names one of the per-level content collections.
type ContentKind string

const (
	KindVocabulary ContentKind = "vocabulary"
	KindGrammar    ContentKind = "grammar"
	KindPhrases    ContentKind = "phrases"
	KindDialogues  ContentKind = "dialogues"
)

// ErrMissingID is returned by Validate for documents without an id.
var ErrMissingID = errors.New("document has no id")

// VocabularyEntry is a single word as authored inside a category document.
type VocabularyEntry struct {
	ID                 string `json:"id,omitempty" yaml:"id,omitempty"`
	Term               string `json:"de" yaml:"de"`
	Translation        string `json:"ru" yaml:"ru"`
	Example            string `json:"example,omitempty" yaml:"example,omitempty"`
	ExampleTranslation string `json:"example_ru,omitempty" yaml:"example_ru,omitempty"`
}

// Category is a vocabulary document: a themed group of words.
type Category struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	NameDE      string            `json:"name_de,omitempty" yaml:"name_de,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Words       []VocabularyEntry `json:"words" yaml:"words"`
	Distractors []string          `json:"distractors,omitempty" yaml:"distractors,omitempty"`
}

func (c *Category) DocumentID() string { return c.ID }

// Validate rejects categories without an id or with entries missing a term or translation.
func (c *Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrMissingID
	}
	for i, w := range c.Words {
		if strings.TrimSpace(w.Term) == "" || strings.TrimSpace(w.Translation) == "" {
			return fmt.Errorf("word %d: term and translation are required", i)
		}
	}
	return nil
}

// CategorySummary is the listing form of a category.
type CategorySummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	NameDE      string `json:"name_de"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// Word is a vocabulary entry flattened with its category and level.
type Word struct {
	ID                 string `json:"word_id"`
	Level              string `json:"level"`
	Term               string `json:"de"`
	Translation        string `json:"ru"`
	Example            string `json:"example"`
	ExampleTranslation string `json:"example_ru"`
	CategoryID         string `json:"category_id"`
	CategoryName       string `json:"category_name"`
}

// WordID derives the ledger identifier of a word. The term is trimmed and
// NFC-normalised so that visually identical terms map to the same id.
func WordID(lvl Level, categoryID, term string) string {
	return lvl.Key() + "_" + categoryID + "_" + norm.NFC.String(strings.TrimSpace(term))
}

// Question is a single multiple-choice grammar question.
type Question struct {
	Question    string   `json:"question" yaml:"question"`
	Options     []string `json:"options" yaml:"options"`
	Correct     int      `json:"correct" yaml:"correct"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// Validate checks that the question has options and a correct index inside them.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return errors.New("question text is required")
	}
	if len(q.Options) == 0 {
		return errors.New("question has no options")
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return fmt.Errorf("correct index %d out of range [0,%d)", q.Correct, len(q.Options))
	}
	return nil
}

// GrammarTest is a grammar document.
type GrammarTest struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	NameDE      string         `json:"name_de,omitempty" yaml:"name_de,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Theory      map[string]any `json:"theory,omitempty" yaml:"theory,omitempty"`
	Questions   []Question     `json:"questions" yaml:"questions"`
}

func (t *GrammarTest) DocumentID() string { return t.ID }

func (t *GrammarTest) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrMissingID
	}
	for i, q := range t.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

// TestSummary is the listing form of a grammar test.
type TestSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	NameDE         string `json:"name_de"`
	Description    string `json:"description"`
	QuestionsCount int    `json:"questions_count"`
}

// PhraseEntry is a phrase as authored inside a phrase category.
type PhraseEntry struct {
	Term               string `json:"de" yaml:"de"`
	Translation        string `json:"ru" yaml:"ru"`
	Context            string `json:"context,omitempty" yaml:"context,omitempty"`
	Example            string `json:"example,omitempty" yaml:"example,omitempty"`
	ExampleTranslation string `json:"example_ru,omitempty" yaml:"example_ru,omitempty"`
}

// PhraseCategory is a phrases document.
type PhraseCategory struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	NameDE      string        `json:"name_de,omitempty" yaml:"name_de,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Phrases     []PhraseEntry `json:"phrases" yaml:"phrases"`
}

func (c *PhraseCategory) DocumentID() string { return c.ID }

func (c *PhraseCategory) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrMissingID
	}
	for i, p := range c.Phrases {
		if strings.TrimSpace(p.Term) == "" {
			return fmt.Errorf("phrase %d: term is required", i)
		}
	}
	return nil
}

// Phrase is a phrase flattened with its category.
type Phrase struct {
	ID                 string `json:"phrase_id"`
	Term               string `json:"de"`
	Translation        string `json:"ru"`
	Context            string `json:"context"`
	Example            string `json:"example"`
	ExampleTranslation string `json:"example_ru"`
	CategoryID         string `json:"category_id"`
	CategoryName       string `json:"category_name"`
}

// DialogueTurn is one line of a dialogue.
type DialogueTurn struct {
	Speaker     string `json:"speaker" yaml:"speaker"`
	Text        string `json:"de" yaml:"de"`
	Translation string `json:"ru,omitempty" yaml:"ru,omitempty"`
}

// Exercise is a comprehension question attached to a dialogue.
type Exercise struct {
	Question    string   `json:"question" yaml:"question"`
	Options     []string `json:"options,omitempty" yaml:"options,omitempty"`
	Correct     int      `json:"correct" yaml:"correct"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// Dialogue is a dialogues document.
type Dialogue struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	NameDE      string         `json:"name_de,omitempty" yaml:"name_de,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Turns       []DialogueTurn `json:"dialogue" yaml:"dialogue"`
	Exercises   []Exercise     `json:"exercises,omitempty" yaml:"exercises,omitempty"`
}

func (d *Dialogue) DocumentID() string { return d.ID }

func (d *Dialogue) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrMissingID
	}
	for i, ex := range d.Exercises {
		if len(ex.Options) > 0 && (ex.Correct < 0 || ex.Correct >= len(ex.Options)) {
			return fmt.Errorf("exercise %d: correct index %d out of range", i, ex.Correct)
		}
	}
	return nil
}

// DialogueSummary is the listing form of a dialogue.
type DialogueSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	NameDE         string `json:"name_de"`
	Description    string `json:"description"`
	DialogueLength int    `json:"dialogue_length"`
}

// CountByID pairs a document id with the size of its collection.
type CountByID struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// VocabularyStats summarises the vocabulary of a level.
type VocabularyStats struct {
	TotalCategories int         `json:"total_categories"`
	TotalWords      int         `json:"total_words"`
	Categories      []CountByID `json:"categories"`
}

// GrammarStats summarises the grammar tests of a level.
type GrammarStats struct {
	TotalTopics    int         `json:"total_topics"`
	TotalQuestions int         `json:"total_questions"`
	Topics         []CountByID `json:"topics"`
}
