package quiz

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"wortschatz/internal/models"
)

// MaxDistractors is the number of wrong options shown with a vocabulary item
// when the word pool is large enough.
const MaxDistractors = 3

// Option is one answer choice of an item.
type Option struct {
	Text    string `json:"text"`
	Correct bool   `json:"-"`
}

// Item is one question as shown to the learner.
type Item struct {
	// ID is the ledger key of the item: a word id, or "{test}#{n}" for the
	// n-th authored question of a grammar test.
	ID                 string   `json:"id"`
	Prompt             string   `json:"prompt"`
	Options            []Option `json:"options"`
	Explanation        string   `json:"explanation,omitempty"`
	Example            string   `json:"example,omitempty"`
	ExampleTranslation string   `json:"example_ru,omitempty"`
}

// CorrectIndex returns the position of the correct option, or -1.
func (it Item) CorrectIndex() int {
	return slices.IndexFunc(it.Options, func(o Option) bool { return o.Correct })
}

// Source produces the items of a session in play order. Item may return a
// different rendering on every call; a session calls it once per position.
type Source interface {
	Len() int
	Item(i int) Item
}

// VocabularySource asks for the translation of each word. Distractors are
// drawn from pool, which is normally every word of the session's level.
type VocabularySource struct {
	words []models.Word
	pool  []models.Word
}

// NewVocabularySource shuffles words into play order.
func NewVocabularySource(words, pool []models.Word) *VocabularySource {
	words = slices.Clone(words)
	rand.Shuffle(len(words), func(i, j int) { words[i], words[j] = words[j], words[i] })
	return &VocabularySource{words: words, pool: pool}
}

func (s *VocabularySource) Len() int { return len(s.words) }

func (s *VocabularySource) Item(i int) Item {
	w := s.words[i]

	options := []Option{{Text: w.Translation, Correct: true}}
	for _, d := range Distractors(w, s.pool, MaxDistractors) {
		options = append(options, Option{Text: d.Translation})
	}
	rand.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	return Item{
		ID:                 w.ID,
		Prompt:             w.Term,
		Options:            options,
		Example:            w.Example,
		ExampleTranslation: w.ExampleTranslation,
	}
}

// Distractors samples up to n words from pool without replacement. The
// target itself and words sharing its translation are never chosen, so the
// correct answer stays unambiguous.
func Distractors(target models.Word, pool []models.Word, n int) []models.Word {
	candidates := make([]models.Word, 0, len(pool))
	seen := map[string]bool{target.Translation: true}
	for _, w := range pool {
		if w.ID == target.ID || seen[w.Translation] {
			continue
		}
		seen[w.Translation] = true
		candidates = append(candidates, w)
	}

	// partial Fisher-Yates
	n = min(n, len(candidates))
	for i := 0; i < n; i++ {
		j := i + rand.IntN(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	return candidates[:n]
}

// GrammarSource plays the questions of one test. Question order is shuffled
// once; options keep their authored order.
type GrammarSource struct {
	testID    string
	questions []models.Question
	order     []int
}

// NewGrammarSource shuffles the question order of a test.
func NewGrammarSource(testID string, questions []models.Question) *GrammarSource {
	order := make([]int, len(questions))
	for i := range order {
		order[i] = i
	}
	rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return &GrammarSource{testID: testID, questions: questions, order: order}
}

func (s *GrammarSource) Len() int { return len(s.order) }

func (s *GrammarSource) Item(i int) Item {
	n := s.order[i]
	q := s.questions[n]

	options := make([]Option, len(q.Options))
	for k, text := range q.Options {
		options[k] = Option{Text: text, Correct: k == q.Correct}
	}
	return Item{
		ID:          fmt.Sprintf("%s#%d", s.testID, n),
		Prompt:      q.Question,
		Options:     options,
		Explanation: q.Explanation,
	}
}
