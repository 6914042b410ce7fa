package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wortschatz/internal/models"
)

func TestVocabularyOptions(t *testing.T) {
	tests := []struct {
		name string
		pool int
		want int
	}{
		{"single word", 1, 1},
		{"two words", 2, 2},
		{"three words", 3, 3},
		{"four words", 4, 4},
		{"large pool", 40, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words := familyWords(tt.pool)
			src := NewVocabularySource(words, words)
			for i := 0; i < src.Len(); i++ {
				it := src.Item(i)
				require.Len(t, it.Options, tt.want)

				correct := 0
				for _, o := range it.Options {
					if o.Correct {
						correct++
					}
				}
				assert.Equal(t, 1, correct, "exactly one option is correct")

				var word models.Word
				for _, w := range words {
					if w.ID == it.ID {
						word = w
					}
				}
				assert.Equal(t, word.Translation, it.Options[it.CorrectIndex()].Text)
				assert.Equal(t, word.Term, it.Prompt)
			}
		})
	}
}

func TestCorrectOptionPositionVaries(t *testing.T) {
	words := familyWords(10)
	src := NewVocabularySource(words[:1], words)

	positions := map[int]bool{}
	for i := 0; i < 200; i++ {
		positions[src.Item(0).CorrectIndex()] = true
	}
	assert.Greater(t, len(positions), 1, "correct answer position must not be fixed")
}

func TestDistractors(t *testing.T) {
	pool := familyWords(6)
	target := pool[0]
	// same translation as the target: never offered
	pool = append(pool, models.Word{ID: "syn", Term: "Synonym", Translation: target.Translation})

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ds := Distractors(target, pool, 3)
		require.Len(t, ds, 3)
		ids := map[string]bool{}
		for _, d := range ds {
			assert.NotEqual(t, target.ID, d.ID)
			assert.NotEqual(t, "syn", d.ID)
			assert.False(t, ids[d.ID], "sampled without replacement")
			ids[d.ID] = true
			seen[d.ID] = true
		}
	}
	assert.Len(t, seen, 5, "every other word is eventually drawn")

	assert.Empty(t, Distractors(target, []models.Word{target}, 3))
	assert.Len(t, Distractors(target, pool[:3], 3), 2)
}

func TestVocabularySourceDoesNotMutateInput(t *testing.T) {
	words := familyWords(20)
	orig := append([]models.Word(nil), words...)
	NewVocabularySource(words, words)
	assert.Equal(t, orig, words)
}

func TestGrammarSourceKeepsOptionOrder(t *testing.T) {
	qs := articlesTest(12)
	src := NewGrammarSource("articles", qs)
	require.Equal(t, 12, src.Len())

	seen := map[string]bool{}
	for i := 0; i < src.Len(); i++ {
		it := src.Item(i)
		assert.False(t, seen[it.ID])
		seen[it.ID] = true

		texts := make([]string, len(it.Options))
		for k, o := range it.Options {
			texts[k] = o.Text
		}
		assert.Equal(t, []string{"der", "die", "das"}, texts)
	}

	// the order is fixed per session
	first := make([]string, src.Len())
	for i := range first {
		first[i] = src.Item(i).ID
	}
	for i := range first {
		assert.Equal(t, first[i], src.Item(i).ID)
	}
}

func TestGrammarCorrectIndexFromContent(t *testing.T) {
	qs := []models.Question{{Question: "___ Kind", Options: []string{"der", "die", "das"}, Correct: 2}}
	it := NewGrammarSource("articles", qs).Item(0)
	assert.Equal(t, "articles#0", it.ID)
	assert.Equal(t, 2, it.CorrectIndex())
}
