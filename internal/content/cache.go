package content

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"wortschatz/internal/models"
)

// lazy holds a value built on first successful use. Failed builds are not
// remembered, so a later call retries.
type lazy[T any] struct {
	mu   sync.Mutex
	done bool
	val  T
}

func (l *lazy[T]) get(build func() (T, error)) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return l.val, nil
	}
	v, err := build()
	if err != nil {
		var zero T
		return zero, err
	}
	l.val, l.done = v, true
	return v, nil
}

// snapshot is the loaded content of one level. Sets are immutable once built.
type snapshot struct {
	level models.Level

	vocabLoad    lazy[*vocabSet]
	grammarLoad  lazy[*grammarSet]
	phraseLoad   lazy[*phraseSet]
	dialogueLoad lazy[*dialogueSet]
}

type vocabSet struct {
	categories []models.Category
	index      map[string]int
	words      []models.Word
	byCategory map[string][]models.Word
	byID       map[string]models.Word
}

type grammarSet struct {
	tests []models.GrammarTest
	index map[string]int
}

type phraseSet struct {
	categories []models.PhraseCategory
	byCategory map[string][]models.Phrase
}

type dialogueSet struct {
	dialogues []models.Dialogue
	index     map[string]int
}

func (s *snapshot) vocabulary(ctx context.Context, store Store) (*vocabSet, error) {
	return s.vocabLoad.get(func() (*vocabSet, error) {
		cats, err := store.Vocabulary(ctx, s.level)
		if err != nil {
			return nil, err
		}
		return buildVocabSet(s.level, cats), nil
	})
}

func (s *snapshot) grammar(ctx context.Context, store Store) (*grammarSet, error) {
	return s.grammarLoad.get(func() (*grammarSet, error) {
		tests, err := store.Grammar(ctx, s.level)
		if err != nil {
			return nil, err
		}
		set := &grammarSet{tests: tests, index: make(map[string]int, len(tests))}
		for i, t := range tests {
			set.index[t.ID] = i
		}
		return set, nil
	})
}

func (s *snapshot) phrases(ctx context.Context, store Store) (*phraseSet, error) {
	return s.phraseLoad.get(func() (*phraseSet, error) {
		cats, err := store.Phrases(ctx, s.level)
		if err != nil {
			return nil, err
		}
		set := &phraseSet{categories: cats, byCategory: make(map[string][]models.Phrase, len(cats))}
		seen := make(map[string]bool)
		for _, c := range cats {
			phrases := make([]models.Phrase, 0, len(c.Phrases))
			for _, p := range c.Phrases {
				id := models.WordID(s.level, c.ID, p.Term)
				if seen[id] {
					slog.Warn("skipping duplicate phrase", "level", s.level.Key(), "category", c.ID, "phrase_id", id)
					continue
				}
				seen[id] = true
				phrases = append(phrases, models.Phrase{
					ID:                 id,
					Term:               p.Term,
					Translation:        p.Translation,
					Context:            p.Context,
					Example:            p.Example,
					ExampleTranslation: p.ExampleTranslation,
					CategoryID:         c.ID,
					CategoryName:       c.Name,
				})
			}
			set.byCategory[c.ID] = phrases
		}
		return set, nil
	})
}

func (s *snapshot) dialogues(ctx context.Context, store Store) (*dialogueSet, error) {
	return s.dialogueLoad.get(func() (*dialogueSet, error) {
		dialogues, err := store.Dialogues(ctx, s.level)
		if err != nil {
			return nil, err
		}
		set := &dialogueSet{dialogues: dialogues, index: make(map[string]int, len(dialogues))}
		for i, d := range dialogues {
			set.index[d.ID] = i
		}
		return set, nil
	})
}

// buildVocabSet flattens categories into words. A word whose id was already
// seen in the level is dropped.
func buildVocabSet(lvl models.Level, cats []models.Category) *vocabSet {
	set := &vocabSet{
		categories: cats,
		index:      make(map[string]int, len(cats)),
		byCategory: make(map[string][]models.Word, len(cats)),
		byID:       make(map[string]models.Word),
	}
	for i, c := range cats {
		set.index[c.ID] = i
		words := make([]models.Word, 0, len(c.Words))
		for _, e := range c.Words {
			id := strings.TrimSpace(e.ID)
			if id == "" {
				id = models.WordID(lvl, c.ID, e.Term)
			}
			if _, dup := set.byID[id]; dup {
				slog.Warn("skipping duplicate word", "level", lvl.Key(), "category", c.ID, "word_id", id)
				continue
			}
			w := models.Word{
				ID:                 id,
				Level:              lvl.Key(),
				Term:               e.Term,
				Translation:        e.Translation,
				Example:            e.Example,
				ExampleTranslation: e.ExampleTranslation,
				CategoryID:         c.ID,
				CategoryName:       c.Name,
			}
			set.byID[id] = w
			words = append(words, w)
		}
		set.byCategory[c.ID] = words
		set.words = append(set.words, words...)
	}
	return set
}
