package content

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"wortschatz/internal/models"
)

type scopeKey struct{}

// WithLevel returns a context whose content queries are scoped to lvl,
// overriding the resolver's current level.
func WithLevel(ctx context.Context, lvl models.Level) context.Context {
	return context.WithValue(ctx, scopeKey{}, lvl)
}

// LevelFromContext returns the level set with WithLevel, if any.
func LevelFromContext(ctx context.Context) (models.Level, bool) {
	lvl, ok := ctx.Value(scopeKey{}).(models.Level)
	return lvl, ok && lvl.Valid()
}

// Resolver answers content queries for a level. Each level is loaded lazily,
// one content kind at a time, and kept until Reload replaces it.
//
// Queries use the level carried by the context (see WithLevel) and fall back
// to the current level. Results are copies; callers may modify them.
type Resolver struct {
	store   Store
	current atomic.Pointer[models.Level]

	mu     sync.Mutex
	levels map[string]*snapshot
}

// NewResolver creates a resolver over store with initial as the current level.
func NewResolver(store Store, initial models.Level) *Resolver {
	if !initial.Valid() {
		initial = models.DefaultLevel
	}
	r := &Resolver{store: store, levels: make(map[string]*snapshot)}
	r.current.Store(&initial)
	return r
}

// SetCurrentLevel changes the default level. It returns false and leaves the
// current level unchanged when major/sub do not name a known level.
func (r *Resolver) SetCurrentLevel(major string, sub int) bool {
	lvl, err := models.NewLevel(major, sub)
	if err != nil {
		return false
	}
	r.current.Store(&lvl)
	slog.Info("current content level changed", "level", lvl.Key())
	return true
}

// CurrentLevel returns the default level.
func (r *Resolver) CurrentLevel() models.Level {
	return *r.current.Load()
}

// Level returns the level a query with ctx would use.
func (r *Resolver) Level(ctx context.Context) models.Level {
	if lvl, ok := LevelFromContext(ctx); ok {
		return lvl
	}
	return r.CurrentLevel()
}

// AvailableLevels lists all twelve levels in ascending order.
func (r *Resolver) AvailableLevels() []models.LevelInfo {
	current := r.CurrentLevel()
	levels := models.AllLevels()
	infos := make([]models.LevelInfo, 0, len(levels))
	for _, lvl := range levels {
		infos = append(infos, models.LevelInfo{
			Key:         lvl.Key(),
			Major:       lvl.Major,
			Sub:         lvl.Sub,
			DisplayName: lvl.DisplayName(),
			HasContent:  r.store.HasContent(lvl),
			IsCurrent:   lvl == current,
		})
	}
	return infos
}

// Reload drops the cached content of the given levels, or of every level
// when none are given. Readers already holding the old content finish with
// it; later queries load afresh.
func (r *Resolver) Reload(levels ...models.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(levels) == 0 {
		r.levels = make(map[string]*snapshot)
		slog.Info("content cache cleared")
		return
	}
	for _, lvl := range levels {
		delete(r.levels, lvl.Key())
		slog.Info("content cache cleared", "level", lvl.Key())
	}
}

// Warm loads every content kind of the given levels concurrently.
func (r *Resolver) Warm(ctx context.Context, levels ...models.Level) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, lvl := range levels {
		snap := r.snapshot(lvl)
		g.Go(func() error { _, err := snap.vocabulary(ctx, r.store); return err })
		g.Go(func() error { _, err := snap.grammar(ctx, r.store); return err })
		g.Go(func() error { _, err := snap.phrases(ctx, r.store); return err })
		g.Go(func() error { _, err := snap.dialogues(ctx, r.store); return err })
	}
	return g.Wait()
}

func (r *Resolver) snapshot(lvl models.Level) *snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, ok := r.levels[lvl.Key()]
	if !ok {
		snap = &snapshot{level: lvl}
		r.levels[lvl.Key()] = snap
	}
	return snap
}

func (r *Resolver) loadVocab(ctx context.Context) *vocabSet {
	set, err := r.snapshot(r.Level(ctx)).vocabulary(ctx, r.store)
	if err != nil {
		slog.Error("failed to load vocabulary", "level", r.Level(ctx).Key(), "error", err)
		return &vocabSet{}
	}
	return set
}

func (r *Resolver) loadGrammar(ctx context.Context) *grammarSet {
	set, err := r.snapshot(r.Level(ctx)).grammar(ctx, r.store)
	if err != nil {
		slog.Error("failed to load grammar", "level", r.Level(ctx).Key(), "error", err)
		return &grammarSet{}
	}
	return set
}

func (r *Resolver) loadPhrases(ctx context.Context) *phraseSet {
	set, err := r.snapshot(r.Level(ctx)).phrases(ctx, r.store)
	if err != nil {
		slog.Error("failed to load phrases", "level", r.Level(ctx).Key(), "error", err)
		return &phraseSet{}
	}
	return set
}

func (r *Resolver) loadDialogues(ctx context.Context) *dialogueSet {
	set, err := r.snapshot(r.Level(ctx)).dialogues(ctx, r.store)
	if err != nil {
		slog.Error("failed to load dialogues", "level", r.Level(ctx).Key(), "error", err)
		return &dialogueSet{}
	}
	return set
}

// Categories lists the vocabulary categories of the level.
func (r *Resolver) Categories(ctx context.Context) []models.CategorySummary {
	set := r.loadVocab(ctx)
	out := make([]models.CategorySummary, 0, len(set.categories))
	for _, c := range set.categories {
		out = append(out, models.CategorySummary{
			ID:          c.ID,
			Name:        c.Name,
			NameDE:      c.NameDE,
			Description: c.Description,
			Count:       len(set.byCategory[c.ID]),
		})
	}
	return out
}

// AllWords returns every word of the level, category by category.
func (r *Resolver) AllWords(ctx context.Context) []models.Word {
	return slices.Clone(r.loadVocab(ctx).words)
}

// WordsByCategory returns the words of one category, or nil if the category
// does not exist.
func (r *Resolver) WordsByCategory(ctx context.Context, categoryID string) []models.Word {
	return slices.Clone(r.loadVocab(ctx).byCategory[categoryID])
}

// Word returns a word of the level by id.
func (r *Resolver) Word(ctx context.Context, wordID string) (models.Word, bool) {
	w, ok := r.loadVocab(ctx).byID[wordID]
	return w, ok
}

// Category returns a vocabulary category by id.
func (r *Resolver) Category(ctx context.Context, categoryID string) (models.CategorySummary, bool) {
	for _, c := range r.Categories(ctx) {
		if c.ID == categoryID {
			return c, true
		}
	}
	return models.CategorySummary{}, false
}

// CategoryDistractors returns the author-provided distractors of a category.
func (r *Resolver) CategoryDistractors(ctx context.Context, categoryID string) []string {
	set := r.loadVocab(ctx)
	if i, ok := set.index[categoryID]; ok {
		return slices.Clone(set.categories[i].Distractors)
	}
	return nil
}

// RandomWords returns up to count distinct words of the level in random
// order, never including excludeWordID.
func (r *Resolver) RandomWords(ctx context.Context, count int, excludeWordID string) []models.Word {
	words := r.loadVocab(ctx).words
	pool := make([]models.Word, 0, len(words))
	for _, w := range words {
		if w.ID != excludeWordID {
			pool = append(pool, w)
		}
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if count < len(pool) {
		pool = pool[:max(count, 0)]
	}
	return pool
}

// Tests lists the grammar tests of the level.
func (r *Resolver) Tests(ctx context.Context) []models.TestSummary {
	set := r.loadGrammar(ctx)
	out := make([]models.TestSummary, 0, len(set.tests))
	for _, t := range set.tests {
		out = append(out, models.TestSummary{
			ID:             t.ID,
			Name:           t.Name,
			NameDE:         t.NameDE,
			Description:    t.Description,
			QuestionsCount: len(t.Questions),
		})
	}
	return out
}

// Test returns a full grammar test by id.
func (r *Resolver) Test(ctx context.Context, testID string) (models.GrammarTest, bool) {
	set := r.loadGrammar(ctx)
	i, ok := set.index[testID]
	if !ok {
		return models.GrammarTest{}, false
	}
	t := set.tests[i]
	t.Questions = cloneQuestions(t.Questions)
	return t, true
}

// TestQuestions returns the questions of a test in authored order, or nil
// if the test does not exist.
func (r *Resolver) TestQuestions(ctx context.Context, testID string) []models.Question {
	t, ok := r.Test(ctx, testID)
	if !ok {
		return nil
	}
	return t.Questions
}

// GrammarTheory returns the theory section of a test, if any.
func (r *Resolver) GrammarTheory(ctx context.Context, testID string) map[string]any {
	t, ok := r.Test(ctx, testID)
	if !ok {
		return nil
	}
	return t.Theory
}

// PhraseCategories lists the phrase categories of the level.
func (r *Resolver) PhraseCategories(ctx context.Context) []models.CategorySummary {
	set := r.loadPhrases(ctx)
	out := make([]models.CategorySummary, 0, len(set.categories))
	for _, c := range set.categories {
		out = append(out, models.CategorySummary{
			ID:          c.ID,
			Name:        c.Name,
			NameDE:      c.NameDE,
			Description: c.Description,
			Count:       len(set.byCategory[c.ID]),
		})
	}
	return out
}

// PhrasesByCategory returns the phrases of one category.
func (r *Resolver) PhrasesByCategory(ctx context.Context, categoryID string) []models.Phrase {
	return slices.Clone(r.loadPhrases(ctx).byCategory[categoryID])
}

// DialogueTopics lists the dialogues of the level.
func (r *Resolver) DialogueTopics(ctx context.Context) []models.DialogueSummary {
	set := r.loadDialogues(ctx)
	out := make([]models.DialogueSummary, 0, len(set.dialogues))
	for _, d := range set.dialogues {
		out = append(out, models.DialogueSummary{
			ID:             d.ID,
			Name:           d.Name,
			NameDE:         d.NameDE,
			Description:    d.Description,
			DialogueLength: len(d.Turns),
		})
	}
	return out
}

// Dialogue returns a dialogue by id.
func (r *Resolver) Dialogue(ctx context.Context, topicID string) (models.Dialogue, bool) {
	set := r.loadDialogues(ctx)
	i, ok := set.index[topicID]
	if !ok {
		return models.Dialogue{}, false
	}
	d := set.dialogues[i]
	d.Turns = slices.Clone(d.Turns)
	d.Exercises = slices.Clone(d.Exercises)
	return d, true
}

// DialogueExercises returns the exercises of a dialogue.
func (r *Resolver) DialogueExercises(ctx context.Context, topicID string) []models.Exercise {
	d, ok := r.Dialogue(ctx, topicID)
	if !ok {
		return nil
	}
	return d.Exercises
}

// VocabularyStats counts categories and words of the level.
func (r *Resolver) VocabularyStats(ctx context.Context) models.VocabularyStats {
	stats := models.VocabularyStats{Categories: []models.CountByID{}}
	for _, c := range r.Categories(ctx) {
		stats.TotalCategories++
		stats.TotalWords += c.Count
		stats.Categories = append(stats.Categories, models.CountByID{ID: c.ID, Name: c.Name, Count: c.Count})
	}
	return stats
}

// GrammarStats counts tests and questions of the level.
func (r *Resolver) GrammarStats(ctx context.Context) models.GrammarStats {
	stats := models.GrammarStats{Topics: []models.CountByID{}}
	for _, t := range r.Tests(ctx) {
		stats.TotalTopics++
		stats.TotalQuestions += t.QuestionsCount
		stats.Topics = append(stats.Topics, models.CountByID{ID: t.ID, Name: t.Name, Count: t.QuestionsCount})
	}
	return stats
}

func cloneQuestions(qs []models.Question) []models.Question {
	out := make([]models.Question, len(qs))
	for i, q := range qs {
		q.Options = slices.Clone(q.Options)
		out[i] = q
	}
	return out
}
