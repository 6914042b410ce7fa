// Package content loads per-level learning material and answers
// level-scoped queries over it.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"wortschatz/internal/models"
)

// Store reads raw content documents for a level. Missing directories yield
// empty results; unreadable or invalid documents are skipped with a warning.
type Store interface {
	Vocabulary(ctx context.Context, lvl models.Level) ([]models.Category, error)
	Grammar(ctx context.Context, lvl models.Level) ([]models.GrammarTest, error)
	Phrases(ctx context.Context, lvl models.Level) ([]models.PhraseCategory, error)
	Dialogues(ctx context.Context, lvl models.Level) ([]models.Dialogue, error)
	HasContent(lvl models.Level) bool
}

// FSStore reads documents laid out as {major}/{sub}/{kind}/*.json (or
// .yaml/.yml) under an fs.FS root.
type FSStore struct {
	fsys fs.FS
}

// NewFSStore creates a store over fsys, typically os.DirFS(contentPath).
func NewFSStore(fsys fs.FS) *FSStore {
	return &FSStore{fsys: fsys}
}

func (s *FSStore) Vocabulary(ctx context.Context, lvl models.Level) ([]models.Category, error) {
	docs, problems, err := loadDocuments[models.Category](ctx, s.fsys, lvl, models.KindVocabulary)
	logProblems(problems)
	return docs, err
}

func (s *FSStore) Grammar(ctx context.Context, lvl models.Level) ([]models.GrammarTest, error) {
	docs, problems, err := loadDocuments[models.GrammarTest](ctx, s.fsys, lvl, models.KindGrammar)
	logProblems(problems)
	return docs, err
}

func (s *FSStore) Phrases(ctx context.Context, lvl models.Level) ([]models.PhraseCategory, error) {
	docs, problems, err := loadDocuments[models.PhraseCategory](ctx, s.fsys, lvl, models.KindPhrases)
	logProblems(problems)
	return docs, err
}

func (s *FSStore) Dialogues(ctx context.Context, lvl models.Level) ([]models.Dialogue, error) {
	docs, problems, err := loadDocuments[models.Dialogue](ctx, s.fsys, lvl, models.KindDialogues)
	logProblems(problems)
	return docs, err
}

// Problem is a content document that loading skipped.
type Problem struct {
	File string
	Err  error
}

func (p Problem) String() string {
	return p.File + ": " + p.Err.Error()
}

// MarshalText renders the problem as "file: reason".
func (p Problem) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Validate loads every content kind of lvl and returns the documents that
// would be skipped. Documents without an id are not reported.
func (s *FSStore) Validate(ctx context.Context, lvl models.Level) ([]Problem, error) {
	var all []Problem
	collect := func(problems []Problem, err error) error {
		for _, p := range problems {
			if !errors.Is(p.Err, models.ErrMissingID) {
				all = append(all, p)
			}
		}
		return err
	}

	_, problems, err := loadDocuments[models.Category](ctx, s.fsys, lvl, models.KindVocabulary)
	if err := collect(problems, err); err != nil {
		return nil, err
	}
	_, problems, err = loadDocuments[models.GrammarTest](ctx, s.fsys, lvl, models.KindGrammar)
	if err := collect(problems, err); err != nil {
		return nil, err
	}
	_, problems, err = loadDocuments[models.PhraseCategory](ctx, s.fsys, lvl, models.KindPhrases)
	if err := collect(problems, err); err != nil {
		return nil, err
	}
	_, problems, err = loadDocuments[models.Dialogue](ctx, s.fsys, lvl, models.KindDialogues)
	if err := collect(problems, err); err != nil {
		return nil, err
	}
	return all, nil
}

func logProblems(problems []Problem) {
	for _, p := range problems {
		if errors.Is(p.Err, models.ErrMissingID) {
			slog.Debug("skipping content document without id", "file", p.File)
			continue
		}
		slog.Warn("skipping content document", "file", p.File, "error", p.Err)
	}
}

// HasContent reports whether the level directory exists and holds at least
// one content kind directory.
func (s *FSStore) HasContent(lvl models.Level) bool {
	entries, err := fs.ReadDir(s.fsys, lvl.Dir())
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() {
			return true
		}
	}
	return false
}

type document interface {
	DocumentID() string
	Validate() error
}

// loadDocuments decodes every document of one kind in file name order. The
// first document wins when two share an id. Skipped documents are returned
// as problems.
func loadDocuments[T any, PT interface {
	*T
	document
}](ctx context.Context, fsys fs.FS, lvl models.Level, kind models.ContentKind) ([]T, []Problem, error) {
	dir := path.Join(lvl.Dir(), string(kind))

	entries, err := fs.ReadDir(fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var docs []T
	var problems []Problem
	seen := make(map[string]string)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if e.IsDir() || !isDocument(e.Name()) {
			continue
		}
		file := path.Join(dir, e.Name())

		var doc T
		if err := decodeFile(fsys, file, &doc); err != nil {
			problems = append(problems, Problem{File: file, Err: fmt.Errorf("malformed: %w", err)})
			continue
		}
		pdoc := PT(&doc)
		if err := pdoc.Validate(); err != nil {
			problems = append(problems, Problem{File: file, Err: err})
			continue
		}
		id := pdoc.DocumentID()
		if first, dup := seen[id]; dup {
			problems = append(problems, Problem{File: file, Err: fmt.Errorf("duplicate id %q, first defined in %s", id, first)})
			continue
		}
		seen[id] = file
		docs = append(docs, doc)
	}

	slog.Debug("content loaded", "level", lvl.Key(), "kind", kind, "documents", len(docs))
	return docs, problems, nil
}

func isDocument(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func decodeFile(fsys fs.FS, file string, v any) error {
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return err
	}
	if strings.ToLower(path.Ext(file)) == ".json" {
		return json.Unmarshal(data, v)
	}
	return yaml.Unmarshal(data, v)
}
