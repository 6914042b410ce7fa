package models

import (
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    Level
		wantErr bool
	}{
		{name: "first level", key: "A1.1", want: Level{Major: A1, Sub: 1}},
		{name: "last level", key: "C2.2", want: Level{Major: C2, Sub: 2}},
		{name: "lower case major", key: "b1.2", want: Level{Major: B1, Sub: 2}},
		{name: "surrounding space", key: " A2.1 ", want: Level{Major: A2, Sub: 1}},
		{name: "unknown major", key: "D1.1", wantErr: true},
		{name: "sub out of range", key: "A1.3", wantErr: true},
		{name: "sub zero", key: "A1.0", wantErr: true},
		{name: "missing sub", key: "A1", wantErr: true},
		{name: "non numeric sub", key: "A1.x", wantErr: true},
		{name: "empty", key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestLevelKeyRoundTrip(t *testing.T) {
	for _, lvl := range AllLevels() {
		parsed, err := ParseLevel(lvl.Key())
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", lvl.Key(), err)
		}
		if parsed != lvl {
			t.Errorf("round trip of %v gave %v", lvl, parsed)
		}
	}
}

func TestAllLevels(t *testing.T) {
	levels := AllLevels()
	if len(levels) != 12 {
		t.Fatalf("AllLevels() returned %d levels, want 12", len(levels))
	}
	if levels[0].Key() != "A1.1" || levels[11].Key() != "C2.2" {
		t.Errorf("unexpected order: first %v, last %v", levels[0], levels[11])
	}
	seen := make(map[string]bool)
	for _, l := range levels {
		if seen[l.Key()] {
			t.Errorf("duplicate level %v", l)
		}
		seen[l.Key()] = true
	}
}

func TestLevelValid(t *testing.T) {
	if (Level{}).Valid() {
		t.Error("zero Level should not be valid")
	}
	if !DefaultLevel.Valid() {
		t.Error("DefaultLevel should be valid")
	}
	if got := DefaultLevel.Dir(); got != "A1/1" {
		t.Errorf("Dir() = %q, want %q", got, "A1/1")
	}
}

func TestWordID(t *testing.T) {
	lvl := Level{Major: A1, Sub: 1}

	t.Run("includes level and category", func(t *testing.T) {
		got := WordID(lvl, "family", "die Mutter")
		want := "A1.1_family_die Mutter"
		if got != want {
			t.Errorf("WordID() = %q, want %q", got, want)
		}
	})

	t.Run("same term in different levels differs", func(t *testing.T) {
		other := Level{Major: A2, Sub: 1}
		if WordID(lvl, "family", "die Mutter") == WordID(other, "family", "die Mutter") {
			t.Error("word ids should differ across levels")
		}
	})

	t.Run("normalises composed and decomposed umlauts", func(t *testing.T) {
		composed := WordID(lvl, "food", "die M\u00f6hre")
		decomposed := WordID(lvl, "food", "die Mo\u0308hre ")
		if composed != decomposed {
			t.Errorf("expected equal ids, got %q and %q", composed, decomposed)
		}
	})
}

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       Question
		wantErr bool
	}{
		{name: "valid", q: Question{Question: "___ Hund", Options: []string{"der", "die", "das"}, Correct: 0}},
		{name: "no options", q: Question{Question: "___ Hund"}, wantErr: true},
		{name: "correct too large", q: Question{Question: "___ Hund", Options: []string{"der"}, Correct: 1}, wantErr: true},
		{name: "negative correct", q: Question{Question: "___ Hund", Options: []string{"der"}, Correct: -1}, wantErr: true},
		{name: "empty text", q: Question{Options: []string{"der"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCategoryValidate(t *testing.T) {
	valid := Category{ID: "family", Words: []VocabularyEntry{{Term: "die Mutter", Translation: "мать"}}}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid category: %v", err)
	}

	missingID := Category{Name: "Семья"}
	if err := missingID.Validate(); err != ErrMissingID {
		t.Errorf("missing id: got %v, want ErrMissingID", err)
	}

	badWord := Category{ID: "family", Words: []VocabularyEntry{{Term: "die Mutter"}}}
	if err := badWord.Validate(); err == nil {
		t.Error("word without translation should be rejected")
	}
}

func TestWordProgressMastered(t *testing.T) {
	tests := []struct {
		correct, wrong int
		want           bool
	}{
		{3, 0, true},
		{5, 0, true},
		{2, 0, false},
		{3, 1, false},
		{0, 0, false},
	}
	for _, tt := range tests {
		p := WordProgress{CorrectCount: tt.correct, WrongCount: tt.wrong}
		if got := p.Mastered(); got != tt.want {
			t.Errorf("Mastered(correct=%d, wrong=%d) = %v, want %v", tt.correct, tt.wrong, got, tt.want)
		}
	}
}
