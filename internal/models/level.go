package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Major is a CEFR level band.
type Major string

const (
	A1 Major = "A1"
	A2 Major = "A2"
	B1 Major = "B1"
	B2 Major = "B2"
	C1 Major = "C1"
	C2 Major = "C2"
)

// Majors lists the bands in ascending order.
var Majors = []Major{A1, A2, B1, B2, C1, C2}

// Subs lists the sub-levels every band is split into.
var Subs = []int{1, 2}

var majorNames = map[Major]string{
	A1: "Anfänger",
	A2: "Grundlegende Kenntnisse",
	B1: "Fortgeschrittene Sprachverwendung",
	B2: "Selbständige Sprachverwendung",
	C1: "Fachkundige Sprachkenntnisse",
	C2: "Annähernd muttersprachliche Kenntnisse",
}

// Level identifies one of the twelve content levels, e.g. A1.1 or B2.2.
// The zero value is not a valid level.
type Level struct {
	Major Major
	Sub   int
}

// DefaultLevel is used when nothing else has been configured.
var DefaultLevel = Level{Major: A1, Sub: 1}

// NewLevel validates major and sub and returns the level.
func NewLevel(major string, sub int) (Level, error) {
	lvl := Level{Major: Major(strings.ToUpper(strings.TrimSpace(major))), Sub: sub}
	if !lvl.Valid() {
		return Level{}, fmt.Errorf("invalid level %q.%d", major, sub)
	}
	return lvl, nil
}

// ParseLevel parses a level key such as "B1.2".
func ParseLevel(key string) (Level, error) {
	major, sub, ok := strings.Cut(strings.TrimSpace(key), ".")
	if !ok {
		return Level{}, fmt.Errorf("invalid level key %q", key)
	}
	n, err := strconv.Atoi(sub)
	if err != nil {
		return Level{}, fmt.Errorf("invalid level key %q: %w", key, err)
	}
	return NewLevel(major, n)
}

// Valid reports whether the level is one of the twelve known levels.
func (l Level) Valid() bool {
	if _, ok := majorNames[l.Major]; !ok {
		return false
	}
	return l.Sub == 1 || l.Sub == 2
}

// Key returns the cache and display key, "{major}.{sub}".
func (l Level) Key() string {
	return fmt.Sprintf("%s.%d", l.Major, l.Sub)
}

func (l Level) String() string {
	return l.Key()
}

// Dir returns the content directory of the level relative to the content root.
func (l Level) Dir() string {
	return fmt.Sprintf("%s/%d", l.Major, l.Sub)
}

// DisplayName returns a human readable label, e.g. "A1.1 Anfänger".
func (l Level) DisplayName() string {
	return l.Key() + " " + majorNames[l.Major]
}

// AllLevels returns every level in ascending order.
func AllLevels() []Level {
	levels := make([]Level, 0, len(Majors)*len(Subs))
	for _, m := range Majors {
		for _, s := range Subs {
			levels = append(levels, Level{Major: m, Sub: s})
		}
	}
	return levels
}

// LevelInfo describes a level as listed to users.
type LevelInfo struct {
	Key         string `json:"key"`
	Major       Major  `json:"major"`
	Sub         int    `json:"sub"`
	DisplayName string `json:"display_name"`
	HasContent  bool   `json:"has_content"`
	IsCurrent   bool   `json:"is_current"`
}
