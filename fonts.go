package pagerender

import (
	"bytes"
	"sync"

	"github.com/go-text/typesetting/font"
	"golang.org/x/text/language"
)

// parseFontProgram parses an embedded TTF/OTF font program into a
// typesetting font. The returned *font.Font is read-only and safe for
// concurrent use, which is exactly what the parallel phase needs; the
// per-render font.Face wrappers are created by renderers on their own
// goroutines (font.NewFace is cheap).
func parseFontProgram(data []byte) (*font.Font, error) {
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return face.Font, nil
}

// fontTable is the session's substitute-font table, keyed by language.
//
// Fonts are added during the sequential pre-load phase only. The first
// substitute lookup builds the language matcher; after that the table is
// effectively read-only. The mutex exists for sessions that interleave
// render operations, not for the parallel phase (which never adds fonts).
type fontTable struct {
	mu      sync.RWMutex
	tags    []language.Tag
	byTag   map[language.Tag]*font.Font
	matcher language.Matcher
}

func newFontTable() *fontTable {
	return &fontTable{
		byTag: make(map[language.Tag]*font.Font),
	}
}

// add registers a parsed font under a BCP-47 language tag. Unparseable or
// empty tags register the font as the und (undetermined) fallback.
func (t *fontTable) add(lang, name string, fnt *font.Font) {
	tag, err := language.Parse(lang)
	if err != nil || lang == "" {
		tag = language.Und
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byTag[tag]; !exists {
		t.tags = append(t.tags, tag)
	}
	t.byTag[tag] = fnt
	t.matcher = nil // invalidated; rebuilt lazily on next lookup
	Logger().Debug("substitute font registered", "name", name, "lang", tag.String())
}

// substitute returns the best font for a requested language, using the
// x/text matcher for distance-based matching (so "en-GB" finds an "en"
// font, "zh-Hant" prefers a "zh" font over an unrelated one).
func (t *fontTable) substitute(lang string) (*font.Font, bool) {
	t.mu.RLock()
	matcher := t.matcher
	empty := len(t.tags) == 0
	t.mu.RUnlock()

	if empty {
		return nil, false
	}
	if matcher == nil {
		t.mu.Lock()
		if t.matcher == nil {
			t.matcher = language.NewMatcher(t.tags)
		}
		matcher = t.matcher
		t.mu.Unlock()
	}

	desired, err := language.Parse(lang)
	if err != nil {
		desired = language.Und
	}
	_, index, _ := matcher.Match(desired)

	t.mu.RLock()
	defer t.mu.RUnlock()
	if index < 0 || index >= len(t.tags) {
		return nil, false
	}
	fnt, ok := t.byTag[t.tags[index]]
	return fnt, ok
}
