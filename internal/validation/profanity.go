package validation

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
)

// ProfanityMessage is returned to a commenter whose text is rejected.
const ProfanityMessage = "Your comment contains inappropriate language. Please revise it and try again."

//go:embed wordlists/default.toml
var defaultWordlist []byte

type wordlistFile struct {
	Words []string `toml:"words"`
	Stems []string `toml:"stems"`
}

// ProfanityFilter rejects text containing listed words. It is safe for
// concurrent use once built.
type ProfanityFilter struct {
	words map[string]struct{}
	stems []string
}

var leetReplacer = strings.NewReplacer(
	"0", "o",
	"1", "i",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"@", "a",
	"$", "s",
)

// NewProfanityFilter loads the word list at path, or the built-in list when path is empty.
func NewProfanityFilter(path string) (*ProfanityFilter, error) {
	raw := defaultWordlist
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read wordlist %s: %w", path, err)
		}
		raw = b
	}
	return ParseWordlist(raw)
}

// ParseWordlist builds a filter from TOML with top-level `words` and `stems` arrays.
func ParseWordlist(raw []byte) (*ProfanityFilter, error) {
	var wl wordlistFile
	if err := toml.Unmarshal(raw, &wl); err != nil {
		return nil, fmt.Errorf("parse wordlist: %w", err)
	}
	f := &ProfanityFilter{words: make(map[string]struct{}, len(wl.Words))}
	for _, w := range wl.Words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			f.words[w] = struct{}{}
		}
	}
	for _, s := range wl.Stems {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			f.stems = append(f.stems, s)
		}
	}
	return f, nil
}

// Contains reports whether text holds a listed word or stem.
func (f *ProfanityFilter) Contains(text string) bool {
	if f == nil {
		return false
	}
	normalized := leetReplacer.Replace(strings.ToLower(text))
	tokens := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, tok := range tokens {
		if _, ok := f.words[tok]; ok {
			return true
		}
		for _, stem := range f.stems {
			if strings.Contains(tok, stem) {
				return true
			}
		}
	}
	return false
}

// Check returns an error carrying ProfanityMessage when text is rejected.
func (f *ProfanityFilter) Check(text string) error {
	if f.Contains(text) {
		return fmt.Errorf("%s", ProfanityMessage)
	}
	return nil
}

// Size is the number of whole words in the list.
func (f *ProfanityFilter) Size() int {
	if f == nil {
		return 0
	}
	return len(f.words)
}
