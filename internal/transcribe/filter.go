package transcribe

import (
	"strings"
	"unicode/utf8"
)

// DefaultPhrases are boilerplate artifacts the whisper family is known to
// hallucinate on silent or noisy audio.
var DefaultPhrases = []string{
	"transcribe your voice", "I'm Ashka", "Ashkabli", "Amara.org",
	"coding", "subscribe", "my name is", "MBC", "copyright",
}

// DefaultMinLength is the length under which a transcript containing a known
// phrase is considered entirely fabricated.
const DefaultMinLength = 50

// Filter strips known hallucinated phrases from transcripts. It is a pure
// function of its phrase table and length threshold.
type Filter struct {
	phrases   []string
	minLength int
}

func NewFilter(phrases []string, minLength int) *Filter {
	return &Filter{phrases: phrases, minLength: minLength}
}

func DefaultFilter() *Filter {
	return NewFilter(DefaultPhrases, DefaultMinLength)
}

// Clean removes every known phrase present in text. A text shorter than the
// minimum length that contains any known phrase is discarded outright.
func (f *Filter) Clean(text string) string {
	cleaned := text
	lower := strings.ToLower(text)
	for _, phrase := range f.phrases {
		if !strings.Contains(lower, strings.ToLower(phrase)) {
			continue
		}
		// Length heuristic counts characters, not bytes, so non-Latin
		// transcripts get the same cutoff.
		if utf8.RuneCountInString(text) < f.minLength {
			return ""
		}
		cleaned = strings.ReplaceAll(cleaned, phrase, "")
	}
	return strings.TrimSpace(cleaned)
}
