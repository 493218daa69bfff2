// Package textutil holds the text plumbing between the recognizer, the
// model, and the synthesizer: markdown cleanup of streamed LLM output,
// German sentence splitting, the transcript sanity filter, and fuzzy
// goodbye detection.
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

var (
	markAfterDotRe  = regexp.MustCompile(`([?:!.,])\.`)
	enumFragmentRe  = regexp.MustCompile(`\.\d+\.`)
	symbolRunsRe    = regexp.MustCompile("[*_#`\"']+")
	speakableRuneRe = regexp.MustCompile("[A-Za-z0-9äöüÄÖÜß]")
)

// CleanMarkdown flattens streamed markdown into speakable prose:
// newlines become sentence breaks, doubled punctuation is collapsed,
// sentences glued together without whitespace are separated, and
// enumeration fragments like ".1." are dropped.
func CleanMarkdown(text string) string {
	b := strings.ReplaceAll(text, "\n", ". ")
	b = markAfterDotRe.ReplaceAllString(b, "$1")
	b = spaceAfterSentenceDot(b)
	b = enumFragmentRe.ReplaceAllString(b, ".")
	return b
}

// spaceAfterSentenceDot inserts a space after a period that glues two
// sentences together. Periods inside numbers (3.14, 13.30) are left
// alone.
func spaceAfterSentenceDot(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i, r := range runes {
		b.WriteRune(r)
		if r != '.' {
			continue
		}
		prevDigit := i > 0 && unicode.IsDigit(runes[i-1])
		if prevDigit || i+1 >= len(runes) {
			continue
		}
		next := runes[i+1]
		if !unicode.IsDigit(next) && !unicode.IsSpace(next) {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// StripSymbols removes markdown decoration and quote characters that
// should never reach the synthesizer.
func StripSymbols(text string) string {
	return symbolRunsRe.ReplaceAllString(text, "")
}

// HasSpeakableContent reports whether the text contains at least one
// letter or digit worth sending to the synthesizer.
func HasSpeakableContent(text string) bool {
	return speakableRuneRe.MatchString(text)
}

// endPhrases are conversation closers in German and English.
var endPhrases = []string{
	"stop chat", "exit", "bye", "finish",
	"halt stoppen", "chat beenden", "auf wiedersehen", "tschüss", "ende", "schluss",
}

// conversationEndScore is the fuzzy-match score (0-100) a transcript
// must reach against one of the end phrases.
const conversationEndScore = 80

// IsConversationEnding fuzzily matches the sentence against the
// goodbye phrase list. Both the whole sentence and its individual
// words are scored so "okay tschüss" still counts.
func IsConversationEnding(sentence string) bool {
	s := strings.ToLower(strings.TrimSpace(sentence))
	if s == "" {
		return false
	}
	candidates := append([]string{s}, strings.Fields(s)...)
	for _, phrase := range endPhrases {
		for _, c := range candidates {
			c = strings.Trim(c, ".,!?;:")
			if c == "" {
				continue
			}
			if matchScore(c, phrase) >= conversationEndScore {
				return true
			}
		}
	}
	return false
}

// matchScore is a normalized Levenshtein similarity on a 0-100 scale.
func matchScore(a, b string) int {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}
	dist := matchr.Levenshtein(a, b)
	return 100 * (longest - dist) / longest
}

// abbreviations that end in a period but never end a sentence.
var abbreviations = map[string]bool{
	"z.b": true, "bzw": true, "usw": true, "ca": true, "dr": true,
	"prof": true, "nr": true, "evtl": true, "ggf": true, "inkl": true,
	"mr": true, "mrs": true, "ms": true, "st": true, "bspw": true,
}

// SplitCompleteSentences pops every finished sentence off the front of
// the buffer and returns the unfinished remainder. A sentence is
// finished at . ! or ? unless the period belongs to a number or a known
// abbreviation.
func SplitCompleteSentences(buffer string) (sentences []string, rest string) {
	runes := []rune(buffer)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if r == '.' && !sentenceDot(runes, i, start) {
			continue
		}
		// Swallow any directly attached closing punctuation.
		end := i + 1
		for end < len(runes) && (runes[end] == '.' || runes[end] == '!' || runes[end] == '?') {
			end++
		}
		s := strings.TrimSpace(string(runes[start:end]))
		if s != "" {
			sentences = append(sentences, s)
		}
		i = end - 1
		start = end
	}
	return sentences, strings.TrimLeft(string(runes[start:]), " \t")
}

// sentenceDot reports whether the period at index i terminates a
// sentence rather than a number or abbreviation.
func sentenceDot(runes []rune, i, start int) bool {
	// Period inside a number: 3.14, 13.30 Uhr.
	if i > 0 && unicode.IsDigit(runes[i-1]) && i+1 < len(runes) && unicode.IsDigit(runes[i+1]) {
		return false
	}
	// Walk back to the start of the word before the period.
	w := i
	for w > start && !unicode.IsSpace(runes[w-1]) {
		w--
	}
	word := strings.ToLower(strings.Trim(string(runes[w:i]), "."))
	if abbreviations[word] {
		return false
	}
	// Single letters before a period are initials ("J. S. Bach").
	if len([]rune(word)) == 1 && unicode.IsLetter([]rune(word)[0]) {
		return false
	}
	return true
}
