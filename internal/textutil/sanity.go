package textutil

import (
	"strings"
	"unicode"
)

// Sanity filter for raw transcripts. Recognizer noise produces strings
// of real-looking junk; a transcript only passes if enough of its
// words look German.

// Thresholds on the weighted share of German-looking words.
const (
	sanityThreshold      = 0.15
	shortInputThreshold  = 0.10
	shortInputTokenCount = 5
)

// germanWords is the Swadesh-207 German core vocabulary, lowercased.
var germanWords = wordSet(
	"ich", "du", "er", "wir", "ihr", "sie", "dies", "das", "hier", "dort",
	"wer", "was", "wo", "wann", "wie", "nicht", "alle", "viele", "einige",
	"wenige", "andere", "eins", "zwei", "drei", "vier", "fünf", "groß",
	"lang", "breit", "dick", "schwer", "klein", "kurz", "eng", "dünn",
	"frau", "mann", "mensch", "kind", "ehefrau", "ehemann", "mutter",
	"vater", "tier", "fisch", "vogel", "hund", "laus", "schlange", "wurm",
	"baum", "wald", "stock", "frucht", "same", "blatt", "wurzel", "rinde",
	"blume", "gras", "seil", "haut", "fleisch", "blut", "knochen", "fett",
	"ei", "horn", "schwanz", "feder", "haar", "kopf", "ohr", "auge",
	"nase", "mund", "zahn", "zunge", "fingernagel", "fuß", "bein", "knie",
	"hand", "flügel", "bauch", "eingeweide", "hals", "rücken", "brust",
	"herz", "leber", "trinken", "essen", "beißen", "saugen", "spucken",
	"erbrechen", "blasen", "atmen", "lachen", "sehen", "hören", "wissen",
	"denken", "riechen", "fürchten", "schlafen", "leben", "sterben",
	"töten", "kämpfen", "jagen", "schlagen", "schneiden", "spalten",
	"stechen", "kratzen", "graben", "schwimmen", "fliegen", "gehen",
	"kommen", "liegen", "sitzen", "stehen", "drehen", "fallen", "geben",
	"halten", "drücken", "reiben", "waschen", "wischen", "ziehen",
	"stoßen", "werfen", "binden", "nähen", "zählen", "sagen", "singen",
	"spielen", "schweben", "fließen", "frieren", "schwellen", "sonne",
	"mond", "stern", "wasser", "regen", "fluss", "see", "meer", "salz",
	"stein", "sand", "staub", "erde", "wolke", "nebel", "himmel", "wind",
	"schnee", "eis", "rauch", "feuer", "asche", "brennen", "straße",
	"berg", "rot", "grün", "gelb", "weiß", "schwarz", "nacht", "tag",
	"jahr", "warm", "kalt", "voll", "neu", "alt", "gut", "schlecht",
	"faul", "schmutzig", "gerade", "rund", "scharf", "stumpf", "glatt",
	"nass", "trocken", "richtig", "nah", "weit", "rechts", "links",
	"bei", "in", "mit", "und", "wenn", "weil", "name",
)

// commonGermanWords are everyday words the core vocabulary misses but
// that show up constantly in assistant commands.
var commonGermanWords = wordSet(
	"wie", "was", "wer", "wo", "wann", "warum", "welche", "welcher", "welches",
	"mir", "dir", "uns", "euch", "ihnen", "ihm", "ihr", "du", "ich", "er", "sie", "es", "wir",
	"ein", "eine", "einen", "einem", "einer", "eines", "der", "die", "das", "den", "dem", "des",
	"ist", "sind", "war", "waren", "wird", "werden", "würde", "würden",
	"kann", "können", "könnte", "könnten",
	"hat", "haben", "hatte", "hatten", "geht", "gehen", "ging", "gingen",
	"über", "unter", "vor", "nach", "bei", "mit", "ohne", "für", "gegen",
	"um", "zu", "aus", "von", "auf",
	"erzähle", "erzähl", "sage", "sag", "zeige", "zeig", "mache", "mach", "gib", "gebe",
	"bitte", "danke", "ja", "nein", "vielleicht", "heute", "morgen", "gestern",
	"uhr", "zeit", "tag", "woche", "monat", "jahr",
	"schön", "gut", "schlecht", "groß", "klein", "alt", "neu", "kurz", "lang",
	"witz", "gedicht", "geschichte", "lied", "musik", "film", "buch",
)

// germanSuffixes and germanPrefixes are common German morphology; a
// word carrying them earns partial credit.
var germanSuffixes = []string{
	"ung", "keit", "heit", "lich", "bar", "ten", "en", "st", "et", "te", "er",
}

var germanPrefixes = []string{
	"ge", "be", "ver", "ent", "zer", "an", "auf", "aus", "ein", "vor", "nach", "um",
}

// IsSaneGermanInput reports whether a transcript contains enough
// German-looking words to be worth answering. Vocabulary hits score
// full credit; morphology earns 0.9 (prefix and suffix), 0.7 (suffix),
// or 0.5 (prefix); umlauts alone earn 0.8. Inputs of five words or
// fewer use the lenient threshold.
func IsSaneGermanInput(input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}

	var score float64
	var total int
	for _, token := range strings.Fields(input) {
		word := strings.ToLower(strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r)
		}))
		if word == "" || len([]rune(word)) < 2 || !isAlpha(word) {
			continue
		}
		total++
		score += wordScore(word)
	}
	if total == 0 {
		return false
	}

	threshold := sanityThreshold
	if total <= shortInputTokenCount {
		threshold = shortInputThreshold
	}
	return score/float64(total) >= threshold
}

func wordScore(word string) float64 {
	if germanWords[word] || commonGermanWords[word] {
		return 1.0
	}
	prefix := hasAnyPrefix(word, germanPrefixes)
	suffix := hasAnySuffix(word, germanSuffixes)
	switch {
	case prefix && suffix:
		return 0.9
	case suffix:
		return 0.7
	case prefix:
		return 0.5
	case strings.ContainsAny(word, "äöüß"):
		return 0.8
	}
	return 0
}

func hasAnyPrefix(word string, prefixes []string) bool {
	for _, p := range prefixes {
		if len(word) > len(p)+1 && strings.HasPrefix(word, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(word string, suffixes []string) bool {
	for _, s := range suffixes {
		if len(word) > len(s)+1 && strings.HasSuffix(word, s) {
			return true
		}
	}
	return false
}

func isAlpha(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
