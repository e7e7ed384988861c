// Package matching implements the product similarity domain: feature
// extraction from raw product text, the five-signal similarity scorer, and the
// adaptive weight model trained from user feedback.
package matching

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// NumericStats are shape statistics of the raw input string, computed once at
// extraction time.
type NumericStats struct {
	Length          int     `json:"length"`
	WordCount       int     `json:"word_count"`
	AvgWordLength   float64 `json:"avg_word_length"`
	UniqueWordCount int     `json:"unique_word_count"`
	DigitGroupCount int     `json:"digit_group_count"`
}

// ProductFeatures is the immutable feature bundle extracted from one product
// or query string.  Absent signals are zero values with the Has* / empty-string
// convention; extraction never fails.
type ProductFeatures struct {
	Source   string          `json:"source"`
	Brand    string          `json:"brand,omitempty"`
	Category string          `json:"category,omitempty"`
	Size     float64         `json:"size,omitempty"`
	Unit     string          `json:"unit,omitempty"`
	HasSize  bool            `json:"has_size"`
	Keywords []string        `json:"keywords"`
	Phonetic string          `json:"phonetic"`
	Stats    NumericStats `json:"stats"`

	keywords map[string]bool
}

// KeywordSet returns the deduplicated stemmed keyword set.  The map is built
// lazily for bundles decoded from cache, where only the slice survives JSON.
func (f *ProductFeatures) KeywordSet() map[string]bool {
	if f.keywords == nil {
		f.keywords = make(map[string]bool, len(f.Keywords))
		for _, k := range f.Keywords {
			f.keywords[k] = true
		}
	}
	return f.keywords
}

// sizePattern matches "<number><unit>" with optional whitespace between the
// number and the unit.  Unit alternatives are ordered longest first so "oz"
// never wins inside "ounces".
var sizePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(gallons?|gal|ounces?|oz|pounds?|lbs|lb|milliliters?|ml|liters?|litres?|l|kilograms?|kg|grams?|g|count|ct|packs?|pk)\b`)

var digitGroupPattern = regexp.MustCompile(`\d+`)

// Extractor turns raw strings into ProductFeatures using the shared Tables.
type Extractor struct {
	tables *Tables

	// phoneticFn is swappable for tests; defaults to PhoneticKey.
	phoneticFn func(string) string
}

// NewExtractor builds an Extractor over the given vocabulary tables.
func NewExtractor(tables *Tables) *Extractor {
	return &Extractor{tables: tables, phoneticFn: PhoneticKey}
}

// WithPhonetic replaces the phonetic-key function, typically with a memoized
// version.  Returns the extractor for chaining at construction.
func (e *Extractor) WithPhonetic(fn func(string) string) *Extractor {
	if fn != nil {
		e.phoneticFn = fn
	}
	return e
}

// Normalize lower-cases, trims, collapses whitespace, and applies the static
// spell-correction dictionary token-wise.  Scoring and cache keys both operate
// on this form.
func (e *Extractor) Normalize(text string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	for i, f := range fields {
		fields[i] = e.tables.CorrectToken(f)
	}
	return strings.Join(fields, " ")
}

// Extract computes the full feature bundle for text.  Deterministic and
// side-effect free; callers cache the result keyed by the normalized source.
func (e *Extractor) Extract(text string) *ProductFeatures {
	normalized := e.Normalize(text)

	f := &ProductFeatures{
		Source:   normalized,
		Phonetic: e.phoneticFn(normalized),
	}

	tokens := tokenize(normalized)
	stemmed := make([]string, len(tokens))
	for i, tok := range tokens {
		stemmed[i] = stem(tok)
	}

	f.Brand = scanLongestMatch(normalized, e.tables.brandScan)
	f.Category = scanLongestMatch(normalized, e.tables.categoryScan)

	if m := sizePattern.FindStringSubmatch(normalized); m != nil {
		if size, err := strconv.ParseFloat(m[1], 64); err == nil {
			if unit, ok := e.tables.CanonicalUnit(m[2]); ok {
				f.Size = size
				f.Unit = unit
				f.HasSize = true
			}
		}
	}

	f.Keywords = buildKeywords(stemmed, f)
	f.Stats = computeStats(normalized, tokens)
	f.KeywordSet()
	return f
}

// tokenize splits on whitespace after stripping punctuation other than hyphens
// and apostrophes, dropping tokens of length one or less.
func tokenize(s string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'' {
			return r
		}
		return ' '
	}, s)

	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) > 1 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// stem applies the fixed suffix-stripping rules in priority order; the first
// matching rule wins.  A suffix is only stripped when enough of the token
// remains for the result to stay meaningful.
func stem(token string) string {
	type rule struct {
		suffix  string
		replace string
	}
	rules := []rule{
		{"ies", "y"},
		{"es", ""},
		{"s", ""},
		{"ed", ""},
		{"ing", ""},
	}
	for _, r := range rules {
		if strings.HasSuffix(token, r.suffix) && len(token) > len(r.suffix)+1 {
			if r.suffix == "s" && strings.HasSuffix(token, "ss") {
				continue
			}
			return token[:len(token)-len(r.suffix)] + r.replace
		}
	}
	return token
}

// scanLongestMatch returns the canonical term of the longest table entry found
// in s as a word-bounded substring, or "" when nothing matches.  The scan list
// is pre-sorted by descending term length so the first hit is the longest.
func scanLongestMatch(s string, terms []scanTerm) string {
	for _, t := range terms {
		if containsWord(s, t.term) {
			return t.canonical
		}
	}
	return ""
}

// containsWord reports whether term occurs in s at word boundaries.
func containsWord(s, term string) bool {
	for start := 0; ; {
		idx := strings.Index(s[start:], term)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(term)
		beforeOK := idx == 0 || !isWordChar(rune(s[idx-1]))
		afterOK := end == len(s) || !isWordChar(rune(s[end]))
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// buildKeywords deduplicates the stemmed tokens and removes tokens contained
// in the extracted brand or equal to the extracted size value.
func buildKeywords(stemmed []string, f *ProductFeatures) []string {
	sizeStr := ""
	if f.HasSize {
		sizeStr = strconv.FormatFloat(f.Size, 'f', -1, 64)
	}
	seen := make(map[string]bool, len(stemmed))
	var keywords []string
	for _, tok := range stemmed {
		if seen[tok] {
			continue
		}
		if f.Brand != "" && strings.Contains(f.Brand, tok) {
			continue
		}
		if sizeStr != "" && tok == sizeStr {
			continue
		}
		seen[tok] = true
		keywords = append(keywords, tok)
	}
	return keywords
}

func computeStats(normalized string, tokens []string) NumericStats {
	stats := NumericStats{
		Length:          len(normalized),
		WordCount:       len(tokens),
		DigitGroupCount: len(digitGroupPattern.FindAllString(normalized, -1)),
	}
	if len(tokens) > 0 {
		total := 0
		unique := make(map[string]bool, len(tokens))
		for _, tok := range tokens {
			total += len(tok)
			unique[tok] = true
		}
		stats.AvgWordLength = float64(total) / float64(len(tokens))
		stats.UniqueWordCount = len(unique)
	}
	return stats
}

// PhoneticKey computes a coarse sound-alike fingerprint: keep the first rune,
// drop vowels elsewhere, and collapse runs of repeated consonants.
func PhoneticKey(s string) string {
	var b strings.Builder
	var prev rune
	first := true
	for _, r := range strings.ToLower(s) {
		if !unicode.IsLetter(r) {
			continue
		}
		if first {
			b.WriteRune(r)
			prev = r
			first = false
			continue
		}
		if isVowel(r) {
			prev = r
			continue
		}
		if r == prev {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
