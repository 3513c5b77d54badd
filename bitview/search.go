package bitview

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Match is one occurrence of a search needle in rendered text.
type Match struct {
	ByteStart int    // Start position in bytes
	ByteEnd   int    // End position in bytes (exclusive)
	Text      string // The matched text
}

// SearchOptions configures text search behavior.
type SearchOptions struct {
	CaseSensitive bool // If false, search is case-insensitive
	WholeWord     bool // If true, only match whole words
}

// Search finds every occurrence of needle in text and returns the matches
// in document order, as byte spans suitable for highlighting. Matches do
// not overlap; scanning resumes after each match.
func Search(text, needle string, opts SearchOptions) []Match {
	if len(needle) == 0 {
		return nil
	}

	haystack := text
	target := needle
	if !opts.CaseSensitive {
		haystack = strings.ToLower(text)
		target = strings.ToLower(needle)
	}

	var results []Match
	offset := 0
	for offset < len(haystack) {
		idx := strings.Index(haystack[offset:], target)
		if idx == -1 {
			break
		}

		pos := offset + idx
		if opts.WholeWord && !isWholeWord(text, pos, len(needle)) {
			offset = pos + 1
			continue
		}

		results = append(results, Match{
			ByteStart: pos,
			ByteEnd:   pos + len(needle),
			Text:      text[pos : pos+len(needle)],
		})
		offset = pos + len(needle)
	}
	return results
}

func isWholeWord(text string, pos, length int) bool {
	if pos > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:pos])
		if isWordChar(r) {
			return false
		}
	}
	if pos+length < len(text) {
		r, _ := utf8.DecodeRuneInString(text[pos+length:])
		if isWordChar(r) {
			return false
		}
	}
	return true
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
