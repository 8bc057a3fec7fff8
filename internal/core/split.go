package core

import (
	"regexp"
	"strings"
	"unicode"
)

// paragraphBreak matches a blank (or whitespace-only) line between two
// stretches of text, or a line made only of three or more dashes. Blank lines
// may hold any Unicode white space: NBSP, ideographic space, vertical tab,
// NEL and a stray BOM all count.
var paragraphBreak = regexp.MustCompile(`(?m)\n[\s\v\p{Z}\x{85}\x{FEFF}]*\n|^---+$`)

// lineEndings normalizes CRLF and lone CR to LF.
var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func isBlankRune(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// SplitParagraphs breaks free text into classification units.
//
// Units are separated by blank lines or by a "---" rule line. Every unit is
// trimmed and empty units are dropped, so the result never contains an empty
// string. Empty or whitespace-only input yields an empty slice.
func SplitParagraphs(input string) []string {
	text := strings.TrimFunc(lineEndings.Replace(input), isBlankRune)
	units := make([]string, 0)
	if text == "" {
		return units
	}

	for _, part := range paragraphBreak.Split(text, -1) {
		if part = strings.TrimFunc(part, isBlankRune); part != "" {
			units = append(units, part)
		}
	}
	return units
}
