package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ColumnAliasTable lists the recognized header names for each role, in
// priority order. The two lists must not share a name.
type ColumnAliasTable struct {
	Text  []string `json:"text" yaml:"text"`
	Label []string `json:"label" yaml:"label"`
}

var defaultTextAliases = []string{
	"text", "texto", "textos", "texts", "message", "mensaje", "descripcion", "contenido",
}

var defaultLabelAliases = []string{
	"label", "labels", "etiqueta", "etiquetas", "class", "categoria", "cat", "category",
}

// DefaultAliasTable returns a fresh copy of the built-in alias table.
func DefaultAliasTable() ColumnAliasTable {
	return ColumnAliasTable{
		Text:  append([]string(nil), defaultTextAliases...),
		Label: append([]string(nil), defaultLabelAliases...),
	}
}

// Validate checks that both roles have aliases and no alias serves both.
func (t ColumnAliasTable) Validate() error {
	var errs []error
	if len(t.Text) == 0 {
		errs = append(errs, errors.New("text role has no aliases"))
	}
	if len(t.Label) == 0 {
		errs = append(errs, errors.New("label role has no aliases"))
	}

	textKeys := make(map[string]bool, len(t.Text))
	for _, a := range t.Text {
		key := NormalizeHeader(a)
		if key == "" {
			errs = append(errs, errors.New("text role has a blank alias"))
			continue
		}
		textKeys[key] = true
	}
	for _, a := range t.Label {
		key := NormalizeHeader(a)
		if key == "" {
			errs = append(errs, errors.New("label role has a blank alias"))
			continue
		}
		if textKeys[key] {
			errs = append(errs, fmt.Errorf("alias %q is listed for both text and label", a))
		}
	}
	return errors.Join(errs...)
}

// Merge appends extra aliases after the existing ones, skipping names already
// present, and validates the result.
func (t ColumnAliasTable) Merge(extra ColumnAliasTable) (ColumnAliasTable, error) {
	merged := ColumnAliasTable{
		Text:  appendUnique(append([]string(nil), t.Text...), extra.Text),
		Label: appendUnique(append([]string(nil), t.Label...), extra.Label),
	}
	if err := merged.Validate(); err != nil {
		return ColumnAliasTable{}, fmt.Errorf("invalid alias table: %w", err)
	}
	return merged, nil
}

func appendUnique(dst, extra []string) []string {
	seen := make(map[string]bool, len(dst)+len(extra))
	for _, a := range dst {
		seen[NormalizeHeader(a)] = true
	}
	for _, a := range extra {
		key := NormalizeHeader(a)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		dst = append(dst, key)
	}
	return dst
}

// NormalizeHeader trims, lowercases and strips diacritics from a header name,
// so "  Descripción " and "descripcion" compare equal.
func NormalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if isASCII(s) {
		return s
	}
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		return s
	}
	return folded
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// MatchSource records how a role was resolved.
type MatchSource string

const (
	MatchNone     MatchSource = ""
	MatchAlias    MatchSource = "alias"
	MatchPosition MatchSource = "position"
)

// RoleMatch is the column chosen for one role.
type RoleMatch struct {
	Column string
	Index  int
	Value  string
	Source MatchSource
}

// Found reports whether any column was assigned to the role.
func (m RoleMatch) Found() bool { return m.Source != MatchNone }

// Resolution is the outcome of resolving one row.
type Resolution struct {
	Text  RoleMatch
	Label RoleMatch
}

// ResolveColumns decides which cell of row plays the text role and which the
// label role.
//
// Aliases are tried first, in priority order; the first matching column with a
// non-blank value wins. A role with no alias match falls back to position:
// text prefers the first column and label the second. A column already taken
// by the other role is skipped and the scan moves on to the next one.
func ResolveColumns(row RawRow, aliases ColumnAliasTable) Resolution {
	keys := make([]string, len(row))
	for i, c := range row {
		keys[i] = NormalizeHeader(c.Column)
	}

	res := Resolution{
		Text:  matchAlias(row, keys, aliases.Text),
		Label: matchAlias(row, keys, aliases.Label),
	}
	if !res.Text.Found() {
		res.Text = matchPosition(row, 0, res.Label)
	}
	if !res.Label.Found() {
		res.Label = matchPosition(row, 1, res.Text)
	}
	return res
}

func matchAlias(row RawRow, keys []string, aliases []string) RoleMatch {
	for _, alias := range aliases {
		want := NormalizeHeader(alias)
		for i, key := range keys {
			if key == want && strings.TrimSpace(row[i].Value) != "" {
				return RoleMatch{Column: row[i].Column, Index: i, Value: row[i].Value, Source: MatchAlias}
			}
		}
	}
	return RoleMatch{}
}

func matchPosition(row RawRow, preferred int, taken RoleMatch) RoleMatch {
	n := len(row)
	for step := 0; step < n; step++ {
		i := (preferred + step) % n
		if taken.Found() && taken.Index == i {
			continue
		}
		return RoleMatch{Column: row[i].Column, Index: i, Value: row[i].Value, Source: MatchPosition}
	}
	return RoleMatch{}
}
