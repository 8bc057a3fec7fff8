package core

import (
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/unicode/norm"
)

// makeRow builds a RawRow from parallel header and value lists.
func makeRow(cols []string, vals ...string) RawRow {
	row := make(RawRow, len(cols))
	for i, c := range cols {
		row[i].Column = c
		if i < len(vals) {
			row[i].Value = vals[i]
		}
	}
	return row
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"text", "text"},
		{"  Texto  ", "texto"},
		{"Descripción", "descripcion"},
		{"CATEGORÍA", "categoria"},
		{norm.NFD.String("Descripción"), "descripcion"},
		{norm.NFD.String("CATEGORÍA"), "categoria"},
		{"Ñandú", "nandu"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeHeader(tt.in); got != tt.want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveColumns(t *testing.T) {
	tests := []struct {
		name      string
		row       RawRow
		wantText  RoleMatch
		wantLabel RoleMatch
	}{
		{
			name:      "exact aliases",
			row:       makeRow([]string{"text", "label"}, "hola", "saludo"),
			wantText:  RoleMatch{Column: "text", Index: 0, Value: "hola", Source: MatchAlias},
			wantLabel: RoleMatch{Column: "label", Index: 1, Value: "saludo", Source: MatchAlias},
		},
		{
			name:      "case and accents folded",
			row:       makeRow([]string{"Descripción ", "CATEGORÍA"}, "envío tarde", "queja"),
			wantText:  RoleMatch{Column: "Descripción ", Index: 0, Value: "envío tarde", Source: MatchAlias},
			wantLabel: RoleMatch{Column: "CATEGORÍA", Index: 1, Value: "queja", Source: MatchAlias},
		},
		{
			name:      "aliases anywhere in the row",
			row:       makeRow([]string{"id", "mensaje", "etiqueta"}, "7", "hola", "x"),
			wantText:  RoleMatch{Column: "mensaje", Index: 1, Value: "hola", Source: MatchAlias},
			wantLabel: RoleMatch{Column: "etiqueta", Index: 2, Value: "x", Source: MatchAlias},
		},
		{
			name:      "blank alias value falls through to next alias",
			row:       makeRow([]string{"text", "label", "texto"}, "  ", "a", "hola"),
			wantText:  RoleMatch{Column: "texto", Index: 2, Value: "hola", Source: MatchAlias},
			wantLabel: RoleMatch{Column: "label", Index: 1, Value: "a", Source: MatchAlias},
		},
		{
			name:      "alias priority beats column order",
			row:       makeRow([]string{"mensaje", "text", "label"}, "second", "first", "l"),
			wantText:  RoleMatch{Column: "text", Index: 1, Value: "first", Source: MatchAlias},
			wantLabel: RoleMatch{Column: "label", Index: 2, Value: "l", Source: MatchAlias},
		},
		{
			name:      "positional fallback",
			row:       makeRow([]string{"col1", "col2", "col3"}, "a", "b", "c"),
			wantText:  RoleMatch{Column: "col1", Index: 0, Value: "a", Source: MatchPosition},
			wantLabel: RoleMatch{Column: "col2", Index: 1, Value: "b", Source: MatchPosition},
		},
		{
			name:      "text falls back past the label column",
			row:       makeRow([]string{"label", "foo"}, "x", "y"),
			wantText:  RoleMatch{Column: "foo", Index: 1, Value: "y", Source: MatchPosition},
			wantLabel: RoleMatch{Column: "label", Index: 0, Value: "x", Source: MatchAlias},
		},
		{
			name:      "label wraps around past the text column",
			row:       makeRow([]string{"foo", "text"}, "a", "b"),
			wantText:  RoleMatch{Column: "text", Index: 1, Value: "b", Source: MatchAlias},
			wantLabel: RoleMatch{Column: "foo", Index: 0, Value: "a", Source: MatchPosition},
		},
		{
			name:      "positional fallback keeps blank values",
			row:       makeRow([]string{"text", "label"}, "", ""),
			wantText:  RoleMatch{Column: "text", Index: 0, Value: "", Source: MatchPosition},
			wantLabel: RoleMatch{Column: "label", Index: 1, Value: "", Source: MatchPosition},
		},
		{
			name:      "single column has no label",
			row:       makeRow([]string{"foo"}, "a"),
			wantText:  RoleMatch{Column: "foo", Index: 0, Value: "a", Source: MatchPosition},
			wantLabel: RoleMatch{},
		},
		{
			name:      "empty row",
			row:       RawRow{},
			wantText:  RoleMatch{},
			wantLabel: RoleMatch{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveColumns(tt.row, DefaultAliasTable())
			if got.Text != tt.wantText {
				t.Errorf("Text = %+v, want %+v", got.Text, tt.wantText)
			}
			if got.Label != tt.wantLabel {
				t.Errorf("Label = %+v, want %+v", got.Label, tt.wantLabel)
			}
			if got.Text.Found() && got.Label.Found() && got.Text.Index == got.Label.Index {
				t.Errorf("both roles resolved to column %d", got.Text.Index)
			}
		})
	}
}

func TestResolveColumns_CustomAliases(t *testing.T) {
	aliases := ColumnAliasTable{Text: []string{"frase"}, Label: []string{"ods"}}
	row := makeRow([]string{"text", "ODS", "Frase"}, "ignored", "3", "agua limpia")

	got := ResolveColumns(row, aliases)
	if got.Text.Column != "Frase" || got.Text.Source != MatchAlias {
		t.Errorf("Text = %+v, want alias match on Frase", got.Text)
	}
	if got.Label.Column != "ODS" || got.Label.Source != MatchAlias {
		t.Errorf("Label = %+v, want alias match on ODS", got.Label)
	}
}

func TestDefaultAliasTable_IsACopy(t *testing.T) {
	a := DefaultAliasTable()
	a.Text[0] = "changed"
	if b := DefaultAliasTable(); b.Text[0] != "text" {
		t.Errorf("DefaultAliasTable() shares storage, got %q", b.Text[0])
	}
}

func TestColumnAliasTable_Validate(t *testing.T) {
	tests := []struct {
		name    string
		table   ColumnAliasTable
		wantErr string
	}{
		{"defaults", DefaultAliasTable(), ""},
		{"no text aliases", ColumnAliasTable{Label: []string{"label"}}, "text role has no aliases"},
		{"no label aliases", ColumnAliasTable{Text: []string{"text"}}, "label role has no aliases"},
		{"blank alias", ColumnAliasTable{Text: []string{" "}, Label: []string{"label"}}, "blank alias"},
		{"shared alias", ColumnAliasTable{Text: []string{"Nota"}, Label: []string{"nota"}}, "listed for both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestColumnAliasTable_Merge(t *testing.T) {
	base := ColumnAliasTable{Text: []string{"text"}, Label: []string{"label"}}

	got, err := base.Merge(ColumnAliasTable{Text: []string{"TEXT", " Frase "}, Label: []string{"ODS"}})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	want := ColumnAliasTable{Text: []string{"text", "frase"}, Label: []string{"label", "ods"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}
	if len(base.Text) != 1 {
		t.Errorf("Merge() modified the receiver: %+v", base)
	}

	if _, err := base.Merge(ColumnAliasTable{Label: []string{"text"}}); err == nil {
		t.Error("Merge() with an alias shared by both roles should fail")
	}
}
