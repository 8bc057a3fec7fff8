package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestNormalizeRows(t *testing.T) {
	cols := []string{"Texto", "Etiqueta", "id"}
	tests := []struct {
		name string
		rows []RawRow
		want []TrainingRecord
	}{
		{
			name: "trims values",
			rows: []RawRow{makeRow(cols, "  hola mundo ", " saludo\t", "1")},
			want: []TrainingRecord{{Text: "hola mundo", Label: "saludo"}},
		},
		{
			name: "drops rows missing text or label and keeps order",
			rows: []RawRow{
				makeRow(cols, "uno", "a", "1"),
				makeRow(cols, "", "b", "2"),
				makeRow(cols, "tres", "   ", "3"),
				makeRow(cols, "cuatro", "c", "4"),
			},
			want: []TrainingRecord{{Text: "uno", Label: "a"}, {Text: "cuatro", Label: "c"}},
		},
		{
			name: "positional columns",
			rows: []RawRow{makeRow([]string{"a", "b"}, "some text", "lbl")},
			want: []TrainingRecord{{Text: "some text", Label: "lbl"}},
		},
		{
			name: "resolution is per row",
			rows: []RawRow{
				makeRow([]string{"text", "texto", "label"}, "first", "", "x"),
				makeRow([]string{"text", "texto", "label"}, "", "second", "y"),
			},
			want: []TrainingRecord{{Text: "first", Label: "x"}, {Text: "second", Label: "y"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeRows(tt.rows, DefaultAliasTable())
			if err != nil {
				t.Fatalf("NormalizeRows() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeRows() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeRows_NoValidRows(t *testing.T) {
	tests := []struct {
		name      string
		rows      []RawRow
		wantFound string
	}{
		{
			name:      "single column",
			rows:      []RawRow{makeRow([]string{"comentario"}, "solo texto")},
			wantFound: "found columns: comentario",
		},
		{
			name: "every row blank in one role",
			rows: []RawRow{
				makeRow([]string{"text", "label"}, "a", ""),
				makeRow([]string{"text", "label"}, "", "b"),
			},
			wantFound: "found columns: text, label",
		},
		{
			name:      "no rows",
			rows:      nil,
			wantFound: "found columns: none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeRows(tt.rows, DefaultAliasTable())
			if !errors.Is(err, ErrNoValidRows) {
				t.Fatalf("NormalizeRows() error = %v, want ErrNoValidRows", err)
			}
			if got != nil {
				t.Errorf("NormalizeRows() records = %+v, want nil", got)
			}
			msg := err.Error()
			if !strings.Contains(msg, tt.wantFound) {
				t.Errorf("error %q does not contain %q", msg, tt.wantFound)
			}
			if !strings.Contains(msg, "texto") || !strings.Contains(msg, "etiqueta") {
				t.Errorf("error %q does not list the expected aliases", msg)
			}
		})
	}
}
