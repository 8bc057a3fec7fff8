package core

import (
	"fmt"
	"strings"
)

// NormalizeRows resolves every row into a TrainingRecord.
//
// Rows whose text or label is blank after trimming are dropped silently.
// Only the case where nothing survives is an error (ErrNoValidRows).
// Surviving records keep source order.
func NormalizeRows(rows []RawRow, aliases ColumnAliasTable) ([]TrainingRecord, error) {
	records := make([]TrainingRecord, 0, len(rows))
	for _, row := range rows {
		if rec, ok := normalizeRow(row, aliases); ok {
			records = append(records, rec)
		}
	}

	if len(records) == 0 {
		return nil, noValidRowsError(rows, aliases)
	}
	return records, nil
}

func normalizeRow(row RawRow, aliases ColumnAliasTable) (TrainingRecord, bool) {
	return recordFrom(ResolveColumns(row, aliases))
}

func recordFrom(res Resolution) (TrainingRecord, bool) {
	rec := TrainingRecord{
		Text:  strings.TrimSpace(res.Text.Value),
		Label: strings.TrimSpace(res.Label.Value),
	}
	return rec, rec.Text != "" && rec.Label != ""
}

func noValidRowsError(rows []RawRow, aliases ColumnAliasTable) error {
	found := "none"
	if len(rows) > 0 {
		found = strings.Join(rows[0].Columns(), ", ")
	}
	return fmt.Errorf("%w: no row has both a text and a label; expected a text column (%s) and a label column (%s), found columns: %s",
		ErrNoValidRows,
		strings.Join(aliases.Text, ", "),
		strings.Join(aliases.Label, ", "),
		found,
	)
}
