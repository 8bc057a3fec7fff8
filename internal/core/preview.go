package core

import (
	"context"
	"io"
	"log/slog"
	"sort"
)

// PreviewSummary contains the summary counts for a training file preview.
type PreviewSummary struct {
	Format      FileFormat `json:"format"`
	TotalRows   int        `json:"totalRows"`
	ValidRows   int        `json:"validRows"`
	DroppedRows int        `json:"droppedRows"`
	LabelCount  int        `json:"labelCount"`
}

// ColumnUsage counts how often a column filled a role, and how.
type ColumnUsage struct {
	Role   string      `json:"role"`
	Column string      `json:"column"`
	Source MatchSource `json:"source"`
	Rows   int         `json:"rows"`
}

// DroppedRowPreview is a row that would not be sent for training.
// RowNumber counts data rows from 1, after blank rows were skipped.
type DroppedRowPreview struct {
	RowNumber int               `json:"rowNumber"`
	Values    map[string]string `json:"values"`
	Reason    string            `json:"reason"`
}

// LabelCount is the number of valid records carrying a label.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// PreviewResponse describes what a retrain with this file would send.
type PreviewResponse struct {
	Summary          PreviewSummary      `json:"summary"`
	Columns          []string            `json:"columns"`
	ColumnUsage      []ColumnUsage       `json:"columnUsage"`
	Labels           []LabelCount        `json:"labels"`
	Samples          []TrainingRecord    `json:"samples"`
	DroppedSamples   []DroppedRowPreview `json:"droppedSamples"`
	ProcessingTimeMs int64               `json:"processingTimeMs"`
}

// Sample limits
const (
	maxRecordSamples  = 10
	maxDroppedSamples = 20
)

// Preview parses and normalizes a training file without contacting the
// classifier. Parse failures are returned as errors; a file where every row is
// dropped is reported through the summary instead.
func (s *Service) Preview(ctx context.Context, filename string, r io.Reader) (*PreviewResponse, error) {
	start := s.now()

	src, err := SourceFor(filename)
	if err != nil {
		return nil, err
	}
	rows, err := src.ReadRows(r)
	if err != nil {
		return nil, err
	}

	resp := &PreviewResponse{
		Summary:        PreviewSummary{Format: src.Format(), TotalRows: len(rows)},
		Columns:        rows[0].Columns(),
		Samples:        []TrainingRecord{},
		DroppedSamples: []DroppedRowPreview{},
	}

	usage := make(map[ColumnUsage]int)
	var usageOrder []ColumnUsage
	labels := make(map[string]int)
	count := func(role string, m RoleMatch) {
		if !m.Found() {
			return
		}
		key := ColumnUsage{Role: role, Column: m.Column, Source: m.Source}
		if _, ok := usage[key]; !ok {
			usageOrder = append(usageOrder, key)
		}
		usage[key]++
	}

	for i, row := range rows {
		res := ResolveColumns(row, s.aliases)
		rec, ok := recordFrom(res)
		if !ok {
			resp.Summary.DroppedRows++
			if len(resp.DroppedSamples) < maxDroppedSamples {
				resp.DroppedSamples = append(resp.DroppedSamples, DroppedRowPreview{
					RowNumber: i + 1,
					Values:    rowValues(row),
					Reason:    dropReason(rec),
				})
			}
			continue
		}

		resp.Summary.ValidRows++
		count("text", res.Text)
		count("label", res.Label)
		labels[rec.Label]++
		if len(resp.Samples) < maxRecordSamples {
			resp.Samples = append(resp.Samples, rec)
		}
	}

	resp.ColumnUsage = make([]ColumnUsage, 0, len(usageOrder))
	for _, key := range usageOrder {
		key.Rows = usage[key]
		resp.ColumnUsage = append(resp.ColumnUsage, key)
	}

	resp.Labels = make([]LabelCount, 0, len(labels))
	for label, n := range labels {
		resp.Labels = append(resp.Labels, LabelCount{Label: label, Count: n})
	}
	sort.Slice(resp.Labels, func(i, j int) bool {
		if resp.Labels[i].Count != resp.Labels[j].Count {
			return resp.Labels[i].Count > resp.Labels[j].Count
		}
		return resp.Labels[i].Label < resp.Labels[j].Label
	})
	resp.Summary.LabelCount = len(resp.Labels)

	resp.ProcessingTimeMs = s.now().Sub(start).Milliseconds()
	s.metrics.ObserveIngest(string(src.Format()), "preview", resp.Summary.ValidRows, resp.Summary.DroppedRows)
	slog.DebugContext(ctx, "preview completed",
		"file", filename,
		"rows", resp.Summary.TotalRows,
		"valid", resp.Summary.ValidRows,
	)
	return resp, nil
}

func rowValues(row RawRow) map[string]string {
	values := make(map[string]string, len(row))
	for _, c := range row {
		values[c.Column] = c.Value
	}
	return values
}

func dropReason(rec TrainingRecord) string {
	switch {
	case rec.Text == "" && rec.Label == "":
		return "missing text and label"
	case rec.Text == "":
		return "missing text"
	default:
		return "missing label"
	}
}
