package core

// Cell is one column value of a RawRow, keyed by the header it appeared under.
type Cell struct {
	Column string
	Value  string
}

// RawRow is one data row of a tabular file in source column order.
// Both row sources yield strings only; empty cells are "".
type RawRow []Cell

// Columns returns the row's header names in source order.
func (r RawRow) Columns() []string {
	cols := make([]string, len(r))
	for i, c := range r {
		cols[i] = c.Column
	}
	return cols
}

// TrainingRecord is one text/label pair ready to be sent for retraining.
// Both fields are trimmed and non-empty.
type TrainingRecord struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// PredictionResult is the classifier's answer for one classification unit,
// positionally aligned with the units that were sent.
type PredictionResult struct {
	PredictedClass string   `json:"predictedClass"`
	Confidence     *float64 `json:"confidence"`
	ElapsedMs      int64    `json:"elapsedMs"`
}

// MissingMetric is the display placeholder for an absent or non-numeric metric.
const MissingMetric = "—"

// ClassMetricRow is one per-class line of a training report, pre-formatted
// with two decimals or MissingMetric.
type ClassMetricRow struct {
	ClassName string `json:"className"`
	Precision string `json:"precision"`
	Recall    string `json:"recall"`
	F1        string `json:"f1"`
}

// TrainingReport is the canonical shape of a retrain response.
type TrainingReport struct {
	PrecisionMacro *float64         `json:"precisionMacro"`
	RecallMacro    *float64         `json:"recallMacro"`
	F1Macro        *float64         `json:"f1Macro"`
	PerClass       []ClassMetricRow `json:"perClass"`

	// Optional extras some service versions include.
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Message   string   `json:"message,omitempty"`
	TrainSize *int     `json:"trainSize,omitempty"`
	TestSize  *int     `json:"testSize,omitempty"`
}
