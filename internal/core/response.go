package core

// response.go maps classifier replies onto PredictionResult and TrainingReport.
//
// Accepted prediction shapes:
//
//	{"predicciones": "3"}
//	{"predicciones": [0, 1], "probabilidades": [0.9, 0.4]}
//
// Accepted training shapes (metrics nested or flat, report in one of several places):
//
//	{"metrics": {"f1_macro": 0.81, "classification_report": {...}}, "train_size": 80}
//	{"precision_macro": 0.8, "report": {"A": {"precision": 0.9, ...}, "macro avg": {...}}}
//
// Nothing untyped leaves this file.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	errNotObject    = errors.New("not a JSON object")
	errTrailingData = errors.New("trailing data after the JSON object")
)

type jsonMember struct {
	Key   string
	Value json.RawMessage
}

// jsonObject is a decoded JSON object in document order. A repeated key keeps
// its first position and its last value. Anything but white space after the
// closing brace makes the body invalid.
type jsonObject []jsonMember

func (o jsonObject) get(key string) (json.RawMessage, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

func decodeObject(raw []byte) (jsonObject, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}

	obj := jsonObject{}
	index := make(map[string]int)
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, errNotObject
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		if i, seen := index[key]; seen {
			obj[i].Value = v
			continue
		}
		index[key] = len(obj)
		obj = append(obj, jsonMember{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return obj, nil
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}

func asArray(v json.RawMessage) ([]json.RawMessage, bool) {
	t := bytes.TrimSpace(v)
	if len(t) == 0 || t[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(t, &items); err != nil {
		return nil, false
	}
	return items, true
}

func asNumber(v json.RawMessage) (float64, bool) {
	t := bytes.TrimSpace(v)
	if len(t) == 0 || (t[0] != '-' && (t[0] < '0' || t[0] > '9')) {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(t), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// scalarString renders a JSON value as display text. Numbers drop trailing
// zeros, null becomes "", and composite values are compacted JSON.
func scalarString(v json.RawMessage) string {
	t := bytes.TrimSpace(v)
	if len(t) == 0 || isNull(t) {
		return ""
	}
	switch t[0] {
	case '"':
		var s string
		if err := json.Unmarshal(t, &s); err == nil {
			return s
		}
	case 't', 'f':
		return string(t)
	case '[', '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, t); err == nil {
			return buf.String()
		}
	default:
		if !bytes.ContainsAny(t, ".eE") {
			return string(t)
		}
		if f, ok := asNumber(t); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return string(t)
}

// NormalizePrediction extracts one PredictionResult per predicted class.
// ElapsedMs is left zero; the caller times the round trip.
func NormalizePrediction(raw []byte) ([]PredictionResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: prediction response is not a JSON object: %v", ErrShapeMismatch, err)
	}

	preds, ok := obj.get("predicciones")
	if !ok || isNull(preds) {
		return nil, fmt.Errorf("%w: prediction response has no \"predicciones\" field", ErrShapeMismatch)
	}
	items, ok := asArray(preds)
	if !ok {
		items = []json.RawMessage{preds}
	}

	var probs []json.RawMessage
	if p, ok := obj.get("probabilidades"); ok {
		probs, _ = asArray(p)
	}

	results := make([]PredictionResult, len(items))
	for i, item := range items {
		results[i].PredictedClass = scalarString(item)
		if i < len(probs) {
			if f, ok := asNumber(probs[i]); ok {
				results[i].Confidence = &f
			}
		}
	}
	return results, nil
}

// classReportKeys lists where a per-class breakdown may live, in precedence order.
var classReportKeys = []struct {
	nested bool
	key    string
}{
	{false, "report"},
	{true, "report"},
	{true, "classification_report"},
	{false, "classification_report"},
}

// NormalizeTrainingReport extracts macro metrics and the per-class breakdown.
// Missing or non-numeric fields become nil or MissingMetric; only a body that
// is not a JSON object is an error.
func NormalizeTrainingReport(raw []byte) (TrainingReport, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return TrainingReport{}, fmt.Errorf("%w: training response is not a JSON object: %v", ErrShapeMismatch, err)
	}

	var metrics jsonObject
	if m, ok := obj.get("metrics"); ok {
		metrics, _ = decodeObject(m)
	}

	report := TrainingReport{
		PrecisionMacro: pickMetric(metrics, obj, "precision_macro"),
		RecallMacro:    pickMetric(metrics, obj, "recall_macro"),
		F1Macro:        pickMetric(metrics, obj, "f1_macro"),
		Accuracy:       pickMetric(metrics, obj, "accuracy"),
		PerClass:       perClassRows(findClassReport(obj, metrics)),
		TrainSize:      pickInt(obj, "train_size"),
		TestSize:       pickInt(obj, "test_size"),
	}
	for _, key := range []string{"mensaje", "message"} {
		if v, ok := obj.get(key); ok {
			if s := scalarString(v); s != "" {
				report.Message = s
				break
			}
		}
	}
	return report, nil
}

// pickMetric prefers metrics.<name>, then the top-level <name>; each must be numeric.
func pickMetric(nested, flat jsonObject, name string) *float64 {
	for _, src := range []jsonObject{nested, flat} {
		if v, ok := src.get(name); ok {
			if f, ok := asNumber(v); ok {
				return &f
			}
		}
	}
	return nil
}

func pickInt(obj jsonObject, name string) *int {
	v, ok := obj.get(name)
	if !ok {
		return nil
	}
	f, ok := asNumber(v)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}

func findClassReport(obj, metrics jsonObject) jsonObject {
	for _, c := range classReportKeys {
		src := obj
		if c.nested {
			src = metrics
		}
		v, ok := src.get(c.key)
		if !ok {
			continue
		}
		if rep, err := decodeObject(v); err == nil {
			return rep
		}
	}
	return nil
}

// perClassRows turns a report object into rows, skipping the overall accuracy
// entry and aggregate "avg" entries.
func perClassRows(report jsonObject) []ClassMetricRow {
	rows := make([]ClassMetricRow, 0, len(report))
	for _, m := range report {
		if m.Key == "accuracy" || strings.Contains(m.Key, "avg") {
			continue
		}
		fields, _ := decodeObject(m.Value)
		rows = append(rows, ClassMetricRow{
			ClassName: m.Key,
			Precision: formatField(fields, "precision"),
			Recall:    formatField(fields, "recall"),
			F1:        formatField(fields, "f1-score"),
		})
	}
	return rows
}

func formatField(fields jsonObject, name string) string {
	if v, ok := fields.get(name); ok {
		if f, ok := asNumber(v); ok {
			return strconv.FormatFloat(f, 'f', 2, 64)
		}
	}
	return MissingMetric
}

// FormatMetric renders an optional metric with the given number of decimals,
// or MissingMetric when absent.
func FormatMetric(v *float64, decimals int) string {
	if v == nil {
		return MissingMetric
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}
