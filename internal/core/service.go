package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/textclass/internal/logging"
	"github.com/JonMunkholm/textclass/internal/metrics"
	"github.com/google/uuid"
)

// Classifier is the remote classification service. Both calls return the raw
// response body of a successful reply; non-2xx replies come back as
// *ServiceError.
type Classifier interface {
	Predict(ctx context.Context, texts []string) ([]byte, error)
	Retrain(ctx context.Context, texts, labels []string) ([]byte, error)
}

// RunRecorder persists a summary of each retrain attempt.
type RunRecorder interface {
	RecordRun(ctx context.Context, run TrainingRun) error
}

// TrainingRun summarizes one retrain attempt. It never holds the records.
type TrainingRun struct {
	ID         string          `json:"id"`
	FileName   string          `json:"fileName"`
	Format     FileFormat      `json:"format,omitempty"`
	Rows       int             `json:"rows"`
	Records    int             `json:"records"`
	Report     *TrainingReport `json:"report,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"startedAt"`
	DurationMs int64           `json:"durationMs"`
}

// Succeeded reports whether the run produced a report.
func (r TrainingRun) Succeeded() bool { return r.Error == "" }

// RetrainResult is returned by Service.Retrain.
type RetrainResult struct {
	RunID     string         `json:"runId"`
	FileName  string         `json:"fileName"`
	Records   int            `json:"records"`
	Dropped   int            `json:"dropped"`
	ElapsedMs int64          `json:"elapsedMs"`
	Report    TrainingReport `json:"report"`
}

// PredictOutcome pairs the units sent to the classifier with their results,
// index for index.
type PredictOutcome struct {
	Units   []string           `json:"units"`
	Results []PredictionResult `json:"results"`
}

// Service composes the splitter, row sources, normalizers and the remote
// classifier into the predict and retrain operations.
//
// A Service holds no per-call state and is safe for concurrent use. Calls are
// not deduplicated or queued.
type Service struct {
	classifier Classifier
	aliases    ColumnAliasTable
	recorder   RunRecorder
	metrics    *metrics.Metrics
	maxUnits   int
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAliases replaces the built-in column alias table.
func WithAliases(t ColumnAliasTable) Option {
	return func(s *Service) { s.aliases = t }
}

// WithRunRecorder records every retrain attempt.
func WithRunRecorder(r RunRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithMetrics reports ingestion and batch-size metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMaxUnits caps the units of one prediction call. Zero means no cap.
func WithMaxUnits(n int) Option {
	return func(s *Service) { s.maxUnits = n }
}

// NewService creates a Service around classifier.
func NewService(classifier Classifier, opts ...Option) (*Service, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	s := &Service{
		classifier: classifier,
		aliases:    DefaultAliasTable(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.aliases.Validate(); err != nil {
		return nil, fmt.Errorf("invalid alias table: %w", err)
	}
	return s, nil
}

// Aliases returns a copy of the alias table in use.
func (s *Service) Aliases() ColumnAliasTable {
	return ColumnAliasTable{
		Text:  append([]string(nil), s.aliases.Text...),
		Label: append([]string(nil), s.aliases.Label...),
	}
}

// Predict splits rawText into paragraphs and classifies them in one request.
// The outcome carries the units exactly as they were sent.
func (s *Service) Predict(ctx context.Context, rawText string) (*PredictOutcome, error) {
	units := SplitParagraphs(rawText)
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: no text to classify", ErrEmptyInput)
	}
	results, err := s.predict(ctx, units)
	if err != nil {
		return nil, err
	}
	return &PredictOutcome{Units: units, Results: results}, nil
}

// PredictUnits classifies units as given, one result per unit. Units are
// trimmed; a blank unit is rejected.
func (s *Service) PredictUnits(ctx context.Context, units []string) ([]PredictionResult, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: no text to classify", ErrEmptyInput)
	}
	clean := make([]string, len(units))
	for i, u := range units {
		clean[i] = strings.TrimSpace(u)
		if clean[i] == "" {
			return nil, fmt.Errorf("%w: text %d is blank", ErrEmptyInput, i+1)
		}
	}
	return s.predict(ctx, clean)
}

func (s *Service) predict(ctx context.Context, units []string) ([]PredictionResult, error) {
	if s.maxUnits > 0 && len(units) > s.maxUnits {
		return nil, fmt.Errorf("%w: %d paragraphs exceeds the limit of %d", ErrTooManyUnits, len(units), s.maxUnits)
	}

	start := s.now()
	raw, err := s.classifier.Predict(ctx, units)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	results, err := NormalizePrediction(raw)
	if err != nil {
		return nil, err
	}
	if len(results) != len(units) {
		return nil, fmt.Errorf("%w: service returned %d predictions for %d texts",
			ErrShapeMismatch, len(results), len(units))
	}

	elapsed := s.now().Sub(start).Round(time.Millisecond).Milliseconds()
	for i := range results {
		results[i].ElapsedMs = elapsed
	}

	s.metrics.ObservePredictionUnits(len(units))
	slog.DebugContext(ctx, "prediction completed", "units", len(units), "elapsed_ms", elapsed)
	return results, nil
}

// Retrain reads a training file, normalizes it into records and sends them to
// the classifier for retraining. Any parsing failure aborts the call before
// the service is contacted.
func (s *Service) Retrain(ctx context.Context, filename string, r io.Reader) (*RetrainResult, error) {
	start := s.now()
	run := TrainingRun{
		ID:        uuid.NewString(),
		FileName:  filename,
		StartedAt: start,
	}
	logger := logging.WithFields(ctx, "run_id", run.ID, "file", filename)

	result, err := s.retrain(ctx, filename, r, &run)
	elapsed := s.now().Sub(start).Round(time.Millisecond)
	run.DurationMs = elapsed.Milliseconds()
	if err != nil {
		run.Error = err.Error()
		logger.WarnContext(ctx, "retrain failed", "error", err, "records", run.Records)
	} else {
		result.ElapsedMs = run.DurationMs
		logger.InfoContext(ctx, "retrain completed",
			"records", run.Records,
			"dropped", result.Dropped,
			"f1_macro", FormatMetric(result.Report.F1Macro, 3),
			"duration_ms", result.ElapsedMs,
		)
	}

	s.recordRun(ctx, run)
	return result, err
}

func (s *Service) retrain(ctx context.Context, filename string, r io.Reader, run *TrainingRun) (*RetrainResult, error) {
	records, rows, err := s.ingest(filename, r, run)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(records))
	labels := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
		labels[i] = rec.Label
	}
	if len(texts) == 0 || len(texts) != len(labels) {
		return nil, fmt.Errorf("%w: %d texts and %d labels", ErrEmptyInput, len(texts), len(labels))
	}

	s.metrics.ObserveRetrainRecords(len(records))
	raw, err := s.classifier.Retrain(ctx, texts, labels)
	if err != nil {
		return nil, fmt.Errorf("retrain: %w", err)
	}

	report, err := NormalizeTrainingReport(raw)
	if err != nil {
		return nil, err
	}
	run.Report = &report

	return &RetrainResult{
		RunID:    run.ID,
		FileName: filename,
		Records:  len(records),
		Dropped:  rows - len(records),
		Report:   report,
	}, nil
}

// ingest runs the row source and row normalizer, filling in run counters.
func (s *Service) ingest(filename string, r io.Reader, run *TrainingRun) ([]TrainingRecord, int, error) {
	src, err := SourceFor(filename)
	if err != nil {
		s.metrics.ObserveIngest("", ingestOutcome(err), 0, 0)
		return nil, 0, err
	}
	run.Format = src.Format()

	rows, err := src.ReadRows(r)
	if err != nil {
		s.metrics.ObserveIngest(string(run.Format), ingestOutcome(err), 0, 0)
		return nil, 0, err
	}
	run.Rows = len(rows)

	records, err := NormalizeRows(rows, s.aliases)
	s.metrics.ObserveIngest(string(run.Format), ingestOutcome(err), len(records), len(rows)-len(records))
	if err != nil {
		return nil, len(rows), err
	}
	run.Records = len(records)
	return records, len(rows), nil
}

func ingestOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrFileRead):
		return "read_error"
	case errors.Is(err, ErrEmptyFile):
		return "empty_file"
	case errors.Is(err, ErrNoValidRows):
		return "no_valid_rows"
	default:
		return metrics.OutcomeError
	}
}

func (s *Service) recordRun(ctx context.Context, run TrainingRun) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		slog.WarnContext(ctx, "failed to record training run", "run_id", run.ID, "error", err)
	}
}
