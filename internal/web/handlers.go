package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/textclass/internal/classifier"
	"github.com/JonMunkholm/textclass/internal/core"
	"github.com/JonMunkholm/textclass/internal/logging"
)

// healthCheckTimeout bounds the remote /health call made by GET /health.
const healthCheckTimeout = 5 * time.Second

type predictRequest struct {
	Text  string `json:"text"`
	Split *bool  `json:"split,omitempty"` // default true
}

// handlePredict classifies free text, one result per paragraph unless split
// is false.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Predict.MaxBodyBytes)

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		err = fmt.Errorf("%w: %w", errInvalidRequest, err)
		respondError(w, r, err, statusFor(err))
		return
	}

	text := strings.TrimSpace(req.Text)
	if n := utf8.RuneCountInString(text); n < s.cfg.Predict.MinTextLength {
		err := fmt.Errorf("%w: %d characters, need at least %d", errTextTooShort, n, s.cfg.Predict.MinTextLength)
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	var (
		out *core.PredictOutcome
		err error
	)
	if req.Split == nil || *req.Split {
		out, err = s.service.Predict(r.Context(), text)
	} else {
		var results []core.PredictionResult
		results, err = s.service.PredictUnits(r.Context(), []string{text})
		out = &core.PredictOutcome{Units: []string{text}, Results: results}
	}
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	logging.FromContext(r.Context()).Info("predict completed", "units", len(out.Units))
	writeJSON(w, http.StatusOK, out)
}

// handleAliases returns the column alias table in use.
func (s *Server) handleAliases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Aliases())
}

type runsResponse struct {
	Runs []core.TrainingRun `json:"runs"`
}

// handleRuns lists recent retrain runs.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runs == nil {
		respondError(w, r, errHistoryDisabled, http.StatusServiceUnavailable)
		return
	}

	limit, err := parseLimit(r, 20)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	runs, err := s.deps.Runs.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if runs == nil {
		runs = []core.TrainingRun{}
	}
	writeJSON(w, http.StatusOK, runsResponse{Runs: runs})
}

// parseLimit reads the limit query parameter. Missing means defaultVal.
func parseLimit(r *http.Request, defaultVal int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer, got %q", errInvalidRequest, raw)
	}
	return n, nil
}

type healthResponse struct {
	Status          string             `json:"status"`
	Classifier      *classifier.Health `json:"classifier,omitempty"`
	ClassifierError string             `json:"classifierError,omitempty"`
	Retrains        core.LimiterStatus `json:"retrains"`
}

// handleHealth reports gateway liveness. A failing classifier makes the
// status "degraded" but still answers 200 so the gateway is not restarted
// for a remote outage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Retrains: s.limiter.Status()}

	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		h, err := s.deps.Health.Health(ctx)
		if err != nil {
			resp.Status = "degraded"
			resp.ClassifierError = core.MapError(err).Message
			logging.FromContext(r.Context()).Warn("classifier health check failed", "error", err)
		} else {
			resp.Classifier = &h
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
