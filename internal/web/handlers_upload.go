package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/JonMunkholm/textclass/internal/logging"
	"github.com/JonMunkholm/textclass/internal/storage"
)

// readUpload enforces the upload size limit and returns the "file" part.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) || strings.Contains(err.Error(), "request body too large") {
			return nil, nil, fmt.Errorf("%w: limit is %d bytes", errFileTooLarge, maxSize)
		}
		return nil, nil, fmt.Errorf("%w: %w", errInvalidRequest, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, errNoFile
	}
	return file, header, nil
}

// handleRetrain retrains the model from an uploaded CSV or Excel file.
func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()

	if err := s.limiter.Acquire(r.Context()); err != nil {
		w.Header().Set("Retry-After", "30")
		respondError(w, r, err, statusFor(err))
		return
	}
	defer s.limiter.Release()

	result, err := s.service.Retrain(r.Context(), header.Filename, file)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type retrainObjectRequest struct {
	Key string `json:"key"`
}

// handleRetrainObject retrains the model from a file in object storage.
func (s *Server) handleRetrainObject(w http.ResponseWriter, r *http.Request) {
	if s.deps.Objects == nil {
		respondError(w, r, storage.ErrNotConfigured, http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Predict.MaxBodyBytes)
	var req retrainObjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		err = fmt.Errorf("%w: %w", errInvalidRequest, err)
		respondError(w, r, err, statusFor(err))
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		respondError(w, r, fmt.Errorf("%w: key is required", errInvalidRequest), http.StatusBadRequest)
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		w.Header().Set("Retry-After", "30")
		respondError(w, r, err, statusFor(err))
		return
	}
	defer s.limiter.Release()

	data, err := s.deps.Objects.Fetch(r.Context(), req.Key)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	logging.WithFields(r.Context(), "key", req.Key, "bytes", len(data)).Info("retrain from stored object")

	result, err := s.service.Retrain(r.Context(), path.Base(req.Key), bytes.NewReader(data))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handlePreview shows what a retrain with the uploaded file would send,
// without contacting the classifier.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()

	preview, err := s.service.Preview(r.Context(), header.Filename, file)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, preview)
}
