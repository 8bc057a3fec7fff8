package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/textclass/internal/core"
	"github.com/JonMunkholm/textclass/internal/metrics"
)

func TestClient_Predict(t *testing.T) {
	var gotBody map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/predict" {
			t.Errorf("request = %s %s, want POST /predict", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"predicciones": ["a", "b"]}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	body, err := c.Predict(context.Background(), []string{"uno", "dos"})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if string(body) != `{"predicciones": ["a", "b"]}` {
		t.Errorf("body = %s", body)
	}
	if want := map[string][]string{"textos": {"uno", "dos"}}; !reflect.DeepEqual(gotBody, want) {
		t.Errorf("sent %v, want %v", gotBody, want)
	}
}

func TestClient_Retrain(t *testing.T) {
	var gotBody map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/retrain" {
			t.Errorf("path = %s, want /retrain", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"metrics": {}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if _, err := c.Retrain(context.Background(), []string{"t1", "t2"}, []string{"l1", "l2"}); err != nil {
		t.Fatalf("Retrain() error = %v", err)
	}
	want := map[string][]string{"textos": {"t1", "t2"}, "labels": {"l1", "l2"}}
	if !reflect.DeepEqual(gotBody, want) {
		t.Errorf("sent %v, want %v", gotBody, want)
	}
}

func TestClient_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"validation error", http.StatusUnprocessableEntity, `{"detail": "textos vacío"}`},
		{"server error", http.StatusInternalServerError, "  internal error\n"},
		{"empty body", http.StatusServiceUnavailable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL, time.Second).Predict(context.Background(), []string{"x"})
			var svcErr *core.ServiceError
			if !errors.As(err, &svcErr) {
				t.Fatalf("Predict() error = %v, want *core.ServiceError", err)
			}
			if svcErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", svcErr.StatusCode, tt.status)
			}
			if svcErr.Body != strings.TrimSpace(tt.body) {
				t.Errorf("Body = %q, want %q", svcErr.Body, strings.TrimSpace(tt.body))
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, 50*time.Millisecond)
	_, err := c.Predict(context.Background(), []string{"x"})
	if err == nil {
		t.Fatal("Predict() should time out")
	}
	if _, ok := core.IsServiceError(err); ok {
		t.Errorf("timeout reported as a service error: %v", err)
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL, time.Second).Retrain(ctx, []string{"x"}, []string{"y"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retrain() error = %v, want context.Canceled", err)
	}
}

func TestClient_MaxResponseBytes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		size     int
		wantErr  error
		wantBody int
	}{
		{name: "under the cap", status: http.StatusOK, size: 9, wantBody: 9},
		{name: "exactly the cap", status: http.StatusOK, size: 10, wantBody: 10},
		{name: "one byte over", status: http.StatusOK, size: 11, wantErr: core.ErrResponseTooLarge},
		{name: "far over", status: http.StatusOK, size: 100, wantErr: core.ErrResponseTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, strings.Repeat("x", tt.size))
			}))
			defer srv.Close()

			body, err := New(srv.URL, time.Second, WithMaxResponseBytes(10)).Predict(context.Background(), []string{"x"})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Predict() error = %v, want %v", err, tt.wantErr)
				}
				if body != nil {
					t.Errorf("Predict() returned %d bytes with the error, want none", len(body))
				}
				return
			}
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			if len(body) != tt.wantBody {
				t.Errorf("read %d bytes, want %d", len(body), tt.wantBody)
			}
		})
	}
}

func TestClient_MaxResponseBytesOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, strings.Repeat("e", 100))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second, WithMaxResponseBytes(10)).Predict(context.Background(), []string{"x"})
	se, ok := core.IsServiceError(err)
	if !ok {
		t.Fatalf("Predict() error = %v, want *core.ServiceError", err)
	}
	if se.StatusCode != http.StatusInternalServerError || len(se.Body) != 10 {
		t.Errorf("ServiceError = %d with %d body bytes, want 500 with 10", se.StatusCode, len(se.Body))
	}
}

func TestClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/health" {
			t.Errorf("request = %s %s, want GET /health", r.Method, r.URL.Path)
		}
		io.WriteString(w, `{"status": "ok", "model_loaded": true}`)
	}))
	defer srv.Close()

	h, err := New(srv.URL, time.Second).Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if h != (Health{Status: "ok", ModelLoaded: true}) {
		t.Errorf("Health() = %+v", h)
	}
}

func TestClient_HealthBadReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>")
	}))
	defer srv.Close()

	if _, err := New(srv.URL, time.Second).Health(context.Background()); err == nil {
		t.Error("Health() with a non-JSON reply should fail")
	}
}

func TestClient_UnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Predict(context.Background(), []string{"x"})
	if err == nil {
		t.Fatal("Predict() against a closed server should fail")
	}
	if got := core.MapError(err).Code; got != "SVC003" {
		t.Errorf("MapError code = %q, want SVC003 for %v", got, err)
	}
}

func TestClient_RecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"predicciones": []}`)
	}))
	defer srv.Close()

	m := metrics.New()
	c := New(srv.URL, time.Second, WithMetrics(m), WithHTTPClient(srv.Client()))
	if _, err := c.Predict(context.Background(), []string{"x"}); err != nil {
		t.Fatal(err)
	}

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	var seen bool
	for _, f := range families {
		if f.GetName() == "textclass_classifier_requests_total" {
			for _, metric := range f.GetMetric() {
				if metric.GetCounter().GetValue() == 1 {
					seen = true
				}
			}
		}
	}
	if !seen {
		t.Error("classifier request was not counted")
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New("http://model:8000///", 0)
	if c.BaseURL() != "http://model:8000" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
	if c.http.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", c.http.Timeout, DefaultTimeout)
	}
	if c.maxResponseBytes != DefaultMaxResponseBytes {
		t.Errorf("maxResponseBytes = %d", c.maxResponseBytes)
	}
}
