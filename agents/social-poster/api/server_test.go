package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"social-stack/internal/models"
	"social-stack/shared/config"
	"social-stack/shared/logging"
	"social-stack/shared/monitoring"
)

func testServer(t *testing.T, run RunFunc, generate GenerateFunc, singlePost SinglePostFunc) (*Server, *monitoring.Tracker) {
	t.Helper()

	activity, err := logging.NewActivityLog(filepath.Join(t.TempDir(), "activity.log"))
	if err != nil {
		t.Fatalf("NewActivityLog() error = %v", err)
	}

	cfg := &config.Config{
		Instagram: config.InstagramConfig{AccessToken: "token", BusinessAccountID: "123"},
	}
	tracker := monitoring.NewTracker()
	return NewServer(cfg, tracker, activity, run, generate, singlePost), tracker
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	s, tracker := testServer(t, nil, nil, nil)
	router := s.Router()

	t.Run("Healthy", func(t *testing.T) {
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		if res.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", res.Code, http.StatusOK)
		}
		if body := decodeBody(t, res); body["status"] != "healthy" {
			t.Errorf("body status = %v, want healthy", body["status"])
		}
	})

	t.Run("UnhealthyAfterFailedRun", func(t *testing.T) {
		tracker.RecordFailure(errors.New("feed unavailable"), time.Second)

		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		if res.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want %d", res.Code, http.StatusServiceUnavailable)
		}
		if body := decodeBody(t, res); body["status"] != "unhealthy" {
			t.Errorf("body status = %v, want unhealthy", body["status"])
		}
	})
}

func TestStatusEndpoint(t *testing.T) {
	s, tracker := testServer(t, nil, nil, nil)
	tracker.SetState(monitoring.StateCompleted, "done")
	tracker.IncrementSuccessfulPost("twitter")

	res := httptest.NewRecorder()
	s.Router().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusOK)
	}
	body := decodeBody(t, res)

	status, ok := body["status"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing status object in %v", body)
	}
	if status["state"] != string(monitoring.StateCompleted) {
		t.Errorf("state = %v, want %s", status["state"], monitoring.StateCompleted)
	}

	platforms, ok := body["platforms"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing platforms object in %v", body)
	}
	if platforms["instagram"] != "configured" {
		t.Errorf("instagram = %v, want configured", platforms["instagram"])
	}
	if platforms["twitter"] != "missing" {
		t.Errorf("twitter = %v, want missing", platforms["twitter"])
	}
}

func TestTriggerRunEndpoint(t *testing.T) {
	ran := 0
	s, _ := testServer(t, func(_ context.Context) error {
		ran++
		return nil
	}, nil, nil)
	router := s.Router()

	for _, path := range []string{"/api/post/manual", "/api/post/scheduled"} {
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, path, nil))
		if res.Code != http.StatusOK {
			t.Errorf("POST %s status = %d, want %d", path, res.Code, http.StatusOK)
		}
	}
	if ran != 2 {
		t.Errorf("run triggered %d times, want 2", ran)
	}
}

func TestTriggerRunRejectsConcurrentRuns(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var startedOnce sync.Once
	s, _ := testServer(t, func(_ context.Context) error {
		startedOnce.Do(func() { close(started) })
		<-release
		return nil
	}, nil, nil)
	router := s.Router()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/post/manual", nil))
	}()

	<-started
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/post/manual", nil))
	if res.Code != http.StatusConflict {
		t.Errorf("concurrent trigger status = %d, want %d", res.Code, http.StatusConflict)
	}
	if body := decodeBody(t, res); body["status"] != "busy" {
		t.Errorf("body status = %v, want busy", body["status"])
	}

	close(release)
	wg.Wait()

	// The guard resets once the run finishes
	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/post/manual", nil))
	if res.Code != http.StatusOK {
		t.Errorf("post-run trigger status = %d, want %d", res.Code, http.StatusOK)
	}
}

func TestTriggerRunReportsError(t *testing.T) {
	s, _ := testServer(t, func(_ context.Context) error {
		return errors.New("feed unavailable")
	}, nil, nil)

	res := httptest.NewRecorder()
	s.Router().ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/post/manual", nil))

	if res.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", res.Code, http.StatusInternalServerError)
	}
	if body := decodeBody(t, res); body["error"] != "feed unavailable" {
		t.Errorf("body error = %v, want feed unavailable", body["error"])
	}
}

func TestGenerateVideosEndpoint(t *testing.T) {
	var gotProduct string
	var gotForce bool
	s, _ := testServer(t, nil, func(_ context.Context, productID string, force bool) ([]*models.VideoSelection, error) {
		gotProduct = productID
		gotForce = force
		return []*models.VideoSelection{{URL: "https://assets.example.com/NWS_001.mp4"}}, nil
	}, nil)
	router := s.Router()

	t.Run("WithBody", func(t *testing.T) {
		payload := bytes.NewBufferString(`{"product":"NWS_001","force":true}`)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/videos/generate", payload))

		if res.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", res.Code, http.StatusOK)
		}
		if gotProduct != "NWS_001" || !gotForce {
			t.Errorf("generate called with (%q, %v), want (NWS_001, true)", gotProduct, gotForce)
		}
		body := decodeBody(t, res)
		if videos, ok := body["videos"].([]interface{}); !ok || len(videos) != 1 {
			t.Errorf("videos = %v, want one entry", body["videos"])
		}
	})

	t.Run("EmptyBodyMeansAll", func(t *testing.T) {
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/videos/generate", nil))

		if res.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", res.Code, http.StatusOK)
		}
		if gotProduct != "" || gotForce {
			t.Errorf("generate called with (%q, %v), want all products without force", gotProduct, gotForce)
		}
	})
}

func TestSinglePostEndpoint(t *testing.T) {
	s, _ := testServer(t, nil, nil, func(_ context.Context) (models.RunMetrics, error) {
		return models.RunMetrics{RowsProcessed: 1, SuccessfulPosts: 2}, nil
	})

	res := httptest.NewRecorder()
	s.Router().ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/test/single-post", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusOK)
	}
	body := decodeBody(t, res)
	result, ok := body["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing result object in %v", body)
	}
	if result["successful_posts"] != float64(2) {
		t.Errorf("successful_posts = %v, want 2", result["successful_posts"])
	}
}

func TestLogsEndpoint(t *testing.T) {
	s, _ := testServer(t, nil, nil, nil)
	for i := 0; i < 5; i++ {
		if err := s.activity.Record("test", "event"); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	res := httptest.NewRecorder()
	s.Router().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/logs?n=3", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusOK)
	}
	body := decodeBody(t, res)
	logs, ok := body["logs"].([]interface{})
	if !ok {
		t.Fatalf("missing logs array in %v", body)
	}
	if len(logs) != 3 {
		t.Errorf("got %d log lines, want 3", len(logs))
	}
}

func TestNotFound(t *testing.T) {
	s, _ := testServer(t, nil, nil, nil)

	res := httptest.NewRecorder()
	s.Router().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	if res.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", res.Code, http.StatusNotFound)
	}
	if body := decodeBody(t, res); body["status"] != "not-found" {
		t.Errorf("body status = %v, want not-found", body["status"])
	}
}
