package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/reviewd/reviewd/internal/engine"
	"github.com/reviewd/reviewd/internal/model"
	"github.com/reviewd/reviewd/internal/review"
	"github.com/reviewd/reviewd/internal/server"
	"github.com/reviewd/reviewd/internal/store"
)

const (
	waitFor = 5 * time.Second
	tick    = 2 * time.Millisecond
)

func newTestServer(t *testing.T, analyzer engine.Analyzer) (*httptest.Server, *review.Service) {
	t.Helper()
	svc := review.New(analyzer, store.NewSessions(), store.NewResults(), review.WithWorkers(4))
	ctx, cancel := context.WithCancel(t.Context())
	t.Cleanup(svc.Close)
	t.Cleanup(cancel)
	svc.Start(ctx)

	ts := httptest.NewServer(server.New(svc, "").Handler())
	t.Cleanup(ts.Close)
	return ts, svc
}

func fixedAnalyzer() engine.Analyzer {
	return engine.NewFixed(
		[]string{"scan", "check", "summarize"},
		model.Result{
			Metrics: model.Metrics{TotalIssues: 2, FilesProcessed: 2},
			Issues: []model.Issue{
				{Type: "Security", Severity: model.SeverityHigh, File: "a.py", Line: 3, Description: "SQL injection risk", CWE: "CWE-89"},
				{Type: "Style", Severity: model.SeverityLow, File: "b.go", Line: 9, Description: "line exceeds limit"},
			},
		},
	)
}

func multipartBody(t *testing.T, files map[string]string, config string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	if config != "" {
		require.NoError(t, mw.WriteField("config", config))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func submit(t *testing.T, ts *httptest.Server, files map[string]string) string {
	t.Helper()
	body, contentType := multipartBody(t, files, "")
	resp, err := http.Post(ts.URL+"/api/review/start", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var started struct {
		SessionID string `json:"session_id"`
		Status    string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	require.Equal(t, "started", started.Status)
	require.NotEmpty(t, started.SessionID)
	return started.SessionID
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, fixedAnalyzer())

	var health struct {
		Status         string `json:"status"`
		ActiveSessions int    `json:"active_sessions"`
	}
	code := getJSON(t, ts.URL+"/api/health", &health)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "healthy", health.Status)
	require.Zero(t, health.ActiveSessions)
}

func TestReviewRoundTrip(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, fixedAnalyzer())

	id := submit(t, ts, map[string]string{"a.py": "print(1)", "b.go": "package b"})

	require.Eventually(t, func() bool {
		var snap model.Snapshot
		code := getJSON(t, ts.URL+"/api/review/"+id+"/status", &snap)
		return code == http.StatusOK && snap.Status == model.StatusCompleted
	}, waitFor, tick)

	var res model.Result
	code := getJSON(t, ts.URL+"/api/review/"+id+"/results", &res)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, id, res.SessionID)
	require.Len(t, res.Issues, 2)

	t.Run("report", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/review/" + id + "/report")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
		require.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), "SQL") // issue descriptions rendered
	})

	t.Run("findings", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/review/" + id + "/findings")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, resp.Header.Get("Content-Type"), "cyclonedx")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), "CWE-89")
	})

	t.Run("download", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/review/" + id + "/download")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.True(t, bytes.HasPrefix(body, []byte("PK")), "not a zip archive")
	})
}

func TestSubmitEmptyBatch(t *testing.T) {
	t.Parallel()
	ts, svc := newTestServer(t, fixedAnalyzer())

	body, contentType := multipartBody(t, nil, "")
	resp, err := http.Post(ts.URL+"/api/review/start", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errBody struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	require.NotEmpty(t, errBody.Error)
	require.Zero(t, svc.ActiveCount())
}

func TestSubmitBadConfig(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, fixedAnalyzer())

	body, contentType := multipartBody(t, map[string]string{"a.py": "x"}, "{not json")
	resp, err := http.Post(ts.URL+"/api/review/start", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownSession(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, fixedAnalyzer())

	for _, path := range []string{"status", "results", "report", "findings", "download", "progress"} {
		code := getJSON(t, ts.URL+"/api/review/no-such-id/"+path, nil)
		require.Equal(t, http.StatusNotFound, code, "path %s", path)
	}
}

func TestProgressWebsocket(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, fixedAnalyzer())

	id := submit(t, ts, map[string]string{"a.py": "print(1)"})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/review/" + id + "/progress"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	last := -1
	var final model.Snapshot
	for {
		var snap model.Snapshot
		err := conn.ReadJSON(&snap)
		if err != nil {
			require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
		require.GreaterOrEqual(t, snap.Progress, last)
		require.LessOrEqual(t, snap.Progress, 100)
		last = snap.Progress
		final = snap
	}

	require.Equal(t, model.StatusCompleted, final.Status)
	require.Equal(t, 100, final.Progress)
}
