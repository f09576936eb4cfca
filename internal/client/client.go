// Package client is the HTTP client side of the review API, used by the
// `reviewd review` command to submit a batch and collect its outputs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/reviewd/reviewd/internal/model"
)

const apiPrefix = "api"

type Client struct {
	baseURL *url.URL
	client  *http.Client
}

func New(serverURL string) (*Client, error) {
	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")

	if parsedURL.Scheme == "" || parsedURL.Host == "" || parsedURL.Path != "" {
		return nil, errors.New("please define the server url with a scheme and without path, e.g. `http://localhost:8420`")
	}

	return &Client{
		baseURL: parsedURL,
		client:  &http.Client{},
	}, nil
}

func (c *Client) endpoint(parts ...string) string {
	u := *c.baseURL
	u.Path = strings.Join(append([]string{apiPrefix}, parts...), "/")
	return u.String()
}

// Health reports whether the server is up and how many sessions it is
// currently running.
func (c *Client) Health(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("health"), nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return 0, decodeError(resp)
	}
	var health struct {
		Status         string `json:"status"`
		ActiveSessions int    `json:"active_sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return 0, fmt.Errorf("decoding json response failed: %w", err)
	}
	if health.Status != "healthy" {
		return 0, fmt.Errorf("server reported status %q", health.Status)
	}
	return health.ActiveSessions, nil
}

// Submit uploads a batch and returns the session id assigned to it. A nil
// config leaves the server defaults in effect.
func (c *Client) Submit(ctx context.Context, batch model.Batch, config *model.ReviewConfig) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range batch.Files {
		fw, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return "", err
		}
		if _, err := fw.Write(f.Content); err != nil {
			return "", err
		}
	}
	if config != nil {
		raw, err := json.Marshal(config)
		if err != nil {
			return "", err
		}
		if err := mw.WriteField("config", string(raw)); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("review", "start"), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}
	var started struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		return "", fmt.Errorf("decoding json response failed: %w", err)
	}
	if started.SessionID == "" {
		return "", errors.New("received unexpected body")
	}
	slog.DebugContext(ctx, "Batch submitted.",
		slog.String("sessionID", started.SessionID),
		slog.Int("files", len(batch.Files)))

	return started.SessionID, nil
}

// Status fetches the current session snapshot.
func (c *Client) Status(ctx context.Context, sessionID string) (model.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("review", sessionID, "status"), nil)
	if err != nil {
		return model.Snapshot{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return model.Snapshot{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return model.Snapshot{}, decodeError(resp)
	}
	var snap model.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("decoding json response failed: %w", err)
	}
	return snap, nil
}

// Wait polls the session until it reaches a terminal status. The onUpdate
// callback, if set, fires for every snapshot observed.
func (c *Client) Wait(ctx context.Context, sessionID string, interval time.Duration, onUpdate func(model.Snapshot)) (model.Snapshot, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, err := c.Status(ctx, sessionID)
		if err != nil {
			return model.Snapshot{}, err
		}
		if onUpdate != nil {
			onUpdate(snap)
		}
		if snap.Status.Terminal() {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return model.Snapshot{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Results fetches the structured review result of a completed session.
func (c *Client) Results(ctx context.Context, sessionID string) (model.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("review", sessionID, "results"), nil)
	if err != nil {
		return model.Result{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return model.Result{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return model.Result{}, decodeError(resp)
	}
	var res model.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return model.Result{}, fmt.Errorf("decoding json response failed: %w", err)
	}
	return res, nil
}

// Report fetches the rendered HTML report.
func (c *Client) Report(ctx context.Context, sessionID string) ([]byte, error) {
	return c.fetch(ctx, c.endpoint("review", sessionID, "report"))
}

// Findings fetches the CycloneDX findings document.
func (c *Client) Findings(ctx context.Context, sessionID string) ([]byte, error) {
	return c.fetch(ctx, c.endpoint("review", sessionID, "findings"))
}

// Archive fetches the improved-code zip archive.
func (c *Client) Archive(ctx context.Context, sessionID string) ([]byte, error) {
	return c.fetch(ctx, c.endpoint("review", sessionID, "download"))
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

func decodeError(resp *http.Response) error {
	var problem struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&problem); err == nil && problem.Error != "" {
		return fmt.Errorf("status code: %d, detail: %s", resp.StatusCode, problem.Error)
	}
	return fmt.Errorf("unknown error, status: %d", resp.StatusCode)
}

// CollectFiles walks root and gathers every regular file whose extension is in
// exts into a batch. File names are recorded relative to root.
func CollectFiles(root string, exts []string) (model.Batch, error) {
	var batch model.Batch
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !slices.Contains(exts, filepath.Ext(path)) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		batch.Files = append(batch.Files, model.BatchFile{Name: filepath.ToSlash(rel), Content: content})
		return nil
	})
	if err != nil {
		return model.Batch{}, err
	}
	return batch, nil
}
