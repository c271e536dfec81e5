//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"roster/internal/platform/config"
	"roster/internal/platform/objectstore"
)

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	AdminToken       string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	cfg     config.ObjectStore
	objects objectstore.Store
	initErr error

	// Per-scenario prefix keeping user ids unique across runs.
	prefix  string
	aliases map[string]string
	seeded  []string
}

// NewTestContext connects to the same buckets as the server under test.
func NewTestContext() *TestContext {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://" + config.DefaultAddr
	}

	cfg := config.FromEnv()
	tc := &TestContext{
		BaseURL:    baseURL,
		AdminToken: cfg.Server.AdminToken,
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
		cfg:        cfg.ObjectStore,
	}
	tc.objects, tc.initErr = objectstore.NewS3(context.Background(), cfg.ObjectStore)
	return tc
}

// Reset starts a new scenario.
func (tc *TestContext) Reset() {
	tc.LastResponse = nil
	tc.LastResponseBody = nil
	tc.prefix = "e2e-" + uuid.NewString()[:8] + "-"
	tc.aliases = map[string]string{}
	tc.seeded = nil
}

// UserID maps a scenario alias such as "42" to the id used in the buckets.
func (tc *TestContext) UserID(alias string) string {
	if id, ok := tc.aliases[alias]; ok {
		return id
	}
	id := tc.prefix + alias
	tc.aliases[alias] = id
	return id
}

// Seed uploads an object into the source bucket.
func (tc *TestContext) Seed(ctx context.Context, key string, body []byte) error {
	if tc.initErr != nil {
		return fmt.Errorf("object store unavailable: %w", tc.initErr)
	}
	if err := tc.objects.Put(ctx, tc.cfg.SourceBucket, key, bytes.NewReader(body), int64(len(body)), "application/octet-stream"); err != nil {
		return err
	}
	tc.seeded = append(tc.seeded, key)
	return nil
}

// Cleanup removes the objects seeded by the scenario.
func (tc *TestContext) Cleanup(ctx context.Context) error {
	if tc.initErr != nil {
		return nil
	}
	for _, key := range tc.seeded {
		_ = tc.objects.Delete(ctx, tc.cfg.SourceBucket, key)
	}
	return nil
}

// Snapshot downloads the published snapshot.
func (tc *TestContext) Snapshot(ctx context.Context) (string, error) {
	if tc.initErr != nil {
		return "", fmt.Errorf("object store unavailable: %w", tc.initErr)
	}
	data, err := tc.objects.Get(ctx, tc.cfg.ProcessedBucket, tc.cfg.SnapshotKey)
	return string(data), err
}

// Do sends a request and stores the response.
func (tc *TestContext) Do(method, path string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a field from the JSON response
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response", field)
	}
	return value, nil
}

// ResponseContains checks if the response body contains a field or text
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}

	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err == nil {
		if _, ok := data[text]; ok {
			return true
		}
	}
	return false
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}
