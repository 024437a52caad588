package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http2"

	"github.com/HISP-Uganda/entrysync/internal/config"
	"github.com/HISP-Uganda/entrysync/internal/events"
	"github.com/HISP-Uganda/entrysync/internal/models"
)

// valueKey identifies one staged value for idempotent replacement.
type valueKey struct {
	dataElement          string
	period               string
	orgUnit              string
	categoryOptionCombo  string
	attributeOptionCombo string
}

// instanceKey identifies one (dataSet, period, orgUnit) slice for the
// follow-up download.
type instanceKey struct {
	period  string
	orgUnit string
}

// HTTPClient implements RemoteDataClient against a DHIS2-style web API.
type HTTPClient struct {
	client    *http.Client
	baseURL   string
	userAgent string
	logger    *events.Logger

	mu       sync.Mutex
	username string
	password string
	staged   map[valueKey]models.DataValue
	uploaded map[instanceKey]struct{}
}

// NewHTTPClient creates an HTTP remote data client.
func NewHTTPClient(cfg *config.APIConfig, logger *events.Logger) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		TLSClientConfig: &tls.Config{
			NextProtos: []string{"h2", "http/1.1"},
		},
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		logger.WithError(err).Warn("Failed to configure HTTP/2")
	}

	return &HTTPClient{
		client: &http.Client{
			Transport: transport,
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		logger:    logger.WithField("component", "remote_client"),
		staged:    make(map[valueKey]models.DataValue),
		uploaded:  make(map[instanceKey]struct{}),
	}
}

// SetCredentials sets the basic-auth identity for subsequent calls.
func (c *HTTPClient) SetCredentials(username, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
	c.password = password
}

// SetBaseURL points the client at a different server.
func (c *HTTPClient) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// Stage submits one value to the local working set. Staging the same
// value key twice replaces the earlier value.
func (c *HTTPClient) Stage(ctx context.Context, value models.DataValue) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if value.DataElement == "" || value.Period == "" || value.OrgUnit == "" {
		return fmt.Errorf("incomplete data value: element=%q period=%q orgUnit=%q",
			value.DataElement, value.Period, value.OrgUnit)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.staged[valueKey{
		dataElement:          value.DataElement,
		period:               value.Period,
		orgUnit:              value.OrgUnit,
		categoryOptionCombo:  value.CategoryOptionCombo,
		attributeOptionCombo: value.AttributeOptionCombo,
	}] = value

	return nil
}

// BulkUpload transmits all staged values as one data value set.
func (c *HTTPClient) BulkUpload(ctx context.Context, timeout time.Duration) (*models.UploadSummary, error) {
	c.mu.Lock()
	values := make([]models.DataValue, 0, len(c.staged))
	for _, v := range c.staged {
		values = append(values, v)
	}
	c.mu.Unlock()

	if len(values) == 0 {
		return &models.UploadSummary{Status: "OK"}, nil
	}

	payload := map[string]interface{}{
		"dataValues": values,
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c.logger.WithField("values", len(values)).Debug("Uploading data value set")

	resp, err := c.postJSON(ctx, "/api/dataValueSets", payload)
	if err != nil {
		return nil, err
	}

	var result struct {
		Status        string `json:"status"`
		ImportCount   struct {
			Imported int `json:"imported"`
			Updated  int `json:"updated"`
			Ignored  int `json:"ignored"`
			Deleted  int `json:"deleted"`
		} `json:"importCount"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("parse import summary: %w", err)
	}

	summary := &models.UploadSummary{
		Status:   result.Status,
		Imported: result.ImportCount.Imported,
		Updated:  result.ImportCount.Updated,
		Ignored:  result.ImportCount.Ignored,
		Deleted:  result.ImportCount.Deleted,
	}

	// Commit point for the working set: remember the touched instances
	// for the follow-up download, then clear.
	c.mu.Lock()
	for _, v := range values {
		c.uploaded[instanceKey{period: v.Period, orgUnit: v.OrgUnit}] = struct{}{}
	}
	c.staged = make(map[valueKey]models.DataValue)
	c.mu.Unlock()

	c.logger.WithFields(map[string]interface{}{
		"status":   summary.Status,
		"imported": summary.Imported,
		"updated":  summary.Updated,
		"ignored":  summary.Ignored,
	}).Debug("Upload acknowledged")

	return summary, nil
}

// BulkDownload pulls fresh data value sets for recently uploaded
// instances.
func (c *HTTPClient) BulkDownload(ctx context.Context, timeout time.Duration) error {
	c.mu.Lock()
	instances := make([]instanceKey, 0, len(c.uploaded))
	for k := range c.uploaded {
		instances = append(instances, k)
	}
	c.mu.Unlock()

	if len(instances) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, inst := range instances {
		query := url.Values{}
		query.Set("period", inst.period)
		query.Set("orgUnit", inst.orgUnit)

		if _, err := c.get(ctx, "/api/dataValueSets?"+query.Encode()); err != nil {
			return fmt.Errorf("download %s/%s: %w", inst.period, inst.orgUnit, err)
		}
	}

	c.mu.Lock()
	c.uploaded = make(map[instanceKey]struct{})
	c.mu.Unlock()

	return nil
}

// CheckSession verifies the configured credentials against the server.
func (c *HTTPClient) CheckSession(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if _, err := c.get(ctx, "/api/me"); err != nil {
		return fmt.Errorf("verify session: %w", err)
	}
	return nil
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// StagedCount returns the size of the working set.
func (c *HTTPClient) StagedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.staged)
}

// postJSON sends a JSON POST request and returns the response body.
func (c *HTTPClient) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// get sends a GET request and returns the response body.
func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", c.userAgent)

	c.mu.Lock()
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	c.mu.Unlock()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr models.APIError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			apiErr.StatusCode = resp.StatusCode
			return nil, &apiErr
		}
		return nil, &models.APIError{
			Code:       http.StatusText(resp.StatusCode),
			Message:    strings.TrimSpace(string(respBody)),
			StatusCode: resp.StatusCode,
		}
	}

	return respBody, nil
}
