package transport_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HISP-Uganda/entrysync/internal/config"
	"github.com/HISP-Uganda/entrysync/internal/models"
	"github.com/HISP-Uganda/entrysync/internal/transport"
	"github.com/HISP-Uganda/entrysync/test/testutil"
)

func newClient(t *testing.T, handler http.Handler) *transport.HTTPClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := transport.NewHTTPClient(&config.APIConfig{
		BaseURL:        server.URL,
		UserAgent:      "entrysync-test/1.0",
		ConnectTimeout: 5 * time.Second,
	}, testutil.NewTestLogger())
	t.Cleanup(func() { client.Close() })

	client.SetCredentials("admin", "district")
	return client
}

func stageValue(t *testing.T, c *transport.HTTPClient, element, value string) {
	t.Helper()
	require.NoError(t, c.Stage(context.Background(), models.DataValue{
		DataElement:          element,
		Period:               "202401",
		OrgUnit:              "ouX",
		CategoryOptionCombo:  "cocZ",
		AttributeOptionCombo: "aocY",
		Value:                &value,
	}))
}

func TestStageValidatesValue(t *testing.T) {
	c := newClient(t, http.NotFoundHandler())

	err := c.Stage(context.Background(), models.DataValue{DataElement: "deA"})
	assert.Error(t, err, "missing period and orgUnit")
	assert.Equal(t, 0, c.StagedCount())
}

func TestStageReplacesSameValueKey(t *testing.T) {
	c := newClient(t, http.NotFoundHandler())

	stageValue(t, c, "deA", "10")
	stageValue(t, c, "deA", "20")
	stageValue(t, c, "deB", "30")

	assert.Equal(t, 2, c.StagedCount(), "same value key replaces, not appends")
}

func TestBulkUploadSendsStagedSet(t *testing.T) {
	var received struct {
		DataValues []models.DataValue `json:"dataValues"`
	}
	var gotAuth, gotContentType string

	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/dataValueSets", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "SUCCESS",
			"importCount": map[string]int{
				"imported": 1,
				"updated":  1,
				"ignored":  0,
			},
		})
	}))

	stageValue(t, c, "deA", "10")
	stageValue(t, c, "deB", "20")

	summary, err := c.BulkUpload(context.Background(), 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "SUCCESS", summary.Status)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 2, summary.Total())

	assert.Len(t, received.DataValues, 2)
	assert.NotEmpty(t, gotAuth, "basic auth header present")
	assert.Equal(t, "application/json", gotContentType)

	assert.Equal(t, 0, c.StagedCount(), "working set cleared after the confirmed upload")
}

func TestBulkUploadEmptyWorkingSetSkipsNetwork(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty working set")
	}))

	summary, err := c.BulkUpload(context.Background(), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total())
}

func TestBulkUploadFailureKeepsWorkingSet(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"message": "maintenance"})
	}))

	stageValue(t, c, "deA", "10")

	_, err := c.BulkUpload(context.Background(), 5*time.Second)
	require.Error(t, err)

	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "maintenance", apiErr.Message)

	assert.Equal(t, 1, c.StagedCount(), "staged values survive a failed upload")
}

func TestBulkUploadNonJSONErrorBody(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream timeout\n"))
	}))

	stageValue(t, c, "deA", "10")

	_, err := c.BulkUpload(context.Background(), 5*time.Second)
	require.Error(t, err)

	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream timeout", apiErr.Message)
}

func TestBulkDownloadPullsUploadedInstances(t *testing.T) {
	uploads := 0
	downloads := map[string]int{}

	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			uploads++
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":      "SUCCESS",
				"importCount": map[string]int{"imported": 2},
			})
		case http.MethodGet:
			downloads[r.URL.Query().Get("period")+"/"+r.URL.Query().Get("orgUnit")]++
			json.NewEncoder(w).Encode(map[string]interface{}{"dataValues": []interface{}{}})
		}
	}))

	stageValue(t, c, "deA", "10")
	stageValue(t, c, "deB", "20")

	_, err := c.BulkUpload(context.Background(), 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, c.BulkDownload(context.Background(), 5*time.Second))
	assert.Equal(t, 1, uploads)
	assert.Equal(t, map[string]int{"202401/ouX": 1}, downloads,
		"one download per touched instance, not per value")

	// The instance set is consumed; a second download is a no-op.
	require.NoError(t, c.BulkDownload(context.Background(), 5*time.Second))
	assert.Equal(t, map[string]int{"202401/ouX": 1}, downloads)
}

func TestBulkDownloadWithoutUploadIsNoop(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected before any upload")
	}))

	require.NoError(t, c.BulkDownload(context.Background(), 5*time.Second))
}

func TestCheckSession(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/me", r.URL.Path)
			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "admin", user)
			assert.Equal(t, "district", pass)
			json.NewEncoder(w).Encode(map[string]string{"id": "xE7jOejl9FI"})
		}))

		assert.NoError(t, c.CheckSession(context.Background()))
	})

	t.Run("rejected credentials", func(t *testing.T) {
		c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Unauthorized"})
		}))

		err := c.CheckSession(context.Background())
		require.Error(t, err)

		var apiErr *models.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})
}

func TestUploadRespectsContextCancellation(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))

	stageValue(t, c, "deA", "10")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.BulkUpload(ctx, 5*time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
