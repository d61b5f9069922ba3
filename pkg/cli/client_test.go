package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DoJSON(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(45), req["count"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "j1", "status": "queued"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "my-token")

	var out struct {
		JobID string `json:"job_id"`
	}
	err := client.DoJSON(http.MethodPost, "/v1/ingest/api", map[string]interface{}{"count": 45}, &out)
	require.NoError(t, err)

	assert.Equal(t, "j1", out.JobID)
	assert.Equal(t, "Bearer my-token", gotAuth)
	assert.Equal(t, "/v1/ingest/api", gotPath)
}

func TestClient_APIKeyHeader(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk-key", "")
	require.NoError(t, client.DoJSON(http.MethodGet, "/v1/features", nil, nil))
	assert.Equal(t, "sk-key", gotKey)
}

func TestClient_ErrorMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    403,
			"message": "subject lacks the upload capability",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "token")

	err := client.DoJSON(http.MethodPost, "/v1/ingest/api", map[string]int{"count": 1}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.HTTPStatus)
	assert.Equal(t, "subject lacks the upload capability", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "403")
}

func TestClient_ErrorWithoutJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "plain text failure", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "")

	err := client.DoJSON(http.MethodGet, "/v1/features", nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
	assert.Contains(t, apiErr.Message, "plain text failure")
}

func TestClient_UploadFile(t *testing.T) {
	var gotTable, gotContent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotTable = r.FormValue("table_name")

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data := make([]byte, 64)
		n, _ := file.Read(data)
		gotContent = string(data[:n])

		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "j2"})
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("name\nada\n"), 0o600))

	client := NewClient(server.URL, "sk-key", "")

	var out struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, client.UploadFile("/v1/ingest/file", path, "people", &out))

	assert.Equal(t, "j2", out.JobID)
	assert.Equal(t, "people", gotTable)
	assert.Equal(t, "name\nada\n", gotContent)
}

func TestClient_UploadFileMissing(t *testing.T) {
	client := NewClient("http://unused", "", "")
	err := client.UploadFile("/v1/ingest/file", filepath.Join(t.TempDir(), "absent.csv"), "people", nil)
	require.Error(t, err)
}
