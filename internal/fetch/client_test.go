package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabsink/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeSource records the count parameter of every request and serves that
// many records.
func fakeSource(t *testing.T) (*httptest.Server, *[]int, *[]string) {
	t.Helper()
	var counts []int
	var apiKeys []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, err := strconv.Atoi(r.URL.Query().Get("count"))
		require.NoError(t, err)
		counts = append(counts, count)
		apiKeys = append(apiKeys, r.Header.Get("X-Api-Key"))

		records := make([]map[string]interface{}, count)
		for i := range records {
			records[i] = map[string]interface{}{
				"id":     fmt.Sprintf("rec-%d-%d", len(counts), i),
				"amount": float64(i),
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(records)
	}))
	t.Cleanup(srv.Close)
	return srv, &counts, &apiKeys
}

func TestClient_Fetch_SingleBatch(t *testing.T) {
	srv, counts, apiKeys := fakeSource(t)
	client := New(srv.URL, "secret-key", 5*time.Second, testLogger())

	ds, err := client.Fetch(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, []int{10}, *counts)
	assert.Equal(t, []string{"secret-key"}, *apiKeys)
	assert.Len(t, ds.Rows, 10)
	assert.Contains(t, ds.Columns, FetchedAtColumn)
	assert.Equal(t, domain.KindTimestamp, ds.Rows[0][FetchedAtColumn].Kind)
}

func TestClient_Fetch_PaginatesAtBatchCap(t *testing.T) {
	srv, counts, _ := fakeSource(t)
	client := New(srv.URL, "k", 5*time.Second, testLogger())

	ds, err := client.Fetch(context.Background(), 45)
	require.NoError(t, err)

	assert.Equal(t, []int{30, 15}, *counts)
	assert.Len(t, ds.Rows, 45)
}

func TestClient_Fetch_ExactMultipleOfCap(t *testing.T) {
	srv, counts, _ := fakeSource(t)
	client := New(srv.URL, "k", 5*time.Second, testLogger())

	ds, err := client.Fetch(context.Background(), 60)
	require.NoError(t, err)

	assert.Equal(t, []int{30, 30}, *counts)
	assert.Len(t, ds.Rows, 60)
}

func TestClient_Fetch_InvalidCount(t *testing.T) {
	client := New("http://localhost:1", "k", time.Second, testLogger())

	_, err := client.Fetch(context.Background(), 0)
	require.Error(t, err)
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestClient_Fetch_SingleObjectResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": "only-one"}`))
	}))
	t.Cleanup(srv.Close)

	client := New(srv.URL, "k", 5*time.Second, testLogger())
	ds, err := client.Fetch(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, domain.TextValue("only-one"), ds.Rows[0]["id"])
}

func TestClient_Fetch_UnexpectedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`"just a string"`))
	}))
	t.Cleanup(srv.Close)

	client := New(srv.URL, "k", 5*time.Second, testLogger())
	_, err := client.Fetch(context.Background(), 5)
	require.Error(t, err)
	var shape *domain.UnexpectedResponseShapeError
	assert.ErrorAs(t, err, &shape)
}

func TestClient_Fetch_ArrayOfNonObjects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[1, 2, 3]`))
	}))
	t.Cleanup(srv.Close)

	client := New(srv.URL, "k", 5*time.Second, testLogger())
	_, err := client.Fetch(context.Background(), 3)
	require.Error(t, err)
	var shape *domain.UnexpectedResponseShapeError
	assert.ErrorAs(t, err, &shape)
}
