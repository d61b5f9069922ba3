// Package fetch pulls record batches from a remote JSON API source.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"tabsink/internal/domain"
)

// batchCap is the upstream per-request record limit.
const batchCap = 30

// FetchedAtColumn is the synthetic column stamped onto every fetched dataset.
const FetchedAtColumn = "fetched_at"

var _ domain.Fetcher = (*Client)(nil)

// Client fetches records from a paginated HTTP API in bounded batches.
// Each request carries the API key header and a count query parameter and is
// subject to a per-request timeout with a bounded retry budget.
type Client struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
}

// New creates a fetch client. timeout bounds each upstream request; one
// retry is attempted before the request counts as failed.
func New(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 1
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil
	if logger != nil {
		rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
			if attempt > 0 {
				logger.Warn("retrying upstream fetch", "url", req.URL.String(), "attempt", attempt)
			}
		}
	}

	return &Client{baseURL: baseURL, apiKey: apiKey, http: rc}
}

// Fetch retrieves count records, paginating in batches of at most 30 until
// the requested count is satisfied, and stamps the fetched_at column.
func (c *Client) Fetch(ctx context.Context, count int) (*domain.Dataset, error) {
	if count <= 0 {
		return nil, domain.ErrValidation("count must be positive")
	}

	var objects []map[string]interface{}
	remaining := count
	for remaining > 0 {
		reqCount := remaining
		if reqCount > batchCap {
			reqCount = batchCap
		}

		batch, err := c.fetchBatch(ctx, reqCount)
		if err != nil {
			return nil, err
		}
		objects = append(objects, batch...)
		remaining -= reqCount
	}

	ds := datasetFromObjects(objects)
	ds.AddColumn(FetchedAtColumn, domain.TimeValue(time.Now().UTC()))
	return ds, nil
}

// fetchBatch performs one upstream GET. The response must be a JSON array of
// records or a single record object; anything else is a fatal shape error.
func (c *Client) fetchBatch(ctx context.Context, count int) ([]map[string]interface{}, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	q := u.Query()
	q.Set("count", strconv.Itoa(count))
	u.RawQuery = q.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch batch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read fetch response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %d: %s", resp.StatusCode, body)
	}

	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, domain.ErrUnexpectedResponseShape("upstream response is not valid JSON: %v", err)
	}

	switch v := raw.(type) {
	case []interface{}:
		records := make([]map[string]interface{}, 0, len(v))
		for i, item := range v {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, domain.ErrUnexpectedResponseShape("upstream array element %d is not a record object", i)
			}
			records = append(records, obj)
		}
		return records, nil
	case map[string]interface{}:
		return []map[string]interface{}{v}, nil
	default:
		return nil, domain.ErrUnexpectedResponseShape("upstream response is not a record list")
	}
}

// datasetFromObjects builds a dataset with the column set being the union of
// record keys in first-seen order.
func datasetFromObjects(objects []map[string]interface{}) *domain.Dataset {
	ds := &domain.Dataset{}
	seen := map[string]bool{}
	for _, obj := range objects {
		row := make(domain.Row, len(obj))
		for key, val := range obj {
			if !seen[key] {
				seen[key] = true
				ds.Columns = append(ds.Columns, key)
			}
			row[key] = fieldValue(val)
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

func fieldValue(v interface{}) domain.Value {
	switch t := v.(type) {
	case nil:
		return domain.NullValue()
	case string:
		return domain.TextValue(t)
	case bool:
		return domain.BoolValue(t)
	case float64:
		return domain.NumberValue(t)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return domain.NullValue()
		}
		return domain.TextValue(string(raw))
	}
}
