package stl311

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

// ErrBadPayload marks a response whose schema could not be decoded. It is a
// permanent failure: retrying the same page yields the same body.
var ErrBadPayload = errors.New("unexpected response payload")

func NewClient(httpClient *http.Client, host, apiKey string, requestsPerSecond float64) *Client {
	if host == "" {
		host = "https://www.stlouis-mo.gov/powernap/stlouis/api.cfm"
	}
	host = strings.TrimRight(host, "/")
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Client{
		host:       host,
		apiKey:     apiKey,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// FetchPage retrieves one page of the window. The second return value
// reports whether a further page may exist (the page came back full).
// A failed page can be re-fetched without touching earlier pages.
func (c *Client) FetchPage(ctx context.Context, q PageQuery) ([]RawRequest, bool, error) {
	if q.PageSize <= 0 {
		q.PageSize = 1000
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	query := url.Values{}
	if c.apiKey != "" {
		query.Set("api_key", c.apiKey)
	}
	query.Set("start_date", q.StartDate)
	query.Set("end_date", q.EndDate)
	query.Set("page_size", strconv.Itoa(q.PageSize))
	query.Set("page", strconv.Itoa(q.Page))
	if q.Status != "" {
		query.Set("status", q.Status)
	}

	body, err := c.doRequest(ctx, "/requests.json", query)
	if err != nil {
		return nil, false, err
	}

	batch, err := decodeBatch(body)
	if err != nil {
		return nil, false, err
	}
	return batch, len(batch) >= q.PageSize, nil
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "stl311-syncd/1.0")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// decodeBatch accepts both upstream response forms: a bare array of records
// and an object wrapping them under "service_requests".
func decodeBatch(body []byte) ([]RawRequest, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var batch []RawRequest
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return batch, nil
	}
	var wrapped envelope
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if wrapped.ServiceRequests == nil {
		return nil, fmt.Errorf("%w: no service_requests field", ErrBadPayload)
	}
	return wrapped.ServiceRequests, nil
}

// IsTransient reports whether an error is worth retrying: network and
// timeout failures, 5xx, and rate-limit rejections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		// Cancellation is handled at the run level, not retried.
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// IsPermanent reports whether an error cannot be fixed by retrying: 4xx
// other than rate-limit, and malformed response schemas.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBadPayload) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests
	}
	return false
}
