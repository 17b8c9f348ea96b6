package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxResponseBodySize is the maximum response body size (10 MB). Enforced via
// io.LimitReader to prevent unbounded memory allocation from rogue responses.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// DefaultCallTimeout bounds one upstream provider call so a hung attempt
// cannot stall a bounded retry sequence indefinitely. Expiry surfaces as a
// transport error.
const DefaultCallTimeout = 120 * time.Second

// HeaderOption is an extra header applied to an outbound request.
type HeaderOption struct {
	Key   string
	Value string
}

// PostJSON performs a synchronous HTTP POST with a JSON body and returns the
// upstream status code and raw response body.
//
// A non-2xx upstream response is not an error here: the status and body are
// returned for the caller to interpret. The returned error is reserved for
// transport-level failures (the request could not be built, sent, or its
// body read), where no meaningful status exists.
func PostJSON(ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (int, []byte, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return 0, nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, header := range headers {
		req.Header.Set(header.Key, header.Value)
	}

	res, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer CloseWithLog(res.Body)

	respBody, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBodySize))
	if err != nil {
		return 0, nil, fmt.Errorf("error reading response body: %w", err)
	}

	return res.StatusCode, respBody, nil
}

// PostStream performs an HTTP POST and returns the response with its body
// left open for incremental reading. The caller must close the body when
// done; on the error paths below the body is consumed and closed first.
//
// A non-2xx response is returned alongside a nil error with its body already
// read into errBody, so callers can pass the upstream error document through
// unmodified. A non-nil error always indicates a transport failure.
func PostStream(ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (resp *http.Response, errBody []byte, err error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, header := range headers {
		req.Header.Set(header.Key, header.Value)
	}

	response, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("error sending stream request: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer CloseWithLog(response.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
		if readErr != nil {
			return response, nil, fmt.Errorf("reading status %d error body: %w", response.StatusCode, readErr)
		}
		return response, errorBody, nil
	}

	return response, nil, nil
}

// CloseWithLog closes c, logging any close error instead of returning it so
// a close failure never overrides the caller's primary error.
func CloseWithLog(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("failed to close body", "error", err.Error())
	}
}
