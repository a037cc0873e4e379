// Package httpjson is the shared JSON-over-HTTP client behind the embedding
// and LLM adapters.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// maxErrorBody caps how much of a failed response is kept.
const maxErrorBody = 64 << 10

var (
	// ErrRequest marks a request that could not be built.
	ErrRequest = errors.New("build request")

	// ErrDecode marks a 2xx response whose body could not be decoded.
	ErrDecode = errors.New("decode response")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Status int
	Body   []byte
	Header http.Header
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message())
}

// Message extracts the API's error text. It understands {"error":"..."} and
// {"error":{"type":..,"message":..}} bodies and falls back to the raw body.
func (e *StatusError) Message() string {
	var shaped struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(e.Body, &shaped) == nil && len(shaped.Error) > 0 {
		var text string
		if json.Unmarshal(shaped.Error, &text) == nil {
			return text
		}
		var obj struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		if json.Unmarshal(shaped.Error, &obj) == nil && obj.Message != "" {
			if obj.Type != "" {
				return obj.Type + ": " + obj.Message
			}
			return obj.Message
		}
	}
	return strings.TrimSpace(string(e.Body))
}

// Client sends JSON requests to a single API base URL.
type Client struct {
	http    *http.Client
	baseURL string
	header  http.Header
}

// New creates a client. header is added to every request.
func New(baseURL string, timeout time.Duration, header http.Header) *Client {
	if header == nil {
		header = http.Header{}
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		header:  header,
	}
}

// Do sends in as the JSON body (nil for none) and decodes a 2xx response
// into out (nil to discard it). Failures are a *StatusError, an error
// wrapping ErrRequest or ErrDecode, or a transport error.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	body := io.Reader(http.NoBody)
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRequest, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Status: resp.StatusCode, Body: data, Header: resp.Header}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

// Close drops idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// ProviderError converts a Do failure into a *domain.ProviderError for the
// named provider. Statuses go through domain.ClassifyStatus. Only transport
// failures are retryable.
func ProviderError(provider string, err error, now time.Time) error {
	if err == nil {
		return nil
	}
	var se *StatusError
	switch {
	case errors.As(err, &se):
		pe := domain.ClassifyStatus(provider, se.Status, se.Message())
		pe.RetryAfter = domain.ParseRetryAfter(se.Header.Get("Retry-After"), now)
		return pe
	case errors.Is(err, ErrRequest), errors.Is(err, ErrDecode):
		return &domain.ProviderError{Provider: provider, Err: err}
	default:
		return &domain.ProviderError{Provider: provider, Retryable: true, Message: "send request", Err: err}
	}
}
