// Package search calls the external server-search backend over JSON-RPC/HTTP.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/buger/jsonparser"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/zhouzirui/askg-chat/backend/internal/logging"
	"github.com/zhouzirui/askg-chat/backend/internal/metrics"
	"github.com/zhouzirui/askg-chat/backend/internal/model/search"
)

const (
	maxResponseBytes = 16 << 20
	promptLogMaxLen  = 80
)

// ErrMalformedResponse is returned when the backend reply is not a JSON object.
var ErrMalformedResponse = errors.New("malformed search backend response")

// StatusError reports a non-2xx reply from the backend.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search backend returned HTTP %d", e.StatusCode)
}

// Config locates the backend.
type Config struct {
	URL     string
	Timeout time.Duration
}

// Client issues one request per query. It never retries.
type Client struct {
	url        string
	httpClient *http.Client
	metrics    *metrics.Collector
}

// NewClient creates a client for cfg. collector may be nil.
func NewClient(cfg Config, collector *metrics.Collector) *Client {
	return &Client{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		metrics:    collector,
	}
}

// Search runs prompt against the backend. Every failure is logged and
// reported as a nil result.
func (c *Client) Search(ctx context.Context, prompt string, limit int) *search.Result {
	logger := log.With().Str("component", "search").Int("limit", limit).Logger()
	logger.Info().Str("prompt", logging.Truncate(prompt, promptLogMaxLen)).Msg("calling search backend")

	start := time.Now()
	result, err := c.Do(ctx, search.NewQuery(prompt, limit))
	elapsed := time.Since(start)

	if err != nil {
		c.metrics.BackendCall(outcome(err), elapsed)
		logger.Warn().Err(err).Dur("elapsed", elapsed).Msg("search backend call failed")
		return nil
	}

	c.metrics.BackendCall(metrics.OutcomeOK, elapsed)
	logger.Info().Int("servers", result.Len()).Dur("elapsed", elapsed).Msg("search backend replied")
	return result
}

// Do performs a single search_servers call and returns the unwrapped result.
func (c *Client) Do(ctx context.Context, query search.Query) (*search.Result, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate request id: %w", err)
	}

	rpcReq := &jsonrpc2.Request{
		Method: search.MethodSearchServers,
		ID:     jsonrpc2.ID{Str: id.String(), IsString: true},
	}
	if err := rpcReq.SetParams(query); err != nil {
		return nil, fmt.Errorf("encode search params: %w", err)
	}

	body, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	return unwrap(payload)
}

// unwrap resolves the reply shape once: a JSON-RPC envelope carrying a result
// object, a JSON-RPC error, or a bare result object.
func unwrap(payload []byte) (*search.Result, error) {
	if !json.Valid(payload) {
		return nil, ErrMalformedResponse
	}
	if _, dataType, _, err := jsonparser.Get(payload); err != nil || dataType != jsonparser.Object {
		return nil, ErrMalformedResponse
	}

	body := payload
	if value, dataType, _, err := jsonparser.Get(payload, "result"); err == nil && dataType == jsonparser.Object {
		body = value
	} else if value, dataType, _, err := jsonparser.Get(payload, "error"); err == nil && dataType == jsonparser.Object {
		var rpcErr jsonrpc2.Error
		if err := json.Unmarshal(value, &rpcErr); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return nil, &rpcErr
	}

	var result search.Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &result, nil
}

func outcome(err error) string {
	var statusErr *StatusError
	var rpcErr *jsonrpc2.Error
	switch {
	case errors.As(err, &statusErr):
		return metrics.OutcomeStatus
	case errors.As(err, &rpcErr):
		return metrics.OutcomeRPCError
	case errors.Is(err, ErrMalformedResponse):
		return metrics.OutcomeMalformed
	default:
		return metrics.OutcomeTransport
	}
}
