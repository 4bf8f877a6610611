// Package das is a JSON-RPC client for the Digital Asset Standard indexing
// API (getAsset, getAssetsByOwner) plus the plain getBalance call.
package das

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultPageLimit  = 1000
	DefaultMaxPages   = 10
)

var (
	ErrNotFound          = errors.New("asset not found")
	ErrMalformedResponse = errors.New("malformed indexer response")
)

// RPCError is an error object returned by the indexer.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("indexer error %d: %s", e.Code, e.Message)
}

type Client struct {
	endpoint   string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	pageLimit  int
	maxPages   int
	requestID  atomic.Uint64
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithPaging bounds getAssetsByOwner pagination.
func WithPaging(limit, maxPages int) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.pageLimit = limit
		}
		if maxPages > 0 {
			c.maxPages = maxPages
		}
	}
}

func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		pageLimit:  DefaultPageLimit,
		maxPages:   DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// call posts one JSON-RPC request and returns the raw "result" value.
// Transport failures and 429/5xx are retried; indexer errors are not.
func (c *Client) call(ctx context.Context, method string, params any) (gjson.Result, error) {
	body, err := sonic.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      fmt.Sprintf("nft-swap-%d", c.requestID.Add(1)),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return gjson.Result{}, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return gjson.Result{}, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return gjson.Result{}, ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			log.Debug().Str("method", method).Int("status", resp.StatusCode).Int("attempt", attempt).Msg("[dasClient] retrying")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return gjson.Result{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		if !gjson.ValidBytes(raw) {
			return gjson.Result{}, ErrMalformedResponse
		}

		parsed := gjson.ParseBytes(raw)
		if e := parsed.Get("error"); e.Exists() && e.Type != gjson.Null {
			return gjson.Result{}, &RPCError{Code: int(e.Get("code").Int()), Message: e.Get("message").String()}
		}
		return parsed.Get("result"), nil
	}
	return gjson.Result{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func isNotFoundRPCError(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return strings.Contains(strings.ToLower(rpcErr.Message), "not found")
	}
	return false
}
