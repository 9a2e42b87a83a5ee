// Package saucenao is a small client for the SauceNAO reverse image search API.
package saucenao

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/edgard/searchbyimage/internal/errors"
)

const (
	// DefaultEndpoint is the public search endpoint.
	DefaultEndpoint = "https://saucenao.com/search.php"

	// Fixed query parameters: all databases, JSON output, up to 16 results.
	databaseAll = 999
	outputJSON  = 2
	maxResults  = 16

	DefaultConnectTimeout = 15 * time.Second
	DefaultReadTimeout    = 60 * time.Second

	maxBodySize = 4 << 20
)

// Config configures a Client.
type Config struct {
	Endpoint       string
	APIKey         string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// TracerProvider receives a client span per request. Nil uses the
	// global provider.
	TracerProvider trace.TracerProvider
}

// Client performs searches against SauceNAO. It is safe for concurrent use.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a Client. Zero timeouts and an empty endpoint fall back to
// the defaults.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewConfigError("saucenao api key is empty", nil)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, apperrors.NewConfigError("invalid saucenao endpoint", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
	}

	// Span names carry no query, so neither the key nor the image link is
	// exported.
	traceOpts := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "saucenao " + r.Method + " " + r.URL.Path
		}),
	}
	if cfg.TracerProvider != nil {
		traceOpts = append(traceOpts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}

	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(transport, traceOpts...),
			Timeout:   cfg.ConnectTimeout + cfg.ReadTimeout,
		},
		logger: logger.With("component", "saucenao"),
	}, nil
}

// QueryURL builds the search URL for imageURL.
func QueryURL(endpoint, apiKey, imageURL string) string {
	return endpoint +
		"?db=" + strconv.Itoa(databaseAll) +
		"&output_type=" + strconv.Itoa(outputJSON) +
		"&numres=" + strconv.Itoa(maxResults) +
		"&api_key=" + url.QueryEscape(apiKey) +
		"&url=" + url.QueryEscape(imageURL)
}

// Search looks up imageURL and returns the results in API order.
// Connection failures, timeouts and non-200 responses are reported as
// transport errors; bodies that are not the expected JSON are reported as
// malformed-response errors.
func (c *Client) Search(ctx context.Context, imageURL string) ([]Result, error) {
	body, err := c.fetch(ctx, QueryURL(c.endpoint, c.apiKey, imageURL))
	if err != nil {
		c.logger.ErrorContext(ctx, "SauceNAO request failed", "error", err)
		return nil, err
	}
	return ParseResults(body)
}

func (c *Client) fetch(ctx context.Context, queryURL string) (data []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, apperrors.NewTransportError("failed to create search request", stripURL(err))
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewTransportError("search request failed", stripURL(err))
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = apperrors.NewTransportError("failed to close response body", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.NewTransportError(
			fmt.Sprintf("unexpected status code %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)),
			nil,
		)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, apperrors.NewTransportError("failed to read response body", err)
	}

	c.logger.DebugContext(ctx, "SauceNAO response received",
		"status", resp.StatusCode,
		"bytes", len(data),
		"duration", time.Since(startTime))
	return data, nil
}

// stripURL drops the request URL from err. The query carries the API key and
// the image link, which may itself embed a bot token.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}

// ParseResults decodes a response body. Every result must carry a header with
// a similarity and a data object; the ext_urls list itself may be absent.
func ParseResults(body []byte) ([]Result, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, apperrors.NewMalformedResponseError("empty response body", nil)
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewMalformedResponseError("failed to decode response", err)
	}
	if resp.Results == nil {
		if resp.Header.Message != "" {
			return nil, apperrors.NewMalformedResponseError("response has no results",
				fmt.Errorf("status %d: %s", resp.Header.Status, resp.Header.Message))
		}
		return nil, apperrors.NewMalformedResponseError("response has no results", nil)
	}

	for i, r := range resp.Results {
		if r.Header == nil || r.Header.Similarity == nil {
			return nil, apperrors.NewMalformedResponseError(fmt.Sprintf("result %d has no similarity", i), nil)
		}
		if r.Data == nil {
			return nil, apperrors.NewMalformedResponseError(fmt.Sprintf("result %d has no data", i), nil)
		}
	}
	return resp.Results, nil
}
