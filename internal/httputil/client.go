// Package httputil provides hardened HTTP clients and input sanitization utilities.
package httputil

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// User agents sent to origins. Some sites serve different markup per agent.
const (
	DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/123.0.0.0 Safari/537.36"
	MobileUserAgent  = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Mobile/15E148 Safari/604.1"
	GenericUserAgent = "Mozilla/5.0"
)

// MaxBodySize caps how much of a scraped page or JSON document is read.
const MaxBodySize = 10 * 1024 * 1024

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
}

// NewClient creates a hardened HTTP client whose requests, body included,
// must finish within timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(),
	}
}

// NewStreamingClient creates a client for relaying large media. There is no
// overall deadline; only connection setup and response headers are bounded,
// and the request context ends the transfer.
func NewStreamingClient() *http.Client {
	return &http.Client{
		Transport: newTransport(),
	}
}

// Get performs a GET request with the given user agent and extra headers.
// The caller owns the response body.
func Get(ctx context.Context, client *http.Client, url, userAgent string, headers map[string]string) (*http.Response, error) {
	if err := ValidateURL(url); err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if userAgent == "" {
		userAgent = GenericUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return client.Do(req)
}

// GetBody performs a GET and returns the body of a 200 response, capped at MaxBodySize.
func GetBody(ctx context.Context, client *http.Client, url, userAgent string, headers map[string]string) ([]byte, error) {
	resp, err := Get(ctx, client, url, userAgent, headers)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return body, nil
}
