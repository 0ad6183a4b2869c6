package netutil

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

// 所有出站连接强制 IPv4：部分部署环境的 IPv6 解析路径损坏，
// 回退行为会把每次调用拖到超时。
const ipv4Network = "tcp4"

// JSONTimeout is the hard deadline for JSON API calls.
const JSONTimeout = 30 * time.Second

// BinaryTimeout is the hard deadline for binary asset downloads.
const BinaryTimeout = 120 * time.Second

// DefaultTLSConfig returns a hardened TLS configuration.
// MinVersion TLS 1.2, AEAD-only cipher suites.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}

// IPv4Transport returns an http.Transport that resolves and dials over
// IPv4 only. It never attempts IPv6.
func IPv4Transport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		TLSClientConfig: DefaultTLSConfig(),
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, ipv4Network, addr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Client returns an IPv4-only http.Client with the given hard timeout.
func Client(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: IPv4Transport(),
	}
}

// JSONResponse is the fully-buffered result of a JSON API call. Non-2xx
// statuses are returned as data, not as errors, so callers and the retry
// wrapper can inspect them.
type JSONResponse struct {
	Status int
	OK     bool
	Body   []byte
}

// Decode unmarshals the buffered body into v.
func (r *JSONResponse) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse response body: %w", err)
	}
	return nil
}

// DoJSON issues a request and awaits the complete body. The caller receives
// either a fully-read response or an error, never a truncated body treated
// as success. A timed-out call aborts the underlying connection.
func DoJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body []byte) (*JSONResponse, error) {
	if client == nil {
		client = Client(JSONTimeout)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, JSONTimeout)
		defer cancel()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, normalizeTimeout(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, normalizeTimeout(err)
	}

	return &JSONResponse{
		Status: resp.StatusCode,
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Body:   data,
	}, nil
}

// DownloadBinary fetches a binary payload, following redirects. Unlike
// DoJSON, a non-2xx status is an error here.
func DownloadBinary(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = Client(BinaryTimeout)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, BinaryTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, normalizeTimeout(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, normalizeTimeout(err)
	}
	return data, nil
}

// normalizeTimeout rewrites deadline errors into a stable "request timeout"
// message so the classifier lands them in the network category.
func normalizeTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return errors.New("request timeout")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.New("request timeout")
	}
	return err
}
