// Package transfer moves bytes between upstream HTTP servers and the object
// store.
package transfer

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultContentType is used when upstream omits Content-Type.
	DefaultContentType = "application/octet-stream"
	// DefaultStreamContentType is used for streamed media uploads without an
	// upstream Content-Type.
	DefaultStreamContentType = "video/*"

	defaultUserAgent = "video-archivist"
	maxTextBytes     = 16 << 20
)

// Client fetches upstream resources.
type Client struct {
	HTTP      *http.Client
	UserAgent string
}

// NewClient returns a Client whose timeout bounds connecting and waiting for
// response headers. Reading the body is bounded only by the request context,
// so long media streams are not cut off. A zero timeout leaves requests
// bounded only by their context.
func NewClient(timeout time.Duration, userAgent string) *Client {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if timeout > 0 {
		dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
		transport.DialContext = dialer.DialContext
		transport.TLSHandshakeTimeout = timeout
		transport.ResponseHeaderTimeout = timeout
	}
	return &Client{HTTP: &http.Client{Transport: transport}, UserAgent: userAgent}
}

// Stream is an open upstream response body.
type Stream struct {
	Body          io.ReadCloser
	StatusCode    int
	ContentType   string
	ContentLength int64
}

func (s *Stream) Close() error { return s.Body.Close() }

func (c *Client) httpClient() *http.Client {
	if c != nil && c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// FetchStream issues a GET for url and returns the open body. The caller
// must close the stream. Non-2xx responses become *UpstreamFetchError.
func (c *Client) FetchStream(ctx context.Context, url string) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UpstreamFetchError{URL: url, Err: err}
	}
	if c != nil && c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &UpstreamFetchError{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &UpstreamFetchError{URL: url, StatusCode: resp.StatusCode}
	}
	return &Stream{
		Body:          resp.Body,
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}

// FetchText reads the whole body of url as text and returns it with the
// upstream content type.
func (c *Client) FetchText(ctx context.Context, url string) (string, string, error) {
	stream, err := c.FetchStream(ctx, url)
	if err != nil {
		return "", "", err
	}
	defer stream.Close()

	data, err := io.ReadAll(io.LimitReader(stream.Body, maxTextBytes+1))
	if err != nil {
		return "", "", &UpstreamFetchError{URL: url, Err: err}
	}
	if len(data) > maxTextBytes {
		return "", "", &UpstreamFetchError{URL: url, Err: fmt.Errorf("body exceeds %d bytes", maxTextBytes)}
	}
	contentType := stream.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}
	return string(data), contentType, nil
}
