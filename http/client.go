package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"brein.evalgo.org/brerr"
	"brein.evalgo.org/version"
)

// Doer sends a prepared request. *http.Client satisfies it; tests may swap in
// their own.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client executes requests with fixed connection and socket timeouts.
// It performs exactly one attempt per request.
type Client struct {
	doer      Doer
	userAgent string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDoer replaces the underlying *http.Client.
func WithDoer(d Doer) ClientOption {
	return func(c *Client) {
		if d != nil {
			c.doer = d
		}
	}
}

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a client. connectTimeout bounds dialing and the TLS
// handshake; socketTimeout bounds waiting for the response headers and, added
// to connectTimeout, the whole exchange. Zero disables a bound.
func NewClient(connectTimeout, socketTimeout time.Duration, opts ...ClientOption) *Client {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	transport.ResponseHeaderTimeout = socketTimeout

	// the socket timeout also bounds reading the body
	var total time.Duration
	if socketTimeout > 0 {
		total = socketTimeout
		if connectTimeout > 0 {
			total += connectTimeout
		}
	}

	c := &Client{
		doer: &http.Client{
			Transport: transport,
			Timeout:   total,
		},
		userAgent: version.UserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute performs the request once and returns the response.
//
// A transport failure, including cancellation of ctx, yields a network error
// and a nil response. A non-2xx status yields both the response and an http
// error carrying the status code.
func (c *Client) Execute(ctx context.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	if req.URL == "" {
		return nil, brerr.New(brerr.KindConfiguration, "http.Execute", "URL is required")
	}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, brerr.Wrap(brerr.KindNetwork, "http.Execute", err, "failed to build request")
	}

	httpResp, err := c.doer.Do(httpReq)
	if err != nil {
		return nil, brerr.Wrap(brerr.KindNetwork, "http.Execute", err, "%s %s", httpReq.Method, req.URL)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, brerr.Wrap(brerr.KindNetwork, "http.Execute", err, "failed to read response body")
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    make(map[string]string),
		Body:       body,
		Duration:   time.Since(startTime),
	}

	for key, values := range httpResp.Header {
		if len(values) > 0 {
			resp.Headers[key] = values[0]
		}
	}

	if !resp.IsSuccess() {
		e := brerr.New(brerr.KindHTTP, "http.Execute", "HTTP %d: %s", resp.StatusCode, resp.Status)
		e.StatusCode = resp.StatusCode
		return resp, e
	}

	return resp, nil
}

// buildRequest builds the request with JSON headers
func (c *Client) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if req.JSONBody != nil {
		body = bytes.NewReader(req.JSONBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", ContentTypeJSON)
	httpReq.Header.Set("Accept", ContentTypeJSON)

	userAgent := c.userAgent
	if req.UserAgent != "" {
		userAgent = req.UserAgent
	}
	if userAgent != "" {
		httpReq.Header.Set("User-Agent", userAgent)
	}

	// Custom headers may override the defaults
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

// String describes the request for logs.
func (r *Request) String() string {
	method := r.Method
	if method == "" {
		method = http.MethodPost
	}
	return fmt.Sprintf("%s %s (%d bytes)", method, r.URL, len(r.JSONBody))
}
