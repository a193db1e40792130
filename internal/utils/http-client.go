package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

var ErrBodyTooLarge = errors.New("response too large")

type HTTPClientConfig struct {
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
	KATimeout             time.Duration
	// Timeout bounds a whole request; zero leaves streamed bodies unbounded.
	Timeout       time.Duration
	ProxyURL      string
	ProxyUsername string
	ProxyPassword string
	UserAgent     string
	Headers       map[string]string
}

type TubeHTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

func NewTubeHTTPClient(cfg HTTPClientConfig) *TubeHTTPClient {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ResponseHeaderTimeout == 0 {
		cfg.ResponseHeaderTimeout = 30 * time.Second
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = 90 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.DialTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		IdleConnTimeout:       cfg.KATimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		ForceAttemptHTTP2:     true,
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err == nil {
			if cfg.ProxyUsername != "" {
				if cfg.ProxyPassword != "" {
					proxyURL.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
				} else {
					proxyURL.User = url.User(cfg.ProxyUsername)
				}
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	c := &TubeHTTPClient{config: cfg}
	c.client = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &headerTransport{base: transport, client: c},
	}
	return c
}

// StdClient exposes the configured client for libraries that take an
// *http.Client; default headers are still applied.
func (c *TubeHTTPClient) StdClient() *http.Client {
	return c.client
}

func (c *TubeHTTPClient) SetHeader(key, value string) {
	c.config.Headers[key] = value
}

func (c *TubeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

// Fetch performs a GET and returns the body if the status is 200 and the
// body is at most limit bytes.
func (c *TubeHTTPClient) Fetch(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GET request: %w", err)
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error executing GET request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: response body exceeds %s", ErrBodyTooLarge, FormatBytes(limit))
	}
	return data, nil
}

type headerTransport struct {
	base   http.RoundTripper
	client *TubeHTTPClient
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.client.config.UserAgent)
	}
	for k, v := range t.client.config.Headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
