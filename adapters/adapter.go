package adapters

import (
	"net/http"
	"time"
)

// HTTPAdapterConfig groups options which control how HTTP requests are made by delegates.
type HTTPAdapterConfig struct {
	// See IdleConnTimeout on https://golang.org/pkg/net/http/#Transport
	IdleConnTimeout time.Duration
	// See MaxIdleConns on https://golang.org/pkg/net/http/#Transport
	MaxConns int
	// See MaxIdleConnsPerHost on https://golang.org/pkg/net/http/#Transport
	MaxConnsPerHost int
	// Timeout bounds a whole request. Zero leaves it to the context the delegate was given.
	Timeout time.Duration
}

// DefaultHTTPAdapterConfig is an HTTPAdapterConfig that chooses sensible default values.
var DefaultHTTPAdapterConfig = &HTTPAdapterConfig{
	MaxConns:        50,
	MaxConnsPerHost: 10,
	IdleConnTimeout: 60 * time.Second,
}

// HTTPAdapter is the client shared by every HTTP backed delegate.
type HTTPAdapter struct {
	Transport *http.Transport
	Client    *http.Client
}

// NewHTTPAdapter creates an HTTPAdapter which obeys the rules given by the config.
func NewHTTPAdapter(c *HTTPAdapterConfig) *HTTPAdapter {
	if c == nil {
		c = DefaultHTTPAdapterConfig
	}
	ts := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        c.MaxConns,
		MaxIdleConnsPerHost: c.MaxConnsPerHost,
		IdleConnTimeout:     c.IdleConnTimeout,
	}

	return &HTTPAdapter{
		Transport: ts,
		Client: &http.Client{
			Transport: ts,
			Timeout:   c.Timeout,
		},
	}
}
