// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restclient provides the HTTP transport for the GATE Cloud
// REST API.  It handles authentication, JSON request and response
// bodies, gzip compression in both directions, and the API's habit of
// answering with 303 See Other redirects.
//
// Call New() with the API base URL and, optionally, an API key:
//
//     c, err := restclient.New(restclient.DefaultBaseURL,
//         &restclient.Credentials{KeyID: "abc", Password: "xyz"})
//
// A Client is safe for concurrent use.  Every operation blocks until
// the response has been fully handled, or for Stream() until the
// caller closes the returned body.
//
// Redirects
//
// The standard library's redirect handling turns a 303 into a GET and
// drops the Authorization header.  The API uses 303 to mean "send the
// same request over there", so Client turns automatic redirects off
// and re-issues the original method, body, and headers itself, up to
// a configurable limit.
//
// Compression
//
// A Request with a non-negative GzipThreshold buffers its body up to
// that many bytes.  Bodies that fit are sent as-is; larger bodies are
// sent with Content-Encoding: gzip.  Responses carrying
// Content-Encoding: gzip are decompressed transparently.
package restclient

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the base URL of the production GATE Cloud API.
const DefaultBaseURL = "https://cloud.gate.ac.uk/api/"

// DefaultMaxRedirects is the number of redirects a single call will
// follow before failing with ErrTooManyRedirects.
const DefaultMaxRedirects = 5

// Credentials identify an API key.
type Credentials struct {
	KeyID    string
	Password string
}

func (c *Credentials) authorization() string {
	token := base64.StdEncoding.EncodeToString([]byte(c.KeyID + ":" + c.Password))
	return "Basic " + token
}

// Client talks to one API endpoint with one (possibly absent) set of
// credentials.  Neither can change after New() returns.
type Client struct {
	base         *url.URL
	auth         string
	http         *http.Client
	log          logrus.FieldLogger
	maxRedirects int
	timeout      time.Duration
}

// An Option changes the configuration of a new Client.
type Option func(*Client)

// WithLogger directs per-request debug logging to a specific logger.
// The default is the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithMaxRedirects sets the number of redirects a call will follow.
// Zero means redirects are never followed and always fail.
func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		c.maxRedirects = n
	}
}

// WithTimeout limits how long each request waits for the server's
// response headers.  Reading the body is not limited, so long
// downloads are not cut off.  Zero means no limit.  The limit only
// applies when the round tripper is an *http.Transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPTransport replaces the underlying round tripper, for
// instance to configure proxies or TLS.
func WithHTTPTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

// New creates a new client for the API at baseURL.  If creds is nil
// the client never sends an Authorization header, and the service
// applies its stricter anonymous quotas.
func New(baseURL string, creds *Credentials, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("restclient: empty base URL")
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if !base.IsAbs() {
		return nil, errors.New("restclient: base URL must be absolute")
	}
	c := &Client{
		base:         base,
		log:          logrus.StandardLogger(),
		maxRedirects: DefaultMaxRedirects,
		http: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	if creds != nil {
		c.auth = creds.authorization()
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		c.applyTimeout()
	}
	return c, nil
}

// applyTimeout sets the response header timeout on a copy of the
// client's transport.
func (c *Client) applyTimeout() {
	rt := c.http.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	transport, ok := rt.(*http.Transport)
	if !ok {
		c.log.WithField("transport", fmt.Sprintf("%T", rt)).Warn("cannot apply timeout to custom transport")
		return
	}
	transport = transport.Clone()
	transport.ResponseHeaderTimeout = c.timeout
	c.http.Transport = transport
}

// BaseURL returns a copy of the client's base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Authenticated returns true if this client sends credentials.
func (c *Client) Authenticated() bool {
	return c.auth != ""
}

// Anonymous returns a client sharing this client's configuration and
// connection pool but sending no credentials.  Use this for the
// pre-signed storage URLs the API hands out, which reject requests
// carrying an unexpected Authorization header.
func (c *Client) Anonymous() *Client {
	anon := *c
	anon.auth = ""
	return &anon
}

// Resolve interprets target relative to the base URL.  Absolute
// targets are returned unchanged.
func (c *Client) Resolve(target string) (*url.URL, error) {
	return c.base.Parse(target)
}
