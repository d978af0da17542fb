// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Request describes one API call.
type Request struct {
	// Method is the HTTP method; empty means GET.
	Method string

	// Target is the URL to call, absolute or relative to the
	// client's base URL.
	Target string

	// Body is the request content, or nil for none.
	Body Body

	// Header holds additional request headers.  If it does not
	// set Accept, application/json is requested; if it does not
	// set Content-Type and there is a body, the body is declared
	// to be application/json.
	Header http.Header

	// GzipThreshold is the largest body, in bytes, sent without
	// compression.  The zero value compresses every non-empty
	// body; use NoCompression to never compress.
	GzipThreshold int

	// ContentLength is the exact length of a StreamBody.  It is
	// used when it is positive or KnownLength is set, and only
	// when the body is not compressed.  Readers with a Len()
	// method, such as *bytes.Reader, and regular files do not
	// need this set.
	ContentLength int64

	// KnownLength says ContentLength is exact even when it is
	// zero.
	KnownLength bool
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

// sent is one request in flight.  wait() must be called once the
// response body has been closed; it returns the body producer's
// error, if any.
type sent struct {
	resp *http.Response
	url  *url.URL
	wait func() error
	gzip bool
}

// send issues a single HTTP request for req against u, without
// following redirects.
func (c *Client) send(ctx context.Context, u *url.URL, req *Request) (*sent, error) {
	plan, wait := c.planBody(req)
	if plan.Err != nil {
		return nil, &Error{Message: "error writing request body", Err: firstError(plan.Err, wait())}
	}

	var body io.Reader
	if plan.Reader != nil {
		body = ioutil.NopCloser(plan.Reader)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.method(), u.String(), body)
	if err != nil {
		closePlan(plan)
		return nil, &Error{Message: "could not build request", Err: firstError(err, wait())}
	}
	if plan.Reader != nil && plan.Length >= 0 {
		hreq.ContentLength = plan.Length
		if plan.Length == 0 {
			hreq.Body = http.NoBody
		}
	}

	for name, values := range req.Header {
		for _, value := range values {
			hreq.Header.Add(name, value)
		}
	}
	if c.auth != "" {
		hreq.Header.Set("Authorization", c.auth)
	}
	if hreq.Header.Get("Accept") == "" {
		hreq.Header.Set("Accept", "application/json")
	}
	if req.Body != nil && hreq.Header.Get("Content-Type") == "" {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if plan.Gzip {
		hreq.Header.Set("Content-Encoding", "gzip")
	}

	start := time.Now()
	resp, err := c.http.Do(hreq)
	c.observe(hreq, resp, plan.Gzip, time.Since(start))
	if err != nil {
		closePlan(plan)
		return nil, &Error{Message: "error communicating with server", Err: firstError(err, wait())}
	}
	c.log.WithFields(logrus.Fields{
		"method": hreq.Method,
		"url":    u.String(),
		"status": resp.StatusCode,
		"gzip":   plan.Gzip,
	}).Debug("API request")

	return &sent{
		resp: resp,
		url:  u,
		gzip: isGzip(resp.Header),
		wait: func() error {
			closePlan(plan)
			return wait()
		},
	}, nil
}

// planBody starts producing the body of req, and returns the plan
// for sending it along with a function that waits for the producer.
func (c *Client) planBody(req *Request) (bodyPlan, func() error) {
	if req.Body == nil {
		return bodyPlan{}, func() error { return nil }
	}

	// An uncompressed stream of known length goes out directly, so
	// that it is sent with a Content-Length header.
	if stream, isStream := req.Body.(StreamBody); isStream && req.GzipThreshold < 0 {
		length := req.ContentLength
		if !req.KnownLength && length <= 0 {
			length = knownLength(stream.Reader)
		}
		if length >= 0 {
			return bodyPlan{Reader: stream.Reader, Length: length}, func() error { return nil }
		}
	}

	plans := make(chan bodyPlan, 1)
	done := make(chan error, 1)
	sink := newSink(req.GzipThreshold, plans)
	go func() {
		err := req.Body.writeTo(sink)
		if err == nil {
			err = sink.Close()
		} else {
			sink.abort(err)
		}
		done <- err
	}()
	plan := <-plans
	var result error
	waited := false
	return plan, func() error {
		if !waited {
			result = <-done
			waited = true
		}
		return result
	}
}

// closePlan unblocks a body producer that is still writing into a
// pipe nobody will read.
func closePlan(plan bodyPlan) {
	if pr, isPipe := plan.Reader.(*io.PipeReader); isPipe {
		_ = pr.Close()
	}
}

// execute sends req, following redirects up to the client's limit.
// The returned response is never a redirect that carries a Location.
func (c *Client) execute(ctx context.Context, req *Request) (*sent, error) {
	u, err := c.Resolve(req.Target)
	if err != nil {
		return nil, &Error{Message: "invalid request URL", Err: err}
	}
	rewind := replayer(req.Body)
	for hops := 0; ; hops++ {
		if hops > 0 {
			if err := rewind(); err != nil {
				return nil, &Error{Message: "could not follow redirect", Err: err}
			}
		}
		s, err := c.send(ctx, u, req)
		if err != nil {
			return nil, err
		}
		location := s.resp.Header.Get("Location")
		if !isRedirect(s.resp.StatusCode) || location == "" {
			return s, nil
		}

		// Discard the body so the connection can be reused.
		_, _ = io.Copy(ioutil.Discard, s.resp.Body)
		err = firstError(s.resp.Body.Close(), s.wait())
		if err != nil {
			return nil, &Error{Message: "error communicating with server", Err: err}
		}
		if hops >= c.maxRedirects {
			return nil, &Error{
				Message:    "too many redirects",
				StatusCode: s.resp.StatusCode,
				Header:     s.resp.Header,
				Err:        ErrTooManyRedirects,
			}
		}
		next, err := u.Parse(location)
		if err != nil {
			return nil, &Error{
				Message:    "invalid redirect location",
				StatusCode: s.resp.StatusCode,
				Header:     s.resp.Header,
				Err:        err,
			}
		}
		c.log.WithFields(logrus.Fields{
			"from":      u.String(),
			"to":        next.String(),
			"redirects": hops + 1,
		}).Debug("following redirect")
		u = next
	}
}

func isGzip(h http.Header) bool {
	return strings.EqualFold(strings.TrimSpace(h.Get("Content-Encoding")), "gzip")
}

func isRedirect(status int) bool {
	return status >= 300 && status <= 399 && status != http.StatusNotModified
}
