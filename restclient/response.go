// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"reflect"

	"github.com/GateNLP/cloud-client-go/restdata"
	"github.com/sirupsen/logrus"
)

// responseBody is the readable body of a successful response.  Close
// releases the connection and waits for the request body producer.
type responseBody struct {
	io.Reader
	raw    io.Closer
	gz     *gzip.Reader
	wait   func() error
	closed bool
}

func (b *responseBody) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	var err error
	if b.gz != nil {
		err = b.gz.Close()
	}
	err = firstError(b.raw.Close(), err)
	return firstError(err, b.wait())
}

// open executes req and dispatches on the final status code.  On
// success it returns the response body, or nil if the response has
// no content.  The caller must close a non-nil body.
func (c *Client) open(ctx context.Context, req *Request) (io.ReadCloser, *Result, error) {
	s, err := c.execute(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	resp := s.resp
	result := &Result{StatusCode: resp.StatusCode, Header: resp.Header, URL: s.url}

	// Anything that is not a plain success is finished here.
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotModified {
		_, _ = io.Copy(ioutil.Discard, resp.Body)
		err = firstError(resp.Body.Close(), s.wait())
		if err != nil {
			return nil, nil, &Error{Message: "error communicating with server", Err: err}
		}
		return nil, result, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = readError(resp)
		_ = firstError(resp.Body.Close(), s.wait())
		return nil, nil, err
	}

	body := &responseBody{Reader: resp.Body, raw: resp.Body, wait: s.wait}
	if s.gzip {
		gz, err := gzip.NewReader(resp.Body)
		switch {
		case err == io.EOF:
			// gzip header on an empty body
			_ = body.Close()
			return nil, result, nil
		case err != nil:
			_ = body.Close()
			return nil, nil, &Error{
				Message:    "could not decompress response",
				StatusCode: resp.StatusCode,
				Header:     resp.Header,
				Err:        err,
			}
		}
		body.gz = gz
		body.Reader = gz
	}
	return body, result, nil
}

// read decodes the body of a successful response into out, or
// discards it if out is nil.  An empty body leaves out untouched.
func (c *Client) read(ctx context.Context, req *Request, out interface{}) (result *Result, err error) {
	body, result, err := c.open(ctx, req)
	if err != nil {
		return nil, err
	}
	if body == nil {
		record(ctx, result)
		return result, nil
	}
	defer func() {
		closeErr := body.Close()
		if err == nil && closeErr != nil {
			result = nil
			err = &Error{Message: "error communicating with server", Err: closeErr}
		}
	}()

	if out == nil {
		if _, err = io.Copy(ioutil.Discard, body); err != nil {
			return nil, &Error{Message: "error communicating with server", Err: err}
		}
		record(ctx, result)
		return result, nil
	}

	buffered := bufio.NewReader(body)
	if _, err = buffered.Peek(1); err == io.EOF {
		record(ctx, result)
		return result, nil
	} else if err != nil {
		return nil, &Error{Message: "error communicating with server", Err: err}
	}
	contentType := result.Header.Get("Content-Type")
	if !restdata.IsJSON(contentType) && acceptsJSON(req) {
		// The caller asked for JSON, so decode by shape whatever
		// the label says.
		c.log.WithFields(logrus.Fields{
			"url":         result.URL.String(),
			"contentType": contentType,
		}).Debug("decoding mislabelled response as JSON")
		contentType = restdata.JSONMediaType
	}
	err = restdata.Decode(contentType, buffered, out)
	if err != nil {
		return nil, &Error{
			Message:    "could not decode response",
			StatusCode: result.StatusCode,
			Header:     result.Header,
			Err:        err,
		}
	}
	record(ctx, result)
	return result, nil
}

// acceptsJSON reports whether req asks for a JSON response, which
// it does unless it sets some other Accept header.
func acceptsJSON(req *Request) bool {
	accept := req.Header.Get("Accept")
	return accept == "" || restdata.IsJSON(accept)
}

// Do performs req and decodes a JSON response into out, which must be
// a pointer to a zero value or nil.  Redirects are followed.  If the
// server returns 204 No Content or an empty body, out is not changed.
// If out is nil the response body is discarded.
func (c *Client) Do(ctx context.Context, req *Request, out interface{}) (*Result, error) {
	return c.read(ctx, req, out)
}

// Update performs req and merges a JSON response into target, which
// must be a non-nil pointer to an existing value.  Fields present in
// the response overwrite the corresponding fields of target; all
// other fields keep their values.  If the server returns 204 No
// Content, target is not changed.
func (c *Client) Update(ctx context.Context, req *Request, target interface{}) (*Result, error) {
	if target == nil {
		return nil, errors.New("restclient: Update target must not be nil")
	}
	if v := reflect.ValueOf(target); v.Kind() != reflect.Ptr || v.IsNil() {
		return nil, fmt.Errorf("restclient: Update target must be a non-nil pointer, not %T", target)
	}
	return c.read(ctx, req, target)
}

// Stream performs req and returns the raw response body, decompressed
// if the server compressed it.  The caller must close the stream.  If
// the server returns 204 No Content the stream is nil.
func (c *Client) Stream(ctx context.Context, req *Request) (io.ReadCloser, *Result, error) {
	body, result, err := c.open(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	record(ctx, result)
	return body, result, nil
}

// Delete sends a DELETE request to target and discards any response.
func (c *Client) Delete(ctx context.Context, target string) (*Result, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Target: target, GzipThreshold: NoCompression}, nil)
}

// Get retrieves target and decodes it into out.
func (c *Client) Get(ctx context.Context, target string, out interface{}) (*Result, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Target: target, GzipThreshold: NoCompression}, out)
}

// Post sends in as JSON to target and decodes the response into out.
func (c *Client) Post(ctx context.Context, target string, in, out interface{}) (*Result, error) {
	return c.Do(ctx, &Request{
		Method:        http.MethodPost,
		Target:        target,
		Body:          JSONBody{Value: in},
		GzipThreshold: NoCompression,
	}, out)
}

// GetForUpdate retrieves target and merges it into obj.
func (c *Client) GetForUpdate(ctx context.Context, target string, obj interface{}) (*Result, error) {
	return c.Update(ctx, &Request{Method: http.MethodGet, Target: target, GzipThreshold: NoCompression}, obj)
}

// PostForUpdate sends in as JSON to target and merges the response
// into obj.
func (c *Client) PostForUpdate(ctx context.Context, target string, obj, in interface{}) (*Result, error) {
	return c.Update(ctx, &Request{
		Method:        http.MethodPost,
		Target:        target,
		Body:          JSONBody{Value: in},
		GzipThreshold: NoCompression,
	}, obj)
}

// GetRedirect sends a GET to target, which must answer with a
// redirect, and returns the redirect's destination.  This is how the
// API hands out short-lived download URLs.
func (c *Client) GetRedirect(ctx context.Context, target string) (*url.URL, error) {
	u, err := c.Resolve(target)
	if err != nil {
		return nil, &Error{Message: "invalid request URL", Err: err}
	}
	s, err := c.send(ctx, u, &Request{Method: http.MethodGet, GzipThreshold: NoCompression})
	if err != nil {
		return nil, err
	}
	resp := s.resp
	if resp.StatusCode >= 400 && resp.StatusCode <= 599 {
		err = readError(resp)
		_ = firstError(resp.Body.Close(), s.wait())
		return nil, err
	}
	_, _ = io.Copy(ioutil.Discard, resp.Body)
	if err := firstError(resp.Body.Close(), s.wait()); err != nil {
		return nil, &Error{Message: "error communicating with server", Err: err}
	}

	location := resp.Header.Get("Location")
	if !isRedirect(resp.StatusCode) || location == "" {
		return nil, &Error{
			Message:    fmt.Sprintf("expected redirect but server returned response code %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Err:        ErrExpectedRedirect,
		}
	}
	dest, err := u.Parse(location)
	if err != nil {
		return nil, &Error{
			Message:    "invalid redirect location",
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Err:        err,
		}
	}
	return dest, nil
}
