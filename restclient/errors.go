// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/GateNLP/cloud-client-go/restdata"
)

// ErrTooManyRedirects is the underlying error when a call is
// redirected more times than the client allows.
var ErrTooManyRedirects = errors.New("too many redirects")

// ErrExpectedRedirect is the underlying error when GetRedirect()
// receives a response that is not a redirect.
var ErrExpectedRedirect = errors.New("expected a redirect response")

// Error is returned from every failing call.  Transport failures have
// a zero StatusCode and the cause in Err.  Error responses from the
// server carry the StatusCode, the raw Body, and Response if the body
// was JSON.
type Error struct {
	// Message is a short description of the failure.
	Message string

	// StatusCode is the HTTP status of the response that caused
	// the failure, or 0 if there was no usable response.
	StatusCode int

	// Response is the parsed JSON error body, or nil.
	Response interface{}

	// Body holds the raw bytes of the error body.
	Body []byte

	// Header holds the headers of the failing response.
	Header http.Header

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// ServerMessage returns the "message" field of the server's error
// body, or an empty string.
func (e *Error) ServerMessage() string {
	if obj, isMap := e.Response.(map[string]interface{}); isMap {
		if msg, isString := obj["message"].(string); isString {
			return msg
		}
	}
	return ""
}

// StatusCode returns the HTTP status code carried by err, or 0 if err
// is not (or does not wrap) an *Error.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// readError reads an error response, which must be closed by the
// caller, into an *Error.
func readError(resp *http.Response) error {
	var body []byte
	var err error
	if isGzip(resp.Header) {
		var gz *gzip.Reader
		gz, err = gzip.NewReader(resp.Body)
		if err == nil {
			body, err = ioutil.ReadAll(gz)
			err = firstError(err, gz.Close())
		} else if err == io.EOF {
			err = nil
		}
	} else {
		body, err = ioutil.ReadAll(resp.Body)
	}
	if err != nil {
		return &Error{Message: "error communicating with server", Err: err}
	}

	e := &Error{
		Message:    fmt.Sprintf("server returned response code %d", resp.StatusCode),
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header,
	}
	if len(bytes.TrimSpace(body)) > 0 {
		var parsed interface{}
		if restdata.DecodeBytes(body, &parsed) == nil {
			e.Response = parsed
		}
	}
	return e
}

func firstError(e1, e2 error) error {
	if e1 != nil {
		return e1
	}
	return e2
}
