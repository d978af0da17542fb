// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"context"
	"net/http"
	"net/url"
	"sync"
)

// Result describes the final successful response of a call, after
// any redirects.
type Result struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// URL is the address that produced the response.
	URL *url.URL
}

// Quota returns a view of the quota headers of the response.
func (r *Result) Quota() Quota {
	if r == nil {
		return Quota{}
	}
	return Quota{Header: r.Header}
}

// HeaderRecorder remembers the headers of the most recent successful
// response to a call made with its context.  Responses with status
// 304 Not Modified and failing responses are not recorded.
type HeaderRecorder struct {
	mu   sync.Mutex
	last http.Header
}

// Last returns the most recently recorded headers, or nil if no call
// has completed yet.
func (r *HeaderRecorder) Last() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Quota returns a view of the quota headers of the most recent
// response.
func (r *HeaderRecorder) Quota() Quota {
	return Quota{Header: r.Last()}
}

func (r *HeaderRecorder) record(h http.Header) {
	r.mu.Lock()
	r.last = h
	r.mu.Unlock()
}

type recorderKey struct{}

// RecordHeaders returns a context that records response headers into
// the returned recorder.  Recorders only see calls made with their
// own context or contexts derived from it.
func RecordHeaders(ctx context.Context) (context.Context, *HeaderRecorder) {
	rec := &HeaderRecorder{}
	return context.WithValue(ctx, recorderKey{}, rec), rec
}

// record stores the response headers in the context's recorder, if
// it has one.
func record(ctx context.Context, result *Result) {
	if result.StatusCode == http.StatusNotModified {
		return
	}
	if rec, ok := ctx.Value(recorderKey{}).(*HeaderRecorder); ok {
		rec.record(result.Header)
	}
}

// Quota headers the service attaches to online API responses.
const (
	HeaderRequestCost    = "X-GATE-Request-Cost"
	HeaderRemainingQuota = "X-GATE-Remaining-Quota"
	HeaderQuotaReset     = "X-GATE-Quota-Reset"
	HeaderRateLimitCalls = "X-GATE-Rate-Limit-Calls"
	HeaderRateLimitReset = "X-GATE-Rate-Limit-Reset"
)

// Quota reads the service's quota and rate-limit headers.  Values
// are returned as the server sent them; a missing header yields an
// empty string.
type Quota struct {
	Header http.Header
}

// RequestCost is the number of quota units the call consumed.
func (q Quota) RequestCost() string {
	return q.Header.Get(HeaderRequestCost)
}

// RemainingQuota is the quota left in the current period.
func (q Quota) RemainingQuota() string {
	return q.Header.Get(HeaderRemainingQuota)
}

// QuotaReset is when the quota period ends.
func (q Quota) QuotaReset() string {
	return q.Header.Get(HeaderQuotaReset)
}

// RateLimitCalls is the number of calls left in the rate-limit window.
func (q Quota) RateLimitCalls() string {
	return q.Header.Get(HeaderRateLimitCalls)
}

// RateLimitReset is when the rate-limit window ends.
func (q Quota) RateLimitReset() string {
	return q.Header.Get(HeaderRateLimitReset)
}

// Empty returns true if none of the quota headers are present.
func (q Quota) Empty() bool {
	return q.RequestCost() == "" && q.RemainingQuota() == "" &&
		q.QuotaReset() == "" && q.RateLimitCalls() == "" &&
		q.RateLimitReset() == ""
}
