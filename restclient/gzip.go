// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"bytes"
	"compress/gzip"
	"io"
)

// NoCompression is a GzipThreshold value that disables request
// compression.
const NoCompression = -1

// A bodyPlan is the decision of how the request body will be sent.
// It is made once, before the request is dispatched.
type bodyPlan struct {
	// Reader is the body as it goes on the wire.
	Reader io.Reader

	// Length is the exact length of Reader, or -1 if unknown.
	Length int64

	// Gzip is true if Reader produces gzip-compressed data.
	Gzip bool

	// Err is set if the body producer failed before a plan could
	// be made.
	Err error
}

// bodySink receives the request body from the producer goroutine.
// The producer calls Close() on success or abort() on failure, and
// then must not use the sink again.
type bodySink interface {
	io.WriteCloser
	abort(err error)
}

// newSink creates a sink that eventually sends exactly one bodyPlan
// to plans.  A negative threshold produces an uncompressed streaming
// body and decides immediately.
func newSink(threshold int, plans chan<- bodyPlan) bodySink {
	if threshold < 0 {
		pr, pw := io.Pipe()
		plans <- bodyPlan{Reader: pr, Length: -1}
		return &pipeSink{pw}
	}
	return &thresholdWriter{threshold: threshold, plans: plans}
}

// pipeSink passes the body straight through to the HTTP request.
type pipeSink struct {
	*io.PipeWriter
}

func (s *pipeSink) abort(err error) {
	s.CloseWithError(err)
}

// thresholdWriter buffers up to threshold bytes.  If it is closed
// without exceeding that it sends the buffer as the body; otherwise
// the body becomes a pipe carrying gzip-compressed data, and the
// buffer and all later writes are compressed into it.
type thresholdWriter struct {
	threshold int
	plans     chan<- bodyPlan
	decided   bool
	buf       bytes.Buffer
	pw        *io.PipeWriter
	gz        *gzip.Writer
}

func (w *thresholdWriter) decide(plan bodyPlan) {
	w.decided = true
	w.plans <- plan
}

func (w *thresholdWriter) Write(p []byte) (int, error) {
	if w.gz != nil {
		return w.gz.Write(p)
	}
	if w.buf.Len()+len(p) <= w.threshold {
		return w.buf.Write(p)
	}

	// Over the limit: switch to compressing.  The request has not
	// been sent yet, so the caller can still set Content-Encoding.
	pr, pw := io.Pipe()
	w.pw = pw
	w.gz = gzip.NewWriter(pw)
	w.decide(bodyPlan{Reader: pr, Length: -1, Gzip: true})
	if _, err := w.gz.Write(w.buf.Bytes()); err != nil {
		return 0, err
	}
	w.buf.Reset()
	return w.gz.Write(p)
}

func (w *thresholdWriter) Close() error {
	if w.gz == nil {
		if !w.decided {
			body := w.buf.Bytes()
			w.decide(bodyPlan{Reader: bytes.NewReader(body), Length: int64(len(body))})
		}
		return nil
	}
	if err := w.gz.Close(); err != nil {
		w.pw.CloseWithError(err)
		return err
	}
	return w.pw.Close()
}

func (w *thresholdWriter) abort(err error) {
	if !w.decided {
		w.decide(bodyPlan{Err: err})
		return
	}
	if w.pw != nil {
		w.pw.CloseWithError(err)
	}
}
