// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"errors"
	"io"
	"os"

	"github.com/GateNLP/cloud-client-go/restdata"
)

// Body is the content of a request.  It is exactly one of StreamBody,
// WriterBody, or JSONBody; a nil Body sends no content at all.
type Body interface {
	writeTo(w io.Writer) error
}

// StreamBody sends the bytes of Reader verbatim.  The transport never
// closes Reader.  If a redirect forces the request to be re-sent,
// Reader must also be an io.Seeker.
type StreamBody struct {
	Reader io.Reader
}

func (b StreamBody) writeTo(w io.Writer) error {
	_, err := io.Copy(w, b.Reader)
	return err
}

// WriterBody produces the request content by writing it to the
// supplied writer.  Write may be called more than once if the request
// is redirected.
type WriterBody struct {
	Write func(io.Writer) error
}

func (b WriterBody) writeTo(w io.Writer) error {
	return b.Write(w)
}

// JSONBody sends the JSON encoding of Value.
type JSONBody struct {
	Value interface{}
}

func (b JSONBody) writeTo(w io.Writer) error {
	return restdata.Encode(w, b.Value)
}

// ErrBodyNotReplayable is returned when a redirect requires sending a
// StreamBody again but its reader cannot be rewound.
var ErrBodyNotReplayable = errors.New("request body cannot be re-sent for redirect")

// replayer returns a function that prepares body to be sent again
// from the beginning.  It must be called before body is first sent.
func replayer(body Body) func() error {
	stream, isStream := body.(StreamBody)
	if !isStream {
		return func() error { return nil }
	}
	seeker, isSeeker := stream.Reader.(io.Seeker)
	if !isSeeker {
		return func() error { return ErrBodyNotReplayable }
	}
	start, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return func() error { return ErrBodyNotReplayable }
	}
	return func() error {
		_, err := seeker.Seek(start, io.SeekStart)
		return err
	}
}

// knownLength returns the number of bytes remaining in r, if r can
// say without being read, or -1.
func knownLength(r io.Reader) int64 {
	switch lr := r.(type) {
	case interface{ Len() int }:
		return int64(lr.Len())
	case *os.File:
		info, err := lr.Stat()
		if err != nil || !info.Mode().IsRegular() {
			return -1
		}
		pos, err := lr.Seek(0, io.SeekCurrent)
		if err != nil {
			return -1
		}
		return info.Size() - pos
	}
	return -1
}
