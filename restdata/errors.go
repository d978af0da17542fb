// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"fmt"
)

// ErrUnsupportedMediaType is returned from Decode() if the provided
// Content-Type: is not JSON.
type ErrUnsupportedMediaType struct {
	Type string
}

func (e ErrUnsupportedMediaType) Error() string {
	return fmt.Sprintf("Unsupported media type %q", e.Type)
}

// ErrorResponse is the body the server sends with most 4xx and 5xx
// responses.  Only Message is reliably present; the rest of the
// object is kept by the client as an untyped map.
type ErrorResponse struct {
	// Message is a human-readable description of the failure.
	Message string `json:"message"`
}
