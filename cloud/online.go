// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cloud

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/GateNLP/cloud-client-go/restclient"
	"github.com/GateNLP/cloud-client-go/restdata"
)

// OnlineGzipThreshold is the request size above which documents sent
// to the online API are compressed.
const OnlineGzipThreshold = 4096

// ResponseType selects the format of online API results.
type ResponseType string

// Response types.
const (
	ResponseJSON    ResponseType = "JSON"
	ResponseGATEXML ResponseType = "GATE_XML"
	ResponseFINF    ResponseType = "FINF"
)

// MediaType returns the media type to request.  If includeText is
// false the server omits the document text from the response.
func (t ResponseType) MediaType(includeText bool) string {
	var mediaType string
	switch t {
	case ResponseGATEXML:
		mediaType = "application/gate+xml"
	case ResponseFINF:
		mediaType = "application/fastinfoset"
	default:
		mediaType = "application/json"
	}
	if !includeText {
		mediaType += "; includeText=no"
	}
	return mediaType
}

// Online creates handles on online API endpoints.
type Online struct {
	resource
}

// Endpoint returns a handle on the online API endpoint at
// endpointURL.  This does not contact the server.
func (m *Online) Endpoint(endpointURL string) (*Endpoint, error) {
	res, err := m.at(endpointURL)
	if err != nil {
		return nil, err
	}
	return &Endpoint{resource: res, threshold: OnlineGzipThreshold}, nil
}

// CallRequest is one document to process.
type CallRequest struct {
	// Content is the document, normally a restclient.StreamBody or
	// restclient.WriterBody.
	Content restclient.Body

	// MimeType is the media type of Content, such as
	// "text/plain; charset=UTF-8".
	MimeType string

	// ResponseType is the format of the result; the default is
	// JSON.
	ResponseType ResponseType

	// AnnotationSelectors is a comma-separated list of the
	// annotations to return, or empty for the endpoint's default.
	AnnotationSelectors string

	// ExcludeText asks the server to leave the document text out
	// of the response.
	ExcludeText bool

	// Params holds additional endpoint-specific query parameters.
	Params url.Values
}

// Endpoint is an online API endpoint that annotates one document
// per call.
type Endpoint struct {
	resource
	pacer     *Pacer
	threshold int
}

// WithPacer returns a copy of the endpoint whose calls go through a
// pacer.  Endpoint copies sharing a pacer share its rate limit.
func (e *Endpoint) WithPacer(p *Pacer) *Endpoint {
	paced := *e
	paced.pacer = p
	return &paced
}

// WithGzipThreshold returns a copy of the endpoint that compresses
// documents larger than threshold bytes.  A negative threshold turns
// compression off.
func (e *Endpoint) WithGzipThreshold(threshold int) *Endpoint {
	changed := *e
	changed.threshold = threshold
	return &changed
}

// String returns the endpoint's URL.
func (e *Endpoint) String() string {
	return e.URL.String()
}

// Call sends a document for processing and returns the result
// stream, which the caller must close.  If the service answers 204
// No Content the stream is nil.  The Result carries the service's
// quota headers either way.
func (e *Endpoint) Call(ctx context.Context, call CallRequest) (io.ReadCloser, *restclient.Result, error) {
	vars := map[string]interface{}{}
	setVar(vars, "annotations", call.AnnotationSelectors)
	u, err := e.template("{+self}{?annotations}", vars)
	if err != nil {
		return nil, nil, err
	}
	if len(call.Params) > 0 {
		query := u.Query()
		for name, values := range call.Params {
			for _, value := range values {
				query.Add(name, value)
			}
		}
		u.RawQuery = query.Encode()
	}

	header := http.Header{}
	header.Set("Accept", call.ResponseType.MediaType(!call.ExcludeText))
	header.Set("Accept-Encoding", "gzip")
	if call.MimeType != "" {
		header.Set("Content-Type", call.MimeType)
	}
	req := &restclient.Request{
		Method:        http.MethodPost,
		Target:        u.String(),
		Body:          call.Content,
		Header:        header,
		GzipThreshold: e.threshold,
	}

	var (
		body   io.ReadCloser
		result *restclient.Result
	)
	send := func() error {
		body, result, err = e.client.Stream(ctx, req)
		return err
	}
	if e.pacer != nil {
		err = e.pacer.Do(ctx, send)
	} else {
		err = send()
	}
	if err != nil {
		return nil, nil, err
	}
	return body, result, nil
}

// Metadata fetches the endpoint's description, including which
// annotations it can produce.
func (e *Endpoint) Metadata(ctx context.Context) (*restdata.ServiceMetadata, error) {
	var meta restdata.ServiceMetadata
	if err := e.getFrom(ctx, e.child("metadata"), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
