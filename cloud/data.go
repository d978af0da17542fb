// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cloud

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/GateNLP/cloud-client-go/restclient"
	"github.com/GateNLP/cloud-client-go/restdata"
)

var (
	// ErrARCInputType is returned when an ARC or WARC bundle is
	// given file extensions; web archives are filtered by MIME
	// type instead.
	ErrARCInputType = errors.New("ARC and WARC bundles filter entries by MIME type, not file extension")

	// ErrNotARCInputType is returned when a bundle that is not
	// ARC or WARC is given MIME type filters.
	ErrNotARCInputType = errors.New("MIME type filters only apply to ARC and WARC bundles")
)

// BundleSpec holds the settings of a new data bundle.
type BundleSpec struct {
	// Name is the display name of the bundle.
	Name string

	// Type is the archive format of the bundle's files.
	Type restdata.InputType

	// Encoding is the character encoding to assume for entries
	// that do not declare one.
	Encoding string

	// MimeTypeOverride forces every entry to be parsed as this
	// MIME type.
	MimeTypeOverride string

	// FileExtensions is a comma-separated list of the entry
	// extensions to process, for non-web-archive bundles.
	FileExtensions string

	// MimeTypeFilters is a comma-separated list of the MIME types
	// to process, for ARC and WARC bundles.
	MimeTypeFilters string
}

// Validate checks that the filter settings suit the bundle type.
func (s BundleSpec) Validate() error {
	if s.Type.IsARC() && s.FileExtensions != "" {
		return ErrARCInputType
	}
	if !s.Type.IsARC() && s.MimeTypeFilters != "" {
		return ErrNotARCInputType
	}
	return nil
}

func (s BundleSpec) request() restdata.BundleRequest {
	return restdata.BundleRequest{
		Name:             s.Name,
		Type:             s.Type,
		Encoding:         s.Encoding,
		MimeTypeOverride: s.MimeTypeOverride,
		FileExtensions:   s.FileExtensions,
		MimeTypeFilters:  s.MimeTypeFilters,
	}
}

// Data manages data bundles.
type Data struct {
	resource
}

// List returns summaries of the caller's data bundles.
func (m *Data) List(ctx context.Context) ([]*DataBundleSummary, error) {
	u, err := m.template("data/bundle", nil)
	if err != nil {
		return nil, err
	}
	var reps []restdata.DataBundleSummary
	if err = m.getFrom(ctx, u.String(), &reps); err != nil {
		return nil, err
	}
	result := make([]*DataBundleSummary, len(reps))
	for i, rep := range reps {
		res, err := m.at(rep.URL)
		if err != nil {
			return nil, err
		}
		result[i] = &DataBundleSummary{resource: res, Representation: rep}
	}
	return result, nil
}

// Get fetches a data bundle by its numeric ID.
func (m *Data) Get(ctx context.Context, id int64) (*DataBundle, error) {
	u, err := m.template("data/bundle/{id}", map[string]interface{}{"id": strconv.FormatInt(id, 10)})
	if err != nil {
		return nil, err
	}
	return m.GetURL(ctx, u.String())
}

// GetURL fetches a data bundle given its URL.
func (m *Data) GetURL(ctx context.Context, bundleURL string) (*DataBundle, error) {
	res, err := m.at(bundleURL)
	if err != nil {
		return nil, err
	}
	bundle := &DataBundle{resource: res}
	if err = bundle.Refresh(ctx); err != nil {
		return nil, err
	}
	return bundle, nil
}

func (m *Data) create(ctx context.Context, req restdata.BundleRequest) (*DataBundle, error) {
	u, err := m.template("data/bundle", nil)
	if err != nil {
		return nil, err
	}
	bundle := &DataBundle{resource: resource{client: m.client, URL: u}}
	if err = m.postTo(ctx, u.String(), req, &bundle.Representation); err != nil {
		return nil, err
	}
	res, err := m.at(bundle.Representation.URL)
	if err != nil {
		return nil, err
	}
	bundle.resource = res
	return bundle, nil
}

// CreateS3Bundle creates a bundle from files already stored in S3.
// Each location is an S3 URL of a single file or of a prefix.  The
// credentials may be empty if the files are public.
func (m *Data) CreateS3Bundle(ctx context.Context, spec BundleSpec, accessKey, secretKey string, locations ...string) (*DataBundle, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	req := spec.request()
	if accessKey != "" {
		req.AccessKey = accessKey
		req.SecretKey = secretKey
	}
	req.Locations = append([]string{}, locations...)
	return m.create(ctx, req)
}

// UploadBundle creates a bundle and uploads local files into it.  If
// any files are given the bundle is closed after they are uploaded;
// otherwise it is left open for AddFile() calls.
func (m *Data) UploadBundle(ctx context.Context, spec BundleSpec, files ...string) (*DataBundle, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	bundle, err := m.create(ctx, spec.request())
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return bundle, nil
	}
	for _, file := range files {
		if err = bundle.AddLocalFile(ctx, file); err != nil {
			return bundle, err
		}
	}
	if err = bundle.Close(ctx); err != nil {
		return bundle, err
	}
	return bundle, nil
}

// DataBundleSummary is one entry in the bundle list.
type DataBundleSummary struct {
	resource
	Representation restdata.DataBundleSummary
}

// Details fetches the full data bundle.
func (s *DataBundleSummary) Details(ctx context.Context) (*DataBundle, error) {
	bundle := &DataBundle{resource: s.resource}
	if err := bundle.Refresh(ctx); err != nil {
		return nil, err
	}
	return bundle, nil
}

// DataBundle is a collection of documents stored by the service,
// either uploaded as input or produced by a job.
type DataBundle struct {
	resource
	Representation restdata.DataBundle
}

// ID returns the bundle's numeric identifier.
func (b *DataBundle) ID() int64 {
	return b.Representation.ID
}

// Name returns the bundle's name.
func (b *DataBundle) Name() string {
	return b.Representation.Name
}

// Refresh fetches the bundle's current state.
func (b *DataBundle) Refresh(ctx context.Context) error {
	b.Representation = restdata.DataBundle{}
	err := b.get(ctx, &b.Representation)
	if err == nil && b.Representation.URL == "" {
		b.Representation.URL = b.URL.String()
	}
	return err
}

// Rename changes the bundle's name.
func (b *DataBundle) Rename(ctx context.Context, name string) error {
	return b.postForUpdate(ctx, b.URL.String(), &b.Representation, restdata.NameRequest{Name: name})
}

// AddFile uploads one file into an open bundle.  The server hands
// out a pre-signed storage URL, and the content is sent there
// without the API credentials.  size must be the exact number of
// bytes content will produce.
func (b *DataBundle) AddFile(ctx context.Context, name string, size int64, content io.Reader) error {
	var slot restdata.AddFileResponse
	err := b.postTo(ctx, b.child("add"), restdata.AddFileRequest{FileName: name}, &slot)
	if err != nil {
		return err
	}
	_, err = b.client.Anonymous().Do(ctx, &restclient.Request{
		Method:        http.MethodPut,
		Target:        slot.PutURL,
		Body:          restclient.StreamBody{Reader: content},
		Header:        http.Header{"Content-Type": {"application/octet-stream"}},
		GzipThreshold: restclient.NoCompression,
		ContentLength: size,
		KnownLength:   true,
	}, nil)
	return err
}

// AddLocalFile uploads a file from the local file system, named by
// its base name.
func (b *DataBundle) AddLocalFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	return b.AddFile(ctx, filepath.Base(path), info.Size(), f)
}

// Close finishes uploading.  A bundle cannot be used as a job input
// until it is closed.
func (b *DataBundle) Close(ctx context.Context) error {
	return b.postForUpdate(ctx, b.child("close"), &b.Representation, map[string]interface{}{})
}

// Delete deletes the bundle and all of its files.
func (b *DataBundle) Delete(ctx context.Context) error {
	return b.remove(ctx)
}

// Files returns the bundle's downloadable files.
func (b *DataBundle) Files() ([]*Downloadable, error) {
	return b.downloadables(b.Representation.Files)
}

// Downloadable returns a handle on a report or bundle file given its
// URL.  This does not contact the server.
func (m *Data) Downloadable(fileURL string) (*Downloadable, error) {
	files, err := m.downloadables([]string{fileURL})
	if err != nil {
		return nil, err
	}
	return files[0], nil
}
