// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cloud_test

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GateNLP/cloud-client-go/cloud"
	"github.com/GateNLP/cloud-client-go/restclient"
	"github.com/GateNLP/cloud-client-go/restdata"
	"github.com/stretchr/testify/assert"
)

func TestBundleSpecValidate(t *testing.T) {
	assert.NoError(t, cloud.BundleSpec{Type: restdata.InputZIP, FileExtensions: ".txt"}.Validate())
	assert.NoError(t, cloud.BundleSpec{Type: restdata.InputWARC, MimeTypeFilters: "text/html"}.Validate())
	assert.Equal(t, cloud.ErrARCInputType,
		cloud.BundleSpec{Type: restdata.InputARC, FileExtensions: ".html"}.Validate())
	assert.Equal(t, cloud.ErrNotARCInputType,
		cloud.BundleSpec{Type: restdata.InputTAR, MimeTypeFilters: "text/html"}.Validate())
}

// TestUploadBundle uploads local files into a new bundle.
func (s *Suite) TestUploadBundle() {
	dir, err := ioutil.TempDir("", "upload")
	s.Require().NoError(err)
	defer os.RemoveAll(dir)
	one := filepath.Join(dir, "one.zip")
	two := filepath.Join(dir, "two.zip")
	s.Require().NoError(ioutil.WriteFile(one, []byte("first file"), 0644))
	s.Require().NoError(ioutil.WriteFile(two, bytes.Repeat([]byte("x"), 100000), 0644))

	bundle, err := s.Cloud.Data.UploadBundle(s.ctx, cloud.BundleSpec{
		Name:           "upload",
		Type:           restdata.InputZIP,
		FileExtensions: ".txt",
	}, one, two)
	s.Require().NoError(err)
	s.True(bundle.Representation.Closed)
	s.Equal("upload", bundle.Name())
	s.Equal(int64(100010), bundle.Representation.TotalSize)

	content, ok := s.Server.Object(bundle.ID(), "one.zip")
	if s.True(ok) {
		s.Equal("first file", string(content))
	}
	content, ok = s.Server.Object(bundle.ID(), "two.zip")
	if s.True(ok) {
		s.Len(content, 100000)
	}

	files, err := bundle.Files()
	s.Require().NoError(err)
	s.Require().Len(files, 2)
	s.Equal("one.zip", files[0].Name())

	u, err := files[0].URLToDownload(s.ctx)
	if s.NoError(err) {
		s.Equal("/storage/object/bundle-1/one.zip", u.Path)
	}

	out, err := ioutil.TempDir("", "download")
	s.Require().NoError(err)
	defer os.RemoveAll(out)
	path, err := files[1].DownloadTo(s.ctx, out, "copy.zip", false)
	s.Require().NoError(err)
	s.Equal(filepath.Join(out, "copy.zip"), path)
	downloaded, err := ioutil.ReadFile(path)
	if s.NoError(err) {
		s.Equal(bytes.Repeat([]byte("x"), 100000), downloaded)
	}
}

// TestOpenBundle creates a bundle with no files, adds one, and closes
// it by hand.
func (s *Suite) TestOpenBundle() {
	bundle, err := s.Cloud.Data.UploadBundle(s.ctx, cloud.BundleSpec{
		Name: "open",
		Type: restdata.InputTAR,
	})
	s.Require().NoError(err)
	s.False(bundle.Representation.Closed)

	content := []byte("tar data")
	s.Require().NoError(bundle.AddFile(s.ctx, "a.tar", int64(len(content)), bytes.NewReader(content)))
	s.Require().NoError(bundle.Close(s.ctx))
	s.True(bundle.Representation.Closed)
	s.Len(bundle.Representation.Files, 1)

	err = bundle.AddFile(s.ctx, "b.tar", 1, bytes.NewReader([]byte("b")))
	s.Equal(400, restclient.StatusCode(err))
}

// TestUploadEmptyFile sends a zero-length file with an explicit
// Content-Length, since pre-signed storage URLs refuse chunked
// uploads.
func (s *Suite) TestUploadEmptyFile() {
	dir, err := ioutil.TempDir("", "upload")
	s.Require().NoError(err)
	defer os.RemoveAll(dir)
	empty := filepath.Join(dir, "empty.zip")
	s.Require().NoError(ioutil.WriteFile(empty, nil, 0644))

	bundle, err := s.Cloud.Data.UploadBundle(s.ctx, cloud.BundleSpec{Type: restdata.InputZIP})
	s.Require().NoError(err)
	s.Require().NoError(bundle.AddLocalFile(s.ctx, empty))

	length, ok := s.Server.UploadLength(bundle.ID(), "empty.zip")
	if s.True(ok) {
		s.Equal(int64(0), length)
	}
	content, ok := s.Server.Object(bundle.ID(), "empty.zip")
	if s.True(ok) {
		s.Empty(content)
	}

	s.Require().NoError(bundle.AddFile(s.ctx, "blank.zip", 0, struct{ io.Reader }{strings.NewReader("")}))
	length, ok = s.Server.UploadLength(bundle.ID(), "blank.zip")
	if s.True(ok) {
		s.Equal(int64(0), length)
	}
}

// TestUploadBundleBadSpec checks that an invalid spec is rejected
// before anything is created.
func (s *Suite) TestUploadBundleBadSpec() {
	_, err := s.Cloud.Data.UploadBundle(s.ctx, cloud.BundleSpec{
		Type:           restdata.InputWARC,
		FileExtensions: ".html",
	})
	s.Equal(cloud.ErrARCInputType, err)

	bundles, err := s.Cloud.Data.List(s.ctx)
	if s.NoError(err) {
		s.Empty(bundles)
	}
}

// TestCreateS3Bundle creates a bundle from S3 locations.
func (s *Suite) TestCreateS3Bundle() {
	bundle, err := s.Cloud.Data.CreateS3Bundle(s.ctx, cloud.BundleSpec{
		Name:            "crawl",
		Type:            restdata.InputWARC,
		MimeTypeFilters: "text/html",
	}, "ak", "sk", "s3://bucket/a.warc.gz", "s3://bucket/b.warc.gz")
	s.Require().NoError(err)
	s.True(bundle.Representation.Closed)
	s.Equal(restdata.InputWARC, bundle.Representation.Type)
	s.Equal("text/html", bundle.Representation.MimeTypeFilters)
	s.Len(bundle.Representation.Files, 2)
}

// TestBundleLifecycle lists, renames, and deletes bundles.
func (s *Suite) TestBundleLifecycle() {
	id := s.Server.AddBundle(restdata.DataBundle{
		DataBundleSummary: restdata.DataBundleSummary{Name: "first"},
		Type:              restdata.InputZIP,
	}, map[string][]byte{"a.zip": []byte("a")})

	summaries, err := s.Cloud.Data.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(summaries, 1)
	s.Equal("first", summaries[0].Representation.Name)
	s.True(summaries[0].Representation.Closed)

	bundle, err := summaries[0].Details(s.ctx)
	s.Require().NoError(err)
	s.Equal(id, bundle.ID())
	s.Len(bundle.Representation.Files, 1)

	s.Require().NoError(bundle.Rename(s.ctx, "second"))
	s.Equal("second", bundle.Name())
	s.Len(bundle.Representation.Files, 1)

	fetched, err := s.Cloud.Data.Get(s.ctx, id)
	if s.NoError(err) {
		s.Equal("second", fetched.Name())
	}

	s.Require().NoError(bundle.Delete(s.ctx))
	_, ok := s.Server.Object(id, "a.zip")
	s.False(ok)
	_, err = s.Cloud.Data.Get(s.ctx, id)
	s.Equal(404, restclient.StatusCode(err))
}

// TestDownloadableByURL downloads a file named only by its URL.
func (s *Suite) TestDownloadableByURL() {
	id := s.Server.AddBundle(restdata.DataBundle{
		DataBundleSummary: restdata.DataBundleSummary{Name: "b"},
		Type:              restdata.InputZIP,
	}, map[string][]byte{"results.json.gz": []byte("gz")})
	rep, _ := s.Server.Bundle(id)

	file, err := s.Cloud.Data.Downloadable(rep.Files[0])
	s.Require().NoError(err)
	s.Equal("results.json.gz", file.Name())
	s.Equal(rep.Files[0], file.String())

	dir, err := ioutil.TempDir("", "download")
	s.Require().NoError(err)
	defer os.RemoveAll(dir)
	first, err := file.DownloadTo(s.ctx, dir, "", false)
	s.Require().NoError(err)
	second, err := file.DownloadTo(s.ctx, dir, "", false)
	s.Require().NoError(err)
	s.Equal(filepath.Join(dir, "results.json.gz"), first)
	s.Equal(filepath.Join(dir, "results(1).json.gz"), second)

	missing, err := s.Cloud.Data.Downloadable(s.Server.URL + "/api/files/nothing")
	s.Require().NoError(err)
	_, err = missing.URLToDownload(s.ctx)
	s.Equal(404, restclient.StatusCode(err))
}
