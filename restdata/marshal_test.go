// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsJSON(t *testing.T) {
	tests := []struct {
		ContentType string
		JSON        bool
	}{
		{"", true},
		{"application/json", true},
		{"application/json; charset=UTF-8", true},
		{"text/json", true},
		{"application/vnd.gate+json", true},
		{"application/gate+xml", false},
		{"application/fastinfoset", false},
		{"text/plain", false},
		{"not a media type;;", false},
	}
	for _, test := range tests {
		assert.Equal(t, test.JSON, IsJSON(test.ContentType),
			"content type %q", test.ContentType)
	}
}

func TestDecodeJob(t *testing.T) {
	body := `{
		"url": "https://cloud.gate.ac.uk/api/job/42",
		"state": "ACTIVE",
		"id": 42,
		"name": "ANNIE",
		"price": {"setup": 0.1, "hour": 2.5, "mib": 0.01},
		"timeUsed": 60000,
		"progress": 0.5,
		"somethingNew": [1, 2, 3]
	}`
	var job Job
	err := Decode("application/json", strings.NewReader(body), &job)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, "https://cloud.gate.ac.uk/api/job/42", job.URL)
	assert.Equal(t, JobActive, job.State)
	assert.Equal(t, int64(42), job.ID)
	assert.Equal(t, "ANNIE", job.Name)
	if assert.NotNil(t, job.Price) {
		assert.Equal(t, 2.5, job.Price.Hour)
	}
	assert.Equal(t, int64(60000), job.TimeUsed)
	assert.Equal(t, 0.5, job.Progress)
}

func TestDecodeMerges(t *testing.T) {
	job := Job{ID: 7, Name: "old name", Progress: 0.25}
	job.State = JobReady
	err := Decode("", strings.NewReader(`{"name":"new name","state":"ACTIVE"}`), &job)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, int64(7), job.ID)
	assert.Equal(t, "new name", job.Name)
	assert.Equal(t, JobActive, job.State)
	assert.Equal(t, 0.25, job.Progress)
}

func TestDecodeUnsupported(t *testing.T) {
	var out interface{}
	err := Decode("application/gate+xml", strings.NewReader("<x/>"), &out)
	assert.Equal(t, ErrUnsupportedMediaType{Type: "application/gate+xml"}, err)
}

func TestDecodeUntyped(t *testing.T) {
	var out interface{}
	err := DecodeBytes([]byte(`{"message":"not found","extra":{"a":1}}`), &out)
	if !assert.NoError(t, err) {
		return
	}
	m, ok := out.(map[string]interface{})
	if assert.True(t, ok, "decoded %T", out) {
		assert.Equal(t, "not found", m["message"])
		assert.IsType(t, map[string]interface{}{}, m["extra"])
	}
}

func TestEncodeOmitsEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, OutputDirectoryRequest{DefaultLocation: true})
	if assert.NoError(t, err) {
		assert.JSONEq(t, `{"defaultLocation":true}`, buf.String())
	}

	buf.Reset()
	err = Encode(&buf, BundleRequest{Name: "b", Type: InputZIP})
	if assert.NoError(t, err) {
		assert.JSONEq(t, `{"name":"b","type":"ZIP"}`, buf.String())
	}
}

func TestEncodeIndent(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeIndent(&buf, NameRequest{Name: "x"})
	if assert.NoError(t, err) {
		assert.Equal(t, "{\n  \"name\": \"x\"\n}\n", buf.String())
	}
}

func TestInputTypeIsARC(t *testing.T) {
	for _, it := range InputTypes {
		assert.Equal(t, it == InputARC || it == InputWARC, it.IsARC(), "%v", it)
	}
}

func TestServiceMetadataSelectors(t *testing.T) {
	meta := ServiceMetadata{
		DefaultAnnotations:    ":Person, :Location,:Organization",
		AdditionalAnnotations: "",
	}
	defaults, additional := meta.Selectors()
	assert.Equal(t, []string{":Person", ":Location", ":Organization"}, defaults)
	assert.Empty(t, additional)
}
