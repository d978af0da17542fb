// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GateNLP/cloud-client-go/cloud/cloudtest"
	"github.com/GateNLP/cloud-client-go/restclient"
	"github.com/GateNLP/cloud-client-go/restdata"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runAdvancing runs the tool on a mock clock, moving the clock
// forward by step until the tool finishes.
func (h *harness) runAdvancing(step time.Duration, args ...string) (string, string, error) {
	mock := clock.NewMock()
	h.Clock = mock
	defer func() { h.Clock = nil }()

	type result struct {
		out, errOut string
		err         error
	}
	done := make(chan result, 1)
	go func() {
		out, errOut, err := h.run(args...)
		done <- result{out, errOut, err}
	}()
	for {
		select {
		case r := <-done:
			return r.out, r.errOut, r.err
		case <-time.After(time.Millisecond):
			mock.Add(step)
		}
	}
}

func (h *harness) addService() string {
	return h.server.AddOnlineService("annie", &cloudtest.OnlineService{
		Metadata: restdata.ServiceMetadata{
			DefaultAnnotations:    ":Person,:Location",
			AdditionalAnnotations: ":Token",
		},
		Quota: http.Header{
			restclient.HeaderRequestCost:    {"1"},
			restclient.HeaderRemainingQuota: {"999"},
		},
	})
}

func (h *harness) writeFile(name, content string) string {
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestProcessDocument(t *testing.T) {
	h := newHarness(t)
	defer h.Close()
	endpoint := h.addService()
	doc := h.writeFile("doc.txt", "Hello world")

	out, errOut, err := h.run("process-document", "--annotations", ":Person",
		"--param", "tokenize=yes", "--show-quota", endpoint, doc)
	require.NoError(t, err, errOut)
	var resp cloudtest.OnlineResponse
	require.NoError(t, restdata.DecodeBytes([]byte(out), &resp))
	assert.Equal(t, "Hello world", resp.Text)
	assert.Contains(t, resp.ContentType, "text/plain")
	assert.Equal(t, "application/json", resp.Accept)
	assert.Equal(t, ":Person", resp.Annotations)
	assert.Equal(t, map[string]string{"tokenize": "yes"}, resp.Params)
	assert.Contains(t, errOut, "Request cost:      1\n")
	assert.Contains(t, errOut, "Remaining quota:   999\n")

	_, _, err = h.run("process-document", "--param", "novalue", endpoint, doc)
	assert.EqualError(t, err, `--param "novalue": expected NAME=VALUE`)
	_, _, err = h.run("process-document", "--response-type", "PDF", endpoint, doc)
	assert.EqualError(t, err, `unknown response type "PDF"`)
}

func TestProcessDocumentOutputDir(t *testing.T) {
	h := newHarness(t)
	defer h.Close()
	endpoint := h.addService()
	first := h.writeFile("doc.txt", "first")
	second := h.writeFile("doc.html", "second")
	dir := filepath.Join(h.dir, "results")
	require.NoError(t, os.Mkdir(dir, 0755))

	out, errOut, err := h.runAdvancing(100*time.Millisecond,
		"process-document", "--output-dir", dir, endpoint, first, second)
	require.NoError(t, err, errOut)
	assert.Equal(t, fmt.Sprintf("%s -> %s\n%s -> %s\n",
		first, filepath.Join(dir, "doc.json"),
		second, filepath.Join(dir, "doc(1).json")), out)

	content, err := ioutil.ReadFile(filepath.Join(dir, "doc(1).json"))
	require.NoError(t, err)
	var resp cloudtest.OnlineResponse
	require.NoError(t, restdata.DecodeBytes(content, &resp))
	assert.Equal(t, "second", resp.Text)
}

func TestProcessDocumentNoContent(t *testing.T) {
	h := newHarness(t)
	defer h.Close()
	endpoint := h.server.AddOnlineService("quiet", &cloudtest.OnlineService{
		Quota:     http.Header{restclient.HeaderRemainingQuota: {"5"}},
		NoContent: true,
	})
	doc := h.writeFile("doc.txt", "Hello world")

	out, errOut, err := h.run("process-document", "--show-quota", endpoint, doc)
	require.NoError(t, err, errOut)
	assert.Equal(t, "", out)
	assert.Contains(t, errOut, "Remaining quota:   5\n")

	dir := filepath.Join(h.dir, "results")
	require.NoError(t, os.Mkdir(dir, 0755))
	out, errOut, err = h.run("process-document", "--output-dir", dir, endpoint, doc)
	require.NoError(t, err, errOut)
	assert.Equal(t, doc+": no content\n", out)
	files, err := ioutil.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestListAnnotations(t *testing.T) {
	h := newHarness(t)
	defer h.Close()
	endpoint := h.addService()

	out := h.mustRun("list-annotations", endpoint)
	assert.Equal(t, "Default:     :Person :Location\nAdditional:  :Token\n", out)

	_, _, err := h.run("list-annotations", h.server.BaseURL()+"online/missing")
	assert.Equal(t, 404, restclient.StatusCode(err))
}

func TestExecutionLog(t *testing.T) {
	h := newHarness(t)
	defer h.Close()
	id := h.addJob("job", restdata.JobActive)
	h.server.AddLog(id,
		restdata.LogMessage{Date: "2017-03-01T10:00:00Z", Message: "one"},
		restdata.LogMessage{Date: "2017-03-01T11:00:00Z", Message: "two"},
	)

	out := h.mustRun("execution-log", fmt.Sprint(id))
	assert.Equal(t, "2017-03-01T10:00:00Z  one\n2017-03-01T11:00:00Z  two\n", out)

	out = h.mustRun("execution-log", "--from", "2017-03-01T10:30:00Z", fmt.Sprint(id))
	assert.Equal(t, "2017-03-01T11:00:00Z  two\n", out)

	_, _, err := h.run("execution-log", "--to", "yesterday", fmt.Sprint(id))
	assert.Error(t, err)
}

func TestExecutionLogWatch(t *testing.T) {
	h := newHarness(t)
	defer h.Close()
	id := h.addJob("job", restdata.JobActive)
	h.server.AddLog(id, restdata.LogMessage{Date: "2017-03-01T10:00:00Z", Message: "one"})

	go func() {
		time.Sleep(20 * time.Millisecond)
		h.server.AddLog(id, restdata.LogMessage{Date: "2017-03-01T10:00:01Z", Message: "two"})
		h.server.SetJobState(id, restdata.JobCompleted)
	}()
	out, errOut, err := h.runAdvancing(time.Second,
		"execution-log", "--watch", "--interval", "1s", fmt.Sprint(id))
	require.NoError(t, err, errOut)
	assert.Equal(t, "2017-03-01T10:00:00Z  one\n2017-03-01T10:00:01Z  two\n", out)
}
