// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cloud_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/GateNLP/cloud-client-go/cloud"
	"github.com/GateNLP/cloud-client-go/restclient"
	"github.com/GateNLP/cloud-client-go/restdata"
)

func (s *Suite) addJob(name string, state restdata.JobState) int64 {
	rep := restdata.Job{Name: name}
	rep.State = state
	return s.Server.AddJob(rep)
}

// TestListJobs lists all jobs and jobs in selected states.
func (s *Suite) TestListJobs() {
	ready := s.addJob("ready", restdata.JobReady)
	active := s.addJob("active", restdata.JobActive)
	s.addJob("done", restdata.JobCompleted)

	all, err := s.Cloud.Jobs.List(s.ctx)
	if s.NoError(err) {
		s.Len(all, 3)
	}

	some, err := s.Cloud.Jobs.List(s.ctx, restdata.JobReady, restdata.JobActive)
	if s.NoError(err) && s.Len(some, 2) {
		s.Equal(restdata.JobReady, some[0].State())
		s.Equal(restdata.JobActive, some[1].State())

		job, err := some[1].Details(s.ctx)
		if s.NoError(err) {
			s.Equal(active, job.ID())
			s.Equal("active", job.Name())
		}
	}

	job, err := s.Cloud.Jobs.Get(s.ctx, ready)
	if s.NoError(err) {
		s.Equal("ready", job.Name())
		s.Equal(restdata.JobReady, job.State())
		s.NotEmpty(job.Representation.URL)
	}
}

// TestGetMissingJob checks the error for an unknown job.
func (s *Suite) TestGetMissingJob() {
	_, err := s.Cloud.Jobs.Get(s.ctx, 12345)
	s.Equal(404, restclient.StatusCode(err))
}

// TestRenameJob renames a job and checks the server agrees.
func (s *Suite) TestRenameJob() {
	id := s.addJob("before", restdata.JobReady)
	job, err := s.Cloud.Jobs.Get(s.ctx, id)
	s.Require().NoError(err)

	s.Require().NoError(job.Rename(s.ctx, "after"))
	s.Equal("after", job.Name())
	s.Equal(id, job.ID())

	rep, _ := s.Server.Job(id)
	s.Equal("after", rep.Name)
}

// TestJobControl walks a job through its states.
func (s *Suite) TestJobControl() {
	id := s.addJob("job", restdata.JobReady)
	job, err := s.Cloud.Jobs.Get(s.ctx, id)
	s.Require().NoError(err)

	s.Require().NoError(job.Start(s.ctx))
	s.Equal(restdata.JobActive, job.State())

	err = job.Start(s.ctx)
	s.Equal(400, restclient.StatusCode(err))
	s.Equal(restdata.JobActive, job.State())

	s.Require().NoError(job.Stop(s.ctx))
	s.Equal(restdata.JobReady, job.State())

	suspended := s.addJob("suspended", restdata.JobSuspended)
	job, err = s.Cloud.Jobs.Get(s.ctx, suspended)
	s.Require().NoError(err)
	s.Require().NoError(job.Resume(s.ctx))
	s.Equal(restdata.JobActive, job.State())

	completed := s.addJob("completed", restdata.JobCompleted)
	job, err = s.Cloud.Jobs.Get(s.ctx, completed)
	s.Require().NoError(err)
	s.Require().NoError(job.Reset(s.ctx))
	s.Equal(restdata.JobReady, job.State())
}

// TestOutputDirectory switches a job's output to S3 and back.
func (s *Suite) TestOutputDirectory() {
	id := s.addJob("job", restdata.JobReady)
	job, err := s.Cloud.Jobs.Get(s.ctx, id)
	s.Require().NoError(err)

	s.Require().NoError(job.OutputToS3(s.ctx, "s3://bucket/prefix", "ak", "sk"))
	dir := s.Server.JobOutputDirectory(id)
	s.Equal("s3://bucket/prefix/", dir.S3Location)
	s.Equal("ak", dir.AccessKey)
	s.Equal("sk", dir.SecretKey)
	s.False(dir.DefaultLocation)

	s.Require().NoError(job.OutputToDefault(s.ctx))
	dir = s.Server.JobOutputDirectory(id)
	s.True(dir.DefaultLocation)
	s.Empty(dir.S3Location)

	err = job.OutputToS3(s.ctx, "http://not-s3/", "", "")
	s.Equal(400, restclient.StatusCode(err))
}

// TestJobInputs adds a bundle input to a job and follows it back to
// the bundle.
func (s *Suite) TestJobInputs() {
	bundleID := s.Server.AddBundle(restdata.DataBundle{
		DataBundleSummary: restdata.DataBundleSummary{Name: "docs"},
		Type:              restdata.InputZIP,
		FileExtensions:    ".txt",
	}, map[string][]byte{"docs.zip": []byte("zip")})
	job, err := s.Cloud.Jobs.Get(s.ctx, s.addJob("job", restdata.JobReady))
	s.Require().NoError(err)

	input, err := job.AddBundleInput(s.ctx, bundleID)
	s.Require().NoError(err)
	s.Equal(restdata.InputZIP, input.Representation.Type)
	s.Equal(".txt", input.Representation.FileExtensions)

	inputs, err := job.Inputs(s.ctx)
	s.Require().NoError(err)
	if s.Len(inputs, 1) {
		details, err := inputs[0].Details(s.ctx)
		if s.NoError(err) {
			s.Equal(input.Representation, details.Representation)
		}
		bundle, err := inputs[0].SourceBundle(s.ctx)
		if s.NoError(err) && s.NotNil(bundle) {
			s.Equal(bundleID, bundle.ID())
			s.Equal("docs", bundle.Name())
		}
	}

	again, err := s.Cloud.Jobs.Input(s.ctx, input.Representation.URL)
	if s.NoError(err) {
		s.Equal(input.Representation.SourceBundle, again.Representation.SourceBundle)
	}

	s.Require().NoError(input.Delete(s.ctx))
	inputs, err = job.Inputs(s.ctx)
	if s.NoError(err) {
		s.Empty(inputs)
	}

	_, err = job.AddBundleInput(s.ctx, 99999)
	s.Equal(400, restclient.StatusCode(err))
}

// TestInputWithoutBundle checks that an input with no source bundle
// has no SourceBundle.
func (s *Suite) TestInputWithoutBundle() {
	input := cloud.InputSummary{}
	bundle, err := input.SourceBundle(s.ctx)
	s.NoError(err)
	s.Nil(bundle)
}

// TestJobOutputs adds, lists, and deletes outputs.
func (s *Suite) TestJobOutputs() {
	job, err := s.Cloud.Jobs.Get(s.ctx, s.addJob("job", restdata.JobReady))
	s.Require().NoError(err)

	mimir, err := job.AddMimirOutput(s.ctx, "http://mimir/index", "user", "pass")
	s.Require().NoError(err)
	s.Equal(restdata.OutputMIMIR, mimir.Representation.Type)
	s.Equal("user", mimir.Representation.Username)

	js, err := job.AddJSONOutput(s.ctx, ":Person,:Location")
	s.Require().NoError(err)
	s.Equal(restdata.OutputJSON, js.Representation.Type)
	s.Equal(":Person,:Location", js.Representation.AnnotationSelectors)

	xml, err := job.AddFileOutput(s.ctx, restdata.OutputGATEXML, ".xml", "")
	s.Require().NoError(err)
	s.Equal(".xml", xml.Representation.FileExtension)

	outputs, err := job.Outputs(s.ctx)
	s.Require().NoError(err)
	s.Len(outputs, 3)

	fetched, err := s.Cloud.Jobs.Output(s.ctx, xml.Representation.URL)
	if s.NoError(err) {
		s.Equal(xml.Representation, fetched.Representation)
	}

	s.Require().NoError(mimir.Delete(s.ctx))
	outputs, err = job.Outputs(s.ctx)
	if s.NoError(err) {
		s.Len(outputs, 2)
	}

	_, err = job.AddMimirOutput(s.ctx, "", "", "")
	s.Equal(400, restclient.StatusCode(err))
}

// TestExecutionLog fetches log windows.
func (s *Suite) TestExecutionLog() {
	id := s.addJob("job", restdata.JobActive)
	s.Server.AddLog(id,
		restdata.LogMessage{Date: "2017-03-01T10:00:00Z", Message: "one"},
		restdata.LogMessage{Date: "2017-03-01T11:00:00Z", Message: "two"},
		restdata.LogMessage{Date: "2017-03-01T12:00:00Z", Message: "three"},
	)
	job, err := s.Cloud.Jobs.Get(s.ctx, id)
	s.Require().NoError(err)

	all, err := job.ExecutionLog(s.ctx, nil, nil)
	if s.NoError(err) {
		s.Len(all, 3)
	}

	from := time.Date(2017, 3, 1, 11, 0, 0, 0, time.UTC)
	later, err := job.ExecutionLog(s.ctx, &from, nil)
	if s.NoError(err) && s.Len(later, 2) {
		s.Equal("two", later[0].Message)
	}

	// Times in other zones are sent as UTC.
	zone := time.FixedZone("east", 3600)
	to := time.Date(2017, 3, 1, 12, 0, 0, 0, zone)
	earlier, err := job.ExecutionLog(s.ctx, nil, &to)
	if s.NoError(err) && s.Len(earlier, 1) {
		s.Equal("one", earlier[0].Message)
	}
}

// TestReports downloads job reports through the storage redirect.
func (s *Suite) TestReports() {
	id := s.addJob("job", restdata.JobCompleted)
	s.Server.AddReport(id, "report.txt", []byte("all done"))
	job, err := s.Cloud.Jobs.Get(s.ctx, id)
	s.Require().NoError(err)

	reports, err := job.Reports(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(reports, 1)
	s.Equal("report.txt", reports[0].Name())

	dir, err := ioutil.TempDir("", "reports")
	s.Require().NoError(err)
	defer os.RemoveAll(dir)

	path, err := reports[0].DownloadTo(s.ctx, dir, "", false)
	s.Require().NoError(err)
	s.Equal(filepath.Join(dir, "report.txt"), path)
	content, err := ioutil.ReadFile(path)
	if s.NoError(err) {
		s.Equal("all done", string(content))
	}

	path, err = reports[0].DownloadTo(s.ctx, dir, "", false)
	if s.NoError(err) {
		s.Equal(filepath.Join(dir, "report(1).txt"), path)
	}

	path, err = reports[0].DownloadTo(s.ctx, dir, "", true)
	if s.NoError(err) {
		s.Equal(filepath.Join(dir, "report.txt"), path)
	}

	entries, err := ioutil.ReadDir(dir)
	if s.NoError(err) {
		s.Len(entries, 2, "no partial files left behind")
	}
}

// TestResultBundle follows a job to its result bundle.
func (s *Suite) TestResultBundle() {
	id := s.addJob("job", restdata.JobCompleted)
	job, err := s.Cloud.Jobs.Get(s.ctx, id)
	s.Require().NoError(err)
	_, err = job.ResultBundle(s.ctx)
	s.Equal(cloud.ErrNoResultBundle, err)

	bundleID := s.Server.AddBundle(restdata.DataBundle{
		DataBundleSummary: restdata.DataBundleSummary{Name: "results"},
		Type:              restdata.InputZIP,
	}, nil)
	rep, _ := s.Server.Bundle(bundleID)
	job.Representation.ResultBundle = rep.URL
	bundle, err := job.ResultBundle(s.ctx)
	if s.NoError(err) {
		s.Equal("results", bundle.Name())
	}
}

// TestDeleteJob deletes a job.
func (s *Suite) TestDeleteJob() {
	id := s.addJob("job", restdata.JobCompleted)
	job, err := s.Cloud.Jobs.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NoError(job.Delete(s.ctx))

	_, err = s.Cloud.Jobs.Get(s.ctx, id)
	s.Equal(404, restclient.StatusCode(err))
	s.Equal(404, restclient.StatusCode(job.Refresh(s.ctx)))
}
