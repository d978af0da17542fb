// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cloud

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/GateNLP/cloud-client-go/restdata"
)

// ErrNoResultBundle is returned from Job.ResultBundle() if the job
// has not produced one.
var ErrNoResultBundle = errors.New("job has no result bundle")

// Jobs lists and fetches annotation jobs.
type Jobs struct {
	resource
}

// List returns summaries of the caller's jobs, optionally restricted
// to jobs in particular states.
func (m *Jobs) List(ctx context.Context, states ...restdata.JobState) ([]*JobSummary, error) {
	names := make([]string, len(states))
	for i, state := range states {
		names[i] = string(state)
	}
	vars := map[string]interface{}{}
	setVar(vars, "state", listVar(names))
	u, err := m.template("job{?state*}", vars)
	if err != nil {
		return nil, err
	}
	var reps []restdata.JobSummary
	if err = m.getFrom(ctx, u.String(), &reps); err != nil {
		return nil, err
	}
	result := make([]*JobSummary, len(reps))
	for i, rep := range reps {
		res, err := m.at(rep.URL)
		if err != nil {
			return nil, err
		}
		result[i] = &JobSummary{resource: res, Representation: rep}
	}
	return result, nil
}

// Get fetches a single job by its numeric ID.
func (m *Jobs) Get(ctx context.Context, id int64) (*Job, error) {
	u, err := m.template("job/{id}", map[string]interface{}{"id": strconv.FormatInt(id, 10)})
	if err != nil {
		return nil, err
	}
	return m.GetURL(ctx, u.String())
}

// GetURL fetches a job given its URL.
func (m *Jobs) GetURL(ctx context.Context, jobURL string) (*Job, error) {
	res, err := m.at(jobURL)
	if err != nil {
		return nil, err
	}
	job := &Job{resource: res}
	if err = job.Refresh(ctx); err != nil {
		return nil, err
	}
	return job, nil
}

// Input fetches the details of a job input given its URL.
func (m *Jobs) Input(ctx context.Context, inputURL string) (*Input, error) {
	res, err := m.at(inputURL)
	if err != nil {
		return nil, err
	}
	input := &Input{resource: res}
	if err = input.Refresh(ctx); err != nil {
		return nil, err
	}
	return input, nil
}

// Output fetches the details of a job output given its URL.
func (m *Jobs) Output(ctx context.Context, outputURL string) (*Output, error) {
	res, err := m.at(outputURL)
	if err != nil {
		return nil, err
	}
	output := &Output{resource: res}
	if err = output.Refresh(ctx); err != nil {
		return nil, err
	}
	return output, nil
}

// JobSummary is one entry in the job list.
type JobSummary struct {
	resource
	Representation restdata.JobSummary
}

// State returns the job's state when the list was fetched.
func (s *JobSummary) State() restdata.JobState {
	return s.Representation.State
}

// Details fetches the full job.
func (s *JobSummary) Details(ctx context.Context) (*Job, error) {
	job := &Job{resource: s.resource}
	if err := job.Refresh(ctx); err != nil {
		return nil, err
	}
	return job, nil
}

// Job is an annotation job.
type Job struct {
	resource
	Representation restdata.Job
}

// ID returns the job's numeric identifier.
func (j *Job) ID() int64 {
	return j.Representation.ID
}

// Name returns the job's name.
func (j *Job) Name() string {
	return j.Representation.Name
}

// State returns the job's state as of the last refresh.
func (j *Job) State() restdata.JobState {
	return j.Representation.State
}

// Refresh fetches the job's current state from the server, for
// instance to update its progress.
func (j *Job) Refresh(ctx context.Context) error {
	j.Representation = restdata.Job{}
	err := j.get(ctx, &j.Representation)
	if err == nil && j.Representation.URL == "" {
		j.Representation.URL = j.URL.String()
	}
	return err
}

// Rename changes the job's name.
func (j *Job) Rename(ctx context.Context, name string) error {
	return j.postForUpdate(ctx, j.URL.String(), &j.Representation, restdata.NameRequest{Name: name})
}

// OutputToS3 makes the job write its results to an S3 location
// instead of a data bundle.  The credentials must be able to put
// objects under the location, which is treated as a prefix.
func (j *Job) OutputToS3(ctx context.Context, location, accessKey, secretKey string) error {
	if !strings.HasSuffix(location, "/") {
		location += "/"
	}
	return j.postTo(ctx, j.child("outputDirectory"), restdata.OutputDirectoryRequest{
		S3Location: location,
		AccessKey:  accessKey,
		SecretKey:  secretKey,
	}, nil)
}

// OutputToDefault makes the job write its results to a data bundle,
// undoing an earlier OutputToS3().
func (j *Job) OutputToDefault(ctx context.Context) error {
	return j.postTo(ctx, j.child("outputDirectory"), restdata.OutputDirectoryRequest{
		DefaultLocation: true,
	}, nil)
}

// Inputs lists the job's input specifications.
func (j *Job) Inputs(ctx context.Context) ([]*InputSummary, error) {
	var reps []restdata.InputSummary
	if err := j.getFrom(ctx, j.child("input"), &reps); err != nil {
		return nil, err
	}
	result := make([]*InputSummary, len(reps))
	for i, rep := range reps {
		res, err := j.at(rep.URL)
		if err != nil {
			return nil, err
		}
		result[i] = &InputSummary{resource: res, Representation: rep}
	}
	return result, nil
}

// AddBundleInput adds an input that reads from a data bundle.  The
// input's settings are taken from the bundle.
func (j *Job) AddBundleInput(ctx context.Context, bundleID int64) (*Input, error) {
	var rep restdata.InputDetails
	err := j.postTo(ctx, j.child("input"), restdata.InputRequest{SourceBundle: bundleID}, &rep)
	if err != nil {
		return nil, err
	}
	res, err := j.at(rep.URL)
	if err != nil {
		return nil, err
	}
	return &Input{resource: res, Representation: rep}, nil
}

// Outputs lists the job's output specifications.
func (j *Job) Outputs(ctx context.Context) ([]*Output, error) {
	var reps []restdata.Output
	if err := j.getFrom(ctx, j.child("output"), &reps); err != nil {
		return nil, err
	}
	result := make([]*Output, len(reps))
	for i, rep := range reps {
		res, err := j.at(rep.URL)
		if err != nil {
			return nil, err
		}
		result[i] = &Output{resource: res, Representation: rep}
	}
	return result, nil
}

func (j *Job) addOutput(ctx context.Context, req restdata.OutputRequest) (*Output, error) {
	var rep restdata.Output
	if err := j.postTo(ctx, j.child("output"), req, &rep); err != nil {
		return nil, err
	}
	res, err := j.at(rep.URL)
	if err != nil {
		return nil, err
	}
	return &Output{resource: res, Representation: rep}, nil
}

// AddMimirOutput adds an output that pushes results into a Mímir
// index.  username and password may both be empty if the index needs
// no authentication.
func (j *Job) AddMimirOutput(ctx context.Context, indexURL, username, password string) (*Output, error) {
	req := restdata.OutputRequest{
		Type:     restdata.OutputMIMIR,
		IndexURL: indexURL,
	}
	if username != "" {
		req.Username = username
		req.Password = password
	}
	return j.addOutput(ctx, req)
}

// AddFileOutput adds an output that saves one file per document.
// fileExtension should differ between the outputs of one job.
// selectors is a comma-separated list of annotation selectors, or
// empty for the pipeline's defaults.
func (j *Job) AddFileOutput(ctx context.Context, outputType restdata.OutputType, fileExtension, selectors string) (*Output, error) {
	return j.addOutput(ctx, restdata.OutputRequest{
		Type:                outputType,
		FileExtension:       fileExtension,
		AnnotationSelectors: selectors,
	})
}

// AddJSONOutput adds an output that saves results as concatenated
// JSON objects, one per document.
func (j *Job) AddJSONOutput(ctx context.Context, selectors string) (*Output, error) {
	return j.AddFileOutput(ctx, restdata.OutputJSON, "", selectors)
}

func (j *Job) control(ctx context.Context, action string) error {
	err := j.postTo(ctx, j.child("control"), restdata.ControlRequest{Action: action}, nil)
	if err != nil {
		return err
	}
	return j.Refresh(ctx)
}

// Start runs a job in the READY state.
func (j *Job) Start(ctx context.Context) error {
	return j.control(ctx, "start")
}

// Stop halts an ACTIVE job.
func (j *Job) Stop(ctx context.Context) error {
	return j.control(ctx, "stop")
}

// Resume restarts a job that was SUSPENDED for lack of funds.
func (j *Job) Resume(ctx context.Context) error {
	return j.control(ctx, "resume")
}

// Reset makes a COMPLETED job ready to run again.
func (j *Job) Reset(ctx context.Context) error {
	return j.control(ctx, "reset")
}

// ExecutionLog fetches the job's log messages, optionally restricted
// to a window of time.  Either bound may be nil.
func (j *Job) ExecutionLog(ctx context.Context, from, to *time.Time) ([]restdata.LogMessage, error) {
	vars := map[string]interface{}{}
	if from != nil {
		vars["from"] = from.UTC().Format(time.RFC3339Nano)
	}
	if to != nil {
		vars["to"] = to.UTC().Format(time.RFC3339Nano)
	}
	u, err := j.template("{+self}/log{?from,to}", vars)
	if err != nil {
		return nil, err
	}
	var messages []restdata.LogMessage
	if err = j.getFrom(ctx, u.String(), &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Reports lists the report files the job has produced.  The job's
// actual results are in its ResultBundle().
func (j *Job) Reports(ctx context.Context) ([]*Downloadable, error) {
	var urls []string
	if err := j.getFrom(ctx, j.child("reports"), &urls); err != nil {
		return nil, err
	}
	return j.downloadables(urls)
}

// ResultBundle fetches the data bundle holding the job's results.
func (j *Job) ResultBundle(ctx context.Context) (*DataBundle, error) {
	if j.Representation.ResultBundle == "" {
		return nil, ErrNoResultBundle
	}
	data := Data{resource{client: j.client, URL: j.URL}}
	return data.GetURL(ctx, j.Representation.ResultBundle)
}

// Delete deletes the job and its reports.  Data bundles the job
// created are kept and must be deleted separately.
func (j *Job) Delete(ctx context.Context) error {
	return j.remove(ctx)
}

// InputSummary is one entry in a job's input list.
type InputSummary struct {
	resource
	Representation restdata.InputSummary
}

// Details fetches the full input specification.
func (s *InputSummary) Details(ctx context.Context) (*Input, error) {
	input := &Input{resource: s.resource}
	if err := input.Refresh(ctx); err != nil {
		return nil, err
	}
	return input, nil
}

// SourceBundle fetches the data bundle this input reads from.  It
// returns nil if the input does not read from a bundle.
func (s *InputSummary) SourceBundle(ctx context.Context) (*DataBundle, error) {
	return sourceBundle(ctx, s.resource, s.Representation.SourceBundle)
}

// Input is a job input specification.
type Input struct {
	resource
	Representation restdata.InputDetails
}

// Refresh fetches the input's current settings.
func (i *Input) Refresh(ctx context.Context) error {
	i.Representation = restdata.InputDetails{}
	return i.get(ctx, &i.Representation)
}

// SourceBundle fetches the data bundle this input reads from.  It
// returns nil if the input does not read from a bundle.
func (i *Input) SourceBundle(ctx context.Context) (*DataBundle, error) {
	return sourceBundle(ctx, i.resource, i.Representation.SourceBundle)
}

// Delete removes the input from its job.
func (i *Input) Delete(ctx context.Context) error {
	return i.remove(ctx)
}

func sourceBundle(ctx context.Context, r resource, bundleURL string) (*DataBundle, error) {
	if bundleURL == "" {
		return nil, nil
	}
	data := Data{r}
	return data.GetURL(ctx, bundleURL)
}

// Output is a job output specification.
type Output struct {
	resource
	Representation restdata.Output
}

// Refresh fetches the output's current settings.
func (o *Output) Refresh(ctx context.Context) error {
	o.Representation = restdata.Output{}
	return o.get(ctx, &o.Representation)
}

// Delete removes the output from its job.
func (o *Output) Delete(ctx context.Context) error {
	return o.remove(ctx)
}
