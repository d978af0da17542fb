// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restdata defines the wire representations of the objects
// exposed by the GATE Cloud REST API.  These are passed across the
// wire as plain application/json.
//
// API Usage
//
// Every object that can be fetched on its own carries a "url" field
// naming its canonical location.  Summary objects returned from list
// endpoints carry only enough to identify the object; HTTP GET of the
// summary's URL returns the full representation.  The URL layout
// relative to the API base is
//
//     job{?state*}                list of JobSummary
//     job/{id}                    Job
//     job/{id}/input              list of InputSummary
//     job/{id}/output             list of Output
//     job/{id}/log{?from,to}      list of LogMessage
//     job/{id}/reports            list of download URLs
//     data/bundle                 list of DataBundleSummary
//     data/bundle/{id}            DataBundle
//     machine{?state*}            list of MachineSummary
//     machine/{id}                Machine
//     shop{?tag*}                 list of Item
//     shop/item/{id}              Item
//
// but clients should follow the "url" fields rather than building
// these by hand wherever one is available.
//
// Field Conventions
//
// Timestamps are conveyed as the strings the server sends and are not
// interpreted here.  Enumerated values (job states, input types, and
// so on) are strings; values this package does not list pass through
// unchanged.
//
// Downloads
//
// Report files and bundle files are conveyed as bare URL strings.  An
// HTTP GET of one of these returns a 303 See Other response pointing
// at a short-lived pre-signed URL for the actual content.
//
// Errors
//
// Failing requests return a 4xx or 5xx status code, usually with a
// JSON body whose "message" field describes the problem; see
// ErrorResponse.
package restdata

import (
	"strings"
)

// Resource is a base type for all resources with their own URL.
type Resource struct {
	// URL points at this resource.  If this record is a summary
	// record, the contents of this URL are the full record.
	URL string `json:"url,omitempty"`
}

// Prices describes the charges attached to a job or shop item, in
// pounds sterling.
type Prices struct {
	// Setup is a one-off charge on reservation.
	Setup float64 `json:"setup"`

	// Hour is the charge per hour of processing time.
	Hour float64 `json:"hour"`

	// MiB is the charge per mebibyte of data processed.
	MiB float64 `json:"mib"`
}

// JobState is the lifecycle state of an annotation job.
type JobState string

// Job states.
const (
	// JobReserved means the job is not yet fully configured.
	JobReserved JobState = "RESERVED"
	// JobReady means the job is configured and ready to start.
	JobReady JobState = "READY"
	// JobActive means the job is up and running.
	JobActive JobState = "ACTIVE"
	// JobCompleted means the job has finished running.
	JobCompleted JobState = "COMPLETED"
	// JobDeleted means the job can no longer be run.
	JobDeleted JobState = "DELETED"
	// JobSuspended means the job was paused for lack of funds.
	JobSuspended JobState = "SUSPENDED"
)

// JobStates lists every known job state.
var JobStates = []JobState{
	JobReserved, JobReady, JobActive, JobCompleted, JobDeleted, JobSuspended,
}

// InputType is the archive format of a data bundle or job input.
type InputType string

// Input types.
const (
	InputZIP            InputType = "ZIP"
	InputTAR            InputType = "TAR"
	InputARC            InputType = "ARC"
	InputWARC           InputType = "WARC"
	InputTwitterStream  InputType = "TWITTER_STREAM"
	InputDatasiftStream InputType = "DATASIFT_STREAM"
)

// InputTypes lists every known input type.
var InputTypes = []InputType{
	InputZIP, InputTAR, InputARC, InputWARC, InputTwitterStream, InputDatasiftStream,
}

// IsARC returns true for the web-archive input types, which filter
// entries by MIME type rather than by file extension.
func (t InputType) IsARC() bool {
	return t == InputARC || t == InputWARC
}

// OutputType is the kind of output a job produces.
type OutputType string

// Output types.
const (
	OutputGATEXML   OutputType = "GATE_XML"
	OutputFINF      OutputType = "FINF"
	OutputJSON      OutputType = "JSON"
	OutputInlineXML OutputType = "INLINE_XML"
	OutputMIMIR     OutputType = "MIMIR"
)

// OutputTypes lists every known output type.
var OutputTypes = []OutputType{
	OutputGATEXML, OutputFINF, OutputJSON, OutputInlineXML, OutputMIMIR,
}

// MachineState is the lifecycle state of a reserved cloud machine.
// Unlike the other enumerations these are lower case on the wire.
type MachineState string

// Machine states.
const (
	MachinePending   MachineState = "pending"
	MachineActive    MachineState = "active"
	MachineStopping  MachineState = "stopping"
	MachineInactive  MachineState = "inactive"
	MachineDestroyed MachineState = "destroyed"
)

// MachineStates lists every known machine state.
var MachineStates = []MachineState{
	MachinePending, MachineActive, MachineStopping, MachineInactive, MachineDestroyed,
}

// JobSummary is one entry in the job list.
type JobSummary struct {
	Resource
	State JobState `json:"state,omitempty"`
}

// Job is the full representation of an annotation job.
type Job struct {
	JobSummary

	ID                    int64   `json:"id"`
	Name                  string  `json:"name"`
	UUID                  string  `json:"uuid,omitempty"`
	Price                 *Prices `json:"price,omitempty"`
	DateCreated           string  `json:"dateCreated,omitempty"`
	DateCompleted         string  `json:"dateCompleted,omitempty"`
	ResultsAvailableUntil string  `json:"resultsAvailableUntil,omitempty"`

	// TimeUsed and TimeCharged are in milliseconds.
	TimeUsed    int64 `json:"timeUsed"`
	TimeCharged int64 `json:"timeCharged"`

	BytesUsed    int64 `json:"bytesUsed"`
	BytesCharged int64 `json:"bytesCharged"`

	// Progress is a fraction between 0 and 1.
	Progress float64 `json:"progress"`

	// ResultBundle is the URL of the data bundle holding the
	// job's results, if it has one.
	ResultBundle string `json:"resultBundle,omitempty"`
}

// InputSummary is one entry in a job's input list.  A nil Type
// denotes a CommonCrawl search input.
type InputSummary struct {
	Resource
	Type         InputType `json:"type,omitempty"`
	SourceBundle string    `json:"sourceBundle,omitempty"`
}

// InputDetails is the full representation of a job input.
type InputDetails struct {
	InputSummary
	Encoding         string `json:"encoding,omitempty"`
	MimeTypeOverride string `json:"mimeTypeOverride,omitempty"`
	FileExtensions   string `json:"fileExtensions,omitempty"`
	MimeTypes        string `json:"mimeTypes,omitempty"`
}

// Output is a job output specification.  IndexURL and Username apply
// only to MIMIR outputs; FileExtension and AnnotationSelectors to the
// others.
type Output struct {
	Resource
	Type                OutputType `json:"type"`
	IndexURL            string     `json:"indexUrl,omitempty"`
	Username            string     `json:"username,omitempty"`
	FileExtension       string     `json:"fileExtension,omitempty"`
	AnnotationSelectors string     `json:"annotationSelectors,omitempty"`
}

// LogMessage is one entry in a job's execution log.
type LogMessage struct {
	Date    string `json:"date"`
	Message string `json:"message"`
}

// DataBundleSummary is one entry in the bundle list.
type DataBundleSummary struct {
	Resource
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Downloadable bool   `json:"downloadable"`
	Closed       bool   `json:"closed"`
}

// DataBundle is the full representation of a data bundle.
type DataBundle struct {
	DataBundleSummary
	DateCreated      string    `json:"dateCreated,omitempty"`
	TotalSize        int64     `json:"totalSize"`
	MonthlyPrice     float64   `json:"monthlyPrice"`
	Type             InputType `json:"type,omitempty"`
	Encoding         string    `json:"encoding,omitempty"`
	MimeTypeOverride string    `json:"mimeTypeOverride,omitempty"`
	FileExtensions   string    `json:"fileExtensions,omitempty"`
	MimeTypeFilters  string    `json:"mimeTypeFilters,omitempty"`

	// Files lists download URLs of the bundle content.
	Files []string `json:"files,omitempty"`
}

// BundleRequest is posted to the bundle list to create a bundle,
// either from S3 locations or empty for uploads.
type BundleRequest struct {
	Name             string    `json:"name"`
	Type             InputType `json:"type"`
	AccessKey        string    `json:"accessKey,omitempty"`
	SecretKey        string    `json:"secretKey,omitempty"`
	Encoding         string    `json:"encoding,omitempty"`
	MimeTypeOverride string    `json:"mimeTypeOverride,omitempty"`
	FileExtensions   string    `json:"fileExtensions,omitempty"`
	MimeTypeFilters  string    `json:"mimeTypeFilters,omitempty"`
	Locations        []string  `json:"locations,omitempty"`
}

// AddFileRequest asks for a new upload slot in an open bundle.
type AddFileRequest struct {
	FileName string `json:"fileName"`
}

// AddFileResponse holds the pre-signed URL to PUT file content to.
type AddFileResponse struct {
	PutURL string `json:"putUrl"`
}

// MachineSummary is one entry in the machine list.
type MachineSummary struct {
	Resource
	ID    int64        `json:"id"`
	State MachineState `json:"state,omitempty"`
}

// Machine is the full representation of a reserved machine.
type Machine struct {
	MachineSummary
	Name           string  `json:"name"`
	Kind           string  `json:"kind,omitempty"`
	HourlyPrice    float64 `json:"hourlyPrice"`
	LastTransition string  `json:"lastTransition,omitempty"`
	PublicURL      string  `json:"publicUrl,omitempty"`
	LaunchTime     string  `json:"launchTime,omitempty"`
	AdminPassword  string  `json:"adminPassword,omitempty"`
}

// Item is a purchasable shop item.  OnlineURL is set for items that
// are also available through the online API.
type Item struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	ShortDescription string  `json:"shortDescription,omitempty"`
	DetailURL        string  `json:"detailUrl"`
	Price            *Prices `json:"price,omitempty"`
	OnlineURL        string  `json:"onlineUrl,omitempty"`
}

// ReserveRequest is posted to an item's detail URL to reserve it.
type ReserveRequest struct {
	Quantity int `json:"quantity"`
}

// ReserveResponse lists the URLs of the jobs created by a
// reservation.  Reserving a machine creates no jobs.
type ReserveResponse struct {
	Status       string   `json:"status,omitempty"`
	Jobs         []string `json:"jobs"`
	MachineCount int      `json:"machineCount"`
}

// NameRequest renames a job, bundle, or machine.
type NameRequest struct {
	Name string `json:"name"`
}

// ControlRequest starts, stops, resumes, or resets a job or machine.
type ControlRequest struct {
	Action string `json:"action"`
}

// OutputDirectoryRequest selects where a job writes its results.
// Either DefaultLocation is set, or S3Location and the credentials.
type OutputDirectoryRequest struct {
	S3Location      string `json:"s3Location,omitempty"`
	AccessKey       string `json:"accessKey,omitempty"`
	SecretKey       string `json:"secretKey,omitempty"`
	DefaultLocation bool   `json:"defaultLocation,omitempty"`
}

// InputRequest adds a data bundle as a job input.
type InputRequest struct {
	SourceBundle int64 `json:"sourceBundle"`
}

// OutputRequest adds an output to a job.
type OutputRequest struct {
	Type                OutputType `json:"type"`
	IndexURL            string     `json:"indexUrl,omitempty"`
	Username            string     `json:"username,omitempty"`
	Password            string     `json:"password,omitempty"`
	FileExtension       string     `json:"fileExtension,omitempty"`
	AnnotationSelectors string     `json:"annotationSelectors,omitempty"`
}

// ServiceMetadata describes an online API endpoint.  Both fields are
// comma-separated annotation selector lists.
type ServiceMetadata struct {
	DefaultAnnotations    string `json:"defaultAnnotations,omitempty"`
	AdditionalAnnotations string `json:"additionalAnnotations,omitempty"`
}

// Selectors splits the default and additional annotation lists into
// individual selectors, dropping empty entries.
func (m ServiceMetadata) Selectors() (defaults, additional []string) {
	return splitSelectors(m.DefaultAnnotations), splitSelectors(m.AdditionalAnnotations)
}

func splitSelectors(list string) []string {
	var result []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			result = append(result, s)
		}
	}
	return result
}
