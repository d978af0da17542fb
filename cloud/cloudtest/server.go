// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package cloudtest provides an in-memory imitation of the GATE Cloud
// REST API for tests.  It implements enough of the job, data bundle,
// machine, shop, and online API endpoints to exercise a client,
// including pre-signed storage URLs reached through 303 redirects.
//
//     server := cloudtest.NewServer("key", "secret")
//     defer server.Close()
//     rest, err := server.Client()
package cloudtest

import (
	"compress/gzip"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"

	"github.com/GateNLP/cloud-client-go/restclient"
	"github.com/GateNLP/cloud-client-go/restdata"
	"github.com/gorilla/mux"
)

// Server is a fake GATE Cloud service.  Its API lives under /api/ and
// its storage service under /storage/.
type Server struct {
	*httptest.Server

	// KeyID and Password are the only credentials the API accepts.
	// If KeyID is empty, anonymous requests are accepted too.
	KeyID    string
	Password string

	router *mux.Router

	mu       sync.Mutex
	nextID   int64
	jobs     map[int64]*job
	bundles  map[int64]*bundle
	machines map[int64]*restdata.Machine
	items    map[int64]*item
	objects  map[string][]byte
	online   map[string]*OnlineService

	// uploads records the Content-Length of each storage PUT.
	uploads map[string]int64
}

type job struct {
	rep       restdata.Job
	inputs    map[int64]*restdata.InputDetails
	outputs   map[int64]*restdata.Output
	outputDir restdata.OutputDirectoryRequest
	log       []restdata.LogMessage
	reports   []string
}

type bundle struct {
	rep restdata.DataBundle
}

type item struct {
	rep  restdata.Item
	tags []string
}

// OnlineService describes a fake online API endpoint.  The endpoint
// answers every call with a JSON description of the request.
type OnlineService struct {
	Metadata restdata.ServiceMetadata

	// Quota holds response headers sent with every call.
	Quota http.Header

	// NoContent makes every call answer 204 with no body.
	NoContent bool
}

// OnlineResponse is the body an online endpoint returns.
type OnlineResponse struct {
	Text        string            `json:"text"`
	ContentType string            `json:"contentType"`
	Accept      string            `json:"accept"`
	Annotations string            `json:"annotations"`
	Compressed  bool              `json:"compressed"`
	Params      map[string]string `json:"params,omitempty"`
}

// NewServer starts a new fake service requiring the given
// credentials.
func NewServer(keyID, password string) *Server {
	s := &Server{
		KeyID:    keyID,
		Password: password,
		router:   mux.NewRouter(),
		jobs:     make(map[int64]*job),
		bundles:  make(map[int64]*bundle),
		machines: make(map[int64]*restdata.Machine),
		items:    make(map[int64]*item),
		objects:  make(map[string][]byte),
		online:   make(map[string]*OnlineService),
		uploads:  make(map[string]int64),
	}
	s.populateRouter()
	s.Server = httptest.NewServer(s.router)
	return s
}

// BaseURL returns the API base URL, with a trailing slash.
func (s *Server) BaseURL() string {
	return s.Server.URL + "/api/"
}

// Client creates a transport talking to this server with its
// credentials.
func (s *Server) Client(opts ...restclient.Option) (*restclient.Client, error) {
	var creds *restclient.Credentials
	if s.KeyID != "" {
		creds = &restclient.Credentials{KeyID: s.KeyID, Password: s.Password}
	}
	return restclient.New(s.BaseURL(), creds, opts...)
}

// url builds the absolute URL of a named route.
func (s *Server) url(route string, pairs ...string) string {
	u, err := s.router.Get(route).URL(pairs...)
	if err != nil {
		panic(err)
	}
	return s.Server.URL + u.String()
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

// AddJob stores a job and returns its ID.  The URL and ID fields of
// rep are filled in.
func (s *Server) AddJob(rep restdata.Job) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addJob(rep)
}

func (s *Server) addJob(rep restdata.Job) int64 {
	id := s.id()
	rep.ID = id
	rep.URL = s.url("job", "id", idString(id))
	if rep.State == "" {
		rep.State = restdata.JobReserved
	}
	s.jobs[id] = &job{
		rep:     rep,
		inputs:  make(map[int64]*restdata.InputDetails),
		outputs: make(map[int64]*restdata.Output),
	}
	return id
}

// Job returns the current representation of a job.
func (s *Server) Job(id int64) (restdata.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return restdata.Job{}, false
	}
	return j.rep, true
}

// SetJobState changes the state of a job, as the service does when a
// job runs or finishes.
func (s *Server) SetJobState(id int64, state restdata.JobState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.rep.State = state
	}
}

// JobOutputDirectory returns the last output directory setting of a
// job.
func (s *Server) JobOutputDirectory(id int64) restdata.OutputDirectoryRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		return j.outputDir
	}
	return restdata.OutputDirectoryRequest{}
}

// AddLog appends messages to a job's execution log.  Dates should be
// RFC 3339 strings in UTC so that they sort correctly.
func (s *Server) AddLog(jobID int64, messages ...restdata.LogMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.jobs[jobID]
	j.log = append(j.log, messages...)
}

// AddReport attaches a downloadable report file to a job.
func (s *Server) AddReport(jobID int64, name string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("job-%d/%s", jobID, name)
	s.objects[key] = content
	j := s.jobs[jobID]
	j.reports = append(j.reports, s.fileURL(key))
}

// AddBundle stores a closed data bundle holding the given files and
// returns its ID.
func (s *Server) AddBundle(rep restdata.DataBundle, files map[string][]byte) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.addBundle(rep)
	b := s.bundles[id]
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.addFile(b, name, files[name])
	}
	b.rep.Closed = true
	b.rep.Downloadable = true
	return id
}

func (s *Server) addBundle(rep restdata.DataBundle) int64 {
	id := s.id()
	rep.ID = id
	rep.URL = s.url("bundle", "id", idString(id))
	s.bundles[id] = &bundle{rep: rep}
	return id
}

// objectKey names a bundle file in the storage service.
func objectKey(bundleID int64, name string) string {
	return fmt.Sprintf("bundle-%d/%s", bundleID, name)
}

func (s *Server) addFile(b *bundle, name string, content []byte) {
	key := objectKey(b.rep.ID, name)
	s.objects[key] = content
	b.rep.Files = append(b.rep.Files, s.fileURL(key))
	b.rep.TotalSize += int64(len(content))
}

// Bundle returns the current representation of a data bundle.
func (s *Server) Bundle(id int64) (restdata.DataBundle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bundles[id]
	if !ok {
		return restdata.DataBundle{}, false
	}
	return b.rep, true
}

// Object returns the content of a stored file, by bundle ID and
// file name.
func (s *Server) Object(bundleID int64, name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.objects[objectKey(bundleID, name)]
	return content, ok
}

// UploadLength returns the Content-Length header a file was uploaded
// with.  It is false for files that were not uploaded through the
// storage service.
func (s *Server) UploadLength(bundleID int64, name string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	length, ok := s.uploads[objectKey(bundleID, name)]
	return length, ok
}

// AddMachine stores a machine and returns its ID.
func (s *Server) AddMachine(rep restdata.Machine) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	rep.ID = id
	rep.URL = s.url("machine", "id", idString(id))
	if rep.State == "" {
		rep.State = restdata.MachineInactive
	}
	s.machines[id] = &rep
	return id
}

// AddItem stores a shop item with some tags and returns its ID.
func (s *Server) AddItem(rep restdata.Item, tags ...string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	rep.ID = id
	rep.DetailURL = s.url("item", "id", idString(id))
	s.items[id] = &item{rep: rep, tags: tags}
	return id
}

// AddOnlineService creates an online API endpoint and returns its
// URL.  service may be nil for an endpoint with no metadata.
func (s *Server) AddOnlineService(name string, service *OnlineService) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if service == nil {
		service = &OnlineService{}
	}
	s.online[name] = service
	return s.url("online", "name", name)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", restdata.JSONMediaType)
	w.WriteHeader(status)
	_ = restdata.Encode(w, v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	writeJSON(w, status, restdata.ErrorResponse{Message: fmt.Sprintf(format, args...)})
}

// readBody reads a request body, decompressing it if the client said
// it was compressed.
func readBody(req *http.Request) ([]byte, error) {
	var body io.Reader = req.Body
	if req.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(req.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		body = gz
	}
	return ioutil.ReadAll(body)
}

// decode reads a JSON request body into out.
func decode(req *http.Request, out interface{}) error {
	body, err := readBody(req)
	if err != nil {
		return err
	}
	return restdata.DecodeBytes(body, out)
}

// fileURL is the permanent API URL of a stored object.  Object keys
// contain slashes, so this does not go through the router.
func (s *Server) fileURL(key string) string {
	return s.Server.URL + "/api/files/" + key
}
