// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cloudtest

import (
	"compress/gzip"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/GateNLP/cloud-client-go/restdata"
	"github.com/gorilla/mux"
)

func (s *Server) populateRouter() {
	r := s.router
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authenticate)

	api.HandleFunc("/job", s.listJobs).Methods("GET")
	api.HandleFunc("/job/{id:[0-9]+}", s.getJob).Methods("GET").Name("job")
	api.HandleFunc("/job/{id:[0-9]+}", s.renameJob).Methods("POST")
	api.HandleFunc("/job/{id:[0-9]+}", s.deleteJob).Methods("DELETE")
	api.HandleFunc("/job/{id:[0-9]+}/control", s.controlJob).Methods("POST")
	api.HandleFunc("/job/{id:[0-9]+}/outputDirectory", s.setOutputDirectory).Methods("POST")
	api.HandleFunc("/job/{id:[0-9]+}/input", s.listInputs).Methods("GET")
	api.HandleFunc("/job/{id:[0-9]+}/input", s.addInput).Methods("POST")
	api.HandleFunc("/job/{id:[0-9]+}/input/{input:[0-9]+}", s.getInput).Methods("GET").Name("input")
	api.HandleFunc("/job/{id:[0-9]+}/input/{input:[0-9]+}", s.deleteInput).Methods("DELETE")
	api.HandleFunc("/job/{id:[0-9]+}/output", s.listOutputs).Methods("GET")
	api.HandleFunc("/job/{id:[0-9]+}/output", s.addOutput).Methods("POST")
	api.HandleFunc("/job/{id:[0-9]+}/output/{output:[0-9]+}", s.getOutput).Methods("GET").Name("output")
	api.HandleFunc("/job/{id:[0-9]+}/output/{output:[0-9]+}", s.deleteOutput).Methods("DELETE")
	api.HandleFunc("/job/{id:[0-9]+}/log", s.getLog).Methods("GET")
	api.HandleFunc("/job/{id:[0-9]+}/reports", s.getReports).Methods("GET")

	api.HandleFunc("/data/bundle", s.listBundles).Methods("GET")
	api.HandleFunc("/data/bundle", s.createBundle).Methods("POST")
	api.HandleFunc("/data/bundle/{id:[0-9]+}", s.getBundle).Methods("GET").Name("bundle")
	api.HandleFunc("/data/bundle/{id:[0-9]+}", s.renameBundle).Methods("POST")
	api.HandleFunc("/data/bundle/{id:[0-9]+}", s.deleteBundle).Methods("DELETE")
	api.HandleFunc("/data/bundle/{id:[0-9]+}/add", s.addBundleFile).Methods("POST")
	api.HandleFunc("/data/bundle/{id:[0-9]+}/close", s.closeBundle).Methods("POST")
	api.HandleFunc("/files/{key:.+}", s.redirectFile).Methods("GET")

	api.HandleFunc("/machine", s.listMachines).Methods("GET")
	api.HandleFunc("/machine/{id:[0-9]+}", s.getMachine).Methods("GET").Name("machine")
	api.HandleFunc("/machine/{id:[0-9]+}", s.renameMachine).Methods("POST")
	api.HandleFunc("/machine/{id:[0-9]+}/control", s.controlMachine).Methods("POST")

	api.HandleFunc("/shop", s.listItems).Methods("GET")
	api.HandleFunc("/shop/item/{id:[0-9]+}", s.getItem).Methods("GET").Name("item")
	api.HandleFunc("/shop/item/{id:[0-9]+}", s.reserveItem).Methods("POST")

	api.HandleFunc("/online/{name}", s.callOnline).Methods("POST").Name("online")
	api.HandleFunc("/online/{name}/metadata", s.onlineMetadata).Methods("GET")

	// The storage service never sees API credentials.
	r.HandleFunc("/storage/upload/{id:[0-9]+}/{name}", s.uploadFile).Methods("PUT").Name("upload")
	r.HandleFunc("/storage/object/{key:.+}", s.getObject).Methods("GET")
}

// authenticate rejects API requests without the server's credentials.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if s.KeyID != "" {
			user, password, ok := req.BasicAuth()
			if !ok || user != s.KeyID || password != s.Password {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
		}
		next.ServeHTTP(w, req)
	})
}

// pathID parses a numeric path variable.
func pathID(req *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(mux.Vars(req)[name], 10, 64)
	return id
}

// lookupJob finds the job named in the request path, writing a 404
// response if there is none.  The caller must hold s.mu.
func (s *Server) lookupJob(w http.ResponseWriter, req *http.Request) *job {
	j, ok := s.jobs[pathID(req, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "no such job")
		return nil
	}
	return j
}

func (s *Server) listJobs(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := req.URL.Query()["state"]
	ids := make([]int64, 0, len(s.jobs))
	for id, j := range s.jobs {
		if len(states) == 0 || contains(states, string(j.rep.State)) {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	reps := make([]restdata.JobSummary, len(ids))
	for i, id := range ids {
		reps[i] = s.jobs[id].rep.JobSummary
	}
	writeJSON(w, http.StatusOK, reps)
}

func (s *Server) getJob(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j := s.lookupJob(w, req); j != nil {
		writeJSON(w, http.StatusOK, j.rep)
	}
}

func (s *Server) renameJob(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.lookupJob(w, req)
	if j == nil {
		return
	}
	var rename restdata.NameRequest
	if err := decode(req, &rename); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	j.rep.Name = rename.Name
	writeJSON(w, http.StatusOK, j.rep)
}

func (s *Server) deleteJob(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j := s.lookupJob(w, req); j != nil {
		delete(s.jobs, j.rep.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}

// jobTransitions maps a control action to the state it applies to
// and the state it produces.
var jobTransitions = map[string][2]restdata.JobState{
	"start":  {restdata.JobReady, restdata.JobActive},
	"stop":   {restdata.JobActive, restdata.JobReady},
	"resume": {restdata.JobSuspended, restdata.JobActive},
	"reset":  {restdata.JobCompleted, restdata.JobReady},
}

func (s *Server) controlJob(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.lookupJob(w, req)
	if j == nil {
		return
	}
	var control restdata.ControlRequest
	if err := decode(req, &control); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	transition, ok := jobTransitions[control.Action]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown action %q", control.Action)
		return
	}
	if j.rep.State != transition[0] {
		writeError(w, http.StatusBadRequest, "cannot %s a job in state %s", control.Action, j.rep.State)
		return
	}
	j.rep.State = transition[1]
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setOutputDirectory(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.lookupJob(w, req)
	if j == nil {
		return
	}
	var dir restdata.OutputDirectoryRequest
	if err := decode(req, &dir); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if !dir.DefaultLocation && !strings.HasPrefix(dir.S3Location, "s3://") {
		writeError(w, http.StatusBadRequest, "output location must be an s3:// URL")
		return
	}
	j.outputDir = dir
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listInputs(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.lookupJob(w, req)
	if j == nil {
		return
	}
	ids := make([]int64, 0, len(j.inputs))
	for id := range j.inputs {
		ids = append(ids, id)
	}
	sortIDs(ids)
	reps := make([]restdata.InputSummary, len(ids))
	for i, id := range ids {
		reps[i] = j.inputs[id].InputSummary
	}
	writeJSON(w, http.StatusOK, reps)
}

func (s *Server) addInput(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.lookupJob(w, req)
	if j == nil {
		return
	}
	var input restdata.InputRequest
	if err := decode(req, &input); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	b, ok := s.bundles[input.SourceBundle]
	if !ok {
		writeError(w, http.StatusBadRequest, "no such bundle %d", input.SourceBundle)
		return
	}
	id := s.id()
	rep := &restdata.InputDetails{
		Encoding:         b.rep.Encoding,
		MimeTypeOverride: b.rep.MimeTypeOverride,
		FileExtensions:   b.rep.FileExtensions,
		MimeTypes:        b.rep.MimeTypeFilters,
	}
	rep.URL = s.url("input", "id", idString(j.rep.ID), "input", idString(id))
	rep.Type = b.rep.Type
	rep.SourceBundle = b.rep.URL
	j.inputs[id] = rep
	writeJSON(w, http.StatusCreated, rep)
}

func (s *Server) getInput(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.lookupJob(w, req)
	if j == nil {
		return
	}
	rep, ok := j.inputs[pathID(req, "input")]
	if !ok {
		writeError(w, http.StatusNotFound, "no such input")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) deleteInput(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.lookupJob(w, req)
	if j == nil {
		return
	}
	delete(j.inputs, pathID(req, "input"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listOutputs(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.lookupJob(w, req)
	if j == nil {
		return
	}
	ids := make([]int64, 0, len(j.outputs))
	for id := range j.outputs {
		ids = append(ids, id)
	}
	sortIDs(ids)
	reps := make([]*restdata.Output, len(ids))
	for i, id := range ids {
		reps[i] = j.outputs[id]
	}
	writeJSON(w, http.StatusOK, reps)
}

func (s *Server) addOutput(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.lookupJob(w, req)
	if j == nil {
		return
	}
	var output restdata.OutputRequest
	if err := decode(req, &output); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if output.Type == restdata.OutputMIMIR && output.IndexURL == "" {
		writeError(w, http.StatusBadRequest, "MIMIR outputs need an index URL")
		return
	}
	id := s.id()
	rep := &restdata.Output{
		Type:                output.Type,
		IndexURL:            output.IndexURL,
		Username:            output.Username,
		FileExtension:       output.FileExtension,
		AnnotationSelectors: output.AnnotationSelectors,
	}
	rep.URL = s.url("output", "id", idString(j.rep.ID), "output", idString(id))
	j.outputs[id] = rep
	writeJSON(w, http.StatusCreated, rep)
}

func (s *Server) getOutput(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.lookupJob(w, req)
	if j == nil {
		return
	}
	rep, ok := j.outputs[pathID(req, "output")]
	if !ok {
		writeError(w, http.StatusNotFound, "no such output")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) deleteOutput(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.lookupJob(w, req)
	if j == nil {
		return
	}
	delete(j.outputs, pathID(req, "output"))
	w.WriteHeader(http.StatusNoContent)
}

// getLog returns log messages with from <= date < to.
func (s *Server) getLog(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.lookupJob(w, req)
	if j == nil {
		return
	}
	from, err := queryTime(req, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	to, err := queryTime(req, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	messages := []restdata.LogMessage{}
	for _, message := range j.log {
		date, err := time.Parse(time.RFC3339Nano, message.Date)
		if err != nil {
			continue
		}
		if !from.IsZero() && date.Before(from) {
			continue
		}
		if !to.IsZero() && !date.Before(to) {
			continue
		}
		messages = append(messages, message)
	}
	writeJSON(w, http.StatusOK, messages)
}

func queryTime(req *http.Request, name string) (time.Time, error) {
	value := req.URL.Query().Get(name)
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func (s *Server) getReports(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j := s.lookupJob(w, req); j != nil {
		reports := append([]string{}, j.reports...)
		writeJSON(w, http.StatusOK, reports)
	}
}

func (s *Server) lookupBundle(w http.ResponseWriter, req *http.Request) *bundle {
	b, ok := s.bundles[pathID(req, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "no such bundle")
		return nil
	}
	return b
}

func (s *Server) listBundles(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.bundles))
	for id := range s.bundles {
		ids = append(ids, id)
	}
	sortIDs(ids)
	reps := make([]restdata.DataBundleSummary, len(ids))
	for i, id := range ids {
		reps[i] = s.bundles[id].rep.DataBundleSummary
	}
	writeJSON(w, http.StatusOK, reps)
}

// createBundle creates an open bundle for uploads, or a closed one
// holding a file per S3 location.  The fake S3 file content is the
// location itself.
func (s *Server) createBundle(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var create restdata.BundleRequest
	if err := decode(req, &create); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if create.Type == "" {
		writeError(w, http.StatusBadRequest, "bundle type is required")
		return
	}
	id := s.addBundle(restdata.DataBundle{
		DataBundleSummary: restdata.DataBundleSummary{Name: create.Name},
		Type:              create.Type,
		Encoding:          create.Encoding,
		MimeTypeOverride:  create.MimeTypeOverride,
		FileExtensions:    create.FileExtensions,
		MimeTypeFilters:   create.MimeTypeFilters,
	})
	b := s.bundles[id]
	for _, location := range create.Locations {
		s.addFile(b, path.Base(location), []byte(location))
	}
	if len(create.Locations) > 0 {
		b.rep.Closed = true
		b.rep.Downloadable = true
	}
	writeJSON(w, http.StatusCreated, b.rep)
}

func (s *Server) getBundle(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b := s.lookupBundle(w, req); b != nil {
		writeJSON(w, http.StatusOK, b.rep)
	}
}

func (s *Server) renameBundle(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.lookupBundle(w, req)
	if b == nil {
		return
	}
	var rename restdata.NameRequest
	if err := decode(req, &rename); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	b.rep.Name = rename.Name
	writeJSON(w, http.StatusOK, b.rep)
}

func (s *Server) deleteBundle(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.lookupBundle(w, req)
	if b == nil {
		return
	}
	prefix := "bundle-" + idString(b.rep.ID) + "/"
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
		}
	}
	delete(s.bundles, b.rep.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addBundleFile(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.lookupBundle(w, req)
	if b == nil {
		return
	}
	if b.rep.Closed {
		writeError(w, http.StatusBadRequest, "bundle is closed")
		return
	}
	var add restdata.AddFileRequest
	if err := decode(req, &add); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if add.FileName == "" || strings.Contains(add.FileName, "/") {
		writeError(w, http.StatusBadRequest, "bad file name %q", add.FileName)
		return
	}
	putURL := s.url("upload", "id", idString(b.rep.ID), "name", add.FileName)
	writeJSON(w, http.StatusOK, restdata.AddFileResponse{PutURL: putURL})
}

func (s *Server) closeBundle(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.lookupBundle(w, req)
	if b == nil {
		return
	}
	b.rep.Closed = true
	b.rep.Downloadable = true
	writeJSON(w, http.StatusOK, b.rep)
}

// uploadFile accepts the content of a pre-signed upload.
func (s *Server) uploadFile(w http.ResponseWriter, req *http.Request) {
	if req.Header.Get("Authorization") != "" {
		http.Error(w, "unexpected credentials", http.StatusForbidden)
		return
	}
	if req.ContentLength < 0 || len(req.TransferEncoding) > 0 {
		http.Error(w, "length required", http.StatusLengthRequired)
		return
	}
	content, err := readBody(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bundles[pathID(req, "id")]
	if !ok || b.rep.Closed {
		http.Error(w, "no such upload", http.StatusNotFound)
		return
	}
	name := mux.Vars(req)["name"]
	s.addFile(b, name, content)
	s.uploads[objectKey(b.rep.ID, name)] = req.ContentLength
	w.WriteHeader(http.StatusOK)
}

// redirectFile sends the client to a signed storage URL.
func (s *Server) redirectFile(w http.ResponseWriter, req *http.Request) {
	key := mux.Vars(req)["key"]
	s.mu.Lock()
	_, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no such file")
		return
	}
	w.Header().Set("Location", "/storage/object/"+key+"?signature=fake")
	w.WriteHeader(http.StatusSeeOther)
}

func (s *Server) getObject(w http.ResponseWriter, req *http.Request) {
	if req.Header.Get("Authorization") != "" {
		http.Error(w, "unexpected credentials", http.StatusForbidden)
		return
	}
	s.mu.Lock()
	content, ok := s.objects[mux.Vars(req)["key"]]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "no such object", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	_, _ = w.Write(content)
}

func (s *Server) listMachines(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := req.URL.Query()["state"]
	ids := make([]int64, 0, len(s.machines))
	for id, m := range s.machines {
		if len(states) == 0 || contains(states, string(m.State)) {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	reps := make([]restdata.MachineSummary, len(ids))
	for i, id := range ids {
		reps[i] = s.machines[id].MachineSummary
	}
	writeJSON(w, http.StatusOK, reps)
}

func (s *Server) lookupMachine(w http.ResponseWriter, req *http.Request) *restdata.Machine {
	m, ok := s.machines[pathID(req, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "no such machine")
		return nil
	}
	return m
}

func (s *Server) getMachine(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.lookupMachine(w, req); m != nil {
		writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) renameMachine(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.lookupMachine(w, req)
	if m == nil {
		return
	}
	var rename restdata.NameRequest
	if err := decode(req, &rename); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	m.Name = rename.Name
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) controlMachine(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.lookupMachine(w, req)
	if m == nil {
		return
	}
	var control restdata.ControlRequest
	if err := decode(req, &control); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	switch {
	case control.Action == "start" && m.State == restdata.MachineInactive:
		m.State = restdata.MachineActive
	case control.Action == "stop" && m.State == restdata.MachineActive:
		m.State = restdata.MachineInactive
	default:
		writeError(w, http.StatusBadRequest, "cannot %s a machine in state %s", control.Action, m.State)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listItems(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tags := req.URL.Query()["tag"]
	ids := make([]int64, 0, len(s.items))
	for id, it := range s.items {
		matched := true
		for _, tag := range tags {
			if !contains(it.tags, tag) {
				matched = false
			}
		}
		if matched {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	reps := make([]restdata.Item, len(ids))
	for i, id := range ids {
		reps[i] = s.items[id].rep
	}
	writeJSON(w, http.StatusOK, reps)
}

func (s *Server) getItem(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[pathID(req, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "no such item")
		return
	}
	writeJSON(w, http.StatusOK, it.rep)
}

// reserveItem creates one RESERVED job per unit.  Items with a price
// need the payment header.
func (s *Server) reserveItem(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[pathID(req, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "no such item")
		return
	}
	var reserve restdata.ReserveRequest
	if err := decode(req, &reserve); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if reserve.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	if isPriced(it.rep.Price) && req.Header.Get("X-GATECloud-Payment") != "OK" {
		writeError(w, http.StatusPaymentRequired, "this item requires payment")
		return
	}
	resp := restdata.ReserveResponse{Status: "OK", Jobs: []string{}}
	for i := 0; i < reserve.Quantity; i++ {
		rep := restdata.Job{Name: it.rep.Name, Price: it.rep.Price}
		id := s.addJob(rep)
		resp.Jobs = append(resp.Jobs, s.jobs[id].rep.URL)
	}
	writeJSON(w, http.StatusOK, resp)
}

func isPriced(p *restdata.Prices) bool {
	return p != nil && (p.Setup > 0 || p.Hour > 0 || p.MiB > 0)
}

// callOnline describes the request it received.
func (s *Server) callOnline(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	service, ok := s.online[mux.Vars(req)["name"]]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no such service")
		return
	}
	text, err := readBody(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	query := req.URL.Query()
	resp := OnlineResponse{
		Text:        string(text),
		ContentType: req.Header.Get("Content-Type"),
		Accept:      req.Header.Get("Accept"),
		Annotations: query.Get("annotations"),
		Compressed:  req.Header.Get("Content-Encoding") == "gzip",
	}
	query.Del("annotations")
	if len(query) > 0 {
		resp.Params = make(map[string]string)
		for name := range query {
			resp.Params[name] = query.Get(name)
		}
	}
	for name, values := range service.Quota {
		w.Header()[name] = values
	}
	if service.NoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", restdata.JSONMediaType)
	if !strings.Contains(req.Header.Get("Accept-Encoding"), "gzip") {
		_ = restdata.Encode(w, resp)
		return
	}
	w.Header().Set("Content-Encoding", "gzip")
	gz := gzip.NewWriter(w)
	_ = restdata.Encode(gz, resp)
	_ = gz.Close()
}

func (s *Server) onlineMetadata(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	service, ok := s.online[mux.Vars(req)["name"]]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no such service")
		return
	}
	writeJSON(w, http.StatusOK, service.Metadata)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
