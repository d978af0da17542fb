// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package cloud provides the GATE Cloud object model on top of the
// restclient transport: annotation jobs, data bundles, reserved
// machines, the shop, and online API endpoints.
//
// Create a Client from a configured transport:
//
//     rest, err := restclient.New(restclient.DefaultBaseURL, creds)
//     c := cloud.New(rest)
//     jobs, err := c.Jobs.List(ctx, restdata.JobActive)
//
// Objects returned from this package hold a snapshot of the server's
// representation in their Representation field.  Methods that change
// the object on the server update the snapshot; Refresh() fetches a
// new one.
package cloud

import (
	"context"
	"net/url"
	"strings"

	"github.com/GateNLP/cloud-client-go/restclient"
	"github.com/jtacoma/uritemplates"
)

// Client is the entry point to the GATE Cloud object model.
type Client struct {
	// REST is the underlying transport.
	REST *restclient.Client

	Jobs     *Jobs
	Data     *Data
	Machines *Machines
	Shop     *Shop
	Online   *Online
}

// New creates a new object model client using a transport.
func New(rest *restclient.Client) *Client {
	root := resource{client: rest, URL: rest.BaseURL()}
	return &Client{
		REST:     rest,
		Jobs:     &Jobs{root},
		Data:     &Data{root},
		Machines: &Machines{root},
		Shop:     &Shop{root},
		Online:   &Online{root},
	}
}

// resource is any object that has a URL.
type resource struct {
	client *restclient.Client
	URL    *url.URL
}

// template expands a URI template and returns the result relative to
// the resource's URL.  The variable "self" is bound to the
// resource's own URL, so "{+self}/log" names a child of it.
func (r *resource) template(pattern string, vars map[string]interface{}) (*url.URL, error) {
	tmpl, err := uritemplates.Parse(pattern)
	if err != nil {
		return nil, err
	}
	values := map[string]interface{}{"self": r.self()}
	for k, v := range vars {
		values[k] = v
	}
	expanded, err := tmpl.Expand(values)
	if err != nil {
		return nil, err
	}
	return r.URL.Parse(expanded)
}

// self is the resource URL without a trailing slash.
func (r *resource) self() string {
	return strings.TrimSuffix(r.URL.String(), "/")
}

// child returns the URL of a path under this resource.
func (r *resource) child(path string) string {
	return r.self() + "/" + path
}

// at creates a resource for a URL taken relative to this one.
func (r *resource) at(target string) (resource, error) {
	u, err := r.URL.Parse(target)
	if err != nil {
		return resource{}, err
	}
	return resource{client: r.client, URL: u}, nil
}

// get retrieves the resource from its own URL.
func (r *resource) get(ctx context.Context, out interface{}) error {
	_, err := r.client.Get(ctx, r.URL.String(), out)
	return err
}

// getFrom retrieves some other URL.
func (r *resource) getFrom(ctx context.Context, target string, out interface{}) error {
	_, err := r.client.Get(ctx, target, out)
	return err
}

// postTo submits in to some other URL and stores the response in out.
func (r *resource) postTo(ctx context.Context, target string, in, out interface{}) error {
	_, err := r.client.Post(ctx, target, in, out)
	return err
}

// postForUpdate submits in to target and merges the response into obj.
func (r *resource) postForUpdate(ctx context.Context, target string, obj, in interface{}) error {
	_, err := r.client.PostForUpdate(ctx, target, obj, in)
	return err
}

// remove deletes the resource at its own URL.
func (r *resource) remove(ctx context.Context) error {
	_, err := r.client.Delete(ctx, r.URL.String())
	return err
}

// listVar converts a list of strings into a form the URI template
// library will explode into repeated query parameters.  It returns
// nil for an empty list, so that the parameter is left out.
func listVar(items []string) interface{} {
	if len(items) == 0 {
		return nil
	}
	list := make([]interface{}, len(items))
	for i, item := range items {
		list[i] = item
	}
	return list
}

// setVar adds a template variable if it has a value.
func setVar(vars map[string]interface{}, name string, value interface{}) {
	switch v := value.(type) {
	case nil:
		return
	case string:
		if v == "" {
			return
		}
	}
	vars[name] = value
}
