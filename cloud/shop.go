// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cloud

import (
	"context"
	"net/http"
	"strconv"

	"github.com/GateNLP/cloud-client-go/restclient"
	"github.com/GateNLP/cloud-client-go/restdata"
)

// PaymentHeader is the request header that authorizes a reservation
// to take payment from the caller's account.
const PaymentHeader = "X-GATECloud-Payment"

// Shop lists the pipelines and machines available to reserve.
type Shop struct {
	resource
}

// List returns the items in the shop, optionally restricted to items
// carrying all of the given tags.
func (m *Shop) List(ctx context.Context, tags ...string) ([]*Item, error) {
	vars := map[string]interface{}{}
	setVar(vars, "tag", listVar(tags))
	u, err := m.template("shop{?tag*}", vars)
	if err != nil {
		return nil, err
	}
	var reps []restdata.Item
	if err = m.getFrom(ctx, u.String(), &reps); err != nil {
		return nil, err
	}
	result := make([]*Item, len(reps))
	for i, rep := range reps {
		item, err := m.item(rep)
		if err != nil {
			return nil, err
		}
		result[i] = item
	}
	return result, nil
}

// Get fetches an item by its numeric ID.
func (m *Shop) Get(ctx context.Context, id int64) (*Item, error) {
	u, err := m.template("shop/item/{id}", map[string]interface{}{"id": strconv.FormatInt(id, 10)})
	if err != nil {
		return nil, err
	}
	return m.GetURL(ctx, u.String())
}

// GetURL fetches an item given its detail URL.
func (m *Shop) GetURL(ctx context.Context, itemURL string) (*Item, error) {
	var rep restdata.Item
	if err := m.getFrom(ctx, itemURL, &rep); err != nil {
		return nil, err
	}
	if rep.DetailURL == "" {
		rep.DetailURL = itemURL
	}
	return m.item(rep)
}

func (m *Shop) item(rep restdata.Item) (*Item, error) {
	res, err := m.at(rep.DetailURL)
	if err != nil {
		return nil, err
	}
	return &Item{resource: res, Representation: rep}, nil
}

// Item is something that can be reserved from the shop.  Its URL is
// the item's detail URL.
type Item struct {
	resource
	Representation restdata.Item
}

// Name returns the item's name.
func (i *Item) Name() string {
	return i.Representation.Name
}

// Reserve reserves quantity copies of the item and returns the jobs
// created.  Items that cost money can only be reserved if
// allowPayment is true; otherwise the server rejects the request
// with HTTP 402 Payment Required.  Reserving a machine creates no
// jobs.
func (i *Item) Reserve(ctx context.Context, quantity int, allowPayment bool) ([]*Job, error) {
	header := http.Header{}
	if allowPayment {
		header.Set(PaymentHeader, "OK")
	}
	var resp restdata.ReserveResponse
	_, err := i.client.Do(ctx, &restclient.Request{
		Method:        http.MethodPost,
		Target:        i.URL.String(),
		Body:          restclient.JSONBody{Value: restdata.ReserveRequest{Quantity: quantity}},
		Header:        header,
		GzipThreshold: restclient.NoCompression,
	}, &resp)
	if err != nil {
		return nil, err
	}
	jobs := Jobs{i.resource}
	result := make([]*Job, 0, len(resp.Jobs))
	for _, jobURL := range resp.Jobs {
		job, err := jobs.GetURL(ctx, jobURL)
		if err != nil {
			return result, err
		}
		result = append(result, job)
	}
	return result, nil
}

// ReserveOne reserves a single copy of the item and returns its job,
// or nil if none was created.
func (i *Item) ReserveOne(ctx context.Context, allowPayment bool) (*Job, error) {
	jobs, err := i.Reserve(ctx, 1, allowPayment)
	if err != nil || len(jobs) == 0 {
		return nil, err
	}
	return jobs[0], nil
}

// OnlineEndpoint returns the online API endpoint of the item, or nil
// if it has none.
func (i *Item) OnlineEndpoint() (*Endpoint, error) {
	if i.Representation.OnlineURL == "" {
		return nil, nil
	}
	online := Online{i.resource}
	return online.Endpoint(i.Representation.OnlineURL)
}
