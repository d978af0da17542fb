// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cloud_test

import (
	"github.com/GateNLP/cloud-client-go/restclient"
	"github.com/GateNLP/cloud-client-go/restdata"
)

// TestShopList filters items by tag.
func (s *Suite) TestShopList() {
	s.Server.AddItem(restdata.Item{Name: "ANNIE"}, "english", "ner")
	s.Server.AddItem(restdata.Item{Name: "TwitIE"}, "english", "twitter")
	s.Server.AddItem(restdata.Item{Name: "French NER"}, "french", "ner")

	all, err := s.Cloud.Shop.List(s.ctx)
	if s.NoError(err) {
		s.Len(all, 3)
	}

	english, err := s.Cloud.Shop.List(s.ctx, "english", "ner")
	if s.NoError(err) && s.Len(english, 1) {
		s.Equal("ANNIE", english[0].Name())
	}
}

// TestReserveFree reserves a free item without payment.
func (s *Suite) TestReserveFree() {
	id := s.Server.AddItem(restdata.Item{Name: "free pipeline"})
	item, err := s.Cloud.Shop.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("free pipeline", item.Name())

	jobs, err := item.Reserve(s.ctx, 2, false)
	s.Require().NoError(err)
	s.Require().Len(jobs, 2)
	for _, job := range jobs {
		s.Equal("free pipeline", job.Name())
		s.Equal(restdata.JobReserved, job.State())
	}
	s.NotEqual(jobs[0].ID(), jobs[1].ID())
}

// TestReservePaid checks that a priced item needs payment to be
// allowed.
func (s *Suite) TestReservePaid() {
	id := s.Server.AddItem(restdata.Item{
		Name:  "paid pipeline",
		Price: &restdata.Prices{Setup: 1, Hour: 0.5},
	})
	item, err := s.Cloud.Shop.Get(s.ctx, id)
	s.Require().NoError(err)

	_, err = item.ReserveOne(s.ctx, false)
	s.Equal(402, restclient.StatusCode(err))

	job, err := item.ReserveOne(s.ctx, true)
	if s.NoError(err) && s.NotNil(job) {
		s.Equal(1.0, job.Representation.Price.Setup)
	}

	_, err = item.Reserve(s.ctx, 0, true)
	s.Equal(400, restclient.StatusCode(err))
}

// TestItemOnlineEndpoint checks the online endpoint link.
func (s *Suite) TestItemOnlineEndpoint() {
	onlineURL := s.Server.AddOnlineService("annie", nil)
	with := s.Server.AddItem(restdata.Item{Name: "online", OnlineURL: onlineURL})
	without := s.Server.AddItem(restdata.Item{Name: "offline"})

	item, err := s.Cloud.Shop.Get(s.ctx, with)
	s.Require().NoError(err)
	endpoint, err := item.OnlineEndpoint()
	if s.NoError(err) && s.NotNil(endpoint) {
		s.Equal(onlineURL, endpoint.String())
	}

	item, err = s.Cloud.Shop.Get(s.ctx, without)
	s.Require().NoError(err)
	endpoint, err = item.OnlineEndpoint()
	s.NoError(err)
	s.Nil(endpoint)
}
