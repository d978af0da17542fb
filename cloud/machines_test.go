// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cloud_test

import (
	"github.com/GateNLP/cloud-client-go/restclient"
	"github.com/GateNLP/cloud-client-go/restdata"
)

func (s *Suite) addMachine(name string, state restdata.MachineState) int64 {
	rep := restdata.Machine{Name: name, Kind: "gate-mimir"}
	rep.State = state
	return s.Server.AddMachine(rep)
}

// TestMachines lists machines and starts and stops one.
func (s *Suite) TestMachines() {
	idle := s.addMachine("idle", restdata.MachineInactive)
	s.addMachine("busy", restdata.MachineActive)

	all, err := s.Cloud.Machines.List(s.ctx)
	if s.NoError(err) {
		s.Len(all, 2)
	}
	inactive, err := s.Cloud.Machines.List(s.ctx, restdata.MachineInactive)
	s.Require().NoError(err)
	s.Require().Len(inactive, 1)

	machine, err := inactive[0].Details(s.ctx)
	s.Require().NoError(err)
	s.Equal(idle, machine.ID())
	s.Equal("gate-mimir", machine.Representation.Kind)

	s.Require().NoError(machine.Start(s.ctx))
	s.Equal(restdata.MachineActive, machine.State())

	err = machine.Start(s.ctx)
	s.Equal(400, restclient.StatusCode(err))

	s.Require().NoError(machine.Stop(s.ctx))
	s.Equal(restdata.MachineInactive, machine.State())

	s.Require().NoError(machine.Rename(s.ctx, "renamed"))
	s.Equal("renamed", machine.Representation.Name)

	fetched, err := s.Cloud.Machines.Get(s.ctx, idle)
	if s.NoError(err) {
		s.Equal("renamed", fetched.Representation.Name)
		s.Equal(restdata.MachineInactive, fetched.State())
	}
}
