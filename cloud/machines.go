// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cloud

import (
	"context"
	"strconv"

	"github.com/GateNLP/cloud-client-go/restdata"
)

// Machines lists and fetches reserved cloud machines.
type Machines struct {
	resource
}

// List returns summaries of the caller's machines, optionally
// restricted to machines in particular states.
func (m *Machines) List(ctx context.Context, states ...restdata.MachineState) ([]*MachineSummary, error) {
	names := make([]string, len(states))
	for i, state := range states {
		names[i] = string(state)
	}
	vars := map[string]interface{}{}
	setVar(vars, "state", listVar(names))
	u, err := m.template("machine{?state*}", vars)
	if err != nil {
		return nil, err
	}
	var reps []restdata.MachineSummary
	if err = m.getFrom(ctx, u.String(), &reps); err != nil {
		return nil, err
	}
	result := make([]*MachineSummary, len(reps))
	for i, rep := range reps {
		res, err := m.at(rep.URL)
		if err != nil {
			return nil, err
		}
		result[i] = &MachineSummary{resource: res, Representation: rep}
	}
	return result, nil
}

// Get fetches a machine by its numeric ID.
func (m *Machines) Get(ctx context.Context, id int64) (*Machine, error) {
	u, err := m.template("machine/{id}", map[string]interface{}{"id": strconv.FormatInt(id, 10)})
	if err != nil {
		return nil, err
	}
	machine := &Machine{resource: resource{client: m.client, URL: u}}
	if err = machine.Refresh(ctx); err != nil {
		return nil, err
	}
	return machine, nil
}

// MachineSummary is one entry in the machine list.
type MachineSummary struct {
	resource
	Representation restdata.MachineSummary
}

// Details fetches the full machine.
func (s *MachineSummary) Details(ctx context.Context) (*Machine, error) {
	machine := &Machine{resource: s.resource}
	if err := machine.Refresh(ctx); err != nil {
		return nil, err
	}
	return machine, nil
}

// Machine is a reserved cloud machine.
type Machine struct {
	resource
	Representation restdata.Machine
}

// ID returns the machine's numeric identifier.
func (m *Machine) ID() int64 {
	return m.Representation.ID
}

// State returns the machine's state as of the last refresh.
func (m *Machine) State() restdata.MachineState {
	return m.Representation.State
}

// Refresh fetches the machine's current state.
func (m *Machine) Refresh(ctx context.Context) error {
	m.Representation = restdata.Machine{}
	err := m.get(ctx, &m.Representation)
	if err == nil && m.Representation.URL == "" {
		m.Representation.URL = m.URL.String()
	}
	return err
}

// Rename changes the machine's name.
func (m *Machine) Rename(ctx context.Context, name string) error {
	return m.postForUpdate(ctx, m.URL.String(), &m.Representation, restdata.NameRequest{Name: name})
}

func (m *Machine) control(ctx context.Context, action string) error {
	err := m.postTo(ctx, m.child("control"), restdata.ControlRequest{Action: action}, nil)
	if err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// Start boots an inactive machine.
func (m *Machine) Start(ctx context.Context) error {
	return m.control(ctx, "start")
}

// Stop shuts down an active machine.  Charges stop accruing once it
// reaches the inactive state.
func (m *Machine) Stop(ctx context.Context) error {
	return m.control(ctx, "stop")
}
