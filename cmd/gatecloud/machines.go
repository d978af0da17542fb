// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"fmt"
	"strconv"

	"github.com/GateNLP/cloud-client-go/cloud"
	"github.com/GateNLP/cloud-client-go/restdata"
	"github.com/urfave/cli"
)

func (t *tool) machine(c *cli.Context, i int) (*cloud.Machine, error) {
	id, err := argID(c, i)
	if err != nil {
		return nil, err
	}
	return t.cloud.Machines.Get(t.ctx, id)
}

func (t *tool) printMachine(rep restdata.Machine) {
	details(t.Out,
		"Machine ID", strconv.FormatInt(rep.ID, 10),
		"Name", rep.Name,
		"Kind", rep.Kind,
		"State", string(rep.State),
		"Hourly price", fmt.Sprintf("£%.2f", rep.HourlyPrice),
		"Last change", rep.LastTransition,
		"Launched", rep.LaunchTime,
		"Public URL", rep.PublicURL,
		"Admin password", rep.AdminPassword,
	)
}

// machineAction builds a command that applies fn to the machine named
// by its first argument.
func (t *tool) machineAction(fn func(*cloud.Machine) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		if err := args(c, 1); err != nil {
			return err
		}
		machine, err := t.machine(c, 0)
		if err != nil {
			return err
		}
		if err = fn(machine); err != nil {
			return err
		}
		return t.show(machine.Representation, func() {
			fmt.Fprintf(t.Out, "Machine %d is now %s\n", machine.ID(), machine.State())
		})
	}
}

func (t *tool) machineCommands() []cli.Command {
	return []cli.Command{
		{
			Name:  "list-machines",
			Usage: "list reserved machines",
			Flags: []cli.Flag{
				cli.StringSliceFlag{
					Name:  "state",
					Usage: "only list machines in this state (repeatable)",
				},
			},
			Action: func(c *cli.Context) error {
				var states []restdata.MachineState
				for _, state := range c.StringSlice("state") {
					states = append(states, restdata.MachineState(state))
				}
				summaries, err := t.cloud.Machines.List(t.ctx, states...)
				if err != nil {
					return err
				}
				reps := make([]restdata.Machine, 0, len(summaries))
				for _, summary := range summaries {
					machine, err := summary.Details(t.ctx)
					if err != nil {
						return err
					}
					reps = append(reps, machine.Representation)
				}
				return t.show(reps, func() {
					for _, rep := range reps {
						listLine(t.Out, rep.ID, rep.Name, string(rep.State))
					}
				})
			},
		},
		{
			Name:      "machine-details",
			Usage:     "show one machine",
			ArgsUsage: "MACHINE-ID",
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				machine, err := t.machine(c, 0)
				if err != nil {
					return err
				}
				return t.show(machine.Representation, func() { t.printMachine(machine.Representation) })
			},
		},
		{
			Name:      "rename-machine",
			Usage:     "change a machine's name",
			ArgsUsage: "MACHINE-ID NAME",
			Action: func(c *cli.Context) error {
				if err := args(c, 2); err != nil {
					return err
				}
				machine, err := t.machine(c, 0)
				if err != nil {
					return err
				}
				if err = machine.Rename(t.ctx, c.Args().Get(1)); err != nil {
					return err
				}
				return t.show(machine.Representation, func() {
					fmt.Fprintf(t.Out, "Machine %d renamed to %q\n", machine.ID(), machine.Representation.Name)
				})
			},
		},
		{
			Name:      "start-machine",
			Usage:     "boot an inactive machine",
			ArgsUsage: "MACHINE-ID",
			Action:    t.machineAction(func(m *cloud.Machine) error { return m.Start(t.ctx) }),
		},
		{
			Name:      "stop-machine",
			Usage:     "shut down an active machine",
			ArgsUsage: "MACHINE-ID",
			Action:    t.machineAction(func(m *cloud.Machine) error { return m.Stop(t.ctx) }),
		},
	}
}
