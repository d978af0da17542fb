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

func (t *tool) item(c *cli.Context, i int) (*cloud.Item, error) {
	id, err := argID(c, i)
	if err != nil {
		return nil, err
	}
	return t.cloud.Shop.Get(t.ctx, id)
}

func (t *tool) shopCommands() []cli.Command {
	return []cli.Command{
		{
			Name:  "list-items",
			Usage: "list the pipelines and machines in the shop",
			Flags: []cli.Flag{
				cli.StringSliceFlag{
					Name:  "tag",
					Usage: "only list items with this tag (repeatable)",
				},
			},
			Action: func(c *cli.Context) error {
				items, err := t.cloud.Shop.List(t.ctx, c.StringSlice("tag")...)
				if err != nil {
					return err
				}
				reps := make([]restdata.Item, len(items))
				for i, item := range items {
					reps[i] = item.Representation
				}
				return t.show(reps, func() {
					for _, rep := range reps {
						listLine(t.Out, rep.ID, rep.Name, formatPrices(rep.Price))
					}
				})
			},
		},
		{
			Name:      "item-details",
			Usage:     "show one shop item",
			ArgsUsage: "ITEM-ID",
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				item, err := t.item(c, 0)
				if err != nil {
					return err
				}
				rep := item.Representation
				return t.show(rep, func() {
					details(t.Out,
						"Item ID", strconv.FormatInt(rep.ID, 10),
						"Name", rep.Name,
						"Description", rep.ShortDescription,
						"Price", formatPrices(rep.Price),
						"Details", rep.DetailURL,
						"Online API", rep.OnlineURL,
					)
				})
			},
		},
		{
			Name:      "reserve-job",
			Usage:     "reserve an annotation job from the shop",
			ArgsUsage: "ITEM-ID",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "quantity",
					Value: 1,
					Usage: "number of jobs to reserve",
				},
				cli.BoolFlag{
					Name:   "allow-payment",
					Usage:  "accept charges to your account",
					EnvVar: "GATE_CLOUD_PAYMENT_ALLOWED",
				},
			},
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				item, err := t.item(c, 0)
				if err != nil {
					return err
				}
				jobs, err := item.Reserve(t.ctx, c.Int("quantity"), c.Bool("allow-payment"))
				if err != nil {
					return err
				}
				reps := make([]restdata.Job, len(jobs))
				for i, job := range jobs {
					reps[i] = job.Representation
				}
				return t.show(reps, func() {
					for _, job := range jobs {
						fmt.Fprintf(t.Out, "Reserved job %d: %s\n", job.ID(), job.Name())
					}
				})
			},
		},
	}
}
