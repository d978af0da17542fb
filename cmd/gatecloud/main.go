// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package gatecloud provides a command-line client for GATE Cloud.
// It manages annotation jobs, data bundles, reserved machines, and
// shop reservations, and sends documents to the online API.
//
//     gatecloud configure --key-id abcdefgh
//     gatecloud list-jobs --state ACTIVE
//     gatecloud process-document https://cloud-api.gate.ac.uk/process/annie doc.txt
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/GateNLP/cloud-client-go/cloud"
	"github.com/GateNLP/cloud-client-go/config"
	"github.com/GateNLP/cloud-client-go/restclient"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// tool holds the state shared by all of the commands.
type tool struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Clock paces online calls and log polling.
	Clock clock.Clock

	ctx        context.Context
	log        *logrus.Logger
	configPath string
	config     *config.Config
	cloud      *cloud.Client
	json       bool
}

func newTool(ctx context.Context, in io.Reader, out, errOut io.Writer) *tool {
	return &tool{
		In:    in,
		Out:   out,
		Err:   errOut,
		Clock: clock.New(),
		ctx:   ctx,
	}
}

func (t *tool) newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "gatecloud"
	app.Usage = "manage GATE Cloud jobs, data bundles, and machines"
	app.Writer = t.Out
	app.ErrWriter = t.Err
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "json",
			Usage: "write results as JSON",
		},
		cli.StringFlag{
			Name:  "config",
			Value: config.DefaultPath(),
			Usage: "configuration file holding the API key",
		},
		cli.StringFlag{
			Name:   "base-url",
			Usage:  "GATE Cloud API base URL",
			EnvVar: config.EnvBaseURL,
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "warning",
			Usage: "minimum level of log messages",
		},
		cli.BoolFlag{
			Name:  "log-json",
			Usage: "write log messages as JSON",
		},
		cli.StringFlag{
			Name:  "metrics-file",
			Usage: "write request metrics to this file on exit",
		},
	}
	app.Before = t.before
	app.After = t.after
	var commands []cli.Command
	commands = append(commands, t.configureCommands()...)
	commands = append(commands, t.jobCommands()...)
	commands = append(commands, t.dataCommands()...)
	commands = append(commands, t.machineCommands()...)
	commands = append(commands, t.shopCommands()...)
	commands = append(commands, t.onlineCommands()...)
	app.Commands = commands
	return app
}

// before sets up logging and the API client from the global flags.
func (t *tool) before(c *cli.Context) error {
	level, err := logrus.ParseLevel(c.GlobalString("log-level"))
	if err != nil {
		return err
	}
	t.log = logrus.New()
	t.log.Out = t.Err
	t.log.Level = level
	if c.GlobalBool("log-json") {
		t.log.Formatter = &logrus.JSONFormatter{}
	}
	t.json = c.GlobalBool("json")

	t.configPath = c.GlobalString("config")
	t.config, err = config.Load(t.configPath)
	if err != nil {
		return err
	}
	if base := c.GlobalString("base-url"); base != "" {
		t.config.BaseURL = base
	}
	rest, err := t.config.Client(restclient.WithLogger(t.log))
	if err != nil {
		return err
	}
	t.cloud = cloud.New(rest)
	t.log.WithFields(logrus.Fields{
		"config":        t.configPath,
		"base":          rest.BaseURL().String(),
		"authenticated": rest.Authenticated(),
	}).Debug("client configured")
	return nil
}

// after writes the metrics file, if one was requested.
func (t *tool) after(c *cli.Context) error {
	if path := c.GlobalString("metrics-file"); path != "" {
		return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
	}
	return nil
}

// paymentHint explains how to allow a paid reservation.
const paymentHint = "This item requires payment from your account.  Run again with --allow-payment, or set GATE_CLOUD_PAYMENT_ALLOWED=true, to accept the charge."

// exitError converts a command failure into the message printed on
// exit.  Server error messages and the payment hint are included.
func exitError(err error) *cli.ExitError {
	lines := []string{err.Error()}
	var rerr *restclient.Error
	if errors.As(err, &rerr) {
		if msg := rerr.ServerMessage(); msg != "" {
			lines = append(lines, "Server message: "+msg)
		}
		if rerr.StatusCode == 402 {
			lines = append(lines, paymentHint)
		}
	}
	return cli.NewExitError(strings.Join(lines, "\n"), 1)
}

// args checks that a command has exactly n arguments.
func args(c *cli.Context, n int) error {
	if c.NArg() != n {
		return fmt.Errorf("%s: expected arguments %s", c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

// minArgs checks that a command has at least n arguments.
func minArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return fmt.Errorf("%s: expected arguments %s", c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

// argID parses the i'th argument as a numeric identifier.
func argID(c *cli.Context, i int) (int64, error) {
	arg := c.Args().Get(i)
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a numeric ID", c.Command.Name, arg)
	}
	return id, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	t := newTool(ctx, os.Stdin, os.Stdout, os.Stderr)
	err := t.newApp().Run(os.Args)
	stop()
	if err != nil {
		cli.HandleExitCoder(exitError(err))
	}
}
