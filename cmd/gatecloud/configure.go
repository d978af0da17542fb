// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/GateNLP/cloud-client-go/config"
	"github.com/urfave/cli"
)

func (t *tool) configureCommands() []cli.Command {
	return []cli.Command{
		{
			Name:  "configure",
			Usage: "save an API key to the configuration file",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "key-id", Usage: "API key ID (prompted for if absent)"},
				cli.StringFlag{Name: "password", Usage: "API key password (prompted for if absent)"},
				cli.StringFlag{Name: "save-base-url", Usage: "also save this API base URL"},
			},
			Action: t.configure,
		},
	}
}

func (t *tool) configure(c *cli.Context) error {
	input := bufio.NewScanner(t.In)
	prompt := func(label, value string) (string, error) {
		if value != "" {
			return value, nil
		}
		fmt.Fprintf(t.Out, "%s: ", label)
		if !input.Scan() {
			if err := input.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("no %s given", strings.ToLower(label))
		}
		return strings.TrimSpace(input.Text()), nil
	}

	// Start from the file, not from the command-line overrides.
	cfg, err := config.Load(t.configPath)
	if err != nil {
		return err
	}
	if cfg.KeyID, err = prompt("API key ID", c.String("key-id")); err != nil {
		return err
	}
	if cfg.Password, err = prompt("API key password", c.String("password")); err != nil {
		return err
	}
	if base := c.String("save-base-url"); base != "" {
		cfg.BaseURL = base
	}
	if err = config.Save(t.configPath, cfg); err != nil {
		return err
	}
	fmt.Fprintf(t.Out, "Configuration saved to %s\n", t.configPath)
	return nil
}
