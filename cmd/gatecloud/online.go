// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/GateNLP/cloud-client-go/cloud"
	"github.com/GateNLP/cloud-client-go/restclient"
	"github.com/urfave/cli"
)

// resultExtensions names saved results by response type.
var resultExtensions = map[cloud.ResponseType]string{
	cloud.ResponseJSON:    ".json",
	cloud.ResponseGATEXML: ".xml",
	cloud.ResponseFINF:    ".finf",
}

func (t *tool) endpoint(target string) (*cloud.Endpoint, error) {
	endpoint, err := t.cloud.Online.Endpoint(target)
	if err != nil {
		return nil, err
	}
	if t.config.GzipThreshold != 0 {
		endpoint = endpoint.WithGzipThreshold(t.config.GzipThreshold)
	}
	return endpoint, nil
}

func (t *tool) onlineCommands() []cli.Command {
	return []cli.Command{
		{
			Name:      "process-document",
			Usage:     "annotate documents with an online API endpoint",
			ArgsUsage: "ENDPOINT-URL FILE...",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "mime-type",
					Value: "text/plain",
					Usage: "MIME type of the documents",
				},
				cli.StringFlag{
					Name:  "response-type",
					Value: string(cloud.ResponseJSON),
					Usage: "result format: JSON, GATE_XML, or FINF",
				},
				cli.StringFlag{Name: "annotations", Usage: "comma-separated annotation selectors"},
				cli.BoolFlag{Name: "exclude-text", Usage: "leave the document text out of the results"},
				cli.StringSliceFlag{Name: "param", Usage: "extra NAME=VALUE request parameter (repeatable)"},
				cli.StringFlag{Name: "output-dir", Usage: "save each result next to its name here instead of printing it"},
				cli.BoolFlag{Name: "show-quota", Usage: "print the service's quota headers after each call"},
			},
			Action: t.processDocuments,
		},
		{
			Name:      "list-annotations",
			Usage:     "show which annotations an online API endpoint produces",
			ArgsUsage: "ENDPOINT-URL",
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				endpoint, err := t.endpoint(c.Args().First())
				if err != nil {
					return err
				}
				meta, err := endpoint.Metadata(t.ctx)
				if err != nil {
					return err
				}
				return t.show(meta, func() {
					defaults, additional := meta.Selectors()
					details(t.Out,
						"Default", strings.Join(defaults, " "),
						"Additional", strings.Join(additional, " "),
					)
				})
			},
		},
	}
}

func (t *tool) processDocuments(c *cli.Context) error {
	if err := minArgs(c, 2); err != nil {
		return err
	}
	endpoint, err := t.endpoint(c.Args().First())
	if err != nil {
		return err
	}
	pacer := cloud.NewPacer(cloud.DefaultMinDelay)
	pacer.Clock = t.Clock
	endpoint = endpoint.WithPacer(pacer)

	params := url.Values{}
	for _, param := range c.StringSlice("param") {
		parts := strings.SplitN(param, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("--param %q: expected NAME=VALUE", param)
		}
		params.Add(parts[0], parts[1])
	}
	responseType := cloud.ResponseType(c.String("response-type"))
	extension, ok := resultExtensions[responseType]
	if !ok {
		return fmt.Errorf("unknown response type %q", responseType)
	}

	for _, file := range c.Args().Tail() {
		result, err := t.processDocument(endpoint, file, cloud.CallRequest{
			MimeType:            c.String("mime-type"),
			ResponseType:        responseType,
			AnnotationSelectors: c.String("annotations"),
			ExcludeText:         c.Bool("exclude-text"),
			Params:              params,
		}, c.String("output-dir"), extension)
		if err != nil {
			return err
		}
		if c.Bool("show-quota") {
			quota := result.Quota()
			details(t.Err,
				"Request cost", quota.RequestCost(),
				"Remaining quota", quota.RemainingQuota(),
				"Quota reset", quota.QuotaReset(),
				"Rate limit calls", quota.RateLimitCalls(),
				"Rate limit reset", quota.RateLimitReset(),
			)
		}
	}
	return nil
}

// processDocument sends one file and writes the result either to the
// tool's output or into outputDir.  An empty reply writes no file.
func (t *tool) processDocument(endpoint *cloud.Endpoint, file string, call cloud.CallRequest, outputDir, extension string) (*restclient.Result, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	call.Content = restclient.StreamBody{Reader: f}
	body, result, err := endpoint.Call(t.ctx, call)
	if err != nil {
		return nil, err
	}
	if body == nil {
		if outputDir != "" {
			fmt.Fprintf(t.Out, "%s: no content\n", file)
		}
		return result, nil
	}
	defer body.Close()

	if outputDir == "" {
		_, err = io.Copy(t.Out, body)
		return result, err
	}
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)) + extension
	dest := cloud.UnusedName(outputDir, name)
	out, err := os.Create(dest)
	if err != nil {
		return nil, err
	}
	_, err = io.Copy(out, body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(t.Out, "%s -> %s\n", file, dest)
	return result, nil
}
