// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/GateNLP/cloud-client-go/cloud"
	"github.com/GateNLP/cloud-client-go/restdata"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func (t *tool) job(c *cli.Context, i int) (*cloud.Job, error) {
	id, err := argID(c, i)
	if err != nil {
		return nil, err
	}
	return t.cloud.Jobs.Get(t.ctx, id)
}

func (t *tool) printJob(job *cloud.Job) {
	rep := job.Representation
	details(t.Out,
		"Job ID", strconv.FormatInt(rep.ID, 10),
		"Name", rep.Name,
		"State", string(rep.State),
		"Progress", percent(rep.Progress),
		"Price", formatPrices(rep.Price),
		"Created", rep.DateCreated,
		"Completed", rep.DateCompleted,
		"Results until", rep.ResultsAvailableUntil,
		"Time used", fmt.Sprintf("%s (charged %s)", formatMs(rep.TimeUsed), formatMs(rep.TimeCharged)),
		"Data used", fmt.Sprintf("%s (charged %s)", formatBytes(rep.BytesUsed), formatBytes(rep.BytesCharged)),
		"Result bundle", rep.ResultBundle,
	)
}

// jobAction builds a command that applies fn to the job named by its
// first argument and reports the job's new state.
func (t *tool) jobAction(fn func(*cloud.Job) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		if err := args(c, 1); err != nil {
			return err
		}
		job, err := t.job(c, 0)
		if err != nil {
			return err
		}
		if err = fn(job); err != nil {
			return err
		}
		return t.show(job.Representation, func() {
			fmt.Fprintf(t.Out, "Job %d is now %s\n", job.ID(), job.State())
		})
	}
}

func (t *tool) jobCommands() []cli.Command {
	return []cli.Command{
		{
			Name:  "list-jobs",
			Usage: "list annotation jobs",
			Flags: []cli.Flag{
				cli.StringSliceFlag{
					Name:  "state",
					Usage: "only list jobs in this state (repeatable)",
				},
			},
			Action: t.listJobs,
		},
		{
			Name:      "job-details",
			Usage:     "show one job",
			ArgsUsage: "JOB-ID",
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				job, err := t.job(c, 0)
				if err != nil {
					return err
				}
				return t.show(job.Representation, func() { t.printJob(job) })
			},
		},
		{
			Name:      "rename-job",
			Usage:     "change a job's name",
			ArgsUsage: "JOB-ID NAME",
			Action: func(c *cli.Context) error {
				if err := args(c, 2); err != nil {
					return err
				}
				job, err := t.job(c, 0)
				if err != nil {
					return err
				}
				if err = job.Rename(t.ctx, c.Args().Get(1)); err != nil {
					return err
				}
				return t.show(job.Representation, func() {
					fmt.Fprintf(t.Out, "Job %d renamed to %q\n", job.ID(), job.Name())
				})
			},
		},
		{
			Name:      "start-job",
			Usage:     "run a READY job",
			ArgsUsage: "JOB-ID",
			Action:    t.jobAction(func(job *cloud.Job) error { return job.Start(t.ctx) }),
		},
		{
			Name:      "stop-job",
			Usage:     "halt an ACTIVE job",
			ArgsUsage: "JOB-ID",
			Action:    t.jobAction(func(job *cloud.Job) error { return job.Stop(t.ctx) }),
		},
		{
			Name:      "resume-job",
			Usage:     "restart a SUSPENDED job",
			ArgsUsage: "JOB-ID",
			Action:    t.jobAction(func(job *cloud.Job) error { return job.Resume(t.ctx) }),
		},
		{
			Name:      "reset-job",
			Usage:     "make a COMPLETED job ready to run again",
			ArgsUsage: "JOB-ID",
			Action:    t.jobAction(func(job *cloud.Job) error { return job.Reset(t.ctx) }),
		},
		{
			Name:      "delete-job",
			Usage:     "delete a job and its reports",
			ArgsUsage: "JOB-ID",
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				job, err := t.job(c, 0)
				if err != nil {
					return err
				}
				if err = job.Delete(t.ctx); err != nil {
					return err
				}
				fmt.Fprintf(t.Out, "Deleted job %d\n", job.ID())
				return nil
			},
		},
		{
			Name:      "set-output-location",
			Usage:     "send a job's results to S3, or back to a data bundle",
			ArgsUsage: "JOB-ID",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "s3", Usage: "s3:// location to write results under"},
				cli.StringFlag{Name: "access-key", Usage: "AWS access key for the location"},
				cli.StringFlag{Name: "secret-key", Usage: "AWS secret key for the location"},
			},
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				job, err := t.job(c, 0)
				if err != nil {
					return err
				}
				if location := c.String("s3"); location != "" {
					err = job.OutputToS3(t.ctx, location, c.String("access-key"), c.String("secret-key"))
				} else {
					err = job.OutputToDefault(t.ctx)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(t.Out, "Output location of job %d updated\n", job.ID())
				return nil
			},
		},
		{
			Name:      "list-inputs",
			Usage:     "list a job's inputs",
			ArgsUsage: "JOB-ID",
			Action:    t.listInputs,
		},
		{
			Name:      "input-details",
			Usage:     "show one job input",
			ArgsUsage: "INPUT-URL",
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				input, err := t.cloud.Jobs.Input(t.ctx, c.Args().First())
				if err != nil {
					return err
				}
				return t.show(input.Representation, func() { t.printInput(input.Representation) })
			},
		},
		{
			Name:      "input-from-bundle",
			Usage:     "add a data bundle as a job input",
			ArgsUsage: "JOB-ID BUNDLE-ID",
			Action: func(c *cli.Context) error {
				if err := args(c, 2); err != nil {
					return err
				}
				job, err := t.job(c, 0)
				if err != nil {
					return err
				}
				bundleID, err := argID(c, 1)
				if err != nil {
					return err
				}
				input, err := job.AddBundleInput(t.ctx, bundleID)
				if err != nil {
					return err
				}
				return t.show(input.Representation, func() { t.printInput(input.Representation) })
			},
		},
		{
			Name:      "delete-input",
			Usage:     "remove an input from its job",
			ArgsUsage: "INPUT-URL",
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				input, err := t.cloud.Jobs.Input(t.ctx, c.Args().First())
				if err != nil {
					return err
				}
				if err = input.Delete(t.ctx); err != nil {
					return err
				}
				fmt.Fprintf(t.Out, "Deleted input %s\n", input.URL)
				return nil
			},
		},
		{
			Name:      "list-outputs",
			Usage:     "list a job's outputs",
			ArgsUsage: "JOB-ID",
			Action:    t.listOutputs,
		},
		{
			Name:      "add-file-output",
			Usage:     "add an output that saves one file per document",
			ArgsUsage: "JOB-ID",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "type",
					Value: string(restdata.OutputJSON),
					Usage: "output format: GATE_XML, FINF, JSON, or INLINE_XML",
				},
				cli.StringFlag{Name: "extension", Usage: "file extension of the results"},
				cli.StringFlag{Name: "annotations", Usage: "comma-separated annotation selectors"},
			},
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				outputType := restdata.OutputType(c.String("type"))
				if outputType == restdata.OutputMIMIR {
					return fmt.Errorf("use add-mimir-output for MIMIR outputs")
				}
				job, err := t.job(c, 0)
				if err != nil {
					return err
				}
				output, err := job.AddFileOutput(t.ctx, outputType, c.String("extension"), c.String("annotations"))
				if err != nil {
					return err
				}
				return t.show(output.Representation, func() { t.printOutput(output.Representation) })
			},
		},
		{
			Name:      "add-mimir-output",
			Usage:     "add an output that indexes documents in Mímir",
			ArgsUsage: "JOB-ID INDEX-URL",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "username", Usage: "Mímir user name"},
				cli.StringFlag{Name: "password", Usage: "Mímir password"},
			},
			Action: func(c *cli.Context) error {
				if err := args(c, 2); err != nil {
					return err
				}
				job, err := t.job(c, 0)
				if err != nil {
					return err
				}
				output, err := job.AddMimirOutput(t.ctx, c.Args().Get(1), c.String("username"), c.String("password"))
				if err != nil {
					return err
				}
				return t.show(output.Representation, func() { t.printOutput(output.Representation) })
			},
		},
		{
			Name:      "delete-output",
			Usage:     "remove an output from its job",
			ArgsUsage: "OUTPUT-URL",
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				output, err := t.cloud.Jobs.Output(t.ctx, c.Args().First())
				if err != nil {
					return err
				}
				if err = output.Delete(t.ctx); err != nil {
					return err
				}
				fmt.Fprintf(t.Out, "Deleted output %s\n", output.URL)
				return nil
			},
		},
		{
			Name:      "execution-log",
			Usage:     "show a job's log messages",
			ArgsUsage: "JOB-ID",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "from", Usage: "only messages at or after this RFC 3339 time"},
				cli.StringFlag{Name: "to", Usage: "only messages before this RFC 3339 time"},
				cli.BoolFlag{Name: "watch", Usage: "keep printing new messages while the job is active"},
				cli.DurationFlag{Name: "interval", Value: 30 * time.Second, Usage: "polling interval for --watch"},
			},
			Action: t.executionLog,
		},
		{
			Name:      "list-reports",
			Usage:     "list a job's report files",
			ArgsUsage: "JOB-ID",
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				job, err := t.job(c, 0)
				if err != nil {
					return err
				}
				reports, err := job.Reports(t.ctx)
				if err != nil {
					return err
				}
				urls := make([]string, len(reports))
				for i, report := range reports {
					urls[i] = report.String()
				}
				return t.show(urls, func() {
					for _, report := range reports {
						fmt.Fprintf(t.Out, "%-30s  %s\n", report.Name(), report)
					}
				})
			},
		},
		{
			Name:      "download-all-reports",
			Usage:     "download all of a job's report files",
			ArgsUsage: "JOB-ID",
			Flags:     downloadFlags,
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				job, err := t.job(c, 0)
				if err != nil {
					return err
				}
				reports, err := job.Reports(t.ctx)
				if err != nil {
					return err
				}
				return t.downloadAll(reports, c.String("dir"), c.Bool("overwrite"))
			},
		},
	}
}

func (t *tool) listJobs(c *cli.Context) error {
	var states []restdata.JobState
	for _, state := range c.StringSlice("state") {
		states = append(states, restdata.JobState(state))
	}
	summaries, err := t.cloud.Jobs.List(t.ctx, states...)
	if err != nil {
		return err
	}
	// The list only carries states; names come from the details.
	reps := make([]restdata.Job, 0, len(summaries))
	for _, summary := range summaries {
		job, err := summary.Details(t.ctx)
		if err != nil {
			return err
		}
		reps = append(reps, job.Representation)
	}
	return t.show(reps, func() {
		for _, rep := range reps {
			listLine(t.Out, rep.ID, rep.Name, string(rep.State))
		}
	})
}

func (t *tool) printInput(rep restdata.InputDetails) {
	details(t.Out,
		"Input", rep.URL,
		"Type", string(rep.Type),
		"Source bundle", rep.SourceBundle,
		"Encoding", rep.Encoding,
		"MIME type", rep.MimeTypeOverride,
		"Extensions", rep.FileExtensions,
		"MIME filters", rep.MimeTypes,
	)
}

func (t *tool) listInputs(c *cli.Context) error {
	if err := args(c, 1); err != nil {
		return err
	}
	job, err := t.job(c, 0)
	if err != nil {
		return err
	}
	inputs, err := job.Inputs(t.ctx)
	if err != nil {
		return err
	}
	reps := make([]restdata.InputSummary, len(inputs))
	for i, input := range inputs {
		reps[i] = input.Representation
	}
	return t.show(reps, func() {
		for _, rep := range reps {
			fmt.Fprintf(t.Out, "%-16s  %s\n", rep.Type, rep.URL)
		}
	})
}

func (t *tool) printOutput(rep restdata.Output) {
	details(t.Out,
		"Output", rep.URL,
		"Type", string(rep.Type),
		"Extension", rep.FileExtension,
		"Annotations", rep.AnnotationSelectors,
		"Index", rep.IndexURL,
		"User name", rep.Username,
	)
}

func (t *tool) listOutputs(c *cli.Context) error {
	if err := args(c, 1); err != nil {
		return err
	}
	job, err := t.job(c, 0)
	if err != nil {
		return err
	}
	outputs, err := job.Outputs(t.ctx)
	if err != nil {
		return err
	}
	reps := make([]restdata.Output, len(outputs))
	for i, output := range outputs {
		reps[i] = output.Representation
	}
	return t.show(reps, func() {
		for _, rep := range reps {
			fmt.Fprintf(t.Out, "%-10s  %s\n", rep.Type, rep.URL)
		}
	})
}

func parseTime(c *cli.Context, name string) (*time.Time, error) {
	value := c.String(name)
	if value == "" {
		return nil, nil
	}
	when, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %v", name, err)
	}
	return &when, nil
}

// executionLog prints a job's log.  With --watch it polls until the
// job leaves the ACTIVE state, asking each time only for messages
// newer than the last one printed.
func (t *tool) executionLog(c *cli.Context) error {
	if err := args(c, 1); err != nil {
		return err
	}
	from, err := parseTime(c, "from")
	if err != nil {
		return err
	}
	to, err := parseTime(c, "to")
	if err != nil {
		return err
	}
	job, err := t.job(c, 0)
	if err != nil {
		return err
	}
	watch := c.Bool("watch")
	for {
		// Refresh before fetching so that no message written
		// before the job finished is missed.
		if watch {
			if err = job.Refresh(t.ctx); err != nil {
				return err
			}
		}
		messages, err := job.ExecutionLog(t.ctx, from, to)
		if err != nil {
			return err
		}
		for _, message := range messages {
			if t.json {
				err = restdata.Encode(t.Out, message)
				fmt.Fprintln(t.Out)
			} else {
				_, err = fmt.Fprintf(t.Out, "%s  %s\n", message.Date, message.Message)
			}
			if err != nil {
				return err
			}
		}
		if len(messages) > 0 {
			last := messages[len(messages)-1].Date
			if when, err := time.Parse(time.RFC3339Nano, last); err == nil {
				next := when.Add(time.Nanosecond)
				from = &next
			}
		}
		if !watch || job.State() != restdata.JobActive {
			return nil
		}
		t.log.WithFields(logrus.Fields{
			"job":      job.ID(),
			"messages": len(messages),
		}).Debug("waiting for more log messages")
		select {
		case <-t.Clock.After(c.Duration("interval")):
		case <-t.ctx.Done():
			return t.ctx.Err()
		}
	}
}
