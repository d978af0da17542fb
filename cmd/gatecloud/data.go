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

var downloadFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "dir",
		Value: ".",
		Usage: "directory to save files in",
	},
	cli.BoolFlag{
		Name:  "overwrite",
		Usage: "replace existing files instead of choosing new names",
	},
}

var bundleSpecFlags = []cli.Flag{
	cli.StringFlag{Name: "name", Usage: "name of the new bundle"},
	cli.StringFlag{
		Name:  "type",
		Value: string(restdata.InputZIP),
		Usage: "archive format: ZIP, TAR, ARC, or WARC",
	},
	cli.StringFlag{Name: "encoding", Usage: "character encoding of entries that declare none"},
	cli.StringFlag{Name: "mime-type", Usage: "parse every entry as this MIME type"},
	cli.StringFlag{Name: "extensions", Usage: "comma-separated entry extensions to process (not ARC/WARC)"},
	cli.StringFlag{Name: "mime-types", Usage: "comma-separated MIME types to process (ARC/WARC only)"},
}

func bundleSpec(c *cli.Context) cloud.BundleSpec {
	return cloud.BundleSpec{
		Name:             c.String("name"),
		Type:             restdata.InputType(c.String("type")),
		Encoding:         c.String("encoding"),
		MimeTypeOverride: c.String("mime-type"),
		FileExtensions:   c.String("extensions"),
		MimeTypeFilters:  c.String("mime-types"),
	}
}

func (t *tool) bundle(c *cli.Context, i int) (*cloud.DataBundle, error) {
	id, err := argID(c, i)
	if err != nil {
		return nil, err
	}
	return t.cloud.Data.Get(t.ctx, id)
}

func (t *tool) printBundle(rep restdata.DataBundle) {
	details(t.Out,
		"Bundle ID", strconv.FormatInt(rep.ID, 10),
		"Name", rep.Name,
		"Type", string(rep.Type),
		"Closed", strconv.FormatBool(rep.Closed),
		"Downloadable", strconv.FormatBool(rep.Downloadable),
		"Created", rep.DateCreated,
		"Size", formatBytes(rep.TotalSize),
		"Monthly price", fmt.Sprintf("£%.2f", rep.MonthlyPrice),
		"Encoding", rep.Encoding,
		"MIME type", rep.MimeTypeOverride,
		"Extensions", rep.FileExtensions,
		"MIME filters", rep.MimeTypeFilters,
	)
	for _, file := range rep.Files {
		fmt.Fprintf(t.Out, "  %s\n", file)
	}
}

// downloadAll saves files into dir, reporting progress as it goes.
func (t *tool) downloadAll(files []*cloud.Downloadable, dir string, overwrite bool) error {
	for i, file := range files {
		path, err := file.DownloadTo(t.ctx, dir, "", overwrite)
		if err != nil {
			return err
		}
		fmt.Fprintf(t.Out, "[%d/%d] %s -> %s\n", i+1, len(files), file.Name(), path)
	}
	return nil
}

func (t *tool) dataCommands() []cli.Command {
	return []cli.Command{
		{
			Name:  "list-bundles",
			Usage: "list data bundles",
			Action: func(c *cli.Context) error {
				summaries, err := t.cloud.Data.List(t.ctx)
				if err != nil {
					return err
				}
				reps := make([]restdata.DataBundleSummary, len(summaries))
				for i, summary := range summaries {
					reps[i] = summary.Representation
				}
				return t.show(reps, func() {
					for _, rep := range reps {
						status := "open"
						if rep.Closed {
							status = "closed"
						}
						listLine(t.Out, rep.ID, rep.Name, status)
					}
				})
			},
		},
		{
			Name:      "bundle-details",
			Usage:     "show one data bundle",
			ArgsUsage: "BUNDLE-ID",
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				bundle, err := t.bundle(c, 0)
				if err != nil {
					return err
				}
				return t.show(bundle.Representation, func() { t.printBundle(bundle.Representation) })
			},
		},
		{
			Name:      "upload-bundle",
			Usage:     "create a data bundle from local files",
			ArgsUsage: "FILE...",
			Flags:     bundleSpecFlags,
			Action: func(c *cli.Context) error {
				if err := minArgs(c, 1); err != nil {
					return err
				}
				bundle, err := t.cloud.Data.UploadBundle(t.ctx, bundleSpec(c), c.Args()...)
				if err != nil {
					return err
				}
				return t.show(bundle.Representation, func() { t.printBundle(bundle.Representation) })
			},
		},
		{
			Name:      "create-s3-bundle",
			Usage:     "create a data bundle from files stored in S3",
			ArgsUsage: "S3-URL...",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "access-key", Usage: "AWS access key, if the files are private"},
				cli.StringFlag{Name: "secret-key", Usage: "AWS secret key, if the files are private"},
			}, bundleSpecFlags...),
			Action: func(c *cli.Context) error {
				if err := minArgs(c, 1); err != nil {
					return err
				}
				bundle, err := t.cloud.Data.CreateS3Bundle(t.ctx, bundleSpec(c),
					c.String("access-key"), c.String("secret-key"), c.Args()...)
				if err != nil {
					return err
				}
				return t.show(bundle.Representation, func() { t.printBundle(bundle.Representation) })
			},
		},
		{
			Name:      "download-bundle",
			Usage:     "download all of a data bundle's files",
			ArgsUsage: "BUNDLE-ID",
			Flags:     downloadFlags,
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				bundle, err := t.bundle(c, 0)
				if err != nil {
					return err
				}
				files, err := bundle.Files()
				if err != nil {
					return err
				}
				return t.downloadAll(files, c.String("dir"), c.Bool("overwrite"))
			},
		},
		{
			Name:      "delete-bundle",
			Usage:     "delete a data bundle and its files",
			ArgsUsage: "BUNDLE-ID",
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				bundle, err := t.bundle(c, 0)
				if err != nil {
					return err
				}
				if err = bundle.Delete(t.ctx); err != nil {
					return err
				}
				fmt.Fprintf(t.Out, "Deleted bundle %d\n", bundle.ID())
				return nil
			},
		},
		{
			Name:      "download",
			Usage:     "download a single report or bundle file",
			ArgsUsage: "URL",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "name", Usage: "save as this file name"},
			}, downloadFlags...),
			Action: func(c *cli.Context) error {
				if err := args(c, 1); err != nil {
					return err
				}
				file, err := t.cloud.Data.Downloadable(c.Args().First())
				if err != nil {
					return err
				}
				path, err := file.DownloadTo(t.ctx, c.String("dir"), c.String("name"), c.Bool("overwrite"))
				if err != nil {
					return err
				}
				fmt.Fprintf(t.Out, "[1/1] %s -> %s\n", file.Name(), path)
				return nil
			},
		},
	}
}
