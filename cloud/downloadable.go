// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cloud

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/GateNLP/cloud-client-go/restclient"
	"github.com/satori/go.uuid"
)

// Downloadable is a file the service stores, such as a job report or
// a file in a data bundle.  Its URL redirects to a short-lived
// pre-signed URL for the content.
type Downloadable struct {
	resource
}

func (r *resource) downloadables(urls []string) ([]*Downloadable, error) {
	result := make([]*Downloadable, len(urls))
	for i, u := range urls {
		res, err := r.at(u)
		if err != nil {
			return nil, err
		}
		result[i] = &Downloadable{res}
	}
	return result, nil
}

// String returns the file's permanent URL.
func (d *Downloadable) String() string {
	return d.URL.String()
}

// Name returns the last path component of the file's URL.
func (d *Downloadable) Name() string {
	return path.Base(d.URL.Path)
}

// URLToDownload fetches a fresh time-limited URL for the file.  Use
// it promptly; if it expires, call this again.
func (d *Downloadable) URLToDownload(ctx context.Context) (*url.URL, error) {
	return d.client.GetRedirect(ctx, d.URL.String())
}

// DownloadTo saves the file into dir as name, or as the file's own
// name if name is empty, and returns the path written.  If overwrite
// is false and the file exists, a name like "report(1).txt" is
// chosen instead.  The file only appears once it is complete.
func (d *Downloadable) DownloadTo(ctx context.Context, dir, name string, overwrite bool) (string, error) {
	if name == "" {
		name = d.Name()
	}
	dest := filepath.Join(dir, name)
	if !overwrite {
		dest = UnusedName(dir, name)
	}

	target, err := d.URLToDownload(ctx)
	if err != nil {
		return "", err
	}
	// The storage service does not expect API credentials, and the
	// bytes must be saved exactly as stored.
	body, _, err := d.client.Anonymous().Stream(ctx, &restclient.Request{
		Method:        http.MethodGet,
		Target:        target.String(),
		Header:        http.Header{"Accept": {"*/*"}, "Accept-Encoding": {"identity"}},
		GzipThreshold: restclient.NoCompression,
	})
	if err != nil {
		return "", err
	}
	partial := filepath.Join(dir, fmt.Sprintf(".%s.%s.part", name, uuid.NewV4().String()))
	err = writeFile(partial, body)
	if body != nil {
		err = firstError(err, body.Close())
	}
	if err == nil {
		err = os.Rename(partial, dest)
	}
	if err != nil {
		_ = os.Remove(partial)
		return "", err
	}
	return dest, nil
}

func writeFile(name string, content io.Reader) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if content != nil {
		_, err = io.Copy(f, content)
	}
	return firstError(err, f.Close())
}

// UnusedName returns a path in dir for name that does not exist yet.
// If name is taken, a counter is inserted before the extension,
// treating a trailing ".gz" as part of the extension: "a.json.gz"
// becomes "a(1).json.gz".
func UnusedName(dir, name string) string {
	dest := filepath.Join(dir, name)
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return dest
	}
	base := strings.TrimSuffix(name, ".gz")
	cut := strings.LastIndex(base, ".")
	if cut < 0 {
		cut = len(base)
	}
	stem, ext := name[:cut], name[cut:]
	for i := 1; ; i++ {
		dest = filepath.Join(dir, fmt.Sprintf("%s(%d)%s", stem, i, ext))
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			return dest
		}
	}
}

func firstError(e1, e2 error) error {
	if e1 != nil {
		return e1
	}
	return e2
}
