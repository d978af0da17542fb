// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cloud_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/GateNLP/cloud-client-go/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnusedName(t *testing.T) {
	dir, err := ioutil.TempDir("", "unused")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	touch := func(name string) {
		require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	assert.Equal(t, filepath.Join(dir, "a.json"), cloud.UnusedName(dir, "a.json"))

	touch("a.json")
	assert.Equal(t, filepath.Join(dir, "a(1).json"), cloud.UnusedName(dir, "a.json"))
	touch("a(1).json")
	assert.Equal(t, filepath.Join(dir, "a(2).json"), cloud.UnusedName(dir, "a.json"))

	touch("b.json.gz")
	assert.Equal(t, filepath.Join(dir, "b(1).json.gz"), cloud.UnusedName(dir, "b.json.gz"))

	touch("c.gz")
	assert.Equal(t, filepath.Join(dir, "c(1).gz"), cloud.UnusedName(dir, "c.gz"))

	touch("README")
	assert.Equal(t, filepath.Join(dir, "README(1)"), cloud.UnusedName(dir, "README"))
}
