// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/GateNLP/cloud-client-go/restclient"
	"github.com/GateNLP/cloud-client-go/restdata"
	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "too lon...", truncate("too long by far", 10))
	assert.Equal(t, "héhéh...", truncate("héhéhéhéhé", 8))
}

func TestListLine(t *testing.T) {
	var buf bytes.Buffer
	listLine(&buf, 42, "short", "ACTIVE")
	assert.Equal(t, "    42  short"+strings.Repeat(" ", 35)+"  ACTIVE\n", buf.String())

	buf.Reset()
	listLine(&buf, 7, strings.Repeat("n", 50), "READY")
	assert.Equal(t, "     7  "+strings.Repeat("n", 37)+"...  READY\n", buf.String())
}

func TestFormatPrices(t *testing.T) {
	assert.Equal(t, "free", formatPrices(nil))
	assert.Equal(t, "free", formatPrices(&restdata.Prices{}))
	assert.Equal(t, "£0.50 per hour", formatPrices(&restdata.Prices{Hour: 0.5}))
	assert.Equal(t, "£0.50 per hour, and £0.02 per MiB",
		formatPrices(&restdata.Prices{Hour: 0.5, MiB: 0.02}))
	assert.Equal(t, "£1.00 setup, plus £0.50 per hour, and £0.02 per MiB",
		formatPrices(&restdata.Prices{Setup: 1, Hour: 0.5, MiB: 0.02}))
}

func TestFormatMs(t *testing.T) {
	assert.Equal(t, "0:00:00:00.000", formatMs(0))
	assert.Equal(t, "0:00:01:05.250", formatMs(65250))
	assert.Equal(t, "1:01:01:01.001", formatMs(90061001))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "3.0 MiB", formatBytes(3<<20))
	assert.Equal(t, "2.5 GiB", formatBytes(5<<29))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "0%", percent(0))
	assert.Equal(t, "43%", percent(0.427))
	assert.Equal(t, "100%", percent(1))
}

func TestDetails(t *testing.T) {
	var buf bytes.Buffer
	details(&buf, "Name", "job", "Empty", "", "Longer label", "x")
	assert.Equal(t, "Name:          job\nLonger label:  x\n", buf.String())
}

func TestExitError(t *testing.T) {
	plain := exitError(errors.New("boom"))
	assert.Equal(t, "boom", plain.Error())
	assert.Equal(t, 1, plain.ExitCode())

	notFound := exitError(&restclient.Error{
		Message:    "server returned response code 404",
		StatusCode: 404,
		Response:   map[string]interface{}{"message": "no such job"},
	})
	assert.Equal(t, "server returned response code 404\nServer message: no such job", notFound.Error())

	payment := exitError(&restclient.Error{
		Message:    "server returned response code 402",
		StatusCode: 402,
	})
	assert.Contains(t, payment.Error(), "--allow-payment")
	assert.Contains(t, payment.Error(), "GATE_CLOUD_PAYMENT_ALLOWED=true")
}
