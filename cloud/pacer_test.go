// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cloud_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GateNLP/cloud-client-go/cloud"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func newMockPacer(d time.Duration) (*cloud.Pacer, *clock.Mock) {
	mock := clock.NewMock()
	pacer := cloud.NewPacer(d)
	pacer.Clock = mock
	return pacer, mock
}

// pace runs a call through the pacer, advancing the mock clock until
// it completes, and returns the mock time at which the call ran.
func pace(t *testing.T, pacer *cloud.Pacer, mock *clock.Mock) time.Time {
	var ran time.Time
	done := make(chan error)
	go func() {
		done <- pacer.Do(context.Background(), func() error {
			ran = mock.Now()
			return nil
		})
	}()
	for {
		select {
		case err := <-done:
			assert.NoError(t, err)
			return ran
		case <-time.After(time.Millisecond):
			mock.Add(50 * time.Millisecond)
		}
	}
}

// immediate runs a call that should not wait, without advancing the
// clock.
func immediate(t *testing.T, pacer *cloud.Pacer, mock *clock.Mock) time.Time {
	var ran time.Time
	assert.NoError(t, pacer.Do(context.Background(), func() error {
		ran = mock.Now()
		return nil
	}))
	return ran
}

func TestPacerFirstCallImmediate(t *testing.T) {
	pacer, mock := newMockPacer(cloud.DefaultMinDelay)
	start := mock.Now()
	assert.Equal(t, start, immediate(t, pacer, mock))
}

func TestPacerSpacing(t *testing.T) {
	pacer, mock := newMockPacer(cloud.DefaultMinDelay)
	first := pace(t, pacer, mock)
	second := pace(t, pacer, mock)
	third := pace(t, pacer, mock)
	assert.True(t, second.Sub(first) >= cloud.DefaultMinDelay, "gap %v", second.Sub(first))
	assert.True(t, third.Sub(second) >= cloud.DefaultMinDelay, "gap %v", third.Sub(second))
}

func TestPacerNoWaitAfterGap(t *testing.T) {
	pacer, mock := newMockPacer(time.Second)
	pace(t, pacer, mock)
	mock.Add(2 * time.Second)
	before := mock.Now()
	assert.Equal(t, before, immediate(t, pacer, mock))
}

func TestPacerError(t *testing.T) {
	pacer, _ := newMockPacer(time.Second)
	boom := errors.New("boom")
	assert.Equal(t, boom, pacer.Do(context.Background(), func() error { return boom }))
}

func TestPacerCancelled(t *testing.T) {
	pacer, mock := newMockPacer(time.Second)
	pace(t, pacer, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := pacer.Do(ctx, func() error {
		called = true
		return nil
	})
	assert.Equal(t, context.Canceled, err)
	assert.False(t, called)
}

func TestPacerZeroValue(t *testing.T) {
	pacer := &cloud.Pacer{MinDelay: 5 * time.Millisecond}
	calls := 0
	for i := 0; i < 2; i++ {
		assert.NoError(t, pacer.Do(context.Background(), func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}
