package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSweeper) ApplyDecayAll(ctx context.Context) (int, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("missing deadline")
	}
	return 2, f.err
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New(Config{CronSpec: "every tuesday"}, &fakeSweeper{})
	assert.Error(t, err)
}

func TestSweepCallsSweeper(t *testing.T) {
	sweeper := &fakeSweeper{}
	s, err := New(Config{Enabled: true, CronSpec: "0 3 * * *", Timeout: time.Second}, sweeper)
	require.NoError(t, err)

	s.Sweep()
	sweeper.err = errors.New("boom")
	s.Sweep()
	assert.Equal(t, int32(2), sweeper.calls.Load())
}

func TestStartStop(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		s, err := New(Config{Enabled: enabled, CronSpec: "@every 1h"}, &fakeSweeper{})
		require.NoError(t, err)
		s.Start()
		s.Stop()
		assert.Equal(t, enabled, s.Config().Enabled)
	}
}
