package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestProber_Check(t *testing.T) {
	var fail bool
	p, err := NewProber(pingFunc(func(ctx context.Context) error {
		if fail {
			return errors.New("connection refused")
		}
		return nil
	}), "@every 1h", time.Second, quietLogger())
	require.NoError(t, err)

	assert.True(t, p.Status().CheckedAt.IsZero())
	assert.Equal(t, StateUnknown, p.Status().State)

	st := p.Check(context.Background())
	assert.True(t, st.Reachable)
	assert.Equal(t, StateUp, st.State)
	assert.Equal(t, st, p.Status())

	fail = true
	st = p.Check(context.Background())
	assert.False(t, st.Reachable)
	assert.Equal(t, StateDown, st.State)
	assert.Equal(t, "connection refused", p.Status().Error)
}

func TestProber_CheckAppliesTimeout(t *testing.T) {
	p, err := NewProber(pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), "@every 1h", 20*time.Millisecond, quietLogger())
	require.NoError(t, err)

	st := p.Check(context.Background())
	assert.False(t, st.Reachable)
	assert.Contains(t, st.Error, "deadline exceeded")
}

func TestNewProber_InvalidSchedule(t *testing.T) {
	_, err := NewProber(pingFunc(func(ctx context.Context) error { return nil }), "not a schedule", time.Second, quietLogger())
	assert.Error(t, err)
}

func TestProber_StartStop(t *testing.T) {
	calls := make(chan struct{}, 10)
	p, err := NewProber(pingFunc(func(ctx context.Context) error {
		calls <- struct{}{}
		return nil
	}), "@every 1h", time.Second, quietLogger())
	require.NoError(t, err)

	p.Start(context.Background())
	p.Stop()

	assert.Len(t, calls, 1)
	assert.True(t, p.Status().Reachable)
}

func TestProber_StartDoesNotWaitForFirstCheck(t *testing.T) {
	release := make(chan struct{})
	p, err := NewProber(pingFunc(func(ctx context.Context) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}), "@every 1h", 5*time.Second, quietLogger())
	require.NoError(t, err)

	start := time.Now()
	p.Start(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StateUnknown, p.Status().State)
	assert.False(t, p.Status().Reachable)

	close(release)
	p.Stop()

	assert.Equal(t, StateUp, p.Status().State)
	assert.True(t, p.Status().Reachable)
}
