package cron

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

func newTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
}

type fakeLock struct {
	available bool
	acquired  int
	released  int
}

func (l *fakeLock) Acquire(context.Context) (bool, error) {
	l.acquired++
	return l.available, nil
}

func (l *fakeLock) Release(context.Context) error {
	l.released++
	return nil
}

type recordingJob struct {
	name string
	runs int
	err  error
}

func (j *recordingJob) Name() string { return j.name }

func (j *recordingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func TestRegistrySkipsNilJobs(t *testing.T) {
	registry := NewRegistry(nil, &recordingJob{name: "a"})
	registry.Register(nil)
	registry.Register(&recordingJob{name: "b"})
	require.Len(t, registry.Jobs(), 2)
}

func TestRunCycleRunsAllJobs(t *testing.T) {
	lock := &fakeLock{available: true}
	jobA := &recordingJob{name: "a"}
	jobB := &recordingJob{name: "b", err: pkgerrors.New(pkgerrors.CodeDependency, "boom")}
	jobC := &recordingJob{name: "c"}

	service, err := NewService(ServiceParams{
		Logger:   newTestLogger(),
		Registry: NewRegistry(jobA, jobB, jobC),
		Lock:     lock,
	})
	require.NoError(t, err)

	service.runCycle(context.Background())

	// a failing job never stops the rest of the cycle
	assert.Equal(t, 1, jobA.runs)
	assert.Equal(t, 1, jobB.runs)
	assert.Equal(t, 1, jobC.runs)
	assert.Equal(t, 1, lock.released)
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	lock := &fakeLock{available: false}
	job := &recordingJob{name: "a"}

	service, err := NewService(ServiceParams{
		Logger:   newTestLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	require.NoError(t, err)

	service.runCycle(context.Background())

	assert.Zero(t, job.runs)
	assert.Zero(t, lock.released)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	lock := &fakeLock{available: true}
	service, err := NewService(ServiceParams{
		Logger:   newTestLogger(),
		Lock:     lock,
		Interval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
}
