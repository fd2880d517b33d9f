package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kardex-api/internal/application/scheduler"
	"github.com/jhoicas/kardex-api/pkg/logger"
)

type fixedSites struct {
	ids []int64
	err error
}

func (f fixedSites) ListIDs(context.Context) ([]int64, error) { return f.ids, f.err }

type recordingJob struct {
	mu    sync.Mutex
	calls []int64
	fail  map[int64]bool
}

func (j *recordingJob) OnTick(_ context.Context, siteID int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, siteID)
	if j.fail[siteID] {
		return errors.New("fallo simulado")
	}
	return nil
}

func (j *recordingJob) snapshot() []int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]int64(nil), j.calls...)
}

func TestRunOnce_RecorreTodasLasSedesAunqueUnaFalle(t *testing.T) {
	job := &recordingJob{fail: map[int64]bool{2: true}}
	s := scheduler.New("test", job, fixedSites{ids: []int64{1, 2, 3}}, time.Hour, logger.Nop())

	failed := s.RunOnce(context.Background())

	assert.Equal(t, 1, failed)
	assert.Equal(t, []int64{1, 2, 3}, job.snapshot())
}

func TestRunOnce_ErrorAlListarSedesNoEjecutaJob(t *testing.T) {
	job := &recordingJob{}
	s := scheduler.New("test", job, fixedSites{err: errors.New("bd caída")}, time.Hour, logger.Nop())

	assert.Equal(t, 0, s.RunOnce(context.Background()))
	assert.Empty(t, job.snapshot())
}

func TestStart_EjecutaCicloInicialYSeDetiene(t *testing.T) {
	job := &recordingJob{}
	s := scheduler.New("test", job, fixedSites{ids: []int64{7}}, time.Hour, logger.Nop())

	s.Start(context.Background())
	require.Eventually(t, func() bool { return len(job.snapshot()) >= 1 }, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Equal(t, int64(7), job.snapshot()[0])
}

func TestJobFunc_AdaptaFuncion(t *testing.T) {
	var got int64
	var job scheduler.Job = scheduler.JobFunc(func(_ context.Context, siteID int64) error {
		got = siteID
		return nil
	})

	require.NoError(t, job.OnTick(context.Background(), 42))
	assert.Equal(t, int64(42), got)
}
