package services

import (
	"context"
	"sync"

	"github.com/ranchforce/agriwebb-sync/pkg/services/workqueue"
)

// syncTask adapts one job to the work queue. The task fails when the job
// does, and its snapshot carries the JobResult and the enqueuing user.
type syncTask struct {
	workqueue.BaseTask
	job func(ctx context.Context) *JobResult

	mu     sync.Mutex
	result *JobResult
}

var (
	_ workqueue.Task           = (*syncTask)(nil)
	_ workqueue.ResultReporter = (*syncTask)(nil)
)

// NewSyncAnimalsTask wraps SyncAnimalsPage.
func NewSyncAnimalsTask(svc SyncService, params SyncParams, owner string) workqueue.Task {
	return newSyncTask(JobSyncAnimals, owner, func(ctx context.Context) *JobResult {
		return svc.SyncAnimalsPage(ctx, params)
	})
}

// NewExportAnimalsTask wraps ExportAnimalsPage.
func NewExportAnimalsTask(svc SyncService, params SyncParams, owner string) workqueue.Task {
	return newSyncTask(JobExportAnimals, owner, func(ctx context.Context) *JobResult {
		return svc.ExportAnimalsPage(ctx, params)
	})
}

// NewSyncFarmsTask wraps SyncFarms.
func NewSyncFarmsTask(svc SyncService, params FarmSyncParams, owner string) workqueue.Task {
	return newSyncTask(JobSyncFarms, owner, func(ctx context.Context) *JobResult {
		return svc.SyncFarms(ctx, params)
	})
}

func newSyncTask(name, owner string, job func(ctx context.Context) *JobResult) *syncTask {
	return &syncTask{
		BaseTask: workqueue.NewOwnedBaseTask(name, owner),
		job:      job,
	}
}

func (t *syncTask) Execute(ctx context.Context) error {
	res := t.job(ctx)

	t.mu.Lock()
	t.result = res
	t.mu.Unlock()

	if !res.Failed() {
		return nil
	}
	// Report shutdown as cancellation rather than a job failure.
	if err := ctx.Err(); err != nil {
		return err
	}
	return res.Error
}

func (t *syncTask) Result() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result == nil {
		return nil
	}
	return t.result
}
