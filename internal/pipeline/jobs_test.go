package pipeline

import (
	"testing"
	"time"

	"github.com/guppie70/sectioner/internal/align"
)

func TestJob_StatusTransitions(t *testing.T) {
	job := &Job{ID: "j1", Status: StatusQueued}
	job.SetStatus(StatusConverting, "converting")
	snap := job.Snapshot()
	if snap.Status != StatusConverting || snap.Phase != "converting" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if job.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to advance")
	}
}

func TestJob_SnapshotCopiesResult(t *testing.T) {
	job := &Job{ID: "j1"}
	job.SetResult(&align.Result{Succeeded: 3})
	snap := job.Snapshot()
	if snap.Result == nil || snap.Result.Succeeded != 3 {
		t.Fatalf("result missing from snapshot: %+v", snap)
	}
	snap.Result.Succeeded = 99
	if job.Snapshot().Result.Succeeded != 3 {
		t.Error("snapshot must not alias the job's result")
	}
}

func TestJob_SnapshotErrorsNeverNil(t *testing.T) {
	job := &Job{ID: "j1"}
	if job.Snapshot().Errors == nil {
		t.Error("errors must serialize as an empty list, not null")
	}
	job.AddError("boom")
	if got := job.Snapshot().Errors; len(got) != 1 || got[0] != "boom" {
		t.Errorf("unexpected errors: %v", got)
	}
}

func TestJob_CancelQueuedJobFinishesImmediately(t *testing.T) {
	job := &Job{ID: "j1", Status: StatusQueued}
	if !job.Cancel() {
		t.Fatal("expected queued job to be cancellable")
	}
	if got := job.Snapshot().Status; got != StatusCancelled {
		t.Errorf("expected cancelled, got %s", got)
	}
}

func TestJob_CancelRunningJobInvokesCancelFunc(t *testing.T) {
	job := &Job{ID: "j1", Status: StatusSplitting}
	fired := false
	job.SetCancel(func() { fired = true })
	if !job.Cancel() {
		t.Fatal("expected running job to be cancellable")
	}
	if !fired {
		t.Error("expected the job's cancel func to fire")
	}
	// The worker, not Cancel, moves a running job to its final status.
	if got := job.Snapshot().Status; got != StatusSplitting {
		t.Errorf("running job must stay in-flight until the worker stops: %s", got)
	}
}

func TestJob_CancelFinishedJobRefused(t *testing.T) {
	for _, status := range []JobStatus{StatusCompleted, StatusPartial, StatusFailed, StatusCancelled} {
		job := &Job{ID: "j1", Status: status}
		if job.Cancel() {
			t.Errorf("%s job must not be cancellable", status)
		}
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Minute)
	job := &Job{ID: "j1"}
	store.Put(job)
	if store.Get("j1") != job {
		t.Error("expected the stored job back")
	}
	if store.Get("missing") != nil {
		t.Error("expected nil for unknown id")
	}
}

func TestJobStore_CleanupEvictsExpired(t *testing.T) {
	store := NewJobStore(time.Minute)
	fresh := &Job{ID: "fresh", UpdatedAt: time.Now()}
	stale := &Job{ID: "stale", UpdatedAt: time.Now().Add(-time.Hour)}
	store.Put(fresh)
	store.Put(stale)

	store.Cleanup()
	if store.Get("stale") != nil {
		t.Error("expected the stale job evicted")
	}
	if store.Get("fresh") == nil {
		t.Error("fresh job must survive cleanup")
	}
}
