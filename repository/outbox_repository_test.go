package repository

import (
	"context"
	"testing"

	"github.com/PremHer/appdelivery-sub000/internal/testutil"
)

func TestOutboxEnqueueAndProcess(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "outbox")
	ctx := context.Background()
	repo := NewOutboxRepository(d)

	task, err := repo.Enqueue(ctx, "order-events", []byte(`{"event":"confirm"}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	tasks, err := repo.GetProcessable(ctx, 10, 3)
	if err != nil {
		t.Fatalf("get processable: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Fatalf("processable = %+v", tasks)
	}

	if err := repo.UpdateStatus(ctx, task.ID, TaskStatusDone, 0, nil, true); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	tasks, _ = repo.GetProcessable(ctx, 10, 3)
	if len(tasks) != 0 {
		t.Fatalf("done task still processable")
	}
}

func TestOutboxRetriesUntilAttemptCap(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "outbox_retries")
	ctx := context.Background()
	repo := NewOutboxRepository(d)

	task, err := repo.Enqueue(ctx, "order-events", []byte(`{}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	msg := "broker unreachable"
	if err := repo.UpdateStatus(ctx, task.ID, TaskStatusFailed, 1, &msg, false); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	tasks, _ := repo.GetProcessable(ctx, 10, 3)
	if len(tasks) != 1 {
		t.Fatalf("failed task below cap should be retried")
	}
	if err := repo.UpdateStatus(ctx, task.ID, TaskStatusFailed, 3, &msg, false); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	tasks, _ = repo.GetProcessable(ctx, 10, 3)
	if len(tasks) != 0 {
		t.Fatalf("failed task at cap should not be retried")
	}
}
