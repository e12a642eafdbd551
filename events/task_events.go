package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/task-tracker/domain/task"
)

// TaskCreatedEvent is emitted after a task has been persisted. It carries
// the full task view so subscribers see exactly what a REST read returns.
type TaskCreatedEvent struct {
	OwnerID string    `json:"owner_id"`
	Task    task.View `json:"task"`
}

// TaskCreatedV1 is the typed event definition for task creation.
var TaskCreatedV1 = helper.EventDefinition[TaskCreatedEvent](
	"tasks", "TaskCreated", "v1",
)

// TaskUpdatedEvent is emitted after any mutation of an existing task,
// including attachment additions and removals.
type TaskUpdatedEvent struct {
	OwnerID string    `json:"owner_id"`
	Task    task.View `json:"task"`
}

// TaskUpdatedV1 is the typed event definition for task updates.
var TaskUpdatedV1 = helper.EventDefinition[TaskUpdatedEvent](
	"tasks", "TaskUpdated", "v1",
)

// TaskDeletedEvent is emitted after a task and its attachments have been
// removed.
type TaskDeletedEvent struct {
	OwnerID   string    `json:"owner_id"`
	TaskID    string    `json:"task_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// TaskDeletedV1 is the typed event definition for task deletion.
var TaskDeletedV1 = helper.EventDefinition[TaskDeletedEvent](
	"tasks", "TaskDeleted", "v1",
)
