package tasks

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/task-tracker/domain/task"
)

// Repository provides owner-scoped access to task and attachment rows.
// Every task query filters on owner_id; attachments are only ever
// resolved through a join on the owning task.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListByOwner returns the owner's tasks, optionally narrowed to one
// status. Tasks with a due date sort chronologically first; tasks
// without one sort last.
func (r *Repository) ListByOwner(ownerID, status string) ([]*task.Task, error) {
	q := r.db.Where("owner_id = ?", ownerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var rows []*task.Task
	if err := q.Order("due_date IS NULL, due_date ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return rows, nil
}

// FindByOwner retrieves one task scoped to its owner. A task belonging
// to another owner is indistinguishable from a missing one.
func (r *Repository) FindByOwner(ownerID, id string) (*task.Task, error) {
	var row task.Task
	err := r.db.First(&row, "id = ? AND owner_id = ?", id, ownerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &row, nil
}

// Create inserts a new task row.
func (r *Repository) Create(t *task.Task) error {
	if err := r.db.Create(t).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Save persists all fields of an existing task row.
func (r *Repository) Save(t *task.Task) error {
	if err := r.db.Save(t).Error; err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// DeleteWithAttachments removes a task row and all its attachment rows
// in one transaction.
func (r *Repository) DeleteWithAttachments(taskID string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&task.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", taskID).Delete(&task.Task{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// AttachmentsForTask returns the attachment rows of a single task.
func (r *Repository) AttachmentsForTask(taskID string) ([]*task.Attachment, error) {
	var rows []*task.Attachment
	if err := r.db.Where("task_id = ?", taskID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return rows, nil
}

// AttachmentsForTasks returns attachment rows for a set of tasks,
// grouped by task id.
func (r *Repository) AttachmentsForTasks(taskIDs []string) (map[string][]*task.Attachment, error) {
	grouped := make(map[string][]*task.Attachment, len(taskIDs))
	if len(taskIDs) == 0 {
		return grouped, nil
	}

	var rows []*task.Attachment
	if err := r.db.Where("task_id IN ?", taskIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	for _, a := range rows {
		grouped[a.TaskID] = append(grouped[a.TaskID], a)
	}
	return grouped, nil
}

// CreateAttachments inserts a batch of attachment rows.
func (r *Repository) CreateAttachments(rows []*task.Attachment) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.Create(rows).Error; err != nil {
		return fmt.Errorf("failed to create attachments: %w", err)
	}
	return nil
}

// FindAttachmentByOwner resolves an attachment through its owning task.
// The join on tasks.owner_id is the authorization invariant: a bare
// attachment id is never trusted on its own.
func (r *Repository) FindAttachmentByOwner(ownerID, attachmentID string) (*task.Attachment, error) {
	var row task.Attachment
	err := r.db.
		Joins("JOIN tasks ON tasks.id = attachments.task_id").
		Where("attachments.id = ? AND tasks.owner_id = ?", attachmentID, ownerID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find attachment: %w", err)
	}
	return &row, nil
}

// DeleteAttachment removes a single attachment row.
func (r *Repository) DeleteAttachment(attachmentID string) error {
	if err := r.db.Where("id = ?", attachmentID).Delete(&task.Attachment{}).Error; err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}
