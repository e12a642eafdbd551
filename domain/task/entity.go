package task

import "time"

// Status represents the state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Valid reports whether s is one of the known task statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task is the core domain entity. OwnerID is set at creation and never
// reassigned; every query against tasks filters on it.
type Task struct {
	ID          string  `gorm:"primaryKey;type:text"`
	OwnerID     string  `gorm:"index;not null;type:text"`
	Title       string  `gorm:"not null;type:text"`
	Description string  `gorm:"type:text"`
	Status      Status  `gorm:"not null;default:pending;type:text"`
	DueDate     *string `gorm:"type:text"` // calendar date YYYY-MM-DD, nullable
	CreatedAt   time.Time
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// Attachment is a file uploaded against a task. StoredName is the
// generated blob name on disk; OriginalName is whatever the client sent.
type Attachment struct {
	ID           string `gorm:"primaryKey;type:text"`
	TaskID       string `gorm:"index;not null;type:text"`
	StoredName   string `gorm:"not null;type:text"`
	OriginalName string `gorm:"type:text"`
	Mime         string `gorm:"type:text"`
}

// TableName returns the table name for the Attachment entity.
func (Attachment) TableName() string {
	return "attachments"
}

// FileView is the wire shape of an attachment, shared by both the REST
// and WebSocket surfaces.
type FileView struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name"`
	Mime string `json:"mime"`
}

// View is the wire shape of a task with its attachments, shared by both
// surfaces so that the two transports cannot drift apart.
type View struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	DueDate     *string    `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	Files       []FileView `json:"files"`
}
