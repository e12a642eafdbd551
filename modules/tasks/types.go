package tasks

// MaxFileSize is the per-file ceiling for uploaded attachments (5 MiB).
const MaxFileSize = 5 * 1024 * 1024

// dueDateLayout is the accepted calendar date format for due dates.
const dueDateLayout = "2006-01-02"

// Input carries the task fields of one request, normalized once at the
// protocol boundary regardless of multipart or JSON origin. A nil field
// was absent from the request and leaves the stored value untouched; for
// DueDate a pointer to the empty string clears the date.
type Input struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	DueDate     *string `json:"due_date"`
}

// UploadedFile is one file from a multipart request, already read into
// memory.
type UploadedFile struct {
	Name string
	Mime string
	Data []byte
}
