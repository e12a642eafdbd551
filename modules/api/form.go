package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/task-tracker/modules/tasks"
)

// parseTaskRequest normalizes a task create/update body into one input
// shape regardless of encoding. Multipart requests may carry files; JSON
// requests never do. A field is applied only when it appears in the body,
// which is what makes partial updates work.
func parseTaskRequest(c *fiber.Ctx) (tasks.Input, []tasks.UploadedFile, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return parseMultipart(c)
	}

	var in tasks.Input
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return tasks.Input{}, nil, fmt.Errorf("invalid request body: %w", err)
		}
	}
	return in, nil, nil
}

func parseMultipart(c *fiber.Ctx) (tasks.Input, []tasks.UploadedFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return tasks.Input{}, nil, fmt.Errorf("invalid multipart body: %w", err)
	}

	var in tasks.Input
	in.Title = formValue(form, "title")
	in.Description = formValue(form, "description")
	in.Status = formValue(form, "status")
	in.DueDate = formValue(form, "due_date")

	headers := form.File["files"]
	uploads := make([]tasks.UploadedFile, 0, len(headers))
	for _, header := range headers {
		// Reject oversized files before buffering anything.
		if header.Size > tasks.MaxFileSize {
			return tasks.Input{}, nil, tasks.ErrFileTooLarge
		}
	}
	for _, header := range headers {
		data, err := readFileHeader(header)
		if err != nil {
			return tasks.Input{}, nil, err
		}
		uploads = append(uploads, tasks.UploadedFile{
			Name: header.Filename,
			Mime: header.Header.Get("Content-Type"),
			Data: data,
		})
	}
	return in, uploads, nil
}

// formValue reports a field as present-and-set or absent. An empty value
// that was sent is still present; that is how a due date gets cleared.
func formValue(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func readFileHeader(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file %q: %w", header.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file %q: %w", header.Filename, err)
	}
	return data, nil
}
