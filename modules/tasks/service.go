package tasks

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-monolith/mono"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/example/task-tracker/domain/task"
	"github.com/example/task-tracker/events"
	"github.com/example/task-tracker/modules/files"
)

// BlobURLPrefix is the public path under which attachment blobs are
// served. Locators built with it stay valid for the life of the blob.
const BlobURLPrefix = "/uploads/"

// Service implements the owner-scoped task and attachment operations
// shared by both the HTTP and WebSocket routers. After every successful
// mutation it publishes a task event carrying the full task view, which
// is how live subscribers converge on the new state.
type Service struct {
	repo  *Repository
	blobs files.BlobStore
	bus   mono.EventBus
}

// NewService creates a new task service.
func NewService(repo *Repository, blobs files.BlobStore, bus mono.EventBus) *Service {
	return &Service{
		repo:  repo,
		blobs: blobs,
		bus:   bus,
	}
}

// List returns all of the owner's tasks, optionally filtered by status,
// with due-dated tasks first in chronological order.
func (s *Service) List(_ context.Context, ownerID, status string) ([]*task.View, error) {
	rows, err := s.repo.ListByOwner(ownerID, status)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(rows))
	for i, t := range rows {
		ids[i] = t.ID
	}
	grouped, err := s.repo.AttachmentsForTasks(ids)
	if err != nil {
		return nil, err
	}

	views := make([]*task.View, 0, len(rows))
	for _, t := range rows {
		views = append(views, buildView(t, grouped[t.ID]))
	}
	return views, nil
}

// Get returns one task scoped to its owner.
func (s *Service) Get(_ context.Context, ownerID, id string) (*task.View, error) {
	t, err := s.repo.FindByOwner(ownerID, id)
	if err != nil {
		return nil, err
	}
	return s.view(t)
}

// Create validates the input, persists the task and any uploaded files,
// and publishes a TaskCreated event.
func (s *Service) Create(ctx context.Context, ownerID string, in Input, uploads []UploadedFile) (*task.View, error) {
	title := strings.TrimSpace(deref(in.Title))
	if title == "" {
		return nil, ErrTitleRequired
	}

	status := task.StatusPending
	if in.Status != nil {
		status = task.Status(*in.Status)
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
	}

	dueDate, err := parseDueDate(in.DueDate)
	if err != nil {
		return nil, err
	}

	// The whole batch is rejected before anything is written.
	if err := checkSizes(uploads); err != nil {
		return nil, err
	}

	t := &task.Task{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       title,
		Description: deref(in.Description),
		Status:      status,
		DueDate:     dueDate,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.Create(t); err != nil {
		return nil, err
	}

	if err := s.attach(ctx, t.ID, uploads); err != nil {
		return nil, err
	}

	view, err := s.view(t)
	if err != nil {
		return nil, err
	}
	s.publishCreated(t.OwnerID, view)
	return view, nil
}

// Update applies only the fields present in the input, stores any new
// uploads, and publishes a TaskUpdated event. Absent fields keep their
// prior value.
func (s *Service) Update(ctx context.Context, ownerID, id string, in Input, uploads []UploadedFile) (*task.View, error) {
	t, err := s.repo.FindByOwner(ownerID, id)
	if err != nil {
		return nil, err
	}

	// Reject the request before mutating anything.
	if err := checkSizes(uploads); err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		t.Title = title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		status := task.Status(*in.Status)
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
		t.Status = status
	}
	if in.DueDate != nil {
		dueDate, err := parseDueDate(in.DueDate)
		if err != nil {
			return nil, err
		}
		t.DueDate = dueDate
	}

	if err := s.repo.Save(t); err != nil {
		return nil, err
	}

	if err := s.attach(ctx, t.ID, uploads); err != nil {
		return nil, err
	}

	view, err := s.view(t)
	if err != nil {
		return nil, err
	}
	s.publishUpdated(t.OwnerID, view)
	return view, nil
}

// Delete removes the task, its attachment rows, and their blobs, then
// publishes a TaskDeleted event. A blob that cannot be removed is logged
// and leaked rather than blocking the delete.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	t, err := s.repo.FindByOwner(ownerID, id)
	if err != nil {
		return err
	}

	atts, err := s.repo.AttachmentsForTask(t.ID)
	if err != nil {
		return err
	}
	for _, a := range atts {
		if err := s.blobs.Remove(ctx, a.StoredName); err != nil {
			log.Printf("[tasks] Failed to remove blob %s for task %s: %v", a.StoredName, t.ID, err)
		}
	}

	if err := s.repo.DeleteWithAttachments(t.ID); err != nil {
		return err
	}

	s.publishDeleted(t.OwnerID, t.ID)
	return nil
}

// RemoveAttachment deletes one attachment, resolved through the owning
// task's owner, and publishes a TaskUpdated event for that task.
func (s *Service) RemoveAttachment(ctx context.Context, ownerID, attachmentID string) error {
	a, err := s.repo.FindAttachmentByOwner(ownerID, attachmentID)
	if err != nil {
		return err
	}

	if err := s.blobs.Remove(ctx, a.StoredName); err != nil {
		log.Printf("[tasks] Failed to remove blob %s for attachment %s: %v", a.StoredName, a.ID, err)
	}
	if err := s.repo.DeleteAttachment(a.ID); err != nil {
		return err
	}

	t, err := s.repo.FindByOwner(ownerID, a.TaskID)
	if err != nil {
		log.Printf("[tasks] Attachment %s removed but task %s not readable: %v", a.ID, a.TaskID, err)
		return nil
	}
	view, err := s.view(t)
	if err != nil {
		log.Printf("[tasks] Attachment %s removed but view for task %s failed: %v", a.ID, a.TaskID, err)
		return nil
	}
	s.publishUpdated(t.OwnerID, view)
	return nil
}

// attach stores a batch of uploads for a task. Blob writes run
// concurrently; if any write fails, blobs already written for this
// batch are removed and no rows are created.
func (s *Service) attach(ctx context.Context, taskID string, uploads []UploadedFile) error {
	if len(uploads) == 0 {
		return nil
	}

	rows := make([]*task.Attachment, len(uploads))
	for i, f := range uploads {
		storedName, err := files.NewStoredName(f.Name)
		if err != nil {
			return fmt.Errorf("failed to generate blob name: %w", err)
		}
		rows[i] = &task.Attachment{
			ID:           uuid.New().String(),
			TaskID:       taskID,
			StoredName:   storedName,
			OriginalName: f.Name,
			Mime:         f.Mime,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range uploads {
		g.Go(func() error {
			return s.blobs.Save(gctx, rows[i].StoredName, f.Data)
		})
	}
	if err := g.Wait(); err != nil {
		s.cleanupBlobs(rows)
		return fmt.Errorf("failed to store attachments: %w", err)
	}

	if err := s.repo.CreateAttachments(rows); err != nil {
		s.cleanupBlobs(rows)
		return err
	}
	return nil
}

func (s *Service) cleanupBlobs(rows []*task.Attachment) {
	for _, a := range rows {
		if err := s.blobs.Remove(context.Background(), a.StoredName); err != nil {
			log.Printf("[tasks] Failed to clean up blob %s: %v", a.StoredName, err)
		}
	}
}

func (s *Service) view(t *task.Task) (*task.View, error) {
	atts, err := s.repo.AttachmentsForTask(t.ID)
	if err != nil {
		return nil, err
	}
	return buildView(t, atts), nil
}

func buildView(t *task.Task, atts []*task.Attachment) *task.View {
	fileViews := make([]task.FileView, 0, len(atts))
	for _, a := range atts {
		fileViews = append(fileViews, task.FileView{
			ID:   a.ID,
			URL:  BlobURLPrefix + a.StoredName,
			Name: a.OriginalName,
			Mime: a.Mime,
		})
	}
	return &task.View{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		Files:       fileViews,
	}
}

// Event publishing is best-effort: a failure is logged and never fails
// the mutation that triggered it.

func (s *Service) publishCreated(ownerID string, view *task.View) {
	if s.bus == nil {
		return
	}
	event := events.TaskCreatedEvent{OwnerID: ownerID, Task: *view}
	if err := events.TaskCreatedV1.Publish(s.bus, event, nil); err != nil {
		log.Printf("[tasks] Warning: failed to publish TaskCreated event for task %s: %v", view.ID, err)
	}
}

func (s *Service) publishUpdated(ownerID string, view *task.View) {
	if s.bus == nil {
		return
	}
	event := events.TaskUpdatedEvent{OwnerID: ownerID, Task: *view}
	if err := events.TaskUpdatedV1.Publish(s.bus, event, nil); err != nil {
		log.Printf("[tasks] Warning: failed to publish TaskUpdated event for task %s: %v", view.ID, err)
	}
}

func (s *Service) publishDeleted(ownerID, taskID string) {
	if s.bus == nil {
		return
	}
	event := events.TaskDeletedEvent{OwnerID: ownerID, TaskID: taskID, DeletedAt: time.Now()}
	if err := events.TaskDeletedV1.Publish(s.bus, event, nil); err != nil {
		log.Printf("[tasks] Warning: failed to publish TaskDeleted event for task %s: %v", taskID, err)
	}
}

// checkSizes enforces the per-file ceiling for a whole batch before any
// blob is written: one oversized file rejects the entire request.
func checkSizes(uploads []UploadedFile) error {
	for _, f := range uploads {
		if len(f.Data) > MaxFileSize {
			return ErrFileTooLarge
		}
	}
	return nil
}

// parseDueDate validates an optional calendar date. An empty string
// clears the date to null.
func parseDueDate(raw *string) (*string, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	if _, err := time.Parse(dueDateLayout, *raw); err != nil {
		return nil, ErrInvalidDueDate
	}
	d := *raw
	return &d, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
