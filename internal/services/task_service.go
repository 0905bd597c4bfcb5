package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/taskflow-be/internal/models"
	"github.com/isdelr/taskflow-be/internal/storage"
	"github.com/isdelr/taskflow-be/internal/store"
)

var (
	ErrTaskNotFound       = store.ErrNotFound
	ErrTitleRequired      = errors.New("title is required")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidFilter      = errors.New("invalid filter")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrFileNotFound       = errors.New("file not found")
	ErrBlobDelete         = errors.New("failed to delete file")
)

// TaskServiceProvider defines the interface for task services.
type TaskServiceProvider interface {
	ListTasks(ctx context.Context, ownerID string, filter models.TaskFilter, window models.TimeFilter) ([]models.Task, error)
	GetTask(ctx context.Context, id, ownerID string) (models.Task, error)
	CreateTask(ctx context.Context, owner models.User, input models.TaskInput) (models.Task, error)
	UpdateTask(ctx context.Context, id, ownerID string, patch models.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, id, ownerID string) error
	AddAttachment(ctx context.Context, taskID, ownerID, originalName string, content io.Reader, size int64, contentType string) (models.Attachment, error)
	OpenAttachment(ctx context.Context, taskID, ownerID, filename string) (models.Attachment, io.ReadCloser, error)
	DeleteAttachment(ctx context.Context, taskID, ownerID, filename string) error
}

// TaskService provides business logic for tasks and their attachments.
type TaskService struct {
	tasks  store.TaskStore
	blobs  storage.BlobStore
	events EventPublisher
	now    func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(tasks store.TaskStore, blobs storage.BlobStore, events EventPublisher) *TaskService {
	if events == nil {
		events = LogPublisher{}
	}
	return &TaskService{tasks: tasks, blobs: blobs, events: events, now: time.Now}
}

// ListTasks returns the owner's tasks narrowed by completion state and due date window.
func (s *TaskService) ListTasks(ctx context.Context, ownerID string, filter models.TaskFilter, window models.TimeFilter) ([]models.Task, error) {
	if filter == "" {
		filter = models.FilterAll
	}
	if window == "" {
		window = models.TimeAny
	}
	switch filter {
	case models.FilterAll, models.FilterActive, models.FilterCompleted:
	default:
		return nil, fmt.Errorf("%w: filter %q", ErrInvalidFilter, filter)
	}
	switch window {
	case models.TimeAny, models.TimeOverdue, models.TimeToday, models.TimeWeek, models.TimeMonth:
	default:
		return nil, fmt.Errorf("%w: time %q", ErrInvalidFilter, window)
	}

	all, err := s.tasks.ListTasks(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	inWindow := s.windowMatcher(window)
	result := make([]models.Task, 0, len(all))
	for _, task := range all {
		if filter == models.FilterActive && task.Status == models.StatusDone {
			continue
		}
		if filter == models.FilterCompleted && task.Status != models.StatusDone {
			continue
		}
		if !inWindow(task.DueDate) {
			continue
		}
		result = append(result, task)
	}
	return result, nil
}

// windowMatcher builds the due date predicate for a time filter. Bounds start at local midnight.
func (s *TaskService) windowMatcher(window models.TimeFilter) func(*time.Time) bool {
	if window == models.TimeAny {
		return func(*time.Time) bool { return true }
	}

	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var end time.Time
	switch window {
	case models.TimeToday:
		end = start.AddDate(0, 0, 1)
	case models.TimeWeek:
		end = start.AddDate(0, 0, 7)
	case models.TimeMonth:
		end = start.AddDate(0, 1, 0)
	}

	return func(due *time.Time) bool {
		if due == nil {
			return false
		}
		if window == models.TimeOverdue {
			return due.Before(start)
		}
		return !due.Before(start) && due.Before(end)
	}
}

// GetTask retrieves one of the owner's tasks.
func (s *TaskService) GetTask(ctx context.Context, id, ownerID string) (models.Task, error) {
	return s.tasks.GetTask(ctx, id, ownerID)
}

// CreateTask stores a new task and announces it.
func (s *TaskService) CreateTask(ctx context.Context, owner models.User, input models.TaskInput) (models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return models.Task{}, ErrTitleRequired
	}
	status := input.Status
	if status == "" {
		status = models.StatusTodo
	}
	if !status.Valid() {
		return models.Task{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	task := models.Task{
		ID:          uuid.New().String(),
		OwnerID:     owner.ID,
		Title:       input.Title,
		Description: input.Description,
		Status:      status,
		DueDate:     utcPtr(input.DueDate),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return models.Task{}, err
	}

	s.events.Publish(models.EventTaskCreated, models.TaskCreatedEvent{
		ID:       task.ID,
		Title:    task.Title,
		OwnerID:  task.OwnerID,
		Username: owner.Username,
		DueDate:  models.FormatTimePtr(task.DueDate),
	})
	return task, nil
}

// UpdateTask applies a partial update. Attachments are never touched.
func (s *TaskService) UpdateTask(ctx context.Context, id, ownerID string, patch models.TaskPatch) (models.Task, error) {
	task, err := s.tasks.GetTask(ctx, id, ownerID)
	if err != nil {
		return models.Task{}, err
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return models.Task{}, ErrTitleRequired
		}
		task.Title = *patch.Title
	}
	switch {
	case patch.ClearDescription:
		task.Description = nil
	case patch.Description != nil:
		d := *patch.Description
		task.Description = &d
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return models.Task{}, fmt.Errorf("%w: %q", ErrInvalidStatus, *patch.Status)
		}
		task.Status = *patch.Status
	}
	switch {
	case patch.ClearDueDate:
		task.DueDate = nil
	case patch.DueDate != nil:
		task.DueDate = utcPtr(patch.DueDate)
	}

	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// DeleteTask removes a task. Attachment content is removed on a best-effort basis; leftovers
// are collected by the janitor.
func (s *TaskService) DeleteTask(ctx context.Context, id, ownerID string) error {
	task, err := s.tasks.GetTask(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if err := s.tasks.DeleteTask(ctx, id, ownerID); err != nil {
		return err
	}

	for _, att := range task.Attachments {
		if err := s.blobs.Delete(ctx, att.Filename); err != nil && !errors.Is(err, storage.ErrNotExist) {
			log.Warn().Err(err).Str("task_id", id).Str("filename", att.Filename).Msg("Failed to remove attachment content")
		}
	}
	return nil
}

// AddAttachment stores uploaded content under a generated name and records it on the task.
func (s *TaskService) AddAttachment(ctx context.Context, taskID, ownerID, originalName string, content io.Reader, size int64, contentType string) (models.Attachment, error) {
	if _, err := s.tasks.GetTask(ctx, taskID, ownerID); err != nil {
		return models.Attachment{}, err
	}

	att := models.Attachment{
		Filename:     s.storedName(originalName),
		OriginalName: originalName,
	}
	if err := s.blobs.Put(ctx, att.Filename, content, size, contentType); err != nil {
		return models.Attachment{}, fmt.Errorf("store attachment: %w", err)
	}

	if err := s.tasks.AddAttachment(ctx, taskID, ownerID, att); err != nil {
		if delErr := s.blobs.Delete(ctx, att.Filename); delErr != nil {
			log.Warn().Err(delErr).Str("filename", att.Filename).Msg("Failed to roll back attachment content")
		}
		return models.Attachment{}, err
	}
	return att, nil
}

// OpenAttachment returns the attachment metadata and its content. The caller closes the reader.
func (s *TaskService) OpenAttachment(ctx context.Context, taskID, ownerID, filename string) (models.Attachment, io.ReadCloser, error) {
	task, err := s.tasks.GetTask(ctx, taskID, ownerID)
	if err != nil {
		return models.Attachment{}, nil, err
	}

	var att *models.Attachment
	for i := range task.Attachments {
		if task.Attachments[i].Filename == filename {
			att = &task.Attachments[i]
			break
		}
	}
	if att == nil {
		return models.Attachment{}, nil, ErrAttachmentNotFound
	}

	rc, err := s.blobs.Open(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return models.Attachment{}, nil, ErrFileNotFound
		}
		return models.Attachment{}, nil, err
	}
	return *att, rc, nil
}

// DeleteAttachment removes the attachment record and then its content.
func (s *TaskService) DeleteAttachment(ctx context.Context, taskID, ownerID, filename string) error {
	if err := s.tasks.RemoveAttachment(ctx, taskID, ownerID, filename); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}

	if err := s.blobs.Delete(ctx, filename); err != nil && !errors.Is(err, storage.ErrNotExist) {
		log.Error().Err(err).Str("task_id", taskID).Str("filename", filename).Msg("Failed to remove attachment content")
		return fmt.Errorf("%w: %v", ErrBlobDelete, err)
	}
	return nil
}

// storedName builds "<unix millis>-<uuid><ext>", keeping the extension only when it is a
// plain alphanumeric suffix.
func (s *TaskService) storedName(originalName string) string {
	name := strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + uuid.New().String()
	ext := filepath.Ext(originalName)
	if len(ext) < 2 || len(ext) > 16 {
		return name
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return name
		}
	}
	return name + strings.ToLower(ext)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
