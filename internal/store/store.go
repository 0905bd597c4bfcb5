// Package store persists users, tasks and attachment metadata.
package store

import (
	"context"
	"errors"

	"github.com/isdelr/taskflow-be/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist or is owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrUserExists is returned when a username is already taken.
	ErrUserExists = errors.New("user already exists")
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

// TaskStore persists tasks and their attachment metadata. Every task operation is scoped by
// owner identifier.
type TaskStore interface {
	// ListTasks returns the owner's tasks in creation order.
	ListTasks(ctx context.Context, ownerID string) ([]models.Task, error)
	GetTask(ctx context.Context, id, ownerID string) (models.Task, error)
	CreateTask(ctx context.Context, task models.Task) error
	// UpdateTask persists title, description, status and due date. Attachments are untouched.
	UpdateTask(ctx context.Context, task models.Task) error
	DeleteTask(ctx context.Context, id, ownerID string) error
	AddAttachment(ctx context.Context, taskID, ownerID string, att models.Attachment) error
	RemoveAttachment(ctx context.Context, taskID, ownerID, filename string) error
	// AttachmentFilenames lists every stored filename referenced by any task.
	AttachmentFilenames(ctx context.Context) ([]string, error)
}

// Store is the full persistence surface used by the services.
type Store interface {
	UserStore
	TaskStore
	Close() error
}
