package store

import (
	"context"
	"sync"

	"github.com/isdelr/taskflow-be/internal/models"
)

// MemoryStore keeps everything in process memory. Data is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]models.User // keyed by username
	tasks []models.Task
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]models.User)}
}

func (s *MemoryStore) CreateUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return ErrUserExists
	}
	s.users[user.Username] = user
	return nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) ListTasks(_ context.Context, ownerID string) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Task, 0)
	for _, t := range s.tasks {
		if t.OwnerID == ownerID {
			result = append(result, t.Clone())
		}
	}
	return result, nil
}

func (s *MemoryStore) GetTask(_ context.Context, id, ownerID string) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id, ownerID)
	if idx == -1 {
		return models.Task{}, ErrNotFound
	}
	return s.tasks[idx].Clone(), nil
}

func (s *MemoryStore) CreateTask(_ context.Context, task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task.Clone())
	return nil
}

func (s *MemoryStore) UpdateTask(_ context.Context, task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(task.ID, task.OwnerID)
	if idx == -1 {
		return ErrNotFound
	}
	updated := task.Clone()
	updated.Attachments = s.tasks[idx].Attachments
	updated.CreatedAt = s.tasks[idx].CreatedAt
	s.tasks[idx] = updated
	return nil
}

func (s *MemoryStore) DeleteTask(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id, ownerID)
	if idx == -1 {
		return ErrNotFound
	}
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	return nil
}

func (s *MemoryStore) AddAttachment(_ context.Context, taskID, ownerID string, att models.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(taskID, ownerID)
	if idx == -1 {
		return ErrNotFound
	}
	s.tasks[idx].Attachments = append(s.tasks[idx].Attachments, att)
	return nil
}

func (s *MemoryStore) RemoveAttachment(_ context.Context, taskID, ownerID, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(taskID, ownerID)
	if idx == -1 {
		return ErrNotFound
	}
	atts := s.tasks[idx].Attachments
	kept := make([]models.Attachment, 0, len(atts))
	for _, a := range atts {
		if a.Filename != filename {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(atts) {
		return ErrNotFound
	}
	s.tasks[idx].Attachments = kept
	return nil
}

func (s *MemoryStore) AttachmentFilenames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for _, t := range s.tasks {
		for _, a := range t.Attachments {
			names = append(names, a.Filename)
		}
	}
	return names, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// indexOf must be called with s.mu held.
func (s *MemoryStore) indexOf(id, ownerID string) int {
	for i, t := range s.tasks {
		if t.ID == id && t.OwnerID == ownerID {
			return i
		}
	}
	return -1
}
