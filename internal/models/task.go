package models

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in progress"
	StatusDone       Status = "done"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// TaskFilter narrows a task list by completion state.
type TaskFilter string

const (
	FilterAll       TaskFilter = "all"
	FilterActive    TaskFilter = "active"
	FilterCompleted TaskFilter = "completed"
)

// TimeFilter narrows a task list by due date window.
type TimeFilter string

const (
	TimeAny     TimeFilter = "any"
	TimeOverdue TimeFilter = "overdue"
	TimeToday   TimeFilter = "today"
	TimeWeek    TimeFilter = "week"
	TimeMonth   TimeFilter = "month"
)

// Attachment is a file uploaded against a task.
type Attachment struct {
	Filename     string `json:"filename"` // server generated, unique
	OriginalName string `json:"originalName"`
}

// Task is a user-owned to-do item.
type Task struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"ownerId"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Status      Status       `json:"status"`
	DueDate     *time.Time   `json:"-"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"-"` // ordering only
}

// MarshalJSON renders the due date the same way as every other timestamp the API emits.
func (t Task) MarshalJSON() ([]byte, error) {
	type alias Task
	out := struct {
		alias
		DueDate *string `json:"dueDate,omitempty"`
	}{alias: alias(t), DueDate: FormatTimePtr(t.DueDate)}
	if out.Attachments == nil {
		out.Attachments = []Attachment{}
	}
	return json.Marshal(out)
}

// Clone returns a deep copy so callers can never mutate stored state.
func (t Task) Clone() Task {
	c := t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	c.Attachments = append([]Attachment(nil), t.Attachments...)
	return c
}

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	Title       string
	Description *string
	Status      Status
	DueDate     *time.Time
}

// TaskPatch carries a partial update. Nil fields are left unchanged; ClearDescription and
// ClearDueDate remove the optional values.
type TaskPatch struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Status           *Status
	DueDate          *time.Time
	ClearDueDate     bool
}
