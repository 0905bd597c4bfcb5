package graphql

import (
	graphqlgo "github.com/graph-gophers/graphql-go"

	"github.com/isdelr/taskflow-be/internal/models"
)

var statusToEnum = map[models.Status]string{
	models.StatusTodo:       "TODO",
	models.StatusInProgress: "IN_PROGRESS",
	models.StatusDone:       "DONE",
}

var enumToStatus = map[string]models.Status{
	"TODO":        models.StatusTodo,
	"IN_PROGRESS": models.StatusInProgress,
	"DONE":        models.StatusDone,
}

type userResolver struct {
	u models.User
}

func (r *userResolver) ID() graphqlgo.ID  { return graphqlgo.ID(r.u.ID) }
func (r *userResolver) Username() string  { return r.u.Username }
func (r *userResolver) CreatedAt() string { return models.FormatTime(r.u.CreatedAt) }

type loginResultResolver struct {
	u models.User
}

func (r *loginResultResolver) ID() graphqlgo.ID { return graphqlgo.ID(r.u.ID) }
func (r *loginResultResolver) Username() string { return r.u.Username }

type attachmentResolver struct {
	a models.Attachment
}

func (r *attachmentResolver) Filename() string     { return r.a.Filename }
func (r *attachmentResolver) OriginalName() string { return r.a.OriginalName }

type taskResolver struct {
	t models.Task
}

func (r *taskResolver) ID() graphqlgo.ID      { return graphqlgo.ID(r.t.ID) }
func (r *taskResolver) OwnerID() graphqlgo.ID { return graphqlgo.ID(r.t.OwnerID) }
func (r *taskResolver) Title() string         { return r.t.Title }
func (r *taskResolver) Description() *string  { return r.t.Description }
func (r *taskResolver) DueDate() *string      { return models.FormatTimePtr(r.t.DueDate) }

func (r *taskResolver) Status() string {
	if s, ok := statusToEnum[r.t.Status]; ok {
		return s
	}
	return "TODO"
}

func (r *taskResolver) Attachments() []*attachmentResolver {
	out := make([]*attachmentResolver, 0, len(r.t.Attachments))
	for _, a := range r.t.Attachments {
		out = append(out, &attachmentResolver{a: a})
	}
	return out
}

func taskResolvers(tasks []models.Task) []*taskResolver {
	out := make([]*taskResolver, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, &taskResolver{t: t})
	}
	return out
}

// taskInput mirrors the TaskInput input object.
type taskInput struct {
	Title       string
	Description *string
	Status      *string
	DueDate     *string
}
