package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/isdelr/taskflow-be/internal/auth"
	"github.com/isdelr/taskflow-be/internal/models"
	"github.com/isdelr/taskflow-be/internal/storage"
	"github.com/isdelr/taskflow-be/internal/store"
)

type published struct {
	event   string
	payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{event: event, payload: payload})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.event)
	}
	return out
}

type fixture struct {
	store  *store.MemoryStore
	blobs  *storage.LocalStore
	events *recordingPublisher
	users  *UserService
	auth   *AuthService
	tasks  *TaskService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.NewMemoryStore()
	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	events := &recordingPublisher{}
	users := NewUserService(s, bcrypt.MinCost)
	return &fixture{
		store:  s,
		blobs:  blobs,
		events: events,
		users:  users,
		auth:   NewAuthService(users, auth.NewTokenManager("secret", time.Hour), events),
		tasks:  NewTaskService(s, blobs, events),
	}
}

func TestUserService_CreateAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Empty(t, user.PasswordHash)
	assert.False(t, user.CreatedAt.IsZero())

	stored, err := f.users.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", stored.PasswordHash)

	_, err = f.users.CreateUser(ctx, "alice", "other")
	assert.ErrorIs(t, err, ErrUserExists)

	got, err := f.users.AuthenticateUser(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.users.AuthenticateUser(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.users.AuthenticateUser(ctx, "nobody", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Flow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, token, err := f.auth.Register(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = f.auth.Register(ctx, "alice", "pw")
	assert.ErrorIs(t, err, ErrUserExists)

	_, _, err = f.auth.Login(ctx, "alice", "bad")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, token, err = f.auth.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	who, err := f.auth.Identify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, who.ID)

	_, err = f.auth.Identify(ctx, "junk")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	f.auth.Logout(ctx, "junk")
	f.auth.Logout(ctx, "")
	f.auth.Logout(ctx, token)

	assert.Equal(t, []string{models.EventUserLogin, models.EventUserLogin, models.EventUserLogout}, f.events.names())
	assert.Equal(t, models.UserLogoutEvent{Username: "alice"}, f.events.events[2].payload)
}

func ptr[T any](v T) *T { return &v }

func TestTaskService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := models.User{ID: "u1", Username: "alice"}

	_, err := f.tasks.CreateTask(ctx, owner, models.TaskInput{Title: "  "})
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = f.tasks.CreateTask(ctx, owner, models.TaskInput{Title: "x", Status: "blocked"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	due := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	task, err := f.tasks.CreateTask(ctx, owner, models.TaskInput{Title: "write", DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Equal(t, "u1", task.OwnerID)

	require.Len(t, f.events.events, 1)
	ev := f.events.events[0]
	assert.Equal(t, models.EventTaskCreated, ev.event)
	created := ev.payload.(models.TaskCreatedEvent)
	assert.Equal(t, task.ID, created.ID)
	assert.Equal(t, "alice", created.Username)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, "2025-03-04T00:00:00.000Z", *created.DueDate)
}

func TestTaskService_ListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := models.User{ID: "u1", Username: "alice"}

	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.Local)
	f.tasks.now = func() time.Time { return now }
	start := time.Date(2025, 6, 15, 0, 0, 0, 0, time.Local)

	mk := func(title string, status models.Status, due *time.Time) {
		_, err := f.tasks.CreateTask(ctx, owner, models.TaskInput{Title: title, Status: status, DueDate: due})
		require.NoError(t, err)
	}
	mk("overdue", models.StatusTodo, ptr(start.Add(-time.Minute)))
	mk("today", models.StatusDone, ptr(start.Add(23*time.Hour)))
	mk("this week", models.StatusInProgress, ptr(start.AddDate(0, 0, 6)))
	mk("this month", models.StatusTodo, ptr(start.AddDate(0, 0, 20)))
	mk("later", models.StatusDone, ptr(start.AddDate(0, 2, 0)))
	mk("undated", models.StatusTodo, nil)
	_, err := f.tasks.CreateTask(ctx, models.User{ID: "u2"}, models.TaskInput{Title: "foreign"})
	require.NoError(t, err)

	titles := func(filter models.TaskFilter, window models.TimeFilter) []string {
		tasks, err := f.tasks.ListTasks(ctx, "u1", filter, window)
		require.NoError(t, err)
		var out []string
		for _, task := range tasks {
			out = append(out, task.Title)
		}
		return out
	}

	tests := []struct {
		filter models.TaskFilter
		window models.TimeFilter
		want   []string
	}{
		{"", "", []string{"overdue", "today", "this week", "this month", "later", "undated"}},
		{models.FilterActive, models.TimeAny, []string{"overdue", "this week", "this month", "undated"}},
		{models.FilterCompleted, models.TimeAny, []string{"today", "later"}},
		{models.FilterAll, models.TimeOverdue, []string{"overdue"}},
		{models.FilterAll, models.TimeToday, []string{"today"}},
		{models.FilterAll, models.TimeWeek, []string{"today", "this week"}},
		{models.FilterAll, models.TimeMonth, []string{"today", "this week", "this month"}},
		{models.FilterActive, models.TimeMonth, []string{"this week", "this month"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter)+"/"+string(tt.window), func(t *testing.T) {
			assert.Equal(t, tt.want, titles(tt.filter, tt.window))
		})
	}

	_, err = f.tasks.ListTasks(ctx, "u1", "weird", models.TimeAny)
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = f.tasks.ListTasks(ctx, "u1", models.FilterAll, "yesterday")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestTaskService_UpdateTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := models.User{ID: "u1", Username: "alice"}
	due := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	task, err := f.tasks.CreateTask(ctx, owner, models.TaskInput{Title: "a", Description: ptr("desc"), DueDate: &due})
	require.NoError(t, err)

	updated, err := f.tasks.UpdateTask(ctx, task.ID, "u1", models.TaskPatch{Status: ptr(models.StatusDone)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, updated.Status)
	assert.Equal(t, "a", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "desc", *updated.Description)
	require.NotNil(t, updated.DueDate)

	updated, err = f.tasks.UpdateTask(ctx, task.ID, "u1", models.TaskPatch{Title: ptr("b"), ClearDescription: true, ClearDueDate: true})
	require.NoError(t, err)
	assert.Equal(t, "b", updated.Title)
	assert.Nil(t, updated.Description)
	assert.Nil(t, updated.DueDate)

	_, err = f.tasks.UpdateTask(ctx, task.ID, "u1", models.TaskPatch{Title: ptr("")})
	assert.ErrorIs(t, err, ErrTitleRequired)
	_, err = f.tasks.UpdateTask(ctx, task.ID, "u1", models.TaskPatch{Status: ptr(models.Status("nope"))})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = f.tasks.UpdateTask(ctx, task.ID, "u2", models.TaskPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	got, err := f.tasks.GetTask(ctx, task.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Title)
}

func TestTaskService_Attachments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := models.User{ID: "u1", Username: "alice"}

	task, err := f.tasks.CreateTask(ctx, owner, models.TaskInput{Title: "files"})
	require.NoError(t, err)

	_, err = f.tasks.AddAttachment(ctx, "missing", "u1", "a.txt", strings.NewReader("x"), 1, "text/plain")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	att, err := f.tasks.AddAttachment(ctx, task.ID, "u1", "Notes.TXT", strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "Notes.TXT", att.OriginalName)
	assert.True(t, strings.HasSuffix(att.Filename, ".txt"))
	assert.NotEqual(t, att.OriginalName, att.Filename)

	meta, rc, err := f.tasks.OpenAttachment(ctx, task.ID, "u1", att.Filename)
	require.NoError(t, err)
	buf := new(strings.Builder)
	_, err = io.Copy(buf, rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "hello", buf.String())
	assert.Equal(t, att, meta)

	_, _, err = f.tasks.OpenAttachment(ctx, "missing", "u1", att.Filename)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, _, err = f.tasks.OpenAttachment(ctx, task.ID, "u1", "unknown.txt")
	assert.ErrorIs(t, err, ErrAttachmentNotFound)

	require.NoError(t, f.blobs.Delete(ctx, att.Filename))
	_, _, err = f.tasks.OpenAttachment(ctx, task.ID, "u1", att.Filename)
	assert.ErrorIs(t, err, ErrFileNotFound)

	// A missing blob does not block removing the record.
	require.NoError(t, f.tasks.DeleteAttachment(ctx, task.ID, "u1", att.Filename))
	assert.ErrorIs(t, f.tasks.DeleteAttachment(ctx, task.ID, "u1", att.Filename), ErrAttachmentNotFound)
}

func TestTaskService_DeleteTaskRemovesBlobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := models.User{ID: "u1", Username: "alice"}

	task, err := f.tasks.CreateTask(ctx, owner, models.TaskInput{Title: "files"})
	require.NoError(t, err)
	att, err := f.tasks.AddAttachment(ctx, task.ID, "u1", "a.bin", strings.NewReader("data"), 4, "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.tasks.DeleteTask(ctx, task.ID, "u2"), ErrTaskNotFound)
	require.NoError(t, f.tasks.DeleteTask(ctx, task.ID, "u1"))

	exists, err := f.blobs.Exists(ctx, att.Filename)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.ErrorIs(t, f.tasks.DeleteTask(ctx, task.ID, "u1"), ErrTaskNotFound)
}

func TestStoredName(t *testing.T) {
	s := &TaskService{now: func() time.Time { return time.UnixMilli(1700000000000) }}

	assert.Regexp(t, `^1700000000000-[0-9a-f-]{36}\.png$`, s.storedName("photo.PNG"))
	assert.Regexp(t, `^1700000000000-[0-9a-f-]{36}$`, s.storedName("README"))
	assert.Regexp(t, `^1700000000000-[0-9a-f-]{36}$`, s.storedName("evil.t\\xt"))
}
