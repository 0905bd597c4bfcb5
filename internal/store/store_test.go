package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/taskflow-be/internal/database"
	"github.com/isdelr/taskflow-be/internal/models"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	db, err := database.New(database.SQLite, filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, database.SQLite))
	s := NewSQLStore(db, database.SQLite)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStores(t *testing.T) {
	factories := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": newSQLiteStore,
	}
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			t.Run("users", func(t *testing.T) { testUsers(t, factory(t)) })
			t.Run("tasks", func(t *testing.T) { testTasks(t, factory(t)) })
			t.Run("insertion order", func(t *testing.T) { testInsertionOrder(t, factory(t)) })
			t.Run("attachments", func(t *testing.T) { testAttachments(t, factory(t)) })
		})
	}
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	user := models.User{ID: "u1", Username: "alice", PasswordHash: "hash", CreatedAt: created}

	require.NoError(t, s.CreateUser(ctx, user))
	assert.ErrorIs(t, s.CreateUser(ctx, models.User{ID: "u2", Username: "alice", PasswordHash: "x", CreatedAt: created}), ErrUserExists)

	byID, err := s.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
	assert.Equal(t, "hash", byID.PasswordHash)
	assert.True(t, created.Equal(byID.CreatedAt))

	byName, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", byName.ID)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func testTasks(t *testing.T, s Store) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	desc := "details"
	due := base.Add(48 * time.Hour)

	first := models.Task{ID: "t1", OwnerID: "u1", Title: "first", Description: &desc, Status: models.StatusTodo, DueDate: &due, CreatedAt: base}
	second := models.Task{ID: "t2", OwnerID: "u1", Title: "second", Status: models.StatusDone, CreatedAt: base.Add(time.Minute)}
	foreign := models.Task{ID: "t3", OwnerID: "u2", Title: "other", Status: models.StatusTodo, CreatedAt: base}
	for _, task := range []models.Task{first, second, foreign} {
		require.NoError(t, s.CreateTask(ctx, task))
	}

	list, err := s.ListTasks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t1", list[0].ID)
	assert.Equal(t, "t2", list[1].ID)
	require.NotNil(t, list[0].Description)
	assert.Equal(t, "details", *list[0].Description)
	require.NotNil(t, list[0].DueDate)
	assert.True(t, due.Equal(*list[0].DueDate))
	assert.Nil(t, list[1].DueDate)

	empty, err := s.ListTasks(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.GetTask(ctx, "t3", "u1")
	assert.ErrorIs(t, err, ErrNotFound, "tasks are scoped by owner")

	updated := first
	updated.Title = "renamed"
	updated.Description = nil
	updated.DueDate = nil
	updated.Status = models.StatusInProgress
	require.NoError(t, s.UpdateTask(ctx, updated))

	got, err := s.GetTask(ctx, "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Nil(t, got.Description)
	assert.Nil(t, got.DueDate)

	foreignUpdate := foreign
	foreignUpdate.OwnerID = "u1"
	assert.ErrorIs(t, s.UpdateTask(ctx, foreignUpdate), ErrNotFound)

	assert.ErrorIs(t, s.DeleteTask(ctx, "t3", "u1"), ErrNotFound)
	require.NoError(t, s.DeleteTask(ctx, "t1", "u1"))
	assert.ErrorIs(t, s.DeleteTask(ctx, "t1", "u1"), ErrNotFound)

	list, err = s.ListTasks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t2", list[0].ID)
}

// Tasks created in the same millisecond still list in the order they were created.
func testInsertionOrder(t *testing.T, s Store) {
	ctx := context.Background()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var want []string
	for _, prefix := range []string{"z", "y", "x", "w", "v", "u", "t", "s"} {
		id := prefix + "-task"
		require.NoError(t, s.CreateTask(ctx, models.Task{ID: id, OwnerID: "u1", Title: id, Status: models.StatusTodo, CreatedAt: created}))
		want = append(want, id)
	}
	for _, name := range []string{"z.txt", "a.txt", "m.txt"} {
		require.NoError(t, s.AddAttachment(ctx, "z-task", "u1", models.Attachment{Filename: name, OriginalName: name}))
	}

	list, err := s.ListTasks(ctx, "u1")
	require.NoError(t, err)
	var got []string
	for _, task := range list {
		got = append(got, task.ID)
	}
	assert.Equal(t, want, got)

	task, err := s.GetTask(ctx, "z-task", "u1")
	require.NoError(t, err)
	var files []string
	for _, a := range task.Attachments {
		files = append(files, a.Filename)
	}
	assert.Equal(t, []string{"z.txt", "a.txt", "m.txt"}, files)
	require.NotEmpty(t, list)
	assert.Len(t, list[0].Attachments, 3)
	assert.Equal(t, "z.txt", list[0].Attachments[0].Filename)
}

func testAttachments(t *testing.T, s Store) {
	ctx := context.Background()
	task := models.Task{ID: "t1", OwnerID: "u1", Title: "with files", Status: models.StatusTodo, CreatedAt: time.Now()}
	require.NoError(t, s.CreateTask(ctx, task))

	a := models.Attachment{Filename: "1-a.txt", OriginalName: "a.txt"}
	b := models.Attachment{Filename: "2-b.png", OriginalName: "b.png"}
	require.NoError(t, s.AddAttachment(ctx, "t1", "u1", a))
	require.NoError(t, s.AddAttachment(ctx, "t1", "u1", b))
	assert.ErrorIs(t, s.AddAttachment(ctx, "t1", "u2", a), ErrNotFound)
	assert.ErrorIs(t, s.AddAttachment(ctx, "missing", "u1", a), ErrNotFound)

	got, err := s.GetTask(ctx, "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.Attachment{a, b}, got.Attachments)

	list, err := s.ListTasks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Attachments, 2)

	// Updates never drop attachments.
	got.Title = "still with files"
	got.Attachments = nil
	require.NoError(t, s.UpdateTask(ctx, got))
	got, err = s.GetTask(ctx, "t1", "u1")
	require.NoError(t, err)
	assert.Len(t, got.Attachments, 2)

	names, err := s.AttachmentFilenames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1-a.txt", "2-b.png"}, names)

	assert.ErrorIs(t, s.RemoveAttachment(ctx, "t1", "u2", "1-a.txt"), ErrNotFound)
	require.NoError(t, s.RemoveAttachment(ctx, "t1", "u1", "1-a.txt"))
	assert.ErrorIs(t, s.RemoveAttachment(ctx, "t1", "u1", "1-a.txt"), ErrNotFound)

	got, err = s.GetTask(ctx, "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.Attachment{b}, got.Attachments)

	require.NoError(t, s.DeleteTask(ctx, "t1", "u1"))
	names, err = s.AttachmentFilenames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateTask(ctx, models.Task{ID: "t1", OwnerID: "u1", Title: "a", Status: models.StatusTodo}))
	require.NoError(t, s.AddAttachment(ctx, "t1", "u1", models.Attachment{Filename: "f"}))

	got, err := s.GetTask(ctx, "t1", "u1")
	require.NoError(t, err)
	got.Title = "mutated"
	got.Attachments[0].Filename = "mutated"

	again, err := s.GetTask(ctx, "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Title)
	assert.Equal(t, "f", again.Attachments[0].Filename)
}

func TestSQLStore_Rebind(t *testing.T) {
	s := &SQLStore{dialect: database.Postgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", s.q("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &SQLStore{dialect: database.SQLite}
	assert.Equal(t, "a = ?", lite.q("a = ?"))
}
