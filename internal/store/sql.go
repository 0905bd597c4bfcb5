package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/isdelr/taskflow-be/internal/database"
	"github.com/isdelr/taskflow-be/internal/models"
)

// SQLStore persists data in SQLite or Postgres through database/sql.
// Queries are written with '?' placeholders and rebound for Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLStore wraps an already migrated database.
func NewSQLStore(db *sql.DB, dialect database.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) CreateUser(ctx context.Context, user models.User) error {
	_, err := s.db.ExecContext(ctx,
		s.q("INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)"),
		user.ID, user.Username, user.PasswordHash, user.CreatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLStore) GetUserByID(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		s.q("SELECT id, username, password_hash, created_at FROM users WHERE id = ?"), id)
	return scanUser(row)
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		s.q("SELECT id, username, password_hash, created_at FROM users WHERE username = ?"), username)
	return scanUser(row)
}

func (s *SQLStore) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, owner_id, title, description, status, due_date, created_at
		FROM tasks WHERE owner_id = ? ORDER BY seq`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	index := make(map[string]int)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		index[task.ID] = len(tasks)
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attRows, err := s.db.QueryContext(ctx, s.q(`
		SELECT a.task_id, a.filename, a.original_name
		FROM attachments a JOIN tasks t ON t.id = a.task_id
		WHERE t.owner_id = ? ORDER BY t.seq, a.seq`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer attRows.Close()

	for attRows.Next() {
		var taskID string
		var att models.Attachment
		if err := attRows.Scan(&taskID, &att.Filename, &att.OriginalName); err != nil {
			return nil, err
		}
		if i, ok := index[taskID]; ok {
			tasks[i].Attachments = append(tasks[i].Attachments, att)
		}
	}
	return tasks, attRows.Err()
}

func (s *SQLStore) GetTask(ctx context.Context, id, ownerID string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, owner_id, title, description, status, due_date, created_at
		FROM tasks WHERE id = ? AND owner_id = ?`), id, ownerID)
	task, err := scanTask(row)
	if err != nil {
		return models.Task{}, err
	}

	atts, err := s.attachmentsFor(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	task.Attachments = atts
	return task, nil
}

func (s *SQLStore) CreateTask(ctx context.Context, task models.Task) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO tasks (id, owner_id, title, description, status, due_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		task.ID, task.OwnerID, task.Title, nullString(task.Description), string(task.Status),
		nullMillis(task.DueDate), task.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateTask(ctx context.Context, task models.Task) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE tasks SET title = ?, description = ?, status = ?, due_date = ?
		WHERE id = ? AND owner_id = ?`),
		task.Title, nullString(task.Description), string(task.Status), nullMillis(task.DueDate),
		task.ID, task.OwnerID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return expectAffected(res)
}

func (s *SQLStore) DeleteTask(ctx context.Context, id, ownerID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`
		DELETE FROM attachments WHERE task_id IN (SELECT id FROM tasks WHERE id = ? AND owner_id = ?)`),
		id, ownerID); err != nil {
		return fmt.Errorf("delete attachments: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.q("DELETE FROM tasks WHERE id = ? AND owner_id = ?"), id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) AddAttachment(ctx context.Context, taskID, ownerID string, att models.Attachment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, s.q("SELECT 1 FROM tasks WHERE id = ? AND owner_id = ?"), taskID, ownerID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup task: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		s.q("INSERT INTO attachments (filename, task_id, original_name, created_at) VALUES (?, ?, ?, ?)"),
		att.Filename, taskID, att.OriginalName, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStore) RemoveAttachment(ctx context.Context, taskID, ownerID, filename string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		DELETE FROM attachments
		WHERE filename = ? AND task_id IN (SELECT id FROM tasks WHERE id = ? AND owner_id = ?)`),
		filename, taskID, ownerID)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return expectAffected(res)
}

func (s *SQLStore) AttachmentFilenames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT filename FROM attachments")
	if err != nil {
		return nil, fmt.Errorf("query attachment filenames: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) attachmentsFor(ctx context.Context, taskID string) ([]models.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT filename, original_name FROM attachments WHERE task_id = ? ORDER BY seq`), taskID)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	var atts []models.Attachment
	for rows.Next() {
		var att models.Attachment
		if err := rows.Scan(&att.Filename, &att.OriginalName); err != nil {
			return nil, err
		}
		atts = append(atts, att)
	}
	return atts, rows.Err()
}

// q rebinds '?' placeholders to the numbered form Postgres expects.
func (s *SQLStore) q(query string) string {
	if s.dialect != database.Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	var createdAt int64
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	user.CreatedAt = time.UnixMilli(createdAt).UTC()
	return user, nil
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		task        models.Task
		description sql.NullString
		status      string
		dueDate     sql.NullInt64
		createdAt   int64
	)
	err := row.Scan(&task.ID, &task.OwnerID, &task.Title, &description, &status, &dueDate, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, err
	}
	task.Status = models.Status(status)
	if description.Valid {
		task.Description = &description.String
	}
	if dueDate.Valid {
		d := time.UnixMilli(dueDate.Int64).UTC()
		task.DueDate = &d
	}
	task.CreatedAt = time.UnixMilli(createdAt).UTC()
	return task, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
