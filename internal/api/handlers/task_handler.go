package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/taskflow-be/internal/models"
	"github.com/isdelr/taskflow-be/internal/services"
)

// uploadMemory is how much of a multipart upload is buffered in memory before spilling to disk.
const uploadMemory = 8 << 20

// TaskHandler handles HTTP requests for tasks and attachments.
type TaskHandler struct {
	service        services.TaskServiceProvider
	maxUploadBytes int64
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider, maxUploadBytes int64) *TaskHandler {
	return &TaskHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// TaskPayload is the JSON body for create and update. Absent fields are nil.
type TaskPayload struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	Status      *string `json:"status"`
	DueDate     *string `json:"dueDate"`
}

// GetAll lists the caller's tasks, honouring the filter and time query parameters.
func (h *TaskHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	q := r.URL.Query()

	tasks, err := h.service.ListTasks(r.Context(), user.ID, models.TaskFilter(q.Get("filter")), models.TimeFilter(q.Get("time")))
	if err != nil {
		if errors.Is(err, services.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, "Invalid filter")
			return
		}
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to list tasks")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Create adds a new task for the caller.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)

	var payload TaskPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.Title == nil || *payload.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task fields")
		return
	}

	input := models.TaskInput{Title: *payload.Title}
	if payload.Description != nil && *payload.Description != "" {
		input.Description = payload.Description
	}
	if payload.Status != nil {
		input.Status = models.Status(*payload.Status)
	}
	if payload.DueDate != nil && *payload.DueDate != "" {
		due, err := models.ParseDate(*payload.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid due date")
			return
		}
		input.DueDate = &due
	}

	task, err := h.service.CreateTask(r.Context(), user, input)
	if err != nil {
		h.writeTaskError(w, err, "Failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// Get returns one of the caller's tasks.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	task, err := h.service.GetTask(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		h.writeTaskError(w, err, "Failed to retrieve task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Update applies a partial update. Empty description or dueDate strings clear the value.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)

	var payload TaskPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task fields")
		return
	}

	patch := models.TaskPatch{Title: payload.Title}
	if payload.Description != nil {
		if *payload.Description == "" {
			patch.ClearDescription = true
		} else {
			patch.Description = payload.Description
		}
	}
	if payload.Status != nil {
		status := models.Status(*payload.Status)
		patch.Status = &status
	}
	if payload.DueDate != nil {
		if *payload.DueDate == "" {
			patch.ClearDueDate = true
		} else {
			due, err := models.ParseDate(*payload.DueDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid due date")
				return
			}
			patch.DueDate = &due
		}
	}

	task, err := h.service.UpdateTask(r.Context(), chi.URLParam(r, "id"), user.ID, patch)
	if err != nil {
		h.writeTaskError(w, err, "Failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete removes one of the caller's tasks.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	if err := h.service.DeleteTask(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
		h.writeTaskError(w, err, "Failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadAttachment stores the multipart field "attachment" against a task.
func (h *TaskHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	taskID := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("attachment")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	att, err := h.service.AddAttachment(r.Context(), taskID, user.ID, header.Filename, file, header.Size, contentType)
	if err != nil {
		h.writeTaskError(w, err, "Failed to store attachment")
		return
	}

	log.Info().Str("task_id", taskID).Str("filename", att.Filename).Int64("size", header.Size).Msg("Attachment added")
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Attachment added"})
}

// DownloadAttachment streams an attachment under its original name.
func (h *TaskHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	att, content, err := h.service.OpenAttachment(r.Context(), chi.URLParam(r, "id"), user.ID, chi.URLParam(r, "filename"))
	if err != nil {
		h.writeTaskError(w, err, "Failed to open attachment")
		return
	}
	defer content.Close()

	contentType := mime.TypeByExtension(filepath.Ext(att.OriginalName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.OriginalName}))

	if rs, ok := content.(io.ReadSeeker); ok {
		http.ServeContent(w, r, att.OriginalName, time.Time{}, rs)
		return
	}
	if _, err := io.Copy(w, content); err != nil {
		log.Warn().Err(err).Str("filename", att.Filename).Msg("Attachment download interrupted")
	}
}

// DeleteAttachment removes an attachment and its content.
func (h *TaskHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	if err := h.service.DeleteAttachment(r.Context(), chi.URLParam(r, "id"), user.ID, chi.URLParam(r, "filename")); err != nil {
		h.writeTaskError(w, err, "Failed to delete attachment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeTaskError maps service errors to the API's status codes and messages.
func (h *TaskHandler) writeTaskError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, services.ErrAttachmentNotFound):
		writeError(w, http.StatusNotFound, "Attachment not found")
	case errors.Is(err, services.ErrFileNotFound):
		writeError(w, http.StatusNotFound, "File not found")
	case errors.Is(err, services.ErrTitleRequired):
		writeError(w, http.StatusBadRequest, "Title is required")
	case errors.Is(err, services.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "Invalid status")
	case errors.Is(err, services.ErrBlobDelete):
		writeError(w, http.StatusInternalServerError, "Failed to delete file")
	default:
		log.Error().Err(err).Msg(fallback)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
