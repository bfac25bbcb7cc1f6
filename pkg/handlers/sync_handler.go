package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ranchforce/agriwebb-sync/pkg/apperrors"
	"github.com/ranchforce/agriwebb-sync/pkg/auth"
	"github.com/ranchforce/agriwebb-sync/pkg/models"
	"github.com/ranchforce/agriwebb-sync/pkg/services"
	"github.com/ranchforce/agriwebb-sync/pkg/services/workqueue"
)

// TaskQueue runs jobs in the background. *workqueue.Queue satisfies it.
type TaskQueue interface {
	Enqueue(task workqueue.Task) error
	GetTasks() []workqueue.TaskSnapshot
	GetTask(id string) (workqueue.TaskSnapshot, bool)
}

var _ TaskQueue = (*workqueue.Queue)(nil)

// TokenLookup resolves the stored token a job will run with.
type TokenLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*models.AgriWebbToken, error)
}

// EnqueueResponse is the 202 body of the sync triggers.
type EnqueueResponse struct {
	TaskID string `json:"task_id"`
}

// TaskListResponse for GET /api/sync/tasks
type TaskListResponse struct {
	Tasks []workqueue.TaskSnapshot `json:"tasks"`
	Total int                      `json:"total"`
}

// SyncHandler triggers sync jobs and reports on them.
type SyncHandler struct {
	syncService services.SyncService
	tokens      TokenLookup
	queue       TaskQueue
	logger      *zap.Logger
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(syncService services.SyncService, tokens TokenLookup, queue TaskQueue, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		tokens:      tokens,
		queue:       queue,
		logger:      logger,
	}
}

// RegisterRoutes registers the sync handler's routes on the given mux.
func (h *SyncHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/sync/animals", authMiddleware.RequireAuth(h.SyncAnimals))
	mux.HandleFunc("POST /api/sync/animals/export", authMiddleware.RequireAuth(h.ExportAnimals))
	mux.HandleFunc("POST /api/sync/farms", authMiddleware.RequireAuth(h.SyncFarms))
	mux.HandleFunc("GET /api/sync/tasks", authMiddleware.RequireAuth(h.ListTasks))
	mux.HandleFunc("GET /api/sync/tasks/{id}", authMiddleware.RequireAuth(h.GetTask))
}

// SyncAnimals handles POST /api/sync/animals
func (h *SyncHandler) SyncAnimals(w http.ResponseWriter, r *http.Request) {
	params, ok := h.animalParams(w, r)
	if !ok {
		return
	}
	h.enqueue(w, services.NewSyncAnimalsTask(h.syncService, params, auth.GetUserIDFromContext(r.Context())), params.TokenID)
}

// ExportAnimals handles POST /api/sync/animals/export
func (h *SyncHandler) ExportAnimals(w http.ResponseWriter, r *http.Request) {
	params, ok := h.animalParams(w, r)
	if !ok {
		return
	}
	if err := services.ValidateExportFarmID(params.Query.FarmID); err != nil {
		writeValidationError(w, h.logger, err)
		return
	}
	h.enqueue(w, services.NewExportAnimalsTask(h.syncService, params, auth.GetUserIDFromContext(r.Context())), params.TokenID)
}

// SyncFarms handles POST /api/sync/farms
func (h *SyncHandler) SyncFarms(w http.ResponseWriter, r *http.Request) {
	var params services.FarmSyncParams
	if err := decodeJSON(r, &params); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := params.Validate(); err != nil {
		writeValidationError(w, h.logger, err)
		return
	}
	if !h.authorizeToken(w, r, params.TokenID) {
		return
	}
	h.enqueue(w, services.NewSyncFarmsTask(h.syncService, params, auth.GetUserIDFromContext(r.Context())), params.TokenID)
}

func (h *SyncHandler) animalParams(w http.ResponseWriter, r *http.Request) (services.SyncParams, bool) {
	var params services.SyncParams
	if err := decodeJSON(r, &params); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return params, false
	}
	if err := params.Validate(); err != nil {
		writeValidationError(w, h.logger, err)
		return params, false
	}
	return params, h.authorizeToken(w, r, params.TokenID)
}

// authorizeToken rejects tokens owned by another user. Tokens stored
// without a user are usable by any authenticated caller.
func (h *SyncHandler) authorizeToken(w http.ResponseWriter, r *http.Request, tokenID uuid.UUID) bool {
	tok, err := h.tokens.Get(r.Context(), tokenID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "token_not_found", "AgriWebb token not found")
			return false
		}
		h.logger.Error("Failed to load token", zap.String("token_id", tokenID.String()), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "token_lookup_failed", "Failed to load token")
		return false
	}

	if !tokenVisibleTo(tok, auth.GetUserIDFromContext(r.Context())) {
		writeError(w, h.logger, http.StatusNotFound, "token_not_found", "AgriWebb token not found")
		return false
	}
	return true
}

func tokenVisibleTo(tok *models.AgriWebbToken, userID string) bool {
	return tok.UserID == "" || tok.UserID == userID
}

// taskVisibleTo applies the token rule to tasks: a caller sees the tasks
// they enqueued and those enqueued without a user.
func taskVisibleTo(task workqueue.TaskSnapshot, userID string) bool {
	return task.Owner == "" || task.Owner == userID
}

func (h *SyncHandler) enqueue(w http.ResponseWriter, task workqueue.Task, tokenID uuid.UUID) {
	if err := h.queue.Enqueue(task); err != nil {
		if errors.Is(err, workqueue.ErrQueueClosed) {
			writeError(w, h.logger, http.StatusServiceUnavailable, "shutting_down", "Server is shutting down")
			return
		}
		h.logger.Error("Failed to enqueue task", zap.String("task", task.Name()), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "enqueue_failed", "Failed to enqueue task")
		return
	}

	h.logger.Info("Enqueued sync task",
		zap.String("task_id", task.ID()),
		zap.String("task", task.Name()),
		zap.String("token_id", tokenID.String()))

	if err := WriteJSON(w, http.StatusAccepted, EnqueueResponse{TaskID: task.ID()}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListTasks handles GET /api/sync/tasks
// Only the caller's tasks are listed. An optional ?status= narrows the list
// to one task status.
func (h *SyncHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	status := workqueue.TaskStatus(r.URL.Query().Get("status"))
	userID := auth.GetUserIDFromContext(r.Context())

	tasks := make([]workqueue.TaskSnapshot, 0)
	for _, t := range h.queue.GetTasks() {
		if !taskVisibleTo(t, userID) {
			continue
		}
		if status == "" || t.Status == status {
			tasks = append(tasks, t)
		}
	}

	if err := WriteJSON(w, http.StatusOK, TaskListResponse{Tasks: tasks, Total: len(tasks)}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetTask handles GET /api/sync/tasks/{id}
func (h *SyncHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, ok := h.queue.GetTask(id)
	if !ok || !taskVisibleTo(task, auth.GetUserIDFromContext(r.Context())) {
		writeError(w, h.logger, http.StatusNotFound, "task_not_found", "Task not found")
		return
	}

	if err := WriteJSON(w, http.StatusOK, task); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
