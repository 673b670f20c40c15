package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/task"
	"github.com/geocoder89/storejobs/internal/utils"
	"github.com/gin-gonic/gin"
)

type AdminTasksRepo interface {
	ListCursor(
		ctx context.Context,
		status *string,
		limit int,
		afterUpdatedAt time.Time,
		afterID string,
	) (items []task.Task, nextCursor *string, hasMore bool, err error)
	GetByID(ctx context.Context, id string) (task.Task, error)
	Retry(ctx context.Context, id string) error
}

type AdminTasksHandler struct {
	repo AdminTasksRepo
}

func NewAdminTasksHandler(repo AdminTasksRepo) *AdminTasksHandler {
	return &AdminTasksHandler{repo: repo}
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// GET /admin/tasks?status=failed&limit=50&cursor=
func (h *AdminTasksHandler) List(ctx *gin.Context) {
	limit := parseIntDefault(ctx.Query("limit"), 20)
	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}

	var statusPtr *string
	if s := ctx.Query("status"); s != "" {
		if !task.Status(s).IsValid() {
			RespondBadRequest(ctx, "status must be one of pending, processing, done, failed", nil)
			return
		}
		statusPtr = &s
	}

	cur := utils.FirstTaskCursor()
	if raw := ctx.Query("cursor"); raw != "" {
		decoded, err := utils.DecodeTaskCursor(raw)
		if err != nil {
			RespondBadRequest(ctx, "cursor is invalid", nil)
			return
		}
		cur = decoded
	}

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	items, next, hasMore, err := h.repo.ListCursor(cctx, statusPtr, limit, cur.UpdatedAt, cur.ID)
	if err != nil {
		RespondInternal(ctx, "Could not list tasks")
		return
	}
	if items == nil {
		items = []task.Task{}
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"limit":      limit,
		"count":      len(items),
		"items":      items,
		"hasMore":    hasMore,
		"nextCursor": next,
	})
}

// GET /admin/tasks/:id
func (h *AdminTasksHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", nil)
		return
	}

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	t, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}
		RespondInternal(ctx, "Could not fetch task")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, t)
}

// POST /admin/tasks/:id/retry
func (h *AdminTasksHandler) Retry(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", nil)
		return
	}

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.repo.Retry(cctx, id); err != nil {
		switch {
		case errors.Is(err, task.ErrNotFound):
			RespondNotFound(ctx, "Task not found")
		case errors.Is(err, task.ErrNotFailed):
			RespondConflict(ctx, "task_not_failed", "Only failed tasks can be retried")
		default:
			RespondInternal(ctx, "Could not retry task")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"taskId": id,
		"status": task.StatusPending,
	})
}
