package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/storejobs/internal/cache"
	"github.com/geocoder89/storejobs/internal/domain/category"
	"github.com/geocoder89/storejobs/internal/domain/job"
	"github.com/geocoder89/storejobs/internal/domain/user"
	"github.com/geocoder89/storejobs/internal/http/middlewares"
	"github.com/geocoder89/storejobs/internal/observability"
	"github.com/geocoder89/storejobs/internal/policy"
	"github.com/geocoder89/storejobs/internal/utils"
	"github.com/gin-gonic/gin"
)

type JobsStore interface {
	Create(ctx context.Context, j job.Job) error
	GetByID(ctx context.Context, id string) (job.Job, error)
	List(ctx context.Context, f job.ListFilter, now time.Time) ([]job.Job, int, error)
	ListByOwner(ctx context.Context, f job.OwnerFilter) ([]job.Job, int, error)
	Update(ctx context.Context, j job.Job) error
	Delete(ctx context.Context, id string) error
}

// AppliedChecker answers "has this user applied to this job".
type AppliedChecker interface {
	Exists(ctx context.Context, jobID, userID string) (bool, error)
}

type JobsHandler struct {
	jobs       JobsStore
	categories CategoryReader
	applied    AppliedChecker
	cache      cache.Cache
	cacheTTL   time.Duration
	prom       *observability.Prom
	now        func() time.Time
}

type JobsHandlerDeps struct {
	Jobs       JobsStore
	Categories CategoryReader
	Applied    AppliedChecker
	// Cache is optional; without it every listing hits the store.
	Cache    cache.Cache
	CacheTTL time.Duration
	Prom     *observability.Prom
}

func NewJobsHandler(d JobsHandlerDeps) *JobsHandler {
	ttl := d.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &JobsHandler{
		jobs:       d.Jobs,
		categories: d.Categories,
		applied:    d.Applied,
		cache:      d.Cache,
		cacheTTL:   ttl,
		prom:       d.Prom,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type jobsListResponse struct {
	utils.Page[job.Job]
	Filters    job.Echo            `json:"filters"`
	Categories []category.Category `json:"categories"`
}

// parseListFilter reads the public listing query. Unknown work types and
// non-numeric salary floors are rejected rather than ignored.
func parseListFilter(ctx *gin.Context) (job.ListFilter, []FieldError) {
	f := job.ListFilter{
		Page:    utils.ParsePage(ctx.Query("page")),
		PerPage: job.PublicPageSize,
	}
	var errs []FieldError

	if v := strings.TrimSpace(ctx.Query("category")); v != "" {
		f.CategorySlug = &v
	}

	if v := strings.TrimSpace(ctx.Query("search")); v != "" {
		f.Search = &v
	}

	if v := strings.TrimSpace(ctx.Query("work_type")); v != "" {
		wt := job.WorkType(v)
		if !wt.IsValid() {
			errs = append(errs, FieldError{
				Field:   "work_type",
				Rule:    "oneof",
				Param:   "full-time part-time contract freelance",
				Message: validationMessage("oneof", "full-time part-time contract freelance"),
			})
		} else {
			f.WorkType = &wt
		}
	}

	if v := strings.TrimSpace(ctx.Query("salary_min")); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
			errs = append(errs, FieldError{
				Field:   "salary_min",
				Rule:    "gte",
				Param:   "0",
				Message: "must be a number greater than or equal to 0",
			})
		} else {
			f.SalaryMin = &n
		}
	}

	return f, errs
}

// GET /jobs
func (h *JobsHandler) List(ctx *gin.Context) {
	f, errs := parseListFilter(ctx)
	if len(errs) > 0 {
		RespondBadRequest(ctx, "Invalid query parameters", gin.H{"fields": errs})
		return
	}

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	key := utils.BuildJobsListCacheKey(f)

	if h.cache != nil {
		body, ok, err := h.cache.Get(cctx, key)
		switch {
		case err != nil:
			h.prom.CacheResult("jobs_list", "error")
			slog.Default().WarnContext(cctx, "jobs.list.cache_get", "err", err, "request_id", requestIDFrom(ctx))
		case ok:
			h.prom.CacheResult("jobs_list", "hit")
			RespondRawJSONWithETag(ctx, http.StatusOK, body)
			return
		default:
			h.prom.CacheResult("jobs_list", "miss")
		}
	}

	items, total, err := h.jobs.List(cctx, f, h.now())
	if err != nil {
		RespondInternal(ctx, "Could not list jobs")
		return
	}

	categories, err := h.categories.ListActive(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list categories")
		return
	}
	if categories == nil {
		categories = []category.Category{}
	}

	body, err := json.Marshal(jobsListResponse{
		Page:       utils.NewPage(items, f.Page, f.PerPage, total),
		Filters:    f.Echo(),
		Categories: categories,
	})
	if err != nil {
		RespondInternal(ctx, "Could not encode jobs")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(cctx, key, body, h.cacheTTL); err != nil {
			slog.Default().WarnContext(cctx, "jobs.list.cache_set", "err", err, "request_id", requestIDFrom(ctx))
		}
	}

	RespondRawJSONWithETag(ctx, http.StatusOK, body)
}

// GET /jobs/:id
func (h *JobsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Job not found")
		return
	}

	actor := middlewares.ActorFromContext(ctx)

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	j, err := h.jobs.GetByID(cctx, id)
	if err != nil {
		if !respondAccessError(ctx, err) {
			RespondInternal(ctx, "Could not fetch job")
		}
		return
	}

	now := h.now()
	if err := policy.Authorize(actor, policy.ActionViewJob, policy.JobTarget{Job: j, Now: now}); err != nil {
		respondAccessError(ctx, err)
		return
	}

	hasApplied := false
	if actor.IsAuthenticated() && actor.Role == user.RoleJobSeeker {
		hasApplied, err = h.applied.Exists(cctx, j.ID, actor.ID)
		if err != nil {
			RespondInternal(ctx, "Could not fetch job")
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"job":        j,
		"hasApplied": hasApplied,
		"canApply":   j.IsPubliclyVisible(now) && policy.CanApply(actor, j, hasApplied),
		"canManage":  policy.CanManageJob(actor, j),
	})
}

// GET /my-jobs
func (h *JobsHandler) ListMine(ctx *gin.Context) {
	actor := middlewares.ActorFromContext(ctx)
	if err := policy.Authorize(actor, policy.ActionListMyJob, nil); err != nil {
		respondAccessError(ctx, err)
		return
	}

	f := job.OwnerFilter{
		OwnerID: actor.ID,
		Page:    utils.ParsePage(ctx.Query("page")),
		PerPage: job.OwnerPageSize,
	}

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	items, total, err := h.jobs.ListByOwner(cctx, f)
	if err != nil {
		RespondInternal(ctx, "Could not list jobs")
		return
	}

	ctx.JSON(http.StatusOK, utils.NewPage(items, f.Page, f.PerPage, total))
}

// POST /jobs
func (h *JobsHandler) Create(ctx *gin.Context) {
	actor := middlewares.ActorFromContext(ctx)
	if err := policy.Authorize(actor, policy.ActionCreateJob, nil); err != nil {
		respondAccessError(ctx, err)
		return
	}

	var req job.CreateJobRequest
	if !BindJSON(ctx, &req) {
		return
	}

	now := h.now()
	fields, err := req.Fields(now)
	if err != nil {
		if !respondJobValidation(ctx, err) {
			RespondInternal(ctx, "Could not create job")
		}
		return
	}

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	if !h.categoryUsable(ctx, cctx, fields.CategoryID) {
		return
	}

	j := job.New(actor.ID, fields, now)
	if err := h.jobs.Create(cctx, j); err != nil {
		if errors.Is(err, category.ErrNotFound) {
			respondUnknownCategory(ctx)
			return
		}
		RespondInternal(ctx, "Could not create job")
		return
	}

	h.invalidateListings(cctx)

	created, err := h.jobs.GetByID(cctx, j.ID)
	if err != nil {
		created = j
	}

	slog.Default().InfoContext(cctx, "job.created",
		"request_id", requestIDFrom(ctx),
		"job_id", j.ID,
	)

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Job posted successfully.",
		"job":     created,
	})
}

// PUT /jobs/:id
func (h *JobsHandler) Update(ctx *gin.Context) {
	j, ok := h.loadManaged(ctx, policy.ActionUpdateJob)
	if !ok {
		return
	}

	var req job.UpdateJobRequest
	if !BindJSON(ctx, &req) {
		return
	}

	now := h.now()
	fields, err := req.Fields(now)
	if err != nil {
		if !respondJobValidation(ctx, err) {
			RespondInternal(ctx, "Could not update job")
		}
		return
	}

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	if fields.CategoryID != j.CategoryID && !h.categoryUsable(ctx, cctx, fields.CategoryID) {
		return
	}

	updated := j.Apply(fields, now)
	if err := h.jobs.Update(cctx, updated); err != nil {
		switch {
		case errors.Is(err, category.ErrNotFound):
			respondUnknownCategory(ctx)
		case errors.Is(err, job.ErrNotFound):
			RespondNotFound(ctx, "Job not found")
		default:
			RespondInternal(ctx, "Could not update job")
		}
		return
	}

	h.invalidateListings(cctx)

	if reloaded, err := h.jobs.GetByID(cctx, j.ID); err == nil {
		updated = reloaded
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Job updated successfully.",
		"job":     updated,
	})
}

// DELETE /jobs/:id
func (h *JobsHandler) Delete(ctx *gin.Context) {
	j, ok := h.loadManaged(ctx, policy.ActionDeleteJob)
	if !ok {
		return
	}

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := h.jobs.Delete(cctx, j.ID); err != nil {
		if errors.Is(err, job.ErrNotFound) {
			RespondNotFound(ctx, "Job not found")
			return
		}
		RespondInternal(ctx, "Could not delete job")
		return
	}

	h.invalidateListings(cctx)

	ctx.JSON(http.StatusOK, gin.H{"message": "Job deleted successfully."})
}

// loadManaged fetches the posting named in the path and checks the actor may
// edit or delete it. Postings the actor cannot even see read as missing.
func (h *JobsHandler) loadManaged(ctx *gin.Context, action policy.Action) (job.Job, bool) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Job not found")
		return job.Job{}, false
	}

	actor := middlewares.ActorFromContext(ctx)

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	j, err := h.jobs.GetByID(cctx, id)
	if err != nil {
		if !respondAccessError(ctx, err) {
			RespondInternal(ctx, "Could not fetch job")
		}
		return job.Job{}, false
	}

	if err := policy.Authorize(actor, policy.ActionViewJob, policy.JobTarget{Job: j, Now: h.now()}); err != nil {
		respondAccessError(ctx, err)
		return job.Job{}, false
	}

	if err := policy.Authorize(actor, action, j); err != nil {
		respondAccessError(ctx, err)
		return job.Job{}, false
	}

	return j, true
}

func (h *JobsHandler) categoryUsable(ctx *gin.Context, cctx context.Context, id string) bool {
	c, err := h.categories.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, category.ErrNotFound) {
			respondUnknownCategory(ctx)
			return false
		}
		RespondInternal(ctx, "Could not verify category")
		return false
	}
	if !c.IsActive {
		respondUnknownCategory(ctx)
		return false
	}
	return true
}

func respondUnknownCategory(ctx *gin.Context) {
	RespondValidation(ctx, FieldError{
		Field:   "jobCategoryId",
		Rule:    "exists",
		Message: "must reference an existing category",
	})
}

func (h *JobsHandler) invalidateListings(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.DeletePrefix(ctx, utils.JobsListCachePrefix); err != nil {
		slog.Default().WarnContext(ctx, "jobs.list.cache_invalidate", "err", err)
	}
}
