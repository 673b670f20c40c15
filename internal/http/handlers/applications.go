package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/storejobs/internal/cache"
	"github.com/geocoder89/storejobs/internal/domain/application"
	"github.com/geocoder89/storejobs/internal/domain/job"
	"github.com/geocoder89/storejobs/internal/domain/task"
	"github.com/geocoder89/storejobs/internal/domain/user"
	"github.com/geocoder89/storejobs/internal/http/middlewares"
	"github.com/geocoder89/storejobs/internal/observability"
	"github.com/geocoder89/storejobs/internal/policy"
	"github.com/geocoder89/storejobs/internal/tasks"
	"github.com/geocoder89/storejobs/internal/utils"
	"github.com/geocoder89/storejobs/internal/workflow"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ApplicationsStore writes outbox tasks in the same transaction as the application row.
type ApplicationsStore interface {
	Exists(ctx context.Context, jobID, userID string) (bool, error)
	Create(ctx context.Context, a application.Application, outbox ...task.CreateRequest) error
	GetByID(ctx context.Context, id string) (application.Application, error)
	List(ctx context.Context, f application.ListFilter) ([]application.Application, int, error)
	UpdateApplicantDetails(ctx context.Context, a application.Application) error
	UpdateReview(ctx context.Context, a application.Application, outbox ...task.CreateRequest) error
	Delete(ctx context.Context, id string) error
}

type JobReader interface {
	GetByID(ctx context.Context, id string) (job.Job, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type ApplicationsHandler struct {
	apps     ApplicationsStore
	jobs     JobReader
	users    UserReader
	guard    cache.Guard
	guardTTL time.Duration
	prom     *observability.Prom
	now      func() time.Time
}

type ApplicationsHandlerDeps struct {
	Applications ApplicationsStore
	Jobs         JobReader
	Users        UserReader
	// Guard is optional; the unique constraint still rejects duplicates without it.
	Guard    cache.Guard
	GuardTTL time.Duration
	Prom     *observability.Prom
}

func NewApplicationsHandler(d ApplicationsHandlerDeps) *ApplicationsHandler {
	ttl := d.GuardTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &ApplicationsHandler{
		apps:     d.Applications,
		jobs:     d.Jobs,
		users:    d.Users,
		guard:    d.Guard,
		guardTTL: ttl,
		prom:     d.Prom,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// loadApplyTarget loads a posting the actor wants to apply to and runs the
// visibility and apply rules. Hidden postings read as missing.
func (h *ApplicationsHandler) loadApplyTarget(ctx *gin.Context, cctx context.Context, actor policy.Actor, jobID string) (job.Job, bool) {
	j, err := h.jobs.GetByID(cctx, jobID)
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
	// owners and admins can see a paused posting but nobody may apply to it
	if !j.IsPubliclyVisible(h.now()) {
		RespondNotFound(ctx, "Job not found")
		return job.Job{}, false
	}

	applied, err := h.apps.Exists(cctx, j.ID, actor.ID)
	if err != nil {
		RespondInternal(ctx, "Could not check application")
		return job.Job{}, false
	}

	if err := policy.Authorize(actor, policy.ActionApply, policy.ApplyTarget{Job: j, AlreadyApplied: applied}); err != nil {
		if errors.Is(err, application.ErrAlreadyApplied) {
			h.prom.ApplicationEvent("duplicate", string(application.StatusPending))
			respondAlreadyApplied(ctx, j.ID)
			return job.Job{}, false
		}
		if errors.Is(err, policy.ErrForbidden) {
			RespondForbidden(ctx, "Only job seekers can apply for jobs.")
			return job.Job{}, false
		}
		respondAccessError(ctx, err)
		return job.Job{}, false
	}

	return j, true
}

// GET /apply?job_id=
func (h *ApplicationsHandler) Form(ctx *gin.Context) {
	jobID := strings.TrimSpace(ctx.Query("job_id"))
	if !utils.IsUUID(jobID) {
		RespondBadRequest(ctx, "Invalid query parameters", gin.H{"fields": []FieldError{{
			Field:   "job_id",
			Rule:    "uuid",
			Message: validationMessage("uuid", ""),
		}}})
		return
	}

	actor := middlewares.ActorFromContext(ctx)

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	j, ok := h.loadApplyTarget(ctx, cctx, actor, jobID)
	if !ok {
		return
	}

	// prefill from the profile; the applicant may override every field
	prefill := gin.H{}
	if u, err := h.users.GetByID(cctx, actor.ID); err == nil {
		prefill["applicantName"] = u.Name
		prefill["applicantEmail"] = u.Email
		if u.Phone != nil {
			prefill["applicantPhone"] = *u.Phone
		}
		if u.Address != nil {
			prefill["applicantAddress"] = *u.Address
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"job":     j,
		"prefill": prefill,
	})
}

// POST /job-applications
func (h *ApplicationsHandler) Submit(ctx *gin.Context) {
	actor := middlewares.ActorFromContext(ctx)

	var req application.SubmitRequest
	if !BindJSON(ctx, &req) {
		return
	}

	ctx.Set(middlewares.CtxJobID, req.JobID)

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	cctx, span := observability.StartSpan(cctx, "application.submit", attribute.String("job.id", req.JobID))
	defer span.End()

	if h.guard != nil {
		key := cache.SubmissionKey(req.JobID, actor.ID)
		acquired, err := h.guard.Acquire(cctx, key, h.guardTTL)
		switch {
		case err != nil:
			slog.Default().WarnContext(cctx, "applications.guard", "err", err, "request_id", requestIDFrom(ctx))
		case !acquired:
			RespondConflict(ctx, "submission_in_progress", "Your application is already being submitted.")
			return
		default:
			defer func() { _ = h.guard.Release(context.WithoutCancel(cctx), key) }()
		}
	}

	j, ok := h.loadApplyTarget(ctx, cctx, actor, req.JobID)
	if !ok {
		return
	}

	now := h.now()
	a := application.NewFromSubmit(req, actor.ID, j.UserID, now)

	var outbox []task.CreateRequest
	if j.Employer != nil && j.Employer.Email != "" {
		t, err := tasks.Submitted(tasks.ApplicationSubmittedPayload{
			ApplicationID: a.ID,
			JobID:         j.ID,
			JobTitle:      j.Title,
			EmployerEmail: j.Employer.Email,
			EmployerName:  j.Employer.Name,
			ApplicantName: a.ApplicantName,
			RequestID:     requestIDFrom(ctx),
			RequestedAt:   now,
		}, actor.ID)
		if err != nil {
			RespondInternal(ctx, "Could not submit application")
			return
		}
		outbox = append(outbox, t)
	}

	if err := h.apps.Create(cctx, a, outbox...); err != nil {
		switch {
		case errors.Is(err, application.ErrAlreadyApplied):
			h.prom.ApplicationEvent("duplicate", string(application.StatusPending))
			respondAlreadyApplied(ctx, j.ID)
		case errors.Is(err, job.ErrNotFound):
			RespondNotFound(ctx, "Job not found")
		default:
			RespondInternal(ctx, "Could not submit application")
		}
		return
	}

	h.prom.ApplicationEvent("submitted", string(a.Status))
	slog.Default().InfoContext(cctx, "application.submitted",
		"request_id", requestIDFrom(ctx),
		"application_id", a.ID,
		"job_id", j.ID,
	)

	a.Job = &j
	ctx.JSON(http.StatusCreated, gin.H{
		"message":     "Your application has been submitted.",
		"application": a,
		"redirect":    "/jobs/" + j.ID,
	})
}

// GET /job-applications?status=&job_id=&page=
func (h *ApplicationsHandler) List(ctx *gin.Context) {
	actor := middlewares.ActorFromContext(ctx)

	scope, err := policy.ApplicationScope(actor)
	if err != nil {
		respondAccessError(ctx, err)
		return
	}

	f := application.ListFilter{
		Scope:   scope,
		Page:    utils.ParsePage(ctx.Query("page")),
		PerPage: job.OwnerPageSize,
	}

	var errs []FieldError
	if v := strings.TrimSpace(ctx.Query("status")); v != "" {
		s := application.Status(v)
		if !s.IsValid() {
			param := "pending reviewed shortlisted interviewed accepted rejected"
			errs = append(errs, FieldError{Field: "status", Rule: "oneof", Param: param, Message: validationMessage("oneof", param)})
		} else {
			f.Status = &s
		}
	}
	if v := strings.TrimSpace(ctx.Query("job_id")); v != "" {
		if !utils.IsUUID(v) {
			errs = append(errs, FieldError{Field: "job_id", Rule: "uuid", Message: validationMessage("uuid", "")})
		} else {
			f.JobID = &v
		}
	}
	if len(errs) > 0 {
		RespondBadRequest(ctx, "Invalid query parameters", gin.H{"fields": errs})
		return
	}

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	items, total, err := h.apps.List(cctx, f)
	if err != nil {
		RespondInternal(ctx, "Could not list applications")
		return
	}

	ctx.JSON(http.StatusOK, utils.NewPage(items, f.Page, f.PerPage, total))
}

func (h *ApplicationsHandler) load(ctx *gin.Context, cctx context.Context) (application.Application, bool) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Job application not found")
		return application.Application{}, false
	}

	a, err := h.apps.GetByID(cctx, id)
	if err != nil {
		if !respondAccessError(ctx, err) {
			RespondInternal(ctx, "Could not fetch application")
		}
		return application.Application{}, false
	}

	ctx.Set(middlewares.CtxJobID, a.JobID)
	return a, true
}

// GET /job-applications/:id
func (h *ApplicationsHandler) GetByID(ctx *gin.Context) {
	actor := middlewares.ActorFromContext(ctx)

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	a, ok := h.load(ctx, cctx)
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.ActionViewApplication, a); err != nil {
		respondAccessError(ctx, err)
		return
	}

	// reviewer notes stay between the employer and admins
	if actor.Role == user.RoleJobSeeker {
		a.Notes = nil
	}

	ctx.JSON(http.StatusOK, gin.H{
		"application": a,
		"canEdit":     policy.CanEditApplicantDetails(actor, a),
		"canReview":   policy.CanReviewApplication(actor, a),
		"canDelete":   policy.CanDeleteApplication(actor, a),
	})
}

// PUT /job-applications/:id dispatches on role: applicants edit their own
// details, the owning employer or an admin reviews.
func (h *ApplicationsHandler) Update(ctx *gin.Context) {
	actor := middlewares.ActorFromContext(ctx)

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	a, ok := h.load(ctx, cctx)
	if !ok {
		return
	}

	if actor.Role == user.RoleJobSeeker {
		h.applicantEdit(ctx, cctx, actor, a)
		return
	}
	h.review(ctx, cctx, actor, a)
}

func (h *ApplicationsHandler) applicantEdit(ctx *gin.Context, cctx context.Context, actor policy.Actor, a application.Application) {
	if err := policy.Authorize(actor, policy.ActionEditApplication, a); err != nil {
		if errors.Is(err, policy.ErrForbidden) && a.UserID == actor.ID {
			RespondForbidden(ctx, "This application has already been reviewed and can no longer be edited.")
			return
		}
		respondAccessError(ctx, err)
		return
	}

	var req workflow.ApplicantEdit
	if !BindJSON(ctx, &req) {
		return
	}

	updated, err := workflow.ApplyApplicantEdit(a, req, h.now())
	if err != nil {
		if errors.Is(err, workflow.ErrNotPending) {
			RespondForbidden(ctx, "This application has already been reviewed and can no longer be edited.")
			return
		}
		RespondInternal(ctx, "Could not update application")
		return
	}

	if err := h.apps.UpdateApplicantDetails(cctx, updated); err != nil {
		if errors.Is(err, workflow.ErrNotPending) {
			RespondForbidden(ctx, "This application has already been reviewed and can no longer be edited.")
			return
		}
		if !respondAccessError(ctx, err) {
			RespondInternal(ctx, "Could not update application")
		}
		return
	}

	h.prom.ApplicationEvent("edited", string(updated.Status))

	ctx.JSON(http.StatusOK, gin.H{
		"message":     "Your application has been updated.",
		"application": updated,
	})
}

func (h *ApplicationsHandler) review(ctx *gin.Context, cctx context.Context, actor policy.Actor, a application.Application) {
	if err := policy.Authorize(actor, policy.ActionReviewApplication, a); err != nil {
		respondAccessError(ctx, err)
		return
	}

	var req workflow.Review
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, span := observability.StartSpan(cctx, "application.review",
		attribute.String("application.id", a.ID),
		attribute.String("application.status_from", string(a.Status)),
		attribute.String("application.status_to", req.Status),
	)
	defer span.End()

	now := h.now()
	updated, tr, err := workflow.ApplyReview(a, req, now)
	if err != nil {
		if errors.Is(err, workflow.ErrInvalidStatus) {
			param := "pending reviewed shortlisted interviewed accepted rejected"
			RespondValidation(ctx, FieldError{Field: "status", Rule: "oneof", Param: param, Message: validationMessage("oneof", param)})
			return
		}
		RespondInternal(ctx, "Could not update application")
		return
	}

	var outbox []task.CreateRequest
	if tr.Changed() {
		jobTitle := ""
		if a.Job != nil {
			jobTitle = a.Job.Title
		}
		t, err := tasks.Reviewed(tasks.ApplicationReviewedPayload{
			ApplicationID:  a.ID,
			JobID:          a.JobID,
			JobTitle:       jobTitle,
			ApplicantEmail: a.ApplicantEmail,
			ApplicantName:  a.ApplicantName,
			Status:         string(tr.To),
			RequestID:      requestIDFrom(ctx),
			RequestedAt:    now,
		}, actor.ID)
		if err != nil {
			RespondInternal(ctx, "Could not update application")
			return
		}
		outbox = append(outbox, t)
	}

	if err := h.apps.UpdateReview(cctx, updated, outbox...); err != nil {
		if !respondAccessError(ctx, err) {
			RespondInternal(ctx, "Could not update application")
		}
		return
	}

	h.prom.ApplicationEvent("reviewed", string(updated.Status))
	slog.Default().InfoContext(cctx, "application.reviewed",
		"request_id", requestIDFrom(ctx),
		"application_id", a.ID,
		"from", string(tr.From),
		"to", string(tr.To),
	)

	ctx.JSON(http.StatusOK, gin.H{
		"message":     "Application status updated.",
		"application": updated,
	})
}

// DELETE /job-applications/:id
func (h *ApplicationsHandler) Delete(ctx *gin.Context) {
	actor := middlewares.ActorFromContext(ctx)

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	a, ok := h.load(ctx, cctx)
	if !ok {
		return
	}

	if err := policy.Authorize(actor, policy.ActionDeleteApplication, a); err != nil {
		respondAccessError(ctx, err)
		return
	}

	if err := h.apps.Delete(cctx, a.ID); err != nil {
		if !respondAccessError(ctx, err) {
			RespondInternal(ctx, "Could not delete application")
		}
		return
	}

	h.prom.ApplicationEvent("deleted", string(a.Status))

	ctx.JSON(http.StatusOK, gin.H{"message": "Application withdrawn."})
}
