package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/storejobs/internal/domain/application"
	"github.com/geocoder89/storejobs/internal/domain/job"
	"github.com/geocoder89/storejobs/internal/policy"
	"github.com/gin-gonic/gin"
)

// respondAccessError maps policy and not-found outcomes onto the error envelope.
// It reports false when err is none of them.
func respondAccessError(ctx *gin.Context, err error) bool {
	switch {
	case errors.Is(err, policy.ErrUnauthenticated):
		RespondUnAuthorized(ctx, "unauthorized", "Please sign in to continue.")
	case errors.Is(err, policy.ErrForbidden):
		RespondForbidden(ctx, "You are not allowed to perform this action.")
	case errors.Is(err, job.ErrNotFound):
		RespondNotFound(ctx, "Job not found")
	case errors.Is(err, application.ErrNotFound):
		RespondNotFound(ctx, "Job application not found")
	default:
		return false
	}
	return true
}

// respondAlreadyApplied sends the conflict with the posting the client should go back to.
func respondAlreadyApplied(ctx *gin.Context, jobID string) {
	RespondError(ctx, http.StatusConflict, "already_applied", "You have already applied for this job.", gin.H{
		"jobId":    jobID,
		"redirect": "/jobs/" + jobID,
	})
}
