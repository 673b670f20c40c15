// Package policy decides whether an actor may perform an action on a job
// posting or a job application. Every decision is a pure function of the
// actor, the action and the loaded resource; nothing here reads ambient state.
package policy

import (
	"errors"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/application"
	"github.com/geocoder89/storejobs/internal/domain/job"
	"github.com/geocoder89/storejobs/internal/domain/user"
)

var (
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("authentication required")
	ErrUnknownAction   = errors.New("unknown action for resource")
)

// Actor is the identity executing a request. The zero value is anonymous.
type Actor struct {
	ID   string
	Role user.Role
}

func Anonymous() Actor { return Actor{} }

func (a Actor) IsAuthenticated() bool {
	return a.ID != "" && a.Role.IsValid()
}

type Action string

const (
	ActionViewJob   Action = "job.view"
	ActionCreateJob Action = "job.create"
	ActionUpdateJob Action = "job.update"
	ActionDeleteJob Action = "job.delete"
	ActionListMyJob Action = "job.list_mine"

	ActionApply             Action = "application.create"
	ActionViewApplication   Action = "application.view"
	ActionEditApplication   Action = "application.edit"
	ActionReviewApplication Action = "application.review"
	ActionDeleteApplication Action = "application.delete"
	ActionListApplications  Action = "application.list"
)

// JobTarget wraps a posting with the clock used for visibility checks.
type JobTarget struct {
	Job job.Job
	Now time.Time
}

// ApplyTarget is the resource for ActionApply: the posting plus whether the
// actor already holds an application for it.
type ApplyTarget struct {
	Job            job.Job
	AlreadyApplied bool
}

// Authorize returns nil when allowed, ErrUnauthenticated for anonymous actors on
// protected actions, ErrForbidden for denials and application.ErrAlreadyApplied
// for a duplicate submission.
func Authorize(actor Actor, action Action, resource any) error {
	switch action {
	case ActionViewJob:
		t, ok := resource.(JobTarget)
		if !ok {
			return ErrUnknownAction
		}
		return viewJob(actor, t)

	case ActionCreateJob, ActionListMyJob:
		if !actor.IsAuthenticated() {
			return ErrUnauthenticated
		}
		switch actor.Role {
		case user.RoleEmployer, user.RoleAdmin:
			return nil
		default:
			return ErrForbidden
		}

	case ActionUpdateJob, ActionDeleteJob:
		j, ok := resource.(job.Job)
		if !ok {
			return ErrUnknownAction
		}
		return manageJob(actor, j)

	case ActionApply:
		t, ok := resource.(ApplyTarget)
		if !ok {
			return ErrUnknownAction
		}
		return apply(actor, t)

	case ActionListApplications:
		if !actor.IsAuthenticated() {
			return ErrUnauthenticated
		}
		return nil

	case ActionViewApplication, ActionEditApplication, ActionReviewApplication, ActionDeleteApplication:
		a, ok := resource.(application.Application)
		if !ok {
			return ErrUnknownAction
		}
		return onApplication(actor, action, a)

	default:
		return ErrUnknownAction
	}
}

// Can is Authorize collapsed to a bool.
func Can(actor Actor, action Action, resource any) bool {
	return Authorize(actor, action, resource) == nil
}

func viewJob(actor Actor, t JobTarget) error {
	if t.Job.IsPubliclyVisible(t.Now) {
		return nil
	}

	switch actor.Role {
	case user.RoleAdmin:
		if actor.IsAuthenticated() {
			return nil
		}
	case user.RoleEmployer:
		if actor.IsAuthenticated() && t.Job.UserID == actor.ID {
			return nil
		}
	}

	// hidden postings look missing to everyone else
	return job.ErrNotFound
}

func manageJob(actor Actor, j job.Job) error {
	if !actor.IsAuthenticated() {
		return ErrUnauthenticated
	}

	switch actor.Role {
	case user.RoleAdmin:
		return nil
	case user.RoleEmployer:
		if j.UserID == actor.ID {
			return nil
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}

func apply(actor Actor, t ApplyTarget) error {
	if !actor.IsAuthenticated() {
		return ErrUnauthenticated
	}

	switch actor.Role {
	case user.RoleJobSeeker:
		if t.AlreadyApplied {
			return application.ErrAlreadyApplied
		}
		return nil
	default:
		return ErrForbidden
	}
}

func onApplication(actor Actor, action Action, a application.Application) error {
	if !actor.IsAuthenticated() {
		return ErrUnauthenticated
	}

	isApplicant := a.UserID == actor.ID
	ownsJob := a.JobOwnerID != "" && a.JobOwnerID == actor.ID
	pending := a.Status == application.StatusPending

	switch actor.Role {
	case user.RoleAdmin:
		switch action {
		case ActionViewApplication, ActionReviewApplication, ActionDeleteApplication:
			return nil
		default:
			// applicant content belongs to the applicant alone
			return ErrForbidden
		}

	case user.RoleEmployer:
		if !ownsJob {
			return ErrForbidden
		}
		switch action {
		case ActionViewApplication, ActionReviewApplication:
			return nil
		default:
			return ErrForbidden
		}

	case user.RoleJobSeeker:
		if !isApplicant {
			return ErrForbidden
		}
		switch action {
		case ActionViewApplication:
			return nil
		case ActionEditApplication, ActionDeleteApplication:
			if pending {
				return nil
			}
			return ErrForbidden
		default:
			return ErrForbidden
		}
	}

	return ErrForbidden
}

// ApplicationScope returns the listing scope for "my applications":
// seekers see their own, employers see those on their postings, admins see all.
func ApplicationScope(actor Actor) (application.Scope, error) {
	if !actor.IsAuthenticated() {
		return application.Scope{}, ErrUnauthenticated
	}

	id := actor.ID

	switch actor.Role {
	case user.RoleJobSeeker:
		return application.Scope{ApplicantID: &id}, nil
	case user.RoleEmployer:
		return application.Scope{EmployerID: &id}, nil
	case user.RoleAdmin:
		return application.Scope{}, nil
	default:
		return application.Scope{}, ErrForbidden
	}
}

func CanViewJob(actor Actor, j job.Job, now time.Time) bool {
	return Can(actor, ActionViewJob, JobTarget{Job: j, Now: now})
}

func CanCreateJob(actor Actor) bool { return Can(actor, ActionCreateJob, nil) }

func CanListMyJobs(actor Actor) bool { return Can(actor, ActionListMyJob, nil) }

// CanManageJob covers both edit and delete; they share one rule.
func CanManageJob(actor Actor, j job.Job) bool { return Can(actor, ActionUpdateJob, j) }

func CanApply(actor Actor, j job.Job, alreadyApplied bool) bool {
	return Can(actor, ActionApply, ApplyTarget{Job: j, AlreadyApplied: alreadyApplied})
}

func CanViewApplication(actor Actor, a application.Application) bool {
	return Can(actor, ActionViewApplication, a)
}

func CanEditApplicantDetails(actor Actor, a application.Application) bool {
	return Can(actor, ActionEditApplication, a)
}

func CanReviewApplication(actor Actor, a application.Application) bool {
	return Can(actor, ActionReviewApplication, a)
}

func CanDeleteApplication(actor Actor, a application.Application) bool {
	return Can(actor, ActionDeleteApplication, a)
}
