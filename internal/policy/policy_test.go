package policy_test

import (
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/application"
	"github.com/geocoder89/storejobs/internal/domain/job"
	"github.com/geocoder89/storejobs/internal/domain/user"
	"github.com/geocoder89/storejobs/internal/policy"
)

var (
	admin     = policy.Actor{ID: "admin-1", Role: user.RoleAdmin}
	employer  = policy.Actor{ID: "emp-1", Role: user.RoleEmployer}
	otherEmp  = policy.Actor{ID: "emp-2", Role: user.RoleEmployer}
	seeker    = policy.Actor{ID: "seek-1", Role: user.RoleJobSeeker}
	otherSeek = policy.Actor{ID: "seek-2", Role: user.RoleJobSeeker}
	anon      = policy.Anonymous()
)

func postedJob(status job.Status, publishedAt *time.Time) job.Job {
	return job.Job{ID: "job-1", UserID: employer.ID, Status: status, PublishedAt: publishedAt}
}

func TestAuthorize_ViewJob(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		actor   policy.Actor
		job     job.Job
		wantErr error
	}{
		{"anonymous_sees_published_active", anon, postedJob(job.StatusActive, &past), nil},
		{"anonymous_cannot_see_draft", anon, postedJob(job.StatusDraft, &past), job.ErrNotFound},
		{"seeker_cannot_see_future_publication", seeker, postedJob(job.StatusActive, &future), job.ErrNotFound},
		{"seeker_cannot_see_unpublished", seeker, postedJob(job.StatusActive, nil), job.ErrNotFound},
		{"owner_sees_paused", employer, postedJob(job.StatusPaused, &past), nil},
		{"other_employer_cannot_see_paused", otherEmp, postedJob(job.StatusPaused, &past), job.ErrNotFound},
		{"admin_sees_closed", admin, postedJob(job.StatusClosed, &past), nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Authorize(tt.actor, policy.ActionViewJob, policy.JobTarget{Job: tt.job, Now: now})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthorize_CreateAndManageJob(t *testing.T) {
	j := postedJob(job.StatusActive, nil)

	if err := policy.Authorize(anon, policy.ActionCreateJob, nil); !errors.Is(err, policy.ErrUnauthenticated) {
		t.Fatalf("anonymous create: got %v", err)
	}
	if err := policy.Authorize(seeker, policy.ActionCreateJob, nil); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("seeker create: got %v", err)
	}
	for _, a := range []policy.Actor{employer, admin} {
		if !policy.Can(a, policy.ActionCreateJob, nil) {
			t.Fatalf("%s should be able to create jobs", a.Role)
		}
	}

	for _, action := range []policy.Action{policy.ActionUpdateJob, policy.ActionDeleteJob} {
		if !policy.Can(employer, action, j) {
			t.Fatalf("owner should be allowed %s", action)
		}
		if !policy.Can(admin, action, j) {
			t.Fatalf("admin should be allowed %s", action)
		}
		if err := policy.Authorize(otherEmp, action, j); !errors.Is(err, policy.ErrForbidden) {
			t.Fatalf("non-owner %s: got %v", action, err)
		}
		if err := policy.Authorize(seeker, action, j); !errors.Is(err, policy.ErrForbidden) {
			t.Fatalf("seeker %s: got %v", action, err)
		}
	}
}

func TestAuthorize_Apply(t *testing.T) {
	j := postedJob(job.StatusActive, nil)

	if !policy.Can(seeker, policy.ActionApply, policy.ApplyTarget{Job: j}) {
		t.Fatalf("seeker should be able to apply")
	}

	err := policy.Authorize(seeker, policy.ActionApply, policy.ApplyTarget{Job: j, AlreadyApplied: true})
	if !errors.Is(err, application.ErrAlreadyApplied) {
		t.Fatalf("duplicate apply: got %v, want ErrAlreadyApplied", err)
	}

	for _, a := range []policy.Actor{employer, admin} {
		if err := policy.Authorize(a, policy.ActionApply, policy.ApplyTarget{Job: j}); !errors.Is(err, policy.ErrForbidden) {
			t.Fatalf("%s apply: got %v", a.Role, err)
		}
	}
}

func TestAuthorize_ApplicationActions(t *testing.T) {
	pending := application.Application{ID: "app-1", UserID: seeker.ID, JobOwnerID: employer.ID, Status: application.StatusPending}
	accepted := pending
	accepted.Status = application.StatusAccepted

	tests := []struct {
		name   string
		actor  policy.Actor
		action policy.Action
		app    application.Application
		allow  bool
	}{
		{"applicant_views_own", seeker, policy.ActionViewApplication, pending, true},
		{"other_seeker_cannot_view", otherSeek, policy.ActionViewApplication, pending, false},
		{"owner_employer_views", employer, policy.ActionViewApplication, pending, true},
		{"other_employer_cannot_view", otherEmp, policy.ActionViewApplication, pending, false},
		{"admin_views", admin, policy.ActionViewApplication, pending, true},

		{"applicant_edits_pending", seeker, policy.ActionEditApplication, pending, true},
		{"applicant_cannot_edit_reviewed", seeker, policy.ActionEditApplication, accepted, false},
		{"other_seeker_cannot_edit", otherSeek, policy.ActionEditApplication, pending, false},
		{"employer_cannot_edit_applicant_fields", employer, policy.ActionEditApplication, pending, false},
		{"admin_cannot_edit_applicant_fields", admin, policy.ActionEditApplication, pending, false},

		{"owner_employer_reviews", employer, policy.ActionReviewApplication, pending, true},
		{"owner_employer_reviews_again", employer, policy.ActionReviewApplication, accepted, true},
		{"other_employer_cannot_review", otherEmp, policy.ActionReviewApplication, pending, false},
		{"admin_reviews", admin, policy.ActionReviewApplication, accepted, true},
		{"applicant_cannot_review", seeker, policy.ActionReviewApplication, pending, false},

		{"applicant_deletes_pending", seeker, policy.ActionDeleteApplication, pending, true},
		{"applicant_cannot_delete_reviewed", seeker, policy.ActionDeleteApplication, accepted, false},
		{"admin_deletes", admin, policy.ActionDeleteApplication, accepted, true},
		{"employer_cannot_delete", employer, policy.ActionDeleteApplication, pending, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Authorize(tt.actor, tt.action, tt.app)
			if tt.allow && err != nil {
				t.Fatalf("expected allow, got %v", err)
			}
			if !tt.allow && !errors.Is(err, policy.ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
		})
	}
}

func TestAuthorize_ForeignSeekerAlwaysForbidden(t *testing.T) {
	statuses := []application.Status{
		application.StatusPending, application.StatusReviewed, application.StatusShortlisted,
		application.StatusInterviewed, application.StatusAccepted, application.StatusRejected,
	}
	actions := []policy.Action{policy.ActionViewApplication, policy.ActionEditApplication, policy.ActionDeleteApplication}

	for _, st := range statuses {
		a := application.Application{UserID: seeker.ID, JobOwnerID: employer.ID, Status: st}
		for _, action := range actions {
			if err := policy.Authorize(otherSeek, action, a); !errors.Is(err, policy.ErrForbidden) {
				t.Fatalf("status=%s action=%s: got %v", st, action, err)
			}
		}
	}
}

func TestAuthorize_AnonymousOnApplications(t *testing.T) {
	a := application.Application{UserID: seeker.ID, JobOwnerID: employer.ID, Status: application.StatusPending}
	if err := policy.Authorize(anon, policy.ActionViewApplication, a); !errors.Is(err, policy.ErrUnauthenticated) {
		t.Fatalf("got %v, want ErrUnauthenticated", err)
	}
}

func TestAuthorize_WrongResourceType(t *testing.T) {
	if err := policy.Authorize(admin, policy.ActionUpdateJob, "not-a-job"); !errors.Is(err, policy.ErrUnknownAction) {
		t.Fatalf("got %v, want ErrUnknownAction", err)
	}
}

func TestApplicationScope(t *testing.T) {
	s, err := policy.ApplicationScope(seeker)
	if err != nil || s.ApplicantID == nil || *s.ApplicantID != seeker.ID || s.EmployerID != nil {
		t.Fatalf("seeker scope: %+v err=%v", s, err)
	}

	s, err = policy.ApplicationScope(employer)
	if err != nil || s.EmployerID == nil || *s.EmployerID != employer.ID || s.ApplicantID != nil {
		t.Fatalf("employer scope: %+v err=%v", s, err)
	}

	s, err = policy.ApplicationScope(admin)
	if err != nil || s.ApplicantID != nil || s.EmployerID != nil {
		t.Fatalf("admin scope: %+v err=%v", s, err)
	}

	if _, err := policy.ApplicationScope(anon); !errors.Is(err, policy.ErrUnauthenticated) {
		t.Fatalf("anonymous scope: got %v", err)
	}
}

func TestNamedHelpersAgreeWithAuthorize(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	j := postedJob(job.StatusDraft, &past)
	a := application.Application{UserID: seeker.ID, JobOwnerID: employer.ID, Status: application.StatusPending}

	if policy.CanViewJob(seeker, j, now) {
		t.Fatalf("draft must be hidden from seekers")
	}
	if !policy.CanViewJob(employer, j, now) {
		t.Fatalf("owner must see own draft")
	}
	if !policy.CanCreateJob(employer) || policy.CanCreateJob(seeker) {
		t.Fatalf("CanCreateJob mismatch")
	}
	if !policy.CanListMyJobs(admin) || policy.CanListMyJobs(seeker) {
		t.Fatalf("CanListMyJobs mismatch")
	}
	if !policy.CanManageJob(employer, j) || policy.CanManageJob(otherEmp, j) {
		t.Fatalf("CanManageJob mismatch")
	}
	if !policy.CanApply(seeker, j, false) || policy.CanApply(seeker, j, true) {
		t.Fatalf("CanApply mismatch")
	}
	if !policy.CanViewApplication(employer, a) || !policy.CanEditApplicantDetails(seeker, a) {
		t.Fatalf("application view/edit mismatch")
	}
	if !policy.CanReviewApplication(admin, a) || policy.CanReviewApplication(seeker, a) {
		t.Fatalf("CanReviewApplication mismatch")
	}
	if !policy.CanDeleteApplication(seeker, a) || policy.CanDeleteApplication(employer, a) {
		t.Fatalf("CanDeleteApplication mismatch")
	}
}
