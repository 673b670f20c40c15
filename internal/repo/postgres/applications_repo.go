package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/storejobs/internal/domain/application"
	"github.com/geocoder89/storejobs/internal/domain/job"
	"github.com/geocoder89/storejobs/internal/domain/task"
	"github.com/geocoder89/storejobs/internal/domain/user"
	"github.com/geocoder89/storejobs/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationsJobUserUniq = "job_applications_job_user_uniq"

const applicationColumns = `a.id, a.job_id, a.user_id, a.applicant_name, a.applicant_phone,
	a.applicant_email, a.applicant_address, a.cover_letter, a.experience, a.skills, a.cv_file_path,
	a.status, a.notes, a.reviewed_at, a.created_at, a.updated_at`

const applicationJoins = `
	FROM job_applications a
	JOIN jobs j ON j.id = a.job_id
	JOIN job_categories c ON c.id = j.job_category_id
	JOIN users u ON u.id = a.user_id`

type ApplicationsRepo struct {
	pool  *pgxpool.Pool
	prom  *observability.Prom
	tasks *TasksRepo
}

func NewApplicationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ApplicationsRepo {
	return &ApplicationsRepo{
		pool:  pool,
		prom:  prom,
		tasks: NewTasksRepo(pool, prom),
	}
}

func (repo *ApplicationsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

type applicationScan struct {
	a         application.Application
	status    string
	job       jobScan
	applicant user.Summary
}

func (s *applicationScan) dest() []any {
	a := &s.a
	d := []any{
		&a.ID, &a.JobID, &a.UserID, &a.ApplicantName, &a.ApplicantPhone,
		&a.ApplicantEmail, &a.ApplicantAddress, &a.CoverLetter, &a.Experience, &a.Skills, &a.CVFilePath,
		&s.status, &a.Notes, &a.ReviewedAt, &a.CreatedAt, &a.UpdatedAt,
	}
	d = append(d, s.job.dest(false)...)
	return append(d, &s.applicant.ID, &s.applicant.Name, &s.applicant.Email)
}

func (s *applicationScan) result() application.Application {
	a := s.a
	a.Status = application.Status(s.status)

	j := s.job.result(false)
	a.Job = &j
	a.JobOwnerID = j.UserID

	applicant := s.applicant
	a.Applicant = &applicant

	return a
}

// Exists reports whether userID already applied to jobID.
func (repo *ApplicationsRepo) Exists(ctx context.Context, jobID, userID string) (bool, error) {
	var exists bool

	err := repo.observe("applications.exists", func() error {
		return repo.pool.QueryRow(ctx, `SELECT EXISTS(
			SELECT 1 FROM job_applications
			WHERE job_id = $1 AND user_id = $2
		)`, jobID, userID).Scan(&exists)
	})

	return exists, err
}

// Create inserts the application and its outbox tasks atomically. The unique
// constraint on (job_id, user_id) is the final word on duplicates.
func (repo *ApplicationsRepo) Create(ctx context.Context, a application.Application, tasks ...task.CreateRequest) (err error) {
	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = repo.observe("applications.create_tx.insert", func() error {
		_, e := tx.Exec(ctx, `
		INSERT INTO job_applications (
			id, job_id, user_id, applicant_name, applicant_phone, applicant_email, applicant_address,
			cover_letter, experience, skills, cv_file_path, status, notes, reviewed_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		`,
			a.ID, a.JobID, a.UserID, a.ApplicantName, a.ApplicantPhone, a.ApplicantEmail, a.ApplicantAddress,
			a.CoverLetter, a.Experience, a.Skills, a.CVFilePath, string(a.Status), a.Notes, a.ReviewedAt, a.CreatedAt, a.UpdatedAt,
		)
		return e
	})

	if err != nil {
		if isConstraintViolation(err, pgUniqueViolation, applicationsJobUserUniq) {
			err = application.ErrAlreadyApplied
			return
		}
		if isForeignKeyViolation(err) {
			err = job.ErrNotFound
		}
		return
	}

	for _, req := range tasks {
		if _, err = repo.tasks.CreateTx(ctx, tx, req); err != nil {
			return
		}
	}

	err = tx.Commit(ctx)
	return
}

func (repo *ApplicationsRepo) GetByID(ctx context.Context, id string) (application.Application, error) {
	var s applicationScan

	err := repo.observe("applications.get_by_id", func() error {
		return repo.pool.QueryRow(ctx,
			`SELECT `+applicationColumns+`, `+jobColumns+`, `+jobCategoryColumns+`, u.id, u.name, u.email`+
				applicationJoins+` WHERE a.id = $1`, id,
		).Scan(s.dest()...)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return application.Application{}, application.ErrNotFound
		}
		return application.Application{}, err
	}

	return s.result(), nil
}

// List returns a page of applications inside the filter's scope, newest first.
func (repo *ApplicationsRepo) List(ctx context.Context, f application.ListFilter) ([]application.Application, int, error) {
	var conds []string
	var args []any
	argsPosition := 1

	if f.Scope.ApplicantID != nil {
		conds = append(conds, fmt.Sprintf("a.user_id = $%d", argsPosition))
		args = append(args, *f.Scope.ApplicantID)
		argsPosition++
	}

	if f.Scope.EmployerID != nil {
		conds = append(conds, fmt.Sprintf("j.user_id = $%d", argsPosition))
		args = append(args, *f.Scope.EmployerID)
		argsPosition++
	}

	if f.Status != nil {
		conds = append(conds, fmt.Sprintf("a.status = $%d", argsPosition))
		args = append(args, string(*f.Status))
		argsPosition++
	}

	if f.JobID != nil {
		conds = append(conds, fmt.Sprintf("a.job_id = $%d", argsPosition))
		args = append(args, *f.JobID)
		argsPosition++
	}

	query := `SELECT ` + applicationColumns + `, ` + jobColumns + `, ` + jobCategoryColumns + `, u.id, u.name, u.email,
		COUNT(*) OVER() AS total` + applicationJoins

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY a.created_at DESC, a.id DESC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)
	args = append(args, f.PerPage, f.Offset())

	var rows pgx.Rows
	err := repo.observe("applications.list", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, query, args...)
		return qerr
	})
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]application.Application, 0, f.PerPage)
	total := 0

	for rows.Next() {
		var s applicationScan
		var t int

		if err := rows.Scan(append(s.dest(), &t)...); err != nil {
			return nil, 0, err
		}

		total = t
		out = append(out, s.result())
	}

	if err := rows.Err(); err != nil {
		repo.prom.DBError("applications.list", "rows_err")
		return nil, 0, err
	}

	return out, total, nil
}

// UpdateApplicantDetails writes only the applicant-owned columns, and only
// while the row is still pending. A review that commits first wins.
func (repo *ApplicationsRepo) UpdateApplicantDetails(ctx context.Context, a application.Application) error {
	var tag pgconn.CommandTag

	err := repo.observe("applications.update_applicant", func() error {
		var e error
		tag, e = repo.pool.Exec(ctx, `
		UPDATE job_applications
		SET applicant_name = $2,
		    applicant_phone = $3,
		    applicant_email = $4,
		    applicant_address = $5,
		    cover_letter = $6,
		    experience = $7,
		    skills = $8,
		    updated_at = $9
		WHERE id = $1 AND status = 'pending'
		`,
			a.ID, a.ApplicantName, a.ApplicantPhone, a.ApplicantEmail, a.ApplicantAddress,
			a.CoverLetter, a.Experience, a.Skills, a.UpdatedAt,
		)
		return e
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return repo.missOrReviewed(ctx, a.ID)
	}
	return nil
}

// missOrReviewed tells a vanished row apart from one a reviewer already moved.
func (repo *ApplicationsRepo) missOrReviewed(ctx context.Context, id string) error {
	var exists bool
	err := repo.observe("applications.exists_by_id", func() error {
		return repo.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM job_applications WHERE id = $1)`, id).Scan(&exists)
	})
	if err != nil {
		return err
	}
	if !exists {
		return application.ErrNotFound
	}
	return application.ErrNotPending
}

// UpdateReview writes the reviewer-owned columns and any follow-up tasks in
// one transaction.
func (repo *ApplicationsRepo) UpdateReview(ctx context.Context, a application.Application, outbox ...task.CreateRequest) (err error) {
	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var tag pgconn.CommandTag
	err = repo.observe("applications.update_review_tx.update", func() error {
		var e error
		tag, e = tx.Exec(ctx, `
		UPDATE job_applications
		SET status = $2,
		    notes = $3,
		    reviewed_at = $4,
		    updated_at = $5
		WHERE id = $1
		`,
			a.ID, string(a.Status), a.Notes, a.ReviewedAt, a.UpdatedAt,
		)
		return e
	})
	if err != nil {
		return
	}

	if tag.RowsAffected() == 0 {
		err = application.ErrNotFound
		return
	}

	for _, req := range outbox {
		if _, err = repo.tasks.CreateTx(ctx, tx, req); err != nil {
			return
		}
	}

	err = tx.Commit(ctx)
	return
}

func (repo *ApplicationsRepo) Delete(ctx context.Context, id string) (err error) {
	var tag pgconn.CommandTag

	err = repo.observe("applications.delete", func() error {
		var e error
		tag, e = repo.pool.Exec(ctx, `DELETE FROM job_applications WHERE id = $1`, id)
		return e
	})
	if err != nil {
		return
	}

	if tag.RowsAffected() == 0 {
		err = application.ErrNotFound
	}
	return
}
