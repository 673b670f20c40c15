package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/category"
	"github.com/geocoder89/storejobs/internal/domain/job"
	"github.com/geocoder89/storejobs/internal/domain/user"
	"github.com/geocoder89/storejobs/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobColumns = `j.id, j.user_id, j.job_category_id, j.title, j.description, j.store_name,
	j.store_address, j.store_phone, j.salary_min, j.salary_max, j.salary_type, j.requirements,
	j.benefits, j.work_type, j.positions_available, j.application_deadline, j.status,
	j.published_at, j.created_at, j.updated_at`

const jobCategoryColumns = `c.id, c.name, c.slug, COALESCE(c.description, ''), c.is_active, c.created_at, c.updated_at`

const jobJoins = `
	FROM jobs j
	JOIN job_categories c ON c.id = j.job_category_id
	JOIN users u ON u.id = j.user_id`

// publicPredicate is the listing base filter; $1 is always the request clock.
const publicPredicate = `j.published_at IS NOT NULL AND j.published_at <= $1 AND j.status = 'active'`

type JobsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewJobsRepo(pool *pgxpool.Pool, prom *observability.Prom) *JobsRepo {
	return &JobsRepo{pool: pool, prom: prom}
}

func (r *JobsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// jobScan holds scan targets for jobColumns followed by category and employer.
type jobScan struct {
	j      job.Job
	c      category.Category
	e      user.Summary
	status string
	salary string
	work   string
}

func (s *jobScan) dest(withEmployer bool) []any {
	j := &s.j
	d := []any{
		&j.ID, &j.UserID, &j.CategoryID, &j.Title, &j.Description, &j.StoreName,
		&j.StoreAddress, &j.StorePhone, &j.SalaryMin, &j.SalaryMax, &s.salary, &j.Requirements,
		&j.Benefits, &s.work, &j.PositionsAvailable, &j.ApplicationDeadline, &s.status,
		&j.PublishedAt, &j.CreatedAt, &j.UpdatedAt,
		&s.c.ID, &s.c.Name, &s.c.Slug, &s.c.Description, &s.c.IsActive, &s.c.CreatedAt, &s.c.UpdatedAt,
	}
	if withEmployer {
		d = append(d, &s.e.ID, &s.e.Name, &s.e.Email)
	}
	return d
}

func (s *jobScan) result(withEmployer bool) job.Job {
	j := s.j
	j.Status = job.Status(s.status)
	j.SalaryType = job.SalaryType(s.salary)
	j.WorkType = job.WorkType(s.work)

	c := s.c
	j.Category = &c
	if withEmployer {
		e := s.e
		j.Employer = &e
	}
	return j
}

// escapeLike makes user input literal inside an ILIKE pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (r *JobsRepo) Create(ctx context.Context, j job.Job) error {
	err := r.observe("jobs.create", func() error {
		_, e := r.pool.Exec(ctx, `
		INSERT INTO jobs (
			id, user_id, job_category_id, title, description, store_name, store_address, store_phone,
			salary_min, salary_max, salary_type, requirements, benefits, work_type, positions_available,
			application_deadline, status, published_at, created_at, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,
			$9,$10,$11,$12,$13,$14,$15,
			$16,$17,$18,$19,$20
		)
		`,
			j.ID, j.UserID, j.CategoryID, j.Title, j.Description, j.StoreName, j.StoreAddress, j.StorePhone,
			j.SalaryMin, j.SalaryMax, string(j.SalaryType), j.Requirements, j.Benefits, string(j.WorkType), j.PositionsAvailable,
			j.ApplicationDeadline, string(j.Status), j.PublishedAt, j.CreatedAt, j.UpdatedAt,
		)
		return e
	})

	if isForeignKeyViolation(err) {
		return category.ErrNotFound
	}
	return err
}

// GetByID loads the posting with its category and employer, regardless of visibility.
func (r *JobsRepo) GetByID(ctx context.Context, id string) (job.Job, error) {
	var s jobScan

	err := r.observe("jobs.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT `+jobColumns+`, `+jobCategoryColumns+`, u.id, u.name, u.email`+jobJoins+`
			WHERE j.id = $1`, id).Scan(s.dest(true)...)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job.Job{}, job.ErrNotFound
		}
		return job.Job{}, err
	}

	return s.result(true), nil
}

// List runs the public listing query: only publicly visible postings, newest first.
func (r *JobsRepo) List(ctx context.Context, f job.ListFilter, now time.Time) ([]job.Job, int, error) {
	var conds []string
	args := []any{now}
	argsPosition := 2

	conds = append(conds, publicPredicate)

	if f.CategorySlug != nil {
		conds = append(conds, fmt.Sprintf("c.slug = $%d", argsPosition))
		args = append(args, *f.CategorySlug)
		argsPosition++
	}

	if f.Search != nil {
		conds = append(conds, fmt.Sprintf(
			"(j.title ILIKE $%d OR j.store_name ILIKE $%d OR j.description ILIKE $%d)",
			argsPosition, argsPosition, argsPosition,
		))
		args = append(args, "%"+escapeLike(*f.Search)+"%")
		argsPosition++
	}

	if f.WorkType != nil {
		conds = append(conds, fmt.Sprintf("j.work_type = $%d", argsPosition))
		args = append(args, string(*f.WorkType))
		argsPosition++
	}

	// only the upper bound has to reach the requested floor
	if f.SalaryMin != nil {
		conds = append(conds, fmt.Sprintf("j.salary_max >= $%d", argsPosition))
		args = append(args, *f.SalaryMin)
		argsPosition++
	}

	query := `SELECT ` + jobColumns + `, ` + jobCategoryColumns + `, u.id, u.name, u.email,
		COUNT(*) OVER() AS total` + jobJoins + `
		WHERE ` + strings.Join(conds, " AND ")

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY j.published_at DESC, j.id DESC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)
	args = append(args, f.PerPage, f.Offset())

	return r.queryPage(ctx, "jobs.list_public", query, args, f.PerPage, true, false)
}

// ListByOwner returns the owner's postings in every status with their application counts.
func (r *JobsRepo) ListByOwner(ctx context.Context, f job.OwnerFilter) ([]job.Job, int, error) {
	query := `SELECT ` + jobColumns + `, ` + jobCategoryColumns + `,
		(SELECT COUNT(*) FROM job_applications a WHERE a.job_id = j.id) AS applications_count,
		COUNT(*) OVER() AS total
		FROM jobs j
		JOIN job_categories c ON c.id = j.job_category_id
		WHERE j.user_id = $1
		ORDER BY j.created_at DESC, j.id DESC
		LIMIT $2 OFFSET $3`

	return r.queryPage(ctx, "jobs.list_by_owner", query, []any{f.OwnerID, f.PerPage, f.Offset()}, f.PerPage, false, true)
}

func (r *JobsRepo) queryPage(ctx context.Context, op, query string, args []any, capHint int, withEmployer, withCount bool) ([]job.Job, int, error) {
	var rows pgx.Rows

	err := r.observe(op, func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, query, args...)
		return qerr
	})
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]job.Job, 0, capHint)
	total := 0

	for rows.Next() {
		var s jobScan
		var count, t int

		dest := s.dest(withEmployer)
		if withCount {
			dest = append(dest, &count)
		}
		dest = append(dest, &t)

		if err := rows.Scan(dest...); err != nil {
			r.prom.DBError(op, "scan")
			return nil, 0, err
		}

		j := s.result(withEmployer)
		if withCount {
			c := count
			j.ApplicationsCount = &c
		}

		total = t
		out = append(out, j)
	}

	if err := rows.Err(); err != nil {
		r.prom.DBError(op, "rows_err")
		return nil, 0, err
	}

	return out, total, nil
}

// Update persists the writable attributes; ownership and publication never change here.
func (r *JobsRepo) Update(ctx context.Context, j job.Job) error {
	var tag pgconn.CommandTag

	err := r.observe("jobs.update", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `
		UPDATE jobs
		SET job_category_id = $2,
		    title = $3,
		    description = $4,
		    store_name = $5,
		    store_address = $6,
		    store_phone = $7,
		    salary_min = $8,
		    salary_max = $9,
		    salary_type = $10,
		    requirements = $11,
		    benefits = $12,
		    work_type = $13,
		    positions_available = $14,
		    application_deadline = $15,
		    status = $16,
		    updated_at = $17
		WHERE id = $1
		`,
			j.ID, j.CategoryID, j.Title, j.Description, j.StoreName, j.StoreAddress, j.StorePhone,
			j.SalaryMin, j.SalaryMax, string(j.SalaryType), j.Requirements, j.Benefits, string(j.WorkType),
			j.PositionsAvailable, j.ApplicationDeadline, string(j.Status), j.UpdatedAt,
		)
		return e
	})

	if err != nil {
		if isForeignKeyViolation(err) {
			return category.ErrNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return job.ErrNotFound
	}
	return nil
}

// Delete removes the posting; its applications go with it via the FK cascade.
func (r *JobsRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("jobs.delete", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
		return e
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return job.ErrNotFound
	}
	return nil
}
