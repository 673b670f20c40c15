package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/storejobs/internal/auth"
	"github.com/geocoder89/storejobs/internal/cache"
	"github.com/geocoder89/storejobs/internal/config"
	"github.com/geocoder89/storejobs/internal/domain/category"
	"github.com/geocoder89/storejobs/internal/domain/task"
	"github.com/geocoder89/storejobs/internal/domain/user"
	apphttp "github.com/geocoder89/storejobs/internal/http"
	"github.com/geocoder89/storejobs/internal/repo/memory"
	"github.com/geocoder89/storejobs/internal/security"
	"github.com/geocoder89/storejobs/internal/tasks"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
)

type board struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Store
	jwt    *auth.Manager
	cats   []category.Category
}

func newBoard(t *testing.T) *board {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	cats := store.Categories().Seed(category.Defaults)
	jwt := auth.NewManager("test-secret-key", time.Hour, 24*time.Hour)

	router := apphttp.NewRouter(apphttp.Deps{
		Log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		Cfg:           config.Config{Env: "test"},
		JWT:           jwt,
		Users:         store.Users(),
		RefreshTokens: store.RefreshTokens(),
		Categories:    store.Categories(),
		Jobs:          store.Jobs(),
		Applications:  store.Applications(),
		Tasks:         store.Tasks(),
		ListCache:     cache.NewMemory(),
		Guard:         cache.NewMemoryGuard(),
	})

	return &board{t: t, router: router, store: store, jwt: jwt, cats: cats}
}

// member inserts a user straight into the store and returns a bearer token for them.
func (b *board) member(name string, role user.Role) (user.User, string) {
	b.t.Helper()

	now := time.Now().UTC()
	phone := "0812000111"
	u := user.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		PasswordHash: "x",
		Name:         name,
		Role:         role,
		Phone:        &phone,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := b.store.Users().Create(context.Background(), u); err != nil {
		b.t.Fatalf("create user: %v", err)
	}

	token, err := b.jwt.GenerateAccessToken(auth.IdentityOf(u))
	if err != nil {
		b.t.Fatalf("token: %v", err)
	}
	return u, token
}

func (b *board) do(method, path, token, body string) *httptest.ResponseRecorder {
	b.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v body=%s", err, w.Body.String())
	}
	return out
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type jobBody struct {
	Job struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		WorkType string `json:"workType"`
	} `json:"job"`
}

func (b *board) postJob(token, title, workType, status string) string {
	b.t.Helper()

	body := `{
		"jobCategoryId": "` + b.cats[0].ID + `",
		"title": "` + title + `",
		"description": "Melayani pembeli di kasir",
		"storeName": "Toko Maju",
		"storeAddress": "Jl. Pasar 3",
		"storePhone": "0271555",
		"salaryMin": 1500000,
		"salaryMax": 2500000,
		"workType": "` + workType + `",
		"positionsAvailable": 2`
	if status != "" {
		body += `, "status": "` + status + `"`
	}
	body += `}`

	w := b.do(http.MethodPost, "/jobs", token, body)
	if w.Code != http.StatusCreated {
		b.t.Fatalf("create job got %d body=%s", w.Code, w.Body.String())
	}
	return decode[jobBody](b.t, w).Job.ID
}

func applyBody(jobID string) string {
	return `{
		"jobId": "` + jobID + `",
		"applicantName": "Sari",
		"applicantPhone": "0812000111",
		"applicantEmail": "sari@example.com",
		"applicantAddress": "Jl. Melati 5",
		"coverLetter": "Saya siap bekerja shift pagi."
	}`
}

func TestRouter_ApplyFlow(t *testing.T) {
	b := newBoard(t)
	_, empToken := b.member("Budi Employer", user.RoleEmployer)
	_, seekerToken := b.member("Sari Seeker", user.RoleJobSeeker)

	jobID := b.postJob(empToken, "Kasir Shift Pagi", "part-time", "")

	// anonymous visitors can read but not apply
	w := b.do(http.MethodGet, "/jobs/"+jobID, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous job detail got %d", w.Code)
	}
	detail := decode[struct {
		HasApplied bool `json:"hasApplied"`
		CanApply   bool `json:"canApply"`
		CanManage  bool `json:"canManage"`
	}](t, w)
	if detail.HasApplied || detail.CanApply || detail.CanManage {
		t.Fatalf("anonymous flags = %+v, want all false", detail)
	}

	if w := b.do(http.MethodGet, "/apply?job_id="+jobID, "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous apply form got %d, want 401", w.Code)
	}

	// form is prefilled from the profile
	w = b.do(http.MethodGet, "/apply?job_id="+jobID, seekerToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("apply form got %d body=%s", w.Code, w.Body.String())
	}
	form := decode[struct {
		Prefill map[string]string `json:"prefill"`
	}](t, w)
	if form.Prefill["applicantName"] != "Sari Seeker" || form.Prefill["applicantPhone"] != "0812000111" {
		t.Fatalf("prefill = %v", form.Prefill)
	}

	// submit
	w = b.do(http.MethodPost, "/job-applications", seekerToken, applyBody(jobID))
	if w.Code != http.StatusCreated {
		t.Fatalf("submit got %d body=%s", w.Code, w.Body.String())
	}
	submitted := decode[struct {
		Redirect    string `json:"redirect"`
		Application struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"application"`
	}](t, w)
	if submitted.Application.Status != "pending" {
		t.Fatalf("status = %s, want pending", submitted.Application.Status)
	}
	if submitted.Redirect != "/jobs/"+jobID {
		t.Fatalf("redirect = %s", submitted.Redirect)
	}

	// the employer notification is queued with the application
	all := b.store.Tasks().All()
	if len(all) != 1 || all[0].Type != string(tasks.TypeApplicationSubmitted) {
		t.Fatalf("outbox = %+v, want one submitted task", all)
	}

	// duplicate
	w = b.do(http.MethodPost, "/job-applications", seekerToken, applyBody(jobID))
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate submit got %d, want 409", w.Code)
	}
	dup := decode[errorBody](t, w)
	if dup.Error.Code != "already_applied" || dup.Error.Details["redirect"] != "/jobs/"+jobID {
		t.Fatalf("duplicate error = %+v", dup.Error)
	}

	// detail now reflects the application
	w = b.do(http.MethodGet, "/jobs/"+jobID, seekerToken, "")
	detail = decode[struct {
		HasApplied bool `json:"hasApplied"`
		CanApply   bool `json:"canApply"`
		CanManage  bool `json:"canManage"`
	}](t, w)
	if !detail.HasApplied || detail.CanApply {
		t.Fatalf("seeker flags after apply = %+v", detail)
	}

	// employers never apply
	w = b.do(http.MethodPost, "/job-applications", empToken, applyBody(jobID))
	if w.Code != http.StatusForbidden {
		t.Fatalf("employer submit got %d, want 403", w.Code)
	}
	if w := b.do(http.MethodGet, "/apply?job_id="+jobID, empToken, ""); w.Code != http.StatusForbidden {
		t.Fatalf("employer apply form got %d, want 403", w.Code)
	}
}

func TestRouter_HiddenJobs(t *testing.T) {
	b := newBoard(t)
	_, empToken := b.member("Budi Employer", user.RoleEmployer)
	_, otherToken := b.member("Rina Employer", user.RoleEmployer)
	_, seekerToken := b.member("Sari Seeker", user.RoleJobSeeker)
	_, adminToken := b.member("Ayu Admin", user.RoleAdmin)

	jobID := b.postJob(empToken, "Pramuniaga", "full-time", "paused")

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"anonymous", "", http.StatusNotFound},
		{"seeker", seekerToken, http.StatusNotFound},
		{"other_employer", otherToken, http.StatusNotFound},
		{"owner", empToken, http.StatusOK},
		{"admin", adminToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := b.do(http.MethodGet, "/jobs/"+jobID, tt.token, ""); w.Code != tt.want {
				t.Fatalf("got %d, want %d", w.Code, tt.want)
			}
		})
	}

	if w := b.do(http.MethodPost, "/job-applications", seekerToken, applyBody(jobID)); w.Code != http.StatusNotFound {
		t.Fatalf("apply to paused job got %d, want 404", w.Code)
	}

	// other employers cannot touch it either
	if w := b.do(http.MethodDelete, "/jobs/"+jobID, otherToken, ""); w.Code != http.StatusNotFound {
		t.Fatalf("foreign delete got %d, want 404", w.Code)
	}
	if w := b.do(http.MethodDelete, "/jobs/"+jobID, empToken, ""); w.Code != http.StatusOK {
		t.Fatalf("owner delete got %d", w.Code)
	}
}

func TestRouter_ListJobsFilters(t *testing.T) {
	b := newBoard(t)
	_, empToken := b.member("Budi Employer", user.RoleEmployer)

	b.postJob(empToken, "Kasir Paruh Waktu", "part-time", "")
	b.postJob(empToken, "Kepala Toko", "full-time", "")
	b.postJob(empToken, "Gudang Malam", "part-time", "draft")

	type listBody struct {
		Items []struct {
			Title    string `json:"title"`
			WorkType string `json:"workType"`
		} `json:"items"`
		Total   int `json:"total"`
		PerPage int `json:"perPage"`
		Filters struct {
			WorkType string `json:"work_type"`
		} `json:"filters"`
		Categories []category.Category `json:"categories"`
	}

	w := b.do(http.MethodGet, "/jobs", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list got %d", w.Code)
	}
	all := decode[listBody](t, w)
	if all.Total != 2 || all.PerPage != 12 {
		t.Fatalf("total=%d perPage=%d, want 2 and 12", all.Total, all.PerPage)
	}
	if len(all.Categories) != len(b.cats) {
		t.Fatalf("categories = %d, want %d", len(all.Categories), len(b.cats))
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag on listing")
	}

	w = b.do(http.MethodGet, "/jobs?work_type=part-time", "", "")
	partTime := decode[listBody](t, w)
	if partTime.Total != 1 || partTime.Items[0].Title != "Kasir Paruh Waktu" {
		t.Fatalf("part-time listing = %+v", partTime)
	}
	if partTime.Filters.WorkType != "part-time" {
		t.Fatalf("filter echo = %q", partTime.Filters.WorkType)
	}

	w = b.do(http.MethodGet, "/jobs?work_type=gig", "", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid work_type got %d, want 400", w.Code)
	}

	w = b.do(http.MethodGet, "/jobs?salary_min=3000000", "", "")
	if got := decode[listBody](t, w); got.Total != 0 {
		t.Fatalf("salary_min above every max should match nothing, got %d", got.Total)
	}

	// a new posting invalidates the cached listing
	b.postJob(empToken, "Barista", "contract", "")
	w = b.do(http.MethodGet, "/jobs", "", "")
	if got := decode[listBody](t, w); got.Total != 3 {
		t.Fatalf("total after create = %d, want 3", got.Total)
	}
}

func TestRouter_CreateJobValidation(t *testing.T) {
	b := newBoard(t)
	_, empToken := b.member("Budi Employer", user.RoleEmployer)
	_, seekerToken := b.member("Sari Seeker", user.RoleJobSeeker)

	valid := `{"jobCategoryId":"` + b.cats[0].ID + `","title":"Kasir","description":"d","storeName":"s","storeAddress":"a","storePhone":"1","workType":"contract","positionsAvailable":1}`

	if w := b.do(http.MethodPost, "/jobs", seekerToken, valid); w.Code != http.StatusForbidden {
		t.Fatalf("seeker create got %d, want 403", w.Code)
	}

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{
			name:      "salary_max_below_min",
			body:      `{"jobCategoryId":"` + b.cats[0].ID + `","title":"Kasir","description":"d","storeName":"s","storeAddress":"a","storePhone":"1","workType":"contract","positionsAvailable":1,"salaryMin":5,"salaryMax":1}`,
			wantField: "salaryMax",
		},
		{
			name:      "unknown_category",
			body:      `{"jobCategoryId":"` + uuid.NewString() + `","title":"Kasir","description":"d","storeName":"s","storeAddress":"a","storePhone":"1","workType":"contract","positionsAvailable":1}`,
			wantField: "jobCategoryId",
		},
		{
			name:      "missing_title",
			body:      `{"jobCategoryId":"` + b.cats[0].ID + `","description":"d","storeName":"s","storeAddress":"a","storePhone":"1","workType":"contract","positionsAvailable":1}`,
			wantField: "title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := b.do(http.MethodPost, "/jobs", empToken, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want 400 body=%s", w.Code, w.Body.String())
			}
			var got struct {
				Error struct {
					Details struct {
						Fields []struct {
							Field string `json:"field"`
						} `json:"fields"`
					} `json:"details"`
				} `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			found := false
			for _, f := range got.Error.Details.Fields {
				if f.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected violation on %s, body=%s", tt.wantField, w.Body.String())
			}
		})
	}
}

func TestRouter_ReviewWorkflow(t *testing.T) {
	b := newBoard(t)
	_, empToken := b.member("Budi Employer", user.RoleEmployer)
	_, otherToken := b.member("Rina Employer", user.RoleEmployer)
	_, seekerToken := b.member("Sari Seeker", user.RoleJobSeeker)

	jobID := b.postJob(empToken, "Kasir", "part-time", "")

	w := b.do(http.MethodPost, "/job-applications", seekerToken, applyBody(jobID))
	if w.Code != http.StatusCreated {
		t.Fatalf("submit got %d body=%s", w.Code, w.Body.String())
	}
	appID := decode[struct {
		Application struct {
			ID string `json:"id"`
		} `json:"application"`
	}](t, w).Application.ID

	edit := `{"applicantName":"Sari W","applicantPhone":"0812","applicantEmail":"sari@example.com","applicantAddress":"Jl. Mawar 1"}`

	// applicant may edit while pending
	if w := b.do(http.MethodPut, "/job-applications/"+appID, seekerToken, edit); w.Code != http.StatusOK {
		t.Fatalf("pending edit got %d body=%s", w.Code, w.Body.String())
	}

	// only the owning employer reviews
	review := `{"status":"shortlisted","notes":"Pengalaman cocok"}`
	if w := b.do(http.MethodPut, "/job-applications/"+appID, otherToken, review); w.Code != http.StatusForbidden {
		t.Fatalf("foreign review got %d, want 403", w.Code)
	}
	if w := b.do(http.MethodPut, "/job-applications/"+appID, empToken, `{"status":"hired"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid status got %d, want 400", w.Code)
	}

	w = b.do(http.MethodPut, "/job-applications/"+appID, empToken, review)
	if w.Code != http.StatusOK {
		t.Fatalf("review got %d body=%s", w.Code, w.Body.String())
	}
	reviewed := decode[struct {
		Application struct {
			Status     string  `json:"status"`
			ReviewedAt *string `json:"reviewedAt"`
		} `json:"application"`
	}](t, w)
	if reviewed.Application.Status != "shortlisted" || reviewed.Application.ReviewedAt == nil {
		t.Fatalf("reviewed = %+v", reviewed.Application)
	}

	var reviewedTasks int
	for _, tk := range b.store.Tasks().All() {
		if tk.Type == string(tasks.TypeApplicationReviewed) {
			reviewedTasks++
		}
	}
	if reviewedTasks != 1 {
		t.Fatalf("reviewed tasks = %d, want 1", reviewedTasks)
	}

	// locked for the applicant after review
	if w := b.do(http.MethodPut, "/job-applications/"+appID, seekerToken, edit); w.Code != http.StatusForbidden {
		t.Fatalf("edit after review got %d, want 403", w.Code)
	}
	if w := b.do(http.MethodDelete, "/job-applications/"+appID, seekerToken, ""); w.Code != http.StatusForbidden {
		t.Fatalf("withdraw after review got %d, want 403", w.Code)
	}

	// applicants don't see reviewer notes
	w = b.do(http.MethodGet, "/job-applications/"+appID, seekerToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("seeker view got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "Pengalaman cocok") {
		t.Fatalf("notes leaked to applicant: %s", w.Body.String())
	}

	w = b.do(http.MethodGet, "/job-applications/"+appID, empToken, "")
	if !strings.Contains(w.Body.String(), "Pengalaman cocok") {
		t.Fatalf("employer should see notes: %s", w.Body.String())
	}

	// listings are scoped per role
	type page struct {
		Total int `json:"total"`
	}
	if got := decode[page](t, b.do(http.MethodGet, "/job-applications", seekerToken, "")); got.Total != 1 {
		t.Fatalf("seeker total = %d", got.Total)
	}
	if got := decode[page](t, b.do(http.MethodGet, "/job-applications", otherToken, "")); got.Total != 0 {
		t.Fatalf("other employer total = %d", got.Total)
	}
	if got := decode[page](t, b.do(http.MethodGet, "/job-applications?status=shortlisted", empToken, "")); got.Total != 1 {
		t.Fatalf("employer shortlisted total = %d", got.Total)
	}
	if w := b.do(http.MethodGet, "/job-applications?status=hired", empToken, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad status filter got %d", w.Code)
	}
}

func TestRouter_ConcurrentSubmitAcceptsOne(t *testing.T) {
	b := newBoard(t)
	_, empToken := b.member("Budi Employer", user.RoleEmployer)
	_, seekerToken := b.member("Sari Seeker", user.RoleJobSeeker)
	jobID := b.postJob(empToken, "Kasir", "part-time", "")

	const attempts = 20
	codes := make([]int, attempts)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			req := httptest.NewRequest(http.MethodPost, "/job-applications", strings.NewReader(applyBody(jobID)))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+seekerToken)
			w := httptest.NewRecorder()
			b.router.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	close(start)
	wg.Wait()

	created, conflicts := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	if created != 1 || conflicts != attempts-1 {
		t.Fatalf("codes = %v, want one 201 and %d 409s", codes, attempts-1)
	}

	type page struct {
		Total int `json:"total"`
	}
	if got := decode[page](t, b.do(http.MethodGet, "/job-applications", seekerToken, "")); got.Total != 1 {
		t.Fatalf("stored applications = %d, want 1", got.Total)
	}
	if n := len(b.store.Tasks().All()); n != 1 {
		t.Fatalf("outbox = %d tasks, want 1", n)
	}
}

func TestRouter_StatusOnlyReviewKeepsNotes(t *testing.T) {
	b := newBoard(t)
	_, empToken := b.member("Budi Employer", user.RoleEmployer)
	_, seekerToken := b.member("Sari Seeker", user.RoleJobSeeker)
	jobID := b.postJob(empToken, "Kasir", "part-time", "")

	w := b.do(http.MethodPost, "/job-applications", seekerToken, applyBody(jobID))
	if w.Code != http.StatusCreated {
		t.Fatalf("submit got %d body=%s", w.Code, w.Body.String())
	}
	appID := decode[struct {
		Application struct {
			ID string `json:"id"`
		} `json:"application"`
	}](t, w).Application.ID

	if w := b.do(http.MethodPut, "/job-applications/"+appID, empToken, `{"status":"reviewed","notes":"strong candidate"}`); w.Code != http.StatusOK {
		t.Fatalf("first review got %d body=%s", w.Code, w.Body.String())
	}
	if w := b.do(http.MethodPut, "/job-applications/"+appID, empToken, `{"status":"shortlisted"}`); w.Code != http.StatusOK {
		t.Fatalf("second review got %d body=%s", w.Code, w.Body.String())
	}

	got := decode[struct {
		Application struct {
			Status string  `json:"status"`
			Notes  *string `json:"notes"`
		} `json:"application"`
	}](t, b.do(http.MethodGet, "/job-applications/"+appID, empToken, ""))
	if got.Application.Status != "shortlisted" {
		t.Fatalf("status = %s", got.Application.Status)
	}
	if got.Application.Notes == nil || *got.Application.Notes != "strong candidate" {
		t.Fatalf("notes = %v, want them kept", got.Application.Notes)
	}
}

func TestRouter_HugePageNumbers(t *testing.T) {
	b := newBoard(t)
	_, empToken := b.member("Budi Employer", user.RoleEmployer)
	_, seekerToken := b.member("Sari Seeker", user.RoleJobSeeker)
	b.postJob(empToken, "Kasir", "part-time", "")

	for _, tc := range []struct{ path, token string }{
		{"/jobs?page=9223372036854775807", ""},
		{"/my-jobs?page=9223372036854775807", empToken},
		{"/job-applications?page=9223372036854775807", seekerToken},
	} {
		w := b.do(http.MethodGet, tc.path, tc.token, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s got %d body=%s", tc.path, w.Code, w.Body.String())
		}
		got := decode[struct {
			Items []json.RawMessage `json:"items"`
		}](t, w)
		if len(got.Items) != 0 {
			t.Fatalf("%s returned %d items, want none", tc.path, len(got.Items))
		}
	}
}

func TestRouter_AdminTaskRetry(t *testing.T) {
	b := newBoard(t)
	_, adminToken := b.member("Ayu Admin", user.RoleAdmin)
	_, empToken := b.member("Budi Employer", user.RoleEmployer)

	now := time.Now().UTC()
	failedID, pendingID := uuid.NewString(), uuid.NewString()
	msg := "provider down"
	b.store.Tasks().Put(task.Task{ID: failedID, Type: string(tasks.TypeApplicationReviewed), Status: task.StatusFailed, Attempts: 10, MaxAttempts: 10, LastError: &msg, RunAt: now, CreatedAt: now, UpdatedAt: now})
	b.store.Tasks().Put(task.Task{ID: pendingID, Type: string(tasks.TypeApplicationReviewed), Status: task.StatusPending, MaxAttempts: 10, RunAt: now, CreatedAt: now, UpdatedAt: now})

	if w := b.do(http.MethodGet, "/admin/tasks", empToken, ""); w.Code != http.StatusForbidden {
		t.Fatalf("employer admin list got %d, want 403", w.Code)
	}

	w := b.do(http.MethodGet, "/admin/tasks?status=failed", adminToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("admin list got %d", w.Code)
	}
	if got := decode[struct {
		Count int `json:"count"`
	}](t, w); got.Count != 1 {
		t.Fatalf("failed count = %d, want 1", got.Count)
	}

	if w := b.do(http.MethodPost, "/admin/tasks/"+pendingID+"/retry", adminToken, ""); w.Code != http.StatusConflict {
		t.Fatalf("retry pending got %d, want 409", w.Code)
	}
	if w := b.do(http.MethodPost, "/admin/tasks/"+failedID+"/retry", adminToken, ""); w.Code != http.StatusOK {
		t.Fatalf("retry failed got %d body=%s", w.Code, w.Body.String())
	}

	got, err := b.store.Tasks().GetByID(context.Background(), failedID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != task.StatusPending || got.Attempts != 0 || got.LastError != nil {
		t.Fatalf("retried task = %+v", got)
	}
}

func TestRouter_AuthSession(t *testing.T) {
	b := newBoard(t)

	w := b.do(http.MethodPost, "/auth/signup", "", `{"email":"Toko@Example.com","password":"password123","name":"Pak Toko","role":"employer"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup got %d body=%s", w.Code, w.Body.String())
	}
	session := decode[struct {
		AccessToken string `json:"accessToken"`
		Role        string `json:"role"`
	}](t, w)
	if session.AccessToken == "" || session.Role != "employer" {
		t.Fatalf("session = %+v", session)
	}

	// admins are never self-registered
	w = b.do(http.MethodPost, "/auth/signup", "", `{"email":"boss@example.com","password":"password123","name":"Boss","role":"admin"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("admin signup got %d, want 400", w.Code)
	}

	w = b.do(http.MethodPost, "/auth/signup", "", `{"email":"toko@example.com","password":"password123","name":"Again"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup got %d, want 409", w.Code)
	}

	w = b.do(http.MethodPost, "/auth/login", "", `{"email":"toko@example.com","password":"wrong-password"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login got %d, want 401", w.Code)
	}

	w = b.do(http.MethodPost, "/auth/login", "", `{"email":"toko@example.com","password":"password123"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login got %d body=%s", w.Code, w.Body.String())
	}
	token := decode[struct {
		AccessToken string `json:"accessToken"`
	}](t, w).AccessToken

	w = b.do(http.MethodGet, "/auth/me", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("me got %d", w.Code)
	}
	me := decode[user.User](t, w)
	if me.Email != "toko@example.com" || me.Role != user.RoleEmployer {
		t.Fatalf("me = %+v", me)
	}
	if strings.Contains(w.Body.String(), "passwordHash") {
		t.Fatalf("password hash exposed")
	}

	// deactivated accounts cannot sign in
	hash, err := security.HashPassword("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()
	if err := b.store.Users().Create(context.Background(), user.User{
		ID: uuid.NewString(), Email: "gone@example.com", PasswordHash: hash, Name: "Gone",
		Role: user.RoleJobSeeker, IsActive: false, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	w = b.do(http.MethodPost, "/auth/login", "", `{"email":"gone@example.com","password":"password123"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("inactive login got %d, want 403", w.Code)
	}
}

func TestRouter_HealthAndCategories(t *testing.T) {
	b := newBoard(t)

	if w := b.do(http.MethodGet, "/healthz", "", ""); w.Code != http.StatusOK {
		t.Fatalf("healthz got %d", w.Code)
	}
	if w := b.do(http.MethodGet, "/readyz", "", ""); w.Code != http.StatusOK {
		t.Fatalf("readyz got %d", w.Code)
	}

	w := b.do(http.MethodGet, "/categories", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("categories got %d", w.Code)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	b.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional categories got %d, want 304", w.Code)
	}
}

func TestRouter_SwaggerDocsCoverRoutes(t *testing.T) {
	b := newBoard(t)

	w := b.do(http.MethodGet, "/swagger", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "swagger-ui") {
		t.Fatalf("swagger ui got %d", w.Code)
	}
	if csp := w.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "https://unpkg.com") {
		t.Fatalf("swagger csp = %q", csp)
	}

	// the JSON API keeps the locked-down policy
	if csp := b.do(http.MethodGet, "/jobs", "", "").Header().Get("Content-Security-Policy"); strings.Contains(csp, "unpkg") {
		t.Fatalf("api csp = %q", csp)
	}

	w = b.do(http.MethodGet, "/swagger/openapi.yaml", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("openapi got %d", w.Code)
	}

	var doc struct {
		Paths map[string]map[string]any `yaml:"paths"`
	}
	if err := yaml.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("openapi.yaml does not parse: %v", err)
	}

	skip := map[string]bool{
		"/healthz": true, "/health-check": true, "/readyz": true, "/metrics": true,
		"/swagger": true, "/swagger/openapi.yaml": true,
	}
	for _, rt := range b.router.Routes() {
		if skip[rt.Path] {
			continue
		}
		path := rt.Path
		if i := strings.Index(path, ":id"); i >= 0 {
			path = path[:i] + "{id}" + path[i+len(":id"):]
		}
		ops, ok := doc.Paths[path]
		if !ok {
			t.Errorf("%s %s is not documented", rt.Method, rt.Path)
			continue
		}
		if _, ok := ops[strings.ToLower(rt.Method)]; !ok {
			t.Errorf("%s %s has no %s operation in the docs", rt.Method, path, strings.ToLower(rt.Method))
		}
	}
}
