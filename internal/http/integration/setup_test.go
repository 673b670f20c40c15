package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/storejobs/internal/auth"
	"github.com/geocoder89/storejobs/internal/cache"
	"github.com/geocoder89/storejobs/internal/config"
	"github.com/geocoder89/storejobs/internal/db"
	apphttp "github.com/geocoder89/storejobs/internal/http"
	"github.com/geocoder89/storejobs/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// These tests need a disposable database; TEST_DB_DSN points at it.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping postgres integration test")
	}
	return dsn
}

func testConfig(dsn string) config.Config {
	return config.Config{
		Env:                 "test",
		DBURL:               dsn,
		JWTSecret:           "test-secret-key",
		JWTAccessTTLMinutes: 60,
		JWTRefreshTTLDays:   7,
	}
}

type harness struct {
	router *gin.Engine
	pool   *pgxpool.Pool
	cfg    config.Config
}

func setup(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := testDSN(t)
	if err := db.Migrate(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("pg pool: %v", err)
	}
	t.Cleanup(pool.Close)

	resetDB(t, pool)
	t.Cleanup(func() { resetDB(t, pool) })

	if err := db.SeedCategories(context.Background(), pool); err != nil {
		t.Fatalf("seed categories: %v", err)
	}

	cfg := testConfig(dsn)
	router := apphttp.NewRouter(apphttp.Deps{
		Log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		Cfg:           cfg,
		JWT:           auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL()),
		Users:         postgres.NewUsersRepo(pool, nil),
		RefreshTokens: postgres.NewRefreshTokensRepo(pool, nil),
		Categories:    postgres.NewCategoriesRepo(pool, nil),
		Jobs:          postgres.NewJobsRepo(pool, nil),
		Applications:  postgres.NewApplicationsRepo(pool, nil),
		Tasks:         postgres.NewTasksRepo(pool, nil),
		ListCache:     cache.NewMemory(),
		Guard:         cache.NewMemoryGuard(),
	})

	return &harness{router: router, pool: pool, cfg: cfg}
}

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := pool.Exec(ctx, `
		TRUNCATE
			notification_deliveries,
			tasks,
			job_applications,
			jobs,
			job_categories,
			refresh_tokens,
			users
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func doRequest(router http.Handler, method, path, token, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, *http.Response) {
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
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w, w.Result()
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

type sessionResponse struct {
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
}

type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func signup(t *testing.T, router http.Handler, email, role string) string {
	t.Helper()

	body := `{"email":"` + email + `","password":"password123","name":"` + email + `","role":"` + role + `"}`
	w, _ := doRequest(router, http.MethodPost, "/auth/signup", "", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup got %d body=%s", w.Code, w.Body.String())
	}

	var s sessionResponse
	mustReadJSON(t, w, &s)
	return s.AccessToken
}
