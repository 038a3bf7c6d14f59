//go:build integration || !unit

package integration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/google"
	httpserver "github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/http_server"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/vault"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/app"
	mysqlrepo "github.com/Tandemrecruit/ReplyStack-sub001/internal/storage/mysql"
)

// ---------- helpers ----------

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/migrations)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(b)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=replystack",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/replystack?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// ---------- the test ----------

// Full trigger-to-storage pass: fake identity provider, fake review API,
// real vault and repository, one agency location with two upstream reviews
// (one carrying its own id, one id-less but synthesizable).
func TestPollTrigger_E2E(t *testing.T) {
	db := startMySQL(t)
	applyMigrations(t, db)

	// fake identity provider
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("refresh_token") != "refresh-secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at-1","expires_in":3600}`))
	}))
	defer idp.Close()

	// fake review API
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !strings.Contains(r.URL.Path, "/reviews") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{
			"reviews": [
				{
					"reviewId": "rev-1",
					"reviewer": {"displayName": "Dana"},
					"starRating": "FIVE",
					"comment": "great",
					"createTime": "2026-02-01T09:00:00Z"
				},
				{
					"reviewer": {"displayName": "Sam"},
					"starRating": "TWO",
					"createTime": "2026-02-02T10:00:00Z"
				}
			]
		}`))
	}))
	defer api.Close()

	key := []byte(strings.Repeat("k", 32))
	v, err := vault.New(key, google.NewOAuthExchanger(idp.URL, "cid", "csecret"), nil, 0)
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	sealed, err := v.Seal("refresh-secret")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO organizations (id, plan_tier) VALUES (1, 'agency')`); err != nil {
		t.Fatalf("seed org: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO users (id, organization_id, google_refresh_token) VALUES (10, 1, ?)`, sealed); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO locations (id, organization_id, google_account_id, google_location_id, name, is_active)
		VALUES (100, 1, 'acc-1', 'loc-1', 'Downtown', 1)`); err != nil {
		t.Fatalf("seed location: %v", err)
	}

	poll := app.NewPollService(mysqlrepo.New(db), google.New(api.URL, 100), v, 50, 50)
	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{Poll: poll, CronSecret: "s3cret"})

	req := httptest.NewRequest(http.MethodGet, "/jobs/poll-reviews", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var rep app.RunReport
	if err := json.NewDecoder(rr.Body).Decode(&rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !rep.Success || rep.LocationsProcessed != 1 || rep.ReviewsProcessed != 2 || len(rep.Errors) != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}

	// storage assertions
	rows, err := db.Query(`SELECT external_review_id, sentiment FROM reviews ORDER BY external_review_id`)
	if err != nil {
		t.Fatalf("query reviews: %v", err)
	}
	defer rows.Close()
	type row struct{ id, sentiment string }
	var got []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.sentiment); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, r)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 rows, got %d", len(got))
	}
	if got[0].id != "rev-1" || got[0].sentiment != "positive" {
		t.Fatalf("authentic row wrong: %+v", got[0])
	}
	if !strings.HasPrefix(got[1].id, "synthetic_") || got[1].sentiment != "negative" {
		t.Fatalf("synthetic row wrong: %+v", got[1])
	}

	var wm int
	if err := db.QueryRow(`SELECT COUNT(*) FROM cron_poll_state WHERE tier='agency'`).Scan(&wm); err != nil || wm != 1 {
		t.Fatalf("agency watermark missing: n=%d err=%v", wm, err)
	}

	// second trigger within the minimum gap: nothing due, storage unchanged
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/jobs/poll-reviews", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	srv.Mux().ServeHTTP(rr, req)
	var rep2 app.RunReport
	_ = json.NewDecoder(rr.Body).Decode(&rep2)
	if rep2.Message != "no locations due this cycle" {
		t.Fatalf("immediate rerun should be gated: %+v", rep2)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM reviews`).Scan(&n); err != nil || n != 2 {
		t.Fatalf("row count changed: n=%d err=%v", n, err)
	}
}
