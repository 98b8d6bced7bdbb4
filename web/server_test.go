package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"examexport/config"
	"examexport/examresult"
	"examexport/storage"

	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "s3cret"

var downloadLinkPattern = regexp.MustCompile(`href="(/download/[^"]+)"`)

type fakeFetcher struct {
	mu     sync.Mutex
	rows   []examresult.Row
	err    error
	calls  int
	ranges []examresult.DateRange
	opts   []storage.FetchOptions
}

func (f *fakeFetcher) FetchResults(_ context.Context, rng examresult.DateRange, opts storage.FetchOptions) ([]examresult.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ranges = append(f.ranges, rng)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestServer_IndexShowsLoginWhenUnauthenticated(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeFetcher{})
	client := newClient(t)

	status, body := get(t, client, ts.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(body, `name="password"`) {
		t.Fatalf("expected password prompt: %s", body)
	}
	if strings.Contains(body, `name="start_date"`) {
		t.Fatalf("date inputs must be hidden before login")
	}
}

func TestServer_WrongPasswordKeepsSessionLocked(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{rows: sampleRows(t)}
	ts := newTestServer(t, fetcher)
	client := newClient(t)

	status, body := postForm(t, client, ts.URL+"/login", url.Values{"password": {"wrong"}})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if !strings.Contains(body, "Incorrect password. Please try again.") {
		t.Fatalf("expected incorrect password message: %s", body)
	}

	_, body = get(t, client, ts.URL+"/")
	if strings.Contains(body, `name="start_date"`) {
		t.Fatalf("date inputs must stay hidden after failed login")
	}

	status, _ = postForm(t, client, ts.URL+"/export", url.Values{
		"start_date": {"2026-03-01"},
		"end_date":   {"2026-03-02"},
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for export without login, got %d", status)
	}
	if fetcher.callCount() != 0 {
		t.Fatalf("expected no query without login, got %d calls", fetcher.callCount())
	}
}

func TestServer_LoginThenExportOffersDownload(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{rows: sampleRows(t)}
	ts := newTestServer(t, fetcher)
	client := newClient(t)
	login(t, client, ts.URL)

	status, body := postForm(t, client, ts.URL+"/export", url.Values{
		"start_date": {"2026-03-01"},
		"end_date":   {"2026-03-02"},
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if !strings.Contains(body, "Query returned 2 rows.") {
		t.Fatalf("expected row count message: %s", body)
	}
	if len(fetcher.opts) != 1 || !fetcher.opts[0].IncludeExamType {
		t.Fatalf("expected detailed profile to request exam type, got %+v", fetcher.opts)
	}
	if got := fetcher.ranges[0].String(); got != "2026-03-01 to 2026-03-02" {
		t.Fatalf("unexpected range passed to fetcher: %s", got)
	}

	match := downloadLinkPattern.FindStringSubmatch(body)
	if match == nil {
		t.Fatalf("expected download link: %s", body)
	}

	resp, err := client.Get(ts.URL + match[1])
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 download, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type: %s", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, `attachment; filename="exam_results_2026-03-01_to_2026-03-02.xlsx"`) {
		t.Fatalf("unexpected content disposition: %s", cd)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer file.Close()
	rows, err := file.GetRows("Results", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
}

func TestServer_ExportMissingDateDoesNotQuery(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{rows: sampleRows(t)}
	ts := newTestServer(t, fetcher)
	client := newClient(t)
	login(t, client, ts.URL)

	status, body := postForm(t, client, ts.URL+"/export", url.Values{"start_date": {"2026-03-01"}})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if !strings.Contains(body, "Please select both start and end dates.") {
		t.Fatalf("expected missing date message: %s", body)
	}
	if fetcher.callCount() != 0 {
		t.Fatalf("expected no query, got %d calls", fetcher.callCount())
	}
}

func TestServer_ExportEmptyResultShowsWarning(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	ts := newTestServer(t, fetcher)
	client := newClient(t)
	login(t, client, ts.URL)

	status, body := postForm(t, client, ts.URL+"/export", url.Values{
		"start_date": {"2026-03-05"},
		"end_date":   {"2026-03-01"},
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(body, "No data found for the specified date range.") {
		t.Fatalf("expected no data warning: %s", body)
	}
	if downloadLinkPattern.MatchString(body) {
		t.Fatalf("no download must be offered for empty results")
	}
}

func TestServer_ExportFetchErrorIsShown(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	ts := newTestServer(t, fetcher)
	client := newClient(t)
	login(t, client, ts.URL)

	status, body := postForm(t, client, ts.URL+"/export", url.Values{
		"start_date": {"2026-03-01"},
		"end_date":   {"2026-03-02"},
	})
	if status != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", status)
	}
	if !strings.Contains(body, "Error querying database: connection refused") {
		t.Fatalf("expected query error message: %s", body)
	}
	if downloadLinkPattern.MatchString(body) {
		t.Fatalf("no download must be offered after a query error")
	}
}

func TestServer_DownloadIsBoundToSession(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeFetcher{rows: sampleRows(t)})
	owner := newClient(t)
	other := newClient(t)
	login(t, owner, ts.URL)
	login(t, other, ts.URL)

	_, body := postForm(t, owner, ts.URL+"/export", url.Values{
		"start_date": {"2026-03-01"},
		"end_date":   {"2026-03-02"},
	})
	match := downloadLinkPattern.FindStringSubmatch(body)
	if match == nil {
		t.Fatalf("expected download link: %s", body)
	}

	status, _ := get(t, other, ts.URL+match[1])
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign session, got %d", status)
	}

	anonymous := newClient(t)
	status, _ = get(t, anonymous, ts.URL+match[1])
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", status)
	}
}

func TestServer_LogoutLocksSessionAgain(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &fakeFetcher{})
	client := newClient(t)
	login(t, client, ts.URL)

	status, body := postForm(t, client, ts.URL+"/logout", url.Values{})
	if status != http.StatusOK {
		t.Fatalf("expected 200 after logout redirect, got %d", status)
	}
	if !strings.Contains(body, `name="password"`) {
		t.Fatalf("expected login form after logout: %s", body)
	}
}

func TestServer_FailedLoginsDoNotCreateSessions(t *testing.T) {
	t.Parallel()

	server := newServer(t, &fakeFetcher{})
	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)

	for i := 0; i < 50; i++ {
		status, _ := postForm(t, http.DefaultClient, ts.URL+"/login", url.Values{"password": {"bad"}})
		if status != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, status)
		}
	}

	if got := sessionCount(server); got != 0 {
		t.Fatalf("expected no sessions after failed logins, got %d", got)
	}

	client := newClient(t)
	login(t, client, ts.URL)
	if got := sessionCount(server); got != 1 {
		t.Fatalf("expected one session after a successful login, got %d", got)
	}
}

func TestServer_WrongPasswordEndsAuthenticatedSession(t *testing.T) {
	t.Parallel()

	server := newServer(t, &fakeFetcher{rows: sampleRows(t)})
	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)
	client := newClient(t)
	login(t, client, ts.URL)

	_, body := postForm(t, client, ts.URL+"/export", url.Values{
		"start_date": {"2026-03-01"},
		"end_date":   {"2026-03-02"},
	})
	match := downloadLinkPattern.FindStringSubmatch(body)
	if match == nil {
		t.Fatalf("expected download link: %s", body)
	}

	status, _ := postForm(t, client, ts.URL+"/login", url.Values{"password": {"wrong"}})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if got := sessionCount(server); got != 0 {
		t.Fatalf("expected the session to be removed, got %d sessions", got)
	}

	_, body = get(t, client, ts.URL+"/")
	if strings.Contains(body, `name="start_date"`) {
		t.Fatalf("export form must be hidden after a rejected password")
	}
	status, _ = get(t, client, ts.URL+match[1])
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for download after a rejected password, got %d", status)
	}
}

func TestPasswordChecker(t *testing.T) {
	t.Parallel()

	plain := newPasswordChecker("open sesame", "")
	if !plain.Check("open sesame") || plain.Check("open") {
		t.Fatalf("plain password check mismatch")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("hashed"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	hashed := newPasswordChecker("ignored", string(hash))
	if !hashed.Check("hashed") || hashed.Check("ignored") {
		t.Fatalf("hashed password check mismatch")
	}

	if newPasswordChecker("", "").Check("") {
		t.Fatalf("empty configuration must reject every password")
	}
}

func TestSessionStore_ExpiresSessions(t *testing.T) {
	t.Parallel()

	store := newSessionStore(time.Minute)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	id := store.authenticate("")
	if sess, ok := store.get(id); !ok || !sess.authenticated {
		t.Fatalf("expected authenticated session")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := store.get(id); ok {
		t.Fatalf("expected session to expire")
	}
}

func newTestServer(t *testing.T, fetcher ResultFetcher) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(newServer(t, fetcher))
	t.Cleanup(ts.Close)
	return ts
}

func newServer(t *testing.T, fetcher ResultFetcher) *Server {
	t.Helper()

	var cfg config.Config
	cfg.App.Password = testPassword
	cfg.Export.Profile = "detailed"
	cfg.Server.SessionTTL = time.Hour

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server, err := NewServer(fetcher, cfg, logger)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return server
}

func sessionCount(server *Server) int {
	server.sessions.mu.Lock()
	defer server.sessions.mu.Unlock()
	return len(server.sessions.items)
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func login(t *testing.T, client *http.Client, baseURL string) {
	t.Helper()
	status, body := postForm(t, client, baseURL+"/login", url.Values{"password": {testPassword}})
	if status != http.StatusOK {
		t.Fatalf("login: expected 200 after redirect, got %d", status)
	}
	if !strings.Contains(body, "Authenticated successfully!") || !strings.Contains(body, `name="start_date"`) {
		t.Fatalf("login: expected export form: %s", body)
	}
}

func get(t *testing.T, client *http.Client, target string) (int, string) {
	t.Helper()
	resp, err := client.Get(target)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func postForm(t *testing.T, client *http.Client, target string, values url.Values) (int, string) {
	t.Helper()
	resp, err := client.PostForm(target, values)
	if err != nil {
		t.Fatalf("POST %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func sampleRows(t *testing.T) []examresult.Row {
	t.Helper()
	first, err := examresult.ParseDate("2026-03-01")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return []examresult.Row{
		{Name: "Amal", IATCID: "IATC-1", NationalID: "784-1", Class: "10", Curriculum: "Aviation", Exam: "Theory 1", ExamType: "Written", Score: 91.5, Result: "PASS", Session: "AM", Date: first, AttemptIndex: 1, ScoreIndex: 1},
		{Name: "Badr", IATCID: "IATC-2", NationalID: "784-2", Class: "11", Curriculum: "Aviation", Exam: "Theory 1", ExamType: "Written", Score: 40, Result: "FAIL", Session: "AM", Date: first.AddDate(0, 0, 1), AttemptIndex: 1, ScoreIndex: 1},
	}
}
