// Package web serves the password-gated export form. Authentication state is
// kept per browser session on the server; nothing is shared between sessions.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"examexport/config"
	"examexport/examresult"
	"examexport/export"
	"examexport/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	sessionCookieName   = "examexport_session"
	defaultSessionTTL   = 12 * time.Hour
	defaultDownloadTTL  = 10 * time.Minute
	maxFormBytes        = 64 << 10
	msgIncorrectPass    = "Incorrect password. Please try again."
	msgAuthenticated    = "Authenticated successfully!"
	msgLoginRequired    = "Enter the password to access the application."
	msgMissingDates     = "Please select both start and end dates."
	msgNoData           = "No data found for the specified date range."
	msgDownloadNotFound = "download not found or expired"
)

// ResultFetcher loads exam result rows for an inclusive date range.
type ResultFetcher interface {
	FetchResults(ctx context.Context, rng examresult.DateRange, opts storage.FetchOptions) ([]examresult.Row, error)
}

type Server struct {
	fetcher   ResultFetcher
	builder   *export.Builder
	passwords passwordChecker
	sessions  *sessionStore
	downloads *downloadStore
	logger    *slog.Logger
	now       func() time.Time
	mux       *http.ServeMux
}

type pageView struct {
	Title         string
	Authenticated bool
	Profile       string
	StartDate     string
	EndDate       string
	Error         string
	Warning       string
	Success       string
	Info          string
	RowCount      int
	DownloadURL   string
	FileName      string
}

func NewServer(fetcher ResultFetcher, cfg config.Config, logger *slog.Logger) (*Server, error) {
	profile, err := export.ProfileByName(cfg.Export.Profile)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	sessionTTL := cfg.Server.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}

	server := &Server{
		fetcher:   fetcher,
		builder:   export.NewBuilder(profile),
		passwords: newPasswordChecker(cfg.App.Password, cfg.App.PasswordHash),
		sessions:  newSessionStore(sessionTTL),
		downloads: newDownloadStore(defaultDownloadTTL),
		logger:    logger,
		now:       time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", server.handleIndex)
	mux.HandleFunc("POST /login", server.handleLogin)
	mux.HandleFunc("POST /logout", server.handleLogout)
	mux.HandleFunc("POST /export", server.handleExport)
	mux.HandleFunc("GET /download/{token}", server.handleDownload)
	server.mux = mux

	return server, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.currentSession(r)
	view := s.newView(ok && sess.authenticated)
	if ok {
		view.Success = s.sessions.popFlash(id)
	}
	if !view.Authenticated {
		view.Info = msgLoginRequired
	}
	s.render(w, http.StatusOK, view)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	// Sessions exist only after a successful login; a rejected password also ends an existing one.
	id, _, hasSession := s.currentSession(r)
	if !s.passwords.Check(r.PostFormValue("password")) {
		if hasSession {
			s.endSession(w, id)
		}
		s.logger.Warn("login rejected", "remote", r.RemoteAddr)
		view := s.newView(false)
		view.Error = msgIncorrectPass
		s.render(w, http.StatusUnauthorized, view)
		return
	}

	newID := s.sessions.authenticate(id)
	s.sessions.setFlash(newID, msgAuthenticated)
	s.setSessionCookie(w, r, newID)
	s.logger.Info("login accepted", "remote", r.RemoteAddr)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id, _, ok := s.currentSession(r); ok {
		s.endSession(w, id)
	} else {
		clearSessionCookie(w)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// endSession forgets the session with its pending downloads and expires the cookie.
func (s *Server) endSession(w http.ResponseWriter, id string) {
	s.sessions.delete(id)
	s.downloads.dropSession(id)
	clearSessionCookie(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireAuthenticated(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	view := s.newView(true)
	startRaw := strings.TrimSpace(r.PostFormValue("start_date"))
	endRaw := strings.TrimSpace(r.PostFormValue("end_date"))
	view.StartDate, view.EndDate = startRaw, endRaw

	if startRaw == "" || endRaw == "" {
		view.Error = msgMissingDates
		s.render(w, http.StatusBadRequest, view)
		return
	}
	rng, err := examresult.ParseDateRange(startRaw, endRaw)
	if err != nil {
		view.Error = err.Error()
		s.render(w, http.StatusBadRequest, view)
		return
	}

	profile := s.builder.Profile()
	started := s.now()
	rows, err := s.fetcher.FetchResults(r.Context(), rng, storage.FetchOptions{
		IncludeExamType: profile.HasColumn(export.ColExamType),
	})
	if err != nil {
		s.logger.Error("query exam results", "range", rng.String(), "error", err)
		view.Error = fmt.Sprintf("Error querying database: %v", err)
		s.render(w, http.StatusBadGateway, view)
		return
	}
	if len(rows) == 0 {
		s.logger.Info("export returned no rows", "range", rng.String())
		view.Warning = msgNoData
		s.render(w, http.StatusOK, view)
		return
	}

	buf, err := s.builder.Build(rows)
	if err != nil {
		s.logger.Error("build export", "range", rng.String(), "rows", len(rows), "error", err)
		view.Error = fmt.Sprintf("Error building spreadsheet: %v", err)
		s.render(w, http.StatusInternalServerError, view)
		return
	}

	fileName := profile.FileNameFor(rng, "")
	token := s.downloads.put(id, fileName, export.ContentTypeXLSX, buf.Bytes())
	s.logger.Info("export ready",
		"range", rng.String(),
		"rows", len(rows),
		"bytes", buf.Len(),
		"duration", s.now().Sub(started).Round(time.Millisecond).String(),
	)

	view.RowCount = len(rows)
	view.Info = fmt.Sprintf("Query returned %d rows.", len(rows))
	view.DownloadURL = "/download/" + token
	view.FileName = fileName
	s.render(w, http.StatusOK, view)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireAuthenticated(w, r)
	if !ok {
		return
	}

	item, found := s.downloads.get(strings.TrimSpace(r.PathValue("token")), id)
	if !found {
		http.Error(w, msgDownloadNotFound, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", item.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", item.fileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(item.data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(item.data)
}

// requireAuthenticated renders the login page with 401 when the request has no authenticated session.
func (s *Server) requireAuthenticated(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, sess, ok := s.currentSession(r)
	if ok && sess.authenticated {
		return id, true
	}
	view := s.newView(false)
	view.Error = msgLoginRequired
	s.render(w, http.StatusUnauthorized, view)
	return "", false
}

func (s *Server) currentSession(r *http.Request) (string, session, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", session{}, false
	}
	sess, ok := s.sessions.get(cookie.Value)
	if !ok {
		return "", session{}, false
	}
	return cookie.Value, sess, true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) newView(authenticated bool) pageView {
	today := s.now().Format(examresult.DateLayout)
	return pageView{
		Title:         "Exam Results Exporter",
		Authenticated: authenticated,
		Profile:       s.builder.Profile().Name,
		StartDate:     today,
		EndDate:       today,
	}
}

func (s *Server) render(w http.ResponseWriter, status int, view pageView) {
	if err := renderTemplate(w, status, "index.html", view); err != nil {
		s.logger.Error("render template", "error", err)
	}
}

func renderTemplate(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return fmt.Errorf("execute template %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write template %s: %w", name, err)
	}
	return nil
}
