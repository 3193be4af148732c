// Package web serves the local browser UI: a session browser, an upload
// form, and a query form with the bounded local history. It is
// presentational wiring over the orchestrators; all rules live below it.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/afsharalex/PaperShelf/internal/gateway"
	"github.com/afsharalex/PaperShelf/internal/history"
	"github.com/afsharalex/PaperShelf/internal/query"
	"github.com/afsharalex/PaperShelf/internal/uploader"
)

//go:embed templates/*.html
var templatesFS embed.FS

// maxUploadBytes bounds one multipart submission in memory/disk spill.
const maxUploadBytes = 64 << 20

// Gateway is the read-only slice of the gateway the pages need directly.
type Gateway interface {
	ListSessions(ctx context.Context) ([]gateway.Session, error)
	SessionURL(sessionID string) string
	SessionExportURL(sessionID string) string
}

// Server renders the pages and owns the route table.
type Server struct {
	gw      Gateway
	uploads *uploader.Orchestrator
	queries *query.Orchestrator
	store   *history.Store
	tmpl    *template.Template
	handler http.Handler
}

// New wires the pages to the orchestrators and history store.
func New(gw Gateway, uploads *uploader.Orchestrator, queries *query.Orchestrator, store *history.Store) *Server {
	s := &Server{
		gw:      gw,
		uploads: uploads,
		queries: queries,
		store:   store,
		tmpl: template.Must(template.New("").Funcs(template.FuncMap{
			"add1": func(i int) int { return i + 1 },
		}).ParseFS(templatesFS, "templates/*.html")),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/", s.handleHome)
	r.Get("/upload-page", s.handleUploadForm)
	r.Post("/upload-page", s.handleUploadSubmit)
	r.Get("/query-page", s.handleQueryForm)
	r.Post("/query-page", s.handleQuerySubmit)
	r.Post("/query-page/clear", s.handleClearHistory)
	s.handler = r

	return s
}

// Handler returns the route table for mounting in an http.Server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

type sessionView struct {
	ShortID   string
	CreatedAt string
	ViewURL   string
	ExportURL string
}

type homeData struct {
	Sessions []sessionView
	Error    string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	var data homeData

	sessions, err := s.gw.ListSessions(r.Context())
	if err != nil {
		if gateway.IsRemote(err) {
			data.Error = "Error loading sessions: " + gateway.ErrorDetail(err)
		} else {
			data.Error = "Error loading sessions: " + err.Error()
		}
	}

	for _, sess := range sessions {
		short := sess.SessionID
		if len(short) > 8 {
			short = short[:8] + "..."
		}
		data.Sessions = append(data.Sessions, sessionView{
			ShortID:   short,
			CreatedAt: sess.CreatedAt,
			ViewURL:   s.gw.SessionURL(sess.SessionID),
			ExportURL: s.gw.SessionExportURL(sess.SessionID),
		})
	}

	s.render(w, "home.html", data)
}

type uploadData struct {
	Message string // single informational line for validation rejections
	Report  *uploader.Report
	Failed  bool
}

func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "upload.html", uploadData{})
}

func (s *Server) handleUploadSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.render(w, "upload.html", uploadData{Message: "Could not read the upload form.", Failed: true})
		return
	}

	var files []uploader.FileHandle
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["file"] {
			header := fh
			files = append(files, uploader.FileHandle{
				Name: header.Filename,
				Open: func() (io.ReadCloser, error) { return header.Open() },
			})
		}
	}

	result, err := s.uploads.Submit(r.Context(), files)
	if err != nil {
		// Validation rejections and a busy orchestrator both render as a
		// single informational line; the form comes back empty either way.
		s.render(w, "upload.html", uploadData{Message: err.Error(), Failed: true})
		return
	}

	report := uploader.Describe(result)
	s.render(w, "upload.html", uploadData{Report: &report, Failed: report.Failed})
}

type queryData struct {
	Question string
	Response *history.Record
	Error    string
	History  []history.Record
}

func (s *Server) handleQueryForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "query.html", queryData{History: s.store.Load()})
}

func (s *Server) handleQuerySubmit(w http.ResponseWriter, r *http.Request) {
	question := r.FormValue("query")

	record, err := s.queries.Ask(r.Context(), question)
	if err != nil {
		data := queryData{Question: question, History: s.store.Load()}
		switch {
		case errors.Is(err, query.ErrEmptyQuestion), errors.Is(err, query.ErrBusy):
			data.Error = err.Error()
		case gateway.IsRemote(err):
			data.Error = "Error: " + gateway.ErrorDetail(err)
		default:
			data.Error = "Error: " + err.Error()
		}
		s.render(w, "query.html", data)
		return
	}

	// Question box is rendered empty again after a successful query.
	s.render(w, "query.html", queryData{Response: &record, History: s.store.Load()})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(); err != nil {
		slog.Warn("could not clear query history", "error", err)
	}
	http.Redirect(w, r, "/query-page", http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, page, data); err != nil {
		slog.Error("rendering page", "page", page, "error", err)
	}
}
