// Package dashboard serves the case board over HTTP: a read-only HTML index
// and a JSON API, plus mount points for the live event streams.
package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/felixgeelhaar/blotter/pkg/domain"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/gate"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/timeline"
)

//go:embed templates/*
var templatesFS embed.FS

// CaseReader is the read side of the case service.
type CaseReader interface {
	List(ctx context.Context) ([]*casefile.Case, error)
	Timeline(ctx context.Context, ref string) (*casefile.Case, []timeline.Stage, error)
	Decision(ctx context.Context, ref string, role gate.Role) (*casefile.Case, gate.Decision, error)
}

// HearingReader is the read side of the hearing service.
type HearingReader interface {
	List(ctx context.Context, caseRef string) ([]*hearing.Hearing, error)
	PendingApprovals(ctx context.Context) ([]*hearing.Hearing, error)
}

// Server is the dashboard HTTP server.
type Server struct {
	addr     string
	cases    CaseReader
	hearings HearingReader
	mux      *http.ServeMux
	server   *http.Server
	tmpl     *template.Template
	logger   *slog.Logger
}

func NewServer(addr string, cases CaseReader, hearings HearingReader, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	funcMap := template.FuncMap{
		"statusClass": statusClass,
		"formatTime":  formatTime,
	}
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		addr:     addr,
		cases:    cases,
		hearings: hearings,
		mux:      http.NewServeMux(),
		tmpl:     tmpl,
		logger:   logger,
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /api/cases", s.handleAPICases)
	s.mux.HandleFunc("GET /api/cases/{ref}/timeline", s.handleAPITimeline)
	s.mux.HandleFunc("GET /api/cases/{ref}/next", s.handleAPINext)
	s.mux.HandleFunc("GET /api/cases/{ref}/hearings", s.handleAPIHearings)
	s.mux.HandleFunc("GET /api/hearings/pending", s.handleAPIPending)
	return s, nil
}

// Mount adds a handler such as the websocket hub or the SSE stream.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.server = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("dashboard listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- s.server.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

// CaseRow is one line of the case board.
type CaseRow struct {
	Case *casefile.Case
	Next string
}

// PageData holds data for template rendering.
type PageData struct {
	Title   string
	Rows    []CaseRow
	Pending []*hearing.Hearing
	Error   string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := PageData{Title: "Case board"}

	cases, err := s.cases.List(r.Context())
	if err != nil {
		data.Error = err.Error()
		s.render(w, "index.html", data)
		return
	}
	for _, c := range cases {
		row := CaseRow{Case: c, Next: "-"}
		if _, d, err := s.cases.Decision(r.Context(), c.ID, gate.RoleOfficer); err == nil && d.Next != nil {
			row.Next = d.Next.Action.Label()
		}
		data.Rows = append(data.Rows, row)
	}
	data.Pending, _ = s.hearings.PendingApprovals(r.Context())

	s.render(w, "index.html", data)
}

func (s *Server) handleAPICases(w http.ResponseWriter, r *http.Request) {
	cases, err := s.cases.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, cases)
}

type timelineResponse struct {
	Case   *casefile.Case   `json:"case"`
	Stages []timeline.Stage `json:"stages"`
}

func (s *Server) handleAPITimeline(w http.ResponseWriter, r *http.Request) {
	c, stages, err := s.cases.Timeline(r.Context(), r.PathValue("ref"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, timelineResponse{Case: c, Stages: stages})
}

func (s *Server) handleAPINext(w http.ResponseWriter, r *http.Request) {
	role := gate.RoleOfficer
	if v := r.URL.Query().Get("role"); v != "" {
		parsed, err := gate.ParseRole(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		role = parsed
	}
	_, d, err := s.cases.Decision(r.Context(), r.PathValue("ref"), role)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, d)
}

func (s *Server) handleAPIHearings(w http.ResponseWriter, r *http.Request) {
	list, err := s.hearings.List(r.Context(), r.PathValue("ref"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, list)
}

func (s *Server) handleAPIPending(w http.ResponseWriter, r *http.Request) {
	list, err := s.hearings.PendingApprovals(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, list)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrCaseNotFound), errors.Is(err, domain.ErrHearingNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.logger.Error("dashboard request failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template error", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func statusClass(status casefile.Status) string {
	switch status {
	case casefile.StatusPending, casefile.StatusAssigned:
		return "status-pending"
	case casefile.StatusOngoing, casefile.StatusScheduled:
		return "status-progress"
	case casefile.StatusResolved:
		return "status-done"
	case casefile.StatusCancelled:
		return "status-cancelled"
	default:
		return "status-unknown"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
