// Package server exposes the session operations over HTTP. It is a thin
// translation layer: JSON in, session call, JSON out, with error kinds
// mapped onto status codes.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/edustack/registrar/internal/archive"
	"github.com/edustack/registrar/internal/database"
	"github.com/edustack/registrar/internal/errs"
	"github.com/edustack/registrar/internal/logger"
	"github.com/edustack/registrar/internal/session"
)

// Server routes HTTP requests to a session.Manager.
type Server struct {
	manager  *session.Manager
	defaults *database.Config
	snap     *archive.Snapshotter
	log      *logger.Logger
	router   chi.Router
}

// New builds a Server around the given manager. defaults seeds connection
// parameters a connect request does not override. snap may be nil, which
// disables the archive endpoint.
func New(manager *session.Manager, defaults *database.Config, snap *archive.Snapshotter, log *logger.Logger) *Server {
	if log == nil {
		log = logger.New(nil)
	}
	s := &Server{
		manager:  manager,
		defaults: defaults,
		snap:     snap,
		log:      log,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Post("/connect", s.handleConnect)
		r.Post("/disconnect", s.handleDisconnect)
		r.Get("/status", s.handleStatus)

		r.Post("/schema/reset", s.handleSchemaReset)
		r.Post("/seed", s.handleSeed)

		r.Get("/relations", s.handleListRelations)
		r.Route("/relations/{name}", func(r chi.Router) {
			r.Get("/", s.handleLoadRelation)
			r.Get("/options", s.handleOptions)
			r.Post("/", s.handleInsert)
			r.Delete("/{id}", s.handleDelete)
		})

		r.Post("/archive", s.handleArchive)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// connectRequest overrides any subset of the default connection parameters.
type connectRequest struct {
	Driver   string `json:"driver,omitempty"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Database string `json:"database,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	SSLMode  string `json:"sslmode,omitempty"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	cfg := *s.defaults
	if req.Driver != "" {
		cfg.Driver = database.Driver(req.Driver)
	}
	if req.Host != "" {
		cfg.Host = req.Host
	}
	if req.Port != 0 {
		cfg.Port = req.Port
	}
	if req.Database != "" {
		cfg.Database = req.Database
	}
	if req.User != "" {
		cfg.User = req.User
	}
	if req.Password != "" {
		cfg.Password = req.Password
	}
	if req.SSLMode != "" {
		cfg.SSLMode = database.SSLMode(req.SSLMode)
	}

	sess, err := s.manager.Connect(r.Context(), &cfg)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{
		"state":   s.manager.State().String(),
		"dialect": dialectName(sess.Dialect()),
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Disconnect(); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"state": s.manager.State().String()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]any{"state": s.manager.State().String()})
}

func (s *Server) handleSchemaReset(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Session()
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := sess.ResetSchema(r.Context()); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"reset": true})
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Session()
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := sess.SeedDemoData(r.Context()); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"seeded": true})
}

func (s *Server) handleListRelations(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Session()
	if err != nil {
		s.respondError(w, err)
		return
	}

	desc := sess.Descriptor()
	relations := make([]map[string]any, 0, len(desc.Relations()))
	for _, name := range desc.Relations() {
		table, err := desc.Table(name)
		if err != nil {
			s.respondError(w, err)
			return
		}
		relations = append(relations, map[string]any{
			"name":        table.Name,
			"primary_key": table.PrimaryKey,
			"columns":     table.ColumnNames(),
		})
	}
	s.respond(w, http.StatusOK, map[string]any{"relations": relations})
}

func (s *Server) handleLoadRelation(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Session()
	if err != nil {
		s.respondError(w, err)
		return
	}

	rows, err := sess.LoadRelation(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Session()
	if err != nil {
		s.respondError(w, err)
		return
	}

	label := r.URL.Query().Get("label")
	if label == "" {
		s.respondError(w, errs.New(errs.ErrKindInvalidInput, "label query parameter is required"))
		return
	}

	pairs, err := sess.LabelPairs(r.Context(), chi.URLParam(r, "name"), label)
	if err != nil {
		s.respondError(w, err)
		return
	}

	options := make([]map[string]any, len(pairs))
	for i, p := range pairs {
		options[i] = map[string]any{"id": p.ID, "label": p.Label}
	}
	s.respond(w, http.StatusOK, map[string]any{"options": options})
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Session()
	if err != nil {
		s.respondError(w, err)
		return
	}

	var values map[string]any
	if err := decodeJSON(r, &values); err != nil {
		s.respondError(w, err)
		return
	}

	name := chi.URLParam(r, "name")
	id, err := sess.InsertRow(r.Context(), name, normalizeValues(values))
	if err != nil {
		s.respondError(w, err)
		return
	}

	// A write answers with the relation's fresh state so the caller never
	// displays a stale projection.
	rows, err := sess.LoadRelation(r.Context(), name)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, map[string]any{"id": id, "rows": rows})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Session()
	if err != nil {
		s.respondError(w, err)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, errs.New(errs.ErrKindInvalidInput, "id must be an integer"))
		return
	}

	name := chi.URLParam(r, "name")
	if err := sess.DeleteRow(r.Context(), name, id); err != nil {
		s.respondError(w, err)
		return
	}

	rows, err := sess.LoadRelation(r.Context(), name)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.snap == nil {
		s.respondError(w, errs.New(errs.ErrKindInvalidInput, "archive storage is not configured"))
		return
	}
	sess, err := s.manager.Session()
	if err != nil {
		s.respondError(w, err)
		return
	}

	prefix, err := s.snap.Snapshot(r.Context(), sess)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"prefix": prefix})
}

// normalizeValues converts JSON numbers to the integer types the insert
// path expects for integer columns. encoding/json decodes every number as
// float64; whole floats become int64.
func normalizeValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			out[k] = int64(f)
			continue
		}
		out[k] = v
	}
	return out
}

// decodeJSON reads the request body into dst. An empty body is allowed and
// leaves dst at its zero value.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "malformed request body", err)
	}
	return nil
}

func dialectName(d database.Dialect) string {
	if d == database.DialectMySQL {
		return "mysql"
	}
	return "postgres"
}
