// Package stub is an in-memory emulation of the production surface: the
// WordPress-flavored content API with JWT auth, plus the four
// report-generation backends. It exists so the CLI and its tests can run
// without any real service.
package stub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server holds all emulated state behind one mutex. It is not meant to
// survive restarts or heavy load, only local development and tests.
type Server struct {
	router chi.Router
	logger *slog.Logger
	secret []byte

	mu       sync.Mutex
	users    map[int]*stubUser
	posts    map[int]*stubPost
	terms    map[string]map[int]*stubTerm // taxonomy -> id -> term
	comments map[int]*stubComment
	media    map[int]*stubMedia
	files    map[string][]byte // report backend uploads, by file_id
	reports  map[string][]byte // generated reports, by report_file
	nextID   int
}

// New returns a stub server seeded with one administrator account
// (admin / password) and the default category.
func New(secret string, logger *slog.Logger) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger.With("component", "stub"),
		secret:   []byte(secret),
		users:    map[int]*stubUser{},
		posts:    map[int]*stubPost{},
		terms:    map[string]map[int]*stubTerm{"category": {}, "post_tag": {}},
		comments: map[int]*stubComment{},
		media:    map[int]*stubMedia{},
		files:    map[string][]byte{},
		reports:  map[string][]byte{},
		nextID:   1,
	}

	admin := &stubUser{
		ID:       s.allocID(),
		Username: "admin",
		Password: "password",
		Name:     "Site Admin",
		Email:    "admin@example.test",
		Roles:    []string{"administrator"},
	}
	s.users[admin.ID] = admin
	s.terms["category"][1] = &stubTerm{ID: 1, Name: "Uncategorized", Taxonomy: "category"}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/wp-json", func(r chi.Router) {
		r.Post("/jwt-auth/v1/token", s.handleToken)
		r.Post("/jwt-auth/v1/token/validate", s.handleValidateToken)

		r.Route("/wp/v2", func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/users/me", s.handleMe)
			r.Post("/users", s.handleCreateUser)

			r.Get("/posts", s.handleListPosts)
			r.Post("/posts", s.handleCreatePost)
			r.Get("/posts/{id}", s.handleGetPost)
			r.Post("/posts/{id}", s.handleUpdatePost)
			r.Put("/posts/{id}", s.handleUpdatePost)
			r.Delete("/posts/{id}", s.handleDeletePost)

			r.Get("/categories", s.handleListTerms("category"))
			r.Post("/categories", s.handleCreateTerm("category"))
			r.Get("/tags", s.handleListTerms("post_tag"))
			r.Post("/tags", s.handleCreateTerm("post_tag"))

			r.Get("/comments", s.handleListComments)
			r.Post("/comments", s.handleCreateComment)
			r.Delete("/comments/{id}", s.handleDeleteComment)

			r.Post("/media", s.handleUploadMedia)
		})

		r.Post("/reportkit/v1/users/{id}/welcome", s.handleWelcome)
	})

	// Report backends share handlers; only the view route varies.
	r.Route("/svc", func(r chi.Router) {
		for _, b := range []struct {
			name    string
			ext     string
			canView bool
		}{
			{"docs", ".docx", false},
			{"html", ".html", true},
			{"excel", ".xlsx", false},
			{"slicer", ".html", true},
		} {
			r.Route("/"+b.name, func(r chi.Router) {
				r.Use(s.authenticate)
				r.Post("/upload", s.handleBackendUpload)
				r.Post("/generate", s.handleBackendGenerate(b.name, b.ext))
				r.Get("/download", s.handleBackendDownload)
				if b.canView {
					r.Get("/view", s.handleBackendView)
				}
			})
		}
	})
}

func (s *Server) allocID() int {
	id := s.nextID
	s.nextID++
	return id
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// wpError writes the WordPress-style error envelope every client-facing
// failure uses: {"code": ..., "message": ..., "data": {"status": N}}.
func wpError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":    code,
		"message": message,
		"data":    map[string]any{"status": status},
	})
}

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
