package http

import (
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/claimsportal/claimgate/pkg/usecase"
	"github.com/claimsportal/claimgate/pkg/utils/logging"
	"github.com/claimsportal/claimgate/pkg/utils/safe"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type SessionUseCase = usecase.SessionUseCaseInterface

type Server struct {
	router    *chi.Mux
	sessionUC SessionUseCase
	claimUC   *usecase.ClaimUseCase
	staticFS  fs.FS
	version   string
}

type Options func(*Server)

// WithStaticFS serves the built portal frontend for every path not handled by the API
func WithStaticFS(staticFS fs.FS) Options {
	return func(s *Server) {
		s.staticFS = staticFS
	}
}

func WithVersion(version string) Options {
	return func(s *Server) {
		s.version = version
	}
}

func New(sessionUC SessionUseCase, claimUC *usecase.ClaimUseCase, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:    r,
		sessionUC: sessionUC,
		claimUC:   claimUC,
		version:   "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", healthHandler(s.version))

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/login", authLoginHandler(s.sessionUC))
		r.Get("/callback", authCallbackHandler(s.sessionUC))
		r.Post("/logout", authLogoutHandler(s.sessionUC))
		r.With(sessionGuard(s.sessionUC)).Get("/me", authMeHandler())
	})

	r.Group(func(r chi.Router) {
		r.Use(sessionGuard(s.sessionUC))

		r.Post("/api/org/select", orgSelectHandler())
		r.Post("/api/score", scoreHandler(s.claimUC))

		r.Route("/api/claims", func(r chi.Router) {
			r.Get("/", listClaimsHandler(s.claimUC))
			r.Post("/", createClaimHandler(s.claimUC))
			r.Get("/stats", statsHandler(s.claimUC))
			r.Get("/dashboard", dashboardHandler(s.claimUC))
			r.Get("/review-queue", reviewQueueHandler(s.claimUC))
			r.Get("/export", exportHandler(s.claimUC))

			r.Route("/{claimID}", func(r chi.Router) {
				r.Get("/", getClaimHandler(s.claimUC))
				r.Get("/notes", listNotesHandler(s.claimUC))
				r.Post("/notes", addNoteHandler(s.claimUC))
				r.Post("/{action}", claimActionHandler(s.claimUC))
			})
		})
	})

	// Static file serving for SPA (catch-all, must be last)
	if s.staticFS != nil {
		r.Get("/*", spaHandler(s.staticFS))
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func healthHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "UP", Version: version})
	}
}

// spaHandler handles SPA routing by serving static files and falling back to index.html
func spaHandler(staticFS fs.FS) http.HandlerFunc {
	fileServer := http.FileServer(http.FS(staticFS))

	return func(w http.ResponseWriter, r *http.Request) {
		urlPath := strings.TrimPrefix(r.URL.Path, "/")
		if urlPath == "" {
			urlPath = "index.html"
		}

		file, err := staticFS.Open(urlPath)
		if err != nil {
			// Unknown path: let the client side router handle it
			indexFile, err := staticFS.Open("index.html")
			if err != nil {
				http.NotFound(w, r)
				return
			}
			defer safe.Close(r.Context(), indexFile)
			w.Header().Set("Content-Type", "text/html")
			safe.Copy(r.Context(), w, indexFile)
			return
		}
		safe.Close(r.Context(), file)

		fileServer.ServeHTTP(w, r)
	}
}
