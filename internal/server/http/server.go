// Package httpserver exposes the catalog API over HTTP/JSON.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/model"
	"github.com/and161185/keepsake/internal/ratelimit"
	"github.com/and161185/keepsake/internal/service"
	"github.com/and161185/keepsake/internal/validation"
	"github.com/gofrs/uuid/v5"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Users       service.UserService
	Collections service.CollectionService
	Tags        service.TagService
	Comments    service.CommentService
	Gate        service.Gate

	// Ping reports storage health for /healthz.
	Ping func(context.Context) error
	// AuthLimiter throttles signup and login per client IP. Nil disables it.
	AuthLimiter *ratelimit.KeyedRateLimiter
	// CORSOrigins lists allowed browser origins. Empty disables CORS headers.
	CORSOrigins []string

	Log *zap.Logger
}

// Server wires services into HTTP handlers.
type Server struct {
	users       service.UserService
	collections service.CollectionService
	tags        service.TagService
	comments    service.CommentService
	gate        service.Gate
	ping        func(context.Context) error

	v      *validation.Validator
	log    *zap.Logger
	router chi.Router
}

// New constructs a server with all routes configured.
func New(d Deps) *Server {
	s := &Server{
		users:       d.Users,
		collections: d.Collections,
		tags:        d.Tags,
		comments:    d.Comments,
		gate:        d.Gate,
		ping:        d.Ping,
		v:           validation.New(),
		log:         d.Log,
		router:      chi.NewRouter(),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.routes(d)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(d Deps) {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging(s.log))
	r.Use(Recover(s.log))
	r.Use(middleware.StripSlashes)
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	throttle := func(next http.Handler) http.Handler { return next }
	if d.AuthLimiter != nil {
		throttle = RateLimit(d.AuthLimiter, s.log)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Route not found."}, s.log)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed."}, s.log)
	})
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.With(throttle).Post("/", s.handleSignup)
			r.With(throttle).Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
			r.Get("/{userId}", s.handleGetUser)
			r.With(s.requireAuth).Patch("/{userId}/patchDesc", s.handlePatchDescription)
			r.With(s.requireAuth).Delete("/{userId}", s.handleDeleteUser)
		})

		r.Route("/collection", func(r chi.Router) {
			r.Get("/", s.handleListCollections)
			r.Get("/{collectionId}", s.handleGetCollection)
			r.Get("/{collectionId}/items", s.handleListItems)
			r.Get("/{collectionId}/item/{itemId}", s.handleGetItem)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/", s.handleCreateCollection)
				r.Delete("/{collectionId}", s.handleDeleteCollection)
				r.Post("/{collectionId}/item", s.handleAddItem)
				r.Patch("/{collectionId}/item", s.handleEditItem)
				r.Delete("/{collectionId}/item", s.handleDeleteItem)
				r.Post("/{collectionId}/item/like", s.handleLikeItem)
			})
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.handleListTags)
			r.With(s.requireAuth).Post("/", s.handleCreateTag)
		})

		r.Route("/comments", func(r chi.Router) {
			r.Get("/", s.handleListComments)
			r.Get("/{commentId}", s.handleGetComment)
			r.With(s.requireAuth).Post("/", s.handleCreateComment)
			r.With(s.requireAuth).Delete("/{commentId}", s.handleDeleteComment)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}, s.log)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.log)
}

// caller returns the user stored by requireAuth.
func caller(r *http.Request) (*model.User, error) {
	u, ok := UserFromCtx(r.Context())
	if !ok {
		return nil, errs.New(errs.ErrUnauthorized, "User not authenticated")
	}
	return u, nil
}

// ownerOrAdmin allows u to act on something owned by ownerID.
func ownerOrAdmin(u *model.User, ownerID uuid.UUID) error {
	if u.IsAdmin || u.ID == ownerID {
		return nil
	}
	return errs.New(errs.ErrForbidden, "Not allowed")
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.FromString(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errs.New(errs.ErrValidation, "Bad "+name)
	}
	return id, nil
}
