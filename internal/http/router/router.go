package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ctlabs-oss/authcore/internal/http/handler"
	"github.com/ctlabs-oss/authcore/internal/http/middleware"
	"github.com/ctlabs-oss/authcore/internal/http/response"
)

// Config carries the wired handlers and cross-cutting middleware the
// router mounts.
type Config struct {
	Auth  *handler.AuthHandler
	Users *handler.UserHandler
	Admin *handler.AdminHandler

	Authenticator *middleware.Authenticator
	AuthLimiter   *middleware.RateLimiter
	APILimiter    *middleware.RateLimiter

	Logger *slog.Logger
}

// New assembles the full route tree. Credential endpoints sit behind the
// tighter auth limiter; everything else shares the general API limiter.
func New(cfg Config) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		response.JSON(w, req, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.APILimiter != nil {
			r.Use(cfg.APILimiter.Middleware())
		}

		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthLimiter != nil {
				r.Use(cfg.AuthLimiter.Middleware())
			}
			r.Post("/register", cfg.Auth.Register)
			r.Post("/login", cfg.Auth.Login)
			r.Post("/refresh", cfg.Auth.Refresh)
			r.Post("/logout", cfg.Auth.Logout)
			r.Post("/verify-email", cfg.Auth.VerifyEmail)
			r.Post("/verify-phone", cfg.Auth.VerifyPhone)
			r.Post("/forgot-password", cfg.Auth.ForgotPassword)
			r.Post("/reset-password", cfg.Auth.ResetPassword)
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Use(cfg.Authenticator.Middleware())
			r.Get("/", cfg.Users.Me)
			r.Put("/profile", cfg.Users.UpdateProfile)
			r.Get("/sessions", cfg.Users.Sessions)
			r.Delete("/sessions/{session_id}", cfg.Users.RevokeSession)
			r.Post("/avatar", cfg.Users.UploadAvatar)
			r.Get("/avatar", cfg.Users.AvatarURL)
			r.Delete("/avatar", cfg.Users.DeleteAvatar)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(cfg.Authenticator.Middleware())
			r.Use(middleware.RequireAuthority("ROLE_ADMIN"))
			r.Get("/users/{user_id}", cfg.Admin.GetUser)
			r.Put("/users/{user_id}/status", cfg.Admin.ChangeUserStatus)
			r.Delete("/users/{user_id}", cfg.Admin.DeleteUser)
			r.Post("/users/{user_id}/roles", cfg.Admin.AssignRole)
			r.Delete("/users/{user_id}/roles", cfg.Admin.RemoveRole)
			r.Post("/roles", cfg.Admin.CreateRole)
			r.Post("/permissions", cfg.Admin.CreatePermission)
			r.Post("/roles/permissions", cfg.Admin.AssignPermission)
			r.Delete("/roles/permissions", cfg.Admin.RemovePermission)
		})
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}
