package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/lostfound-auth/internal/service"
	"github.com/pribylovaa/lostfound-auth/internal/transport/http/handlers"
	"github.com/pribylovaa/lostfound-auth/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(),            // счётчики и гистограмма по шаблону маршрута
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(svc)

	if opts.BasePath != "" && opts.BasePath != "/" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, svc)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, svc)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, auth middleware.Authenticator) {
	// без сессии
	r.Post("/users/register", h.RegisterUser)
	r.Post("/users/login", h.LoginUser)
	r.Post("/users/refresh", h.RefreshSession)
	r.Post("/users/session", h.RefreshSession)

	// с действующим session-токеном
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(auth))

		r.Post("/users/logout", h.Logout)
		r.Get("/users/me", h.Me)
		r.Delete("/users/me", h.DeleteMe)
		r.Post("/users/password", h.ChangePassword)
	})
}
