package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/qna-api/internal/application/answer"
	"github.com/qna-api/internal/application/notification"
	"github.com/qna-api/internal/application/question"
	"github.com/qna-api/internal/application/session"
	"github.com/qna-api/internal/application/user"
	"github.com/qna-api/internal/config"
	"github.com/qna-api/internal/domain"
	"github.com/qna-api/internal/event"
	jwtinfra "github.com/qna-api/internal/infrastructure/jwt"
	"github.com/qna-api/internal/realtime"
	"github.com/qna-api/internal/transport/http/handler"
	appmiddleware "github.com/qna-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router. NotificationSvc
// is built in main because the event bus handlers and the poller share it.
type Deps struct {
	UserRepo        UserRepository
	QuestionRepo    QuestionRepository
	AnswerRepo      AnswerRepository
	NotificationSvc notification.Service
	S3Store         ObjectStore
	JWTProvider     *jwtinfra.Provider
	Bus             *event.Bus
	Hub             *realtime.Hub
	Poller          *realtime.Poller
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10, applied to credential endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	userSvc := user.NewService(deps.UserRepo, deps.S3Store)
	sessionSvc := session.NewService(deps.UserRepo, deps.JWTProvider)
	questionSvc := question.NewService(deps.QuestionRepo, deps.UserRepo, deps.Bus)
	answerSvc := answer.NewService(deps.AnswerRepo, deps.QuestionRepo, deps.UserRepo, deps.Bus)

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(sessionSvc)
	userH := handler.NewUserHandler(userSvc)
	questionH := handler.NewQuestionHandler(questionSvc)
	answerH := handler.NewAnswerHandler(answerSvc)
	notifH := handler.NewNotificationHandler(deps.NotificationSvc, deps.Hub, deps.Hub, deps.Poller)
	streamH := handler.NewStreamHandler(deps.Hub, deps.JWTProvider, cfg.HeartbeatInterval)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)

		// SSE clients authenticate via the token query parameter, so the
		// stream sits outside the header-based auth group.
		r.Get("/notifications/stream", streamH.Stream)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/users/{id}", userH.Get)
			r.Post("/users/avatar", userH.UploadAvatar)
			r.Get("/users/{id}/avatar", userH.DownloadAvatar)

			r.Get("/questions", questionH.List)
			r.Post("/questions", questionH.Create)
			r.Get("/questions/{id}", questionH.Get)
			r.Post("/questions/{id}/votes", questionH.Vote)
			r.Get("/questions/{id}/answers", answerH.ListByQuestion)
			r.Post("/questions/{id}/answers", answerH.Create)
			r.Post("/answers/{id}/votes", answerH.Vote)

			r.Get("/notifications", notifH.List)
			r.Put("/notifications/read", notifH.MarkRead)
			r.Put("/notifications/read-all", notifH.MarkAllRead)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/notifications/stats", notifH.Stats)
				r.Post("/notifications", notifH.Create)
			})
		})
	})

	return r
}
