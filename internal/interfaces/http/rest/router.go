// Package rest wires the projection read endpoints onto chi. The HTTP
// surface is deliberately thin; entity writes flow through the repository
// layer from the business services, not from here.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"computor-backend/internal/interfaces/http/rest/handlers"
	"computor-backend/internal/interfaces/http/rest/middleware"
	"computor-backend/internal/storage/postgres"
	"computor-backend/internal/views"
	"computor-backend/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	student  *views.StudentView
	tutor    *views.TutorView
	lecturer *views.LecturerView
	grading  *views.GradingView
	store    *postgres.Store
	metrics  *observability.Collector
	logger   *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	student *views.StudentView,
	tutor *views.TutorView,
	lecturer *views.LecturerView,
	grading *views.GradingView,
	store *postgres.Store,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Router {
	return &Router{
		student:  student,
		tutor:    tutor,
		lecturer: lecturer,
		grading:  grading,
		store:    store,
		metrics:  metrics,
		logger:   logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-Id"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(rt.store, rt.logger)
	router.Get("/health", healthHandler.Health)
	router.Get("/ready", healthHandler.Ready)

	if rt.metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate())

		viewHandler := handlers.NewViewHandler(rt.student, rt.tutor, rt.lecturer, rt.grading, rt.logger)
		r.Route("/courses/{courseID}", func(r chi.Router) {
			r.Get("/student/course-contents", viewHandler.StudentCourseContents)
			r.Get("/student/course-contents/{contentID}", viewHandler.StudentCourseContent)
			r.Get("/tutor/members/{memberID}/course-contents", viewHandler.TutorCourseContents)
			r.Get("/tutor/members/{memberID}/course-contents/{contentID}", viewHandler.TutorCourseContent)
			r.Get("/lecturer/overview", viewHandler.LecturerCourseOverview)
			r.Get("/gradings", viewHandler.CourseGradings)
		})
		r.Get("/course-members/{memberID}/gradings", viewHandler.MemberGradings)
	})

	return router
}
