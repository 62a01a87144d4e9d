// Package di assembles the process-wide object graph. The cache handle
// and the DB pool are singletons created here at startup and passed into
// every repository as explicit capabilities; nothing reaches for them
// ambiently.
package di

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"computor-backend/internal/cache"
	"computor-backend/internal/config"
	"computor-backend/internal/domain"
	"computor-backend/internal/repository"
	"computor-backend/internal/storage/postgres"
	"computor-backend/internal/views"
	"computor-backend/pkg/observability"
)

// Container holds every initialized component.
type Container struct {
	Config  config.Config
	Logger  *zap.Logger
	Metrics *observability.Collector

	Cache *cache.Cache
	Store *postgres.Store

	Organizations   *repository.Repository[domain.Organization]
	CourseFamilies  *repository.Repository[domain.CourseFamily]
	Courses         *repository.Repository[domain.Course]
	CourseContents  *repository.Repository[domain.CourseContent]
	Deployments     *repository.Repository[domain.CourseContentDeployment]
	ExampleVersions *repository.Repository[domain.ExampleVersion]
	CourseMembers   *repository.CourseMemberRepository
	Groups          *repository.Repository[domain.SubmissionGroup]
	Artifacts       *repository.Repository[domain.SubmissionArtifact]
	Grades          *repository.Repository[domain.SubmissionGrade]
	Messages        *repository.Repository[domain.Message]
	ApiTokens       *repository.ApiTokenRepository

	StudentView  *views.StudentView
	TutorView    *views.TutorView
	LecturerView *views.LecturerView
	GradingView  *views.GradingView

	redisClient *redis.Client
}

// InitializeContainer builds the full graph from configuration.
// perms may be nil when no authorization layer is attached.
func InitializeContainer(ctx context.Context, cfg config.Config, perms repository.PermissionInvalidator) (*Container, error) {
	logger, err := observability.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	var metrics *observability.Collector
	if cfg.Features.EnableMetrics {
		metrics = observability.NewCollector("computor")
	}

	c := &Container{Config: cfg, Logger: logger, Metrics: metrics}

	c.Cache = buildCache(cfg, logger, metrics, c)

	if cfg.Features.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.URL); err != nil {
			return nil, err
		}
	}

	store, err := postgres.Connect(ctx, postgres.Config{
		URL:          cfg.Database.URL,
		MaxConns:     cfg.Database.MaxConns,
		QueryTimeout: cfg.Database.QueryTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	c.Store = store

	c.Organizations = repository.NewOrganizationRepository(store, c.Cache, logger)
	c.CourseFamilies = repository.NewCourseFamilyRepository(store, c.Cache, logger)
	c.Courses = repository.NewCourseRepository(store, c.Cache, logger)
	c.CourseContents = repository.NewCourseContentRepository(store, c.Cache, logger)
	c.Deployments = repository.NewDeploymentRepository(store, c.Cache, logger)
	c.ExampleVersions = repository.NewExampleVersionRepository(store, c.Cache, logger)
	c.CourseMembers = repository.NewCourseMemberRepository(store, c.Cache, perms, logger)
	c.Groups = repository.NewSubmissionGroupRepository(store, c.Cache, logger)
	c.Artifacts = repository.NewSubmissionArtifactRepository(store, c.Cache, logger)
	c.Grades = repository.NewSubmissionGradeRepository(store, c.Cache, logger)
	c.Messages = repository.NewMessageRepository(store, c.Cache, logger)
	c.ApiTokens = repository.NewApiTokenRepository(store, c.Cache, logger)

	conn := store.Provider()
	c.StudentView = views.NewStudentView(c.Cache, conn, metrics, logger, cfg.Cache.StudentTTL)
	c.TutorView = views.NewTutorView(c.Cache, conn, metrics, logger, cfg.Cache.TutorTTL)
	c.LecturerView = views.NewLecturerView(c.Cache, conn, metrics, logger, cfg.Cache.LecturerTTL)
	c.GradingView = views.NewGradingView(c.Cache, conn, metrics, logger, cfg.Cache.GradingTTL)

	return c, nil
}

// buildCache selects the backend: Redis behind a circuit breaker in
// normal operation, a no-op backend when caching is disabled. Either way
// the rest of the system is unchanged; bypass is indistinguishable from a
// cold cache.
func buildCache(cfg config.Config, logger *zap.Logger, metrics *observability.Collector, c *Container) *cache.Cache {
	var backend cache.Backend
	if cfg.Features.EnableCaching {
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.Timeout,
			ReadTimeout:  cfg.Redis.Timeout,
			WriteTimeout: cfg.Redis.Timeout,
		})
		c.redisClient = client
		backend = cache.NewBreakerBackend(cache.NewRedisBackend(client), cache.DefaultBreakerConfig())
	} else {
		backend = cache.NewNoOpBackend()
	}

	return cache.New(backend, cfg.Cache.Prefix, logger,
		cache.WithDefaultTTL(cfg.Cache.EntityTTL),
		cache.WithMetrics(metrics),
	)
}

// Shutdown releases the pool and the cache connection.
func (c *Container) Shutdown() {
	if c.Store != nil {
		c.Store.Close()
	}
	if c.redisClient != nil {
		_ = c.redisClient.Close()
	}
}
