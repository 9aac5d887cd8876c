package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"research-backend/internal/analysis"
	googleauth "research-backend/internal/auth"
	"research-backend/internal/documents"
	"research-backend/internal/llm"
	"research-backend/internal/llm/gemini"
	"research-backend/internal/llm/openai"
	"research-backend/internal/preferences"
	"research-backend/internal/projects"
	"research-backend/internal/services/health"
	"research-backend/internal/shared/auth"
	"research-backend/internal/shared/config"
	"research-backend/internal/shared/server"
	"research-backend/internal/shared/storage/db"
	"research-backend/internal/shared/storage/kv"
	"research-backend/internal/shared/storage/object"
	localstore "research-backend/internal/shared/storage/object/local"
	miniostore "research-backend/internal/shared/storage/object/minio"
	s3store "research-backend/internal/shared/storage/object/s3"
	"research-backend/internal/shared/telemetry"
	"research-backend/internal/users"
)

// App holds shared dependencies and the configured router.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Slots     kv.Store
	Store     object.ObjectStore
	Generator llm.Generator
	Signer    *auth.Signer
	Health    *health.Service

	ProjectsService    *projects.Service
	DocumentsService   *documents.Service
	Invoker            *analysis.Invoker
	UsersService       *users.Service
	PreferencesService *preferences.Service
	GoogleAuth         *googleauth.GoogleService
}

// Build prepares shared dependencies and wires routes.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	signer, err := auth.NewSigner(cfg.JWTSecret, !cfg.IsDevLike())
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Signer: signer, Health: health.NewService()}

	if app.DB, err = buildDB(ctx, cfg); err != nil {
		return nil, err
	}
	if app.Slots, err = buildSlots(ctx, cfg, app.DB); err != nil {
		app.Close()
		return nil, err
	}
	if app.Store, err = buildStore(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}
	if app.Generator, err = buildGenerator(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}

	buildServices(app)
	registerHealthChecks(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:      cfg,
		Signer:      signer,
		Health:      app.Health,
		Projects:    projects.NewHandler(app.ProjectsService),
		Users:       users.NewHandler(app.UsersService, signer),
		Preferences: preferences.NewHandler(app.PreferencesService),
		GoogleAuth:  app.GoogleAuth,
	})
	return app, nil
}

// Close releases the database and any slot backend holding resources.
func (a *App) Close() error {
	var errs []error
	if closer, ok := a.Slots.(kv.Closer); ok && !a.slotsShareDB() {
		errs = append(errs, closer.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func (a *App) slotsShareDB() bool {
	store, ok := a.Slots.(*kv.SQLStore)
	return ok && a.DB != nil && store.DB == a.DB
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.KVBackend == "postgres" && !cfg.IsDevLike() {
			return nil, fmt.Errorf("DATABASE_URL is required for KV_BACKEND=postgres")
		}
		telemetry.Info("bootstrap.database_disabled", map[string]any{"env": cfg.Env})
		return nil, nil
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.database_fallback", map[string]any{"error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildSlots(ctx context.Context, cfg config.Config, sqlDB *sql.DB) (kv.Store, error) {
	switch cfg.KVBackend {
	case "postgres":
		if sqlDB == nil {
			telemetry.Warn("bootstrap.kv_fallback", map[string]any{"backend": "postgres", "using": "memory"})
			return kv.NewMemoryStore(), nil
		}
		return kv.NewPostgresStore(sqlDB), nil
	case "sqlite":
		return kv.OpenSQLiteStore(ctx, cfg.SQLitePath)
	case "memory":
		return kv.NewMemoryStore(), nil
	default:
		return kv.NewFileStore(cfg.KVDir), nil
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.AWSRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildGenerator(ctx context.Context, cfg config.Config) (llm.Generator, error) {
	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second

	var (
		gen llm.Generator
		err error
	)
	switch cfg.LLMProvider {
	case "openai":
		gen, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, timeout)
	case "gemini":
		gen, err = gemini.NewClient(ctx, gemini.Options{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.LLMModel,
			Timeout: timeout,
		})
	default:
		return llm.PlaceholderGenerator{}, nil
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"provider": cfg.LLMProvider, "error": err})
			return llm.PlaceholderGenerator{}, nil
		}
		return nil, err
	}
	return gen, nil
}

func buildServices(app *App) {
	var userRepo users.Repo = users.NewMemoryRepo()
	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
	}

	app.DocumentsService = documents.NewService(app.Store)
	app.Invoker = analysis.NewInvoker(app.Generator, app.DocumentsService)
	app.ProjectsService = &projects.Service{
		Store:    projects.NewStore(app.Slots),
		Files:    app.DocumentsService,
		Analyzer: app.Invoker,
	}
	app.UsersService = users.NewService(userRepo, app.Slots)
	app.PreferencesService = preferences.NewService(app.Slots)
	app.GoogleAuth = googleauth.NewGoogleService(googleauth.GoogleConfig{
		ClientID:     app.Config.GoogleClientID,
		ClientSecret: app.Config.GoogleClientSecret,
		RedirectURL:  app.Config.GoogleRedirectURL,
		UIRedirect:   app.Config.UIRedirectURL,
	}, app.Signer, app.UsersService)
}

func registerHealthChecks(app *App) {
	if app.DB != nil {
		app.Health.Register("database", app.DB.PingContext)
	}
	if store, ok := app.Slots.(*kv.SQLStore); ok && store.DB != app.DB {
		app.Health.Register("kv", store.DB.PingContext)
	}
}
