package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"deckintel-backend/internal/ai"
	"deckintel-backend/internal/ai/gemini"
	"deckintel-backend/internal/companies"
	"deckintel-backend/internal/decks"
	"deckintel-backend/internal/shared/config"
	"deckintel-backend/internal/shared/server"
	"deckintel-backend/internal/shared/storage/db"
	"deckintel-backend/internal/shared/storage/object"
	localstore "deckintel-backend/internal/shared/storage/object/local"
	s3store "deckintel-backend/internal/shared/storage/object/s3"
	"deckintel-backend/internal/shared/telemetry"
)

// App holds the application's shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.Store
	Gen    ai.Generator

	CompaniesRepo    companies.Repo
	DecksRepo        decks.Repo
	CompaniesService *companies.Service
	DecksService     *decks.Service
	CompaniesHandler *companies.Handler
	DeckHandler      *decks.Handler
}

// Build prepares all dependencies and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gen, err := buildGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Gen:    gen,
	}

	if sqlDB != nil {
		app.CompaniesRepo = &companies.PGRepo{DB: sqlDB}
		app.DecksRepo = &decks.PGRepo{DB: sqlDB}
	} else {
		app.CompaniesRepo = companies.NewMemoryRepo()
		app.DecksRepo = decks.NewMemoryRepo()
	}

	app.CompaniesService = &companies.Service{Repo: app.CompaniesRepo}
	app.DecksService = decks.NewService(app.DecksRepo, app.CompaniesRepo, app.Store, app.Gen)
	app.CompaniesHandler = companies.NewHandler(app.CompaniesService)
	app.DeckHandler = decks.NewHandler(app.DecksService, app.CompaniesService, cfg.MaxUploadBytes)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           cfg,
		DeckHandler:      app.DeckHandler,
		CompaniesHandler: app.CompaniesHandler,
	})

	return app, nil
}

// Close releases resources held by the app.
func (a *App) Close() {
	if a.Gen != nil {
		_ = a.Gen.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap: DATABASE_URL empty; using in-memory repositories", nil)
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap: database connect failed; using in-memory repositories", map[string]any{
				"error": err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildGenerator returns nil in dev when no API key is configured;
// uploads then land as failed decks instead of blocking startup.
func buildGenerator(ctx context.Context, cfg config.Config) (ai.Generator, error) {
	if provider := strings.ToLower(strings.TrimSpace(cfg.AIProvider)); provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported AI_PROVIDER %q", cfg.AIProvider)
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap: GEMINI_API_KEY empty; analysis jobs will fail", nil)
			return nil, nil
		}
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	client, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
