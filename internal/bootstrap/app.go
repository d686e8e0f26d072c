package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"

	"compliance-backend/internal/agent"
	"compliance-backend/internal/analysis"
	"compliance-backend/internal/analytics"
	"compliance-backend/internal/auth"
	"compliance-backend/internal/identity"
	"compliance-backend/internal/llm"
	"compliance-backend/internal/llm/bedrock"
	"compliance-backend/internal/llm/openai"
	"compliance-backend/internal/organizations"
	"compliance-backend/internal/questionnaire"
	"compliance-backend/internal/reports"
	"compliance-backend/internal/services/health"
	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/server"
	"compliance-backend/internal/shared/storage/db"
	"compliance-backend/internal/shared/storage/object"
	localstore "compliance-backend/internal/shared/storage/object/local"
	miniostore "compliance-backend/internal/shared/storage/object/minio"
	s3store "compliance-backend/internal/shared/storage/object/s3"
	"compliance-backend/internal/shared/telemetry"
)

// App holds every collaborator the process owns.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB

	Objects       object.ObjectStore
	Organizations organizations.Store
	Submissions   questionnaire.Store
	AgentReports  agent.Store
	Events        analytics.Store
	LLM           llm.Client
	Identity      identity.Provider
	GoogleAuth    *auth.GoogleService

	AnalyticsService     *analytics.Service
	OrganizationsService *organizations.Service
	QuestionnaireService *questionnaire.Service
	AgentService         *agent.Service
	ReportsService       *reports.Service
	Orchestrator         *analysis.Orchestrator
}

// Options lets tests replace collaborators that would otherwise reach out to
// AWS, a database or a model provider.
type Options struct {
	LLM      llm.Client
	Identity identity.Provider
	Objects  object.ObjectStore
}

// Build constructs the application from cfg.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	return BuildWithOptions(ctx, cfg, Options{})
}

// BuildWithOptions constructs the application, preferring the collaborators in opts.
func BuildWithOptions(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := &App{Config: cfg}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		loaded, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return aws.Config{}, fmt.Errorf("load aws config: %w", err)
		}
		awsCfg = &loaded
		return loaded, nil
	}

	if err := app.buildStores(ctx, loadAWS); err != nil {
		app.Close()
		return nil, err
	}

	app.Identity = opts.Identity
	if app.Identity == nil {
		provider, err := buildIdentity(cfg)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Identity = provider
	}

	app.LLM = opts.LLM
	if app.LLM == nil {
		client, err := buildLLM(cfg, loadAWS)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.LLM = client
	}

	app.Objects = opts.Objects
	if app.Objects == nil {
		store, err := buildObjectStore(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Objects = store
	}

	if cfg.SeedDemoData && cfg.IsDevLike() {
		if seeder, ok := app.Organizations.(*organizations.MemoryStore); ok {
			n, err := organizations.SeedDemo(ctx, seeder)
			if err != nil {
				app.Close()
				return nil, fmt.Errorf("seed demo organizations: %w", err)
			}
			telemetry.Info("bootstrap.seeded", map[string]any{"organizations": n})
		}
	}

	app.buildServices()
	if err := app.buildGoogleAuth(); err != nil {
		app.Close()
		return nil, err
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:        cfg,
		Identity:      app.Identity,
		GoogleAuth:    app.GoogleAuth,
		Health:        app.healthService(),
		Organizations: organizations.NewHandler(app.OrganizationsService),
		Questionnaire: questionnaire.NewHandler(app.QuestionnaireService),
		Agent:         agent.NewHandler(app.AgentService),
		Analysis:      analysis.NewHandler(app.Orchestrator),
		Analytics:     analytics.NewHandler(app.AnalyticsService),
		Reports:       reports.NewHandler(app.ReportsService),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"store":        cfg.StoreBackend,
		"ai_provider":  cfg.AIProvider,
		"auth":         cfg.AuthProvider,
		"object_store": cfg.ObjectStoreType,
	})
	return app, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	err := a.DB.Close()
	a.DB = nil
	return err
}

func (a *App) buildStores(ctx context.Context, loadAWS func() (aws.Config, error)) error {
	cfg := a.Config
	// DynamoDB deployments may still keep submissions and events in Postgres.
	useDB := cfg.StoreBackend == config.StorePostgres ||
		(cfg.StoreBackend == config.StoreDynamoDB && strings.TrimSpace(cfg.DatabaseURL) != "")
	if useDB {
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFor(db.DefaultServerOptions(), cfg.DBPool))
		if err != nil {
			return err
		}
		a.DB = sqlDB
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	switch cfg.StoreBackend {
	case config.StorePostgres:
		a.Organizations = &organizations.PGStore{DB: a.DB}
	case config.StoreDynamoDB:
		awsCfg, err := loadAWS()
		if err != nil {
			return err
		}
		a.Organizations = &organizations.DynamoStore{Client: dynamodb.NewFromConfig(awsCfg), Table: cfg.DynamoOrgTable}
	default:
		a.Organizations = organizations.NewMemoryStore()
	}

	switch {
	case cfg.StoreBackend == config.StoreDynamoDB && cfg.DynamoAnalyticsTable != "":
		awsCfg, err := loadAWS()
		if err != nil {
			return err
		}
		a.Events = &analytics.DynamoStore{Client: dynamodb.NewFromConfig(awsCfg), Table: cfg.DynamoAnalyticsTable}
	case a.DB != nil:
		a.Events = &analytics.PGStore{DB: a.DB}
	default:
		a.Events = analytics.NewMemoryStore()
	}

	if a.DB != nil {
		a.Submissions = &questionnaire.PGStore{DB: a.DB}
		a.AgentReports = &agent.PGStore{DB: a.DB}
	} else {
		if cfg.StoreBackend != config.StoreMemory {
			telemetry.Warn("bootstrap.submissions_in_memory", map[string]any{
				"store": cfg.StoreBackend,
				"hint":  "set DATABASE_URL to persist questionnaire submissions and agent reports",
			})
		}
		a.Submissions = questionnaire.NewMemoryStore()
		a.AgentReports = agent.NewMemoryStore()
	}
	return nil
}

func (a *App) buildServices() {
	cfg := a.Config
	a.AnalyticsService = &analytics.Service{Store: a.Events}
	a.OrganizationsService = &organizations.Service{Store: a.Organizations}
	a.QuestionnaireService = &questionnaire.Service{
		Store:         a.Submissions,
		Organizations: a.Organizations,
		Tracker:       a.AnalyticsService,
		Catalog:       questionnaire.DefaultCatalog(),
	}
	a.AgentService = &agent.Service{
		Store:         a.AgentReports,
		Organizations: a.Organizations,
	}
	a.Orchestrator = &analysis.Orchestrator{
		Store:    a.Organizations,
		Analyzer: &analysis.Analyzer{Client: a.LLM, Store: a.Organizations},
		Tracker:  a.AnalyticsService,
		CacheTTL: cfg.AnalysisCacheTTL,
		Coalesce: cfg.AnalysisCoalesce,
	}
	a.ReportsService = &reports.Service{
		Orgs:    a.Organizations,
		Objects: a.Objects,
		Tracker: a.AnalyticsService,
	}
}

// buildGoogleAuth enables Google sign-in when the identity provider can sign
// the tokens it hands out.
func (a *App) buildGoogleAuth() error {
	cfg := a.Config
	googleCfg := auth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		UIRedirect:   cfg.UIRedirectURL,
	}
	if !googleCfg.Configured() {
		return nil
	}
	signer, ok := a.Identity.(auth.TokenSigner)
	if !ok {
		telemetry.Warn("bootstrap.google_auth_disabled", map[string]any{"auth": cfg.AuthProvider})
		return nil
	}
	memberships, err := auth.ParseMemberships(cfg.AuthOrgDomains, cfg.AuthAdminEmails)
	if err != nil {
		return fmt.Errorf("AUTH_ORG_DOMAINS: %w", err)
	}
	a.GoogleAuth = auth.NewGoogleService(googleCfg, signer, memberships, a.AnalyticsService)
	return nil
}

func (a *App) healthService() *health.Service {
	svc := &health.Service{StoreBackend: a.Config.StoreBackend, AIProvider: a.Config.AIProvider}
	if a.DB != nil {
		svc.DB = a.DB
	}
	return svc
}

func buildIdentity(cfg config.Config) (identity.Provider, error) {
	switch cfg.AuthProvider {
	case config.AuthProviderTest:
		if !cfg.IsDevLike() {
			return nil, errors.New("AUTH_PROVIDER=test is only allowed in dev or local")
		}
		return identity.NewTestProvider(identity.DevIdentity), nil
	default:
		return identity.NewJWTProvider(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	}
}

// NewLLM builds the model client cfg selects, for tools that run outside the API.
func NewLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	return buildLLM(cfg, func() (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	})
}

func buildLLM(cfg config.Config, loadAWS func() (aws.Config, error)) (llm.Client, error) {
	switch cfg.AIProvider {
	case config.AIProviderOpenAI:
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.OpenAITimeout)
	case config.AIProviderBedrock:
		awsCfg, err := loadAWS()
		if err != nil {
			return nil, err
		}
		return bedrock.NewClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID), nil
	default:
		telemetry.Warn("bootstrap.ai_disabled", map[string]any{"ai_provider": cfg.AIProvider})
		return llm.PlaceholderClient{}, nil
	}
}

func buildObjectStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case config.ObjectStoreS3:
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.S3KMSKeyID)
	case config.ObjectStoreMinio:
		return miniostore.New(ctx, cfg.MinioEndpoint, cfg.AWSRegion, cfg.S3Bucket, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	default:
		return localstore.New(cfg.LocalStoreDir, "/api"+reports.FilesPath), nil
	}
}
