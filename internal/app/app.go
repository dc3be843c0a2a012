package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/openai/openai-go/option"
	"github.com/riskibarqy/fpl-assistant/external/fpl"
	"github.com/riskibarqy/fpl-assistant/external/llm"
	"github.com/riskibarqy/fpl-assistant/internal/config"
	"github.com/riskibarqy/fpl-assistant/internal/domain/conversation"
	"github.com/riskibarqy/fpl-assistant/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fpl-assistant/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/fpl-assistant/internal/interfaces/httpapi"
	"github.com/riskibarqy/fpl-assistant/internal/platform/logging"
	"github.com/riskibarqy/fpl-assistant/internal/platform/resilience"
	"github.com/riskibarqy/fpl-assistant/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	archivePruneInterval = 24 * time.Hour
	archivePruneTimeout  = 2 * time.Minute
)

// assistantCore is the wired assistant shared by the HTTP server and the
// terminal client: snapshot access, provider identity, and a factory that
// mints sessions bound to the configured manager.
type assistantCore struct {
	snapshots    usecase.SnapshotBuilder
	credentials  usecase.Credentials
	providerName string
	newSession   func(sessionID string) *usecase.ChatSession
}

// NewHTTPServer wires the assistant: league client, snapshot aggregation,
// model provider, chat sessions, and the HTTP surface. The returned cleanup
// stops the archive pruner and closes the database connection.
func NewHTTPServer(ctx context.Context, cfg config.Config, logger *logging.Logger) (*http.Server, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}

	core, cleanup, err := newAssistantCore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	handler := httpapi.NewHandler(
		httpapi.NewSessionManager(core.newSession, 0),
		core.snapshots,
		core.credentials,
		core.providerName,
		logger,
	)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, httpapi.BodyCapture{
		Enabled:  cfg.UptraceCaptureRequestBody,
		MaxBytes: cfg.UptraceRequestBodyMaxBytes,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		cleanup()
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, cleanup, nil
}

// NewChatSession builds a single session wired the same way as the HTTP
// server, for terminal use.
func NewChatSession(ctx context.Context, cfg config.Config, logger *logging.Logger) (*usecase.ChatSession, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}

	core, cleanup, err := newAssistantCore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	return core.newSession(""), cleanup, nil
}

func newAssistantCore(ctx context.Context, cfg config.Config, logger *logging.Logger) (assistantCore, func(), error) {
	leagueClient := fpl.NewClient(fpl.ClientConfig{
		HTTPClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		BaseURL:    cfg.FPLBaseURL,
		Timeout:    cfg.FPLTimeout,
		MaxRetries: cfg.FPLMaxRetries,
		StaticTTL:  cfg.FPLStaticTTL,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:      cfg.FPLCircuitEnabled,
			FailureLimit: cfg.FPLCircuitFailureCount,
			Cooldown:     cfg.FPLCircuitOpenTimeout,
			ProbeLimit:   cfg.FPLCircuitHalfOpenMaxReq,
		},
	})

	snapshotSvc := usecase.NewSnapshotService(leagueClient, usecase.SnapshotServiceConfig{
		MemoTTL: cfg.SnapshotMemoTTL,
		Logger:  logger,
	})

	var seasonSvc usecase.SeasonContextBuilder
	if cfg.SeasonContextEnabled {
		seasonSvc = usecase.NewSeasonContextService(leagueClient, usecase.SeasonContextServiceConfig{
			MaxWorkers:      cfg.SeasonMaxWorkers,
			RecentGameweeks: cfg.SeasonRecentGameweeks,
			Logger:          logger,
		})
	}

	provider, err := newModelProvider(ctx, cfg, logger)
	if err != nil {
		return assistantCore{}, nil, err
	}

	archive, cleanup, err := newArchive(ctx, cfg, logger)
	if err != nil {
		return assistantCore{}, nil, err
	}

	composer := usecase.NewComposer(usecase.ComposerConfig{TokenBudget: cfg.ComposerTokenBudget})
	credentials := usecase.Credentials{ManagerID: cfg.FPLManagerID, APIKey: providerAPIKey(cfg)}

	factory := func(sessionID string) *usecase.ChatSession {
		return usecase.NewChatSession(usecase.ChatSessionConfig{
			ID:             sessionID,
			Credentials:    credentials,
			Snapshots:      snapshotSvc,
			Composer:       composer,
			Provider:       provider,
			Season:         seasonSvc,
			Archive:        archive,
			Logger:         logger,
			RouteDataNeeds: cfg.AIRoutingEnabled,
		})
	}

	core := assistantCore{
		snapshots:    snapshotSvc,
		credentials:  credentials,
		providerName: provider.Name(),
		newSession:   factory,
	}

	return core, cleanup, nil
}

func newModelProvider(ctx context.Context, cfg config.Config, logger *logging.Logger) (llm.Provider, error) {
	switch cfg.AIProvider {
	case config.ProviderOpenAI:
		provider, err := llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.AITemperature,
			Logger:      logger,
		}, option.WithRequestTimeout(cfg.AITimeout))
		if err != nil {
			return nil, fmt.Errorf("configure openai provider: %w", err)
		}
		return provider, nil
	case config.ProviderGemini:
		provider, err := llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: float32(cfg.AITemperature),
			HTTPClient:  &http.Client{Timeout: cfg.AITimeout},
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("configure gemini provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.AIProvider)
	}
}

func providerAPIKey(cfg config.Config) string {
	if cfg.AIProvider == config.ProviderOpenAI {
		return cfg.OpenAIAPIKey
	}
	return cfg.GeminiAPIKey
}

// newArchive selects the turn archive. An empty DB_URL keeps turns in
// process memory; otherwise postgres backs them and the retention pruner
// runs when a window is configured.
func newArchive(ctx context.Context, cfg config.Config, logger *logging.Logger) (conversation.Repository, func(), error) {
	if strings.TrimSpace(cfg.DBURL) == "" {
		logger.InfoContext(ctx, "conversation archive using in-memory store")
		return memory.NewConversationRepository(), func() {}, nil
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	repo := postgres.NewConversationRepository(db)
	stopPruner := startArchivePruner(cfg, logger, repo)

	cleanup := func() {
		stopPruner()
		if err := db.Close(); err != nil {
			logger.Warn("close database", "error", err)
		}
	}

	return repo, cleanup, nil
}

func openDatabase(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.ConnectContext(ctx, "postgres", dsn,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	otelsql.ReportDBStatsMetrics(db.DB)

	return db, nil
}

// startArchivePruner deletes archived turns older than the retention window,
// once at boot and then daily. Prune failures are logged and retried at the
// next tick; they never take the server down.
func startArchivePruner(cfg config.Config, logger *logging.Logger, repo *postgres.ConversationRepository) func() {
	if cfg.ArchiveRetention <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		pruneArchive(logger, repo, cfg.ArchiveRetention)

		ticker := time.NewTicker(archivePruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				pruneArchive(logger, repo, cfg.ArchiveRetention)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func pruneArchive(logger *logging.Logger, repo *postgres.ConversationRepository, retention time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), archivePruneTimeout)
	defer cancel()

	cutoff := time.Now().UTC().Add(-retention)
	pruned, err := repo.PruneBefore(ctx, cutoff)
	if err != nil {
		logger.WarnContext(ctx, "archive prune failed", "cutoff", cutoff.Format(time.RFC3339), "error", err)
		return
	}
	if pruned > 0 {
		logger.InfoContext(ctx, "archive prune completed", "pruned", pruned, "cutoff", cutoff.Format(time.RFC3339))
	}
}
