package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/fpl-assistant/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                     string
	ServiceName                string
	ServiceVersion             string
	HTTPAddr                   string
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
	CORSAllowedOrigins         []string `validate:"min=1"`
	PprofEnabled               bool
	PprofAddr                  string
	AIProvider                 string
	GeminiAPIKey               string
	GeminiModel                string
	OpenAIAPIKey               string
	OpenAIModel                string
	AITemperature              float64 `validate:"min=0,max=2"`
	AITimeout                  time.Duration
	AIRoutingEnabled           bool
	FPLManagerID               int64
	FPLBaseURL                 string
	FPLTimeout                 time.Duration
	FPLMaxRetries              int
	FPLStaticTTL               time.Duration
	FPLCircuitEnabled          bool
	FPLCircuitFailureCount     int
	FPLCircuitOpenTimeout      time.Duration
	FPLCircuitHalfOpenMaxReq   int
	SnapshotMemoTTL            time.Duration
	SeasonContextEnabled       bool
	SeasonRecentGameweeks      int
	SeasonMaxWorkers           int
	ComposerTokenBudget        int `validate:"gt=0"`
	DBURL                      string
	DBDisablePreparedBinary    bool
	ArchiveRetention           time.Duration
	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	UptraceCaptureRequestBody  bool
	UptraceRequestBodyMaxBytes int
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
	LogLevel                   logging.Level
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}

	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}
	uptraceCaptureRequestBody, err := strconv.ParseBool(getEnv("UPTRACE_CAPTURE_REQUEST_BODY", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_CAPTURE_REQUEST_BODY: %w", err)
	}
	uptraceRequestBodyMaxBytes, err := getEnvAsInt("UPTRACE_REQUEST_BODY_MAX_BYTES", 8192)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_REQUEST_BODY_MAX_BYTES: %w", err)
	}
	if uptraceRequestBodyMaxBytes <= 0 {
		return Config{}, fmt.Errorf("UPTRACE_REQUEST_BODY_MAX_BYTES must be > 0")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	aiProvider, err := parseAIProvider(getEnv("AI_PROVIDER", ProviderGemini))
	if err != nil {
		return Config{}, err
	}
	geminiAPIKey := strings.TrimSpace(getEnv("GEMINI_API_KEY", ""))
	openAIAPIKey := strings.TrimSpace(getEnv("OPENAI_API_KEY", ""))
	switch aiProvider {
	case ProviderGemini:
		if geminiAPIKey == "" {
			return Config{}, fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER=%s", ProviderGemini)
		}
	case ProviderOpenAI:
		if openAIAPIKey == "" {
			return Config{}, fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER=%s", ProviderOpenAI)
		}
	}
	aiTemperature, err := getEnvAsFloat("AI_TEMPERATURE", 1.0)
	if err != nil {
		return Config{}, fmt.Errorf("parse AI_TEMPERATURE: %w", err)
	}
	aiTimeout, err := time.ParseDuration(getEnv("AI_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse AI_TIMEOUT: %w", err)
	}
	if aiTimeout <= 0 {
		return Config{}, fmt.Errorf("AI_TIMEOUT must be > 0")
	}
	aiRoutingEnabled, err := strconv.ParseBool(getEnv("AI_ROUTING_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse AI_ROUTING_ENABLED: %w", err)
	}

	fplManagerID, err := getEnvAsInt64("FPL_MANAGER_ID", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_MANAGER_ID: %w", err)
	}
	if fplManagerID <= 0 {
		return Config{}, fmt.Errorf("FPL_MANAGER_ID must be > 0")
	}
	fplTimeout, err := time.ParseDuration(getEnv("FPL_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_TIMEOUT: %w", err)
	}
	if fplTimeout <= 0 {
		return Config{}, fmt.Errorf("FPL_TIMEOUT must be > 0")
	}
	fplMaxRetries, err := getEnvAsInt("FPL_MAX_RETRIES", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_MAX_RETRIES: %w", err)
	}
	if fplMaxRetries < 0 {
		return Config{}, fmt.Errorf("FPL_MAX_RETRIES must be >= 0")
	}
	fplStaticTTL, err := time.ParseDuration(getEnv("FPL_STATIC_TTL", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_STATIC_TTL: %w", err)
	}
	if fplStaticTTL <= 0 {
		return Config{}, fmt.Errorf("FPL_STATIC_TTL must be > 0")
	}
	fplCircuitEnabled, err := strconv.ParseBool(getEnv("FPL_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_CIRCUIT_ENABLED: %w", err)
	}
	fplCircuitFailureCount, err := getEnvAsInt("FPL_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if fplCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("FPL_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	fplCircuitOpenTimeout, err := time.ParseDuration(getEnv("FPL_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if fplCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("FPL_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	fplCircuitHalfOpenMaxReq, err := getEnvAsInt("FPL_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse FPL_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if fplCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("FPL_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	snapshotMemoTTL, err := time.ParseDuration(getEnv("SNAPSHOT_MEMO_TTL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SNAPSHOT_MEMO_TTL: %w", err)
	}
	if snapshotMemoTTL <= 0 {
		return Config{}, fmt.Errorf("SNAPSHOT_MEMO_TTL must be > 0")
	}

	seasonContextEnabled, err := strconv.ParseBool(getEnv("SEASON_CONTEXT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SEASON_CONTEXT_ENABLED: %w", err)
	}
	seasonRecentGameweeks, err := getEnvAsInt("SEASON_RECENT_GAMEWEEKS", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse SEASON_RECENT_GAMEWEEKS: %w", err)
	}
	if seasonRecentGameweeks < 1 {
		return Config{}, fmt.Errorf("SEASON_RECENT_GAMEWEEKS must be >= 1")
	}
	seasonMaxWorkers, err := getEnvAsInt("SEASON_MAX_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse SEASON_MAX_WORKERS: %w", err)
	}
	if seasonMaxWorkers < 1 {
		return Config{}, fmt.Errorf("SEASON_MAX_WORKERS must be >= 1")
	}

	composerTokenBudget, err := getEnvAsInt("COMPOSER_TOKEN_BUDGET", 4096)
	if err != nil {
		return Config{}, fmt.Errorf("parse COMPOSER_TOKEN_BUDGET: %w", err)
	}

	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}
	archiveRetention, err := time.ParseDuration(getEnv("ARCHIVE_RETENTION", "0s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ARCHIVE_RETENTION: %w", err)
	}
	if archiveRetention < 0 {
		return Config{}, fmt.Errorf("ARCHIVE_RETENTION must be >= 0")
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	logLevel := parseLogLevel(getEnv("APP_LOG_LEVEL", "info"))

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("APP_SERVICE_NAME", "fpl-assistant-api"),
		ServiceVersion:             getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                   getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                readTimeout,
		WriteTimeout:               writeTimeout,
		CORSAllowedOrigins:         splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		PprofEnabled:               pprofEnabled,
		PprofAddr:                  pprofAddr,
		AIProvider:                 aiProvider,
		GeminiAPIKey:               geminiAPIKey,
		GeminiModel:                strings.TrimSpace(getEnv("GEMINI_MODEL", "gemini-2.0-flash")),
		OpenAIAPIKey:               openAIAPIKey,
		OpenAIModel:                strings.TrimSpace(getEnv("OPENAI_MODEL", "gpt-4o")),
		AITemperature:              aiTemperature,
		AITimeout:                  aiTimeout,
		AIRoutingEnabled:           aiRoutingEnabled,
		FPLManagerID:               fplManagerID,
		FPLBaseURL:                 strings.TrimSpace(getEnv("FPL_BASE_URL", "https://fantasy.premierleague.com/api")),
		FPLTimeout:                 fplTimeout,
		FPLMaxRetries:              fplMaxRetries,
		FPLStaticTTL:               fplStaticTTL,
		FPLCircuitEnabled:          fplCircuitEnabled,
		FPLCircuitFailureCount:     fplCircuitFailureCount,
		FPLCircuitOpenTimeout:      fplCircuitOpenTimeout,
		FPLCircuitHalfOpenMaxReq:   fplCircuitHalfOpenMaxReq,
		SnapshotMemoTTL:            snapshotMemoTTL,
		SeasonContextEnabled:       seasonContextEnabled,
		SeasonRecentGameweeks:      seasonRecentGameweeks,
		SeasonMaxWorkers:           seasonMaxWorkers,
		ComposerTokenBudget:        composerTokenBudget,
		DBURL:                      strings.TrimSpace(getEnv("DB_URL", "")),
		DBDisablePreparedBinary:    dbDisablePreparedBinary,
		ArchiveRetention:           archiveRetention,
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		UptraceLogsEnabled:         uptraceLogsEnabled,
		UptraceCaptureRequestBody:  uptraceCaptureRequestBody,
		UptraceRequestBodyMaxBytes: uptraceRequestBodyMaxBytes,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
		LogLevel:                   logLevel,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsInt64(key string, fallback int64) (int64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseAIProvider(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case ProviderGemini, ProviderOpenAI:
		return value, nil
	default:
		return "", fmt.Errorf("invalid AI_PROVIDER %q: valid values are %s, %s", v, ProviderGemini, ProviderOpenAI)
	}
}
