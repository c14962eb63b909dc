package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Capture   CaptureConfig
	Ingest    IngestConfig
	LiveKit   LiveKitConfig
	Session   SessionConfig
	Reconcile ReconcileConfig
}

// ServerConfig holds the control-surface server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
	AgentToken      string
}

// BackendConfig selects where meeting records live: the hosted REST backend
// or a self-hosted Postgres instance.
type BackendConfig struct {
	Mode    string // "remote" or "local"
	BaseURL string
	APIKey  string
}

// DatabaseConfig holds database configuration (local backend mode)
type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis configuration (crash snapshots)
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// StorageConfig holds media chunk storage configuration
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// CaptureConfig holds capture device configuration
type CaptureConfig struct {
	Backend    string // "mic" or "livekit"
	InputSpec  string // ffmpeg input spec for the mic backend
	SampleRate int
}

// IngestConfig holds transcription ingest configuration
type IngestConfig struct {
	Variant          string // "remote" (streaming API) or "local" (on-device)
	AssemblyAIAPIKey string
	LocalCommand     string
	RestartDelay     time.Duration
}

// LiveKitConfig holds LiveKit room-capture configuration
type LiveKitConfig struct {
	URL       string
	APIKey    string
	APISecret string
	RoomName  string
	Identity  string
	UseMock   bool
}

// SessionConfig holds session lifecycle limits
type SessionConfig struct {
	MaxDurationSeconds int
	MinDurationSeconds int
	MinWordCount       int
	AutosaveDebounce   time.Duration
	SnapshotInterval   time.Duration
	SnapshotTTL        time.Duration
	PollInterval       time.Duration
}

// ReconcileConfig holds the speaker reconciliation heuristics. The bounds and
// thresholds are product heuristics without a documented derivation, so they
// stay configurable instead of being hard-coded.
type ReconcileConfig struct {
	MinLengthRatio      float64 `envconfig:"MIN_LENGTH_RATIO" default:"0.6"`
	MaxLengthRatio      float64 `envconfig:"MAX_LENGTH_RATIO" default:"1.4"`
	StrongMatch         float64 `envconfig:"STRONG_MATCH" default:"0.70"`
	LearningGate        float64 `envconfig:"LEARNING_GATE" default:"0.72"`
	HighConfidence      float64 `envconfig:"HIGH_CONFIDENCE" default:"0.80"`
	EdgeWords           int     `envconfig:"EDGE_WORDS" default:"3"`
	DiarizationDisabled bool    `envconfig:"DIARIZATION_DISABLED" default:"false"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  []string{getEnv("ALLOWED_ORIGINS", "http://localhost:3000")},
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
			AgentToken:      getEnv("AGENT_TOKEN", ""),
		},
		Backend: BackendConfig{
			Mode:    getEnv("BACKEND_MODE", "remote"),
			BaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:9090"),
			APIKey:  getEnv("BACKEND_API_KEY", ""),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "capture_agent"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Enabled:         getEnvAsBool("STORAGE_ENABLED", false),
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "capture-agent"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
		},
		Capture: CaptureConfig{
			Backend:    getEnv("CAPTURE_BACKEND", "mic"),
			InputSpec:  getEnv("CAPTURE_INPUT", "default"),
			SampleRate: getEnvAsInt("CAPTURE_SAMPLE_RATE", 16000),
		},
		Ingest: IngestConfig{
			Variant:          getEnv("INGEST_VARIANT", "remote"),
			AssemblyAIAPIKey: getEnv("ASSEMBLYAI_API_KEY", ""),
			LocalCommand:     getEnv("INGEST_LOCAL_COMMAND", "whisper-stream"),
			RestartDelay:     getEnvAsDuration("INGEST_RESTART_DELAY", "100ms"),
		},
		LiveKit: LiveKitConfig{
			URL:       getEnv("LIVEKIT_URL", ""),
			APIKey:    getEnv("LIVEKIT_API_KEY", ""),
			APISecret: getEnv("LIVEKIT_API_SECRET", ""),
			RoomName:  getEnv("LIVEKIT_ROOM", ""),
			Identity:  getEnv("LIVEKIT_IDENTITY", "capture-agent"),
			UseMock:   getEnvAsBool("LIVEKIT_USE_MOCK", false),
		},
		Session: SessionConfig{
			MaxDurationSeconds: getEnvAsInt("SESSION_MAX_DURATION", 28800),
			MinDurationSeconds: getEnvAsInt("SESSION_MIN_DURATION", 5),
			MinWordCount:       getEnvAsInt("SESSION_MIN_WORDS", 2),
			AutosaveDebounce:   getEnvAsDuration("AUTOSAVE_DEBOUNCE", "3s"),
			SnapshotInterval:   getEnvAsDuration("SNAPSHOT_INTERVAL", "5s"),
			SnapshotTTL:        getEnvAsDuration("SNAPSHOT_TTL", "24h"),
			PollInterval:       getEnvAsDuration("POLL_INTERVAL", "5s"),
		},
	}

	// The reconciliation heuristics live in their own env namespace.
	if err := envconfig.Process("RECONCILE", &config.Reconcile); err != nil {
		return nil, fmt.Errorf("failed to load reconcile config: %w", err)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Backend.Mode != "remote" && c.Backend.Mode != "local" {
		return fmt.Errorf("BACKEND_MODE must be \"remote\" or \"local\", got %q", c.Backend.Mode)
	}
	if c.Backend.Mode == "remote" && c.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required in remote mode")
	}
	if c.Ingest.Variant == "remote" && c.Ingest.AssemblyAIAPIKey == "" {
		return fmt.Errorf("ASSEMBLYAI_API_KEY is required for the remote ingest variant")
	}
	if c.Reconcile.MinLengthRatio <= 0 || c.Reconcile.MaxLengthRatio < c.Reconcile.MinLengthRatio {
		return fmt.Errorf("invalid reconcile length ratio bounds")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
