package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/ReelBites/ReelBites/internal/api"
	"github.com/ReelBites/ReelBites/internal/genai"
	"github.com/ReelBites/ReelBites/internal/messaging"
	"github.com/ReelBites/ReelBites/internal/store"
	"github.com/ReelBites/ReelBites/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for ReelBites state data
	DefaultStateDir = "/var/lib/reelbites"
	// DefaultSessionFileName is the default JSON session file name
	DefaultSessionFileName = "sessions.json"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags, config)
	msgOpts := buildMessagingOptions(config)
	apiOpts := buildAPIOptions(flags, config)

	slog.Info("Bootstrapping ReelBites with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "messaging", len(msgOpts), "api", len(apiOpts))
	if err := api.Run(storeOpts, genaiOpts, msgOpts, apiOpts); err != nil {
		slog.Error("ReelBites failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("ReelBites exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir        string
	DatabaseURL     string
	SessionFile     string
	GeminiKey       string
	OpenAIKey       string
	GenAIBackend    string
	GenAIModel      string
	PageAccessToken string
	VerifyToken     string
	AppSecret       string
	APIAddr         string
	RepliesFile     string
	ReviewEndpoint  string
	FlushInterval   int
}

// Flags holds command line flag values
type Flags struct {
	stateDir       *string
	dbDSN          *string
	sessionFile    *string
	apiAddr        *string
	genaiBackend   *string
	repliesFile    *string
	reviewEndpoint *string
	flushInterval  *int
}

// initializeLogger sets up structured logging; REELBITES_DEBUG raises the level
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("REELBITES_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:        os.Getenv("REELBITES_STATE_DIR"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SessionFile:     os.Getenv("SESSION_FILE"),
		GeminiKey:       os.Getenv("GEMINI_API_KEY"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		GenAIBackend:    os.Getenv("GENAI_BACKEND"),
		GenAIModel:      os.Getenv("GENAI_MODEL"),
		PageAccessToken: os.Getenv("PAGE_ACCESS_TOKEN"),
		VerifyToken:     os.Getenv("VERIFY_TOKEN"),
		AppSecret:       os.Getenv("APP_SECRET"),
		APIAddr:         os.Getenv("API_ADDR"),
		RepliesFile:     os.Getenv("REPLIES_FILE"),
		ReviewEndpoint:  os.Getenv("REVIEW_ENDPOINT"),
		FlushInterval:   util.ParseIntEnv("FLUSH_INTERVAL_SECONDS", 0),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No REELBITES_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// The JSON session file is the default persistence; a DATABASE_URL
	// switches to the SQLite or PostgreSQL store instead.
	if config.SessionFile == "" && config.DatabaseURL == "" {
		config.SessionFile = filepath.Join(config.StateDir, DefaultSessionFileName)
		slog.Debug("No persistence configured, defaulting to JSON session file", "session_file", config.SessionFile)
	}

	slog.Debug("environment variables loaded",
		"REELBITES_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"SESSION_FILE", config.SessionFile,
		"GEMINI_API_KEY_SET", config.GeminiKey != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"GENAI_BACKEND", config.GenAIBackend,
		"PAGE_ACCESS_TOKEN_SET", config.PageAccessToken != "",
		"VERIFY_TOKEN_SET", config.VerifyToken != "",
		"APP_SECRET_SET", config.AppSecret != "",
		"API_ADDR", config.APIAddr,
		"REPLIES_FILE", config.RepliesFile,
		"REVIEW_ENDPOINT_SET", config.ReviewEndpoint != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:       flag.String("state-dir", config.StateDir, "state directory for ReelBites data (overrides $REELBITES_STATE_DIR)"),
		dbDSN:          flag.String("db-dsn", config.DatabaseURL, "database DSN for the session store (overrides $DATABASE_URL)"),
		sessionFile:    flag.String("session-file", config.SessionFile, "JSON session file path (overrides $SESSION_FILE)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		genaiBackend:   flag.String("genai-backend", config.GenAIBackend, "generative backend: gemini or openai (overrides $GENAI_BACKEND)"),
		repliesFile:    flag.String("replies-file", config.RepliesFile, "reply catalog file (overrides $REPLIES_FILE; empty uses the embedded catalog)"),
		reviewEndpoint: flag.String("review-endpoint", config.ReviewEndpoint, "review lookup service URL (overrides $REVIEW_ENDPOINT)"),
		flushInterval:  flag.Int("flush-interval", config.FlushInterval, "session auto-flush interval in seconds (overrides $FLUSH_INTERVAL_SECONDS)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"sessionFile", *flags.sessionFile,
		"apiAddr", *flags.apiAddr,
		"genaiBackend", *flags.genaiBackend,
		"repliesFile", *flags.repliesFile,
		"reviewEndpoint_set", *flags.reviewEndpoint != "",
		"flushInterval", *flags.flushInterval)

	// Follow a changed state directory when the session file was defaulted
	if *flags.sessionFile == filepath.Join(config.StateDir, DefaultSessionFileName) && *flags.stateDir != config.StateDir {
		*flags.sessionFile = filepath.Join(*flags.stateDir, DefaultSessionFileName)
		slog.Debug("Updated session file based on state directory", "session_file", *flags.sessionFile)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if *flags.sessionFile != "" {
		dir := filepath.Dir(*flags.sessionFile)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", dir)
			return err
		}
	}
	if *flags.dbDSN != "" && store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		dir := filepath.Dir(*flags.dbDSN)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("Failed to create database directory", "error", err, "db_dir", dir)
			return err
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	switch {
	case *flags.dbDSN != "":
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	case *flags.sessionFile != "":
		slog.Debug("Configuring JSON file store", "session_file", *flags.sessionFile)
		storeOpts = append(storeOpts, store.WithJSONFile(*flags.sessionFile))
		if *flags.flushInterval > 0 {
			storeOpts = append(storeOpts, store.WithFlushInterval(*flags.flushInterval))
		}
	default:
		slog.Debug("No persistence configured, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags, config Config) []genai.Option {
	var genaiOpts []genai.Option
	key := config.GeminiKey
	if *flags.genaiBackend == "openai" {
		key = config.OpenAIKey
	}
	if key != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(key))
	}
	if config.GenAIModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(config.GenAIModel))
	}
	return genaiOpts
}

// buildMessagingOptions constructs messaging configuration options
func buildMessagingOptions(config Config) []messaging.Option {
	var msgOpts []messaging.Option
	if config.PageAccessToken != "" {
		msgOpts = append(msgOpts, messaging.WithAccessToken(config.PageAccessToken))
	}
	return msgOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, config Config) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if config.VerifyToken != "" {
		apiOpts = append(apiOpts, api.WithVerifyToken(config.VerifyToken))
	}
	if config.AppSecret != "" {
		apiOpts = append(apiOpts, api.WithAppSecret(config.AppSecret))
	}
	if *flags.genaiBackend != "" {
		apiOpts = append(apiOpts, api.WithGenAIBackend(*flags.genaiBackend))
	}
	if *flags.repliesFile != "" {
		apiOpts = append(apiOpts, api.WithRepliesPath(*flags.repliesFile))
	}
	if *flags.reviewEndpoint != "" {
		apiOpts = append(apiOpts, api.WithReviewEndpoint(*flags.reviewEndpoint))
	}
	return apiOpts
}
