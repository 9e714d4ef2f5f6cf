package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/juniperhq/concierge/internal/api"
	"github.com/juniperhq/concierge/internal/flow"
	"github.com/juniperhq/concierge/internal/genai"
	"github.com/juniperhq/concierge/internal/integrations"
	"github.com/juniperhq/concierge/internal/notify"
	"github.com/juniperhq/concierge/internal/store"
	"github.com/juniperhq/concierge/internal/util"
)

// Default configuration constants
const (
	// DefaultDBDriver selects the transcript store backend when none is configured
	DefaultDBDriver = "memory"
	// DefaultBridgeTimeout bounds calls to the calendar/email collaborator
	DefaultBridgeTimeout = 15 * time.Second
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	bridge, err := buildBridge(flags)
	if err != nil {
		slog.Error("Failed to create bridge client", "error", err)
		os.Exit(1)
	}
	gaClient, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		slog.Error("Failed to create GenAI client", "error", err)
		os.Exit(1)
	}
	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to create transcript store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Failed to close transcript store", "error", err)
		}
	}()

	engineOpts := buildEngineOptions()
	engine := flow.NewEngine(gaClient, bridge, engineOpts...)
	server := api.NewServer(engine, st, api.WithAddr(*flags.apiAddr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping Concierge with configured modules")
	slog.Debug("Final configuration", "api_addr", *flags.apiAddr, "db_driver", *flags.dbDriver, "bridge_url_set", *flags.bridgeURL != "")
	if err := server.Run(ctx); err != nil {
		slog.Error("Concierge failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Concierge exited successfully")
}

// Config holds environment configuration
type Config struct {
	OpenAIKey   string
	OpenAIModel string
	BridgeURL   string
	DbDriver    string
	DatabaseURL string
	APIAddr     string
}

// Flags holds command line flag values
type Flags struct {
	openaiKey   *string
	openaiModel *string
	bridgeURL   *string
	dbDriver    *string
	dbDSN       *string
	apiAddr     *string
}

// initializeLogger sets up structured logging; CONCIERGE_DEBUG raises the
// level to debug.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("CONCIERGE_DEBUG", false) {
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
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: os.Getenv("OPENAI_MODEL"),
		BridgeURL:   os.Getenv("BRIDGE_URL"),
		DbDriver:    os.Getenv("DB_DRIVER"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		APIAddr:     os.Getenv("API_ADDR"),
	}

	if config.DbDriver == "" {
		config.DbDriver = DefaultDBDriver
		if config.DatabaseURL != "" {
			// A DSN without an explicit driver almost always means Postgres.
			config.DbDriver = "postgres"
		}
		slog.Debug("No DB_DRIVER set, derived default", "db_driver", config.DbDriver)
	}
	if config.APIAddr == "" {
		config.APIAddr = api.DefaultAddr
	}
	return config
}

// parseCommandLineFlags defines and parses command line flags, using
// environment values as defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel: flag.String("openai-model", config.OpenAIModel, "OpenAI model for chat replies and drafts (overrides $OPENAI_MODEL)"),
		bridgeURL:   flag.String("bridge-url", config.BridgeURL, "calendar/email bridge endpoint (overrides $BRIDGE_URL)"),
		dbDriver:    flag.String("db-driver", config.DbDriver, "transcript store driver: memory, sqlite3 or postgres (overrides $DB_DRIVER)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "transcript store DSN (overrides $DATABASE_URL)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
	}
	flag.Parse()
	return flags
}

// buildGenAIOptions builds GenAI client options from flags.
func buildGenAIOptions(flags Flags) []genai.Option {
	var opts []genai.Option
	if *flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		opts = append(opts, genai.WithModel(*flags.openaiModel))
	}
	return opts
}

// buildBridge creates the calendar/email bridge client.
func buildBridge(flags Flags) (*integrations.Client, error) {
	timeout := util.ParseDurationEnv("BRIDGE_TIMEOUT", DefaultBridgeTimeout)
	return integrations.NewClient(
		integrations.WithBaseURL(*flags.bridgeURL),
		integrations.WithTimeout(timeout),
	)
}

// buildStore selects and creates the transcript store backend.
func buildStore(flags Flags) (store.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(*flags.dbDriver))
	switch driver {
	case "postgres":
		slog.Info("Using PostgreSQL transcript store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	case "sqlite", "sqlite3":
		slog.Info("Using SQLite transcript store")
		return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
	default:
		slog.Info("Using in-memory transcript store")
		return store.NewInMemoryStore(), nil
	}
}

// buildEngineOptions wires optional engine collaborators. The SMS notifier
// is attached only when Twilio credentials are configured.
func buildEngineOptions() []flow.Option {
	var opts []flow.Option
	if os.Getenv("TWILIO_ACCOUNT_SID") != "" && os.Getenv("TWILIO_AUTH_TOKEN") != "" {
		notifier, err := notify.NewSMSNotifier()
		if err != nil {
			slog.Warn("SMS notifier disabled", "error", err)
		} else {
			slog.Info("SMS booking notifications enabled")
			opts = append(opts, flow.WithNotifier(notifier))
		}
	}
	return opts
}
