package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/futureme-za/futureme/internal/api"
	"github.com/futureme-za/futureme/internal/email"
	"github.com/futureme-za/futureme/internal/genai"
	"github.com/futureme-za/futureme/internal/lockfile"
	"github.com/futureme-za/futureme/internal/messaging"
	"github.com/futureme-za/futureme/internal/store"
	"github.com/futureme-za/futureme/internal/twiliowhatsapp"
	"github.com/futureme-za/futureme/internal/util"
	"github.com/futureme-za/futureme/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for FutureMe state data
	DefaultStateDir = "/var/lib/futureme"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "futureme.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Guard against a second instance sharing the same state directory
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err, "state_dir", *flags.stateDir)
		os.Exit(1)
	}
	defer lock.Release()

	// Build module options
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	emailOpts := buildEmailOptions(flags)
	apiOpts := buildAPIOptions(flags)

	msgService, err := buildMessagingService(flags)
	if err != nil {
		slog.Error("Failed to initialize messaging service", "error", err)
		os.Exit(1)
	}
	defer msgService.Stop()

	// Start the service
	slog.Info("Bootstrapping FutureMe with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "email", len(emailOpts), "api", len(apiOpts))
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr, "messaging", *flags.messaging)
	if err := api.Run(storeOpts, genaiOpts, emailOpts, msgService, apiOpts...); err != nil {
		slog.Error("FutureMe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("FutureMe exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	OpenAIKey   string
	ResendKey   string
	EmailFrom   string
	APIAddr     string
	NotifyCron  string
	Messaging   string
}

// Flags holds command line flag values
type Flags struct {
	qrOutput   *string
	numeric    *bool
	stateDir   *string
	dbDSN      *string
	openaiKey  *string
	resendKey  *string
	emailFrom  *string
	apiAddr    *string
	notifyCron *string
	messaging  *string
}

// initializeLogger sets up structured logging. FUTUREME_DEBUG=true lowers the
// level to debug; the default is info.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("FUTUREME_DEBUG", false) {
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
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("FUTUREME_STATE_DIR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		ResendKey:   os.Getenv("RESEND_API_KEY"),
		EmailFrom:   os.Getenv("EMAIL_FROM"),
		APIAddr:     os.Getenv("API_ADDR"),
		NotifyCron:  os.Getenv("NOTIFY_SCHEDULE"),
		Messaging:   os.Getenv("MESSAGING_BACKEND"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No FUTUREME_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("FUTUREME_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"FUTUREME_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"RESEND_API_KEY_SET", config.ResendKey != "",
		"EMAIL_FROM", config.EmailFrom,
		"API_ADDR", config.APIAddr,
		"NOTIFY_SCHEDULE", config.NotifyCron,
		"MESSAGING_BACKEND", config.Messaging)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:   flag.String("qr-output", "", "path to write WhatsApp login QR code"),
		numeric:    flag.Bool("numeric-code", false, "use numeric WhatsApp login code instead of QR code"),
		stateDir:   flag.String("state-dir", config.StateDir, "state directory for FutureMe data (overrides $FUTUREME_STATE_DIR)"),
		dbDSN:      flag.String("db-dsn", config.DatabaseURL, "database DSN for the application store (overrides $DATABASE_URL)"),
		openaiKey:  flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		resendKey:  flag.String("resend-api-key", config.ResendKey, "Resend API key (overrides $RESEND_API_KEY)"),
		emailFrom:  flag.String("email-from", config.EmailFrom, "confirmation email From address (overrides $EMAIL_FROM)"),
		apiAddr:    flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		notifyCron: flag.String("notify-cron", config.NotifyCron, "cron schedule for the idle-user notification sweep (overrides $NOTIFY_SCHEDULE)"),
		messaging:  flag.String("messaging", config.Messaging, "messaging backend: twilio, whatsmeow, or mock (overrides $MESSAGING_BACKEND)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"qrOutput", *flags.qrOutput,
		"numeric", *flags.numeric,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"resendKeySet", *flags.resendKey != "",
		"apiAddr", *flags.apiAddr,
		"notifyCron", *flags.notifyCron,
		"messaging", *flags.messaging)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if err := os.MkdirAll(*flags.stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", *flags.stateDir)
		return err
	}
	// Ensure the database directory exists if we're using a file-based DSN
	if !strings.Contains(*flags.dbDSN, "postgres://") && !strings.Contains(*flags.dbDSN, "host=") {
		dbDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating directory for file-based database", "db_dir", dbDir)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			slog.Error("Failed to create database directory", "error", err, "db_dir", dbDir)
			return err
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// buildEmailOptions constructs email sender configuration options
func buildEmailOptions(flags Flags) []email.Option {
	var emailOpts []email.Option
	if *flags.resendKey != "" {
		emailOpts = append(emailOpts, email.WithAPIKey(*flags.resendKey))
	}
	if *flags.emailFrom != "" {
		emailOpts = append(emailOpts, email.WithFrom(*flags.emailFrom))
	}
	return emailOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.notifyCron != "" {
		apiOpts = append(apiOpts, api.WithNotifyCron(*flags.notifyCron))
	}
	return apiOpts
}

// buildMessagingService selects the outbound messaging backend. Twilio is the
// default whenever credentials are present; whatsmeow drives a linked device
// directly; mock is for local development without a WhatsApp number.
func buildMessagingService(flags Flags) (messaging.Service, error) {
	backend := *flags.messaging
	if backend == "" {
		if os.Getenv("TWILIO_ACCOUNT_SID") != "" {
			backend = "twilio"
		} else {
			backend = "mock"
		}
	}

	switch backend {
	case "twilio":
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, err
		}
		slog.Info("Messaging backend selected", "backend", "twilio")
		return messaging.NewTwilioService(client), nil
	case "whatsmeow":
		var waOpts []whatsapp.Option
		waOpts = append(waOpts, whatsapp.WithDBDSN(filepath.Join(*flags.stateDir, "whatsmeow.db")))
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, err
		}
		slog.Info("Messaging backend selected", "backend", "whatsmeow")
		return messaging.NewWhatsAppService(client), nil
	default:
		slog.Warn("Messaging backend selected", "backend", "mock", "note", "outbound notifications are logged, not delivered")
		return messaging.NewMockService(), nil
	}
}
