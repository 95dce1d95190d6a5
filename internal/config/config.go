package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode         string
	Port            string
	InstitutionName string
	Database        DatabaseConfig
	JWT             JWTConfig
	Cookie          CookieConfig
	Log             LogConfig
	RefCodec        RefCodecConfig
	Upload          UploadConfig
	Mail            MailConfig
	Workflow        WorkflowConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// DialTimeout also bounds reads and writes on the connection
	DialTimeout   time.Duration
	SlowThreshold time.Duration
}

// JWTConfig holds staff token configuration
type JWTConfig struct {
	Secret          string
	AccessTokenMins int
}

// CookieConfig holds auth cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
	JSON  bool
}

// RefCodecConfig holds the secret behind public application references
type RefCodecConfig struct {
	Secret string
}

// UploadConfig holds document upload configuration
type UploadConfig struct {
	Dir         string
	MaxBodySize int
}

// MailConfig holds SMTP configuration. An empty Host disables sending.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// WorkflowConfig holds lifecycle engine settings
type WorkflowConfig struct {
	TransitionPolicy string
	NotifyWorkers    int
	NotifyQueueSize  int
	NotifyTimeout    time.Duration
	LedgerAuditCron  string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:         appMode,
		Port:            getEnv("PORT", "3000"),
		InstitutionName: getEnv("INSTITUTION_NAME", "Campus"),
		Database:        loadDatabaseConfig(appMode),
		JWT:             loadJWTConfig(appMode),
		Cookie:          loadCookieConfig(appMode),
		Log:             loadLogConfig(appMode),
		RefCodec:        RefCodecConfig{Secret: getEnv("REF_CODEC_SECRET", "")},
		Upload: UploadConfig{
			Dir:         getEnv("UPLOAD_DIR", "./uploads"),
			MaxBodySize: getEnvInt("UPLOAD_MAX_MB", 20) * 1024 * 1024,
		},
		Mail:     loadMailConfig(),
		Workflow: loadWorkflowConfig(),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

func (c *Config) validate() error {
	if c.RefCodec.Secret == "" {
		if c.IsProd() {
			return fmt.Errorf("REF_CODEC_SECRET is required in prod mode")
		}
		c.RefCodec.Secret = "dev_ref_codec_secret"
	}
	if c.IsProd() && c.JWT.Secret == "default_secret" {
		return fmt.Errorf("PROD_JWT_SECRET is required in prod mode")
	}
	return nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "campus_admissions"),

		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 60)) * time.Minute,
		DialTimeout:     time.Duration(getEnvInt("DB_TIMEOUT_SECONDS", 10)) * time.Second,
		SlowThreshold:   time.Duration(getEnvInt("DB_SLOW_QUERY_MS", 500)) * time.Millisecond,
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := modePrefix(mode)

	return JWTConfig{
		Secret:          getEnv(prefix+"JWT_SECRET", "default_secret"),
		AccessTokenMins: getEnvInt("ACCESS_TOKEN_MINUTES", 60),
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	secure, _ := strconv.ParseBool(getEnv(modePrefix(mode)+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

func loadLogConfig(mode string) LogConfig {
	level := "debug"
	if mode == "prod" {
		level = "info"
	}
	json, _ := strconv.ParseBool(getEnv("LOG_JSON", strconv.FormatBool(mode == "prod")))
	return LogConfig{
		Level: getEnv("LOG_LEVEL", level),
		JSON:  json,
	}
}

func loadMailConfig() MailConfig {
	return MailConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     getEnvInt("SMTP_PORT", 587),
		Username: getEnv("SMTP_USER", ""),
		Password: getEnv("SMTP_PASS", ""),
		From:     getEnv("MAIL_FROM", "admissions@localhost"),
	}
}

func loadWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		TransitionPolicy: getEnv("TRANSITION_POLICY", "permissive"),
		NotifyWorkers:    getEnvInt("NOTIFY_WORKERS", 4),
		NotifyQueueSize:  getEnvInt("NOTIFY_QUEUE_SIZE", 256),
		NotifyTimeout:    time.Duration(getEnvInt("NOTIFY_TIMEOUT_SECONDS", 30)) * time.Second,
		LedgerAuditCron:  getEnv("LEDGER_AUDIT_CRON", "0 30 2 * * *"),
	}
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(strings.TrimSpace(getEnv(key, "")))
	if err != nil {
		return defaultValue
	}
	return n
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// MailEnabled reports whether SMTP delivery is configured
func (c *Config) MailEnabled() bool {
	return c.Mail.Host != ""
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "http://localhost:5173"
	}
	return origins
}
