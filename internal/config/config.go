package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/pdf-field-designer/internal/viewer"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Database drivers
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"

	// Default values
	DefaultPort         = 8080
	DefaultHost         = "127.0.0.1"
	DefaultLogLevel     = "info"
	DefaultMaxFileSize  = 100 * 1024 * 1024 // 100MB
	DefaultFetchTimeout = 30 * time.Second
	DefaultDBDriver     = DriverMemory
	DefaultS3Region     = "us-east-1"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the field designer
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Local template documents are resolved against this directory
	DocumentDirectory string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum document size in bytes

	// Persistence
	DBDriver string
	DBDSN    string

	// Remote documents
	FetchTimeout time.Duration
	S3Region     string
	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string
	S3PathStyle  bool

	// Viewer
	DefaultZoom float64
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:              ModeStdio,
		Host:              DefaultHost,
		Port:              DefaultPort,
		DocumentDirectory: currentDir,
		Version:           "1.0.0",
		ServerName:        "pdf-field-designer",
		LogLevel:          DefaultLogLevel,
		MaxFileSize:       DefaultMaxFileSize,
		DBDriver:          DefaultDBDriver,
		FetchTimeout:      DefaultFetchTimeout,
		S3Region:          DefaultS3Region,
		DefaultZoom:       viewer.DefaultZoom,
	}
}

// LoadFromFlags parses command line flags and environment variables and
// returns a validated configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.DocumentDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.DocumentDirectory); err == nil {
			cfg.DocumentDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// flagKeys lists every flag that is mirrored into viper.
var flagKeys = []string{
	"mode", "host", "port", "dir", "loglevel", "maxfilesize",
	"db-driver", "db-dsn", "fetch-timeout",
	"s3-region", "s3-endpoint", "s3-access-key", "s3-secret-key", "s3-path-style",
	"default-zoom",
}

// setupViperEnvironment configures viper with environment variables and defaults.
// Dashes in keys map to underscores, so db-dsn reads PDF_DESIGNER_DB_DSN.
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("PDF_DESIGNER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.DocumentDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("db-driver", cfg.DBDriver)
	viper.SetDefault("db-dsn", cfg.DBDSN)
	viper.SetDefault("fetch-timeout", cfg.FetchTimeout)
	viper.SetDefault("s3-region", cfg.S3Region)
	viper.SetDefault("s3-endpoint", cfg.S3Endpoint)
	viper.SetDefault("s3-access-key", cfg.S3AccessKey)
	viper.SetDefault("s3-secret-key", cfg.S3SecretKey)
	viper.SetDefault("s3-path-style", cfg.S3PathStyle)
	viper.SetDefault("default-zoom", cfg.DefaultZoom)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'stdio' for the MCP designer tools, 'server' for the HTTP API")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.DocumentDirectory, "Directory that local template documents are resolved against")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum template document size in bytes")
	pflag.String("db-driver", cfg.DBDriver, "Field storage driver (mysql, sqlite, memory)")
	pflag.String("db-dsn", cfg.DBDSN, "Database DSN (mysql DSN or sqlite file path)")
	pflag.Duration("fetch-timeout", cfg.FetchTimeout, "Timeout for fetching remote template documents")
	pflag.String("s3-region", cfg.S3Region, "Region for s3:// template documents")
	pflag.String("s3-endpoint", cfg.S3Endpoint, "Custom S3 endpoint (MinIO, R2, ...)")
	pflag.String("s3-access-key", cfg.S3AccessKey, "S3 access key")
	pflag.String("s3-secret-key", cfg.S3SecretKey, "S3 secret key")
	pflag.Bool("s3-path-style", cfg.S3PathStyle, "Use path-style S3 addressing")
	pflag.Float64("default-zoom", cfg.DefaultZoom, "Initial viewer zoom (one of the zoom steps)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range flagKeys {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPDF Field Designer - place and persist signer fields on template documents\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                            "+
			"# MCP tools over stdio, in-memory storage\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --db-driver=sqlite --db-dsn=designer.db    "+
			"# persist fields to sqlite\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081    # HTTP API\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PDF_DESIGNER_MODE           Run mode\n")
		fmt.Fprintf(os.Stderr, "  PDF_DESIGNER_HOST           Server host\n")
		fmt.Fprintf(os.Stderr, "  PDF_DESIGNER_PORT           Server port\n")
		fmt.Fprintf(os.Stderr, "  PDF_DESIGNER_DIR            Template document directory\n")
		fmt.Fprintf(os.Stderr, "  PDF_DESIGNER_LOGLEVEL       Log level\n")
		fmt.Fprintf(os.Stderr, "  PDF_DESIGNER_MAXFILESIZE    Maximum document size\n")
		fmt.Fprintf(os.Stderr, "  PDF_DESIGNER_DB_DRIVER      Storage driver\n")
		fmt.Fprintf(os.Stderr, "  PDF_DESIGNER_DB_DSN         Database DSN\n")
		fmt.Fprintf(os.Stderr, "  PDF_DESIGNER_S3_ACCESS_KEY  S3 access key\n")
		fmt.Fprintf(os.Stderr, "  PDF_DESIGNER_S3_SECRET_KEY  S3 secret key\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.DocumentDirectory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.DBDriver = viper.GetString("db-driver")
	cfg.DBDSN = viper.GetString("db-dsn")
	cfg.FetchTimeout = viper.GetDuration("fetch-timeout")
	cfg.S3Region = viper.GetString("s3-region")
	cfg.S3Endpoint = viper.GetString("s3-endpoint")
	cfg.S3AccessKey = viper.GetString("s3-access-key")
	cfg.S3SecretKey = viper.GetString("s3-secret-key")
	cfg.S3PathStyle = viper.GetBool("s3-path-style")
	cfg.DefaultZoom = viper.GetFloat64("default-zoom")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Port only matters when listening
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.DocumentDirectory == "" {
		return errors.New("document directory cannot be empty")
	}

	if _, err := os.Stat(c.DocumentDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.DocumentDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create document directory %s: %w", c.DocumentDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access document directory %s: %w", c.DocumentDirectory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	switch c.DBDriver {
	case DriverMemory:
	case DriverMySQL, DriverSQLite:
		if c.DBDSN == "" {
			return fmt.Errorf("db-dsn is required for the %s driver", c.DBDriver)
		}
	default:
		return fmt.Errorf("invalid db driver: %s (must be one of: mysql, sqlite, memory)", c.DBDriver)
	}

	if c.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be positive")
	}

	if !isZoomStep(c.DefaultZoom) {
		return fmt.Errorf("invalid default zoom: %g (must be one of %v)", c.DefaultZoom, viewer.ZoomSteps)
	}

	return nil
}

func isZoomStep(zoom float64) bool {
	for _, step := range viewer.ZoomSteps {
		if step == zoom {
			return true
		}
	}
	return false
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// UsesS3 reports whether credentials for s3:// documents were supplied.
func (c *Config) UsesS3() bool {
	return c.S3AccessKey != "" && c.S3SecretKey != ""
}

// String returns a string representation of the configuration. Secrets and
// the DSN are masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, DocumentDirectory: %s, LogLevel: %s, "+
		"MaxFileSize: %d, DBDriver: %s, DBDSN: %s, FetchTimeout: %s, S3Region: %s, S3Endpoint: %s, "+
		"S3AccessKey: %s, DefaultZoom: %g}",
		c.Mode, c.Host, c.Port, c.DocumentDirectory, c.LogLevel,
		c.MaxFileSize, c.DBDriver, mask(c.DBDSN), c.FetchTimeout, c.S3Region, c.S3Endpoint,
		mask(c.S3AccessKey), c.DefaultZoom)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

// IsServerMode returns true if the process serves the HTTP API
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the process serves MCP over stdio
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
