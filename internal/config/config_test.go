package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a config that passes Validate, rooted in a temp dir.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DocumentDirectory = t.TempDir()
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "stdio", cfg.Mode)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "1.0.0", cfg.Version)
	assert.Equal(t, "pdf-field-designer", cfg.ServerName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(100*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, "memory", cfg.DBDriver)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 1.0, cfg.DefaultZoom)

	currentDir, _ := os.Getwd()
	assert.Equal(t, currentDir, cfg.DocumentDirectory)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "server mode", mutate: func(c *Config) { c.Mode = ModeServer }},
		{name: "invalid mode", mutate: func(c *Config) { c.Mode = "invalid" }, wantErr: "mode"},
		{name: "port too low in server mode", mutate: func(c *Config) { c.Mode = ModeServer; c.Port = 0 }, wantErr: "port"},
		{name: "port too high in server mode", mutate: func(c *Config) { c.Mode = ModeServer; c.Port = 70000 }, wantErr: "port"},
		{name: "port ignored in stdio mode", mutate: func(c *Config) { c.Port = 0 }},
		{name: "empty directory", mutate: func(c *Config) { c.DocumentDirectory = "" }, wantErr: "directory"},
		{name: "invalid log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "log level"},
		{name: "zero max file size", mutate: func(c *Config) { c.MaxFileSize = 0 }, wantErr: "file size"},
		{name: "sqlite with dsn", mutate: func(c *Config) { c.DBDriver = DriverSQLite; c.DBDSN = "designer.db" }},
		{name: "sqlite without dsn", mutate: func(c *Config) { c.DBDriver = DriverSQLite }, wantErr: "db-dsn"},
		{name: "mysql without dsn", mutate: func(c *Config) { c.DBDriver = DriverMySQL }, wantErr: "db-dsn"},
		{name: "unknown driver", mutate: func(c *Config) { c.DBDriver = "postgres" }, wantErr: "db driver"},
		{name: "zero fetch timeout", mutate: func(c *Config) { c.FetchTimeout = 0 }, wantErr: "fetch timeout"},
		{name: "zoom step", mutate: func(c *Config) { c.DefaultZoom = 1.5 }},
		{name: "zoom off the steps", mutate: func(c *Config) { c.DefaultZoom = 1.1 }, wantErr: "zoom"},
		{name: "zero zoom", mutate: func(c *Config) { c.DefaultZoom = 0 }, wantErr: "zoom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidateCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "templates", "incoming")
	cfg := validConfig(t)
	cfg.DocumentDirectory = dir

	require.NoError(t, cfg.Validate())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestConfigValidateLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig(t)
		cfg.LogLevel = level
		assert.NoError(t, cfg.Validate(), level)
	}
	for _, level := range []string{"DEBUG", "INFO", "trace", "fatal", ""} {
		cfg := validConfig(t)
		cfg.LogLevel = level
		assert.Error(t, cfg.Validate(), level)
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := &Config{Host: "192.168.1.1", Port: 9090}
	assert.Equal(t, "192.168.1.1:9090", cfg.Address())
}

func TestConfigModes(t *testing.T) {
	server := &Config{Mode: ModeServer, LogLevel: "debug"}
	assert.True(t, server.IsServerMode())
	assert.False(t, server.IsStdioMode())
	assert.True(t, server.IsDebug())

	stdio := &Config{Mode: ModeStdio, LogLevel: "info"}
	assert.True(t, stdio.IsStdioMode())
	assert.False(t, stdio.IsServerMode())
	assert.False(t, stdio.IsDebug())
}

func TestConfigUsesS3(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.UsesS3())

	cfg.S3AccessKey = "AKIA"
	assert.False(t, cfg.UsesS3(), "both keys are needed")

	cfg.S3SecretKey = "secret"
	assert.True(t, cfg.UsesS3())
}

func TestConfigString(t *testing.T) {
	cfg := &Config{
		Mode:              "server",
		Host:              "localhost",
		Port:              8080,
		DocumentDirectory: "/srv/templates",
		LogLevel:          "debug",
		MaxFileSize:       1024,
		DBDriver:          DriverMySQL,
		DBDSN:             "designer:hunter2@tcp(db:3306)/designer",
		S3AccessKey:       "AKIAEXAMPLE",
		S3SecretKey:       "topsecret",
		DefaultZoom:       1,
	}

	result := cfg.String()

	for _, substr := range []string{
		"Mode: server",
		"Host: localhost",
		"Port: 8080",
		"DocumentDirectory: /srv/templates",
		"LogLevel: debug",
		"MaxFileSize: 1024",
		"DBDriver: mysql",
		"DBDSN: ***",
	} {
		assert.Contains(t, result, substr)
	}
	for _, secret := range []string{"hunter2", "AKIAEXAMPLE", "topsecret"} {
		assert.False(t, strings.Contains(result, secret), "String() leaks %q", secret)
	}
}
