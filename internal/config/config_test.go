package config

import (
	"os"
	"testing"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/constants"
)

func TestLoad(t *testing.T) {
	// Test default values
	cfg := Load()

	if cfg.Port != constants.DefaultPort {
		t.Errorf("Expected Port to be %s, got %s", constants.DefaultPort, cfg.Port)
	}

	if cfg.DBPath != constants.DefaultDBPath {
		t.Errorf("Expected DBPath to be %s, got %s", constants.DefaultDBPath, cfg.DBPath)
	}

	if cfg.AudioFormat != constants.DefaultAudioFormat {
		t.Errorf("Expected AudioFormat to be %s, got %s", constants.DefaultAudioFormat, cfg.AudioFormat)
	}

	if cfg.MaxConcurrent != constants.DefaultConcurrency {
		t.Errorf("Expected MaxConcurrent to be %d, got %d", constants.DefaultConcurrency, cfg.MaxConcurrent)
	}

	// Check DownloadsDir is not empty (depends on user's home dir)
	if cfg.DownloadsDir == "" {
		t.Error("Expected DownloadsDir to not be empty")
	}
}

func TestLoadWithEnvVars(t *testing.T) {
	os.Setenv("PORT", "9090")
	os.Setenv("DB_PATH", "/tmp/test.db")
	os.Setenv("AUDIO_FORMAT", "flac")
	os.Setenv("MAX_CONCURRENT_DOWNLOADS", "3")
	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("DB_PATH")
		os.Unsetenv("AUDIO_FORMAT")
		os.Unsetenv("MAX_CONCURRENT_DOWNLOADS")
	}()

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Expected Port to be 9090, got %s", cfg.Port)
	}

	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("Expected DBPath to be /tmp/test.db, got %s", cfg.DBPath)
	}

	if cfg.AudioFormat != "flac" {
		t.Errorf("Expected AudioFormat to be flac, got %s", cfg.AudioFormat)
	}

	if cfg.MaxConcurrent != 3 {
		t.Errorf("Expected MaxConcurrent to be 3, got %d", cfg.MaxConcurrent)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Port:          "8080",
		DBPath:        "test.db",
		DownloadsDir:  "/tmp/downloads",
		AudioFormat:   "mp3",
		MaxConcurrent: 1,
		LogLevel:      "info",
		LogFormat:     "text",
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"flac format", func(c *Config) { c.AudioFormat = "flac" }, false},
		{"empty port", func(c *Config) { c.Port = "" }, true},
		{"non-numeric port", func(c *Config) { c.Port = "abc" }, true},
		{"port out of range", func(c *Config) { c.Port = "70000" }, true},
		{"empty db path", func(c *Config) { c.DBPath = "" }, true},
		{"empty downloads dir", func(c *Config) { c.DownloadsDir = "" }, true},
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }, true},
		{"bad audio format", func(c *Config) { c.AudioFormat = "ogg" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
