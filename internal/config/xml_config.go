// Package config provides XML-based configuration for the processing service
// and the viewer.
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/bytes"
)

// DefaultFileName is the configuration file looked up next to the binaries.
const DefaultFileName = "finprocessor.config"

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"FinancialProcessor"`

	// Processing service HTTP settings
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Workbook extraction
	Processing ProcessingConfig `xml:"Processing"`

	// Browser viewer settings
	Viewer ViewerConfig `xml:"Viewer"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory    string `xml:"DataDirectory"`
	UploadsDirectory string `xml:"UploadsDirectory"`
	// Stored workbooks older than this are purged at startup.
	PurgeAfterMinutes int `xml:"PurgeAfterMinutes"`
}

// ProcessingConfig contains workbook extraction settings
type ProcessingConfig struct {
	HeaderRow         int    `xml:"HeaderRow"`
	IndexLabel        string `xml:"IndexLabel"`
	AllowedExtensions string `xml:"AllowedExtensions"`
}

// ViewerConfig contains browser viewer settings
type ViewerConfig struct {
	Port                   int    `xml:"Port"`
	BindAddress            string `xml:"BindAddress"`
	ServiceURL             string `xml:"ServiceURL"`
	HealthIntervalSeconds  int    `xml:"HealthIntervalSeconds"`
	ProbeTimeoutSeconds    int    `xml:"ProbeTimeoutSeconds"`
	UploadTimeoutSeconds   int    `xml:"UploadTimeoutSeconds"`
	Locale                 string `xml:"Locale"`
	MaxRows                int    `xml:"MaxRows"`
	ResponseFormat         string `xml:"ResponseFormat"`
	SessionTimeoutMinutes  int    `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int    `xml:"CleanupIntervalMinutes"`
	MaxSessions            int    `xml:"MaxSessions"`
	MaxUploadSize          string `xml:"MaxUploadSize"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	LogFormat            string `xml:"LogFormat"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         5000,
			BindAddress:  "127.0.0.1",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 150,
			IdleTimeout:  120,
			BodyLimit:    "16M",
		},
		Storage: StorageConfig{
			DataDirectory:     "./data",
			UploadsDirectory:  "./data/uploads",
			PurgeAfterMinutes: 60,
		},
		Processing: ProcessingConfig{
			HeaderRow:         6,
			IndexLabel:        "Chỉ tiêu",
			AllowedExtensions: ".xlsx,.xls",
		},
		Viewer: ViewerConfig{
			Port:                   3000,
			BindAddress:            "127.0.0.1",
			ServiceURL:             "http://127.0.0.1:5000",
			HealthIntervalSeconds:  10,
			ProbeTimeoutSeconds:    5,
			UploadTimeoutSeconds:   120,
			Locale:                 "en",
			MaxRows:                100,
			ResponseFormat:         "json",
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
			MaxSessions:            100,
			MaxUploadSize:          "16M",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			LogFormat:            "text",
			EnableRequestLogging: true,
		},
	}
}

// LoadEnvFiles loads .env style files into the process environment. Missing
// files are ignored; variables already set are not overwritten.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// DefaultPath returns DefaultFileName next to the running executable.
func DefaultPath() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	return filepath.Join(filepath.Dir(exePath), DefaultFileName), nil
}

// LoadConfig loads configuration from an XML file, creating it with defaults
// when it does not exist. Elements missing from the file keep their defaults.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Financial Statement Processor Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port, ok := envInt("PORT"); ok {
		c.Server.Port = port
	}
	if port, ok := envInt("VIEWER_PORT"); ok {
		c.Viewer.Port = port
	}
	if url := os.Getenv("PROCESSOR_URL"); url != "" {
		c.Viewer.ServiceURL = url
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.UploadsDirectory = filepath.Join(dataDir, "uploads")
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Advanced.LogFormat = format
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.UploadsDirectory) {
		c.Storage.UploadsDirectory = filepath.Join(configDir, c.Storage.UploadsDirectory)
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetUploadDir returns the absolute uploads directory path
func (c *AppConfig) GetUploadDir() string {
	return c.Storage.UploadsDirectory
}

// GetServerAddr returns the processing service bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetViewerAddr returns the viewer bind address
func (c *AppConfig) GetViewerAddr() string {
	return fmt.Sprintf("%s:%d", c.Viewer.BindAddress, c.Viewer.Port)
}

// AllowOriginList splits AllowOrigins on commas.
func (c *AppConfig) AllowOriginList() []string {
	return splitList(c.Server.AllowOrigins)
}

// AllowedExtensionList returns the accepted upload extensions without dots.
func (c *AppConfig) AllowedExtensionList() []string {
	var out []string
	for _, ext := range splitList(c.Processing.AllowedExtensions) {
		out = append(out, strings.ToLower(strings.TrimPrefix(ext, ".")))
	}
	return out
}

// HealthInterval is the viewer's probe period.
func (c *AppConfig) HealthInterval() time.Duration {
	return seconds(c.Viewer.HealthIntervalSeconds)
}

// ProbeTimeout bounds a single health probe.
func (c *AppConfig) ProbeTimeout() time.Duration {
	return seconds(c.Viewer.ProbeTimeoutSeconds)
}

// UploadTimeout bounds a single upload request.
func (c *AppConfig) UploadTimeout() time.Duration {
	return seconds(c.Viewer.UploadTimeoutSeconds)
}

// SessionTimeout is how long an idle viewer session is kept.
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Viewer.SessionTimeoutMinutes) * time.Minute
}

// CleanupInterval is the period of the viewer session sweep.
func (c *AppConfig) CleanupInterval() time.Duration {
	return time.Duration(c.Viewer.CleanupIntervalMinutes) * time.Minute
}

// PurgeAfter is the age at which stored workbooks are removed.
func (c *AppConfig) PurgeAfter() time.Duration {
	return time.Duration(c.Storage.PurgeAfterMinutes) * time.Minute
}

// MaxUploadBytes parses Viewer.MaxUploadSize ("16M", "512K", ...).
func (c *AppConfig) MaxUploadBytes() (int64, error) {
	if c.Viewer.MaxUploadSize == "" {
		return 0, nil
	}
	n, err := bytes.Parse(c.Viewer.MaxUploadSize)
	if err != nil {
		return 0, fmt.Errorf("invalid MaxUploadSize %q: %w", c.Viewer.MaxUploadSize, err)
	}
	return n, nil
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.UploadsDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
