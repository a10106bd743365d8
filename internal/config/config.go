package config

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sauldoescode/saul.app/internal/errors"
)

const (
	// ConfigFileName is the primary configuration file name.
	ConfigFileName = "saulapp.json"

	// DefaultPort is the default HTTP port.
	DefaultPort = 2443

	// DefaultHost is the default bind host.
	DefaultHost = "localhost"

	// DefaultAppName is the name shown in mails and page titles.
	DefaultAppName = "saul.app"

	// DefaultDatabase is the default SQLite file, relative to the config dir.
	DefaultDatabase = "data/saulapp.db"
)

// configFileNames are probed in order by Load and Exists.
var configFileNames = []string{ConfigFileName, "saulapp.yaml", "saulapp.yml"}

var validLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Config holds the saulapp configuration.
type Config struct {
	// AppName is used in mail subjects and page titles.
	AppName string `json:"appName,omitempty" yaml:"appName,omitempty"`

	// Domain is the public host name, e.g. "saul.app".
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty"`

	// Port and Host define the listen address.
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// DevMode switches to text logs, insecure cookies and http base URLs.
	DevMode bool `json:"devMode,omitempty" yaml:"devMode,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`

	// Database is the SQLite file path.
	Database string `json:"database,omitempty" yaml:"database,omitempty"`

	Static  StaticConfig  `json:"static,omitempty" yaml:"static,omitempty"`
	Uploads UploadsConfig `json:"uploads,omitempty" yaml:"uploads,omitempty"`
	Auth    AuthConfig    `json:"auth,omitempty" yaml:"auth,omitempty"`
	Mail    MailConfig    `json:"mail,omitempty" yaml:"mail,omitempty"`
	Server  ServerConfig  `json:"server,omitempty" yaml:"server,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	configPath string
}

// StaticConfig configures static file serving.
type StaticConfig struct {
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// UploadsConfig selects the upload backend.
type UploadsConfig struct {
	// Backend is "disk" or "s3".
	Backend     string   `json:"backend,omitempty" yaml:"backend,omitempty"`
	Dir         string   `json:"dir,omitempty" yaml:"dir,omitempty"`
	URLPrefix   string   `json:"urlPrefix,omitempty" yaml:"urlPrefix,omitempty"`
	MaxFileSize int64    `json:"maxFileSize,omitempty" yaml:"maxFileSize,omitempty"`
	S3          S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`
}

// S3Config holds S3 backend settings.
type S3Config struct {
	Bucket          string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix          string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region          string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	AccessKeyID     string `json:"accessKeyId,omitempty" yaml:"accessKeyId,omitempty"`
	SecretAccessKey string `json:"secretAccessKey,omitempty" yaml:"secretAccessKey,omitempty"`
	PublicURL       string `json:"publicUrl,omitempty" yaml:"publicUrl,omitempty"`
}

// AuthConfig configures session tokens.
type AuthConfig struct {
	// TokenSecret signs session tokens. Required outside dev mode, where a
	// random per-process secret is used instead.
	TokenSecret string `json:"tokenSecret,omitempty" yaml:"tokenSecret,omitempty"`
	// TokenTTL is a Go duration string.
	TokenTTL string `json:"tokenTTL,omitempty" yaml:"tokenTTL,omitempty"`
}

// MailConfig configures outgoing mail. An empty SMTPAddr logs mails instead.
type MailConfig struct {
	SMTPAddr string `json:"smtpAddr,omitempty" yaml:"smtpAddr,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	From     string `json:"from,omitempty" yaml:"from,omitempty"`
}

// ServerConfig configures the HTTP layer.
type ServerConfig struct {
	AllowedOrigins  []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
	TrustedProxies  []string `json:"trustedProxies,omitempty" yaml:"trustedProxies,omitempty"`
	RateLimit       float64  `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`
	RateBurst       int      `json:"rateBurst,omitempty" yaml:"rateBurst,omitempty"`
	RequestTimeout  string   `json:"requestTimeout,omitempty" yaml:"requestTimeout,omitempty"`
	ShutdownTimeout string   `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`
	MaxSessions     int      `json:"maxSessions,omitempty" yaml:"maxSessions,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from the specified directory.
// It looks for saulapp.json, saulapp.yaml and saulapp.yml in that order.
func Load(dir string) (*Config, error) {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
// The format is chosen by extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " or pass --config")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid YAML")
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			e := errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON")
			var syntax *json.SyntaxError
			if stderrors.As(err, &syntax) {
				e = e.WithLocationFromOffset(path, data, syntax.Offset)
			}
			return nil, e
		}
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// ApplyEnv overrides fields from SAULAPP_* environment variables.
// getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("SAULAPP_DEVMODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("E121").
				WithDetail("SAULAPP_DEVMODE=" + v + " is not a boolean")
		}
		c.DevMode = b
	}
	if v := getenv("SAULAPP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("E122").
				WithDetail("SAULAPP_PORT=" + v + " is not a number")
		}
		c.Port = port
	}
	if v := getenv("SAULAPP_TOKEN_SECRET"); v != "" {
		c.Auth.TokenSecret = v
	}
	if v := getenv("SAULAPP_SMTP_PASSWORD"); v != "" {
		c.Mail.Password = v
	}
	if v := getenv("SAULAPP_S3_SECRET_ACCESS_KEY"); v != "" {
		c.Uploads.S3.SecretAccessKey = v
	}
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, as YAML when the
// extension asks for it and JSON otherwise.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.AppName == "" {
		c.AppName = DefaultAppName
	}
	if c.Domain == "" {
		c.Domain = DefaultAppName
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}

	// Static
	if c.Static.Dir == "" {
		c.Static.Dir = "static"
	}
	if c.Static.Prefix == "" {
		c.Static.Prefix = "/static/"
	}

	// Uploads
	if c.Uploads.Backend == "" {
		c.Uploads.Backend = "disk"
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "data/uploads"
	}
	if c.Uploads.URLPrefix == "" {
		c.Uploads.URLPrefix = "/uploads"
	}
	if c.Uploads.MaxFileSize == 0 {
		c.Uploads.MaxFileSize = 10 << 20
	}

	// Auth
	if c.Auth.TokenTTL == "" {
		c.Auth.TokenTTL = "168h"
	}

	// Server
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 20
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = 40
	}
	if c.Server.RequestTimeout == "" {
		c.Server.RequestTimeout = "30s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Server.MaxSessions == 0 {
		c.Server.MaxSessions = 1000
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("E122").
			WithDetail("Port must be between 1 and 65535, got " + strconv.Itoa(c.Port))
	}
	if _, ok := validLogLevels[strings.ToLower(c.LogLevel)]; !ok {
		return errors.New("E121").
			WithDetail("logLevel must be one of debug, info, warn, error, got " + strconv.Quote(c.LogLevel))
	}
	switch c.Uploads.Backend {
	case "disk":
	case "s3":
		if c.Uploads.S3.Bucket == "" {
			return errors.New("E121").
				WithDetail("uploads.s3.bucket is required for the s3 backend")
		}
	default:
		return errors.New("E121").
			WithDetail("uploads.backend must be disk or s3, got " + strconv.Quote(c.Uploads.Backend))
	}
	durations := map[string]string{
		"auth.tokenTTL":          c.Auth.TokenTTL,
		"server.requestTimeout":  c.Server.RequestTimeout,
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
	}
	for field, v := range durations {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return errors.New("E121").
				WithDetail(field + " must be a positive duration, got " + strconv.Quote(v)).
				WithExample(`"` + field[strings.LastIndex(field, ".")+1:] + `": "30s"`)
		}
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return errors.New("E121").
			WithDetail("server.rateLimit and server.rateBurst must not be negative")
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// BaseURL returns the public URL used in magic links.
func (c *Config) BaseURL() string {
	if c.DevMode {
		return "http://localhost:" + strconv.Itoa(c.Port)
	}
	return "https://" + c.Domain
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	return validLogLevels[strings.ToLower(c.LogLevel)]
}

// TokenTTL returns the parsed session token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return parseDuration(c.Auth.TokenTTL, 7*24*time.Hour)
}

// RequestTimeout returns the parsed per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return parseDuration(c.Server.RequestTimeout, 30*time.Second)
}

// ShutdownTimeout returns the parsed graceful shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// DatabasePath returns the absolute path to the SQLite file.
func (c *Config) DatabasePath() string {
	return c.resolve(c.Database)
}

// StaticPath returns the absolute path to the static directory.
func (c *Config) StaticPath() string {
	return c.resolve(c.Static.Dir)
}

// UploadsPath returns the absolute path to the disk upload directory.
func (c *Config) UploadsPath() string {
	return c.resolve(c.Uploads.Dir)
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

func parseDuration(v string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// NewLogger builds the process logger: JSON in production, text in dev mode.
func (c *Config) NewLogger(w *os.File) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.DevMode {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range configFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E141").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Create " + ConfigFileName + " at the project root")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or one of its parents. Without any config file the defaults are used.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) && appErr.Code == "E141" {
			cfg := New()
			cfg.configPath = filepath.Join(wd, ConfigFileName)
			return cfg, nil
		}
		return nil, err
	}

	return Load(root)
}
