// Package config handles external configuration loading from JSON, .env files and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// DefaultSessionSecret must be replaced outside debug mode
const DefaultSessionSecret = "CHANGE_THIS_SECRET_IN_PRODUCTION"

// Config holds all application configuration
type Config struct {
	Debug     bool      `mapstructure:"debug"`
	Server    Server    `mapstructure:"server"`
	Site      Site      `mapstructure:"site"`
	Database  Database  `mapstructure:"database"`
	API       API       `mapstructure:"api"`
	Business  Business  `mapstructure:"business"`
	Features  Features  `mapstructure:"features"`
	Session   Session   `mapstructure:"session"`
	Logger    Logger    `mapstructure:"logger"`
	RateLimit RateLimit `mapstructure:"rateLimit"`
}

// Server holds HTTP server configuration. Timeouts are in seconds;
// ReadTimeout and WriteTimeout cover pages, UploadReadTimeout covers reading
// a booking form post with its files.
type Server struct {
	Port              int    `mapstructure:"port"`
	Host              string `mapstructure:"host"`
	ReadTimeout       int    `mapstructure:"readTimeout"`
	WriteTimeout      int    `mapstructure:"writeTimeout"`
	UploadReadTimeout int    `mapstructure:"uploadReadTimeout"`
}

// Site holds the public face of the site
type Site struct {
	// PublicURL is the address visitors reach the site at; tracking links
	// and QR codes are built from it
	PublicURL string `mapstructure:"publicUrl"`
	// DefaultLanguage replaces the stored site default at startup when set
	DefaultLanguage string `mapstructure:"defaultLanguage"`
}

// Database holds database configuration
type Database struct {
	Path string `mapstructure:"path"`
}

// API points at the bookings backend
type API struct {
	BaseURL       string `mapstructure:"baseUrl"`
	Timeout       int    `mapstructure:"timeout"`
	UploadTimeout int    `mapstructure:"uploadTimeout"`
}

// Business holds branding and contact information shown on every page
type Business struct {
	Name         string `mapstructure:"name"`
	ContactEmail string `mapstructure:"contactEmail"`
	ContactPhone string `mapstructure:"contactPhone"`
	Address      string `mapstructure:"address"`
}

// Features holds feature toggles
type Features struct {
	// DevTrackingFallback answers failed code lookups with a placeholder
	// booking. Refused outside debug mode.
	DevTrackingFallback bool `mapstructure:"devTrackingFallback"`
	ContactDelayMs      int  `mapstructure:"contactDelayMs"`
}

// Session holds visitor session configuration
type Session struct {
	Secret      string `mapstructure:"secret"`
	IdleMinutes int    `mapstructure:"idleMinutes"`
}

// Logger holds logger configuration
type Logger struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// RateLimit throttles form posts per client ip
type RateLimit struct {
	PerMinute int `mapstructure:"perMinute"`
	Burst     int `mapstructure:"burst"`
}

// Load reads an optional .env file, then the optional JSON config file, and
// finally environment variables
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	cleanPath := filepath.Clean(configPath)
	if _, err := os.Stat(cleanPath); err == nil {
		v.SetConfigFile(cleanPath)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	// A missing file leaves defaults and environment variables

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "")
	v.SetDefault("server.readTimeout", 15)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.uploadReadTimeout", 300)

	v.SetDefault("site.publicUrl", "")
	v.SetDefault("site.defaultLanguage", "")

	v.SetDefault("database.path", "data/psnrwanda.db")

	v.SetDefault("api.baseUrl", "http://localhost:8032/api/v1")
	v.SetDefault("api.timeout", 15)
	v.SetDefault("api.uploadTimeout", 120)

	v.SetDefault("business.name", "PSN Rwanda Ltd")
	v.SetDefault("business.contactEmail", "info@psnrwanda.com")
	v.SetDefault("business.contactPhone", "+250 788 859 612")
	v.SetDefault("business.address", "Nyamabuye, Muhanga, Southern Province, Rwanda")

	v.SetDefault("features.devTrackingFallback", false)
	v.SetDefault("features.contactDelayMs", 1500)

	v.SetDefault("session.secret", DefaultSessionSecret)
	v.SetDefault("session.idleMinutes", 60)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.outputPath", "stdout")

	v.SetDefault("rateLimit.perMinute", 30)
	v.SetDefault("rateLimit.burst", 10)
}

func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("debug", "DEBUG")
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.host", "HOST")
	_ = v.BindEnv("site.publicUrl", "PUBLIC_URL")
	_ = v.BindEnv("site.defaultLanguage", "DEFAULT_LANGUAGE")
	_ = v.BindEnv("database.path", "DATABASE_PATH")
	_ = v.BindEnv("api.baseUrl", "API_URL")
	_ = v.BindEnv("session.secret", "SESSION_SECRET")
	_ = v.BindEnv("logger.level", "LOG_LEVEL")
	_ = v.BindEnv("features.devTrackingFallback", "TRACKING_DEV_FALLBACK")
}

// validate checks that all required configuration values are present
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Site.PublicURL == "" {
		host := c.Server.Host
		if host == "" {
			host = "localhost"
		}
		c.Site.PublicURL = fmt.Sprintf("http://%s:%d", host, c.Server.Port)
	}
	pub, err := url.Parse(c.Site.PublicURL)
	if err != nil || (pub.Scheme != "http" && pub.Scheme != "https") || pub.Host == "" {
		return fmt.Errorf("invalid public url: %q", c.Site.PublicURL)
	}
	c.Site.PublicURL = strings.TrimRight(c.Site.PublicURL, "/")

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	cleanDBPath := filepath.Clean(c.Database.Path)
	if !filepath.IsLocal(cleanDBPath) && !filepath.IsAbs(cleanDBPath) {
		return fmt.Errorf("invalid database path: potential path traversal detected")
	}

	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api base url: %q", c.API.BaseURL)
	}

	if c.Session.Secret == "" || c.Session.Secret == DefaultSessionSecret {
		if !c.Debug {
			return fmt.Errorf("session secret must be changed for production")
		}
	}

	if c.Features.DevTrackingFallback && !c.Debug {
		return fmt.Errorf("development tracking fallback requires debug mode")
	}

	if c.Session.IdleMinutes <= 0 {
		c.Session.IdleMinutes = 60
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = 15
	}
	if c.API.UploadTimeout <= 0 {
		c.API.UploadTimeout = 120
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 30
	}
	if c.Server.UploadReadTimeout <= 0 {
		c.Server.UploadReadTimeout = 300
	}
	if c.Features.ContactDelayMs < 0 {
		c.Features.ContactDelayMs = 0
	}

	return nil
}

// Address returns the full server address (host:port)
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetDatabasePath returns the cleaned and validated database path
func (c *Config) GetDatabasePath() string {
	return filepath.Clean(c.Database.Path)
}

// APITimeout is the per-request time limit for regular backend calls
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.Timeout) * time.Second
}

// APIUploadTimeout is the time limit for streamed document uploads
func (c *Config) APIUploadTimeout() time.Duration {
	return time.Duration(c.API.UploadTimeout) * time.Second
}

// PageTimeout bounds handling of every request except booking form posts
func (c *Config) PageTimeout() time.Duration {
	if c.Server.WriteTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Server.WriteTimeout) * time.Second
}

// BookingReadTimeout bounds reading a booking form post with its files
func (c *Config) BookingReadTimeout() time.Duration {
	if c.Server.UploadReadTimeout <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Server.UploadReadTimeout) * time.Second
}

// BookingTimeout bounds one booking form post: reading it, both upload
// attempts, then the backend call that refreshes the service list
func (c *Config) BookingTimeout() time.Duration {
	return c.BookingReadTimeout() + 2*c.APIUploadTimeout() + c.APITimeout()
}

// SessionIdle is how long an untouched visitor session survives
func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.Session.IdleMinutes) * time.Minute
}

// ContactDelay is the simulated processing time of the contact form
func (c *Config) ContactDelay() time.Duration {
	return time.Duration(c.Features.ContactDelayMs) * time.Millisecond
}
