// Package config loads application configuration from a YAML file with
// environment-variable overrides for credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default endpoints and tuning values. Anything the YAML file leaves at zero
// falls back to these.
const (
	DefaultLoginURL  = "https://www.tiktok.com/login/phone-or-email/email"
	DefaultUploadURL = "https://www.tiktok.com/tiktokstudio/upload?from=webapp"

	DefaultElementTimeoutSeconds    = 10
	DefaultProcessingBudgetSeconds  = 300
	DefaultCaptchaBudgetSeconds     = 300
	DefaultManualLoginBudgetSeconds = 300
	DefaultUploadIntervalSeconds    = 60

	// DefaultMaxFileSize is the remote service's per-file ceiling (10 GiB).
	DefaultMaxFileSize = int64(10) << 30
)

// placeholderValues are template credentials that must never be submitted.
var placeholderValues = map[string]bool{
	"":                       true,
	"your_email@email.com":   true,
	"your_email@example.com": true,
	"your_email":             true,
	"your_password":          true,
	"changeme":               true,
}

// Credentials holds the login identity. Loaded from YAML, overridable via
// TOKPOST_EMAIL / TOKPOST_PASSWORD.
type Credentials struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// BrowserConfig mirrors the browser driver options.
type BrowserConfig struct {
	Headless      bool   `yaml:"headless"`
	WindowWidth   int    `yaml:"window_width"`
	WindowHeight  int    `yaml:"window_height"`
	UserDataDir   string `yaml:"user_data_dir"`
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// Timeouts groups the polling budgets, all in seconds.
type Timeouts struct {
	Element     int `yaml:"element"`
	Processing  int `yaml:"processing"`
	Captcha     int `yaml:"captcha"`
	ManualLogin int `yaml:"manual_login"`
}

// Config is the full application configuration.
type Config struct {
	Credentials Credentials   `yaml:"credentials"`
	Browser     BrowserConfig `yaml:"browser"`
	Timeouts    Timeouts      `yaml:"timeouts"`

	LoginURL  string `yaml:"login_url"`
	UploadURL string `yaml:"upload_url"`

	VideoDir    string `yaml:"video_dir"`
	CatalogPath string `yaml:"catalog_path"`

	// UploadIntervalSeconds is the pause between consecutive successful
	// uploads in a batch.
	UploadIntervalSeconds int `yaml:"upload_interval"`

	// MaxFileSize is the per-file size ceiling in bytes.
	MaxFileSize int64 `yaml:"max_file_size"`

	// DefaultHashtags are appended to every caption unless the item
	// overrides them.
	DefaultHashtags []string `yaml:"default_hashtags"`
}

// Default returns a configuration with all tuning values populated.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			WindowWidth:   1920,
			WindowHeight:  1080,
			UserDataDir:   "browser-profile",
			ScreenshotDir: "screenshots",
		},
		Timeouts: Timeouts{
			Element:     DefaultElementTimeoutSeconds,
			Processing:  DefaultProcessingBudgetSeconds,
			Captcha:     DefaultCaptchaBudgetSeconds,
			ManualLogin: DefaultManualLoginBudgetSeconds,
		},
		LoginURL:              DefaultLoginURL,
		UploadURL:             DefaultUploadURL,
		VideoDir:              "videos",
		CatalogPath:           "tokpost.db",
		UploadIntervalSeconds: DefaultUploadIntervalSeconds,
		MaxFileSize:           DefaultMaxFileSize,
		DefaultHashtags:       []string{"fyp", "viral", "tiktok"},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. A missing file is not an error; defaults plus environment are
// used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.fillZeroes()
	return cfg, nil
}

// applyEnv overrides credentials from the environment. Environment wins over
// the file so secrets can stay out of it.
func (c *Config) applyEnv() {
	if v := os.Getenv("TOKPOST_EMAIL"); v != "" {
		c.Credentials.Email = v
	}
	if v := os.Getenv("TOKPOST_PASSWORD"); v != "" {
		c.Credentials.Password = v
	}
}

// fillZeroes restores defaults for values the file set to zero.
func (c *Config) fillZeroes() {
	def := Default()
	if c.LoginURL == "" {
		c.LoginURL = def.LoginURL
	}
	if c.UploadURL == "" {
		c.UploadURL = def.UploadURL
	}
	if c.Timeouts.Element <= 0 {
		c.Timeouts.Element = def.Timeouts.Element
	}
	if c.Timeouts.Processing <= 0 {
		c.Timeouts.Processing = def.Timeouts.Processing
	}
	if c.Timeouts.Captcha <= 0 {
		c.Timeouts.Captcha = def.Timeouts.Captcha
	}
	if c.Timeouts.ManualLogin <= 0 {
		c.Timeouts.ManualLogin = def.Timeouts.ManualLogin
	}
	if c.UploadIntervalSeconds <= 0 {
		c.UploadIntervalSeconds = def.UploadIntervalSeconds
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = def.MaxFileSize
	}
	if c.Browser.WindowWidth <= 0 {
		c.Browser.WindowWidth = def.Browser.WindowWidth
	}
	if c.Browser.WindowHeight <= 0 {
		c.Browser.WindowHeight = def.Browser.WindowHeight
	}
	if c.Browser.ScreenshotDir == "" {
		c.Browser.ScreenshotDir = def.Browser.ScreenshotDir
	}
	if c.VideoDir == "" {
		c.VideoDir = def.VideoDir
	}
	if c.CatalogPath == "" {
		c.CatalogPath = def.CatalogPath
	}
}

// HasCredentials reports whether usable, non-placeholder credentials are
// configured. Without them the login flow skips the automated attempt and
// waits for the operator to log in by hand.
func (c *Config) HasCredentials() bool {
	return c.ValidateCredentials() == nil
}

// ValidateCredentials rejects missing or template credentials.
func (c *Config) ValidateCredentials() error {
	if placeholderValues[strings.ToLower(strings.TrimSpace(c.Credentials.Email))] {
		return errors.New("email is not configured: set credentials.email or TOKPOST_EMAIL")
	}
	if placeholderValues[strings.ToLower(strings.TrimSpace(c.Credentials.Password))] {
		return errors.New("password is not configured: set credentials.password or TOKPOST_PASSWORD")
	}
	return nil
}
