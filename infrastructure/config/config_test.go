package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultLoginURL, cfg.LoginURL)
	assert.Equal(t, DefaultUploadURL, cfg.UploadURL)
	assert.Equal(t, DefaultUploadIntervalSeconds, cfg.UploadIntervalSeconds)
	assert.Equal(t, DefaultMaxFileSize, cfg.MaxFileSize)
	assert.Equal(t, []string{"fyp", "viral", "tiktok"}, cfg.DefaultHashtags)
	assert.False(t, cfg.Browser.Headless)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
credentials:
  email: someone@example.com
  password: hunter2hunter2
video_dir: /data/clips
upload_interval: 30
timeouts:
  processing: 120
browser:
  headless: true
default_hashtags: [daily]
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "someone@example.com", cfg.Credentials.Email)
	assert.Equal(t, "/data/clips", cfg.VideoDir)
	assert.Equal(t, 30, cfg.UploadIntervalSeconds)
	assert.Equal(t, 120, cfg.Timeouts.Processing)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, []string{"daily"}, cfg.DefaultHashtags)
	// untouched values keep defaults
	assert.Equal(t, DefaultCaptchaBudgetSeconds, cfg.Timeouts.Captcha)
	assert.Equal(t, DefaultLoginURL, cfg.LoginURL)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
credentials:
  email: file@example.com
  password: filepass
`), 0644))

	t.Setenv("TOKPOST_EMAIL", "env@example.com")
	t.Setenv("TOKPOST_PASSWORD", "envpass")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env@example.com", cfg.Credentials.Email)
	assert.Equal(t, "envpass", cfg.Credentials.Password)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("credentials: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestHasCredentials(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.HasCredentials(), "defaults carry no credentials")

	cfg.Credentials = Credentials{Email: "your_email@email.com", Password: "your_password"}
	assert.False(t, cfg.HasCredentials(), "template placeholders do not count")

	cfg.Credentials = Credentials{Email: "someone@example.com", Password: "hunter2hunter2"}
	assert.True(t, cfg.HasCredentials())
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{"valid", "someone@example.com", "hunter2hunter2", false},
		{"empty email", "", "hunter2hunter2", true},
		{"empty password", "someone@example.com", "", true},
		{"template email", "your_email@email.com", "hunter2hunter2", true},
		{"template email case-insensitive", "Your_Email@Email.com", "hunter2hunter2", true},
		{"template password", "someone@example.com", "your_password", true},
		{"changeme password", "someone@example.com", "changeme", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Credentials = Credentials{Email: tt.email, Password: tt.password}
			err := cfg.ValidateCredentials()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
