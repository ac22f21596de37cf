// Package browser provides browser automation infrastructure.
package browser

import (
	"context"
	"errors"
	"time"

	"tokpost-go/domain/selector"
)

// Driver defines the interface for browser automation.
// This abstraction allows for different browser implementations (ChromeDP,
// Playwright, etc.) and for scripted stubs in tests.
type Driver interface {
	// Start initializes the browser instance.
	Start(ctx context.Context) error

	// Stop closes the browser and releases resources. Safe to call twice.
	Stop() error

	// IsRunning returns true if the browser is active.
	IsRunning() bool

	// Navigate navigates to the specified URL.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the current page URL.
	CurrentURL(ctx context.Context) (string, error)

	// WaitVisible waits for an element to become visible within the timeout.
	WaitVisible(ctx context.Context, sel selector.Selector, timeout time.Duration) error

	// Exists reports whether an element is present right now, without waiting.
	Exists(ctx context.Context, sel selector.Selector) (bool, error)

	// Text returns the text content of the first matching element.
	Text(ctx context.Context, sel selector.Selector) (string, error)

	// SendKeys types text into an element.
	SendKeys(ctx context.Context, sel selector.Selector, text string) error

	// SetFiles assigns a local file to a file input element.
	SetFiles(ctx context.Context, sel selector.Selector, path string) error

	// Click performs a plain click on an element.
	Click(ctx context.Context, sel selector.Selector) error

	// GestureClick performs a full pointer interaction sequence on an element:
	// focus, mouseover, mousedown, mouseup, click. Some UIs only react to the
	// full gesture, not a programmatic click.
	GestureClick(ctx context.Context, sel selector.Selector) error

	// ClickButtonByLabel scans all buttons on the page and clicks the first
	// whose text matches one of the labels. With exact=false the match is a
	// case-insensitive substring. Returns false when no button matched.
	ClickButtonByLabel(ctx context.Context, labels []string, exact bool) (bool, error)

	// RunScript evaluates JavaScript on the page, unmarshalling the result
	// into out when out is non-nil.
	RunScript(ctx context.Context, code string, out any) error

	// Screenshot captures the page and writes it to the screenshot directory.
	// Returns the file path.
	Screenshot(ctx context.Context, name string) (string, error)

	// EnterFrame scopes subsequent CSS element queries to an iframe's
	// subtree. XPath queries and script-based operations (GestureClick,
	// ClickButtonByLabel, RunScript) always run against the top document,
	// so excursions should be kept short and use CSS selectors only.
	// Callers must restore with ExitFrame on all paths.
	EnterFrame(ctx context.Context, sel selector.Selector) error

	// ExitFrame restores the top-level document context. Safe to call when
	// not inside a frame.
	ExitFrame()
}

// ErrNotRunning is returned by operations invoked before Start or after Stop.
var ErrNotRunning = errors.New("browser not running")

// DriverConfig holds configuration for browser drivers.
type DriverConfig struct {
	// Headless runs the browser without a visible window. The upload flow
	// needs a visible window so the operator can complete CAPTCHA or manual
	// login, so this defaults to false.
	Headless bool

	// WindowWidth is the browser window width.
	WindowWidth int

	// WindowHeight is the browser window height.
	WindowHeight int

	// UserDataDir is the persistent profile directory. A persistent profile
	// is what makes the session-reuse fast path possible across runs.
	UserDataDir string

	// ScreenshotDir is where diagnostic screenshots are written.
	ScreenshotDir string

	// MuteAudio mutes browser audio.
	MuteAudio bool

	// DisableNotifications suppresses permission prompts that can cover the form.
	DisableNotifications bool
}

// DefaultDriverConfig returns default browser configuration.
func DefaultDriverConfig() *DriverConfig {
	return &DriverConfig{
		Headless:             false,
		WindowWidth:          1920,
		WindowHeight:         1080,
		ScreenshotDir:        "screenshots",
		MuteAudio:            true,
		DisableNotifications: true,
	}
}
