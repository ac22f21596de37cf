package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"tokpost-go/domain/selector"
)

// ChromeDPDriver implements Driver using chromedp.
type ChromeDPDriver struct {
	config      *DriverConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.Mutex
	running     bool

	// frameNode, when non-nil, scopes element queries to an iframe's subtree.
	frameNode *cdp.Node
}

// NewChromeDPDriver creates a new ChromeDP-based browser driver.
func NewChromeDPDriver(config *DriverConfig) *ChromeDPDriver {
	if config == nil {
		config = DefaultDriverConfig()
	}
	return &ChromeDPDriver{
		config: config,
	}
}

// buildExecAllocatorOptions builds chromedp options from config.
func (d *ChromeDPDriver) buildExecAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.config.Headless),
		chromedp.Flag("mute-audio", d.config.MuteAudio),
		chromedp.Flag("disable-notifications", d.config.DisableNotifications),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("no-first-run", true),
		chromedp.WindowSize(d.config.WindowWidth, d.config.WindowHeight),
	)

	if d.config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(d.config.UserDataDir))
	}

	return opts
}

// Start initializes the browser instance.
func (d *ChromeDPDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("browser already running")
	}

	// Create allocator context from context.Background() so the browser
	// lifecycle is independent of the caller's context
	d.allocCtx, d.allocCancel = chromedp.NewExecAllocator(
		context.Background(),
		d.buildExecAllocatorOptions()...,
	)

	d.ctx, d.cancel = chromedp.NewContext(d.allocCtx)

	d.running = true
	return nil
}

// Stop closes the browser and releases resources.
func (d *ChromeDPDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.running = false
	d.frameNode = nil
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.allocCancel != nil {
		d.allocCancel()
		d.allocCancel = nil
	}
	d.ctx = nil
	d.allocCtx = nil
	return nil
}

// IsRunning returns true if the browser is active.
func (d *ChromeDPDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// browserCtx returns the live browser context or ErrNotRunning.
func (d *ChromeDPDriver) browserCtx() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running || d.ctx == nil {
		return nil, ErrNotRunning
	}
	return d.ctx, nil
}

// queryOpts maps a selector onto chromedp query options. CSS queries are
// scoped to the current iframe excursion when one is active; BySearch
// ignores FromNode, so XPath queries always address the top document.
func (d *ChromeDPDriver) queryOpts(sel selector.Selector) []chromedp.QueryOption {
	if sel.Kind == selector.XPath {
		return []chromedp.QueryOption{chromedp.BySearch}
	}

	opts := []chromedp.QueryOption{chromedp.ByQuery}
	d.mu.Lock()
	if d.frameNode != nil {
		opts = append(opts, chromedp.FromNode(d.frameNode))
	}
	d.mu.Unlock()
	return opts
}

// Navigate navigates to the specified URL.
func (d *ChromeDPDriver) Navigate(ctx context.Context, url string) error {
	browserCtx, err := d.browserCtx()
	if err != nil {
		return err
	}
	return chromedp.Run(browserCtx, chromedp.Navigate(url))
}

// CurrentURL returns the current page URL.
func (d *ChromeDPDriver) CurrentURL(ctx context.Context) (string, error) {
	browserCtx, err := d.browserCtx()
	if err != nil {
		return "", err
	}

	timeoutCtx, cancel := context.WithTimeout(browserCtx, 5*time.Second)
	defer cancel()

	var url string
	if err := chromedp.Run(timeoutCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read current URL: %w", err)
	}
	return url, nil
}

// WaitVisible waits for an element to become visible within the timeout.
// The caller's ctx is also monitored for cancellation.
func (d *ChromeDPDriver) WaitVisible(ctx context.Context, sel selector.Selector, timeout time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	browserCtx, err := d.browserCtx()
	if err != nil {
		return err
	}

	execCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(execCtx,
			chromedp.WaitVisible(sel.Query, d.queryOpts(sel)...),
		)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Exists reports whether an element is present right now, without waiting
// for it to appear.
func (d *ChromeDPDriver) Exists(ctx context.Context, sel selector.Selector) (bool, error) {
	browserCtx, err := d.browserCtx()
	if err != nil {
		return false, err
	}

	timeoutCtx, cancel := context.WithTimeout(browserCtx, 2*time.Second)
	defer cancel()

	var nodes []*cdp.Node
	opts := append(d.queryOpts(sel), chromedp.AtLeast(0))
	if err := chromedp.Run(timeoutCtx, chromedp.Nodes(sel.Query, &nodes, opts...)); err != nil {
		if timeoutCtx.Err() == context.DeadlineExceeded {
			return false, nil
		}
		return false, err
	}
	return len(nodes) > 0, nil
}

// Text returns the text content of the first matching element.
func (d *ChromeDPDriver) Text(ctx context.Context, sel selector.Selector) (string, error) {
	browserCtx, err := d.browserCtx()
	if err != nil {
		return "", err
	}

	timeoutCtx, cancel := context.WithTimeout(browserCtx, 3*time.Second)
	defer cancel()

	var text string
	if err := chromedp.Run(timeoutCtx, chromedp.Text(sel.Query, &text, d.queryOpts(sel)...)); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// SendKeys types text into an element.
func (d *ChromeDPDriver) SendKeys(ctx context.Context, sel selector.Selector, text string) error {
	browserCtx, err := d.browserCtx()
	if err != nil {
		return err
	}
	return chromedp.Run(browserCtx, chromedp.SendKeys(sel.Query, text, d.queryOpts(sel)...))
}

// SetFiles assigns a local file to a file input element.
func (d *ChromeDPDriver) SetFiles(ctx context.Context, sel selector.Selector, path string) error {
	browserCtx, err := d.browserCtx()
	if err != nil {
		return err
	}
	return chromedp.Run(browserCtx,
		chromedp.SetUploadFiles(sel.Query, []string{path}, d.queryOpts(sel)...),
	)
}

// Click performs a plain click on an element.
func (d *ChromeDPDriver) Click(ctx context.Context, sel selector.Selector) error {
	browserCtx, err := d.browserCtx()
	if err != nil {
		return err
	}

	timeoutCtx, cancel := context.WithTimeout(browserCtx, 5*time.Second)
	defer cancel()

	return chromedp.Run(timeoutCtx, chromedp.Click(sel.Query, d.queryOpts(sel)...))
}

// findExpr builds a JavaScript expression locating the selector's element.
func findExpr(sel selector.Selector) string {
	q, _ := json.Marshal(sel.Query)
	if sel.Kind == selector.XPath {
		return fmt.Sprintf(
			`document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`, q)
	}
	return fmt.Sprintf(`document.querySelector(%s)`, q)
}

// gestureScript dispatches the full pointer sequence on an element: focus,
// mouseover, mousedown, mouseup, click events at the element's center, then a
// native click for good measure. Evaluates to false when the element is absent.
const gestureScript = `(function() {
	var el = %s;
	if (!el) {
		return false;
	}
	var rect = el.getBoundingClientRect();
	var cx = rect.left + rect.width / 2;
	var cy = rect.top + rect.height / 2;
	var opts = {bubbles: true, cancelable: true, view: window, clientX: cx, clientY: cy, button: 0};
	el.focus();
	el.dispatchEvent(new MouseEvent('mouseover', opts));
	el.dispatchEvent(new MouseEvent('mousedown', opts));
	el.dispatchEvent(new MouseEvent('mouseup', opts));
	el.dispatchEvent(new MouseEvent('click', opts));
	el.click();
	return true;
})()`

// GestureClick performs a full pointer interaction sequence on an element.
func (d *ChromeDPDriver) GestureClick(ctx context.Context, sel selector.Selector) error {
	var clicked bool
	if err := d.RunScript(ctx, fmt.Sprintf(gestureScript, findExpr(sel)), &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("gesture click %q: %w", sel.Query, selector.ErrElementNotFound)
	}
	return nil
}

// buttonScanScript clicks the first button whose text matches one of the
// labels. Exact mode compares trimmed text; otherwise a lowercased substring
// match is used. Evaluates to false when nothing matched.
const buttonScanScript = `(function() {
	var labels = %s;
	var exact = %t;
	var buttons = document.querySelectorAll('button');
	for (var btn of buttons) {
		var text = btn.textContent.trim();
		for (var label of labels) {
			var hit = exact ? (text === label)
				: text.toLowerCase().includes(label.toLowerCase());
			if (hit) {
				btn.click();
				return true;
			}
		}
	}
	return false;
})()`

// ClickButtonByLabel scans all buttons for the given labels and clicks the
// first match.
func (d *ChromeDPDriver) ClickButtonByLabel(ctx context.Context, labels []string, exact bool) (bool, error) {
	encoded, err := json.Marshal(labels)
	if err != nil {
		return false, err
	}

	var clicked bool
	if err := d.RunScript(ctx, fmt.Sprintf(buttonScanScript, encoded, exact), &clicked); err != nil {
		return false, err
	}
	return clicked, nil
}

// RunScript evaluates JavaScript on the page.
func (d *ChromeDPDriver) RunScript(ctx context.Context, code string, out any) error {
	browserCtx, err := d.browserCtx()
	if err != nil {
		return err
	}

	timeoutCtx, cancel := context.WithTimeout(browserCtx, 10*time.Second)
	defer cancel()

	return chromedp.Run(timeoutCtx, chromedp.Evaluate(code, out))
}

// Screenshot captures the page and writes it to the screenshot directory.
func (d *ChromeDPDriver) Screenshot(ctx context.Context, name string) (string, error) {
	browserCtx, err := d.browserCtx()
	if err != nil {
		return "", err
	}

	timeoutCtx, cancel := context.WithTimeout(browserCtx, 5*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(timeoutCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}

	dir := d.config.ScreenshotDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", name, time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// EnterFrame switches the element-query context into an iframe.
func (d *ChromeDPDriver) EnterFrame(ctx context.Context, sel selector.Selector) error {
	browserCtx, err := d.browserCtx()
	if err != nil {
		return err
	}

	timeoutCtx, cancel := context.WithTimeout(browserCtx, 5*time.Second)
	defer cancel()

	var opts []chromedp.QueryOption
	if sel.Kind == selector.XPath {
		opts = append(opts, chromedp.BySearch)
	} else {
		opts = append(opts, chromedp.ByQuery)
	}

	var nodes []*cdp.Node
	if err := chromedp.Run(timeoutCtx, chromedp.Nodes(sel.Query, &nodes, opts...)); err != nil {
		return fmt.Errorf("iframe %q: %w", sel.Query, err)
	}
	if len(nodes) == 0 {
		return fmt.Errorf("iframe %q: %w", sel.Query, selector.ErrElementNotFound)
	}

	d.mu.Lock()
	d.frameNode = nodes[0]
	d.mu.Unlock()
	return nil
}

// ExitFrame restores the top-level document context.
func (d *ChromeDPDriver) ExitFrame() {
	d.mu.Lock()
	d.frameNode = nil
	d.mu.Unlock()
}

// Ensure ChromeDPDriver implements Driver
var _ Driver = (*ChromeDPDriver)(nil)
