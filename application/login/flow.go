// Package login drives the authentication flow against the remote login page.
//
// The flow is a best-effort state machine over an uncontrolled UI: after every
// action it re-reads the page (verification input? captcha marker? URL?
// error text?) and classifies, rather than trusting any single signal.
package login

import (
	"context"
	"fmt"
	"time"

	"tokpost-go/core/event"
	"tokpost-go/core/eventbus"
	"tokpost-go/core/state"
	"tokpost-go/domain/selector"
	"tokpost-go/infrastructure/browser"
	"tokpost-go/infrastructure/config"
	"tokpost-go/infrastructure/logging"
)

// Prompter is the human-interrupt port. Implementations block on operator
// input while respecting the given timeout.
type Prompter interface {
	// RequestCode asks the operator for a verification code. It returns
	// ok=false when the operator cancelled or the timeout elapsed. The
	// returned code is already validated (six digits).
	RequestCode(timeout time.Duration) (code string, ok bool)

	// WatchInput returns a stream of operator input lines. The stream is
	// shared across calls; the channel closes when input ends. Used for
	// acknowledgement words ("done", "q") during long waits.
	WatchInput() <-chan string
}

// Result is the terminal classification of a login operation.
type Result struct {
	Outcome state.LoginOutcome
	Message string
}

// Flow coordinates the login attempt, the human-interrupt waits, and the
// post-action page classification.
type Flow struct {
	driver   browser.Driver
	bus      eventbus.EventBus
	prompter Prompter
	cfg      *config.Config

	// Injectable clock for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewFlow creates a login flow.
func NewFlow(driver browser.Driver, bus eventbus.EventBus, prompter Prompter, cfg *config.Config) *Flow {
	return &Flow{
		driver:   driver,
		bus:      bus,
		prompter: prompter,
		cfg:      cfg,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

const (
	settleAfterNavigate = 3 * time.Second
	settleAfterType     = 1 * time.Second
	settleAfterSubmit   = 5 * time.Second
	probePerCandidate   = 5 * time.Second
	classifyProbe       = 2 * time.Second

	captchaPollInterval     = 1 * time.Second
	manualLoginPollInterval = 5 * time.Second
	manualLoginReminderTick = 30 * time.Second
)

// CheckLoginStatus reports whether the current session is already
// authenticated, by visiting the upload surface and seeing whether the
// remote side bounces to the login page.
func (f *Flow) CheckLoginStatus(ctx context.Context) (bool, error) {
	if err := f.driver.Navigate(ctx, f.cfg.UploadURL); err != nil {
		return false, err
	}
	f.sleep(settleAfterNavigate)

	url, err := f.driver.CurrentURL(ctx)
	if err != nil {
		return false, err
	}
	return !selector.IsLoginURL(url), nil
}

// AttemptLogin runs one automated login attempt. A still-valid session from
// a previous run short-circuits before any credential is typed.
func (f *Flow) AttemptLogin(ctx context.Context) (Result, error) {
	log := logging.From(ctx)

	loggedIn, err := f.CheckLoginStatus(ctx)
	if err != nil {
		return Result{}, err
	}
	if loggedIn {
		log.Info("session still valid, skipping login form")
		result := Result{Outcome: state.LoginSuccess, Message: "existing session"}
		f.bus.Publish(event.NewLoginAttempted(result.Outcome, result.Message))
		return result, nil
	}

	if err := f.driver.Navigate(ctx, f.cfg.LoginURL); err != nil {
		return Result{}, err
	}
	f.sleep(settleAfterNavigate)

	if err := f.fillCredentials(ctx); err != nil {
		result := Result{Outcome: state.LoginFailed, Message: err.Error()}
		f.bus.Publish(event.NewLoginAttempted(result.Outcome, result.Message))
		return result, nil
	}

	if err := f.submit(ctx); err != nil {
		result := Result{Outcome: state.LoginFailed, Message: err.Error()}
		f.bus.Publish(event.NewLoginAttempted(result.Outcome, result.Message))
		return result, nil
	}
	f.sleep(settleAfterSubmit)

	result := f.classify(ctx)
	f.bus.Publish(event.NewLoginAttempted(result.Outcome, result.Message))

	switch result.Outcome {
	case state.LoginNeedsVerification:
		f.bus.Publish(event.NewVerificationRequired(f.cfg.Timeouts.ManualLogin))
	case state.LoginNeedsCaptcha:
		f.bus.Publish(event.NewCaptchaRequired(f.cfg.Timeouts.Captcha))
	}

	log.Info("login attempt classified", "outcome", result.Outcome.String(), "message", result.Message)
	return result, nil
}

// fillCredentials locates the email and password fields and types into them.
func (f *Flow) fillCredentials(ctx context.Context) error {
	emailSel, err := selector.Probe(ctx, f.driver, selector.EmailFields, probePerCandidate)
	if err != nil {
		return fmt.Errorf("email field: %w", err)
	}
	if err := f.driver.SendKeys(ctx, emailSel, f.cfg.Credentials.Email); err != nil {
		return fmt.Errorf("email field: %w", err)
	}
	f.sleep(settleAfterType)

	passwordSel, err := selector.Probe(ctx, f.driver, selector.PasswordFields, probePerCandidate)
	if err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	if err := f.driver.SendKeys(ctx, passwordSel, f.cfg.Credentials.Password); err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	f.sleep(settleAfterType)
	return nil
}

// submit tries the submit button, then a label scan, then Enter in the
// password field. The page only reacts to a full pointer gesture on the
// submit control, so plain Click is not used here.
func (f *Flow) submit(ctx context.Context) error {
	for _, submitSel := range selector.SubmitButtons {
		if visible, _ := f.driver.Exists(ctx, submitSel); !visible {
			continue
		}
		if err := f.driver.GestureClick(ctx, submitSel); err == nil {
			return nil
		}
	}

	if clicked, err := f.driver.ClickButtonByLabel(ctx, selector.LoginButtonLabels, true); err == nil && clicked {
		return nil
	}

	// Last resort: Enter in the password field.
	if passwordSel, err := selector.Probe(ctx, f.driver, selector.PasswordFields, classifyProbe); err == nil {
		return f.driver.SendKeys(ctx, passwordSel, "\n")
	}
	return fmt.Errorf("submit control: %w", selector.ErrElementNotFound)
}

// classify reads the page after a submit and decides what happened.
// Priority: verification input, then captcha, then URL, then error text.
func (f *Flow) classify(ctx context.Context) Result {
	if _, err := selector.Probe(ctx, f.driver, selector.VerificationFields, classifyProbe); err == nil {
		return Result{Outcome: state.LoginNeedsVerification, Message: "verification code input detected"}
	}

	for _, sel := range selector.CaptchaMarkers {
		if present, _ := f.driver.Exists(ctx, sel); present {
			return Result{Outcome: state.LoginNeedsCaptcha, Message: "captcha challenge detected"}
		}
	}

	url, err := f.driver.CurrentURL(ctx)
	if err == nil && (selector.IsLoggedInURL(url) || !selector.IsLoginURL(url)) {
		return Result{Outcome: state.LoginSuccess, Message: "left login page"}
	}

	for _, sel := range selector.ErrorMarkers {
		if present, _ := f.driver.Exists(ctx, sel); !present {
			continue
		}
		if text, err := f.driver.Text(ctx, sel); err == nil && text != "" {
			return Result{Outcome: state.LoginFailed, Message: text}
		}
	}

	return Result{Outcome: state.LoginFailed, Message: "login still in progress"}
}

// SubmitVerificationCode asks the operator for the emailed code and submits
// it. Returns a cancelled failure when the operator gives up.
func (f *Flow) SubmitVerificationCode(ctx context.Context) (Result, error) {
	code, ok := f.prompter.RequestCode(time.Duration(f.cfg.Timeouts.ManualLogin) * time.Second)
	if !ok {
		return Result{Outcome: state.LoginFailed, Message: "verification cancelled by operator"}, nil
	}

	fieldSel, err := selector.Probe(ctx, f.driver, selector.VerificationFields, probePerCandidate)
	if err != nil {
		return Result{Outcome: state.LoginFailed, Message: "verification input disappeared"}, nil
	}
	if err := f.driver.SendKeys(ctx, fieldSel, code); err != nil {
		return Result{}, err
	}
	f.sleep(settleAfterType)

	// Some variants auto-submit on the sixth digit; a missing button is fine.
	if _, err := f.driver.ClickButtonByLabel(ctx, selector.VerifySubmitLabels, false); err != nil {
		return Result{}, err
	}
	f.sleep(settleAfterSubmit)

	return f.classify(ctx), nil
}

// WaitForCaptcha hands control to the operator until the challenge is solved.
// The operator types "done" when finished or "q" to abort; the page is also
// polled so a solved challenge is noticed without the acknowledgement.
func (f *Flow) WaitForCaptcha(ctx context.Context) (Result, error) {
	budget := time.Duration(f.cfg.Timeouts.Captcha) * time.Second
	deadline := f.now().Add(budget)

	lines := f.prompter.WatchInput()

	for f.now().Before(deadline) {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case line, open := <-lines:
			if !open {
				return Result{Outcome: state.LoginFailed, Message: "captcha wait aborted"}, nil
			}
			switch line {
			case "q":
				return Result{Outcome: state.LoginFailed, Message: "captcha cancelled by operator"}, nil
			case "done":
				return f.afterCaptcha(ctx), nil
			}
		default:
		}

		if gone := f.captchaGone(ctx); gone {
			return f.afterCaptcha(ctx), nil
		}
		f.sleep(captchaPollInterval)
	}

	return Result{Outcome: state.LoginFailed, Message: "captcha wait timed out"}, nil
}

// captchaGone reports whether no captcha marker remains on the page.
func (f *Flow) captchaGone(ctx context.Context) bool {
	for _, sel := range selector.CaptchaMarkers {
		if present, _ := f.driver.Exists(ctx, sel); present {
			return false
		}
	}
	return true
}

// afterCaptcha re-classifies once the challenge is out of the way. A captcha
// that is merely dismissed (login form still showing) classifies as a normal
// in-progress failure, which the caller escalates to manual login.
func (f *Flow) afterCaptcha(ctx context.Context) Result {
	result := f.classify(ctx)
	if result.Outcome == state.LoginNeedsCaptcha {
		result = Result{Outcome: state.LoginFailed, Message: "captcha still present"}
	}
	return result
}

// WaitForManualLogin waits for the operator to finish logging in by hand in
// the visible browser window, polling the URL until it leaves the login page.
func (f *Flow) WaitForManualLogin(ctx context.Context) (Result, error) {
	budget := time.Duration(f.cfg.Timeouts.ManualLogin) * time.Second
	start := f.now()
	deadline := start.Add(budget)
	lastReminder := start

	for f.now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		url, err := f.driver.CurrentURL(ctx)
		if err == nil && !selector.IsLoginURL(url) {
			return Result{Outcome: state.LoginSuccess, Message: "manual login completed"}, nil
		}

		if f.now().Sub(lastReminder) >= manualLoginReminderTick {
			lastReminder = f.now()
			remaining := int(deadline.Sub(f.now()) / time.Second)
			f.bus.Publish(event.NewManualLoginWaiting(remaining))
		}
		f.sleep(manualLoginPollInterval)
	}

	return Result{Outcome: state.LoginFailed, Message: "manual login timed out"}, nil
}

// EnsureLoggedIn runs the whole escalation ladder: automated attempt, then
// the human-interrupt paths it calls for, finally manual login. Returns the
// terminal result of the last rung reached.
//
// Without configured credentials the automated rung is skipped entirely: a
// still-valid session passes, otherwise the flow waits for the operator to
// log in by hand in the browser window.
func (f *Flow) EnsureLoggedIn(ctx context.Context) (Result, error) {
	if !f.cfg.HasCredentials() {
		loggedIn, err := f.CheckLoginStatus(ctx)
		if err != nil {
			return Result{}, err
		}
		if loggedIn {
			return Result{Outcome: state.LoginSuccess, Message: "existing session"}, nil
		}
		logging.From(ctx).Info("no credentials configured, waiting for manual login")
		if err := f.driver.Navigate(ctx, f.cfg.LoginURL); err != nil {
			return Result{}, err
		}
		return f.WaitForManualLogin(ctx)
	}

	result, err := f.AttemptLogin(ctx)
	if err != nil {
		return Result{}, err
	}

	if result.Outcome == state.LoginNeedsVerification {
		result, err = f.SubmitVerificationCode(ctx)
		if err != nil {
			return Result{}, err
		}
	}

	if result.Outcome == state.LoginNeedsCaptcha {
		result, err = f.WaitForCaptcha(ctx)
		if err != nil {
			return Result{}, err
		}
	}

	if result.Outcome == state.LoginFailed && result.Message != "verification cancelled by operator" &&
		result.Message != "captcha cancelled by operator" {
		logging.From(ctx).Info("falling back to manual login", "reason", result.Message)
		return f.WaitForManualLogin(ctx)
	}

	return result, nil
}
