// Package upload drives a single media item through the upload form: file
// injection, remote processing wait, caption entry, posting, and post-click
// classification.
package upload

import (
	"context"
	"fmt"
	"os"
	"time"

	"tokpost-go/application/login"
	"tokpost-go/core/event"
	"tokpost-go/core/eventbus"
	"tokpost-go/core/state"
	"tokpost-go/domain/media"
	"tokpost-go/domain/selector"
	"tokpost-go/infrastructure/browser"
	"tokpost-go/infrastructure/config"
	"tokpost-go/infrastructure/logging"
)

// LoginGate runs the authentication escalation ladder when the upload page
// bounces to login mid-flow.
type LoginGate interface {
	EnsureLoggedIn(ctx context.Context) (login.Result, error)
}

// Uploader executes the per-item upload state machine.
type Uploader struct {
	driver browser.Driver
	bus    eventbus.EventBus
	gate   LoginGate
	cfg    *config.Config

	// Injectable clock for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewUploader creates an uploader.
func NewUploader(driver browser.Driver, bus eventbus.EventBus, gate LoginGate, cfg *config.Config) *Uploader {
	return &Uploader{
		driver: driver,
		bus:    bus,
		gate:   gate,
		cfg:    cfg,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

const (
	settleAfterNavigate = 3 * time.Second
	settleAfterInject   = 2 * time.Second
	settleAfterPost     = 3 * time.Second
	probePerCandidate   = 5 * time.Second

	processingPollInterval = 3 * time.Second
	heartbeatInterval      = 30 * time.Second
)

// run tracks one item's progress through the stage machine.
type run struct {
	item  media.Item
	stage state.UploadStage
}

// UploadAndPost runs the full flow for one item. Index and total describe the
// item's position in a batch (0, 0 for single uploads). The returned Outcome
// is terminal; retries are the caller's decision.
func (u *Uploader) UploadAndPost(ctx context.Context, item media.Item, index, total int) (media.Outcome, error) {
	ctx = logging.WithAttrs(ctx, "item", item.Path)
	log := logging.From(ctx)

	u.bus.Publish(event.NewItemStarted(item.Path, item.Title, index, total))
	r := &run{item: item, stage: state.StageNavigateUpload}

	// File preconditions come before any browser traffic.
	info, err := os.Stat(item.Path)
	if err != nil {
		return u.fail(ctx, r, media.FailureFileMissing, fmt.Sprintf("file not found: %s", item.Path), false), nil
	}
	if info.Size() > u.cfg.MaxFileSize {
		msg := fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), u.cfg.MaxFileSize)
		return u.fail(ctx, r, media.FailureFileTooLarge, msg, false), nil
	}

	// NavigateUpload
	if err := u.driver.Navigate(ctx, u.cfg.UploadURL); err != nil {
		return media.Outcome{}, err
	}
	u.sleep(settleAfterNavigate)
	u.advance(r, state.StageLoginGate)

	// LoginGate
	if outcome, ok, err := u.loginGate(ctx, r); err != nil || !ok {
		return outcome, err
	}
	u.advance(r, state.StageFileInject)

	// FileInject
	if err := u.injectFile(ctx, item.Path); err != nil {
		return u.fail(ctx, r, media.FailureElementNotFound, err.Error(), true), nil
	}
	u.sleep(settleAfterInject)
	u.advance(r, state.StageAwaitProcessing)

	// AwaitProcessing
	if outcome, ok, err := u.awaitProcessing(ctx, r); err != nil || !ok {
		return outcome, err
	}
	u.advance(r, state.StageCaptionSet)

	// CaptionSet
	if err := u.setCaption(ctx, item); err != nil {
		return u.fail(ctx, r, media.FailureElementNotFound, err.Error(), true), nil
	}
	u.advance(r, state.StagePost)

	// Post
	postSel, err := selector.Probe(ctx, u.driver, selector.PostButtons, probePerCandidate)
	if err != nil {
		return u.fail(ctx, r, media.FailureElementNotFound, "post button: "+err.Error(), true), nil
	}
	if err := u.driver.GestureClick(ctx, postSel); err != nil {
		return u.fail(ctx, r, media.FailureElementNotFound, "post button: "+err.Error(), true), nil
	}
	u.sleep(settleAfterPost)
	u.advance(r, state.StageConfirm)

	// Confirm
	outcome, confirmed := u.confirm(ctx, r)
	if !outcome.Succeeded {
		return outcome, nil
	}

	u.advance(r, state.StageDone)
	log.Info("item posted", "confirmed", confirmed, "url", outcome.RemoteURL)
	u.bus.Publish(event.NewItemFinished(item.Path, true, confirmed, "", outcome.RemoteURL))
	return outcome, nil
}

// advance moves the run to the next stage, publishing the change. Transitions
// are table-checked; a violation here is a programming error.
func (u *Uploader) advance(r *run, to state.UploadStage) {
	if !r.stage.CanTransitionTo(to) {
		panic(state.NewTransitionError(r.stage, to))
	}
	u.bus.Publish(event.NewStageChanged(r.item.Path, r.stage, to))
	r.stage = to
}

// fail moves the run to the failed stage, optionally capturing a diagnostic
// screenshot, and publishes the terminal event.
func (u *Uploader) fail(ctx context.Context, r *run, reason media.FailureReason, msg string, screenshot bool) media.Outcome {
	log := logging.From(ctx)
	log.Warn("upload failed", "stage", r.stage.String(), "reason", reason.String(), "message", msg)

	if screenshot {
		name := fmt.Sprintf("failure_%s", r.stage)
		if file, err := u.driver.Screenshot(ctx, name); err == nil {
			u.bus.Publish(event.NewScreenshotCaptured(r.item.Path, r.stage, file))
		} else {
			log.Warn("screenshot failed", "error", err)
		}
	}

	failedFrom := r.stage
	u.bus.Publish(event.NewStageChanged(r.item.Path, failedFrom, state.StageFailed))
	r.stage = state.StageFailed

	u.bus.Publish(event.NewItemFinished(r.item.Path, false, false, msg, ""))
	return media.FailureOutcome(r.item.Path, reason, msg)
}

// loginGate verifies the session before touching the form, running the
// escalation ladder when the page bounced to login.
func (u *Uploader) loginGate(ctx context.Context, r *run) (media.Outcome, bool, error) {
	url, err := u.driver.CurrentURL(ctx)
	if err != nil {
		return media.Outcome{}, false, err
	}
	if !selector.IsLoginURL(url) {
		return media.Outcome{}, true, nil
	}

	logging.From(ctx).Info("upload page bounced to login, authenticating")
	result, err := u.gate.EnsureLoggedIn(ctx)
	if err != nil {
		return media.Outcome{}, false, err
	}
	if result.Outcome != state.LoginSuccess {
		reason := media.FailureRemoteError
		if result.Outcome == state.LoginFailed && isCancelled(result.Message) {
			reason = media.FailureCancelled
		}
		return u.fail(ctx, r, reason, "not logged in: "+result.Message, false), false, nil
	}

	// Back to the form after the detour.
	if err := u.driver.Navigate(ctx, u.cfg.UploadURL); err != nil {
		return media.Outcome{}, false, err
	}
	u.sleep(settleAfterNavigate)
	return media.Outcome{}, true, nil
}

func isCancelled(msg string) bool {
	return msg == "verification cancelled by operator" || msg == "captcha cancelled by operator"
}

// injectFile locates the file input (entering the upload iframe when the
// form lives inside one) and assigns the file to it. The iframe excursion is
// fully scoped to the injection: the query context is always back at the top
// document when this returns, so caption and post work on the main page.
func (u *Uploader) injectFile(ctx context.Context, path string) error {
	if sel, err := selector.Probe(ctx, u.driver, selector.FileInputs, probePerCandidate); err == nil {
		return u.driver.SetFiles(ctx, sel, path)
	}

	frameSel, err := selector.Probe(ctx, u.driver, selector.UploadIframes, probePerCandidate)
	if err != nil {
		return fmt.Errorf("file input: %w", selector.ErrElementNotFound)
	}
	if err := u.driver.EnterFrame(ctx, frameSel); err != nil {
		return fmt.Errorf("file input: %w", err)
	}
	defer u.driver.ExitFrame()

	sel, err := selector.Probe(ctx, u.driver, selector.FileInputs, probePerCandidate)
	if err != nil {
		return fmt.Errorf("file input: %w", err)
	}
	return u.driver.SetFiles(ctx, sel, path)
}

// awaitProcessing polls until the caption editor appears, meaning the remote
// side accepted the file. Error markers fail fast; heartbeats keep the
// operator informed during long processing.
func (u *Uploader) awaitProcessing(ctx context.Context, r *run) (media.Outcome, bool, error) {
	budget := time.Duration(u.cfg.Timeouts.Processing) * time.Second
	start := u.now()
	deadline := start.Add(budget)
	lastBeat := start

	for u.now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return media.Outcome{}, false, err
		}

		for _, sel := range selector.UploadErrorMarkers {
			present, _ := u.driver.Exists(ctx, sel)
			if !present {
				continue
			}
			msg := "remote rejected the upload"
			if text, err := u.driver.Text(ctx, sel); err == nil && text != "" {
				msg = text
			}
			return u.fail(ctx, r, media.FailureRemoteError, msg, true), false, nil
		}

		// Either signal means the remote side is done processing.
		for _, sel := range selector.CaptionEditors {
			if present, _ := u.driver.Exists(ctx, sel); present {
				return media.Outcome{}, true, nil
			}
		}
		for _, sel := range selector.PostButtons {
			if present, _ := u.driver.Exists(ctx, sel); present {
				return media.Outcome{}, true, nil
			}
		}

		if u.now().Sub(lastBeat) >= heartbeatInterval {
			lastBeat = u.now()
			elapsed := int(u.now().Sub(start) / time.Second)
			u.bus.Publish(event.NewUploadHeartbeat(r.item.Path, elapsed))
		}
		u.sleep(processingPollInterval)
	}

	msg := fmt.Sprintf("processing did not finish within %ds", u.cfg.Timeouts.Processing)
	return u.fail(ctx, r, media.FailureTimeout, msg, true), false, nil
}

// setCaption focuses the editor and types the composed caption.
func (u *Uploader) setCaption(ctx context.Context, item media.Item) error {
	sel, err := selector.Probe(ctx, u.driver, selector.CaptionEditors, probePerCandidate)
	if err != nil {
		return fmt.Errorf("caption editor: %w", err)
	}
	if err := u.driver.Click(ctx, sel); err != nil {
		return fmt.Errorf("caption editor: %w", err)
	}
	caption := item.Caption()
	if caption == "" {
		return nil
	}
	if err := u.driver.SendKeys(ctx, sel, caption); err != nil {
		return fmt.Errorf("caption editor: %w", err)
	}
	return nil
}

// confirm classifies the page after the post click. Success markers and a
// profile/success URL confirm the post; an error marker fails it; anything
// else is treated as an unconfirmed success, since the click was delivered
// and most of the time the post went through even when no signal survives
// the page transition.
func (u *Uploader) confirm(ctx context.Context, r *run) (media.Outcome, bool) {
	for _, sel := range selector.PostSuccessMarkers {
		if present, _ := u.driver.Exists(ctx, sel); present {
			return media.SuccessOutcome(r.item.Path, ""), true
		}
	}

	url, err := u.driver.CurrentURL(ctx)
	if err == nil && selector.IsPostSuccessURL(url) {
		return media.SuccessOutcome(r.item.Path, url), true
	}

	for _, sel := range selector.UploadErrorMarkers {
		present, _ := u.driver.Exists(ctx, sel)
		if !present {
			continue
		}
		msg := "remote reported an error after posting"
		if text, err := u.driver.Text(ctx, sel); err == nil && text != "" {
			msg = text
		}
		return u.fail(ctx, r, media.FailureRemoteError, msg, true), false
	}

	return media.SuccessOutcome(r.item.Path, ""), false
}
