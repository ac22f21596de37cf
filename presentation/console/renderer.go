package console

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"

	"tokpost-go/core/event"
	"tokpost-go/core/eventbus"
)

// Renderer prints flow events to the terminal as they arrive on the bus.
type Renderer struct {
	bus   eventbus.EventBus
	subID string
}

// NewRenderer creates a renderer. Call Attach to start printing.
func NewRenderer(bus eventbus.EventBus) *Renderer {
	return &Renderer{bus: bus}
}

// Attach subscribes to the bus.
func (r *Renderer) Attach() {
	r.subID = r.bus.Subscribe(r.render)
}

// Detach unsubscribes.
func (r *Renderer) Detach() {
	if r.subID != "" {
		r.bus.Unsubscribe(r.subID)
		r.subID = ""
	}
}

func (r *Renderer) render(e event.Event) {
	switch ev := e.(type) {
	case *event.ItemStarted:
		if ev.Total > 0 {
			color.Cyan("[%d/%d] uploading %s", ev.Index, ev.Total, filepath.Base(ev.ItemPath()))
		} else {
			color.Cyan("uploading %s", filepath.Base(ev.ItemPath()))
		}

	case *event.StageChanged:
		fmt.Printf("  %s -> %s\n", ev.From, ev.To)

	case *event.UploadHeartbeat:
		fmt.Printf("  still processing (%ds elapsed)\n", ev.ElapsedSeconds)

	case *event.ScreenshotCaptured:
		color.Yellow("  screenshot saved: %s", ev.File)

	case *event.ItemFinished:
		switch {
		case ev.Succeeded && ev.Confirmed:
			color.Green("  posted: %s", filepath.Base(ev.ItemPath()))
		case ev.Succeeded:
			color.Green("  posted (unconfirmed): %s", filepath.Base(ev.ItemPath()))
		default:
			color.Red("  failed: %s (%s)", filepath.Base(ev.ItemPath()), ev.Reason)
		}

	case *event.BatchFinished:
		color.Cyan("batch done: %d posted, %d failed", ev.Succeeded, ev.Failed)

	case *event.LoginAttempted:
		fmt.Printf("login: %s (%s)\n", ev.Outcome, ev.Message)

	case *event.VerificationRequired:
		color.Yellow("verification code required (you have %ds)", ev.TimeoutSeconds)

	case *event.CaptchaRequired:
		color.Yellow("captcha detected: solve it in the browser window, then type 'done' (or 'q' to abort)")

	case *event.ManualLoginWaiting:
		fmt.Printf("waiting for manual login, %ds remaining\n", ev.RemainingSeconds)
	}
}
