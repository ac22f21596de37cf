package event

import "tokpost-go/core/state"

// LoginAttempted is published when an automated login attempt completes,
// whatever the outcome.
type LoginAttempted struct {
	Outcome state.LoginOutcome
	Message string
}

func NewLoginAttempted(outcome state.LoginOutcome, message string) *LoginAttempted {
	return &LoginAttempted{Outcome: outcome, Message: message}
}

func (e *LoginAttempted) EventName() string {
	return "LoginAttempted"
}

// VerificationRequired is published when the login flow is blocked on a
// human-supplied email verification code.
type VerificationRequired struct {
	TimeoutSeconds int
}

func NewVerificationRequired(timeoutSeconds int) *VerificationRequired {
	return &VerificationRequired{TimeoutSeconds: timeoutSeconds}
}

func (e *VerificationRequired) EventName() string {
	return "VerificationRequired"
}

// CaptchaRequired is published when the login flow cedes control to a human
// for a CAPTCHA challenge.
type CaptchaRequired struct {
	TimeoutSeconds int
}

func NewCaptchaRequired(timeoutSeconds int) *CaptchaRequired {
	return &CaptchaRequired{TimeoutSeconds: timeoutSeconds}
}

func (e *CaptchaRequired) EventName() string {
	return "CaptchaRequired"
}

// ManualLoginWaiting is published periodically while waiting for the operator
// to log in by hand in the browser window.
type ManualLoginWaiting struct {
	RemainingSeconds int
}

func NewManualLoginWaiting(remainingSeconds int) *ManualLoginWaiting {
	return &ManualLoginWaiting{RemainingSeconds: remainingSeconds}
}

func (e *ManualLoginWaiting) EventName() string {
	return "ManualLoginWaiting"
}
