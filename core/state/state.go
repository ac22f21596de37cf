// Package state defines the upload and login state machines.
package state

import "fmt"

// UploadStage represents the stage of a single item's upload flow.
type UploadStage int

const (
	// StageNavigateUpload is the initial stage: opening the upload page.
	StageNavigateUpload UploadStage = iota
	// StageLoginGate verifies the session is authenticated before touching the form.
	StageLoginGate
	// StageFileInject sends the media file to the page's file input.
	StageFileInject
	// StageAwaitProcessing polls until the remote side finishes processing the upload.
	StageAwaitProcessing
	// StageCaptionSet composes and types the caption text.
	StageCaptionSet
	// StagePost clicks the post control.
	StagePost
	// StageConfirm classifies the post-click page state.
	StageConfirm
	// StageDone is the successful terminal stage.
	StageDone
	// StageFailed is the failure terminal stage.
	StageFailed
)

// String returns the string representation of the stage.
func (s UploadStage) String() string {
	switch s {
	case StageNavigateUpload:
		return "NavigateUpload"
	case StageLoginGate:
		return "LoginGate"
	case StageFileInject:
		return "FileInject"
	case StageAwaitProcessing:
		return "AwaitProcessing"
	case StageCaptionSet:
		return "CaptionSet"
	case StagePost:
		return "Post"
	case StageConfirm:
		return "Confirm"
	case StageDone:
		return "Done"
	case StageFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// validUploadTransitions defines the allowed stage transitions.
// Every non-terminal stage may fail; the happy path is strictly forward.
var validUploadTransitions = map[UploadStage][]UploadStage{
	StageNavigateUpload:  {StageLoginGate, StageFailed},
	StageLoginGate:       {StageFileInject, StageFailed},
	StageFileInject:      {StageAwaitProcessing, StageFailed},
	StageAwaitProcessing: {StageCaptionSet, StageFailed},
	StageCaptionSet:      {StagePost, StageFailed},
	StagePost:            {StageConfirm, StageFailed},
	StageConfirm:         {StageDone, StageFailed},
	StageDone:            {},
	StageFailed:          {},
}

// CanTransitionTo checks if moving from the current stage to the target stage is valid.
func (s UploadStage) CanTransitionTo(target UploadStage) bool {
	allowed, ok := validUploadTransitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the stage is terminal.
func (s UploadStage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// LoginOutcome is the terminal classification of one login attempt.
type LoginOutcome int

const (
	// LoginSuccess means the session is authenticated.
	LoginSuccess LoginOutcome = iota
	// LoginNeedsVerification means an email verification code input appeared.
	LoginNeedsVerification
	// LoginNeedsCaptcha means a CAPTCHA challenge appeared.
	LoginNeedsCaptcha
	// LoginFailed means the attempt failed or could not be classified as success.
	LoginFailed
)

// String returns the string representation of the outcome.
func (o LoginOutcome) String() string {
	switch o {
	case LoginSuccess:
		return "Success"
	case LoginNeedsVerification:
		return "NeedsVerification"
	case LoginNeedsCaptcha:
		return "NeedsCaptcha"
	case LoginFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", o)
	}
}

// NeedsHuman returns true if the outcome requires a human to intervene.
func (o LoginOutcome) NeedsHuman() bool {
	return o == LoginNeedsVerification || o == LoginNeedsCaptcha
}

// TransitionError represents an invalid stage transition attempt.
type TransitionError struct {
	From UploadStage
	To   UploadStage
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid upload stage transition from %s to %s", e.From, e.To)
}

// NewTransitionError creates a new TransitionError.
func NewTransitionError(from, to UploadStage) *TransitionError {
	return &TransitionError{From: from, To: to}
}
