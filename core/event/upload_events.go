package event

import "tokpost-go/core/state"

// ItemStarted is published when the upload flow begins processing an item.
type ItemStarted struct {
	baseItemEvent
	Title string
	Index int // 1-based position within the batch, 0 for single uploads
	Total int // batch size, 0 for single uploads
}

func NewItemStarted(path, title string, index, total int) *ItemStarted {
	return &ItemStarted{
		baseItemEvent: baseItemEvent{path: path},
		Title:         title,
		Index:         index,
		Total:         total,
	}
}

func (e *ItemStarted) EventName() string {
	return "ItemStarted"
}

// StageChanged is published when an item's upload flow moves between stages.
type StageChanged struct {
	baseItemEvent
	From state.UploadStage
	To   state.UploadStage
}

func NewStageChanged(path string, from, to state.UploadStage) *StageChanged {
	return &StageChanged{
		baseItemEvent: baseItemEvent{path: path},
		From:          from,
		To:            to,
	}
}

func (e *StageChanged) EventName() string {
	return "StageChanged"
}

// ItemFinished is published when an item's upload flow reaches a terminal stage.
type ItemFinished struct {
	baseItemEvent
	Succeeded bool
	// Confirmed is false when success was assumed because the post click was
	// delivered but no confirmation marker could be observed.
	Confirmed bool
	Reason    string // plain-language failure reason, empty on success
	RemoteURL string
}

func NewItemFinished(path string, succeeded, confirmed bool, reason, remoteURL string) *ItemFinished {
	return &ItemFinished{
		baseItemEvent: baseItemEvent{path: path},
		Succeeded:     succeeded,
		Confirmed:     confirmed,
		Reason:        reason,
		RemoteURL:     remoteURL,
	}
}

func (e *ItemFinished) EventName() string {
	return "ItemFinished"
}

// ScreenshotCaptured is published when a diagnostic screenshot is taken.
type ScreenshotCaptured struct {
	baseItemEvent
	Stage state.UploadStage
	File  string
}

func NewScreenshotCaptured(path string, stage state.UploadStage, file string) *ScreenshotCaptured {
	return &ScreenshotCaptured{
		baseItemEvent: baseItemEvent{path: path},
		Stage:         stage,
		File:          file,
	}
}

func (e *ScreenshotCaptured) EventName() string {
	return "ScreenshotCaptured"
}

// UploadHeartbeat is published periodically while waiting on remote processing.
type UploadHeartbeat struct {
	baseItemEvent
	ElapsedSeconds int
}

func NewUploadHeartbeat(path string, elapsedSeconds int) *UploadHeartbeat {
	return &UploadHeartbeat{
		baseItemEvent:  baseItemEvent{path: path},
		ElapsedSeconds: elapsedSeconds,
	}
}

func (e *UploadHeartbeat) EventName() string {
	return "UploadHeartbeat"
}

// BatchFinished is published after a batch run with aggregate counts.
type BatchFinished struct {
	Succeeded int
	Failed    int
}

func NewBatchFinished(succeeded, failed int) *BatchFinished {
	return &BatchFinished{Succeeded: succeeded, Failed: failed}
}

func (e *BatchFinished) EventName() string {
	return "BatchFinished"
}
