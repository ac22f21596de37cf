// Package media defines the media item and upload outcome types.
package media

import (
	"path/filepath"
	"strings"
	"time"
)

// HashtagMarker is the leading character every hashtag carries in caption text.
const HashtagMarker = "#"

// Item represents one media file queued for upload, together with the
// metadata composed into its caption. Items are immutable once handed to the
// upload flow.
type Item struct {
	// Path is the local filesystem path of the media file.
	Path string

	// Title is a human-readable name. Defaults to the filename stem.
	Title string

	// Description is free-form caption text placed before the hashtags.
	Description string

	// Hashtags is an ordered, deduplicated set of tags. Entries may or may
	// not carry the leading marker; composition normalizes them.
	Hashtags []string

	// ScheduleTime is an optional future posting time.
	ScheduleTime *time.Time
}

// NewItem creates an Item for the given path, defaulting the title to the
// filename stem and deduplicating hashtags while preserving order.
func NewItem(path, title, description string, hashtags []string) Item {
	if title == "" {
		base := filepath.Base(path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return Item{
		Path:        path,
		Title:       title,
		Description: description,
		Hashtags:    dedupe(hashtags),
	}
}

func dedupe(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || t == HashtagMarker {
			continue
		}
		key := strings.TrimPrefix(t, HashtagMarker)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NormalizeHashtag returns the tag with exactly one leading marker character.
func NormalizeHashtag(tag string) string {
	tag = strings.TrimSpace(tag)
	for strings.HasPrefix(tag, HashtagMarker) {
		tag = strings.TrimPrefix(tag, HashtagMarker)
	}
	return HashtagMarker + tag
}

// Caption composes the full caption text: the description (if any) followed
// by all hashtags, normalized and joined by single spaces.
func (i Item) Caption() string {
	var b strings.Builder
	if i.Description != "" {
		b.WriteString(i.Description)
	}
	for _, tag := range i.Hashtags {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(NormalizeHashtag(tag))
	}
	return b.String()
}

// FailureReason classifies why an upload attempt failed.
type FailureReason int

const (
	// FailureNone means the attempt did not fail.
	FailureNone FailureReason = iota
	// FailureElementNotFound means a selector probe was exhausted.
	FailureElementNotFound
	// FailureTimeout means a polling budget was exceeded.
	FailureTimeout
	// FailureRemoteError means the page displayed an error marker.
	FailureRemoteError
	// FailureFileTooLarge means the file exceeded the configured ceiling.
	FailureFileTooLarge
	// FailureFileMissing means the file does not exist.
	FailureFileMissing
	// FailureCancelled means a human explicitly aborted a prompt.
	FailureCancelled
	// FailureUnclassified means the post-action page state matched no known outcome.
	FailureUnclassified
)

// String returns the string representation of the reason.
func (r FailureReason) String() string {
	switch r {
	case FailureNone:
		return "None"
	case FailureElementNotFound:
		return "ElementNotFound"
	case FailureTimeout:
		return "Timeout"
	case FailureRemoteError:
		return "RemoteError"
	case FailureFileTooLarge:
		return "FileTooLarge"
	case FailureFileMissing:
		return "FileMissing"
	case FailureCancelled:
		return "Cancelled"
	case FailureUnclassified:
		return "Unclassified"
	default:
		return "Unknown"
	}
}

// Outcome is the terminal result of one upload attempt. Once produced, the
// item is not retried by the core; retries are a caller decision.
type Outcome struct {
	Path      string
	Succeeded bool
	RemoteURL string
	Reason    FailureReason
	Message   string
}

// SuccessOutcome builds an Outcome for a successful attempt.
func SuccessOutcome(path, remoteURL string) Outcome {
	return Outcome{Path: path, Succeeded: true, RemoteURL: remoteURL}
}

// FailureOutcome builds an Outcome for a failed attempt.
func FailureOutcome(path string, reason FailureReason, message string) Outcome {
	return Outcome{Path: path, Reason: reason, Message: message}
}
