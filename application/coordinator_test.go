package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokpost-go/core/event"
	"tokpost-go/core/eventbus"
	"tokpost-go/domain/media"
)

// scriptedUploader returns canned outcomes in call order.
type scriptedUploader struct {
	outcomes []media.Outcome
	errs     []error
	calls    []string
}

func (s *scriptedUploader) UploadAndPost(ctx context.Context, item media.Item, index, total int) (media.Outcome, error) {
	i := len(s.calls)
	s.calls = append(s.calls, item.Path)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if i < len(s.outcomes) {
		return s.outcomes[i], err
	}
	return media.SuccessOutcome(item.Path, ""), err
}

// recordingRecorder captures MarkUploaded calls.
type recordingRecorder struct {
	marked []string
	err    error
}

func (r *recordingRecorder) MarkUploaded(ctx context.Context, fingerprint, remoteURL string) error {
	r.marked = append(r.marked, fingerprint)
	return r.err
}

// recordingBus collects published events synchronously.
type recordingBus struct {
	events []event.Event
}

func (b *recordingBus) Publish(e event.Event) { b.events = append(b.events, e) }
func (b *recordingBus) Subscribe(h eventbus.EventHandler) string { return "" }
func (b *recordingBus) SubscribeItem(path string, h eventbus.EventHandler) string { return "" }
func (b *recordingBus) Unsubscribe(id string) {}
func (b *recordingBus) Flush() {}
func (b *recordingBus) Close() {}

func batchItems(n int) []BatchItem {
	items := make([]BatchItem, n)
	for i := range items {
		path := fmt.Sprintf("/videos/clip%d.mp4", i+1)
		items[i] = BatchItem{
			Item:        media.NewItem(path, "", "", nil),
			Fingerprint: fmt.Sprintf("fp%d", i+1),
		}
	}
	return items
}

func newTestCoordinator(u ItemUploader, r UploadRecorder, bus eventbus.EventBus) (*Coordinator, *[]time.Duration) {
	c := NewCoordinator(&CoordinatorConfig{
		Uploader: u,
		Recorder: r,
		EventBus: bus,
		Interval: 60 * time.Second,
	})
	var pauses []time.Duration
	c.sleep = func(d time.Duration) { pauses = append(pauses, d) }
	return c, &pauses
}

func TestRunBatch_AllSucceed(t *testing.T) {
	up := &scriptedUploader{}
	rec := &recordingRecorder{}
	bus := &recordingBus{}
	c, pauses := newTestCoordinator(up, rec, bus)

	results, err := c.RunBatch(context.Background(), batchItems(3))
	require.NoError(t, err)

	assert.Len(t, results, 3)
	for _, o := range results {
		assert.True(t, o.Succeeded)
	}
	assert.Equal(t, []string{"fp1", "fp2", "fp3"}, rec.marked)
	// pacing after the first two successes only, never after the last
	assert.Equal(t, []time.Duration{60 * time.Second, 60 * time.Second}, *pauses)

	require.NotEmpty(t, bus.events)
	fin, ok := bus.events[len(bus.events)-1].(*event.BatchFinished)
	require.True(t, ok)
	assert.Equal(t, 3, fin.Succeeded)
	assert.Equal(t, 0, fin.Failed)
}

func TestRunBatch_FailureIsIsolated(t *testing.T) {
	up := &scriptedUploader{outcomes: []media.Outcome{
		media.SuccessOutcome("/videos/clip1.mp4", ""),
		media.FailureOutcome("/videos/clip2.mp4", media.FailureTimeout, "processing timed out"),
		media.SuccessOutcome("/videos/clip3.mp4", ""),
	}}
	rec := &recordingRecorder{}
	bus := &recordingBus{}
	c, pauses := newTestCoordinator(up, rec, bus)

	results, err := c.RunBatch(context.Background(), batchItems(3))
	require.NoError(t, err)

	assert.Len(t, results, 3, "every item gets a result even after a failure")
	assert.False(t, results["/videos/clip2.mp4"].Succeeded)
	assert.True(t, results["/videos/clip3.mp4"].Succeeded)
	assert.Equal(t, []string{"fp1", "fp3"}, rec.marked, "failures are never recorded")
	// no pause after the failed item, none after the last
	assert.Equal(t, []time.Duration{60 * time.Second}, *pauses)

	fin := bus.events[len(bus.events)-1].(*event.BatchFinished)
	assert.Equal(t, 2, fin.Succeeded)
	assert.Equal(t, 1, fin.Failed)
}

func TestRunBatch_UploaderErrorBecomesFailureOutcome(t *testing.T) {
	up := &scriptedUploader{errs: []error{errors.New("browser crashed")}}
	c, _ := newTestCoordinator(up, &recordingRecorder{}, &recordingBus{})

	results, err := c.RunBatch(context.Background(), batchItems(2))
	require.NoError(t, err)

	assert.Len(t, results, 2)
	first := results["/videos/clip1.mp4"]
	assert.False(t, first.Succeeded)
	assert.Equal(t, media.FailureUnclassified, first.Reason)
	assert.True(t, results["/videos/clip2.mp4"].Succeeded, "batch continues past a driver error")
}

func TestRunBatch_ContextCancelAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	up := &scriptedUploader{}
	c, _ := newTestCoordinator(up, &recordingRecorder{}, &recordingBus{})

	results, err := c.RunBatch(ctx, batchItems(3))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Empty(t, up.calls)
}

func TestRunBatch_EmptyBatch(t *testing.T) {
	bus := &recordingBus{}
	c, pauses := newTestCoordinator(&scriptedUploader{}, &recordingRecorder{}, bus)

	results, err := c.RunBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, *pauses)

	fin := bus.events[len(bus.events)-1].(*event.BatchFinished)
	assert.Equal(t, 0, fin.Succeeded)
	assert.Equal(t, 0, fin.Failed)
}
