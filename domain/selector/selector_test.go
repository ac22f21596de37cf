package selector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber reports visible for a fixed set of queries and records the
// order in which it was asked.
type fakeProber struct {
	visible map[string]bool
	asked   []string
}

func (f *fakeProber) WaitVisible(ctx context.Context, sel Selector, timeout time.Duration) error {
	f.asked = append(f.asked, sel.Query)
	if f.visible[sel.Query] {
		return nil
	}
	return ErrElementNotFound
}

func TestProbe_FirstMatchWins(t *testing.T) {
	p := &fakeProber{visible: map[string]bool{"b": true, "c": true}}
	candidates := []Selector{Css("a"), Css("b"), Css("c")}

	got, err := Probe(context.Background(), p, candidates, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Query)
	// c must never be probed once b matched
	assert.Equal(t, []string{"a", "b"}, p.asked)
}

func TestProbe_Exhausted(t *testing.T) {
	p := &fakeProber{visible: map[string]bool{}}
	candidates := []Selector{Css("a"), Css("b")}

	_, err := Probe(context.Background(), p, candidates, time.Second)
	assert.True(t, errors.Is(err, ErrElementNotFound))
	assert.Equal(t, []string{"a", "b"}, p.asked)
}

func TestProbe_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakeProber{visible: map[string]bool{"a": true}}
	_, err := Probe(ctx, p, []Selector{Css("a")}, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.asked)
}

func TestIsLoginURL(t *testing.T) {
	assert.True(t, IsLoginURL("https://www.tiktok.com/login/phone-or-email/email"))
	assert.True(t, IsLoginURL("https://www.tiktok.com/LOGIN/foo"))
	assert.False(t, IsLoginURL("https://www.tiktok.com/foryou"))
}

func TestIsLoggedInURL(t *testing.T) {
	assert.True(t, IsLoggedInURL("https://www.tiktok.com/foryou"))
	assert.True(t, IsLoggedInURL("https://www.tiktok.com/@someone"))
	assert.True(t, IsLoggedInURL("https://www.tiktok.com/explore"))
	assert.False(t, IsLoggedInURL("https://www.tiktok.com/login/phone-or-email/email"))
}

func TestIsUploadURL(t *testing.T) {
	assert.True(t, IsUploadURL("https://www.tiktok.com/tiktokstudio/upload?from=webapp"))
	assert.True(t, IsUploadURL("https://www.tiktok.com/creator-center"))
	assert.False(t, IsUploadURL("https://www.tiktok.com/login"))
}

func TestIsPostSuccessURL(t *testing.T) {
	assert.True(t, IsPostSuccessURL("https://www.tiktok.com/profile"))
	assert.True(t, IsPostSuccessURL("https://www.tiktok.com/upload/success"))
	assert.False(t, IsPostSuccessURL("https://www.tiktok.com/upload"))
}

func TestCandidateListsAreOrderedSpecificFirst(t *testing.T) {
	// The generic text-input fallback must stay last; everything before it
	// is attribute-specific.
	require.NotEmpty(t, EmailFields)
	assert.Equal(t, `input[type="text"]`, EmailFields[len(EmailFields)-1].Query)

	// Caption editor keeps its generic contenteditable fallback last.
	require.Len(t, CaptionEditors, 2)
	assert.Equal(t, `//div[@contenteditable="true"]`, CaptionEditors[1].Query)
}
