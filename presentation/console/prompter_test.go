package console

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateCode(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"123456", false},
		{" 123456 ", false},
		{"12345", true},
		{"1234567", true},
		{"12345a", true},
		{"q", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := validateCode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWatchInputStreamsLines(t *testing.T) {
	p := &Prompter{in: strings.NewReader("  DONE  \n\nq\n")}
	lines := p.WatchInput()

	assert.Equal(t, "done", <-lines)
	assert.Equal(t, "q", <-lines)

	_, open := <-lines
	assert.False(t, open, "channel closes when the stream ends")
}

func TestWatchInputSkipsBlankLines(t *testing.T) {
	p := &Prompter{in: strings.NewReader("\n\n\ndone\n")}

	lines := p.WatchInput()
	select {
	case line := <-lines:
		assert.Equal(t, "done", line)
	case <-time.After(time.Second):
		t.Fatal("expected a line")
	}
}

func TestRequestCodeAcceptsValidCode(t *testing.T) {
	p := &Prompter{in: strings.NewReader("123456\n")}
	code, ok := p.RequestCode(time.Second)
	assert.True(t, ok)
	assert.Equal(t, "123456", code)
}

func TestRequestCodeRepromptsOnInvalidInput(t *testing.T) {
	p := &Prompter{in: strings.NewReader("12345\nabc123\n999999\n")}
	code, ok := p.RequestCode(time.Second)
	assert.True(t, ok)
	assert.Equal(t, "999999", code)
}

func TestRequestCodeCancelled(t *testing.T) {
	p := &Prompter{in: strings.NewReader("q\n")}
	_, ok := p.RequestCode(time.Second)
	assert.False(t, ok)
}

// blockingReader never produces input, simulating an operator who walked away.
type blockingReader struct{ unblock chan struct{} }

func (r *blockingReader) Read(b []byte) (int, error) {
	<-r.unblock
	return 0, nil
}

func TestRequestCodeTimesOut(t *testing.T) {
	r := &blockingReader{unblock: make(chan struct{})}
	defer close(r.unblock)

	p := &Prompter{in: r}
	start := time.Now()
	_, ok := p.RequestCode(20 * time.Millisecond)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second, "must return at the deadline, not block")
}

func TestInputSurvivesConsumerHandoff(t *testing.T) {
	// A line arriving between prompts must reach the next consumer rather
	// than being swallowed by an orphaned reader.
	p := &Prompter{in: strings.NewReader("123456\ndone\n")}

	code, ok := p.RequestCode(time.Second)
	assert.True(t, ok)
	assert.Equal(t, "123456", code)

	select {
	case line := <-p.WatchInput():
		assert.Equal(t, "done", line)
	case <-time.After(time.Second):
		t.Fatal("second line was lost between consumers")
	}
}
