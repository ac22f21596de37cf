// Package console is the terminal presentation layer: operator prompts for
// the human-interrupt points and a colored renderer for flow events.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"tokpost-go/application/login"
)

// cancelWord aborts any interactive wait.
const cancelWord = "q"

// Prompter reads operator input from the terminal. It implements
// login.Prompter.
//
// Stdin is a single shared stream, so one reader goroutine owns it for the
// whole process and every consumer reads from the same channel. Sends block
// until a consumer takes the line: input typed between prompts is delivered
// to the next consumer instead of being lost in an orphaned reader.
type Prompter struct {
	// in is the input stream, os.Stdin outside tests.
	in io.Reader

	once  sync.Once
	lines chan string
}

// NewPrompter creates a terminal prompter reading from stdin.
func NewPrompter() *Prompter {
	return &Prompter{in: os.Stdin}
}

// start lazily spawns the reader goroutine and returns the shared channel.
// The channel closes when the stream ends.
func (p *Prompter) start() <-chan string {
	p.once.Do(func() {
		p.lines = make(chan string)
		go func() {
			defer close(p.lines)
			scanner := bufio.NewScanner(p.in)
			for scanner.Scan() {
				line := strings.ToLower(strings.TrimSpace(scanner.Text()))
				if line == "" {
					continue
				}
				p.lines <- line
			}
		}()
	})
	return p.lines
}

// validateCode accepts exactly six digits.
func validateCode(input string) error {
	input = strings.TrimSpace(input)
	if len(input) != 6 {
		return errors.New("code must be exactly 6 digits")
	}
	for _, r := range input {
		if r < '0' || r > '9' {
			return errors.New("code must contain only digits")
		}
	}
	return nil
}

// RequestCode asks for the emailed verification code, re-prompting on bad
// input until the timeout elapses or the operator types the cancel word.
func (p *Prompter) RequestCode(timeout time.Duration) (string, bool) {
	color.Yellow("A verification code was sent to your email.")
	fmt.Printf("Enter the 6-digit code, or %q to cancel (%s to respond): ", cancelWord, timeout)

	lines := p.start()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case line, open := <-lines:
			if !open || line == cancelWord {
				return "", false
			}
			if err := validateCode(line); err != nil {
				color.Red("%v", err)
				fmt.Print("Code: ")
				continue
			}
			return line, true
		case <-timer.C:
			color.Red("Timed out waiting for the verification code.")
			return "", false
		}
	}
}

// WatchInput streams trimmed, lowercased input lines. Every call returns the
// same shared channel; the channel is closed when the stream ends.
func (p *Prompter) WatchInput() <-chan string {
	return p.start()
}

var _ login.Prompter = (*Prompter)(nil)
