// Package selector defines element-locating strategies for the remote UI.
//
// The remote page's markup is not controlled by this system, so every element
// is located through an ordered list of candidates tried until one matches.
// The lists live here as data so they can be updated independently of the
// state machine logic when the remote UI changes shape.
package selector

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind is the query language of a selector.
type Kind int

const (
	// CSS is a CSS selector query.
	CSS Kind = iota
	// XPath is an XPath query.
	XPath
)

// Selector locates an element on the remote page.
type Selector struct {
	Kind  Kind
	Query string
}

// Css builds a CSS selector.
func Css(q string) Selector { return Selector{Kind: CSS, Query: q} }

// Xpath builds an XPath selector.
func Xpath(q string) Selector { return Selector{Kind: XPath, Query: q} }

// String returns the query text for logging.
func (s Selector) String() string { return s.Query }

// ErrElementNotFound is returned when a probe exhausts all candidates.
var ErrElementNotFound = errors.New("element not found")

// Prober waits for a single selector to become visible within a timeout.
type Prober interface {
	WaitVisible(ctx context.Context, sel Selector, timeout time.Duration) error
}

// Probe tries each candidate in order, giving each timeoutEach to appear, and
// returns the first that matches. Ordering matters: more specific selectors
// come before generic fallbacks. Returns ErrElementNotFound when exhausted.
func Probe(ctx context.Context, p Prober, candidates []Selector, timeoutEach time.Duration) (Selector, error) {
	for _, sel := range candidates {
		if err := ctx.Err(); err != nil {
			return Selector{}, err
		}
		if err := p.WaitVisible(ctx, sel, timeoutEach); err == nil {
			return sel, nil
		}
	}
	return Selector{}, fmt.Errorf("probe exhausted %d candidates: %w", len(candidates), ErrElementNotFound)
}
