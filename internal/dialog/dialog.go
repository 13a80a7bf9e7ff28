// Package dialog invokes the human-facing prompt and reports its
// outcome. The default backend runs a configured external command; a
// built-in TTY backend covers setups without one. Either way the caller
// sees the same Request/Result contract and never deals with process or
// terminal details.
package dialog

import (
	"context"
	"time"

	"pinentry-exec/internal/secmem"
)

// Kind selects what the dialog asks of the user.
type Kind int

const (
	// Pin requests secret input.
	Pin Kind = iota
	// Confirm requests a yes/no decision.
	Confirm
	// Message displays text and waits for acknowledgement.
	Message
)

func (k Kind) String() string {
	switch k {
	case Pin:
		return "pin"
	case Confirm:
		return "confirm"
	case Message:
		return "message"
	default:
		return "unknown"
	}
}

// Request is an immutable snapshot of what to show, derived from the
// session state at invocation time. All text is already percent-decoded.
type Request struct {
	Kind Kind

	Desc   string
	Prompt string
	Error  string
	Title  string
	OK     string
	Cancel string
	NotOK  string

	Repeat      string // repeat-entry prompt; empty when no repetition requested
	RepeatError string // shown when the two entries differ
	RepeatOK    string // shown when the two entries match

	Quality   string // quality bar label; empty when no bar requested
	QualityTT string // quality bar tooltip

	GenPin   string // label of the generate-passphrase action
	GenPinTT string // its tooltip

	// OneButton collapses a Confirm to a single acknowledge button.
	OneButton bool

	// Timeout bounds the whole interaction. Zero disables the
	// watchdog and blocks until the user answers.
	Timeout time.Duration

	// Options carries protocol options the backend may honor
	// (ttyname, display, lc-ctype, ...). Forwarded opaquely.
	Options map[string]string
}

// Outcome classifies how the interaction ended.
type Outcome int

const (
	// Accepted means the user provided input or confirmed.
	Accepted Outcome = iota
	// Cancelled means the user declined.
	Cancelled
	// TimedOut means the watchdog fired before the user answered.
	TimedOut
	// Failed means the dialog could not run at all.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Cancelled:
		return "cancelled"
	case TimedOut:
		return "timed out"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one invocation. Secret is non-nil only for
// an Accepted Pin request; ownership moves to the caller, who must
// Destroy it.
type Result struct {
	Outcome Outcome
	Secret  *secmem.Buffer
	Err     error // set when Outcome is Failed
}

// Invoker runs one dialog interaction. Implementations must reap any
// subprocess they start on every exit path, including timeout.
type Invoker interface {
	Invoke(ctx context.Context, req Request) Result
}
