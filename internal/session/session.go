// Package session holds the per-connection state of the Assuan server
// and dispatches parsed commands against it. One Session serves exactly
// one agent conversation; it is mutated only from the single dispatch
// path, so it needs no locking.
package session

import (
	"log/slog"
	"time"

	"pinentry-exec/internal/assuan"
	"pinentry-exec/internal/dialog"
)

// Info identifies this implementation to GETINFO queries.
type Info struct {
	Flavor  string
	Version string
}

// ResponseWriter is how dispatch emits protocol responses. The
// transport owns encoding and framing; secret payloads handed to Data
// are written immediately and never retained.
type ResponseWriter interface {
	OK(comment string) error
	Err(code assuan.Code, desc string) error
	Data(payload []byte) error
	Comment(text string) error
}

// state is everything SET*/OPTION commands accumulate between dialog
// invocations. Zero value plus defaults() is the RESET state.
type state struct {
	timeout time.Duration

	desc    string
	keyinfo string
	prompt  string
	title   string
	ok      string
	cancel  string
	notok   string
	errText string

	repeat      string
	hasRepeat   bool
	repeatOK    string
	repeatError string

	qualityBar    string
	hasQualityBar bool
	qualityBarTT  string
	genPin        string
	genPinTT      string

	options map[string]string
}

// Session is the command dispatcher for one conversation.
type Session struct {
	log  *slog.Logger
	inv  dialog.Invoker
	info Info

	defaultTimeout time.Duration
	baseOptions    map[string]string

	st             state
	terminated     bool
	launchFailures int
}

// maxLaunchFailures ends the session after this many consecutive
// dialog launch failures; a broken dialog configuration should not let
// an agent retry forever.
const maxLaunchFailures = 3

// New creates a session with protocol defaults. The invoker is used for
// every GETPIN/CONFIRM/MESSAGE; defaultTimeout bounds dialogs until a
// SETTIMEOUT overrides it (zero means no timeout). baseOptions seeds
// the option table from configuration and survives RESET; it may be
// nil.
func New(log *slog.Logger, inv dialog.Invoker, info Info, defaultTimeout time.Duration, baseOptions map[string]string) *Session {
	s := &Session{
		log:            log,
		inv:            inv,
		info:           info,
		defaultTimeout: defaultTimeout,
		baseOptions:    baseOptions,
	}
	s.st = s.defaults()
	return s
}

func (s *Session) defaults() state {
	opts := make(map[string]string, len(s.baseOptions))
	for k, v := range s.baseOptions {
		opts[k] = v
	}
	return state{
		timeout: s.defaultTimeout,
		options: opts,
	}
}

// Terminated reports whether the session has seen BYE (or another
// session-ending command).
func (s *Session) Terminated() bool {
	return s.terminated
}

// setOption stores an option. Boolean options are stored with an empty
// value; presence is what matters.
func (s *Session) setOption(key, value string) {
	s.st.options[key] = value
}

// optionOr returns the option value, or fallback when unset or empty.
func (s *Session) optionOr(key, fallback string) string {
	if v := s.st.options[key]; v != "" {
		return v
	}
	return fallback
}

// dialogRequest snapshots the session state into an immutable request.
// Agent-provided default-* options fill fields the agent never SET.
func (s *Session) dialogRequest(kind dialog.Kind, oneButton bool) dialog.Request {
	prompt := s.st.prompt
	if prompt == "" {
		prompt = s.optionOr("default-prompt", "PIN:")
	}
	ok := s.st.ok
	if ok == "" {
		ok = s.optionOr("default-ok", "OK")
	}
	cancel := s.st.cancel
	if cancel == "" {
		cancel = s.optionOr("default-cancel", "Cancel")
	}

	repeat := ""
	if s.st.hasRepeat {
		repeat = s.st.repeat
		if repeat == "" {
			repeat = prompt
		}
	}

	quality := ""
	if s.st.hasQualityBar {
		quality = s.st.qualityBar
		if quality == "" {
			quality = "Quality"
		}
	}

	// Copy so the invoker never observes later OPTION mutations.
	opts := make(map[string]string, len(s.st.options))
	for k, v := range s.st.options {
		opts[k] = v
	}

	return dialog.Request{
		Kind:        kind,
		Desc:        s.st.desc,
		Prompt:      prompt,
		Error:       s.st.errText,
		Title:       s.st.title,
		OK:          ok,
		Cancel:      cancel,
		NotOK:       s.st.notok,
		Repeat:      repeat,
		RepeatError: s.st.repeatError,
		RepeatOK:    s.st.repeatOK,
		Quality:     quality,
		QualityTT:   s.st.qualityBarTT,
		GenPin:      s.st.genPin,
		GenPinTT:    s.st.genPinTT,
		OneButton:   oneButton,
		Timeout:     s.st.timeout,
		Options:     opts,
	}
}
