package dialog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"pinentry-exec/internal/secmem"
)

// ErrNoCommand is returned when an ExecInvoker is constructed without a
// command.
var ErrNoCommand = errors.New("dialog: no command configured")

// Environment variables the dialog command receives. The mapping is the
// stable interface between this process and the configured command:
// text fields are passed verbatim, already percent-decoded.
const (
	EnvKind        = "PINENTRY_KIND"
	EnvDesc        = "PINENTRY_DESC"
	EnvPrompt      = "PINENTRY_PROMPT"
	EnvError       = "PINENTRY_ERROR"
	EnvTitle       = "PINENTRY_TITLE"
	EnvOK          = "PINENTRY_OK"
	EnvCancel      = "PINENTRY_CANCEL"
	EnvNotOK       = "PINENTRY_NOTOK"
	EnvRepeat      = "PINENTRY_REPEAT"
	EnvRepeatError = "PINENTRY_REPEAT_ERROR"
	EnvRepeatOK    = "PINENTRY_REPEAT_OK"
	EnvQuality     = "PINENTRY_QUALITY"
	EnvQualityTT   = "PINENTRY_QUALITY_TT"
	EnvGenPin      = "PINENTRY_GENPIN"
	EnvGenPinTT    = "PINENTRY_GENPIN_TT"
)

// ExecInvoker runs an external command for every dialog. For Pin
// requests the command's stdout (one trailing newline stripped) is the
// secret; for Confirm and Message only the exit status counts and
// stdout is drained and discarded.
type ExecInvoker struct {
	// Argv is the command and its fixed arguments.
	Argv []string

	// ExtraEnv is appended to the child environment after the
	// per-request variables, for configuration-level values such as
	// a forced DISPLAY.
	ExtraEnv []string
}

// NewExecInvoker validates the command template.
func NewExecInvoker(argv []string, extraEnv []string) (*ExecInvoker, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, ErrNoCommand
	}
	return &ExecInvoker{Argv: argv, ExtraEnv: extraEnv}, nil
}

// Invoke runs the command, racing its exit against the request timeout.
// The subprocess is always reaped: on normal exit, on timeout (after a
// kill) and on context cancellation.
func (e *ExecInvoker) Invoke(ctx context.Context, req Request) Result {
	cmd := exec.Command(e.Argv[0], e.Argv[1:]...)
	cmd.Env = childEnv(e.ExtraEnv, req)

	// Own process group, so a kill reaches the whole dialog subtree. A
	// surviving grandchild would otherwise hold the stdout pipe open
	// and keep Wait blocked past the deadline; WaitDelay closes the
	// pipes as a backstop if anything escapes the group.
	setProcGroup(cmd)
	cmd.WaitDelay = time.Second

	var out bytes.Buffer
	if req.Kind == Pin {
		cmd.Stdout = &out
	} else {
		// Still drained so the child never blocks on a full pipe.
		cmd.Stdout = io.Discard
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("start dialog command: %w", err)}
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var timeoutCh <-chan time.Time
	if req.Timeout > 0 {
		t := time.NewTimer(req.Timeout)
		defer t.Stop()
		timeoutCh = t.C
	}

	select {
	case err := <-waitCh:
		return e.finish(req, err, &out, &stderr)

	case <-timeoutCh:
		killTree(cmd)
		<-waitCh // reap
		secmem.Wipe(out.Bytes())
		return Result{Outcome: TimedOut}

	case <-ctx.Done():
		killTree(cmd)
		<-waitCh // reap
		secmem.Wipe(out.Bytes())
		return Result{Outcome: Failed, Err: ctx.Err()}
	}
}

// finish classifies a completed subprocess.
func (e *ExecInvoker) finish(req Request, waitErr error, out, stderr *bytes.Buffer) Result {
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			// Non-zero exit is the user saying no, for every kind.
			secmem.Wipe(out.Bytes())
			return Result{Outcome: Cancelled}
		}
		secmem.Wipe(out.Bytes())
		return Result{Outcome: Failed, Err: fmt.Errorf("wait for dialog command: %w", waitErr)}
	}

	if req.Kind != Pin {
		return Result{Outcome: Accepted}
	}

	raw := out.Bytes()
	raw = bytes.TrimSuffix(raw, []byte("\n"))
	// FromBytes wipes the trimmed view; the stripped newline byte, if
	// any, is not secret.
	return Result{Outcome: Accepted, Secret: secmem.FromBytes(raw)}
}

// childEnv builds the subprocess environment: the parent environment,
// then configuration extras, then the per-request variables.
func childEnv(extra []string, req Request) []string {
	env := append(os.Environ(), extra...)
	env = append(env,
		EnvKind+"="+req.Kind.String(),
		EnvDesc+"="+req.Desc,
		EnvPrompt+"="+req.Prompt,
		EnvError+"="+req.Error,
		EnvTitle+"="+req.Title,
		EnvOK+"="+req.OK,
		EnvCancel+"="+req.Cancel,
		EnvNotOK+"="+req.NotOK,
		EnvRepeat+"="+req.Repeat,
		EnvRepeatError+"="+req.RepeatError,
		EnvRepeatOK+"="+req.RepeatOK,
		EnvQuality+"="+req.Quality,
		EnvQualityTT+"="+req.QualityTT,
		EnvGenPin+"="+req.GenPin,
		EnvGenPinTT+"="+req.GenPinTT,
	)

	// TTY and display hints come through as protocol options; forward
	// the ones dialog programs conventionally read.
	if v := req.Options["display"]; v != "" {
		env = append(env, "DISPLAY="+v)
	}
	if v := req.Options["ttyname"]; v != "" {
		env = append(env, "GPG_TTY="+v)
	}
	if v := req.Options["lc-ctype"]; v != "" {
		env = append(env, "LC_CTYPE="+v)
	}
	if v := req.Options["lc-messages"]; v != "" {
		env = append(env, "LC_MESSAGES="+v)
	}
	return env
}
