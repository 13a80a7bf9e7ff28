package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pinentry-exec/internal/assuan"
	"pinentry-exec/internal/dialog"
)

// Handle dispatches one command, writing its responses to w. The
// returned done flag tells the transport to stop reading. The returned
// error is transport I/O failure only; every per-command failure is
// answered on the wire and the session stays alive.
func (s *Session) Handle(ctx context.Context, cmd assuan.Command, w ResponseWriter) (done bool, err error) {
	if s.terminated {
		return true, nil
	}

	switch cmd.Verb {
	case assuan.VerbUnknown:
		s.log.Debug("unknown command", "verb", cmd.Raw)
		return false, w.Err(assuan.CodeAssUnknownCmd, "")

	case assuan.VerbOption:
		return false, s.handleOption(cmd.Arg, w)

	case assuan.VerbGetInfo:
		return false, s.handleGetInfo(cmd.Arg, w)

	case assuan.VerbSetTimeout:
		secs, perr := strconv.ParseUint(strings.TrimSpace(cmd.Arg), 10, 32)
		if perr != nil {
			return false, w.Err(assuan.CodeAssParameter, "invalid timeout")
		}
		// Zero disables the watchdog entirely rather than expiring
		// immediately.
		s.st.timeout = time.Duration(secs) * time.Second
		return false, w.OK("")

	case assuan.VerbSetDesc:
		return false, s.setText(&s.st.desc, cmd.Arg, w)
	case assuan.VerbSetKeyinfo:
		return false, s.setText(&s.st.keyinfo, cmd.Arg, w)
	case assuan.VerbSetPrompt:
		return false, s.setText(&s.st.prompt, cmd.Arg, w)
	case assuan.VerbSetTitle:
		return false, s.setText(&s.st.title, cmd.Arg, w)
	case assuan.VerbSetOK:
		return false, s.setText(&s.st.ok, cmd.Arg, w)
	case assuan.VerbSetCancel:
		return false, s.setText(&s.st.cancel, cmd.Arg, w)
	case assuan.VerbSetNotOK:
		return false, s.setText(&s.st.notok, cmd.Arg, w)
	case assuan.VerbSetError:
		return false, s.setText(&s.st.errText, cmd.Arg, w)

	case assuan.VerbSetRepeat:
		s.st.hasRepeat = true
		return false, s.setText(&s.st.repeat, cmd.Arg, w)
	case assuan.VerbSetRepeatError:
		return false, s.setText(&s.st.repeatError, cmd.Arg, w)
	case assuan.VerbSetRepeatOK:
		return false, s.setText(&s.st.repeatOK, cmd.Arg, w)

	case assuan.VerbSetQualityBar:
		s.st.hasQualityBar = true
		return false, s.setText(&s.st.qualityBar, cmd.Arg, w)
	case assuan.VerbSetQualityBarTT:
		return false, s.setText(&s.st.qualityBarTT, cmd.Arg, w)
	case assuan.VerbSetGenPin:
		return false, s.setText(&s.st.genPin, cmd.Arg, w)
	case assuan.VerbSetGenPinTT:
		return false, s.setText(&s.st.genPinTT, cmd.Arg, w)

	case assuan.VerbGetPin:
		return s.handleGetPin(ctx, w)

	case assuan.VerbConfirm:
		oneButton := false
		switch strings.TrimSpace(cmd.Arg) {
		case "":
		case "--one-button":
			oneButton = true
		default:
			return false, w.Err(assuan.CodeAssParameter, "unknown CONFIRM option")
		}
		return s.handleConfirm(ctx, oneButton, w)

	case assuan.VerbMessage:
		return s.handleMessage(ctx, w)

	case assuan.VerbReset:
		s.st = s.defaults()
		return false, w.OK("")

	case assuan.VerbHelp:
		for _, v := range assuan.Verbs() {
			if err := w.Comment(v.Name()); err != nil {
				return false, err
			}
		}
		return false, w.OK("")

	case assuan.VerbNop:
		return false, w.OK("")

	case assuan.VerbBye, assuan.VerbEnd, assuan.VerbQuit,
		assuan.VerbCancel, assuan.VerbAuth:
		s.terminated = true
		return true, w.OK("closing connection")

	default:
		// The verb set is closed; the parser maps everything else to
		// VerbUnknown.
		return false, w.Err(assuan.CodeAssUnknownCmd, "")
	}
}

// setText percent-decodes arg into the given session field.
func (s *Session) setText(field *string, arg string, w ResponseWriter) error {
	text, err := assuan.Unescape(arg)
	if err != nil {
		return w.Err(assuan.CodeAssSyntax, "invalid escape in argument")
	}
	*field = text
	return w.OK("")
}

func (s *Session) handleOption(arg string, w ResponseWriter) error {
	key, value, _, err := assuan.ParseOption(arg)
	if err != nil {
		return w.Err(assuan.CodeAssSyntax, "invalid option syntax")
	}
	s.setOption(key, value)
	return w.OK("")
}

func (s *Session) handleGetInfo(arg string, w ResponseWriter) error {
	switch strings.TrimSpace(arg) {
	case "flavor":
		if err := w.Data([]byte(s.info.Flavor)); err != nil {
			return err
		}
	case "version":
		if err := w.Data([]byte(s.info.Version)); err != nil {
			return err
		}
	case "pid":
		if err := w.Data([]byte(strconv.Itoa(os.Getpid()))); err != nil {
			return err
		}
	case "ttyinfo":
		line := fmt.Sprintf("%s %s %s - %d/%d 0",
			dashIfEmpty(s.st.options["ttyname"]),
			dashIfEmpty(s.st.options["ttytype"]),
			dashIfEmpty(s.st.options["display"]),
			os.Getuid(), os.Getgid())
		if err := w.Data([]byte(line)); err != nil {
			return err
		}
	default:
		return w.Err(assuan.CodeAssParameter, "unknown GETINFO item")
	}
	return w.OK("")
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (s *Session) handleGetPin(ctx context.Context, w ResponseWriter) (bool, error) {
	res := s.inv.Invoke(ctx, s.dialogRequest(dialog.Pin, false))

	switch res.Outcome {
	case dialog.Accepted:
		if res.Secret == nil {
			// The invoker contract promises a buffer here; a backend
			// that breaks it must not crash the session.
			return s.launchFailed(errors.New("dialog backend returned no secret"), w)
		}
		s.launchFailures = 0
		defer res.Secret.Destroy()
		if res.Secret.Len() > 0 {
			if err := w.Data(res.Secret.Bytes()); err != nil {
				return false, err
			}
		}
		return false, w.OK("")

	case dialog.Cancelled:
		s.launchFailures = 0
		return false, w.Err(assuan.CodeCanceled, "")

	case dialog.TimedOut:
		s.launchFailures = 0
		s.log.Warn("pin dialog timed out", "timeout", s.st.timeout)
		return false, w.Err(assuan.CodeTimeout, "")

	default:
		return s.launchFailed(res.Err, w)
	}
}

func (s *Session) handleConfirm(ctx context.Context, oneButton bool, w ResponseWriter) (bool, error) {
	res := s.inv.Invoke(ctx, s.dialogRequest(dialog.Confirm, oneButton))

	switch res.Outcome {
	case dialog.Accepted:
		s.launchFailures = 0
		return false, w.OK("")
	case dialog.Cancelled:
		s.launchFailures = 0
		return false, w.Err(assuan.CodeNotConfirmed, "")
	case dialog.TimedOut:
		s.launchFailures = 0
		s.log.Warn("confirmation dialog timed out", "timeout", s.st.timeout)
		return false, w.Err(assuan.CodeTimeout, "")
	default:
		return s.launchFailed(res.Err, w)
	}
}

func (s *Session) handleMessage(ctx context.Context, w ResponseWriter) (bool, error) {
	res := s.inv.Invoke(ctx, s.dialogRequest(dialog.Message, true))

	switch res.Outcome {
	case dialog.Accepted, dialog.Cancelled:
		// A message only has a dismiss action; how it was dismissed
		// does not matter.
		s.launchFailures = 0
		return false, w.OK("")
	case dialog.TimedOut:
		s.launchFailures = 0
		return false, w.Err(assuan.CodeTimeout, "")
	default:
		return s.launchFailed(res.Err, w)
	}
}

// launchFailed answers a dialog that could not run. Repeated
// consecutive failures end the session: the agent's retry loop cannot
// fix a missing binary.
func (s *Session) launchFailed(cause error, w ResponseWriter) (bool, error) {
	s.launchFailures++
	s.log.Error("dialog launch failed",
		"error", cause, "consecutive", s.launchFailures)

	if s.launchFailures >= maxLaunchFailures {
		s.terminated = true
		return true, w.Err(assuan.CodeGeneral, "dialog unavailable, giving up")
	}
	return false, w.Err(assuan.CodeGeneral, "cannot run dialog")
}
