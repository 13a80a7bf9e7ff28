package dialog

import (
	"bufio"
	"context"
	"crypto/subtle"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"pinentry-exec/internal/secmem"
)

// TTYInvoker prompts directly on a terminal. It is the fallback backend
// when no dialog command is configured, covering headless setups the
// way curses-flavored pinentries do.
type TTYInvoker struct {
	// TTYName is the terminal device to use. Empty means the
	// session's ttyname option, then /dev/tty.
	TTYName string
}

// Invoke prompts on the terminal. The read runs in its own goroutine so
// the watchdog can fire; on timeout the terminal is closed, which
// unblocks the reader.
func (t *TTYInvoker) Invoke(ctx context.Context, req Request) Result {
	name := t.TTYName
	if name == "" {
		name = req.Options["ttyname"]
	}
	if name == "" {
		name = "/dev/tty"
	}

	tty, err := os.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("open terminal %s: %w", name, err)}
	}
	defer tty.Close()

	resCh := make(chan Result, 1)
	go func() { resCh <- t.prompt(tty, req) }()

	var timeoutCh <-chan time.Time
	if req.Timeout > 0 {
		timer := time.NewTimer(req.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case res := <-resCh:
		return res
	case <-timeoutCh:
		tty.Close() // unblock the reader
		if res := <-resCh; res.Secret != nil {
			res.Secret.Destroy()
		}
		return Result{Outcome: TimedOut}
	case <-ctx.Done():
		tty.Close()
		if res := <-resCh; res.Secret != nil {
			res.Secret.Destroy()
		}
		return Result{Outcome: Failed, Err: ctx.Err()}
	}
}

func (t *TTYInvoker) prompt(tty *os.File, req Request) Result {
	if req.Title != "" {
		fmt.Fprintf(tty, "== %s ==\n", req.Title)
	}
	if req.Desc != "" {
		fmt.Fprintln(tty, req.Desc)
	}
	if req.Error != "" {
		fmt.Fprintf(tty, "*** %s ***\n", req.Error)
	}

	switch req.Kind {
	case Pin:
		return t.readPin(tty, req)
	case Confirm:
		return t.readConfirm(tty, req)
	case Message:
		return t.readAck(tty, req)
	default:
		return Result{Outcome: Failed, Err: fmt.Errorf("unsupported dialog kind %d", req.Kind)}
	}
}

func (t *TTYInvoker) readPin(tty *os.File, req Request) Result {
	prompt := req.Prompt
	if prompt == "" {
		prompt = "PIN:"
	}
	fmt.Fprintf(tty, "%s ", prompt)

	pin, err := term.ReadPassword(int(tty.Fd()))
	fmt.Fprintln(tty)
	if err != nil {
		secmem.Wipe(pin)
		return Result{Outcome: Failed, Err: fmt.Errorf("read passphrase: %w", err)}
	}

	if req.Repeat != "" {
		fmt.Fprintf(tty, "%s ", req.Repeat)
		again, err := term.ReadPassword(int(tty.Fd()))
		fmt.Fprintln(tty)
		if err != nil {
			secmem.Wipe(pin)
			secmem.Wipe(again)
			return Result{Outcome: Failed, Err: fmt.Errorf("read repeated passphrase: %w", err)}
		}
		match := subtle.ConstantTimeCompare(pin, again) == 1
		secmem.Wipe(again)
		if !match {
			secmem.Wipe(pin)
			return Result{Outcome: Cancelled}
		}
	}

	return Result{Outcome: Accepted, Secret: secmem.FromBytes(pin)}
}

func (t *TTYInvoker) readConfirm(tty *os.File, req Request) Result {
	ok, cancel := req.OK, req.Cancel
	if ok == "" {
		ok = "yes"
	}
	if cancel == "" {
		cancel = "no"
	}
	if req.OneButton {
		return t.readAck(tty, req)
	}

	fmt.Fprintf(tty, "%s/%s? ", ok, cancel)
	line, err := bufio.NewReader(tty).ReadString('\n')
	if err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("read confirmation: %w", err)}
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", strings.ToLower(strings.TrimPrefix(ok, "_")):
		return Result{Outcome: Accepted}
	default:
		return Result{Outcome: Cancelled}
	}
}

func (t *TTYInvoker) readAck(tty *os.File, req Request) Result {
	ok := req.OK
	if ok == "" {
		ok = "OK"
	}
	fmt.Fprintf(tty, "[%s] press enter ", ok)
	if _, err := bufio.NewReader(tty).ReadString('\n'); err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("read acknowledgement: %w", err)}
	}
	return Result{Outcome: Accepted}
}
