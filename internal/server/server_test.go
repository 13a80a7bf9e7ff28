package server

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinentry-exec/internal/assuan"
	"pinentry-exec/internal/dialog"
	"pinentry-exec/internal/logging"
	"pinentry-exec/internal/secmem"
	"pinentry-exec/internal/session"
)

// stubInvoker answers every dialog the same way, minting a fresh secret
// buffer per call since dispatch destroys it.
type stubInvoker struct {
	outcome dialog.Outcome
	secret  string
}

func (s *stubInvoker) Invoke(_ context.Context, req dialog.Request) dialog.Result {
	res := dialog.Result{Outcome: s.outcome}
	if s.outcome == dialog.Accepted && req.Kind == dialog.Pin {
		res.Secret = secmem.FromBytes([]byte(s.secret))
	}
	return res
}

// serve runs a whole conversation and returns the raw output.
func serve(t *testing.T, inv dialog.Invoker, input string) string {
	t.Helper()
	sess := session.New(logging.Discard(), inv,
		session.Info{Flavor: "exec", Version: "0.0.0"}, 0, nil)

	var out strings.Builder
	srv := New(strings.NewReader(input), &out, sess, logging.Discard())
	require.NoError(t, srv.Run(context.Background()))
	return out.String()
}

func TestRunFullConversation(t *testing.T) {
	inv := &stubInvoker{outcome: dialog.Accepted, secret: "hunter2"}

	input := strings.Join([]string{
		"OPTION ttyname=/dev/pts/1",
		"GETINFO flavor",
		"SETDESC Unlock%20the%20key",
		"SETPROMPT Passphrase:",
		"GETPIN",
		"BYE",
	}, "\n") + "\n"

	got := serve(t, inv, input)

	want := strings.Join([]string{
		"OK Pleased to meet you",
		"OK",
		"D exec",
		"OK",
		"OK",
		"OK",
		"D hunter2",
		"OK",
		"OK closing connection",
	}, "\n") + "\n"
	assert.Equal(t, want, got)
}

func TestRunCancelledPin(t *testing.T) {
	got := serve(t, &stubInvoker{outcome: dialog.Cancelled}, "GETPIN\nBYE\n")

	want := "OK Pleased to meet you\n" +
		"ERR 83886179 Operation cancelled <Pinentry>\n" +
		"OK closing connection\n"
	assert.Equal(t, want, got)
}

func TestRunGetInfoPid(t *testing.T) {
	got := serve(t, &stubInvoker{outcome: dialog.Accepted}, "GETINFO pid\nBYE\n")

	want := fmt.Sprintf("OK Pleased to meet you\nD %d\nOK\nOK closing connection\n",
		os.Getpid())
	assert.Equal(t, want, got)
}

func TestRunSkipsBlankAndCommentLines(t *testing.T) {
	got := serve(t, &stubInvoker{outcome: dialog.Accepted},
		"\n# client-side remark\n\r\nNOP\nBYE\n")

	want := "OK Pleased to meet you\nOK\nOK closing connection\n"
	assert.Equal(t, want, got)
}

func TestRunRecoversFromSyntaxError(t *testing.T) {
	got := serve(t, &stubInvoker{outcome: dialog.Accepted},
		"SETDESC bad%zz\nNOP\nBYE\n")

	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "OK Pleased to meet you", lines[0])
	assert.Contains(t, lines[1], fmt.Sprintf("ERR %d", assuan.CodeAssSyntax.Wire()))
	assert.Equal(t, "OK", lines[2])
	assert.Equal(t, "OK closing connection", lines[3])
}

func TestRunRejectsOverlongLine(t *testing.T) {
	long := "SETDESC " + strings.Repeat("x", 4*assuan.MaxLineLen)
	got := serve(t, &stubInvoker{outcome: dialog.Accepted}, long+"\nNOP\nBYE\n")

	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], fmt.Sprintf("ERR %d", assuan.CodeAssLineTooLong.Wire()))
	assert.Equal(t, "OK", lines[2], "session must survive an overlong line")
}

func TestRunMaxLengthLineIsAccepted(t *testing.T) {
	// Exactly at the limit: "NOP" padded with trailing spaces.
	line := "NOP " + strings.Repeat(" ", assuan.MaxLineLen-4)
	require.Len(t, line, assuan.MaxLineLen)

	got := serve(t, &stubInvoker{outcome: dialog.Accepted}, line+"\nBYE\n")
	want := "OK Pleased to meet you\nOK\nOK closing connection\n"
	assert.Equal(t, want, got)
}

func TestRunEOFWithoutBye(t *testing.T) {
	got := serve(t, &stubInvoker{outcome: dialog.Accepted}, "NOP\n")
	assert.Equal(t, "OK Pleased to meet you\nOK\n", got)
}

func TestRunFinalLineWithoutNewline(t *testing.T) {
	got := serve(t, &stubInvoker{outcome: dialog.Accepted}, "NOP\nBYE")
	assert.Equal(t, "OK Pleased to meet you\nOK\nOK closing connection\n", got)
}

func TestRunEmptyInput(t *testing.T) {
	got := serve(t, &stubInvoker{outcome: dialog.Accepted}, "")
	assert.Equal(t, "OK Pleased to meet you\n", got)
}
