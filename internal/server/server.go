// Package server runs the Assuan transport loop: read one line from the
// agent, dispatch it against the session, write the responses, repeat.
// The loop is strictly synchronous; at most one command is ever
// outstanding, so a dialog invocation simply blocks it.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"pinentry-exec/internal/assuan"
	"pinentry-exec/internal/secmem"
	"pinentry-exec/internal/session"
)

// Greeting is written before the first read, as agents expect.
const Greeting = "Pleased to meet you"

// Server couples an input/output pair with a session.
type Server struct {
	in   *bufio.Reader
	out  io.Writer
	sess *session.Session
	log  *slog.Logger
}

// New creates a server over the given pipe pair, conventionally
// stdin/stdout.
func New(in io.Reader, out io.Writer, sess *session.Session, log *slog.Logger) *Server {
	return &Server{
		in:   bufio.NewReaderSize(in, assuan.MaxLineLen+2),
		out:  out,
		sess: sess,
		log:  log,
	}
}

// Run serves until the session terminates or input reaches end of
// stream. EOF before BYE is an abnormal but quiet session end: there is
// nobody left to answer, so it is not an error. Only write failures and
// unexpected read failures are.
func (s *Server) Run(ctx context.Context) error {
	w := &wire{out: s.out}

	if err := w.OK(Greeting); err != nil {
		return fmt.Errorf("write greeting: %w", err)
	}
	s.log.Debug("session started")

	for {
		line, tooLong, err := s.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debug("input closed before BYE")
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}

		if tooLong {
			if err := w.Err(assuan.CodeAssLineTooLong, ""); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
			continue
		}

		if len(line) == 0 || line[0] == '#' {
			continue
		}

		cmd := assuan.ParseCommand(line)
		s.log.Debug("request", "verb", cmd.Verb.Name())

		done, err := s.sess.Handle(ctx, cmd, w)
		if err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if done {
			s.log.Debug("session closed")
			return nil
		}
	}
}

// readLine reads one request line, stripping the trailing newline and
// CR. A line longer than the protocol maximum is consumed entirely and
// reported via tooLong so the caller can answer with an error instead
// of tearing the session down.
func (s *Server) readLine() (line string, tooLong bool, err error) {
	var buf []byte
	for {
		frag, err := s.in.ReadSlice('\n')
		if !tooLong {
			buf = append(buf, frag...)
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			// Keep consuming the oversized line but stop
			// accumulating it; the answer is an error either way.
			if len(buf) > assuan.MaxLineLen {
				tooLong = true
				buf = buf[:0]
			}
			continue
		}
		if errors.Is(err, io.EOF) && (len(buf) > 0 || tooLong) {
			// Final line without newline: still a request.
			break
		}
		return "", false, err
	}

	if tooLong {
		return "", true, nil
	}

	raw := trimEOL(string(buf))
	if len(raw) > assuan.MaxLineLen {
		return "", true, nil
	}
	return raw, false, nil
}

func trimEOL(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return s
}

// wire implements session.ResponseWriter directly over the output
// stream. Responses are written unbuffered, one wire line (or one
// chunked D response) per call; secret payload scratch space is wiped
// after the write.
type wire struct {
	out io.Writer
}

func (w *wire) OK(comment string) error {
	_, err := w.out.Write(assuan.AppendOK(nil, comment))
	return err
}

func (w *wire) Err(code assuan.Code, desc string) error {
	_, err := w.out.Write(assuan.AppendErr(nil, code, desc))
	return err
}

func (w *wire) Data(payload []byte) error {
	buf := assuan.AppendData(nil, payload)
	_, err := w.out.Write(buf)
	secmem.Wipe(buf)
	return err
}

func (w *wire) Comment(text string) error {
	_, err := w.out.Write(assuan.AppendComment(nil, text))
	return err
}
