package assuan

import "fmt"

// Code is a gpg-error style error code as carried on ERR lines.
// The wire value combines the code with the Pinentry error source in
// the top byte, so agents can attribute the failure.
type Code uint32

// sourcePinentry is the gpg-error source identifier for pinentry
// programs (GPG_ERR_SOURCE_PINENTRY).
const sourcePinentry = 5

// Error codes used by this server. Values follow libgpg-error so that
// existing agents interpret them correctly.
const (
	CodeGeneral      Code = 1
	CodeTimeout      Code = 62
	CodeCanceled     Code = 99
	CodeNotConfirmed Code = 114

	CodeAssLineTooLong Code = 263
	CodeAssTooMuchData Code = 273
	CodeAssUnknownCmd  Code = 275
	CodeAssSyntax      Code = 276
	CodeAssParameter   Code = 281
)

// Wire returns the numeric value emitted on an ERR line, e.g.
// 83886179 for CodeCanceled.
func (c Code) Wire() uint32 {
	return uint32(sourcePinentry)<<24 | uint32(c)
}

// Desc returns the conventional description for the code. The
// "<Pinentry>" suffix mirrors what agents expect from the reference
// implementation.
func (c Code) Desc() string {
	switch c {
	case CodeGeneral:
		return "General error <Pinentry>"
	case CodeTimeout:
		return "Timeout <Pinentry>"
	case CodeCanceled:
		return "Operation cancelled <Pinentry>"
	case CodeNotConfirmed:
		return "Not confirmed <Pinentry>"
	case CodeAssLineTooLong:
		return "IPC line too long <Pinentry>"
	case CodeAssTooMuchData:
		return "IPC parameter too large <Pinentry>"
	case CodeAssUnknownCmd:
		return "IPC unknown command <Pinentry>"
	case CodeAssSyntax:
		return "IPC syntax error <Pinentry>"
	case CodeAssParameter:
		return "IPC parameter error <Pinentry>"
	default:
		return fmt.Sprintf("Error %d <Pinentry>", uint32(c))
	}
}

// SyntaxError reports a malformed request line. It is recoverable: the
// session answers ERR and keeps going.
type SyntaxError struct {
	Input  string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error: %s (%q)", e.Reason, e.Input)
}
