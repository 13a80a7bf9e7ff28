package assuan

import "strings"

// Verb identifies a request. The set is closed: dispatch switches over
// it exhaustively, and anything the parser does not recognize becomes
// VerbUnknown rather than an error, so the session can answer with the
// proper ERR code and keep running.
type Verb int

const (
	VerbUnknown Verb = iota

	VerbOption
	VerbGetInfo
	VerbGetPin
	VerbConfirm
	VerbMessage

	VerbSetTimeout
	VerbSetDesc
	VerbSetKeyinfo
	VerbSetPrompt
	VerbSetTitle
	VerbSetOK
	VerbSetCancel
	VerbSetNotOK
	VerbSetError
	VerbSetRepeat
	VerbSetRepeatError
	VerbSetRepeatOK
	VerbSetQualityBar
	VerbSetQualityBarTT
	VerbSetGenPin
	VerbSetGenPinTT

	VerbReset
	VerbBye
	VerbEnd
	VerbHelp
	VerbQuit
	VerbCancel
	VerbAuth
	VerbNop
)

// verbNames maps wire spellings to verbs, for parsing only.
func verbFromName(name string) Verb {
	switch name {
	case "OPTION":
		return VerbOption
	case "GETINFO":
		return VerbGetInfo
	case "GETPIN":
		return VerbGetPin
	case "CONFIRM":
		return VerbConfirm
	case "MESSAGE":
		return VerbMessage
	case "SETTIMEOUT":
		return VerbSetTimeout
	case "SETDESC":
		return VerbSetDesc
	case "SETKEYINFO":
		return VerbSetKeyinfo
	case "SETPROMPT":
		return VerbSetPrompt
	case "SETTITLE":
		return VerbSetTitle
	case "SETOK":
		return VerbSetOK
	case "SETCANCEL":
		return VerbSetCancel
	case "SETNOTOK":
		return VerbSetNotOK
	case "SETERROR":
		return VerbSetError
	case "SETREPEAT":
		return VerbSetRepeat
	case "SETREPEATERROR":
		return VerbSetRepeatError
	case "SETREPEATOK":
		return VerbSetRepeatOK
	case "SETQUALITYBAR":
		return VerbSetQualityBar
	case "SETQUALITYBAR_TT":
		return VerbSetQualityBarTT
	case "SETGENPIN":
		return VerbSetGenPin
	case "SETGENPIN_TT":
		return VerbSetGenPinTT
	case "RESET":
		return VerbReset
	case "BYE":
		return VerbBye
	case "END":
		return VerbEnd
	case "HELP":
		return VerbHelp
	case "QUIT":
		return VerbQuit
	case "CANCEL":
		return VerbCancel
	case "AUTH":
		return VerbAuth
	case "NOP":
		return VerbNop
	default:
		return VerbUnknown
	}
}

// Name returns the wire spelling of the verb.
func (v Verb) Name() string {
	switch v {
	case VerbOption:
		return "OPTION"
	case VerbGetInfo:
		return "GETINFO"
	case VerbGetPin:
		return "GETPIN"
	case VerbConfirm:
		return "CONFIRM"
	case VerbMessage:
		return "MESSAGE"
	case VerbSetTimeout:
		return "SETTIMEOUT"
	case VerbSetDesc:
		return "SETDESC"
	case VerbSetKeyinfo:
		return "SETKEYINFO"
	case VerbSetPrompt:
		return "SETPROMPT"
	case VerbSetTitle:
		return "SETTITLE"
	case VerbSetOK:
		return "SETOK"
	case VerbSetCancel:
		return "SETCANCEL"
	case VerbSetNotOK:
		return "SETNOTOK"
	case VerbSetError:
		return "SETERROR"
	case VerbSetRepeat:
		return "SETREPEAT"
	case VerbSetRepeatError:
		return "SETREPEATERROR"
	case VerbSetRepeatOK:
		return "SETREPEATOK"
	case VerbSetQualityBar:
		return "SETQUALITYBAR"
	case VerbSetQualityBarTT:
		return "SETQUALITYBAR_TT"
	case VerbSetGenPin:
		return "SETGENPIN"
	case VerbSetGenPinTT:
		return "SETGENPIN_TT"
	case VerbReset:
		return "RESET"
	case VerbBye:
		return "BYE"
	case VerbEnd:
		return "END"
	case VerbHelp:
		return "HELP"
	case VerbQuit:
		return "QUIT"
	case VerbCancel:
		return "CANCEL"
	case VerbAuth:
		return "AUTH"
	case VerbNop:
		return "NOP"
	default:
		return "UNKNOWN"
	}
}

// Verbs lists every supported verb in wire order, for HELP output.
func Verbs() []Verb {
	return []Verb{
		VerbOption, VerbGetInfo, VerbGetPin, VerbConfirm, VerbMessage,
		VerbSetTimeout, VerbSetDesc, VerbSetKeyinfo, VerbSetPrompt,
		VerbSetTitle, VerbSetOK, VerbSetCancel, VerbSetNotOK,
		VerbSetError, VerbSetRepeat, VerbSetRepeatError, VerbSetRepeatOK,
		VerbSetQualityBar, VerbSetQualityBarTT, VerbSetGenPin,
		VerbSetGenPinTT, VerbReset, VerbBye, VerbEnd, VerbHelp,
		VerbQuit, VerbCancel, VerbAuth, VerbNop,
	}
}

// Command is one parsed request line: a verb plus the raw remainder of
// the line. Individual commands own their argument grammar; the codec
// does not tokenize past the verb.
type Command struct {
	Verb Verb
	Raw  string // original verb token, for diagnostics on unknown verbs
	Arg  string
}

// ParseCommand splits a request line into verb and argument. The line
// must already be stripped of its trailing newline; a trailing CR is
// removed here. Comment and empty lines are the caller's concern.
func ParseCommand(line string) Command {
	line = strings.TrimSuffix(line, "\r")

	verb := line
	arg := ""
	if i := strings.IndexByte(line, ' '); i >= 0 {
		verb, arg = line[:i], line[i+1:]
	}

	return Command{Verb: verbFromName(verb), Raw: verb, Arg: arg}
}

// ParseOption parses the OPTION argument grammar: "key", "--key",
// "key=value", "key value" and "key = value" are all accepted. A
// value-less form returns ok=false for hasValue. Key and value are
// percent-decoded.
func ParseOption(arg string) (key, value string, hasValue bool, err error) {
	// Agents may pad the verb with more than one space.
	arg = strings.TrimLeft(arg, " \t")
	arg = strings.TrimPrefix(arg, "--")

	key, rest := arg, ""
	if i := strings.IndexAny(arg, "= \t"); i >= 0 {
		key, rest = arg[:i], arg[i:]
	}
	if key == "" {
		return "", "", false, &SyntaxError{Input: arg, Reason: "empty option name"}
	}

	if key, err = Unescape(key); err != nil {
		return "", "", false, err
	}

	rest = strings.TrimLeft(rest, " \t")
	rest = strings.TrimPrefix(rest, "=")
	rest = strings.TrimLeft(rest, " \t")
	if rest == "" {
		return key, "", false, nil
	}

	if value, err = Unescape(rest); err != nil {
		return "", "", false, err
	}
	return key, value, true, nil
}
