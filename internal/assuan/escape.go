package assuan

// Percent escaping per the Assuan convention: a literal '%' followed by
// two hex digits encodes one byte. Decoding rejects any '%' that is not
// followed by a valid hex pair; encoding escapes '%', CR, LF and all
// other control bytes so a payload can never break line framing.

const hexDigits = "0123456789ABCDEF"

// needsEscape reports whether b must be percent-escaped on output.
func needsEscape(b byte) bool {
	return b == '%' || b < 0x20 || b == 0x7f
}

// Escape percent-encodes s for use in argument text or D-line payloads.
func Escape(s []byte) []byte {
	n := 0
	for _, b := range s {
		if needsEscape(b) {
			n++
		}
	}
	if n == 0 {
		out := make([]byte, len(s))
		copy(out, s)
		return out
	}

	out := make([]byte, 0, len(s)+2*n)
	for _, b := range s {
		if needsEscape(b) {
			out = append(out, '%', hexDigits[b>>4], hexDigits[b&0x0f])
		} else {
			out = append(out, b)
		}
	}
	return out
}

// Unescape percent-decodes s. A '%' not followed by two hex digits is a
// syntax error.
func Unescape(s string) (string, error) {
	i := 0
	for ; i < len(s); i++ {
		if s[i] == '%' {
			break
		}
	}
	if i == len(s) {
		return s, nil
	}

	out := make([]byte, 0, len(s))
	out = append(out, s[:i]...)
	for i < len(s) {
		b := s[i]
		if b != '%' {
			out = append(out, b)
			i++
			continue
		}
		if i+2 >= len(s) {
			return "", &SyntaxError{Input: s, Reason: "truncated percent escape"}
		}
		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return "", &SyntaxError{Input: s, Reason: "invalid percent escape"}
		}
		out = append(out, hi<<4|lo)
		i += 3
	}
	return string(out), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
