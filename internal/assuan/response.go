package assuan

import "strconv"

// MaxDataChunk is the largest raw payload carried on a single D line,
// measured before escaping. Longer payloads are split across multiple
// D lines; the receiver concatenates them in order.
const MaxDataChunk = 1000

// MaxLineLen is the longest request line the server accepts, per the
// Assuan convention.
const MaxLineLen = 1000

// AppendOK appends an OK line, with an optional comment.
func AppendOK(dst []byte, comment string) []byte {
	dst = append(dst, "OK"...)
	if comment != "" {
		dst = append(dst, ' ')
		dst = append(dst, comment...)
	}
	return append(dst, '\n')
}

// AppendErr appends an ERR line carrying the wire form of code. An
// empty desc falls back to the code's conventional description.
func AppendErr(dst []byte, code Code, desc string) []byte {
	if desc == "" {
		desc = code.Desc()
	}
	dst = append(dst, "ERR "...)
	dst = strconv.AppendUint(dst, uint64(code.Wire()), 10)
	dst = append(dst, ' ')
	dst = append(dst, desc...)
	return append(dst, '\n')
}

// AppendData appends one or more D lines carrying payload. The payload
// is split into MaxDataChunk-sized pieces before escaping, so a long
// secret never produces an overlong line. The payload is not retained.
func AppendData(dst []byte, payload []byte) []byte {
	if len(payload) == 0 {
		return append(dst, "D \n"...)
	}
	for len(payload) > 0 {
		n := len(payload)
		if n > MaxDataChunk {
			n = MaxDataChunk
		}
		dst = append(dst, "D "...)
		dst = append(dst, Escape(payload[:n])...)
		dst = append(dst, '\n')
		payload = payload[n:]
	}
	return dst
}

// AppendComment appends a '#' diagnostic line. Comments are never
// required by the protocol and are ignored by conforming peers.
func AppendComment(dst []byte, text string) []byte {
	dst = append(dst, '#')
	if text != "" {
		dst = append(dst, ' ')
		dst = append(dst, text...)
	}
	return append(dst, '\n')
}

// AppendStatus appends an S line: a keyword plus free-form status text.
func AppendStatus(dst []byte, keyword, text string) []byte {
	dst = append(dst, "S "...)
	dst = append(dst, keyword...)
	if text != "" {
		dst = append(dst, ' ')
		dst = append(dst, text...)
	}
	return append(dst, '\n')
}

// ErrLine is a convenience for building a full ERR line as a string,
// used by tests and logging of non-secret failures.
func ErrLine(code Code, desc string) string {
	return string(AppendErr(nil, code, desc))
}

// ChunkCount returns how many D lines AppendData will emit for a
// payload of n bytes.
func ChunkCount(n int) int {
	if n <= 0 {
		return 1
	}
	return (n + MaxDataChunk - 1) / MaxDataChunk
}
