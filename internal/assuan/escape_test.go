package assuan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte(""),
		[]byte("plain text"),
		[]byte("percent % sign"),
		[]byte("line\nbreak\r\n"),
		[]byte{0x00, 0x01, 0x1f, 0x20, 0x7e, 0x7f},
		[]byte("100%%%"),
		[]byte("tab\tand bell\a"),
		[]byte("ünïcode £ bytes"),
	}

	for _, in := range cases {
		escaped := Escape(in)
		out, err := Unescape(string(escaped))
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, string(in), out, "round trip of %q", in)
	}
}

func TestEscapeNeverEmitsFramingBytes(t *testing.T) {
	in := []byte("a%b\nc\rd\x00e")
	for _, b := range Escape(in) {
		assert.False(t, b == '\n' || b == '\r' || b < 0x20,
			"escaped output contains raw byte 0x%02x", b)
	}
}

func TestUnescape(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"no escapes", "no escapes"},
		{"%25", "%"},
		{"%0A", "\n"},
		{"%0a", "\n"},
		{"a%20b", "a b"},
		{"%41%42%43", "ABC"},
	}
	for _, c := range cases {
		got, err := Unescape(c.in)
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestUnescapeInvalid(t *testing.T) {
	for _, in := range []string{"%zz", "%", "%1", "%g1", "%1g", "end%"} {
		_, err := Unescape(in)
		require.Error(t, err, "input %q", in)
		var serr *SyntaxError
		assert.ErrorAs(t, err, &serr, "input %q", in)
	}
}
