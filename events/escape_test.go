package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMIEscape(t *testing.T) {
	require.Equal(t, "say \\\"hi\\\"\\n", MIEscape("say \"hi\"\n"))
	require.Equal(t, "\\001", MIEscape("\x01"))
}

func TestMIQuote(t *testing.T) {
	require.Equal(t, "\"a\\\\b\"", MIQuote("a\\b"))
}

func TestJSONEscape(t *testing.T) {
	require.Equal(t, "line1\\nline2", JSONEscape("line1\nline2"))
	require.Equal(t, "\\u0001", JSONEscape("\x01"))
}
