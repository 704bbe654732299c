package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBackendErrorCarriesStatusAndBody(t *testing.T) {
	err := Backend("upload", 500, "oops")
	require.Equal(t, KindBackend, err.Kind)
	require.Contains(t, err.Error(), "500")
	require.Contains(t, err.Error(), "oops")

	msg := UserMessage(err)
	require.Contains(t, msg, "500")
	require.Contains(t, msg, "oops")
}

func TestKindOfUnwrapsChains(t *testing.T) {
	base := Decode("decode response", errors.New("unexpected EOF"))
	wrapped := fmt.Errorf("interaction abc: %w", base)

	require.Equal(t, KindDecode, KindOf(wrapped))
	require.True(t, Is(wrapped, KindDecode))
	require.False(t, Is(wrapped, KindNetwork))
	require.True(t, errors.Is(wrapped, &Error{Kind: KindDecode}))
	require.False(t, errors.Is(wrapped, &Error{Kind: KindDecode, Op: "other"}))
}

func TestKindOfPlainError(t *testing.T) {
	require.Equal(t, Kind(""), KindOf(errors.New("plain")))
	require.False(t, Is(nil, KindCapture))
}

func TestUserMessageMatrix(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "permission", err: Permission("open microphone", cause), want: "access denied"},
		{name: "capture", err: Capture("take photo", cause), want: "Capture failed: boom"},
		{name: "encoding", err: Encoding("resize", cause), want: "Could not prepare"},
		{name: "network", err: Network("upload", cause), want: "Network error: boom"},
		{name: "backend no body", err: Backend("upload", 502, " "), want: "Server error (HTTP 502)"},
		{name: "decode", err: Decode("decode audio", cause), want: "Unreadable server response: boom"},
		{name: "plain", err: cause, want: "Something went wrong: boom"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := UserMessage(tc.err)
			if tc.want == "" {
				require.Empty(t, got)
				return
			}
			require.Contains(t, got, tc.want)
		})
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("device busy")
	err := Capture("start recording", cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "capture error during start recording: device busy", err.Error())
}
