package indicator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessagesForLocaleNames(t *testing.T) {
	tests := map[string]string{
		"en_US.UTF-8":      "Listening…",
		"es_MX.UTF-8":      "Escuchando…",
		"de_AT.UTF-8@euro": "Ich höre zu…",
		"fr":               "J'écoute…",
		"C.UTF-8":          "Listening…",
		"POSIX":            "Listening…",
		"ja_JP.UTF-8":      "Listening…",
	}
	for name, want := range tests {
		require.Equal(t, want, messagesFor(name).recording, name)
	}
}

func TestMessagesFromEnvPrecedence(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
	require.Equal(t, "Something went wrong", indicatorMessagesFromEnv().errorText)

	t.Setenv("LANG", "es_ES.UTF-8")
	require.Equal(t, "Algo salió mal", indicatorMessagesFromEnv().errorText)

	t.Setenv("LC_MESSAGES", "de_DE.UTF-8")
	require.Equal(t, "Etwas ist schiefgelaufen", indicatorMessagesFromEnv().errorText)

	t.Setenv("LC_ALL", "en_GB.UTF-8")
	require.Equal(t, "Something went wrong", indicatorMessagesFromEnv().errorText)
}
