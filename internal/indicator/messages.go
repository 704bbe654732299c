package indicator

import (
	"os"
	"strings"
)

// messages holds the user-facing notification text for one language.
type messages struct {
	recording  string
	processing string
	answer     string
	errorText  string
}

var catalogs = map[string]messages{
	"en": {recording: "Listening…", processing: "Thinking…", answer: "SecondEye", errorText: "Something went wrong"},
	"es": {recording: "Escuchando…", processing: "Pensando…", answer: "SecondEye", errorText: "Algo salió mal"},
	"de": {recording: "Ich höre zu…", processing: "Einen Moment…", answer: "SecondEye", errorText: "Etwas ist schiefgelaufen"},
	"fr": {recording: "J'écoute…", processing: "Je réfléchis…", answer: "SecondEye", errorText: "Une erreur s'est produite"},
}

// indicatorMessagesFromEnv follows POSIX precedence: LC_ALL, then
// LC_MESSAGES, then LANG.
func indicatorMessagesFromEnv() messages {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return messagesFor(value)
		}
	}
	return catalogs["en"]
}

// messagesFor picks the catalog for a locale name such as "de_AT.UTF-8@euro".
// C, POSIX, and unknown languages get English.
func messagesFor(localeName string) messages {
	lang, _, _ := strings.Cut(strings.ToLower(localeName), "_")
	lang, _, _ = strings.Cut(lang, ".")
	lang, _, _ = strings.Cut(lang, "@")
	if catalog, ok := catalogs[lang]; ok {
		return catalog
	}
	return catalogs["en"]
}
