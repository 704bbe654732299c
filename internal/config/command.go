package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// jsoncCommand decodes camera.capture_cmd, given either as a shell-style
// string or as an argv array. A malformed string is kept as err so the
// error can name the key it came from.
type jsoncCommand struct {
	raw  string
	argv []string
	err  error
}

func (c *jsoncCommand) UnmarshalJSON(data []byte) error {
	var line string
	if err := json.Unmarshal(data, &line); err == nil {
		c.raw = line
		c.argv, c.err = splitCommand(line)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.New("expected command string or string array")
	}
	c.argv, c.err = c.argv[:0], nil
	for _, arg := range list {
		if strings.TrimSpace(arg) != "" {
			c.argv = append(c.argv, arg)
		}
	}
	c.raw = strings.Join(c.argv, " ")
	return nil
}

func (c jsoncCommand) config() (CommandConfig, error) {
	if c.err != nil {
		return CommandConfig{}, c.err
	}
	return CommandConfig{Raw: c.raw, Argv: c.argv}, nil
}

// splitCommand breaks a command line into argv the way a POSIX shell would
// for quoting: single and double quotes group words, a backslash outside
// quotes escapes the next rune, and a leading '#' comments the line out.
// Nothing is expanded.
func splitCommand(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return nil, nil
	}

	var (
		argv   []string
		word   []rune
		inWord bool
		quote  rune
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			word = append(word, r)
		case r == '\\':
			if i+1 == len(runes) {
				return nil, fmt.Errorf("unterminated escape sequence in command: %q", line)
			}
			i++
			word, inWord = append(word, runes[i]), true
		case r == '"' || r == '\'':
			quote, inWord = r, true
		case unicode.IsSpace(r):
			if inWord {
				argv = append(argv, string(word))
				word, inWord = word[:0], false
			}
		default:
			word, inWord = append(word, r), true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command: %q", line)
	}
	if inWord {
		argv = append(argv, string(word))
	}
	return argv, nil
}
