package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// stripJSONC blanks comments and trailing commas with spaces, leaving line
// breaks in place, so decoder offsets still point into the user's file.
func stripJSONC(content string) (string, error) {
	out := []byte(content)
	var (
		inString bool
		escaped  bool
		comma    = -1 // last comma seen; trailing if the next token closes
	)

	for i := 0; i < len(out); i++ {
		ch := out[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		next := byte(0)
		if i+1 < len(out) {
			next = out[i+1]
		}

		switch {
		case ch == '/' && next == '/':
			j := i
			for j < len(out) && out[j] != '\n' && out[j] != '\r' {
				out[j] = ' '
				j++
			}
			i = j - 1
		case ch == '/' && next == '*':
			end := bytes.Index(out[i+2:], []byte("*/"))
			if end < 0 {
				return "", errors.New("unterminated block comment in JSONC")
			}
			stop := i + 2 + end + 2
			for j := i; j < stop; j++ {
				if out[j] != '\n' && out[j] != '\r' && out[j] != '\t' {
					out[j] = ' '
				}
			}
			i = stop - 1
		case ch == ',':
			comma = i
		case ch == '}' || ch == ']':
			if comma >= 0 {
				out[comma] = ' '
			}
			comma = -1
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
		default:
			comma = -1
			inString = ch == '"'
		}
	}
	return string(out), nil
}

// decodeStrict decodes exactly one JSON object into v, rejecting unknown keys.
func decodeStrict(content string, v any) error {
	decoder := json.NewDecoder(strings.NewReader(content))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return locate(content, err)
	}

	var extra json.RawMessage
	switch err := decoder.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return errors.New("multiple JSON values are not allowed")
	default:
		return locate(content, err)
	}
}

// locate prefixes syntax and type errors with their line and column.
func locate(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := position(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// position maps a decoder offset, which points just past the offending byte,
// to a 1-based line and column.
func position(content string, offset int64) (int, int) {
	end := int(max(min(offset, int64(len(content)))-1, 0))
	prefix := content[:end]
	line := strings.Count(prefix, "\n") + 1
	col := len(prefix) - strings.LastIndexByte(prefix, '\n')
	return line, col
}
