// Package formdata builds the multipart/form-data body of an interaction upload.
package formdata

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/secondeye/secondeye/internal/interaction"
)

// Field names expected by the backend's /process endpoint.
const (
	FieldAudio             = "audio"
	FieldFrames            = "frames"
	FieldMaxSearchDuration = "max_search_duration"
)

// ErrMissingPart is returned when audio or image bytes are absent.
var ErrMissingPart = errors.New("multipart part has no content")

// Part is one named section of the body. A Part with a Filename is a file part.
type Part struct {
	Name        string
	Filename    string
	ContentType string
	Data        []byte
}

// FilePart returns a binary file part.
func FilePart(name, filename, contentType string, data []byte) Part {
	return Part{Name: name, Filename: filename, ContentType: contentType, Data: data}
}

// FieldPart returns a scalar form field.
func FieldPart(name, value string) Part {
	return Part{Name: name, Data: []byte(value)}
}

// Encode writes parts in the given order, delimited by boundary, and closes the body.
func Encode(boundary string, parts ...Part) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(boundary); err != nil {
		return nil, fmt.Errorf("set boundary %q: %w", boundary, err)
	}

	for _, part := range parts {
		if strings.TrimSpace(part.Name) == "" {
			return nil, errors.New("multipart part name must not be empty")
		}
		if err := writePart(w, part); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeRequest encodes audio, then image, then the optional duration bound.
func EncodeRequest(boundary string, req interaction.Request) ([]byte, error) {
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("%s: %w", FieldAudio, ErrMissingPart)
	}
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("%s: %w", FieldFrames, ErrMissingPart)
	}

	parts := []Part{
		FilePart(FieldAudio, orDefault(req.AudioFilename, "input.wav"), "audio/wav", req.Audio),
		FilePart(FieldFrames, orDefault(req.ImageFilename, "frame_0.jpg"), "image/jpeg", req.Image),
	}
	if req.MaxSearchDuration != nil {
		parts = append(parts, FieldPart(FieldMaxSearchDuration, strconv.Itoa(*req.MaxSearchDuration)))
	}
	return Encode(boundary, parts...)
}

// ContentType returns the request Content-Type header value for boundary.
func ContentType(boundary string) string {
	return "multipart/form-data; boundary=" + boundary
}

func writePart(w *multipart.Writer, part Part) error {
	if part.Filename == "" {
		if err := w.WriteField(part.Name, string(part.Data)); err != nil {
			return fmt.Errorf("write field %q: %w", part.Name, err)
		}
		return nil
	}

	if len(part.Data) == 0 {
		return fmt.Errorf("%s: %w", part.Name, ErrMissingPart)
	}

	contentType := part.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, part.Name, part.Filename))
	header.Set("Content-Type", contentType)

	pw, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create part %q: %w", part.Name, err)
	}
	if _, err := pw.Write(part.Data); err != nil {
		return fmt.Errorf("write part %q: %w", part.Name, err)
	}
	return nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
