package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

const (
	// AuthHeader carries the session token. The backend does not use the bearer scheme.
	AuthHeader      = "x-auth-token"
	RequestIDHeader = "X-Request-ID"

	contentTypeJSON = "application/json"
)

// Request describes one gateway call. The zero value is an authenticated GET.
type Request struct {
	Method string
	// Body is JSON-encoded when non-nil.
	Body any
	// Form sends a multipart body instead of Body.
	Form *Multipart
	// SkipAuth leaves the token header off even when a token is stored.
	SkipAuth bool
	Header   http.Header
}

// Multipart is a multipart/form-data body.
type Multipart struct {
	Fields map[string]string
	Files  []FilePart
}

// FilePart is one file inside a Multipart body.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        io.Reader
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

// encode returns the body reader and its content type.
func (r Request) encode() (io.Reader, string, error) {
	if r.Form != nil {
		return r.Form.encode()
	}
	if r.Body == nil {
		return nil, contentTypeJSON, nil
	}
	if raw, ok := r.Body.(json.RawMessage); ok {
		return bytes.NewReader(raw), contentTypeJSON, nil
	}
	data, err := json.Marshal(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("encode json body: %w", err)
	}
	return bytes.NewReader(data), contentTypeJSON, nil
}

func (m *Multipart) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range m.Fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	for _, file := range m.Files {
		if file.Data == nil {
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", multipart.FileContentDisposition(file.Field, file.Filename))
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", file.Field, err)
		}
		if _, err := io.Copy(part, file.Data); err != nil {
			return nil, "", fmt.Errorf("copy part %s: %w", file.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
