package fetchkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Blob is a binary payload with an explicit MIME type. A zero ContentType
// falls back to application/octet-stream.
type Blob struct {
	Data        []byte
	ContentType string
}

type formField struct {
	name  string
	value string
}

type formFile struct {
	field    string
	filename string
	data     []byte
}

// Form is a multipart/form-data payload builder.
type Form struct {
	fields []formField
	files  []formFile
}

// NewForm returns an empty multipart form.
func NewForm() *Form {
	return &Form{}
}

// Add appends a text field. Repeated names produce repeated parts.
func (f *Form) Add(name, value string) *Form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// AddFile appends a file part.
func (f *Form) AddFile(field, filename string, data []byte) *Form {
	f.files = append(f.files, formFile{field: field, filename: filename, data: append([]byte(nil), data...)})
	return f
}

func (f *Form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, field := range f.fields {
		if err := w.WriteField(field.name, field.value); err != nil {
			return nil, "", err
		}
	}
	for _, file := range f.files {
		part, err := w.CreateFormFile(file.field, file.filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// encodePayload serializes payload into a replayable body and its computed
// content type. GET and DELETE never carry a body. The body is encoded once
// per logical call so retries replay identical bytes.
func encodePayload(method string, payload any) ([]byte, string, error) {
	if method == http.MethodGet || method == http.MethodDelete || payload == nil {
		return nil, "", nil
	}
	switch p := payload.(type) {
	case Blob:
		ct := p.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		return p.Data, ct, nil
	case *Blob:
		if p == nil {
			return nil, "", nil
		}
		ct := p.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		return p.Data, ct, nil
	case *Form:
		if p == nil {
			return nil, "", nil
		}
		return p.encode()
	case string:
		return []byte(p), "text/plain", nil
	case []byte:
		return p, "application/octet-stream", nil
	case io.Reader:
		data, err := io.ReadAll(p)
		if err != nil {
			return nil, "", err
		}
		return data, "application/octet-stream", nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, "", fmt.Errorf("marshal request body: %w", err)
		}
		return data, "application/json", nil
	}
}
