package eventapi

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

// Payload is the form submitted on create and update. Field names are passed
// through to the backend untouched.
type Payload struct {
	fields []field
	files  []file
}

type field struct {
	name  string
	value string
}

type file struct {
	field    string
	filename string
	content  io.Reader
}

// NewPayload returns an empty payload.
func NewPayload() *Payload {
	return &Payload{}
}

// PayloadFromValues builds a payload from form values, e.g. a parsed
// *http.Request form.
func PayloadFromValues(values map[string][]string) *Payload {
	p := NewPayload()
	for name, vs := range values {
		for _, v := range vs {
			p.Add(name, v)
		}
	}
	return p
}

// Set replaces all values of name with value.
func (p *Payload) Set(name, value string) *Payload {
	kept := p.fields[:0]
	for _, f := range p.fields {
		if f.name != name {
			kept = append(kept, f)
		}
	}
	p.fields = append(kept, field{name: name, value: value})
	return p
}

// Add appends value to name.
func (p *Payload) Add(name, value string) *Payload {
	p.fields = append(p.fields, field{name: name, value: value})
	return p
}

// AddFile attaches a file part. The reader is consumed when the request is
// encoded.
func (p *Payload) AddFile(fieldName, filename string, content io.Reader) *Payload {
	p.files = append(p.files, file{field: fieldName, filename: filename, content: content})
	return p
}

// Get returns the first value of name.
func (p *Payload) Get(name string) string {
	if p == nil {
		return ""
	}
	for _, f := range p.fields {
		if f.name == name {
			return f.value
		}
	}
	return ""
}

// Len is the number of text fields and file parts.
func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.fields) + len(p.files)
}

// encode renders p as a multipart/form-data body. A nil payload encodes as an
// empty form.
func (p *Payload) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if p != nil {
		for _, f := range p.fields {
			if err := w.WriteField(f.name, f.value); err != nil {
				return nil, "", fmt.Errorf("encode field %q: %w", f.name, err)
			}
		}
		for _, f := range p.files {
			part, err := w.CreateFormFile(f.field, f.filename)
			if err != nil {
				return nil, "", fmt.Errorf("encode file %q: %w", f.field, err)
			}
			if _, err := io.Copy(part, f.content); err != nil {
				return nil, "", fmt.Errorf("read file %q: %w", f.filename, err)
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
