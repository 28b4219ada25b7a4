package protocol

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
)

// Content types used by the API and static assets.
const (
	ContentTypeJSON = "application/json"
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"
)

// Header is one response header line.
type Header struct {
	Name  string
	Value string
}

// Response is a complete response ready to render.
type Response struct {
	Status      int
	ContentType string
	Headers     []Header
	Body        []byte

	rendered []byte
}

// Build returns a response with the given status, content type and body.
func Build(status int, contentType string, body []byte) *Response {
	return &Response{Status: status, ContentType: contentType, Body: body}
}

// JSON encodes v as the body. An encoding failure becomes a 500.
func JSON(status int, v any) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		return Error(http.StatusInternalServerError, "failed to encode response")
	}
	return Build(status, ContentTypeJSON, body)
}

// Error returns {"error": message} with the given status.
func Error(status int, message string) *Response {
	body, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{message})
	return Build(status, ContentTypeJSON, body)
}

// Prerendered wraps bytes already produced by Render, e.g. from a cache.
func Prerendered(status int, wire []byte) *Response {
	return &Response{Status: status, rendered: wire}
}

// SetHeader appends a header and returns r for chaining.
func (r *Response) SetHeader(name, value string) *Response {
	r.Headers = append(r.Headers, Header{Name: name, Value: value})
	return r
}

// CORSHeaders are added to every response when CORS is enabled.
var CORSHeaders = []Header{
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS"},
	{"Access-Control-Allow-Headers", "Content-Type, Authorization"},
}

// Render produces the wire form: status line, headers, blank line, body.
func (r *Response) Render(cors bool) []byte {
	if r.rendered != nil {
		return r.rendered
	}

	var b bytes.Buffer
	b.Grow(128 + len(r.Body))

	text := http.StatusText(r.Status)
	if text == "" {
		text = "Unknown"
	}
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(r.Status))
	b.WriteByte(' ')
	b.WriteString(text)
	b.WriteString("\r\n")

	if r.ContentType != "" {
		writeHeader(&b, "Content-Type", r.ContentType)
	}
	writeHeader(&b, "Content-Length", strconv.Itoa(len(r.Body)))
	writeHeader(&b, "Connection", "close")
	if cors {
		for _, h := range CORSHeaders {
			writeHeader(&b, h.Name, h.Value)
		}
	}
	for _, h := range r.Headers {
		writeHeader(&b, h.Name, h.Value)
	}
	b.WriteString("\r\n")
	b.Write(r.Body)
	return b.Bytes()
}

func writeHeader(b *bytes.Buffer, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}
