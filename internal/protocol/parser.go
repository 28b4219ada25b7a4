package protocol

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"
)

var (
	crlfcrlf = []byte("\r\n\r\n")
	lflf     = []byte("\n\n")
)

// headerEnd returns the index where the body starts, or -1 when the
// header terminator has not arrived.
func headerEnd(buf []byte) int {
	if i := bytes.Index(buf, crlfcrlf); i >= 0 {
		return i + len(crlfcrlf)
	}
	if i := bytes.Index(buf, lflf); i >= 0 {
		return i + len(lflf)
	}
	return -1
}

// Complete reports whether buf holds a whole request: the header block and
// as many body bytes as Content-Length announces. It never fails; malformed
// input is reported by ParseRequest.
func Complete(buf []byte) bool {
	end := headerEnd(buf)
	if end < 0 {
		return false
	}
	n, ok := contentLength(buf[:end])
	if !ok {
		return true
	}
	return len(buf)-end >= n
}

func contentLength(head []byte) (int, bool) {
	for _, line := range bytes.Split(head, []byte("\n")) {
		name, value, found := bytes.Cut(line, []byte(":"))
		if !found || !strings.EqualFold(string(bytes.TrimSpace(name)), "content-length") {
			continue
		}
		n, err := strconv.Atoi(string(bytes.TrimSpace(value)))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// ParseRequest parses one request from raw.
//
// The parser is lenient about line endings (LF or CRLF) and about a missing
// header terminator, but reports a *ParseError for a request line with
// fewer than two tokens, a header without a colon, a bad Content-Length, a
// POST, PUT or PATCH without Content-Length, and bodies shorter or longer
// than Content-Length.
func ParseRequest(raw []byte) (*Request, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, parseErr(ErrEmptyRequest, "no data")
	}

	head, body := raw, []byte(nil)
	if end := headerEnd(raw); end >= 0 {
		head, body = raw[:end], raw[end:]
	}

	lines := strings.Split(strings.TrimRight(string(head), "\r\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	// Tolerate stray blank lines before the request line.
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return nil, parseErr(ErrEmptyRequest, "no request line")
	}

	req, err := parseRequestLine(lines[0])
	if err != nil {
		return nil, err
	}

	req.Headers = make(map[string]string, len(lines)-1)
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, value, found := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !found || name == "" || strings.ContainsAny(name, " \t") {
			return nil, parseErr(ErrMalformedHeader, "%q", truncate(line, 64))
		}
		req.Headers[strings.ToLower(name)] = strings.TrimSpace(value)
	}

	cl, ok := req.Headers["content-length"]
	if !ok && bodyMethod(req.Method) {
		return nil, parseErr(ErrLengthRequired, "%s without Content-Length", req.Method)
	}
	if ok {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return nil, parseErr(ErrMalformedHeader, "invalid Content-Length %q", cl)
		}
		switch {
		case len(body) < n:
			return nil, parseErr(ErrIncompleteBody, "got %d of %d bytes", len(body), n)
		case len(body) > n:
			return nil, parseErr(ErrTrailingData, "%d bytes beyond Content-Length", len(body)-n)
		}
	}
	req.Body = body

	return req, nil
}

// bodyMethod reports whether requests with method are expected to carry a
// body. Those must announce its length.
func bodyMethod(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}

func parseRequestLine(line string) (*Request, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, parseErr(ErrMalformedRequestLine, "%q", truncate(line, 64))
	}
	method, target := fields[0], fields[1]
	for _, c := range method {
		if c < 'A' || c > 'Z' {
			return nil, parseErr(ErrMalformedRequestLine, "invalid method %q", truncate(method, 16))
		}
	}

	req := &Request{
		Method: method,
		Target: target,
		Proto:  "HTTP/1.0",
	}
	if len(fields) >= 3 {
		req.Proto = fields[2]
	}

	if target == "*" {
		req.Path = "*"
		req.Query = url.Values{}
		return req, nil
	}
	if !strings.HasPrefix(target, "/") {
		return nil, parseErr(ErrMalformedRequestLine, "invalid target %q", truncate(target, 64))
	}

	rawPath, rawQuery, _ := strings.Cut(target, "?")
	path, err := url.PathUnescape(rawPath)
	if err != nil {
		return nil, &ParseError{Kind: ErrMalformedRequestLine, Detail: "bad path escape", Err: err}
	}
	req.Path = path
	req.RawQuery = rawQuery
	req.Query, _ = url.ParseQuery(rawQuery)
	return req, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
