package protocol

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind *ParseErrorKind
		verify   func(t *testing.T, r *Request)
	}{
		{
			name: "simple get",
			raw:  "GET /api/relays HTTP/1.1\r\nHost: 192.168.4.1\r\nAccept: */*\r\n\r\n",
			verify: func(t *testing.T, r *Request) {
				if r.Method != "GET" || r.Path != "/api/relays" || r.Proto != "HTTP/1.1" {
					t.Errorf("request line = %s %s %s", r.Method, r.Path, r.Proto)
				}
				if r.Header("host") != "192.168.4.1" || r.Header("ACCEPT") != "*/*" {
					t.Errorf("headers = %v", r.Headers)
				}
				if len(r.Body) != 0 {
					t.Errorf("body = %q, want empty", r.Body)
				}
			},
		},
		{
			name: "query string",
			raw:  "GET /api/system/logs?limit=10&x=%20y HTTP/1.1\r\n\r\n",
			verify: func(t *testing.T, r *Request) {
				if r.Path != "/api/system/logs" {
					t.Errorf("Path = %q", r.Path)
				}
				if r.QueryInt("limit", 50) != 10 {
					t.Errorf("limit = %d, want 10", r.QueryInt("limit", 50))
				}
				if r.Query.Get("x") != " y" {
					t.Errorf("x = %q", r.Query.Get("x"))
				}
				if r.QueryInt("missing", 7) != 7 {
					t.Error("QueryInt default not applied")
				}
			},
		},
		{
			name: "post with body",
			raw:  "POST /api/relays/1 HTTP/1.1\r\nContent-Type: application/json\r\nContent-Length: 17\r\n\r\n{\"action\":\"on\"}\r\n",
			verify: func(t *testing.T, r *Request) {
				var body struct{ Action string }
				if err := r.DecodeJSON(&body); err != nil {
					t.Fatalf("DecodeJSON() error = %v", err)
				}
				if body.Action != "on" {
					t.Errorf("Action = %q", body.Action)
				}
			},
		},
		{
			name: "bare LF line endings",
			raw:  "GET / HTTP/1.0\nHost: x\n\n",
			verify: func(t *testing.T, r *Request) {
				if r.Path != "/" || r.Header("host") != "x" {
					t.Errorf("parsed = %+v", r)
				}
			},
		},
		{
			name: "missing terminator tolerated",
			raw:  "GET /api/system/ping HTTP/1.1\r\nHost: x",
			verify: func(t *testing.T, r *Request) {
				if r.Path != "/api/system/ping" {
					t.Errorf("Path = %q", r.Path)
				}
			},
		},
		{
			name: "two token request line",
			raw:  "GET /\r\n\r\n",
			verify: func(t *testing.T, r *Request) {
				if r.Proto != "HTTP/1.0" {
					t.Errorf("Proto = %q, want default HTTP/1.0", r.Proto)
				}
			},
		},
		{
			name: "options asterisk",
			raw:  "OPTIONS * HTTP/1.1\r\n\r\n",
			verify: func(t *testing.T, r *Request) {
				if r.Path != "*" {
					t.Errorf("Path = %q, want *", r.Path)
				}
			},
		},
		{name: "empty", raw: "", wantKind: kind(ErrEmptyRequest)},
		{name: "whitespace only", raw: "\r\n\r\n", wantKind: kind(ErrEmptyRequest)},
		{name: "one token", raw: "GET\r\n\r\n", wantKind: kind(ErrMalformedRequestLine)},
		{name: "lowercase method", raw: "get / HTTP/1.1\r\n\r\n", wantKind: kind(ErrMalformedRequestLine)},
		{name: "relative target", raw: "GET api HTTP/1.1\r\n\r\n", wantKind: kind(ErrMalformedRequestLine)},
		{name: "bad escape", raw: "GET /%zz HTTP/1.1\r\n\r\n", wantKind: kind(ErrMalformedRequestLine)},
		{name: "header without colon", raw: "GET / HTTP/1.1\r\nBroken header\r\n\r\n", wantKind: kind(ErrMalformedHeader)},
		{name: "bad content length", raw: "POST / HTTP/1.1\r\nContent-Length: ten\r\n\r\n", wantKind: kind(ErrMalformedHeader)},
		{name: "short body", raw: "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc", wantKind: kind(ErrIncompleteBody)},
		{name: "trailing data", raw: "POST / HTTP/1.1\r\nContent-Length: 2\r\n\r\nabcdef", wantKind: kind(ErrTrailingData)},
		{name: "post without length", raw: "POST /api/relays/1 HTTP/1.1\r\nHost: x\r\n\r\n", wantKind: kind(ErrLengthRequired)},
		{name: "put without length, body sent anyway", raw: "PUT /api/config HTTP/1.1\r\n\r\n{}", wantKind: kind(ErrLengthRequired)},
		{
			name: "post with zero length",
			raw:  "POST /api/system/restart HTTP/1.1\r\nContent-Length: 0\r\n\r\n",
			verify: func(t *testing.T, r *Request) {
				if len(r.Body) != 0 {
					t.Errorf("body = %q, want empty", r.Body)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tt.raw))
			if tt.wantKind != nil {
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("ParseRequest() error = %v, want ParseError(%v)", err, *tt.wantKind)
				}
				if pe.Kind != *tt.wantKind {
					t.Errorf("Kind = %v, want %v", pe.Kind, *tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRequest() error = %v", err)
			}
			if tt.verify != nil {
				tt.verify(t, req)
			}
		})
	}
}

func kind(k ParseErrorKind) *ParseErrorKind { return &k }

func TestDecodeJSONInvalidBody(t *testing.T) {
	for _, body := range []string{"", "   ", "{not json", `{"a":1`} {
		r := &Request{Body: []byte(body)}
		var v map[string]any
		err := r.DecodeJSON(&v)
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Kind != ErrInvalidBody {
			t.Errorf("DecodeJSON(%q) error = %v, want ErrInvalidBody", body, err)
		}
	}
}

func TestComplete(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"GET / HTTP/1.1\r\nHost: x\r\n", false},
		{"GET / HTTP/1.1\r\nHost: x\r\n\r\n", true},
		{"POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nab", false},
		{"POST / HTTP/1.1\r\ncontent-length: 5\r\n\r\nabcde", true},
		{"POST / HTTP/1.1\r\nContent-Length: x\r\n\r\n", true},
	}
	for _, tt := range tests {
		if got := Complete([]byte(tt.raw)); got != tt.want {
			t.Errorf("Complete(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestAcceptsGzip(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{"gzip", true},
		{"deflate, gzip;q=0.8", true},
		{"GZIP", true},
		{"gzip;q=0", false},
		{"br, deflate", false},
	}
	for _, tt := range tests {
		r := &Request{Headers: map[string]string{"accept-encoding": tt.header}}
		if got := r.AcceptsGzip(); got != tt.want {
			t.Errorf("AcceptsGzip(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestParseErrorStatus(t *testing.T) {
	if (&ParseError{Kind: ErrRequestTooLarge}).Status() != 413 {
		t.Error("too large should map to 413")
	}
	if (&ParseError{Kind: ErrLengthRequired}).Status() != 411 {
		t.Error("missing length should map to 411")
	}
	if (&ParseError{Kind: ErrMalformedHeader}).Status() != 400 {
		t.Error("malformed header should map to 400")
	}
	if !strings.Contains((&ParseError{Kind: ErrTrailingData, Detail: "3 bytes"}).Error(), "trailing data") {
		t.Error("Error() should include the kind")
	}
}
