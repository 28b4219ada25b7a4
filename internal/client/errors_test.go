package client

import (
	"errors"
	"net"
	"strings"
	"syscall"
	"testing"
)

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    ErrorType
		subtype NetworkErrorSubtype
	}{
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, ErrTypeConnectionRefused, NetworkErrorConnectionRefused},
		{"host unreachable", &net.OpError{Op: "dial", Err: syscall.EHOSTUNREACH}, ErrTypeNetwork, NetworkErrorHostUnreachable},
		{"dns", &net.DNSError{Name: "miner.local", Err: "no such host"}, ErrTypeDNS, NetworkErrorDNS},
		{"other", errors.New("boom"), ErrTypeNetwork, NetworkErrorGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err, "10.0.0.7:8080")
			if got.Type != tt.want || got.NetworkSubtype != tt.subtype {
				t.Errorf("got %v/%v, want %v/%v", got.Type, got.NetworkSubtype, tt.want, tt.subtype)
			}
			if got.Host != "10.0.0.7:8080" {
				t.Errorf("Host = %q", got.Host)
			}
		})
	}

	if ClassifyNetworkError(nil, "") != nil {
		t.Error("nil error should classify to nil")
	}
}

func TestNewHTTPErrorRetryable(t *testing.T) {
	tests := map[int]bool{400: false, 404: false, 500: true, 503: false}
	for code, want := range tests {
		if got := NewHTTPError(code, "x").Retryable; got != want {
			t.Errorf("NewHTTPError(%d).Retryable = %v, want %v", code, got, want)
		}
	}
}

func TestHints(t *testing.T) {
	unreachable := ClassifyNetworkError(&net.OpError{Op: "dial", Err: syscall.EHOSTUNREACH}, "")
	if hint := GetTroubleshootingHint(unreachable); !strings.Contains(hint, "MonitorMiner_Setup") {
		t.Errorf("hint = %q", hint)
	}
	if msg := GetShortErrorMessage(NewHTTPError(400, "Invalid relay ID")); msg != "Controller error (HTTP 400): Invalid relay ID" {
		t.Errorf("short = %q", msg)
	}
	if msg := GetShortErrorMessage(errors.New("plain")); msg != "plain" {
		t.Errorf("short = %q", msg)
	}
	if IsNetworkError(errors.New("plain")) || IsRetryable(errors.New("plain")) {
		t.Error("plain errors are neither network nor retryable")
	}
}
