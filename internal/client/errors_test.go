package client

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"testing"
)

func asSensorError(err error, target **SensorError) bool {
	return errors.As(err, target)
}

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"timeout", os.ErrDeadlineExceeded, ErrTypeTimeout},
		{"dns", &net.DNSError{Name: "sensor.local", Err: "no such host"}, ErrTypeDNS},
		{"refused", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, ErrTypeConnectionRefused},
		{"wrapped in url error", &url.Error{Op: "Get", URL: "http://x", Err: &net.DNSError{Name: "x"}}, ErrTypeDNS},
		{"other", errors.New("boom"), ErrTypeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err, "10.0.0.1:42069")
			if got.Type != tt.want {
				t.Errorf("Type = %v, want %v", got.Type, tt.want)
			}
			if !IsNetworkError(got) {
				t.Error("IsNetworkError() = false")
			}
		})
	}

	if ClassifyNetworkError(nil, "") != nil {
		t.Error("ClassifyNetworkError(nil) should be nil")
	}
}

func TestNewStatusError(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		body   string
		want   ErrorType
		msg    string
	}{
		{"not paired", "/sensor/full", http.StatusUnauthorized, "To connect use /pair endpoint and pairing button on the device.", ErrTypeNotPaired, ""},
		{"pairing closed", "/pair", http.StatusUnauthorized, "To connect use /pair endpoint and pairing button on the device.", ErrTypePairingClosed, ""},
		{"bad request", "/pair/confirm", http.StatusBadRequest, "Invalid pairing id", ErrTypeHTTP, "Invalid pairing id"},
		{"empty body", "/nope", http.StatusNotFound, "", ErrTypeHTTP, "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewStatusError(tt.path, tt.status, tt.body, "h:1")
			if err.Type != tt.want {
				t.Errorf("Type = %v, want %v", err.Type, tt.want)
			}
			if tt.msg != "" && err.Message != tt.msg {
				t.Errorf("Message = %q, want %q", err.Message, tt.msg)
			}
			if IsNetworkError(err) {
				t.Error("status errors are not network errors")
			}
		})
	}
}

func TestErrorTypeString(t *testing.T) {
	if ErrTypePairingClosed.String() != "Pairing Closed" {
		t.Errorf("String() = %q", ErrTypePairingClosed.String())
	}
	if ErrorType(99).String() != "ErrorType(99)" {
		t.Errorf("String() = %q", ErrorType(99).String())
	}
}

func TestHints(t *testing.T) {
	tests := []struct {
		err  error
		hint string
		msg  string
	}{
		{NewStatusError("/dht", 401, "Unauthorized", ""), "sensor-cfg pair", "Not paired with this sensor"},
		{NewStatusError("/pair", 401, "use /pair", ""), "pairing button", "Pairing window is closed - press the sensor button"},
		{&SensorError{Type: ErrTypeNetwork, Addr: "10.0.0.9:42069"}, "ping 10.0.0.9", "Network error - check connection"},
		{errors.New("plain"), "unexpected", "plain"},
	}
	for _, tt := range tests {
		if h := GetTroubleshootingHint(tt.err); !strings.Contains(h, tt.hint) {
			t.Errorf("GetTroubleshootingHint(%v) = %q, want to contain %q", tt.err, h, tt.hint)
		}
		if m := GetShortErrorMessage(tt.err); m != tt.msg {
			t.Errorf("GetShortErrorMessage(%v) = %q, want %q", tt.err, m, tt.msg)
		}
	}
}
