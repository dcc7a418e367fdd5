package client

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeNotPaired indicates the sensor rejected our pair id (401)
	ErrTypeNotPaired
	// ErrTypePairingClosed indicates the pairing button has not been pressed
	ErrTypePairingClosed
	// ErrTypeHTTP indicates any other non-200 status
	ErrTypeHTTP
	// ErrTypeParse indicates an unreadable response body
	ErrTypeParse
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening on the sensor port
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeNotPaired:
		return "Not Paired"
	case ErrTypePairingClosed:
		return "Pairing Closed"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// SensorError is returned by every Client method.
type SensorError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
	Addr       string
}

func (e *SensorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *SensorError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError maps a transport error onto an ErrorType.
func ClassifyNetworkError(err error, addr string) *SensorError {
	if err == nil {
		return nil
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	se := &SensorError{Type: ErrTypeNetwork, Message: "Network error occurred", Err: err, Addr: addr}

	var dnsErr *net.DNSError
	switch {
	case os.IsTimeout(err):
		se.Type, se.Message = ErrTypeTimeout, "Request timed out"
	case errors.As(err, &dnsErr):
		se.Type, se.Message = ErrTypeDNS, fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name)
	case errors.Is(err, syscall.ECONNREFUSED):
		se.Type, se.Message = ErrTypeConnectionRefused, "Sensor refused connection"
	case errors.Is(err, syscall.EHOSTUNREACH):
		se.Message = "Host unreachable"
	}
	return se
}

// NewNetworkError creates a classified network error
func NewNetworkError(message string, addr string, err error) *SensorError {
	se := ClassifyNetworkError(err, addr)
	se.Message = message + ": " + se.Message
	return se
}

// NewStatusError builds an error from a non-200 response to path. body is
// the sensor's {"error": ...} message when it sent one. A 401 from the
// pairing routes means the window is closed; anywhere else it means our
// pair id is unknown.
func NewStatusError(path string, status int, body string, addr string) *SensorError {
	se := &SensorError{Type: ErrTypeHTTP, StatusCode: status, Message: body, Addr: addr}
	if se.Message == "" {
		se.Message = http.StatusText(status)
	}
	if status == http.StatusUnauthorized {
		se.Type = ErrTypeNotPaired
		if strings.HasPrefix(path, "/pair") {
			se.Type = ErrTypePairingClosed
		}
	}
	return se
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *SensorError {
	return &SensorError{Type: ErrTypeParse, Message: message, Err: err}
}

func typeOf(err error) (ErrorType, bool) {
	var se *SensorError
	if errors.As(err, &se) {
		return se.Type, true
	}
	return 0, false
}

// IsNetworkError reports transport-level failures.
func IsNetworkError(err error) bool {
	t, ok := typeOf(err)
	return ok && (t == ErrTypeNetwork || t == ErrTypeTimeout || t == ErrTypeConnectionRefused || t == ErrTypeDNS)
}

// IsNotPaired reports a 401 on a pairing-protected route.
func IsNotPaired(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeNotPaired
}

// IsPairingClosed reports a /pair or /pair/confirm outside the button window.
func IsPairingClosed(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypePairingClosed
}

// GetTroubleshootingHint returns user-facing advice for err.
func GetTroubleshootingHint(err error) string {
	var se *SensorError
	if !errors.As(err, &se) {
		return "An unexpected error occurred. Please try again."
	}

	switch se.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The sensor did not respond in time.",
			"Troubleshooting:",
			"  • Check that the sensor is powered on",
			"  • The sensor answers one request at a time; retry in a moment",
		}, "\n")
	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The sensor refused the connection.",
			"Troubleshooting:",
			"  • Verify the port number (default is 42069)",
			"  • The sensor may still be booting",
		}, "\n")
	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the sensor hostname.",
			"Troubleshooting:",
			"  • Use the IP address instead of hostname",
			"  • Run 'sensor-cfg scan' to find sensors on this network",
		}, "\n")
	case ErrTypeNotPaired:
		return strings.Join([]string{
			"The sensor does not recognise this client.",
			"Troubleshooting:",
			"  • Run 'sensor-cfg pair' and press the button on the sensor",
		}, "\n")
	case ErrTypePairingClosed:
		return strings.Join([]string{
			"Pairing is not open on the sensor.",
			"Press and release the pairing button, then retry within 30 seconds.",
		}, "\n")
	case ErrTypeHTTP:
		return fmt.Sprintf("The sensor returned HTTP %d: %s", se.StatusCode, se.Message)
	case ErrTypeParse:
		return "Failed to parse the sensor's response. The firmware may be incompatible."
	default:
		return strings.Join([]string{
			"Network communication failed.",
			"Troubleshooting:",
			"  • Check that you're on the same network as the sensor",
			"  • Try pinging the sensor: ping " + hostOf(se.Addr),
		}, "\n")
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var se *SensorError
	if !errors.As(err, &se) {
		return err.Error()
	}
	switch se.Type {
	case ErrTypeTimeout:
		return "Sensor not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Sensor refused connection"
	case ErrTypeDNS:
		return "Cannot resolve sensor hostname"
	case ErrTypeNotPaired:
		return "Not paired with this sensor"
	case ErrTypePairingClosed:
		return "Pairing window is closed - press the sensor button"
	case ErrTypeHTTP:
		return fmt.Sprintf("Sensor error (HTTP %d): %s", se.StatusCode, se.Message)
	case ErrTypeParse:
		return "Failed to parse sensor response"
	default:
		return "Network error - check connection"
	}
}

func hostOf(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
