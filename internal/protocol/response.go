package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// Response is a status code plus a JSON-encodable body.
type Response struct {
	Status int
	Body   any
}

// JSON builds a response with the given status and body.
func JSON(status int, body any) *Response {
	return &Response{Status: status, Body: body}
}

// OK builds a 200 response.
func OK(body any) *Response {
	return JSON(http.StatusOK, body)
}

// Result builds the common {"result": value} 200 response.
func Result(value string) *Response {
	return OK(map[string]string{"result": value})
}

// ErrorResponse maps err onto a status code and an {"error": message} body.
// Errors outside the protocol taxonomy become 500s without leaking details.
func ErrorResponse(err error) *Response {
	var pe *Error
	if errors.As(err, &pe) {
		return JSON(pe.Status(), map[string]string{"error": pe.Message})
	}
	return JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}

// StatusLine returns "HTTP/1.1 <code> <reason>".
func StatusLine(status int) string {
	reason := http.StatusText(status)
	if reason == "" {
		reason = "Unknown"
	}
	return fmt.Sprintf("HTTP/1.1 %d %s", status, reason)
}

// EncodeBody pretty-prints the response body with a two space indent.
func EncodeBody(body any) ([]byte, error) {
	if body == nil {
		return []byte("{}"), nil
	}
	return json.MarshalIndent(body, "", "  ")
}

// WriteResponse writes resp to w and returns the number of bytes written.
func WriteResponse(w io.Writer, resp *Response) (int, error) {
	body, err := EncodeBody(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("encode response body: %w", err)
	}

	bw := bufio.NewWriter(w)
	n, _ := fmt.Fprintf(bw, "%s\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n",
		StatusLine(resp.Status), len(body))
	m, _ := bw.Write(body)
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("write response: %w", err)
	}
	return n + m, nil
}
