package protocol

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
)

// ReadRequest fills buf from r until the header terminator and any declared
// Content-Length body have arrived, buf is full, or r reports EOF. Deadlines
// belong to the caller (set them on the connection before calling).
//
// The returned count is valid even when err is non-nil; a timeout after a
// partial request still leaves the bytes in buf for Parse to reject.
func ReadRequest(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if complete(buf[:n]) {
			return n, nil
		}
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func complete(buf []byte) bool {
	end := bytes.Index(buf, blankLine)
	if end < 0 {
		return false
	}
	want := contentLength(buf[:end+len(crlf)])
	return len(buf)-(end+len(blankLine)) >= want
}

// contentLength scans a raw request head for a Content-Length header.
func contentLength(head []byte) int {
	for _, line := range strings.Split(string(head), "\r\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	return 0
}
