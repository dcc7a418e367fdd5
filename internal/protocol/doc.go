// Package protocol implements the sensor's minimal HTTP-like wire format.
//
// The device does not run a general HTTP server. Each accepted connection
// delivers one request into a fixed 2048-byte buffer, the buffer is parsed
// once, one response is written and the connection is closed. There is no
// chunked transfer and no keep-alive.
//
// # Request Format
//
//	<METHOD> <PATH> <ignored-version>\r\n
//	<Name>: <value>\r\n        (zero or more)
//	\r\n
//	<body>
//
// Parse splits the request line on its first two spaces, delimits the header
// block by the first blank line after the request line, and treats the rest
// of the buffer (up to the first NUL byte) as the body.
//
// # Bounded Fields
//
// Every field of a Request is copied into a buffer of fixed capacity:
//   - method: 5 bytes
//   - route: 64 bytes
//   - headers: 512 bytes
//   - body: 1024 bytes
//
// Oversized input is truncated, never rejected. Each truncation is logged
// through the logging package and reported by Request.Truncated.
//
// # Responses
//
// WriteResponse emits a status line, Content-Type and Content-Length headers,
// a blank line and a pretty-printed JSON body:
//
//	resp := protocol.JSON(200, map[string]string{"result": "ok"})
//	n, err := protocol.WriteResponse(conn, resp)
//
// # Errors
//
// Handlers return *Error values from errors.go; ErrorResponse maps each
// ErrorType onto its status code and a {"error": "..."} body.
package protocol
