package protocol

import (
	"bytes"
	"context"

	"github.com/muurk/homesensor/internal/logging"
)

// Field capacities and the connection read buffer size.
const (
	MethodCapacity  = 5
	RouteCapacity   = 64
	HeadersCapacity = 512
	BodyCapacity    = 1024
	BufferSize      = 2048
)

var (
	crlf      = []byte("\r\n")
	blankLine = []byte("\r\n\r\n")
)

// Field is a fixed-capacity byte buffer. set copies at most capacity bytes
// and remembers how many were dropped.
type Field struct {
	name     string
	data     []byte
	capacity int
	dropped  int
}

func newField(name string, capacity int) Field {
	return Field{name: name, data: make([]byte, 0, capacity), capacity: capacity}
}

func (f *Field) set(src []byte) {
	n := len(src)
	if n > f.capacity {
		n = f.capacity
	}
	f.data = append(f.data[:0], src[:n]...)
	f.dropped = len(src) - n
	if f.dropped > 0 {
		logging.LogTruncation(f.name, f.capacity, f.dropped)
	}
}

// String returns the field contents.
func (f Field) String() string { return string(f.data) }

// Bytes returns the field contents. The slice aliases the field.
func (f Field) Bytes() []byte { return f.data }

// Len returns the number of bytes held.
func (f Field) Len() int { return len(f.data) }

// Capacity returns the fixed capacity of the field.
func (f Field) Capacity() int { return f.capacity }

// Dropped returns how many input bytes did not fit.
func (f Field) Dropped() int { return f.dropped }

// Request is one parsed device request. A Request is built fresh for every
// connection and never shared between connections.
type Request struct {
	method  Field
	route   Field
	headers Field
	body    Field

	ctx context.Context
}

func newRequest() *Request {
	return &Request{
		method:  newField("method", MethodCapacity),
		route:   newField("route", RouteCapacity),
		headers: newField("headers", HeadersCapacity),
		body:    newField("body", BodyCapacity),
	}
}

// NewRequest builds a Request from already separated parts, applying the
// same bounds as Parse. headers is the raw CRLF-terminated header block.
func NewRequest(method, route, headers string, body []byte) *Request {
	r := newRequest()
	r.method.set([]byte(method))
	r.route.set([]byte(route))
	r.headers.set([]byte(headers))
	r.body.set(body)
	return r
}

// Parse turns a raw buffer into a Request. It is single-shot: an incomplete
// request is a failure, not a reason to wait for more bytes. On failure no
// Request is returned.
func Parse(buf []byte) (*Request, error) {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}

	lineEnd := bytes.Index(buf, crlf)
	if lineEnd < 0 {
		return nil, NewMalformedRequestError("missing request line terminator")
	}

	line := buf[:lineEnd]
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 < 0 {
		return nil, NewMalformedRequestError("missing space after method")
	}
	sp2 := bytes.IndexByte(line[sp1+1:], ' ')
	if sp2 < 0 {
		return nil, NewMalformedRequestError("missing space after route")
	}
	method := line[:sp1]
	route := line[sp1+1 : sp1+1+sp2]
	if len(method) == 0 || len(route) == 0 {
		return nil, NewMalformedRequestError("empty method or route")
	}

	// The header terminator is searched from the request line terminator so
	// a request without headers ("GET / HTTP/1.1\r\n\r\n") is accepted.
	blank := bytes.Index(buf[lineEnd:], blankLine)
	if blank < 0 {
		return nil, NewMalformedRequestError("missing header terminator")
	}
	headerStart := lineEnd + len(crlf)
	headerEnd := lineEnd + blank + len(crlf)
	bodyStart := lineEnd + blank + len(blankLine)

	r := newRequest()
	r.method.set(method)
	r.route.set(route)
	if headerEnd > headerStart {
		r.headers.set(buf[headerStart:headerEnd])
	}
	r.body.set(buf[bodyStart:])
	return r, nil
}

// Context returns the request's context, never nil.
func (r *Request) Context() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of r carrying ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	r2 := *r
	r2.ctx = ctx
	return &r2
}

// Method returns the request method, e.g. "GET".
func (r *Request) Method() string { return r.method.String() }

// Route returns the request path.
func (r *Request) Route() string { return r.route.String() }

// Headers returns the raw header block.
func (r *Request) Headers() string { return r.headers.String() }

// Body returns the request body.
func (r *Request) Body() []byte { return r.body.Bytes() }

// Truncated lists the fields that lost bytes while being copied.
func (r *Request) Truncated() []string {
	var names []string
	for _, f := range []*Field{&r.method, &r.route, &r.headers, &r.body} {
		if f.dropped > 0 {
			names = append(names, f.name)
		}
	}
	return names
}

// Header looks up key case-insensitively. The key must start a header line
// and be followed by ": ". The value runs to the next CRLF; a line without a
// terminator does not count.
func (r *Request) Header(key string) (string, bool) {
	h := r.headers.Bytes()
	prefix := []byte(key + ": ")

	for pos := 0; pos < len(h); {
		end := bytes.Index(h[pos:], crlf)
		if end < 0 {
			return "", false
		}
		line := h[pos : pos+end]
		if len(line) >= len(prefix) && bytes.EqualFold(line[:len(prefix)], prefix) {
			return string(line[len(prefix):]), true
		}
		pos += end + len(crlf)
	}
	return "", false
}
