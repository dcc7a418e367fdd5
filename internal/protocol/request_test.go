package protocol

import (
	"context"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantErr     bool
		wantMethod  string
		wantRoute   string
		wantHeaders string
		wantBody    string
	}{
		{
			name:        "canonical request",
			raw:         "GET /x HTTP/1.1\r\nHeader: v\r\n\r\nbody",
			wantMethod:  "GET",
			wantRoute:   "/x",
			wantHeaders: "Header: v\r\n",
			wantBody:    "body",
		},
		{
			name:        "no headers",
			raw:         "GET /sensor HTTP/1.1\r\n\r\n",
			wantMethod:  "GET",
			wantRoute:   "/sensor",
			wantHeaders: "",
			wantBody:    "",
		},
		{
			name:        "several headers and json body",
			raw:         "POST /sensor HTTP/1.1\r\nHost: 10.0.0.2\r\nX-Pair-Id: abc\r\n\r\n{\"name\":\"attic\"}",
			wantMethod:  "POST",
			wantRoute:   "/sensor",
			wantHeaders: "Host: 10.0.0.2\r\nX-Pair-Id: abc\r\n",
			wantBody:    `{"name":"attic"}`,
		},
		{
			name:       "body stops at NUL",
			raw:        "POST /dht HTTP/1.1\r\n\r\n{}\x00garbage",
			wantMethod: "POST",
			wantRoute:  "/dht",
			wantBody:   "{}",
		},
		{
			name:    "no line terminator",
			raw:     "GET /x HTTP/1.1",
			wantErr: true,
		},
		{
			name:    "terminator hidden after NUL",
			raw:     "GET /x\x00 HTTP/1.1\r\n\r\n",
			wantErr: true,
		},
		{
			name:    "missing second space",
			raw:     "GET /x\r\n\r\n",
			wantErr: true,
		},
		{
			name:    "missing first space",
			raw:     "GET\r\n\r\n",
			wantErr: true,
		},
		{
			name:    "missing header terminator",
			raw:     "GET /x HTTP/1.1\r\nHeader: v\r\n",
			wantErr: true,
		},
		{
			name:    "empty buffer",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Parse([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse() expected error, got request %+v", req)
				}
				if req != nil {
					t.Errorf("Parse() returned a request alongside an error")
				}
				if !IsMalformedRequest(err) {
					t.Errorf("error type = %v, want MalformedRequest", TypeOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if req.Method() != tt.wantMethod {
				t.Errorf("method = %q, want %q", req.Method(), tt.wantMethod)
			}
			if req.Route() != tt.wantRoute {
				t.Errorf("route = %q, want %q", req.Route(), tt.wantRoute)
			}
			if req.Headers() != tt.wantHeaders {
				t.Errorf("headers = %q, want %q", req.Headers(), tt.wantHeaders)
			}
			if string(req.Body()) != tt.wantBody {
				t.Errorf("body = %q, want %q", req.Body(), tt.wantBody)
			}
		})
	}
}

func TestParseNeverFailsPartially(t *testing.T) {
	// Any prefix that cuts the request line must fail outright.
	full := "POST /pair/confirm HTTP/1.1\r\nX-Pair-Id: abc\r\n\r\n"
	lineEnd := strings.Index(full, "\r\n")
	for i := 0; i <= lineEnd; i++ {
		req, err := Parse([]byte(full[:i]))
		if err == nil || req != nil {
			t.Errorf("prefix %q: got (%v, %v), want failure", full[:i], req, err)
		}
	}
}

func TestParseTruncatesOversizedFields(t *testing.T) {
	longRoute := "/" + strings.Repeat("a", 100)
	longBody := strings.Repeat("b", 1500)
	raw := "DELETE " + longRoute + " HTTP/1.1\r\n\r\n" + longBody

	req, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if req.Method() != "DELET" {
		t.Errorf("method = %q, want %q", req.Method(), "DELET")
	}
	if len(req.Route()) != RouteCapacity {
		t.Errorf("route length = %d, want %d", len(req.Route()), RouteCapacity)
	}
	if len(req.Body()) != BodyCapacity {
		t.Errorf("body length = %d, want %d", len(req.Body()), BodyCapacity)
	}

	got := strings.Join(req.Truncated(), ",")
	if got != "method,route,body" {
		t.Errorf("Truncated() = %q, want %q", got, "method,route,body")
	}
}

func TestHeader(t *testing.T) {
	req := NewRequest("GET", "/sensor", "Host: device\r\nx-pair-id: secret-1\r\nContent-Length: 0\r\n", nil)

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"X-Pair-Id", "secret-1", true},
		{"x-pair-id", "secret-1", true},
		{"HOST", "device", true},
		{"Content-Length", "0", true},
		{"Pair-Id", "", false},
		{"Authorization", "", false},
	}

	for _, tt := range tests {
		got, ok := req.Header(tt.key)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Header(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestHeaderWithoutTerminator(t *testing.T) {
	req := NewRequest("GET", "/", "X-Pair-Id: abc", nil)
	if _, ok := req.Header("X-Pair-Id"); ok {
		t.Error("Header() found a value with no line terminator")
	}
}

type ctxKey struct{}

func TestRequestContext(t *testing.T) {
	req := NewRequest("GET", "/", "", nil)
	if req.Context() == nil {
		t.Fatal("Context() returned nil")
	}

	ctx := context.WithValue(context.Background(), ctxKey{}, "v")
	withCtx := req.WithContext(ctx)
	if withCtx.Context().Value(ctxKey{}) != "v" {
		t.Error("WithContext() did not attach the context")
	}
	if req.Context().Value(ctxKey{}) != nil {
		t.Error("WithContext() modified the original request")
	}
	if withCtx.Route() != "/" {
		t.Errorf("copied route = %q", withCtx.Route())
	}
}
