package server

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/homesensor/internal/logging"
	"github.com/muurk/homesensor/internal/metrics"
	"github.com/muurk/homesensor/internal/protocol"
	"github.com/muurk/homesensor/internal/router"
)

// handleConnection reads one request, dispatches it, writes one response and
// closes the connection. There is no keep-alive.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	start := time.Now()
	remoteAddr := conn.RemoteAddr().String()

	defer func() {
		_ = conn.Close()
		logging.LogConnection(remoteAddr, "connection_closed")
	}()
	logging.LogConnection(remoteAddr, "connection_accepted")

	if s.config.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}

	var buf [protocol.BufferSize]byte
	n, err := protocol.ReadRequest(conn, buf[:])
	if n == 0 {
		if err != nil {
			logging.Warn("Connection closed before a request arrived",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
		}
		return
	}
	logging.LogRawBytes("Request bytes", buf[:n])

	method, pattern := "", router.Unmatched
	var resp *protocol.Response

	req, err := protocol.Parse(buf[:n])
	if err != nil {
		metrics.ParseFailures.Inc()
		logging.Warn("Rejected malformed request",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		resp = protocol.ErrorResponse(err)
	} else {
		logging.LogRequest(remoteAddr, req.Method(), req.Route(), len(req.Body()))
		route := s.deps.Dispatcher.Lookup(req)
		method, pattern = router.PatternOf(route)
		resp = route.Handle(req.WithContext(ctx))
	}

	if s.config.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	written, err := protocol.WriteResponse(conn, resp)
	if err != nil {
		logging.Error("Failed to write response",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}
	logging.LogResponse(remoteAddr, resp.Status, written)
	metrics.RecordRequest(method, pattern, resp.Status, time.Since(start))
}
