// Package server runs the sensor's request loop.
//
// The loop is single-threaded: it accepts one TCP connection, reads one
// request into a fixed 2048-byte buffer, dispatches it, writes the response
// and closes the connection before accepting the next one.
//
// # Maintenance Ticks
//
// Accept is given a short deadline (TickInterval, 100ms by default). Every
// pass through the loop, whether a connection arrived or the deadline
// expired, runs the maintenance tick:
//   - pairing: poll the button and expire the pairing window
//   - sampler: take a reading when due and flush the ring when due
//
// Ticks never overlap with request handling.
//
// # Usage Example
//
//	srv, err := server.New(server.DefaultConfig(), server.Deps{
//	    Dispatcher: handlers.Dispatcher(),
//	    Pairing:    pairingService,
//	    Sampler:    smp,
//	    LED:        led,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until SIGINT/SIGTERM or ctx is cancelled
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// On cancellation the loop stops accepting, force-flushes the sample ring
// to flash and closes the listener.
package server
