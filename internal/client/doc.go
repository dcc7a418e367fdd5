// Package client is the sensor-cfg side of the sensor protocol.
//
// A Client wraps net/http. The sensor answers one request per connection,
// so every request is sent with "Connection: close". Routes that need
// pairing carry the pair id in the X-Pair-Id header.
//
// # Pairing
//
//	c := client.New("192.168.1.40", 42069, "")
//	id, err := c.Pair(ctx) // press the sensor button first
//	if client.IsPairingClosed(err) {
//	    fmt.Println(client.GetTroubleshootingHint(err))
//	}
//
// # Errors
//
// Every method returns a *SensorError. Reads are retried on network
// errors; writes are not.
package client
