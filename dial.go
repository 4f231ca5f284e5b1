package apnsgate

import (
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"
)

// dialTimeout bounds the TCP connect; the TLS handshake is bounded
// separately by the app's timeout via the connection deadline.
const dialTimeout = 20 * time.Second

// dialFunc opens a connection to a fixed address. Sessions and the
// feedback client take one so tests can substitute in-memory pipes.
type dialFunc func() (net.Conn, error)

// tlsDialer returns a dialFunc that opens a TLS client connection to
// addr authenticated with cert.
//
// The protocol predates modern TLS: Apple originally required SSLv3,
// which crypto/tls no longer implements. The floor here is TLS 1.0,
// the oldest version still available, to stay compatible with the
// gateway's aging stacks.
func tlsDialer(addr string, cert tls.Certificate, timeout time.Duration) dialFunc {
	host := addr
	if i := strings.IndexByte(addr, ':'); i >= 0 {
		host = addr[:i]
	}
	config := &tls.Config{
		Certificates: []tls.Certificate{cert},
		ServerName:   host,
		MinVersion:   tls.VersionTLS10,
	}
	return func() (net.Conn, error) {
		socket, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		conn := tls.Client(socket, config)
		// Bound the handshake, then clear the deadline so it does not
		// fail later reads and writes.
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			socket.Close()
			return nil, err
		}
		if err := conn.Handshake(); err != nil {
			socket.Close()
			return nil, fmt.Errorf("tls handshake with %s: %w", addr, err)
		}
		if err := conn.SetDeadline(time.Time{}); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}
